package mirror

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/a13xperi/kaa-notion-backend-sub005/errors"
	"github.com/a13xperi/kaa-notion-backend-sub005/notion"
)

// DeliverableAdapter mirrors deliverables as bulleted list items under the
// Deliverables section of their project's page.
type DeliverableAdapter struct {
	client *notion.Client
}

func (a *DeliverableAdapter) EntityType() EntityType {
	return EntityDeliverable
}

func (a *DeliverableAdapter) Sync(ctx context.Context, job *Job) (Result, error) {
	var payload DeliverablePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return Result{}, errors.Wrap(err, "failed to decode deliverable payload")
	}

	ref := payload.ExternalRef
	if ref == "" {
		ref = job.ExternalRef
	}
	block := deliverableBlock(payload)

	switch job.Operation {
	case OpDelete:
		if ref == "" {
			return Result{}, nil
		}
		if err := a.client.ArchiveBlock(ctx, ref); err != nil {
			return Result{}, err
		}
		return Result{}, nil

	case OpCreate, OpUpdate:
		if ref != "" {
			if err := a.client.UpdateBlock(ctx, ref, block); err != nil {
				return Result{}, err
			}
			return Result{ExternalRef: ref}, nil
		}

		if payload.ProjectPageID == "" {
			return Result{}, &ParentNotSyncedError{
				ProjectID: payload.ProjectID,
				Reason:    "no Notion page id on project",
			}
		}
		blockID, err := appendToSection(ctx, a.client, payload.ProjectPageID, payload.ProjectID, SectionDeliverables, block)
		if err != nil {
			return Result{}, err
		}
		return Result{ExternalRef: blockID}, nil

	default:
		return Result{}, errors.Newf("unsupported deliverable operation: %s", job.Operation)
	}
}

// deliverableBlock renders a deliverable as its list item. The title links
// to the file when a URL is known; the status rides in the text.
func deliverableBlock(p DeliverablePayload) notion.Block {
	text := fmt.Sprintf("%s (%s)", p.Title, statusLabel(p.Status))
	block := notion.NewBulletedItem(text)
	if p.FileURL != "" {
		block.BulletedListItem.RichText[0].Text.Link = &notion.Link{URL: p.FileURL}
	}
	return block
}
