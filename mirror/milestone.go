package mirror

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/a13xperi/kaa-notion-backend-sub005/errors"
	"github.com/a13xperi/kaa-notion-backend-sub005/notion"
)

// MilestoneAdapter mirrors milestones as to_do blocks under the Milestones
// section of their project's page. The checkbox tracks completion.
type MilestoneAdapter struct {
	client *notion.Client
}

func (a *MilestoneAdapter) EntityType() EntityType {
	return EntityMilestone
}

func (a *MilestoneAdapter) Sync(ctx context.Context, job *Job) (Result, error) {
	var payload MilestonePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return Result{}, errors.Wrap(err, "failed to decode milestone payload")
	}

	ref := payload.ExternalRef
	if ref == "" {
		ref = job.ExternalRef
	}
	block := milestoneBlock(payload)

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
		// A known block id means the to_do already exists: rewrite it in
		// place. This also makes retried creates idempotent.
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
		blockID, err := appendToSection(ctx, a.client, payload.ProjectPageID, payload.ProjectID, SectionMilestones, block)
		if err != nil {
			return Result{}, err
		}
		return Result{ExternalRef: blockID}, nil

	default:
		return Result{}, errors.Newf("unsupported milestone operation: %s", job.Operation)
	}
}

// milestoneBlock renders a milestone as its to_do block. The due date rides
// in the text; the checkbox reflects the status.
func milestoneBlock(p MilestonePayload) notion.Block {
	text := p.Title
	if p.DueDate != nil {
		text = fmt.Sprintf("%s (due %s)", p.Title, p.DueDate.Format("2006-01-02"))
	}
	return notion.NewToDo(text, p.Status == "complete")
}

// appendToSection appends a block at the end of a labeled section on the
// project page, returning the created block's id. A missing section means
// the page predates the current layout (or was edited by hand); that is a
// parent problem, so it surfaces as ParentNotSyncedError and triggers a
// corrective project sync.
func appendToSection(ctx context.Context, client *notion.Client, pageID, projectID, heading string, block notion.Block) (string, error) {
	children, err := client.ListChildren(ctx, pageID)
	if err != nil {
		return "", err
	}

	anchor, ok := locateSection(children, heading)
	if !ok {
		return "", &ParentNotSyncedError{
			ProjectID: projectID,
			Reason:    fmt.Sprintf("page %s has no %q section", pageID, heading),
		}
	}

	created, err := client.AppendChildren(ctx, pageID, []notion.Block{block}, anchor.appendAfter())
	if err != nil {
		return "", err
	}
	if len(created) == 0 {
		return "", errors.New("append returned no created blocks")
	}
	return created[0].ID, nil
}
