package mirror

import (
	"context"
	"encoding/json"

	"github.com/a13xperi/kaa-notion-backend-sub005/errors"
	"github.com/a13xperi/kaa-notion-backend-sub005/notion"
)

// ProjectAdapter mirrors projects as pages in the Notion projects database.
// Created pages are seeded with the Milestones and Deliverables section
// headings so child adapters have anchors to append under.
type ProjectAdapter struct {
	client     *notion.Client
	databaseID string
}

func (a *ProjectAdapter) EntityType() EntityType {
	return EntityProject
}

func (a *ProjectAdapter) Sync(ctx context.Context, job *Job) (Result, error) {
	var payload ProjectPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return Result{}, errors.Wrap(err, "failed to decode project payload")
	}

	ref := payload.ExternalRef
	if ref == "" {
		ref = job.ExternalRef
	}

	switch job.Operation {
	case OpDelete:
		if ref == "" {
			// Never synced; nothing to archive remotely
			return Result{}, nil
		}
		if err := a.client.ArchivePage(ctx, ref); err != nil {
			return Result{}, err
		}
		return Result{}, nil

	case OpCreate:
		// A ref means an earlier attempt already created the page; the
		// retried create degrades to an update so no duplicate appears.
		if ref != "" {
			if _, err := a.client.UpdatePage(ctx, ref, projectProperties(payload)); err != nil {
				return Result{}, err
			}
			if err := a.ensureSections(ctx, ref); err != nil {
				return Result{}, err
			}
			return Result{ExternalRef: ref}, nil
		}

		page, err := a.client.CreatePage(ctx, a.databaseID, projectProperties(payload), projectSections())
		if err != nil {
			return Result{}, err
		}
		return Result{ExternalRef: page.ID}, nil

	case OpUpdate:
		if ref == "" {
			// Update before the create ever landed: create the page now.
			page, err := a.client.CreatePage(ctx, a.databaseID, projectProperties(payload), projectSections())
			if err != nil {
				return Result{}, err
			}
			return Result{ExternalRef: page.ID}, nil
		}
		if _, err := a.client.UpdatePage(ctx, ref, projectProperties(payload)); err != nil {
			return Result{}, err
		}
		if err := a.ensureSections(ctx, ref); err != nil {
			return Result{}, err
		}
		return Result{ExternalRef: ref}, nil

	default:
		return Result{}, errors.Newf("unsupported project operation: %s", job.Operation)
	}
}

// ensureSections re-seeds any section heading missing from an existing
// project page. Headings can disappear when someone edits the page by hand
// in Notion; without them child syncs have no anchor and keep failing, so
// the corrective project sync restores the anchors too.
func (a *ProjectAdapter) ensureSections(ctx context.Context, pageID string) error {
	children, err := a.client.ListChildren(ctx, pageID)
	if err != nil {
		return errors.Wrap(err, "failed to inspect project page sections")
	}

	var missing []notion.Block
	for _, heading := range []string{SectionMilestones, SectionDeliverables} {
		if _, ok := locateSection(children, heading); !ok {
			missing = append(missing, notion.NewHeading2(heading))
		}
	}
	if len(missing) == 0 {
		return nil
	}

	if _, err := a.client.AppendChildren(ctx, pageID, missing, ""); err != nil {
		return errors.Wrap(err, "failed to restore project page sections")
	}
	return nil
}

// projectProperties maps a project snapshot onto the Notion database schema.
func projectProperties(p ProjectPayload) notion.Properties {
	props := notion.Properties{
		"Name":   notion.TitleProperty(p.Name),
		"Status": notion.SelectProperty(statusLabel(p.Status)),
		"Tier":   notion.SelectProperty(tierDisplayName(p.Tier)),
	}
	if p.ClientName != "" {
		props["Client"] = notion.RichTextProperty(p.ClientName)
	}
	if p.StartDate != nil {
		props["Start Date"] = notion.DateProperty(*p.StartDate)
	}
	if p.TargetDate != nil {
		props["Target Date"] = notion.DateProperty(*p.TargetDate)
	}
	return props
}

// projectSections are the child blocks seeded onto every new project page.
func projectSections() []notion.Block {
	return []notion.Block{
		notion.NewHeading2(SectionMilestones),
		notion.NewHeading2(SectionDeliverables),
	}
}
