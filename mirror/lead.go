package mirror

import (
	"context"
	"encoding/json"

	"github.com/a13xperi/kaa-notion-backend-sub005/errors"
	"github.com/a13xperi/kaa-notion-backend-sub005/notion"
)

// LeadAdapter mirrors intake-form leads as pages in the Notion leads
// database, where the sales pipeline is tracked.
type LeadAdapter struct {
	client     *notion.Client
	databaseID string
}

func (a *LeadAdapter) EntityType() EntityType {
	return EntityLead
}

func (a *LeadAdapter) Sync(ctx context.Context, job *Job) (Result, error) {
	var payload LeadPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return Result{}, errors.Wrap(err, "failed to decode lead payload")
	}

	ref := payload.ExternalRef
	if ref == "" {
		ref = job.ExternalRef
	}

	switch job.Operation {
	case OpDelete:
		if ref == "" {
			return Result{}, nil
		}
		if err := a.client.ArchivePage(ctx, ref); err != nil {
			return Result{}, err
		}
		return Result{}, nil

	case OpCreate, OpUpdate:
		if ref != "" {
			if _, err := a.client.UpdatePage(ctx, ref, leadProperties(payload)); err != nil {
				return Result{}, err
			}
			return Result{ExternalRef: ref}, nil
		}

		page, err := a.client.CreatePage(ctx, a.databaseID, leadProperties(payload), leadDetails(payload))
		if err != nil {
			return Result{}, err
		}
		return Result{ExternalRef: page.ID}, nil

	default:
		return Result{}, errors.Newf("unsupported lead operation: %s", job.Operation)
	}
}

// leadProperties maps a lead snapshot onto the Notion database schema.
func leadProperties(p LeadPayload) notion.Properties {
	props := notion.Properties{
		"Name":   notion.TitleProperty(p.Name),
		"Status": notion.SelectProperty(statusLabel(p.Status)),
	}
	if p.Email != "" {
		props["Email"] = notion.EmailProperty(p.Email)
	}
	if p.Phone != "" {
		props["Phone"] = notion.PhoneNumberProperty(p.Phone)
	}
	if p.RecommendedTier > 0 {
		props["Recommended Tier"] = notion.SelectProperty(tierDisplayName(p.RecommendedTier))
	}
	return props
}

// leadDetails seeds the intake message onto the lead's page body so the
// sales team sees the original inquiry without leaving Notion.
func leadDetails(p LeadPayload) []notion.Block {
	if p.Message == "" {
		return nil
	}
	return []notion.Block{{
		Type:      "paragraph",
		Paragraph: &notion.RichTextBlock{RichText: notion.Text(p.Message)},
	}}
}
