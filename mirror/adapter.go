package mirror

import (
	"context"
	"fmt"

	"github.com/a13xperi/kaa-notion-backend-sub005/notion"
)

// Section headings laid down on every project page at creation. Milestone
// and deliverable blocks are appended under their section.
const (
	SectionMilestones   = "Milestones"
	SectionDeliverables = "Deliverables"
)

// Result is the outcome of a successful sync attempt.
type Result struct {
	// ExternalRef is the Notion page or block id the entity now maps to.
	// Empty for deletes.
	ExternalRef string
}

// Adapter syncs one entity type to its Notion representation. Adapters are
// stateless: everything an attempt needs rides in the job payload.
type Adapter interface {
	EntityType() EntityType
	Sync(ctx context.Context, job *Job) (Result, error)
}

// ParentNotSyncedError signals that a child entity cannot sync because its
// project has no Notion page yet (or the page lacks the expected section).
// The scheduler reacts by enqueueing a corrective project sync; the child
// job itself retries with backoff and finds the page on a later attempt.
type ParentNotSyncedError struct {
	ProjectID string
	Reason    string
}

func (e *ParentNotSyncedError) Error() string {
	return fmt.Sprintf("project %s not synced to Notion: %s", e.ProjectID, e.Reason)
}

// AdapterConfig carries the Notion database ids the page-level adapters
// create pages in.
type AdapterConfig struct {
	ProjectsDatabaseID string
	LeadsDatabaseID    string
}

// NewAdapterSet builds the standard adapter per entity type.
func NewAdapterSet(client *notion.Client, cfg AdapterConfig) map[EntityType]Adapter {
	return map[EntityType]Adapter{
		EntityProject:     &ProjectAdapter{client: client, databaseID: cfg.ProjectsDatabaseID},
		EntityMilestone:   &MilestoneAdapter{client: client},
		EntityDeliverable: &DeliverableAdapter{client: client},
		EntityLead:        &LeadAdapter{client: client, databaseID: cfg.LeadsDatabaseID},
	}
}

// sectionAnchor locates a labeled section on a project page: the heading
// block and the last item currently under it.
type sectionAnchor struct {
	headingID   string
	lastChildID string
}

// appendAfter returns the block id new items should be appended after so
// they land at the end of the section rather than the end of the page.
func (a sectionAnchor) appendAfter() string {
	if a.lastChildID != "" {
		return a.lastChildID
	}
	return a.headingID
}

// locateSection finds the heading with the given text among a page's
// children and the extent of its section (everything up to the next
// heading). Returns false when the heading is absent.
func locateSection(blocks []notion.Block, heading string) (sectionAnchor, bool) {
	var anchor sectionAnchor
	inSection := false
	for _, block := range blocks {
		if block.IsHeading() {
			if inSection {
				break
			}
			if block.PlainText() == heading {
				anchor.headingID = block.ID
				inSection = true
			}
			continue
		}
		if inSection {
			anchor.lastChildID = block.ID
		}
	}
	return anchor, anchor.headingID != ""
}
