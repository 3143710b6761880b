package domain

import "context"

// Store is the ORM-style interface the sync core uses to snapshot records
// into job payloads and to write back Notion references after a successful
// sync. The application's persistence layer provides the implementation.
type Store interface {
	ProjectByID(ctx context.Context, id string) (*Project, error)
	SetProjectPageID(ctx context.Context, id, pageID string) error

	MilestoneByID(ctx context.Context, id string) (*Milestone, error)
	SetMilestoneBlockID(ctx context.Context, id, blockID string) error

	DeliverableByID(ctx context.Context, id string) (*Deliverable, error)
	SetDeliverableBlockID(ctx context.Context, id, blockID string) error

	LeadByID(ctx context.Context, id string) (*Lead, error)
	SetLeadPageID(ctx context.Context, id, pageID string) error
}
