package mirror

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/a13xperi/kaa-notion-backend-sub005/domain"
	"github.com/a13xperi/kaa-notion-backend-sub005/errors"
	"github.com/a13xperi/kaa-notion-backend-sub005/notion"
)

// Hooks is the trigger surface the application calls after committing a
// domain mutation. Each hook snapshots the record and enqueues a sync job;
// the mutation itself never waits on Notion. When the Notion client is not
// configured every hook is a silent no-op, so environments without a token
// run the full application with sync disabled.
type Hooks struct {
	queue   *Queue
	records domain.Store
	client  *notion.Client
	logger  *zap.SugaredLogger
}

// NewHooks creates the trigger surface.
func NewHooks(queue *Queue, records domain.Store, client *notion.Client, logger *zap.SugaredLogger) *Hooks {
	return &Hooks{
		queue:   queue,
		records: records,
		client:  client,
		logger:  logger.Named("hooks"),
	}
}

func (h *Hooks) enabled() bool {
	return h.client.Configured()
}

func (h *Hooks) enqueue(entityType EntityType, entityID string, op Operation, payload interface{}) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrapf(err, "failed to encode %s payload", entityType)
	}
	return h.queue.Enqueue(entityType, entityID, op, encoded, DefaultPriority(entityType))
}

// ProjectCreated queues the initial sync for a new project.
func (h *Hooks) ProjectCreated(ctx context.Context, projectID string) (string, error) {
	return h.projectMutation(ctx, projectID, OpCreate)
}

// ProjectUpdated queues a sync for a changed project.
func (h *Hooks) ProjectUpdated(ctx context.Context, projectID string) (string, error) {
	return h.projectMutation(ctx, projectID, OpUpdate)
}

func (h *Hooks) projectMutation(ctx context.Context, projectID string, op Operation) (string, error) {
	if !h.enabled() {
		return "", nil
	}
	project, err := h.records.ProjectByID(ctx, projectID)
	if err != nil {
		return "", errors.Wrapf(err, "failed to snapshot project %s", projectID)
	}
	return h.enqueue(EntityProject, projectID, op, SnapshotProject(project))
}

// ProjectDeleted queues archival of a deleted project's page. The record is
// already gone from the system of record, so the caller supplies the Notion
// page id it held.
func (h *Hooks) ProjectDeleted(ctx context.Context, projectID, notionPageID string) (string, error) {
	if !h.enabled() {
		return "", nil
	}
	return h.enqueue(EntityProject, projectID, OpDelete, ProjectPayload{ExternalRef: notionPageID})
}

// MilestoneCreated queues the initial sync for a new milestone.
func (h *Hooks) MilestoneCreated(ctx context.Context, milestoneID string) (string, error) {
	return h.milestoneMutation(ctx, milestoneID, OpCreate)
}

// MilestoneUpdated queues a sync for a changed milestone.
func (h *Hooks) MilestoneUpdated(ctx context.Context, milestoneID string) (string, error) {
	return h.milestoneMutation(ctx, milestoneID, OpUpdate)
}

func (h *Hooks) milestoneMutation(ctx context.Context, milestoneID string, op Operation) (string, error) {
	if !h.enabled() {
		return "", nil
	}
	milestone, err := h.records.MilestoneByID(ctx, milestoneID)
	if err != nil {
		return "", errors.Wrapf(err, "failed to snapshot milestone %s", milestoneID)
	}
	return h.enqueue(EntityMilestone, milestoneID, op, SnapshotMilestone(milestone, h.parentProject(ctx, milestone.ProjectID)))
}

// MilestoneDeleted queues archival of a deleted milestone's block.
func (h *Hooks) MilestoneDeleted(ctx context.Context, milestoneID, notionBlockID string) (string, error) {
	if !h.enabled() {
		return "", nil
	}
	return h.enqueue(EntityMilestone, milestoneID, OpDelete, MilestonePayload{ExternalRef: notionBlockID})
}

// DeliverableCreated queues the initial sync for a new deliverable.
func (h *Hooks) DeliverableCreated(ctx context.Context, deliverableID string) (string, error) {
	return h.deliverableMutation(ctx, deliverableID, OpCreate)
}

// DeliverableUpdated queues a sync for a changed deliverable.
func (h *Hooks) DeliverableUpdated(ctx context.Context, deliverableID string) (string, error) {
	return h.deliverableMutation(ctx, deliverableID, OpUpdate)
}

func (h *Hooks) deliverableMutation(ctx context.Context, deliverableID string, op Operation) (string, error) {
	if !h.enabled() {
		return "", nil
	}
	deliverable, err := h.records.DeliverableByID(ctx, deliverableID)
	if err != nil {
		return "", errors.Wrapf(err, "failed to snapshot deliverable %s", deliverableID)
	}
	return h.enqueue(EntityDeliverable, deliverableID, op, SnapshotDeliverable(deliverable, h.parentProject(ctx, deliverable.ProjectID)))
}

// DeliverableDeleted queues archival of a deleted deliverable's block.
func (h *Hooks) DeliverableDeleted(ctx context.Context, deliverableID, notionBlockID string) (string, error) {
	if !h.enabled() {
		return "", nil
	}
	return h.enqueue(EntityDeliverable, deliverableID, OpDelete, DeliverablePayload{ExternalRef: notionBlockID})
}

// LeadCreated queues the initial sync for a new lead.
func (h *Hooks) LeadCreated(ctx context.Context, leadID string) (string, error) {
	return h.leadMutation(ctx, leadID, OpCreate)
}

// LeadUpdated queues a sync for a changed lead.
func (h *Hooks) LeadUpdated(ctx context.Context, leadID string) (string, error) {
	return h.leadMutation(ctx, leadID, OpUpdate)
}

func (h *Hooks) leadMutation(ctx context.Context, leadID string, op Operation) (string, error) {
	if !h.enabled() {
		return "", nil
	}
	lead, err := h.records.LeadByID(ctx, leadID)
	if err != nil {
		return "", errors.Wrapf(err, "failed to snapshot lead %s", leadID)
	}
	return h.enqueue(EntityLead, leadID, op, SnapshotLead(lead))
}

// LeadDeleted queues archival of a deleted lead's page.
func (h *Hooks) LeadDeleted(ctx context.Context, leadID, notionPageID string) (string, error) {
	if !h.enabled() {
		return "", nil
	}
	return h.enqueue(EntityLead, leadID, OpDelete, LeadPayload{ExternalRef: notionPageID})
}

// parentProject reads a child's project for its Notion page id. A read
// failure degrades to an unparented snapshot: the adapter reports the
// parent unsynced and the scheduler issues a corrective project sync.
func (h *Hooks) parentProject(ctx context.Context, projectID string) *domain.Project {
	project, err := h.records.ProjectByID(ctx, projectID)
	if err != nil {
		h.logger.Warnw("Failed to read parent project for snapshot", "project_id", projectID, "error", err)
		return nil
	}
	return project
}
