// Package mirror implements the Notion synchronization queue: a durable,
// rate-limited, priority-ordered job queue that reconciles application-side
// mutations with their Notion counterparts under retry-with-backoff.
package mirror

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EntityType identifies which domain record and sync adapter a job applies to.
type EntityType string

const (
	EntityProject     EntityType = "project"
	EntityMilestone   EntityType = "milestone"
	EntityDeliverable EntityType = "deliverable"
	EntityLead        EntityType = "lead"
)

// Operation is the mutation kind being mirrored.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Status is a job's lifecycle state.
//
// pending -> processing -> {completed | retrying | failed}
// retrying re-enters scheduling once its backoff delay elapses.
// completed and failed are terminal; terminal jobs leave the active set.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusRetrying   Status = "retrying"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Default dispatch priorities per entity type. Lower is served first.
// Projects outrank their children so a project's page tends to exist
// before milestone and deliverable blocks try to attach to it.
const (
	PriorityProject     = 1
	PriorityMilestone   = 2
	PriorityDeliverable = 3
	PriorityLead        = 3
)

// DefaultPriority returns the standard priority for an entity type.
func DefaultPriority(entityType EntityType) int {
	switch entityType {
	case EntityProject:
		return PriorityProject
	case EntityMilestone:
		return PriorityMilestone
	case EntityLead:
		return PriorityLead
	default:
		return PriorityDeliverable
	}
}

// Job is one unit of pending synchronization work. The payload is a
// snapshot taken at enqueue time so adapters never re-read the domain store
// mid-flight and race concurrent domain mutations.
type Job struct {
	ID           string          `json:"id"`
	EntityType   EntityType      `json:"entity_type"`
	EntityID     string          `json:"entity_id"`
	Operation    Operation       `json:"operation"`
	Status       Status          `json:"status"`
	Priority     int             `json:"priority"`
	RetryCount   int             `json:"retry_count"`
	MaxRetries   int             `json:"max_retries"`
	LastError    string          `json:"last_error,omitempty"`
	ExternalRef  string          `json:"external_ref,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	ScheduledFor time.Time       `json:"scheduled_for"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	// heapIndex tracks the job's slot in the queue's waiting heap.
	// Meaningless outside the queue's mutex.
	heapIndex int
}

// NewJob creates a pending job scheduled for immediate dispatch.
func NewJob(entityType EntityType, entityID string, operation Operation, payload json.RawMessage, priority, maxRetries int, now time.Time) *Job {
	return &Job{
		ID:           uuid.NewString(),
		EntityType:   entityType,
		EntityID:     entityID,
		Operation:    operation,
		Status:       StatusPending,
		Priority:     priority,
		MaxRetries:   maxRetries,
		Payload:      payload,
		ScheduledFor: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Active reports whether the job still occupies the in-memory active set.
func (j *Job) Active() bool {
	switch j.Status {
	case StatusPending, StatusProcessing, StatusRetrying:
		return true
	default:
		return false
	}
}

// markProcessing transitions the job to processing for this attempt.
func (j *Job) markProcessing(now time.Time) {
	j.Status = StatusProcessing
	j.UpdatedAt = now
}

// complete transitions the job to its terminal success state. A non-empty
// ref records the remote identity created or confirmed by this attempt.
func (j *Job) complete(externalRef string, now time.Time) {
	j.Status = StatusCompleted
	if externalRef != "" {
		j.ExternalRef = externalRef
	}
	j.LastError = ""
	j.UpdatedAt = now
}

// recordFailure accounts one failed attempt. Below the retry budget the job
// moves to retrying with scheduledFor = now + baseDelay * 2^(retryCount-1);
// once the budget is exhausted it goes terminally failed. The external ref
// is never cleared on failure: it is the last known remote identity and
// keeps retried creates idempotent.
func (j *Job) recordFailure(cause error, baseDelay time.Duration, now time.Time) {
	j.RetryCount++
	j.LastError = cause.Error()
	j.UpdatedAt = now

	if j.RetryCount >= j.MaxRetries {
		j.Status = StatusFailed
		return
	}

	j.Status = StatusRetrying
	j.ScheduledFor = now.Add(backoffDelay(baseDelay, j.RetryCount))
}

// backoffDelay returns baseDelay * 2^(retryCount-1).
func backoffDelay(baseDelay time.Duration, retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	return baseDelay << (retryCount - 1)
}

// resetForRetry is the manual operator path: a failed job re-enters
// scheduling with a fresh attempt budget and no stale error text.
func (j *Job) resetForRetry(now time.Time) {
	j.Status = StatusPending
	j.RetryCount = 0
	j.LastError = ""
	j.ScheduledFor = now
	j.UpdatedAt = now
}
