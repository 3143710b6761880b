package mirror

import (
	"container/heap"
	"database/sql"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/a13xperi/kaa-notion-backend-sub005/errors"
)

// QueueConfig configures job defaults applied at enqueue time.
type QueueConfig struct {
	MaxRetries int // attempts before a job goes terminally failed
}

// DefaultQueueConfig returns the standard retry budget.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{MaxRetries: 3}
}

// entityKey identifies the domain record a job targets, for coalescing and
// same-entity serialization.
type entityKey struct {
	entityType EntityType
	entityID   string
}

func keyOf(job *Job) entityKey {
	return entityKey{entityType: job.EntityType, entityID: job.EntityID}
}

// Queue holds the active sync job set. It is an owned instance: callers
// construct one, hand it to a Scheduler and to trigger Hooks, and multiple
// independent queues can coexist (tests run them in isolation).
//
// Every transition is mirrored to the Store so a restart can rebuild the
// active set via Initialize.
type Queue struct {
	mu     sync.Mutex
	store  *Store
	cfg    QueueConfig
	logger *zap.SugaredLogger
	now    func() time.Time

	jobs            map[string]*Job         // active set by job id
	waiting         waitingHeap             // active jobs not currently processing
	pendingByEntity map[entityKey]string    // supersede target per entity
	inFlight        map[entityKey]struct{}  // entities with a processing job

	wake chan struct{} // signals the scheduler that work state changed
}

// NewQueue creates a queue backed by the given database.
func NewQueue(database *sql.DB, cfg QueueConfig, logger *zap.SugaredLogger) *Queue {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultQueueConfig().MaxRetries
	}
	return &Queue{
		store:           NewStore(database),
		cfg:             cfg,
		logger:          logger.Named("queue"),
		now:             time.Now,
		jobs:            make(map[string]*Job),
		pendingByEntity: make(map[entityKey]string),
		inFlight:        make(map[entityKey]struct{}),
		wake:            make(chan struct{}, 1),
	}
}

// Store exposes the underlying job store for read-only administrative use.
func (q *Queue) Store() *Store {
	return q.store
}

// Wake returns the channel the scheduler parks on between dispatches.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}

// Enqueue records a sync job for the given mutation and returns its id.
// Priority <= 0 selects the default priority for the entity type.
//
// Same-entity coalescing: when a non-processing active job already exists
// for (entityType, entityID), the new mutation supersedes it in place
// rather than queueing a duplicate. The latest payload wins, the priority
// is the more urgent of the two, and operations merge by rule: delete
// always wins; a pending create absorbs updates and stays a create
// (the remote object still does not exist); otherwise the newer operation
// wins. If the entity's job is mid-flight a fresh job is queued behind it;
// the dispatcher will not start it until the in-flight attempt finishes.
func (q *Queue) Enqueue(entityType EntityType, entityID string, operation Operation, payload []byte, priority int) (string, error) {
	if priority <= 0 {
		priority = DefaultPriority(entityType)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	key := entityKey{entityType: entityType, entityID: entityID}

	if existingID, ok := q.pendingByEntity[key]; ok {
		if existing, ok := q.jobs[existingID]; ok && existing.Status != StatusProcessing {
			existing.Operation = mergeOperations(existing.Operation, operation)
			existing.Payload = payload
			if priority < existing.Priority {
				existing.Priority = priority
			}
			existing.UpdatedAt = now
			if existing.heapIndex >= 0 {
				heap.Fix(&q.waiting, existing.heapIndex)
			}

			if err := q.store.UpdateJob(existing); err != nil {
				return "", errors.Wrap(err, "failed to persist superseded job")
			}
			q.logger.Debugw("Coalesced sync job",
				"job_id", existing.ID,
				"entity_type", entityType,
				"entity_id", entityID,
				"operation", existing.Operation,
			)
			q.signalWake()
			return existing.ID, nil
		}
	}

	job := NewJob(entityType, entityID, operation, payload, priority, q.cfg.MaxRetries, now)
	if err := q.store.CreateJob(job); err != nil {
		return "", errors.Wrap(err, "failed to enqueue sync job")
	}

	q.jobs[job.ID] = job
	heap.Push(&q.waiting, job)
	q.pendingByEntity[key] = job.ID

	q.logger.Debugw("Enqueued sync job",
		"job_id", job.ID,
		"entity_type", entityType,
		"entity_id", entityID,
		"operation", operation,
		"priority", priority,
	)
	q.signalWake()
	return job.ID, nil
}

// mergeOperations resolves the operation of a superseded job.
func mergeOperations(existing, incoming Operation) Operation {
	switch {
	case incoming == OpDelete:
		return OpDelete
	case existing == OpCreate:
		return OpCreate
	default:
		return incoming
	}
}

// Initialize reloads pending and retrying jobs from the store into the
// in-memory active set; processing rows orphaned by a crash are reset to
// pending for another attempt. Returns the number of jobs recovered.
func (q *Queue) Initialize() (int, error) {
	jobs, err := q.store.LoadResumable()
	if err != nil {
		return 0, errors.Wrap(err, "failed to load resumable jobs")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	recovered := 0
	for _, job := range jobs {
		if _, exists := q.jobs[job.ID]; exists {
			continue
		}
		if job.Status == StatusProcessing {
			// Orphaned by an ungraceful shutdown mid-attempt
			job.Status = StatusPending
			job.UpdatedAt = now
			if err := q.store.UpdateJob(job); err != nil {
				q.logger.Warnw("Failed to reset orphaned job", "job_id", job.ID, "error", err)
				continue
			}
			q.logger.Infow("Recovered orphaned sync job", "job_id", job.ID, "entity_type", job.EntityType)
		}

		q.jobs[job.ID] = job
		heap.Push(&q.waiting, job)
		key := keyOf(job)
		if _, taken := q.pendingByEntity[key]; !taken {
			q.pendingByEntity[key] = job.ID
		}
		recovered++
	}

	if recovered > 0 {
		q.signalWake()
	}
	return recovered, nil
}

// Cancel removes a job that has not started processing. Processing jobs
// run to completion; cancelling one returns false without side effects.
func (q *Queue) Cancel(jobID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return false, errors.Wrapf(errors.ErrJobNotFound, "id %s", jobID)
	}
	if job.Status == StatusProcessing {
		return false, nil
	}

	if job.heapIndex >= 0 {
		heap.Remove(&q.waiting, job.heapIndex)
	}
	delete(q.jobs, jobID)
	key := keyOf(job)
	if q.pendingByEntity[key] == jobID {
		delete(q.pendingByEntity, key)
	}

	if err := q.store.DeleteJob(jobID); err != nil {
		q.logger.Warnw("Failed to delete cancelled job", "job_id", jobID, "error", err)
	}
	q.logger.Infow("Cancelled sync job", "job_id", jobID, "entity_type", job.EntityType, "entity_id", job.EntityID)
	return true, nil
}

// Retry is the manual operator path: a terminally failed job re-enters
// scheduling with retryCount reset and lastError cleared.
func (q *Queue) Retry(jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.GetJob(jobID)
	if err != nil {
		return err
	}
	if job.Status != StatusFailed {
		return errors.Newf("job %s is not failed (status: %s)", jobID, job.Status)
	}

	job.resetForRetry(q.now())
	if err := q.store.UpdateJob(job); err != nil {
		return errors.Wrap(err, "failed to persist retried job")
	}

	q.jobs[job.ID] = job
	heap.Push(&q.waiting, job)
	key := keyOf(job)
	if _, taken := q.pendingByEntity[key]; !taken {
		q.pendingByEntity[key] = job.ID
	}

	q.logger.Infow("Manually retrying sync job", "job_id", jobID, "entity_type", job.EntityType, "entity_id", job.EntityID)
	q.signalWake()
	return nil
}

// GetJob retrieves a job by id.
func (q *Queue) GetJob(jobID string) (*Job, error) {
	return q.store.GetJob(jobID)
}

// TasksForEntity returns every job recorded for a domain record.
func (q *Queue) TasksForEntity(entityType EntityType, entityID string) ([]*Job, error) {
	return q.store.ListByEntity(entityType, entityID)
}

// Cleanup removes completed jobs older than the retention window.
// Failed jobs are kept until an operator inspects or retries them.
func (q *Queue) Cleanup(olderThan time.Duration) (int, error) {
	q.mu.Lock()
	cutoff := q.now().Add(-olderThan)
	q.mu.Unlock()
	return q.store.CleanupOldJobs(cutoff)
}

// Stats reports queue depth and counts by lifecycle state.
type Stats struct {
	Pending     int `json:"pending"`
	Processing  int `json:"processing"`
	Retrying    int `json:"retrying"`
	Completed   int `json:"completed"`
	Failed      int `json:"failed"`
	Total       int `json:"total"`
	ActiveDepth int `json:"active_depth"` // in-memory active set size
}

// GetStats returns queue statistics for the operational dashboard.
func (q *Queue) GetStats() (*Stats, error) {
	counts, err := q.store.CountByStatus()
	if err != nil {
		return nil, err
	}

	q.mu.Lock()
	depth := len(q.jobs)
	q.mu.Unlock()

	stats := &Stats{
		Pending:     counts[StatusPending],
		Processing:  counts[StatusProcessing],
		Retrying:    counts[StatusRetrying],
		Completed:   counts[StatusCompleted],
		Failed:      counts[StatusFailed],
		ActiveDepth: depth,
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

// dispatchReady selects up to max due jobs in (priority, createdAt) order,
// marks them processing, and returns them for concurrent execution. Jobs
// whose entity already has an attempt in flight stay queued: same-entity
// work is serialized so two attempts never race on one remote object.
func (q *Queue) dispatchReady(max int) []*Job {
	if max <= 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()

	var due []*Job
	for q.waiting.Len() > 0 && !q.waiting.peek().ScheduledFor.After(now) {
		due = append(due, heap.Pop(&q.waiting).(*Job))
	}
	if len(due) == 0 {
		return nil
	}

	sortJobsForDispatch(due)

	var batch, deferred []*Job
	for _, job := range due {
		key := keyOf(job)
		_, busy := q.inFlight[key]
		if len(batch) >= max || busy {
			deferred = append(deferred, job)
			continue
		}

		job.markProcessing(now)
		q.inFlight[key] = struct{}{}
		if q.pendingByEntity[key] == job.ID {
			delete(q.pendingByEntity, key)
		}
		if err := q.store.UpdateJob(job); err != nil {
			q.logger.Warnw("Failed to persist dispatch transition", "job_id", job.ID, "error", err)
		}
		batch = append(batch, job)
	}

	for _, job := range deferred {
		heap.Push(&q.waiting, job)
	}
	return batch
}

// sortJobsForDispatch orders due jobs by urgency: priority first, then
// enqueue order.
func sortJobsForDispatch(jobs []*Job) {
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].Priority != jobs[j].Priority {
			return jobs[i].Priority < jobs[j].Priority
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
}

// minWake floors the scheduler's sleep when the head of the heap is already
// due. A due job still waiting means dispatch deferred it (its entity is in
// flight, or the concurrency cap is full); a zero timer here would spin the
// scheduler loop until the blocking attempt returns. Completion and failure
// both signal Wake(), so the floor only bounds the polling fallback.
const minWake = 250 * time.Millisecond

// nextWake returns the duration until the earliest scheduled job, and
// whether any job is waiting at all.
func (q *Queue) nextWake() (time.Duration, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	next := q.waiting.peek()
	if next == nil {
		return 0, false
	}
	d := next.ScheduledFor.Sub(q.now())
	if d < minWake {
		d = minWake
	}
	return d, true
}

// complete records a successful attempt and retires the job from the
// active set. Persistence failures here degrade audit fidelity, not queue
// correctness, so they are logged and swallowed.
func (q *Queue) complete(job *Job, externalRef string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job.complete(externalRef, q.now())
	if err := q.store.UpdateJob(job); err != nil {
		q.logger.Errorw("Failed to persist completed job", "job_id", job.ID, "error", err)
	}

	delete(q.jobs, job.ID)
	delete(q.inFlight, keyOf(job))

	q.logger.Infow("Sync job completed",
		"job_id", job.ID,
		"entity_type", job.EntityType,
		"entity_id", job.EntityID,
		"operation", job.Operation,
		"external_ref", job.ExternalRef,
	)
	q.signalWake()
}

// handleFailure accounts a failed attempt: backoff and requeue while the
// retry budget lasts, terminal failure once it is spent. The error text is
// always captured into lastError; failures are never silently swallowed.
// An attempt that was superseded mid-flight is absorbed into its successor
// instead of requeued, so one entity never holds two queued jobs.
func (q *Queue) handleFailure(job *Job, cause error, baseDelay time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job.recordFailure(cause, baseDelay, q.now())

	key := keyOf(job)
	delete(q.inFlight, key)

	if job.Status == StatusRetrying && q.absorbIntoSuccessor(job, key) {
		q.signalWake()
		return
	}

	if err := q.store.UpdateJob(job); err != nil {
		q.logger.Errorw("Failed to persist failed job", "job_id", job.ID, "error", err)
	}

	if job.Status == StatusFailed {
		delete(q.jobs, job.ID)
		q.logger.Errorw("Sync job terminally failed",
			"job_id", job.ID,
			"entity_type", job.EntityType,
			"entity_id", job.EntityID,
			"operation", job.Operation,
			"retry_count", job.RetryCount,
			"error", job.LastError,
		)
	} else {
		heap.Push(&q.waiting, job)
		if _, taken := q.pendingByEntity[key]; !taken {
			q.pendingByEntity[key] = job.ID
		}
		q.logger.Warnw("Sync job attempt failed, retry scheduled",
			"job_id", job.ID,
			"entity_type", job.EntityType,
			"entity_id", job.EntityID,
			"retry_count", job.RetryCount,
			"max_retries", job.MaxRetries,
			"scheduled_for", job.ScheduledFor,
			"error", job.LastError,
		)
	}
	q.signalWake()
}

// absorbIntoSuccessor folds a failed attempt into the job that superseded it
// while it was in flight. The successor already carries the newest snapshot,
// so its payload and schedule win; the failed job's operation and urgency
// fold in (a superseded create must still create) and its row is removed.
// Returns false when no queued successor exists.
// REQUIRES: q.mu held.
func (q *Queue) absorbIntoSuccessor(job *Job, key entityKey) bool {
	successorID, ok := q.pendingByEntity[key]
	if !ok || successorID == job.ID {
		return false
	}
	successor, ok := q.jobs[successorID]
	if !ok || successor.Status == StatusProcessing {
		return false
	}

	successor.Operation = mergeOperations(job.Operation, successor.Operation)
	if job.Priority < successor.Priority {
		successor.Priority = job.Priority
	}
	successor.UpdatedAt = q.now()
	if successor.heapIndex >= 0 {
		heap.Fix(&q.waiting, successor.heapIndex)
	}
	if err := q.store.UpdateJob(successor); err != nil {
		q.logger.Errorw("Failed to persist successor after absorbing failed attempt",
			"job_id", successor.ID, "error", err)
	}

	delete(q.jobs, job.ID)
	if err := q.store.DeleteJob(job.ID); err != nil {
		q.logger.Warnw("Failed to delete absorbed job", "job_id", job.ID, "error", err)
	}

	q.logger.Infow("Failed attempt absorbed by superseding job",
		"job_id", job.ID,
		"successor_id", successor.ID,
		"entity_type", job.EntityType,
		"entity_id", job.EntityID,
		"error", job.LastError,
	)
	return true
}

// signalWake nudges the scheduler without blocking.
// REQUIRES: q.mu held (callers are queue methods).
func (q *Queue) signalWake() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
