package mirror

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/a13xperi/kaa-notion-backend-sub005/domain"
	"github.com/a13xperi/kaa-notion-backend-sub005/errors"
)

// SchedulerConfig tunes the dispatch loop.
type SchedulerConfig struct {
	MaxConcurrent   int           // jobs processed concurrently
	BaseDelay       time.Duration // first retry backoff; doubles per attempt
	MaxSleep        time.Duration // longest the loop parks without waking
	Retention       time.Duration // completed jobs older than this are purged
	CleanupInterval time.Duration // how often the janitor runs
}

// DefaultSchedulerConfig returns the standard dispatch tuning.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrent:   3,
		BaseDelay:       30 * time.Second,
		MaxSleep:        30 * time.Second,
		Retention:       7 * 24 * time.Hour,
		CleanupInterval: 12 * time.Hour,
	}
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	d := DefaultSchedulerConfig()
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = d.MaxConcurrent
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.MaxSleep <= 0 {
		c.MaxSleep = d.MaxSleep
	}
	if c.Retention <= 0 {
		c.Retention = d.Retention
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	return c
}

// Scheduler drives the queue: it dispatches due jobs to their adapters
// under a concurrency cap, applies retry outcomes, writes successful
// external refs back to the domain store, and periodically purges old
// completed jobs. Notion's rate limit is enforced one layer down, inside
// the client, so the scheduler never needs to know about request pacing.
type Scheduler struct {
	queue    *Queue
	adapters map[EntityType]Adapter
	records  domain.Store
	cfg      SchedulerConfig
	logger   *zap.SugaredLogger

	sem chan struct{}
	wg  sync.WaitGroup
}

// NewScheduler creates a scheduler over the given queue and adapter set.
// records may be nil when no write-back target exists (tests, dry runs);
// external refs then live only in the job rows.
func NewScheduler(queue *Queue, adapters map[EntityType]Adapter, records domain.Store, cfg SchedulerConfig, logger *zap.SugaredLogger) *Scheduler {
	cfg = cfg.withDefaults()
	return &Scheduler{
		queue:    queue,
		adapters: adapters,
		records:  records,
		cfg:      cfg,
		logger:   logger.Named("scheduler"),
		sem:      make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Run executes the dispatch loop until the context is cancelled, then
// waits for in-flight jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Infow("Sync scheduler started",
		"max_concurrent", s.cfg.MaxConcurrent,
		"base_delay", s.cfg.BaseDelay,
	)

	s.wg.Add(1)
	go s.janitor(ctx)

	for {
		for _, job := range s.queue.dispatchReady(s.available()) {
			s.sem <- struct{}{}
			s.wg.Add(1)
			go func(job *Job) {
				defer s.wg.Done()
				defer func() { <-s.sem }()
				s.process(ctx, job)
			}(job)
		}

		sleep := s.cfg.MaxSleep
		if d, ok := s.queue.nextWake(); ok && d < sleep {
			sleep = d
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Infow("Sync scheduler stopping, draining in-flight jobs")
			s.wg.Wait()
			return nil
		case <-s.queue.Wake():
			timer.Stop()
		case <-timer.C:
		}
	}
}

// available returns remaining concurrency slots. Only Run fills the
// semaphore, so the count cannot grow between here and dispatch.
func (s *Scheduler) available() int {
	return cap(s.sem) - len(s.sem)
}

// process runs one job attempt through its adapter and applies the outcome.
func (s *Scheduler) process(ctx context.Context, job *Job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorw("Panic in sync adapter",
				"job_id", job.ID,
				"entity_type", job.EntityType,
				"panic", r,
			)
			s.queue.handleFailure(job, errors.Newf("adapter panic: %v", r), s.cfg.BaseDelay)
		}
	}()

	adapter, ok := s.adapters[job.EntityType]
	if !ok {
		s.queue.handleFailure(job, errors.Newf("no adapter registered for entity type %s", job.EntityType), s.cfg.BaseDelay)
		return
	}

	s.refreshParentRef(ctx, job)

	result, err := adapter.Sync(ctx, job)
	if err != nil {
		var parentErr *ParentNotSyncedError
		if errors.As(err, &parentErr) {
			s.resyncParent(ctx, parentErr.ProjectID)
		}
		s.queue.handleFailure(job, err, s.cfg.BaseDelay)
		return
	}

	s.queue.complete(job, result.ExternalRef)
	s.writeBackRef(ctx, job, result.ExternalRef)
}

// resyncParent queues a corrective project sync when a child found its
// parent missing from Notion. The child's own retry then succeeds once the
// project page lands.
func (s *Scheduler) resyncParent(ctx context.Context, projectID string) {
	if s.records == nil {
		return
	}

	project, err := s.records.ProjectByID(ctx, projectID)
	if err != nil {
		s.logger.Warnw("Cannot resync parent project", "project_id", projectID, "error", err)
		return
	}

	payload, err := json.Marshal(SnapshotProject(project))
	if err != nil {
		s.logger.Warnw("Failed to encode parent project snapshot", "project_id", projectID, "error", err)
		return
	}

	if _, err := s.queue.Enqueue(EntityProject, projectID, OpUpdate, payload, PriorityProject); err != nil {
		s.logger.Warnw("Failed to enqueue parent project resync", "project_id", projectID, "error", err)
		return
	}
	s.logger.Infow("Queued corrective project sync", "project_id", projectID)
}

// refreshParentRef patches a child job's snapshot with the parent project's
// page id when the snapshot was taken before the project synced. The payload
// is otherwise immutable once enqueued; the parent ref is the one field the
// sync pipeline itself produces, so a retry must see the freshly written
// value or it fails on a stale empty ref until the budget runs out. Only the
// ref is patched, never the rest of the snapshot.
func (s *Scheduler) refreshParentRef(ctx context.Context, job *Job) {
	if s.records == nil || job.Operation == OpDelete || len(job.Payload) == 0 {
		return
	}

	switch job.EntityType {
	case EntityMilestone:
		var payload MilestonePayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil || payload.ProjectPageID != "" {
			return
		}
		if ref := s.lookupProjectPageID(ctx, payload.ProjectID); ref != "" {
			payload.ProjectPageID = ref
			s.patchPayload(job, payload)
		}
	case EntityDeliverable:
		var payload DeliverablePayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil || payload.ProjectPageID != "" {
			return
		}
		if ref := s.lookupProjectPageID(ctx, payload.ProjectID); ref != "" {
			payload.ProjectPageID = ref
			s.patchPayload(job, payload)
		}
	}
}

func (s *Scheduler) lookupProjectPageID(ctx context.Context, projectID string) string {
	if projectID == "" {
		return ""
	}
	project, err := s.records.ProjectByID(ctx, projectID)
	if err != nil {
		return ""
	}
	return project.NotionPageID
}

func (s *Scheduler) patchPayload(job *Job, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warnw("Failed to re-encode job payload", "job_id", job.ID, "error", err)
		return
	}
	job.Payload = data
	s.logger.Infow("Refreshed parent page ref on job payload",
		"job_id", job.ID,
		"entity_type", job.EntityType,
		"entity_id", job.EntityID,
	)
}

// writeBackRef persists the external ref onto the domain record after a
// successful create or update. A write-back failure loses nothing durable:
// the ref is already on the job row, and the next sync of the entity will
// carry it forward from there.
func (s *Scheduler) writeBackRef(ctx context.Context, job *Job, externalRef string) {
	if s.records == nil || externalRef == "" || job.Operation == OpDelete {
		return
	}

	var err error
	switch job.EntityType {
	case EntityProject:
		err = s.records.SetProjectPageID(ctx, job.EntityID, externalRef)
	case EntityMilestone:
		err = s.records.SetMilestoneBlockID(ctx, job.EntityID, externalRef)
	case EntityDeliverable:
		err = s.records.SetDeliverableBlockID(ctx, job.EntityID, externalRef)
	case EntityLead:
		err = s.records.SetLeadPageID(ctx, job.EntityID, externalRef)
	}
	if err != nil {
		s.logger.Warnw("Failed to write back external ref",
			"job_id", job.ID,
			"entity_type", job.EntityType,
			"entity_id", job.EntityID,
			"external_ref", externalRef,
			"error", err,
		)
	}
}

// janitor periodically purges completed jobs past the retention window.
func (s *Scheduler) janitor(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.queue.Cleanup(s.cfg.Retention)
			if err != nil {
				s.logger.Warnw("Sync job cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				s.logger.Infow("Purged old sync jobs", "removed", removed)
			}
		}
	}
}
