package mirror

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/a13xperi/kaa-notion-backend-sub005/domain"
	"github.com/a13xperi/kaa-notion-backend-sub005/errors"
	"github.com/a13xperi/kaa-notion-backend-sub005/logger"
)

// fakeAdapter runs a canned sync func for one entity type.
type fakeAdapter struct {
	entityType EntityType
	sync       func(ctx context.Context, job *Job) (Result, error)
}

func (f *fakeAdapter) EntityType() EntityType { return f.entityType }

func (f *fakeAdapter) Sync(ctx context.Context, job *Job) (Result, error) {
	return f.sync(ctx, job)
}

// fakeRecords is an in-memory domain store that records ref write-backs.
type fakeRecords struct {
	projects     map[string]*domain.Project
	milestones   map[string]*domain.Milestone
	projectRefs  map[string]string
	milestoneRef map[string]string
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		projects:     make(map[string]*domain.Project),
		milestones:   make(map[string]*domain.Milestone),
		projectRefs:  make(map[string]string),
		milestoneRef: make(map[string]string),
	}
}

func (f *fakeRecords) ProjectByID(_ context.Context, id string) (*domain.Project, error) {
	project, ok := f.projects[id]
	if !ok {
		return nil, errors.Newf("project %s not found", id)
	}
	return project, nil
}

func (f *fakeRecords) SetProjectPageID(_ context.Context, id, pageID string) error {
	f.projectRefs[id] = pageID
	if project, ok := f.projects[id]; ok {
		project.NotionPageID = pageID
	}
	return nil
}

func (f *fakeRecords) MilestoneByID(_ context.Context, id string) (*domain.Milestone, error) {
	milestone, ok := f.milestones[id]
	if !ok {
		return nil, errors.Newf("milestone %s not found", id)
	}
	return milestone, nil
}

func (f *fakeRecords) SetMilestoneBlockID(_ context.Context, id, blockID string) error {
	f.milestoneRef[id] = blockID
	return nil
}

func (f *fakeRecords) DeliverableByID(_ context.Context, id string) (*domain.Deliverable, error) {
	return nil, errors.Newf("deliverable %s not found", id)
}

func (f *fakeRecords) SetDeliverableBlockID(_ context.Context, id, blockID string) error {
	return nil
}

func (f *fakeRecords) LeadByID(_ context.Context, id string) (*domain.Lead, error) {
	return nil, errors.Newf("lead %s not found", id)
}

func (f *fakeRecords) SetLeadPageID(_ context.Context, id, pageID string) error {
	return nil
}

func newTestScheduler(t *testing.T, adapters map[EntityType]Adapter, records domain.Store) (*Scheduler, *Queue, *mockClock) {
	t.Helper()
	queue, clock := newTestQueue(t)
	scheduler := NewScheduler(queue, adapters, records, SchedulerConfig{
		MaxConcurrent: 3,
		BaseDelay:     30 * time.Second,
	}, logger.Nop())
	return scheduler, queue, clock
}

// Given: a project create whose adapter succeeds
// When: the scheduler processes it
// Then: the job completes and the page id is written back to the record
func TestScheduler_SuccessWritesBackExternalRef(t *testing.T) {
	records := newFakeRecords()
	adapters := map[EntityType]Adapter{
		EntityProject: &fakeAdapter{
			entityType: EntityProject,
			sync: func(ctx context.Context, job *Job) (Result, error) {
				return Result{ExternalRef: "page-123"}, nil
			},
		},
	}
	scheduler, queue, _ := newTestScheduler(t, adapters, records)

	jobID, _ := queue.Enqueue(EntityProject, "proj-1", OpCreate, []byte(`{}`), 0)
	batch := queue.dispatchReady(1)
	if len(batch) != 1 {
		t.Fatal("expected dispatch")
	}

	scheduler.process(context.Background(), batch[0])

	job, err := queue.GetJob(jobID)
	if err != nil {
		t.Fatalf("get job failed: %v", err)
	}
	if job.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", job.Status)
	}
	if job.ExternalRef != "page-123" {
		t.Errorf("job external ref = %q, want page-123", job.ExternalRef)
	}
	if records.projectRefs["proj-1"] != "page-123" {
		t.Errorf("project record ref = %q, want page-123", records.projectRefs["proj-1"])
	}
}

func TestScheduler_FailureSchedulesRetry(t *testing.T) {
	adapters := map[EntityType]Adapter{
		EntityLead: &fakeAdapter{
			entityType: EntityLead,
			sync: func(ctx context.Context, job *Job) (Result, error) {
				return Result{}, errors.New("notion API error 500 (internal_server_error): flaky")
			},
		},
	}
	scheduler, queue, _ := newTestScheduler(t, adapters, newFakeRecords())

	jobID, _ := queue.Enqueue(EntityLead, "lead-1", OpCreate, []byte(`{}`), 0)
	batch := queue.dispatchReady(1)
	scheduler.process(context.Background(), batch[0])

	job, _ := queue.GetJob(jobID)
	if job.Status != StatusRetrying {
		t.Fatalf("status = %s, want retrying", job.Status)
	}
	if job.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", job.RetryCount)
	}
	if !strings.Contains(job.LastError, "flaky") {
		t.Errorf("last error %q should carry the cause", job.LastError)
	}
}

// Given: a milestone whose project has no Notion page yet
// When: its adapter reports the parent unsynced
// Then: a corrective project sync is queued and the milestone backs off
func TestScheduler_ParentNotSyncedQueuesCorrectiveSync(t *testing.T) {
	records := newFakeRecords()
	records.projects["proj-1"] = &domain.Project{
		ID:     "proj-1",
		Name:   "Courtyard Revamp",
		Status: "design",
		Tier:   2,
	}

	adapters := map[EntityType]Adapter{
		EntityMilestone: &fakeAdapter{
			entityType: EntityMilestone,
			sync: func(ctx context.Context, job *Job) (Result, error) {
				return Result{}, &ParentNotSyncedError{ProjectID: "proj-1", Reason: "no Notion page id on project"}
			},
		},
	}
	scheduler, queue, _ := newTestScheduler(t, adapters, records)

	jobID, _ := queue.Enqueue(EntityMilestone, "ms-1", OpCreate, []byte(`{"project_id":"proj-1"}`), 0)
	batch := queue.dispatchReady(1)
	scheduler.process(context.Background(), batch[0])

	// Milestone job retries later
	job, _ := queue.GetJob(jobID)
	if job.Status != StatusRetrying {
		t.Fatalf("milestone status = %s, want retrying", job.Status)
	}

	// A corrective project sync was enqueued
	projectJobs, err := queue.TasksForEntity(EntityProject, "proj-1")
	if err != nil {
		t.Fatalf("list project jobs failed: %v", err)
	}
	if len(projectJobs) != 1 {
		t.Fatalf("expected 1 corrective project job, got %d", len(projectJobs))
	}
	if projectJobs[0].Operation != OpUpdate {
		t.Errorf("corrective job operation = %s, want update", projectJobs[0].Operation)
	}
	if projectJobs[0].Priority != PriorityProject {
		t.Errorf("corrective job priority = %d, want %d", projectJobs[0].Priority, PriorityProject)
	}
}

// Given: a milestone enqueued before its project ever synced, so its
// snapshot has no parent page id
// When: the corrective project sync lands and writes the page id back
// Then: the milestone's retry sees the fresh page id and completes
func TestScheduler_ChildHealsAfterParentResync(t *testing.T) {
	records := newFakeRecords()
	records.projects["proj-1"] = &domain.Project{
		ID:     "proj-1",
		Name:   "Courtyard Revamp",
		Status: "design",
		Tier:   2,
	}

	adapters := map[EntityType]Adapter{
		EntityProject: &fakeAdapter{
			entityType: EntityProject,
			sync: func(ctx context.Context, job *Job) (Result, error) {
				return Result{ExternalRef: "page-1"}, nil
			},
		},
		EntityMilestone: &fakeAdapter{
			entityType: EntityMilestone,
			sync: func(ctx context.Context, job *Job) (Result, error) {
				var payload MilestonePayload
				if err := json.Unmarshal(job.Payload, &payload); err != nil {
					t.Fatalf("decode milestone payload: %v", err)
				}
				if payload.ProjectPageID == "" {
					return Result{}, &ParentNotSyncedError{ProjectID: payload.ProjectID, Reason: "no Notion page id on project"}
				}
				return Result{ExternalRef: "block-1"}, nil
			},
		},
	}
	scheduler, queue, clock := newTestScheduler(t, adapters, records)
	ctx := context.Background()

	snapshot, err := json.Marshal(MilestonePayload{
		Title:     "Excavation",
		Status:    "pending",
		ProjectID: "proj-1",
	})
	if err != nil {
		t.Fatalf("encode milestone snapshot: %v", err)
	}
	milestoneID, _ := queue.Enqueue(EntityMilestone, "ms-1", OpCreate, snapshot, 0)

	// First attempt: parent missing, corrective project sync queued
	batch := queue.dispatchReady(1)
	if len(batch) != 1 || batch[0].ID != milestoneID {
		t.Fatalf("expected the milestone to dispatch first")
	}
	scheduler.process(ctx, batch[0])

	// The corrective project sync runs and writes the page id back
	batch = queue.dispatchReady(1)
	if len(batch) != 1 || batch[0].EntityType != EntityProject {
		t.Fatalf("expected the corrective project sync to dispatch, got %v", batch)
	}
	scheduler.process(ctx, batch[0])
	if records.projects["proj-1"].NotionPageID != "page-1" {
		t.Fatalf("project record should carry the page id after write-back")
	}

	// The milestone retry picks up the fresh page id and completes
	clock.Advance(time.Minute)
	batch = queue.dispatchReady(1)
	if len(batch) != 1 || batch[0].ID != milestoneID {
		t.Fatalf("expected the milestone retry to dispatch, got %v", batch)
	}
	scheduler.process(ctx, batch[0])

	job, err := queue.GetJob(milestoneID)
	if err != nil {
		t.Fatalf("get milestone job failed: %v", err)
	}
	if job.Status != StatusCompleted {
		t.Fatalf("milestone status = %s, want completed after parent healed", job.Status)
	}
	if job.ExternalRef != "block-1" {
		t.Errorf("milestone ref = %q, want block-1", job.ExternalRef)
	}
	if records.milestoneRef["ms-1"] != "block-1" {
		t.Errorf("milestone record ref = %q, want block-1", records.milestoneRef["ms-1"])
	}
}

func TestScheduler_PanicIsIsolatedToTheJob(t *testing.T) {
	adapters := map[EntityType]Adapter{
		EntityProject: &fakeAdapter{
			entityType: EntityProject,
			sync: func(ctx context.Context, job *Job) (Result, error) {
				panic("adapter bug")
			},
		},
	}
	scheduler, queue, _ := newTestScheduler(t, adapters, newFakeRecords())

	jobID, _ := queue.Enqueue(EntityProject, "proj-1", OpCreate, []byte(`{}`), 0)
	batch := queue.dispatchReady(1)
	scheduler.process(context.Background(), batch[0])

	job, _ := queue.GetJob(jobID)
	if job.Status != StatusRetrying {
		t.Fatalf("status = %s, want retrying after recovered panic", job.Status)
	}
	if !strings.Contains(job.LastError, "panic") {
		t.Errorf("last error %q should record the panic", job.LastError)
	}
}

func TestScheduler_MissingAdapterFailsTheJob(t *testing.T) {
	scheduler, queue, _ := newTestScheduler(t, map[EntityType]Adapter{}, newFakeRecords())

	jobID, _ := queue.Enqueue(EntityProject, "proj-1", OpCreate, []byte(`{}`), 0)
	batch := queue.dispatchReady(1)
	scheduler.process(context.Background(), batch[0])

	job, _ := queue.GetJob(jobID)
	if job.Status != StatusRetrying {
		t.Fatalf("status = %s, want retrying", job.Status)
	}
	if !strings.Contains(job.LastError, "no adapter") {
		t.Errorf("last error %q should name the missing adapter", job.LastError)
	}
}

func TestScheduler_DeleteSkipsWriteBack(t *testing.T) {
	records := newFakeRecords()
	adapters := map[EntityType]Adapter{
		EntityProject: &fakeAdapter{
			entityType: EntityProject,
			sync: func(ctx context.Context, job *Job) (Result, error) {
				return Result{}, nil
			},
		},
	}
	scheduler, queue, _ := newTestScheduler(t, adapters, records)

	queue.Enqueue(EntityProject, "proj-1", OpDelete, []byte(`{"external_ref":"page-123"}`), 0)
	batch := queue.dispatchReady(1)
	scheduler.process(context.Background(), batch[0])

	if _, ok := records.projectRefs["proj-1"]; ok {
		t.Error("delete must not write a ref back to the record")
	}
}
