package mirror

import (
	"testing"
	"time"

	"github.com/a13xperi/kaa-notion-backend-sub005/errors"
)

// Given: a fresh job with a 3-attempt budget and 30s base delay
// When: attempts fail one after another
// Then: backoff doubles per attempt and the third failure is terminal
func TestJob_RetryBackoffProgression(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job := NewJob(EntityProject, "proj-1", OpCreate, nil, PriorityProject, 3, now)

	cause := errors.New("notion API error 500 (internal_server_error): boom")

	// First failure: retry in 30s
	job.recordFailure(cause, 30*time.Second, now)
	if job.Status != StatusRetrying {
		t.Fatalf("after 1st failure expected retrying, got %s", job.Status)
	}
	if got, want := job.ScheduledFor, now.Add(30*time.Second); !got.Equal(want) {
		t.Errorf("1st backoff: scheduled for %v, want %v", got, want)
	}

	// Second failure: retry in 60s
	now = now.Add(time.Minute)
	job.recordFailure(cause, 30*time.Second, now)
	if job.Status != StatusRetrying {
		t.Fatalf("after 2nd failure expected retrying, got %s", job.Status)
	}
	if got, want := job.ScheduledFor, now.Add(60*time.Second); !got.Equal(want) {
		t.Errorf("2nd backoff: scheduled for %v, want %v", got, want)
	}

	// Third failure exhausts the budget
	now = now.Add(2 * time.Minute)
	job.recordFailure(cause, 30*time.Second, now)
	if job.Status != StatusFailed {
		t.Fatalf("after 3rd failure expected failed, got %s", job.Status)
	}
	if job.RetryCount != 3 {
		t.Errorf("retry count = %d, want 3", job.RetryCount)
	}
	if job.LastError == "" {
		t.Error("terminal failure must keep the last error text")
	}
}

func TestBackoffDelay_DoublesPerAttempt(t *testing.T) {
	base := 30 * time.Second
	cases := []struct {
		retryCount int
		want       time.Duration
	}{
		{1, 30 * time.Second},
		{2, 60 * time.Second},
		{3, 120 * time.Second},
		{4, 240 * time.Second},
	}
	for _, tc := range cases {
		if got := backoffDelay(base, tc.retryCount); got != tc.want {
			t.Errorf("backoffDelay(%v, %d) = %v, want %v", base, tc.retryCount, got, tc.want)
		}
	}
}

// Given: a job that created a Notion page and then failed on a later step
// When: the failure is recorded
// Then: the external ref survives so the retried create stays idempotent
func TestJob_FailureKeepsExternalRef(t *testing.T) {
	now := time.Now()
	job := NewJob(EntityProject, "proj-1", OpCreate, nil, PriorityProject, 3, now)
	job.ExternalRef = "page-abc"

	job.recordFailure(errors.New("write-back failed"), time.Second, now)

	if job.ExternalRef != "page-abc" {
		t.Errorf("external ref cleared on failure: %q", job.ExternalRef)
	}
}

func TestJob_CompleteClearsError(t *testing.T) {
	now := time.Now()
	job := NewJob(EntityLead, "lead-1", OpCreate, nil, PriorityLead, 3, now)
	job.recordFailure(errors.New("transient"), time.Second, now)

	job.complete("page-xyz", now.Add(time.Minute))

	if job.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", job.Status)
	}
	if job.LastError != "" {
		t.Errorf("last error not cleared: %q", job.LastError)
	}
	if job.ExternalRef != "page-xyz" {
		t.Errorf("external ref = %q, want page-xyz", job.ExternalRef)
	}
}

func TestJob_ResetForRetry(t *testing.T) {
	now := time.Now()
	job := NewJob(EntityMilestone, "ms-1", OpUpdate, nil, PriorityMilestone, 1, now)
	job.recordFailure(errors.New("hard failure"), time.Second, now)
	if job.Status != StatusFailed {
		t.Fatalf("setup: expected failed, got %s", job.Status)
	}

	later := now.Add(time.Hour)
	job.resetForRetry(later)

	if job.Status != StatusPending {
		t.Errorf("status = %s, want pending", job.Status)
	}
	if job.RetryCount != 0 {
		t.Errorf("retry count = %d, want 0", job.RetryCount)
	}
	if job.LastError != "" {
		t.Errorf("last error not cleared: %q", job.LastError)
	}
	if !job.ScheduledFor.Equal(later) {
		t.Errorf("scheduled for %v, want %v", job.ScheduledFor, later)
	}
}

func TestDefaultPriority_ProjectsOutrankChildren(t *testing.T) {
	if DefaultPriority(EntityProject) >= DefaultPriority(EntityMilestone) {
		t.Error("projects must dispatch before milestones")
	}
	if DefaultPriority(EntityMilestone) >= DefaultPriority(EntityDeliverable) {
		t.Error("milestones must dispatch before deliverables")
	}
}
