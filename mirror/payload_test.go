package mirror

import (
	"testing"

	"github.com/a13xperi/kaa-notion-backend-sub005/domain"
)

func TestStatusLabel(t *testing.T) {
	cases := map[string]string{
		"planning":     "Planning",
		"in_progress":  "In Progress",
		"on_hold":      "On Hold",
		"design":       "Design",
		"installation": "Installation",
	}
	for input, want := range cases {
		if got := statusLabel(input); got != want {
			t.Errorf("statusLabel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTierDisplayName(t *testing.T) {
	cases := map[int]string{
		1: "Starter",
		2: "Signature",
		3: "Premier",
		9: "Tier 9",
	}
	for tier, want := range cases {
		if got := tierDisplayName(tier); got != want {
			t.Errorf("tierDisplayName(%d) = %q, want %q", tier, got, want)
		}
	}
}

func TestSnapshotMilestone_WithoutParentLeavesPageEmpty(t *testing.T) {
	milestone := &domain.Milestone{ID: "ms-1", ProjectID: "proj-1", Title: "Dig", Status: "pending"}

	payload := SnapshotMilestone(milestone, nil)
	if payload.ProjectPageID != "" {
		t.Errorf("page id = %q, want empty when parent unknown", payload.ProjectPageID)
	}

	payload = SnapshotMilestone(milestone, &domain.Project{ID: "proj-1", NotionPageID: "page-1"})
	if payload.ProjectPageID != "page-1" {
		t.Errorf("page id = %q, want page-1", payload.ProjectPageID)
	}
}
