package mirror

import (
	"fmt"
	"strings"
	"time"

	"github.com/a13xperi/kaa-notion-backend-sub005/domain"
)

// ProjectPayload is the snapshot a project sync job carries.
type ProjectPayload struct {
	Name        string     `json:"name"`
	ClientName  string     `json:"client_name,omitempty"`
	Status      string     `json:"status"`
	Tier        int        `json:"tier"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
	ExternalRef string     `json:"external_ref,omitempty"`
}

// MilestonePayload is the snapshot a milestone sync job carries.
// ProjectPageID is the parent's Notion page at snapshot time; empty means
// the parent has not been synced yet and the adapter must defer.
type MilestonePayload struct {
	Title         string     `json:"title"`
	Status        string     `json:"status"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	ProjectID     string     `json:"project_id"`
	ProjectPageID string     `json:"project_page_id,omitempty"`
	ExternalRef   string     `json:"external_ref,omitempty"`
}

// DeliverablePayload is the snapshot a deliverable sync job carries.
type DeliverablePayload struct {
	Title         string `json:"title"`
	FileURL       string `json:"file_url,omitempty"`
	Status        string `json:"status"`
	ProjectID     string `json:"project_id"`
	ProjectPageID string `json:"project_page_id,omitempty"`
	ExternalRef   string `json:"external_ref,omitempty"`
}

// LeadPayload is the snapshot a lead sync job carries.
type LeadPayload struct {
	Name            string `json:"name"`
	Email           string `json:"email,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Message         string `json:"message,omitempty"`
	RecommendedTier int    `json:"recommended_tier,omitempty"`
	Status          string `json:"status"`
	ExternalRef     string `json:"external_ref,omitempty"`
}

// SnapshotProject captures a project for a sync job payload.
func SnapshotProject(p *domain.Project) ProjectPayload {
	return ProjectPayload{
		Name:        p.Name,
		ClientName:  p.ClientName,
		Status:      p.Status,
		Tier:        p.Tier,
		StartDate:   p.StartDate,
		TargetDate:  p.TargetDate,
		ExternalRef: p.NotionPageID,
	}
}

// SnapshotMilestone captures a milestone for a sync job payload. The parent
// project supplies the Notion page the block attaches under.
func SnapshotMilestone(m *domain.Milestone, project *domain.Project) MilestonePayload {
	payload := MilestonePayload{
		Title:       m.Title,
		Status:      m.Status,
		DueDate:     m.DueDate,
		ProjectID:   m.ProjectID,
		ExternalRef: m.NotionBlockID,
	}
	if project != nil {
		payload.ProjectPageID = project.NotionPageID
	}
	return payload
}

// SnapshotDeliverable captures a deliverable for a sync job payload.
func SnapshotDeliverable(d *domain.Deliverable, project *domain.Project) DeliverablePayload {
	payload := DeliverablePayload{
		Title:       d.Title,
		FileURL:     d.FileURL,
		Status:      d.Status,
		ProjectID:   d.ProjectID,
		ExternalRef: d.NotionBlockID,
	}
	if project != nil {
		payload.ProjectPageID = project.NotionPageID
	}
	return payload
}

// SnapshotLead captures a lead for a sync job payload.
func SnapshotLead(l *domain.Lead) LeadPayload {
	return LeadPayload{
		Name:            l.Name,
		Email:           l.Email,
		Phone:           l.Phone,
		Message:         l.Message,
		RecommendedTier: l.RecommendedTier,
		Status:          l.Status,
		ExternalRef:     l.NotionPageID,
	}
}

// tierDisplayName maps a service tier number to its Notion display name.
func tierDisplayName(tier int) string {
	switch tier {
	case 1:
		return "Starter"
	case 2:
		return "Signature"
	case 3:
		return "Premier"
	default:
		return fmt.Sprintf("Tier %d", tier)
	}
}

// statusLabel turns a snake_case domain status into its Notion select
// label, e.g. "in_progress" becomes "In Progress".
func statusLabel(status string) string {
	words := strings.Split(status, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
