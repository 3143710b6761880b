// Package domain defines the application records mirrored into Notion and
// the storage interface the sync core reads them through. The relational
// system of record itself lives behind this interface; the sync core never
// assumes a particular engine.
package domain

import "time"

// Project is a landscape-design engagement. Its Notion mirror is a
// top-level page in the projects database.
type Project struct {
	ID           string
	Name         string
	ClientName   string
	Status       string // planning, design, installation, complete, on_hold
	Tier         int    // service tier 1..3
	StartDate    *time.Time
	TargetDate   *time.Time
	NotionPageID string // external ref; empty until first successful sync
}

// Milestone is a dated checkpoint within a project. Mirrored as a to_do
// block under the project page's "Milestones" section.
type Milestone struct {
	ID            string
	ProjectID     string
	Title         string
	Status        string // pending, in_progress, complete
	DueDate       *time.Time
	NotionBlockID string
}

// Deliverable is a file or document handed to the client. Mirrored as a
// bulleted list item under the project page's "Deliverables" section.
type Deliverable struct {
	ID            string
	ProjectID     string
	Title         string
	FileURL       string
	Status        string // draft, in_review, delivered
	NotionBlockID string
}

// Lead is an intake-form submission. Mirrored as a top-level page in the
// leads database.
type Lead struct {
	ID              string
	Name            string
	Email           string
	Phone           string
	Message         string
	RecommendedTier int
	Status          string // new, contacted, qualified, converted, closed
	NotionPageID    string
}
