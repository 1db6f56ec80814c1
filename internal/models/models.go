package models

import "time"

// Ticket types written by the type classifier.
const (
	TypeIssue          = "issue"
	TypeFeatureRequest = "feature_request"
	TypeUnknown        = "unknown"
)

// Ticket is a normalized unit of feedback from any source, deduplicated on
// (Source, ExternalID). Tickets are created and updated by the sync
// collaborator; the insight pipeline only mutates Type and never deletes.
type Ticket struct {
	ID         int64  `json:"id"`
	Source     string `json:"source"`
	ExternalID string `json:"external_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	Priority   string `json:"priority"`
	Requester  string `json:"requester"`
	Submitter  string `json:"submitter"`
	Assignee   string `json:"assignee"`
	Labels     string `json:"labels"` // comma-separated
	URL        string `json:"url"`
	Project    string `json:"project"` // jira project key if any

	// Visibility metadata. Nil means unknown.
	IsInternal  *bool  `json:"is_internal,omitempty"`
	IsShared    *bool  `json:"is_shared,omitempty"`
	SharingType string `json:"sharing_type,omitempty"`

	RequesterRole  string `json:"requester_role,omitempty"`
	RequesterEmail string `json:"requester_email,omitempty"`
	SubmitterRole  string `json:"submitter_role,omitempty"`
	SubmitterEmail string `json:"submitter_email,omitempty"`

	SourceCreatedAt *time.Time `json:"source_created_at,omitempty"`
	SourceUpdatedAt *time.Time `json:"source_updated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NormalizedTicket is the record the sync collaborator delivers per item.
// Explicit typed fields instead of a dict payload so missing fields surface
// at compile time.
type NormalizedTicket struct {
	Source     string `json:"source" validate:"required"`
	ExternalID string `json:"external_id" validate:"required"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Status     string `json:"status"`
	Priority   string `json:"priority"`
	Requester  string `json:"requester"`
	Submitter  string `json:"submitter"`
	Assignee   string `json:"assignee"`
	Labels     string `json:"labels"`
	URL        string `json:"url"`
	Project    string `json:"project"`

	IsInternal  *bool  `json:"is_internal,omitempty"`
	IsShared    *bool  `json:"is_shared,omitempty"`
	SharingType string `json:"sharing_type,omitempty"`

	RequesterRole  string `json:"requester_role,omitempty"`
	RequesterEmail string `json:"requester_email,omitempty"`
	SubmitterRole  string `json:"submitter_role,omitempty"`
	SubmitterEmail string `json:"submitter_email,omitempty"`

	SourceCreatedAt *time.Time `json:"source_created_at,omitempty"`
	SourceUpdatedAt *time.Time `json:"source_updated_at,omitempty"`
}

// EmbeddingRecord holds one unit-length vector per ticket. ContentHash lets
// the optional refresh-on-change policy detect stale vectors.
type EmbeddingRecord struct {
	ID          int64     `json:"id"`
	TicketID    int64     `json:"ticket_id"`
	Model       string    `json:"model"`
	Dim         int       `json:"dim"`
	Vector      []float64 `json:"vector"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// VerticalAssignment is the persisted product-vertical tag for one ticket.
type VerticalAssignment struct {
	TicketID    int64     `json:"ticket_id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Confidence  float64   `json:"confidence"`
	Explanation []byte    `json:"explanation"` // structured JSON
	UpdatedAt   time.Time `json:"updated_at"`
}

// GoldLabel is a human-reviewed vertical for one ticket.
type GoldLabel struct {
	TicketID  int64     `json:"ticket_id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Reviewer  string    `json:"reviewer"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// ThemeRow is the persisted report artifact for one cluster of one run.
type ThemeRow struct {
	RunID string `json:"run_id"`
	Label int    `json:"label"`
	Hint  string `json:"hint"`
	Type  string `json:"type"`
	Size  int    `json:"size"`
}
