package model

import "time"

// Outreach records one outbound contact attempt against a developer.
// This core only reads outreach history (for scoring and merge); rows are
// written by the outreach-sending collaborator.
type Outreach struct {
	ID          string    `json:"id"`
	DeveloperID string    `json:"developer_id"`
	ProjectID   *string   `json:"project_id,omitempty"`
	Channel     string    `json:"channel"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// IngestRunStatus is the lifecycle state of an ingestion or enrichment run.
type IngestRunStatus string

const (
	IngestRunRunning   IngestRunStatus = "running"
	IngestRunCompleted IngestRunStatus = "completed"
	IngestRunFailed    IngestRunStatus = "failed"
)

// IngestRun is one logged pass of a source ingestion or enrichment batch.
type IngestRun struct {
	ID             string          `json:"id"`
	Source         string          `json:"source"`
	Status         IngestRunStatus `json:"status"`
	RecordsFound   int             `json:"records_found"`
	RecordsNew     int             `json:"records_new"`
	RecordsUpdated int             `json:"records_updated"`
	ErrorMessage   *string         `json:"error_message,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}
