package store

import (
	"context"
	"time"

	"github.com/sells-group/permit-scout/internal/model"
	"github.com/sells-group/permit-scout/internal/scorer"
)

// ProjectFilter specifies criteria for listing projects.
type ProjectFilter struct {
	Stage       model.Stage `json:"stage,omitempty"`
	Source      string      `json:"source,omitempty"`
	DeveloperID string      `json:"developer_id,omitempty"`
	Limit       int         `json:"limit,omitempty"`
	Offset      int         `json:"offset,omitempty"`
}

// UpsertResult reports whether a reconciliation write created a new
// project or updated an existing one.
type UpsertResult struct {
	ProjectID string
	Created   bool
}

// AssessorData carries one parcel lookup result back onto a project.
type AssessorData struct {
	UseType   *string
	YearBuilt *string
	SqftMain  *int
	SqftLot   *int
	Units     *int
	LandValue *int64
	ImpValue  *int64
}

// RegistryData carries one business-registry lookup result back onto a
// developer.
type RegistryData struct {
	EntityNumber *string
	Status       *string
	Date         *string
	AgentName    *string
	AgentAddress *string
}

// Store defines the persistence interface for the lead pipeline. Both
// backends implement identical semantics; SQLite is the default for
// single-operator use, Postgres for shared deployments.
type Store interface {
	// Projects
	UpsertProject(ctx context.Context, permit model.Permit) (*UpsertResult, error)
	GetProject(ctx context.Context, id string) (*model.Project, error)
	GetProjectByPermitNumber(ctx context.Context, permitNumber string) (*model.Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]model.Project, error)
	ListUnlinkedProjects(ctx context.Context) ([]model.Project, error)
	LinkProject(ctx context.Context, projectID, developerID string) error
	ListProjectsForAssessor(ctx context.Context) ([]model.Project, error)
	UpdateProjectAssessor(ctx context.Context, projectID string, data AssessorData) error

	// Developers
	CreateDeveloper(ctx context.Context, dev model.Developer) (*model.Developer, error)
	GetDeveloper(ctx context.Context, id string) (*model.Developer, error)
	GetDeveloperByNormalizedName(ctx context.Context, normalized string) (*model.Developer, error)
	ListDeveloperSummaries(ctx context.Context) ([]model.DeveloperSummary, error)
	ListDevelopersForRegistry(ctx context.Context) ([]model.Developer, error)
	UpdateDeveloperRegistry(ctx context.Context, developerID string, data RegistryData) error
	MergeDevelopers(ctx context.Context, primaryID, secondaryID string) error

	// Scoring
	ListDevelopersForScoring(ctx context.Context) ([]scorer.DeveloperInput, error)
	UpdateLeadScore(ctx context.Context, developerID string, total int, breakdownJSON string, at time.Time) error

	// Outreach (read-only here; rows are written by the outreach sender)
	ListOutreach(ctx context.Context, developerID string, limit int) ([]model.Outreach, error)

	// Raw payload archive
	ArchiveRaw(ctx context.Context, source string, permits []model.Permit) (int64, error)

	// Ingest run log
	StartIngestRun(ctx context.Context, source string) (*model.IngestRun, error)
	CompleteIngestRun(ctx context.Context, runID string, found, created, updated int) error
	FailIngestRun(ctx context.Context, runID string, errMsg string) error
	ListIngestRuns(ctx context.Context, limit int) ([]model.IngestRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
