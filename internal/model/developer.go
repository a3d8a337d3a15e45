package model

import "time"

// CRMStage tracks a developer through the outreach funnel. It is
// independent of any project's pipeline stage.
type CRMStage string

const (
	CRMStageNew       CRMStage = "new"
	CRMStageContacted CRMStage = "contacted"
	CRMStageEngaged   CRMStage = "engaged"
	CRMStageQualified CRMStage = "qualified"
	CRMStageClosed    CRMStage = "closed"
)

// Developer is a persisted prospect entity: the real-world owner or
// developer behind one or more projects, and the target of outreach.
type Developer struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	NormalizedName string   `json:"normalized_name"`
	Company        *string  `json:"company,omitempty"`
	Email          *string  `json:"email,omitempty"`
	Phone          *string  `json:"phone,omitempty"`
	LinkedInURL    *string  `json:"linkedin_url,omitempty"`
	Website        *string  `json:"website,omitempty"`
	Address        *string  `json:"address,omitempty"`
	EntityType     *string  `json:"entity_type,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
	CRMStage       CRMStage `json:"crm_stage"`

	// State business registry enrichment, filled by the registry collaborator.
	RegistryEntityNumber *string    `json:"registry_entity_number,omitempty"`
	RegistryStatus       *string    `json:"registry_status,omitempty"`
	RegistryDate         *string    `json:"registry_date,omitempty"`
	RegistryAgentName    *string    `json:"registry_agent_name,omitempty"`
	RegistryAgentAddress *string    `json:"registry_agent_address,omitempty"`
	ContactEnrichedAt    *time.Time `json:"contact_enriched_at,omitempty"`

	LeadScore     *int       `json:"lead_score,omitempty"`
	LeadScoreData *string    `json:"lead_score_data,omitempty"`
	LeadScoredAt  *time.Time `json:"lead_scored_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeveloperSummary is a developer plus the related-record counts an
// operator uses to judge which record of a duplicate pair is more
// complete.
type DeveloperSummary struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	NormalizedName string  `json:"normalized_name"`
	Email          *string `json:"email,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Website        *string `json:"website,omitempty"`
	Address        *string `json:"address,omitempty"`
	EntityType     *string `json:"entity_type,omitempty"`
	LeadScore      *int    `json:"lead_score,omitempty"`
	ProjectCount   int     `json:"project_count"`
	OutreachCount  int     `json:"outreach_count"`
}

// Tag is a free-form label on a developer. Identity is (developer, tag
// text); the merge executor unions tags under that identity.
type Tag struct {
	ID          string    `json:"id"`
	DeveloperID string    `json:"developer_id"`
	Tag         string    `json:"tag"`
	CreatedAt   time.Time `json:"created_at"`
}
