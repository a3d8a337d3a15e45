package model

import "time"

// Project is the persisted canonical record for one real-world permit,
// keyed by permit number. Re-ingestion of the same permit number updates
// the existing row; it never duplicates.
type Project struct {
	ID           string     `json:"id"`
	PermitNumber string     `json:"permit_number"`
	PermitType   string     `json:"permit_type"`
	Status       string     `json:"status"`
	Stage        Stage      `json:"pipeline_stage"`
	Substage     string     `json:"pipeline_substage,omitempty"`
	Financing    Financing  `json:"financing_type"`
	Address      string     `json:"address"`
	Description  *string    `json:"description,omitempty"`
	Valuation    *float64   `json:"valuation,omitempty"`
	Units        *int       `json:"units,omitempty"`
	Stories      *int       `json:"stories,omitempty"`
	Sqft         *int       `json:"sqft,omitempty"`
	ZoneCode     *string    `json:"zone_code,omitempty"`
	APN          *string    `json:"apn,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	PermitDate   *time.Time `json:"permit_date,omitempty"`
	IssueDate    *time.Time `json:"issue_date,omitempty"`
	Contractor   *string    `json:"contractor,omitempty"`
	OwnerName    *string    `json:"owner_name,omitempty"`
	OwnerAddress *string    `json:"owner_address,omitempty"`
	DeveloperID  *string    `json:"developer_id,omitempty"`
	Source       string     `json:"source"`
	RawData      string     `json:"raw_data,omitempty"`

	// Assessor enrichment, filled by the enrichment collaborator.
	AssessorUseType    *string    `json:"assessor_use_type,omitempty"`
	AssessorYearBuilt  *string    `json:"assessor_year_built,omitempty"`
	AssessorSqftMain   *int       `json:"assessor_sqft_main,omitempty"`
	AssessorSqftLot    *int       `json:"assessor_sqft_lot,omitempty"`
	AssessorUnits      *int       `json:"assessor_units,omitempty"`
	AssessorLandValue  *int64     `json:"assessor_land_value,omitempty"`
	AssessorImpValue   *int64     `json:"assessor_imp_value,omitempty"`
	AssessorEnrichedAt *time.Time `json:"assessor_enriched_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
