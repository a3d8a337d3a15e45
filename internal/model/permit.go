package model

import "time"

// Permit is the source-agnostic representation of one external permit
// observation. It is produced fresh on every ingestion run and never
// persisted directly; the reconciler folds it into a Project.
type Permit struct {
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
	Source       string     `json:"source"`
	RawData      string     `json:"raw_data"`
}
