package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sells-group/permit-scout/internal/config"
	"github.com/sells-group/permit-scout/internal/fetcher"
	"github.com/sells-group/permit-scout/internal/model"
	"github.com/sells-group/permit-scout/internal/stage"
)

// submittedRecord is the raw shape of the pre-issuance applications
// dataset. Same column vocabulary as the current dataset, minus the
// issue date.
type submittedRecord struct {
	PermitNbr      string `json:"permit_nbr"`
	PermitType     string `json:"permit_type"`
	PrimaryAddress string `json:"primary_address"`
	ZipCode        string `json:"zip_code"`
	APN            string `json:"apn"`
	Zone           string `json:"zone"`
	SubmittedDate  string `json:"submitted_date"`
	StatusDesc     string `json:"status_desc"`
	StatusDate     string `json:"status_date"`
	Valuation      string `json:"valuation"`
	WorkDesc       string `json:"work_desc"`
	Lat            string `json:"lat"`
	Lon            string `json:"lon"`
}

// Submitted is the pre-issuance applications dataset. These records
// surface projects months before they show up in the issued dataset,
// which is where the early-stage leads come from.
type Submitted struct{}

func (s *Submitted) Name() string { return "submitted" }

func (s *Submitted) Fetch(ctx context.Context, f fetcher.Fetcher, cfg *config.Config, fromDate string) ([]model.Permit, error) {
	where := fmt.Sprintf("%s AND valuation::number > %.0f", typeFilter(cfg.Ingest.PermitTypes), cfg.Ingest.MinValuation)
	if fromDate != "" {
		where += fmt.Sprintf(" AND status_date >= '%s'", fromDate)
	}

	return fetchPages(ctx, f, s.Name(), cfg.Sources.SubmittedURL, where, "status_date DESC", cfg.Ingest, func(raw json.RawMessage) *model.Permit {
		return parseSubmittedRecord(raw, cfg.Sources)
	})
}

func parseSubmittedRecord(raw json.RawMessage, src config.SourcesConfig) *model.Permit {
	var r submittedRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil
	}
	if r.PermitNbr == "" {
		return nil
	}

	// Records in this dataset have not been issued, so an empty status
	// still means the application exists.
	c := stage.Classify(orUnknown(r.StatusDesc, "Submitted"))

	permitDate := parseDate(r.SubmittedDate)
	if permitDate == nil {
		permitDate = parseDate(r.StatusDate)
	}

	return &model.Permit{
		PermitNumber: r.PermitNbr,
		PermitType:   orUnknown(r.PermitType, "Unknown"),
		Status:       orUnknown(r.StatusDesc, "Submitted"),
		Stage:        c.Stage,
		Substage:     c.Substage,
		Financing:    c.Financing,
		Address:      synthesizeAddress(r.PrimaryAddress, r.ZipCode, src),
		Description:  strPtr(r.WorkDesc),
		Valuation:    parseFloat(r.Valuation),
		ZoneCode:     strPtr(r.Zone),
		APN:          strPtr(r.APN),
		Latitude:     parseFloat(r.Lat),
		Longitude:    parseFloat(r.Lon),
		PermitDate:   permitDate,
		RawData:      string(raw),
	}
}
