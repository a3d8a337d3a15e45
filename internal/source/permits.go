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

// permitsRecord is the raw shape of the current building-permits dataset.
// It carries status text, valuation, and geocoordinates, but no
// contractor or applicant names.
type permitsRecord struct {
	PermitNbr      string `json:"permit_nbr"`
	PermitType     string `json:"permit_type"`
	PrimaryAddress string `json:"primary_address"`
	ZipCode        string `json:"zip_code"`
	APN            string `json:"apn"`
	Zone           string `json:"zone"`
	SubmittedDate  string `json:"submitted_date"`
	IssueDate      string `json:"issue_date"`
	StatusDesc     string `json:"status_desc"`
	StatusDate     string `json:"status_date"`
	Valuation      string `json:"valuation"`
	WorkDesc       string `json:"work_desc"`
	Lat            string `json:"lat"`
	Lon            string `json:"lon"`
}

// Permits is the current issued-permits dataset, the primary source.
type Permits struct{}

func (s *Permits) Name() string { return "permits" }

func (s *Permits) Fetch(ctx context.Context, f fetcher.Fetcher, cfg *config.Config, fromDate string) ([]model.Permit, error) {
	where := fmt.Sprintf("%s AND valuation::number > %.0f", typeFilter(cfg.Ingest.PermitTypes), cfg.Ingest.MinValuation)
	if fromDate != "" {
		where += fmt.Sprintf(" AND status_date >= '%s'", fromDate)
	}

	return fetchPages(ctx, f, s.Name(), cfg.Sources.PermitsURL, where, "status_date DESC", cfg.Ingest, func(raw json.RawMessage) *model.Permit {
		return parsePermitsRecord(raw, cfg.Sources)
	})
}

func parsePermitsRecord(raw json.RawMessage, src config.SourcesConfig) *model.Permit {
	var r permitsRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil
	}
	if r.PermitNbr == "" {
		return nil
	}

	c := stage.Classify(r.StatusDesc)

	permitDate := parseDate(r.StatusDate)
	if permitDate == nil {
		permitDate = parseDate(r.SubmittedDate)
	}

	return &model.Permit{
		PermitNumber: r.PermitNbr,
		PermitType:   orUnknown(r.PermitType, "Unknown"),
		Status:       orUnknown(r.StatusDesc, "Unknown"),
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
		IssueDate:    parseDate(r.IssueDate),
		RawData:      string(raw),
	}
}

// synthesizeAddress builds a display address from whatever fragments the
// source provides, falling back to a sentinel rather than failing.
func synthesizeAddress(street, zip string, src config.SourcesConfig) string {
	if street == "" {
		return "Unknown Address"
	}
	addr := fmt.Sprintf("%s, %s, %s", street, src.City, src.Region)
	if zip != "" {
		addr += " " + zip
	}
	return addr
}
