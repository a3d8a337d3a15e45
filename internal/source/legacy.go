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

// legacyRecord is the raw shape of the older permits dataset. Unlike the
// current dataset it carries contractor and applicant identity, but no
// status field and no geocoordinates, and the address arrives in
// fragments.
type legacyRecord struct {
	PCISPermit            string `json:"pcis_permit"`
	PermitType            string `json:"permit_type"`
	IssueDate             string `json:"issue_date"`
	AddressStart          string `json:"address_start"`
	StreetName            string `json:"street_name"`
	StreetSuffix          string `json:"street_suffix"`
	ZipCode               string `json:"zip_code"`
	WorkDescription       string `json:"work_description"`
	Valuation             string `json:"valuation"`
	ContractorsBusiness   string `json:"contractors_business_name"`
	ContractorAddress     string `json:"contractor_address"`
	ContractorCity        string `json:"contractor_city"`
	PrincipalFirstName    string `json:"principal_first_name"`
	PrincipalLastName     string `json:"principal_last_name"`
	ApplicantFirstName    string `json:"applicant_first_name"`
	ApplicantLastName     string `json:"applicant_last_name"`
	ApplicantBusinessName string `json:"applicant_business_name"`
	Zone                  string `json:"zone"`
}

// Legacy is the older permits dataset, kept for its contractor and
// applicant columns. It is the only source that yields owner names, so
// it seeds developer identity even though its permit data is stale.
type Legacy struct{}

func (s *Legacy) Name() string { return "legacy" }

func (s *Legacy) Fetch(ctx context.Context, f fetcher.Fetcher, cfg *config.Config, fromDate string) ([]model.Permit, error) {
	// This dataset's valuation column is numeric, no cast needed.
	where := fmt.Sprintf("valuation > %.0f AND %s", cfg.Ingest.MinValuation, typeFilter(cfg.Ingest.PermitTypes))
	if fromDate != "" {
		where += fmt.Sprintf(" AND issue_date >= '%s'", fromDate)
	}

	return fetchPages(ctx, f, s.Name(), cfg.Sources.LegacyURL, where, "issue_date DESC", cfg.Ingest, func(raw json.RawMessage) *model.Permit {
		return parseLegacyRecord(raw, cfg.Sources)
	})
}

func parseLegacyRecord(raw json.RawMessage, src config.SourcesConfig) *model.Permit {
	var r legacyRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil
	}
	if r.PCISPermit == "" {
		return nil
	}

	// No status column here. A populated issue date is the only signal
	// that the permit cleared plan check.
	status := ""
	if r.IssueDate != "" {
		status = "Issued"
	}
	c := stage.Classify(status)

	street := joinNonEmpty(" ", r.AddressStart, r.StreetName, r.StreetSuffix)

	var ownerAddress *string
	if r.ContractorAddress != "" {
		addr := r.ContractorAddress
		if r.ContractorCity != "" {
			addr += ", " + r.ContractorCity
		}
		ownerAddress = &addr
	}

	issueDate := parseDate(r.IssueDate)

	return &model.Permit{
		PermitNumber: r.PCISPermit,
		PermitType:   orUnknown(r.PermitType, "Unknown"),
		Status:       orUnknown(status, "Unknown"),
		Stage:        c.Stage,
		Substage:     c.Substage,
		Financing:    c.Financing,
		Address:      synthesizeAddress(street, r.ZipCode, src),
		Description:  strPtr(r.WorkDescription),
		Valuation:    parseFloat(r.Valuation),
		ZoneCode:     strPtr(r.Zone),
		PermitDate:   issueDate,
		IssueDate:    issueDate,
		Contractor:   strPtr(r.ContractorsBusiness),
		OwnerName:    legacyOwnerName(r),
		OwnerAddress: ownerAddress,
		RawData:      string(raw),
	}
}

// legacyOwnerName picks the best available identity: applicant business
// name, then applicant personal name, then the license principal.
func legacyOwnerName(r legacyRecord) *string {
	if name := strPtr(r.ApplicantBusinessName); name != nil {
		return name
	}
	if name := strPtr(joinNonEmpty(" ", r.ApplicantFirstName, r.ApplicantLastName)); name != nil {
		return name
	}
	return strPtr(joinNonEmpty(" ", r.PrincipalFirstName, r.PrincipalLastName))
}
