package store

import (
	"database/sql"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/permit-scout/internal/model"
)

// recentOutreachLimit caps how many recent outreach timestamps feed the
// scoring snapshot per developer.
const recentOutreachLimit = 5

// errNotFound is the sentinel wrapped by row lookups that match nothing.
var errNotFound = eris.New("not found")

type scannable interface {
	Scan(dest ...any) error
}

func scanProject(row scannable) (*model.Project, error) {
	var p model.Project
	var substage *string

	err := row.Scan(
		&p.ID, &p.PermitNumber, &p.PermitType, &p.Status, &p.Stage, &substage,
		&p.Financing, &p.Address, &p.Description, &p.Valuation, &p.Units, &p.Stories,
		&p.Sqft, &p.ZoneCode, &p.APN, &p.Latitude, &p.Longitude, &p.PermitDate,
		&p.IssueDate, &p.Contractor, &p.OwnerName, &p.OwnerAddress, &p.DeveloperID,
		&p.Source, &p.RawData,
		&p.AssessorUseType, &p.AssessorYearBuilt, &p.AssessorSqftMain, &p.AssessorSqftLot,
		&p.AssessorUnits, &p.AssessorLandValue, &p.AssessorImpValue, &p.AssessorEnrichedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(errNotFound, "project")
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan project")
	}
	if substage != nil {
		p.Substage = *substage
	}
	return &p, nil
}

func collectProjects(rows *sql.Rows) ([]model.Project, error) {
	var out []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "iterate projects")
}

func scanDeveloper(row scannable) (*model.Developer, error) {
	var d model.Developer

	err := row.Scan(
		&d.ID, &d.Name, &d.NormalizedName, &d.Company, &d.Email, &d.Phone,
		&d.LinkedInURL, &d.Website, &d.Address, &d.EntityType, &d.Notes, &d.CRMStage,
		&d.RegistryEntityNumber, &d.RegistryStatus, &d.RegistryDate,
		&d.RegistryAgentName, &d.RegistryAgentAddress, &d.ContactEnrichedAt,
		&d.LeadScore, &d.LeadScoreData, &d.LeadScoredAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(errNotFound, "developer")
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan developer")
	}
	return &d, nil
}

// mergedNotes concatenates secondary's notes onto primary's with an
// attribution marker naming the merged-from developer. Returns primary's
// notes unchanged when secondary has none.
func mergedNotes(primary, secondary *model.Developer) *string {
	if secondary.Notes == nil || *secondary.Notes == "" {
		return primary.Notes
	}
	attributed := fmt.Sprintf("[Merged from %s] %s", secondary.Name, *secondary.Notes)
	if primary.Notes == nil || *primary.Notes == "" {
		return &attributed
	}
	combined := *primary.Notes + "\n\n" + attributed
	return &combined
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
