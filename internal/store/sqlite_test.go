package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/permit-scout/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func strp(s string) *string { return &s }

func f64p(f float64) *float64 { return &f }

func testPermit(number string) model.Permit {
	return model.Permit{
		PermitNumber: number,
		PermitType:   "Bldg-New",
		Status:       "Permit Issued",
		Stage:        model.StagePermitted,
		Substage:     model.SubstageIssued,
		Financing:    model.FinancingConstruction,
		Address:      "123 MAIN ST, Los Angeles, CA 90012",
		Valuation:    f64p(2_500_000),
		Source:       "permits",
		RawData:      `{"permit_nbr":"` + number + `"}`,
	}
}

func TestUpsertProjectCreateThenUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.UpsertProject(ctx, testPermit("P-100"))
	require.NoError(t, err)
	assert.True(t, res.Created)

	// Same permit number again: update, never a duplicate.
	res2, err := s.UpsertProject(ctx, testPermit("P-100"))
	require.NoError(t, err)
	assert.False(t, res2.Created)
	assert.Equal(t, res.ProjectID, res2.ProjectID)

	projects, err := s.ListProjects(ctx, ProjectFilter{})
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestUpsertProjectNonDestructiveMerge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Richer source first: owner and contractor populated.
	rich := testPermit("P-200")
	rich.OwnerName = strp("WILSHIRE PARTNERS LLC")
	rich.Contractor = strp("BUILDCO INC")
	rich.Status = "Submitted"
	rich.Stage = model.StageEntitlement
	rich.Substage = model.SubstageSubmitted
	rich.Financing = model.FinancingPredevelopment
	_, err := s.UpsertProject(ctx, rich)
	require.NoError(t, err)

	// Later, sparser source: no owner, but a more recent status.
	sparse := testPermit("P-200")
	sparse.OwnerName = nil
	sparse.Contractor = nil
	sparse.Valuation = nil
	_, err = s.UpsertProject(ctx, sparse)
	require.NoError(t, err)

	p, err := s.GetProjectByPermitNumber(ctx, "P-200")
	require.NoError(t, err)
	require.NotNil(t, p)

	// Status-derived fields always take the latest classification.
	assert.Equal(t, "Permit Issued", p.Status)
	assert.Equal(t, model.StagePermitted, p.Stage)
	assert.Equal(t, model.SubstageIssued, p.Substage)

	// Previously recorded detail survives incoming nulls.
	require.NotNil(t, p.OwnerName)
	assert.Equal(t, "WILSHIRE PARTNERS LLC", *p.OwnerName)
	require.NotNil(t, p.Contractor)
	require.NotNil(t, p.Valuation)
	assert.Equal(t, 2_500_000.0, *p.Valuation)
}

func TestUpsertProjectIncomingValueWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := testPermit("P-210")
	first.Valuation = f64p(1_000_000)
	_, err := s.UpsertProject(ctx, first)
	require.NoError(t, err)

	second := testPermit("P-210")
	second.Valuation = f64p(1_750_000)
	_, err = s.UpsertProject(ctx, second)
	require.NoError(t, err)

	p, err := s.GetProjectByPermitNumber(ctx, "P-210")
	require.NoError(t, err)
	require.NotNil(t, p.Valuation)
	assert.Equal(t, 1_750_000.0, *p.Valuation)
}

func TestGetProjectByPermitNumberMissing(t *testing.T) {
	s := newTestStore(t)

	p, err := s.GetProjectByPermitNumber(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestListProjectsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	issued := testPermit("P-300")
	_, err := s.UpsertProject(ctx, issued)
	require.NoError(t, err)

	submitted := testPermit("P-301")
	submitted.Stage = model.StageEntitlement
	submitted.Source = "submitted"
	_, err = s.UpsertProject(ctx, submitted)
	require.NoError(t, err)

	byStage, err := s.ListProjects(ctx, ProjectFilter{Stage: model.StageEntitlement})
	require.NoError(t, err)
	require.Len(t, byStage, 1)
	assert.Equal(t, "P-301", byStage[0].PermitNumber)

	bySource, err := s.ListProjects(ctx, ProjectFilter{Source: "permits"})
	require.NoError(t, err)
	require.Len(t, bySource, 1)
	assert.Equal(t, "P-300", bySource[0].PermitNumber)
}

func TestLinkProjectAndUnlinkedListing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	withOwner := testPermit("P-400")
	withOwner.OwnerName = strp("ACME DEVELOPERS LLC")
	res, err := s.UpsertProject(ctx, withOwner)
	require.NoError(t, err)

	// No owner name: never a link candidate.
	_, err = s.UpsertProject(ctx, testPermit("P-401"))
	require.NoError(t, err)

	unlinked, err := s.ListUnlinkedProjects(ctx)
	require.NoError(t, err)
	require.Len(t, unlinked, 1)
	assert.Equal(t, "P-400", unlinked[0].PermitNumber)

	dev, err := s.CreateDeveloper(ctx, model.Developer{
		Name:           "ACME DEVELOPERS LLC",
		NormalizedName: "acme",
	})
	require.NoError(t, err)

	require.NoError(t, s.LinkProject(ctx, res.ProjectID, dev.ID))

	unlinked, err = s.ListUnlinkedProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, unlinked)

	p, err := s.GetProject(ctx, res.ProjectID)
	require.NoError(t, err)
	require.NotNil(t, p.DeveloperID)
	assert.Equal(t, dev.ID, *p.DeveloperID)

	assert.Error(t, s.LinkProject(ctx, "missing-id", dev.ID))
}

func TestDeveloperLookupByNormalizedName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateDeveloper(ctx, model.Developer{Name: "Acme Developers, LLC", NormalizedName: "acme"})
	require.NoError(t, err)

	d, err := s.GetDeveloperByNormalizedName(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "Acme Developers, LLC", d.Name)
	assert.Equal(t, model.CRMStageNew, d.CRMStage)

	missing, err := s.GetDeveloperByNormalizedName(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func (s *SQLiteStore) insertOutreach(t *testing.T, developerID string, at time.Time) {
	t.Helper()
	_, err := s.db.Exec(
		`INSERT INTO outreach (id, developer_id, channel, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), developerID, "email", "sent", at,
	)
	require.NoError(t, err)
}

func (s *SQLiteStore) insertTag(t *testing.T, developerID, tag string) {
	t.Helper()
	_, err := s.db.Exec(
		`INSERT INTO developer_tags (id, developer_id, tag, created_at) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), developerID, tag, time.Now().UTC(),
	)
	require.NoError(t, err)
}

func TestMergeDevelopers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	primary, err := s.CreateDeveloper(ctx, model.Developer{
		Name:           "Acme Developers LLC",
		NormalizedName: "acme",
		Email:          strp("info@acme.test"),
		Notes:          strp("met at conference"),
	})
	require.NoError(t, err)

	secondary, err := s.CreateDeveloper(ctx, model.Developer{
		Name:           "Acme Developers",
		NormalizedName: "acme",
		Phone:          strp("213-555-0100"),
		Email:          strp("other@acme.test"),
		Notes:          strp("cold call list"),
	})
	require.NoError(t, err)

	permit := testPermit("P-500")
	res, err := s.UpsertProject(ctx, permit)
	require.NoError(t, err)
	require.NoError(t, s.LinkProject(ctx, res.ProjectID, secondary.ID))

	s.insertOutreach(t, secondary.ID, time.Now().UTC())
	s.insertTag(t, primary.ID, "hot")
	s.insertTag(t, secondary.ID, "hot")
	s.insertTag(t, secondary.ID, "repeat-borrower")

	require.NoError(t, s.MergeDevelopers(ctx, primary.ID, secondary.ID))

	// Secondary is gone.
	_, err = s.GetDeveloper(ctx, secondary.ID)
	assert.Error(t, err)

	// Projects and outreach re-pointed.
	p, err := s.GetProject(ctx, res.ProjectID)
	require.NoError(t, err)
	require.NotNil(t, p.DeveloperID)
	assert.Equal(t, primary.ID, *p.DeveloperID)

	outreach, err := s.ListOutreach(ctx, primary.ID, 10)
	require.NoError(t, err)
	assert.Len(t, outreach, 1)

	// Null contact fields filled, non-null ones kept.
	merged, err := s.GetDeveloper(ctx, primary.ID)
	require.NoError(t, err)
	require.NotNil(t, merged.Phone)
	assert.Equal(t, "213-555-0100", *merged.Phone)
	require.NotNil(t, merged.Email)
	assert.Equal(t, "info@acme.test", *merged.Email)

	// Notes concatenated with attribution.
	require.NotNil(t, merged.Notes)
	assert.Equal(t, "met at conference\n\n[Merged from Acme Developers] cold call list", *merged.Notes)

	// Tags unioned under (developer, tag) identity.
	var tagCount int
	require.NoError(t, s.db.QueryRow(
		`SELECT COUNT(*) FROM developer_tags WHERE developer_id = ?`, primary.ID,
	).Scan(&tagCount))
	assert.Equal(t, 2, tagCount)

	var orphanTags int
	require.NoError(t, s.db.QueryRow(
		`SELECT COUNT(*) FROM developer_tags WHERE developer_id = ?`, secondary.ID,
	).Scan(&orphanTags))
	assert.Zero(t, orphanTags)
}

func TestMergeDevelopersRejectsMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	dev, err := s.CreateDeveloper(ctx, model.Developer{Name: "Solo", NormalizedName: "solo"})
	require.NoError(t, err)

	assert.Error(t, s.MergeDevelopers(ctx, dev.ID, "missing"))
	assert.Error(t, s.MergeDevelopers(ctx, "missing", dev.ID))
	assert.Error(t, s.MergeDevelopers(ctx, dev.ID, dev.ID))

	// Nothing was mutated.
	_, err = s.GetDeveloper(ctx, dev.ID)
	assert.NoError(t, err)
}

func TestListDeveloperSummariesCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	dev, err := s.CreateDeveloper(ctx, model.Developer{Name: "Acme", NormalizedName: "acme"})
	require.NoError(t, err)

	res, err := s.UpsertProject(ctx, testPermit("P-600"))
	require.NoError(t, err)
	require.NoError(t, s.LinkProject(ctx, res.ProjectID, dev.ID))
	s.insertOutreach(t, dev.ID, time.Now().UTC())
	s.insertOutreach(t, dev.ID, time.Now().UTC())

	summaries, err := s.ListDeveloperSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].ProjectCount)
	assert.Equal(t, 2, summaries[0].OutreachCount)
}

func TestListDevelopersForScoring(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	dev, err := s.CreateDeveloper(ctx, model.Developer{
		Name:           "Acme",
		NormalizedName: "acme",
		Email:          strp("a@b.test"),
	})
	require.NoError(t, err)

	empty, err := s.CreateDeveloper(ctx, model.Developer{Name: "Empty", NormalizedName: "empty"})
	require.NoError(t, err)

	res, err := s.UpsertProject(ctx, testPermit("P-700"))
	require.NoError(t, err)
	require.NoError(t, s.LinkProject(ctx, res.ProjectID, dev.ID))

	// Seven outreach rows; only the five most recent feed the snapshot.
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		s.insertOutreach(t, dev.ID, base.Add(time.Duration(i)*time.Hour))
	}

	inputs, err := s.ListDevelopersForScoring(ctx)
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	byID := map[string]int{}
	for i, in := range inputs {
		byID[in.ID] = i
	}

	scored := inputs[byID[dev.ID]]
	require.Len(t, scored.Projects, 1)
	assert.Equal(t, model.StagePermitted, scored.Projects[0].Stage)
	assert.Equal(t, model.SubstageIssued, scored.Projects[0].Substage)
	require.NotNil(t, scored.Email)
	require.Len(t, scored.Outreach, 5)
	// Descending by time, newest first.
	assert.True(t, scored.Outreach[0].After(scored.Outreach[4]))

	assert.Empty(t, inputs[byID[empty.ID]].Projects)
}

func TestUpdateLeadScore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	dev, err := s.CreateDeveloper(ctx, model.Developer{Name: "Acme", NormalizedName: "acme"})
	require.NoError(t, err)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.UpdateLeadScore(ctx, dev.ID, 75, `{"total":75}`, at))

	d, err := s.GetDeveloper(ctx, dev.ID)
	require.NoError(t, err)
	require.NotNil(t, d.LeadScore)
	assert.Equal(t, 75, *d.LeadScore)
	require.NotNil(t, d.LeadScoreData)
	assert.JSONEq(t, `{"total":75}`, *d.LeadScoreData)
	require.NotNil(t, d.LeadScoredAt)

	assert.Error(t, s.UpdateLeadScore(ctx, "missing", 0, "{}", at))
}

func TestAssessorEnrichmentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	withAPN := testPermit("P-800")
	withAPN.APN = strp("5161021012")
	res, err := s.UpsertProject(ctx, withAPN)
	require.NoError(t, err)

	// A project without a parcel id is never an enrichment candidate.
	_, err = s.UpsertProject(ctx, testPermit("P-801"))
	require.NoError(t, err)

	pending, err := s.ListProjectsForAssessor(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "P-800", pending[0].PermitNumber)

	units := 24
	landValue := int64(3_200_000)
	require.NoError(t, s.UpdateProjectAssessor(ctx, res.ProjectID, AssessorData{
		UseType:   strp("Apartment"),
		Units:     &units,
		LandValue: &landValue,
	}))

	pending, err = s.ListProjectsForAssessor(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	p, err := s.GetProject(ctx, res.ProjectID)
	require.NoError(t, err)
	require.NotNil(t, p.AssessorUseType)
	assert.Equal(t, "Apartment", *p.AssessorUseType)
	require.NotNil(t, p.AssessorUnits)
	assert.Equal(t, 24, *p.AssessorUnits)
	require.NotNil(t, p.AssessorEnrichedAt)
}

func TestRegistryEnrichmentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	llc, err := s.CreateDeveloper(ctx, model.Developer{
		Name: "Acme LLC", NormalizedName: "acme", EntityType: strp("LLC"),
	})
	require.NoError(t, err)

	// Individuals are skipped: the business registry has nothing on them.
	_, err = s.CreateDeveloper(ctx, model.Developer{
		Name: "Jane Doe", NormalizedName: "jane doe", EntityType: strp("Individual"),
	})
	require.NoError(t, err)

	pending, err := s.ListDevelopersForRegistry(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, llc.ID, pending[0].ID)

	require.NoError(t, s.UpdateDeveloperRegistry(ctx, llc.ID, RegistryData{
		EntityNumber: strp("202501234567"),
		Status:       strp("Active"),
		AgentName:    strp("Jane Agent"),
	}))

	pending, err = s.ListDevelopersForRegistry(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	d, err := s.GetDeveloper(ctx, llc.ID)
	require.NoError(t, err)
	require.NotNil(t, d.RegistryEntityNumber)
	assert.Equal(t, "202501234567", *d.RegistryEntityNumber)
	require.NotNil(t, d.ContactEnrichedAt)
}

func TestArchiveRawUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	permits := []model.Permit{testPermit("P-900"), testPermit("P-901")}
	n, err := s.ArchiveRaw(ctx, "permits", permits)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Re-archiving replaces payloads without growing the table.
	_, err = s.ArchiveRaw(ctx, "permits", permits)
	require.NoError(t, err)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM raw_permits`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestIngestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.StartIngestRun(ctx, "permits")
	require.NoError(t, err)
	assert.Equal(t, model.IngestRunRunning, run.Status)

	require.NoError(t, s.CompleteIngestRun(ctx, run.ID, 120, 40, 80))

	failed, err := s.StartIngestRun(ctx, "legacy")
	require.NoError(t, err)
	require.NoError(t, s.FailIngestRun(ctx, failed.ID, "upstream 503"))

	runs, err := s.ListIngestRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Most recent first.
	assert.Equal(t, "legacy", runs[0].Source)
	assert.Equal(t, model.IngestRunFailed, runs[0].Status)
	require.NotNil(t, runs[0].ErrorMessage)
	assert.Equal(t, "upstream 503", *runs[0].ErrorMessage)

	assert.Equal(t, model.IngestRunCompleted, runs[1].Status)
	assert.Equal(t, 120, runs[1].RecordsFound)
	assert.Equal(t, 40, runs[1].RecordsNew)
	assert.Equal(t, 80, runs[1].RecordsUpdated)
}
