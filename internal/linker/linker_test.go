package linker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/permit-scout/internal/model"
	"github.com/sells-group/permit-scout/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func strp(s string) *string { return &s }

func upsertOwned(t *testing.T, s *store.SQLiteStore, number, owner string) string {
	t.Helper()
	res, err := s.UpsertProject(context.Background(), model.Permit{
		PermitNumber: number,
		PermitType:   "Bldg-New",
		Status:       "Permit Issued",
		Stage:        model.StagePermitted,
		Financing:    model.FinancingConstruction,
		Address:      "Unknown Address",
		OwnerName:    strp(owner),
		Source:       "legacy",
	})
	require.NoError(t, err)
	return res.ProjectID
}

func TestAutoLinkMatchesExistingDeveloper(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	dev, err := s.CreateDeveloper(ctx, model.Developer{
		Name: "Acme Developers, LLC", NormalizedName: "acme",
	})
	require.NoError(t, err)

	// Different surface spelling, same normalized name.
	id := upsertOwned(t, s, "P-1", "ACME DEVELOPERS LLC")
	upsertOwned(t, s, "P-2", "Totally Different Group")

	res, err := AutoLink(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Linked)
	assert.Equal(t, 1, res.Skipped)

	p, err := s.GetProject(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p.DeveloperID)
	assert.Equal(t, dev.ID, *p.DeveloperID)
}

func TestCreateDevelopersGroupsByNormalizedName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Two spellings of one entity plus an unrelated one.
	upsertOwned(t, s, "P-10", "Wilshire Partners LLC")
	upsertOwned(t, s, "P-11", "WILSHIRE PARTNERS, L.L.C.")
	upsertOwned(t, s, "P-12", "Jane Doe")

	res, err := CreateDevelopers(ctx, s, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, res.DevelopersCreated)
	assert.Equal(t, 3, res.Linked)
	assert.Zero(t, res.Skipped)

	wilshire, err := s.GetDeveloperByNormalizedName(ctx, "wilshire")
	require.NoError(t, err)
	require.NotNil(t, wilshire)
	require.NotNil(t, wilshire.EntityType)
	assert.Equal(t, "LLC", *wilshire.EntityType)

	jane, err := s.GetDeveloperByNormalizedName(ctx, "jane doe")
	require.NoError(t, err)
	require.NotNil(t, jane)
	require.NotNil(t, jane.EntityType)
	assert.Equal(t, "Individual", *jane.EntityType)

	linked, err := s.ListProjects(ctx, store.ProjectFilter{DeveloperID: wilshire.ID})
	require.NoError(t, err)
	assert.Len(t, linked, 2)
}

func TestCreateDevelopersIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	upsertOwned(t, s, "P-20", "Acme Developers LLC")

	first, err := CreateDevelopers(ctx, s, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, first.DevelopersCreated)

	// New project for the same entity: links to the existing developer.
	upsertOwned(t, s, "P-21", "ACME DEVELOPERS LLC")

	second, err := CreateDevelopers(ctx, s, 3)
	require.NoError(t, err)
	assert.Zero(t, second.DevelopersCreated)
	assert.Equal(t, 1, second.Linked)

	summaries, err := s.ListDeveloperSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].ProjectCount)
}

func TestCreateDevelopersSkipsShortNames(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Normalizes to "jd", below the minimum length.
	upsertOwned(t, s, "P-30", "JD, LLC")

	res, err := CreateDevelopers(ctx, s, 3)
	require.NoError(t, err)
	assert.Zero(t, res.DevelopersCreated)
	assert.Equal(t, 1, res.Skipped)

	summaries, err := s.ListDeveloperSummaries(ctx)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
