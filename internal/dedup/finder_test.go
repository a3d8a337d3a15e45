package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/permit-scout/internal/model"
)

type fakeSource struct {
	devs []model.DeveloperSummary
	err  error
}

func (f *fakeSource) ListDeveloperSummaries(_ context.Context) ([]model.DeveloperSummary, error) {
	return f.devs, f.err
}

func dev(id, name, normalized string) model.DeveloperSummary {
	return model.DeveloperSummary{ID: id, Name: name, NormalizedName: normalized}
}

func TestFindCandidates(t *testing.T) {
	src := &fakeSource{devs: []model.DeveloperSummary{
		dev("1", "Acme Builders LLC", "acme builders"),
		dev("2", "Acme Builder LLC", "acme builder"),
		dev("3", "Pacific Coast Properties", "pacific coast"),
		dev("4", "Pacific Cost Properties", "pacific cost"),
		dev("5", "Totally Different Name Here", "totally different name here"),
	}}

	candidates, err := FindCandidates(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	// "acme builders"/"acme builder" distance 1, high confidence, first.
	assert.Equal(t, "1", candidates[0].A.ID)
	assert.Equal(t, "2", candidates[0].B.ID)
	assert.Equal(t, 1, candidates[0].Distance)
	assert.Equal(t, ConfidenceHigh, candidates[0].Confidence)

	// "pacific coast"/"pacific cost" distance 1 too; stable order by input.
	assert.Equal(t, "3", candidates[1].A.ID)
	assert.Equal(t, 1, candidates[1].Distance)
}

func TestFindCandidates_SortedAscendingByDistance(t *testing.T) {
	src := &fakeSource{devs: []model.DeveloperSummary{
		dev("1", "", "abcdef"),
		dev("2", "", "abcxyz"), // distance 3 to dev 1
		dev("3", "", "abcdeg"), // distance 1 to dev 1
	}}

	candidates, err := FindCandidates(context.Background(), src)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	for i := 1; i < len(candidates); i++ {
		assert.LessOrEqual(t, candidates[i-1].Distance, candidates[i].Distance)
	}
	assert.Equal(t, 1, candidates[0].Distance)
	assert.Equal(t, ConfidenceMedium, candidates[len(candidates)-1].Confidence)
}

func TestFindCandidates_SkipsLengthGapPairs(t *testing.T) {
	src := &fakeSource{devs: []model.DeveloperSummary{
		dev("1", "", "abc"),
		dev("2", "", "abcdefghijk"),
	}}

	candidates, err := FindCandidates(context.Background(), src)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestFindCandidates_FallsBackToNormalizingName(t *testing.T) {
	src := &fakeSource{devs: []model.DeveloperSummary{
		dev("1", "Acme Builders LLC", ""),
		dev("2", "Acme Builders Inc", ""),
	}}

	candidates, err := FindCandidates(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, 0, candidates[0].Distance)
}

func TestFindCandidates_EachPairReportedOnce(t *testing.T) {
	src := &fakeSource{devs: []model.DeveloperSummary{
		dev("1", "", "acme"),
		dev("2", "", "acme"),
	}}

	candidates, err := FindCandidates(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "1", candidates[0].A.ID)
	assert.Equal(t, "2", candidates[0].B.ID)
}
