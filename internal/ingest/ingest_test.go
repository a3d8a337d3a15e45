package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/permit-scout/internal/config"
	"github.com/sells-group/permit-scout/internal/fetcher"
	"github.com/sells-group/permit-scout/internal/model"
	"github.com/sells-group/permit-scout/internal/source"
	"github.com/sells-group/permit-scout/internal/store"
)

func newTestRunner(t *testing.T, cfg *config.Config) (*Runner, *store.SQLiteStore) {
	t.Helper()

	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	f := fetcher.NewHTTP(fetcher.HTTPOptions{
		Timeout:           5 * time.Second,
		MaxRetries:        1,
		InitialBackoff:    time.Millisecond,
		RequestsPerSecond: 1000,
	})

	return New(st, f, source.NewRegistry(), cfg), st
}

func testConfig() *config.Config {
	return &config.Config{
		Ingest: config.IngestConfig{
			MinValuation:        500_000,
			PermitTypes:         []string{"Bldg-New"},
			NewConstructionType: "Bldg-New",
			PageSize:            50,
			MaxRecords:          1000,
			MinOwnerNameLen:     3,
		},
		Sources: config.SourcesConfig{
			City:   "Los Angeles",
			Region: "CA",
		},
	}
}

func socrataServer(t *testing.T, pages map[int]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("$offset"))
		body, ok := pages[offset]
		if !ok {
			body = "[]"
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func TestIngestSingleSource(t *testing.T) {
	ctx := context.Background()

	srv := socrataServer(t, map[int]string{
		0: `[{"permit_nbr":"23010-1","permit_type":"Bldg-New","status_desc":"Permit Issued","valuation":"2500000","primary_address":"123 MAIN ST"},
		    {"permit_nbr":"23010-2","permit_type":"Bldg-New","status_desc":"Submitted"}]`,
	})
	defer srv.Close()

	cfg := testConfig()
	cfg.Sources.PermitsURL = srv.URL
	r, st := newTestRunner(t, cfg)

	res, err := r.Ingest(ctx, "permits", "")
	require.NoError(t, err)

	assert.Equal(t, "permits", res.Source)
	assert.Equal(t, 2, res.Found)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 0, res.Updated)

	p, err := st.GetProjectByPermitNumber(ctx, "23010-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, model.StagePermitted, p.Stage)

	runs, err := st.ListIngestRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.IngestRunCompleted, runs[0].Status)
	assert.Equal(t, 2, runs[0].RecordsFound)
	assert.Equal(t, 2, runs[0].RecordsNew)

	// A second pass over the same payload updates instead of creating.
	res, err = r.Ingest(ctx, "permits", "")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 2, res.Updated)
}

func TestIngestUnknownSource(t *testing.T) {
	r, st := newTestRunner(t, testConfig())

	_, err := r.Ingest(context.Background(), "nope", "")
	require.Error(t, err)

	// No run row is written for a source that does not exist.
	runs, err := st.ListIngestRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestIngestFetchFailureMarksRunFailed(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Sources.PermitsURL = srv.URL
	r, st := newTestRunner(t, cfg)

	_, err := r.Ingest(ctx, "permits", "")
	require.Error(t, err)

	runs, err := st.ListIngestRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.IngestRunFailed, runs[0].Status)
	require.NotNil(t, runs[0].ErrorMessage)
	assert.NotEmpty(t, *runs[0].ErrorMessage)
}

func TestIngestAllPipeline(t *testing.T) {
	ctx := context.Background()

	permitsSrv := socrataServer(t, map[int]string{
		0: `[{"permit_nbr":"23010-1","permit_type":"Bldg-New","status_desc":"Permit Issued","valuation":"3000000"}]`,
	})
	defer permitsSrv.Close()

	legacySrv := socrataServer(t, map[int]string{
		0: `[{"pcis_permit":"12010-1","permit_type":"Bldg-New","issue_date":"2014-03-15T00:00:00.000","valuation":"12000000","applicant_business_name":"WILSHIRE PARTNERS LLC","address_start":"4501","street_name":"WILSHIRE","street_suffix":"BLVD"}]`,
	})
	defer legacySrv.Close()

	submittedSrv := socrataServer(t, map[int]string{
		0: `[{"permit_nbr":"25010-1","permit_type":"Bldg-New","submitted_date":"2025-07-20T00:00:00.000","valuation":"8000000"}]`,
	})
	defer submittedSrv.Close()

	cfg := testConfig()
	cfg.Sources.PermitsURL = permitsSrv.URL
	cfg.Sources.LegacyURL = legacySrv.URL
	cfg.Sources.SubmittedURL = submittedSrv.URL
	r, st := newTestRunner(t, cfg)

	full, err := r.IngestAll(ctx, "")
	require.NoError(t, err)

	require.Len(t, full.Sources, 3)
	assert.Equal(t, "permits", full.Sources[0].Source)
	assert.Equal(t, "legacy", full.Sources[1].Source)
	assert.Equal(t, "submitted", full.Sources[2].Source)

	// The legacy record carries an owner name, so the pipeline mints the
	// developer, links the project, and scores the new lead.
	assert.Equal(t, 1, full.DevelopersCreated)
	assert.Equal(t, 1, full.Linked)
	assert.Equal(t, 1, full.Scored)

	dev, err := st.GetDeveloperByNormalizedName(ctx, "wilshire")
	require.NoError(t, err)
	require.NotNil(t, dev)
	assert.Equal(t, "WILSHIRE PARTNERS LLC", dev.Name)
	require.NotNil(t, dev.LeadScore)
	assert.Greater(t, *dev.LeadScore, 0)

	p, err := st.GetProjectByPermitNumber(ctx, "12010-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NotNil(t, p.DeveloperID)
	assert.Equal(t, dev.ID, *p.DeveloperID)
}

func TestIngestAllContinuesPastSourceFailure(t *testing.T) {
	ctx := context.Background()

	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer badSrv.Close()

	goodSrv := socrataServer(t, map[int]string{
		0: `[{"permit_nbr":"25010-9","permit_type":"Bldg-New","submitted_date":"2025-08-01T00:00:00.000"}]`,
	})
	defer goodSrv.Close()

	cfg := testConfig()
	cfg.Sources.PermitsURL = badSrv.URL
	cfg.Sources.LegacyURL = badSrv.URL
	cfg.Sources.SubmittedURL = goodSrv.URL
	r, st := newTestRunner(t, cfg)

	full, err := r.IngestAll(ctx, "")
	require.Error(t, err)

	// The healthy source still ran and its records landed.
	require.Len(t, full.Sources, 1)
	assert.Equal(t, "submitted", full.Sources[0].Source)

	p, lookupErr := st.GetProjectByPermitNumber(ctx, "25010-9")
	require.NoError(t, lookupErr)
	require.NotNil(t, p)

	runs, lookupErr := st.ListIngestRuns(ctx, 10)
	require.NoError(t, lookupErr)
	require.Len(t, runs, 3)
}
