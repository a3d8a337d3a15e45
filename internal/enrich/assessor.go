// Package enrich fills projects and developers with data from slow,
// rate-limited public APIs: the county assessor parcel portal and the
// state business registry. Both enrichers run as logged batch passes
// that skip records already stamped as enriched, so re-running them is
// cheap and safe.
package enrich

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/permit-scout/internal/config"
	"github.com/sells-group/permit-scout/internal/fetcher"
	"github.com/sells-group/permit-scout/internal/store"
)

// Result reports one enrichment batch.
type Result struct {
	Total    int `json:"total"`
	Enriched int `json:"enriched"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

// parcelDetail is the assessor portal response envelope. Numeric fields
// arrive as zero when the parcel has no assessment, which we treat as
// absent rather than a literal zero.
type parcelDetail struct {
	Parcel struct {
		AIN                  string  `json:"AIN"`
		UseType              string  `json:"UseType"`
		YearBuilt            string  `json:"YearBuilt"`
		SqftMain             int     `json:"SqftMain"`
		SqftLot              int     `json:"SqftLot"`
		NumOfUnits           int     `json:"NumOfUnits"`
		CurrentRollLandValue float64 `json:"CurrentRoll_LandValue"`
		CurrentRollImpValue  float64 `json:"CurrentRoll_ImpValue"`
	} `json:"Parcel"`
}

// Assessor enriches projects with parcel data looked up by APN.
type Assessor struct {
	store   store.Store
	fetcher fetcher.Fetcher
	cfg     config.AssessorConfig
}

func NewAssessor(st store.Store, f fetcher.Fetcher, cfg config.AssessorConfig) *Assessor {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Assessor{store: st, fetcher: f, cfg: cfg}
}

// fetchParcel looks up one parcel. A missing parcel is (nil, nil): the
// APN simply is not in the roll, which is common for new subdivisions.
func (a *Assessor) fetchParcel(ctx context.Context, apn string) (*parcelDetail, error) {
	lookupURL := a.cfg.BaseURL + "?ain=" + url.QueryEscape(apn)

	body, err := a.fetcher.Get(ctx, lookupURL)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: assessor lookup %s", apn)
	}

	var detail parcelDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, eris.Wrapf(err, "enrich: decode parcel %s", apn)
	}
	if detail.Parcel.AIN == "" {
		return nil, nil
	}
	return &detail, nil
}

// EnrichProject enriches a single project in place. Returns false when
// the project has no APN or the parcel is not in the assessment roll.
func (a *Assessor) EnrichProject(ctx context.Context, projectID string) (bool, error) {
	p, err := a.store.GetProject(ctx, projectID)
	if err != nil {
		return false, err
	}
	if p.APN == nil || *p.APN == "" {
		return false, nil
	}

	detail, err := a.fetchParcel(ctx, *p.APN)
	if err != nil {
		return false, err
	}
	if detail == nil {
		return false, nil
	}

	data := store.AssessorData{
		UseType:   nonEmpty(detail.Parcel.UseType),
		YearBuilt: nonEmpty(detail.Parcel.YearBuilt),
		SqftMain:  positiveInt(detail.Parcel.SqftMain),
		SqftLot:   positiveInt(detail.Parcel.SqftLot),
		Units:     positiveInt(detail.Parcel.NumOfUnits),
		LandValue: positiveInt64(int64(detail.Parcel.CurrentRollLandValue)),
		ImpValue:  positiveInt64(int64(detail.Parcel.CurrentRollImpValue)),
	}
	if err := a.store.UpdateProjectAssessor(ctx, projectID, data); err != nil {
		return false, err
	}
	return true, nil
}

// Run enriches every project that has an APN and no assessor stamp yet.
// Lookups run on a bounded worker pool with a fixed delay between
// dispatches; individual failures are counted and skipped, only store
// errors abort the batch.
func (a *Assessor) Run(ctx context.Context) (*Result, error) {
	run, err := a.store.StartIngestRun(ctx, "assessor")
	if err != nil {
		return nil, eris.Wrap(err, "enrich: start assessor run")
	}

	res, err := a.runBatch(ctx)
	if err != nil {
		if failErr := a.store.FailIngestRun(ctx, run.ID, err.Error()); failErr != nil {
			zap.L().Error("enrich: record assessor run failure", zap.Error(failErr))
		}
		return nil, err
	}

	if err := a.store.CompleteIngestRun(ctx, run.ID, res.Total, res.Enriched, 0); err != nil {
		return nil, eris.Wrap(err, "enrich: complete assessor run")
	}

	zap.L().Info("enrich: assessor batch complete",
		zap.Int("total", res.Total),
		zap.Int("enriched", res.Enriched),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (a *Assessor) runBatch(ctx context.Context) (*Result, error) {
	projects, err := a.store.ListProjectsForAssessor(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: list projects for assessor")
	}

	res := &Result{Total: len(projects)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)

	delay := time.Duration(a.cfg.DelayMS) * time.Millisecond
	for i, p := range projects {
		if i > 0 && delay > 0 {
			if err := sleep(gctx, delay); err != nil {
				break
			}
		}

		projectID := p.ID
		g.Go(func() error {
			ok, err := a.EnrichProject(gctx, projectID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				zap.L().Warn("enrich: assessor lookup failed",
					zap.String("project_id", projectID),
					zap.Error(err),
				)
				res.Failed++
			case ok:
				res.Enriched++
			default:
				res.Skipped++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "enrich: assessor batch cancelled")
	}
	return res, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func positiveInt(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

func positiveInt64(n int64) *int64 {
	if n <= 0 {
		return nil
	}
	return &n
}
