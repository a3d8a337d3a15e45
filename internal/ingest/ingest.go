// Package ingest drives the source-to-store pipeline: fetch one upstream
// dataset, archive the raw payloads, reconcile every record into the
// project store, and log the pass as an ingest run.
package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/permit-scout/internal/config"
	"github.com/sells-group/permit-scout/internal/fetcher"
	"github.com/sells-group/permit-scout/internal/linker"
	"github.com/sells-group/permit-scout/internal/scorer"
	"github.com/sells-group/permit-scout/internal/source"
	"github.com/sells-group/permit-scout/internal/store"
)

// Runner executes ingestion passes against one store.
type Runner struct {
	store   store.Store
	fetcher fetcher.Fetcher
	sources *source.Registry
	cfg     *config.Config
}

// Result reports one completed source pass.
type Result struct {
	Source  string `json:"source"`
	Found   int    `json:"records_found"`
	Created int    `json:"records_new"`
	Updated int    `json:"records_updated"`
}

// FullResult reports a full pipeline run across all sources.
type FullResult struct {
	Sources           []Result `json:"sources"`
	Linked            int      `json:"linked"`
	DevelopersCreated int      `json:"developers_created"`
	Scored            int      `json:"scored"`
}

func New(st store.Store, f fetcher.Fetcher, reg *source.Registry, cfg *config.Config) *Runner {
	return &Runner{store: st, fetcher: f, sources: reg, cfg: cfg}
}

// Ingest runs one source end to end under an ingest-run log entry.
// fromDate (YYYY-MM-DD, optional) restricts the pull to recent status
// activity. A fetch failure marks the run failed and surfaces the error;
// records committed by earlier pages of previous runs are untouched.
func (r *Runner) Ingest(ctx context.Context, sourceName, fromDate string) (*Result, error) {
	src, err := r.sources.Get(sourceName)
	if err != nil {
		return nil, err
	}

	run, err := r.store.StartIngestRun(ctx, sourceName)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: start run for %s", sourceName)
	}

	res, err := r.runSource(ctx, src, fromDate)
	if err != nil {
		if failErr := r.store.FailIngestRun(ctx, run.ID, err.Error()); failErr != nil {
			zap.L().Error("ingest: record run failure",
				zap.String("run_id", run.ID),
				zap.Error(failErr),
			)
		}
		return nil, err
	}

	if err := r.store.CompleteIngestRun(ctx, run.ID, res.Found, res.Created, res.Updated); err != nil {
		return nil, eris.Wrapf(err, "ingest: complete run %s", run.ID)
	}

	zap.L().Info("ingest: source complete",
		zap.String("source", sourceName),
		zap.Int("found", res.Found),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
	)
	return res, nil
}

func (r *Runner) runSource(ctx context.Context, src source.Source, fromDate string) (*Result, error) {
	permits, err := src.Fetch(ctx, r.fetcher, r.cfg, fromDate)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: fetch %s", src.Name())
	}

	if _, err := r.store.ArchiveRaw(ctx, src.Name(), permits); err != nil {
		return nil, eris.Wrapf(err, "ingest: archive %s", src.Name())
	}

	res := &Result{Source: src.Name(), Found: len(permits)}
	for _, p := range permits {
		// Cancellation stops before the next record; each upsert is its
		// own transaction so no partial project is ever left behind.
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "ingest: cancelled")
		}
		up, err := r.store.UpsertProject(ctx, p)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: upsert %s", p.PermitNumber)
		}
		if up.Created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	return res, nil
}

// IngestAll runs every registered source in order, then links ownership,
// creates developers for new owner names, and recomputes lead scores.
// One source failing does not stop the others; its error is logged on its
// run and the pipeline continues, returning the first error at the end.
func (r *Runner) IngestAll(ctx context.Context, fromDate string) (*FullResult, error) {
	full := &FullResult{}
	var firstErr error

	for _, src := range r.sources.All() {
		res, err := r.Ingest(ctx, src.Name(), fromDate)
		if err != nil {
			if ctx.Err() != nil {
				return full, err
			}
			zap.L().Error("ingest: source failed",
				zap.String("source", src.Name()),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		full.Sources = append(full.Sources, *res)
	}

	linkRes, err := linker.AutoLink(ctx, r.store)
	if err != nil {
		return full, eris.Wrap(err, "ingest: auto-link")
	}
	full.Linked = linkRes.Linked

	createRes, err := linker.CreateDevelopers(ctx, r.store, r.cfg.Ingest.MinOwnerNameLen)
	if err != nil {
		return full, eris.Wrap(err, "ingest: create developers")
	}
	full.DevelopersCreated = createRes.DevelopersCreated
	full.Linked += createRes.Linked

	scored, err := scorer.RecomputeAll(ctx, r.store, r.cfg.Ingest.NewConstructionType)
	if err != nil {
		return full, eris.Wrap(err, "ingest: recompute scores")
	}
	full.Scored = scored

	return full, firstErr
}
