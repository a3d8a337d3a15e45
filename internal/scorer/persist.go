package scorer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Store is the persistence surface the batch scoring pass needs.
type Store interface {
	// ListDevelopersForScoring returns every developer with its linked
	// projects and most recent outreach timestamps.
	ListDevelopersForScoring(ctx context.Context) ([]DeveloperInput, error)

	// UpdateLeadScore persists the score, its JSON breakdown, and the
	// computation timestamp on one developer.
	UpdateLeadScore(ctx context.Context, developerID string, total int, breakdownJSON string, at time.Time) error
}

// RecomputeAll scores every developer with at least one linked project in
// a single pass. Developers with zero projects are skipped entirely and
// keep a null score: "not yet evaluated" is a different fact than a scored
// zero. Returns the number of developers updated.
func RecomputeAll(ctx context.Context, store Store, newConstructionType string) (int, error) {
	devs, err := store.ListDevelopersForScoring(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "scorer: list developers")
	}

	now := time.Now().UTC()
	updated := 0
	for _, dev := range devs {
		if len(dev.Projects) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return updated, eris.Wrap(err, "scorer: recompute cancelled")
		}

		b := Compute(dev, newConstructionType, now)
		breakdownJSON, err := json.Marshal(b)
		if err != nil {
			return updated, eris.Wrapf(err, "scorer: marshal breakdown for %s", dev.ID)
		}
		if err := store.UpdateLeadScore(ctx, dev.ID, b.Total, string(breakdownJSON), now); err != nil {
			return updated, eris.Wrapf(err, "scorer: persist score for %s", dev.ID)
		}
		updated++
	}

	zap.L().Info("scorer: recompute complete",
		zap.Int("developers", len(devs)),
		zap.Int("updated", updated),
	)

	return updated, nil
}
