// Package dedup surfaces likely-duplicate developer pairs for operator
// review. It never merges on its own; merge is an explicit operator call
// into the store.
package dedup

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/permit-scout/internal/model"
	"github.com/sells-group/permit-scout/internal/normalize"
)

// maxDistance is the edit-distance ceiling for reporting a pair. Pairs
// whose normalized-name lengths differ by more than this are skipped
// without computing the distance: insertions alone already cost more.
const maxDistance = 3

// Confidence tiers for presentation.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
)

// DeveloperSource lists developers with the context an operator needs to
// judge which record of a pair is more complete.
type DeveloperSource interface {
	ListDeveloperSummaries(ctx context.Context) ([]model.DeveloperSummary, error)
}

// Candidate is one likely-duplicate pair. A and B are ordered as stored;
// the pair (A,B) and (B,A) represent the same finding and only one is
// reported.
type Candidate struct {
	A          model.DeveloperSummary `json:"developer_a"`
	B          model.DeveloperSummary `json:"developer_b"`
	Distance   int                    `json:"distance"`
	Confidence string                 `json:"confidence"`
}

// FindCandidates scans all developer pairs and reports those whose
// normalized names are within edit distance 3, closest first. The scan
// is O(n²); developer volume stays small enough that an operator pass
// finishes in well under a second.
func FindCandidates(ctx context.Context, src DeveloperSource) ([]Candidate, error) {
	devs, err := src.ListDeveloperSummaries(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "dedup: list developers")
	}

	var candidates []Candidate
	for i := 0; i < len(devs); i++ {
		normA := devs[i].NormalizedName
		if normA == "" {
			normA = normalize.Name(devs[i].Name)
		}
		for j := i + 1; j < len(devs); j++ {
			normB := devs[j].NormalizedName
			if normB == "" {
				normB = normalize.Name(devs[j].Name)
			}

			if diff := len(normA) - len(normB); diff > maxDistance || diff < -maxDistance {
				continue
			}

			dist := Levenshtein(normA, normB)
			if dist > maxDistance {
				continue
			}

			conf := ConfidenceMedium
			if dist <= 1 {
				conf = ConfidenceHigh
			}
			candidates = append(candidates, Candidate{
				A:          devs[i],
				B:          devs[j],
				Distance:   dist,
				Confidence: conf,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	zap.L().Info("dedup: candidate scan complete",
		zap.Int("developers", len(devs)),
		zap.Int("candidates", len(candidates)),
	)

	return candidates, nil
}
