// Package scorer computes the 0-100 lead priority score for developers
// from their linked projects and outreach history. Scoring is pure over
// its inputs: the same developer snapshot always produces the same
// breakdown and the same justification string.
package scorer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/permit-scout/internal/model"
)

// Subscore caps.
const (
	maxOpportunity  = 40
	maxTiming       = 30
	maxQuality      = 20
	maxReachability = 10
)

// Log-scale anchors for the opportunity subscore: $500K scores near 0,
// $50M and above scores the full 40.
const (
	opportunityLogLow  = 5.7 // log10(500_000)
	opportunityLogHigh = 7.7 // log10(50_000_000)
)

// staleOutreachAfter is how long after the last contact a lead becomes
// eligible for re-engagement.
const staleOutreachAfter = 90 * 24 * time.Hour

// recentActivityWindow is how recently a project must have been updated to
// count as active movement.
const recentActivityWindow = 90 * 24 * time.Hour

// ProjectInput is the slice of a project the scorer reads.
type ProjectInput struct {
	PermitType string
	Stage      model.Stage
	Substage   string
	Financing  model.Financing
	Valuation  *float64
	UpdatedAt  time.Time
}

// DeveloperInput is a developer snapshot with linked projects and the most
// recent outreach timestamps, descending by time.
type DeveloperInput struct {
	ID          string
	Name        string
	Email       *string
	Phone       *string
	LinkedInURL *string
	Projects    []ProjectInput
	Outreach    []time.Time
}

// Breakdown is the four-part score with its templated justification.
type Breakdown struct {
	Opportunity  int    `json:"opportunity"`
	Timing       int    `json:"timing"`
	Quality      int    `json:"quality"`
	Reachability int    `json:"reachability"`
	Total        int    `json:"total"`
	Reasoning    string `json:"reasoning"`
}

// substageTiming scores the single most actionable substage. An issued
// permit is the hottest signal (construction financing needed now);
// finaled and expired projects are cold.
var substageTiming = map[string]int{
	model.SubstageIssued:          30,
	model.SubstageReadyToIssue:    22,
	model.SubstagePCApproved:      18,
	model.SubstageUnderInspection: 15,
	model.SubstagePlanCheck:       12,
	model.SubstageCofOIssued:      10,
	model.SubstageSubmitted:       8,
	model.SubstageFinaled:         5,
	model.SubstageExpired:         0,
}

// stageTiming is the coarser fallback for projects without a substage.
var stageTiming = map[model.Stage]int{
	model.StagePermitted:    30,
	model.StageConstruction: 15,
	model.StageEntitlement:  8,
	model.StageCompleted:    5,
}

var stageLabels = map[string]string{
	model.SubstageIssued:            "just issued",
	model.SubstageReadyToIssue:      "ready to issue",
	model.SubstagePCApproved:        "plan check approved",
	model.SubstagePlanCheck:         "in plan check",
	model.SubstageSubmitted:         "submitted",
	model.SubstageUnderInspection:   "under inspection",
	model.SubstageCofOIssued:        "certificate of occupancy issued",
	model.SubstageFinaled:           "finaled",
	model.SubstageExpired:           "expired",
	string(model.StagePermitted):    "permitted",
	string(model.StageEntitlement):  "in entitlement",
	string(model.StageConstruction): "in construction",
	string(model.StageCompleted):    "completed",
}

var usPrinter = message.NewPrinter(language.English)

// Compute calculates the full breakdown for one developer snapshot at the
// given reference time. Callers must not pass a developer with zero
// projects; the batch pass skips those so a null score stays
// distinguishable from a scored zero.
func Compute(dev DeveloperInput, newConstructionType string, now time.Time) Breakdown {
	totalValuation := sumValuation(dev.Projects)
	hasNewConstruction := anyNewConstruction(dev.Projects, newConstructionType)

	opportunity := scoreOpportunity(totalValuation)
	timing, bestStage := scoreTiming(dev.Projects)
	quality := scoreQuality(dev.Projects, newConstructionType, now)
	reachability := scoreReachability(dev, now)

	total := opportunity + timing + quality + reachability
	if total > 100 {
		total = 100
	}

	return Breakdown{
		Opportunity:  opportunity,
		Timing:       timing,
		Quality:      quality,
		Reachability: reachability,
		Total:        total,
		Reasoning:    buildReasoning(dev, total, totalValuation, bestStage, hasNewConstruction, now),
	}
}

func sumValuation(projects []ProjectInput) float64 {
	var sum float64
	for _, p := range projects {
		if p.Valuation != nil {
			sum += *p.Valuation
		}
	}
	return sum
}

func anyNewConstruction(projects []ProjectInput, newConstructionType string) bool {
	for _, p := range projects {
		if strings.EqualFold(p.PermitType, newConstructionType) {
			return true
		}
	}
	return false
}

// scoreOpportunity maps total valuation onto 0-40 via log10 position
// between the $500K and $50M anchors. Monotonically non-decreasing in
// valuation; zero valuation scores 0.
func scoreOpportunity(totalValuation float64) int {
	if totalValuation <= 0 {
		return 0
	}
	normalized := (math.Log10(totalValuation) - opportunityLogLow) / (opportunityLogHigh - opportunityLogLow)
	score := normalized * maxOpportunity
	if score < 0 {
		score = 0
	}
	if score > maxOpportunity {
		score = maxOpportunity
	}
	return int(math.Round(score))
}

// scoreTiming takes the maximum over all projects, not a sum or average:
// one hot project must not be diluted by several cold ones. Returns the
// best score and the label key of the project that produced it.
func scoreTiming(projects []ProjectInput) (int, string) {
	best := 0
	bestStage := "unknown"
	for _, p := range projects {
		score := stageTiming[p.Stage]
		if p.Substage != "" {
			if s, ok := substageTiming[p.Substage]; ok && s > score {
				score = s
			}
		}
		if score > best {
			best = score
			if p.Substage != "" {
				bestStage = p.Substage
			} else {
				bestStage = string(p.Stage)
			}
		}
	}
	return best, bestStage
}

func scoreQuality(projects []ProjectInput, newConstructionType string, now time.Time) int {
	score := 0

	if anyNewConstruction(projects, newConstructionType) {
		score += 8
	}

	active := countActive(projects)
	switch {
	case active >= 5:
		score += 10
	case active >= 3:
		score += 8
	case active >= 2:
		score += 6
	}

	cutoff := now.Add(-recentActivityWindow)
	for _, p := range projects {
		if p.UpdatedAt.After(cutoff) {
			score += 2
			break
		}
	}

	if score > maxQuality {
		score = maxQuality
	}
	return score
}

func scoreReachability(dev DeveloperInput, now time.Time) int {
	score := 0
	if dev.Email != nil && *dev.Email != "" {
		score += 4
	}
	if dev.Phone != nil && *dev.Phone != "" {
		score += 3
	}
	if dev.LinkedInURL != nil && *dev.LinkedInURL != "" {
		score++
	}

	if last, ok := lastOutreach(dev.Outreach); !ok {
		score += 2 // never contacted
	} else if now.Sub(last) > staleOutreachAfter {
		score += 2 // stale, eligible for re-engagement
	}

	if score > maxReachability {
		score = maxReachability
	}
	return score
}

func countActive(projects []ProjectInput) int {
	n := 0
	for _, p := range projects {
		if p.Stage != model.StageCompleted {
			n++
		}
	}
	return n
}

func lastOutreach(outreach []time.Time) (time.Time, bool) {
	if len(outreach) == 0 {
		return time.Time{}, false
	}
	last := outreach[0]
	for _, t := range outreach[1:] {
		if t.After(last) {
			last = t
		}
	}
	return last, true
}

// buildReasoning assembles the fixed-template justification. It is
// regenerable: the same inputs always produce the same sentence.
func buildReasoning(dev DeveloperInput, total int, totalValuation float64, bestStage string, hasNewConstruction bool, now time.Time) string {
	var parts []string

	switch {
	case total >= 70:
		parts = append(parts, "Hot lead:")
	case total >= 40:
		parts = append(parts, "Pipeline lead:")
	default:
		parts = append(parts, "Early-stage lead:")
	}

	parts = append(parts, FormatValuation(totalValuation))

	if hasNewConstruction {
		parts = append(parts, "new construction")
	} else {
		parts = append(parts, "renovation/alteration")
	}

	label, ok := stageLabels[bestStage]
	if !ok {
		label = bestStage
	}
	parts = append(parts, fmt.Sprintf("- %s.", label))

	if active := countActive(dev.Projects); active > 1 {
		parts = append(parts, fmt.Sprintf("%d active projects.", active))
	}

	if last, ok := lastOutreach(dev.Outreach); !ok {
		parts = append(parts, "Never contacted.")
	} else {
		days := int(now.Sub(last).Hours() / 24)
		if days > 90 {
			parts = append(parts, fmt.Sprintf("Last contacted %dd ago.", days))
		} else {
			parts = append(parts, fmt.Sprintf("Contacted %dd ago.", days))
		}
	}

	return strings.Join(parts, " ")
}

// FormatValuation renders a dollar amount the way the justification
// template expects: $12.5M, $750K, or comma-grouped below $1K.
func FormatValuation(val float64) string {
	switch {
	case val >= 1_000_000:
		return fmt.Sprintf("$%.1fM", val/1_000_000)
	case val >= 1_000:
		return fmt.Sprintf("$%.0fK", val/1_000)
	default:
		return usPrinter.Sprintf("$%d", int64(val))
	}
}
