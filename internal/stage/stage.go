// Package stage maps free-text permit status strings onto the project
// pipeline: a coarse stage, an optional substage, and the financing
// category that position implies.
package stage

import (
	"strings"

	"github.com/sells-group/permit-scout/internal/model"
)

// Classification is the three-part pipeline position derived from a
// status string.
type Classification struct {
	Stage     model.Stage
	Substage  string
	Financing model.Financing
}

// rule matches any of its keywords as a substring of the lower-cased
// status text.
type rule struct {
	keywords []string
	result   Classification
}

// The rules are ordered most-advanced-state-first. Several keywords are
// substrings of multiple real-world status strings ("issued" appears in
// "Permit Issued", "CofO Issued" and "Ready to Issue"; "inspection"
// appears in statuses on finaled permits), so the first match must be the
// most advanced state or a partial hit would downgrade a project's
// apparent progress. Do not reorder.
var rules = []rule{
	{[]string{"finaled", "permit finaled"}, Classification{model.StageCompleted, model.SubstageFinaled, model.FinancingPermanent}},
	{[]string{"expired", "closed", "withdrawn"}, Classification{model.StageCompleted, model.SubstageExpired, model.FinancingPermanent}},
	{[]string{"cofo", "certificate of occupancy", "c of o"}, Classification{model.StageCompleted, model.SubstageCofOIssued, model.FinancingPermanent}},
	{[]string{"under inspection", "inspection"}, Classification{model.StageConstruction, model.SubstageUnderInspection, model.FinancingBridge}},
	{[]string{"issued", "permit issued"}, Classification{model.StagePermitted, model.SubstageIssued, model.FinancingConstruction}},
	{[]string{"ready to issue", "rti"}, Classification{model.StageEntitlement, model.SubstageReadyToIssue, model.FinancingPredevelopment}},
	{[]string{"pc approved", "plan check approved", "approved"}, Classification{model.StageEntitlement, model.SubstagePCApproved, model.FinancingPredevelopment}},
	{[]string{"plan check", "in plan check"}, Classification{model.StageEntitlement, model.SubstagePlanCheck, model.FinancingPredevelopment}},
	{[]string{"submitted", "application"}, Classification{model.StageEntitlement, model.SubstageSubmitted, model.FinancingPredevelopment}},
}

// Classify maps a raw status string to its pipeline position. Unmatched
// or empty text defaults to early entitlement with no substage.
func Classify(status string) Classification {
	s := strings.ToLower(strings.TrimSpace(status))
	if s != "" {
		for _, r := range rules {
			for _, kw := range r.keywords {
				if strings.Contains(s, kw) {
					return r.result
				}
			}
		}
	}
	return Classification{
		Stage:     model.StageEntitlement,
		Substage:  "",
		Financing: model.FinancingPredevelopment,
	}
}
