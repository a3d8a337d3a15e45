package model

// Stage is the coarse pipeline position of a project, derived from its
// permit status text.
type Stage string

const (
	StageEntitlement  Stage = "entitlement"
	StagePermitted    Stage = "permitted"
	StageConstruction Stage = "construction"
	StageCompleted    Stage = "completed"
)

// Substage refines a Stage. Empty means the source gave us no pre-issuance
// granularity for the project.
const (
	SubstageSubmitted       = "submitted"
	SubstagePlanCheck       = "plan_check"
	SubstagePCApproved      = "pc_approved"
	SubstageReadyToIssue    = "ready_to_issue"
	SubstageIssued          = "issued"
	SubstageUnderInspection = "under_inspection"
	SubstageCofOIssued      = "cofo_issued"
	SubstageFinaled         = "finaled"
	SubstageExpired         = "expired"
)

// Financing is the coarse capital need a project's stage implies.
type Financing string

const (
	FinancingPredevelopment Financing = "predevelopment"
	FinancingConstruction   Financing = "construction"
	FinancingBridge         Financing = "bridge"
	FinancingPermanent      Financing = "permanent"
)
