// Package domain contains core business types and interfaces.
//
// This file defines the plan catalog and the PlanState snapshot derived from
// an account record. PlanState is never persisted; it is recomputed whenever
// an entitlement decision is needed.
package domain

import "time"

// PlanKind is the normalized entitlement class of an account.
type PlanKind string

const (
	PlanKindFree             PlanKind = "free"
	PlanKindMeteredShortTerm PlanKind = "metered_short_term"
	PlanKindMeteredStandard  PlanKind = "metered_standard"
	PlanKindUnlimited        PlanKind = "unlimited"
)

// IsMetered returns true for plans with a finite download allowance.
func (k PlanKind) IsMetered() bool {
	return k == PlanKindMeteredShortTerm || k == PlanKindMeteredStandard
}

// Plan labels as stored on account records and in payment billing-cycle tags.
const (
	PlanLabelFree             = "free"
	PlanLabelOneDay           = "oneDay"
	PlanLabelBasic            = "basic"
	PlanLabelPremium          = "premium"
	PlanLabelMonthly          = "monthly"
	PlanLabelQuarterly        = "quarterly"
	PlanLabelSixMonth         = "sixMonth"
	PlanLabelInterviewCopilot = "interview_copilot"
)

// UnlimitedDownloads is the DownloadsAllowed sentinel for unlimited plans.
const UnlimitedDownloads int64 = -1

// PlanSpec describes a purchasable plan.
type PlanSpec struct {
	Label        string
	Name         string
	Kind         PlanKind
	Downloads    int64 // UnlimitedDownloads for unlimited plans
	DurationDays int
}

// Unlimited returns true if the plan has no download allowance.
func (p PlanSpec) Unlimited() bool {
	return p.Downloads == UnlimitedDownloads
}

// Duration returns the validity period of a plan purchase.
func (p PlanSpec) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// PlanCatalog maps plan labels to their specs.
var PlanCatalog = map[string]PlanSpec{
	PlanLabelFree: {
		Label: PlanLabelFree, Name: "Free", Kind: PlanKindFree,
		Downloads: 0,
	},
	PlanLabelOneDay: {
		Label: PlanLabelOneDay, Name: "Quick Start", Kind: PlanKindMeteredShortTerm,
		Downloads: 2, DurationDays: 3,
	},
	PlanLabelBasic: {
		Label: PlanLabelBasic, Name: "Starter (Sachet Pack)", Kind: PlanKindMeteredStandard,
		Downloads: 5, DurationDays: 7,
	},
	PlanLabelPremium: {
		Label: PlanLabelPremium, Name: "Premium", Kind: PlanKindUnlimited,
		Downloads: UnlimitedDownloads,
	},
	PlanLabelMonthly: {
		Label: PlanLabelMonthly, Name: "Pro (Job Seeker Choice)", Kind: PlanKindUnlimited,
		Downloads: UnlimitedDownloads, DurationDays: 30,
	},
	PlanLabelQuarterly: {
		Label: PlanLabelQuarterly, Name: "Expert (Career Growth Bundle)", Kind: PlanKindUnlimited,
		Downloads: UnlimitedDownloads, DurationDays: 90,
	},
	PlanLabelSixMonth: {
		Label: PlanLabelSixMonth, Name: "Ultimate (Complete Success Kit)", Kind: PlanKindUnlimited,
		Downloads: UnlimitedDownloads, DurationDays: 180,
	},
	// Legacy label, sold before the six month plan was renamed.
	PlanLabelInterviewCopilot: {
		Label: PlanLabelInterviewCopilot, Name: "Ultimate (Complete Success Kit)", Kind: PlanKindUnlimited,
		Downloads: UnlimitedDownloads, DurationDays: 180,
	},
}

// LookupPlan returns the catalog entry for label and whether it is known.
func LookupPlan(label string) (PlanSpec, bool) {
	spec, ok := PlanCatalog[label]
	return spec, ok
}

// Validity is the computed status of a PlanState at a point in time.
type Validity string

const (
	ValidityActive       Validity = "active"
	ValidityExpired      Validity = "expired"
	ValidityLimitReached Validity = "limit_reached"
)

// PlanState is the normalized, time-sensitive entitlement snapshot of an account.
type PlanState struct {
	Kind             PlanKind
	Label            string     // Catalog label the state was derived from
	ExpiresAt        *time.Time // nil means the plan never expires
	DownloadsUsed    int64
	DownloadsAllowed int64 // UnlimitedDownloads for unlimited plans
	Reconciled       bool  // True when the payment ledger decided the plan
}

// Spec returns the catalog entry behind the state.
func (s PlanState) Spec() PlanSpec {
	if spec, ok := LookupPlan(s.Label); ok {
		return spec
	}
	return PlanCatalog[PlanLabelFree]
}

// Unlimited returns true if the state carries no download allowance.
func (s PlanState) Unlimited() bool {
	return s.DownloadsAllowed == UnlimitedDownloads
}

// Validity computes the status of the plan at now. Expiry is checked before
// the allowance so an expired plan never reports LimitReached.
func (s PlanState) Validity(now time.Time) Validity {
	if s.ExpiresAt != nil && !now.Before(*s.ExpiresAt) {
		return ValidityExpired
	}
	if s.Kind.IsMetered() && s.DownloadsUsed >= s.DownloadsAllowed {
		return ValidityLimitReached
	}
	return ValidityActive
}

// Remaining returns the downloads left on a metered plan, floored at zero,
// or UnlimitedDownloads.
func (s PlanState) Remaining() int64 {
	if s.Unlimited() {
		return UnlimitedDownloads
	}
	if left := s.DownloadsAllowed - s.DownloadsUsed; left > 0 {
		return left
	}
	return 0
}

// WithUsage returns a copy of the state with the counter set to used.
func (s PlanState) WithUsage(used int64) PlanState {
	s.DownloadsUsed = used
	return s
}
