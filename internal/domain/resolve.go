package domain

// NeedsReconciliation reports whether the account's plan label is ambiguous
// and the payment ledger must be consulted before resolving it.
func NeedsReconciliation(acct Account) bool {
	return acct.Plan == PlanLabelPremium
}

// ResolvePlanState derives the entitlement snapshot for acct. payments is
// only read when NeedsReconciliation(acct) is true; callers may pass nil
// otherwise.
//
// Rules, in order:
//   - a metered label is trusted as is, and its expiry is only enforced when
//     the account carries one
//   - "premium" is decided by the most recent successful payment: a metered
//     billing cycle yields that metered plan expiring duration days after the
//     payment, anything else (or no successful payment) yields Unlimited
//   - other known unlimited labels yield Unlimited
//   - everything else is Free
func ResolvePlanState(acct Account, payments []Payment) PlanState {
	spec, ok := LookupPlan(acct.Plan)
	if !ok {
		return freeState(acct)
	}

	switch {
	case spec.Kind.IsMetered():
		return PlanState{
			Kind:             spec.Kind,
			Label:            spec.Label,
			ExpiresAt:        acct.PremiumExpiry,
			DownloadsUsed:    acct.DownloadCount,
			DownloadsAllowed: spec.Downloads,
		}

	case NeedsReconciliation(acct):
		return reconcile(acct, payments)

	case spec.Kind == PlanKindUnlimited:
		return unlimitedState(acct, spec.Label, false)
	}

	return freeState(acct)
}

func reconcile(acct Account, payments []Payment) PlanState {
	latest, ok := latestSuccessfulPayment(payments)
	if !ok {
		return unlimitedState(acct, PlanLabelPremium, true)
	}

	spec, known := LookupPlan(latest.BillingCycle)
	if !known || !spec.Kind.IsMetered() {
		return unlimitedState(acct, PlanLabelPremium, true)
	}

	expiresAt := latest.CreatedAt.Add(spec.Duration())
	return PlanState{
		Kind:             spec.Kind,
		Label:            spec.Label,
		ExpiresAt:        &expiresAt,
		DownloadsUsed:    acct.DownloadCount,
		DownloadsAllowed: spec.Downloads,
		Reconciled:       true,
	}
}

func latestSuccessfulPayment(payments []Payment) (Payment, bool) {
	var (
		latest Payment
		found  bool
	)
	for _, p := range payments {
		if !p.Succeeded() {
			continue
		}
		if !found || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
			found = true
		}
	}
	return latest, found
}

func unlimitedState(acct Account, label string, reconciled bool) PlanState {
	return PlanState{
		Kind:             PlanKindUnlimited,
		Label:            label,
		DownloadsUsed:    acct.DownloadCount,
		DownloadsAllowed: UnlimitedDownloads,
		Reconciled:       reconciled,
	}
}

func freeState(acct Account) PlanState {
	return PlanState{
		Kind:             PlanKindFree,
		Label:            PlanLabelFree,
		DownloadsUsed:    acct.DownloadCount,
		DownloadsAllowed: 0,
	}
}
