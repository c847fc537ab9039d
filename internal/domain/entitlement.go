package domain

import "time"

// Action is something an account may ask to do with a rendered artifact.
type Action string

const (
	ActionDownload Action = "download"
	ActionEmail    Action = "email"
)

// Decision is the outcome of Authorize. Reason is empty when Allow is true.
type Decision struct {
	Allow    bool
	Reason   ErrorKind
	Validity Validity
	Message  string
}

// Authorize decides whether state permits action at now. It performs no I/O.
func Authorize(state PlanState, action Action, now time.Time) Decision {
	validity := state.Validity(now)

	if action != ActionDownload && action != ActionEmail {
		return deny(KindUnsupportedAction, validity, "")
	}

	switch {
	case state.Kind == PlanKindUnlimited:
		return Decision{Allow: true, Validity: validity}

	case state.Kind.IsMetered():
		if validity == ValidityActive {
			return Decision{Allow: true, Validity: validity}
		}
		if action == ActionEmail {
			return deny(KindEmailRequiresPaidPlan, validity, "")
		}
		expired := validity == ValidityExpired
		reason := KindQuotaExceeded
		if expired {
			reason = KindExpired
		}
		return deny(reason, validity, LimitMessage(state.Spec(), expired))
	}

	if action == ActionEmail {
		return deny(KindEmailRequiresPaidPlan, validity, "")
	}
	return deny(KindPlanRequired, validity, "")
}

func deny(reason ErrorKind, validity Validity, message string) Decision {
	if message == "" {
		message = KindMessage(reason)
	}
	return Decision{Allow: false, Reason: reason, Validity: validity, Message: message}
}

// Err converts a denial into a typed refusal error. It returns nil when the
// decision allows the action.
func (d Decision) Err(op string) error {
	if d.Allow {
		return nil
	}
	return RefusedWithMessage(op, d.Reason, d.Message)
}
