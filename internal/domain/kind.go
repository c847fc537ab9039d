package domain

import "fmt"

// ErrorKind classifies why an entitlement check or a delivery failed.
type ErrorKind string

const (
	KindTimeout                ErrorKind = "timeout"
	KindNetworkError           ErrorKind = "network_error"
	KindPermissionBlocked      ErrorKind = "permission_blocked"
	KindInvalidArtifact        ErrorKind = "invalid_artifact"
	KindPlanRequired           ErrorKind = "plan_required"
	KindExpired                ErrorKind = "expired"
	KindQuotaExceeded          ErrorKind = "quota_exceeded"
	KindEmailRequiresPaidPlan  ErrorKind = "email_requires_paid_plan"
	KindAllStrategiesExhausted ErrorKind = "all_strategies_exhausted"
	KindCanceled               ErrorKind = "canceled"
	KindUnsupportedAction      ErrorKind = "unsupported_action"
	KindUnknown                ErrorKind = "unknown"
)

const genericFailureMessage = "Download failed. Please try again or contact support if the problem persists."

var kindMessages = map[ErrorKind]string{
	KindTimeout:                "Download timed out. The file might be large. Please try again.",
	KindNetworkError:           "Network error. Please check your internet connection and try again.",
	KindPermissionBlocked:      "Download blocked by browser. Please allow downloads for this site.",
	KindInvalidArtifact:        "The generated PDF was empty. Please try again.",
	KindPlanRequired:           "Please purchase a plan to download your resume.",
	KindExpired:                "Your plan has expired. Please purchase a new plan to continue downloading.",
	KindQuotaExceeded:          "You've used all downloads from your plan. Please upgrade to Pro for unlimited downloads!",
	KindEmailRequiresPaidPlan:  "Email PDF is available for Premium users only",
	KindAllStrategiesExhausted: genericFailureMessage,
	KindCanceled:               "Download was cancelled. Please try again.",
	KindUnsupportedAction:      "This action is not supported.",
}

// KindMessage returns the user-facing message for kind. It is total: every
// kind, including ones it has never seen, yields a non-empty message.
func KindMessage(kind ErrorKind) string {
	if msg, ok := kindMessages[kind]; ok {
		return msg
	}
	return genericFailureMessage
}

// Retryable reports whether a delivery step that failed with this kind may
// succeed on another attempt.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindTimeout, KindNetworkError, KindUnknown:
		return true
	default:
		return false
	}
}

// IsRefusal reports whether the kind comes from the entitlement gate rather
// than from delivery.
func (k ErrorKind) IsRefusal() bool {
	switch k {
	case KindPlanRequired, KindExpired, KindQuotaExceeded, KindEmailRequiresPaidPlan, KindUnsupportedAction:
		return true
	default:
		return false
	}
}

// LimitMessage returns the plan-specific text shown when a metered plan can
// no longer download.
func LimitMessage(spec PlanSpec, expired bool) string {
	noun := "download"
	if spec.Downloads != 1 {
		noun = "downloads"
	}
	if expired {
		return fmt.Sprintf("Your %s has expired. Purchase a new %s to get %d more %s.",
			spec.Name, spec.Name, spec.Downloads, noun)
	}
	return fmt.Sprintf("You've used all %d %s from your %s. Please upgrade to Pro for unlimited downloads!",
		spec.Downloads, noun, spec.Name)
}

// RemainingMessage returns the notice shown after a successful metered download.
func RemainingMessage(remaining int64) string {
	if remaining == 1 {
		return "Download successful! 1 download remaining."
	}
	return fmt.Sprintf("Download successful! %d downloads remaining.", remaining)
}
