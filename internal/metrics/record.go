package metrics

import "time"

// DeliveryAttempt records one strategy attempt. result is "ok" or an error kind.
func DeliveryAttempt(method, result string) {
	DeliveryAttemptsTotal.WithLabelValues(method, result).Inc()
}

// DeliveryFinished records the outcome of a whole delivery.
func DeliveryFinished(method, outcome string, size int, duration time.Duration) {
	DeliveriesTotal.WithLabelValues(method, outcome).Inc()
	DeliveryDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if size > 0 {
		ArtifactBytes.Observe(float64(size))
	}
}

// EntitlementDecided records a gate decision.
func EntitlementDecided(action, result string) {
	EntitlementDecisions.WithLabelValues(action, result).Inc()
}

// JobCompleted records a successful job completion
func JobCompleted(jobType string, duration time.Duration) {
	JobsTotal.WithLabelValues(jobType, "completed").Inc()
	JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// JobFailed records a job failure
func JobFailed(jobType string) {
	JobsTotal.WithLabelValues(jobType, "failed").Inc()
}

// JobRetried records a job retry attempt
func JobRetried(jobType string) {
	JobRetriesTotal.WithLabelValues(jobType).Inc()
}
