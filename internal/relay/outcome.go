package relay

// Outcome names how one relay invocation ended.
type Outcome string

const (
	OutcomeIgnored        Outcome = "ignored"
	OutcomeMalformed      Outcome = "malformed"
	OutcomeRecordMissing  Outcome = "record_missing"
	OutcomeDuplicate      Outcome = "duplicate"
	OutcomePendingConfig  Outcome = "pending_config"
	OutcomeAccepted       Outcome = "accepted"
	OutcomeCompleted      Outcome = "completed"
	OutcomeFailed         Outcome = "failed"
	OutcomeFunctionFailed Outcome = "function_failed"
	// OutcomeError is an unexpected fault before the record was resolved;
	// nothing was written.
	OutcomeError Outcome = "error"
)
