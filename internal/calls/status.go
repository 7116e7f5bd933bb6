package calls

// AnalysisStatus is the lifecycle label of a call's analysis.
type AnalysisStatus string

const (
	AnalysisPending        AnalysisStatus = "pending"
	AnalysisProcessing     AnalysisStatus = "processing"
	AnalysisAIProcessing   AnalysisStatus = "ai_processing"
	AnalysisCompleted      AnalysisStatus = "completed"
	AnalysisFailed         AnalysisStatus = "failed"
	AnalysisPendingConfig  AnalysisStatus = "pending_config"
	AnalysisFunctionFailed AnalysisStatus = "function_failed"
)

// allStatuses fixes the iteration order used for SQL placeholders.
var allStatuses = []AnalysisStatus{
	AnalysisPending,
	AnalysisProcessing,
	AnalysisAIProcessing,
	AnalysisCompleted,
	AnalysisFailed,
	AnalysisPendingConfig,
	AnalysisFunctionFailed,
}

var transitions = map[AnalysisStatus][]AnalysisStatus{
	AnalysisPending:        {AnalysisProcessing, AnalysisFunctionFailed},
	AnalysisProcessing:     {AnalysisAIProcessing, AnalysisCompleted, AnalysisFailed, AnalysisPendingConfig, AnalysisFunctionFailed},
	AnalysisAIProcessing:   {AnalysisProcessing, AnalysisCompleted, AnalysisFailed, AnalysisFunctionFailed},
	AnalysisCompleted:      {},
	AnalysisFailed:         {AnalysisProcessing, AnalysisFunctionFailed},
	AnalysisPendingConfig:  {AnalysisProcessing, AnalysisFunctionFailed},
	AnalysisFunctionFailed: {AnalysisProcessing},
}

// Valid reports whether s is a known status.
func (s AnalysisStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// normalize maps the empty status of freshly created legacy records to pending.
func (s AnalysisStatus) normalize() AnalysisStatus {
	if s == "" {
		return AnalysisPending
	}
	return s
}

// CanTransitionTo reports whether the table allows s -> to.
func (s AnalysisStatus) CanTransitionTo(to AnalysisStatus) bool {
	for _, next := range transitions[s.normalize()] {
		if next == to {
			return true
		}
	}
	return false
}

// Busy reports whether a finalize event must be skipped for a record in s.
func (s AnalysisStatus) Busy() bool {
	return s == AnalysisProcessing || s == AnalysisCompleted
}

// Terminal reports whether s ends an invocation of the relay.
func (s AnalysisStatus) Terminal() bool {
	switch s {
	case AnalysisCompleted, AnalysisFailed, AnalysisPendingConfig, AnalysisFunctionFailed:
		return true
	default:
		return false
	}
}

// AllowedFrom lists the statuses that may transition to to, in a stable order.
func AllowedFrom(to AnalysisStatus) []AnalysisStatus {
	var out []AnalysisStatus
	for _, from := range allStatuses {
		if from.CanTransitionTo(to) {
			out = append(out, from)
		}
	}
	return out
}
