package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultSummaryTTL is how long a computed summary stays cached
	DefaultSummaryTTL = 5 * time.Minute

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)

// Operation names reported to the Recorder.
const (
	OpRecalculate       = "recalculate"
	OpAddStakeholder    = "add_stakeholder"
	OpUpdateEquity      = "update_equity"
	OpRemoveStakeholder = "remove_stakeholder"
	OpGetSummary        = "get_summary"
	OpValidate          = "validate"
)

func summaryCacheKey(companyID string) string {
	return "captable:summary:" + companyID
}
