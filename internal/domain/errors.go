package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Entry errors
	ErrInvalidPercentage = errors.New("invalid equity percentage")
	ErrInvalidKind       = errors.New("invalid stakeholder kind")
	ErrEntryNotFound     = errors.New("cap table entry not found")
	ErrInvalidEntry      = errors.New("invalid cap table entry")
	ErrDuplicateEntry    = errors.New("duplicate cap table entry")

	// Table errors
	ErrCapacityExceeded = errors.New("equity capacity exceeded")
	ErrDegenerateTable  = errors.New("cap table total is zero or negative")
	ErrOutOfTolerance   = errors.New("cap table total is outside tolerance")

	// Company errors
	ErrCompanyNotFound = errors.New("company not found")
)

// CapacityError reports a mutation that would push the table above 100%.
// It carries what a caller needs to retry with an acceptable value.
type CapacityError struct {
	Current    decimal.Decimal
	Requested  decimal.Decimal
	MaxAllowed decimal.Decimal
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: requested %s%% with current total %s%%, maximum allowed is %s%%",
		ErrCapacityExceeded,
		e.Requested.StringFixed(2),
		e.Current.StringFixed(2),
		e.MaxAllowed.StringFixed(2),
	)
}

// Unwrap lets errors.Is match ErrCapacityExceeded.
func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

// ErrorCode returns a stable snake_case label for an error, used for metrics
// and API responses.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidPercentage):
		return "invalid_percentage"
	case errors.Is(err, ErrInvalidStakeholderName), errors.Is(err, ErrInvalidIDFormat):
		return "invalid_request"
	case errors.Is(err, ErrInvalidKind):
		return "invalid_kind"
	case errors.Is(err, ErrEntryNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidEntry):
		return "invalid_entry"
	case errors.Is(err, ErrDuplicateEntry):
		return "duplicate_entry"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrDegenerateTable):
		return "degenerate_table"
	case errors.Is(err, ErrOutOfTolerance):
		return "out_of_tolerance"
	case errors.Is(err, ErrCompanyNotFound):
		return "company_not_found"
	default:
		return "internal"
	}
}
