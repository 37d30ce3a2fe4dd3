package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidStakeholderName = errors.New("invalid stakeholder name")
	ErrInvalidIDFormat        = errors.New("invalid ID format")
)

// Validation constants
const (
	MaxStakeholderNameLength = 255
	MinStakeholderNameLength = 1
	MaxIDLength              = 64
)

// ValidateStakeholderName validates a display name. Names need not be unique.
func ValidateStakeholderName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) < MinStakeholderNameLength {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidStakeholderName)
	}

	if len(name) > MaxStakeholderNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidStakeholderName, MaxStakeholderNameLength)
	}

	return nil
}

// ValidateID validates an externally assigned identifier.
func ValidateID(id string) error {
	if id == "" || len(id) > MaxIDLength {
		return fmt.Errorf("%w: %q", ErrInvalidIDFormat, id)
	}

	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidIDFormat, id, r)
		}
	}

	return nil
}

// ParsePercent parses a percentage such as "12.5" or "12.5%".
func ParsePercent(s string) (decimal.Decimal, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidPercentage, s)
	}

	return d, nil
}

// FormatPercent renders a percentage to hundredths, e.g. "62.50%".
func FormatPercent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}
