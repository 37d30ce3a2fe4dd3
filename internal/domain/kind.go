package domain

import (
	"fmt"
	"strings"
)

// Kind classifies a stakeholder. It drives aggregation and reporting, never the
// dilution math.
type Kind int

const (
	KindFounder Kind = iota + 1
	KindTeam
	KindInvestor
)

// Kinds lists every valid kind in reporting order.
var Kinds = []Kind{KindFounder, KindTeam, KindInvestor}

// String returns the storage/wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindFounder:
		return "founder"
	case KindTeam:
		return "team"
	case KindInvestor:
		return "investor"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Validate returns ErrInvalidKind for values outside the closed set.
func (k Kind) Validate() error {
	switch k {
	case KindFounder, KindTeam, KindInvestor:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidKind, int(k))
	}
}

// IsTeamSide reports whether the kind is stored and reported with the team.
func (k Kind) IsTeamSide() bool {
	switch k {
	case KindFounder, KindTeam:
		return true
	case KindInvestor:
		return false
	default:
		return false
	}
}

// ParseKind parses a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "founder":
		return KindFounder, nil
	case "team":
		return KindTeam, nil
	case "investor":
		return KindInvestor, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// KindForRole maps a team member's free-form role to a kind. Any role containing
// "founder" (Founder, Co-Founder) is a founder; everything else is team.
func KindForRole(role string) Kind {
	if strings.Contains(strings.ToLower(role), "founder") {
		return KindFounder
	}
	return KindTeam
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
