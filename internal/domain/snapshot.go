package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is a detached copy of a cap table. Changing it never affects the
// table it came from.
type Snapshot struct {
	Entries     []Entry         `json:"entries"`
	TotalShares int64           `json:"total_shares"`
	TotalEquity decimal.Decimal `json:"total_equity"`
	TakenAt     time.Time       `json:"taken_at"`
}

// Snapshot copies all entries and sums shares and equity.
func (t *CapTable) Snapshot() Snapshot {
	s := Snapshot{
		Entries:     slices.Clone(t.entries),
		TotalEquity: decimal.Zero,
		TakenAt:     t.cfg.Now(),
	}
	if s.Entries == nil {
		s.Entries = []Entry{}
	}

	for _, e := range s.Entries {
		s.TotalShares += e.Shares
		s.TotalEquity = s.TotalEquity.Add(e.EquityPercent)
	}

	return s
}

// EntriesByKind returns copies of the entries of one kind, in table order.
func (t *CapTable) EntriesByKind(kind Kind) []Entry {
	var out []Entry
	for _, e := range t.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// TotalEquityByKind sums the equity held by one kind.
func (t *CapTable) TotalEquityByKind(kind Kind) decimal.Decimal {
	total := decimal.Zero
	for _, e := range t.entries {
		if e.Kind == kind {
			total = total.Add(e.EquityPercent)
		}
	}
	return total
}

// TeamEquity is founders plus team.
func (t *CapTable) TeamEquity() decimal.Decimal {
	return t.TotalEquityByKind(KindFounder).Add(t.TotalEquityByKind(KindTeam))
}
