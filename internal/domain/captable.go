package domain

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// CapTable tracks fractional ownership of one company and keeps it summing to
// 100% across mutations. It is not safe for concurrent use; callers construct
// one per request and serialize access to the stored rows themselves.
type CapTable struct {
	cfg     Config
	entries []Entry
}

// NewCapTable creates an empty cap table.
func NewCapTable(cfg Config) *CapTable {
	return &CapTable{cfg: cfg.withDefaults()}
}

// NewCapTableFromEntries builds a table from existing entries without diluting
// anyone and without normalizing. Percentages are rounded to hundredths and
// shares re-derived.
func NewCapTableFromEntries(cfg Config, entries []Entry) (*CapTable, error) {
	t := NewCapTable(cfg)
	t.entries = make([]Entry, 0, len(entries))

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: entry %q has no id", ErrInvalidEntry, e.Name)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEntry, e.ID)
		}
		seen[e.ID] = true

		if err := e.Kind.Validate(); err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}

		if e.EquityPercent.IsNegative() || e.EquityPercent.GreaterThan(hundred) {
			return nil, fmt.Errorf("%w: entry %s has %s%%, must be within [0, 100]",
				ErrInvalidPercentage, e.ID, e.EquityPercent.String())
		}

		t.entries = append(t.entries, e.withPercent(e.EquityPercent.Round(2), t.cfg))
	}

	return t, nil
}

// Config returns the effective configuration.
func (t *CapTable) Config() Config {
	return t.cfg
}

// Len returns the number of entries.
func (t *CapTable) Len() int {
	return len(t.entries)
}

// Entry returns a copy of the entry with the given id.
func (t *CapTable) Entry(id string) (Entry, bool) {
	idx, ok := t.index(id)
	if !ok {
		return Entry{}, false
	}
	return t.entries[idx], true
}

// AddEntry issues new equity. Existing holders are diluted pro-rata by the
// complement of the new stake before it is appended, then the table is
// normalized. On error nothing changes.
func (t *CapTable) AddEntry(kind Kind, name string, percent decimal.Decimal) (string, error) {
	if err := kind.Validate(); err != nil {
		return "", err
	}

	// Range checks see the unrounded input.
	current := t.total()
	if percent.GreaterThan(hundred) {
		return "", &CapacityError{Current: current, Requested: percent, MaxAllowed: hundred}
	}
	if !percent.IsPositive() {
		return "", fmt.Errorf("%w: %s%% must be greater than 0", ErrInvalidPercentage, percent.String())
	}

	if percent.Round(2).IsZero() {
		return "", fmt.Errorf("%w: %s%% rounds to 0", ErrInvalidPercentage, percent.String())
	}
	percent = percent.Round(2)

	keep := hundred.Sub(percent).Div(hundred)
	projected := current.Mul(keep).Add(percent)
	if projected.GreaterThan(t.ceiling()) {
		return "", &CapacityError{Current: current, Requested: percent, MaxAllowed: clampZero(hundred.Sub(current))}
	}

	id := t.cfg.IDGenerator()
	if _, exists := t.index(id); exists || id == "" {
		return "", fmt.Errorf("%w: generated id %q", ErrDuplicateEntry, id)
	}

	for i := range t.entries {
		t.entries[i] = t.entries[i].withPercent(t.entries[i].EquityPercent.Mul(keep).Round(2), t.cfg)
	}

	t.entries = append(t.entries, Entry{ID: id, Kind: kind, Name: name}.withPercent(percent, t.cfg))
	t.Recalculate()

	return id, nil
}

// UpdateEntry sets an entry to a new percentage and scales every other entry
// by (100 - new) / (100 - old): growth dilutes the others, shrinkage hands the
// vacated equity back to them pro-rata.
func (t *CapTable) UpdateEntry(id string, percent decimal.Decimal) error {
	idx, ok := t.index(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return fmt.Errorf("%w: %s%% must be within [0, 100]", ErrInvalidPercentage, percent.String())
	}
	percent = percent.Round(2)

	old := t.entries[idx].EquityPercent
	others := t.total().Sub(old)
	if others.Add(percent).GreaterThan(t.ceiling()) {
		return &CapacityError{
			Current:    t.total(),
			Requested:  percent,
			MaxAllowed: clampZero(hundred.Sub(others)),
		}
	}

	if percent.IsZero() && !others.IsPositive() {
		return fmt.Errorf("%w: setting %s to 0%% leaves no equity to normalize", ErrDegenerateTable, id)
	}

	// A holder at 100% leaves nothing to scale against; the others are zero.
	if !percent.Equal(old) && old.LessThan(hundred) {
		factor := hundred.Sub(percent).Div(hundred.Sub(old))
		t.scale(factor, idx)
	}

	t.entries[idx] = t.entries[idx].withPercent(percent, t.cfg)
	t.Recalculate()

	return nil
}

// RemoveEntry drops an entry and redistributes its equity to the remaining
// holders in proportion to what they already hold.
func (t *CapTable) RemoveEntry(id string) error {
	idx, ok := t.index(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	removed := t.entries[idx].EquityPercent
	t.entries = slices.Delete(t.entries, idx, idx+1)

	remaining := t.total()
	if remaining.IsPositive() {
		t.scale(remaining.Add(removed).Div(remaining), -1)
	}

	t.Recalculate()

	return nil
}

// scale multiplies every entry except skip by factor, rounding to hundredths.
func (t *CapTable) scale(factor decimal.Decimal, skip int) {
	for i := range t.entries {
		if i == skip {
			continue
		}
		t.entries[i] = t.entries[i].withPercent(t.entries[i].EquityPercent.Mul(factor).Round(2), t.cfg)
	}
}

func (t *CapTable) index(id string) (int, bool) {
	idx := slices.IndexFunc(t.entries, func(e Entry) bool { return e.ID == id })
	return idx, idx >= 0
}

func (t *CapTable) total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range t.entries {
		total = total.Add(e.EquityPercent)
	}
	return total
}

func (t *CapTable) ceiling() decimal.Decimal {
	return hundred.Add(t.cfg.Tolerance)
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
