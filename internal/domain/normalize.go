package domain

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// ValidationResult is the outcome of a read-only check of the table total.
type ValidationResult struct {
	Valid bool
	Total decimal.Decimal
	Err   error
}

// Message returns the error text, or "" for a valid table.
func (r ValidationResult) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Recalculate restores the sum invariant. When the total is positive and more
// than the tolerance away from 100, every entry is scaled by 100/total and
// rounded to hundredths; the hundredths lost or gained by rounding are handed
// out by largest remainder so the result totals exactly 100. An entry can
// therefore end up one hundredth away from its own rounded share, e.g. three
// equal holders get 33.34, 33.33 and 33.33. Shares are then re-derived for
// every entry. It reports whether a rescale happened.
//
// Recalculate is a fixed point: a second call without mutation changes nothing.
func (t *CapTable) Recalculate() bool {
	total := t.total()

	rescaled := false
	if total.IsPositive() && total.Sub(hundred).Abs().GreaterThan(t.cfg.Tolerance) {
		t.rescale(total)
		rescaled = true
	}

	for i := range t.entries {
		t.entries[i].Shares = t.cfg.SharesFor(t.entries[i].EquityPercent)
	}

	return rescaled
}

type remainder struct {
	idx  int
	frac decimal.Decimal
}

func (t *CapTable) rescale(total decimal.Decimal) {
	parts := make([]remainder, len(t.entries))
	sum := decimal.Zero

	for i, e := range t.entries {
		exact := e.EquityPercent.Mul(hundred).Div(total)
		rounded := exact.Round(2)
		t.entries[i].EquityPercent = rounded
		parts[i] = remainder{idx: i, frac: exact.Sub(rounded)}
		sum = sum.Add(rounded)
	}

	steps := hundred.Sub(sum).Div(hundredth).Round(0).IntPart()
	if steps == 0 {
		return
	}

	step := hundredth
	if steps > 0 {
		// short of 100: bump the entries that were rounded down the most
		slices.SortStableFunc(parts, func(a, b remainder) int { return b.frac.Cmp(a.frac) })
	} else {
		slices.SortStableFunc(parts, func(a, b remainder) int { return a.frac.Cmp(b.frac) })
		step = step.Neg()
		steps = -steps
	}

	for _, p := range parts {
		if steps == 0 {
			break
		}
		next := t.entries[p.idx].EquityPercent.Add(step)
		if next.IsNegative() {
			continue
		}
		t.entries[p.idx].EquityPercent = next
		steps--
	}
}

// Validate checks the total without mutating anything.
func (t *CapTable) Validate() ValidationResult {
	total := t.total()

	if !total.IsPositive() {
		return ValidationResult{
			Total: total,
			Err:   fmt.Errorf("%w: total equity is %s%%", ErrDegenerateTable, total.StringFixed(2)),
		}
	}

	if total.Sub(hundred).Abs().GreaterThan(t.cfg.Tolerance) {
		return ValidationResult{
			Total: total,
			Err: fmt.Errorf("%w: total equity is %s%%, expected 100%% within %s",
				ErrOutOfTolerance, total.StringFixed(2), t.cfg.Tolerance.String()),
		}
	}

	return ValidationResult{Valid: true, Total: total}
}
