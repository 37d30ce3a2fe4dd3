package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCapTable_FundingScenario(t *testing.T) {
	table := NewCapTable(testConfig())

	alice, err := table.AddEntry(KindFounder, "Alice", pct("100"))
	if err != nil {
		t.Fatalf("add Alice: %v", err)
	}
	snap := table.Snapshot()
	if !snap.TotalEquity.Equal(pct("100")) || snap.TotalShares != 1_000_000 {
		t.Fatalf("expected 100%% and 1,000,000 shares, got %s%% and %d", snap.TotalEquity, snap.TotalShares)
	}

	vc, err := table.AddEntry(KindInvestor, "VC1", pct("20"))
	if err != nil {
		t.Fatalf("add VC1: %v", err)
	}
	assertPercent(t, table, alice, "80")
	assertPercent(t, table, vc, "20")
	if e, _ := table.Entry(alice); e.Shares != 800_000 {
		t.Fatalf("expected Alice to hold 800000 shares, got %d", e.Shares)
	}
	if e, _ := table.Entry(vc); e.Shares != 200_000 {
		t.Fatalf("expected VC1 to hold 200000 shares, got %d", e.Shares)
	}

	if err := table.UpdateEntry(alice, pct("60")); err != nil {
		t.Fatalf("update Alice: %v", err)
	}
	assertPercent(t, table, alice, "60")
	assertPercent(t, table, vc, "40")

	if err := table.RemoveEntry(vc); err != nil {
		t.Fatalf("remove VC1: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("expected a single entry, got %d", table.Len())
	}
	assertPercent(t, table, alice, "100")
	if e, _ := table.Entry(alice); e.Shares != 1_000_000 {
		t.Fatalf("expected Alice back at 1000000 shares, got %d", e.Shares)
	}
}

func TestCapTable_AddEntry(t *testing.T) {
	tests := []struct {
		name        string
		existing    []string
		percent     string
		expectError error
	}{
		{name: "zero percent", existing: []string{"100"}, percent: "0", expectError: ErrInvalidPercentage},
		{name: "negative percent", existing: []string{"100"}, percent: "-5", expectError: ErrInvalidPercentage},
		{name: "above 100 on non-empty table", existing: []string{"100"}, percent: "100.01", expectError: ErrCapacityExceeded},
		{name: "above 100 on empty table", percent: "150", expectError: ErrCapacityExceeded},
		{name: "above 100 before rounding", percent: "100.004", expectError: ErrCapacityExceeded},
		{name: "negative before rounding", existing: []string{"100"}, percent: "-0.004", expectError: ErrInvalidPercentage},
		{name: "rounds to zero", existing: []string{"100"}, percent: "0.004", expectError: ErrInvalidPercentage},
		{name: "overfull table", existing: []string{"70", "40"}, percent: "10", expectError: ErrCapacityExceeded},
		{name: "exactly 100 replaces everyone", existing: []string{"60", "40"}, percent: "100"},
		{name: "first entry", percent: "100"},
		{name: "regular round", existing: []string{"60", "40"}, percent: "25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := make([]Entry, len(tt.existing))
			for i, p := range tt.existing {
				entries[i] = Entry{ID: string(rune('a' + i)), Kind: KindFounder, Name: "holder", EquityPercent: pct(p)}
			}
			table, err := NewCapTableFromEntries(testConfig(), entries)
			if err != nil {
				t.Fatalf("setup failed: %v", err)
			}
			before := table.Snapshot()

			_, err = table.AddEntry(KindInvestor, "New", pct(tt.percent))

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Fatalf("expected error %v, got %v", tt.expectError, err)
				}
				after := table.Snapshot()
				if len(after.Entries) != len(before.Entries) {
					t.Fatalf("failed add must not change the table")
				}
				for i := range after.Entries {
					if !after.Entries[i].EquityPercent.Equal(before.Entries[i].EquityPercent) {
						t.Fatalf("failed add changed entry %d", i)
					}
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res := table.Validate(); !res.Valid {
				t.Fatalf("expected valid table, got %s", res.Message())
			}
		})
	}
}

func TestCapTable_AddEntry_CapacityDetails(t *testing.T) {
	table := NewCapTable(testConfig())
	if _, err := table.AddEntry(KindFounder, "Alice", pct("100")); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	_, err := table.AddEntry(KindInvestor, "Whale", pct("100.01"))

	var capErr *CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected *CapacityError, got %T: %v", err, err)
	}
	if !capErr.Current.Equal(pct("100")) || !capErr.Requested.Equal(pct("100.01")) || !capErr.MaxAllowed.Equal(pct("100")) {
		t.Fatalf("unexpected capacity details: %+v", capErr)
	}
}

func TestCapTable_AddEntry_DuplicateGeneratedID(t *testing.T) {
	cfg := testConfig()
	cfg.IDGenerator = func() string { return "same" }
	table := NewCapTable(cfg)

	if _, err := table.AddEntry(KindFounder, "Alice", pct("50")); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if _, err := table.AddEntry(KindFounder, "Bob", pct("50")); !errors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("expected table to keep one entry, got %d", table.Len())
	}
}

func TestCapTable_AddEntry_DilutesProportionally(t *testing.T) {
	table, err := NewCapTableFromEntries(testConfig(), []Entry{
		{ID: "alice", Kind: KindFounder, Name: "Alice", EquityPercent: pct("60")},
		{ID: "bob", Kind: KindTeam, Name: "Bob", EquityPercent: pct("40")},
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	id, err := table.AddEntry(KindInvestor, "Seed", pct("25"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertPercent(t, table, "alice", "45")
	assertPercent(t, table, "bob", "30")
	assertPercent(t, table, id, "25")
}

func TestCapTable_UpdateEntry(t *testing.T) {
	newTable := func(t *testing.T) *CapTable {
		t.Helper()
		table, err := NewCapTableFromEntries(testConfig(), []Entry{
			{ID: "alice", Kind: KindFounder, Name: "Alice", EquityPercent: pct("80")},
			{ID: "vc", Kind: KindInvestor, Name: "VC1", EquityPercent: pct("20")},
		})
		if err != nil {
			t.Fatalf("setup failed: %v", err)
		}
		return table
	}

	tests := []struct {
		name        string
		id          string
		percent     string
		expectError error
		want        map[string]string
	}{
		{name: "unknown id", id: "nobody", percent: "10", expectError: ErrEntryNotFound},
		{name: "negative", id: "alice", percent: "-1", expectError: ErrInvalidPercentage},
		{name: "above 100", id: "alice", percent: "100.5", expectError: ErrInvalidPercentage},
		{name: "above 100 before rounding", id: "alice", percent: "100.004", expectError: ErrInvalidPercentage},
		{name: "negative before rounding", id: "vc", percent: "-0.004", expectError: ErrInvalidPercentage},
		{name: "grow beyond remaining", id: "vc", percent: "40", expectError: ErrCapacityExceeded},
		{name: "shrink redistributes", id: "alice", percent: "60", want: map[string]string{"alice": "60", "vc": "40"}},
		{name: "no change", id: "alice", percent: "80", want: map[string]string{"alice": "80", "vc": "20"}},
		{name: "grow within tolerance", id: "vc", percent: "20.01", want: map[string]string{"alice": "79.99", "vc": "20.01"}},
		{name: "shrink to zero hands everything over", id: "vc", percent: "0", want: map[string]string{"alice": "100", "vc": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := newTable(t)

			err := table.UpdateEntry(tt.id, pct(tt.percent))

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Fatalf("expected error %v, got %v", tt.expectError, err)
				}
				assertPercent(t, table, "alice", "80")
				assertPercent(t, table, "vc", "20")
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for id, want := range tt.want {
				assertPercent(t, table, id, want)
			}
		})
	}
}

func TestCapTable_UpdateEntry_CapacityReportsMaxAllowed(t *testing.T) {
	table, err := NewCapTableFromEntries(testConfig(), []Entry{
		{ID: "alice", Kind: KindFounder, Name: "Alice", EquityPercent: pct("80")},
		{ID: "vc", Kind: KindInvestor, Name: "VC1", EquityPercent: pct("20")},
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	err = table.UpdateEntry("vc", pct("40"))

	var capErr *CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected *CapacityError, got %v", err)
	}
	if !capErr.MaxAllowed.Equal(pct("20")) {
		t.Fatalf("expected max allowed 20, got %s", capErr.MaxAllowed)
	}
}

func TestCapTable_UpdateEntry_RejectsEmptyingTheTable(t *testing.T) {
	table, err := NewCapTableFromEntries(testConfig(), []Entry{
		{ID: "alice", Kind: KindFounder, Name: "Alice", EquityPercent: pct("100")},
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if err := table.UpdateEntry("alice", decimal.Zero); !errors.Is(err, ErrDegenerateTable) {
		t.Fatalf("expected ErrDegenerateTable, got %v", err)
	}
	assertPercent(t, table, "alice", "100")
}

func TestCapTable_UpdateEntry_SoleHolderRenormalizes(t *testing.T) {
	table, err := NewCapTableFromEntries(testConfig(), []Entry{
		{ID: "alice", Kind: KindFounder, Name: "Alice", EquityPercent: pct("100")},
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if err := table.UpdateEntry("alice", pct("50")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertPercent(t, table, "alice", "100")
}

func TestCapTable_RemoveEntry(t *testing.T) {
	table, err := NewCapTableFromEntries(testConfig(), []Entry{
		{ID: "alice", Kind: KindFounder, Name: "Alice", EquityPercent: pct("50")},
		{ID: "bob", Kind: KindTeam, Name: "Bob", EquityPercent: pct("30")},
		{ID: "vc", Kind: KindInvestor, Name: "VC1", EquityPercent: pct("20")},
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if err := table.RemoveEntry("nobody"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}

	if err := table.RemoveEntry("vc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertPercent(t, table, "alice", "62.5")
	assertPercent(t, table, "bob", "37.5")

	if err := table.RemoveEntry("alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertPercent(t, table, "bob", "100")

	if err := table.RemoveEntry("bob"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := table.Snapshot()
	if len(snap.Entries) != 0 || !snap.TotalEquity.IsZero() || snap.TotalShares != 0 {
		t.Fatalf("expected empty table, got %+v", snap)
	}
}

func TestNewCapTableFromEntries_Rejects(t *testing.T) {
	tests := []struct {
		name        string
		entries     []Entry
		expectError error
	}{
		{
			name:        "missing id",
			entries:     []Entry{{Kind: KindTeam, Name: "x", EquityPercent: pct("10")}},
			expectError: ErrInvalidEntry,
		},
		{
			name: "duplicate id",
			entries: []Entry{
				{ID: "a", Kind: KindTeam, EquityPercent: pct("10")},
				{ID: "a", Kind: KindTeam, EquityPercent: pct("10")},
			},
			expectError: ErrDuplicateEntry,
		},
		{
			name:        "invalid kind",
			entries:     []Entry{{ID: "a", EquityPercent: pct("10")}},
			expectError: ErrInvalidKind,
		},
		{
			name:        "percent above 100",
			entries:     []Entry{{ID: "a", Kind: KindTeam, EquityPercent: pct("100.2")}},
			expectError: ErrInvalidPercentage,
		},
		{
			name:        "negative percent",
			entries:     []Entry{{ID: "a", Kind: KindTeam, EquityPercent: pct("-0.5")}},
			expectError: ErrInvalidPercentage,
		},
		{
			name:        "above 100 before rounding",
			entries:     []Entry{{ID: "a", Kind: KindTeam, EquityPercent: pct("100.004")}},
			expectError: ErrInvalidPercentage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCapTableFromEntries(testConfig(), tt.entries)
			if !errors.Is(err, tt.expectError) {
				t.Fatalf("expected error %v, got %v", tt.expectError, err)
			}
		})
	}
}

func TestCapTable_CustomShareStructure(t *testing.T) {
	cfg := testConfig()
	cfg.SharesPerPercent = 100
	table := NewCapTable(cfg)

	id, err := table.AddEntry(KindFounder, "Alice", pct("100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := table.AddEntry(KindInvestor, "Angel", pct("12.34")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := table.Config().TotalShares(); got != 10_000 {
		t.Fatalf("expected 10000 total shares, got %d", got)
	}
	e, _ := table.Entry(id)
	if e.Shares != 8766 {
		t.Fatalf("expected 8766 shares for 87.66%%, got %d", e.Shares)
	}
}
