package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	n := 0
	return Config{
		IDGenerator: func() string {
			n++
			return fmt.Sprintf("entry-%d", n)
		},
		Now: func() time.Time { return fixedNow },
	}
}

func pct(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertPercent(t *testing.T, table *CapTable, id string, want string) {
	t.Helper()

	e, ok := table.Entry(id)
	if !ok {
		t.Fatalf("entry %s not found", id)
	}
	if !e.EquityPercent.Equal(pct(want)) {
		t.Fatalf("entry %s: expected %s%%, got %s%%", id, want, e.EquityPercent)
	}
}
