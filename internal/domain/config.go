package domain

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// DefaultSharesPerPercent gives 1,000,000 authorized shares.
const DefaultSharesPerPercent int64 = 10_000

var (
	hundred   = decimal.NewFromInt(100)
	hundredth = decimal.New(1, -2)

	// DefaultTolerance is how far from 100 a table total may drift.
	DefaultTolerance = hundredth
)

// Config describes the share structure and collaborators of one cap table.
type Config struct {
	SharesPerPercent int64
	Tolerance        decimal.Decimal
	IDGenerator      func() string
	Now              func() time.Time
}

// DefaultConfig returns a config for 1,000,000 shares and a 0.01 tolerance.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.SharesPerPercent <= 0 {
		c.SharesPerPercent = DefaultSharesPerPercent
	}
	if !c.Tolerance.IsPositive() {
		c.Tolerance = DefaultTolerance
	}
	if c.IDGenerator == nil {
		c.IDGenerator = func() string { return ulid.Make().String() }
	}
	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}
	return c
}

// TotalShares is the fully diluted share count.
func (c Config) TotalShares() int64 {
	return 100 * c.withDefaults().SharesPerPercent
}

// SharesFor projects a percentage onto the share structure.
func (c Config) SharesFor(percent decimal.Decimal) int64 {
	return percent.Mul(decimal.NewFromInt(c.withDefaults().SharesPerPercent)).Round(0).IntPart()
}
