package domain

import (
	"github.com/shopspring/decimal"
)

// Entry is one stakeholder's stake in the company.
// Shares are always a projection of EquityPercent.
type Entry struct {
	ID            string          `json:"id"`
	Kind          Kind            `json:"kind"`
	Name          string          `json:"name"`
	EquityPercent decimal.Decimal `json:"equity_percent"`
	Shares        int64           `json:"shares"`
}

func (e Entry) withPercent(percent decimal.Decimal, cfg Config) Entry {
	e.EquityPercent = percent
	e.Shares = cfg.SharesFor(percent)
	return e
}

// TeamRow is a founder or team member as loaded from storage.
type TeamRow struct {
	ID            string
	Name          string
	Role          string
	EquityPercent decimal.Decimal
}

// InvestorRow is an investor of a closed round as loaded from storage.
type InvestorRow struct {
	ID            string
	Name          string
	EquityPercent decimal.Decimal
}

// StakeholderData is everything storage knows about one company's ownership.
type StakeholderData struct {
	CompanyID        string
	SharesPerPercent int64
	Team             []TeamRow
	Investors        []InvestorRow
}

// Entries converts the stored rows to entries in team-then-investor order.
// Shares are left for the cap table to derive.
func (d *StakeholderData) Entries() []Entry {
	entries := make([]Entry, 0, len(d.Team)+len(d.Investors))
	for _, row := range d.Team {
		entries = append(entries, Entry{
			ID:            row.ID,
			Kind:          KindForRole(row.Role),
			Name:          row.Name,
			EquityPercent: row.EquityPercent,
		})
	}
	for _, row := range d.Investors {
		entries = append(entries, Entry{
			ID:            row.ID,
			Kind:          KindInvestor,
			Name:          row.Name,
			EquityPercent: row.EquityPercent,
		})
	}
	return entries
}
