package domain

// FromExternalData loads a table that storage already holds in (approximately)
// normalized form. It never dilutes: percentages are taken as stored, shares
// derived from them, and one Recalculate corrects rounding drift accumulated
// by earlier sessions. Use AddEntry only for new issuance.
func FromExternalData(cfg Config, team []TeamRow, investors []InvestorRow) (*CapTable, error) {
	data := StakeholderData{Team: team, Investors: investors}

	t, err := NewCapTableFromEntries(cfg, data.Entries())
	if err != nil {
		return nil, err
	}

	t.Recalculate()

	return t, nil
}
