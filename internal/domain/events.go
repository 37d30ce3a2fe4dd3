package domain

import "time"

// Event types
const (
	EventTypeCapTableRecalculated = "captable.recalculated"
	EventTypeStakeholderAdded     = "stakeholder.added"
	EventTypeStakeholderUpdated   = "stakeholder.updated"
	EventTypeStakeholderRemoved   = "stakeholder.removed"
)

// Aggregate types
const (
	AggregateTypeCompany = "company"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// CapTableChangedEvent is the payload of every cap table event.
type CapTableChangedEvent struct {
	CompanyID      string `json:"company_id"`
	EntryID        string `json:"entry_id,omitempty"`
	Kind           string `json:"kind,omitempty"`
	EquityPercent  string `json:"equity_percent,omitempty"`
	TeamEquity     string `json:"team_equity"`
	InvestorEquity string `json:"investor_equity"`
	TotalEquity    string `json:"total_equity"`
	AdjustedCount  int    `json:"adjusted_count"`
}

// ToPayload flattens the event for the outbox.
func (e CapTableChangedEvent) ToPayload() map[string]any {
	payload := map[string]any{
		"company_id":      e.CompanyID,
		"team_equity":     e.TeamEquity,
		"investor_equity": e.InvestorEquity,
		"total_equity":    e.TotalEquity,
		"adjusted_count":  e.AdjustedCount,
	}
	if e.EntryID != "" {
		payload["entry_id"] = e.EntryID
	}
	if e.Kind != "" {
		payload["kind"] = e.Kind
	}
	if e.EquityPercent != "" {
		payload["equity_percent"] = e.EquityPercent
	}
	return payload
}
