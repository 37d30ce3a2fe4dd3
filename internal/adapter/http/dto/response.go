package dto

import (
	"errors"
	"time"

	"github.com/iho/captable/internal/domain"
	"github.com/iho/captable/internal/usecase"
)

// EntryResponse represents one stakeholder in API responses.
type EntryResponse struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Name          string `json:"name"`
	EquityPercent string `json:"equity_percent"`
	Shares        int64  `json:"shares"`
}

// SummaryResponse represents a cap table in API responses. Percentages are
// rendered to hundredths.
type SummaryResponse struct {
	CompanyID      string          `json:"company_id"`
	EntryID        string          `json:"entry_id,omitempty"`
	TeamEquity     string          `json:"team_equity"`
	InvestorEquity string          `json:"investor_equity"`
	TotalEquity    string          `json:"total_equity"`
	TotalShares    int64           `json:"total_shares"`
	Normalized     bool            `json:"normalized"`
	Adjusted       int             `json:"adjusted"`
	Entries        []EntryResponse `json:"entries"`
	TakenAt        time.Time       `json:"taken_at"`
}

// SummaryFromUseCase converts a use case summary to a response.
func SummaryFromUseCase(s *usecase.Summary) *SummaryResponse {
	entries := make([]EntryResponse, len(s.Snapshot.Entries))
	for i, e := range s.Snapshot.Entries {
		entries[i] = EntryResponse{
			ID:            e.ID,
			Kind:          e.Kind.String(),
			Name:          e.Name,
			EquityPercent: e.EquityPercent.StringFixed(2),
			Shares:        e.Shares,
		}
	}

	return &SummaryResponse{
		CompanyID:      s.CompanyID,
		EntryID:        s.EntryID,
		TeamEquity:     s.TeamEquity.StringFixed(2),
		InvestorEquity: s.InvestorEquity.StringFixed(2),
		TotalEquity:    s.TotalEquity.StringFixed(2),
		TotalShares:    s.TotalShares,
		Normalized:     s.Normalized,
		Adjusted:       s.Adjusted,
		Entries:        entries,
		TakenAt:        s.Snapshot.TakenAt,
	}
}

// ValidationResponse represents the result of a validation.
type ValidationResponse struct {
	CompanyID   string `json:"company_id"`
	Valid       bool   `json:"valid"`
	TotalEquity string `json:"total_equity"`
	Code        string `json:"code,omitempty"`
	Message     string `json:"message,omitempty"`
}

// ValidationFromDomain converts a validation result to a response.
func ValidationFromDomain(companyID string, r domain.ValidationResult) *ValidationResponse {
	return &ValidationResponse{
		CompanyID:   companyID,
		Valid:       r.Valid,
		TotalEquity: r.Total.StringFixed(2),
		Code:        domain.ErrorCode(r.Err),
		Message:     r.Message(),
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// ErrorFromDomain builds an error response. Capacity errors carry the values a
// caller needs to retry: current_total, requested and max_allowed.
func ErrorFromDomain(message string, err error) *ErrorResponse {
	resp := &ErrorResponse{
		Error:   message,
		Code:    domain.ErrorCode(err),
		Message: err.Error(),
	}

	var capErr *domain.CapacityError
	if errors.As(err, &capErr) {
		resp.Details = map[string]string{
			"current_total": capErr.Current.StringFixed(2),
			"requested":     capErr.Requested.StringFixed(2),
			"max_allowed":   capErr.MaxAllowed.StringFixed(2),
		}
	}

	return resp
}
