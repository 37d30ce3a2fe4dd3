package dto

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/captable/internal/domain"
	"github.com/iho/captable/internal/usecase"
)

// AddStakeholderRequest represents a request to issue equity to a new stakeholder.
type AddStakeholderRequest struct {
	Kind          string           `json:"kind"`
	Name          string           `json:"name"`
	EquityPercent *decimal.Decimal `json:"equity_percent"`
}

// ToUseCaseInput converts to use case input.
func (r *AddStakeholderRequest) ToUseCaseInput() (usecase.AddStakeholderInput, error) {
	kind, err := domain.ParseKind(r.Kind)
	if err != nil {
		return usecase.AddStakeholderInput{}, err
	}

	if r.EquityPercent == nil {
		return usecase.AddStakeholderInput{}, fmt.Errorf("%w: equity_percent is required", domain.ErrInvalidPercentage)
	}

	return usecase.AddStakeholderInput{
		Kind:          kind,
		Name:          r.Name,
		EquityPercent: *r.EquityPercent,
	}, nil
}

// UpdateEquityRequest represents a request to change a stakeholder's percentage.
type UpdateEquityRequest struct {
	EquityPercent *decimal.Decimal `json:"equity_percent"`
}

// Percent returns the requested percentage.
func (r *UpdateEquityRequest) Percent() (decimal.Decimal, error) {
	if r.EquityPercent == nil {
		return decimal.Zero, fmt.Errorf("%w: equity_percent is required", domain.ErrInvalidPercentage)
	}
	return *r.EquityPercent, nil
}
