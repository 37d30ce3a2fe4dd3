package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/captable/internal/adapter/http/dto"
	"github.com/iho/captable/internal/domain"
	"github.com/iho/captable/internal/usecase"
)

// CapTableService defines the behavior needed by CapTableHandler.
type CapTableService interface {
	GetSummary(ctx context.Context, companyID string) (*usecase.Summary, error)
	Recalculate(ctx context.Context, companyID string) (*usecase.Summary, error)
	Validate(ctx context.Context, companyID string) (domain.ValidationResult, error)
	AddStakeholder(ctx context.Context, companyID string, input usecase.AddStakeholderInput) (*usecase.Summary, error)
	UpdateEquity(ctx context.Context, companyID, entryID string, percent decimal.Decimal) (*usecase.Summary, error)
	RemoveStakeholder(ctx context.Context, companyID, entryID string) (*usecase.Summary, error)
}

// CapTableHandler handles cap table HTTP requests.
type CapTableHandler struct {
	capTableUC CapTableService
}

// NewCapTableHandler creates a new CapTableHandler.
func NewCapTableHandler(capTableUC CapTableService) *CapTableHandler {
	return &CapTableHandler{capTableUC: capTableUC}
}

// Summary returns the current cap table of a company.
func (h *CapTableHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.capTableUC.GetSummary(r.Context(), chi.URLParam(r, "companyID"))
	if err != nil {
		writeDomainError(w, r, "failed to get cap table", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SummaryFromUseCase(summary))
}

// Recalculate normalizes and persists the cap table of a company.
func (h *CapTableHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	summary, err := h.capTableUC.Recalculate(r.Context(), chi.URLParam(r, "companyID"))
	if err != nil {
		writeDomainError(w, r, "failed to recalculate cap table", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SummaryFromUseCase(summary))
}

// Validate reports whether the stored cap table sums to 100%. An invalid
// table is a successful report, not a request failure.
func (h *CapTableHandler) Validate(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")

	result, err := h.capTableUC.Validate(r.Context(), companyID)
	if err != nil {
		writeDomainError(w, r, "failed to validate cap table", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ValidationFromDomain(companyID, result))
}

// AddStakeholder issues equity to a new stakeholder, diluting the others.
func (h *CapTableHandler) AddStakeholder(w http.ResponseWriter, r *http.Request) {
	var req dto.AddStakeholderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, "invalid stakeholder", err)
		return
	}

	summary, err := h.capTableUC.AddStakeholder(r.Context(), chi.URLParam(r, "companyID"), input)
	if err != nil {
		writeDomainError(w, r, "failed to add stakeholder", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SummaryFromUseCase(summary))
}

// UpdateEquity changes one stakeholder's percentage.
func (h *CapTableHandler) UpdateEquity(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateEquityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	percent, err := req.Percent()
	if err != nil {
		writeDomainError(w, r, "invalid equity", err)
		return
	}

	summary, err := h.capTableUC.UpdateEquity(r.Context(), chi.URLParam(r, "companyID"), chi.URLParam(r, "id"), percent)
	if err != nil {
		writeDomainError(w, r, "failed to update equity", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SummaryFromUseCase(summary))
}

// RemoveStakeholder removes a stakeholder and redistributes their equity.
func (h *CapTableHandler) RemoveStakeholder(w http.ResponseWriter, r *http.Request) {
	summary, err := h.capTableUC.RemoveStakeholder(r.Context(), chi.URLParam(r, "companyID"), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to remove stakeholder", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SummaryFromUseCase(summary))
}
