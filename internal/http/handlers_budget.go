package http

import (
	"net/http"

	"cadenza/internal/core"
)

type budgetJSON struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	AmountCents    int64  `json:"amount_cents"`
	SpentCents     int64  `json:"spent_cents"`
	Period         string `json:"period"`
	Rollover       bool   `json:"rollover"`
	AlertThreshold int    `json:"alert_threshold"`
	IsActive       bool   `json:"is_active"`
	LastReset      string `json:"last_reset,omitempty"`
}

type progressJSON struct {
	BudgetID       string  `json:"budget_id"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	Percentage     float64 `json:"percentage"`
	RemainingCents int64   `json:"remaining_cents"`
	IsOverBudget   bool    `json:"is_over_budget"`
	AlertReached   bool    `json:"alert_reached"`
	DaysRemaining  int     `json:"days_remaining"`
}

func toBudgetJSON(b core.Budget) budgetJSON {
	return budgetJSON{
		ID:             b.ID,
		Name:           b.Name,
		Category:       b.Category,
		AmountCents:    b.Amount.Cents,
		SpentCents:     b.SpentCents,
		Period:         string(b.Period),
		Rollover:       b.Rollover,
		AlertThreshold: b.AlertThreshold,
		IsActive:       b.IsActive,
		LastReset:      b.LastReset,
	}
}

func toProgressJSON(p core.BudgetProgress) progressJSON {
	return progressJSON{
		BudgetID:       p.BudgetID,
		Name:           p.Name,
		Category:       p.Category,
		Percentage:     p.Percentage,
		RemainingCents: p.Remaining.Cents,
		IsOverBudget:   p.IsOverBudget,
		AlertReached:   p.AlertReached,
		DaysRemaining:  p.DaysRemaining,
	}
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.budgetService.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]budgetJSON, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetJSON(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.budgetService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetJSON(b))
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	b, err := req.parseBudget()
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := b.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
		return
	}

	saved, err := s.budgetService.Create(r.Context(), b, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateProgress()
	writeJSON(w, http.StatusCreated, toBudgetJSON(saved))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	b, err := req.parseBudget()
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	b.ID = r.PathValue("id")
	b.IsActive = req.IsActive == nil || *req.IsActive
	if err := b.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
		return
	}

	updated, err := s.budgetService.Update(r.Context(), b)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateProgress()
	writeJSON(w, http.StatusOK, toBudgetJSON(updated))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.budgetService.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateProgress()
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request) {
	if cached, found := s.progressCache.Get(progressCacheKey); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	progress, err := s.budgetService.ProgressAll(r.Context(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]progressJSON, 0, len(progress))
	for _, p := range progress {
		out = append(out, toProgressJSON(p))
	}

	s.progressCache.Set(progressCacheKey, out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleResetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.budgetService.Reset(r.Context(), r.PathValue("id"), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateProgress()
	writeJSON(w, http.StatusOK, toBudgetJSON(b))
}
