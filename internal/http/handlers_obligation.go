package http

import (
	"net/http"
	"strconv"

	"cadenza/internal/core"
)

type obligationJSON struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	AmountCents    int64  `json:"amount_cents"`
	Direction      string `json:"direction"`
	Category       string `json:"category"`
	AccountID      string `json:"account_id,omitempty"`
	ToAccount      string `json:"to_account,omitempty"`
	Method         string `json:"method,omitempty"`
	Frequency      string `json:"frequency"`
	DayOfMonth     *int   `json:"day_of_month,omitempty"`
	DayOfWeek      *int   `json:"day_of_week,omitempty"`
	MonthOfYear    *int   `json:"month_of_year,omitempty"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date,omitempty"`
	NextDue        string `json:"next_due,omitempty"`
	LastProcessed  string `json:"last_processed,omitempty"`
	IsActive       bool   `json:"is_active"`
	AutoProcess    bool   `json:"auto_process"`
	VariableAmount bool   `json:"variable_amount"`
}

type processResultJSON struct {
	Processed     bool           `json:"processed"`
	Obligation    obligationJSON `json:"obligation"`
	TransactionID string         `json:"transaction_id,omitempty"`
}

type upcomingJSON struct {
	Obligation   obligationJSON `json:"obligation"`
	DueDate      string         `json:"due_date"`
	DaysUntilDue int            `json:"days_until_due"`

	// RawDays is negative for an overdue occurrence, while
	// DaysUntilDue is clamped at zero.
	RawDays int `json:"raw_days"`
}

func toObligationJSON(ob core.RecurringObligation) obligationJSON {
	return obligationJSON{
		ID:             ob.ID,
		Name:           ob.Name,
		AmountCents:    ob.Amount.Cents,
		Direction:      string(ob.Direction),
		Category:       ob.Category,
		AccountID:      ob.AccountID,
		ToAccount:      ob.ToAccount,
		Method:         ob.Method,
		Frequency:      string(ob.Frequency),
		DayOfMonth:     ob.DayOfMonth,
		DayOfWeek:      ob.DayOfWeek,
		MonthOfYear:    ob.MonthOfYear,
		StartDate:      formatDate(ob.StartDate),
		EndDate:        formatDate(ob.EndDate),
		NextDue:        formatDate(ob.NextDue),
		LastProcessed:  formatDate(ob.LastProcessed),
		IsActive:       ob.IsActive,
		AutoProcess:    ob.AutoProcess,
		VariableAmount: ob.VariableAmount,
	}
}

func formatDate(d core.Date) string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format(dateLayout)
}

func (s *Server) handleListObligations(w http.ResponseWriter, r *http.Request) {
	obligations, err := s.obligationService.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]obligationJSON, 0, len(obligations))
	for _, ob := range obligations {
		out = append(out, toObligationJSON(ob))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetObligation(w http.ResponseWriter, r *http.Request) {
	ob, err := s.obligationService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toObligationJSON(ob))
}

func (s *Server) handleCreateObligation(w http.ResponseWriter, r *http.Request) {
	var req obligationRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	ob, err := req.parseObligation()
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := ob.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
		return
	}

	saved, err := s.obligationService.Create(r.Context(), ob, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUpcoming()
	writeJSON(w, http.StatusCreated, toObligationJSON(saved))
}

func (s *Server) handleUpdateObligation(w http.ResponseWriter, r *http.Request) {
	var req obligationRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	ob, err := req.parseObligation()
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	ob.ID = r.PathValue("id")
	if err := ob.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
		return
	}

	updated, err := s.obligationService.Update(r.Context(), ob, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUpcoming()
	writeJSON(w, http.StatusOK, toObligationJSON(updated))
}

func (s *Server) handleDeleteObligation(w http.ResponseWriter, r *http.Request) {
	if err := s.obligationService.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateUpcoming()
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleProcessObligation(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.obligationService.ProcessNow(r.Context(), r.PathValue("id"), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUpcoming()
	s.invalidateProgress()
	writeJSON(w, http.StatusOK, processResultJSON{
		Processed:     outcome.Processed,
		Obligation:    toObligationJSON(outcome.Obligation),
		TransactionID: outcome.TransactionID,
	})
}

func (s *Server) handleSkipObligation(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.obligationService.SkipNow(r.Context(), r.PathValue("id"), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUpcoming()
	writeJSON(w, http.StatusOK, processResultJSON{
		Processed:  outcome.Processed,
		Obligation: toObligationJSON(outcome.Obligation),
	})
}

func (s *Server) handleDeactivateObligation(w http.ResponseWriter, r *http.Request) {
	ob, err := s.obligationService.Deactivate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUpcoming()
	writeJSON(w, http.StatusOK, toObligationJSON(ob))
}

func (s *Server) handleObligationOccurrences(w http.ResponseWriter, r *http.Request) {
	count := 6
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 24 {
			writeBadRequest(w, "count must be an integer between 1 and 24")
			return
		}
		count = n
	}

	dates, err := s.obligationService.NextOccurrences(r.Context(), r.PathValue("id"), count)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, formatDate(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpcomingObligations(w http.ResponseWriter, r *http.Request) {
	days := s.lookaheadDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			writeBadRequest(w, "days must be an integer between 1 and 365")
			return
		}
		days = n
	}

	key := strconv.Itoa(days)
	if cached, found := s.upcomingCache.Get(key); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	upcoming, err := s.obligationService.Upcoming(r.Context(), s.now(), days)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]upcomingJSON, 0, len(upcoming))
	for _, u := range upcoming {
		out = append(out, upcomingJSON{
			Obligation:   toObligationJSON(u.Obligation),
			DueDate:      formatDate(u.DueDate),
			DaysUntilDue: u.DaysUntilDue,
			RawDays:      u.RawDays,
		})
	}

	s.upcomingCache.Set(key, out)
	writeJSON(w, http.StatusOK, out)
}
