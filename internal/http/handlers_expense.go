package http

import (
	"net/http"

	"casa/internal/core"
	"casa/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.deps.Expenses.List(r.Context())
	if err != nil {
		writeError(w, r, "Failed to fetch expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, r, "Invalid expense id", err)
		return
	}
	e, err := s.deps.Expenses.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, "Failed to fetch expense", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "Invalid expense data", err)
		return
	}

	created, err := s.deps.Expenses.Create(r.Context(), req.expense())
	if err != nil {
		writeError(w, r, "Failed to create expense", err)
		return
	}
	s.invalidateAnalytics()

	log.FromContext(r.Context()).InfoContext(r.Context(), "Expense created",
		log.FieldExpenseID, created.ID,
		log.FieldExpenseName, created.Name,
		log.FieldAmount, created.Amount,
		log.FieldFrequency, created.Frequency,
		log.FieldIsVariable, created.IsVariable,
		log.FieldIsIncome, created.IsIncome)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, r, "Invalid expense id", err)
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "Invalid expense data", err)
		return
	}

	updated, err := s.deps.Expenses.Update(r.Context(), id, req.patch())
	if err != nil {
		writeError(w, r, "Failed to update expense", err)
		return
	}
	s.invalidateAnalytics()
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, r, "Invalid expense id", err)
		return
	}
	if err := s.deps.Expenses.Delete(r.Context(), id); err != nil {
		writeError(w, r, "Failed to delete expense", err)
		return
	}
	s.invalidateAnalytics()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSplitSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.deps.Split.Get(r.Context())
	if err != nil {
		writeError(w, r, "Failed to fetch split settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSplitSettings(w http.ResponseWriter, r *http.Request) {
	var in core.SplitSettings
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, r, "Invalid split settings", err)
		return
	}
	updated, err := s.deps.Split.Update(r.Context(), in)
	if err != nil {
		writeError(w, r, "Failed to update split settings", err)
		return
	}
	s.invalidateAnalytics()
	writeJSON(w, http.StatusOK, updated)
}
