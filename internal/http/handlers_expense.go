package http

import (
	"bytes"
	"net/http"

	"budget/internal/core"
	"budget/internal/export"
	"budget/internal/log"
)

func (s *Server) handleLogExpense(w http.ResponseWriter, r *http.Request, userID int64) {
	var req logExpenseRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, log.OpParse, err)
		return
	}

	result, err := s.ledger.LogExpense(r.Context(), userID, req.toInput())
	if err != nil {
		writeError(r.Context(), w, log.OpCreate, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(newLogExpenseView(result)).Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, userID int64) {
	from, to, err := DateRange(r)
	if err != nil {
		writeError(r.Context(), w, log.OpParse, err)
		return
	}

	expenses, err := s.ledger.ListExpenses(r.Context(), userID, from, to)
	if err != nil {
		writeError(r.Context(), w, log.OpList, err)
		return
	}
	NewResponse().JSON(mapSlice(expenses, newExpenseView)).Write(w)
}

// handleExportExpenses renders the whole export before writing so a
// failure still produces a JSON error instead of a truncated file.
func (s *Server) handleExportExpenses(w http.ResponseWriter, r *http.Request, userID int64) {
	var buf bytes.Buffer
	if err := s.exports.WriteCSV(r.Context(), userID, &buf); err != nil {
		writeError(r.Context(), w, log.OpRead, err)
		return
	}

	filename := export.Filename(core.DateOf(s.now(), s.loc))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, userID int64) {
	categories, err := s.ledger.ListCategories(r.Context(), userID)
	if err != nil {
		writeError(r.Context(), w, log.OpList, err)
		return
	}
	NewResponse().JSON(mapSlice(categories, newCategoryView)).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, userID int64) {
	var req createCategoryRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, log.OpParse, err)
		return
	}

	category, err := s.ledger.CreateCategory(r.Context(), userID, sanitizeInput(req.Name))
	if err != nil {
		writeError(r.Context(), w, log.OpCreate, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(newCategoryView(category)).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, log.OpParse, err)
		return
	}
	if err := s.ledger.DeleteCategory(r.Context(), userID, id); err != nil {
		writeError(r.Context(), w, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
