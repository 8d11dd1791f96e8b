package http

import (
	"net/http"

	"budget/internal/log"
)

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request, userID int64) {
	templates, err := s.ledger.ListRecurring(r.Context(), userID)
	if err != nil {
		writeError(r.Context(), w, log.OpList, err)
		return
	}
	NewResponse().JSON(mapSlice(templates, newRecurringView)).Write(w)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request, userID int64) {
	var req createRecurringRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, log.OpParse, err)
		return
	}

	template, err := s.ledger.CreateRecurring(r.Context(), userID, req.toInput())
	if err != nil {
		writeError(r.Context(), w, log.OpCreate, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(newRecurringView(template)).Write(w)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, log.OpParse, err)
		return
	}
	if err := s.ledger.DeleteRecurring(r.Context(), userID, id); err != nil {
		writeError(r.Context(), w, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
