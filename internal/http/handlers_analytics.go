package http

import (
	"net/http"

	"budget/internal/analytics"
	"budget/internal/log"
)

// handleAnalytics returns the cached report bytes as stored.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request, userID int64) {
	reportType, err := analytics.ParseReportType(r.PathValue("type"))
	if err != nil {
		writeError(r.Context(), w, log.OpParse, err)
		return
	}

	body, err := s.analytics.GetReport(r.Context(), userID, reportType)
	if err != nil {
		writeError(r.Context(), w, log.OpRead, err)
		return
	}
	NewResponse().RawJSON(body).Write(w)
}
