package api

import (
	"net/http"
	"strconv"

	"github.com/bluetracehq/bluetrace/internal/audit"
)

// handleListAudit returns custody journal entries matching the query
// filters, most recent first.
//
// Query parameters: action, subject_type, subject_id, operator_id,
// limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := audit.Filter{
		Action:      q.Get("action"),
		SubjectType: q.Get("subject_type"),
		SubjectID:   q.Get("subject_id"),
		OperatorID:  q.Get("operator_id"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list custody entries", "error", err)
		writeInternalError(w, "failed to list custody entries")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// recordAudit appends a custody entry when a journal is wired. Failures
// are logged and swallowed; custody recording never fails a request.
func (s *Server) recordAudit(r *http.Request, entry audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Create(r.Context(), &entry); err != nil {
		s.logger.Warn("custody journal write failed",
			"action", entry.Action,
			"error", err,
		)
	}
}
