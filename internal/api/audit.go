package api

import (
	"net/http"
	"strconv"

	"github.com/shoplane/shoplane-core/internal/audit"
)

// handleListAudit returns the audit trail, newest first, with optional
// action/actor/target filters and pagination.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeNotFound(w, "audit trail not enabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action: q.Get("action"),
		Target: q.Get("target"),
	}
	if v := q.Get("actor_id"); v != "" {
		actorID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeBadRequest(w, "invalid actor_id")
			return
		}
		filter.ActorID = &actorID
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v) //nolint:errcheck // zero falls back to default
	}
	if v := q.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v) //nolint:errcheck // zero is a valid offset
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("list audit entries failed", "error", err)
		writeInternalError(w, "failed to list audit entries")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
