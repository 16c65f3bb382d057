package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wonwookim/mockinterview/internal/apperrors"
	"github.com/wonwookim/mockinterview/internal/transcript"
)

const defaultArchiveLimit = 20

func (s *Server) handleRecentArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		respondError(w, http.StatusNotFound, apperrors.CodeNotFound, "archive is disabled")
		return
	}
	limit := defaultArchiveLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 200 {
			respondError(w, http.StatusBadRequest, apperrors.CodeInvalidInput, "limit must be between 1 and 200")
			return
		}
		limit = n
	}
	records, err := s.archive.RecentSessions(r.Context(), limit)
	if err != nil {
		s.respondAppError(w, "", err)
		return
	}
	if records == nil {
		records = []transcript.Record{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": records})
}

func (s *Server) handleGetArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		respondError(w, http.StatusNotFound, apperrors.CodeNotFound, "archive is disabled")
		return
	}
	id := chi.URLParam(r, "id")
	record, err := s.archive.GetSession(r.Context(), id)
	if errors.Is(err, transcript.ErrNotFound) {
		respondError(w, http.StatusNotFound, apperrors.CodeNotFound, "archived session not found")
		return
	}
	if err != nil {
		s.respondAppError(w, id, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}
