package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wonwookim/mockinterview/internal/apperrors"
	"github.com/wonwookim/mockinterview/internal/interview"
	"github.com/wonwookim/mockinterview/internal/session"
)

type submitAnswerRequest struct {
	AnswerText       string   `json:"answer_text"`
	TimeSpentSeconds *float64 `json:"time_spent_seconds"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type stateResponse struct {
	State interview.Snapshot `json:"state"`
}

type cancelResponse struct {
	State      interview.Snapshot         `json:"state"`
	Transcript []interview.QuestionAnswer `json:"transcript"`
}

// detached keeps request values but not cancellation: a REST client that
// gives up mid-turn must not fail the session. /cancel ends it explicitly.
func detached(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Server) handleStartInterview(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, apperrors.CodeInvalidInput, err.Error())
		return
	}
	resp, err := s.service.StartSession(detached(r), req)
	if err != nil {
		s.respondAppError(w, "", err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req submitAnswerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, apperrors.CodeInvalidInput, err.Error())
		return
	}
	snap, err := s.service.SubmitUserAnswer(detached(r), id, req.AnswerText, req.TimeSpentSeconds)
	if err != nil {
		s.respondAppError(w, id, err)
		return
	}
	respondJSON(w, http.StatusOK, stateResponse{State: snap})
}

func (s *Server) handleAdvanceAITurn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	turn, err := s.service.AdvanceAITurn(detached(r), id)
	if err != nil {
		s.respondAppError(w, id, err)
		return
	}
	respondJSON(w, http.StatusOK, turn)
}

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	transcript, err := s.service.GetTranscript(id)
	if err != nil {
		s.respondAppError(w, id, err)
		return
	}
	if transcript == nil {
		transcript = []interview.QuestionAnswer{}
	}
	respondJSON(w, http.StatusOK, transcript)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.service.GetState(id)
	if err != nil {
		s.respondAppError(w, id, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, apperrors.CodeInvalidInput, err.Error())
		return
	}
	snap, transcript, err := s.service.CancelSession(id, strings.TrimSpace(req.Reason))
	if err != nil {
		s.respondAppError(w, id, err)
		return
	}
	if transcript == nil {
		transcript = []interview.QuestionAnswer{}
	}
	respondJSON(w, http.StatusOK, cancelResponse{State: snap, Transcript: transcript})
}

func (s *Server) handleGetFeedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := s.service.GetFeedback(r.Context(), id)
	if err != nil {
		s.respondAppError(w, id, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleListPersonas(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"personas": s.service.Personas()})
}
