package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/wonwookim/mockinterview/internal/apperrors"
	"github.com/wonwookim/mockinterview/internal/config"
	"github.com/wonwookim/mockinterview/internal/interview"
	"github.com/wonwookim/mockinterview/internal/observability"
	"github.com/wonwookim/mockinterview/internal/session"
	"github.com/wonwookim/mockinterview/internal/transcript"
)

type Server struct {
	cfg       config.Config
	service   *session.Service
	metrics   *observability.Metrics
	archive   transcript.Store
	storeMode string
	upgrader  websocket.Upgrader
}

func New(cfg config.Config, service *session.Service, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:       cfg,
		service:   service,
		metrics:   metrics,
		storeMode: "none",
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Browsers may only drive an interview from the serving origin.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

// WithArchive exposes archived sessions read-only under /v1/archive.
func (s *Server) WithArchive(store transcript.Store, mode string) *Server {
	s.archive = store
	s.storeMode = mode
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/v1/personas", s.handleListPersonas)
	r.Get("/v1/archive", s.handleRecentArchive)
	r.Get("/v1/archive/{id}", s.handleGetArchive)
	r.Route("/v1/interviews", func(r chi.Router) {
		r.Post("/", s.handleStartInterview)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetState)
			r.Post("/answers", s.handleSubmitAnswer)
			r.Post("/ai-turn", s.handleAdvanceAITurn)
			r.Get("/transcript", s.handleGetTranscript)
			r.Post("/cancel", s.handleCancel)
			r.Get("/feedback", s.handleGetFeedback)
			r.Get("/ws", s.handleInterviewWS)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"store_mode": s.storeMode,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"store_mode":      s.storeMode,
		"active_sessions": s.service.Registry().ActiveCount(),
	})
}

type errorResponse struct {
	Error      string                     `json:"error"`
	Code       string                     `json:"code"`
	State      *interview.Snapshot        `json:"state,omitempty"`
	Transcript []interview.QuestionAnswer `json:"transcript,omitempty"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondAppError maps an application error onto a status. A failed session
// carries its partial transcript and failure reason.
func (s *Server) respondAppError(w http.ResponseWriter, sessionID string, err error) {
	code := apperrors.CodeOf(err)
	status := statusForCode(code)
	body := errorResponse{Error: err.Error(), Code: code}
	if code == apperrors.CodeSessionFailed && sessionID != "" {
		if snap, serr := s.service.GetState(sessionID); serr == nil {
			body.State = &snap
		}
		if transcript, terr := s.service.GetTranscript(sessionID); terr == nil {
			body.Transcript = transcript
		}
	}
	if status >= http.StatusInternalServerError {
		log.Printf("httpapi: session=%s internal error: %v", sessionID, err)
	}
	respondJSON(w, status, body)
}

func statusForCode(code string) int {
	switch code {
	case apperrors.CodeConfiguration, apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeInvalidTransition:
		return http.StatusConflict
	case apperrors.CodeSessionFailed:
		return http.StatusUnprocessableEntity
	case apperrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case apperrors.CodeAPITimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
