package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/wonwookim/mockinterview/internal/apperrors"
	"github.com/wonwookim/mockinterview/internal/interview"
	"github.com/wonwookim/mockinterview/internal/protocol"
)

const (
	wsWriteTimeout  = 10 * time.Second
	wsReadLimit     = 1 << 20
	wsOutboundQueue = 32
)

func (s *Server) handleInterviewWS(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	snap, err := s.service.GetState(sessionID)
	if err != nil {
		s.respondAppError(w, sessionID, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("httpapi: websocket upgrade failed session=%s: %v", sessionID, err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.cfg.SessionCancelOnDisconnect {
		ctx, cancel = context.WithCancel(r.Context())
	} else {
		ctx, cancel = context.WithCancel(context.WithoutCancel(r.Context()))
	}
	defer cancel()

	outbound := make(chan any, wsOutboundQueue)
	var writerWG sync.WaitGroup
	writerWG.Add(1)
	go func() {
		defer writerWG.Done()
		s.writeLoop(conn, outbound)
	}()

	outbound <- protocol.InterviewState{Type: protocol.TypeInterviewState, SessionID: sessionID, State: snap}
	s.metrics.WSMessage("outbound", string(protocol.TypeInterviewState))

	s.readLoop(ctx, conn, sessionID, outbound)

	if s.cfg.SessionCancelOnDisconnect {
		if _, _, err := s.service.CancelSession(sessionID, "client disconnected"); err != nil && !apperrors.HasCode(err, apperrors.CodeNotFound) {
			log.Printf("httpapi: cancel on disconnect session=%s: %v", sessionID, err)
		}
	}
	cancel()
	close(outbound)
	writerWG.Wait()
}

func (s *Server) writeLoop(conn *websocket.Conn, outbound <-chan any) {
	for msg := range outbound {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("httpapi: websocket write failed: %v", err)
			// Drain so the reader never blocks on a dead connection.
			for range outbound {
			}
			return
		}
	}
}

// readLoop handles client frames one at a time; the orchestrator serializes
// turns anyway, so a second frame simply waits for the first.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sessionID string, outbound chan<- any) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("httpapi: websocket read ended session=%s: %v", sessionID, err)
			}
			return
		}

		msg, err := protocol.ParseClientMessage(raw)
		if err != nil {
			s.metrics.WSMessage("inbound", "invalid")
			s.emit(outbound, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      apperrors.CodeInvalidInput,
				Source:    "protocol",
				Retryable: true,
				Detail:    err.Error(),
			})
			continue
		}
		msgType, _ := protocol.TypeOf(msg)
		s.metrics.WSMessage("inbound", string(msgType))

		if id := protocol.SessionIDOf(msg); id != "" && id != sessionID {
			s.emit(outbound, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      apperrors.CodeInvalidInput,
				Source:    "protocol",
				Retryable: true,
				Detail:    "session_id does not match connection",
			})
			continue
		}

		switch m := msg.(type) {
		case protocol.UserAnswer:
			snap, err := s.service.SubmitUserAnswer(ctx, sessionID, m.AnswerText, m.TimeSpentSeconds)
			if err != nil {
				s.emitError(outbound, sessionID, err)
				continue
			}
			s.emit(outbound, protocol.InterviewState{Type: protocol.TypeInterviewState, SessionID: sessionID, State: snap})
		case protocol.AdvanceAI:
			turn, err := s.service.AdvanceAITurn(ctx, sessionID)
			if err != nil {
				s.emitError(outbound, sessionID, err)
				continue
			}
			s.emit(outbound, protocol.AIAnswer{
				Type:         protocol.TypeAIAnswer,
				SessionID:    sessionID,
				Answer:       turn.AIAnswer,
				NextQuestion: turn.NextQuestion,
				State:        turn.State,
			})
		case protocol.Cancel:
			reason := m.Reason
			if reason == "" {
				reason = "canceled by client"
			}
			snap, _, err := s.service.CancelSession(sessionID, reason)
			if err != nil {
				s.emitError(outbound, sessionID, err)
				continue
			}
			s.emit(outbound, protocol.InterviewState{Type: protocol.TypeInterviewState, SessionID: sessionID, State: snap})
			return
		}
	}
}

func (s *Server) emit(outbound chan<- any, msg any) {
	if t, ok := protocol.TypeOf(msg); ok {
		s.metrics.WSMessage("outbound", string(t))
	}
	outbound <- msg
}

func (s *Server) emitError(outbound chan<- any, sessionID string, err error) {
	code := apperrors.CodeOf(err)
	ev := protocol.ErrorEvent{
		Type:      protocol.TypeErrorEvent,
		SessionID: sessionID,
		Code:      code,
		Source:    "interview",
		Detail:    err.Error(),
	}
	var state *interview.Snapshot
	if snap, serr := s.service.GetState(sessionID); serr == nil {
		state = &snap
	}
	ev.State = state
	ev.Retryable = retryable(code, state)
	if code == apperrors.CodeSessionFailed {
		ev.Source = causeSource(err)
	}
	s.emit(outbound, ev)
}

// retryable reports whether the client may resend after an error. A session
// that has already ended never accepts another turn.
func retryable(code string, state *interview.Snapshot) bool {
	if state != nil && state.Phase.Terminal() {
		return false
	}
	switch code {
	case apperrors.CodeInvalidInput, apperrors.CodeInvalidTransition, apperrors.CodeRateLimited:
		return true
	default:
		return false
	}
}

func causeSource(err error) string {
	var appErr *apperrors.AppError
	for errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.CodeRateLimited, apperrors.CodeAPITimeout, apperrors.CodeGenerationFailed, apperrors.CodeDuplicateQuestion:
			return "generator"
		}
		if appErr.Cause == nil {
			break
		}
		err = appErr.Cause
	}
	return "interview"
}
