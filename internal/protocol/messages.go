package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wonwookim/mockinterview/internal/interview"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeUserAnswer     MessageType = "user_answer"
	TypeAdvanceAI      MessageType = "advance_ai"
	TypeCancel         MessageType = "cancel"
	TypeInterviewState MessageType = "interview_state"
	TypeAIAnswer       MessageType = "ai_answer"
	TypeErrorEvent     MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type UserAnswer struct {
	Type             MessageType `json:"type"`
	SessionID        string      `json:"session_id"`
	AnswerText       string      `json:"answer_text"`
	TimeSpentSeconds *float64    `json:"time_spent_seconds,omitempty"`
}

type AdvanceAI struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
}

type Cancel struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Reason    string      `json:"reason,omitempty"`
}

type InterviewState struct {
	Type      MessageType        `json:"type"`
	SessionID string             `json:"session_id"`
	State     interview.Snapshot `json:"state"`
}

type AIAnswer struct {
	Type         MessageType              `json:"type"`
	SessionID    string                   `json:"session_id"`
	Answer       interview.QuestionAnswer `json:"answer"`
	NextQuestion *interview.Question      `json:"next_question,omitempty"`
	State        interview.Snapshot       `json:"state"`
}

type ErrorEvent struct {
	Type      MessageType         `json:"type"`
	SessionID string              `json:"session_id"`
	Code      string              `json:"code"`
	Source    string              `json:"source"`
	Retryable bool                `json:"retryable"`
	Detail    string              `json:"detail"`
	State     *interview.Snapshot `json:"state,omitempty"`
}

// ParseClientMessage decodes one inbound frame. session_id must match the
// connection's session when present; the caller checks that.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeUserAnswer:
		var msg UserAnswer
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.TimeSpentSeconds != nil && *msg.TimeSpentSeconds < 0 {
			return nil, errors.New("invalid user_answer: negative time_spent_seconds")
		}
		return msg, nil
	case TypeAdvanceAI:
		var msg AdvanceAI
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeCancel:
		var msg Cancel
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}

// SessionIDOf returns the session id carried by a parsed client message.
func SessionIDOf(v any) string {
	switch m := v.(type) {
	case UserAnswer:
		return m.SessionID
	case AdvanceAI:
		return m.SessionID
	case Cancel:
		return m.SessionID
	default:
		return ""
	}
}

func TypeOf(v any) (MessageType, bool) {
	switch m := v.(type) {
	case UserAnswer:
		return m.Type, true
	case AdvanceAI:
		return m.Type, true
	case Cancel:
		return m.Type, true
	case InterviewState:
		return m.Type, true
	case AIAnswer:
		return m.Type, true
	case ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
