package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageUserAnswer(t *testing.T) {
	raw := []byte(`{"type":"user_answer","session_id":"s1","answer_text":"I led the migration.","time_spent_seconds":42.5}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	answer, ok := msg.(UserAnswer)
	if !ok {
		t.Fatalf("message type = %T, want UserAnswer", msg)
	}
	if answer.SessionID != "s1" || answer.TimeSpentSeconds == nil || *answer.TimeSpentSeconds != 42.5 {
		t.Fatalf("unexpected answer: %+v", answer)
	}
	if got := SessionIDOf(msg); got != "s1" {
		t.Fatalf("SessionIDOf() = %q, want s1", got)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsNegativeDuration(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"user_answer","answer_text":"x","time_spent_seconds":-1}`))
	if err == nil {
		t.Fatalf("expected error for negative duration")
	}
}

func TestParseClientMessageControlVariants(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"advance_ai","session_id":"s1"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage(advance_ai) error = %v", err)
	}
	if typ, ok := TypeOf(msg); !ok || typ != TypeAdvanceAI {
		t.Fatalf("TypeOf() = %q, %v", typ, ok)
	}

	msg, err = ParseClientMessage([]byte(`{"type":"cancel","reason":"closing tab"}`))
	if err != nil {
		t.Fatalf("ParseClientMessage(cancel) error = %v", err)
	}
	c, ok := msg.(Cancel)
	if !ok || c.Reason != "closing tab" {
		t.Fatalf("cancel = %+v", msg)
	}
}

func TestParseClientMessageInvalidJSON(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{`)); err == nil {
		t.Fatalf("expected error for malformed json")
	}
}
