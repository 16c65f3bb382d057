package interview

import (
	"time"

	"github.com/wonwookim/mockinterview/internal/plan"
)

// Phase is the orchestrator's position in the turn state machine.
type Phase string

const (
	PhaseCreated      Phase = "CREATED"
	PhaseAwaitingUser Phase = "AWAITING_USER"
	PhaseAwaitingAI   Phase = "AWAITING_AI"
	PhaseGenerating   Phase = "GENERATING"
	PhaseCompleted    Phase = "COMPLETED"
	PhaseFailed       Phase = "FAILED"
)

func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

type Speaker string

const (
	SpeakerUser Speaker = "USER"
	SpeakerAI   Speaker = "AI"
)

// QuestionAnswer is one transcript entry. Entries are appended once and never
// mutated.
type QuestionAnswer struct {
	ID                    string        `json:"id"`
	Index                 int           `json:"index"`
	QuestionType          plan.Category `json:"question_type"`
	QuestionText          string        `json:"question_text"`
	Speaker               Speaker       `json:"speaker"`
	AnswerText            string        `json:"answer_text"`
	AnswerDurationSeconds *float64      `json:"answer_duration_seconds,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
}

// Question is a fully resolved slot question.
type Question struct {
	Index    int           `json:"index"`
	Category plan.Category `json:"category"`
	Text     string        `json:"text"`
	Source   string        `json:"source"`
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	SessionID        string    `json:"session_id"`
	Mode             plan.Mode `json:"mode"`
	Phase            Phase     `json:"phase"`
	CurrentIndex     int       `json:"current_index"`
	PlanLength       int       `json:"plan_length"`
	CurrentQuestion  *Question `json:"current_question,omitempty"`
	PersonaID        string    `json:"persona_id"`
	TranscriptLength int       `json:"transcript_length"`
	FailureReason    string    `json:"failure_reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	LastActivityAt   time.Time `json:"last_activity_at"`
}

// AITurn is the result of one AI counter-turn.
type AITurn struct {
	AIAnswer     QuestionAnswer `json:"ai_answer"`
	NextQuestion *Question      `json:"next_question,omitempty"`
	State        Snapshot       `json:"state"`
}
