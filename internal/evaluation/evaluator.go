// Package evaluation scores a finished interview transcript.
package evaluation

import (
	"context"
	"strings"
	"time"

	"github.com/wonwookim/mockinterview/internal/interview"
	"github.com/wonwookim/mockinterview/internal/plan"
)

type QuestionScore struct {
	Index    int               `json:"index"`
	Category plan.Category     `json:"category"`
	Speaker  interview.Speaker `json:"speaker"`
	Score    float64           `json:"score"`
	Comment  string            `json:"comment,omitempty"`
}

// Report is the evaluator's verdict. Scores are on a 0-100 scale.
type Report struct {
	SessionID         string          `json:"session_id"`
	PerQuestionScores []QuestionScore `json:"per_question_scores"`
	OverallScore      float64         `json:"overall_score"`
	AIOverallScore    *float64        `json:"ai_overall_score,omitempty"`
	FeedbackText      string          `json:"feedback_text"`
	Evaluator         string          `json:"evaluator"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Evaluator is the outbound scoring collaborator.
type Evaluator interface {
	Evaluate(ctx context.Context, summary interview.Summary) (Report, error)
}

// New returns an HTTP evaluator when url is set and the local heuristic
// otherwise.
func New(url string, timeout time.Duration) Evaluator {
	if strings.TrimSpace(url) == "" {
		return NewHeuristic()
	}
	return NewHTTPEvaluator(url, timeout)
}
