package evaluation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wonwookim/mockinterview/internal/interview"
	"github.com/wonwookim/mockinterview/internal/plan"
)

func entry(index int, cat plan.Category, speaker interview.Speaker, answer string, secs float64) interview.QuestionAnswer {
	return interview.QuestionAnswer{
		Index:                 index,
		QuestionType:          cat,
		QuestionText:          "q",
		Speaker:               speaker,
		AnswerText:            answer,
		AnswerDurationSeconds: &secs,
	}
}

func TestHeuristicScoresUserAndAI(t *testing.T) {
	long := strings.Repeat("word ", 130) + "cut latency by 40 percent"
	summary := interview.Summary{
		SessionID: "s1",
		Transcript: []interview.QuestionAnswer{
			entry(0, plan.CategoryIntro, interview.SpeakerUser, long, 60),
			entry(0, plan.CategoryIntro, interview.SpeakerAI, "short reply", 30),
			entry(1, plan.CategoryTech, interview.SpeakerUser, "", 3),
			entry(1, plan.CategoryTech, interview.SpeakerAI, "short reply", 30),
		},
	}

	r, err := NewHeuristic().Evaluate(context.Background(), summary)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(r.PerQuestionScores) != 4 {
		t.Fatalf("scores = %d, want 4", len(r.PerQuestionScores))
	}
	if got := r.PerQuestionScores[0].Score; got != 100 {
		t.Fatalf("long answer score = %v, want 100", got)
	}
	if got := r.PerQuestionScores[2].Score; got != 0 {
		t.Fatalf("empty answer score = %v, want 0", got)
	}
	if r.OverallScore != 50 {
		t.Fatalf("OverallScore = %v, want 50", r.OverallScore)
	}
	if r.AIOverallScore == nil {
		t.Fatalf("AIOverallScore = nil, want value")
	}
	if !strings.Contains(r.FeedbackText, "Strongest area: INTRO") {
		t.Fatalf("FeedbackText = %q", r.FeedbackText)
	}
}

func TestHeuristicEmptyTranscript(t *testing.T) {
	r, err := NewHeuristic().Evaluate(context.Background(), interview.Summary{SessionID: "s2"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if r.OverallScore != 0 || r.FeedbackText != "No answers were recorded." {
		t.Fatalf("report = %+v", r)
	}
}

func TestHTTPEvaluatorPostsSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var s interview.Summary
		if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if s.SessionID != "s3" {
			t.Fatalf("session_id = %q, want s3", s.SessionID)
		}
		_, _ = w.Write([]byte(`{"overall_score": 77.5, "feedback_text": "solid"}`))
	}))
	defer srv.Close()

	r, err := New(srv.URL, time.Second).Evaluate(context.Background(), interview.Summary{SessionID: "s3"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if r.OverallScore != 77.5 || r.SessionID != "s3" || r.Evaluator != "http" {
		t.Fatalf("report = %+v", r)
	}
}

func TestHTTPEvaluatorStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewHTTPEvaluator(srv.URL, time.Second).Evaluate(context.Background(), interview.Summary{}); err == nil {
		t.Fatalf("expected error for 503")
	}
}
