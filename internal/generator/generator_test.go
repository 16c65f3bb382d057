package generator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonwookim/mockinterview/internal/apperrors"
	"github.com/wonwookim/mockinterview/internal/dedup"
	"github.com/wonwookim/mockinterview/internal/llm"
	"github.com/wonwookim/mockinterview/internal/persona"
	"github.com/wonwookim/mockinterview/internal/plan"
	"github.com/wonwookim/mockinterview/internal/reliability"
)

type reply struct {
	text  string
	err   error
	delay time.Duration
}

// scriptedAdapter replays replies in order and repeats the last one.
type scriptedAdapter struct {
	mu       sync.Mutex
	replies  []reply
	requests []llm.Request
}

func (a *scriptedAdapter) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	a.mu.Lock()
	i := len(a.requests)
	a.requests = append(a.requests, req)
	r := a.replies[len(a.replies)-1]
	if i < len(a.replies) {
		r = a.replies[i]
	}
	a.mu.Unlock()

	if r.delay > 0 {
		select {
		case <-ctx.Done():
			return llm.Response{}, ctx.Err()
		case <-time.After(r.delay):
		}
	}
	if r.err != nil {
		return llm.Response{}, r.err
	}
	return llm.Response{Text: r.text}, nil
}

func (a *scriptedAdapter) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxRetries = 1
	cfg.RetryDelay = time.Millisecond
	cfg.RetryMaxDelay = 2 * time.Millisecond
	cfg.CallTimeout = time.Second
	return cfg
}

func newTestGenerator(t *testing.T, adapter llm.Adapter, opts ...Option) *Generator {
	t.Helper()
	g := New(testConfig(), adapter, dedup.NewGuard(0.5, nil), nil, opts...)
	g.sleep = func(context.Context, time.Duration) error { return nil }
	return g
}

var hrSlot = plan.Slot{Category: plan.CategoryHR}

func TestGenerateQuestionFixedSlotSkipsAdapter(t *testing.T) {
	a := &scriptedAdapter{replies: []reply{{text: "unused"}}}
	g := newTestGenerator(t, a)

	res, err := g.GenerateQuestion(context.Background(), plan.Slot{Category: plan.CategoryIntro, IsFixed: true, FixedText: "Introduce yourself."}, SessionContext{})
	require.NoError(t, err)
	assert.Equal(t, "Introduce yourself.", res.Text)
	assert.Equal(t, SourceFixed, res.Source)
	assert.Zero(t, a.calls())
}

func TestGenerateQuestionAcceptsFreshText(t *testing.T) {
	a := &scriptedAdapter{replies: []reply{{text: "  Describe a failure you learned from.  "}}}
	g := newTestGenerator(t, a)

	res, err := g.GenerateQuestion(context.Background(), hrSlot, SessionContext{
		SessionID:      "s1",
		PriorQuestions: []string{"How would you shard a PostgreSQL table?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Describe a failure you learned from.", res.Text)
	assert.Equal(t, SourceGenerated, res.Source)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, llm.PurposeQuestion, a.requests[0].Purpose)
	assert.Equal(t, "HR", a.requests[0].Category)
}

func TestGenerateQuestionFallsBackAfterDuplicateRejections(t *testing.T) {
	prior := "Tell me about a time you resolved a conflict with a teammate."
	a := &scriptedAdapter{replies: []reply{
		{text: "Tell me about a time you resolved a conflict with a teammate."},
		{text: "Tell me about a time you resolved a conflict with your teammate?"},
		{text: "Tell me about the time you resolved a teammate conflict."},
		{text: "What motivates you outside work?"},
	}}
	g := newTestGenerator(t, a, WithFallbackQuestions(map[plan.Category][]string{
		plan.CategoryHR: {"Which value do you refuse to compromise on?"},
	}))

	res, err := g.GenerateQuestion(context.Background(), hrSlot, SessionContext{PriorQuestions: []string{prior}})
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, "Which value do you refuse to compromise on?", res.Text)
	assert.Equal(t, 3, res.Rejections)
	assert.Equal(t, 3, a.calls())
}

func TestGenerateQuestionDuplicateExhaustionWithoutFallback(t *testing.T) {
	prior := "Tell me about a time you resolved a conflict with a teammate."
	a := &scriptedAdapter{replies: []reply{{text: prior}}}
	g := newTestGenerator(t, a)

	_, err := g.GenerateQuestion(context.Background(), hrSlot, SessionContext{PriorQuestions: []string{prior}})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDuplicateQuestion))
	var aiErr *AIError
	require.True(t, errors.As(err, &aiErr))
	assert.Equal(t, KindDuplicate, aiErr.Kind)
}

func TestGenerateQuestionTimeoutWithoutFallbackFails(t *testing.T) {
	a := &scriptedAdapter{replies: []reply{{text: "late", delay: 500 * time.Millisecond}}}
	g := newTestGenerator(t, a)
	g.cfg.CallTimeout = 20 * time.Millisecond

	start := time.Now()
	_, err := g.GenerateQuestion(context.Background(), plan.Slot{Category: plan.CategoryTech}, SessionContext{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAPITimeout))
	assert.True(t, errors.Is(err, llm.ErrTimeout))

	var aiErr *AIError
	require.True(t, errors.As(err, &aiErr))
	assert.Equal(t, KindTimeout, aiErr.Kind)
	assert.Equal(t, 2, aiErr.Attempts)
}

func TestGenerateQuestionRetriesTransientFailure(t *testing.T) {
	a := &scriptedAdapter{replies: []reply{
		{err: errors.New("connection reset")},
		{text: "How do you review a risky pull request?"},
	}}
	g := newTestGenerator(t, a)
	var delays []time.Duration
	g.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	res, err := g.GenerateQuestion(context.Background(), plan.Slot{Category: plan.CategoryCollaboration}, SessionContext{})
	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, res.Source)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, []time.Duration{time.Millisecond}, delays)
}

func TestGenerateQuestionFailureUsesRotatedFallback(t *testing.T) {
	a := &scriptedAdapter{replies: []reply{{err: llm.ErrInvalidResponse}}}
	g := newTestGenerator(t, a, WithFallbackQuestions(map[plan.Category][]string{
		plan.CategoryTech: {"first", "second", "third"},
	}))

	res, err := g.GenerateQuestion(context.Background(), plan.Slot{Category: plan.CategoryTech}, SessionContext{AskedInCategory: 4})
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, "second", res.Text)
}

func TestGenerateQuestionRateBudgetFailsFast(t *testing.T) {
	a := &scriptedAdapter{replies: []reply{{text: "never"}}}
	budget := reliability.NewRateBudgetWindow(1, time.Hour, nil)
	require.NoError(t, budget.Take())

	g := New(testConfig(), a, nil, budget)
	slept := 0
	g.sleep = func(context.Context, time.Duration) error {
		slept++
		return nil
	}

	_, err := g.GenerateQuestion(context.Background(), hrSlot, SessionContext{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeRateLimited))
	var aiErr *AIError
	require.ErrorAs(t, err, &aiErr)
	assert.Equal(t, 1, aiErr.Attempts)
	assert.Zero(t, a.calls())
	assert.Zero(t, slept, "exhausted budget must not back off")
}

func TestGenerateQuestionRateBudgetUsesFallbackWithoutWaiting(t *testing.T) {
	a := &scriptedAdapter{replies: []reply{{text: "never"}}}
	budget := reliability.NewRateBudgetWindow(1, time.Hour, nil)
	require.NoError(t, budget.Take())

	cfg := DefaultConfig()
	g := New(cfg, a, nil, budget, WithFallbackQuestions(map[plan.Category][]string{
		plan.CategoryHR: {"Tell me about a time you disagreed with a teammate."},
	}))

	start := time.Now()
	res, err := g.GenerateQuestion(context.Background(), hrSlot, SessionContext{})
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Less(t, time.Since(start), cfg.RetryDelay)
	assert.Zero(t, a.calls())
}

func TestGenerateQuestionStopsOnCanceledContext(t *testing.T) {
	a := &scriptedAdapter{replies: []reply{{text: "slow", delay: time.Second}}}
	g := newTestGenerator(t, a, WithFallbackQuestions(map[plan.Category][]string{
		plan.CategoryHR: {"fallback"},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := g.GenerateQuestion(ctx, hrSlot, SessionContext{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFollowUpPromptQuotesLastAnswer(t *testing.T) {
	a := &scriptedAdapter{replies: []reply{{text: "What would you change about that migration?"}}}
	g := newTestGenerator(t, a)

	_, err := g.GenerateQuestion(context.Background(), plan.Slot{Category: plan.CategoryFollowUp}, SessionContext{
		Position:       "backend engineer",
		LastUserAnswer: "I led the migration from MySQL to PostgreSQL.",
	})
	require.NoError(t, err)
	assert.Contains(t, a.requests[0].Prompt, "I led the migration from MySQL to PostgreSQL.")
	assert.Contains(t, a.requests[0].Prompt, "backend engineer")
}

func TestGenerateAIAnswerUsesPersona(t *testing.T) {
	a := &scriptedAdapter{replies: []reply{{text: "I would add an index first."}}}
	g := newTestGenerator(t, a)
	p := persona.Persona{ID: "kakao-f", DisplayName: "Jiwoo", SpeakingStyle: "calm", SkillBias: []string{"kotlin"}}

	res, err := g.GenerateAIAnswer(context.Background(), "How do you speed up a slow query?", plan.CategoryTech, p, SessionContext{})
	require.NoError(t, err)
	assert.Equal(t, "I would add an index first.", res.Text)
	assert.Equal(t, llm.PurposeAnswer, a.requests[0].Purpose)
	assert.True(t, strings.Contains(a.requests[0].System, "Jiwoo"))
	assert.Contains(t, a.requests[0].Prompt, "Question: How do you speed up a slow query?")
}

func TestGenerateAIAnswerFallbackAndFailure(t *testing.T) {
	a := &scriptedAdapter{replies: []reply{{err: llm.ErrRateLimited}}}

	withBank := newTestGenerator(t, a, WithFallbackAnswers(map[plan.Category][]string{
		plan.CategoryHR: {"I stay curious and keep notes."},
	}))
	res, err := withBank.GenerateAIAnswer(context.Background(), "q", plan.CategoryHR, persona.Persona{}, SessionContext{})
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)

	bare := newTestGenerator(t, a)
	_, err = bare.GenerateAIAnswer(context.Background(), "q", plan.CategoryTech, persona.Persona{}, SessionContext{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeRateLimited))
}
