// Package generator turns plan slots into question text and produces the AI
// candidate's answers through an llm.Adapter.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/wonwookim/mockinterview/internal/dedup"
	"github.com/wonwookim/mockinterview/internal/llm"
	"github.com/wonwookim/mockinterview/internal/observability"
	"github.com/wonwookim/mockinterview/internal/persona"
	"github.com/wonwookim/mockinterview/internal/plan"
	"github.com/wonwookim/mockinterview/internal/reliability"
)

// Source records where accepted text came from.
type Source string

const (
	SourceFixed     Source = "fixed"
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

type Config struct {
	MaxRetries           int
	RetryDelay           time.Duration
	RetryMaxDelay        time.Duration
	Backoff              reliability.BackoffPolicy
	CallTimeout          time.Duration
	MaxDuplicateAttempts int
	QuestionMaxTokens    int
	AnswerMaxTokens      int
	QuestionTemperature  float64
	AnswerTemperature    float64
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:           2,
		RetryDelay:           500 * time.Millisecond,
		RetryMaxDelay:        4 * time.Second,
		Backoff:              reliability.BackoffExponential,
		CallTimeout:          30 * time.Second,
		MaxDuplicateAttempts: 3,
		QuestionMaxTokens:    200,
		AnswerMaxTokens:      400,
		QuestionTemperature:  0.7,
		AnswerTemperature:    0.8,
	}
}

// SessionContext is the read-only view of a session a generation call needs.
type SessionContext struct {
	SessionID       string
	CompanyName     string
	TechFocus       []string
	Position        string
	ExperienceLevel string
	CandidateName   string
	PriorQuestions  []string
	LastUserAnswer  string
	// AskedInCategory counts earlier questions of the slot's category and
	// rotates the fallback bank.
	AskedInCategory int
}

type QuestionResult struct {
	Text       string
	Source     Source
	Attempts   int
	Rejections int
}

type AnswerResult struct {
	Text     string
	Source   Source
	Attempts int
}

// Generator is safe for concurrent use by many sessions. The rate budget is
// shared by every caller.
type Generator struct {
	cfg       Config
	adapter   llm.Adapter
	guard     *dedup.Guard
	budget    *reliability.RateBudget
	questions map[plan.Category][]string
	answers   map[plan.Category][]string
	metrics   *observability.Metrics
	sleep     func(context.Context, time.Duration) error
}

type Option func(*Generator)

func WithFallbackQuestions(bank map[plan.Category][]string) Option {
	return func(g *Generator) { g.questions = bank }
}

func WithFallbackAnswers(bank map[plan.Category][]string) Option {
	return func(g *Generator) { g.answers = bank }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

func New(cfg Config, adapter llm.Adapter, guard *dedup.Guard, budget *reliability.RateBudget, opts ...Option) *Generator {
	def := DefaultConfig()
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.MaxDuplicateAttempts <= 0 {
		cfg.MaxDuplicateAttempts = def.MaxDuplicateAttempts
	}
	if cfg.QuestionMaxTokens <= 0 {
		cfg.QuestionMaxTokens = def.QuestionMaxTokens
	}
	if cfg.AnswerMaxTokens <= 0 {
		cfg.AnswerMaxTokens = def.AnswerMaxTokens
	}
	if cfg.Backoff == "" {
		cfg.Backoff = def.Backoff
	}
	if guard == nil {
		guard = dedup.NewGuard(dedup.DefaultThreshold, nil)
	}
	g := &Generator{
		cfg:     cfg,
		adapter: adapter,
		guard:   guard,
		budget:  budget,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateQuestion resolves the text for slot. Generated candidates go through
// the duplicate guard; after MaxDuplicateAttempts rejections, or when the
// call fails after retries, the category fallback is used. The error is
// non-nil only when no fallback exists or ctx ends.
func (g *Generator) GenerateQuestion(ctx context.Context, slot plan.Slot, sc SessionContext) (QuestionResult, error) {
	if slot.IsFixed {
		return QuestionResult{Text: slot.FixedText, Source: SourceFixed}, nil
	}

	req := llm.Request{
		SessionID:   sc.SessionID,
		Purpose:     llm.PurposeQuestion,
		Category:    string(slot.Category),
		System:      questionSystemPrompt(sc),
		Prompt:      buildQuestionPrompt(slot, sc),
		MaxTokens:   g.cfg.QuestionMaxTokens,
		Temperature: g.cfg.QuestionTemperature,
	}

	res := QuestionResult{}
	for try := 0; try < g.cfg.MaxDuplicateAttempts; try++ {
		text, attempts, err := g.generateText(ctx, "generate_question", req)
		res.Attempts += attempts
		if err != nil {
			var aiErr *AIError
			if !errors.As(err, &aiErr) {
				return res, err
			}
			if fb, ok := pick(g.questions, slot.Category, sc.AskedInCategory); ok {
				log.Printf("generator: session=%s category=%s question fallback after %s", sc.SessionID, slot.Category, aiErr.Kind)
				g.metrics.FallbackUsed("question", string(slot.Category))
				res.Text, res.Source = fb, SourceFallback
				return res, nil
			}
			return res, surface(aiErr)
		}
		if g.guard.IsDuplicate(text, sc.PriorQuestions) {
			res.Rejections++
			g.metrics.DuplicateRejected()
			continue
		}
		res.Text, res.Source = text, SourceGenerated
		return res, nil
	}

	if fb, ok := pick(g.questions, slot.Category, sc.AskedInCategory); ok {
		log.Printf("generator: session=%s category=%s question fallback after %d duplicate rejections", sc.SessionID, slot.Category, res.Rejections)
		g.metrics.FallbackUsed("question", string(slot.Category))
		res.Text, res.Source = fb, SourceFallback
		return res, nil
	}
	return res, surface(&AIError{
		Kind:     KindDuplicate,
		Op:       "generate_question",
		Attempts: res.Attempts,
		Err:      fmt.Errorf("%d candidates rejected as duplicates and no %s fallback", res.Rejections, slot.Category),
	})
}

// GenerateAIAnswer produces the persona's answer to question.
func (g *Generator) GenerateAIAnswer(ctx context.Context, question string, category plan.Category, p persona.Persona, sc SessionContext) (AnswerResult, error) {
	req := llm.Request{
		SessionID:   sc.SessionID,
		Purpose:     llm.PurposeAnswer,
		Category:    string(category),
		System:      answerSystemPrompt(p),
		Prompt:      buildAnswerPrompt(question, category, sc),
		MaxTokens:   g.cfg.AnswerMaxTokens,
		Temperature: g.cfg.AnswerTemperature,
	}
	text, attempts, err := g.generateText(ctx, "generate_ai_answer", req)
	if err == nil {
		return AnswerResult{Text: text, Source: SourceGenerated, Attempts: attempts}, nil
	}
	var aiErr *AIError
	if !errors.As(err, &aiErr) {
		return AnswerResult{Attempts: attempts}, err
	}
	if fb, ok := pick(g.answers, category, sc.AskedInCategory); ok {
		log.Printf("generator: session=%s category=%s answer fallback after %s", sc.SessionID, category, aiErr.Kind)
		g.metrics.FallbackUsed("answer", string(category))
		return AnswerResult{Text: fb, Source: SourceFallback, Attempts: attempts}, nil
	}
	return AnswerResult{Attempts: attempts}, surface(aiErr)
}

// generateText runs one logical call with rate budget, retries and backoff.
// An exhausted budget ends the call at once without retrying. It returns ctx.Err() unwrapped when the caller's context ends, otherwise
// an *AIError once attempts are exhausted.
func (g *Generator) generateText(ctx context.Context, op string, req llm.Request) (string, int, error) {
	kind := string(req.Purpose)
	maxAttempts := g.cfg.MaxRetries + 1
	var lastErr error
	attempts := 0
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", attempts, err
		}
		if attempt > 0 {
			if err := g.sleep(ctx, g.cfg.Backoff.Delay(attempt-1, g.cfg.RetryDelay, g.cfg.RetryMaxDelay)); err != nil {
				return "", attempts, err
			}
		}
		attempts++

		if err := g.budget.Take(); err != nil {
			g.metrics.RateLimited()
			g.metrics.ObserveGeneration(kind, "rate_limited", 0)
			return "", attempts, &AIError{Kind: KindRateLimited, Op: op, Attempts: attempts, Err: err}
		}

		start := time.Now()
		resp, err := g.callOnce(ctx, req)
		if err == nil {
			text := strings.TrimSpace(resp.Text)
			if text == "" {
				err = fmt.Errorf("%w: empty text", llm.ErrInvalidResponse)
			} else {
				g.metrics.ObserveGeneration(kind, "ok", time.Since(start))
				return text, attempts, nil
			}
		}
		if ctx.Err() != nil {
			return "", attempts, ctx.Err()
		}
		g.metrics.ObserveGeneration(kind, string(classify(err)), time.Since(start))
		lastErr = err
	}
	return "", attempts, &AIError{Kind: classify(lastErr), Op: op, Attempts: attempts, Err: lastErr}
}

// callOnce issues a single adapter call bounded by CallTimeout. When the
// deadline passes first the call is abandoned and its result, if it ever
// arrives, is dropped.
func (g *Generator) callOnce(ctx context.Context, req llm.Request) (llm.Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()

	type result struct {
		resp llm.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := g.adapter.Generate(callCtx, req)
		done <- result{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(r.err, llm.ErrTimeout) {
			return llm.Response{}, fmt.Errorf("%w: %v", llm.ErrTimeout, r.err)
		}
		return r.resp, r.err
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return llm.Response{}, err
		}
		return llm.Response{}, fmt.Errorf("%w: no response within %s", llm.ErrTimeout, g.cfg.CallTimeout)
	}
}

func pick(bank map[plan.Category][]string, category plan.Category, seed int) (string, bool) {
	texts := bank[category]
	if len(texts) == 0 {
		return "", false
	}
	if seed < 0 {
		seed = -seed
	}
	return texts[seed%len(texts)], true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
