// Package interview holds the per-session turn state machine.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonwookim/mockinterview/internal/apperrors"
	"github.com/wonwookim/mockinterview/internal/generator"
	"github.com/wonwookim/mockinterview/internal/observability"
	"github.com/wonwookim/mockinterview/internal/persona"
	"github.com/wonwookim/mockinterview/internal/plan"
)

// Generator is the subset of generator.Generator the orchestrator drives.
type Generator interface {
	GenerateQuestion(ctx context.Context, slot plan.Slot, sc generator.SessionContext) (generator.QuestionResult, error)
	GenerateAIAnswer(ctx context.Context, question string, category plan.Category, p persona.Persona, sc generator.SessionContext) (generator.AnswerResult, error)
}

type Params struct {
	SessionID     string
	Plan          plan.Plan
	Persona       persona.Persona
	CompanyName   string
	TechFocus     []string
	CandidateName string
	Generator     Generator
	Metrics       *observability.Metrics
	Now           func() time.Time
}

// Orchestrator owns one session. turnMu admits one transition at a time, is
// held across generation calls and is never waited on by a second request; mu guards the fields below it so readers
// never wait on a generation call.
type Orchestrator struct {
	id            string
	plan          plan.Plan
	persona       persona.Persona
	companyName   string
	techFocus     []string
	candidateName string
	gen           Generator
	metrics       *observability.Metrics
	now           func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	turnMu sync.Mutex

	mu           sync.RWMutex
	phase        Phase
	currentIndex int
	current      *Question
	transcript   []QuestionAnswer
	failure      string
	createdAt    time.Time
	lastActivity time.Time
	endedAt      time.Time
	onTerminal   func(Summary)
}

func New(p Params) (*Orchestrator, error) {
	if p.Generator == nil {
		return nil, apperrors.Configuration("generator is required")
	}
	if p.Plan.Len() == 0 {
		return nil, apperrors.Configuration("plan has no slots")
	}
	if p.SessionID == "" {
		p.SessionID = uuid.NewString()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	now := p.Now().UTC()
	return &Orchestrator{
		id:            p.SessionID,
		plan:          p.Plan.Clone(),
		persona:       p.Persona,
		companyName:   p.CompanyName,
		techFocus:     append([]string(nil), p.TechFocus...),
		candidateName: p.CandidateName,
		gen:           p.Generator,
		metrics:       p.Metrics,
		now:           p.Now,
		ctx:           ctx,
		cancel:        cancel,
		phase:         PhaseCreated,
		createdAt:     now,
		lastActivity:  now,
	}, nil
}

func (o *Orchestrator) ID() string { return o.id }

func (o *Orchestrator) Plan() plan.Plan { return o.plan.Clone() }

func (o *Orchestrator) Persona() persona.Persona { return o.persona }

// SetTerminalHook registers fn to run once, in its own goroutine, when the
// session reaches COMPLETED or FAILED.
func (o *Orchestrator) SetTerminalHook(fn func(Summary)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onTerminal = fn
}

// Start resolves the first question and waits for the user.
func (o *Orchestrator) Start(ctx context.Context) (Question, error) {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	o.mu.Lock()
	if o.phase != PhaseCreated {
		phase := o.phase
		o.mu.Unlock()
		return Question{}, apperrors.InvalidTransition("start", string(phase))
	}
	o.touchLocked()
	o.mu.Unlock()

	q, err := o.resolveQuestion(ctx, 0)
	if err != nil {
		return Question{}, err
	}

	o.mu.Lock()
	o.current = &q
	o.phase = PhaseAwaitingUser
	o.mu.Unlock()
	o.metrics.SessionEvent("started")
	return q, nil
}

// SubmitUserAnswer records the user's answer to the current question. In solo
// mode the next question is resolved before returning; in competition mode the
// session waits for the AI counter-turn.
func (o *Orchestrator) SubmitUserAnswer(ctx context.Context, text string, durationSeconds *float64) (Snapshot, error) {
	if durationSeconds != nil && *durationSeconds < 0 {
		return o.Snapshot(), apperrors.New(apperrors.CodeInvalidInput, "time spent must not be negative")
	}

	if !o.turnMu.TryLock() {
		return o.Snapshot(), o.busy("submit_user_answer")
	}
	defer o.turnMu.Unlock()

	o.mu.Lock()
	if o.phase != PhaseAwaitingUser {
		phase := o.phase
		o.mu.Unlock()
		return o.Snapshot(), apperrors.InvalidTransition("submit_user_answer", string(phase))
	}
	o.appendLocked(SpeakerUser, strings.TrimSpace(text), durationSeconds)
	if o.plan.Mode == plan.ModeCompetition {
		o.phase = PhaseAwaitingAI
		o.mu.Unlock()
		return o.Snapshot(), nil
	}
	next, done := o.advanceLocked()
	o.mu.Unlock()

	if done {
		o.finish()
		return o.Snapshot(), nil
	}
	if err := o.moveToQuestion(ctx, next); err != nil {
		return o.Snapshot(), err
	}
	return o.Snapshot(), nil
}

// AdvanceAITurn generates the AI candidate's answer to the question the user
// just answered, then resolves the next question.
func (o *Orchestrator) AdvanceAITurn(ctx context.Context) (AITurn, error) {
	if !o.turnMu.TryLock() {
		return AITurn{State: o.Snapshot()}, o.busy("advance_ai_turn")
	}
	defer o.turnMu.Unlock()

	o.mu.Lock()
	if o.phase != PhaseAwaitingAI {
		phase := o.phase
		o.mu.Unlock()
		return AITurn{State: o.Snapshot()}, apperrors.InvalidTransition("advance_ai_turn", string(phase))
	}
	q := *o.current
	sc := o.sessionContextLocked(q.Index, q.Category)
	o.phase = PhaseGenerating
	o.touchLocked()
	o.mu.Unlock()

	genCtx, release := o.generationContext(ctx)
	res, err := o.gen.GenerateAIAnswer(genCtx, q.Text, q.Category, o.persona, sc)
	release()

	o.mu.Lock()
	if o.phase.Terminal() {
		// Canceled while generating; the late result is dropped.
		reason := o.failure
		o.mu.Unlock()
		return AITurn{State: o.Snapshot()}, apperrors.Newf(apperrors.CodeSessionFailed, "session ended: %s", reason)
	}
	if err != nil {
		o.mu.Unlock()
		return AITurn{State: o.Snapshot()}, o.failTurn("ai answer generation failed", err)
	}
	entry := o.appendLocked(SpeakerAI, res.Text, nil)
	next, done := o.advanceLocked()
	o.mu.Unlock()

	turn := AITurn{AIAnswer: entry}
	if done {
		o.finish()
		turn.State = o.Snapshot()
		return turn, nil
	}
	if err := o.moveToQuestion(ctx, next); err != nil {
		turn.State = o.Snapshot()
		return turn, err
	}
	turn.State = o.Snapshot()
	turn.NextQuestion = turn.State.CurrentQuestion
	return turn, nil
}

// busy rejects a request that arrives while another transition holds the
// session. The request is not queued; it would otherwise land on a slot the
// client has not seen yet.
func (o *Orchestrator) busy(op string) error {
	phase := o.Phase()
	if !phase.Terminal() {
		phase = PhaseGenerating
	}
	return apperrors.InvalidTransition(op, string(phase))
}

// Cancel moves a live session to FAILED and aborts any in-flight generation.
// Canceling a terminal session is a no-op.
func (o *Orchestrator) Cancel(reason string) Snapshot {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "canceled"
	}
	o.fail(reason)
	return o.Snapshot()
}

// Transcript returns a copy of the transcript in interview order.
func (o *Orchestrator) Transcript() []QuestionAnswer {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]QuestionAnswer(nil), o.transcript...)
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) Phase() Phase {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.phase
}

// LastActivity reports when the session last changed.
func (o *Orchestrator) LastActivity() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastActivity
}

// EndedAt is zero until the session is terminal.
func (o *Orchestrator) EndedAt() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.endedAt
}

func (o *Orchestrator) Summary() Summary {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.summaryLocked()
}

func (o *Orchestrator) moveToQuestion(ctx context.Context, index int) error {
	q, err := o.resolveQuestion(ctx, index)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase.Terminal() {
		return apperrors.Newf(apperrors.CodeSessionFailed, "session ended: %s", o.failure)
	}
	o.current = &q
	o.phase = PhaseAwaitingUser
	o.touchLocked()
	return nil
}

// resolveQuestion returns the text for slot index. Generated slots dip into
// GENERATING; on failure the session is failed and the error returned.
func (o *Orchestrator) resolveQuestion(ctx context.Context, index int) (Question, error) {
	slot, ok := o.plan.Slot(index)
	if !ok {
		return Question{}, apperrors.Newf(apperrors.CodeInternal, "slot %d out of range", index)
	}
	if slot.IsFixed {
		return Question{Index: index, Category: slot.Category, Text: slot.FixedText, Source: string(generator.SourceFixed)}, nil
	}

	o.mu.Lock()
	if o.phase.Terminal() {
		reason := o.failure
		o.mu.Unlock()
		return Question{}, apperrors.Newf(apperrors.CodeSessionFailed, "session ended: %s", reason)
	}
	sc := o.sessionContextLocked(index, slot.Category)
	o.phase = PhaseGenerating
	o.mu.Unlock()

	genCtx, release := o.generationContext(ctx)
	res, err := o.gen.GenerateQuestion(genCtx, slot, sc)
	release()

	o.mu.RLock()
	phase, reason := o.phase, o.failure
	o.mu.RUnlock()
	if phase.Terminal() {
		return Question{}, apperrors.Newf(apperrors.CodeSessionFailed, "session ended: %s", reason)
	}
	if err != nil {
		return Question{}, o.failTurn("question generation failed", err)
	}
	if res.Source == generator.SourceFallback {
		log.Printf("interview: session=%s slot=%d category=%s using fallback question", o.id, index, slot.Category)
	}
	return Question{Index: index, Category: slot.Category, Text: res.Text, Source: string(res.Source)}, nil
}

// generationContext merges the caller's context with the session's so either
// one aborts the call.
func (o *Orchestrator) generationContext(ctx context.Context) (context.Context, func()) {
	genCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(o.ctx, cancel)
	return genCtx, func() {
		stop()
		cancel()
	}
}

// failTurn fails the session after a generation error and returns the error
// for the caller. A caller that went away counts as a cancellation.
func (o *Orchestrator) failTurn(what string, err error) error {
	reason := fmt.Sprintf("%s: %s", what, apperrors.CodeOf(err))
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		reason = what + ": canceled"
	}
	o.fail(reason)
	return apperrors.Wrap(err, apperrors.CodeSessionFailed, what)
}

func (o *Orchestrator) fail(reason string) {
	o.mu.Lock()
	if o.phase.Terminal() {
		o.mu.Unlock()
		return
	}
	o.phase = PhaseFailed
	o.failure = reason
	o.current = nil
	o.endedAt = o.now().UTC()
	o.lastActivity = o.endedAt
	index := o.currentIndex
	summary, hook := o.summaryLocked(), o.onTerminal
	o.mu.Unlock()

	o.cancel()
	log.Printf("interview: session=%s failed at index=%d reason=%q", o.id, index, reason)
	o.metrics.SessionEvent("failed")
	if hook != nil {
		go hook(summary)
	}
}

func (o *Orchestrator) finish() {
	o.mu.Lock()
	if o.phase.Terminal() {
		o.mu.Unlock()
		return
	}
	o.phase = PhaseCompleted
	o.current = nil
	o.endedAt = o.now().UTC()
	o.lastActivity = o.endedAt
	summary, hook := o.summaryLocked(), o.onTerminal
	o.mu.Unlock()

	o.cancel()
	log.Printf("interview: session=%s completed entries=%d", o.id, len(summary.Transcript))
	o.metrics.SessionEvent("completed")
	if hook != nil {
		go hook(summary)
	}
}

func (o *Orchestrator) appendLocked(speaker Speaker, text string, durationSeconds *float64) QuestionAnswer {
	q := o.current
	var d *float64
	if durationSeconds != nil {
		v := *durationSeconds
		d = &v
	}
	entry := QuestionAnswer{
		ID:                    uuid.NewString(),
		Index:                 q.Index,
		QuestionType:          q.Category,
		QuestionText:          q.Text,
		Speaker:               speaker,
		AnswerText:            text,
		AnswerDurationSeconds: d,
		CreatedAt:             o.now().UTC(),
	}
	o.transcript = append(o.transcript, entry)
	o.touchLocked()
	return entry
}

// advanceLocked marks the current slot complete and reports the next index
// or that the plan is exhausted.
func (o *Orchestrator) advanceLocked() (int, bool) {
	o.currentIndex++
	if o.currentIndex >= o.plan.Len() {
		return o.currentIndex, true
	}
	return o.currentIndex, false
}

func (o *Orchestrator) touchLocked() {
	o.lastActivity = o.now().UTC()
}

func (o *Orchestrator) sessionContextLocked(index int, category plan.Category) generator.SessionContext {
	sc := generator.SessionContext{
		SessionID:       o.id,
		CompanyName:     o.companyName,
		TechFocus:       o.techFocus,
		Position:        o.plan.Position,
		ExperienceLevel: o.plan.ExperienceLevel,
		CandidateName:   o.candidateName,
	}
	lastIndex := -1
	for _, e := range o.transcript {
		if e.Index != lastIndex {
			sc.PriorQuestions = append(sc.PriorQuestions, e.QuestionText)
			lastIndex = e.Index
		}
		if e.Speaker == SpeakerUser {
			sc.LastUserAnswer = e.AnswerText
		}
	}
	for i := 0; i < index && i < o.plan.Len(); i++ {
		if o.plan.Slots[i].Category == category {
			sc.AskedInCategory++
		}
	}
	return sc
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	s := Snapshot{
		SessionID:        o.id,
		Mode:             o.plan.Mode,
		Phase:            o.phase,
		CurrentIndex:     o.currentIndex,
		PlanLength:       o.plan.Len(),
		PersonaID:        o.persona.ID,
		TranscriptLength: len(o.transcript),
		FailureReason:    o.failure,
		CreatedAt:        o.createdAt,
		LastActivityAt:   o.lastActivity,
	}
	if o.current != nil && (o.phase == PhaseAwaitingUser || o.phase == PhaseAwaitingAI) {
		q := *o.current
		s.CurrentQuestion = &q
	}
	return s
}

func (o *Orchestrator) summaryLocked() Summary {
	transcript := append([]QuestionAnswer(nil), o.transcript...)
	return Summary{
		SessionID:     o.id,
		Mode:          o.plan.Mode,
		Company:       o.plan.Company,
		Position:      o.plan.Position,
		CandidateName: o.candidateName,
		PersonaID:     o.persona.ID,
		Phase:         o.phase,
		FailureReason: o.failure,
		Plan:          o.plan.Clone(),
		Transcript:    transcript,
		Durations:     durationStats(transcript),
		CreatedAt:     o.createdAt,
		EndedAt:       o.endedAt,
	}
}
