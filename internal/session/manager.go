// Package session maps session ids to their turn orchestrators.
package session

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonwookim/mockinterview/internal/apperrors"
	"github.com/wonwookim/mockinterview/internal/catalog"
	"github.com/wonwookim/mockinterview/internal/evaluation"
	"github.com/wonwookim/mockinterview/internal/interview"
	"github.com/wonwookim/mockinterview/internal/observability"
	"github.com/wonwookim/mockinterview/internal/persona"
	"github.com/wonwookim/mockinterview/internal/plan"
)

type Config struct {
	IdleTimeout        time.Duration
	CompletedRetention time.Duration
}

type Deps struct {
	Catalog   *catalog.Catalog
	Builder   *plan.Builder
	Personas  *persona.Registry
	Generator interview.Generator
	Metrics   *observability.Metrics
	Now       func() time.Time
}

type entry struct {
	orch *interview.Orchestrator

	feedbackMu sync.Mutex
	feedback   *evaluation.Report
}

// Registry owns every live orchestrator. It is constructed once per process
// and passed to handlers.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	cfg        Config
	deps       Deps
	onExpire   func(interview.Summary)
	onTerminal func(interview.Summary)
}

func NewRegistry(cfg Config, deps Deps) *Registry {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = time.Hour
	}
	if cfg.CompletedRetention <= 0 {
		cfg.CompletedRetention = 10 * time.Minute
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Registry{
		sessions: make(map[string]*entry),
		cfg:      cfg,
		deps:     deps,
	}
}

// SetExpireHook runs fn with the final summary of every evicted session.
func (r *Registry) SetExpireHook(fn func(interview.Summary)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExpire = fn
}

// SetTerminalHook runs fn once per session when it completes or fails.
func (r *Registry) SetTerminalHook(fn func(interview.Summary)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onTerminal = fn
}

// Create builds the plan, selects the persona, registers the orchestrator and
// starts it.
func (r *Registry) Create(ctx context.Context, req CreateRequest) (CreateResponse, error) {
	mode, err := plan.ParseMode(req.Mode)
	if err != nil {
		return CreateResponse{}, err
	}
	p, err := r.deps.Builder.Build(mode, req.Company, req.Position, req.ExperienceLevel)
	if err != nil {
		return CreateResponse{}, err
	}
	company, ok := r.deps.Catalog.Company(p.Company)
	if !ok {
		return CreateResponse{}, apperrors.Configuration("unknown company %q", req.Company)
	}
	ps, err := r.deps.Personas.Select(company.ID, req.PersonaSelector)
	if err != nil {
		return CreateResponse{}, err
	}

	id := uuid.NewString()
	orch, err := interview.New(interview.Params{
		SessionID:     id,
		Plan:          p,
		Persona:       ps,
		CompanyName:   company.Name,
		TechFocus:     company.TechFocus,
		CandidateName: strings.TrimSpace(req.CandidateName),
		Generator:     r.deps.Generator,
		Metrics:       r.deps.Metrics,
		Now:           r.deps.Now,
	})
	if err != nil {
		return CreateResponse{}, err
	}
	orch.SetTerminalHook(r.handleTerminal)

	r.mu.Lock()
	r.sessions[id] = &entry{orch: orch}
	count := len(r.sessions)
	r.mu.Unlock()
	r.deps.Metrics.SetActiveSessions(count)
	r.deps.Metrics.SessionEvent("created")

	first, err := orch.Start(ctx)
	if err != nil {
		r.remove(id)
		return CreateResponse{}, err
	}
	log.Printf("session: created id=%s mode=%s company=%s persona=%s slots=%d", id, mode, company.ID, ps.ID, p.Len())
	return CreateResponse{
		SessionID:     id,
		FirstQuestion: first,
		Persona:       ps,
		State:         orch.Snapshot(),
	}, nil
}

func (r *Registry) Get(sessionID string) (*interview.Orchestrator, error) {
	e, err := r.entry(sessionID)
	if err != nil {
		return nil, err
	}
	return e.orch, nil
}

// ActiveCount reports sessions that have not reached a terminal phase.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, e := range r.sessions {
		if !e.orch.Phase().Terminal() {
			count++
		}
	}
	return count
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// EvictIdle drops sessions idle longer than the idle timeout and terminal
// sessions past their retention. Live sessions are canceled first so any
// in-flight generation stops. It returns the evicted ids.
func (r *Registry) EvictIdle(now time.Time) []string {
	var evicted []*interview.Orchestrator

	r.mu.Lock()
	for id, e := range r.sessions {
		idle := now.Sub(e.orch.LastActivity())
		expired := idle > r.cfg.IdleTimeout
		if ended := e.orch.EndedAt(); !ended.IsZero() && now.Sub(ended) > r.cfg.CompletedRetention {
			expired = true
		}
		if !expired {
			continue
		}
		delete(r.sessions, id)
		evicted = append(evicted, e.orch)
	}
	count := len(r.sessions)
	hook := r.onExpire
	r.mu.Unlock()

	ids := make([]string, 0, len(evicted))
	for _, o := range evicted {
		if !o.Phase().Terminal() {
			o.Cancel("idle timeout")
		}
		ids = append(ids, o.ID())
		log.Printf("session: evicted id=%s phase=%s", o.ID(), o.Phase())
		r.deps.Metrics.SessionEvent("evicted")
		if hook != nil {
			hook(o.Summary())
		}
	}
	r.deps.Metrics.SetActiveSessions(count)
	return ids
}

func (r *Registry) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.EvictIdle(r.deps.Now())
			}
		}
	}()
}

// Shutdown cancels every live session.
func (r *Registry) Shutdown(reason string) {
	r.mu.RLock()
	orchs := make([]*interview.Orchestrator, 0, len(r.sessions))
	for _, e := range r.sessions {
		orchs = append(orchs, e.orch)
	}
	r.mu.RUnlock()
	for _, o := range orchs {
		o.Cancel(reason)
	}
}

func (r *Registry) entry(sessionID string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sessionID]
	if !ok {
		return nil, apperrors.NotFound("session " + sessionID)
	}
	return e, nil
}

func (r *Registry) remove(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	count := len(r.sessions)
	r.mu.Unlock()
	r.deps.Metrics.SetActiveSessions(count)
}

func (r *Registry) handleTerminal(s interview.Summary) {
	r.mu.RLock()
	hook := r.onTerminal
	r.mu.RUnlock()
	if hook != nil {
		hook(s)
	}
}
