package session

import (
	"context"
	"fmt"

	"github.com/wonwookim/mockinterview/internal/apperrors"
	"github.com/wonwookim/mockinterview/internal/evaluation"
	"github.com/wonwookim/mockinterview/internal/interview"
	"github.com/wonwookim/mockinterview/internal/persona"
)

// Service is the inbound surface of the interview core. Handlers call it;
// it never touches HTTP types.
type Service struct {
	registry  *Registry
	evaluator evaluation.Evaluator
}

func NewService(registry *Registry, evaluator evaluation.Evaluator) *Service {
	if evaluator == nil {
		evaluator = evaluation.NewHeuristic()
	}
	return &Service{registry: registry, evaluator: evaluator}
}

func (s *Service) Registry() *Registry { return s.registry }

func (s *Service) StartSession(ctx context.Context, req CreateRequest) (CreateResponse, error) {
	return s.registry.Create(ctx, req)
}

func (s *Service) SubmitUserAnswer(ctx context.Context, sessionID, answerText string, timeSpentSeconds *float64) (interview.Snapshot, error) {
	o, err := s.registry.Get(sessionID)
	if err != nil {
		return interview.Snapshot{}, err
	}
	return o.SubmitUserAnswer(ctx, answerText, timeSpentSeconds)
}

func (s *Service) AdvanceAITurn(ctx context.Context, sessionID string) (interview.AITurn, error) {
	o, err := s.registry.Get(sessionID)
	if err != nil {
		return interview.AITurn{}, err
	}
	return o.AdvanceAITurn(ctx)
}

func (s *Service) GetTranscript(sessionID string) ([]interview.QuestionAnswer, error) {
	o, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return o.Transcript(), nil
}

func (s *Service) GetState(sessionID string) (interview.Snapshot, error) {
	o, err := s.registry.Get(sessionID)
	if err != nil {
		return interview.Snapshot{}, err
	}
	return o.Snapshot(), nil
}

// CancelSession fails a live session and returns the preserved transcript.
func (s *Service) CancelSession(sessionID, reason string) (interview.Snapshot, []interview.QuestionAnswer, error) {
	o, err := s.registry.Get(sessionID)
	if err != nil {
		return interview.Snapshot{}, nil, err
	}
	snap := o.Cancel(reason)
	return snap, o.Transcript(), nil
}

// GetFeedback evaluates a completed session once and caches the report.
// A failed evaluator call is not cached.
func (s *Service) GetFeedback(ctx context.Context, sessionID string) (evaluation.Report, error) {
	e, err := s.registry.entry(sessionID)
	if err != nil {
		return evaluation.Report{}, err
	}
	e.feedbackMu.Lock()
	defer e.feedbackMu.Unlock()
	if e.feedback != nil {
		return *e.feedback, nil
	}
	if phase := e.orch.Phase(); phase != interview.PhaseCompleted {
		return evaluation.Report{}, apperrors.InvalidTransition("get_feedback", string(phase))
	}
	report, err := s.evaluator.Evaluate(ctx, e.orch.Summary())
	if err != nil {
		return evaluation.Report{}, apperrors.Wrap(fmt.Errorf("evaluate session %s: %w", sessionID, err), apperrors.CodeInternal, "evaluation failed")
	}
	e.feedback = &report
	return report, nil
}

func (s *Service) Personas() []persona.Persona {
	return s.registry.deps.Personas.List()
}
