package llm

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// MockAdapter provides deterministic local text when no provider is configured.
type MockAdapter struct {
	calls atomic.Uint64
}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

var mockQuestions = map[string][]string{
	"HR": {
		"Which personal habit has helped you most in your career so far?",
		"Recall a moment when you missed a commitment. How did you recover?",
		"What kind of manager brings out your best work?",
		"When have you changed your mind after strong pushback?",
		"Which achievement outside engineering are you proudest of?",
		"How do you recharge after an exhausting release week?",
	},
	"TECH": {
		"How would you shard a write-heavy PostgreSQL table?",
		"Explain eventual consistency using an example from payments.",
		"Walk through debugging a memory leak in a long-running service.",
		"Compare optimistic and pessimistic locking trade-offs.",
		"Design an idempotent webhook consumer.",
		"Which metrics would you alert on for a checkout API?",
		"Outline a zero-downtime schema migration.",
		"How does HTTP/2 multiplexing change connection pooling?",
	},
	"COLLABORATION": {
		"How do you onboard a new teammate onto a legacy codebase?",
		"Share how you negotiated scope with a product manager.",
		"What do you do when code review stalls for days?",
	},
	"FOLLOWUP": {
		"Earlier you mentioned a project; what would you redo differently now?",
	},
}

func (a *MockAdapter) Generate(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}
	n := a.calls.Add(1)

	if req.Purpose == PurposeAnswer {
		return Response{Text: buildMockAnswer(req), Model: "mock"}, nil
	}
	pool := mockQuestions[strings.ToUpper(req.Category)]
	if len(pool) == 0 {
		pool = mockQuestions["TECH"]
	}
	return Response{Text: pool[int(n-1)%len(pool)], Model: "mock"}, nil
}

func buildMockAnswer(req Request) string {
	q := strings.TrimSpace(req.Prompt)
	if i := strings.LastIndex(q, "Question:"); i >= 0 {
		q = strings.TrimSpace(q[i+len("Question:"):])
		if j := strings.Index(q, "\n"); j >= 0 {
			q = strings.TrimSpace(q[:j])
		}
	}
	if q == "" {
		q = "that question"
	}
	return fmt.Sprintf("Good question. On %q, I would start from a concrete project, explain the decision I made, and close with the measurable result.", q)
}
