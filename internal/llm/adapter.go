package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Purpose tells the adapter what the text is for; adapters may route on it.
type Purpose string

const (
	PurposeQuestion Purpose = "question"
	PurposeAnswer   Purpose = "answer"
)

// Request is the normalized generation request.
type Request struct {
	SessionID   string  `json:"session_id,omitempty"`
	Purpose     Purpose `json:"purpose"`
	Category    string  `json:"category,omitempty"`
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// Response carries the generated text.
type Response struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

// Adapter is the outbound text-generation collaborator.
type Adapter interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Outbound failure classes. Adapters wrap one of these so callers can use errors.Is.
var (
	ErrRateLimited     = errors.New("text generation rate limited")
	ErrTimeout         = errors.New("text generation timed out")
	ErrInvalidResponse = errors.New("invalid text generation response")
)

// Config controls adapter construction.
type Config struct {
	Provider      string
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	Timeout       time.Duration
}

func NewAdapter(cfg Config) (Adapter, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "auto"
	}

	switch provider {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return NewMockAdapter(), nil
		}
		return newOpenAIChain(cfg), nil
	case "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("OPENAI_API_KEY is required for the openai provider")
		}
		return newOpenAIChain(cfg), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

func newOpenAIChain(cfg Config) Adapter {
	primary := NewHTTPAdapter(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout)
	fallbackModel := strings.TrimSpace(cfg.FallbackModel)
	if fallbackModel == "" || fallbackModel == strings.TrimSpace(cfg.Model) {
		return primary
	}
	return NewFallbackAdapter(primary, NewHTTPAdapter(cfg.BaseURL, cfg.APIKey, fallbackModel, cfg.Timeout))
}
