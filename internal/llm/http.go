package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wonwookim/mockinterview/internal/reliability"
)

const defaultBaseURL = "https://api.openai.com/v1"

// HTTPAdapter calls an OpenAI-compatible chat completions endpoint.
type HTTPAdapter struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewHTTPAdapter(baseURL, apiKey, model string, timeout time.Duration) *HTTPAdapter {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPAdapter{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (a *HTTPAdapter) Generate(ctx context.Context, req Request) (Response, error) {
	messages := make([]chatMessage, 0, 2)
	if s := strings.TrimSpace(req.System); s != "" {
		messages = append(messages, chatMessage{Role: "system", Content: s})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload, err := json.Marshal(chatRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	res, err := a.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Response{}, err
		}
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return Response{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return Response{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		switch {
		case res.StatusCode == http.StatusTooManyRequests:
			return Response{}, fmt.Errorf("%w: http 429: %s", ErrRateLimited, snippet)
		case res.StatusCode == http.StatusRequestTimeout || res.StatusCode == http.StatusGatewayTimeout:
			return Response{}, fmt.Errorf("%w: http %d: %s", ErrTimeout, res.StatusCode, snippet)
		case reliability.IsRetryableHTTPStatus(res.StatusCode):
			return Response{}, fmt.Errorf("llm http status %d: %s", res.StatusCode, snippet)
		default:
			return Response{}, fmt.Errorf("%w: http %d: %s", ErrInvalidResponse, res.StatusCode, snippet)
		}
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Response{}, fmt.Errorf("%w: decode: %v", ErrInvalidResponse, err)
	}
	if decoded.Error != nil {
		return Response{}, fmt.Errorf("%w: %s", ErrInvalidResponse, decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return Response{}, fmt.Errorf("%w: no choices", ErrInvalidResponse)
	}
	text := cleanText(decoded.Choices[0].Message.Content)
	if text == "" {
		return Response{}, fmt.Errorf("%w: empty content", ErrInvalidResponse)
	}
	model := decoded.Model
	if model == "" {
		model = a.model
	}
	return Response{Text: text, Model: model}, nil
}

// cleanText strips markdown fences and surrounding quotes models like to add.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "```text", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"“”")
	return strings.TrimSpace(s)
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
