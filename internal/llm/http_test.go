package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPAdapterGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("path = %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("Authorization = %q", got)
		}
		var body chatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Model != "test-model" {
			t.Fatalf("model = %q, want test-model", body.Model)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Fatalf("messages = %+v", body.Messages)
		}
		_, _ = w.Write([]byte(`{"model":"test-model","choices":[{"message":{"role":"assistant","content":"\"Tell me about yourself.\""}}]}`))
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL, "secret", "test-model", time.Second)
	resp, err := a.Generate(context.Background(), Request{System: "sys", Prompt: "hi", MaxTokens: 50})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Text != "Tell me about yourself." {
		t.Fatalf("Text = %q", resp.Text)
	}
}

func TestHTTPAdapterClassifiesFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`, want: ErrRateLimited},
		{name: "gateway timeout", status: http.StatusGatewayTimeout, body: `{}`, want: ErrTimeout},
		{name: "bad request", status: http.StatusBadRequest, body: `{}`, want: ErrInvalidResponse},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, want: ErrInvalidResponse},
		{name: "not json", status: http.StatusOK, body: `nope`, want: ErrInvalidResponse},
		{name: "empty content", status: http.StatusOK, body: `{"choices":[{"message":{"content":"  "}}]}`, want: ErrInvalidResponse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewHTTPAdapter(srv.URL, "", "", time.Second).Generate(context.Background(), Request{Prompt: "hi"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestHTTPAdapterServerErrorIsPlain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPAdapter(srv.URL, "", "", time.Second).Generate(context.Background(), Request{Prompt: "hi"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, ErrInvalidResponse) || errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want unclassified retryable error", err)
	}
}

func TestHTTPAdapterDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := NewHTTPAdapter(srv.URL, "", "", 5*time.Second).Generate(ctx, Request{Prompt: "hi"})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}
