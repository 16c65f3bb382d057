package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wonwookim/mockinterview/internal/interview"
)

// HTTPEvaluator posts the session summary to an external scoring service.
type HTTPEvaluator struct {
	url    string
	client *http.Client
}

func NewHTTPEvaluator(url string, timeout time.Duration) *HTTPEvaluator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPEvaluator{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: timeout},
	}
}

func (e *HTTPEvaluator) Evaluate(ctx context.Context, summary interview.Summary) (Report, error) {
	payload, err := json.Marshal(summary)
	if err != nil {
		return Report{}, fmt.Errorf("marshal summary: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		return Report{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := e.client.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Report{}, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Report{}, fmt.Errorf("evaluator http status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var report Report
	if err := json.Unmarshal(body, &report); err != nil {
		return Report{}, fmt.Errorf("decode report: %w", err)
	}
	if report.SessionID == "" {
		report.SessionID = summary.SessionID
	}
	if report.Evaluator == "" {
		report.Evaluator = "http"
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	return report, nil
}
