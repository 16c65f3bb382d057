package reliability

import (
	"strings"
	"time"
)

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// BackoffPolicy selects how the delay grows between attempts.
type BackoffPolicy string

const (
	BackoffExponential BackoffPolicy = "exponential"
	BackoffFixed       BackoffPolicy = "fixed"
)

func ParseBackoffPolicy(raw string) (BackoffPolicy, bool) {
	switch BackoffPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case BackoffExponential, "":
		return BackoffExponential, true
	case BackoffFixed:
		return BackoffFixed, true
	default:
		return "", false
	}
}

// Delay returns the wait before retry number attempt (0-based).
func (p BackoffPolicy) Delay(attempt int, base, cap time.Duration) time.Duration {
	if p == BackoffFixed {
		if cap > 0 && base > cap {
			return cap
		}
		return base
	}
	return ExponentialBackoff(attempt, base, cap)
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
