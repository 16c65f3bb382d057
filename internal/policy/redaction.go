package policy

import (
	"regexp"
	"strings"

	"github.com/wonwookim/mockinterview/internal/interview"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	rrnPattern   = regexp.MustCompile(`\b\d{6}-[1-4]\d{6}\b`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
)

type rule struct {
	pattern *regexp.Regexp
	marker  string
}

// Order matters: resident numbers and cards before the looser phone pattern.
var rules = []rule{
	{emailPattern, "[REDACTED_EMAIL]"},
	{rrnPattern, "[REDACTED_RRN]"},
	{cardPattern, "[REDACTED_CARD]"},
	{phonePattern, "[REDACTED_PHONE]"},
}

// RedactPII masks common high-risk PII patterns.
func RedactPII(input string) (redacted string, changed bool) {
	out := input
	for _, r := range rules {
		next := r.pattern.ReplaceAllString(out, r.marker)
		changed = changed || next != out
		out = next
	}
	return out, changed
}

// RedactSummary returns a copy of s with answer text scrubbed and the
// candidate's name masked wherever it appears in answers.
func RedactSummary(s interview.Summary) (interview.Summary, bool) {
	out := s
	out.Transcript = make([]interview.QuestionAnswer, len(s.Transcript))
	name := strings.TrimSpace(s.CandidateName)
	changed := false
	for i, e := range s.Transcript {
		text, c := RedactPII(e.AnswerText)
		if name != "" && strings.Contains(text, name) {
			text = strings.ReplaceAll(text, name, "[REDACTED_NAME]")
			c = true
		}
		e.AnswerText = text
		out.Transcript[i] = e
		changed = changed || c
	}
	if name != "" {
		out.CandidateName = "[REDACTED_NAME]"
		changed = true
	}
	return out, changed
}
