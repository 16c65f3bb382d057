package evaluation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/montanaflynn/stats"

	"github.com/wonwookim/mockinterview/internal/interview"
	"github.com/wonwookim/mockinterview/internal/plan"
)

const (
	targetWords     = 120
	minDurationSecs = 5
)

// Heuristic scores answers on length, concreteness and pacing. It is the
// default when no external evaluator is configured.
type Heuristic struct {
	now func() time.Time
}

func NewHeuristic() *Heuristic {
	return &Heuristic{now: time.Now}
}

func (h *Heuristic) Evaluate(ctx context.Context, summary interview.Summary) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	report := Report{
		SessionID: summary.SessionID,
		Evaluator: "heuristic",
		CreatedAt: h.now().UTC(),
	}
	var userScores, aiScores stats.Float64Data
	byCategory := map[plan.Category]stats.Float64Data{}
	for _, e := range summary.Transcript {
		score, comment := scoreAnswer(e)
		report.PerQuestionScores = append(report.PerQuestionScores, QuestionScore{
			Index:    e.Index,
			Category: e.QuestionType,
			Speaker:  e.Speaker,
			Score:    score,
			Comment:  comment,
		})
		if e.Speaker == interview.SpeakerAI {
			aiScores = append(aiScores, score)
			continue
		}
		userScores = append(userScores, score)
		byCategory[e.QuestionType] = append(byCategory[e.QuestionType], score)
	}

	if len(userScores) > 0 {
		mean, _ := stats.Mean(userScores)
		report.OverallScore = round1(mean)
	}
	if len(aiScores) > 0 {
		mean, _ := stats.Mean(aiScores)
		v := round1(mean)
		report.AIOverallScore = &v
	}
	report.FeedbackText = feedbackText(report, byCategory)
	return report, nil
}

func scoreAnswer(e interview.QuestionAnswer) (float64, string) {
	words := len(strings.Fields(e.AnswerText))
	if words == 0 {
		return 0, "no answer given"
	}
	score := 30 + 60*math.Min(float64(words), targetWords)/targetWords
	comment := ""
	if words < 20 {
		comment = "answer is short; add a concrete example"
	}
	if strings.IndexFunc(e.AnswerText, unicode.IsDigit) >= 0 {
		score += 10
	}
	if d := e.AnswerDurationSeconds; d != nil && *d < minDurationSecs {
		score -= 10
		if comment == "" {
			comment = "answer was rushed"
		}
	}
	return round1(math.Max(0, math.Min(100, score))), comment
}

func feedbackText(r Report, byCategory map[plan.Category]stats.Float64Data) string {
	if len(byCategory) == 0 {
		return "No answers were recorded."
	}
	type catMean struct {
		cat  plan.Category
		mean float64
	}
	means := make([]catMean, 0, len(byCategory))
	for cat, data := range byCategory {
		m, _ := stats.Mean(data)
		means = append(means, catMean{cat: cat, mean: m})
	}
	sort.Slice(means, func(i, j int) bool {
		if means[i].mean == means[j].mean {
			return means[i].cat < means[j].cat
		}
		return means[i].mean > means[j].mean
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Overall score %.1f/100.", r.OverallScore)
	if len(means) > 1 {
		best, worst := means[0], means[len(means)-1]
		fmt.Fprintf(&b, " Strongest area: %s (%.1f). Needs work: %s (%.1f).", best.cat, best.mean, worst.cat, worst.mean)
	}
	if r.AIOverallScore != nil {
		diff := r.OverallScore - *r.AIOverallScore
		switch {
		case diff > 0:
			fmt.Fprintf(&b, " You scored %.1f points above the AI candidate.", diff)
		case diff < 0:
			fmt.Fprintf(&b, " The AI candidate scored %.1f points above you.", -diff)
		default:
			b.WriteString(" You tied with the AI candidate.")
		}
	}
	return b.String()
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
