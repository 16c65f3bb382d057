package interview

import (
	"time"

	"github.com/montanaflynn/stats"

	"github.com/wonwookim/mockinterview/internal/plan"
)

// DurationStats summarizes one speaker's answer durations in seconds.
type DurationStats struct {
	Count  int     `json:"count"`
	Total  float64 `json:"total"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// Summary is the hand-off artifact of a session: plan, transcript and timing.
type Summary struct {
	SessionID     string                    `json:"session_id"`
	Mode          plan.Mode                 `json:"mode"`
	Company       string                    `json:"company"`
	Position      string                    `json:"position"`
	CandidateName string                    `json:"candidate_name,omitempty"`
	PersonaID     string                    `json:"persona_id"`
	Phase         Phase                     `json:"phase"`
	FailureReason string                    `json:"failure_reason,omitempty"`
	Plan          plan.Plan                 `json:"plan"`
	Transcript    []QuestionAnswer          `json:"transcript"`
	Durations     map[Speaker]DurationStats `json:"durations"`
	CreatedAt     time.Time                 `json:"created_at"`
	EndedAt       time.Time                 `json:"ended_at,omitempty"`
}

func durationStats(entries []QuestionAnswer) map[Speaker]DurationStats {
	bySpeaker := map[Speaker]stats.Float64Data{}
	for _, e := range entries {
		if e.AnswerDurationSeconds == nil {
			continue
		}
		bySpeaker[e.Speaker] = append(bySpeaker[e.Speaker], *e.AnswerDurationSeconds)
	}
	out := make(map[Speaker]DurationStats, len(bySpeaker))
	for speaker, data := range bySpeaker {
		total, _ := stats.Sum(data)
		mean, _ := stats.Mean(data)
		median, _ := stats.Median(data)
		out[speaker] = DurationStats{
			Count:  data.Len(),
			Total:  total,
			Mean:   mean,
			Median: median,
		}
	}
	return out
}
