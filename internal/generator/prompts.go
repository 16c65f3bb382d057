package generator

import (
	"fmt"
	"strings"

	"github.com/wonwookim/mockinterview/internal/persona"
	"github.com/wonwookim/mockinterview/internal/plan"
)

const maxQuotedAnswerRunes = 600

var categoryGuidance = map[plan.Category]string{
	plan.CategoryIntro:         "Ask the candidate to introduce themselves.",
	plan.CategoryMotivation:    "Ask why the candidate wants to join the company.",
	plan.CategoryHR:            "Ask a behavioral question about values, growth, conflict or ownership.",
	plan.CategoryTech:          "Ask one concrete technical question matched to the position and the company's stack.",
	plan.CategoryCollaboration: "Ask how the candidate works with teammates, reviewers or other functions.",
	plan.CategoryFollowUp:      "Ask a follow-up that digs deeper into the candidate's most recent answer.",
}

func questionSystemPrompt(sc SessionContext) string {
	var b strings.Builder
	b.WriteString("You are a professional interviewer")
	if sc.CompanyName != "" {
		fmt.Fprintf(&b, " at %s", sc.CompanyName)
	}
	b.WriteString(". Reply with exactly one interview question and nothing else. ")
	b.WriteString("Do not number it and do not repeat earlier questions.")
	return b.String()
}

func buildQuestionPrompt(slot plan.Slot, sc SessionContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Position: %s\n", sc.Position)
	if sc.ExperienceLevel != "" {
		fmt.Fprintf(&b, "Experience level: %s\n", sc.ExperienceLevel)
	}
	if len(sc.TechFocus) > 0 {
		fmt.Fprintf(&b, "Company stack: %s\n", strings.Join(sc.TechFocus, ", "))
	}
	if sc.CandidateName != "" {
		fmt.Fprintf(&b, "Candidate: %s\n", sc.CandidateName)
	}
	fmt.Fprintf(&b, "Category: %s\n", slot.Category)
	if g, ok := categoryGuidance[slot.Category]; ok {
		b.WriteString(g)
		b.WriteString("\n")
	}
	if slot.Category == plan.CategoryFollowUp && sc.LastUserAnswer != "" {
		fmt.Fprintf(&b, "\nMost recent answer:\n%s\n", truncateRunes(sc.LastUserAnswer, maxQuotedAnswerRunes))
	}
	if len(sc.PriorQuestions) > 0 {
		b.WriteString("\nAlready asked:\n")
		for i, q := range sc.PriorQuestions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q)
		}
	}
	return b.String()
}

func answerSystemPrompt(p persona.Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a job candidate in a mock interview.", p.DisplayName)
	if p.SpeakingStyle != "" {
		fmt.Fprintf(&b, " Speaking style: %s.", p.SpeakingStyle)
	}
	if len(p.SkillBias) > 0 {
		fmt.Fprintf(&b, " Lean on your experience with %s.", strings.Join(p.SkillBias, ", "))
	}
	b.WriteString(" Answer in the first person, in at most five sentences, without markdown.")
	return b.String()
}

func buildAnswerPrompt(question string, category plan.Category, sc SessionContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", sc.CompanyName)
	fmt.Fprintf(&b, "Position: %s\n", sc.Position)
	fmt.Fprintf(&b, "Category: %s\n", category)
	fmt.Fprintf(&b, "Question: %s\n", question)
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
