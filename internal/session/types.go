package session

import (
	"github.com/wonwookim/mockinterview/internal/interview"
	"github.com/wonwookim/mockinterview/internal/persona"
)

// CreateRequest defines payload for starting a new interview.
type CreateRequest struct {
	Mode            string `json:"mode"`
	Company         string `json:"company"`
	Position        string `json:"position"`
	ExperienceLevel string `json:"experience_level"`
	CandidateName   string `json:"candidate_name"`
	PersonaSelector string `json:"persona_selector"`
}

// CreateResponse returns the new session and its first question.
type CreateResponse struct {
	SessionID     string             `json:"session_id"`
	FirstQuestion interview.Question `json:"first_question"`
	Persona       persona.Persona    `json:"persona"`
	State         interview.Snapshot `json:"state"`
}
