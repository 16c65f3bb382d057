package plan

import (
	"strings"

	"github.com/wonwookim/mockinterview/internal/apperrors"
)

// Category tags what kind of question a slot asks.
type Category string

const (
	CategoryIntro         Category = "INTRO"
	CategoryMotivation    Category = "MOTIVATION"
	CategoryHR            Category = "HR"
	CategoryTech          Category = "TECH"
	CategoryCollaboration Category = "COLLABORATION"
	CategoryFollowUp      Category = "FOLLOWUP"
)

// Categories lists every category in canonical order.
var Categories = []Category{
	CategoryIntro,
	CategoryMotivation,
	CategoryHR,
	CategoryTech,
	CategoryCollaboration,
	CategoryFollowUp,
}

// ParseCategory accepts any casing and the "follow_up"/"collab" spellings.
func ParseCategory(raw string) (Category, error) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	v = strings.ReplaceAll(v, "-", "_")
	switch v {
	case "INTRO":
		return CategoryIntro, nil
	case "MOTIVATION":
		return CategoryMotivation, nil
	case "HR", "PERSONALITY":
		return CategoryHR, nil
	case "TECH", "TECHNICAL":
		return CategoryTech, nil
	case "COLLABORATION", "COLLAB":
		return CategoryCollaboration, nil
	case "FOLLOWUP", "FOLLOW_UP":
		return CategoryFollowUp, nil
	default:
		return "", apperrors.Configuration("unknown question category %q", raw)
	}
}

// Mode selects the interview format.
type Mode string

const (
	ModeSolo        Mode = "solo"
	ModeCompetition Mode = "competition"
)

func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "solo", "":
		return ModeSolo, nil
	case "competition", "ai_competition", "versus":
		return ModeCompetition, nil
	default:
		return "", apperrors.Configuration("unsupported interview mode %q", raw)
	}
}

// Slot is one position in a plan. Fixed slots carry their text; generated
// slots are filled lazily when the interview reaches them.
type Slot struct {
	Category  Category `json:"category"`
	IsFixed   bool     `json:"is_fixed"`
	FixedText string   `json:"fixed_text,omitempty"`
}

// Plan is the ordered, read-only question plan of one session.
type Plan struct {
	Mode            Mode   `json:"mode"`
	Company         string `json:"company"`
	Position        string `json:"position"`
	ExperienceLevel string `json:"experience_level"`
	Slots           []Slot `json:"slots"`
}

func (p Plan) Len() int { return len(p.Slots) }

// Slot returns the slot at i and whether it exists.
func (p Plan) Slot(i int) (Slot, bool) {
	if i < 0 || i >= len(p.Slots) {
		return Slot{}, false
	}
	return p.Slots[i], true
}

// Counts tallies slots per category.
func (p Plan) Counts() map[Category]int {
	out := make(map[Category]int, len(Categories))
	for _, s := range p.Slots {
		out[s.Category]++
	}
	return out
}

// Clone returns a copy whose slot slice is not shared.
func (p Plan) Clone() Plan {
	out := p
	out.Slots = append([]Slot(nil), p.Slots...)
	return out
}
