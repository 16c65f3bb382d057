package persona

import (
	"sort"
	"strings"

	"github.com/wonwookim/mockinterview/internal/apperrors"
	"github.com/wonwookim/mockinterview/internal/catalog"
)

// Persona is an AI candidate profile used to bias generated answers.
type Persona struct {
	ID             string   `json:"id"`
	Company        string   `json:"company"`
	Gender         string   `json:"gender"`
	DisplayName    string   `json:"display_name"`
	VoiceProfileID string   `json:"voice_profile_id"`
	SkillBias      []string `json:"skill_bias"`
	SpeakingStyle  string   `json:"speaking_style"`
}

func (p Persona) clone() Persona {
	p.SkillBias = append([]string(nil), p.SkillBias...)
	return p
}

// Registry is an immutable persona table keyed by id and by company+gender.
type Registry struct {
	byID        map[string]Persona
	byCompany   map[string][]string
	defaultID   string
	orderedKeys []string
}

func NewRegistry(defs []catalog.PersonaDef, defaultID string) *Registry {
	r := &Registry{
		byID:      make(map[string]Persona, len(defs)),
		byCompany: make(map[string][]string),
		defaultID: strings.TrimSpace(defaultID),
	}
	for _, d := range defs {
		p := Persona{
			ID:             strings.TrimSpace(d.ID),
			Company:        strings.ToLower(strings.TrimSpace(d.Company)),
			Gender:         strings.ToLower(strings.TrimSpace(d.Gender)),
			DisplayName:    strings.TrimSpace(d.DisplayName),
			VoiceProfileID: strings.TrimSpace(d.VoiceProfileID),
			SkillBias:      append([]string(nil), d.SkillBias...),
			SpeakingStyle:  strings.TrimSpace(d.SpeakingStyle),
		}
		if p.ID == "" {
			continue
		}
		if p.DisplayName == "" {
			p.DisplayName = p.ID
		}
		r.byID[p.ID] = p
		r.byCompany[p.Company] = append(r.byCompany[p.Company], p.ID)
		r.orderedKeys = append(r.orderedKeys, p.ID)
	}
	if r.defaultID == "" && len(r.orderedKeys) > 0 {
		r.defaultID = r.orderedKeys[0]
	}
	return r
}

// FromCatalog builds the registry from a loaded catalog.
func FromCatalog(c *catalog.Catalog) *Registry {
	return NewRegistry(c.Personas, c.DefaultPersona)
}

func (r *Registry) Get(id string) (Persona, bool) {
	p, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return Persona{}, false
	}
	return p.clone(), true
}

// Select resolves a persona for companyID. The selector may be a persona id,
// a gender, or empty. Resolution order: exact id, company+gender, first
// persona of the company, registry default.
func (r *Registry) Select(companyID, selector string) (Persona, error) {
	selector = strings.TrimSpace(selector)
	companyID = strings.ToLower(strings.TrimSpace(companyID))

	if p, ok := r.byID[selector]; ok {
		return p.clone(), nil
	}

	gender := strings.ToLower(selector)
	switch gender {
	case "", "male", "female", "m", "f", "any":
	default:
		return Persona{}, apperrors.Configuration("unknown persona selector %q", selector)
	}
	switch gender {
	case "m":
		gender = "male"
	case "f":
		gender = "female"
	case "any":
		gender = ""
	}

	ids := r.byCompany[companyID]
	if gender != "" {
		for _, id := range ids {
			if r.byID[id].Gender == gender {
				return r.byID[id].clone(), nil
			}
		}
	}
	if len(ids) > 0 {
		return r.byID[ids[0]].clone(), nil
	}
	if p, ok := r.byID[r.defaultID]; ok {
		return p.clone(), nil
	}
	return Persona{}, apperrors.Configuration("no persona available for company %q", companyID)
}

// List returns every persona sorted by company then id.
func (r *Registry) List() []Persona {
	out := make([]Persona, 0, len(r.byID))
	for _, id := range r.orderedKeys {
		out = append(out, r.byID[id].clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Company != out[j].Company {
			return out[i].Company < out[j].Company
		}
		return out[i].ID < out[j].ID
	})
	return out
}
