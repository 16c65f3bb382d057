package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wonwookim/mockinterview/internal/apperrors"
	"github.com/wonwookim/mockinterview/internal/plan"
)

//go:embed default.yaml
var defaultYAML []byte

// Company is one interviewable company.
type Company struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Aliases   []string `yaml:"aliases"`
	TechFocus []string `yaml:"tech_focus"`
}

// PersonaDef is the on-disk shape of an AI candidate persona.
type PersonaDef struct {
	ID             string   `yaml:"id"`
	Company        string   `yaml:"company"`
	Gender         string   `yaml:"gender"`
	DisplayName    string   `yaml:"display_name"`
	VoiceProfileID string   `yaml:"voice_profile_id"`
	SkillBias      []string `yaml:"skill_bias"`
	SpeakingStyle  string   `yaml:"speaking_style"`
}

// Catalog is the static data loaded once at process start.
type Catalog struct {
	Version           int                 `yaml:"version"`
	DefaultPersona    string              `yaml:"default_persona"`
	Companies         []Company           `yaml:"companies"`
	Personas          []PersonaDef        `yaml:"personas"`
	FallbackQuestions map[string][]string `yaml:"fallback_questions"`
	FallbackAnswers   map[string][]string `yaml:"fallback_answers"`

	companyKeys map[string]int
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// Load reads a catalog file; an empty path selects the embedded default.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfiguration, "parse catalog yaml")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Companies) == 0 {
		return apperrors.Configuration("catalog has no companies")
	}
	c.companyKeys = make(map[string]int, len(c.Companies)*2)
	for i, co := range c.Companies {
		id := normalizeKey(co.ID)
		if id == "" {
			return apperrors.Configuration("company %d has no id", i)
		}
		if _, dup := c.companyKeys[id]; dup {
			return apperrors.Configuration("duplicate company id %q", co.ID)
		}
		c.Companies[i].ID = id
		if strings.TrimSpace(co.Name) == "" {
			c.Companies[i].Name = co.ID
		}
		c.companyKeys[id] = i
		for _, key := range append([]string{co.Name}, co.Aliases...) {
			k := normalizeKey(key)
			if k == "" {
				continue
			}
			if _, taken := c.companyKeys[k]; !taken {
				c.companyKeys[k] = i
			}
		}
	}

	seen := make(map[string]bool, len(c.Personas))
	for i, p := range c.Personas {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return apperrors.Configuration("persona %d has no id", i)
		}
		if seen[id] {
			return apperrors.Configuration("duplicate persona id %q", id)
		}
		seen[id] = true
		if _, ok := c.companyKeys[normalizeKey(p.Company)]; !ok {
			return apperrors.Configuration("persona %q references unknown company %q", id, p.Company)
		}
		c.Personas[i].Company = normalizeKey(p.Company)
		c.Personas[i].Gender = strings.ToLower(strings.TrimSpace(p.Gender))
	}
	if c.DefaultPersona != "" && !seen[c.DefaultPersona] {
		return apperrors.Configuration("default persona %q is not defined", c.DefaultPersona)
	}

	for _, bank := range []map[string][]string{c.FallbackQuestions, c.FallbackAnswers} {
		for key := range bank {
			if _, err := plan.ParseCategory(key); err != nil {
				return apperrors.Wrap(err, apperrors.CodeConfiguration, "invalid fallback bank")
			}
		}
	}
	return nil
}

// ResolveCompany matches an id, display name, or alias case-insensitively.
func (c *Catalog) ResolveCompany(name string) (string, string, bool) {
	i, ok := c.companyKeys[normalizeKey(name)]
	if !ok {
		return "", "", false
	}
	co := c.Companies[i]
	return co.ID, co.Name, true
}

// Company returns the company with the canonical id.
func (c *Catalog) Company(id string) (Company, bool) {
	i, ok := c.companyKeys[normalizeKey(id)]
	if !ok {
		return Company{}, false
	}
	return c.Companies[i], true
}

// QuestionBank returns fallback questions keyed by category.
func (c *Catalog) QuestionBank() map[plan.Category][]string {
	return toBank(c.FallbackQuestions)
}

// AnswerBank returns fallback AI answers keyed by category.
func (c *Catalog) AnswerBank() map[plan.Category][]string {
	return toBank(c.FallbackAnswers)
}

func toBank(raw map[string][]string) map[plan.Category][]string {
	out := make(map[plan.Category][]string, len(raw))
	for key, texts := range raw {
		cat, err := plan.ParseCategory(key)
		if err != nil {
			continue
		}
		for _, t := range texts {
			if t = strings.TrimSpace(t); t != "" {
				out[cat] = append(out[cat], t)
			}
		}
	}
	return out
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
