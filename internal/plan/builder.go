package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wonwookim/mockinterview/internal/apperrors"
)

// CompanyDirectory resolves a user-supplied company name to a canonical id
// and display name.
type CompanyDirectory interface {
	ResolveCompany(name string) (id, displayName string, ok bool)
}

const fixedSlotCount = 2

var generatedOrder = []Category{CategoryHR, CategoryTech, CategoryCollaboration, CategoryFollowUp}

// DefaultWeights holds the generated-category counts of each mode's default plan
// (20 solo slots, 15 competition slots including the two fixed openers).
var DefaultWeights = map[Mode]map[Category]int{
	ModeSolo: {
		CategoryHR:            6,
		CategoryTech:          8,
		CategoryCollaboration: 3,
		CategoryFollowUp:      1,
	},
	ModeCompetition: {
		CategoryHR:            4,
		CategoryTech:          6,
		CategoryCollaboration: 2,
		CategoryFollowUp:      1,
	},
}

// DefaultTotals is the plan length per mode.
var DefaultTotals = map[Mode]int{
	ModeSolo:        20,
	ModeCompetition: 15,
}

// Builder produces question plans. It is safe for concurrent use.
type Builder struct {
	companies CompanyDirectory
	totals    map[Mode]int
}

// NewBuilder returns a builder with per-mode plan lengths. Non-positive totals
// fall back to DefaultTotals.
func NewBuilder(companies CompanyDirectory, soloTotal, competitionTotal int) *Builder {
	if soloTotal <= 0 {
		soloTotal = DefaultTotals[ModeSolo]
	}
	if competitionTotal <= 0 {
		competitionTotal = DefaultTotals[ModeCompetition]
	}
	return &Builder{
		companies: companies,
		totals: map[Mode]int{
			ModeSolo:        soloTotal,
			ModeCompetition: competitionTotal,
		},
	}
}

// Total returns the configured plan length for mode.
func (b *Builder) Total(mode Mode) int {
	return b.totals[mode]
}

// Build returns the plan for one session. Slot ordering and category counts
// depend only on mode and the configured totals; generated slots carry no text.
func (b *Builder) Build(mode Mode, company, position, experienceLevel string) (Plan, error) {
	total, ok := b.totals[mode]
	if !ok {
		return Plan{}, apperrors.Configuration("unsupported interview mode %q", mode)
	}
	if total < fixedSlotCount {
		return Plan{}, apperrors.Configuration("plan for mode %s needs at least %d slots, got %d", mode, fixedSlotCount, total)
	}
	if b.companies == nil {
		return Plan{}, apperrors.Configuration("no company directory configured")
	}
	companyID, companyName, ok := b.companies.ResolveCompany(company)
	if !ok {
		return Plan{}, apperrors.Configuration("unknown company %q", company)
	}
	position = strings.TrimSpace(position)
	if position == "" {
		return Plan{}, apperrors.Configuration("position is required")
	}
	experienceLevel = strings.TrimSpace(experienceLevel)
	if experienceLevel == "" {
		experienceLevel = "unspecified"
	}

	counts := scaleCounts(DefaultWeights[mode], total-fixedSlotCount)

	slots := make([]Slot, 0, total)
	slots = append(slots,
		Slot{
			Category:  CategoryIntro,
			IsFixed:   true,
			FixedText: fmt.Sprintf("Please introduce yourself briefly, focusing on the experience most relevant to the %s role.", position),
		},
		Slot{
			Category:  CategoryMotivation,
			IsFixed:   true,
			FixedText: fmt.Sprintf("Why do you want to join %s as a %s?", companyName, position),
		},
	)
	for _, c := range interleave(counts) {
		slots = append(slots, Slot{Category: c})
	}
	for i := 0; i < counts[CategoryFollowUp]; i++ {
		slots = append(slots, Slot{Category: CategoryFollowUp})
	}

	return Plan{
		Mode:            mode,
		Company:         companyID,
		Position:        position,
		ExperienceLevel: experienceLevel,
		Slots:           slots,
	}, nil
}

// scaleCounts distributes n generated slots across categories in proportion to
// weights using the largest-remainder method.
func scaleCounts(weights map[Category]int, n int) map[Category]int {
	out := make(map[Category]int, len(generatedOrder))
	if n <= 0 {
		return out
	}
	sum := 0
	for _, c := range generatedOrder {
		sum += weights[c]
	}
	if sum == n {
		for _, c := range generatedOrder {
			out[c] = weights[c]
		}
		return out
	}
	if sum == 0 {
		out[CategoryTech] = n
		return out
	}

	type remainder struct {
		cat  Category
		frac int
		rank int
	}
	assigned := 0
	rems := make([]remainder, 0, len(generatedOrder))
	for i, c := range generatedOrder {
		q := n * weights[c]
		out[c] = q / sum
		assigned += out[c]
		rems = append(rems, remainder{cat: c, frac: q % sum, rank: i})
	}
	sort.SliceStable(rems, func(i, j int) bool {
		if rems[i].frac != rems[j].frac {
			return rems[i].frac > rems[j].frac
		}
		return rems[i].rank < rems[j].rank
	})
	for i := 0; assigned < n; i++ {
		out[rems[i%len(rems)].cat]++
		assigned++
	}
	return out
}

// interleave orders the HR/TECH/COLLABORATION slots with smooth weighted
// round-robin so categories alternate instead of arriving in blocks.
func interleave(counts map[Category]int) []Category {
	cats := []Category{CategoryHR, CategoryTech, CategoryCollaboration}
	total := 0
	for _, c := range cats {
		total += counts[c]
	}
	current := make([]int, len(cats))
	out := make([]Category, 0, total)
	for step := 0; step < total; step++ {
		best := -1
		for i, c := range cats {
			current[i] += counts[c]
			if counts[c] == 0 {
				continue
			}
			if best < 0 || current[i] > current[best] {
				best = i
			}
		}
		current[best] -= total
		out = append(out, cats[best])
	}
	return out
}
