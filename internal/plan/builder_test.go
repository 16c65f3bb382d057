package plan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonwookim/mockinterview/internal/apperrors"
)

type stubDirectory map[string]string

func (d stubDirectory) ResolveCompany(name string) (string, string, bool) {
	id := strings.ToLower(strings.TrimSpace(name))
	display, ok := d[id]
	return id, display, ok
}

func newTestBuilder(solo, competition int) *Builder {
	return NewBuilder(stubDirectory{"naver": "NAVER", "kakao": "Kakao"}, solo, competition)
}

func TestBuildSoloDefaultDistribution(t *testing.T) {
	p, err := newTestBuilder(0, 0).Build(ModeSolo, "Naver", "Backend Engineer", "junior")
	require.NoError(t, err)
	require.Equal(t, 20, p.Len())

	assert.Equal(t, CategoryIntro, p.Slots[0].Category)
	assert.True(t, p.Slots[0].IsFixed)
	assert.Equal(t, CategoryMotivation, p.Slots[1].Category)
	assert.True(t, p.Slots[1].IsFixed)
	assert.Contains(t, p.Slots[1].FixedText, "NAVER")

	counts := p.Counts()
	assert.Equal(t, 1, counts[CategoryIntro])
	assert.Equal(t, 1, counts[CategoryMotivation])
	assert.Equal(t, 6, counts[CategoryHR])
	assert.Equal(t, 8, counts[CategoryTech])
	assert.Equal(t, 3, counts[CategoryCollaboration])
	assert.Equal(t, 1, counts[CategoryFollowUp])

	for _, s := range p.Slots[2:] {
		assert.False(t, s.IsFixed)
		assert.Empty(t, s.FixedText)
	}
	assert.Equal(t, CategoryFollowUp, p.Slots[19].Category)
}

func TestBuildCompetitionHasFifteenSlots(t *testing.T) {
	p, err := newTestBuilder(0, 0).Build(ModeCompetition, "kakao", "Frontend Engineer", "")
	require.NoError(t, err)
	require.Equal(t, 15, p.Len())
	assert.Equal(t, "unspecified", p.ExperienceLevel)
	assert.Equal(t, CategoryIntro, p.Slots[0].Category)
	assert.Equal(t, CategoryMotivation, p.Slots[1].Category)
}

func TestBuildIsDeterministic(t *testing.T) {
	b := newTestBuilder(0, 0)
	a, err := b.Build(ModeSolo, "naver", "Data Engineer", "senior")
	require.NoError(t, err)
	c, err := b.Build(ModeSolo, "naver", "Data Engineer", "senior")
	require.NoError(t, err)
	assert.Equal(t, a.Slots, c.Slots)
}

func TestBuildInterleavesCategories(t *testing.T) {
	p, err := newTestBuilder(0, 0).Build(ModeSolo, "naver", "Backend Engineer", "junior")
	require.NoError(t, err)
	run := 1
	for i := 3; i < len(p.Slots)-1; i++ {
		if p.Slots[i].Category == p.Slots[i-1].Category {
			run++
		} else {
			run = 1
		}
		assert.LessOrEqual(t, run, 2, "slot %d continues a long run of %s", i, p.Slots[i].Category)
	}
}

func TestBuildScalesCustomTotals(t *testing.T) {
	p, err := newTestBuilder(11, 0).Build(ModeSolo, "naver", "Backend Engineer", "junior")
	require.NoError(t, err)
	require.Equal(t, 11, p.Len())
	counts := p.Counts()
	assert.Equal(t, 9, counts[CategoryHR]+counts[CategoryTech]+counts[CategoryCollaboration]+counts[CategoryFollowUp])
	assert.Equal(t, 4, counts[CategoryTech])
	assert.Equal(t, 3, counts[CategoryHR])
}

func TestBuildConfigurationErrors(t *testing.T) {
	b := newTestBuilder(0, 0)
	cases := []struct {
		name     string
		mode     Mode
		company  string
		position string
	}{
		{"unknown mode", Mode("panel"), "naver", "Backend"},
		{"unknown company", ModeSolo, "initech", "Backend"},
		{"missing position", ModeSolo, "naver", "  "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.Build(tc.mode, tc.company, tc.position, "junior")
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeConfiguration), "err = %v", err)
		})
	}

	_, err := newTestBuilder(1, 0).Build(ModeSolo, "naver", "Backend", "junior")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConfiguration))
}

func TestParseCategoryAndMode(t *testing.T) {
	c, err := ParseCategory("follow_up")
	require.NoError(t, err)
	assert.Equal(t, CategoryFollowUp, c)

	_, err = ParseCategory("riddles")
	assert.Error(t, err)

	m, err := ParseMode("Competition")
	require.NoError(t, err)
	assert.Equal(t, ModeCompetition, m)

	_, err = ParseMode("panel")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConfiguration))
}
