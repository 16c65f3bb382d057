// Package dedup rejects generated questions that repeat earlier ones.
package dedup

import (
	"strings"
	"unicode"

	"gonum.org/v1/gonum/floats"
)

// DefaultThreshold is the similarity above which a candidate is a duplicate.
const DefaultThreshold = 0.5

// Scorer returns a similarity in [0,1] between two texts.
type Scorer interface {
	Score(a, b string) float64
}

// Guard gates freshly generated questions against the questions already asked.
// It holds no mutable state.
type Guard struct {
	scorer    Scorer
	threshold float64
}

// NewGuard returns a guard; a nil scorer selects CosineScorer and a threshold
// outside (0,1] selects DefaultThreshold.
func NewGuard(threshold float64, scorer Scorer) *Guard {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	if scorer == nil {
		scorer = CosineScorer{}
	}
	return &Guard{scorer: scorer, threshold: threshold}
}

func (g *Guard) Threshold() float64 { return g.threshold }

// IsDuplicate reports whether candidate scores above the threshold against any
// prior question.
func (g *Guard) IsDuplicate(candidate string, prior []string) bool {
	score, _ := g.MaxSimilarity(candidate, prior)
	return score > g.threshold
}

// MaxSimilarity returns the best score and the index of the matching prior
// question, or (0, -1) when prior is empty.
func (g *Guard) MaxSimilarity(candidate string, prior []string) (float64, int) {
	best, at := 0.0, -1
	for i, p := range prior {
		s := g.scorer.Score(candidate, p)
		if at < 0 || s > best {
			best, at = s, i
		}
	}
	return best, at
}

// CosineScorer compares term-frequency vectors.
type CosineScorer struct{}

func (CosineScorer) Score(a, b string) float64 {
	ta, tb := Tokenize(a), Tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	vocab := make(map[string]int, len(ta)+len(tb))
	for _, t := range ta {
		if _, ok := vocab[t]; !ok {
			vocab[t] = len(vocab)
		}
	}
	for _, t := range tb {
		if _, ok := vocab[t]; !ok {
			vocab[t] = len(vocab)
		}
	}
	va := make([]float64, len(vocab))
	vb := make([]float64, len(vocab))
	for _, t := range ta {
		va[vocab[t]]++
	}
	for _, t := range tb {
		vb[vocab[t]]++
	}
	na, nb := floats.Norm(va, 2), floats.Norm(vb, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(va, vb) / (na * nb)
}

// JaccardScorer compares token sets.
type JaccardScorer struct{}

func (JaccardScorer) Score(a, b string) float64 {
	sa, sb := toSet(Tokenize(a)), toSet(Tokenize(b))
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	inter := 0
	for t := range sa {
		if sb[t] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "for": true, "with": true, "you": true,
	"your": true, "me": true, "about": true, "is": true, "are": true, "was": true,
	"what": true, "how": true, "did": true, "do": true, "i": true, "it": true,
	"that": true, "this": true, "can": true, "could": true, "would": true,
	"please": true, "tell": true, "describe": true,
}

// Tokenize lowercases text and splits it into letter/digit runs, dropping
// common question filler words.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func toSet(tokens []string) map[string]bool {
	out := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		out[t] = true
	}
	return out
}
