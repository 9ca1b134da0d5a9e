package migrate

import (
	"strings"

	"github.com/aceflow-ai/aceflow/internal/domain"
)

// SimilarityThreshold is the minimum score for the heuristic to pair a
// target stage with a source stage when no explicit mapping table exists.
const SimilarityThreshold = 0.5

// Scorer rates how closely two stage definitions describe the same work,
// on a 0..1 scale.
type Scorer interface {
	Score(a, b domain.StageDefinition) float64
}

// JaccardScorer scores stage pairs by Jaccard similarity of their display
// name and description token sets, averaged.
type JaccardScorer struct{}

// Score rates the pair.
func (JaccardScorer) Score(a, b domain.StageDefinition) float64 {
	name := jaccard(tokens(a.DisplayName), tokens(b.DisplayName))
	desc := jaccard(tokens(a.Description), tokens(b.Description))
	return (name + desc) / 2
}

// tokens splits text into a lowercase whitespace-token set.
func tokens(text string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		out[tok] = true
	}
	return out
}

// jaccard computes |a∩b| / |a∪b|. Two empty sets score zero.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if b[tok] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Ensure JaccardScorer satisfies Scorer.
var _ Scorer = JaccardScorer{}
