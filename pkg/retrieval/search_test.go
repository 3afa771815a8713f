package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fuseLexical needs a relational store for its ranks, so this test
// applies the same per-hit normalisation and weighting inline.
func TestLexicalFusionFormulaNormalizesAndWeights(t *testing.T) {
	hits := []Hit{
		{FragmentID: "f1", Semantic: 0.8},
		{FragmentID: "f2", Semantic: 0.6},
	}
	rankByID := map[string]float64{"f1": 0.5, "f2": 1.0}
	maxRank := 1.0
	w := 0.4

	for i := range hits {
		normalized := rankByID[hits[i].FragmentID] / maxRank
		hits[i].BM25 = normalized
		hits[i].Final = (1-w)*hits[i].Semantic + w*normalized
	}

	assert.InDelta(t, (1-w)*0.8+w*0.5, hits[0].Final, 1e-9)
	assert.InDelta(t, (1-w)*0.6+w*1.0, hits[1].Final, 1e-9)
}
