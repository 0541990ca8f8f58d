package exsearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidateDistinctRejectsRepeatedLabel(t *testing.T) {
	c := Candidate{A: "Fz", B: "Pz", C: "C3", D: "Fz"}
	assert.False(t, c.distinct())

	good := Candidate{A: "Fz", B: "Pz", C: "C3", D: "C4"}
	assert.True(t, good.distinct())
}

func TestCanonicalKeyIsInvariantUnderChannelElectrodeSwap(t *testing.T) {
	a := Candidate{A: "Fz", B: "Pz", C: "C3", D: "C4", I1: 2, I2: 1}
	b := Candidate{A: "Pz", B: "Fz", C: "C3", D: "C4", I1: 2, I2: 1}
	assert.Equal(t, a.canonicalKey(), b.canonicalKey())
}

func TestCanonicalKeyIsInvariantUnderWholeChannelSwap(t *testing.T) {
	a := Candidate{A: "Fz", B: "Pz", C: "C3", D: "C4", I1: 2, I2: 1}
	b := Candidate{A: "C3", B: "C4", C: "Fz", D: "Pz", I1: 1, I2: 2}
	assert.Equal(t, a.canonicalKey(), b.canonicalKey())
}

func TestCanonicalKeyDiffersForDifferentCurrents(t *testing.T) {
	a := Candidate{A: "Fz", B: "Pz", C: "C3", D: "C4", I1: 2, I2: 1}
	b := Candidate{A: "Fz", B: "Pz", C: "C3", D: "C4", I1: 1.5, I2: 1.5}
	assert.NotEqual(t, a.canonicalKey(), b.canonicalKey())
}

func TestEnumerateSkipsNonDistinctQuadruples(t *testing.T) {
	cands := Enumerate([]string{"Fz"}, []string{"Fz"}, []string{"C3"}, []string{"C4"}, [][2]float64{{2, 2}}, false)
	assert.Empty(t, cands)
}

func TestEnumerateCrossesPoolsAndRatios(t *testing.T) {
	ratios := [][2]float64{{1, 3}, {2, 2}}
	cands := Enumerate([]string{"Fz"}, []string{"Pz"}, []string{"C3"}, []string{"C4"}, ratios, false)
	assert.Len(t, cands, len(ratios))
}

func TestEnumerateBreakSymmetryDropsPermutationEquivalents(t *testing.T) {
	poolA := []string{"Fz", "Pz"}
	poolB := []string{"C3", "C4"}
	ratios := [][2]float64{{2, 2}}

	all := Enumerate(poolA, poolB, poolA, poolB, ratios, false)
	deduped := Enumerate(poolA, poolB, poolA, poolB, ratios, true)
	assert.Less(t, len(deduped), len(all))

	seen := map[string]bool{}
	for _, c := range deduped {
		key := c.canonicalKey()
		assert.False(t, seen[key], "duplicate canonical key %q survived symmetry breaking", key)
		seen[key] = true
	}
}
