package semantic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geosem/internal/ontology"
	"geosem/internal/rule"
)

func TestLogNormalizeIsProperDistribution(t *testing.T) {
	for _, scores := range [][]float64{
		{0},
		{1, 2, 3},
		{-1000, -1000.5, -999},
		{800, 0, -800},
	} {
		logProbs := LogNormalize(scores)
		require.Len(t, logProbs, len(scores))
		total := 0.0
		for _, lp := range logProbs {
			p := math.Exp(lp)
			if !(p > 0) && lp > -745 {
				t.Fatalf("probability underflowed unexpectedly for %v: %v", scores, logProbs)
			}
			if p > 1+1e-12 {
				t.Fatalf("probability above one for %v: %v", scores, logProbs)
			}
			total += p
		}
		if math.Abs(total-1) > 1e-9 {
			t.Fatalf("distribution for %v sums to %f", scores, total)
		}
	}
	assert.Nil(t, LogNormalize(nil))
}

func TestDistributionSumsToOne(t *testing.T) {
	m := newTestModel(t, WithWeights([]float64{0.3, -1, 2, 0.5, 1.5, -0.25}), WithImpliable(circleSig))
	ctx := rule.NewContext("s1", []string{"square", "in", "square", "region"}, nil, map[int]ontology.Signature{
		0: squareSig,
		1: inSig,
		2: squareSig,
		3: regionOfSig,
	})

	dist, err := m.Distribution(Slot{Context: ctx, ParentIndex: rule.At(1), ParentSignature: inSig})
	require.NoError(t, err)
	require.False(t, dist.Empty())

	total := 0.0
	for _, e := range dist.Entries() {
		p := math.Exp(e.LogProb)
		assert.Greater(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		total += p
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	best, ok := dist.Best()
	require.True(t, ok)
	for _, e := range dist.Entries() {
		assert.LessOrEqual(t, e.LogProb, best.LogProb)
	}
}

func TestDistributionEmptyWhenNoDerivation(t *testing.T) {
	m := newTestModel(t)
	ctx := rule.NewContext("s1", []string{"five"}, nil, map[int]ontology.Signature{0: fiveSig})

	dist, err := m.Distribution(Slot{Context: ctx, ParentIndex: rule.None, ParentSignature: regionOfSig})
	require.NoError(t, err)
	assert.True(t, dist.Empty())
	_, ok := dist.Best()
	assert.False(t, ok)
}

func TestLogProbReturnsFloorOnlyForAbsentRules(t *testing.T) {
	m := newTestModel(t)
	ctx := rule.NewContext("s1", []string{"square", "region", "circle"}, nil, map[int]ontology.Signature{
		0: squareSig,
		2: circleSig,
	})

	present := rule.NewUnaryRule(ctx, rule.At(1), regionOfSig, rule.NewTagRule(ctx, rule.At(0), squareSig))
	lp, err := m.LogProb(present, nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(0.5), lp, 1e-12)

	excluded, err := m.LogProb(present, []rule.Index{rule.At(0)}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultLogProbFloor, excluded)

	lifted := rule.NewUnaryRule(ctx, rule.At(1), regionOfSig, rule.NewTagRule(ctx, rule.None, circleSig))
	lp, err = m.LogProb(lifted, nil, rule.TagRules(lifted))
	require.NoError(t, err)
	assert.Equal(t, DefaultLogProbFloor, lp, "lifted circle is not impliable yet")

	custom := newTestModel(t, WithLogProbFloor(math.Inf(-1)))
	lp, err = custom.LogProb(lifted, nil, nil)
	require.NoError(t, err)
	assert.True(t, math.IsInf(lp, -1))
}

func TestScoreIsDotProduct(t *testing.T) {
	scores := Score([]float64{1, 2}, [][]float64{{1, 0}, {0.5, 0.25}, {0, 0}})
	assert.Equal(t, []float64{1, 1, 0}, scores)
}
