package semantic

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"geosem/internal/ontology"
	"geosem/internal/rule"
)

func singletonRule() rule.SemanticRule {
	ctx := rule.NewContext("s1", []string{"region", "square"}, nil, map[int]ontology.Signature{
		0: regionOfSig,
		1: squareSig,
	})
	return rule.NewUnaryRule(ctx, rule.At(0), regionOfSig, rule.NewTagRule(ctx, rule.At(1), squareSig))
}

// twoWayRule observes RegionOf(Square) while Circle is the only competitor.
func twoWayRule() rule.SemanticRule {
	ctx := rule.NewContext("s2", []string{"square", "region", "circle"}, nil, map[int]ontology.Signature{
		0: squareSig,
		2: circleSig,
	})
	return rule.NewUnaryRule(ctx, rule.At(1), regionOfSig, rule.NewTagRule(ctx, rule.At(0), squareSig))
}

// equalsRule observes Equals(Five, Five) over three number-typed tags, so
// each argument slot has three choices.
func equalsRule() rule.SemanticRule {
	ctx := rule.NewContext("s3", []string{"five", "equals", "five", "area"}, nil, map[int]ontology.Signature{
		0: fiveSig,
		2: fiveSig,
		3: areaOfSig,
	})
	return rule.NewBinaryRule(ctx, rule.At(1), equalsSig,
		rule.NewTagRule(ctx, rule.At(0), fiveSig),
		rule.NewTagRule(ctx, rule.At(2), fiveSig),
	)
}

func TestFitSingletonCandidateSetHasZeroLogProb(t *testing.T) {
	for _, reg := range []float64{1e-3, 0.5, 10} {
		for _, initial := range [][]float64{
			make([]float64, testDim),
			{1, -2, 3, -4, 5, -6},
		} {
			m := newTestModel(t, WithWeights(initial))
			r := singletonRule()

			_, err := m.Fit(context.Background(), []rule.SemanticRule{r}, FitOptions{RegConst: reg})
			require.NoError(t, err)

			lp, err := m.LogProb(r, nil, rule.TagRules(r))
			require.NoError(t, err)
			assert.InDelta(t, 0.0, lp, 1e-12, "reg=%v initial=%v", reg, initial)
		}
	}
}

func TestFitRejectsInvalidRegularization(t *testing.T) {
	m := newTestModel(t)
	for _, reg := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := m.Fit(context.Background(), []rule.SemanticRule{singletonRule()}, FitOptions{RegConst: reg})
		if !errors.Is(err, ErrInvalidRegularization) {
			t.Fatalf("reg=%v: expected invalid regularization, got: %v", reg, err)
		}
	}
}

func TestFitMissingObservedRuleLeavesWeights(t *testing.T) {
	initial := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	m := newTestModel(t, WithWeights(initial))

	ctx := rule.NewContext("s1", []string{"five", "region"}, nil, map[int]ontology.Signature{0: fiveSig})
	bad := rule.NewUnaryRule(ctx, rule.At(1), regionOfSig, rule.NewTagRule(ctx, rule.At(0), fiveSig))

	_, err := m.Fit(context.Background(), []rule.SemanticRule{twoWayRule(), bad}, FitOptions{RegConst: 1, Workers: 1})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrCandidateMissing), "got: %v", err)
	assert.Equal(t, initial, m.Weights())
}

func TestFitGrowsImpliableSet(t *testing.T) {
	m := newTestModel(t)
	require.Empty(t, m.ImpliableSignatures())

	ctx := rule.NewContext("s1", []string{"region"}, nil, nil)
	implied := rule.NewUnaryRule(ctx, rule.None, regionOfSig, rule.NewTagRule(ctx, rule.None, circleSig))

	report, err := m.Fit(context.Background(), []rule.SemanticRule{implied}, FitOptions{RegConst: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Impliable)
	assert.Equal(t, []ontology.Signature{circleSig, regionOfSig}, m.ImpliableSignatures())

	lp, err := m.LogProb(implied, nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, lp, 1e-12)
}

func TestFitImprovesObservedLogProb(t *testing.T) {
	m := newTestModel(t)
	r := twoWayRule()

	before, err := m.LogProb(r, nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(0.5), before, 1e-12)

	report, err := m.Fit(context.Background(), []rule.SemanticRule{r, r, r}, FitOptions{RegConst: 0.1})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Rules)
	assert.Equal(t, 6, report.Candidates)
	assert.Equal(t, 2, report.MaxCandidates)
	assert.NotEmpty(t, report.Status)

	after, err := m.LogProb(r, nil, nil)
	require.NoError(t, err)
	assert.Greater(t, after, before)
	assert.InDelta(t, 3*after, report.LogLikelihood, 1e-9)
}

func TestFitStrongerRegularizationShrinksWeights(t *testing.T) {
	r := twoWayRule()
	norm := func(reg float64) float64 {
		m := newTestModel(t)
		report, err := m.Fit(context.Background(), []rule.SemanticRule{r}, FitOptions{RegConst: reg})
		require.NoError(t, err)
		assert.InDelta(t, floats.Norm(m.Weights(), 2), report.WeightNorm, 1e-12)
		return report.WeightNorm
	}

	weak, strong := norm(0.01), norm(10)
	assert.Greater(t, weak, strong)
}

func TestFitBinaryRule(t *testing.T) {
	r := equalsRule()

	m := newTestModel(t)
	dist, err := m.Distribution(SlotOf(r))
	require.NoError(t, err)
	require.Equal(t, 9, dist.Len())

	before, err := m.LogProb(r, nil, nil)
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(9), before, 1e-12)

	report, err := m.Fit(context.Background(), []rule.SemanticRule{r}, FitOptions{RegConst: 0.01})
	require.NoError(t, err)
	assert.Equal(t, 9, report.MaxCandidates)

	after, err := m.LogProb(r, nil, nil)
	require.NoError(t, err)
	assert.Greater(t, after, before)

	prev := math.Inf(1)
	for _, reg := range []float64{0.001, 0.1, 1, 100} {
		m := newTestModel(t)
		report, err := m.Fit(context.Background(), []rule.SemanticRule{r}, FitOptions{RegConst: reg})
		require.NoError(t, err)
		assert.Less(t, report.WeightNorm, prev, "reg=%v", reg)
		prev = report.WeightNorm
	}
}

func TestObjectiveGradientMatchesFiniteDifferences(t *testing.T) {
	obj := newObjective([]instance{
		{vectors: [][]float64{{1, 0, 2}, {0, 1, -1}, {1, 1, 0}}, observed: 0},
		{vectors: [][]float64{{0, 2, 1}, {1, -1, 0}}, observed: 1},
	}, 0.7, 3)

	w := []float64{0.3, -0.2, 0.5}
	_, _, g := obj.evaluate(w)
	grad := append([]float64(nil), g...)

	const h = 1e-6
	for i := range w {
		plus := append([]float64(nil), w...)
		minus := append([]float64(nil), w...)
		plus[i] += h
		minus[i] -= h
		_, fp, _ := obj.evaluate(plus)
		_, fm, _ := obj.evaluate(minus)
		numeric := (fp - fm) / (2 * h)
		if math.Abs(numeric-grad[i]) > 1e-6 {
			t.Fatalf("gradient[%d]: analytic %f numeric %f", i, grad[i], numeric)
		}
	}
}

func TestFitHonoursCancellation(t *testing.T) {
	m := newTestModel(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Fit(ctx, []rule.SemanticRule{twoWayRule()}, FitOptions{RegConst: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got: %v", err)
	assert.Equal(t, make([]float64, testDim), m.Weights())
}

func TestScoringDuringFit(t *testing.T) {
	m := newTestModel(t)
	r := twoWayRule()
	slot := SlotOf(r)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := m.Fit(context.Background(), []rule.SemanticRule{r, r}, FitOptions{RegConst: 0.5})
		assert.NoError(t, err)
	}()
	for i := 0; i < 20; i++ {
		dist, err := m.Distribution(slot)
		require.NoError(t, err)
		require.Equal(t, 2, dist.Len())
	}
	wg.Wait()
}
