package semantic

import (
	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"

	"geosem/internal/rule"
)

// Score returns the unnormalized log score w·f for each feature vector.
func Score(weights []float64, vectors [][]float64) []float64 {
	scores := make([]float64, len(vectors))
	for i, vec := range vectors {
		scores[i] = floats.Dot(weights, vec)
	}
	return scores
}

// LogNormalize turns log scores into log probabilities with log-sum-exp.
// An empty input yields nil.
func LogNormalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	z := floats.LogSumExp(scores)
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = s - z
	}
	return out
}

type Scored struct {
	Rule    rule.SemanticRule
	LogProb float64
}

// Distribution is a categorical log-distribution over a slot's candidates,
// kept in candidate order.
type Distribution struct {
	entries []Scored
	index   map[rule.SemanticRule]int
}

func newDistribution(candidates []rule.SemanticRule, logProbs []float64) Distribution {
	d := Distribution{
		entries: make([]Scored, len(candidates)),
		index:   make(map[rule.SemanticRule]int, len(candidates)),
	}
	for i, c := range candidates {
		d.entries[i] = Scored{Rule: c, LogProb: logProbs[i]}
		d.index[c] = i
	}
	return d
}

// Empty reports that no derivation is possible at the slot.
func (d Distribution) Empty() bool { return len(d.entries) == 0 }

func (d Distribution) Len() int { return len(d.entries) }

// Entries returns the (candidate, log-probability) pairs in candidate order.
func (d Distribution) Entries() []Scored {
	return append([]Scored(nil), d.entries...)
}

func (d Distribution) LogProb(r rule.SemanticRule) (float64, bool) {
	i, ok := d.index[r]
	if !ok {
		return 0, false
	}
	return d.entries[i].LogProb, true
}

// Best returns the most probable candidate. Ties go to the earliest.
func (d Distribution) Best() (Scored, bool) {
	if d.Empty() {
		return Scored{}, false
	}
	best := d.entries[0]
	for _, e := range d.entries[1:] {
		if e.LogProb > best.LogProb {
			best = e
		}
	}
	return best, true
}

// Distribution scores every candidate of the slot under the current weights.
func (m *Model) Distribution(slot Slot) (Distribution, error) {
	if err := m.validateSlot(slot); err != nil {
		return Distribution{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates := expand(m.ontology, state{impliable: m.impliable, localities: m.localities}, slot)
	if len(candidates) == 0 {
		return Distribution{}, nil
	}
	vectors, err := m.vectors(candidates)
	if err != nil {
		return Distribution{}, err
	}
	return newDistribution(candidates, LogNormalize(Score(m.weights, vectors))), nil
}

// LogProb returns the log-probability of r within its own slot, built with
// the given exclusions and lifted hints. Rules absent from the slot's
// candidates get the model's floor instead.
func (m *Model) LogProb(r rule.SemanticRule, exclude []rule.Index, lifted []rule.TagRule) (float64, error) {
	dist, err := m.Distribution(Slot{
		Context:         r.Context(),
		ParentIndex:     r.ParentIndex(),
		ParentSignature: r.ParentSignature(),
		Exclude:         exclude,
		Lifted:          lifted,
	})
	if err != nil {
		return 0, err
	}
	if lp, ok := dist.LogProb(r); ok {
		return lp, nil
	}
	return m.floor, nil
}

func (m *Model) vectors(candidates []rule.SemanticRule) ([][]float64, error) {
	dim := m.features.Dim()
	out := make([][]float64, len(candidates))
	for i, c := range candidates {
		vec := m.features.Evaluate(c)
		if len(vec) != dim {
			return nil, errors.Wrapf(ErrDimensionMismatch, "feature vector for %s has %d entries, want %d", c, len(vec), dim)
		}
		out[i] = vec
	}
	return out, nil
}
