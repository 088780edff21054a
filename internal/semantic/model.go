// Package semantic scores candidate derivation rules for a parse slot with a
// log-linear model and fits the model's weights by regularized maximum
// likelihood.
package semantic

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"geosem/internal/feature"
	"geosem/internal/ontology"
)

// DefaultLogProbFloor is returned by LogProb for rules that are not in their
// own slot's candidate set.
const DefaultLogProbFloor = -9999.0

var (
	ErrContractViolation     = errors.New("contract violation")
	ErrCandidateMissing      = errors.New("observed rule missing from its candidate set")
	ErrInvalidRegularization = errors.New("regularization constant must be positive")
	ErrDimensionMismatch     = errors.New("weight dimension mismatch")
)

type Option func(*Model)

// WithWeights sets the initial weight vector. Its length must match the
// feature dimension.
func WithWeights(weights []float64) Option {
	return func(m *Model) {
		m.weights = append([]float64(nil), weights...)
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithLogProbFloor(floor float64) Option {
	return func(m *Model) {
		m.floor = floor
	}
}

// WithLocalities configures the per-tag window radius. Keys are tag
// signature names.
func WithLocalities(localities map[string]int) Option {
	return func(m *Model) {
		for tag, radius := range localities {
			m.localities[tag] = radius
		}
	}
}

// WithImpliable seeds the impliable-signature set, e.g. from a persisted
// model.
func WithImpliable(sigs ...ontology.Signature) Option {
	return func(m *Model) {
		for _, sig := range sigs {
			m.impliable[sig] = struct{}{}
		}
	}
}

// Model owns the weight vector, the impliable-signature set and the locality
// map. Inference methods may run concurrently; Fit calls are serialized.
type Model struct {
	features feature.Function
	ontology ontology.Ontology
	logger   *zap.Logger
	floor    float64

	fitMu sync.Mutex

	mu         sync.RWMutex
	weights    []float64
	impliable  map[ontology.Signature]struct{}
	localities map[string]int
}

func New(ont ontology.Ontology, fn feature.Function, opts ...Option) (*Model, error) {
	if ont == nil {
		return nil, errors.Wrap(ErrContractViolation, "ontology is required")
	}
	if fn == nil {
		return nil, errors.Wrap(ErrContractViolation, "feature function is required")
	}
	if fn.Dim() <= 0 {
		return nil, errors.Wrapf(ErrContractViolation, "feature dimension must be positive, got %d", fn.Dim())
	}

	m := &Model{
		features:   fn,
		ontology:   ont,
		logger:     zap.NewNop(),
		floor:      DefaultLogProbFloor,
		impliable:  make(map[ontology.Signature]struct{}),
		localities: make(map[string]int),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.weights == nil {
		m.weights = make([]float64, fn.Dim())
	}
	if len(m.weights) != fn.Dim() {
		return nil, errors.Wrapf(ErrDimensionMismatch, "initial weights have %d entries, features have %d", len(m.weights), fn.Dim())
	}
	for tag, radius := range m.localities {
		if radius < 0 {
			return nil, errors.Wrapf(ErrContractViolation, "locality radius for %s is negative", tag)
		}
	}
	return m, nil
}

func (m *Model) Features() feature.Function  { return m.features }
func (m *Model) Ontology() ontology.Ontology { return m.ontology }
func (m *Model) LogProbFloor() float64       { return m.floor }

// Weights returns a copy of the current weight vector.
func (m *Model) Weights() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]float64(nil), m.weights...)
}

func (m *Model) SetWeights(weights []float64) error {
	if len(weights) != m.features.Dim() {
		return errors.Wrapf(ErrDimensionMismatch, "got %d weights, features have %d", len(weights), m.features.Dim())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.weights = append([]float64(nil), weights...)
	return nil
}

// ImpliableSignatures returns the impliable set sorted by name.
func (m *Model) ImpliableSignatures() []ontology.Signature {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ontology.Signature, 0, len(m.impliable))
	for sig := range m.impliable {
		out = append(out, sig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Model) SetLocality(tag string, radius int) error {
	if radius < 0 {
		return errors.Wrapf(ErrContractViolation, "locality radius for %s is negative", tag)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.localities[tag] = radius
	return nil
}

func (m *Model) Localities() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int, len(m.localities))
	for tag, radius := range m.localities {
		out[tag] = radius
	}
	return out
}

// state is the generator's view of the mutable model sets. Fit works on a
// private copy so that candidate builds never race with configuration
// updates.
type state struct {
	impliable  map[ontology.Signature]struct{}
	localities map[string]int
}

// snapshot copies the mutable sets. The caller must hold m.mu.
func (m *Model) snapshot() state {
	st := state{
		impliable:  make(map[ontology.Signature]struct{}, len(m.impliable)),
		localities: make(map[string]int, len(m.localities)),
	}
	for sig := range m.impliable {
		st.impliable[sig] = struct{}{}
	}
	for tag, radius := range m.localities {
		st.localities[tag] = radius
	}
	return st
}
