package semantic

import (
	"context"
	"math"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"geosem/internal/logging"
	"geosem/internal/ontology"
	"geosem/internal/rule"
)

const (
	DefaultMaxIterations     = 200
	DefaultGradientThreshold = 1e-6
	DefaultFunctionTolerance = 1e-10
)

type FitOptions struct {
	// RegConst is the L2 penalty weight; it must be positive.
	RegConst          float64
	MaxIterations     int
	GradientThreshold float64
	// FunctionTolerance stops the optimizer once the objective improves by
	// less than this amount for several iterations in a row.
	FunctionTolerance float64
	Workers           int
}

func (o FitOptions) withDefaults() FitOptions {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.GradientThreshold <= 0 {
		o.GradientThreshold = DefaultGradientThreshold
	}
	if o.FunctionTolerance <= 0 {
		o.FunctionTolerance = DefaultFunctionTolerance
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

type FitReport struct {
	Rules           int           `json:"rules"`
	Candidates      int           `json:"candidates"`
	MaxCandidates   int           `json:"max_candidates"`
	Impliable       int           `json:"impliable"`
	LogLikelihood   float64       `json:"log_likelihood"`
	Objective       float64       `json:"objective"`
	WeightNorm      float64       `json:"weight_norm"`
	Iterations      int           `json:"iterations"`
	FuncEvaluations int           `json:"func_evaluations"`
	GradEvaluations int           `json:"grad_evaluations"`
	Status          string        `json:"status"`
	Duration        time.Duration `json:"duration"`
}

// Fit maximizes the L2-regularized log-likelihood of the observed rules,
// each scored against the candidate set of its own slot, and replaces the
// model's weights with the optimum found. Every unanchored slot of an
// observed rule adds its signature to the impliable set first.
//
// An observed rule that is not among its own candidates is a data error and
// aborts the fit without touching the weights.
func (m *Model) Fit(ctx context.Context, rules []rule.SemanticRule, opts FitOptions) (FitReport, error) {
	if opts.RegConst <= 0 || math.IsNaN(opts.RegConst) || math.IsInf(opts.RegConst, 0) {
		return FitReport{}, errors.Wrapf(ErrInvalidRegularization, "got %v", opts.RegConst)
	}
	opts = opts.withDefaults()
	for i, r := range rules {
		if r == nil {
			return FitReport{}, errors.Wrapf(ErrContractViolation, "rule %d is nil", i)
		}
	}

	m.fitMu.Lock()
	defer m.fitMu.Unlock()

	started := time.Now()
	logger := m.logger.With(zap.String(logging.FieldOperation, "fit"))
	logger.Info("fit started",
		zap.Int(logging.FieldRules, len(rules)),
		zap.Float64(logging.FieldRegConst, opts.RegConst),
		zap.Int(logging.FieldWorkers, opts.Workers),
	)

	m.mu.Lock()
	for _, r := range rules {
		for _, sig := range impliableSignatures(r) {
			m.impliable[sig] = struct{}{}
		}
	}
	st := m.snapshot()
	initial := append([]float64(nil), m.weights...)
	m.mu.Unlock()

	instances, err := m.buildInstances(ctx, st, rules, opts.Workers)
	if err != nil {
		return FitReport{}, err
	}

	report := FitReport{Rules: len(rules), Impliable: len(st.impliable)}
	for _, inst := range instances {
		report.Candidates += len(inst.vectors)
		if len(inst.vectors) > report.MaxCandidates {
			report.MaxCandidates = len(inst.vectors)
		}
	}
	logger.Info("candidate sets built",
		zap.Int(logging.FieldCandidates, report.Candidates),
		zap.Int(logging.FieldMaxCandidates, report.MaxCandidates),
		zap.Int(logging.FieldImpliable, report.Impliable),
	)

	obj := newObjective(instances, opts.RegConst, m.features.Dim())
	problem := optimize.Problem{
		Func: func(w []float64) float64 {
			_, f, _ := obj.evaluate(w)
			logger.Debug("objective evaluated",
				zap.Int(logging.FieldEvaluation, obj.evaluations),
				zap.Float64(logging.FieldObjective, f),
			)
			return -f
		},
		Grad: func(grad, w []float64) {
			_, _, g := obj.evaluate(w)
			for i := range grad {
				grad[i] = -g[i]
			}
		},
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		MajorIterations:   opts.MaxIterations,
		GradientThreshold: opts.GradientThreshold,
		Converger: &optimize.FunctionConverge{
			Absolute:   opts.FunctionTolerance,
			Iterations: 20,
		},
	}

	result, err := optimize.Minimize(problem, initial, settings, &optimize.LBFGS{})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return FitReport{}, errors.Wrap(ctxErr, "fit cancelled")
		}
		if result == nil || !allFinite(result.X) {
			return FitReport{}, errors.Wrap(err, "minimize")
		}
		logger.Warn("optimizer stopped early", zap.Error(err), zap.String(logging.FieldStatus, result.Status.String()))
	}

	fitted := append([]float64(nil), result.X...)
	m.mu.Lock()
	m.weights = fitted
	m.mu.Unlock()

	report.LogLikelihood, report.Objective, _ = obj.evaluate(fitted)
	report.WeightNorm = floats.Norm(fitted, 2)
	report.Iterations = result.Stats.MajorIterations
	report.FuncEvaluations = result.Stats.FuncEvaluations
	report.GradEvaluations = result.Stats.GradEvaluations
	report.Status = result.Status.String()
	report.Duration = time.Since(started)

	logger.Info("fit finished",
		zap.Float64(logging.FieldObjective, report.Objective),
		zap.Float64(logging.FieldLogLikelihood, report.LogLikelihood),
		zap.Int(logging.FieldIterations, report.Iterations),
		zap.String(logging.FieldStatus, report.Status),
		zap.Duration(logging.FieldDuration, report.Duration),
	)
	return report, nil
}

func impliableSignatures(r rule.SemanticRule) []ontology.Signature {
	var out []ontology.Signature
	if !r.ParentIndex().Anchored() {
		out = append(out, r.ParentSignature())
	}
	for _, child := range r.Children() {
		if !child.Anchored() {
			out = append(out, child.Signature)
		}
	}
	return out
}

// instance is one observed rule with the feature vectors of its candidate
// set. observed indexes the rule itself within vectors.
type instance struct {
	vectors  [][]float64
	observed int
}

func (m *Model) buildInstances(ctx context.Context, st state, rules []rule.SemanticRule, workers int) ([]instance, error) {
	instances := make([]instance, len(rules))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, r := range rules {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			inst, err := m.buildInstance(st, r)
			if err != nil {
				return errors.Wrapf(err, "rule %d %s", i, r)
			}
			instances[i] = inst
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return instances, nil
}

func (m *Model) buildInstance(st state, r rule.SemanticRule) (instance, error) {
	slot := SlotOf(r)
	if err := m.validateSlot(slot); err != nil {
		return instance{}, err
	}

	candidates := expand(m.ontology, st, slot)
	observed := -1
	for i, c := range candidates {
		if c == r {
			observed = i
			break
		}
	}
	if observed < 0 {
		return instance{}, errors.WithHint(
			errors.Wrapf(ErrCandidateMissing, "%d candidates generated", len(candidates)),
			"check the rule's argument types against the ontology and the parent tag's locality radius",
		)
	}

	vectors, err := m.vectors(candidates)
	if err != nil {
		return instance{}, err
	}
	return instance{vectors: vectors, observed: observed}, nil
}

type objective struct {
	instances   []instance
	regConst    float64
	observedSum []float64

	evaluations int
	lastX       []float64
	lastLL      float64
	lastF       float64
	lastGrad    []float64
}

func newObjective(instances []instance, regConst float64, dim int) *objective {
	sum := make([]float64, dim)
	for _, inst := range instances {
		floats.Add(sum, inst.vectors[inst.observed])
	}
	return &objective{instances: instances, regConst: regConst, observedSum: sum}
}

// evaluate returns the log-likelihood of the observed rules, the
// regularized objective and the objective's gradient at w. The last point
// is cached because the optimizer asks for value and gradient separately.
func (o *objective) evaluate(w []float64) (ll, f float64, grad []float64) {
	if o.lastX != nil && floats.Equal(o.lastX, w) {
		return o.lastLL, o.lastF, o.lastGrad
	}

	grad = append([]float64(nil), o.observedSum...)
	floats.AddScaled(grad, -o.regConst, w)
	for _, inst := range o.instances {
		logProbs := LogNormalize(Score(w, inst.vectors))
		ll += logProbs[inst.observed]
		for j, lp := range logProbs {
			floats.AddScaled(grad, -math.Exp(lp), inst.vectors[j])
		}
	}
	f = ll - 0.5*o.regConst*floats.Dot(w, w)

	o.evaluations++
	o.lastX = append(o.lastX[:0], w...)
	o.lastLL, o.lastF, o.lastGrad = ll, f, grad
	return ll, f, grad
}

func allFinite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
