// Package geosem is the public entry point for fitting and applying
// semantic-rule scoring models.
package geosem

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"geosem/internal/corpus"
	"geosem/internal/feature"
	"geosem/internal/logging"
	"geosem/internal/model"
	"geosem/internal/ontology"
	"geosem/internal/rule"
	"geosem/internal/semantic"
	"geosem/internal/storage"
)

const defaultDBPath = "geosem.db"

var ErrModelNotFound = errors.New("model not found")

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *zap.Logger
}

type Client struct {
	store  storage.Store
	logger *zap.Logger
}

type FitRequest struct {
	Ontology ontology.Ontology
	Corpus   corpus.Corpus

	// ModelID names the stored record; a random UUID is used when empty.
	ModelID string
	// FromModelID warm-starts the fit from a stored record's weights,
	// impliable set and localities. FeatureKind and FeatureDim are then
	// taken from that record.
	FromModelID string
	FeatureKind string
	FeatureDim  int
	Localities  map[string]int

	RegConst          float64
	MaxIterations     int
	GradientThreshold float64
	Workers           int
}

type FitSummary struct {
	ModelID string
	Record  model.WeightRecord
	Report  semantic.FitReport
}

// ScoreRequest scores every observed rule of a corpus. The model comes from
// Record when set, otherwise from the store by ModelID.
type ScoreRequest struct {
	Ontology ontology.Ontology
	Corpus   corpus.Corpus

	ModelID string
	Record  *model.WeightRecord
	// LogProbFloor overrides the floor for rules absent from their
	// candidate set. Nil keeps the default.
	LogProbFloor *float64
}

type RuleScore struct {
	Sentence    string  `json:"sentence"`
	Rule        string  `json:"rule"`
	LogProb     float64 `json:"log_prob"`
	Derivable   bool    `json:"derivable"`
	Correct     bool    `json:"correct"`
	Candidates  int     `json:"candidates"`
	Best        string  `json:"best,omitempty"`
	BestLogProb float64 `json:"best_log_prob,omitempty"`
}

type ScoreSummary struct {
	ModelID       string      `json:"model_id"`
	Rules         []RuleScore `json:"rules"`
	LogLikelihood float64     `json:"log_likelihood"`
	Underivable   int         `json:"underivable"`
	// Correct counts rules that are their slot's most probable candidate.
	Correct int `json:"correct"`
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Named("geosem")
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store, logger: logger}, nil
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Fit trains a model on every observed rule of the corpus and stores the
// resulting weights.
func (c *Client) Fit(ctx context.Context, req FitRequest) (FitSummary, error) {
	if req.Ontology == nil {
		return FitSummary{}, errors.New("fit requires an ontology")
	}
	id := req.ModelID
	if id == "" {
		id = uuid.NewString()
	}
	logger := c.logger.With(zap.String(logging.FieldModelID, id))

	m, kind, err := c.startModel(ctx, req, logger)
	if err != nil {
		return FitSummary{}, err
	}

	report, err := m.Fit(ctx, req.Corpus.Rules(), semantic.FitOptions{
		RegConst:          req.RegConst,
		MaxIterations:     req.MaxIterations,
		GradientThreshold: req.GradientThreshold,
		Workers:           req.Workers,
	})
	if err != nil {
		return FitSummary{}, errors.Wrapf(err, "fit model %s", id)
	}

	record := recordFromModel(id, kind, m, req.RegConst, report)
	if err := c.store.SaveWeights(ctx, record); err != nil {
		return FitSummary{}, errors.Wrapf(err, "save model %s", id)
	}
	logger.Info("model stored",
		zap.String(logging.FieldFeatures, kind),
		zap.Int(logging.FieldDim, m.Features().Dim()),
	)
	return FitSummary{ModelID: id, Record: record, Report: report}, nil
}

// startModel builds the model a fit starts from: a fresh zero-weight model,
// or the stored FromModelID record with the request's localities on top.
// It also returns the feature function name to record.
func (c *Client) startModel(ctx context.Context, req FitRequest, logger *zap.Logger) (*semantic.Model, string, error) {
	if req.FromModelID == "" {
		kind := req.FeatureKind
		if kind == "" {
			kind = feature.HashedName
		}
		fn, err := feature.New(kind, req.FeatureDim)
		if err != nil {
			return nil, "", err
		}
		m, err := semantic.New(req.Ontology, fn,
			semantic.WithLogger(logger),
			semantic.WithLocalities(req.Localities),
		)
		return m, kind, err
	}

	record, err := c.Record(ctx, req.FromModelID)
	if err != nil {
		return nil, "", errors.Wrap(err, "warm start")
	}
	m, err := ModelFromRecord(record, req.Ontology, semantic.WithLogger(logger))
	if err != nil {
		return nil, "", err
	}
	for tag, radius := range req.Localities {
		if err := m.SetLocality(tag, radius); err != nil {
			return nil, "", err
		}
	}
	logger.Debug("warm start", zap.String("from", record.ID))
	return m, record.Features.Name, nil
}

// Score evaluates each observed rule against its own slot's distribution.
func (c *Client) Score(ctx context.Context, req ScoreRequest) (ScoreSummary, error) {
	if req.Ontology == nil {
		return ScoreSummary{}, errors.New("score requires an ontology")
	}
	record, err := c.resolveRecord(ctx, req.ModelID, req.Record)
	if err != nil {
		return ScoreSummary{}, err
	}

	var opts []semantic.Option
	if req.LogProbFloor != nil {
		opts = append(opts, semantic.WithLogProbFloor(*req.LogProbFloor))
	}
	m, err := ModelFromRecord(record, req.Ontology, opts...)
	if err != nil {
		return ScoreSummary{}, err
	}

	summary := ScoreSummary{ModelID: record.ID}
	for _, s := range req.Corpus.Sentences {
		for _, r := range s.Rules {
			if err := ctx.Err(); err != nil {
				return ScoreSummary{}, err
			}
			score, err := scoreRule(m, s.Context.ID, r)
			if err != nil {
				return ScoreSummary{}, errors.Wrapf(err, "score %s in %s", r, s.Context.ID)
			}
			summary.Rules = append(summary.Rules, score)
			summary.LogLikelihood += score.LogProb
			if !score.Derivable {
				summary.Underivable++
			}
			if score.Correct {
				summary.Correct++
			}
		}
	}
	return summary, nil
}

func scoreRule(m *semantic.Model, sentence string, r rule.SemanticRule) (RuleScore, error) {
	dist, err := m.Distribution(semantic.SlotOf(r))
	if err != nil {
		return RuleScore{}, err
	}
	score := RuleScore{
		Sentence:   sentence,
		Rule:       r.String(),
		LogProb:    m.LogProbFloor(),
		Candidates: dist.Len(),
	}
	if lp, ok := dist.LogProb(r); ok {
		score.LogProb = lp
		score.Derivable = true
	}
	if best, ok := dist.Best(); ok {
		score.Best = best.Rule.String()
		score.BestLogProb = best.LogProb
		score.Correct = best.Rule == r
	}
	return score, nil
}

func (c *Client) Weights(ctx context.Context) ([]model.WeightSummary, error) {
	return c.store.ListWeights(ctx)
}

func (c *Client) Record(ctx context.Context, id string) (model.WeightRecord, error) {
	record, ok, err := c.store.GetWeights(ctx, id)
	if err != nil {
		return model.WeightRecord{}, err
	}
	if !ok {
		return model.WeightRecord{}, errors.Wrapf(ErrModelNotFound, "%s", id)
	}
	return record, nil
}

// Import stores a record decoded elsewhere, e.g. from an exported file.
func (c *Client) Import(ctx context.Context, record model.WeightRecord) error {
	return c.store.SaveWeights(ctx, record)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	deleted, err := c.store.DeleteWeights(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return errors.Wrapf(ErrModelNotFound, "%s", id)
	}
	return nil
}

func (c *Client) resolveRecord(ctx context.Context, id string, record *model.WeightRecord) (model.WeightRecord, error) {
	if record != nil {
		return *record, nil
	}
	if id == "" {
		return model.WeightRecord{}, errors.New("score requires a model id or record")
	}
	return c.Record(ctx, id)
}

// ModelFromRecord rebuilds a model from a stored record. The record's
// feature function must still produce vectors of the stored dimension and
// every impliable signature must exist in ont.
func ModelFromRecord(record model.WeightRecord, ont ontology.Ontology, opts ...semantic.Option) (*semantic.Model, error) {
	fn, err := feature.New(record.Features.Name, record.Features.Dim)
	if err != nil {
		return nil, err
	}
	if fn.Dim() != len(record.Weights) {
		return nil, errors.Wrapf(semantic.ErrDimensionMismatch,
			"model %s: feature function %s has dimension %d, record has %d weights",
			record.ID, record.Features.Name, fn.Dim(), len(record.Weights))
	}

	impliable := make([]ontology.Signature, 0, len(record.Impliable))
	for _, name := range record.Impliable {
		sig, ok := ont.Lookup(name)
		if !ok {
			return nil, errors.WithHint(
				errors.Wrapf(ontology.ErrSignatureNotFound, "model %s: impliable signature %q", record.ID, name),
				"score with the ontology the model was fitted against",
			)
		}
		impliable = append(impliable, sig)
	}

	base := []semantic.Option{
		semantic.WithWeights(record.Weights),
		semantic.WithImpliable(impliable...),
		semantic.WithLocalities(record.Localities),
	}
	return semantic.New(ont, fn, append(base, opts...)...)
}

func recordFromModel(id, featureKind string, m *semantic.Model, regConst float64, report semantic.FitReport) model.WeightRecord {
	impliable := m.ImpliableSignatures()
	names := make([]string, 0, len(impliable))
	for _, sig := range impliable {
		names = append(names, sig.Name)
	}
	localities := m.Localities()
	if len(localities) == 0 {
		localities = nil
	}

	return storage.Stamp(model.WeightRecord{
		ID:         id,
		Features:   model.FeatureFunction{Name: featureKind, Dim: m.Features().Dim()},
		Weights:    m.Weights(),
		Impliable:  names,
		Localities: localities,
		Fit: &model.FitReport{
			RegConst:        regConst,
			Rules:           report.Rules,
			Candidates:      report.Candidates,
			MaxCandidates:   report.MaxCandidates,
			LogLikelihood:   report.LogLikelihood,
			Objective:       report.Objective,
			WeightNorm:      report.WeightNorm,
			Iterations:      report.Iterations,
			FuncEvaluations: report.FuncEvaluations,
			Status:          report.Status,
			DurationMillis:  report.Duration.Milliseconds(),
		},
		CreatedAt: time.Now().UTC(),
	})
}
