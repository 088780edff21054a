package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"geosem/internal/corpus"
	"geosem/internal/logging"
	"geosem/internal/ontology"
	"geosem/pkg/geosem"
)

type inputFlags struct {
	ontologyPath string
	corpusPath   string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.ontologyPath, "ontology", "", "ontology YAML file")
	cmd.Flags().StringVar(&f.corpusPath, "corpus", "", "corpus YAML file")
	_ = cmd.MarkFlagRequired("ontology")
	_ = cmd.MarkFlagRequired("corpus")
}

func (f *inputFlags) load(logger *zap.Logger) (*ontology.Registry, corpus.Corpus, error) {
	ont, err := ontology.LoadFile(f.ontologyPath)
	if err != nil {
		return nil, corpus.Corpus{}, err
	}
	c, err := corpus.LoadFile(f.corpusPath, ont)
	if err != nil {
		return nil, corpus.Corpus{}, err
	}
	logger.Info("corpus loaded",
		zap.String(logging.FieldPath, f.corpusPath),
		zap.Int(logging.FieldRules, len(c.Rules())),
	)
	return ont, c, nil
}

func newFitCmd(a *app) *cobra.Command {
	var (
		inputs        inputFlags
		modelID       string
		fromID        string
		outPath       string
		regConst      float64
		maxIterations int
		workers       int
		dim           int
		jsonOutput    bool
	)

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit weights on a corpus and store the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("reg-const") {
				cfg.Training.RegConst = regConst
			}
			if cmd.Flags().Changed("max-iterations") {
				cfg.Training.MaxIterations = maxIterations
			}
			if cmd.Flags().Changed("workers") {
				cfg.Training.Workers = workers
			}
			if cmd.Flags().Changed("dim") {
				cfg.Features.Dim = dim
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ont, c, err := inputs.load(a.logger)
			if err != nil {
				return err
			}
			if len(c.Rules()) == 0 {
				return errors.WithHint(errors.Newf("corpus %s has no rules", inputs.corpusPath), "add rules to at least one sentence")
			}

			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Fit(cmd.Context(), geosem.FitRequest{
				Ontology:          ont,
				Corpus:            c,
				ModelID:           modelID,
				FromModelID:       fromID,
				FeatureKind:       cfg.Features.Kind,
				FeatureDim:        cfg.Features.Dim,
				Localities:        cfg.LocalityMap(),
				RegConst:          cfg.Training.RegConst,
				MaxIterations:     cfg.Training.MaxIterations,
				GradientThreshold: cfg.Training.GradientThreshold,
				Workers:           cfg.Training.Workers,
			})
			if err != nil {
				a.logger.Error("fit failed", zap.Error(err))
				return err
			}
			if outPath != "" {
				if err := writeRecordFile(outPath, summary.Record); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, struct {
					ModelID string `json:"model_id"`
					Report  any    `json:"report"`
				}{summary.ModelID, summary.Report})
			}
			r := summary.Report
			fmt.Fprintf(out, "model %s\n", summary.ModelID)
			fmt.Fprintf(out, "rules=%d candidates=%d max_candidates=%d impliable=%d\n", r.Rules, r.Candidates, r.MaxCandidates, r.Impliable)
			fmt.Fprintf(out, "log_likelihood=%.6f objective=%.6f weight_norm=%.6f\n", r.LogLikelihood, r.Objective, r.WeightNorm)
			fmt.Fprintf(out, "iterations=%d evaluations=%d status=%s duration=%s\n", r.Iterations, r.FuncEvaluations, r.Status, r.Duration)
			if outPath != "" {
				fmt.Fprintf(out, "wrote %s\n", outPath)
			}
			return nil
		},
	}

	inputs.register(cmd)
	cmd.Flags().StringVar(&modelID, "model-id", "", "model id (default random UUID)")
	cmd.Flags().StringVar(&fromID, "from", "", "warm-start from the weights of a stored model")
	cmd.Flags().StringVar(&outPath, "out", "", "also write the fitted record to this JSON file")
	cmd.Flags().Float64Var(&regConst, "reg-const", 0, "L2 regularization constant")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "optimizer iteration budget")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel candidate-set builds (0 = GOMAXPROCS)")
	cmd.Flags().IntVar(&dim, "dim", 0, "feature dimension")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the fit report as JSON")
	return cmd
}
