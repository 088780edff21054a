package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"geosem/internal/model"
	"geosem/pkg/geosem"
)

func newScoreCmd(a *app) *cobra.Command {
	var (
		inputs     inputFlags
		modelID    string
		modelFile  string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a corpus's observed rules with a fitted model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (modelID == "") == (modelFile == "") {
				return errors.New("score requires exactly one of --model or --model-file")
			}
			var record *model.WeightRecord
			if modelFile != "" {
				r, err := readRecordFile(modelFile)
				if err != nil {
					return err
				}
				record = &r
			}

			ont, c, err := inputs.load(a.logger)
			if err != nil {
				return err
			}

			client, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			floor := a.cfg.Scoring.LogProbFloor
			summary, err := client.Score(cmd.Context(), geosem.ScoreRequest{
				Ontology:     ont,
				Corpus:       c,
				ModelID:      modelID,
				Record:       record,
				LogProbFloor: &floor,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, summary)
			}
			for _, r := range summary.Rules {
				mark := " "
				switch {
				case !r.Derivable:
					mark = "!"
				case r.Correct:
					mark = "*"
				}
				fmt.Fprintf(out, "%s %-24s %10.4f  %s (%d candidates)\n", mark, r.Sentence, r.LogProb, r.Rule, r.Candidates)
			}
			fmt.Fprintf(out, "model=%s rules=%d correct=%d underivable=%d log_likelihood=%.6f\n",
				summary.ModelID, len(summary.Rules), summary.Correct, summary.Underivable, summary.LogLikelihood)
			return nil
		},
	}

	inputs.register(cmd)
	cmd.Flags().StringVar(&modelID, "model", "", "stored model id")
	cmd.Flags().StringVar(&modelFile, "model-file", "", "model record JSON file written by fit --out")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print scores as JSON")
	return cmd
}
