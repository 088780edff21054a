package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"geosem/internal/config"
	"geosem/internal/logging"
	"geosem/pkg/geosem"
)

const skipConfigAnnotation = "geosem/skip-config"

// app holds state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	configPath string
	storeKind  string
	dbPath     string
	jsonLogs   bool
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "geosemctl",
		Short:         "Fit and apply log-linear semantic rule models",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipConfigAnnotation] != "" {
				return nil
			}
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ./"+config.DefaultConfigFile+" if present)")
	flags.StringVar(&a.storeKind, "store", "", "store backend: memory or sqlite")
	flags.StringVar(&a.dbPath, "db-path", "", "sqlite database path")
	flags.BoolVar(&a.jsonLogs, "json-logs", false, "emit JSON logs")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newFitCmd(a),
		newScoreCmd(a),
		newWeightsCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.Store.Kind = a.storeKind
	}
	if flags.Changed("db-path") {
		cfg.Store.DBPath = a.dbPath
	}
	if flags.Changed("json-logs") {
		cfg.Log.JSON = a.jsonLogs
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}

	logger, err := logging.Initialize(cfg.Log.JSON, cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.Named("geosemctl")
	return nil
}

func (a *app) client(cmd *cobra.Command) (*geosem.Client, error) {
	client, err := geosem.New(geosem.Options{
		StoreKind: a.cfg.Store.Kind,
		DBPath:    a.cfg.Store.DBPath,
		Logger:    a.logger,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Init(cmd.Context()); err != nil {
		_ = client.Close()
		return nil, err
	}
	a.logger.Debug("store opened",
		zap.String(logging.FieldStore, a.cfg.Store.Kind),
		zap.String(logging.FieldPath, a.cfg.Store.DBPath),
	)
	return client, nil
}
