package config

import (
	"github.com/spf13/viper"

	"geosem/internal/feature"
	"geosem/internal/semantic"
	"geosem/internal/storage"
)

const (
	DefaultRegConst   = 0.1
	DefaultFeatureDim = 1024
	DefaultDBPath     = "geosem.db"
	DefaultLogLevel   = "info"
	DefaultConfigName = "geosem"
	DefaultConfigFile = DefaultConfigName + ".toml"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("training.reg_const", d.Training.RegConst)
	v.SetDefault("training.max_iterations", d.Training.MaxIterations)
	v.SetDefault("training.gradient_threshold", d.Training.GradientThreshold)
	v.SetDefault("training.workers", d.Training.Workers)

	v.SetDefault("scoring.log_prob_floor", d.Scoring.LogProbFloor)

	v.SetDefault("features.kind", d.Features.Kind)
	v.SetDefault("features.dim", d.Features.Dim)

	v.SetDefault("store.kind", d.Store.Kind)
	v.SetDefault("store.db_path", d.Store.DBPath)

	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.level", d.Log.Level)
}

func Default() *Config {
	return &Config{
		Training: TrainingConfig{
			RegConst:          DefaultRegConst,
			MaxIterations:     semantic.DefaultMaxIterations,
			GradientThreshold: semantic.DefaultGradientThreshold,
		},
		Scoring: ScoringConfig{LogProbFloor: semantic.DefaultLogProbFloor},
		Features: FeaturesConfig{
			Kind: feature.HashedName,
			Dim:  DefaultFeatureDim,
		},
		Store: StoreConfig{
			Kind:   storage.DefaultStoreKind,
			DBPath: DefaultDBPath,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}
