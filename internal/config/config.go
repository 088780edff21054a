// Package config loads geosem settings from TOML files and GEOSEM_
// environment variables.
package config

type Config struct {
	Training   TrainingConfig   `mapstructure:"training" toml:"training"`
	Scoring    ScoringConfig    `mapstructure:"scoring" toml:"scoring"`
	Features   FeaturesConfig   `mapstructure:"features" toml:"features"`
	Localities []LocalityConfig `mapstructure:"localities" toml:"localities"`
	Store      StoreConfig      `mapstructure:"store" toml:"store"`
	Log        LogConfig        `mapstructure:"log" toml:"log"`
}

type TrainingConfig struct {
	RegConst          float64 `mapstructure:"reg_const" toml:"reg_const"`
	MaxIterations     int     `mapstructure:"max_iterations" toml:"max_iterations"`
	GradientThreshold float64 `mapstructure:"gradient_threshold" toml:"gradient_threshold"`
	// Workers bounds parallel candidate-set builds; 0 uses GOMAXPROCS.
	Workers int `mapstructure:"workers" toml:"workers"`
}

type ScoringConfig struct {
	LogProbFloor float64 `mapstructure:"log_prob_floor" toml:"log_prob_floor"`
}

type FeaturesConfig struct {
	Kind string `mapstructure:"kind" toml:"kind"`
	Dim  int    `mapstructure:"dim" toml:"dim"`
}

// LocalityConfig restricts anchored arguments of Tag to words within Radius
// positions of it. Tag names are case sensitive, so localities are an array
// of tables rather than a keyed table.
type LocalityConfig struct {
	Tag    string `mapstructure:"tag" toml:"tag"`
	Radius int    `mapstructure:"radius" toml:"radius"`
}

type StoreConfig struct {
	Kind   string `mapstructure:"kind" toml:"kind"`
	DBPath string `mapstructure:"db_path" toml:"db_path"`
}

type LogConfig struct {
	JSON  bool   `mapstructure:"json" toml:"json"`
	Level string `mapstructure:"level" toml:"level"`
}

// LocalityMap returns the localities keyed by tag name.
func (c *Config) LocalityMap() map[string]int {
	out := make(map[string]int, len(c.Localities))
	for _, l := range c.Localities {
		out[l.Tag] = l.Radius
	}
	return out
}
