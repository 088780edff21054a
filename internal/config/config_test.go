package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, `
[training]
reg_const = 0.5
workers = 2

[scoring]
log_prob_floor = -50.0

[[localities]]
tag = "RegionOf"
radius = 3

[[localities]]
tag = "In"
radius = 5

[store]
kind = "sqlite"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Training.RegConst)
	assert.Equal(t, 2, cfg.Training.Workers)
	assert.Equal(t, -50.0, cfg.Scoring.LogProbFloor)
	assert.Equal(t, "sqlite", cfg.Store.Kind)
	assert.Equal(t, map[string]int{"RegionOf": 3, "In": 5}, cfg.LocalityMap())

	// Untouched keys keep their defaults.
	def := Default()
	assert.Equal(t, def.Training.MaxIterations, cfg.Training.MaxIterations)
	assert.Equal(t, def.Features, cfg.Features)
	assert.Equal(t, def.Store.DBPath, cfg.Store.DBPath)
	assert.Equal(t, def.Log, cfg.Log)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "[training]\nreg_const = 0.5\n")
	t.Setenv("GEOSEM_TRAINING_REG_CONST", "2.5")
	t.Setenv("GEOSEM_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.Training.RegConst)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"zero reg_const":     func(c *Config) { c.Training.RegConst = 0 },
		"negative workers":   func(c *Config) { c.Training.Workers = -1 },
		"empty feature kind": func(c *Config) { c.Features.Kind = "" },
		"zero dim":           func(c *Config) { c.Features.Dim = 0 },
		"negative radius":    func(c *Config) { c.Localities = []LocalityConfig{{Tag: "In", Radius: -1}} },
		"duplicate locality": func(c *Config) { c.Localities = []LocalityConfig{{Tag: "In"}, {Tag: "In"}} },
		"unnamed locality":   func(c *Config) { c.Localities = []LocalityConfig{{Radius: 1}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected invalid config, got: %v", err)
			}
		})
	}
	require.NoError(t, Default().Validate())
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, WriteDefault(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	err = WriteDefault(path, false)
	require.True(t, errors.Is(err, ErrConfigExists), "got: %v", err)
	require.NoError(t, WriteDefault(path, true))
}

func TestWriteKeepsLocalityCase(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	cfg := Default()
	cfg.Localities = []LocalityConfig{{Tag: "RegionOf", Radius: 2}}
	require.NoError(t, Write(path, cfg, false))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"RegionOf": 2}, loaded.LocalityMap())
}
