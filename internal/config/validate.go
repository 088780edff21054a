package config

import (
	"math"

	"github.com/cockroachdb/errors"
)

var ErrInvalidConfig = errors.New("invalid config")

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if !(c.Training.RegConst > 0) || math.IsInf(c.Training.RegConst, 0) {
		return errors.Wrapf(ErrInvalidConfig, "training.reg_const must be > 0, got %v", c.Training.RegConst)
	}
	if c.Training.MaxIterations < 0 {
		return errors.Wrapf(ErrInvalidConfig, "training.max_iterations must be >= 0, got %d", c.Training.MaxIterations)
	}
	if c.Training.GradientThreshold < 0 {
		return errors.Wrapf(ErrInvalidConfig, "training.gradient_threshold must be >= 0, got %v", c.Training.GradientThreshold)
	}
	if c.Training.Workers < 0 {
		return errors.Wrapf(ErrInvalidConfig, "training.workers must be >= 0, got %d", c.Training.Workers)
	}
	if c.Features.Kind == "" {
		return errors.Wrap(ErrInvalidConfig, "features.kind cannot be empty")
	}
	if c.Features.Dim <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "features.dim must be > 0, got %d", c.Features.Dim)
	}

	seen := make(map[string]bool, len(c.Localities))
	for _, l := range c.Localities {
		if l.Tag == "" {
			return errors.Wrap(ErrInvalidConfig, "localities entry has no tag")
		}
		if seen[l.Tag] {
			return errors.Wrapf(ErrInvalidConfig, "duplicate locality for %s", l.Tag)
		}
		seen[l.Tag] = true
		if l.Radius < 0 {
			return errors.Wrapf(ErrInvalidConfig, "locality radius for %s must be >= 0, got %d", l.Tag, l.Radius)
		}
	}
	return nil
}
