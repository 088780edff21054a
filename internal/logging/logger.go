package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	base = zap.NewNop()
)

// Initialize replaces the process logger. JSON output uses zap's production
// encoder; otherwise a console encoder writes to stderr.
func Initialize(jsonOutput bool, level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var logger *zap.Logger
	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(lvl)
		config.OutputPaths = []string{"stderr"}
		logger, err = config.Build()
		if err != nil {
			return nil, errors.Wrap(err, "build json logger")
		}
	} else {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger = zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.Lock(os.Stderr),
			lvl,
		))
	}

	mu.Lock()
	base = logger
	mu.Unlock()
	return logger, nil
}

// L returns the process logger. It is a no-op logger until Initialize runs.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()

	return base
}

// Named returns a child of the process logger tagged with a component name.
func Named(component string) *zap.Logger { return L().Named(component) }

func Sync() {
	_ = L().Sync()
}

func ParseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zapcore.InfoLevel, errors.WithHint(errors.Wrapf(err, "log level %q", level), "use debug, info, warn or error")
	}
	return lvl, nil
}
