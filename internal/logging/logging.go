// Package logging builds the process-wide zap logger.
package logging

import (
	"go.uber.org/zap"
)

// New constructs a logger. Debug mode switches to the development
// config with debug-level output; otherwise production JSON at info.
func New(debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.InitialFields = map[string]interface{}{
		"service": "opspulse",
	}
	return cfg.Build()
}
