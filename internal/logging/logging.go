// Package logging builds the zap logger threaded through every
// long-lived component, replacing the global mutable log-level singleton
// flagged by spec.md §9 with explicit, per-component handles.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production zap.Logger with ISO8601 timestamps, matching
// internal/service/logger.go in the teacher repo.
func New() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "time"
	return cfg.Build()
}

// Component derives a SugaredLogger tagged with a "component" field, the
// pattern used throughout cmd/main.go to scope a logger to one
// subsystem.
func Component(base *zap.Logger, name string) *zap.SugaredLogger {
	return base.With(zap.String("component", name)).Sugar()
}
