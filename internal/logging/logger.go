// File: internal/logging/logger.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// logr front-end backed by zap, shared by every hioload-clk component.

package logging

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels passed to logr's V().
const (
	DEFAULT = 0
	VERBOSE = 1
	DEBUG   = 2
	TRACE   = 3
)

// NewLogger builds a zap-backed logr.Logger. level is a logr verbosity (0..TRACE).
func NewLogger(development bool, level int) (logr.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	// logr V(n) maps to zap level -n
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-level))
	zl, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}

// NewTestLogger creates a development logger that emits every verbosity level.
func NewTestLogger() logr.Logger {
	l, err := NewLogger(true, TRACE)
	if err != nil {
		return logr.Discard()
	}
	return l
}

// FromContext returns the logger stored in ctx, or a discarding logger.
func FromContext(ctx context.Context) logr.Logger {
	if l, err := logr.FromContext(ctx); err == nil {
		return l
	}
	return logr.Discard()
}
