// Package logging wraps go.uber.org/zap with the level/highlight
// conventions the teacher's utils/logging package establishes (a small
// set of named levels, color-highlighted in interactive terminals),
// adapted to zap's structured-field model instead of the teacher's
// printf-style logger.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names mirror the teacher's utils/logging level set.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a production-profile zap.Logger at the requested level,
// console-encoded for interactive use (the teacher's default) or
// JSON-encoded when structured is true (for log aggregation in
// production deployments). highlight selects "auto", "colors", or
// "plain" the way the teacher's --log-display-highlight flag does.
func New(level Level, structured bool, highlight string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if !structured {
		cfg = zap.NewDevelopmentConfig()
		mode, err := ToHighlight(highlight, os.Stdout.Fd())
		if err != nil {
			return nil, err
		}
		if mode == Colors {
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(level.zapLevel())
	return cfg.Build()
}

// Component returns a child logger tagged with the emitting subsystem
// (e.g. "avalanche", "tsdc", "forkchoice"), the way the teacher's
// per-package loggers are named.
func Component(base *zap.Logger, name string) *zap.Logger {
	return base.With(zap.String("component", name))
}
