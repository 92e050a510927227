package logger

import (
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
)

// New builds a JSON zap logger at the given level ("debug", "info", "warn", "error").
// An unknown level falls back to info.
func New(levelStr string) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(strings.ToLower(levelStr))
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.DisableCaller = true

	l, buildErr := cfg.Build()
	if buildErr != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", buildErr)
	}
	if err != nil {
		l.Warn("Invalid log level string, defaulting to INFO", zap.String("input", levelStr))
	}
	return l, nil
}

// SetSlogDefault routes the standard slog logger through l.
func SetSlogDefault(l *zap.Logger) {
	slog.SetDefault(slog.New(zapslog.NewHandler(l.Core())))
}
