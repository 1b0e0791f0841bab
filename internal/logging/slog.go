package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// SlogLogger routes every level through one slog.Logger.
type SlogLogger struct {
	l *slog.Logger
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

// newSlogBackend builds a JSON handler unless format is "text".
func newSlogBackend(w io.Writer, format, level string) (Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(levelOrDefault(level))); err != nil {
		return nil, err
	}

	ho := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return NewSlogLogger(slog.New(slog.NewTextHandler(w, ho))), nil
	}
	return NewSlogLogger(slog.New(slog.NewJSONHandler(w, ho))), nil
}

func (s *SlogLogger) log(ctx context.Context, level slog.Level, msg string, args []any) {
	s.l.Log(ctx, level, msg, args...)
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelDebug, msg, args)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelInfo, msg, args)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelWarn, msg, args)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelError, msg, args)
}

func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}
