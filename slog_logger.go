package factory

import (
	"context"
	"log/slog"
)

// SlogLogger writes evaluator and make events to a slog.Logger. Failures are
// logged at warn level, everything else at debug.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps logger, falling back to slog.Default when nil.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger.With("component", "factory")}
}

// WithSlog routes both evaluator and make events to logger.
func WithSlog(logger *slog.Logger) Option {
	return WithLogger(NewSlogLogger(logger))
}

// LogEvaluation implements EvaluatorLogger.
func (l *SlogLogger) LogEvaluation(event EvaluatorLogEvent) {
	attrs := []slog.Attr{
		slog.String("engine", event.Engine),
		slog.String("expr", event.Expr),
		slog.String("factory", event.Factory),
		slog.Duration("duration", event.Duration),
	}
	if event.Attribute != "" {
		attrs = append(attrs, slog.String("attribute", event.Attribute))
	}
	if event.Err != nil {
		attrs = append(attrs, slog.Any("error", event.Err))
		l.logger.LogAttrs(context.Background(), slog.LevelWarn, "expression evaluation failed", attrs...)
		return
	}
	l.logger.LogAttrs(context.Background(), slog.LevelDebug, "expression evaluated", attrs...)
}

// LogMake implements MakeLogger.
func (l *SlogLogger) LogMake(event MakeLogEvent) {
	attrs := []slog.Attr{
		slog.String("factory", event.Factory),
		slog.String("target", event.Target),
		slog.Int("depth", event.Depth),
		slog.Int("layers", event.Layers),
		slog.Int("transformers", event.Transformers),
		slog.Duration("duration", event.Duration),
	}
	if event.ActivityErr != nil {
		attrs = append(attrs, slog.Any("activity_error", event.ActivityErr))
		if event.Err != nil {
			attrs = append(attrs, slog.Any("error", event.Err))
		}
		l.logger.LogAttrs(context.Background(), slog.LevelWarn, "activity hooks failed", attrs...)
		return
	}
	if event.Err != nil {
		attrs = append(attrs, slog.Any("error", event.Err))
		l.logger.LogAttrs(context.Background(), slog.LevelWarn, "make failed", attrs...)
		return
	}
	l.logger.LogAttrs(context.Background(), slog.LevelDebug, "made", attrs...)
}
