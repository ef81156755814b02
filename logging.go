package factory

import "time"

// EvaluatorLogEvent describes one expression evaluation.
type EvaluatorLogEvent struct {
	Engine  string
	Expr    string
	Factory string
	// Attribute is the key whose value held the expression.
	Attribute string
	Duration  time.Duration
	Err       error
}

// MakeLogEvent describes one materialization attempt.
type MakeLogEvent struct {
	Factory      string
	Target       string
	Depth        int
	Layers       int
	Transformers int
	Duration     time.Duration
	Err          error
	// ActivityErr is set when activity hooks rejected the make event.
	ActivityErr error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// MakeLogger records make events.
type MakeLogger interface {
	LogMake(MakeLogEvent)
}

// Logger receives both kinds of factory events.
type Logger interface {
	EvaluatorLogger
	MakeLogger
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

// MakeLoggerFunc adapts a function to MakeLogger.
type MakeLoggerFunc func(MakeLogEvent)

// LogMake implements MakeLogger.
func (f MakeLoggerFunc) LogMake(event MakeLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogEvaluation(EvaluatorLogEvent) {}
func (noopLogger) LogMake(MakeLogEvent)            {}

// WithLogger routes evaluator and make events to logger. Nil silences both.
func WithLogger(logger Logger) Option {
	return func(cfg *factoryConfig) {
		if logger == nil {
			cfg.evaluatorLogger, cfg.makeLogger = noopLogger{}, noopLogger{}
			return
		}
		cfg.evaluatorLogger, cfg.makeLogger = logger, logger
	}
}

// WithEvaluatorLogger attaches an evaluator logger to the factory.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *factoryConfig) {
		if logger == nil {
			cfg.evaluatorLogger = noopLogger{}
			return
		}
		cfg.evaluatorLogger = logger
	}
}

// WithMakeLogger attaches a make logger to the factory.
func WithMakeLogger(logger MakeLogger) Option {
	return func(cfg *factoryConfig) {
		if logger == nil {
			cfg.makeLogger = noopLogger{}
			return
		}
		cfg.makeLogger = logger
	}
}
