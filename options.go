package factory

import (
	"strings"

	"github.com/goliatone/go-factory/pkg/activity"
)

// DefaultMaxDepth bounds how deeply nested builders may be materialized
// before ErrMaxDepth is reported.
const DefaultMaxDepth = 32

// Config groups scalar factory settings that are convenient to load from
// configuration files.
type Config struct {
	Name                string           `json:"name,omitempty" yaml:"name,omitempty"`
	MaxDepth            int              `json:"max_depth,omitempty" yaml:"max_depth,omitempty"`
	PersistentOverrides bool             `json:"persistent_overrides,omitempty" yaml:"persistent_overrides,omitempty"`
	Activity            *activity.Config `json:"activity,omitempty" yaml:"activity,omitempty"`
}

// Option configures a factory.
type Option func(*factoryConfig)

type factoryConfig struct {
	name                string
	schema              Schema
	constructor         any
	maxDepth            int
	persistentOverrides bool
	evaluator           Evaluator
	programCache        ProgramCache
	functions           *FunctionRegistry
	evaluatorLogger     EvaluatorLogger
	makeLogger          MakeLogger
	mappers             []CollectionMapper
	activityHooks       activity.Hooks
	activityConfig      *activity.Config
	args                map[string]any
}

func applyOptions(opts []Option) factoryConfig {
	cfg := factoryConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.maxDepth <= 0 {
		cfg.maxDepth = DefaultMaxDepth
	}
	return cfg
}

// WithConfig applies the non-zero settings of cfg. A nil Activity leaves the
// activity settings untouched.
func WithConfig(cfg Config) Option {
	return func(fc *factoryConfig) {
		if name := strings.TrimSpace(cfg.Name); name != "" {
			fc.name = name
		}
		if cfg.MaxDepth > 0 {
			fc.maxDepth = cfg.MaxDepth
		}
		if cfg.PersistentOverrides {
			fc.persistentOverrides = true
		}
		if cfg.Activity != nil {
			activityCfg := *cfg.Activity
			fc.activityConfig = &activityCfg
		}
	}
}

// WithName sets the factory name reported in logs, traces and activity events.
func WithName(name string) Option {
	return func(cfg *factoryConfig) {
		cfg.name = strings.TrimSpace(name)
	}
}

// WithSchema fixes the constructor argument order. The definition must
// declare exactly these fields.
func WithSchema(fields ...Field) Option {
	return func(cfg *factoryConfig) {
		cfg.schema = NewSchema(fields...)
	}
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(cfg *factoryConfig) {
		cfg.maxDepth = depth
	}
}

// WithPersistentOverrides makes overrides passed to Make stay on the builder,
// so later Make calls keep them.
func WithPersistentOverrides() Option {
	return func(cfg *factoryConfig) {
		cfg.persistentOverrides = true
	}
}

// WithEvaluator configures the evaluator used for Expression values.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *factoryConfig) {
		cfg.evaluator = e
	}
}

// WithExpressionArgs exposes args to expressions under the "args" binding.
func WithExpressionArgs(args map[string]any) Option {
	return func(cfg *factoryConfig) {
		cfg.args = copyMap(args)
	}
}

// WithCollectionMapper registers a strategy for resolving container values
// that do not implement Mapper. Strategies are tried in registration order.
func WithCollectionMapper(mapper CollectionMapper) Option {
	return func(cfg *factoryConfig) {
		if mapper == nil {
			return
		}
		cfg.mappers = append(cfg.mappers, mapper)
	}
}

func (cfg factoryConfig) evaluatorLog() EvaluatorLogger {
	if cfg.evaluatorLogger != nil {
		return cfg.evaluatorLogger
	}
	return noopLogger{}
}

func (cfg factoryConfig) makeLog() MakeLogger {
	if cfg.makeLogger != nil {
		return cfg.makeLogger
	}
	return noopLogger{}
}

func copyMap(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	out := make(map[string]any, len(origin))
	for key, value := range origin {
		out[key] = value
	}
	return out
}
