package factory

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/goliatone/go-factory/layering"
)

// Attributes maps attribute names to values. Values may be literals, deferred
// computations, expressions, nested builders or containers of those.
type Attributes map[string]any

// Clone returns a shallow copy of the attributes.
func (a Attributes) Clone() Attributes {
	return layering.Copy(a)
}

// Keys returns the attribute names sorted alphabetically.
func (a Attributes) Keys() []string {
	return layering.Keys(a)
}

// Get returns the value stored under key.
func (a Attributes) Get(key string) (any, bool) {
	value, ok := a[key]
	return value, ok
}

// String returns the value under key formatted as a string. Missing keys and
// nil values yield "".
func (a Attributes) String(key string) string {
	switch value := a[key].(type) {
	case nil:
		return ""
	case string:
		return value
	case fmt.Stringer:
		return value.String()
	default:
		return fmt.Sprint(value)
	}
}

// Int returns the value under key as an int when it holds any integer or
// float kind, otherwise 0. Floats are truncated toward zero. Values outside
// the int range clamp to math.MinInt or math.MaxInt, and NaN yields 0.
func (a Attributes) Int(key string) int {
	switch value := a[key].(type) {
	case int:
		return value
	case int8:
		return int(value)
	case int16:
		return int(value)
	case int32:
		return int(value)
	case int64:
		return clampInt64(value)
	case uint:
		return clampUint64(uint64(value))
	case uint8:
		return int(value)
	case uint16:
		return int(value)
	case uint32:
		return clampUint64(uint64(value))
	case uint64:
		return clampUint64(value)
	case float32:
		return clampFloat(float64(value))
	case float64:
		return clampFloat(value)
	default:
		return 0
	}
}

func clampInt64(v int64) int {
	switch {
	case v > math.MaxInt:
		return math.MaxInt
	case v < math.MinInt:
		return math.MinInt
	}
	return int(v)
}

func clampUint64(v uint64) int {
	if v > math.MaxInt {
		return math.MaxInt
	}
	return int(v)
}

func clampFloat(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt:
		return math.MaxInt
	case v <= math.MinInt:
		return math.MinInt
	}
	return int(v)
}

// Bool returns the value under key when it is a bool, otherwise false.
func (a Attributes) Bool(key string) bool {
	value, _ := a[key].(bool)
	return value
}

// DefinitionFunc supplies the default attributes of a factory. It is called
// once per builder and once per collapse, so it must return equivalent
// defaults every time.
type DefinitionFunc func() Attributes

// Deferred is an attribute value computed from the state collapsed so far.
type Deferred func(Attributes) (any, error)

// Lazy adapts an infallible function into a Deferred value.
func Lazy(fn func(Attributes) any) Deferred {
	return func(state Attributes) (any, error) {
		return fn(state), nil
	}
}

// StateFunc is a state contribution computed from the state collapsed so far.
type StateFunc func(Attributes) (Attributes, error)

// Transformer adjusts a freshly constructed object. Transformers run in
// registration order after construction.
type Transformer[T any] func(T) error

// Constructor builds the target object from arguments ordered by the
// factory schema.
type Constructor[T any] func(args ...any) (T, error)

// Maker is implemented by values that materialize themselves when used as a
// nested attribute value.
type Maker interface {
	MakeAny(ctx context.Context) (any, error)
}

// Mapper is implemented by container types that can map every element
// through fn while preserving their structure.
type Mapper interface {
	Map(fn func(any) (any, error)) (any, error)
}

// CollectionMapper resolves container values the factory does not know
// about. It reports handled=false when value is not one of its containers.
type CollectionMapper func(value any, fn func(any) (any, error)) (result any, handled bool, err error)

// depthMaker is implemented by builders so nested resolution can carry the
// current nesting depth.
type depthMaker interface {
	makeAtDepth(ctx context.Context, depth int) (any, error)
}

// Response stores a typed result produced by an evaluator.
type Response[T any] struct {
	Value T
}

// RuleContext carries inputs needed when evaluating an expression value.
type RuleContext struct {
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	Factory  string
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) factoryLabel() string {
	if ctx.Factory != "" {
		return ctx.Factory
	}
	return "unknown"
}

func (ctx RuleContext) snapshotMap() map[string]any {
	switch snapshot := ctx.Snapshot.(type) {
	case Attributes:
		return map[string]any(snapshot)
	case map[string]any:
		return snapshot
	default:
		return nil
	}
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}
