package factory

import (
	"context"
	"reflect"
	"strings"

	"github.com/goliatone/go-factory/pkg/activity"
)

// Factory turns a definition of default attributes into objects of type T.
// A Factory is immutable once defined and safe for concurrent use; each call
// to New returns an independent Builder.
type Factory[T any] struct {
	resolver
	definition     DefinitionFunc
	construct      construction[T]
	schema         Schema
	explicitSchema bool
	emitter        *activity.Emitter
}

// Define creates a factory for T. The definition is called afresh for every
// collapse. Objects are constructed by struct hydration when T is a struct or
// a pointer to one, by handing over the attributes when T is a map, and
// otherwise by the constructor configured through WithConstructor, WithFunc
// or WithJSONDecoding.
func Define[T any](definition DefinitionFunc, opts ...Option) *Factory[T] {
	cfg := applyOptions(opts)
	target := reflect.TypeFor[T]()
	if cfg.name == "" {
		cfg.name = defaultName(target)
	}
	if cfg.evaluator == nil {
		cfg.evaluator = defaultEvaluator(cfg)
	}

	f := &Factory[T]{
		resolver:   resolver{name: cfg.name, cfg: cfg},
		definition: definition,
		construct:  buildConstruction[T](cfg.name, cfg.constructor),
		emitter:    newEmitter(cfg),
	}
	if !cfg.schema.IsZero() {
		f.schema = cfg.schema
		f.explicitSchema = true
	} else {
		f.schema = SchemaOf[T]()
	}
	return f
}

// Name returns the factory name used in logs, traces and activity events.
func (f *Factory[T]) Name() string {
	return f.name
}

// Schema returns the schema constructor arguments are ordered by. For derived
// schemas, definition keys the struct does not declare follow in sorted order
// at make time.
func (f *Factory[T]) Schema() Schema {
	return f.schema
}

// New returns a builder seeded with the definition.
func (f *Factory[T]) New() *Builder[T] {
	return &Builder[T]{
		factory: f,
		layers:  []layer{{label: "definition", definition: true}},
	}
}

// Make is shorthand for f.New().Make(overrides...).
func (f *Factory[T]) Make(overrides ...any) (T, error) {
	return f.New().Make(overrides...)
}

// MakeAny makes a fresh object so a Factory can be used directly as a nested
// attribute value.
func (f *Factory[T]) MakeAny(ctx context.Context) (any, error) {
	return f.New().MakeAny(ctx)
}

func (f *Factory[T]) makeAtDepth(ctx context.Context, depth int) (any, error) {
	return f.New().makeAtDepth(ctx, depth)
}

// definitionAttributes calls the definition, treating a nil definition or a
// nil result as empty.
func (f *Factory[T]) definitionAttributes() Attributes {
	if f.definition == nil {
		return Attributes{}
	}
	attrs := f.definition()
	if attrs == nil {
		return Attributes{}
	}
	return attrs
}

// collapse runs the fold for layers and returns the projected state together
// with the constructor order.
func (f *Factory[T]) collapse(ctx context.Context, depth int, layers []layer, observe layerObserver) (Attributes, Schema, error) {
	definition := f.definitionAttributes()
	schema, err := f.schema.order(definition.Keys(), f.explicitSchema)
	if err != nil {
		return nil, Schema{}, err
	}
	state, err := f.resolver.collapse(ctx, depth, definition, layers, observe)
	if err != nil {
		return nil, Schema{}, err
	}
	return state, schema, nil
}

func defaultName(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "factory"
	}
	if name := t.Name(); name != "" {
		return strings.ToLower(name[:1]) + name[1:]
	}
	return t.String()
}
