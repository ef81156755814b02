package factory

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Builder accumulates state contributions and transformers for one factory.
// Contributions are only validated and evaluated when the builder is made, and
// every make replays the full fold, so a builder can be made many times. A
// Builder is not safe for concurrent mutation; Clone it to fork variants.
type Builder[T any] struct {
	factory      *Factory[T]
	layers       []layer
	transformers []Transformer[T]
}

// State queues a contribution: an attribute map, or a state function
// receiving the state collapsed so far. Other values are rejected with a
// ContributionError when the builder is made.
func (b *Builder[T]) State(contribution any) *Builder[T] {
	return b.StateAs(fmt.Sprintf("state#%d", len(b.layers)), contribution)
}

// StateAs queues a contribution under label, which is reported by traces and
// contribution errors.
func (b *Builder[T]) StateAs(label string, contribution any) *Builder[T] {
	b.layers = append(b.layers, layer{label: label, contribution: contribution})
	return b
}

// After queues a transformer applied to every object this builder makes.
func (b *Builder[T]) After(transformer Transformer[T]) *Builder[T] {
	if transformer != nil {
		b.transformers = append(b.transformers, transformer)
	}
	return b
}

// Clone returns an independent builder with the same contributions and
// transformers.
func (b *Builder[T]) Clone() *Builder[T] {
	return &Builder[T]{
		factory:      b.factory,
		layers:       append([]layer(nil), b.layers...),
		transformers: append([]Transformer[T](nil), b.transformers...),
	}
}

// Factory returns the factory the builder was created from.
func (b *Builder[T]) Factory() *Factory[T] {
	return b.factory
}

// Len returns the number of queued layers, the definition included.
func (b *Builder[T]) Len() int {
	return len(b.layers)
}

// Make builds one object. Overrides are folded after every queued state, in
// order. Unless the factory uses persistent overrides they only apply to this
// call.
func (b *Builder[T]) Make(overrides ...any) (T, error) {
	return b.MakeContext(context.Background(), overrides...)
}

// MakeContext is Make with a context handed to nested Makers and activity
// hooks.
func (b *Builder[T]) MakeContext(ctx context.Context, overrides ...any) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return b.make(ctx, 0, b.withOverrides(overrides, true))
}

// MakeMany builds n objects from the same builder. Deferred values run once
// per object. Overrides are queued once for the whole run. The first failure
// stops the run.
func (b *Builder[T]) MakeMany(n int, overrides ...any) ([]T, error) {
	layers := b.withOverrides(overrides, true)
	out := make([]T, 0, max(n, 0))
	for i := 0; i < n; i++ {
		obj, err := b.make(context.Background(), 0, layers)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

// Raw returns the resolved, projected attributes without constructing an
// object or running transformers.
func (b *Builder[T]) Raw(overrides ...any) (Attributes, error) {
	state, _, err := b.factory.collapse(context.Background(), 0, b.withOverrides(overrides, false), nil)
	return state, err
}

// Trace reports how each layer contributed to the attribute key.
func (b *Builder[T]) Trace(key string, overrides ...any) (Trace, error) {
	layers := b.withOverrides(overrides, false)
	trace := Trace{Path: key, Layers: make([]Provenance, 0, len(layers))}
	state, _, err := b.factory.collapse(context.Background(), 0, layers, func(index int, l layer, resolved Attributes) {
		value, found := resolved[key]
		trace.Layers = append(trace.Layers, Provenance{
			Index: index,
			Label: l.label,
			Value: value,
			Found: found,
		})
	})
	if err != nil {
		return Trace{}, err
	}
	slices.Reverse(trace.Layers)
	trace.Value, trace.Found = state[key]
	return trace, nil
}

// MakeAny implements Maker.
func (b *Builder[T]) MakeAny(ctx context.Context) (any, error) {
	return b.makeAtDepth(ctx, 0)
}

func (b *Builder[T]) makeAtDepth(ctx context.Context, depth int) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return b.make(ctx, depth, b.layers)
}

// withOverrides returns the layers for one call. Nil overrides are skipped.
// When keep is set and the factory uses persistent overrides, the builder
// retains them for later calls.
func (b *Builder[T]) withOverrides(overrides []any, keep bool) []layer {
	if len(overrides) == 0 {
		return b.layers
	}
	layers := append([]layer(nil), b.layers...)
	for _, override := range overrides {
		if override == nil {
			continue
		}
		layers = append(layers, layer{label: fmt.Sprintf("override#%d", len(layers)), contribution: override})
	}
	if keep && b.factory.cfg.persistentOverrides {
		b.layers = layers
	}
	return layers
}

func (b *Builder[T]) make(ctx context.Context, depth int, layers []layer) (T, error) {
	start := time.Now()
	obj, err := b.build(ctx, depth, layers)
	f := b.factory
	rec := makeRecord{
		factory:      f.name,
		target:       reflect.TypeFor[T](),
		makeID:       uuid.NewString(),
		depth:        depth,
		layers:       len(layers),
		transformers: len(b.transformers),
		duration:     time.Since(start),
		err:          err,
	}
	f.cfg.makeLog().LogMake(MakeLogEvent{
		Factory:      rec.factory,
		Target:       typeName(rec.target),
		Depth:        rec.depth,
		Layers:       rec.layers,
		Transformers: rec.transformers,
		Duration:     rec.duration,
		Err:          err,
	})
	f.emit(ctx, f.emitter, rec)
	return obj, err
}

func (b *Builder[T]) build(ctx context.Context, depth int, layers []layer) (T, error) {
	var zero T
	state, schema, err := b.factory.collapse(ctx, depth, layers, nil)
	if err != nil {
		return zero, err
	}
	args := make([]any, 0, schema.Len())
	for _, name := range schema.Names() {
		args = append(args, state[name])
	}
	obj, err := b.factory.construct(schema, args)
	if err != nil {
		return zero, err
	}
	for _, transformer := range b.transformers {
		if err := transformer(obj); err != nil {
			return zero, err
		}
	}
	return obj, nil
}
