package factory

import (
	"context"
	"fmt"

	"github.com/goliatone/go-factory/layering"
)

// layer is one queued state contribution. The seed layer carries no
// contribution and stands for the definition itself.
type layer struct {
	label        string
	contribution any
	definition   bool
}

// layerObserver receives each contribution after its deferred values were
// evaluated and before it is merged.
type layerObserver func(index int, l layer, resolved Attributes)

// resolver owns the fold and the deep resolution shared by every builder of a
// factory.
type resolver struct {
	name string
	cfg  factoryConfig
}

// collapse folds layers left to right on top of definition, deep resolves the
// result and projects it onto the definition keys.
func (r *resolver) collapse(ctx context.Context, depth int, definition Attributes, layers []layer, observe layerObserver) (Attributes, error) {
	collapsed := definition.Clone()
	for i, l := range layers {
		contribution, err := r.contributionAttributes(i, l, definition, collapsed)
		if err != nil {
			return nil, err
		}
		resolved, err := r.evaluateDeferred(contribution, collapsed)
		if err != nil {
			return nil, err
		}
		if observe != nil {
			observe(i, l, resolved)
		}
		collapsed = layering.Merge(collapsed, resolved)
	}

	made, err := r.resolveAttributes(ctx, depth, collapsed)
	if err != nil {
		return nil, err
	}
	return layering.Project(made, definition.Keys()), nil
}

// contributionAttributes turns a layer into a mapping, invoking state
// functions with a copy of the current state.
func (r *resolver) contributionAttributes(index int, l layer, definition, collapsed Attributes) (Attributes, error) {
	if l.definition {
		return definition, nil
	}
	switch c := l.contribution.(type) {
	case Attributes:
		return c, nil
	case map[string]any:
		return Attributes(c), nil
	case StateFunc:
		return c(collapsed.Clone())
	case func(Attributes) (Attributes, error):
		return c(collapsed.Clone())
	case func(Attributes) Attributes:
		return c(collapsed.Clone()), nil
	case func(map[string]any) map[string]any:
		return Attributes(c(map[string]any(collapsed.Clone()))), nil
	default:
		return nil, &ContributionError{
			Index: index,
			Label: l.label,
			Type:  fmt.Sprintf("%T", l.contribution),
		}
	}
}

// evaluateDeferred resolves every deferred value and expression of one
// contribution against the state collapsed before that contribution.
func (r *resolver) evaluateDeferred(contribution, collapsed Attributes) (Attributes, error) {
	resolved := make(Attributes, len(contribution))
	var view Attributes
	for _, key := range contribution.Keys() {
		value := contribution[key]
		if !isDeferred(value) {
			resolved[key] = value
			continue
		}
		if view == nil {
			view = collapsed.Clone()
		}
		out, err := r.evaluateValue(key, value, view)
		if err != nil {
			return nil, err
		}
		resolved[key] = out
	}
	return resolved, nil
}

func (r *resolver) evaluateValue(key string, value any, state Attributes) (any, error) {
	switch v := value.(type) {
	case Deferred:
		return v(state)
	case func(Attributes) (any, error):
		return v(state)
	case func(Attributes) any:
		return v(state), nil
	case Expression:
		return r.evaluate(key, v, bindable(state))
	default:
		return value, nil
	}
}

func isDeferred(value any) bool {
	switch value.(type) {
	case Deferred, func(Attributes) (any, error), func(Attributes) any, Expression:
		return true
	default:
		return false
	}
}

// bindable drops values that are still pending so expressions only see
// concrete data.
func bindable(state Attributes) Attributes {
	out := make(Attributes, len(state))
	for key, value := range state {
		if isDeferred(value) {
			continue
		}
		out[key] = value
	}
	return out
}
