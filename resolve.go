package factory

import (
	"context"
	"reflect"
)

var (
	makerType      = reflect.TypeFor[Maker]()
	depthMakerType = reflect.TypeFor[depthMaker]()
	mapperType     = reflect.TypeFor[Mapper]()
)

func (r *resolver) resolveAttributes(ctx context.Context, depth int, collapsed Attributes) (Attributes, error) {
	made := make(Attributes, len(collapsed))
	for _, key := range collapsed.Keys() {
		value, err := r.resolveValue(ctx, depth, collapsed[key])
		if err != nil {
			return nil, err
		}
		made[key] = value
	}
	return made, nil
}

// resolveValue materializes nested builders and walks containers. Errors from
// nested builders and mappers are returned unchanged.
func (r *resolver) resolveValue(ctx context.Context, depth int, value any) (any, error) {
	switch value.(type) {
	case nil:
		return nil, nil
	case depthMaker, Maker, Mapper:
		if isNilPointer(value) {
			return nil, nil
		}
	}

	switch v := value.(type) {
	case depthMaker:
		next := depth + 1
		if next > r.cfg.maxDepth {
			return nil, maxDepthError(r.name, next)
		}
		return v.makeAtDepth(ctx, next)
	case Maker:
		return v.MakeAny(ctx)
	case Mapper:
		return v.Map(r.elementResolver(ctx, depth))
	}

	for _, mapper := range r.cfg.mappers {
		out, handled, err := mapper(value, r.elementResolver(ctx, depth))
		if err != nil {
			return nil, err
		}
		if handled {
			return out, nil
		}
	}

	return r.resolveContainer(ctx, depth, reflect.ValueOf(value))
}

func (r *resolver) elementResolver(ctx context.Context, depth int) func(any) (any, error) {
	return func(element any) (any, error) {
		return r.resolveValue(ctx, depth, element)
	}
}

func (r *resolver) resolveContainer(ctx context.Context, depth int, rv reflect.Value) (any, error) {
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() || !mayHoldMakers(rv.Type().Elem()) {
			return rv.Interface(), nil
		}
		out, err := r.resolveElements(ctx, depth, rv)
		if err != nil {
			return nil, err
		}
		return retypeSlice(rv.Type(), out), nil
	case reflect.Array:
		if !mayHoldMakers(rv.Type().Elem()) {
			return rv.Interface(), nil
		}
		out, err := r.resolveElements(ctx, depth, rv)
		if err != nil {
			return nil, err
		}
		return retypeArray(rv.Type(), out), nil
	case reflect.Map:
		if rv.IsNil() || !mayHoldMakers(rv.Type().Elem()) {
			return rv.Interface(), nil
		}
		return r.resolveMap(ctx, depth, rv)
	default:
		return rv.Interface(), nil
	}
}

func (r *resolver) resolveElements(ctx context.Context, depth int, rv reflect.Value) ([]any, error) {
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		value, err := r.resolveValue(ctx, depth, rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out[i] = value
	}
	return out, nil
}

func (r *resolver) resolveMap(ctx context.Context, depth int, rv reflect.Value) (any, error) {
	keys := rv.MapKeys()
	values := make([]any, len(keys))
	for i, key := range keys {
		value, err := r.resolveValue(ctx, depth, rv.MapIndex(key).Interface())
		if err != nil {
			return nil, err
		}
		values[i] = value
	}

	elem := rv.Type().Elem()
	if allAssignable(values, elem) {
		out := reflect.MakeMapWithSize(rv.Type(), len(keys))
		for i, key := range keys {
			out.SetMapIndex(key, valueFor(values[i], elem))
		}
		return out.Interface(), nil
	}
	out := reflect.MakeMapWithSize(reflect.MapOf(rv.Type().Key(), anyType), len(keys))
	for i, key := range keys {
		out.SetMapIndex(key, valueFor(values[i], anyType))
	}
	return out.Interface(), nil
}

var anyType = reflect.TypeFor[any]()

// mayHoldMakers reports whether values of t can be, or contain, something the
// resolver would replace.
func mayHoldMakers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Slice, reflect.Array, reflect.Map:
		return mayHoldMakers(t.Elem())
	}
	return t.Implements(depthMakerType) || t.Implements(makerType) || t.Implements(mapperType)
}

// retypeSlice keeps the original slice type when every resolved element still
// fits it and falls back to []any otherwise, e.g. []*Builder[User] becomes
// []any holding users.
func retypeSlice(t reflect.Type, values []any) any {
	elem := t.Elem()
	if !allAssignable(values, elem) {
		return values
	}
	out := reflect.MakeSlice(t, len(values), len(values))
	for i, value := range values {
		out.Index(i).Set(valueFor(value, elem))
	}
	return out.Interface()
}

func retypeArray(t reflect.Type, values []any) any {
	elem := t.Elem()
	if !allAssignable(values, elem) {
		return values
	}
	out := reflect.New(t).Elem()
	for i, value := range values {
		out.Index(i).Set(valueFor(value, elem))
	}
	return out.Interface()
}

func allAssignable(values []any, t reflect.Type) bool {
	for _, value := range values {
		if value == nil {
			if !nillable(t.Kind()) {
				return false
			}
			continue
		}
		if !reflect.TypeOf(value).AssignableTo(t) {
			return false
		}
	}
	return true
}

func valueFor(value any, t reflect.Type) reflect.Value {
	if value == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(value)
}

// isNilPointer reports a typed nil pointer, such as an unset optional
// nested builder.
func isNilPointer(value any) bool {
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func nillable(kind reflect.Kind) bool {
	switch kind {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}
