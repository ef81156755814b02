package factory

import (
	"fmt"
	"math"
	"reflect"

	"github.com/goliatone/go-factory/internal/hydrate"
)

// construction builds T from arguments ordered by schema.
type construction[T any] func(schema Schema, args []any) (T, error)

type reflectFunc struct {
	fn any
}

type jsonDecoding struct {
	strict bool
}

// WithConstructor builds objects by calling fn with the resolved attributes
// as positional arguments in schema order. T must match the factory type.
func WithConstructor[T any](fn Constructor[T]) Option {
	return func(cfg *factoryConfig) {
		cfg.constructor = fn
	}
}

// WithFunc builds objects by calling an ordinary Go function, such as
// NewUser(name string, age int) *User, with the resolved attributes as
// positional arguments in schema order. The function may return the object
// alone or the object and an error.
func WithFunc(fn any) Option {
	return func(cfg *factoryConfig) {
		cfg.constructor = reflectFunc{fn: fn}
	}
}

// WithJSONDecoding builds objects by decoding the resolved attributes as a
// JSON document. When strict is set, attributes without a matching field fail
// the decode.
func WithJSONDecoding(strict bool) Option {
	return func(cfg *factoryConfig) {
		cfg.constructor = jsonDecoding{strict: strict}
	}
}

func buildConstruction[T any](name string, constructor any) construction[T] {
	switch c := constructor.(type) {
	case nil:
		return defaultConstruction[T]()
	case Constructor[T]:
		return func(_ Schema, args []any) (T, error) {
			return c(args...)
		}
	case func(args ...any) (T, error):
		return func(_ Schema, args []any) (T, error) {
			return c(args...)
		}
	case reflectFunc:
		return funcConstruction[T](c.fn)
	case jsonDecoding:
		return jsonConstruction[T](name, c.strict)
	default:
		err := &ConstructionError{
			Target: reflect.TypeFor[T]().String(),
			Reason: fmt.Sprintf("constructor %T does not build this type", constructor),
		}
		return func(Schema, []any) (T, error) {
			var zero T
			return zero, err
		}
	}
}

func defaultConstruction[T any]() construction[T] {
	t := reflect.TypeFor[T]()
	switch {
	case t == reflect.TypeFor[Attributes]():
		return func(schema Schema, args []any) (T, error) {
			out := argumentMap(schema, args)
			return any(out).(T), nil
		}
	case t == reflect.TypeFor[map[string]any]():
		return func(schema Schema, args []any) (T, error) {
			out := map[string]any(argumentMap(schema, args))
			return any(out).(T), nil
		}
	}
	if _, ok := structType(t); ok {
		return structConstruction[T]()
	}
	err := fmt.Errorf("%w for %s", ErrNoConstructor, t)
	return func(Schema, []any) (T, error) {
		var zero T
		return zero, err
	}
}

func argumentMap(schema Schema, args []any) Attributes {
	out := make(Attributes, len(args))
	for i, name := range schema.Names() {
		if i < len(args) {
			out[name] = args[i]
		}
	}
	return out
}

// structConstruction hydrates struct T (or *T) field by field.
func structConstruction[T any]() construction[T] {
	t := reflect.TypeFor[T]()
	st, _ := structType(t)
	pointer := t.Kind() == reflect.Pointer
	fields := make(map[string]int, st.NumField())
	for i := 0; i < st.NumField(); i++ {
		if name, ok := attributeName(st.Field(i)); ok {
			fields[name] = i
		}
	}

	return func(schema Schema, args []any) (T, error) {
		var zero T
		target := reflect.New(st).Elem()
		for i, field := range schema.fields {
			index, ok := fields[field.Name]
			if !ok {
				return zero, &ConstructionError{Target: st.String(), Field: field.Name, Reason: "no matching struct field"}
			}
			dst := target.Field(index)
			value, ok := convertValue(args[i], dst.Type())
			if !ok {
				return zero, &ConstructionError{
					Target: st.String(),
					Field:  field.Name,
					Want:   dst.Type().String(),
					Got:    fmt.Sprintf("%T", args[i]),
					Reason: rangeReason(args[i], dst.Type()),
				}
			}
			dst.Set(value)
		}
		if pointer {
			return target.Addr().Interface().(T), nil
		}
		return target.Interface().(T), nil
	}
}

// funcConstruction calls fn positionally. Arity and argument types are checked
// before the call; an error returned by fn itself is passed through.
func funcConstruction[T any](fn any) construction[T] {
	target := reflect.TypeFor[T]()
	fv := reflect.ValueOf(fn)
	fail := func(reason string) construction[T] {
		err := &ConstructionError{Target: target.String(), Reason: reason}
		return func(Schema, []any) (T, error) {
			var zero T
			return zero, err
		}
	}
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return fail(fmt.Sprintf("constructor %T is not a function", fn))
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return fail("variadic constructors are not supported")
	}
	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == reflect.TypeFor[error]():
	default:
		return fail(fmt.Sprintf("constructor %s must return the object and optionally an error", ft))
	}
	if !ft.Out(0).AssignableTo(target) {
		return fail(fmt.Sprintf("constructor %s returns %s", ft, ft.Out(0)))
	}

	return func(schema Schema, args []any) (T, error) {
		var zero T
		if len(args) != ft.NumIn() {
			return zero, &ConstructionError{
				Target: target.String(),
				Reason: fmt.Sprintf("constructor %s expects %d arguments, got %d", ft, ft.NumIn(), len(args)),
			}
		}
		in := make([]reflect.Value, len(args))
		for i, arg := range args {
			value, ok := convertValue(arg, ft.In(i))
			if !ok {
				name := fmt.Sprintf("arg%d", i)
				if i < schema.Len() {
					name = schema.fields[i].Name
				}
				return zero, &ConstructionError{
					Target: target.String(),
					Field:  name,
					Want:   ft.In(i).String(),
					Got:    fmt.Sprintf("%T", arg),
					Reason: rangeReason(arg, ft.In(i)),
				}
			}
			in[i] = value
		}
		out := fv.Call(in)
		if len(out) == 2 && !out[1].IsNil() {
			return zero, out[1].Interface().(error)
		}
		var obj T
		reflect.ValueOf(&obj).Elem().Set(out[0])
		return obj, nil
	}
}

func jsonConstruction[T any](name string, strict bool) construction[T] {
	var opts []hydrate.DecoderOption[T]
	if strict {
		opts = append(opts, hydrate.WithDisallowUnknownFields[T]())
	}
	decoder := hydrate.NewDecoder(opts...)
	return func(schema Schema, args []any) (T, error) {
		return decoder.Decode(hydrate.Context{Factory: name}, argumentMap(schema, args))
	}
}

// convertValue adapts a resolved attribute to t. Beyond plain assignability it
// bridges pointers and values, converts between numeric kinds when the value
// fits the target, converts named string and bool types, and rebuilds slices and
// maps element by element.
func convertValue(value any, t reflect.Type) (reflect.Value, bool) {
	if value == nil {
		if nillable(t.Kind()) {
			return reflect.Zero(t), true
		}
		return reflect.Value{}, false
	}
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(t) {
		return v, true
	}
	if v.Kind() == reflect.Pointer && !v.IsNil() && v.Type().Elem().AssignableTo(t) {
		return v.Elem(), true
	}
	if t.Kind() == reflect.Pointer && v.Type().AssignableTo(t.Elem()) {
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(v)
		return ptr, true
	}

	switch {
	case isNumber(v.Kind()) && isNumber(t.Kind()):
		if !fitsNumber(v, t) {
			return reflect.Value{}, false
		}
		return v.Convert(t), true
	case v.Kind() == reflect.String && t.Kind() == reflect.String,
		v.Kind() == reflect.Bool && t.Kind() == reflect.Bool:
		return v.Convert(t), true
	case (v.Kind() == reflect.Slice || v.Kind() == reflect.Array) && t.Kind() == reflect.Slice:
		out := reflect.MakeSlice(t, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, ok := convertValue(v.Index(i).Interface(), t.Elem())
			if !ok {
				return reflect.Value{}, false
			}
			out.Index(i).Set(elem)
		}
		return out, true
	case v.Kind() == reflect.Map && t.Kind() == reflect.Map:
		out := reflect.MakeMapWithSize(t, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key, ok := convertValue(iter.Key().Interface(), t.Key())
			if !ok {
				return reflect.Value{}, false
			}
			elem, ok := convertValue(iter.Value().Interface(), t.Elem())
			if !ok {
				return reflect.Value{}, false
			}
			out.SetMapIndex(key, elem)
		}
		return out, true
	}
	return reflect.Value{}, false
}

// fitsNumber reports whether the numeric v converts to t without wrapping,
// truncating a fraction, or producing an infinity.
func fitsNumber(v reflect.Value, t reflect.Type) bool {
	target := reflect.Zero(t)
	switch {
	case isSigned(v.Kind()):
		i := v.Int()
		switch {
		case isSigned(t.Kind()):
			return !target.OverflowInt(i)
		case isUnsigned(t.Kind()):
			return i >= 0 && !target.OverflowUint(uint64(i))
		}
		return true
	case isUnsigned(v.Kind()):
		u := v.Uint()
		switch {
		case isSigned(t.Kind()):
			return u <= math.MaxInt64 && !target.OverflowInt(int64(u))
		case isUnsigned(t.Kind()):
			return !target.OverflowUint(u)
		}
		return true
	}

	f := v.Float()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return false
	}
	switch {
	case isFloat(t.Kind()):
		return !target.OverflowFloat(f)
	case f != math.Trunc(f):
		return false
	case isSigned(t.Kind()):
		return f >= math.MinInt64 && f < math.MaxInt64 && !target.OverflowInt(int64(f))
	default:
		return f >= 0 && f < math.MaxUint64 && !target.OverflowUint(uint64(f))
	}
}

func rangeReason(value any, t reflect.Type) string {
	if value == nil || !isNumber(reflect.TypeOf(value).Kind()) || !isNumber(t.Kind()) {
		return ""
	}
	return fmt.Sprintf("value %v out of range", value)
}

func isSigned(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	default:
		return false
	}
}

func isUnsigned(kind reflect.Kind) bool {
	switch kind {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	default:
		return false
	}
}

func isInteger(kind reflect.Kind) bool {
	return isSigned(kind) || isUnsigned(kind)
}

func isFloat(kind reflect.Kind) bool {
	return kind == reflect.Float32 || kind == reflect.Float64
}

func isNumber(kind reflect.Kind) bool {
	return isInteger(kind) || isFloat(kind)
}
