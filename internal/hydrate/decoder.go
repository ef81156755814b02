// Package hydrate decodes resolved attribute maps into typed values through
// encoding/json, so json tags and custom UnmarshalJSON methods apply.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context identifies the factory whose attributes are being decoded.
type Context struct {
	Factory string
}

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts attribute maps into values of T.
type Decoder[T any] struct {
	configureDec []func(*json.Decoder)
}

// WithDisallowUnknownFields invokes json.Decoder.DisallowUnknownFields.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

// NewDecoder constructs a Decoder.
func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts attributes into T. A nil map decodes as an empty object.
func (d *Decoder[T]) Decode(ctx Context, attributes map[string]any) (T, error) {
	var zero T
	if attributes == nil {
		attributes = map[string]any{}
	}

	buffer, err := json.Marshal(attributes)
	if err != nil {
		return zero, fmt.Errorf("hydrate: marshal attributes for factory %q: %w", ctx.Factory, err)
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	for _, configure := range d.configureDec {
		if configure != nil {
			configure(decoder)
		}
	}

	var result T
	if err := decoder.Decode(&result); err != nil {
		return zero, fmt.Errorf("hydrate: decode factory %q: %w", ctx.Factory, err)
	}
	return result, nil
}
