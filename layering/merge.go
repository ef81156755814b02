// Package layering folds ordered attribute maps into a single map and copies
// plain attribute data without sharing containers between layers.
package layering

import (
	"reflect"
	"sort"
)

// Merge overlays layers onto base in order, returning a new map. Later layers
// win per key and values are replaced, never merged recursively.
func Merge[M ~map[string]V, V any](base M, layers ...M) M {
	size := len(base)
	for _, layer := range layers {
		size += len(layer)
	}
	merged := make(M, size)
	for key, value := range base {
		merged[key] = value
	}
	for _, layer := range layers {
		for key, value := range layer {
			merged[key] = value
		}
	}
	return merged
}

// Project returns a new map containing only keys. Keys absent from m are not
// added.
func Project[M ~map[string]V, V any](m M, keys []string) M {
	projected := make(M, len(keys))
	for _, key := range keys {
		if value, ok := m[key]; ok {
			projected[key] = value
		}
	}
	return projected
}

// Copy returns a shallow copy of m. A nil map copies to nil.
func Copy[M ~map[string]V, V any](m M) M {
	if m == nil {
		return nil
	}
	out := make(M, len(m))
	for key, value := range m {
		out[key] = value
	}
	return out
}

// Keys returns the keys of m sorted alphabetically.
func Keys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clone deep copies the maps, slices and arrays reachable from value. Pointers,
// funcs, channels and structs are opaque and shared with the original, so
// builders and other handles stored as attribute values keep their identity.
func Clone[T any](value T) T {
	cloned := cloneValue(reflect.ValueOf(value))
	if !cloned.IsValid() {
		var zero T
		return zero
	}
	return cloned.Interface().(T)
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := cloneValue(v.Elem())
		out := reflect.New(v.Type()).Elem()
		out.Set(elem)
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	default:
		return v
	}
}
