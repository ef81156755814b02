package factory

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Field names one constructor argument. Type is optional and only used for
// descriptors and argument checks.
type Field struct {
	Name string
	Type reflect.Type
}

// FieldOf builds a Field typed as V.
func FieldOf[V any](name string) Field {
	return Field{Name: name, Type: reflect.TypeFor[V]()}
}

// Schema is the ordered list of attributes passed to a constructor.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema from fields, dropping unnamed and repeated names.
func NewSchema(fields ...Field) Schema {
	schema := Schema{index: make(map[string]int, len(fields))}
	for _, field := range fields {
		field.Name = strings.TrimSpace(field.Name)
		if field.Name == "" {
			continue
		}
		if _, exists := schema.index[field.Name]; exists {
			continue
		}
		schema.index[field.Name] = len(schema.fields)
		schema.fields = append(schema.fields, field)
	}
	return schema
}

// SchemaOf derives a schema from the exported fields of struct T (or the
// struct T points to) in declaration order. Attribute names come from the
// `factory` tag, then the `json` tag, then the field name. A tag of "-"
// skips the field.
func SchemaOf[T any]() Schema {
	return schemaOfType(reflect.TypeFor[T]())
}

func schemaOfType(t reflect.Type) Schema {
	st, ok := structType(t)
	if !ok {
		return Schema{}
	}
	fields := make([]Field, 0, st.NumField())
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		name, ok := attributeName(sf)
		if !ok {
			continue
		}
		fields = append(fields, Field{Name: name, Type: sf.Type})
	}
	return NewSchema(fields...)
}

// Len returns the number of fields.
func (s Schema) Len() int {
	return len(s.fields)
}

// IsZero reports whether the schema declares no fields.
func (s Schema) IsZero() bool {
	return len(s.fields) == 0
}

// Fields returns a copy of the ordered fields.
func (s Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the ordered field names.
func (s Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, field := range s.fields {
		names[i] = field.Name
	}
	return names
}

// Has reports whether name is declared.
func (s Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Field returns the field declared under name.
func (s Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// FieldDescriptor describes a schema position and its declared type.
type FieldDescriptor struct {
	Position int    `json:"position"`
	Path     string `json:"path"`
	Type     string `json:"type"`
}

// Descriptors flattens the schema into descriptors, one per field.
func (s Schema) Descriptors() []FieldDescriptor {
	out := make([]FieldDescriptor, len(s.fields))
	for i, field := range s.fields {
		out[i] = FieldDescriptor{
			Position: i,
			Path:     field.Name,
			Type:     typeName(field.Type),
		}
	}
	return out
}

// order arranges the definition keys into constructor order. An explicit
// schema must match the keys exactly; a derived schema only contributes
// ordering and any remaining keys follow alphabetically.
func (s Schema) order(keys []string, explicit bool) (Schema, error) {
	if explicit {
		var missing, unexpected []string
		present := make(map[string]struct{}, len(keys))
		for _, key := range keys {
			present[key] = struct{}{}
			if !s.Has(key) {
				unexpected = append(unexpected, key)
			}
		}
		for _, field := range s.fields {
			if _, ok := present[field.Name]; !ok {
				missing = append(missing, field.Name)
			}
		}
		if len(missing) > 0 || len(unexpected) > 0 {
			sort.Strings(unexpected)
			return Schema{}, fmt.Errorf("%w: missing %v, unexpected %v", ErrSchemaMismatch, missing, unexpected)
		}
		return s, nil
	}

	present := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		present[key] = struct{}{}
	}
	fields := make([]Field, 0, len(keys))
	for _, field := range s.fields {
		if _, ok := present[field.Name]; ok {
			fields = append(fields, field)
			delete(present, field.Name)
		}
	}
	rest := make([]string, 0, len(present))
	for key := range present {
		rest = append(rest, key)
	}
	sort.Strings(rest)
	for _, key := range rest {
		fields = append(fields, Field{Name: key})
	}
	return NewSchema(fields...), nil
}

func attributeName(sf reflect.StructField) (string, bool) {
	if !sf.IsExported() || sf.Anonymous {
		return "", false
	}
	if tag, ok := sf.Tag.Lookup("factory"); ok {
		name := strings.TrimSpace(strings.Split(tag, ",")[0])
		if name == "-" {
			return "", false
		}
		if name != "" {
			return name, true
		}
	}
	if tag, ok := sf.Tag.Lookup("json"); ok {
		name := strings.TrimSpace(strings.Split(tag, ",")[0])
		if name == "-" {
			return "", false
		}
		if name != "" {
			return name, true
		}
	}
	return sf.Name, true
}

func structType(t reflect.Type) (reflect.Type, bool) {
	if t == nil {
		return nil, false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, false
	}
	return t, true
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "any"
	}
	return t.String()
}
