package factory

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrFunctionExists reports a second registration under the same name.
	ErrFunctionExists = errors.New("factory: function already registered")
	// ErrFunctionNotFound reports a call to an unknown function.
	ErrFunctionNotFound = errors.New("factory: function not registered")
)

// Function is a helper callable from expression attribute values.
type Function func(args ...any) (any, error)

// FunctionRegistry stores expression helpers keyed by lowercase name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: make(map[string]Function)}
}

// FixtureFunctions returns a registry holding the helpers every factory
// exposes to its default evaluator:
//
//	uuid()        random UUID string
//	pad(n, width) n rendered with leading zeros
func FixtureFunctions() *FunctionRegistry {
	r := NewFunctionRegistry()
	r.functions["uuid"] = func(args ...any) (any, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("factory: uuid takes no arguments, got %d", len(args))
		}
		return uuid.NewString(), nil
	}
	r.functions["pad"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("factory: pad expects 2 arguments, got %d", len(args))
		}
		width, ok := toInt(args[1])
		if !ok {
			return nil, fmt.Errorf("factory: pad width must be an integer, got %T", args[1])
		}
		return fmt.Sprintf("%0*v", width, args[0]), nil
	}
	return r
}

// Register stores fn under name. Names are case-insensitive.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	key := strings.ToLower(strings.TrimSpace(name))
	switch {
	case fn == nil:
		return fmt.Errorf("factory: function %q is nil", name)
	case key == "":
		return fmt.Errorf("factory: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("%w: %q", ErrFunctionExists, name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &FunctionRegistry{functions: maps.Clone(r.functions)}
}

// merged returns a copy of r with every function of other layered on top.
func (r *FunctionRegistry) merged(other *FunctionRegistry) *FunctionRegistry {
	out := r.Clone()
	if out == nil {
		out = NewFunctionRegistry()
	}
	if other == nil {
		return out
	}
	other.mu.RLock()
	defer other.mu.RUnlock()
	maps.Copy(out.functions, other.functions)
	return out
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.functions))
}

// WithFunctionRegistry exposes registry to the default expr evaluator, on
// top of the fixture functions.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *factoryConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for the default expr evaluator.
// A later registration under the same name is ignored.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *factoryConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	case uint:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}
