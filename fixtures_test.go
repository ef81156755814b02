package factory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func loadFixture[T any](t *testing.T, name string) T {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("unable to resolve caller for fixture %q", name)
	}
	path := filepath.Join(filepath.Dir(file), "testdata", name)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %q: %v", path, err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("failed to unmarshal fixture %q: %v", path, err)
	}
	return out
}

type account struct {
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Age     int      `json:"age"`
	Admin   bool     `json:"admin"`
	Tags    []string `json:"tags"`
	Address *address `json:"address"`
}

type address struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

func addressFactory() *Factory[*address] {
	return Define[*address](func() Attributes {
		return Attributes{"city": "London", "country": "UK"}
	})
}

func constant(values Attributes) DefinitionFunc {
	return func() Attributes {
		return values.Clone()
	}
}
