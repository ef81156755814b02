package state

import (
	"context"
	"strings"
	"sync"

	factory "github.com/goliatone/go-factory"
	"github.com/goliatone/go-factory/layering"
)

// MemoryStore is an in-memory Store intended for tests and fixture files. It
// keys records by Ref.Identifier() and deep-copies attributes on the way in
// and out so callers cannot mutate stored states.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
}

type memoryRecord struct {
	attrs factory.Attributes
	meta  Meta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}}
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (factory.Attributes, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	return layering.Clone(record.attrs), cloneMeta(record.meta), true, nil
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, attrs factory.Attributes, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	s.records[key] = memoryRecord{attrs: layering.Clone(attrs), meta: cloneMeta(meta)}
	s.mu.Unlock()
	return cloneMeta(meta), nil
}

// Names returns the stored state names of factoryName, sorted.
func (s *MemoryStore) Names(factoryName string) []string {
	prefix := factoryName + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make(map[string]any)
	for key := range s.records {
		if name, ok := strings.CutPrefix(key, prefix); ok {
			names[name] = nil
		}
	}
	return layering.Keys(names)
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
