package factory

import "sync"

// ProgramCache stores compiled expression programs. Keys are prefixed with the
// engine name so evaluators can share one cache.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// WithProgramCache shares cache with the default expr evaluator.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *factoryConfig) {
		cfg.programCache = cache
	}
}

// MemoryProgramCache is a ProgramCache backed by a sync.Map.
type MemoryProgramCache struct {
	programs sync.Map
}

// NewMemoryProgramCache constructs an empty cache.
func NewMemoryProgramCache() *MemoryProgramCache {
	return &MemoryProgramCache{}
}

// Get implements ProgramCache.
func (c *MemoryProgramCache) Get(key string) (any, bool) {
	return c.programs.Load(key)
}

// Set implements ProgramCache.
func (c *MemoryProgramCache) Set(key string, value any) {
	c.programs.Store(key, value)
}

func cacheKey(engine, expression string) string {
	return engine + ":" + expression
}
