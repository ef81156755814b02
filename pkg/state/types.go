package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	factory "github.com/goliatone/go-factory"
)

// ErrNotFound reports a named state missing from the store.
var ErrNotFound = errors.New("state: named state not found")

// ErrETagMismatch reports a concurrent modification detected by Mutate.
var ErrETagMismatch = errors.New("state: etag mismatch")

// Ref identifies one named state of one factory.
type Ref struct {
	Factory string
	Name    string
}

// Meta is storage-owned metadata used for trace labels and concurrency
// control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty" yaml:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty" yaml:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Store loads and saves the attributes of a single named state.
type Store interface {
	Load(ctx context.Context, ref Ref) (attrs factory.Attributes, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, attrs factory.Attributes, meta Meta) (Meta, error)
}

// Named is a loaded state ready to be queued on a builder.
type Named struct {
	Ref        Ref
	Attributes factory.Attributes
	Meta       Meta
}

// Label is the layer label used when the state is queued on a builder.
func (n Named) Label() string {
	if n.Meta.SnapshotID != "" {
		return "state:" + n.Ref.Name + "@" + n.Meta.SnapshotID
	}
	return "state:" + n.Ref.Name
}

// Resolver loads named states from a Store.
type Resolver struct {
	Store Store
}

// Mutator edits the attributes of a named state in place.
type Mutator func(factory.Attributes) error

// Identifier returns the canonical storage key of the reference.
func (r Ref) Identifier() (string, error) {
	name := strings.TrimSpace(r.Name)
	factoryName := strings.TrimSpace(r.Factory)
	if factoryName == "" {
		return "", fmt.Errorf("state: factory is required")
	}
	if name == "" {
		return "", fmt.Errorf("state: state name is required")
	}
	if strings.Contains(factoryName, "/") || strings.Contains(name, "/") {
		return "", fmt.Errorf("state: %q/%q must not contain '/'", factoryName, name)
	}
	return factoryName + "/" + name, nil
}

// Contributions loads the named states of factoryName in the given order.
// A missing state fails with ErrNotFound.
func (r Resolver) Contributions(ctx context.Context, factoryName string, names ...string) ([]Named, error) {
	if r.Store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	if factoryName == "" {
		return nil, fmt.Errorf("state: factory is required")
	}

	out := make([]Named, 0, len(names))
	for _, name := range names {
		ref := Ref{Factory: factoryName, Name: name}
		attrs, meta, ok, err := r.Store.Load(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("state: load %q for factory %q: %w", name, factoryName, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, factoryName, name)
		}
		out = append(out, Named{Ref: ref, Attributes: attrs, Meta: meta})
	}
	return out, nil
}

// Apply queues the named states on b in order, using the builder's factory
// name to look them up.
func Apply[T any](ctx context.Context, r Resolver, b *factory.Builder[T], names ...string) (*factory.Builder[T], error) {
	if b == nil {
		return nil, fmt.Errorf("state: builder is required")
	}
	named, err := r.Contributions(ctx, b.Factory().Name(), names...)
	if err != nil {
		return nil, err
	}
	for _, n := range named {
		b.StateAs(n.Label(), n.Attributes)
	}
	return b, nil
}

// Mutate loads one named state, applies fn, then saves it. A non-empty
// meta.ETag must match the stored ETag.
func (r Resolver) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator) (factory.Attributes, Meta, error) {
	if r.Store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return nil, Meta{}, err
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("state: mutator is required")
	}

	attrs, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %q for factory %q: %w", ref.Name, ref.Factory, err)
	}
	if !ok {
		attrs = factory.Attributes{}
		loadedMeta = Meta{}
	}
	if attrs == nil {
		attrs = factory.Attributes{}
	}

	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return nil, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	if err := fn(attrs); err != nil {
		return nil, loadedMeta, err
	}

	savedMeta, err := r.Store.Save(ctx, ref, attrs, mergeMeta(loadedMeta, meta))
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: save %q for factory %q: %w", ref.Name, ref.Factory, err)
	}
	return attrs, savedMeta, nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
