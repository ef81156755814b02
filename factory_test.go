package factory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCollapsePrecedenceFixture(t *testing.T) {
	type testCase struct {
		Name       string           `json:"name"`
		Definition map[string]any   `json:"definition"`
		States     []map[string]any `json:"states"`
		Overrides  []map[string]any `json:"overrides"`
		Expect     map[string]any   `json:"expect"`
	}
	type fixture struct {
		Description string     `json:"description"`
		Cases       []testCase `json:"cases"`
	}

	fx := loadFixture[fixture](t, "collapse_precedence.json")
	for _, tc := range fx.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			f := Define[map[string]any](constant(Attributes(tc.Definition)))
			b := f.New()
			for _, state := range tc.States {
				b.State(state)
			}
			overrides := make([]any, 0, len(tc.Overrides))
			for _, override := range tc.Overrides {
				overrides = append(overrides, override)
			}

			got, err := b.Make(overrides...)
			if err != nil {
				t.Fatalf("make: %v", err)
			}
			if diff := cmp.Diff(tc.Expect, got); diff != "" {
				t.Fatalf("collapsed state mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMakeIsDeterministic(t *testing.T) {
	f := Define[Attributes](constant(Attributes{"name": "ada", "age": 36}))
	b := f.New().State(Attributes{"age": 37})

	first, err := b.Make()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	second, err := b.Make()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated make differs (-first +second):\n%s", diff)
	}
}

func TestStateFunctionVisibilityWindow(t *testing.T) {
	f := Define[Attributes](constant(Attributes{"a": 0, "b": 2}))
	copyB := func(s Attributes) Attributes {
		return Attributes{"a": s["b"]}
	}

	after, err := f.New().State(Attributes{"b": 5}).State(copyB).Make()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if after["a"] != 5 {
		t.Fatalf("expected state function queued after b=5 to see 5, got %v", after["a"])
	}

	before, err := f.New().State(copyB).State(Attributes{"b": 5}).Make()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if before["a"] != 2 {
		t.Fatalf("expected state function queued before b=5 to see definition value 2, got %v", before["a"])
	}
	if before["b"] != 5 {
		t.Fatalf("expected b=5, got %v", before["b"])
	}
}

func TestDeferredValuesSeePreMergeState(t *testing.T) {
	f := Define[Attributes](constant(Attributes{"first": "Ada", "email": ""}))
	email := Lazy(func(s Attributes) any {
		return s.String("first") + "@example.com"
	})

	got, err := f.New().State(Attributes{"first": "Grace", "email": email}).Make()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if got["email"] != "Ada@example.com" {
		t.Fatalf("expected deferred value to see state before its own merge, got %v", got["email"])
	}
	if got["first"] != "Grace" {
		t.Fatalf("expected first overridden, got %v", got["first"])
	}
}

func TestDefinitionDeferredValues(t *testing.T) {
	f := Define[Attributes](func() Attributes {
		return Attributes{
			"first": "Ada",
			"last":  "Lovelace",
			"full": func(s Attributes) any {
				return s.String("first") + " " + s.String("last")
			},
			"initials": func(s Attributes) (any, error) {
				return s.String("first")[:1] + s.String("last")[:1], nil
			},
		}
	})

	got, err := f.Make()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	want := Attributes{"first": "Ada", "last": "Lovelace", "full": "Ada Lovelace", "initials": "AL"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected attributes (-want +got):\n%s", diff)
	}
}

func TestOverridesAreCallLocal(t *testing.T) {
	f := Define[Attributes](constant(Attributes{"a": 1}))
	b := f.New()

	got, err := b.Make(Attributes{"a": 99})
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if got["a"] != 99 {
		t.Fatalf("expected override applied, got %v", got["a"])
	}

	again, err := b.Make()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if again["a"] != 1 {
		t.Fatalf("expected override not to leak into later makes, got %v", again["a"])
	}
	if b.Len() != 1 {
		t.Fatalf("expected builder to keep only the definition layer, got %d", b.Len())
	}
}

func TestPersistentOverridesStayOnBuilder(t *testing.T) {
	f := Define[Attributes](constant(Attributes{"a": 1}), WithPersistentOverrides())
	b := f.New()

	if _, err := b.Make(Attributes{"a": 99}); err != nil {
		t.Fatalf("make: %v", err)
	}
	again, err := b.Make()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if again["a"] != 99 {
		t.Fatalf("expected persistent override, got %v", again["a"])
	}

	raw, err := b.Raw(Attributes{"a": 5})
	if err != nil {
		t.Fatalf("raw: %v", err)
	}
	if raw["a"] != 5 {
		t.Fatalf("expected raw override, got %v", raw["a"])
	}
	if b.Len() != 2 {
		t.Fatalf("expected raw overrides not to persist, got %d layers", b.Len())
	}
}

func TestNilOverridesAreSkipped(t *testing.T) {
	f := Define[Attributes](constant(Attributes{"a": 1}))
	got, err := f.New().Make(nil, Attributes{"a": 2}, nil)
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if got["a"] != 2 {
		t.Fatalf("expected a=2, got %v", got["a"])
	}
}

func TestMalformedContributionFailsAtMake(t *testing.T) {
	f := Define[Attributes](constant(Attributes{"a": 1}))
	b := f.New().State(42)

	_, err := b.Make()
	if !errors.Is(err, ErrContributionType) {
		t.Fatalf("expected ErrContributionType, got %v", err)
	}
	var contribErr *ContributionError
	if !errors.As(err, &contribErr) {
		t.Fatalf("expected ContributionError, got %T", err)
	}
	if contribErr.Index != 1 || contribErr.Label != "state#1" || contribErr.Type != "int" {
		t.Fatalf("unexpected contribution error: %+v", contribErr)
	}
}

func TestStateFunctionErrorPropagatesUnchanged(t *testing.T) {
	boom := errors.New("boom")
	f := Define[Attributes](constant(Attributes{"a": 1}))
	_, err := f.New().State(StateFunc(func(Attributes) (Attributes, error) {
		return nil, boom
	})).Make()
	if err != boom {
		t.Fatalf("expected state function error unchanged, got %v", err)
	}
}

func TestDeferredErrorPropagatesUnchanged(t *testing.T) {
	boom := errors.New("deferred failed")
	constructed := 0
	transformed := 0
	f := Define[Attributes](constant(Attributes{"a": 1}), WithConstructor(func(args ...any) (Attributes, error) {
		constructed++
		return Attributes{"a": args[0]}, nil
	}))
	got, err := f.New().State(Attributes{"a": Deferred(func(Attributes) (any, error) {
		return nil, boom
	})}).After(func(Attributes) error {
		transformed++
		return nil
	}).Make()
	if err != boom {
		t.Fatalf("expected deferred error unchanged, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected zero value on failure, got %v", got)
	}
	if constructed != 0 || transformed != 0 {
		t.Fatalf("expected no construction after a failed collapse, constructor=%d transformers=%d", constructed, transformed)
	}
}

func TestNestedBuilderIsMaterialized(t *testing.T) {
	addresses := addressFactory()
	accounts := Define[*account](func() Attributes {
		return Attributes{
			"name":    "ada",
			"address": addresses.New().State(Attributes{"city": "Paris"}),
		}
	})

	got, err := accounts.Make()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	want := &address{City: "Paris", Country: "UK"}
	if diff := cmp.Diff(want, got.Address); diff != "" {
		t.Fatalf("nested builder mismatch (-want +got):\n%s", diff)
	}
}

func TestNestedFactoryAndForeignMaker(t *testing.T) {
	addresses := addressFactory()
	f := Define[Attributes](constant(Attributes{
		"home":  addresses,
		"label": makerFunc(func(context.Context) (any, error) { return "made", nil }),
	}))

	got, err := f.Make()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if home, ok := got["home"].(*address); !ok || home.City != "London" {
		t.Fatalf("expected factory value to be made, got %#v", got["home"])
	}
	if got["label"] != "made" {
		t.Fatalf("expected maker value to be made, got %#v", got["label"])
	}
}

type lazyList struct {
	items []any
}

func (l *lazyList) Map(fn func(any) (any, error)) (any, error) {
	out := make([]any, len(l.items))
	for i, item := range l.items {
		resolved, err := fn(item)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

func TestTypedNilNestedValuesResolveToNil(t *testing.T) {
	f := Define[Attributes](constant(Attributes{
		"parent":   (*Builder[Attributes])(nil),
		"home":     (*Factory[*address])(nil),
		"extras":   (*lazyList)(nil),
		"siblings": []*Builder[Attributes]{nil},
	}))

	got, err := f.Make()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	for _, key := range []string{"parent", "home", "extras"} {
		if got[key] != nil {
			t.Fatalf("expected %s to resolve to nil, got %#v", key, got[key])
		}
	}
	if siblings, ok := got["siblings"].([]*Builder[Attributes]); !ok || len(siblings) != 1 || siblings[0] != nil {
		t.Fatalf("expected nil sibling preserved, got %#v", got["siblings"])
	}

	accounts := Define[*account](constant(Attributes{
		"name":    "ada",
		"address": (*Builder[*address])(nil),
	}))
	acc, err := accounts.Make()
	if err != nil {
		t.Fatalf("make account: %v", err)
	}
	if acc.Address != nil {
		t.Fatalf("expected optional address left nil, got %+v", acc.Address)
	}
}

func TestNestedBuilderErrorPropagatesUnchanged(t *testing.T) {
	boom := errors.New("nested failed")
	inner := Define[Attributes](constant(Attributes{"x": 1}))
	outer := Define[Attributes](constant(Attributes{
		"child": inner.New().After(func(Attributes) error { return boom }),
	}))

	_, err := outer.Make()
	if err != boom {
		t.Fatalf("expected nested error unchanged, got %v", err)
	}
}

func TestContainersOfBuildersResolveInOrder(t *testing.T) {
	seq := Sequence(func(n int) any { return n })
	items := Define[Attributes](func() Attributes {
		return Attributes{"n": seq}
	})
	f := Define[Attributes](constant(Attributes{
		"list":  []*Builder[Attributes]{items.New(), items.New(), items.New()},
		"mixed": []any{"literal", items.New()},
		"index": map[string]any{"only": items.New()},
		"plain": []int{1, 2, 3},
	}))

	got, err := f.Make()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	// Attributes resolve in sorted key order: index, list, mixed.
	want := Attributes{
		"index": map[string]any{"only": Attributes{"n": 1}},
		"list":  []any{Attributes{"n": 2}, Attributes{"n": 3}, Attributes{"n": 4}},
		"mixed": []any{"literal", Attributes{"n": 5}},
		"plain": []int{1, 2, 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("container resolution mismatch (-want +got):\n%s", diff)
	}
}

func TestMapperCapabilityAndCollectionMapper(t *testing.T) {
	items := Define[Attributes](constant(Attributes{"ok": true}))
	f := Define[Attributes](constant(Attributes{
		"bag":  bag{items.New(), "x"},
		"ring": ring{values: []any{items.New()}},
	}), WithCollectionMapper(func(value any, fn func(any) (any, error)) (any, bool, error) {
		r, ok := value.(ring)
		if !ok {
			return nil, false, nil
		}
		out := ring{values: make([]any, len(r.values))}
		for i, v := range r.values {
			resolved, err := fn(v)
			if err != nil {
				return nil, true, err
			}
			out.values[i] = resolved
		}
		return out, true, nil
	}))

	got, err := f.Make()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if diff := cmp.Diff(bag{Attributes{"ok": true}, "x"}, got["bag"]); diff != "" {
		t.Fatalf("mapper mismatch (-want +got):\n%s", diff)
	}
	r, ok := got["ring"].(ring)
	if !ok || len(r.values) != 1 {
		t.Fatalf("expected ring to be mapped, got %#v", got["ring"])
	}
	if diff := cmp.Diff(Attributes{"ok": true}, r.values[0]); diff != "" {
		t.Fatalf("collection mapper mismatch (-want +got):\n%s", diff)
	}
}

func TestMapperErrorPropagatesUnchanged(t *testing.T) {
	boom := errors.New("mapper failed")
	f := Define[Attributes](constant(Attributes{"bad": failingMapper{err: boom}}))
	if _, err := f.Make(); err != boom {
		t.Fatalf("expected mapper error unchanged, got %v", err)
	}
}

func TestDepthGuardStopsCycles(t *testing.T) {
	var node *Factory[Attributes]
	node = Define[Attributes](func() Attributes {
		return Attributes{"child": node.New()}
	}, WithName("node"), WithMaxDepth(4))

	_, err := node.Make()
	if !errors.Is(err, ErrMaxDepth) {
		t.Fatalf("expected ErrMaxDepth, got %v", err)
	}
}

func TestDepthGuardAllowsBoundedNesting(t *testing.T) {
	leaf := Define[Attributes](constant(Attributes{"leaf": true}))
	mid := Define[Attributes](constant(Attributes{"next": leaf.New()}))
	root := Define[Attributes](constant(Attributes{"next": mid.New()}), WithMaxDepth(2))

	got, err := root.Make()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	want := Attributes{"next": Attributes{"next": Attributes{"leaf": true}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("nested result mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformersRunInOrderAndAbortOnError(t *testing.T) {
	f := Define[*account](constant(Attributes{"name": "ada"}))
	var order []string
	got, err := f.New().
		After(func(a *account) error { order = append(order, "first"); a.Name += "-1"; return nil }).
		After(func(a *account) error { order = append(order, "second"); a.Name += "-2"; return nil }).
		Make()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if diff := cmp.Diff([]string{"first", "second"}, order); diff != "" {
		t.Fatalf("transformer order mismatch (-want +got):\n%s", diff)
	}
	if got.Name != "ada-1-2" {
		t.Fatalf("expected transformers applied, got %q", got.Name)
	}

	boom := errors.New("transform failed")
	order = nil
	failed, err := f.New().
		After(func(*account) error { order = append(order, "first"); return boom }).
		After(func(*account) error { order = append(order, "second"); return nil }).
		Make()
	if err != boom {
		t.Fatalf("expected transformer error unchanged, got %v", err)
	}
	if failed != nil {
		t.Fatalf("expected zero value on failure, got %+v", failed)
	}
	if len(order) != 1 {
		t.Fatalf("expected later transformers skipped, ran %v", order)
	}
}

func TestCloneForksBuilder(t *testing.T) {
	f := Define[Attributes](constant(Attributes{"a": 1, "b": 1}))
	base := f.New().State(Attributes{"a": 2})
	fork := base.Clone().State(Attributes{"b": 3})

	baseOut, err := base.Make()
	if err != nil {
		t.Fatalf("make base: %v", err)
	}
	forkOut, err := fork.Make()
	if err != nil {
		t.Fatalf("make fork: %v", err)
	}
	if diff := cmp.Diff(Attributes{"a": 2, "b": 1}, baseOut); diff != "" {
		t.Fatalf("base mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Attributes{"a": 2, "b": 3}, forkOut); diff != "" {
		t.Fatalf("fork mismatch (-want +got):\n%s", diff)
	}
}

func TestMakeManyAndSequence(t *testing.T) {
	email := Sequence(func(n int) any { return fmt.Sprintf("user%d@example.com", n) })
	f := Define[*account](func() Attributes {
		return Attributes{"email": email}
	})

	got, err := f.New().MakeMany(3)
	if err != nil {
		t.Fatalf("make many: %v", err)
	}
	emails := make([]string, len(got))
	for i, a := range got {
		emails[i] = a.Email
	}
	want := []string{"user1@example.com", "user2@example.com", "user3@example.com"}
	if diff := cmp.Diff(want, emails); diff != "" {
		t.Fatalf("sequence mismatch (-want +got):\n%s", diff)
	}

	none, err := f.New().MakeMany(0)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty result, got %v, %v", none, err)
	}
}

func TestRawReturnsProjectedState(t *testing.T) {
	f := Define[*account](constant(Attributes{"name": "ada", "address": addressFactory()}))
	raw, err := f.New().Raw(Attributes{"extra": true})
	if err != nil {
		t.Fatalf("raw: %v", err)
	}
	if _, ok := raw["extra"]; ok {
		t.Fatalf("expected extra key to be projected away: %v", raw)
	}
	if _, ok := raw["address"].(*address); !ok {
		t.Fatalf("expected nested factory made in raw state, got %T", raw["address"])
	}
}

func TestNilDefinitionMakesEmptyAttributes(t *testing.T) {
	got, err := Define[Attributes](nil).Make(Attributes{"ignored": 1})
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty attributes, got %v", got)
	}
}

func TestDefaultNameAndUUID(t *testing.T) {
	if name := Define[*account](nil).Name(); name != "account" {
		t.Fatalf("expected default name account, got %q", name)
	}
	if name := Define[Attributes](nil, WithName(" users ")).Name(); name != "users" {
		t.Fatalf("expected trimmed name, got %q", name)
	}

	f := Define[Attributes](constant(Attributes{"id": UUID()}))
	first, _ := f.Make()
	second, _ := f.Make()
	if first["id"] == second["id"] {
		t.Fatalf("expected fresh uuid per make, got %v twice", first["id"])
	}
	if id, _ := first["id"].(string); len(id) != 36 {
		t.Fatalf("expected uuid string, got %v", first["id"])
	}
}

func TestWithConfigAppliesSettings(t *testing.T) {
	f := Define[Attributes](constant(Attributes{"a": 1}), WithConfig(Config{
		Name:                "configured",
		MaxDepth:            3,
		PersistentOverrides: true,
	}))
	if f.Name() != "configured" {
		t.Fatalf("expected configured name, got %q", f.Name())
	}
	if f.cfg.maxDepth != 3 || !f.cfg.persistentOverrides {
		t.Fatalf("expected config applied, got %+v", f.cfg)
	}
}

type makerFunc func(context.Context) (any, error)

func (fn makerFunc) MakeAny(ctx context.Context) (any, error) {
	return fn(ctx)
}

type bag []any

func (b bag) Map(fn func(any) (any, error)) (any, error) {
	out := make(bag, len(b))
	for i, v := range b {
		resolved, err := fn(v)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

type ring struct {
	values []any
}

type failingMapper struct {
	err error
}

func (m failingMapper) Map(func(any) (any, error)) (any, error) {
	return nil, m.err
}
