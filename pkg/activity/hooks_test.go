package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	meta := map[string]any{"k": "v"}
	evt := Event{
		Verb:       " factory.made ",
		ActorID:    " actor ",
		TenantID:   " tenant ",
		ObjectType: " user ",
		ObjectID:   " 42 ",
		Channel:    " factory ",
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != "factory.made" || got.ObjectType != "user" || got.ObjectID != "42" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "actor" || got.TenantID != "tenant" || got.Channel != "factory" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	got.Metadata["k"] = "changed"
	if evt.Metadata["k"] != "v" {
		t.Fatalf("expected original metadata untouched: %+v", evt.Metadata)
	}
}

func TestHooksNotifyShortCircuitsMissingRequired(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	if err := hooks.Notify(context.Background(), Event{Verb: VerbMade, ObjectType: "user"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	capture := &CaptureHook{}
	boom1 := errors.New("boom1")
	boom2 := errors.New("boom2")
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, event Event) error {
			ctxSeen = ctx != nil
			return nil
		}),
		capture,
		HookFunc(func(_ context.Context, _ Event) error { return boom1 }),
		nil,
		HookFunc(func(_ context.Context, _ Event) error { return boom2 }),
	}

	//nolint:staticcheck // nil context falls back to Background
	err := hooks.Notify(nil, Event{Verb: VerbMade, ObjectType: "user", ObjectID: "1"})
	if !errors.Is(err, boom1) || !errors.Is(err, boom2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected context fallback to be non-nil")
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected event to be captured once, got %d", len(capture.Events))
	}
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	capture := &CaptureHook{}
	event := Event{Verb: VerbMade, ObjectType: "user", ObjectID: "1"}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := disabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured when disabled")
	}

	enabled := NewEmitter(Hooks{nil, capture}, Config{Enabled: true, ActorID: " seeder ", TenantID: "acme"})
	if !enabled.Enabled() {
		t.Fatalf("expected emitter to be enabled")
	}
	if err := enabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected one event captured, got %d", len(capture.Events))
	}
	got := capture.Events[0]
	if got.Channel != DefaultChannel {
		t.Fatalf("expected default channel applied, got %q", got.Channel)
	}
	if got.ActorID != "seeder" || got.TenantID != "acme" {
		t.Fatalf("expected actor/tenant defaults, got %+v", got)
	}
}

func TestEmitterWithoutHooksIsDisabled(t *testing.T) {
	if NewEmitter(Hooks{nil}, Config{Enabled: true}).Enabled() {
		t.Fatalf("expected emitter without hooks to be disabled")
	}
	var nilEmitter *Emitter
	if nilEmitter.Enabled() {
		t.Fatalf("expected nil emitter to be disabled")
	}
}

func TestEmitterPreservesExplicitFields(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "default", ActorID: "fallback"})
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := emitter.Emit(context.Background(), Event{
		Verb:       VerbMade,
		ActorID:    "explicit",
		ObjectType: "user",
		ObjectID:   "1",
		Channel:    "custom",
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	got := capture.Events[0]
	if got.Channel != "custom" || got.ActorID != "explicit" {
		t.Fatalf("expected explicit fields preserved, got %+v", got)
	}
	if !got.OccurredAt.Equal(at) {
		t.Fatalf("expected occurred_at preserved, got %v", got.OccurredAt)
	}
}

func TestBuildMadeEvent(t *testing.T) {
	evt := BuildMadeEvent(MakeEventInput{
		Factory:      " user ",
		Target:       "main.User",
		MakeID:       "abc",
		Depth:        1,
		Layers:       4,
		Transformers: 2,
		Duration:     3 * time.Millisecond,
		Metadata:     map[string]any{"suite": "signup"},
	})

	if evt.Verb != VerbMade || evt.ObjectType != "user" || evt.ObjectID != "abc" {
		t.Fatalf("unexpected event: %+v", evt)
	}
	want := map[string]any{
		"suite":        "signup",
		"target":       "main.User",
		"depth":        1,
		"layers":       4,
		"transformers": 2,
		"duration_ms":  int64(3),
	}
	for key, value := range want {
		if evt.Metadata[key] != value {
			t.Fatalf("metadata[%s] = %v, want %v", key, evt.Metadata[key], value)
		}
	}
}

func TestBuildMakeFailedEventRecordsError(t *testing.T) {
	evt := BuildMakeFailedEvent(MakeEventInput{MakeID: "x", Err: errors.New("bad state")})
	if evt.Verb != VerbMakeFailed {
		t.Fatalf("unexpected verb %q", evt.Verb)
	}
	if evt.ObjectType != "factory" {
		t.Fatalf("expected fallback object type, got %q", evt.ObjectType)
	}
	if evt.Metadata["error"] != "bad state" {
		t.Fatalf("expected error metadata, got %v", evt.Metadata["error"])
	}
}

func TestCaptureHookFiltersVerbs(t *testing.T) {
	capture := &CaptureHook{Verbs: []string{VerbMakeFailed}}
	hooks := Hooks{capture}
	ctx := context.Background()

	_ = hooks.Notify(ctx, BuildMadeEvent(MakeEventInput{Factory: "user", MakeID: "1"}))
	_ = hooks.Notify(ctx, BuildMakeFailedEvent(MakeEventInput{Factory: "user", MakeID: "2", Err: errors.New("boom")}))

	if len(capture.Events) != 1 {
		t.Fatalf("expected only the failed event, got %+v", capture.Events)
	}
	if got := capture.Failed(); len(got) != 1 || got[0].ObjectID != "2" {
		t.Fatalf("unexpected failed events: %+v", got)
	}
	if got := capture.Made(); len(got) != 0 {
		t.Fatalf("expected no made events, got %+v", got)
	}

	capture.Reset()
	if len(capture.Events) != 0 {
		t.Fatalf("expected reset to clear events")
	}
}

func TestEventAccessors(t *testing.T) {
	failed := BuildMakeFailedEvent(MakeEventInput{
		Factory: "account",
		Target:  "*fixtures.Account",
		MakeID:  "7",
		Err:     errors.New("boom"),
	})
	if !failed.Valid() || !failed.Failed() {
		t.Fatalf("expected valid failed event: %+v", failed)
	}
	if failed.Target() != "*fixtures.Account" || failed.MakeError() != "boom" {
		t.Fatalf("unexpected accessors: target=%q error=%q", failed.Target(), failed.MakeError())
	}

	made := BuildMadeEvent(MakeEventInput{MakeID: " "})
	if made.Valid() {
		t.Fatalf("expected blank make id to be invalid")
	}
	if made.Failed() || made.MakeError() != "" {
		t.Fatalf("made event reported failure: %+v", made)
	}
}
