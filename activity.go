package factory

import (
	"context"
	"reflect"
	"time"

	"github.com/goliatone/go-factory/pkg/activity"
)

// WithActivityHooks attaches activity hooks notified after every make call.
// Hooks are cloned and nil entries dropped. Emission is enabled whenever hooks
// are present, unless WithConfig supplied an activity config that disables it.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := activity.CloneHooks(hooks)
	return func(cfg *factoryConfig) {
		cfg.activityHooks = normalized
	}
}

// ActivityHooks returns a detached copy of the hooks configured on the
// factory.
func (f *Factory[T]) ActivityHooks() activity.Hooks {
	if f == nil {
		return nil
	}
	return activity.CloneHooks(f.cfg.activityHooks)
}

func newEmitter(cfg factoryConfig) *activity.Emitter {
	if len(cfg.activityHooks) == 0 {
		return nil
	}
	activityCfg := activity.Config{Enabled: true}
	if cfg.activityConfig != nil {
		activityCfg = *cfg.activityConfig
	}
	return activity.NewEmitter(cfg.activityHooks, activityCfg)
}

type makeRecord struct {
	factory      string
	target       reflect.Type
	makeID       string
	depth        int
	layers       int
	transformers int
	duration     time.Duration
	err          error
}

// emit reports a make call to the hooks. Hook failures are logged and never
// fail the make.
func (r *resolver) emit(ctx context.Context, emitter *activity.Emitter, rec makeRecord) {
	if !emitter.Enabled() {
		return
	}
	input := activity.MakeEventInput{
		Factory:      rec.factory,
		Target:       typeName(rec.target),
		MakeID:       rec.makeID,
		Depth:        rec.depth,
		Layers:       rec.layers,
		Transformers: rec.transformers,
		Duration:     rec.duration,
		Err:          rec.err,
	}
	event := activity.BuildMadeEvent(input)
	if rec.err != nil {
		event = activity.BuildMakeFailedEvent(input)
	}
	if err := emitter.Emit(ctx, event); err != nil {
		r.cfg.makeLog().LogMake(MakeLogEvent{
			Factory:     rec.factory,
			Target:      typeName(rec.target),
			Depth:       rec.depth,
			Layers:      rec.layers,
			Duration:    rec.duration,
			Err:         rec.err,
			ActivityErr: err,
		})
	}
}
