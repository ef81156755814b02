package activity

import (
	"strings"
	"time"
)

const (
	// VerbMade marks an object that was constructed and transformed.
	VerbMade = "factory.made"
	// VerbMakeFailed marks a make call that returned an error.
	VerbMakeFailed = "factory.make_failed"
)

// MakeEventInput describes one make call.
type MakeEventInput struct {
	Factory      string
	Target       string
	MakeID       string
	Depth        int
	Layers       int
	Transformers int
	Duration     time.Duration
	Err          error
	Metadata     map[string]any
	OccurredAt   time.Time
}

// BuildMadeEvent constructs the event emitted after a successful make.
func BuildMadeEvent(input MakeEventInput) Event {
	return buildMakeEvent(VerbMade, input)
}

// BuildMakeFailedEvent constructs the event emitted when make fails. The
// error message is stored under the "error" metadata key.
func BuildMakeFailedEvent(input MakeEventInput) Event {
	event := buildMakeEvent(VerbMakeFailed, input)
	if input.Err != nil {
		event.Metadata["error"] = input.Err.Error()
	}
	return event
}

func buildMakeEvent(verb string, input MakeEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	if target := strings.TrimSpace(input.Target); target != "" {
		metadata["target"] = target
	}
	metadata["depth"] = input.Depth
	metadata["layers"] = input.Layers
	metadata["transformers"] = input.Transformers
	if input.Duration > 0 {
		metadata["duration_ms"] = input.Duration.Milliseconds()
	}

	objectType := strings.TrimSpace(input.Factory)
	if objectType == "" {
		objectType = "factory"
	}

	return Event{
		Verb:       verb,
		ObjectType: objectType,
		ObjectID:   strings.TrimSpace(input.MakeID),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}
