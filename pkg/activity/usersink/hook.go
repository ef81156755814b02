// Package usersink forwards factory activity into a go-users ActivitySink so
// seeded fixtures show up in the same audit trail as application activity.
package usersink

import (
	"context"
	"maps"
	"strings"
	"time"

	"github.com/goliatone/go-factory/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts activity events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
// The actor doubles as the record's user; factory metadata lands in Data.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil || !event.Valid() {
		return nil
	}
	normalized := activity.NormalizeEvent(event)
	if ctx == nil {
		ctx = context.Background()
	}

	actorID := parseUUID(normalized.ActorID)
	record := usertypes.ActivityRecord{
		ActorID:    actorID,
		UserID:     actorID,
		TenantID:   parseUUID(normalized.TenantID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       maps.Clone(normalized.Metadata),
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	if record.Data == nil {
		record.Data = map[string]any{}
	}
	record.Data["factory"] = normalized.ObjectType
	record.Data["make_id"] = normalized.ObjectID
	if normalized.Failed() {
		record.Data["failed"] = true
	}

	return h.Sink.Log(ctx, record)
}

func parseUUID(input string) uuid.UUID {
	value := strings.TrimSpace(input)
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil
	}
	return id
}
