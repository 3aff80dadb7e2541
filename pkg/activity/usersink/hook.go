// Package usersink forwards scope lifecycle events to a go-users ActivitySink.
package usersink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-scoped/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts activity events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
// The actor falls back to the "actor_id" metadata entry, and the user to the
// "user_id" entry or the actor.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" || normalized.ObjectID == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	actorID := parseUUID(normalized.ActorID)
	if actorID == uuid.Nil {
		actorID = parseUUID(metadataString(normalized.Metadata, "actor_id"))
	}
	userID := parseUUID(metadataString(normalized.Metadata, "user_id"))
	if userID == uuid.Nil {
		userID = actorID
	}

	record := usertypes.ActivityRecord{
		ActorID:    actorID,
		UserID:     userID,
		TenantID:   parseUUID(normalized.TenantID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       normalized.Metadata,
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	if err := h.Sink.Log(ctx, record); err != nil {
		return fmt.Errorf("usersink: log %s %s: %w", record.Verb, record.ObjectID, err)
	}
	return nil
}

func metadataString(metadata map[string]any, key string) string {
	switch value := metadata[key].(type) {
	case string:
		return value
	case uuid.UUID:
		return value.String()
	case fmt.Stringer:
		return value.String()
	default:
		return ""
	}
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
