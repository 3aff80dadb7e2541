package activity

import "time"

const (
	// ObjectTypeScope is the object type of every scope lifecycle event.
	ObjectTypeScope = "scope"

	VerbScopeOpened   = "scope.opened"
	VerbScopeClosed   = "scope.closed"
	VerbScopeRejected = "scope.rejected"
)

// ScopeEventInput describes the fields shared by scope lifecycle events.
type ScopeEventInput struct {
	Kind       string
	ScopeID    string
	Depth      int
	Site       string
	Err        error
	ActorID    string
	TenantID   string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildScopeOpenedEvent constructs the event emitted after a scope is pushed.
func BuildScopeOpenedEvent(input ScopeEventInput) Event {
	return buildScopeEvent(VerbScopeOpened, input)
}

// BuildScopeClosedEvent constructs the event emitted after a scope is popped.
func BuildScopeClosedEvent(input ScopeEventInput) Event {
	return buildScopeEvent(VerbScopeClosed, input)
}

// BuildScopeRejectedEvent constructs the event emitted when an open or close
// is refused.
func BuildScopeRejectedEvent(input ScopeEventInput) Event {
	return buildScopeEvent(VerbScopeRejected, input)
}

func buildScopeEvent(verb string, input ScopeEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["kind"] = input.Kind
	metadata["depth"] = input.Depth
	if input.Site != "" {
		metadata["site"] = input.Site
	}
	if input.Err != nil {
		metadata["error"] = input.Err.Error()
	}
	return NormalizeEvent(Event{
		Verb:       verb,
		ActorID:    input.ActorID,
		TenantID:   input.TenantID,
		ObjectType: ObjectTypeScope,
		ObjectID:   input.ScopeID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	})
}
