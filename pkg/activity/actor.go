package activity

import "context"

// Actor identifies who caused an event.
type Actor struct {
	ID       string
	TenantID string
}

type actorKey struct{}

// WithActor returns a child of ctx carrying actor. Emitters stamp it on events
// that do not name an actor themselves.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor carried by ctx.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
