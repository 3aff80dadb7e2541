package activity

import (
	"context"
	"strings"
)

// DefaultChannel is stamped on events emitted without a channel.
const DefaultChannel = "scoped"

// Config controls emission defaults.
type Config struct {
	Enabled bool
	Channel string
}

// Emitter fans out events to hooks, filling the channel and the actor carried
// by the context when the event leaves them empty.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
}

// NewEmitter constructs an emitter from hooks and configuration.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	hooks = hooks.Clone()
	return &Emitter{
		hooks:   hooks,
		enabled: cfg.Enabled && hooks.Enabled(),
		channel: channel,
	}
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Hooks returns a copy of the emitter's hooks.
func (e *Emitter) Hooks() Hooks {
	if e == nil {
		return nil
	}
	return e.hooks.Clone()
}

// Emit forwards the event to all hooks.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if actor, ok := ActorFromContext(ctx); ok {
		if strings.TrimSpace(event.ActorID) == "" {
			event.ActorID = actor.ID
		}
		if strings.TrimSpace(event.TenantID) == "" {
			event.TenantID = actor.TenantID
		}
	}
	return e.hooks.Notify(ctx, event)
}
