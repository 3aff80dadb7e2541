package scoped

import (
	"context"

	"github.com/goliatone/go-scoped/pkg/activity"
	"github.com/google/uuid"
)

// WithActivityHooks attaches lifecycle activity hooks to the kind. Derived
// kinds inherit them unless they declare their own; nil hooks disable
// emission for the kind.
func WithActivityHooks(hooks activity.Hooks) KindOption {
	normalized := hooks.Clone()
	return func(cfg *kindConfig) {
		cfg.hooks = normalized
		cfg.hooksSet = true
	}
}

// ActivityHooks returns a copy of the hooks the kind emits to.
func (k *Kind[T]) ActivityHooks() activity.Hooks {
	return k.core.emitter.Hooks()
}

type lifecycleRecord struct {
	action  LifecycleAction
	scopeID uuid.UUID
	depth   int
	site    Site
	value   any
	err     error
}

// record logs the transition and fans it out to the kind's hooks. Hook
// failures are logged, never returned.
func (k *kind) record(ctx context.Context, rec lifecycleRecord) {
	k.logger.LogLifecycle(LifecycleEvent{
		Action:  rec.action,
		Kind:    k.name,
		ScopeID: rec.scopeID,
		Depth:   rec.depth,
		Site:    rec.site,
		Value:   rec.value,
		Err:     rec.err,
	})
	if !k.emitter.Enabled() {
		return
	}

	input := activity.ScopeEventInput{
		Kind:     k.name,
		ScopeID:  rec.scopeID.String(),
		Depth:    rec.depth,
		Err:      rec.err,
		Metadata: k.metadata,
	}
	if !rec.site.IsZero() {
		input.Site = rec.site.String()
	}
	var event activity.Event
	switch rec.action {
	case ActionOpened:
		event = activity.BuildScopeOpenedEvent(input)
	case ActionClosed, ActionCleared:
		event = activity.BuildScopeClosedEvent(input)
	case ActionRejected:
		event = activity.BuildScopeRejectedEvent(input)
	default:
		return
	}
	if err := k.emitter.Emit(ctx, event); err != nil {
		k.logger.LogLifecycle(LifecycleEvent{
			Action:  ActionHookFailed,
			Kind:    k.name,
			ScopeID: rec.scopeID,
			Depth:   rec.depth,
			Err:     err,
		})
	}
}
