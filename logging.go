package scoped

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// LifecycleAction names what happened to a scope.
type LifecycleAction string

const (
	ActionOpened     LifecycleAction = "opened"
	ActionClosed     LifecycleAction = "closed"
	ActionRejected   LifecycleAction = "rejected"
	ActionCleared    LifecycleAction = "cleared"
	ActionGuard      LifecycleAction = "guard"
	ActionHookFailed LifecycleAction = "hook_failed"
)

// LifecycleEvent describes one lifecycle transition or violation for logging.
type LifecycleEvent struct {
	Action   LifecycleAction
	Kind     string
	ScopeID  uuid.UUID
	Depth    int
	Site     Site
	Value    any
	Guard    string
	Duration time.Duration
	Err      error
}

// LifecycleLogger records lifecycle events.
type LifecycleLogger interface {
	LogLifecycle(LifecycleEvent)
}

// LifecycleLoggerFunc adapts a function to LifecycleLogger.
type LifecycleLoggerFunc func(LifecycleEvent)

// LogLifecycle implements LifecycleLogger.
func (f LifecycleLoggerFunc) LogLifecycle(event LifecycleEvent) {
	if f != nil {
		f(event)
	}
}

type noopLifecycleLogger struct{}

func (noopLifecycleLogger) LogLifecycle(LifecycleEvent) {}

// WithLogger attaches a lifecycle logger to the kind. Derived kinds inherit it
// unless they declare their own. A nil logger silences the kind.
func WithLogger(logger LifecycleLogger) KindOption {
	return func(cfg *kindConfig) {
		if logger == nil {
			cfg.logger = noopLifecycleLogger{}
			return
		}
		cfg.logger = logger
	}
}

// SlogOption configures SlogLogger.
type SlogOption func(*slogLifecycleLogger)

// SlogWithValues logs scope payloads under the "value" key. Pair it with a
// redacting handler when payloads carry credentials.
func SlogWithValues() SlogOption {
	return func(l *slogLifecycleLogger) {
		l.values = true
	}
}

// SlogLogger adapts a slog.Logger. Transitions are logged at debug level,
// violations and hook failures at warn level.
func SlogLogger(logger *slog.Logger, opts ...SlogOption) LifecycleLogger {
	if logger == nil {
		return noopLifecycleLogger{}
	}
	l := slogLifecycleLogger{logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(&l)
		}
	}
	return l
}

type slogLifecycleLogger struct {
	logger *slog.Logger
	values bool
}

func (l slogLifecycleLogger) LogLifecycle(event LifecycleEvent) {
	attrs := []slog.Attr{
		slog.String("kind", event.Kind),
		slog.Int("depth", event.Depth),
	}
	if event.ScopeID != uuid.Nil {
		attrs = append(attrs, slog.String("scope_id", event.ScopeID.String()))
	}
	if !event.Site.IsZero() {
		attrs = append(attrs, slog.String("site", event.Site.String()))
	}
	if l.values && event.Value != nil {
		attrs = append(attrs, slog.Any("value", event.Value))
	}
	if event.Guard != "" {
		attrs = append(attrs,
			slog.String("guard", event.Guard),
			slog.Duration("duration", event.Duration),
		)
	}
	level := slog.LevelDebug
	if event.Err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", event.Err.Error()))
	}
	l.logger.LogAttrs(context.Background(), level, "scope "+string(event.Action), attrs...)
}
