package scoped

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/goliatone/go-scoped/internal/layering"
	"github.com/goliatone/go-scoped/pkg/activity"
)

// kind is the payload-independent part of a Kind.
type kind struct {
	name     string
	parent   *kind
	stack    *stackIdentity
	options  Resolved
	declared Options
	family   family
	logger   LifecycleLogger
	emitter  *activity.Emitter
	guard    *guard
	metadata map[string]any
}

func (k *kind) derivesFrom(ancestor *kind) bool {
	for current := k; current != nil; current = current.parent {
		if current == ancestor {
			return true
		}
	}
	return false
}

func newKind(name string, parent *kind, opts []KindOption) (*kind, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: kind name must not be empty", ErrInvalidOptions)
	}
	cfg := applyKindOptions(opts)
	resolved, declared, err := resolveOptions(name, parent, cfg.options)
	if err != nil {
		return nil, err
	}

	k := &kind{
		name:     name,
		parent:   parent,
		options:  resolved,
		declared: declared,
		logger:   cfg.logger,
		metadata: cfg.metadata,
	}
	k.family = newFamily(k)

	if resolved.InheritStack {
		k.stack = parent.stack
	} else {
		k.stack = &stackIdentity{owner: k, capacity: resolved.MaxNesting}
	}

	hooks := cfg.hooks
	if parent != nil {
		if k.logger == nil {
			k.logger = parent.logger
		}
		if !cfg.hooksSet {
			hooks = parent.emitter.Hooks()
		}
		k.metadata = layering.MergeLayers(cfg.metadata, parent.metadata)
	}
	if k.logger == nil {
		k.logger = noopLifecycleLogger{}
	}
	k.emitter = activity.NewEmitter(hooks, activity.Config{Enabled: true})

	if cfg.guard != nil {
		g, err := compileGuard(name, cfg.guard)
		if err != nil {
			return nil, err
		}
		k.guard = g
	}
	return k, nil
}

// Kind is a category of scoped values of type T. Each kind is bound to one
// stack per Local: its own, or its parent's when it inherits the stack.
//
// A Kind is safe for concurrent use. Only the default slot is mutable.
type Kind[T any] struct {
	core   *kind
	parent *Kind[T]
	def    atomic.Pointer[Scope[T]]
}

// Define creates a root kind. Root kinds always own their stack.
func Define[T any](name string, opts ...KindOption) (*Kind[T], error) {
	core, err := newKind(name, nil, opts)
	if err != nil {
		return nil, err
	}
	return &Kind[T]{core: core}, nil
}

// MustDefine is Define that panics on invalid options, for package-level
// kind declarations.
func MustDefine[T any](name string, opts ...KindOption) *Kind[T] {
	k, err := Define[T](name, opts...)
	if err != nil {
		panic(err)
	}
	return k
}

// Derive creates a kind derived from k. Unless it declares
// WithInheritStack(false), the derived kind shares k's stack, so an open
// scope of either kind is current for both.
func (k *Kind[T]) Derive(name string, opts ...KindOption) (*Kind[T], error) {
	core, err := newKind(name, k.core, opts)
	if err != nil {
		return nil, err
	}
	return &Kind[T]{core: core, parent: k}, nil
}

// MustDerive is Derive that panics on invalid options.
func (k *Kind[T]) MustDerive(name string, opts ...KindOption) *Kind[T] {
	child, err := k.Derive(name, opts...)
	if err != nil {
		panic(err)
	}
	return child
}

// Name returns the kind's name.
func (k *Kind[T]) Name() string { return k.core.name }

// Parent returns the kind k was derived from, or nil for root kinds.
func (k *Kind[T]) Parent() *Kind[T] { return k.parent }

// Options returns the kind's effective options.
func (k *Kind[T]) Options() Resolved { return k.core.options }

// Metadata returns a copy of the kind's metadata, including inherited keys.
func (k *Kind[T]) Metadata() map[string]any { return layering.Clone(k.core.metadata) }

// SharesStackWith reports whether k and other push onto the same stack.
func (k *Kind[T]) SharesStackWith(other *Kind[T]) bool {
	return other != nil && k.core.stack == other.core.stack
}

// Err matches every error raised by k or its descendants.
func (k *Kind[T]) Err() *Class { return k.core.family.base }

// ErrMissing matches the Missing errors raised by k or its descendants.
func (k *Kind[T]) ErrMissing() *Class { return k.core.family.missing }

// ErrLifecycle matches the Lifecycle errors raised by k or its descendants.
func (k *Kind[T]) ErrLifecycle() *Class { return k.core.family.lifecycle }

// New returns an unopened scope holding value.
func (k *Kind[T]) New(value T) *Scope[T] {
	return newScope(k, value)
}

// Topmost returns the scope on top of the kind's stack, ignoring the default.
func (k *Kind[T]) Topmost(ctx context.Context) (*Scope[T], bool) {
	top, ok := localFrom(ctx).lookup(k.core.stack).top()
	if !ok {
		return nil, false
	}
	scope, ok := top.(*Scope[T])
	return scope, ok
}

// HasTopmost reports whether the kind's stack holds any scope.
func (k *Kind[T]) HasTopmost(ctx context.Context) bool {
	_, ok := k.Topmost(ctx)
	return ok
}

// Current returns the scope on top of the kind's stack, else the default,
// else a Missing error. It never opens the default.
func (k *Kind[T]) Current(ctx context.Context) (*Scope[T], error) {
	if scope, ok := k.Topmost(ctx); ok {
		return scope, nil
	}
	if def := k.Default(); def != nil {
		return def, nil
	}
	return nil, k.core.missingf(localFrom(ctx), "no %s is in scope", k.core.name)
}

// Value returns the payload of the current scope.
func (k *Kind[T]) Value(ctx context.Context) (T, error) {
	scope, err := k.Current(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return scope.Value(), nil
}

// HasCurrent reports whether Current would succeed.
func (k *Kind[T]) HasCurrent(ctx context.Context) bool {
	return k.HasTopmost(ctx) || k.Default() != nil
}

// CurrentIfAny returns the current scope, or nil when there is none.
func (k *Kind[T]) CurrentIfAny(ctx context.Context) *Scope[T] {
	scope, err := k.Current(ctx)
	if err != nil {
		return nil
	}
	return scope
}

// Depth returns how many scopes the kind's stack holds.
func (k *Kind[T]) Depth(ctx context.Context) int {
	return localFrom(ctx).lookup(k.core.stack).len()
}

// Trace lists the open scopes of the kind's stack, bottom first.
func (k *Kind[T]) Trace(ctx context.Context) Trace {
	return Trace{Kind: k.core.name, Entries: localFrom(ctx).trace(k.core.stack)}
}

// Clear discards every scope on the kind's stack, marking each closed, and
// returns how many were discarded. Scopes of other kinds sharing the stack
// are discarded too.
func (k *Kind[T]) Clear(ctx context.Context) int {
	s := localFrom(ctx).lookup(k.core.stack)
	n := s.len()
	for s.len() > 0 {
		top, _ := s.top()
		s.pop()
		top.discard()
		owner := top.scopeKind()
		entry := top.traceEntry()
		owner.record(ctx, lifecycleRecord{
			action:  ActionCleared,
			scopeID: entry.ScopeID,
			depth:   s.len(),
			site:    entry.Site,
		})
	}
	return n
}

// Default returns the kind's fallback scope, inherited from the nearest
// ancestor that has one when k has none.
func (k *Kind[T]) Default() *Scope[T] {
	for current := k; current != nil; current = current.parent {
		if def := current.def.Load(); def != nil {
			return def
		}
	}
	return nil
}

// SetDefault registers the fallback scope returned by Current when the stack
// is empty. A nil scope removes the kind's own default.
func (k *Kind[T]) SetDefault(scope *Scope[T]) {
	k.def.Store(scope)
}
