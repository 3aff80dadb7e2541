package scoped

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-scoped/internal/layering"
	"github.com/google/uuid"
)

// State is the lifecycle state of a scope.
type State uint8

const (
	StateUnopened State = iota
	StateOpen
	StateClosed
)

var stateNames = map[State]string{
	StateUnopened: "unopened",
	StateOpen:     "open",
	StateClosed:   "closed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", s)
}

// Scope is one instance of a kind holding a payload. It is pushed onto the
// kind's stack by Open and popped by Close.
//
// A Scope belongs to the goroutine that opened it; its lifecycle methods are
// NOT safe for concurrent use.
type Scope[T any] struct {
	kind  *Kind[T]
	value T
	id    uuid.UUID
	state State
	site  Site
	local *Local
}

func newScope[T any](k *Kind[T], value T) *Scope[T] {
	return &Scope[T]{kind: k, value: value, id: uuid.New()}
}

// Kind returns the kind the scope was created from.
func (s *Scope[T]) Kind() *Kind[T] { return s.kind }

// Value returns the payload.
func (s *Scope[T]) Value() T { return s.value }

// ID identifies the scope in traces, errors and lifecycle events.
func (s *Scope[T]) ID() uuid.UUID { return s.id }

// State returns the lifecycle state.
func (s *Scope[T]) State() State { return s.state }

// IsOpen reports whether the scope is on a stack.
func (s *Scope[T]) IsOpen() bool { return s.state == StateOpen }

// IsUsed reports whether the scope has ever been opened.
func (s *Scope[T]) IsUsed() bool { return s.state != StateUnopened }

// Site returns where the scope was last opened.
func (s *Scope[T]) Site() Site { return s.site }

// IsCurrent reports whether the scope is what its kind's Current returns.
func (s *Scope[T]) IsCurrent(ctx context.Context) bool {
	current := s.kind.CurrentIfAny(ctx)
	return current == s
}

func (s *Scope[T]) String() string {
	return fmt.Sprintf("%s(%s)", s.kind.core.name, s.id)
}

func (s *Scope[T]) scopeKind() *kind { return s.kind.core }

func (s *Scope[T]) traceEntry() TraceEntry {
	return TraceEntry{Kind: s.kind.core.name, ScopeID: s.id, Site: s.site}
}

func (s *Scope[T]) discard() {
	s.state = StateClosed
	s.local = nil
}

// Open pushes the scope onto its kind's stack in the Local carried by ctx and
// returns it. It fails with a Lifecycle error when the scope is already open,
// when it was closed and the kind does not allow reuse, when ctx carries no
// Local, when the stack is full, or when the kind's guard refuses.
func (s *Scope[T]) Open(ctx context.Context) (*Scope[T], error) {
	if err := s.open(ctx, callerSite(1)); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scope[T]) open(ctx context.Context, site Site) error {
	k := s.kind.core
	local := localFrom(ctx)

	var err *Error
	switch {
	case s.state == StateOpen:
		err = k.lifecyclef(local, nil, "%s is already open", s)
	case s.state == StateClosed && !k.options.AllowReuse:
		err = k.lifecyclef(local, nil, "%s cannot be reused", s)
	case local == nil:
		err = k.lifecyclef(nil, ErrUnbound, "cannot open %s", s)
	}
	if err != nil {
		return s.reject(ctx, site, local, err)
	}

	st := local.acquire(k.stack)
	if depth := st.len(); depth >= k.stack.capacity {
		return s.reject(ctx, site, local, k.lifecyclef(local, nil, "cannot nest %s more than %d levels", k.name, k.stack.capacity))
	}
	if k.guard != nil {
		guardErr := k.guard.check(k, GuardContext{
			Kind:       k.name,
			Depth:      st.len(),
			MaxNesting: k.stack.capacity,
			Value:      s.value,
			Metadata:   layering.Clone(k.metadata),
		})
		if guardErr != nil {
			return s.reject(ctx, site, local, k.lifecyclef(local, guardErr, "guard refused to open %s", s))
		}
	}

	st.push(s)
	s.state = StateOpen
	s.site = site
	s.local = local
	k.record(ctx, lifecycleRecord{action: ActionOpened, scopeID: s.id, depth: st.len(), site: site, value: s.value})
	return nil
}

// Close pops the scope from its stack. It fails with a Lifecycle error when
// the scope is not open, when ctx carries a different Local than the one the
// scope was opened on, or when the scope is not on top of its stack. A failed
// Close leaves every stack and state untouched.
func (s *Scope[T]) Close(ctx context.Context) error {
	k := s.kind.core
	local := localFrom(ctx)

	if s.state != StateOpen {
		if s.state == StateClosed && !k.options.AllowReuse {
			return s.reject(ctx, Site{}, local, k.lifecyclef(local, nil, "this %s has already been closed", k.name))
		}
		return s.reject(ctx, Site{}, local, k.lifecyclef(local, nil, "this %s is not open", k.name))
	}
	if local != s.local {
		return s.reject(ctx, s.site, local, k.lifecyclef(local, nil, "%s was opened on another goroutine's scope storage", s))
	}
	st := local.lookup(k.stack)
	if top, ok := st.top(); !ok || top != entry(s) {
		return s.reject(ctx, s.site, local, k.lifecyclef(local, nil, "this %s is not at the top of the stack", k.name))
	}

	st.pop()
	s.state = StateClosed
	s.local = nil
	k.record(ctx, lifecycleRecord{action: ActionClosed, scopeID: s.id, depth: st.len(), site: s.site, value: s.value})
	return nil
}

func (s *Scope[T]) reject(ctx context.Context, site Site, local *Local, err *Error) error {
	s.kind.core.record(ctx, lifecycleRecord{
		action:  ActionRejected,
		scopeID: s.id,
		depth:   local.lookup(s.kind.core.stack).len(),
		site:    site,
		value:   s.value,
		err:     err,
	})
	return err
}

// Use opens the scope, runs fn and closes the scope on every exit path,
// including panics. A Close failure is joined with fn's error. When ctx
// carries no Local, a fresh one is bound for fn.
func (s *Scope[T]) Use(ctx context.Context, fn func(context.Context) error) error {
	return s.use(ctx, callerSite(1), fn)
}

// With creates a scope of kind holding value and runs fn inside it.
func With[T any](ctx context.Context, kind *Kind[T], value T, fn func(context.Context) error) error {
	return kind.New(value).use(ctx, callerSite(1), fn)
}

func (s *Scope[T]) use(ctx context.Context, site Site, fn func(context.Context) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := LocalFrom(ctx); !ok {
		ctx = Bind(ctx)
	}
	if err := s.open(ctx, site); err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(ctx); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	return fn(ctx)
}
