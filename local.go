package scoped

import "context"

// stackIdentity names one logical stack. Kinds that share a stack share the
// identity; capacity is the MaxNesting of the kind that owns it.
type stackIdentity struct {
	owner    *kind
	capacity int
}

// entry is an open scope as seen by the stack that holds it.
type entry interface {
	scopeKind() *kind
	traceEntry() TraceEntry
	discard()
}

type stack struct {
	entries []entry
}

func (s *stack) len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

func (s *stack) top() (entry, bool) {
	if s.len() == 0 {
		return nil, false
	}
	return s.entries[len(s.entries)-1], true
}

func (s *stack) push(e entry) {
	s.entries = append(s.entries, e)
}

func (s *stack) pop() {
	last := len(s.entries) - 1
	s.entries[last] = nil
	s.entries = s.entries[:last]
}

// Local holds the scope stacks of one goroutine. Stacks are created on first
// push and live as long as the Local does.
//
// A Local is NOT safe for concurrent use. Bind a fresh one at the top of every
// goroutine that opens scopes instead of sharing the parent's context value.
type Local struct {
	stacks map[*stackIdentity]*stack
}

type localKey struct{}

// NewLocal returns empty scope storage.
func NewLocal() *Local {
	return &Local{}
}

// Bind returns a child of ctx carrying fresh, empty scope storage.
func Bind(ctx context.Context) context.Context {
	return WithLocal(ctx, NewLocal())
}

// WithLocal returns a child of ctx carrying local.
func WithLocal(ctx context.Context, local *Local) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, localKey{}, local)
}

// LocalFrom returns the scope storage carried by ctx.
func LocalFrom(ctx context.Context) (*Local, bool) {
	if ctx == nil {
		return nil, false
	}
	local, ok := ctx.Value(localKey{}).(*Local)
	return local, ok && local != nil
}

// Empty reports whether every stack of the Local is empty. Goroutines are
// expected to leave their Local empty when they finish.
func (l *Local) Empty() bool {
	if l == nil {
		return true
	}
	for _, s := range l.stacks {
		if s.len() > 0 {
			return false
		}
	}
	return true
}

// lookup returns the stack for id without creating it.
func (l *Local) lookup(id *stackIdentity) *stack {
	if l == nil || l.stacks == nil {
		return nil
	}
	return l.stacks[id]
}

// acquire returns the stack for id, creating it on first use.
func (l *Local) acquire(id *stackIdentity) *stack {
	if l.stacks == nil {
		l.stacks = make(map[*stackIdentity]*stack)
	}
	s, ok := l.stacks[id]
	if !ok {
		s = &stack{}
		l.stacks[id] = s
	}
	return s
}

func (l *Local) trace(id *stackIdentity) []TraceEntry {
	s := l.lookup(id)
	if s.len() == 0 {
		return nil
	}
	out := make([]TraceEntry, 0, s.len())
	for _, e := range s.entries {
		out = append(out, e.traceEntry())
	}
	return out
}

func localFrom(ctx context.Context) *Local {
	local, _ := LocalFrom(ctx)
	return local
}
