package scoped

import (
	"errors"
	"fmt"
	"strings"
)

// Condition classifies a scoping failure.
type Condition uint8

const (
	// ConditionAny matches every condition. Only used by classes.
	ConditionAny Condition = iota
	// ConditionMissing reports a current value was requested and none exists.
	ConditionMissing
	// ConditionLifecycle reports an invalid open/close transition or an
	// ordering violation.
	ConditionLifecycle
)

var conditionNames = map[Condition]string{
	ConditionAny:       "error",
	ConditionMissing:   "missing",
	ConditionLifecycle: "lifecycle",
}

func (c Condition) String() string {
	if name, ok := conditionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("condition(%d)", c)
}

// Class is an errors.Is target naming a family of scoping errors: one
// condition (or all of them) raised by one kind and its descendants, or by
// every kind when the class has no kind.
type Class struct {
	kind      *kind
	condition Condition
}

func (c *Class) Error() string {
	if c.kind == nil {
		if c.condition == ConditionAny {
			return "scoped: error"
		}
		return "scoped: " + c.condition.String()
	}
	return fmt.Sprintf("scoped: %s %s", c.kind.name, c.condition)
}

// Condition reports which condition the class matches.
func (c *Class) Condition() Condition { return c.condition }

var (
	// ErrScoped matches every Missing and Lifecycle error of every kind.
	ErrScoped = &Class{condition: ConditionAny}
	// ErrMissing matches the Missing errors of every kind.
	ErrMissing = &Class{condition: ConditionMissing}
	// ErrLifecycle matches the Lifecycle errors of every kind.
	ErrLifecycle = &Class{condition: ConditionLifecycle}
)

var (
	// ErrInvalidOptions wraps every kind definition failure.
	ErrInvalidOptions = errors.New("scoped: invalid options")
	// ErrNoStackToInherit indicates a root kind declared InheritStack.
	ErrNoStackToInherit = fmt.Errorf("%w: root kind has no stack to inherit", ErrInvalidOptions)
	// ErrMaxNestingOnSharedStack indicates a kind sharing its parent's stack
	// declared MaxNesting; capacity belongs to the kind owning the stack.
	ErrMaxNestingOnSharedStack = fmt.Errorf("%w: max_nesting cannot be set on a kind that inherits its stack", ErrInvalidOptions)
	// ErrUnbound is the cause of the Lifecycle error returned by Open when the
	// context carries no scope storage.
	ErrUnbound = errors.New("scoped: no scope storage bound to context, call scoped.Bind")
	// ErrGuardRejected is the cause of the Lifecycle error returned by Open
	// when the kind's guard evaluates to false.
	ErrGuardRejected = errors.New("scoped: guard rejected open")
)

// family holds the classes a kind hands out to its callers.
type family struct {
	base      *Class
	missing   *Class
	lifecycle *Class
}

func newFamily(k *kind) family {
	return family{
		base:      &Class{kind: k, condition: ConditionAny},
		missing:   &Class{kind: k, condition: ConditionMissing},
		lifecycle: &Class{kind: k, condition: ConditionLifecycle},
	}
}

// Error is returned by Open, Close and the current-value lookups.
type Error struct {
	Kind      string
	Condition Condition
	Message   string
	Trace     []TraceEntry
	Err       error

	kind *kind
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "scoped: %s %s: %s", e.Kind, e.Condition, e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	for _, entry := range e.Trace {
		b.WriteString("\n  ")
		b.WriteString(entry.String())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches classes of the error's own kind or of any ancestor kind.
func (e *Error) Is(target error) bool {
	class, ok := target.(*Class)
	if !ok || e == nil {
		return false
	}
	if class.condition != ConditionAny && class.condition != e.Condition {
		return false
	}
	return class.kind == nil || e.kind.derivesFrom(class.kind)
}

// IsMissing reports whether err is a Missing error of any kind.
func IsMissing(err error) bool {
	return errors.Is(err, ErrMissing)
}

// IsLifecycle reports whether err is a Lifecycle error of any kind.
func IsLifecycle(err error) bool {
	return errors.Is(err, ErrLifecycle)
}

func (k *kind) missingf(local *Local, format string, args ...any) *Error {
	return k.newError(ConditionMissing, local, nil, format, args...)
}

func (k *kind) lifecyclef(local *Local, cause error, format string, args ...any) *Error {
	return k.newError(ConditionLifecycle, local, cause, format, args...)
}

func (k *kind) newError(cond Condition, local *Local, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:      k.name,
		Condition: cond,
		Message:   fmt.Sprintf(format, args...),
		Trace:     local.trace(k.stack),
		Err:       cause,
		kind:      k,
	}
}
