package scoped

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"unicode"
)

// Function is a helper callable from guard expressions.
type Function func(args ...any) (any, error)

var (
	// ErrFunctionName reports a helper name that guard languages cannot call
	// or that shadows a guard variable.
	ErrFunctionName = errors.New("scoped: invalid function name")
	// ErrFunctionNotFound reports a call to a helper that was never registered.
	ErrFunctionNotFound = errors.New("scoped: function not registered")
)

// guardVariables are the names GuardContext exposes; helpers may not reuse them.
var guardVariables = map[string]struct{}{
	"kind": {}, "depth": {}, "max_nesting": {}, "value": {}, "metadata": {}, "now": {},
}

// FunctionRegistry holds the helpers guards may call. Evaluators take a copy
// when they are built, so later registrations do not reach compiled guards.
type FunctionRegistry struct {
	mu    sync.RWMutex
	byKey map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{byKey: map[string]Function{}}
}

// Register adds fn under name. The name must be an identifier, must not be a
// guard variable and may only be registered once.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if err := checkFunctionName(name); err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("scoped: function %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byKey == nil {
		r.byKey = map[string]Function{}
	}
	if _, taken := r.byKey[name]; taken {
		return fmt.Errorf("scoped: function %q registered twice", name)
	}
	r.byKey[name] = fn
	return nil
}

func checkFunctionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrFunctionName)
	}
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return fmt.Errorf("%w: %q is not an identifier", ErrFunctionName, name)
	}
	if _, reserved := guardVariables[name]; reserved {
		return fmt.Errorf("%w: %q shadows a guard variable", ErrFunctionName, name)
	}
	return nil
}

// Clone copies the registry. A nil registry clones to nil.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := &FunctionRegistry{byKey: make(map[string]Function, len(r.byKey))}
	for name, fn := range r.byKey {
		out.byKey[name] = fn
	}
	return out
}

// Call runs the helper registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	var fn Function
	if r != nil {
		r.mu.RLock()
		fn = r.byKey[name]
		r.mu.RUnlock()
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
	}
	return fn(args...)
}

// Names lists the registered helpers in sorted order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	names := make([]string, 0, len(r.byKey))
	for name := range r.byKey {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len reports how many helpers are registered.
func (r *FunctionRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}
