package scoped

import (
	"fmt"

	"github.com/goliatone/go-scoped/internal/layering"
	"github.com/goliatone/go-scoped/pkg/activity"
)

// DefaultMaxNesting is the stack capacity of kinds that never declare one.
const DefaultMaxNesting = 16

// Options declares how a kind uses its stack. Nil fields are undeclared and
// resolve through the kind's ancestors, then the built-in defaults.
//
// InheritStack is never inherited: every kind either declares it or takes its
// own default, false for root kinds and true for derived kinds.
type Options struct {
	InheritStack *bool `json:"inherit_stack,omitempty"`
	MaxNesting   *int  `json:"max_nesting,omitempty"`
	AllowReuse   *bool `json:"allow_reuse,omitempty"`
}

// Resolved holds the effective options of a kind.
type Resolved struct {
	InheritStack bool `json:"inherit_stack"`
	MaxNesting   int  `json:"max_nesting"`
	AllowReuse   bool `json:"allow_reuse"`
}

// Bool returns a pointer to v, for Options literals.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v, for Options literals.
func Int(v int) *int { return &v }

// KindOption configures a kind at definition time.
type KindOption func(*kindConfig)

type kindConfig struct {
	options  Options
	logger   LifecycleLogger
	hooks    activity.Hooks
	hooksSet bool
	guard    *guardSpec
	metadata map[string]any
}

func applyKindOptions(opts []KindOption) kindConfig {
	cfg := kindConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithOptions declares every non-nil field of o, overriding fields declared
// by earlier options.
func WithOptions(o Options) KindOption {
	return func(cfg *kindConfig) {
		cfg.options = layering.MergeLayers(o, cfg.options)
	}
}

// WithInheritStack declares whether the kind shares its parent's stack.
func WithInheritStack(inherit bool) KindOption {
	return func(cfg *kindConfig) {
		cfg.options.InheritStack = Bool(inherit)
	}
}

// WithMaxNesting declares the capacity of the stack the kind owns.
func WithMaxNesting(n int) KindOption {
	return func(cfg *kindConfig) {
		cfg.options.MaxNesting = Int(n)
	}
}

// WithAllowReuse declares whether closed scopes may be opened again.
func WithAllowReuse(allow bool) KindOption {
	return func(cfg *kindConfig) {
		cfg.options.AllowReuse = Bool(allow)
	}
}

// WithMetadata attaches metadata exposed to guards and lifecycle events. The
// map is copied.
func WithMetadata(metadata map[string]any) KindOption {
	return func(cfg *kindConfig) {
		cfg.metadata = layering.Clone(metadata)
	}
}

func builtinDefaults() Options {
	return Options{
		MaxNesting: Int(DefaultMaxNesting),
		AllowReuse: Bool(false),
	}
}

// resolveOptions computes the effective options of a kind named name whose
// parent is parent (nil for root kinds). It also returns the declaration
// descendants inherit from, which never carries InheritStack.
func resolveOptions(name string, parent *kind, declared Options) (Resolved, Options, error) {
	inherit := parent != nil
	if declared.InheritStack != nil {
		inherit = *declared.InheritStack
	}
	if inherit && parent == nil {
		return Resolved{}, Options{}, fmt.Errorf("%w: %s", ErrNoStackToInherit, name)
	}
	if inherit && declared.MaxNesting != nil {
		return Resolved{}, Options{}, fmt.Errorf("%w: %s", ErrMaxNestingOnSharedStack, name)
	}

	var inherited Options
	if parent != nil {
		inherited = parent.declared
	}
	declared.InheritStack = nil
	chain := layering.MergeLayers(declared, inherited)
	effective := layering.MergeLayers(chain, builtinDefaults())

	resolved := Resolved{
		InheritStack: inherit,
		MaxNesting:   *effective.MaxNesting,
		AllowReuse:   *effective.AllowReuse,
	}
	if resolved.MaxNesting < 1 {
		return Resolved{}, Options{}, fmt.Errorf("%w: %s: max_nesting must be >= 1, got %d", ErrInvalidOptions, name, resolved.MaxNesting)
	}
	return resolved, chain, nil
}
