package scoped

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Engine names a guard expression language.
type Engine string

const (
	EngineExpr Engine = "expr"
	EngineCEL  Engine = "cel"
	EngineJS   Engine = "js"
)

// ErrEngineUnavailable indicates a guard engine that is unknown or not
// compiled into the binary.
var ErrEngineUnavailable = errors.New("scoped: guard engine unavailable")

// GuardContext is what a guard expression sees when a scope is opened.
// Metadata is a fresh copy of the kind metadata on every open.
type GuardContext struct {
	Kind       string
	Depth      int
	MaxNesting int
	Value      any
	Metadata   map[string]any
	Now        *time.Time
}

func (ctx GuardContext) withDefaults() GuardContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx GuardContext) timestamp() time.Time {
	return *ctx.withDefaults().Now
}

// variables exposes the context under the names guard expressions use.
func (ctx GuardContext) variables() map[string]any {
	ctx = ctx.withDefaults()
	return map[string]any{
		"kind":        ctx.Kind,
		"depth":       ctx.Depth,
		"max_nesting": ctx.MaxNesting,
		"value":       ctx.Value,
		"metadata":    ctx.Metadata,
		"now":         *ctx.Now,
	}
}

// Evaluator runs guard expressions.
type Evaluator interface {
	Evaluate(ctx GuardContext, expr string) (any, error)
	Compile(expr string) (CompiledGuard, error)
}

// CompiledGuard is a guard expression compiled once and run per open.
type CompiledGuard interface {
	Evaluate(ctx GuardContext) (any, error)
}

// GuardOption configures a guard declared with WithGuard.
type GuardOption func(*guardSpec)

type guardSpec struct {
	expression string
	engine     Engine
	evaluator  Evaluator
	functions  *FunctionRegistry
	errs       []error
}

// GuardWithEngine selects the expression language. The default is expr.
func GuardWithEngine(engine Engine) GuardOption {
	return func(spec *guardSpec) {
		spec.engine = engine
	}
}

// GuardWithEvaluator runs the guard on a custom evaluator. Functions
// registered with GuardWithFunction are ignored; configure them on the
// evaluator instead.
func GuardWithEvaluator(evaluator Evaluator) GuardOption {
	return func(spec *guardSpec) {
		spec.evaluator = evaluator
	}
}

// GuardWithFunction makes fn callable from the guard expression as name.
func GuardWithFunction(name string, fn Function) GuardOption {
	return func(spec *guardSpec) {
		if spec.functions == nil {
			spec.functions = NewFunctionRegistry()
		}
		if err := spec.functions.Register(name, fn); err != nil {
			spec.errs = append(spec.errs, err)
		}
	}
}

// GuardWithFunctionRegistry makes every function of registry callable from
// the guard expression.
func GuardWithFunctionRegistry(registry *FunctionRegistry) GuardOption {
	return func(spec *guardSpec) {
		if registry != nil {
			spec.functions = registry.Clone()
		}
	}
}

// WithGuard declares a boolean expression checked every time a scope of the
// kind is opened, after the nesting check. A false result refuses the open.
// Guards are compiled when the kind is defined and are not inherited.
func WithGuard(expression string, opts ...GuardOption) KindOption {
	spec := &guardSpec{expression: strings.TrimSpace(expression), engine: EngineExpr}
	for _, opt := range opts {
		if opt != nil {
			opt(spec)
		}
	}
	return func(cfg *kindConfig) {
		cfg.guard = spec
	}
}

type guard struct {
	expression string
	engine     Engine
	rule       CompiledGuard
}

func compileGuard(kindName string, spec *guardSpec) (*guard, error) {
	if spec.expression == "" {
		return nil, fmt.Errorf("%w: %s: guard expression must not be empty", ErrInvalidOptions, kindName)
	}
	if len(spec.errs) > 0 {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidOptions, kindName, errors.Join(spec.errs...))
	}
	evaluator, err := spec.resolveEvaluator()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidOptions, kindName, err)
	}
	rule, err := evaluator.Compile(spec.expression)
	if err != nil {
		err = wrapEvaluationError(spec.engine, spec.expression, kindName, err)
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidOptions, kindName, err)
	}
	return &guard{expression: spec.expression, engine: spec.engine, rule: rule}, nil
}

func (spec *guardSpec) resolveEvaluator() (Evaluator, error) {
	if spec.evaluator != nil {
		if spec.engine == EngineExpr {
			spec.engine = "custom"
		}
		return spec.evaluator, nil
	}
	var evaluator Evaluator
	switch spec.engine {
	case EngineExpr, "":
		spec.engine = EngineExpr
		evaluator = NewExprEvaluator(ExprWithFunctionRegistry(spec.functions))
	case EngineCEL:
		evaluator = NewCELEvaluator(CELWithFunctionRegistry(spec.functions))
	case EngineJS:
		evaluator = NewJSEvaluator(JSWithFunctionRegistry(spec.functions))
	}
	if evaluator == nil {
		return nil, fmt.Errorf("%w: %q", ErrEngineUnavailable, spec.engine)
	}
	return evaluator, nil
}

// check runs the guard and returns ErrGuardRejected when it evaluates to
// false, or an *EvaluationError when it fails or yields a non-boolean.
func (g *guard) check(k *kind, ctx GuardContext) error {
	start := time.Now()
	result, err := g.rule.Evaluate(ctx.withDefaults())
	err = wrapEvaluationError(g.engine, g.expression, k.name, err)
	if err == nil {
		if allowed, ok := result.(bool); !ok {
			err = wrapEvaluationError(g.engine, g.expression, k.name, fmt.Errorf("guard returned %T, want bool", result))
		} else if !allowed {
			err = ErrGuardRejected
		}
	}
	k.logger.LogLifecycle(LifecycleEvent{
		Action:   ActionGuard,
		Kind:     k.name,
		Depth:    ctx.Depth,
		Guard:    g.expression,
		Duration: time.Since(start),
		Err:      err,
	})
	return err
}
