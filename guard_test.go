package scoped

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestExprGuardLimitsDepth(t *testing.T) {
	ctx := bound()
	k := MustDefine[int]("Guarded", WithGuard("depth < 1"))

	first := mustOpen(t, ctx, k.New(1))
	_, err := k.New(2).Open(ctx)
	if !errors.Is(err, ErrGuardRejected) || !errors.Is(err, k.ErrLifecycle()) {
		t.Fatalf("expected guard rejection, got %v", err)
	}
	if k.Depth(ctx) != 1 {
		t.Fatalf("rejected open must not push")
	}
	mustClose(t, ctx, first)
}

func TestExprGuardSeesValueAndMetadata(t *testing.T) {
	ctx := bound()
	k := MustDefine[*session]("Session",
		WithMetadata(map[string]any{"tier": "gold"}),
		WithGuard(`value.User != "" && metadata.tier == "gold" && kind == "Session" && max_nesting == 16`),
	)

	if err := k.New(&session{User: "ada"}).Use(ctx, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("expected guard to allow, got %v", err)
	}
	if _, err := k.New(&session{}).Open(ctx); !errors.Is(err, ErrGuardRejected) {
		t.Fatalf("expected guard rejection for anonymous session, got %v", err)
	}
}

func TestGuardFunctions(t *testing.T) {
	ctx := bound()
	banned := map[string]bool{"mallory": true}
	k := MustDefine[string]("Login", WithGuard("!isBanned(value)",
		GuardWithFunction("isBanned", func(args ...any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("isBanned expects 1 argument, got %d", len(args))
			}
			name, _ := args[0].(string)
			return banned[name], nil
		}),
	))

	if err := With(ctx, k, "alice", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("expected alice allowed, got %v", err)
	}
	if err := With(ctx, k, "mallory", func(context.Context) error { return nil }); !errors.Is(err, ErrGuardRejected) {
		t.Fatalf("expected mallory rejected, got %v", err)
	}
}

func TestCELGuard(t *testing.T) {
	ctx := bound()
	k := MustDefine[map[string]any]("Request",
		WithMaxNesting(3),
		WithGuard(`value.role == "admin" && depth < max_nesting - 1`, GuardWithEngine(EngineCEL)),
	)

	admin := map[string]any{"role": "admin"}
	a := mustOpen(t, ctx, k.New(admin))
	b := mustOpen(t, ctx, k.New(admin))
	if _, err := k.New(admin).Open(ctx); !errors.Is(err, ErrGuardRejected) {
		t.Fatalf("expected depth guard rejection, got %v", err)
	}
	mustClose(t, ctx, b)
	if _, err := k.New(map[string]any{"role": "guest"}).Open(ctx); !errors.Is(err, ErrGuardRejected) {
		t.Fatalf("expected role guard rejection, got %v", err)
	}
	mustClose(t, ctx, a)
}

func TestCELGuardHidesNonMapValues(t *testing.T) {
	ctx := bound()
	k := MustDefine[int]("Counter", WithGuard("size(value) == 0", GuardWithEngine(EngineCEL)))
	if err := With(ctx, k, 42, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("expected guard to see an empty map, got %v", err)
	}
}

func TestCELGuardFunctions(t *testing.T) {
	ctx := bound()
	k := MustDefine[map[string]any]("Tenant", WithGuard(`allowed(value.tenant, kind)`,
		GuardWithEngine(EngineCEL),
		GuardWithFunction("allowed", func(args ...any) (any, error) {
			return args[0] == "acme" && args[1] == "Tenant", nil
		}),
	))
	if err := With(ctx, k, map[string]any{"tenant": "acme"}, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("expected acme allowed, got %v", err)
	}
	if err := With(ctx, k, map[string]any{"tenant": "initech"}, func(context.Context) error { return nil }); !errors.Is(err, ErrGuardRejected) {
		t.Fatalf("expected initech rejected, got %v", err)
	}
}

func TestGuardCompileFailure(t *testing.T) {
	_, err := Define[int]("Broken", WithGuard("depth <"))
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions, got %v", err)
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Engine != "expr" || evalErr.Kind != "Broken" {
		t.Fatalf("expected expr EvaluationError, got %v", err)
	}

	if _, err := Define[int]("BrokenCEL", WithGuard("depth <", GuardWithEngine(EngineCEL))); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions for CEL, got %v", err)
	}
}

func TestGuardDefinitionErrors(t *testing.T) {
	if _, err := Define[int]("Blank", WithGuard("  ")); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected empty guard rejected, got %v", err)
	}
	fn := func(...any) (any, error) { return true, nil }
	_, err := Define[int]("Dup", WithGuard("f()", GuardWithFunction("f", fn), GuardWithFunction("f", fn)))
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("expected duplicate function rejected, got %v", err)
	}
	if _, err := Define[int]("Unknown", WithGuard("true", GuardWithEngine("lua"))); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected unknown engine rejected, got %v", err)
	}
}

func TestGuardNonBooleanResult(t *testing.T) {
	ctx := bound()
	k := MustDefine[int]("Stringly", WithGuard(`"yes"`))
	_, err := k.New(1).Open(ctx)
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || !IsLifecycle(err) {
		t.Fatalf("expected lifecycle error wrapping EvaluationError, got %v", err)
	}
	if errors.Is(err, ErrGuardRejected) {
		t.Fatalf("non-boolean result is an evaluation failure, not a rejection")
	}
}

func TestGuardIsNotInherited(t *testing.T) {
	ctx := bound()
	closed := MustDefine[int]("Closed", WithGuard("false"))
	open := closed.MustDerive("Opened")

	if _, err := closed.New(1).Open(ctx); !errors.Is(err, ErrGuardRejected) {
		t.Fatalf("expected parent guard to reject, got %v", err)
	}
	if err := With(ctx, open, 1, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("expected derived kind to open without the parent's guard, got %v", err)
	}
}

type staticGuard struct {
	result any
}

func (g staticGuard) Evaluate(GuardContext) (any, error) { return g.result, nil }

type staticEvaluator struct {
	result   any
	compiled *[]string
}

func (e staticEvaluator) Evaluate(GuardContext, string) (any, error) { return e.result, nil }

func (e staticEvaluator) Compile(expr string) (CompiledGuard, error) {
	*e.compiled = append(*e.compiled, expr)
	return staticGuard{result: e.result}, nil
}

func TestGuardWithCustomEvaluator(t *testing.T) {
	ctx := bound()
	var compiled []string
	k := MustDefine[int]("Custom", WithGuard("anything", GuardWithEvaluator(staticEvaluator{result: false, compiled: &compiled})))
	if _, err := k.New(1).Open(ctx); !errors.Is(err, ErrGuardRejected) {
		t.Fatalf("expected custom evaluator rejection, got %v", err)
	}
	if _, err := k.New(2).Open(ctx); !errors.Is(err, ErrGuardRejected) {
		t.Fatalf("expected custom evaluator rejection, got %v", err)
	}
	if len(compiled) != 1 || compiled[0] != "anything" {
		t.Fatalf("expected a single compilation at definition, got %v", compiled)
	}
}

func TestGuardEvaluationIsLogged(t *testing.T) {
	ctx := bound()
	var events []LifecycleEvent
	k := MustDefine[int]("Logged",
		WithGuard("depth == 0"),
		WithLogger(LifecycleLoggerFunc(func(e LifecycleEvent) { events = append(events, e) })),
	)
	mustOpen(t, ctx, k.New(1))

	if len(events) != 2 || events[0].Action != ActionGuard || events[1].Action != ActionOpened {
		t.Fatalf("expected guard then opened events, got %+v", events)
	}
	if events[0].Guard != "depth == 0" || events[0].Err != nil {
		t.Fatalf("unexpected guard event %+v", events[0])
	}
}

func TestFunctionRegistryNames(t *testing.T) {
	registry := NewFunctionRegistry()
	fn := func(...any) (any, error) { return nil, nil }

	for _, name := range []string{"", "1st", "has-dash", "depth", "metadata"} {
		if err := registry.Register(name, fn); !errors.Is(err, ErrFunctionName) {
			t.Fatalf("expected %q rejected, got %v", name, err)
		}
	}
	if err := registry.Register("isOwner", fn); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("is_owner2", fn); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got := registry.Names(); len(got) != 2 || got[0] != "isOwner" || got[1] != "is_owner2" {
		t.Fatalf("unexpected names %v", got)
	}
	if _, err := registry.Call("missing"); !errors.Is(err, ErrFunctionNotFound) {
		t.Fatalf("expected ErrFunctionNotFound, got %v", err)
	}

	clone := registry.Clone()
	_ = registry.Register("later", fn)
	if clone.Len() != 2 {
		t.Fatalf("clone should not see later registrations, has %d", clone.Len())
	}
}

func TestGuardCannotMutateKindMetadata(t *testing.T) {
	ctx := bound()
	k := MustDefine[int]("Stamped",
		WithMetadata(map[string]any{"team": "core"}),
		WithGuard("stamp(metadata)", GuardWithFunction("stamp", func(args ...any) (any, error) {
			metadata, ok := args[0].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected map, got %T", args[0])
			}
			if _, seen := metadata["stamped"]; seen {
				return false, nil
			}
			metadata["stamped"] = true
			return true, nil
		})),
	)

	for i := 0; i < 2; i++ {
		scope := mustOpen(t, ctx, k.New(i))
		mustClose(t, ctx, scope)
	}
	if _, leaked := k.Metadata()["stamped"]; leaked {
		t.Fatalf("guard write leaked into kind metadata: %v", k.Metadata())
	}
}

func TestJSEvaluatorMatchesBuild(t *testing.T) {
	if got := NewJSEvaluator() != nil; got != jsEvaluatorAvailable() {
		t.Fatalf("NewJSEvaluator non-nil = %v, available = %v", got, jsEvaluatorAvailable())
	}
}
