//go:build js_eval

package scoped

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	registry *FunctionRegistry
}

// NewJSEvaluator constructs an Evaluator backed by goja. Struct payloads are
// exposed through their json tags.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	cfg := applyJSEvaluatorOptions(opts)
	return &jsEvaluator{registry: cfg.registry}
}

func (e *jsEvaluator) Evaluate(ctx GuardContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *jsEvaluator) Compile(expression string) (CompiledGuard, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	program, err := goja.Compile("guard", wrapJSExpression(expression), true)
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, expression, "", err)
	}
	return &jsCompiledGuard{evaluator: e, program: program, expression: expression}, nil
}

func (e *jsEvaluator) newRuntime(ctx GuardContext) (*goja.Runtime, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	for name, value := range ctx.variables() {
		if err := vm.Set(name, value); err != nil {
			return nil, err
		}
	}
	for _, name := range e.registry.Names() {
		fn := name
		if err := vm.Set(fn, func(arguments ...any) (any, error) {
			return e.registry.Call(fn, arguments...)
		}); err != nil {
			return nil, err
		}
	}
	return vm, nil
}

func wrapJSExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsCompiledGuard struct {
	evaluator  *jsEvaluator
	program    *goja.Program
	expression string
}

func (g *jsCompiledGuard) Evaluate(ctx GuardContext) (any, error) {
	vm, err := g.evaluator.newRuntime(ctx)
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, g.expression, ctx.Kind, err)
	}
	value, err := vm.RunProgram(g.program)
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, g.expression, ctx.Kind, err)
	}
	return value.Export(), nil
}

func jsEvaluatorAvailable() bool {
	return true
}
