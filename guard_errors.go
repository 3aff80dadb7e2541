package scoped

import (
	"errors"
	"fmt"
)

// EvaluationError carries the engine, expression and kind of a guard that
// failed to compile or run.
type EvaluationError struct {
	Engine string
	Expr   string
	Kind   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("scoped: %s guard %s kind=%s: %v", e.Engine, describeExpression(e.Expr), e.Kind, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

// wrapEvaluationError attaches guard metadata to err, filling the blanks of an
// EvaluationError already in the chain instead of nesting a second one.
func wrapEvaluationError(engine Engine, expr, kind string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = string(engine)
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Kind == "" {
			evalErr.Kind = kind
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: string(engine),
		Expr:   expr,
		Kind:   kind,
		Err:    err,
	}
}
