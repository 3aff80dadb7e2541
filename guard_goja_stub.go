//go:build !js_eval

package scoped

// NewJSEvaluator is unavailable without the js_eval build tag and returns
// nil; kinds declaring a js guard fail with ErrEngineUnavailable.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = applyJSEvaluatorOptions(opts)
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
