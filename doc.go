// Package scoped provides dynamically scoped values: per-kind stacks of open
// scopes whose top is the "current" value for code running below it.
//
// Stacks live in a Local bound to a context. Bind one at the top of every
// goroutine that opens scopes:
//
//	var Session = scoped.MustDefine[*User]("Session")
//
//	ctx = scoped.Bind(ctx)
//	err := scoped.With(ctx, Session, user, func(ctx context.Context) error {
//		current, err := Session.Value(ctx)
//		...
//	})
//
// A Local must not be shared between goroutines. Re-bind before starting
// work in a new goroutine, even when handing it the caller's context:
//
//	go func() {
//		ctx := scoped.Bind(ctx)
//		_ = scoped.With(ctx, Session, worker, process)
//	}()
//
// Derived kinds share their parent's stack unless they opt out with
// WithInheritStack(false). Misuse is reported as *Error values matching the
// kind's classes (Err, ErrMissing, ErrLifecycle) and the package-wide
// ErrScoped, ErrMissing and ErrLifecycle.
package scoped
