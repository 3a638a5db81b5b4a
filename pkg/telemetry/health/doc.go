// Package health serves liveness and readiness probes for long-running
// commands.
//
// Watch mode registers a check on the outcome of the latest build, so a
// topology that stops compiling turns the readiness probe red while the
// previous output stays in place:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("last_build", func(ctx context.Context) error {
//		return runner.LastError()
//	})
//	health.Register(mux, checker, version, commit, buildDate)
package health
