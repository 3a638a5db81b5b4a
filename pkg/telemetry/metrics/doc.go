// Package metrics exposes Prometheus metrics for topology builds.
//
// # Metrics
//
//   - Build metrics: build count by status and error kind, duration, compile
//     steps per build, output size, time of last success
//   - Include metrics: resolved includes by form (bare, filtered, extracted),
//     documents per source
//   - Trigger metrics: rebuilds by origin (file, schedule), history entries
//     pruned
//
// All metrics share the configured namespace (default "underway").
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	compiler := topology.NewCompiler(w)
//	compiler.WithObserver(collector)
//	collector.RecordBuild("success", "", time.Since(start), compiler.Calls(), len(out))
//
//	http.Handle("/metrics", collector.Handler())
package metrics
