// Package build runs topology builds: it loads a world from a source,
// compiles its root document and writes the result, recording each build in
// metrics, traces and the build history.
//
// A Runner is long-lived and shared by the compile command, the file watcher
// and the scheduler. Each build uses a fresh compiler, so the compile call
// budget never carries over from one build to the next.
package build
