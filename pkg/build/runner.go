package build

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"underway-hq/underway/pkg/config"
	"underway-hq/underway/pkg/document"
	"underway-hq/underway/pkg/history"
	"underway-hq/underway/pkg/telemetry/logging"
	"underway-hq/underway/pkg/telemetry/metrics"
	"underway-hq/underway/pkg/telemetry/tracing"
	"underway-hq/underway/pkg/topology"
	"underway-hq/underway/pkg/world"
)

// Result describes one build.
type Result struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Source    string

	// Documents is the number of documents the source produced.
	Documents int

	// Calls is the number of compile steps taken.
	Calls int

	// Output is the compiled topology. Nil when the build failed.
	Output topology.Node

	// Data is the encoded output. Nil for Check and on failure.
	Data []byte

	// Digest is the hex sha256 of Data.
	Digest string

	// Err is the error that failed the build, also returned by Build.
	Err error
}

// Succeeded reports whether the build produced output.
func (r *Result) Succeeded() bool {
	return r.Err == nil
}

// Runner loads, compiles and writes topologies. Builds on one Runner are
// serialized.
type Runner struct {
	source   world.Source
	maxDepth int
	variant  topology.Variant
	format   document.Format
	output   string
	writer   io.Writer

	history history.Store
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	logger  *slog.Logger

	mu sync.Mutex

	lastMu sync.RWMutex
	last   *Result
}

// ErrNoBuild is returned by LastError before the first build finishes.
var ErrNoBuild = errors.New("no build has finished yet")

// NewRunner creates a runner for src using the compiler and output sections
// of cfg.
func NewRunner(src world.Source, cfg *config.Config) (*Runner, error) {
	if src == nil {
		return nil, errors.New("source cannot be nil")
	}
	variant, err := topology.ParseVariant(cfg.Compiler.Variant)
	if err != nil {
		return nil, err
	}
	format, err := document.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	return &Runner{
		source:   src,
		maxDepth: cfg.Compiler.MaxDepth,
		variant:  variant,
		format:   format,
		output:   cfg.Output.Path,
		writer:   os.Stdout,
		tracer:   tracing.Noop(),
		logger:   slog.Default().With("component", "build"),
	}, nil
}

// WithWriter sets where output goes when no output path is configured.
func (r *Runner) WithWriter(w io.Writer) *Runner {
	r.writer = w
	return r
}

// WithHistory records every build in store.
func (r *Runner) WithHistory(store history.Store) *Runner {
	r.history = store
	return r
}

// WithMetrics records build metrics in c.
func (r *Runner) WithMetrics(c *metrics.Collector) *Runner {
	r.metrics = c
	return r
}

// WithTracer runs every build inside a span of t.
func (r *Runner) WithTracer(t *tracing.Tracer) *Runner {
	r.tracer = t
	return r
}

// WithLogger sets the logger.
func (r *Runner) WithLogger(l *slog.Logger) *Runner {
	r.logger = l
	return r
}

// Source returns the runner's world source.
func (r *Runner) Source() world.Source {
	return r.source
}

// Build loads the world, compiles root and writes the result. The returned
// Result is non-nil even when err is not.
func (r *Runner) Build(ctx context.Context) (*Result, error) {
	return r.run(ctx, true)
}

// Check compiles without writing output.
func (r *Runner) Check(ctx context.Context) (*Result, error) {
	return r.run(ctx, false)
}

func (r *Runner) run(ctx context.Context, write bool) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := &Result{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Source:    r.source.Name(),
	}

	ctx = logging.WithBuildID(ctx, res.ID)
	ctx = logging.WithSource(ctx, res.Source)
	ctx, span := r.tracer.Start(ctx, "topology.build")
	defer span.End()

	res.Err = r.compile(ctx, span, res, write)
	res.Duration = time.Since(res.StartedAt)

	tracing.SetBuildAttributes(span, res.ID, res.Source, res.Documents)
	tracing.SetCompileAttributes(span, string(r.variant), r.maxDepth, res.Calls)
	tracing.SetError(span, res.Err)
	tracing.SetStatus(span, res.Err)

	r.record(ctx, res)

	r.lastMu.Lock()
	r.last = res
	r.lastMu.Unlock()
	return res, res.Err
}

// Last returns the most recent build or check, or nil.
func (r *Runner) Last() *Result {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	return r.last
}

// LastError returns the error of the most recent build, or ErrNoBuild when
// nothing has run.
func (r *Runner) LastError() error {
	last := r.Last()
	if last == nil {
		return ErrNoBuild
	}
	return last.Err
}

func (r *Runner) compile(ctx context.Context, span trace.Span, res *Result, write bool) error {
	w, err := r.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load documents from %s: %w", res.Source, err)
	}
	res.Documents = len(w)
	if r.metrics != nil {
		r.metrics.UpdateDocuments(res.Source, len(w))
	}

	c, err := topology.NewCompiler(w)
	if err != nil {
		return err
	}
	c.WithMaxDepth(r.maxDepth).WithVariant(r.variant)
	if r.metrics != nil {
		c.WithObserver(r.metrics)
	}

	out, err := c.CompileRoot()
	res.Calls = c.Calls()
	if err != nil {
		if kind, ok := topology.KindOf(err); ok {
			tracing.SetCompileError(span, string(kind), kind.Code())
		}
		return err
	}
	res.Output = out

	if !write {
		return nil
	}

	data, err := document.Encode(out, r.format)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	sum := sha256.Sum256(data)
	res.Data = data
	res.Digest = hex.EncodeToString(sum[:])

	if r.output == "" || r.output == "-" {
		if _, err := r.writer.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else if err := document.WriteAtomic(r.output, data); err != nil {
		return err
	}
	tracing.SetOutputAttributes(span, r.output, len(data))
	return nil
}

func (r *Runner) record(ctx context.Context, res *Result) {
	status := history.StatusSuccess
	entry := history.Entry{
		ID:           res.ID,
		StartedAt:    res.StartedAt,
		Duration:     res.Duration,
		Source:       res.Source,
		Calls:        res.Calls,
		OutputDigest: res.Digest,
	}

	var errorKind string
	if res.Err != nil {
		status = history.StatusFailure
		entry.ErrorMessage = res.Err.Error()
		var cerr *topology.ConfigError
		if errors.As(res.Err, &cerr) {
			errorKind = string(cerr.Kind)
			entry.ErrorKind = errorKind
			entry.ErrorCode = cerr.Code()
			entry.ErrorMessage = cerr.Message
		}
	}
	entry.Status = status

	if r.metrics != nil {
		r.metrics.RecordBuild(status, errorKind, res.Duration, res.Calls, len(res.Data))
	}

	if r.history != nil {
		if err := r.history.Record(ctx, entry); err != nil {
			r.logger.WarnContext(ctx, "failed to record build history", "error", err)
		}
	}

	attrs := []any{
		"build_id", res.ID,
		"source", res.Source,
		"documents", res.Documents,
		"calls", res.Calls,
		"duration", res.Duration,
	}
	if res.Err != nil {
		r.logger.ErrorContext(ctx, "build failed", append(attrs, "error", res.Err)...)
		return
	}
	if res.Digest != "" {
		attrs = append(attrs, "digest", res.Digest[:12])
	}
	r.logger.InfoContext(ctx, "build finished", attrs...)
}
