package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/foilscan/internal/collector"
	"github.com/nao1215/foilscan/internal/crawler"
	"github.com/nao1215/foilscan/internal/metrics"
	"github.com/nao1215/foilscan/internal/model"
	"github.com/nao1215/foilscan/internal/stats"
)

// Sink receives the document of every finished run.
type Sink interface {
	Persist(ctx context.Context, doc *model.Document) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, doc *model.Document) error

// Persist implements Sink.
func (f SinkFunc) Persist(ctx context.Context, doc *model.Document) error {
	return f(ctx, doc)
}

// Runner executes one capture from browser start to persisted document.
type Runner struct {
	engine    *crawler.Engine
	collector *collector.Collector
	sinks     []Sink
	metrics   *metrics.Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSinks adds sinks that receive the finished document, in order.
func WithSinks(sinks ...Sink) RunnerOption {
	return func(r *Runner) {
		r.sinks = append(r.sinks, sinks...)
	}
}

// WithRunnerMetrics records run outcomes in recorder.
func WithRunnerMetrics(recorder *metrics.Recorder) RunnerOption {
	return func(r *Runner) {
		r.metrics = recorder
	}
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithRunnerClock overrides time.Now.
func WithRunnerClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a Runner around engine and coll. Each Runner serves a
// single run because both keep per-run state.
func NewRunner(engine *crawler.Engine, coll *collector.Collector, opts ...RunnerOption) *Runner {
	r := &Runner{
		engine:    engine,
		collector: coll,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Pipeline returns the steps the runner executes.
func (r *Runner) Pipeline() *Pipeline {
	p := New(WithLogger(r.logger))
	p.AddSteps(
		NewSessionStep(r.engine),
		NewNavigateStep(r.engine),
		NewDiscoverStep(r.engine, r.collector, r.logger),
		NewAggregateStep(),
	)
	return p
}

// Run executes the pipeline for run and persists the resulting document.
//
// The document is produced and persisted whatever the outcome: failed and
// interrupted runs carry the posts collected before they stopped. Sinks
// are called with a context that ignores the cancellation of ctx so that
// an interrupted run is still saved. The returned error is the pipeline
// error, or a persistence error when the pipeline succeeded.
func (r *Runner) Run(ctx context.Context, run *model.Run) (*model.Document, error) {
	start := r.now()

	p := r.Pipeline()
	r.logger.Debug("starting run", "surface", run.Surface, "run_id", run.ID, "steps", p.StepNames())
	err := p.Execute(ctx, run)

	if st := r.engine.State(); !st.Terminal() {
		r.logger.Debug("engine stopped early", "surface", run.Surface, "state", st.String())
	}
	if cerr := r.engine.Close(); cerr != nil {
		r.logger.Warn("closing browser failed", "surface", run.Surface, "error", cerr)
	}

	if !run.HasStep(StepAggregate) {
		run.Statistics = stats.Aggregate(run.Posts)
	}
	run.CredentialRefreshed = r.engine.CredentialRefreshed()
	run.Finish(err, r.now())

	doc := run.Document()
	perr := r.persist(context.WithoutCancel(ctx), doc)

	elapsed := r.now().Sub(start)
	r.metrics.RunFinished(run.Surface, string(run.Status), len(run.Posts), elapsed)

	r.logger.Info("run finished",
		"surface", run.Surface,
		"run_id", run.ID,
		"status", run.Status,
		"posts", len(run.Posts),
		"elapsed", elapsed,
	)

	if err != nil {
		if perr != nil {
			r.logger.Error("persisting partial results failed", "surface", run.Surface, "error", perr)
		}
		return doc, err
	}
	return doc, perr
}

func (r *Runner) persist(ctx context.Context, doc *model.Document) error {
	var errs []error
	for _, sink := range r.sinks {
		if err := sink.Persist(ctx, doc); err != nil {
			errs = append(errs, fmt.Errorf("persist document: %w", err))
		}
	}
	return errors.Join(errs...)
}
