package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/foilscan/internal/model"
)

// Target is one content surface to capture.
type Target struct {
	// Name identifies the surface in documents and logs.
	Name string
	// URL is the address of the surface.
	URL string
}

// RunnerFactory builds a fresh Runner for a target. Runners hold per-run
// browser and dedup state, so they are never shared between targets.
type RunnerFactory func(target Target) (*Runner, error)

// BatchProcessor captures multiple surfaces concurrently.
type BatchProcessor struct {
	factory     RunnerFactory
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent browsers.
// Default is 2 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(factory RunnerFactory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: 2,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// Result is the outcome of one target in a batch.
type Result struct {
	Target   Target
	Document *model.Document
	Err      error
}

// ProcessBatchWithCallback captures every target and calls callback as
// each one finishes. callback is called from worker goroutines. A failing
// target does not stop the others; its error is kept in its Result. The
// returned error is non-nil only when ctx was cancelled before every target
// could start.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []Target,
	callback func(res Result, index int),
) error {
	bp.logger.Info("starting batch",
		"targets", len(targets),
		"concurrency", bp.concurrency,
	)
	start := time.Now()

	g := new(errgroup.Group)
	g.SetLimit(bp.concurrency)

	var cancelled error
	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		g.Go(func() error {
			bp.logger.Info("capturing surface",
				"surface", target.Name,
				"index", i+1,
				"total", len(targets),
			)

			res := Result{Target: target}
			runner, err := bp.factory(target)
			if err != nil {
				res.Err = err
			} else {
				res.Document, res.Err = runner.Run(ctx, model.NewRun(target.Name, target.URL))
			}

			if res.Err != nil {
				bp.logger.Warn("capture failed", "surface", target.Name, "error", res.Err)
			}
			callback(res, i)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	bp.logger.Info("batch complete",
		"targets", len(targets),
		"elapsed", time.Since(start),
	)
	return cancelled
}
