package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/foilscan/internal/collector"
	"github.com/nao1215/foilscan/internal/crawler"
	"github.com/nao1215/foilscan/internal/model"
	"github.com/nao1215/foilscan/internal/stats"
)

// Step names as recorded in the document.
const (
	StepSession   = "session"
	StepNavigate  = "navigate"
	StepDiscover  = "discover"
	StepAggregate = "aggregate"
)

// SessionStep starts the browser and applies the stored credential.
type SessionStep struct {
	engine *crawler.Engine
}

// NewSessionStep creates a SessionStep.
func NewSessionStep(engine *crawler.Engine) *SessionStep {
	return &SessionStep{engine: engine}
}

// Do implements Step.
func (s *SessionStep) Do(ctx context.Context, _ *model.Run) error {
	return s.engine.Open(ctx)
}

// Name implements Step.
func (s *SessionStep) Name() string { return StepSession }

// NavigateStep brings the browser to the content surface.
type NavigateStep struct {
	engine *crawler.Engine
}

// NewNavigateStep creates a NavigateStep.
func NewNavigateStep(engine *crawler.Engine) *NavigateStep {
	return &NavigateStep{engine: engine}
}

// Do implements Step. A manual login that refreshed the credential is
// recorded in the run even when navigation ultimately fails.
func (s *NavigateStep) Do(ctx context.Context, run *model.Run) error {
	err := s.engine.Navigate(ctx)
	run.CredentialRefreshed = s.engine.CredentialRefreshed()
	return err
}

// Name implements Step.
func (s *NavigateStep) Name() string { return StepNavigate }

// DiscoverStep scrolls the surface and feeds every content block through
// the collector. Qualifying posts are appended to the run as they are
// found, so a failure mid-way keeps everything collected so far.
type DiscoverStep struct {
	engine    *crawler.Engine
	collector *collector.Collector
	logger    *slog.Logger
}

// NewDiscoverStep creates a DiscoverStep.
func NewDiscoverStep(engine *crawler.Engine, coll *collector.Collector, logger *slog.Logger) *DiscoverStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscoverStep{engine: engine, collector: coll, logger: logger}
}

// Do implements Step.
func (s *DiscoverStep) Do(ctx context.Context, run *model.Run) error {
	err := s.engine.Discover(ctx, func(block model.RawContentBlock) error {
		if post, ok := s.collector.Collect(block); ok {
			run.AddPost(post)
		}
		return nil
	})

	st := s.collector.Stats()
	s.logger.Info("discovery finished",
		"surface", run.Surface,
		"blocks", st.Seen,
		"posts", st.Retained,
		"short", st.Short,
		"duplicates", st.Duplicate,
		"dropped", st.Dropped,
		"anomalies", st.Anomalies,
	)
	return err
}

// Name implements Step.
func (s *DiscoverStep) Name() string { return StepDiscover }

// AggregateStep computes the run statistics from the collected posts.
type AggregateStep struct{}

// NewAggregateStep creates an AggregateStep.
func NewAggregateStep() *AggregateStep {
	return &AggregateStep{}
}

// Do implements Step.
func (s *AggregateStep) Do(_ context.Context, run *model.Run) error {
	run.Statistics = stats.Aggregate(run.Posts)
	return nil
}

// Name implements Step.
func (s *AggregateStep) Name() string { return StepAggregate }
