package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nao1215/foilscan/internal/collector"
	"github.com/nao1215/foilscan/internal/crawler"
	"github.com/nao1215/foilscan/internal/crawler/crawlertest"
	"github.com/nao1215/foilscan/internal/metrics"
	"github.com/nao1215/foilscan/internal/model"
	"github.com/nao1215/foilscan/internal/session"
)

const (
	testTarget = "https://social.example.com/groups/axisriders"

	postSpitfire = "Anyone winging the Spitfire 1180 in light wind? I am 85kg and loving it."
	postART      = "Dropped down to the ART 999 for pumping sessions, really smooth and fast."
	postShort    = "nice!"
)

type recordingSink struct {
	mu   sync.Mutex
	docs []*model.Document
	ctxs []context.Context
	err  error
}

func (s *recordingSink) Persist(ctx context.Context, doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
	s.ctxs = append(s.ctxs, ctx)
	return s.err
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func newTestRunner(b *crawlertest.Browser, sink Sink, opts ...RunnerOption) *Runner {
	launcher := crawler.LauncherFunc(func(context.Context) (crawler.Browser, error) { return b, nil })
	store := session.NewMemoryStore(model.NewSessionCredential([]model.Cookie{
		{Name: "c_user", Value: "1", Domain: ".example.com", Path: "/"},
	}))
	engine := crawler.NewEngine(launcher, store, testTarget,
		crawler.WithSleep(noSleep),
		crawler.WithRand(rand.New(rand.NewPCG(3, 4))),
		crawler.WithIterations(2),
		crawler.WithLogger(quietLogger()),
	)
	coll := collector.New(collector.WithLogger(quietLogger()))
	base := []RunnerOption{WithRunnerLogger(quietLogger()), WithSinks(sink)}
	return NewRunner(engine, coll, append(base, opts...)...)
}

// TestRunnerRun tests a complete capture.
func TestRunnerRun(t *testing.T) {
	t.Parallel()

	b := crawlertest.NewBrowser(
		[]string{crawlertest.Article(postSpitfire), crawlertest.Article(postShort)},
		[]string{crawlertest.Article(postSpitfire), crawlertest.Article(postART)},
	)
	sink := &recordingSink{}
	recorder := metrics.NewRecorder()
	runner := newTestRunner(b, sink, WithRunnerMetrics(recorder))

	run := model.NewRun("riders", testTarget)
	doc, err := runner.Run(context.Background(), run)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	t.Run("completes with every step", func(t *testing.T) {
		if doc.Meta.Status != model.RunStatusCompleted {
			t.Errorf("got status %s, expected completed", doc.Meta.Status)
		}
		want := []string{StepSession, StepNavigate, StepDiscover, StepAggregate}
		if diff := cmp.Diff(want, doc.Meta.Steps); diff != "" {
			t.Errorf("steps mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("keeps each qualifying post once in discovery order", func(t *testing.T) {
		if len(doc.Posts) != 2 {
			t.Fatalf("got %d posts, expected 2", len(doc.Posts))
		}
		if diff := cmp.Diff([]string{"SPITFIRE 1180"}, doc.Posts[0].FoilsMentioned); diff != "" {
			t.Errorf("first post foils mismatch (-want +got):\n%s", diff)
		}
		if doc.Posts[0].ID != 1 || doc.Posts[1].ID != 2 {
			t.Errorf("got ids %d, %d", doc.Posts[0].ID, doc.Posts[1].ID)
		}
	})

	t.Run("aggregates statistics", func(t *testing.T) {
		if doc.Statistics.TotalPosts != 2 {
			t.Errorf("got total %d, expected 2", doc.Statistics.TotalPosts)
		}
		if len(doc.Statistics.WeightRecommendations) != 1 {
			t.Errorf("got %d weight recommendations, expected 1", len(doc.Statistics.WeightRecommendations))
		}
	})

	t.Run("persists the document and closes the browser", func(t *testing.T) {
		if len(sink.docs) != 1 || sink.docs[0] != doc {
			t.Fatalf("sink received %d documents", len(sink.docs))
		}
		if b.CloseCalls() != 1 {
			t.Errorf("got %d close calls, expected 1", b.CloseCalls())
		}
	})

	t.Run("records the run outcome", func(t *testing.T) {
		n, err := testutil.GatherAndCount(recorder.Registry(), "foilscan_runs_total")
		if err != nil {
			t.Fatalf("gather: %v", err)
		}
		if n != 1 {
			t.Errorf("got %d run series, expected 1", n)
		}
	})
}

// TestRunnerRunPartialFailure tests that posts collected before a failure
// are persisted with a failed status.
func TestRunnerRunPartialFailure(t *testing.T) {
	t.Parallel()

	b := crawlertest.NewBrowser(
		[]string{crawlertest.Article(postSpitfire)},
		[]string{crawlertest.Article(postSpitfire), crawlertest.Article(postART)},
	)
	b.ScrollErr = errors.New("renderer crashed")
	b.ScrollErrAt = 1
	sink := &recordingSink{}
	runner := newTestRunner(b, sink)

	doc, err := runner.Run(context.Background(), model.NewRun("riders", testTarget))
	if err == nil {
		t.Fatal("expected an error")
	}
	if doc.Meta.Status != model.RunStatusFailed {
		t.Errorf("got status %s, expected failed", doc.Meta.Status)
	}
	if doc.Meta.Failure == "" {
		t.Error("expected the failure reason to be recorded")
	}
	if len(doc.Posts) != 1 {
		t.Errorf("got %d posts, expected the 1 collected before the failure", len(doc.Posts))
	}
	if doc.Statistics.TotalPosts != 1 {
		t.Errorf("statistics should cover the partial posts, got %d", doc.Statistics.TotalPosts)
	}
	if len(sink.docs) != 1 {
		t.Errorf("partial document should still be persisted")
	}
}

// TestRunnerRunCancelled tests that an interrupted run is still persisted.
func TestRunnerRunCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &recordingSink{}
	runner := newTestRunner(crawlertest.NewBrowser(), sink)

	doc, err := runner.Run(ctx, model.NewRun("riders", testTarget))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got error %v, expected context.Canceled", err)
	}
	if doc.Meta.Status != model.RunStatusInterrupted {
		t.Errorf("got status %s, expected interrupted", doc.Meta.Status)
	}
	if len(sink.docs) != 1 {
		t.Fatal("interrupted document should be persisted")
	}
	if sink.ctxs[0].Err() != nil {
		t.Error("sink context should not carry the cancellation")
	}
	if doc.Posts == nil || doc.Statistics == nil {
		t.Error("document collections must not be nil")
	}
}

// TestRunnerRunSinkError tests that persistence failures surface.
func TestRunnerRunSinkError(t *testing.T) {
	t.Parallel()

	sinkErr := errors.New("disk full")
	sink := &recordingSink{err: sinkErr}
	b := crawlertest.NewBrowser([]string{crawlertest.Article(postART)})
	runner := newTestRunner(b, sink)

	doc, err := runner.Run(context.Background(), model.NewRun("riders", testTarget))
	if !errors.Is(err, sinkErr) {
		t.Fatalf("got error %v, expected sink error", err)
	}
	if doc.Meta.Status != model.RunStatusCompleted {
		t.Errorf("a persistence failure does not change the run status, got %s", doc.Meta.Status)
	}
}
