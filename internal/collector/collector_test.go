package collector

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/foilscan/internal/metrics"
	"github.com/nao1215/foilscan/internal/model"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCollector(opts ...Option) *Collector {
	base := []Option{
		WithClock(func() time.Time { return fixedTime }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(append(base, opts...)...)
}

func block(order int, text string) model.RawContentBlock {
	return model.RawContentBlock{Text: text, Order: order}
}

// TestCollect tests filtering, extraction and id assignment.
func TestCollect(t *testing.T) {
	t.Parallel()

	t.Run("qualifying block becomes a post", func(t *testing.T) {
		t.Parallel()

		c := newTestCollector()
		text := "Loving my ART 999 and the BSC1060 for downwind. I weigh 80kg now."
		post, ok := c.Collect(block(0, text))
		if !ok {
			t.Fatal("expected block to qualify")
		}

		weight := 176
		want := model.PostRecord{
			ID:             1,
			TextExcerpt:    text,
			FoilsMentioned: []string{"ART 999", "BSC 1060"},
			RiderWeight:    &weight,
			UseCase:        model.UseCaseDownwind,
			Sentiment:      model.SentimentNeutral,
			CapturedAt:     fixedTime,
		}
		if diff := cmp.Diff(want, post); diff != "" {
			t.Errorf("post mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("short block is noise", func(t *testing.T) {
		t.Parallel()

		c := newTestCollector()
		if _, ok := c.Collect(block(0, "ART 999 rocks")); ok {
			t.Error("expected short block to be skipped")
		}
		if c.Stats().Short != 1 {
			t.Errorf("expected 1 short block, got %+v", c.Stats())
		}
	})

	t.Run("threshold counts characters not bytes", func(t *testing.T) {
		t.Parallel()

		c := newTestCollector(WithMinTextLength(10))
		// nine runes, eighteen bytes
		if _, ok := c.Collect(block(0, "ääääääääw")); ok {
			t.Error("expected nine character block to be skipped")
		}
	})

	t.Run("identical text yields exactly one post", func(t *testing.T) {
		t.Parallel()

		c := newTestCollector()
		text := "Anyone winging the Spitfire 1180 in light wind? Looking for tips please."
		_, first := c.Collect(block(0, text))
		_, second := c.Collect(block(1, text))
		if !first || second {
			t.Errorf("got first=%v second=%v, expected true false", first, second)
		}
		if c.Stats().Duplicate != 1 {
			t.Errorf("expected 1 duplicate, got %+v", c.Stats())
		}
	})

	t.Run("signal-free block is dropped regardless of sentiment and skill", func(t *testing.T) {
		t.Parallel()

		c := newTestCollector()
		text := "Amazing and awesome day out there, I am an experienced rider for sure!"
		if _, ok := c.Collect(block(0, text)); ok {
			t.Error("expected block without foil, weight or use case to be dropped")
		}
		if c.Stats().Dropped != 1 {
			t.Errorf("expected 1 dropped, got %+v", c.Stats())
		}
	})

	t.Run("ids are sequential over retained posts only", func(t *testing.T) {
		t.Parallel()

		c := newTestCollector()
		texts := []string{
			"First post about the HPS 980 on a windy afternoon session out there.",
			"too short",
			"Nothing useful to extract from this particular block of text at all.",
			"Second post, riding the Tempo 1090 downwind with friends on the coast.",
		}
		var ids []int
		for i, text := range texts {
			if post, ok := c.Collect(block(i, text)); ok {
				ids = append(ids, post.ID)
			}
		}
		if diff := cmp.Diff([]int{1, 2}, ids); diff != "" {
			t.Errorf("ids mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("excerpt is truncated to configured characters", func(t *testing.T) {
		t.Parallel()

		c := newTestCollector(WithExcerptLength(20))
		text := "Surge 890 " + strings.Repeat("é", 100)
		post, ok := c.Collect(block(0, text))
		if !ok {
			t.Fatal("expected block to qualify")
		}
		if got := len([]rune(post.TextExcerpt)); got != 20 {
			t.Errorf("got excerpt of %d characters, expected 20", got)
		}
	})

	t.Run("foils are never nil", func(t *testing.T) {
		t.Parallel()

		c := newTestCollector()
		post, ok := c.Collect(block(0, "Trying to learn to wing foil this summer with a big board, any advice?"))
		if !ok {
			t.Fatal("expected block to qualify")
		}
		if post.FoilsMentioned == nil {
			t.Error("expected empty, non-nil foil list")
		}
	})
}

// TestCollectExtractionAnomaly tests that a panicking extractor skips the
// block instead of aborting collection.
func TestCollectExtractionAnomaly(t *testing.T) {
	t.Parallel()

	extractor := func(text string) model.Fields {
		if strings.Contains(text, "boom") {
			panic("malformed block")
		}
		return model.Fields{Foils: []string{"ART 999"}, Sentiment: model.SentimentNeutral}
	}
	recorder := metrics.NewRecorder()
	c := newTestCollector(WithExtractor(extractor), WithMetrics(recorder, "axis"))

	if _, ok := c.Collect(block(0, "boom "+strings.Repeat("x", 60))); ok {
		t.Error("expected anomalous block to be skipped")
	}
	post, ok := c.Collect(block(1, "fine "+strings.Repeat("y", 60)))
	if !ok {
		t.Fatal("expected collection to continue after anomaly")
	}
	if post.ID != 1 {
		t.Errorf("got id %d, expected 1", post.ID)
	}
	if c.Stats().Anomalies != 1 {
		t.Errorf("expected 1 anomaly, got %+v", c.Stats())
	}
}
