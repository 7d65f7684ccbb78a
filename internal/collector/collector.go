package collector

import (
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/foilscan/internal/extract"
	"github.com/nao1215/foilscan/internal/metrics"
	"github.com/nao1215/foilscan/internal/model"
)

const (
	// DefaultMinTextLength is the shortest block, in characters, that can
	// be a post. Shorter blocks are buttons, timestamps and other chrome.
	DefaultMinTextLength = 50

	// DefaultExcerptLength is how many characters of a post are kept.
	DefaultExcerptLength = 500
)

// Stats counts what happened to the blocks seen so far.
type Stats struct {
	Seen      int
	Short     int
	Duplicate int
	Anomalies int
	Dropped   int
	Retained  int
}

// Collector deduplicates blocks and builds post records.
// A Collector belongs to one run and is not safe for concurrent use.
type Collector struct {
	surface       string
	minLength     int
	excerptLength int
	extract       extract.Func
	now           func() time.Time
	logger        *slog.Logger
	metrics       *metrics.Recorder

	seen   map[[32]byte]struct{}
	nextID int
	stats  Stats
}

// Option configures a Collector.
type Option func(*Collector)

// WithMinTextLength sets the noise threshold in characters.
func WithMinTextLength(n int) Option {
	return func(c *Collector) {
		c.minLength = n
	}
}

// WithExcerptLength sets how many characters of each post are kept.
func WithExcerptLength(n int) Option {
	return func(c *Collector) {
		c.excerptLength = n
	}
}

// WithExtractor replaces the field extraction.
func WithExtractor(fn extract.Func) Option {
	return func(c *Collector) {
		c.extract = fn
	}
}

// WithClock sets the time source for captured_at.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// WithLogger sets the logger used for skipped blocks.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) {
		c.logger = logger
	}
}

// WithMetrics records block outcomes under surface.
func WithMetrics(recorder *metrics.Recorder, surface string) Option {
	return func(c *Collector) {
		c.metrics = recorder
		c.surface = surface
	}
}

// New creates a Collector.
func New(opts ...Option) *Collector {
	c := &Collector{
		minLength:     DefaultMinTextLength,
		excerptLength: DefaultExcerptLength,
		extract:       extract.All,
		now:           time.Now,
		seen:          make(map[[32]byte]struct{}),
		nextID:        1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Collect processes one block. It returns the post and true when the
// block qualifies, or a zero record and false when it was skipped.
func (c *Collector) Collect(block model.RawContentBlock) (model.PostRecord, bool) {
	c.stats.Seen++

	if utf8.RuneCountInString(block.Text) < c.minLength {
		c.skip(metrics.OutcomeShort, &c.stats.Short)
		return model.PostRecord{}, false
	}

	sum := sha3.Sum256([]byte(block.Text))
	if _, dup := c.seen[sum]; dup {
		c.skip(metrics.OutcomeDuplicate, &c.stats.Duplicate)
		return model.PostRecord{}, false
	}
	c.seen[sum] = struct{}{}

	fields, err := c.safeExtract(block.Text)
	if err != nil {
		c.logger.Warn("skipping block",
			"order", block.Order,
			"pass", block.Pass,
			"error", err,
		)
		c.skip(metrics.OutcomeAnomaly, &c.stats.Anomalies)
		return model.PostRecord{}, false
	}

	if !fields.Qualifies() {
		c.skip(metrics.OutcomeDropped, &c.stats.Dropped)
		return model.PostRecord{}, false
	}

	foils := fields.Foils
	if foils == nil {
		foils = make([]string, 0)
	}
	sentiment := fields.Sentiment
	if sentiment == "" {
		sentiment = model.SentimentNeutral
	}

	post := model.PostRecord{
		ID:             c.nextID,
		TextExcerpt:    excerpt(block.Text, c.excerptLength),
		FoilsMentioned: foils,
		RiderWeight:    fields.Weight,
		UseCase:        fields.UseCase,
		SkillLevel:     fields.SkillLevel,
		Sentiment:      sentiment,
		CapturedAt:     c.now().UTC(),
	}
	c.nextID++
	c.stats.Retained++
	c.metrics.Block(c.surface, metrics.OutcomeRetained)

	c.logger.Debug("post collected",
		"id", post.ID,
		"foils", post.FoilsMentioned,
		"use_case", post.UseCase,
	)
	return post, true
}

// Stats returns the block counters.
func (c *Collector) Stats() Stats {
	return c.stats
}

func (c *Collector) skip(outcome string, counter *int) {
	*counter++
	c.metrics.Block(c.surface, outcome)
}

// safeExtract runs the extractor and converts a panic into
// ErrExtractionAnomaly so one malformed block cannot abort the run.
func (c *Collector) safeExtract(text string) (fields model.Fields, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrExtractionAnomaly, r)
		}
	}()
	return c.extract(text), nil
}

// excerpt returns the first n characters of text.
func excerpt(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n])
}
