package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Run is the mutable state of a single pipeline execution.
// Pipeline steps receive it in sequence and add to it; the driver turns it
// into a Document once the pipeline stops.
type Run struct {
	// ID uniquely identifies the run in the history database.
	ID string

	// Surface is the configured name of the content surface, if any.
	Surface string

	// Source is the address of the content surface.
	Source string

	StartedAt  time.Time
	FinishedAt time.Time

	// Posts are the qualifying posts in collection order.
	Posts []PostRecord

	// Statistics is nil until the aggregation has run.
	Statistics *AggregateStatistics

	Status RunStatus

	// Interrupted is set when the context was cancelled between steps.
	Interrupted bool

	// CredentialRefreshed is set when a manual login produced new cookies.
	CredentialRefreshed bool

	// PerformedSteps lists the steps that ran, in order.
	PerformedSteps []string

	// Error is the error that stopped the run.
	Error error `json:"-"`

	// ErrorMessage is Error rendered as text.
	ErrorMessage string
}

// NewRun creates a run for the given surface.
func NewRun(surface, source string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Surface:   surface,
		Source:    source,
		StartedAt: time.Now().UTC(),
		Posts:     make([]PostRecord, 0),
		Status:    RunStatusRunning,
	}
}

// AddPost appends a qualifying post.
func (r *Run) AddPost(post PostRecord) {
	r.Posts = append(r.Posts, post)
}

// HasStep reports whether a step with the given name already ran.
func (r *Run) HasStep(name string) bool {
	for _, s := range r.PerformedSteps {
		if s == name {
			return true
		}
	}
	return false
}

// Finish records the outcome of the run.
// err is the error returned by the pipeline, or nil on success.
func (r *Run) Finish(err error, at time.Time) {
	r.FinishedAt = at.UTC()
	if err != nil {
		r.Error = err
		r.ErrorMessage = err.Error()
	}

	switch {
	case r.Interrupted || errors.Is(err, context.Canceled):
		r.Interrupted = true
		r.Status = RunStatusInterrupted
	case err != nil:
		r.Status = RunStatusFailed
	default:
		r.Status = RunStatusCompleted
	}
}

// Document converts the run into its persisted form.
func (r *Run) Document() *Document {
	stats := r.Statistics
	if stats == nil {
		stats = NewAggregateStatistics()
	}
	posts := r.Posts
	if posts == nil {
		posts = make([]PostRecord, 0)
	}

	return &Document{
		Meta: Meta{
			CapturedAt:          r.StartedAt,
			FinishedAt:          r.FinishedAt,
			Source:              r.Source,
			SchemaVersion:       SchemaVersion,
			RunID:               r.ID,
			Surface:             r.Surface,
			Status:              r.Status,
			Failure:             r.ErrorMessage,
			CredentialRefreshed: r.CredentialRefreshed,
			Steps:               r.PerformedSteps,
		},
		Posts:      posts,
		Statistics: stats,
	}
}
