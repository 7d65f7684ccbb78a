package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// TestNewRun tests the Run constructor.
func TestNewRun(t *testing.T) {
	t.Parallel()

	run := NewRun("axis-riders", "https://example.com/groups/axis")

	t.Run("sets surface and source", func(t *testing.T) {
		t.Parallel()
		if run.Surface != "axis-riders" {
			t.Errorf("got %q, expected %q", run.Surface, "axis-riders")
		}
		if run.Source != "https://example.com/groups/axis" {
			t.Errorf("got %q, expected source URL", run.Source)
		}
	})

	t.Run("assigns a run id", func(t *testing.T) {
		t.Parallel()
		if run.ID == "" {
			t.Error("expected ID to be set")
		}
		if other := NewRun("", ""); other.ID == run.ID {
			t.Error("expected distinct ids for distinct runs")
		}
	})

	t.Run("starts in running state with no posts", func(t *testing.T) {
		t.Parallel()
		if run.Status != RunStatusRunning {
			t.Errorf("got %q, expected running", run.Status)
		}
		if run.Posts == nil || len(run.Posts) != 0 {
			t.Error("expected empty non-nil posts")
		}
		if time.Since(run.StartedAt) > time.Minute {
			t.Error("StartedAt is too old")
		}
	})
}

// TestRunFinish tests status classification.
func TestRunFinish(t *testing.T) {
	t.Parallel()

	errAuth := errors.New("authentication failed")

	tests := []struct {
		name        string
		interrupted bool
		err         error
		want        RunStatus
	}{
		{name: "nil error completes", err: nil, want: RunStatusCompleted},
		{name: "error fails", err: errAuth, want: RunStatusFailed},
		{name: "cancellation interrupts", err: context.Canceled, want: RunStatusInterrupted},
		{name: "wrapped cancellation interrupts", err: fmt.Errorf("discover: %w", context.Canceled), want: RunStatusInterrupted},
		{name: "interrupted flag wins", interrupted: true, err: errAuth, want: RunStatusInterrupted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			run := NewRun("s", "u")
			run.Interrupted = tt.interrupted
			run.Finish(tt.err, time.Now())

			if run.Status != tt.want {
				t.Errorf("got %q, expected %q", run.Status, tt.want)
			}
			if tt.err != nil && run.ErrorMessage != tt.err.Error() {
				t.Errorf("got error message %q", run.ErrorMessage)
			}
			if run.FinishedAt.IsZero() {
				t.Error("expected FinishedAt to be set")
			}
		})
	}
}

// TestRunDocument tests the conversion into the output document.
func TestRunDocument(t *testing.T) {
	t.Parallel()

	t.Run("empty run serializes empty collections", func(t *testing.T) {
		t.Parallel()

		run := NewRun("", "https://example.com")
		run.Finish(nil, time.Now())

		data, err := json.Marshal(run.Document())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := string(data)
		for _, want := range []string{
			`"posts":[]`,
			`"total_posts":0`,
			`"foil_mentions":{}`,
			`"weight_recommendations":[]`,
			`"use_case_feedback":{}`,
			`"schema_version":"3.0"`,
			`"status":"completed"`,
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %s in %s", want, out)
			}
		}
	})

	t.Run("failed run carries failure reason and posts", func(t *testing.T) {
		t.Parallel()

		run := NewRun("", "https://example.com")
		run.AddPost(PostRecord{ID: 1, FoilsMentioned: []string{"ART 999"}, Sentiment: SentimentNeutral})
		run.Finish(errors.New("surface unresponsive"), time.Now())

		doc := run.Document()
		if !doc.Failed() {
			t.Error("expected document to be marked failed")
		}
		if doc.Meta.Failure != "surface unresponsive" {
			t.Errorf("got failure %q", doc.Meta.Failure)
		}
		if len(doc.Posts) != 1 {
			t.Errorf("expected 1 post, got %d", len(doc.Posts))
		}
	})
}

// TestRunHasStep tests step bookkeeping.
func TestRunHasStep(t *testing.T) {
	t.Parallel()

	run := NewRun("", "")
	run.PerformedSteps = []string{"session", "navigate"}

	if !run.HasStep("navigate") {
		t.Error("expected navigate to be recorded")
	}
	if run.HasStep("aggregate") {
		t.Error("did not expect aggregate to be recorded")
	}
}
