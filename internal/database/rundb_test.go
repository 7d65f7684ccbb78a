package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/foilscan/internal/model"
	"github.com/nao1215/foilscan/internal/stats"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *RunDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func intPtr(n int) *int { return &n }

func testDocument(id, surface string, started time.Time, posts ...model.PostRecord) *model.Document {
	run := model.NewRun(surface, "https://social.example.com/groups/"+surface)
	run.ID = id
	run.StartedAt = started
	for _, p := range posts {
		run.AddPost(p)
	}
	run.Statistics = stats.Aggregate(run.Posts)
	run.Finish(nil, started.Add(time.Minute))
	return run.Document()
}

func post(id int, foils ...string) model.PostRecord {
	return model.PostRecord{
		ID:             id,
		TextExcerpt:    "riding the " + foils[0],
		FoilsMentioned: foils,
		Sentiment:      model.SentimentNeutral,
		CapturedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("got path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Errorf("got error %v, expected ErrDatabaseNotFound", err)
		}
	})

	t.Run("reopens an existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		if err := db.SaveRun(context.Background(), testDocument("run-1", "riders", started, post(1, "ART 999"))); err != nil {
			t.Fatal(err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen: %v", err)
		}
		defer db.Close()
		if _, err := db.GetRun(context.Background(), "run-1"); err != nil {
			t.Errorf("run lost after reopen: %v", err)
		}
	})
}

// TestSaveAndGetRun tests the document round trip.
func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	weighted := post(2, "SPITFIRE 1180", "ART 999")
	weighted.RiderWeight = intPtr(187)
	weighted.UseCase = model.UseCaseWing
	doc := testDocument("0b3f6c1e-aaaa", "riders", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), post(1, "ART 999"), weighted)

	if err := db.SaveRun(ctx, doc); err != nil {
		t.Fatalf("SaveRun() error: %v", err)
	}

	t.Run("exact ID", func(t *testing.T) {
		got, err := db.GetRun(ctx, "0b3f6c1e-aaaa")
		if err != nil {
			t.Fatalf("GetRun() error: %v", err)
		}
		if diff := cmp.Diff(doc, got); diff != "" {
			t.Errorf("document mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unique prefix", func(t *testing.T) {
		got, err := db.GetRun(ctx, "0b3f")
		if err != nil {
			t.Fatalf("GetRun() error: %v", err)
		}
		if got.Meta.RunID != "0b3f6c1e-aaaa" {
			t.Errorf("got run %q", got.Meta.RunID)
		}
	})

	t.Run("posts are stored", func(t *testing.T) {
		runs, err := db.ListRuns(ctx, ListOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 1 || runs[0].PostCount != 2 {
			t.Errorf("got runs %+v, expected one run with 2 posts", runs)
		}
	})

	t.Run("unknown ID", func(t *testing.T) {
		if _, err := db.GetRun(ctx, "ffff"); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("got error %v, expected ErrRunNotFound", err)
		}
		if _, err := db.GetRun(ctx, "  "); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("got error %v for blank ID", err)
		}
	})
}

// TestSaveRunReplaces tests that saving the same run twice keeps one copy.
func TestSaveRunReplaces(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first := testDocument("run-1", "riders", started, post(1, "ART 999"))
	if err := db.SaveRun(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := testDocument("run-1", "riders", started, post(1, "ART 999"), post(2, "HPS 830"), post(3, "BSC 1060"))
	if err := db.SaveRun(ctx, second); err != nil {
		t.Fatal(err)
	}

	runs, err := db.ListRuns(ctx, ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].PostCount != 3 {
		t.Errorf("got runs %+v", runs)
	}
}

// TestSaveRunRejectsMissingID tests input validation.
func TestSaveRunRejectsMissingID(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	doc := testDocument("", "riders", time.Now())
	if err := db.SaveRun(context.Background(), doc); err == nil {
		t.Error("expected an error for a document without run ID")
	}
}

// TestListRuns tests listing and filtering.
func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	docs := []*model.Document{
		testDocument("a", "riders", base, post(1, "ART 999")),
		testDocument("b", "wingers", base.Add(time.Hour)),
		testDocument("c", "riders", base.Add(2*time.Hour+500*time.Millisecond)),
	}
	docs[1].Meta.Status = model.RunStatusFailed
	docs[1].Meta.Failure = "navigation failed"
	for _, d := range docs {
		if err := db.Persist(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		runs, err := db.ListRuns(ctx, ListOptions{})
		if err != nil {
			t.Fatal(err)
		}
		var ids []string
		for _, r := range runs {
			ids = append(ids, r.ID)
		}
		if diff := cmp.Diff([]string{"c", "b", "a"}, ids); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
		if runs[1].Status != model.RunStatusFailed || runs[1].Failure != "navigation failed" {
			t.Errorf("failure not stored: %+v", runs[1])
		}
		if !runs[2].StartedAt.Equal(base) {
			t.Errorf("got start %v, expected %v", runs[2].StartedAt, base)
		}
	})

	t.Run("filter by surface with limit", func(t *testing.T) {
		runs, err := db.ListRuns(ctx, ListOptions{Surface: "riders", Limit: 1})
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 1 || runs[0].ID != "c" {
			t.Errorf("got %+v", runs)
		}
	})

	t.Run("latest run of a surface", func(t *testing.T) {
		doc, err := db.LatestRun(ctx, "riders")
		if err != nil {
			t.Fatal(err)
		}
		if doc.Meta.RunID != "c" {
			t.Errorf("got run %q, expected c", doc.Meta.RunID)
		}
		if _, err := db.LatestRun(ctx, "nobody"); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("got error %v, expected ErrRunNotFound", err)
		}
	})
}

// TestAmbiguousPrefix tests prefix resolution with several matches.
func TestAmbiguousPrefix(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, id := range []string{"abc1", "abc2"} {
		if err := db.SaveRun(ctx, testDocument(id, "riders", now)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := db.GetRun(ctx, "abc"); !errors.Is(err, ErrAmbiguousRunID) {
		t.Errorf("got error %v, expected ErrAmbiguousRunID", err)
	}
}

// TestFoilMentionsOverTime tests the per-run mention trend.
func TestFoilMentionsOverTime(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	docs := []*model.Document{
		testDocument("first", "riders", base, post(1, "ART 999"), post(2, "ART 999", "HPS 830")),
		testDocument("second", "riders", base.Add(24*time.Hour), post(1, "HPS 830")),
		testDocument("third", "riders", base.Add(48*time.Hour), post(1, "ART 999")),
		testDocument("other", "wingers", base, post(1, "ART 999")),
	}
	for _, d := range docs {
		if err := db.SaveRun(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	points, err := db.FoilMentionsOverTime(ctx, "riders", "ART 999")
	if err != nil {
		t.Fatalf("FoilMentionsOverTime() error: %v", err)
	}
	want := []FoilMentionPoint{
		{RunID: "first", StartedAt: base, Posts: 2},
		{RunID: "third", StartedAt: base.Add(48 * time.Hour), Posts: 1},
	}
	if diff := cmp.Diff(want, points); diff != "" {
		t.Errorf("trend mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	for _, s := range []string{"2026-03-01T09:30:00.000000000Z", "2026-03-01 09:30:00", "2026-03-01T09:30:00Z"} {
		if got := parseTimestamp(s); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v", s, got)
		}
	}
	if got := parseTimestamp("garbage"); !got.IsZero() {
		t.Errorf("parseTimestamp(garbage) = %v, want zero", got)
	}
}
