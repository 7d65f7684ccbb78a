package session

import (
	"os"
	"path/filepath"
	"testing"
)

// TestOpen tests store selection by location.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("plain path selects file store", func(t *testing.T) {
		t.Parallel()

		store, err := Open("/tmp/foilscan/cookies.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		fs, ok := store.(*FileStore)
		if !ok {
			t.Fatalf("expected *FileStore, got %T", store)
		}
		if fs.Path() != "/tmp/foilscan/cookies.json" {
			t.Errorf("got path %q", fs.Path())
		}
	})

	t.Run("tilde expands to home", func(t *testing.T) {
		t.Parallel()

		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		store, err := Open("~/cookies.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := filepath.Join(home, "cookies.json")
		if got := store.(*FileStore).Path(); got != want {
			t.Errorf("got %q, expected %q", got, want)
		}
	})

	t.Run("redis url selects redis store with key", func(t *testing.T) {
		t.Parallel()

		store, err := Open("redis://localhost:6379/2?key=foilscan:session:axis")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rs, ok := store.(*RedisStore)
		if !ok {
			t.Fatalf("expected *RedisStore, got %T", store)
		}
		defer rs.Close()

		if rs.Key() != "foilscan:session:axis" {
			t.Errorf("got key %q", rs.Key())
		}
	})

	t.Run("redis url without key uses default", func(t *testing.T) {
		t.Parallel()

		store, err := Open("redis://localhost:6379")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rs := store.(*RedisStore)
		defer rs.Close()

		if rs.Key() != DefaultRedisKey {
			t.Errorf("got key %q, expected %q", rs.Key(), DefaultRedisKey)
		}
	})
}

// TestOpenEmptyLocation tests that an empty location keeps the session in
// memory.
func TestOpenEmptyLocation(t *testing.T) {
	t.Parallel()

	store, err := Open("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Errorf("expected *MemoryStore, got %T", store)
	}
}
