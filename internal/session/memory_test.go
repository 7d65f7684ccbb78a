package session

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/foilscan/internal/model"
)

// TestMemoryStore tests the in-memory store.
func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore(nil)

	if _, err := store.Load(ctx); !errors.Is(err, ErrCredentialMissing) {
		t.Fatalf("expected ErrCredentialMissing, got %v", err)
	}

	if err := store.Save(ctx, model.NewSessionCredential(testCookies())); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(got.Cookies) != 2 {
		t.Errorf("expected 2 cookies, got %d", len(got.Cookies))
	}
	if store.Saves() != 1 {
		t.Errorf("expected 1 save, got %d", store.Saves())
	}

	got.Cookies[0].Value = "mutated"
	again, _ := store.Load(ctx)
	if again.Cookies[0].Value == "mutated" {
		t.Error("Load must return a copy")
	}
}
