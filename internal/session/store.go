package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/foilscan/internal/model"
)

// Store loads and saves the session credential for one content surface.
type Store interface {
	// Load returns the stored credential, or ErrCredentialMissing.
	Load(ctx context.Context) (*model.SessionCredential, error)

	// Save replaces the stored credential entirely.
	Save(ctx context.Context, cred *model.SessionCredential) error
}

// Open returns the store for location.
//
// Locations starting with redis:// or rediss:// select a RedisStore; the
// key can be set with a "key" query parameter. Anything else is treated as
// a file path, with a leading "~/" expanded to the home directory. An empty
// location yields a MemoryStore.
func Open(location string) (Store, error) {
	if location == "" {
		return NewMemoryStore(nil), nil
	}
	if strings.HasPrefix(location, "redis://") || strings.HasPrefix(location, "rediss://") {
		return NewRedisStoreFromURL(location)
	}

	path, err := expandHome(location)
	if err != nil {
		return nil, fmt.Errorf("resolve credential path: %w", err)
	}
	return NewFileStore(path), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
