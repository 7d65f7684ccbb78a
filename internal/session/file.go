package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nao1215/foilscan/internal/model"
)

// FileStore keeps the credential as a JSON cookie array in a single file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path.
// The file and its directory are created on the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the location of the credential file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the credential file.
func (s *FileStore) Load(ctx context.Context) (*model.SessionCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrCredentialMissing
		}
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	var cred model.SessionCredential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptCredential, s.path, err)
	}
	return &cred, nil
}

// Save writes the credential with owner-only permissions.
// The file is replaced atomically so a crash never leaves half a cookie list.
func (s *FileStore) Save(ctx context.Context, cred *model.SessionCredential) error {
	if cred == nil {
		return ErrNilCredential
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("create temporary credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // already renamed on success

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("restrict credential file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credential file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}
