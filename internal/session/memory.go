package session

import (
	"context"
	"sync"

	"github.com/nao1215/foilscan/internal/model"
)

// MemoryStore keeps the credential in memory only. Open returns one for an
// empty location, so a fresh login is used for the current run and then
// forgotten.
type MemoryStore struct {
	mu    sync.Mutex
	cred  *model.SessionCredential
	saves int
}

// NewMemoryStore returns a store holding cred, which may be nil.
func NewMemoryStore(cred *model.SessionCredential) *MemoryStore {
	return &MemoryStore{cred: cred}
}

// Load returns the held credential.
func (s *MemoryStore) Load(ctx context.Context) (*model.SessionCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return nil, ErrCredentialMissing
	}
	return model.NewSessionCredential(s.cred.Cookies), nil
}

// Save replaces the held credential.
func (s *MemoryStore) Save(ctx context.Context, cred *model.SessionCredential) error {
	if cred == nil {
		return ErrNilCredential
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = model.NewSessionCredential(cred.Cookies)
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
