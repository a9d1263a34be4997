package notify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// TokenStore persists the last acknowledged failure occurrence token
type TokenStore interface {
	Load() (uuid.UUID, error)
	Save(token uuid.UUID) error
}

// MemoryTokenStore keeps the token for the life of the process. Sharing
// one instance across rebuilt screen models keeps a re-created screen from
// notifying a failure twice.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token uuid.UUID
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Load() (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryTokenStore) Save(token uuid.UUID) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// FileTokenStore checkpoints the token to a file so it survives restarts
type FileTokenStore struct {
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Load returns uuid.Nil when no checkpoint exists yet
func (s *FileTokenStore) Load() (uuid.UUID, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("read token checkpoint: %w", err)
	}

	token, err := uuid.Parse(strings.TrimSpace(string(data)))
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse token checkpoint: %w", err)
	}
	return token, nil
}

func (s *FileTokenStore) Save(token uuid.UUID) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token.String()+"\n"), 0o644); err != nil {
		return fmt.Errorf("write token checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace token checkpoint: %w", err)
	}
	return nil
}
