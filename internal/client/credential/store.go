// Package credential persists the single bearer token held by the client.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/atinyakov/sessiongate/internal/client/autherr"
	"go.uber.org/zap"
)

// Reader is the read side of a credential store.
type Reader interface {
	// Read returns the stored token and whether one is present.
	Read() (string, bool)
}

// Store is the full credential contract: one optional opaque token.
type Store interface {
	Reader
	// Write replaces the stored token.
	Write(token string) error
	// Clear removes the stored token. Clearing an empty store is not an error.
	Clear() error
}

// FileName is the default credential document name.
const FileName = "credential.json"

// document is the on-disk layout. Absence of Token means no session.
type document struct {
	Token string `json:"token,omitempty"`
}

// FileStore keeps the token in a JSON file. Reads are served from memory
// after the first load, so Read never touches the disk twice.
type FileStore struct {
	path   string
	log    *zap.Logger
	mu     sync.RWMutex
	token  string
	loaded bool
}

// NewFileStore returns a store backed by the file at path. The file is read
// lazily on first access; a missing file means no session. An unreadable
// file also means no session, and is logged at warn on log.
func NewFileStore(path string, log *zap.Logger) *FileStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{path: path, log: log}
}

// DefaultPath returns <user config dir>/sessiongate/credential.json.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "sessiongate", FileName), nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) load() {
	s.loaded = true
	s.token = ""

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		s.log.Warn("cannot open credential file, treating as signed out", zap.String("path", s.path), zap.Error(err))
		return
	}
	defer f.Close()

	var doc document
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		s.log.Warn("cannot decode credential file, treating as signed out", zap.String("path", s.path), zap.Error(err))
		return
	}
	s.token = doc.Token
}

// Read returns the current token.
func (s *FileStore) Read() (string, bool) {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.token, s.token != ""
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.load()
	}
	return s.token, s.token != ""
}

// Write persists token, replacing any prior value. The file is written to a
// sibling temp file and renamed into place.
func (s *FileStore) Write(token string) error {
	if token == "" {
		return s.Clear()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(document{Token: token}); err != nil {
		return autherr.Wrap(autherr.StorageUnavailable, "failed to save credential", err)
	}
	s.token = token
	s.loaded = true
	return nil
}

// Clear removes the credential file. If the file cannot be removed the
// token stays readable, matching what the next start would see.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return autherr.Wrap(autherr.StorageUnavailable, "failed to remove credential", err)
	}
	s.token = ""
	s.loaded = true
	return nil
}

func (s *FileStore) save(doc document) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credential-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := json.NewEncoder(tmp).Encode(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename credential file: %w", err)
	}
	return nil
}

// MemoryStore is a process-local store.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Read() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.token != ""
}

func (m *MemoryStore) Write(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
