// ABOUTME: Session Store holding the credential and identity as one unit
// ABOUTME: File-backed store in the XDG state directory plus an in-memory variant

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/codersneeded/miniapp/cli/internal/models"
)

// ErrCorruptState is returned by Load when the persisted document was
// unreadable or half-written. The document is removed before returning.
var ErrCorruptState = errors.New("corrupt session state")

// Record is the persisted pair. Both values are always present.
type Record struct {
	Credential models.Credential
	Identity   models.Identity
}

// Store persists the session. Load returns a nil Record when empty.
type Store interface {
	Load() (*Record, error)
	Save(models.Credential, models.Identity) error
	Clear() error
}

// sessionDocument is the on-disk shape, keyed like the browser storage it replaces.
type sessionDocument struct {
	AuthToken models.Credential `json:"auth_token,omitempty"`
	UserData  *models.Identity  `json:"user_data,omitempty"`
}

// DefaultStateDir returns the default state directory following XDG spec.
// Without a home directory it falls back to the system temp directory.
func DefaultStateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "jobboard")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		dir := filepath.Join(os.TempDir(), "jobboard")
		slog.Warn("Home directory unavailable, keeping session in temp directory",
			"dir", dir, "error", err,
			"hint", "set XDG_STATE_HOME or --state-dir to choose a location")
		return dir
	}
	return filepath.Join(home, ".local", "state", "jobboard")
}

// FileStore keeps the session in <dir>/session.json.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a store rooted at dir. The directory is created on first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the session document location.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, "session.json")
}

// Load reads the persisted session.
func (s *FileStore) Load() (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var doc sessionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, s.discard(fmt.Sprintf("undecodable document: %v", err))
	}
	if doc.AuthToken == "" && doc.UserData == nil {
		return nil, nil
	}
	if doc.AuthToken == "" || doc.UserData == nil {
		return nil, s.discard("credential and identity not stored together")
	}

	return &Record{Credential: doc.AuthToken, Identity: *doc.UserData}, nil
}

// discard removes a bad document and reports ErrCorruptState. Must be called with s.mu held.
func (s *FileStore) discard(reason string) error {
	slog.Warn("Discarding session state", "path", s.Path(), "reason", reason)
	if err := s.remove(); err != nil {
		return fmt.Errorf("%w: %s (cleanup failed: %v)", ErrCorruptState, reason, err)
	}
	return fmt.Errorf("%w: %s", ErrCorruptState, reason)
}

// Save writes both values in one document via temp file and rename.
func (s *FileStore) Save(cred models.Credential, id models.Identity) error {
	if cred == "" {
		return fmt.Errorf("refusing to save an empty credential")
	}

	data, err := json.MarshalIndent(sessionDocument{AuthToken: cred, UserData: &id}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "session-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict session file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path()); err != nil {
		return fmt.Errorf("failed to replace session: %w", err)
	}
	return nil
}

// Clear removes the session document. Clearing an empty store is not an error.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove()
}

func (s *FileStore) remove() error {
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu     sync.Mutex
	record *Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.record == nil {
		return nil, nil
	}
	rec := *m.record
	return &rec, nil
}

func (m *MemoryStore) Save(cred models.Credential, id models.Identity) error {
	if cred == "" {
		return fmt.Errorf("refusing to save an empty credential")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = &Record{Credential: cred, Identity: id}
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = nil
	return nil
}
