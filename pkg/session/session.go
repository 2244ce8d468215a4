// Package session keeps the local identity the CLI acts as.
//
// Authentication is handled by the backend; the CLI only needs a stable user
// ID to join walls and attribute uploads. The first command that needs one
// creates a session and stores it under ~/.config/memorywall/session.json.
//
//	fs, err := session.NewFileStore("")
//	sess, err := fs.Ensure(ctx, "ada")
//	_, err = st.JoinWall(ctx, wallID, sess.UserID, sess.Name, code)
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Load when no session has been saved.
var ErrNotFound = errors.New("no session")

// Session is the identity of the CLI user.
type Session struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// New returns a session with a fresh user ID.
func New(name string) *Session {
	return &Session{UserID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
}

// FileStore stores one session as a JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates the session directory. An empty dir selects
// $XDG_CONFIG_HOME/memorywall or ~/.config/memorywall.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		base, err := configHome()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "memorywall")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, "session.json")}, nil
}

func configHome() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config"), nil
}

// Load returns the saved session or ErrNotFound.
func (s *FileStore) Load(context.Context) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if sess.UserID == "" {
		return nil, ErrNotFound
	}
	return &sess, nil
}

// Save writes sess, replacing any previous session.
func (s *FileStore) Save(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(sess)
}

func (s *FileStore) save(sess *Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Ensure returns the saved session, creating one named name if there is
// none. A non-empty name replaces the stored one.
func (s *FileStore) Ensure(_ context.Context, name string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.load()
	switch {
	case errors.Is(err, ErrNotFound):
		sess = New(name)
	case err != nil:
		return nil, err
	case name == "" || name == sess.Name:
		return sess, nil
	default:
		sess.Name = name
	}
	if err := s.save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Delete removes the saved session.
func (s *FileStore) Delete(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// Path returns the session file path.
func (s *FileStore) Path() string { return s.path }
