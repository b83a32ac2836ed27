package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	appDir      = "taskmanager"
	sessionFile = "session.json"
)

// Session keys, kept as flat key/value pairs on disk.
const (
	KeyUserID    = "userId"
	KeyFirstName = "firstName"
	KeyLastName  = "lastName"
	KeyFullName  = "fullName"
	KeyToken     = "token"
)

type Session struct {
	UserID    string
	FirstName string
	LastName  string
	FullName  string
	Token     string
}

func (s Session) LoggedIn() bool {
	return s.UserID != ""
}

// SessionStore is a small key/value file, the terminal stand-in for browser storage.
type SessionStore struct {
	Path string
}

// DefaultSessionPath is <user config dir>/taskmanager/session.json.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir, sessionFile), nil
}

func NewSessionStore(path string) *SessionStore {
	return &SessionStore{Path: path}
}

func (s *SessionStore) values() (map[string]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	defer f.Close()

	kv := map[string]string{}
	if err := json.NewDecoder(f).Decode(&kv); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return kv, nil
}

// Load returns the cached session; an absent file is an empty session.
func (s *SessionStore) Load() (Session, error) {
	kv, err := s.values()
	if err != nil {
		return Session{}, err
	}
	return Session{
		UserID:    kv[KeyUserID],
		FirstName: kv[KeyFirstName],
		LastName:  kv[KeyLastName],
		FullName:  kv[KeyFullName],
		Token:     kv[KeyToken],
	}, nil
}

func (s *SessionStore) Save(sess Session) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	kv := map[string]string{
		KeyUserID:    sess.UserID,
		KeyFirstName: sess.FirstName,
		KeyLastName:  sess.LastName,
		KeyFullName:  sess.FullName,
		KeyToken:     sess.Token,
	}
	data, err := json.MarshalIndent(kv, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0600)
}

// Clear removes every cached key.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
