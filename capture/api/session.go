package api

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Session is the explicit identity object returned by Login and
// Register. It is passed by pointer into every authenticated call and
// destroyed on logout; no ambient "current user" state exists.
type Session struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Valid reports whether the session can authenticate a request.
func (s *Session) Valid() bool {
	return s != nil && strings.TrimSpace(s.Token) != ""
}

// SaveSession persists a session to path for later restoration.
func SaveSession(path string, s *Session) error {
	if !s.Valid() {
		return ErrNotSignedIn
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("session dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadSession restores a previously saved session. A missing file
// returns (nil, nil): not signed in, not an error.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("session file corrupt: %w", err)
	}
	if !s.Valid() {
		return nil, nil
	}
	return &s, nil
}

// DestroySession removes a saved session, ending it. Removing a
// session that does not exist is not an error.
func DestroySession(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
