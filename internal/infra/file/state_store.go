package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// StateStore keeps client state in a single JSON file. Reads and writes go
// through a whole-file read-modify-write under one lock; the state is tiny
// and write traffic is a handful of operations per session.
type StateStore struct {
	path string
	mu   sync.Mutex
}

type stateFile struct {
	DeviceID     string          `json:"deviceId,omitempty"`
	Participated map[string]bool `json:"participated,omitempty"`
}

func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

func (s *StateStore) LoadDeviceID(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.read()
	if err != nil {
		return "", err
	}
	return state.DeviceID, nil
}

func (s *StateStore) SaveDeviceID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.read()
	if err != nil {
		return err
	}
	state.DeviceID = id
	return s.write(state)
}

func (s *StateStore) LoadParticipation(_ context.Context, quizID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.read()
	if err != nil {
		return false, err
	}
	return state.Participated[quizID], nil
}

func (s *StateStore) SaveParticipation(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.read()
	if err != nil {
		return err
	}
	if state.Participated == nil {
		state.Participated = make(map[string]bool)
	}
	state.Participated[quizID] = true
	return s.write(state)
}

func (s *StateStore) read() (stateFile, error) {
	var state stateFile
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("read state file: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return stateFile{}, fmt.Errorf("parse state file: %w", err)
	}
	return state, nil
}

func (s *StateStore) write(state stateFile) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}
