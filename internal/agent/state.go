package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// StateFile persists the resume position between agent runs as a small
// JSON document.
type StateFile struct {
	path string
}

type watchState struct {
	ResourceVersion string `json:"resourceVersion"`
}

func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// Load returns the persisted resourceVersion, or "" when no state has
// been written yet.
func (s *StateFile) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	var state watchState
	if err := json.Unmarshal(data, &state); err != nil {
		return "", fmt.Errorf("parse state file %s: %w", s.path, err)
	}

	return state.ResourceVersion, nil
}

// Save writes the resourceVersion through a temp file and rename, so a
// crash mid-write never leaves a truncated state file behind.
func (s *StateFile) Save(resourceVersion string) error {
	data, err := json.Marshal(watchState{ResourceVersion: resourceVersion})
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}

	return os.Rename(tmp, s.path)
}
