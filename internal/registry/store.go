// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

type (
	// Store persists registry contents.
	Store interface {
		Load() ([]*Artifact, error)
		Save(artifacts []*Artifact) error
	}

	// MemoryStore keeps the last saved contents in memory.
	MemoryStore struct {
		mu        sync.Mutex
		artifacts []*Artifact
		saves     int
	}

	// TOMLStore persists the registry to a TOML file.
	TOMLStore struct {
		Path string
	}

	stateFile struct {
		Version   int         `toml:"version"`
		Artifacts []*Artifact `toml:"artifact"`
	}
)

const stateVersion = 1

// Load returns the saved artifacts.
func (s *MemoryStore) Load() ([]*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.artifacts), nil
}

// Save replaces the saved artifacts.
func (s *MemoryStore) Save(artifacts []*Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = cloneAll(artifacts)
	s.saves++
	return nil
}

// Saves reports how many times Save was called.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Load reads the state file. A missing file is an empty registry.
func (s *TOMLStore) Load() ([]*Artifact, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state stateFile
	if err := toml.Unmarshal(data, &state); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("%s:%d:%d: %w", s.Path, row, col, err)
		}
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	if state.Version > stateVersion {
		return nil, fmt.Errorf("%s: unsupported state version %d", s.Path, state.Version)
	}
	return state.Artifacts, nil
}

// Save replaces the state file atomically (temporary file, then rename).
func (s *TOMLStore) Save(artifacts []*Artifact) error {
	data, err := toml.Marshal(stateFile{Version: stateVersion, Artifacts: artifacts})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".artifacts-*.toml")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
