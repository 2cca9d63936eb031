package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps every pending action in one JSON document. Each operation
// loads the whole file, mutates it and writes it back through a temp file
// and rename, so a crash never leaves a partial document behind.
type FileStore struct {
	Path string
	mu   sync.Mutex
}

type fileState struct {
	Pending map[string]Action `json:"pending"`
}

// NewFileStore returns a store backed by path. The file is created on the
// first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) load() (*fileState, error) {
	state := &fileState{Pending: make(map[string]Action)}
	f, err := os.Open(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(state); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.Path, err)
	}
	if state.Pending == nil {
		state.Pending = make(map[string]Action)
	}
	return state, nil
}

func (s *FileStore) save(state *fileState) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(state); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}

func (s *FileStore) update(fn func(*fileState) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return err
	}
	if !fn(state) {
		return nil
	}
	return s.save(state)
}

func (s *FileStore) Put(_ context.Context, a Action) error {
	return s.update(func(state *fileState) bool {
		state.Pending[a.ID] = a
		return true
	})
}

func (s *FileStore) Get(_ context.Context, id string) (*Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return nil, err
	}
	a, ok := state.Pending[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	return s.update(func(state *fileState) bool {
		if _, ok := state.Pending[id]; !ok {
			return false
		}
		delete(state.Pending, id)
		return true
	})
}

func (s *FileStore) PruneExpired(_ context.Context, now time.Time) (int, error) {
	removed := 0
	err := s.update(func(state *fileState) bool {
		for id, a := range state.Pending {
			if a.Expired(now) {
				delete(state.Pending, id)
				removed++
			}
		}
		return removed > 0
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *FileStore) Close() error { return nil }
