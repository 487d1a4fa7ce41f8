package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fmuoria/candidate-ranker/internal/models"
)

// fileState is the on-disk document of a FileStore
type fileState struct {
	Candidates []models.Candidate      `json:"candidates"`
	Job        *models.JobRequirements `json:"job,omitempty"`
	Searches   []models.SavedSearch    `json:"searches,omitempty"`
}

// FileStore keeps candidates, the scored job and saved searches in a single JSON file
type FileStore struct {
	path string

	mu    sync.RWMutex
	state fileState
	index map[string]int
}

// NewFileStore opens the store at path, loading any existing records.
// A file holding a bare array of candidates is read as a pool with no job.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{
		path:  path,
		index: make(map[string]int),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, fmt.Errorf("failed to read candidate store: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fs, nil
	}

	if data[0] == '[' {
		err = json.Unmarshal(data, &fs.state.Candidates)
	} else {
		err = json.Unmarshal(data, &fs.state)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse candidate store: %w", err)
	}
	for i, c := range fs.state.Candidates {
		fs.index[c.ID] = i
	}

	return fs, nil
}

func (fs *FileStore) List(ctx context.Context) ([]models.Candidate, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	out := make([]models.Candidate, len(fs.state.Candidates))
	copy(out, fs.state.Candidates)
	return out, nil
}

func (fs *FileStore) Get(ctx context.Context, id string) (models.Candidate, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	i, ok := fs.index[id]
	if !ok {
		return models.Candidate{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return fs.state.Candidates[i], nil
}

func (fs *FileStore) Save(ctx context.Context, candidates ...models.Candidate) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	next := fs.state
	next.Candidates = make([]models.Candidate, len(fs.state.Candidates), len(fs.state.Candidates)+len(candidates))
	copy(next.Candidates, fs.state.Candidates)
	index := make(map[string]int, len(fs.index)+len(candidates))
	for id, i := range fs.index {
		index[id] = i
	}

	for _, c := range candidates {
		if i, ok := index[c.ID]; ok {
			next.Candidates[i] = c
			continue
		}
		index[c.ID] = len(next.Candidates)
		next.Candidates = append(next.Candidates, c)
	}

	return fs.commit(next, index)
}

func (fs *FileStore) SaveMatch(ctx context.Context, id string, match models.MatchResult) error {
	return fs.update(id, func(c models.Candidate) models.Candidate {
		return c.WithMatch(match)
	})
}

func (fs *FileStore) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	return fs.update(id, func(c models.Candidate) models.Candidate {
		c.Status = status
		return c
	})
}

func (fs *FileStore) SaveJob(ctx context.Context, job models.JobRequirements) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	next := fs.state
	next.Job = &job
	return fs.commit(next, fs.index)
}

func (fs *FileStore) Job(ctx context.Context) (*models.JobRequirements, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.state.Job == nil {
		return nil, nil
	}
	job := *fs.state.Job
	return &job, nil
}

func (fs *FileStore) SaveSearch(ctx context.Context, search models.SavedSearch) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	next := fs.state
	next.Searches = append(slices.Clone(fs.state.Searches), search)
	return fs.commit(next, fs.index)
}

func (fs *FileStore) ListSearches(ctx context.Context) ([]models.SavedSearch, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	out := make([]models.SavedSearch, len(fs.state.Searches))
	copy(out, fs.state.Searches)
	return out, nil
}

func (fs *FileStore) Close() error {
	return nil
}

func (fs *FileStore) update(id string, fn func(models.Candidate) models.Candidate) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	i, ok := fs.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := fs.state
	next.Candidates = make([]models.Candidate, len(fs.state.Candidates))
	copy(next.Candidates, fs.state.Candidates)
	next.Candidates[i] = fn(next.Candidates[i])

	return fs.commit(next, fs.index)
}

// commit writes the new state to disk and only then swaps it in
func (fs *FileStore) commit(state fileState, index map[string]int) error {
	if err := fs.write(state); err != nil {
		return err
	}
	fs.state = state
	fs.index = index
	return nil
}

func (fs *FileStore) write(state fileState) error {
	dir := filepath.Dir(fs.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	if state.Candidates == nil {
		state.Candidates = []models.Candidate{}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal candidates: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".candidates-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write candidates: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, fs.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace candidate store: %w", err)
	}

	return nil
}
