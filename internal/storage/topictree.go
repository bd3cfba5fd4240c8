package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/valter-silva-au/limbguide/pkg/models"
)

var (
	// ErrTreeUnavailable is returned when no topic tree could ever be loaded.
	ErrTreeUnavailable = errors.New("topic tree unavailable")
	// ErrWriteFailed is returned when a mutation was applied in memory but
	// could not be persisted.
	ErrWriteFailed = errors.New("topic tree write failed")
)

// EventLogger receives storage events. Defined here so storage does not
// depend on the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// fingerprint identifies a version of the document on disk.
type fingerprint struct {
	modTime time.Time
	size    int64
}

func fingerprintOf(info os.FileInfo) fingerprint {
	return fingerprint{modTime: info.ModTime(), size: info.Size()}
}

// TopicTreeStore owns the in-memory topic tree and the JSON document backing
// it. The document is re-read whenever its modification time or size
// changes, so manual edits are picked up without a restart. All access goes
// through View and Mutate, which serialize on a single mutex.
type TopicTreeStore struct {
	path   string
	logger EventLogger

	mu   sync.Mutex
	tree *models.TopicTree
	fp   fingerprint
}

// NewTopicTreeStore creates a store for the document at path. logger may be nil.
// Nothing is read until the first access.
func NewTopicTreeStore(path string, logger EventLogger) *TopicTreeStore {
	return &TopicTreeStore{path: path, logger: logger}
}

// Path returns the location of the backing document.
func (s *TopicTreeStore) Path() string {
	return s.path
}

// Load re-reads the document if it changed on disk. On failure the previous
// tree is kept and the error returned.
func (s *TopicTreeStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Get refreshes the tree and returns a copy of it. A failed reload is
// ignored while a previously loaded tree exists.
func (s *TopicTreeStore) Get() (*models.TopicTree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(); err != nil {
		return nil, err
	}
	return s.tree.Clone(), nil
}

// View refreshes the tree and runs fn with it under the store lock. fn must
// not retain or modify the tree.
func (s *TopicTreeStore) View(fn func(tree *models.TopicTree) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(); err != nil {
		return err
	}
	return fn(s.tree)
}

// Mutate refreshes the tree, applies fn under the store lock and persists
// the result. If fn returns an error nothing is written, so fn should
// validate before it modifies. If the write fails the in-memory change is
// kept and the returned error wraps ErrWriteFailed.
func (s *TopicTreeStore) Mutate(fn func(tree *models.TopicTree) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(); err != nil {
		return err
	}
	if err := fn(s.tree); err != nil {
		return err
	}
	return s.saveLocked()
}

// Save writes the current tree to disk.
func (s *TopicTreeStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tree == nil {
		return ErrTreeUnavailable
	}
	return s.saveLocked()
}

func (s *TopicTreeStore) refreshLocked() error {
	err := s.loadLocked()
	if s.tree == nil {
		if err == nil {
			err = errors.New("empty document")
		}
		return fmt.Errorf("%w: %w", ErrTreeUnavailable, err)
	}
	return nil
}

func (s *TopicTreeStore) loadLocked() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return s.loadFailed(fmt.Errorf("stat %s: %w", s.path, err))
	}
	fp := fingerprintOf(info)
	if s.tree != nil && fp == s.fp {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return s.loadFailed(fmt.Errorf("reading %s: %w", s.path, err))
	}
	var tree models.TopicTree
	if err := json.Unmarshal(data, &tree); err != nil {
		return s.loadFailed(fmt.Errorf("parsing %s: %w", s.path, err))
	}

	s.tree = &tree
	s.fp = fp
	s.logEvent("tree.reloaded", map[string]any{
		"path":   s.path,
		"themes": len(tree.Themes),
	})
	return nil
}

func (s *TopicTreeStore) loadFailed(err error) error {
	s.logEvent("tree.load_failed", map[string]any{
		"path":       s.path,
		"error":      err.Error(),
		"have_stale": s.tree != nil,
	})
	return err
}

// saveLocked writes the tree to a temp file in the target directory and
// renames it into place, then records the new fingerprint so the write does
// not trigger a reload.
func (s *TopicTreeStore) saveLocked() error {
	if err := s.writeFile(); err != nil {
		s.logEvent("tree.write_failed", map[string]any{
			"path":  s.path,
			"error": err.Error(),
		})
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	s.logEvent("tree.written", map[string]any{"path": s.path})
	return nil
}

func (s *TopicTreeStore) writeFile() error {
	data, err := json.MarshalIndent(s.tree, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling topic tree: %w", err)
	}

	unlock, err := lockFile(s.path + ".lock")
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("stat after write: %w", err)
	}
	s.fp = fingerprintOf(info)
	return nil
}

func (s *TopicTreeStore) logEvent(eventType string, data map[string]any) {
	if s.logger == nil {
		return
	}
	_ = s.logger.LogEvent(eventType, data)
}
