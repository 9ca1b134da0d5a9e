// Package state provides persistence for the AceFlow project state document.
// This package implements the storage layer for current_state.json,
// with atomic writes and file locking for data integrity.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aceflow-ai/aceflow/internal/constants"
	"github.com/aceflow-ai/aceflow/internal/domain"
	aceerrors "github.com/aceflow-ai/aceflow/internal/errors"
	"github.com/aceflow-ai/aceflow/internal/flock"
)

// Directory and file permission constants.
const (
	dirPerm  = 0o750 // Secure directory permissions
	filePerm = 0o600 // Secure file permissions
)

// Store defines the interface for project state persistence.
type Store interface {
	// Init writes the initial state document.
	// Returns ErrStateExists if the project is already initialized.
	Init(ctx context.Context, state *domain.ProjectState) error

	// Load reads and validates the state document.
	// Returns ErrStateNotFound if the project is not initialized and
	// ErrStateCorrupt if the document fails to parse or validate.
	Load(ctx context.Context) (*domain.ProjectState, error)

	// Save writes the current state document (atomic write).
	// Returns ErrStateNotFound if the project is not initialized.
	Save(ctx context.Context, state *domain.ProjectState) error

	// Update applies fn to the state document under a single exclusive
	// lock held for the whole read-modify-write, then persists the result
	// atomically. An error from fn aborts the update and leaves the
	// document untouched. Returns the state as persisted.
	Update(ctx context.Context, fn func(*domain.ProjectState) error) (*domain.ProjectState, error)

	// Exists reports whether a state document is present.
	Exists() bool
}

// FileStore implements Store using a JSON document under the project's
// .aceflow directory.
type FileStore struct {
	root        string // Project root directory
	lockTimeout time.Duration
}

// NewFileStore creates a FileStore for the project rooted at root.
// If root is empty, the current working directory is used.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		root = wd
	}
	return &FileStore{root: root, lockTimeout: constants.LockTimeout}, nil
}

// SetLockTimeout overrides how long operations wait for the file lock.
// Non-positive values are ignored.
func (s *FileStore) SetLockTimeout(d time.Duration) {
	if d > 0 {
		s.lockTimeout = d
	}
}

// Root returns the project root directory the store operates on.
func (s *FileStore) Root() string {
	return s.root
}

// Init writes the initial state document.
func (s *FileStore) Init(ctx context.Context, state *domain.ProjectState) error {
	// Check for cancellation at entry
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if state == nil {
		return fmt.Errorf("failed to initialize project: state %w", aceerrors.ErrEmptyValue)
	}

	if s.Exists() {
		return fmt.Errorf("failed to initialize project in '%s': %w", s.root, aceerrors.ErrStateExists)
	}

	if err := os.MkdirAll(s.projectDir(), dirPerm); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	// Set schema version before saving
	state.SchemaVersion = constants.StateSchemaVersion

	lockFile, err := s.acquireLock(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}
	defer func() { _ = s.releaseLock(lockFile) }()

	if err := Validate(state); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	if err := atomicWrite(s.stateFilePath(), data); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	return nil
}

// Load reads and validates the state document.
func (s *FileStore) Load(ctx context.Context) (*domain.ProjectState, error) {
	// Check for cancellation at entry
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if !s.Exists() {
		return nil, fmt.Errorf("no project in '%s': %w", s.root, aceerrors.ErrStateNotFound)
	}

	lockFile, err := s.acquireLock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	defer func() { _ = s.releaseLock(lockFile) }()

	return s.readLocked()
}

// Save writes the current state document (atomic write).
func (s *FileStore) Save(ctx context.Context, state *domain.ProjectState) error {
	// Check for cancellation at entry
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if state == nil {
		return fmt.Errorf("failed to save state: state %w", aceerrors.ErrEmptyValue)
	}

	if !s.Exists() {
		return fmt.Errorf("no project in '%s': %w", s.root, aceerrors.ErrStateNotFound)
	}

	lockFile, err := s.acquireLock(ctx)
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	defer func() { _ = s.releaseLock(lockFile) }()

	return s.writeLocked(state)
}

// Update applies fn to the state document under a single exclusive lock.
// The lock spans the whole read-modify-write, so interleaved writers cannot
// lose updates.
func (s *FileStore) Update(ctx context.Context, fn func(*domain.ProjectState) error) (*domain.ProjectState, error) {
	// Check for cancellation at entry
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if fn == nil {
		return nil, fmt.Errorf("failed to update state: fn %w", aceerrors.ErrEmptyValue)
	}

	if !s.Exists() {
		return nil, fmt.Errorf("no project in '%s': %w", s.root, aceerrors.ErrStateNotFound)
	}

	lockFile, err := s.acquireLock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update state: %w", err)
	}
	defer func() { _ = s.releaseLock(lockFile) }()

	state, err := s.readLocked()
	if err != nil {
		return nil, err
	}

	if err := fn(state); err != nil {
		return nil, err
	}

	if err := s.writeLocked(state); err != nil {
		return nil, err
	}

	return state, nil
}

// readLocked reads and validates the state document. The caller holds the
// file lock.
func (s *FileStore) readLocked() (*domain.ProjectState, error) {
	data, err := os.ReadFile(s.stateFilePath()) //#nosec G304 -- path is constructed from trusted base
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no project in '%s': %w", s.root, aceerrors.ErrStateNotFound)
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	var state domain.ProjectState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %s", aceerrors.ErrStateCorrupt, err)
	}

	if err := Validate(&state); err != nil {
		return nil, err
	}

	return &state, nil
}

// writeLocked validates and atomically writes the state document. The caller
// holds the file lock.
func (s *FileStore) writeLocked(state *domain.ProjectState) error {
	if err := Validate(state); err != nil {
		return fmt.Errorf("refusing to save: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	if err := atomicWrite(s.stateFilePath(), data); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	return nil
}

// Exists reports whether a state document is present.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.stateFilePath())
	return err == nil
}

// Helper methods for path construction

// projectDir returns the path to the project's .aceflow directory.
func (s *FileStore) projectDir() string {
	return filepath.Join(s.root, constants.ProjectDir)
}

// stateFilePath returns the path to the state document.
func (s *FileStore) stateFilePath() string {
	return filepath.Join(s.projectDir(), constants.StateFileName)
}

// lockFilePath returns the path to the state lock file.
func (s *FileStore) lockFilePath() string {
	return filepath.Join(s.projectDir(), constants.StateFileName+".lock")
}

// acquireLock acquires an exclusive file lock for the state document.
// It respects context cancellation during the lock acquisition retry loop.
func (s *FileStore) acquireLock(ctx context.Context) (*os.File, error) {
	if err := os.MkdirAll(s.projectDir(), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(s.lockFilePath(), os.O_CREATE|os.O_RDWR, filePerm) //#nosec G302,G304 -- lock file needs write access, path is constructed internally
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	// Try to acquire lock with timeout
	deadline := time.Now().Add(s.lockTimeout)
	for {
		// Check for context cancellation
		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, ctx.Err()
		default:
		}

		if err := flock.Exclusive(f.Fd()); err == nil {
			return f, nil
		}

		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, fmt.Errorf("failed to acquire lock: %w", aceerrors.ErrLockTimeout)
		}

		// Wait a bit before retrying
		time.Sleep(constants.LockRetryInterval)
	}
}

// releaseLock releases a file lock.
func (s *FileStore) releaseLock(f *os.File) error {
	if f == nil {
		return nil
	}

	if err := flock.Unlock(f.Fd()); err != nil {
		// Still try to close the file
		_ = f.Close()
		return fmt.Errorf("failed to release lock: %w", err)
	}

	return f.Close()
}

// atomicWrite writes data to a file atomically using write-then-rename.
// Uses filePerm (0o600) for secure file permissions.
func atomicWrite(path string, data []byte) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm) //#nosec G304 -- path is constructed internally
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write data: %w", err)
	}

	// Sync to disk (ensure data is persisted before rename)
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
