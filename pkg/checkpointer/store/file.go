package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileExtension is appended to slot names to form file names.
const FileExtension = ".ckpt"

const tempPattern = ".ckpt-*.tmp"

// FileStore keeps one file per slot in a directory.
//
// Writes go to a temporary file in the same directory which is synced and
// renamed over the slot file, so an interrupted write never leaves a
// half-written checkpoint where Read will find it.
type FileStore struct {
	dir    string
	mu     sync.RWMutex
	closed bool
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store: dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("file store: create dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory holding checkpoint files.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the file that holds slot.
func (s *FileStore) Path(slot string) string {
	return filepath.Join(s.dir, slot+FileExtension)
}

// Write implements Store.
func (s *FileStore) Write(ctx context.Context, slot string, data []byte) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	file, err := os.CreateTemp(s.dir, tempPattern)
	if err != nil {
		return fmt.Errorf("file store: create temp: %w", err)
	}
	tempPath := file.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("file store: write: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("file store: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("file store: close: %w", err)
	}
	if err := os.Rename(tempPath, s.Path(slot)); err != nil {
		return fmt.Errorf("file store: rename: %w", err)
	}
	committed = true

	syncDir(s.dir)
	return nil
}

// Read implements Store.
func (s *FileStore) Read(ctx context.Context, slot string) ([]byte, error) {
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	data, err := os.ReadFile(s.Path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("file store: read: %w", err)
	}
	return data, nil
}

// Exists implements Store.
func (s *FileStore) Exists(ctx context.Context, slot string) (bool, error) {
	if err := ValidateSlot(slot); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, ErrStoreClosed
	}

	info, err := os.Stat(s.Path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("file store: stat: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

// Delete implements Store.
func (s *FileStore) Delete(ctx context.Context, slot string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if err := os.Remove(s.Path(slot)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file store: delete: %w", err)
	}
	return nil
}

// List implements Store.
func (s *FileStore) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("file store: list: %w", err)
	}

	infos := make([]Info, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, FileExtension) || strings.HasPrefix(name, ".") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Slot:      strings.TrimSuffix(name, FileExtension),
			Size:      fi.Size(),
			UpdatedAt: fi.ModTime().UTC(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Slot < infos[j].Slot
	})
	return infos, nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// syncDir flushes the directory entry after a rename. Errors are ignored:
// not every platform supports syncing a directory handle.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
