package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// BlobStore is the key-value persistence boundary: a single slot holding the
// serialized session snapshot.
type BlobStore interface {
	// Load returns the stored snapshot, or (nil, nil) when none exists yet.
	Load() ([]byte, error)

	// Save replaces the stored snapshot.
	Save(data []byte) error
}

// FileBlob stores the snapshot in a single file, written atomically.
type FileBlob struct {
	path string
}

// NewFileBlob creates a file-backed blob store at the given path.
func NewFileBlob(path string) *FileBlob {
	return &FileBlob{path: path}
}

// Load reads the snapshot file.
func (b *FileBlob) Load() ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return data, nil
}

// Save writes the snapshot via a temp file and rename so a crash mid-write
// never leaves a truncated snapshot behind.
func (b *FileBlob) Save(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("failed to ensure snapshot dir: %w", err)
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("failed to rename temp snapshot: %w", err)
	}
	return nil
}

// MemoryBlob keeps the snapshot in memory. Used in tests and as a fallback
// when no store path is configured.
type MemoryBlob struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryBlob creates an empty in-memory blob store.
func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{}
}

// Load returns the current snapshot.
func (b *MemoryBlob) Load() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return nil, nil
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, nil
}

// Save replaces the current snapshot.
func (b *MemoryBlob) Save(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = make([]byte, len(data))
	copy(b.data, data)
	return nil
}
