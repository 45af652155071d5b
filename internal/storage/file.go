package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jwebster45206/adventure-engine/pkg/storage"
)

// FileStorage keeps each key in its own file under a directory. It is the
// client-local store used by the terminal client.
type FileStorage struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

var _ storage.Storage = (*FileStorage)(nil)

// NewFileStorage creates dir if needed.
func NewFileStorage(dir string, logger *slog.Logger) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}
	return &FileStorage{dir: dir, logger: logger}, nil
}

var keyReplacer = strings.NewReplacer(":", "_", "/", "_", "\\", "_", "..", "_")

func (f *FileStorage) path(key string) string {
	return filepath.Join(f.dir, keyReplacer.Replace(key)+".json")
}

func (f *FileStorage) Ping(ctx context.Context) error {
	info, err := os.Stat(f.dir)
	if err != nil {
		return fmt.Errorf("save directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("save path %s is not a directory", f.dir)
	}
	return nil
}

func (f *FileStorage) Close() error {
	return nil
}

// write replaces the file atomically so a crash never leaves half a snapshot.
func (f *FileStorage) write(key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path(key))
}

func (f *FileStorage) read(key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func (f *FileStorage) SaveSnapshot(ctx context.Context, key string, data []byte) error {
	if err := f.write(key, data); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	f.logger.Debug("Snapshot saved", "path", f.path(key), "bytes", len(data))
	return nil
}

func (f *FileStorage) LoadSnapshot(ctx context.Context, key string) ([]byte, error) {
	data, err := f.read(key)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return data, nil
}

func (f *FileStorage) DeleteSnapshot(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (f *FileStorage) SetFlag(ctx context.Context, key string, value bool) error {
	data := []byte("false")
	if value {
		data = []byte("true")
	}
	if err := f.write(key, data); err != nil {
		return fmt.Errorf("failed to set flag: %w", err)
	}
	return nil
}

func (f *FileStorage) GetFlag(ctx context.Context, key string) (bool, error) {
	data, err := f.read(key)
	if err != nil {
		return false, fmt.Errorf("failed to get flag: %w", err)
	}
	return strings.TrimSpace(string(data)) == "true", nil
}
