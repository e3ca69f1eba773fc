package ui

import (
	"context"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sync"

	"github.com/desertthunder/tunebox/internal/shared"
)

// LocalFiles is a [bot.FileFetcher] over files on the local disk.
//
// Registered paths get a stable file id derived from the absolute path, so adding the same file twice
// refers to the same Track Record.
type LocalFiles struct {
	mu    sync.RWMutex
	paths map[string]string
}

func NewLocalFiles() *LocalFiles {
	return &LocalFiles{paths: make(map[string]string)}
}

// Register makes path fetchable and returns its file id.
func (f *LocalFiles) Register(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", shared.ErrInvalidInput, path)
	}

	id := fmt.Sprintf("local_%08x", crc32.ChecksumIEEE([]byte(abs)))
	f.mu.Lock()
	f.paths[id] = abs
	f.mu.Unlock()
	return id, nil
}

func (f *LocalFiles) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	path, ok := f.paths[fileID]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: file %s", shared.ErrNotFound, fileID)
	}
	return os.ReadFile(path)
}
