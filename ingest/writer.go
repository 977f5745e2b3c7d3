package ingest

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"packcam/storage"
)

// ChunkWriter appends uploaded byte chunks to growing recording files.
// It keeps one open append handle per active file key so overlapping
// writers for the same key share a handle and preserve append order.
type ChunkWriter struct {
	paths *storage.PathResolver

	mu      sync.Mutex
	handles map[string]*os.File
}

// NewChunkWriter creates a chunk writer resolving keys through paths
func NewChunkWriter(paths *storage.PathResolver) *ChunkWriter {
	return &ChunkWriter{
		paths:   paths,
		handles: make(map[string]*os.File),
	}
}

// WriteChunk appends data to the file identified by fileKey, creating the
// file and any missing parent directories on first write. A write failure
// propagates to the caller and leaves the handle open, so retrying the
// same chunk is safe.
func (w *ChunkWriter) WriteChunk(fileKey string, data []byte) error {
	file, err := w.handle(fileKey)
	if err != nil {
		return err
	}

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to append chunk to %s: %w", fileKey, err)
	}

	return nil
}

// handle returns the open append handle for fileKey, opening one if needed.
// The key is resolved at call time, not at write-start time.
func (w *ChunkWriter) handle(fileKey string) (*os.File, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if file, ok := w.handles[fileKey]; ok {
		return file, nil
	}

	path, err := w.paths.Resolve(fileKey)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create recording directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording file %s: %w", fileKey, err)
	}

	w.handles[fileKey] = file
	return file, nil
}

// Finalize flushes and closes the handle for fileKey and returns the
// resulting file size in bytes. A key that was never written to yields
// size 0 without an error, which is how a cancelled zero-byte recording
// finishes.
func (w *ChunkWriter) Finalize(fileKey string) (int64, error) {
	w.mu.Lock()
	file, ok := w.handles[fileKey]
	delete(w.handles, fileKey)
	w.mu.Unlock()

	if ok {
		if err := file.Sync(); err != nil {
			file.Close()
			return 0, fmt.Errorf("failed to flush recording %s: %w", fileKey, err)
		}
		if err := file.Close(); err != nil {
			return 0, fmt.Errorf("failed to close recording %s: %w", fileKey, err)
		}
	}

	path, err := w.paths.Resolve(fileKey)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat recording %s: %w", fileKey, err)
	}

	return info.Size(), nil
}

// DeleteFile closes any open handle for fileKey without flushing pending
// writes and unlinks the file if present. Deleting an absent file is not
// an error.
func (w *ChunkWriter) DeleteFile(fileKey string) error {
	w.mu.Lock()
	file, ok := w.handles[fileKey]
	delete(w.handles, fileKey)
	w.mu.Unlock()

	if ok {
		if err := file.Close(); err != nil {
			log.Printf("ingest : error closing handle for %s before delete: %v", fileKey, err)
		}
	}

	path, err := w.paths.Resolve(fileKey)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete recording %s: %w", fileKey, err)
	}

	return nil
}

// OpenHandles reports the number of in-flight recording handles
func (w *ChunkWriter) OpenHandles() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.handles)
}
