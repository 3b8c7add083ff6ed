package filesystem

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Rudd3r/nftroute/pkg/domain"
	"github.com/google/uuid"
)

var _ domain.Storage = (*OSStorage)(nil)

// OSStorage implements Storage on the OS filesystem.
// It reads and writes files relative to a base directory for safety.
type OSStorage struct {
	baseDir string
}

// NewOSStorage creates a storage rooted at the specified base directory.
// The base directory will be created if it doesn't exist.
func NewOSStorage(baseDir string) (*OSStorage, error) {
	absPath, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	return &OSStorage{baseDir: absPath}, nil
}

func (w *OSStorage) BaseDir() string {
	return w.baseDir
}

// normalizePath converts names to be relative to baseDir
func (w *OSStorage) normalizePath(name string) string {
	if filepath.IsAbs(name) && strings.HasPrefix(name, w.baseDir) {
		return name
	}
	name = strings.TrimPrefix(name, "/")
	return filepath.Join(w.baseDir, name)
}

func (w *OSStorage) Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(w.normalizePath(name))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// WriteFile replaces name with the reader's content. The data is staged in a
// sibling temp file and renamed into place, so a failed write leaves any
// previous content untouched.
func (w *OSStorage) WriteFile(name string, info domain.FileInfo, reader io.Reader) (err error) {
	path := w.normalizePath(name)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	mode := info.FMode
	if mode == 0 {
		mode = domain.ArtifactMode
	}

	tmpPath := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, mode)
	if err != nil {
		return fmt.Errorf("create file %s: %w", name, err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = io.Copy(f, reader); err != nil {
		return fmt.Errorf("write file %s: %w", name, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", name, err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace file %s: %w", name, err)
	}

	return nil
}

func (w *OSStorage) Stat(name string) (fs.FileInfo, error) {
	path := w.normalizePath(name)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	return info, nil
}
