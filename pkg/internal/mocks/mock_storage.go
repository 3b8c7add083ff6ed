package mocks

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Rudd3r/nftroute/pkg/domain"
)

var _ domain.Storage = (*MockStorage)(nil)

// MockStorage is an in-memory domain.Storage implementation for testing.
// Individual names can be made to fail on open or write.
type MockStorage struct {
	files     map[string]*mockFile
	openErrs  map[string]error
	writeErrs map[string]error
	writes    []string
}

// mockFile represents a file in the mock storage
type mockFile struct {
	content []byte
	info    domain.FileInfo
	modTime time.Time
}

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	if !testing.Testing() {
		panic(fmt.Errorf("NewMockStorage cannot be used outside test"))
	}
	return &MockStorage{
		files:     make(map[string]*mockFile),
		openErrs:  make(map[string]error),
		writeErrs: make(map[string]error),
	}
}

// normalize cleans the path for consistent lookups
func (m *MockStorage) normalize(name string) string {
	name = filepath.Clean(name)
	return strings.TrimPrefix(name, "/")
}

// Put seeds a file without recording a write.
func (m *MockStorage) Put(name, content string) {
	m.files[m.normalize(name)] = &mockFile{
		content: []byte(content),
		info:    domain.FileInfo{FMode: domain.ArtifactMode},
		modTime: time.Now(),
	}
}

// FailOpen makes every Open of name return err.
func (m *MockStorage) FailOpen(name string, err error) {
	m.openErrs[m.normalize(name)] = err
}

// FailWrite makes every WriteFile of name return err.
func (m *MockStorage) FailWrite(name string, err error) {
	m.writeErrs[m.normalize(name)] = err
}

func (m *MockStorage) Open(name string) (io.ReadCloser, error) {
	name = m.normalize(name)
	if err, ok := m.openErrs[name]; ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	file, exists := m.files[name]
	if !exists {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(file.content)), nil
}

// WriteFile creates a file and writes content from the reader
func (m *MockStorage) WriteFile(name string, info domain.FileInfo, reader io.Reader) error {
	name = m.normalize(name)
	if err, ok := m.writeErrs[name]; ok {
		return &os.PathError{Op: "write", Path: name, Err: err}
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	m.files[name] = &mockFile{
		content: content,
		info:    info,
		modTime: time.Now(),
	}
	m.writes = append(m.writes, name)
	return nil
}

// Stat returns file information for the given name
func (m *MockStorage) Stat(name string) (os.FileInfo, error) {
	name = m.normalize(name)

	file, exists := m.files[name]
	if !exists {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
	}
	fileInfo := file.info
	fileInfo.FName = filepath.Base(name)
	fileInfo.FSize = int64(len(file.content))
	fileInfo.ModifiedTime = file.modTime
	return fileInfo, nil
}

// GetFileContent returns the content of a file (for testing assertions)
func (m *MockStorage) GetFileContent(name string) ([]byte, error) {
	name = m.normalize(name)

	file, exists := m.files[name]
	if !exists {
		return nil, &os.PathError{Op: "read", Path: name, Err: os.ErrNotExist}
	}

	return file.content, nil
}

// FileExists checks if a file exists (for testing assertions)
func (m *MockStorage) FileExists(name string) bool {
	_, exists := m.files[m.normalize(name)]
	return exists
}

// Writes lists the names passed to successful WriteFile calls, in order.
func (m *MockStorage) Writes() []string {
	return append([]string(nil), m.writes...)
}
