package filesystem

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/Rudd3r/nftroute/pkg/domain"
)

func TestNewOSStorage(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "work")

	storage, err := NewOSStorage(tmpDir)
	if err != nil {
		t.Fatalf("NewOSStorage failed: %v", err)
	}

	if storage.BaseDir() != tmpDir {
		t.Errorf("expected baseDir %s, got %s", tmpDir, storage.BaseDir())
	}

	info, err := os.Stat(tmpDir)
	if err != nil {
		t.Fatalf("base directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("base path is not a directory")
	}
}

func TestOSStorage_WriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	storage, _ := NewOSStorage(tmpDir)

	content := []byte("hello world")
	err := storage.WriteFile("test.txt", domain.FileInfo{FMode: 0644}, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "test.txt"))
	if err != nil {
		t.Fatalf("file not created: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Errorf("expected content %q, got %q", content, data)
	}

	// overwrite truncates
	if err := storage.WriteFile("test.txt", domain.FileInfo{}, bytes.NewReader([]byte("hi"))); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, _ = os.ReadFile(filepath.Join(tmpDir, "test.txt"))
	if string(data) != "hi" {
		t.Errorf("expected overwritten content %q, got %q", "hi", data)
	}

	entries, _ := os.ReadDir(tmpDir)
	if len(entries) != 1 {
		t.Errorf("expected no leftover temp files, got %d entries", len(entries))
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestOSStorage_WriteFileFailureKeepsPrevious(t *testing.T) {
	tmpDir := t.TempDir()
	storage, _ := NewOSStorage(tmpDir)

	if err := storage.WriteFile("keep.txt", domain.FileInfo{}, bytes.NewReader([]byte("old"))); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	err := storage.WriteFile("keep.txt", domain.FileInfo{}, io.MultiReader(bytes.NewReader([]byte("new")), failingReader{}))
	if err == nil {
		t.Fatal("expected write error")
	}

	data, _ := os.ReadFile(filepath.Join(tmpDir, "keep.txt"))
	if string(data) != "old" {
		t.Errorf("expected previous content to survive, got %q", data)
	}
	entries, _ := os.ReadDir(tmpDir)
	if len(entries) != 1 {
		t.Errorf("expected temp file to be cleaned up, got %d entries", len(entries))
	}
}

func TestOSStorage_Open(t *testing.T) {
	tmpDir := t.TempDir()
	storage, _ := NewOSStorage(tmpDir)

	if err := os.WriteFile(filepath.Join(tmpDir, "in.txt"), []byte("payload"), 0644); err != nil {
		t.Fatal(err)
	}

	rc, err := storage.Open("in.txt")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "payload" {
		t.Errorf("expected %q, got %q", "payload", data)
	}

	_, err = storage.Open("missing.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestOSStorage_NormalizePath(t *testing.T) {
	tmpDir := t.TempDir()
	storage, _ := NewOSStorage(tmpDir)

	tests := []struct {
		input string
		want  string
	}{
		{"file.txt", filepath.Join(tmpDir, "file.txt")},
		{"/file.txt", filepath.Join(tmpDir, "file.txt")},
		{filepath.Join(tmpDir, "file.txt"), filepath.Join(tmpDir, "file.txt")},
	}
	for _, tt := range tests {
		if got := storage.normalizePath(tt.input); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestOSStorage_Stat(t *testing.T) {
	tmpDir := t.TempDir()
	storage, _ := NewOSStorage(tmpDir)

	if err := storage.WriteFile("s.txt", domain.FileInfo{FMode: 0600}, bytes.NewReader([]byte("12345"))); err != nil {
		t.Fatal(err)
	}
	info, err := storage.Stat("s.txt")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("expected size 5, got %d", info.Size())
	}

	if _, err := storage.Stat("nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}
