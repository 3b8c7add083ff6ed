package domain

import (
	"io"
	"io/fs"
	"time"
)

var _ fs.FileInfo = (*FileInfo)(nil)

type FileInfo struct {
	FName        string
	FSize        int64
	FMode        fs.FileMode
	ModifiedTime time.Time
}

func (f FileInfo) Name() string {
	return f.FName
}

func (f FileInfo) Size() int64 {
	return f.FSize
}

func (f FileInfo) Mode() fs.FileMode {
	return f.FMode
}

func (f FileInfo) ModTime() time.Time {
	return f.ModifiedTime
}

func (f FileInfo) IsDir() bool {
	return f.FMode.IsDir()
}

func (f FileInfo) Sys() any {
	return f
}

// Storage holds the pipeline's working files: fetched resources and
// generated artifacts. Names are relative to the storage root.
type Storage interface {
	// Open opens the named file for reading.
	Open(name string) (io.ReadCloser, error)

	// WriteFile creates a file and writes content from the reader.
	// If the file exists, it will be truncated
	WriteFile(name string, info FileInfo, reader io.Reader) error

	// Stat returns file information for the given name
	Stat(name string) (fs.FileInfo, error)
}

// ArtifactMode is the permission used for every file the pipeline writes.
const ArtifactMode fs.FileMode = 0644
