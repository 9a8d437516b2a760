package ingest

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// File is one uploaded file. Name carries the extension used for dispatch.
type File interface {
	Name() string
	Open() (io.ReadCloser, error)
}

type bytesFile struct {
	name string
	data []byte
}

// BytesFile wraps an in-memory upload.
func BytesFile(name string, data []byte) File {
	return bytesFile{name: name, data: data}
}

func (f bytesFile) Name() string { return f.name }

func (f bytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

type pathFile struct {
	path string
}

// PathFile reads from the local filesystem. Name is the base name.
func PathFile(path string) File {
	return pathFile{path: path}
}

func (f pathFile) Name() string { return filepath.Base(f.path) }

func (f pathFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}
