package sheetio

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

// ArchiveEntry is one supported file inside a zip upload.
type ArchiveEntry struct {
	Name string // path inside the archive
	Size uint64
	file *zip.File
}

// Open returns the decompressed entry contents.
func (e ArchiveEntry) Open() (io.ReadCloser, error) {
	return e.file.Open()
}

// OpenArchive lists the entries worth classifying: supported extensions,
// no directories, nothing under __MACOSX/ and no dot-files.
func OpenArchive(data []byte) ([]ArchiveEntry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening zip archive: %w", err)
	}

	var entries []ArchiveEntry
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || skipArchiveEntry(f.Name) {
			continue
		}
		if !Known(Ext(f.Name)) {
			continue
		}
		entries = append(entries, ArchiveEntry{
			Name: f.Name,
			Size: f.UncompressedSize64,
			file: f,
		})
	}
	return entries, nil
}

func skipArchiveEntry(name string) bool {
	name = strings.ReplaceAll(name, "\\", "/")
	for _, part := range strings.Split(name, "/") {
		if part == "__MACOSX" {
			return true
		}
	}
	return strings.HasPrefix(path.Base(name), ".")
}
