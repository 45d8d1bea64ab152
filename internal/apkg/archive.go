// Package apkg handles the exported flashcard package container: a
// zip-compatible archive holding a collection database and an optional
// media index.
package apkg

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	// ErrArchiveOpen means the container itself could not be read.
	ErrArchiveOpen = errors.New("apkg: cannot open package archive")
	// ErrMissingCollection means no recognizable collection database
	// entry exists in the archive.
	ErrMissingCollection = errors.New("apkg: no collection database in package")
	// ErrExtract means an archive entry could not be materialized.
	ErrExtract = errors.New("apkg: failed to extract entry")
)

// Entry describes a single archive member.
type Entry struct {
	Path string
	Dir  bool
}

// Archive is an opened package container. Close it when done; every
// operation re-reads from the underlying zip, so iteration is restartable.
type Archive struct {
	path   string
	reader *zip.ReadCloser
}

// Open opens the package at the given path. A container that cannot be
// read as a zip archive yields ErrArchiveOpen.
func Open(path string) (*Archive, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArchiveOpen, path, err)
	}
	return &Archive{path: path, reader: reader}, nil
}

func (a *Archive) Close() error {
	return a.reader.Close()
}

// Entries lists every member of the archive in stored order.
func (a *Archive) Entries() []Entry {
	entries := make([]Entry, 0, len(a.reader.File))
	for _, file := range a.reader.File {
		entries = append(entries, Entry{
			Path: file.Name,
			Dir:  file.FileInfo().IsDir(),
		})
	}
	return entries
}

func (a *Archive) find(entryPath string) *zip.File {
	for _, file := range a.reader.File {
		if file.Name == entryPath {
			return file
		}
	}
	return nil
}

// ReadEntry extracts an entry into memory.
func (a *Archive) ReadEntry(entryPath string) ([]byte, error) {
	file := a.find(entryPath)
	if file == nil {
		return nil, fmt.Errorf("%w: %s: no such entry", ErrExtract, entryPath)
	}

	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtract, entryPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtract, entryPath, err)
	}
	return data, nil
}

// ExtractEntry writes an entry to destPath, creating parent directories.
// Entry names are not sanitized here; callers own destination naming.
func (a *Archive) ExtractEntry(entryPath, destPath string) error {
	file := a.find(entryPath)
	if file == nil {
		return fmt.Errorf("%w: %s: no such entry", ErrExtract, entryPath)
	}

	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExtract, entryPath, err)
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExtract, entryPath, err)
	}

	outFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExtract, entryPath, err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, rc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExtract, entryPath, err)
	}
	return nil
}
