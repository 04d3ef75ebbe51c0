// Package fileutil provides the file primitives used to rewrite release
// artifacts (manifest, changelog) without leaving them half-written.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Size limits for files crateship reads whole.
const (
	MaxManifestSize  int64 = 1 << 20
	MaxChangelogSize int64 = 8 << 20
)

// ErrNotFound is returned by FindUp when no ancestor holds the file.
var ErrNotFound = errors.New("file not found in any parent directory")

type tempFile interface {
	Name() string
	Chmod(os.FileMode) error
	Write([]byte) (int, error)
	Sync() error
	Close() error
}

type fsOps struct {
	createTemp func(dir, pattern string) (tempFile, error)
	rename     func(oldpath, newpath string) error
	remove     func(path string) error
	stat       func(path string) (os.FileInfo, error)
}

func defaultFSOps() fsOps {
	return fsOps{
		createTemp: func(dir, pattern string) (tempFile, error) {
			return os.CreateTemp(dir, pattern)
		},
		rename: os.Rename,
		remove: os.Remove,
		stat:   os.Stat,
	}
}

// ReadFileLimited reads a file of at most maxSize bytes.
func ReadFileLimited(path string, maxSize int64) ([]byte, error) {
	f, err := os.Open(path) // #nosec G304 -- paths come from the project root
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("file size %d exceeds maximum allowed size %d", info.Size(), maxSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("file size exceeds maximum allowed size %d", maxSize)
	}
	return data, nil
}

// AtomicWriteFile writes data to path via a temp file and rename, so readers
// never observe a partial file.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	return atomicWriteFile(path, data, perm, defaultFSOps())
}

// ReplaceFile atomically rewrites an existing file, keeping its permission
// bits. New files get 0644.
func ReplaceFile(path string, data []byte) error {
	return replaceFile(path, data, defaultFSOps())
}

func replaceFile(path string, data []byte, ops fsOps) error {
	perm := os.FileMode(0o644)
	info, err := ops.stat(path)
	switch {
	case err == nil:
		perm = info.Mode().Perm()
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return atomicWriteFile(path, data, perm, ops)
}

func atomicWriteFile(path string, data []byte, perm os.FileMode, ops fsOps) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	// Same directory, so the rename cannot cross filesystems.
	tmpFile, err := ops.createTemp(dir, "."+base+".tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
			_ = ops.remove(tmpPath)
		}
	}()

	if err := tmpFile.Chmod(perm); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	tmpFile = nil

	if err := ops.rename(tmpPath, path); err != nil {
		_ = ops.remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// FindUp walks from start towards the filesystem root and returns the first
// directory that contains name.
func FindUp(start, name string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		info, err := os.Stat(filepath.Join(dir, name))
		if err == nil && !info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: %s (searched from %s)", ErrNotFound, name, start)
		}
		dir = parent
	}
}
