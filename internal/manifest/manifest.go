// Package manifest reads and rewrites the name and version declared in a
// Cargo manifest.
//
// Fields are located line by line rather than through a full TOML round
// trip so that a rewrite leaves every other byte of the file untouched.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/pelletier/go-toml/v2"

	"github.com/relicta-tech/crateship/internal/domain/release/ports"
	"github.com/relicta-tech/crateship/internal/domain/version"
	"github.com/relicta-tech/crateship/internal/fileutil"
)

var (
	// ErrMetadataParse indicates the name or version field could not be found.
	ErrMetadataParse = errors.New("could not read package metadata")
	// ErrWriteFailed indicates the version field could not be replaced.
	ErrWriteFailed = errors.New("failed to update manifest version")
)

var (
	nameRegex    = regexp.MustCompile(`(?m)^\s*name\s*=\s*"([^"]+)"\s*$`)
	versionRegex = regexp.MustCompile(`(?m)^\s*version\s*=\s*"([^"]+)"\s*$`)
	// writeRegex only matches unindented fields, mirroring what cargo emits.
	writeRegex = regexp.MustCompile(`(?m)^(version\s*=\s*")([^"]+)(")`)
)

// Metadata is the package identity declared in a manifest.
type Metadata struct {
	Name    string
	Version string
}

// Parse extracts the first name and version fields from manifest text.
func Parse(data []byte) (Metadata, error) {
	name := nameRegex.FindSubmatch(data)
	if name == nil {
		return Metadata{}, fmt.Errorf("%w: no name field", ErrMetadataParse)
	}
	ver := versionRegex.FindSubmatch(data)
	if ver == nil {
		return Metadata{}, fmt.Errorf("%w: no version field", ErrMetadataParse)
	}
	return Metadata{Name: string(name[1]), Version: string(ver[1])}, nil
}

// ReadNameAndVersion reads the manifest at path.
func ReadNameAndVersion(path string) (Metadata, error) {
	data, err := fileutil.ReadFileLimited(path, fileutil.MaxManifestSize)
	if err != nil {
		return Metadata{}, fmt.Errorf("reading %s: %w", path, err)
	}
	md, err := Parse(data)
	if err != nil {
		return Metadata{}, fmt.Errorf("%s: %w", path, err)
	}
	return md, nil
}

// ReplaceVersion returns data with the first version field set to newVersion.
// Only one occurrence is ever rewritten.
func ReplaceVersion(data []byte, newVersion string) ([]byte, error) {
	loc := writeRegex.FindSubmatchIndex(data)
	if loc == nil {
		return nil, fmt.Errorf("%w: no version field to replace", ErrWriteFailed)
	}
	start, end := loc[4], loc[5]

	out := make([]byte, 0, len(data)-(end-start)+len(newVersion))
	out = append(out, data[:start]...)
	out = append(out, newVersion...)
	out = append(out, data[end:]...)
	return out, nil
}

// cargoManifest is the subset of Cargo.toml checked after a rewrite.
type cargoManifest struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
}

// verify checks that rewritten text is still valid TOML and that its
// [package] table, when it declares a literal version, carries want.
func verify(data []byte, want string) error {
	var m cargoManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: rewritten manifest is not valid TOML: %v", ErrWriteFailed, err)
	}
	if m.Package.Version != "" && m.Package.Version != want {
		return fmt.Errorf("%w: [package] version is %q after rewrite, want %q",
			ErrWriteFailed, m.Package.Version, want)
	}
	return nil
}

// Writer rewrites manifest versions and keeps the lock file consistent.
type Writer struct {
	refresher ports.LockRefresher
}

// NewWriter creates a Writer. A nil refresher skips lock refreshes.
func NewWriter(refresher ports.LockRefresher) *Writer {
	return &Writer{refresher: refresher}
}

// ReadNameAndVersion reads the manifest at path.
func (w *Writer) ReadNameAndVersion(path string) (Metadata, error) {
	return ReadNameAndVersion(path)
}

// WriteVersion sets the manifest version to v. It reports whether the file
// changed; an unchanged file is neither written nor followed by a lock
// refresh.
func (w *Writer) WriteVersion(ctx context.Context, path string, v version.Version) (bool, error) {
	data, err := fileutil.ReadFileLimited(path, fileutil.MaxManifestSize)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}

	updated, err := ReplaceVersion(data, v.String())
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	if string(updated) == string(data) {
		return false, nil
	}
	if err := verify(updated, v.String()); err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}

	if err := fileutil.ReplaceFile(path, updated); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}

	if w.refresher != nil {
		if err := w.refresher.Refresh(ctx); err != nil {
			return true, fmt.Errorf("refreshing lock file: %w", err)
		}
	}
	return true, nil
}
