// Package packs discovers content pack archives on disk: manifest parsing,
// gender relevance detection from archive layout markers, glob-based
// scanning, and a filesystem watcher for drop folders.
package packs

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"clonecore/pkg/domain"
)

// manifestName is the well-known metadata entry at the archive root.
const manifestName = "packinfo.json"

// ErrNoManifest reports an archive without a packinfo.json entry. Trait
// packs commonly lack one; only registered content packs carry it.
var ErrNoManifest = errors.New("packinfo.json not found in archive")

// Logger is the subset of a structured logger this package uses.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ReadManifest opens a pack archive and parses its packinfo.json.
func ReadManifest(archivePath string) (domain.PackManifest, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return domain.PackManifest{}, fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer r.Close()
	return readManifest(&r.Reader)
}

func readManifest(r *zip.Reader) (domain.PackManifest, error) {
	for _, f := range r.File {
		if f.Name != manifestName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return domain.PackManifest{}, fmt.Errorf("open %s: %w", manifestName, err)
		}
		defer rc.Close()
		var m domain.PackManifest
		if err := json.NewDecoder(rc).Decode(&m); err != nil {
			return domain.PackManifest{}, fmt.Errorf("parse %s: %w", manifestName, err)
		}
		if m.Name == "" {
			return domain.PackManifest{}, fmt.Errorf("%s missing pack_name", manifestName)
		}
		if m.Type == "" {
			return domain.PackManifest{}, fmt.Errorf("%s missing pack_type", manifestName)
		}
		return m, nil
	}
	return domain.PackManifest{}, ErrNoManifest
}

// ExtractDir returns the conventional extraction directory for a manifest
// under the content packs root: <root>/<type>/<subdir>.
func ExtractDir(root string, m domain.PackManifest) string {
	return filepath.Join(root, m.Type, m.Subdir)
}
