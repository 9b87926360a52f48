package packs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultPattern matches pack archives anywhere under a root.
const defaultPattern = "**/*.zip"

// Scanner finds pack archives under a root directory and inspects each one.
type Scanner struct {
	pattern string
	logger  Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithScanPattern overrides the archive glob pattern.
func WithScanPattern(pattern string) ScannerOption {
	return func(s *Scanner) {
		if pattern != "" {
			s.pattern = pattern
		}
	}
}

// WithScanLogger attaches a structured logger.
func WithScanLogger(logger Logger) ScannerOption {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScanner builds a Scanner with the default archive pattern.
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{pattern: defaultPattern, logger: noopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks root for archives matching the pattern, skipping hidden files
// and directories. Unreadable archives are logged and skipped rather than
// failing the whole scan; cloud-synced drop folders routinely hold
// half-uploaded files.
func (s *Scanner) Scan(root string) ([]Inspection, error) {
	matches, err := doublestar.Glob(os.DirFS(root), s.pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q under %s: %w", s.pattern, root, err)
	}
	sort.Strings(matches)

	var out []Inspection
	for _, rel := range matches {
		if hiddenPath(rel) {
			continue
		}
		insp, err := Inspect(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			s.logger.Warn("skipping unreadable archive", "path", rel, "err", err)
			continue
		}
		out = append(out, insp)
	}
	return out, nil
}

// hiddenPath reports whether any segment of a slash-separated relative path
// is a dotfile.
func hiddenPath(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
