// Package archive unpacks pack archives onto hosts with legacy path-length
// limits. A pre-scan picks the least invasive strategy that fits the limit;
// when an attempt still fails on length or permissions the extractor
// escalates through progressively shorter staging locations, ending with a
// hashed directory under the filesystem root when even the destination path
// is too long to exist.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"clonecore/pkg/domain"
)

const (
	// windowsSafePathLimit keeps a margin under the 260-character MAX_PATH
	// so downstream tools can append suffixes without tipping over.
	windowsSafePathLimit = 250
	// defaultPathLimit is the floor assumed on hosts without the legacy
	// limit. Never set lower than this except through an explicit option.
	defaultPathLimit = 1024

	dirPerm = 0o755
)

// Logger is the subset of a structured logger the extractor uses.
// *slog.Logger satisfies it.
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

// MetricsHook receives the settled outcome of each extraction.
type MetricsHook interface {
	ObserveExtraction(strategy string, failures int)
}

// DefaultPathLimit returns the platform's safe final-path length.
func DefaultPathLimit() int {
	if runtime.GOOS == "windows" {
		return windowsSafePathLimit
	}
	return defaultPathLimit
}

// Extractor unpacks zip archives with the escalation chain described on
// ExtractionStrategy. The zero value is not usable; construct with New.
type Extractor struct {
	pathLimit int
	tempDir   string
	rootDir   string
	logger    Logger
	metrics   MetricsHook
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithPathLimit overrides the platform path limit. Values below 1 are
// ignored.
func WithPathLimit(limit int) Option {
	return func(e *Extractor) {
		if limit > 0 {
			e.pathLimit = limit
		}
	}
}

// WithTempDir overrides the staging area used by the short-name strategy.
func WithTempDir(dir string) Option {
	return func(e *Extractor) {
		if dir != "" {
			e.tempDir = dir
		}
	}
}

// WithRootDir overrides the directory the root fallback creates its hashed
// directory under. Defaults to the filesystem root.
func WithRootDir(dir string) Option {
	return func(e *Extractor) {
		if dir != "" {
			e.rootDir = dir
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics attaches an extraction metrics hook.
func WithMetrics(hook MetricsHook) Option {
	return func(e *Extractor) {
		e.metrics = hook
	}
}

// New builds an Extractor with platform defaults.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		pathLimit: DefaultPathLimit(),
		tempDir:   os.TempDir(),
		rootDir:   string(os.PathSeparator),
		logger:    noopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// errEscalate marks a strategy-level failure the next strategy in the chain
// might absorb. Anything not wrapped with it aborts the whole extraction.
var errEscalate = errors.New("strategy exhausted")

// Extract unpacks archivePath into destDir. The returned result is
// meaningful even on error: a disk-full abort reports every entry that was
// not placed. Callers must read ActualDir rather than assume destDir; under
// the root fallback the two differ and Relocated is set.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string) (domain.ExtractionResult, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		// Unsafe entry names are rejected per entry, not per archive.
		if reader == nil || !errors.Is(err, zip.ErrInsecurePath) {
			res := domain.ExtractionResult{Strategy: domain.StrategyFailed, RequestedDir: destDir}
			e.observe(res)
			return res, fmt.Errorf("open archive %s: %w", archivePath, err)
		}
	}
	defer reader.Close()

	destAbs, err := filepath.Abs(destDir)
	if err != nil {
		res := domain.ExtractionResult{Strategy: domain.StrategyFailed, RequestedDir: destDir}
		e.observe(res)
		return res, fmt.Errorf("resolve destination %s: %w", destDir, err)
	}

	longest := 0
	for _, f := range reader.File {
		if n := len(f.Name); n > longest {
			longest = n
		}
	}
	plan := PlanFor(destAbs, longest, e.pathLimit)
	e.logger.Debug("extraction planned",
		"archive", archivePath,
		"strategy", string(plan.Strategy),
		"worst_case", plan.WorstCase,
		"limit", e.pathLimit,
	)

	strategy := plan.Strategy
	var warnings []string
	var lastErr error
	for !strategy.Terminal() {
		if err := ctx.Err(); err != nil {
			res := domain.ExtractionResult{Strategy: strategy, RequestedDir: destAbs}
			e.observe(res)
			return res, err
		}
		res, err := e.attempt(strategy, reader.File, destAbs)
		res.RequestedDir = destAbs
		if err == nil {
			res.Warnings = append(warnings, res.Warnings...)
			if res.Relocated {
				e.logger.Warn("destination over path limit, files relocated",
					"requested", destAbs,
					"actual", res.ActualDir,
				)
			}
			e.observe(res)
			return res, nil
		}
		if !errors.Is(err, errEscalate) {
			res.Strategy = domain.StrategyFailed
			res.Warnings = append(warnings, res.Warnings...)
			e.observe(res)
			return res, err
		}
		lastErr = err
		next := strategy.Next()
		warnings = append(warnings, fmt.Sprintf("%s extraction failed, falling back to %s", strategy, next))
		e.logger.Warn("extraction strategy failed, escalating",
			"from", string(strategy),
			"to", string(next),
			"err", err,
		)
		strategy = next
	}

	res := domain.ExtractionResult{
		Strategy:     domain.StrategyFailed,
		RequestedDir: destAbs,
		Warnings:     warnings,
	}
	e.observe(res)
	return res, fmt.Errorf("all extraction strategies failed for %s: %w", archivePath, lastErr)
}

func (e *Extractor) observe(res domain.ExtractionResult) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveExtraction(string(res.Strategy), len(res.Failures))
}

func (e *Extractor) attempt(strategy domain.ExtractionStrategy, files []*zip.File, dest string) (domain.ExtractionResult, error) {
	switch strategy {
	case domain.StrategyDirect:
		return e.extractDirect(files, dest)
	case domain.StrategyStagedShort:
		return e.extractStagedShort(files, dest)
	case domain.StrategyStagedRoot:
		return e.extractStagedRoot(files, dest)
	}
	return domain.ExtractionResult{Strategy: strategy}, fmt.Errorf("unknown extraction strategy %q", strategy)
}

// extractDirect places entries straight into the destination. The first
// length or permission failure escalates, since a shorter staging path may
// absorb it; later strategies record such entries as failures instead.
func (e *Extractor) extractDirect(files []*zip.File, dest string) (domain.ExtractionResult, error) {
	res := domain.ExtractionResult{Strategy: domain.StrategyDirect, ActualDir: dest}
	if err := os.MkdirAll(dest, dirPerm); err != nil {
		if isEscalatable(err) {
			return res, fmt.Errorf("create destination %s: %v: %w", dest, err, errEscalate)
		}
		return res, fmt.Errorf("create destination %s: %w", dest, err)
	}
	for i, f := range files {
		rel, err := entryRelPath(f.Name)
		if err != nil {
			res.Failures = append(res.Failures, domain.EntryFailure{Path: f.Name, Reason: err.Error()})
			continue
		}
		if isDirEntry(f) {
			if err := os.MkdirAll(filepath.Join(dest, rel), dirPerm); err != nil {
				res.Failures = append(res.Failures, domain.EntryFailure{Path: f.Name, Reason: err.Error()})
			}
			continue
		}
		if err := writeEntry(f, filepath.Join(dest, rel)); err != nil {
			if isDiskFull(err) {
				res.Failures = append(res.Failures, domain.EntryFailure{Path: f.Name, Reason: err.Error()})
				markUnprocessed(&res, files[i+1:])
				return res, fmt.Errorf("extract %s: %w", f.Name, err)
			}
			if isEscalatable(err) {
				return res, fmt.Errorf("extract %s: %v: %w", f.Name, err, errEscalate)
			}
			res.Failures = append(res.Failures, domain.EntryFailure{Path: f.Name, Reason: err.Error()})
			continue
		}
		res.Extracted++
	}
	return res, nil
}

// extractStagedShort unpacks into a short hashed directory under the temp
// area, then moves each file to its final location. The staging directory is
// removed whether or not the move phase succeeds.
func (e *Extractor) extractStagedShort(files []*zip.File, dest string) (domain.ExtractionResult, error) {
	res := domain.ExtractionResult{Strategy: domain.StrategyStagedShort, ActualDir: dest}
	staging, err := mkdirUnique(e.tempDir, stagedDirName(dest))
	if err != nil {
		return res, fmt.Errorf("create staging dir under %s: %v: %w", e.tempDir, err, errEscalate)
	}
	defer os.RemoveAll(staging)

	staged, err := e.stageEntries(&res, files, staging)
	if err != nil {
		return res, err
	}

	if err := os.MkdirAll(dest, dirPerm); err != nil {
		if isEscalatable(err) {
			return res, fmt.Errorf("create destination %s: %v: %w", dest, err, errEscalate)
		}
		return res, fmt.Errorf("create destination %s: %w", dest, err)
	}
	for i, s := range staged {
		if s.dir {
			if err := os.MkdirAll(filepath.Join(dest, s.rel), dirPerm); err != nil {
				res.Failures = append(res.Failures, domain.EntryFailure{Path: s.name, Reason: err.Error()})
			}
			continue
		}
		target := filepath.Join(dest, s.rel)
		if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
			res.Failures = append(res.Failures, domain.EntryFailure{Path: s.name, Reason: err.Error()})
			continue
		}
		if err := moveFile(filepath.Join(staging, s.rel), target); err != nil {
			if isDiskFull(err) {
				res.Failures = append(res.Failures, domain.EntryFailure{Path: s.name, Reason: err.Error()})
				markUnprocessedStaged(&res, staged[i+1:])
				return res, fmt.Errorf("move %s: %w", s.name, err)
			}
			res.Failures = append(res.Failures, domain.EntryFailure{Path: s.name, Reason: err.Error()})
			continue
		}
		res.Extracted++
	}
	return res, nil
}

// extractStagedRoot unpacks into a hashed directory just under the root
// area. There is no move phase: the staging directory is the delivery
// location, so the result is marked relocated and the directory is kept.
func (e *Extractor) extractStagedRoot(files []*zip.File, dest string) (domain.ExtractionResult, error) {
	res := domain.ExtractionResult{Strategy: domain.StrategyStagedRoot}
	actual, err := mkdirUnique(e.rootDir, rootDirName(dest))
	if err != nil {
		return res, fmt.Errorf("create root fallback dir under %s: %v: %w", e.rootDir, err, errEscalate)
	}
	res.ActualDir = actual
	res.Relocated = true
	res.Warnings = append(res.Warnings, fmt.Sprintf("destination %s exceeds the path limit; files relocated to %s", dest, actual))

	staged, err := e.stageEntries(&res, files, actual)
	if err != nil {
		return res, err
	}
	for _, s := range staged {
		if !s.dir {
			res.Extracted++
		}
	}
	return res, nil
}

type stagedEntry struct {
	name string // original archive entry name, for failure reports
	rel  string // normalized relative path
	dir  bool
}

// stageEntries unpacks files under root, recording per-entry failures on
// res and returning the entries that landed. Disk exhaustion aborts with the
// remaining entries marked unprocessed.
func (e *Extractor) stageEntries(res *domain.ExtractionResult, files []*zip.File, root string) ([]stagedEntry, error) {
	var staged []stagedEntry
	for i, f := range files {
		rel, err := entryRelPath(f.Name)
		if err != nil {
			res.Failures = append(res.Failures, domain.EntryFailure{Path: f.Name, Reason: err.Error()})
			continue
		}
		if isDirEntry(f) {
			if err := os.MkdirAll(filepath.Join(root, rel), dirPerm); err != nil {
				res.Failures = append(res.Failures, domain.EntryFailure{Path: f.Name, Reason: err.Error()})
				continue
			}
			staged = append(staged, stagedEntry{name: f.Name, rel: rel, dir: true})
			continue
		}
		if err := writeEntry(f, filepath.Join(root, rel)); err != nil {
			if isDiskFull(err) {
				res.Failures = append(res.Failures, domain.EntryFailure{Path: f.Name, Reason: err.Error()})
				markUnprocessed(res, files[i+1:])
				return staged, fmt.Errorf("stage %s: %w", f.Name, err)
			}
			res.Failures = append(res.Failures, domain.EntryFailure{Path: f.Name, Reason: err.Error()})
			continue
		}
		staged = append(staged, stagedEntry{name: f.Name, rel: rel})
	}
	return staged, nil
}

// writeEntry copies one archive file to target, creating parent directories.
func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(target)
		return err
	}
	return out.Close()
}

// moveFile prefers a rename and falls back to copying through a temp file in
// the target directory, so the destination only ever sees complete files.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".move-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Remove(src)
}

// mkdirUnique creates a fresh directory named base under parent, probing
// numeric suffixes past leftovers from earlier runs. Staging directories
// must never be shared between invocations.
func mkdirUnique(parent, base string) (string, error) {
	for i := 0; i < 1000; i++ {
		name := base
		if i > 0 {
			name = base + strconv.Itoa(i)
		}
		dir := filepath.Join(parent, name)
		err := os.Mkdir(dir, dirPerm)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("no unique directory name under %s for %s", parent, base)
}

// entryRelPath normalizes an archive entry name to a host-local relative
// path, rejecting absolute paths and anything that would escape the
// destination.
func entryRelPath(name string) (string, error) {
	cleaned := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if cleaned == "." || cleaned == "" {
		return "", errors.New("empty entry name")
	}
	if path.IsAbs(cleaned) {
		return "", fmt.Errorf("absolute entry path %q rejected", name)
	}
	native := filepath.FromSlash(cleaned)
	if !filepath.IsLocal(native) {
		return "", fmt.Errorf("entry path %q escapes the destination", name)
	}
	return native, nil
}

func isDirEntry(f *zip.File) bool {
	return strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir()
}

// isEscalatable reports whether a shorter staging path might absorb the
// failure: path length limits and permission refusals on long trees.
func isEscalatable(err error) bool {
	return errors.Is(err, syscall.ENAMETOOLONG) || errors.Is(err, fs.ErrPermission)
}

// isDiskFull reports exhausted storage, which no fallback can absorb.
func isDiskFull(err error) bool {
	return errors.Is(err, syscall.ENOSPC)
}

func markUnprocessed(res *domain.ExtractionResult, remaining []*zip.File) {
	for _, f := range remaining {
		if isDirEntry(f) {
			continue
		}
		res.Failures = append(res.Failures, domain.EntryFailure{Path: f.Name, Reason: "not attempted: disk full"})
	}
}

func markUnprocessedStaged(res *domain.ExtractionResult, remaining []stagedEntry) {
	for _, s := range remaining {
		if s.dir {
			continue
		}
		res.Failures = append(res.Failures, domain.EntryFailure{Path: s.name, Reason: "not attempted: disk full"})
	}
}
