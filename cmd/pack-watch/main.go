// Command pack-watch keeps the archive store in sync with content pack drop
// folders. On startup it stages archives already sitting under the roots,
// then watches for new ones and stages each archive once it settles,
// printing one line per staged pack.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"clonecore/internal/blob"
	"clonecore/internal/logging"
	"clonecore/internal/packs"
	"clonecore/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	roots   string
	pattern string
	gender  string
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pack-watch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.roots, "roots", "", "comma separated directories to watch for pack archives")
	fs.StringVar(&opts.pattern, "pattern", "", "glob matching archives below each root (default **/*.zip)")
	fs.StringVar(&opts.gender, "gender", "", "only stage archives relevant for this avatar base (female|male)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := run(context.Background(), opts, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "pack watch failed: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) error {
	roots := splitRoots(opts.roots)
	if len(roots) == 0 {
		return fmt.Errorf("-roots is required")
	}
	gender, err := parseGender(opts.gender)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := blob.Open(ctx)
	if err != nil {
		return err
	}
	logger := logging.New(stderr, logging.ParseLevel(os.Getenv("CLONECORE_LOG_LEVEL")), os.Getenv("CLONECORE_LOG_FORMAT"))

	watcher, err := packs.NewWatcher(func(event packs.ArchiveEvent) {
		insp, err := packs.Inspect(event.Path)
		if err != nil {
			logger.Warn("archive not staged", "path", event.Path, "err", err)
			return
		}
		stage(ctx, store, insp, gender, stdout, logger)
	},
		packs.WithWatchPattern(opts.pattern),
		packs.WithWatchLogger(logger),
	)
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Stop() }()

	for _, root := range roots {
		if err := watcher.AddRoot(root); err != nil {
			return err
		}
	}
	watcher.Start(ctx)

	// Watch first, then catch up, so archives dropped in between are seen
	// by at least one of the two paths.
	scanner := packs.NewScanner(packs.WithScanPattern(opts.pattern), packs.WithScanLogger(logger))
	for _, root := range roots {
		if err := catchUp(ctx, store, scanner, root, gender, stdout, logger); err != nil {
			return err
		}
	}

	fmt.Fprintf(stdout, "watching %s\n", strings.Join(roots, ", "))
	<-ctx.Done()
	return nil
}

// catchUp stages archives already present under root; drop folders are
// rarely empty when the watcher comes up. Keys the store holds are left
// alone.
func catchUp(ctx context.Context, store blob.Store, scanner *packs.Scanner, root string, gender domain.Gender, stdout io.Writer, logger packs.Logger) error {
	inspections, err := scanner.Scan(root)
	if err != nil {
		return err
	}
	for _, insp := range inspections {
		if _, err := store.Head(ctx, archiveKey(insp.Path)); err == nil {
			logger.Debug("archive already staged", "path", insp.Path)
			continue
		}
		stage(ctx, store, insp, gender, stdout, logger)
	}
	return nil
}

// stage applies the gender prefilter and uploads one inspected archive,
// printing the staged key.
func stage(ctx context.Context, store blob.Store, insp packs.Inspection, gender domain.Gender, stdout io.Writer, logger packs.Logger) {
	if !relevantArchive(insp, gender) {
		logger.Info("archive skipped", "path", insp.Path, "gender", string(gender))
		return
	}
	key, err := upload(ctx, store, insp)
	if err != nil {
		logger.Warn("archive not staged", "path", insp.Path, "err", err)
		return
	}
	fmt.Fprintf(stdout, "staged %s -> %s\n", insp.Path, key)
}

// relevantArchive decides whether an archive belongs in the store for the
// selected avatar base. Archives with blend payloads match on their layout
// markers; manifest-only content packs (poses, animations) match on pack
// metadata; unrecognized layouts always pass.
func relevantArchive(insp packs.Inspection, gender domain.Gender) bool {
	if gender != domain.GenderFemale && gender != domain.GenderMale {
		return true
	}
	if insp.Manifest != nil && !insp.BlendPayload {
		return packs.ManifestMatchesGender(*insp.Manifest, gender)
	}
	return insp.RelevantFor(gender)
}

// upload stores one settled archive keyed by file name, carrying the
// inspection outcome as object metadata.
func upload(ctx context.Context, store blob.Store, insp packs.Inspection) (string, error) {
	f, err := os.Open(insp.Path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	metadata := map[string]string{"gender": string(insp.Gender())}
	if insp.BasePack() {
		metadata["base_pack"] = "true"
	}
	if insp.Manifest != nil {
		metadata["pack"] = insp.Manifest.DisplayName()
		metadata["pack_type"] = insp.Manifest.Type
	}

	info, err := store.Put(ctx, archiveKey(insp.Path), f, blob.PutOptions{
		ContentType: "application/zip",
		Metadata:    metadata,
	})
	if err != nil {
		return "", err
	}
	return info.Key, nil
}

func archiveKey(path string) string {
	return "packs/" + filepath.Base(path)
}

func parseGender(raw string) (domain.Gender, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "any":
		return domain.GenderAny, nil
	case "female":
		return domain.GenderFemale, nil
	case "male":
		return domain.GenderMale, nil
	default:
		return domain.GenderAny, fmt.Errorf("unknown -gender %q (female|male)", raw)
	}
}

func splitRoots(raw string) []string {
	var roots []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			roots = append(roots, trimmed)
		}
	}
	return roots
}
