// Command clone-import stages a pack archive into the avatar library,
// normalizes the scene, reconciles trait registrations, and prints the
// structured import report as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"clonecore/internal/adapters/reports"
	"clonecore/internal/archive"
	"clonecore/internal/blob"
	"clonecore/internal/core"
	"clonecore/internal/infra/persistence/memory"
	scenememory "clonecore/internal/infra/scene/memory"
	"clonecore/internal/logging"
	"clonecore/internal/packs"
	"clonecore/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	archivePath string
	destDir     string
	packsRoot   string
	scenePath   string
	pathLimit   int
	driver      string
	reportDir   string
}

// importReport is the JSON document printed on success.
type importReport struct {
	Archive        string                     `json:"archive"`
	Extraction     domain.ExtractionResult    `json:"extraction"`
	Normalization  domain.NormalizationReport `json:"normalization"`
	Reconciliation domain.ReconcileReport     `json:"reconciliation"`
	Summary        domain.ImportSummary       `json:"summary"`
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("clone-import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.archivePath, "archive", "", "path to the pack archive (.zip)")
	fs.StringVar(&opts.destDir, "dest", "", "extraction destination directory")
	fs.StringVar(&opts.packsRoot, "packs-root", "", "content packs root; with -dest omitted the manifest places the archive under <root>/<type>/<subdir>")
	fs.StringVar(&opts.scenePath, "scene", "", "scene snapshot JSON to operate on (optional)")
	fs.IntVar(&opts.pathLimit, "path-limit", archive.DefaultPathLimit(), "destination path length before staged fallbacks kick in")
	fs.StringVar(&opts.driver, "driver", "memory", "registry storage driver (memory|sqlite|postgres)")
	fs.StringVar(&opts.reportDir, "report-dir", "", "also store the report as JSON and CSV artifacts under this directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := run(context.Background(), opts, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "import failed: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) error {
	if opts.archivePath == "" {
		return fmt.Errorf("-archive is required")
	}
	if opts.destDir == "" && opts.packsRoot != "" {
		m, err := packs.ReadManifest(opts.archivePath)
		if err != nil {
			return fmt.Errorf("derive destination: %w", err)
		}
		opts.destDir = packs.ExtractDir(opts.packsRoot, m)
	}
	if opts.destDir == "" {
		return fmt.Errorf("-dest or -packs-root is required")
	}

	scene := scenememory.NewStore()
	if opts.scenePath != "" {
		if err := scene.LoadSnapshot(opts.scenePath); err != nil {
			return err
		}
	}

	store, err := openStore(opts.driver, core.NewDefaultRulesEngine())
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}
	classifier, err := core.ClassifierFromEnv()
	if err != nil {
		return err
	}

	logger := logging.New(stderr, logging.ParseLevel(os.Getenv("CLONECORE_LOG_LEVEL")), os.Getenv("CLONECORE_LOG_FORMAT"))
	svc := core.NewService(store, scene,
		core.WithLogger(logger),
		core.WithClassifier(classifier),
		core.WithExtractor(archive.New(
			archive.WithPathLimit(opts.pathLimit),
			archive.WithLogger(logger),
		)),
	)

	started := time.Now().UTC()
	report := importReport{Archive: opts.archivePath}

	extraction, err := svc.StageArchiveFile(ctx, opts.archivePath, opts.destDir)
	if err != nil {
		return err
	}
	report.Extraction = extraction

	report.Normalization, err = svc.NormalizeScene(ctx)
	if err != nil {
		return err
	}

	report.Reconciliation, _, err = svc.ReconcileRegistrations(ctx)
	if err != nil {
		return err
	}

	report.Summary, err = svc.ValidateImport(ctx)
	if err != nil {
		return err
	}

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(stdout, string(payload)); err != nil {
		return err
	}

	if opts.reportDir != "" {
		if err := exportReports(ctx, opts.reportDir, buildRecord(opts.archivePath, report, started), logger); err != nil {
			return fmt.Errorf("export reports: %w", err)
		}
	}
	return nil
}

// buildRecord shapes the CLI report into the import record the exporter
// renders.
func buildRecord(archivePath string, rep importReport, started time.Time) domain.ImportRecord {
	finished := time.Now().UTC()
	return domain.ImportRecord{
		Base:           domain.Base{ID: uuid.NewString(), CreatedAt: finished, UpdatedAt: finished},
		PackKey:        archivePath,
		Extraction:     rep.Extraction,
		Normalization:  rep.Normalization,
		Reconciliation: rep.Reconciliation,
		Summary:        rep.Summary,
		StartedAt:      started,
		FinishedAt:     finished,
	}
}

// exportReports uploads the JSON and CSV report artifacts through a
// filesystem archive store rooted at dir, blocking until both land.
func exportReports(ctx context.Context, dir string, rec domain.ImportRecord, logger *slog.Logger) error {
	store, err := blob.NewFilesystem(dir)
	if err != nil {
		return err
	}
	worker := reports.NewWorker(store, nil)
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go worker.Run(wctx)

	exports, err := worker.Enqueue(ctx, rec)
	if err != nil {
		return err
	}
	for _, exp := range exports {
		final, err := worker.Wait(ctx, exp.ID)
		if err != nil {
			return err
		}
		if final.Status != reports.StatusStored {
			return fmt.Errorf("%s report: %s", final.Format, final.Error)
		}
		logger.Info("report stored", "key", final.Key, "format", string(final.Format))
	}
	return nil
}

// openStore maps the -driver flag to a registry backend. sqlite and postgres
// read their connection settings from the CLONECORE_* environment.
func openStore(driver string, engine *core.RulesEngine) (core.PersistentStore, error) {
	switch core.StorageDriver(driver) {
	case "", core.StorageMemory:
		return memory.NewStore(engine), nil
	case core.StorageSQLite:
		return core.NewSQLiteStore(os.Getenv("CLONECORE_SQLITE_PATH"), engine)
	case core.StoragePostgres:
		return core.NewPostgresStore(os.Getenv("CLONECORE_POSTGRES_DSN"), engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
