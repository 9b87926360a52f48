// Command registry-check compares the trait registration registry against a
// scene snapshot. The default run is a dry run: it lists collections missing
// a registration and registrations whose collections left the scene, exiting
// non-zero when the registry has drifted. -apply writes the missing entries;
// -prune additionally removes the stale ones.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"clonecore/internal/core"
	"clonecore/internal/infra/persistence/memory"
	scenememory "clonecore/internal/infra/scene/memory"
	"clonecore/internal/logging"
)

var exitFunc = os.Exit

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	scenePath string
	driver    string
	apply     bool
	prune     bool
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("registry-check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.scenePath, "scene", "", "scene snapshot JSON to check against")
	fs.StringVar(&opts.driver, "driver", "", "registry storage driver (memory|sqlite|postgres; default from environment)")
	fs.BoolVar(&opts.apply, "apply", false, "write missing registrations instead of only reporting them")
	fs.BoolVar(&opts.prune, "prune", false, "with -apply, remove registrations whose collections left the scene")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	drifted, err := run(context.Background(), opts, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "registry check failed: %v\n", err)
		return 1
	}
	if drifted {
		return 1
	}
	return 0
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) (bool, error) {
	if opts.scenePath == "" {
		return false, fmt.Errorf("-scene is required")
	}
	if opts.prune && !opts.apply {
		return false, fmt.Errorf("-prune requires -apply")
	}

	scene := scenememory.NewStore()
	if err := scene.LoadSnapshot(opts.scenePath); err != nil {
		return false, err
	}
	store, err := openStore(opts.driver, core.NewDefaultRulesEngine())
	if err != nil {
		return false, err
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	logger := logging.New(stderr, logging.ParseLevel(os.Getenv("CLONECORE_LOG_LEVEL")), os.Getenv("CLONECORE_LOG_FORMAT"))
	svc := core.NewService(store, scene,
		core.WithLogger(logger),
		core.WithPruneStaleRegistrations(opts.prune),
	)

	if opts.apply {
		report, _, err := svc.ReconcileRegistrations(ctx)
		if err != nil {
			return false, err
		}
		for _, name := range report.Added {
			fmt.Fprintf(stdout, "registered %s\n", name)
		}
		for _, name := range report.Equipped {
			fmt.Fprintf(stdout, "equipped flag synced for %s\n", name)
		}
		for _, name := range report.Pruned {
			fmt.Fprintf(stdout, "pruned %s\n", name)
		}
		for _, warning := range report.Warnings {
			fmt.Fprintf(stdout, "warning: %s\n", warning)
		}
		fmt.Fprintln(stdout, "Registry reconciled.")
		return false, nil
	}

	missing, stale := diff(svc)
	for _, name := range missing {
		fmt.Fprintf(stdout, "unregistered collection: %s\n", name)
	}
	for _, name := range stale {
		fmt.Fprintf(stdout, "stale registration: %s\n", name)
	}
	if len(missing) == 0 && len(stale) == 0 {
		fmt.Fprintln(stdout, "Registry is in sync with the scene.")
		return false, nil
	}
	return true, nil
}

// diff compares scene trait collections against stored registrations without
// writing anything.
func diff(svc *core.Service) (missing, stale []string) {
	collections := core.TraitCollections(svc.Scene())
	entries := svc.ListRegistrations()
	present := make(map[string]struct{}, len(collections))
	registered := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		registered[entry.Name] = struct{}{}
	}
	for _, col := range collections {
		present[col.Name] = struct{}{}
		if _, ok := registered[col.Name]; !ok {
			missing = append(missing, col.Name)
		}
	}
	for _, entry := range entries {
		if _, ok := present[entry.Name]; !ok {
			stale = append(stale, entry.Name)
		}
	}
	return missing, stale
}

// openStore maps the -driver flag to a registry backend; an empty flag keeps
// the CLONECORE_STORAGE_DRIVER selection.
func openStore(driver string, engine *core.RulesEngine) (core.PersistentStore, error) {
	switch core.StorageDriver(driver) {
	case "":
		return core.OpenPersistentStore(engine)
	case core.StorageMemory:
		return memory.NewStore(engine), nil
	case core.StorageSQLite:
		return core.NewSQLiteStore(os.Getenv("CLONECORE_SQLITE_PATH"), engine)
	case core.StoragePostgres:
		return core.NewPostgresStore(os.Getenv("CLONECORE_POSTGRES_DSN"), engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
