package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clonecore/pkg/domain"
)

func writeArchive(t *testing.T, dir, name string, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	zw := zip.NewWriter(f)
	for entry, content := range entries {
		w, err := zw.Create(entry)
		if err != nil {
			t.Fatalf("add entry %s: %v", entry, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %s: %v", entry, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close archive file: %v", err)
	}
	return path
}

// writeScene exports a normalized avatar snapshot: character geometry at
// world scale with two gendered trait collections.
func writeScene(t *testing.T, dir string) string {
	t.Helper()
	objects := []domain.SceneObject{
		{
			Name:        "Armature",
			Type:        domain.ObjectArmature,
			Scale:       domain.Uniform(1),
			BoundsMin:   domain.Vec3{X: -0.2, Y: -0.2, Z: 0},
			BoundsMax:   domain.Vec3{X: 0.2, Y: 0.2, Z: 1.8},
			Collections: []string{"Character"},
			InViewLayer: true,
		},
		{
			Name:        "F_Avatar_HeadGeo",
			Type:        domain.ObjectMesh,
			Scale:       domain.Uniform(1),
			BoundsMin:   domain.Vec3{X: -0.1, Y: -0.1, Z: 1.6},
			BoundsMax:   domain.Vec3{X: 0.1, Y: 0.1, Z: 1.8},
			Collections: []string{"Character"},
			InViewLayer: true,
		},
		{
			Name:        "hair_main",
			Type:        domain.ObjectMesh,
			Scale:       domain.Uniform(1),
			BoundsMin:   domain.Vec3{X: -0.05, Y: -0.05, Z: 1.65},
			BoundsMax:   domain.Vec3{X: 0.05, Y: 0.05, Z: 1.85},
			Collections: []string{"f_long_hair"},
			InViewLayer: true,
		},
		{
			Name:        "jacket",
			Type:        domain.ObjectMesh,
			Scale:       domain.Uniform(1),
			BoundsMin:   domain.Vec3{X: -0.15, Y: -0.15, Z: 0.2},
			BoundsMax:   domain.Vec3{X: 0.15, Y: 0.15, Z: 1.4},
			Collections: []string{"f_winter_jacket"},
			InViewLayer: true,
		},
	}
	payload, err := json.MarshalIndent(map[string][]domain.SceneObject{"objects": objects}, "", "  ")
	if err != nil {
		t.Fatalf("marshal scene: %v", err)
	}
	path := filepath.Join(dir, "scene.json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	return path
}

func TestCLIRunsFullImport(t *testing.T) {
	t.Setenv("CLONECORE_RULES_FILE", "")
	dir := t.TempDir()
	archivePath := writeArchive(t, dir, "neo-pack.zip", map[string]string{
		"packinfo.json":                           `{"pack_name":"Neo Avatars","pack_type":"Avatars","pack_subdir":"Neo","pack_creator":"NeoStudio"}`,
		"Neo/_Female/_Blender/NeoCharacter.blend": "blend-bytes",
		"previews/hair.png":                       "png-bytes",
	})
	dest := filepath.Join(dir, "library", "Avatars", "Neo")
	scenePath := writeScene(t, dir)

	var out, errBuf bytes.Buffer
	code := cli([]string{
		"-archive", archivePath,
		"-dest", dest,
		"-scene", scenePath,
		"-driver", "memory",
	}, &out, &errBuf)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, errBuf.String())
	}

	var report importReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("parse report: %v\n%s", err, out.String())
	}
	if report.Extraction.Strategy != domain.StrategyDirect {
		t.Fatalf("strategy = %s, want direct", report.Extraction.Strategy)
	}
	if report.Extraction.Extracted != 3 {
		t.Fatalf("extracted %d entries, want 3", report.Extraction.Extracted)
	}
	if len(report.Reconciliation.Added) != 2 {
		t.Fatalf("added registrations = %v", report.Reconciliation.Added)
	}
	if !report.Summary.AllPassed {
		t.Fatalf("summary did not pass: %+v", report.Summary)
	}
	if _, err := os.Stat(filepath.Join(dest, "packinfo.json")); err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
}

func TestCLIRequiredFlags(t *testing.T) {
	var out, errBuf bytes.Buffer
	if code := cli(nil, &out, &errBuf); code != 1 {
		t.Fatalf("expected exit 1 without -archive, got %d", code)
	}
	if !strings.Contains(errBuf.String(), "-archive is required") {
		t.Fatalf("stderr = %q", errBuf.String())
	}

	errBuf.Reset()
	if code := cli([]string{"-archive", "pack.zip"}, &out, &errBuf); code != 1 {
		t.Fatalf("expected exit 1 without -dest, got %d", code)
	}
	if !strings.Contains(errBuf.String(), "-dest or -packs-root is required") {
		t.Fatalf("stderr = %q", errBuf.String())
	}
}

func TestCLIDerivesDestFromManifest(t *testing.T) {
	t.Setenv("CLONECORE_RULES_FILE", "")
	dir := t.TempDir()
	archivePath := writeArchive(t, dir, "neo-pack.zip", map[string]string{
		"packinfo.json":                           `{"pack_name":"Neo Avatars","pack_type":"Avatars","pack_subdir":"Neo","pack_creator":"NeoStudio"}`,
		"Neo/_Female/_Blender/NeoCharacter.blend": "blend-bytes",
	})
	scenePath := writeScene(t, dir)
	packsRoot := filepath.Join(dir, "content-packs")

	var out, errBuf bytes.Buffer
	code := cli([]string{
		"-archive", archivePath,
		"-packs-root", packsRoot,
		"-scene", scenePath,
		"-driver", "memory",
	}, &out, &errBuf)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, errBuf.String())
	}
	if _, err := os.Stat(filepath.Join(packsRoot, "Avatars", "Neo", "packinfo.json")); err != nil {
		t.Fatalf("extracted manifest missing under derived destination: %v", err)
	}
}

func TestCLIWritesReportArtifacts(t *testing.T) {
	t.Setenv("CLONECORE_RULES_FILE", "")
	t.Setenv("CLONECORE_LOG_LEVEL", "info")
	dir := t.TempDir()
	archivePath := writeArchive(t, dir, "neo-pack.zip", map[string]string{
		"packinfo.json":                           `{"pack_name":"Neo Avatars","pack_type":"Avatars","pack_subdir":"Neo","pack_creator":"NeoStudio"}`,
		"Neo/_Female/_Blender/NeoCharacter.blend": "blend-bytes",
	})
	scenePath := writeScene(t, dir)
	reportDir := filepath.Join(dir, "artifacts")

	var out, errBuf bytes.Buffer
	code := cli([]string{
		"-archive", archivePath,
		"-dest", filepath.Join(dir, "library", "Avatars", "Neo"),
		"-scene", scenePath,
		"-driver", "memory",
		"-report-dir", reportDir,
	}, &out, &errBuf)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, errBuf.String())
	}

	var jsonPath, csvPath string
	err := filepath.WalkDir(reportDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
		case strings.HasSuffix(path, ".json"):
			jsonPath = path
		case strings.HasSuffix(path, ".csv"):
			csvPath = path
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk report dir: %v", err)
	}
	if jsonPath == "" || csvPath == "" {
		t.Fatalf("artifacts json=%q csv=%q, want both", jsonPath, csvPath)
	}

	payload, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read JSON artifact: %v", err)
	}
	var rec domain.ImportRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		t.Fatalf("parse JSON artifact: %v", err)
	}
	if rec.PackKey != archivePath || !rec.Summary.AllPassed {
		t.Fatalf("unexpected artifact record: %+v", rec)
	}

	csvPayload, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read CSV artifact: %v", err)
	}
	if !strings.HasPrefix(string(csvPayload), "collection,category,anchor") {
		t.Fatalf("CSV artifact header = %q", string(csvPayload))
	}

	if !strings.Contains(errBuf.String(), "report stored") {
		t.Fatalf("stderr lacks report log: %q", errBuf.String())
	}
}

func TestCLIPacksRootNeedsManifest(t *testing.T) {
	dir := t.TempDir()
	archivePath := writeArchive(t, dir, "plain.zip", map[string]string{"a.txt": "x"})

	var out, errBuf bytes.Buffer
	code := cli([]string{
		"-archive", archivePath,
		"-packs-root", filepath.Join(dir, "content-packs"),
	}, &out, &errBuf)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(errBuf.String(), "packinfo.json not found") {
		t.Fatalf("stderr = %q", errBuf.String())
	}
}

func TestCLIFlagParseError(t *testing.T) {
	var out, errBuf bytes.Buffer
	if code := cli([]string{"--bogus"}, &out, &errBuf); code != 2 {
		t.Fatalf("expected exit 2 for unknown flag, got %d", code)
	}
}

func TestCLIRejectsUnknownDriver(t *testing.T) {
	dir := t.TempDir()
	archivePath := writeArchive(t, dir, "p.zip", map[string]string{"a.txt": "x"})
	var out, errBuf bytes.Buffer
	code := cli([]string{
		"-archive", archivePath,
		"-dest", filepath.Join(dir, "out"),
		"-driver", "etcd",
	}, &out, &errBuf)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(errBuf.String(), "unknown storage driver") {
		t.Fatalf("stderr = %q", errBuf.String())
	}
}

func TestCLIBadSceneSnapshot(t *testing.T) {
	dir := t.TempDir()
	archivePath := writeArchive(t, dir, "p.zip", map[string]string{"a.txt": "x"})
	scenePath := filepath.Join(dir, "scene.json")
	if err := os.WriteFile(scenePath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	var out, errBuf bytes.Buffer
	code := cli([]string{
		"-archive", archivePath,
		"-dest", filepath.Join(dir, "out"),
		"-scene", scenePath,
	}, &out, &errBuf)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(errBuf.String(), "parse scene snapshot") {
		t.Fatalf("stderr = %q", errBuf.String())
	}
}

func TestMainFunction(t *testing.T) {
	t.Setenv("CLONECORE_RULES_FILE", "")
	dir := t.TempDir()
	archivePath := writeArchive(t, dir, "p.zip", map[string]string{"a.txt": "x"})

	origExit := exitFunc
	defer func() { exitFunc = origExit }()
	exitCode := -1
	exitFunc = func(code int) { exitCode = code }
	origArgs := os.Args
	defer func() { os.Args = origArgs }()
	os.Args = []string{"clone-import", "-archive", archivePath, "-dest", filepath.Join(dir, "out"), "-driver", "memory"}
	main()
	if exitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", exitCode)
	}
}
