package packs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScannerFindsArchivesSkippingHidden(t *testing.T) {
	root := t.TempDir()
	writeArchive(t, root, "a.zip", map[string]string{"x.txt": "x"})
	writeArchive(t, root, filepath.Join("sub", "b.zip"), map[string]string{"y.txt": "y"})
	writeArchive(t, root, filepath.Join(".sync", "c.zip"), map[string]string{"z.txt": "z"})
	writeArchive(t, root, ".partial.zip", map[string]string{"w.txt": "w"})
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("n"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	found, err := NewScanner().Scan(root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("found %d archives, want 2: %+v", len(found), found)
	}
	if found[0].Path != filepath.Join(root, "a.zip") {
		t.Fatalf("first = %s, want a.zip", found[0].Path)
	}
	if found[1].Path != filepath.Join(root, "sub", "b.zip") {
		t.Fatalf("second = %s, want sub/b.zip", found[1].Path)
	}
}

func TestScannerSkipsUnreadableArchives(t *testing.T) {
	root := t.TempDir()
	writeArchive(t, root, "good.zip", map[string]string{"x.txt": "x"})
	if err := os.WriteFile(filepath.Join(root, "bad.zip"), []byte("not a zip"), 0o644); err != nil {
		t.Fatalf("write bad archive: %v", err)
	}

	found, err := NewScanner().Scan(root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(found) != 1 || filepath.Base(found[0].Path) != "good.zip" {
		t.Fatalf("found = %+v, want only good.zip", found)
	}
}

func TestScannerCustomPattern(t *testing.T) {
	root := t.TempDir()
	writeArchive(t, root, "top.zip", map[string]string{"x.txt": "x"})
	writeArchive(t, root, filepath.Join("sub", "nested.zip"), map[string]string{"y.txt": "y"})

	found, err := NewScanner(WithScanPattern("*.zip")).Scan(root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(found) != 1 || filepath.Base(found[0].Path) != "top.zip" {
		t.Fatalf("found = %+v, want only top.zip", found)
	}
}
