package archive

import (
	"strings"
	"testing"
)

func TestSafeFolderNameKeepsShortStems(t *testing.T) {
	got := SafeFolderName("/packs/incoming/MyPack_v2.zip")
	if got != "MyPack_v2" {
		t.Fatalf("SafeFolderName = %q, want MyPack_v2", got)
	}
}

func TestSafeFolderNameShortensLongStems(t *testing.T) {
	stem := strings.Repeat("VeryLongAvatarPackName", 5)
	got := SafeFolderName("/packs/" + stem + ".zip")
	if len(got) > safeNameLimit {
		t.Fatalf("len = %d, want <= %d", len(got), safeNameLimit)
	}
	if !strings.HasPrefix(got, stem[:safeNameLimit-8]) {
		t.Fatalf("shortened name %q does not keep the stem prefix", got)
	}
	parts := strings.Split(got, "_")
	hash := parts[len(parts)-1]
	if len(hash) != 6 {
		t.Fatalf("hash suffix = %q, want 6 hex chars", hash)
	}
	// Deterministic: the same stem always shortens to the same name.
	if again := SafeFolderName("/elsewhere/" + stem + ".zip"); again != got {
		t.Fatalf("second call = %q, want %q", again, got)
	}
}

func TestSafeFolderNameFallsBackToHashOnly(t *testing.T) {
	got := safeFolderName(strings.Repeat("x", 40), 12)
	if !strings.HasPrefix(got, "cx_") || len(got) != 9 {
		t.Fatalf("hash-only name = %q, want cx_ plus 6 hex chars", got)
	}
}

func TestStagingDirNames(t *testing.T) {
	a := stagedDirName("/very/long/destination/one")
	b := stagedDirName("/very/long/destination/two")
	if a == b {
		t.Fatal("different destinations should hash to different staging names")
	}
	if !strings.HasPrefix(a, "cx_") || len(a) != len("cx_")+8 {
		t.Fatalf("staging name = %q, want cx_ plus 8 hash chars", a)
	}
	if again := stagedDirName("/very/long/destination/one"); again != a {
		t.Fatalf("staging name not deterministic: %q vs %q", again, a)
	}

	r := rootDirName("/very/long/destination/one")
	if !strings.HasPrefix(r, "c") || len(r) != 5 {
		t.Fatalf("root fallback name = %q, want c plus 4 hash chars", r)
	}
}
