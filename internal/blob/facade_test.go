package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestOpenDefaultsToFilesystem(t *testing.T) {
	t.Setenv("CLONECORE_BLOB_DRIVER", "")
	t.Setenv("CLONECORE_BLOB_FS_ROOT", t.TempDir())

	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("driver = %s, want %s", store.Driver(), DriverFilesystem)
	}

	info, err := store.Put(context.Background(), "packs/casual.zip", strings.NewReader("archive-bytes"), PutOptions{ContentType: "application/zip"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("archive-bytes")) {
		t.Fatalf("size = %d", info.Size)
	}

	got, rc, err := store.Get(context.Background(), "packs/casual.zip")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != "archive-bytes" {
		t.Fatalf("body = %q", body)
	}
	if got.ContentType != "application/zip" {
		t.Fatalf("content type = %q", got.ContentType)
	}
}

func TestOpenMemoryDriver(t *testing.T) {
	t.Setenv("CLONECORE_BLOB_DRIVER", "memory")

	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("driver = %s, want %s", store.Driver(), DriverMemory)
	}
}

func TestOpenUnknownDriverErrors(t *testing.T) {
	t.Setenv("CLONECORE_BLOB_DRIVER", "tape")

	if _, err := Open(context.Background()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestPutIsCreateOnly(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	if _, err := store.Put(ctx, "packs/a.zip", strings.NewReader("one"), PutOptions{}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if _, err := store.Put(ctx, "packs/a.zip", strings.NewReader("two"), PutOptions{}); err == nil {
		t.Fatal("second put for same key should fail")
	}
}

func TestPresignUnsupportedOnMemory(t *testing.T) {
	store := NewMemory()
	if _, err := store.PresignURL(context.Background(), "packs/a.zip", SignedURLOptions{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}
