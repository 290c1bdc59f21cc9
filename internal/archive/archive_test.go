package archive

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openMem(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "mem://")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestKey(t *testing.T) {
	at := time.Date(2022, 6, 27, 23, 30, 0, 0, time.FixedZone("BST", 3600))
	tests := []struct {
		name, want string
	}{
		{"responses.csv", "imports/2022/06/27/abc/responses.csv.zst"},
		{`C:\Users\payroll\week 26.xlsx`, "imports/2022/06/27/abc/week 26.xlsx.zst"},
		{"../../etc/passwd", "imports/2022/06/27/abc/passwd.zst"},
		{"", "imports/2022/06/27/abc/upload.zst"},
	}
	for _, tc := range tests {
		if got := Key("abc", tc.name, at); got != tc.want {
			t.Fatalf("Key(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestPutGet_RoundTripsCompressed(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	content := []byte(strings.Repeat("Worker ID,Request Timestamp\n1,27/06/2022 10:00\n", 200))

	if err := s.Put(ctx, "imports/x.csv.zst", content); err != nil {
		t.Fatalf("put: %v", err)
	}
	stored, err := s.bucket.ReadAll(ctx, "imports/x.csv.zst")
	if err != nil {
		t.Fatalf("raw read: %v", err)
	}
	if len(stored) >= len(content) {
		t.Fatalf("stored %d bytes for %d bytes of input; expected compression", len(stored), len(content))
	}

	got, err := s.Get(ctx, "imports/x.csv.zst")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("round trip mismatch")
	}
}

func TestGet_NotFound(t *testing.T) {
	if _, err := openMem(t).Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGet_CorruptObject(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	if err := s.bucket.WriteAll(ctx, "bad.zst", []byte("not zstd"), nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.Get(ctx, "bad.zst"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected decompress error, got %v", err)
	}
}

func TestOpen_FileBucket(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), "file://"+filepath.ToSlash(dir))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if err := s.Put(context.Background(), "imports/a/b.csv.zst", []byte("x")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "imports", "a", "b.csv.zst")); err != nil {
		t.Fatalf("file not written: %v", err)
	}
}

func TestOpen_UnknownScheme(t *testing.T) {
	if _, err := Open(context.Background(), "nope://bucket"); err == nil {
		t.Fatalf("expected error")
	}
}
