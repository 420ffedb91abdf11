package fsstore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestWriteFileExclusive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "doc.pdf")
	content := []byte("%PDF-1.4 body")
	n, err := WriteFileExclusive(path, content, FileOptions{})
	if err != nil {
		t.Fatalf("WriteFileExclusive() error = %v", err)
	}
	if n != int64(len(content)) {
		t.Fatalf("WriteFileExclusive() n = %d, want %d", n, len(content))
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("content = %q, want %q", got, content)
	}
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestWriteFileExclusiveNeverOverwrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "doc.pdf")
	if _, err := WriteFileExclusive(path, []byte("first"), FileOptions{}); err != nil {
		t.Fatalf("first write error = %v", err)
	}
	_, err := WriteFileExclusive(path, []byte("second"), FileOptions{})
	if !errors.Is(err, ErrPathExists) {
		t.Fatalf("second write error = %v, want ErrPathExists", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "first" {
		t.Fatalf("content = %q, want first", got)
	}
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestWriteFileExclusiveInvalidPath(t *testing.T) {
	t.Parallel()

	if _, err := WriteFileExclusive("  ", []byte("x"), FileOptions{}); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("error = %v, want ErrInvalidPath", err)
	}
}

func TestWriteFileExclusiveUnwritableDir(t *testing.T) {
	t.Parallel()

	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := filepath.Join(t.TempDir(), "ro")
	if err := os.MkdirAll(dir, 0o500); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(dir, 0o700)
	_, err := WriteFileExclusive(filepath.Join(dir, "doc.pdf"), []byte("x"), FileOptions{})
	if !errors.Is(err, ErrAtomicWriteFailed) {
		t.Fatalf("error = %v, want ErrAtomicWriteFailed", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "doc.pdf")); !os.IsNotExist(statErr) {
		t.Fatalf("final path should not exist, stat err = %v", statErr)
	}
}

func TestEnsureDirConcurrent(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "uploads")
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- EnsureDir(dir, 0)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("EnsureDir() error = %v", err)
		}
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".pdf" {
			t.Fatalf("unexpected leftover file %q", e.Name())
		}
	}
}
