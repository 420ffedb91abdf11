package fsstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates path and its parents. Concurrent callers racing on the
// same directory all succeed.
func EnsureDir(path string, perm os.FileMode) error {
	normalized, err := normalizePath(path)
	if err != nil {
		return err
	}
	if perm == 0 {
		perm = defaultDirPerm
	}
	if err := os.MkdirAll(normalized, perm); err != nil {
		return fmt.Errorf("fsstore ensure dir %s: %w", normalized, err)
	}
	return nil
}

// WriteFileExclusive writes content to path all-or-nothing and never replaces
// an existing file. Data is staged in a temp file next to path and hard-linked
// into place once synced, so readers only ever observe the complete file.
// ErrPathExists is returned when path is already taken.
func WriteFileExclusive(path string, content []byte, opts FileOptions) (int64, error) {
	normalizedPath, err := normalizePath(path)
	if err != nil {
		return 0, err
	}
	opts = normalizeFileOptions(opts)

	parentDir := filepath.Dir(normalizedPath)
	if err := EnsureDir(parentDir, opts.DirPerm); err != nil {
		return 0, err
	}

	tmpPath, err := stageTemp(parentDir, normalizedPath, content, opts)
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmpPath)

	if err := os.Link(tmpPath, normalizedPath); err != nil {
		if errors.Is(err, os.ErrExist) {
			return 0, fmt.Errorf("%w: %s", ErrPathExists, normalizedPath)
		}
		return 0, fmt.Errorf("%w: link temp for %s: %v", ErrAtomicWriteFailed, normalizedPath, err)
	}
	syncDir(parentDir)
	return int64(len(content)), nil
}

func stageTemp(parentDir, finalPath string, content []byte, opts FileOptions) (string, error) {
	tmp, err := os.CreateTemp(parentDir, "."+filepath.Base(finalPath)+".tmp.*")
	if err != nil {
		return "", fmt.Errorf("%w: create temp for %s: %v", ErrAtomicWriteFailed, finalPath, err)
	}
	tmpPath := tmp.Name()
	fail := func(step string, err error) (string, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("%w: %s temp for %s: %v", ErrAtomicWriteFailed, step, finalPath, err)
	}

	if _, err := tmp.Write(content); err != nil {
		return fail("write", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := tmp.Chmod(opts.FilePerm); err != nil {
		return fail("chmod", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("%w: close temp for %s: %v", ErrAtomicWriteFailed, finalPath, err)
	}
	return tmpPath, nil
}

// Best effort directory sync for durability; ignore failures.
func syncDir(dir string) {
	if dirFD, err := os.Open(dir); err == nil {
		_ = dirFD.Sync()
		_ = dirFD.Close()
	}
}
