// Package filestore persists validated uploads under timestamped names.
package filestore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TimestampLayout renders as YYYYMMDD_HHMMSS.
const TimestampLayout = "20060102_150405"

// maxNameAttempts bounds how many disambiguated names Save tries when the
// timestamped name is already taken.
const maxNameAttempts = 5

type StoredFile struct {
	Path      string
	SizeBytes int64
	SavedAt   time.Time
}

type Store interface {
	Save(ctx context.Context, data []byte, originalName string, when time.Time) (StoredFile, error)
}

// StorageError reports a failure to persist a file.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path == "" {
		return fmt.Sprintf("filestore %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("filestore %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FileName returns "<YYYYMMDD_HHMMSS>_<name>" for a sanitized originalName.
func FileName(originalName string, when time.Time) string {
	return when.Format(TimestampLayout) + "_" + SanitizeName(originalName)
}

// disambiguate inserts a short random suffix before the extension:
// 20240101_120000_doc.pdf -> 20240101_120000_doc_1a2b3c4d.pdf.
func disambiguate(name string, suffix string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return stem + "_" + suffix + ext
}

func newSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// SanitizeName reduces a remote name to a single path element. Directories,
// control characters and leading dots are dropped; letters in any script,
// spaces and the extension are kept.
func SanitizeName(name string) string {
	name = strings.TrimRight(strings.ReplaceAll(name, "\\", "/"), "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if r == utf8.RuneError || unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(name), "."))
	if name == "" {
		return "file"
	}
	return name
}
