package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lucaspatel/kl-slack/internal/fsstore"
)

const DefaultDir = "uploads"

// Local writes files into a single directory on disk.
type Local struct {
	dir    string
	opts   fsstore.FileOptions
	suffix func() string
}

type LocalOptions struct {
	DirPerm  os.FileMode
	FilePerm os.FileMode
}

func NewLocal(dir string, opts LocalOptions) *Local {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = DefaultDir
	}
	return &Local{
		dir:    filepath.Clean(dir),
		opts:   fsstore.FileOptions{DirPerm: opts.DirPerm, FilePerm: opts.FilePerm},
		suffix: newSuffix,
	}
}

func (s *Local) Dir() string {
	return s.dir
}

// Save writes data to <dir>/<YYYYMMDD_HHMMSS>_<name>. A name that is already
// taken gets a short random suffix instead of being overwritten.
func (s *Local) Save(ctx context.Context, data []byte, originalName string, when time.Time) (StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return StoredFile{}, &StorageError{Op: "save", Err: err}
	}
	if err := fsstore.EnsureDir(s.dir, s.opts.DirPerm); err != nil {
		return StoredFile{}, &StorageError{Op: "mkdir", Path: s.dir, Err: err}
	}

	base := FileName(originalName, when)
	name := base
	for attempt := 1; ; attempt++ {
		path := filepath.Join(s.dir, name)
		n, err := fsstore.WriteFileExclusive(path, data, s.opts)
		if err == nil {
			return StoredFile{Path: path, SizeBytes: n, SavedAt: when}, nil
		}
		if !errors.Is(err, fsstore.ErrPathExists) || attempt >= maxNameAttempts {
			return StoredFile{}, &StorageError{Op: "write", Path: path, Err: err}
		}
		name = disambiguate(base, s.suffix())
	}
}
