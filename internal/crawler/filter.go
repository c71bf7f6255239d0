package crawler

import (
	"fmt"
	"path/filepath"

	"gradesync/internal/config"
	"gradesync/internal/tracker"

	"github.com/bmatcuk/doublestar/v4"
)

// sqliteSiblings are the files SQLite keeps next to a database.
var sqliteSiblings = []string{"-journal", "-wal", "-shm"}

// Filter decides which files below the project root are candidate
// documents: the relative path must match the glob and the file must not be
// one of the excluded files.
type Filter struct {
	glob     string
	excluded map[string]bool
}

// NewFilter validates glob (doublestar syntax, `**` spans directories) and
// excludes the given files. Empty paths are skipped.
func NewFilter(glob string, excluded ...string) (*Filter, error) {
	if !doublestar.ValidatePattern(glob) {
		return nil, fmt.Errorf("invalid glob pattern %q", glob)
	}
	f := &Filter{glob: glob, excluded: make(map[string]bool)}
	for _, p := range excluded {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		f.excluded[abs] = true
	}
	return f, nil
}

// ExcludeDatabase excludes a SQLite database together with its journal files.
func (f *Filter) ExcludeDatabase(path string) error {
	if path == "" {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	f.excluded[abs] = true
	for _, suffix := range sqliteSiblings {
		f.excluded[abs+suffix] = true
	}
	return nil
}

// ProjectFilter builds the filter of cfg. The configuration file, the .env
// file it is loaded with and the database never count as documents, even when
// they live under the root.
func ProjectFilter(cfg *config.Config, configPath, dbPath string) (*Filter, error) {
	f, err := NewFilter(cfg.ExamFiles.GlobPattern, configPath, ".env")
	if err != nil {
		return nil, err
	}
	if err := f.ExcludeDatabase(dbPath); err != nil {
		return nil, err
	}
	return f, nil
}

// WithGlob returns a filter with the same exclusions and a new glob.
func (f *Filter) WithGlob(glob string) (*Filter, error) {
	next, err := NewFilter(glob)
	if err != nil {
		return nil, err
	}
	for p := range f.excluded {
		next.excluded[p] = true
	}
	return next, nil
}

// Allow reports whether the file at rel, relative to root, is a candidate.
func (f *Filter) Allow(root, rel string) bool {
	if f == nil {
		return true
	}
	abs, err := filepath.Abs(filepath.Join(root, rel))
	if err != nil || f.excluded[abs] {
		return false
	}
	ok, err := doublestar.Match(f.glob, tracker.NormalizePath(rel))
	return err == nil && ok
}
