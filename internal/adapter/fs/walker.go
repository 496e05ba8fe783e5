package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"docqa/internal/port"
)

// Walker lists candidate document files under a documents directory. It
// does not look at extensions; deciding what can be parsed is the parser
// registry's job.
type Walker struct {
	excludes []string
	logger   *slog.Logger
}

var _ port.FileWalker = (*Walker)(nil)

// NewWalker skips paths matching any of the doublestar exclude globs.
// Globs are matched against slash-separated paths relative to the root.
func NewWalker(excludes []string, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{excludes: excludes, logger: logger}
}

// Walk returns regular files below root sorted by path. Hidden entries and
// excluded paths are skipped, as are subdirectories that cannot be read.
func (w *Walker) Walk(root string) ([]port.FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("documents directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("documents directory: %s is not a directory", root)
	}

	var files []port.FileInfo
	if err := filepath.WalkDir(root, w.visit(root, &files)); err != nil {
		return nil, err
	}

	slices.SortFunc(files, func(a, b port.FileInfo) int { return strings.Compare(a.Path, b.Path) })
	return files, nil
}

// visit collects regular files into files. Entries that cannot be read are
// logged and skipped; only a failure on root itself ends the walk.
func (w *Walker) visit(root string, files *[]port.FileInfo) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		if path == root {
			return err
		}
		if err != nil {
			w.logger.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		switch {
		case d.IsDir():
			if isHidden(d.Name()) || w.excluded(rel+"/") {
				return filepath.SkipDir
			}
		case d.Type().IsRegular() && !isHidden(d.Name()) && !w.excluded(rel):
			fi, err := d.Info()
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			} else if err != nil {
				w.logger.Warn("skipping unreadable file", "path", path, "error", err)
				return nil
			}
			*files = append(*files, port.FileInfo{
				Path:    path,
				ModTime: fi.ModTime().Unix(),
				Size:    fi.Size(),
			})
		}
		return nil
	}
}

func (w *Walker) excluded(rel string) bool {
	for _, pattern := range w.excludes {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
