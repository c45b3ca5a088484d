package corpus

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"retrieval/internal/port"
)

// Walker finds input files under a root with doublestar include and
// exclude patterns matched against slash-separated relative paths.
type Walker struct {
	includes []string
	excludes []string
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*.jsonl", "**/*.json"}
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

// Walk returns matching files in lexical path order.
func (w *Walker) Walk(root string) ([]port.FileInfo, error) {
	var files []port.FileInfo

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && w.shouldExclude(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if w.shouldInclude(relPath) && !w.shouldExclude(relPath) {
			files = append(files, port.FileInfo{
				Path:    path,
				ModTime: info.ModTime().Unix(),
				Size:    info.Size(),
			})
		}

		return nil
	})

	return files, err
}

func (w *Walker) shouldInclude(path string) bool {
	for _, pattern := range w.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// ResolveFiles expands inputs relative to root. An input naming an
// existing regular file is taken as-is; anything else is a glob pattern.
// The result has no duplicates and keeps input order.
func ResolveFiles(root string, inputs, excludes []string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	for _, in := range inputs {
		path := in
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			abs, err := filepath.Abs(path)
			if err != nil {
				return nil, err
			}
			add(abs)
			continue
		}

		if !doublestar.ValidatePattern(filepath.ToSlash(in)) {
			return nil, fmt.Errorf("invalid pattern %q", in)
		}
		var walker port.FileWalker = NewWalker([]string{filepath.ToSlash(in)}, excludes)
		files, err := walker.Walk(root)
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
		for _, f := range files {
			add(f.Path)
		}
	}
	return out, nil
}
