// Package discover finds parseable source files in a repository.
package discover

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/refdoc/internal/lang"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // Relative to repo root, slash-separated
	Language string
	Size     int64
}

// Options narrows discovery. The zero value finds every supported,
// non-test source file.
type Options struct {
	// Languages, when non-empty, keeps only files of the listed languages.
	Languages []string
	// Include, when non-empty, keeps only paths matching one of the globs.
	Include []string
	// Exclude drops paths matching any of the globs.
	Exclude []string
	// MaxFileSize skips larger files. Zero means no limit.
	MaxFileSize int64
	// Tests keeps files IsTestFile reports as tests.
	Tests  bool
	Logger *slog.Logger
}

var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"env":           {},
	".env":          {},
	"build":         {},
	"dist":          {},
	"vendor":        {},
	"testdata":      {},
	".tox":          {},
	".mypy_cache":   {},
	".ruff_cache":   {},
	".pytest_cache": {},
	"egg-info":      {},
}

// Validate reports the first malformed glob in o.
func (o Options) Validate() error {
	for _, list := range [][]string{o.Include, o.Exclude} {
		for _, pattern := range list {
			if !doublestar.ValidatePattern(pattern) {
				return fmt.Errorf("invalid glob %q", pattern)
			}
		}
	}
	return nil
}

// Files discovers parseable source files under root.
func Files(root string, opts Options) ([]FileEntry, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	langSet := make(map[string]struct{}, len(opts.Languages))
	for _, l := range opts.Languages {
		langSet[l] = struct{}{}
	}
	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	var results []FileEntry

	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if p == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if gitFiles != nil {
			if _, ok := gitFiles[rel]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		langName := lang.ForExtension(path.Ext(name))
		if langName == "" {
			return nil
		}
		if len(langSet) > 0 {
			if _, ok := langSet[langName]; !ok {
				return nil
			}
		}
		if !opts.Tests && IsTestFile(rel) {
			return nil
		}
		if !selected(rel, opts.Include, opts.Exclude) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
			logger.Warn("skipping large file", "path", rel, "size", info.Size(), "limit", opts.MaxFileSize)
			return nil
		}

		results = append(results, FileEntry{Path: rel, Language: langName, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

func selected(rel string, include, exclude []string) bool {
	for _, pattern := range exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pattern := range include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

var testDirs = map[string]bool{
	"test": true, "tests": true, "spec": true, "__tests__": true,
}

// IsTestFile reports whether a slash-separated path looks like test code,
// either by a directory component or by a naming convention.
func IsTestFile(rel string) bool {
	dir, base := path.Split(rel)
	for seg := range strings.SplitSeq(strings.Trim(dir, "/"), "/") {
		if testDirs[seg] {
			return true
		}
	}
	stem := strings.TrimSuffix(base, path.Ext(base))
	switch {
	case strings.HasSuffix(stem, "_test"), strings.HasSuffix(stem, "_spec"):
		return true
	case strings.HasPrefix(stem, "test_"):
		return true
	case strings.HasSuffix(stem, ".test"), strings.HasSuffix(stem, ".spec"):
		return true
	}
	return false
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for line := range strings.SplitSeq(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
