// Package parse turns source files into analysis units using tree-sitter.
package parse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/mod/modfile"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/refdoc/internal/analysis"
	"github.com/phobologic/refdoc/internal/cache"
	"github.com/phobologic/refdoc/internal/discover"
	"github.com/phobologic/refdoc/internal/lang"
)

// Source parses one file. The parser must be created for l. rel is the
// slash-separated path from the project root and module the Go module path,
// or "" when the project has no go.mod.
func Source(ctx context.Context, l *lang.Language, parser *sitter.Parser, rel, module string, source []byte) (analysis.Unit, error) {
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return analysis.Unit{}, fmt.Errorf("parsing %s: %w", rel, err)
	}
	defer tree.Close()

	f := l.Extract(tree.RootNode(), source)
	return analysis.Unit{
		Path:     rel,
		Language: l.Name,
		Library:  l.LibraryName(rel, module, &f),
		Doc:      f.Doc,
		Decls:    f.Decls,
		Imports:  f.Imports,
	}, nil
}

// Options configures Files.
type Options struct {
	// Module is the Go module path used to name Go libraries.
	Module string
	// Jobs bounds the number of files parsed at once. Zero means GOMAXPROCS.
	Jobs int
	// Cache, when set, is consulted before parsing and filled afterwards.
	Cache  *cache.Cache
	Logger *slog.Logger
}

// Files parses files under root concurrently and returns their units in
// input order. Files that cannot be read or parsed are logged and skipped;
// only context cancellation fails the whole call.
func Files(ctx context.Context, root string, files []discover.FileEntry, opts Options) ([]analysis.Unit, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	jobs = min(jobs, len(files))

	units := make([]analysis.Unit, len(files))
	valid := make([]bool, len(files))

	work := make(chan int)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(work)
		for i := range files {
			select {
			case work <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for range jobs {
		g.Go(func() error {
			// Parsers are not safe for concurrent use; each worker keeps its own.
			parsers := make(map[string]*sitter.Parser)
			for idx := range work {
				if err := ctx.Err(); err != nil {
					return err
				}
				u, err := parseOne(ctx, root, files[idx], opts, parsers, logger)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					logger.Warn("skipping file", "path", files[idx].Path, "err", err)
					continue
				}
				units[idx] = u
				valid[idx] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]analysis.Unit, 0, len(files))
	for i, ok := range valid {
		if ok {
			out = append(out, units[i])
		}
	}
	return out, nil
}

func parseOne(ctx context.Context, root string, f discover.FileEntry, opts Options, parsers map[string]*sitter.Parser, logger *slog.Logger) (analysis.Unit, error) {
	l, ok := lang.Languages[f.Language]
	if !ok {
		return analysis.Unit{}, fmt.Errorf("unsupported language %q", f.Language)
	}
	source, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(f.Path)))
	if err != nil {
		return analysis.Unit{}, err
	}

	key := cache.Key(l.Name, f.Path, opts.Module, source)
	u, hit, err := opts.Cache.Get(key)
	if err != nil {
		logger.Debug("cache read failed", "path", f.Path, "err", err)
	} else if hit {
		return u, nil
	}

	p, ok := parsers[l.Name]
	if !ok {
		p = l.NewParser()
		parsers[l.Name] = p
	}
	u, err = Source(ctx, l, p, f.Path, opts.Module, source)
	if err != nil {
		return analysis.Unit{}, err
	}
	if err := opts.Cache.Put(key, u); err != nil {
		logger.Warn("cache write failed", "path", f.Path, "err", err)
	}
	return u, nil
}

// GoModule returns the module path declared by root/go.mod, or "" when
// there is none.
func GoModule(root string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return modfile.ModulePath(data), nil
}
