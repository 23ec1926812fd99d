// refdoc generates a cross-linked API reference from doc comments.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/phobologic/refdoc/internal/analysis"
	"github.com/phobologic/refdoc/internal/cache"
	"github.com/phobologic/refdoc/internal/config"
	"github.com/phobologic/refdoc/internal/discover"
	"github.com/phobologic/refdoc/internal/graph"
	"github.com/phobologic/refdoc/internal/lang"
	"github.com/phobologic/refdoc/internal/model"
	"github.com/phobologic/refdoc/internal/parse"
	"github.com/phobologic/refdoc/internal/ranking"
	"github.com/phobologic/refdoc/internal/render"
	"github.com/phobologic/refdoc/internal/site"
	"github.com/phobologic/refdoc/internal/toon"
)

var version = "dev"

var (
	green  = color.New(color.FgGreen, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow, color.Bold).SprintFunc()
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("error:"), err)
		os.Exit(1)
	}
}

// options holds the flags shared by every command. Flags left unset fall
// back to refdoc.toml.
type options struct {
	verbose bool
	quiet   bool
	noColor bool
	langs   []string
	include []string
	exclude []string
	jobs    int
	noCache bool
	private bool

	maxLibraries int
	library      string
	format       string
	out          string
}

func run(args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "refdoc [path]",
		Short: "Generate a cross-linked API reference from doc comments",
		Long: `refdoc parses Go, Python and Ruby sources, resolves the bracketed references
in their doc comments ([Foo], [Foo.bar], [new Foo], [bar()]) and writes one
Markdown page per library plus a TOON index.

Settings are read from refdoc.toml, looked up from the project root upward.
Flags override the file.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if o.noColor {
				color.NoColor = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args, o)
		},
	}
	root.SetVersionTemplate("refdoc {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.BoolVar(&o.verbose, "verbose", false, "log debug output")
	pf.BoolVarP(&o.quiet, "quiet", "q", false, "only log errors")
	pf.BoolVar(&o.noColor, "no-color", false, "disable colored output")
	pf.StringSliceVarP(&o.langs, "langs", "l", nil, "comma-separated languages to include")
	pf.StringSliceVar(&o.include, "include", nil, "only document paths matching these globs")
	pf.StringSliceVar(&o.exclude, "exclude", nil, "skip paths matching these globs")
	pf.IntVarP(&o.jobs, "jobs", "j", 0, "parallel workers (default GOMAXPROCS)")
	pf.BoolVar(&o.noCache, "no-cache", false, "parse every file, bypassing the cache")
	pf.BoolVar(&o.private, "private", false, "allow links to private declarations of other libraries")

	f := root.Flags()
	f.IntVarP(&o.maxLibraries, "max-libraries", "n", 0, "keep only the N highest ranked libraries")
	f.StringVar(&o.library, "library", "", "keep only libraries whose name contains this text")
	f.StringVar(&o.format, "format", "", "output format: markdown, toon or all")
	f.StringVarP(&o.out, "out", "o", "", `output directory, or "-" to print the TOON index`)

	root.AddCommand(newCheckCmd(o), newResolveCmd(o), newInitCmd())
	return root
}

// logger builds the stderr logger. level applies unless --verbose or
// --quiet is given.
func (o *options) logger(w io.Writer, level slog.Level) *slog.Logger {
	switch {
	case o.verbose:
		level = slog.LevelDebug
	case o.quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// projectRoot returns the absolute directory named by args[i], or the
// working directory.
func projectRoot(args []string, i int) (string, error) {
	root := "."
	if len(args) > i {
		root = args[i]
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: not a directory", root)
	}
	return root, nil
}

// loadConfig reads refdoc.toml for root and applies the flags the user set.
func loadConfig(cmd *cobra.Command, root string, o *options, logger *slog.Logger) (config.Config, error) {
	cfg, path, err := config.Discover(root)
	if err != nil {
		return config.Config{}, err
	}
	if path != "" {
		logger.Debug("loaded config", "path", path)
	}

	flags := cmd.Flags()
	if flags.Changed("langs") {
		cfg.Sources.Languages = o.langs
	}
	if flags.Changed("include") {
		cfg.Sources.Include = o.include
	}
	if flags.Changed("exclude") {
		cfg.Sources.Exclude = o.exclude
	}
	if flags.Changed("no-cache") {
		cfg.Cache.Disabled = o.noCache
	}
	if flags.Changed("private") {
		cfg.References.Private = o.private
	}
	if flags.Changed("max-libraries") {
		cfg.Output.MaxLibraries = o.maxLibraries
	}
	if flags.Changed("format") {
		cfg.Output.Format = o.format
	}
	if flags.Changed("out") {
		cfg.Output.Dir = o.out
	}
	if cfg.Project.Name == "" {
		cfg.Project.Name = filepath.Base(root)
	}

	for _, name := range cfg.Sources.Languages {
		if _, ok := lang.Languages[name]; !ok {
			return config.Config{}, fmt.Errorf("unsupported language %q", name)
		}
	}
	return cfg, cfg.Validate()
}

// project is a parsed, linked and resolved source tree.
type project struct {
	pkg   *model.Package
	site  *site.Site
	ranks map[string]float64
	deps  []graph.Dependency
}

func load(ctx context.Context, root string, cfg config.Config, jobs int, logger *slog.Logger) (*project, error) {
	files, err := discover.Files(root, discover.Options{
		Languages:   cfg.Sources.Languages,
		Include:     cfg.Sources.Include,
		Exclude:     cfg.Sources.Exclude,
		MaxFileSize: cfg.Sources.MaxFileSize,
		Tests:       cfg.Sources.Tests,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no parseable files found")
	}

	module, err := parse.GoModule(root)
	if err != nil {
		return nil, fmt.Errorf("reading go.mod: %w", err)
	}
	var c *cache.Cache
	if !cfg.Cache.Disabled {
		dir := cfg.Cache.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		if c, err = cache.Open(dir); err != nil {
			return nil, err
		}
	}
	units, err := parse.Files(ctx, root, files, parse.Options{
		Module: module,
		Jobs:   jobs,
		Cache:  c,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, errors.New("no files could be parsed")
	}
	logger.Debug("parsed sources", "files", len(files), "units", len(units))

	pkg, _ := graph.Build(cfg.Project.Name, analysis.Link(units))
	s, err := site.Build(ctx, pkg, site.Options{
		Private:     cfg.References.Private,
		Suggestions: cfg.References.Suggestions,
		Jobs:        jobs,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	deps := graph.BuildDependencies(s.Edges())
	return &project{
		pkg:   pkg,
		site:  s,
		ranks: graph.Rank(pkg, deps),
		deps:  deps,
	}, nil
}

func runGenerate(cmd *cobra.Command, args []string, o *options) error {
	root, err := projectRoot(args, 0)
	if err != nil {
		return err
	}
	logger := o.logger(cmd.ErrOrStderr(), slog.LevelWarn)
	cfg, err := loadConfig(cmd, root, o, logger)
	if err != nil {
		return err
	}
	p, err := load(cmd.Context(), root, cfg, o.jobs, logger)
	if err != nil {
		return err
	}

	sel := ranking.SelectLibraries(p.site, p.ranks, p.deps, cfg.Output.MaxLibraries)
	if o.library != "" {
		sel = ranking.FilterLibraries(sel, o.library)
		if len(sel.Site.Pages) == 0 {
			return fmt.Errorf("no library matches %q", o.library)
		}
	}
	idx := toon.Index{Site: sel.Site, Ranks: p.ranks, Dependencies: sel.Dependencies}

	stdout := cmd.OutOrStdout()
	unresolved := len(p.site.Unresolved())
	if cfg.Output.Dir == "-" {
		_, _ = fmt.Fprintln(stdout, toon.Encode(idx))
	} else {
		out := cfg.Output.Dir
		if !filepath.IsAbs(out) {
			out = filepath.Join(root, out)
		}
		written, err := render.Write(out, idx, cfg.Output.Format)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "%s %d files to %s (%d libraries, %d links, %s unresolved)\n",
			green("wrote"), len(written), out, len(sel.Site.Pages), len(p.site.Links()), countColor(unresolved))
	}

	if unresolved > 0 && cfg.References.FailOnUnresolved {
		return fmt.Errorf("%d unresolved references", unresolved)
	}
	return nil
}

func countColor(n int) string {
	if n == 0 {
		return green(n)
	}
	return yellow(n)
}
