package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/refdoc/internal/model"
	"github.com/phobologic/refdoc/internal/site"
)

func newResolveCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <from> <reference> [path]",
		Short: "Resolve one reference as seen from an entity",
		Long: `resolve looks up <reference> the way it would be resolved in the doc
comment of <from>, a qualified name such as shapes.Square.area, and prints
the target or the closest candidates.`,
		Example: `  refdoc resolve shapes.Square 'area()'
  refdoc resolve shapes 'new Square' ./src`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot(args, 2)
			if err != nil {
				return err
			}
			logger := o.logger(cmd.ErrOrStderr(), slog.LevelError)
			cfg, err := loadConfig(cmd, root, o, logger)
			if err != nil {
				return err
			}
			p, err := load(cmd.Context(), root, cfg, o.jobs, logger)
			if err != nil {
				return err
			}

			from, ok := model.Find(p.pkg, args[0])
			if !ok {
				return fmt.Errorf("no entity named %q", args[0])
			}
			r, err := site.Resolve(from, args[1], site.Options{
				Private:     cfg.References.Private,
				Suggestions: max(cfg.References.Suggestions, 1),
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if r.Resolved() {
				loc := r.Target.Location()
				_, _ = fmt.Fprintf(w, "%s %s (%s:%d)\n",
					green(model.Label(r.Target)), r.Target.QualifiedName(), loc.File, loc.Line)
				if s, ok := r.Target.(interface{ Signature() string }); ok && s.Signature() != "" {
					_, _ = fmt.Fprintf(w, "  %s\n", s.Signature())
				}
				return nil
			}
			if len(r.Suggestions) > 0 {
				_, _ = fmt.Fprintf(w, "did you mean: %s\n", strings.Join(r.Suggestions, ", "))
			}
			return fmt.Errorf("unresolved reference %q from %s", args[1], args[0])
		},
	}
}
