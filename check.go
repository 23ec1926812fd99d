package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/phobologic/refdoc/internal/render"
)

func newCheckCmd(o *options) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "check [path]",
		Short: "Report unresolved doc comment references",
		Long: `check resolves every reference without writing any output and prints a
table of the references that matched nothing, with suggestions. It fails when
fail_on_unresolved is set in refdoc.toml or --strict is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot(args, 0)
			if err != nil {
				return err
			}
			// The table replaces the per-reference warnings.
			logger := o.logger(cmd.ErrOrStderr(), slog.LevelError)
			cfg, err := loadConfig(cmd, root, o, logger)
			if err != nil {
				return err
			}
			p, err := load(cmd.Context(), root, cfg, o.jobs, logger)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			unresolved := p.site.Unresolved()
			if len(unresolved) == 0 {
				_, _ = fmt.Fprintf(w, "%s all %d references resolved\n", green("ok"), len(p.site.Links()))
				return nil
			}
			if err := render.Table(w, unresolved); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(w, "\n%s unresolved of %d references\n",
				yellow(len(unresolved)), len(unresolved)+len(p.site.Links()))
			if strict || cfg.References.FailOnUnresolved {
				return fmt.Errorf("%d unresolved references", len(unresolved))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any reference is unresolved")
	return cmd
}
