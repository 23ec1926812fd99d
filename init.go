package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phobologic/refdoc/internal/config"
)

const configHeader = `# refdoc configuration. Flags given on the command line override these values.
# Generated pages keep any text written outside their refdoc:start/end block.

`

func newInitCmd() *cobra.Command {
	var dryRun, force bool
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a starter refdoc.toml",
		Long: `init writes a refdoc.toml holding the default settings to dir, which
defaults to the current directory. The project name is taken from the
directory name. An existing file is only replaced with --force.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectRoot(args, 0)
			if err != nil {
				return err
			}
			data, err := starterConfig(filepath.Base(dir))
			if err != nil {
				return err
			}

			if dryRun {
				_, _ = cmd.OutOrStdout().Write(data)
				return nil
			}

			path := filepath.Join(dir, config.FileName)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to replace it)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the file instead of writing it")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing refdoc.toml")
	return cmd
}

// starterConfig renders the default settings for a project named name.
func starterConfig(name string) ([]byte, error) {
	cfg := config.Default()
	cfg.Project.Name = name
	var buf bytes.Buffer
	buf.WriteString(configHeader)
	if err := config.Write(&buf, cfg); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}
