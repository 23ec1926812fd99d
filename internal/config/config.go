// Package config loads refdoc.toml project settings.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up from the project root upward.
const FileName = "refdoc.toml"

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatTOON     = "toon"
	FormatAll      = "all"
)

var formats = []string{FormatMarkdown, FormatTOON, FormatAll}

// Config is the full set of project settings.
type Config struct {
	Project    Project    `toml:"project"`
	Sources    Sources    `toml:"sources"`
	Output     Output     `toml:"output"`
	References References `toml:"references"`
	Cache      Cache      `toml:"cache"`
}

type Project struct {
	// Name titles the generated site. Defaults to the root directory name.
	Name string `toml:"name"`
}

type Sources struct {
	Languages   []string `toml:"languages"`
	Include     []string `toml:"include"`
	Exclude     []string `toml:"exclude"`
	MaxFileSize int64    `toml:"max_file_size"`
	Tests       bool     `toml:"tests"`
}

type Output struct {
	Dir    string `toml:"dir"`
	Format string `toml:"format"`
	// MaxLibraries keeps only the highest ranked libraries. Zero keeps all.
	MaxLibraries int `toml:"max_libraries"`
}

type References struct {
	// Private allows links to private declarations of other libraries.
	Private bool `toml:"private"`
	// Suggestions is the number of "did you mean" candidates reported per
	// unresolved reference.
	Suggestions      int  `toml:"suggestions"`
	FailOnUnresolved bool `toml:"fail_on_unresolved"`
}

type Cache struct {
	Dir      string `toml:"dir"`
	Disabled bool   `toml:"disabled"`
}

// Default returns the settings used when no refdoc.toml exists.
func Default() Config {
	return Config{
		Sources: Sources{MaxFileSize: 1_000_000},
		Output:  Output{Dir: "docs/api", Format: FormatAll},
		References: References{
			Suggestions: 3,
		},
		Cache: Cache{Dir: ".refdoc-cache"},
	}
}

// Find looks for refdoc.toml in startDir and its ancestors.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("resolving start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads path over the defaults. Unknown keys are errors.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: parsing TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("project", "name") && strings.TrimSpace(cfg.Project.Name) == "" {
		return Config{}, fmt.Errorf("%s: [project].name is empty", path)
	}
	if meta.IsDefined("output", "dir") && strings.TrimSpace(cfg.Output.Dir) == "" {
		return Config{}, fmt.Errorf("%s: [output].dir is empty", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover loads the nearest refdoc.toml above startDir, or the defaults
// when there is none. The returned path is "" in the latter case.
func Discover(startDir string) (Config, string, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return Default(), "", err
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, "", err
	}
	return cfg, path, nil
}

// Validate checks value ranges that TOML decoding cannot.
func (c Config) Validate() error {
	if !slices.Contains(formats, c.Output.Format) {
		return fmt.Errorf("[output].format %q: want one of %s", c.Output.Format, strings.Join(formats, ", "))
	}
	if c.Output.MaxLibraries < 0 {
		return fmt.Errorf("[output].max_libraries must not be negative")
	}
	if c.Sources.MaxFileSize < 0 {
		return fmt.Errorf("[sources].max_file_size must not be negative")
	}
	if c.References.Suggestions < 0 {
		return fmt.Errorf("[references].suggestions must not be negative")
	}
	return nil
}

// Write encodes c as TOML.
func Write(w io.Writer, c Config) error {
	return toml.NewEncoder(w).Encode(c)
}
