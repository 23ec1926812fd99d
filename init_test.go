package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phobologic/refdoc/internal/config"
)

// TestInitCreatesFile verifies that init writes a refdoc.toml that loads back
// with the directory name as the project name.
func TestInitCreatesFile(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "shapes")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if err := run([]string{"init", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(stderr.String(), "wrote ") {
		t.Errorf("stderr = %q", stderr.String())
	}

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg.Project.Name != "shapes" {
		t.Errorf("name = %q", cfg.Project.Name)
	}
	if cfg.Output.Dir != config.Default().Output.Dir {
		t.Errorf("output dir = %q", cfg.Output.Dir)
	}
}

// TestInitDryRun verifies that --dry-run prints the file and writes nothing.
func TestInitDryRun(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"init", "--dry-run", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
		t.Error("--dry-run should not create the file")
	}
	out := stdout.String()
	if !strings.HasPrefix(out, "# refdoc configuration.") {
		t.Errorf("dry-run output missing header:\n%s", out)
	}
	if !strings.Contains(out, "[references]") {
		t.Errorf("dry-run output missing [references]:\n%s", out)
	}
}

// TestInitExisting verifies that an existing file is kept unless --force is
// given.
func TestInitExisting(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)
	if err := os.WriteFile(path, []byte("[project]\nname = \"mine\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	err := run([]string{"init", dir}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already-exists error, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "mine") {
		t.Error("existing file was modified")
	}

	if err := run([]string{"init", "--force", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("init --force: %v", err)
	}
	data, _ = os.ReadFile(path)
	if strings.Contains(string(data), "mine") {
		t.Error("--force did not replace the file")
	}
}

func TestStarterConfigRoundTrip(t *testing.T) {
	t.Parallel()

	data, err := starterConfig("demo")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), config.FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := config.Default()
	want.Project.Name = "demo"
	if cfg.Output != want.Output || cfg.References != want.References || cfg.Cache != want.Cache {
		t.Errorf("round trip = %+v, want %+v", cfg, want)
	}
}
