package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func createSampleRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "models.py", `class User:
    """A registered user. See [User.greet]."""

    def __init__(self, name: str) -> None:
        self.name = name

    def greet(self) -> str:
        """Returns a greeting. Unlike [Usr]."""
        return "hi " + self.name
`)
	writeTestFile(t, dir, "main.py", `from models import User


def greet(user: User) -> str:
    """Greets a [User] through [User.greet()]."""
    return user.greet()
`)
	return dir
}

func TestRunTOONStdout(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{dir, "--out", "-"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	out := stdout.String()
	for _, want := range []string{
		"project: " + filepath.Base(dir) + "\n",
		"libraries[2]{name,page,rank}:",
		"  main.greet,User.greet(),models.User.greet\n",
		"  main.greet,User,models.User\n",
		"dependencies[1]{source,target,symbols}:",
		",Usr,models.py,",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(stderr.String(), "unresolved reference") {
		t.Errorf("expected unresolved warning on stderr, got:\n%s", stderr.String())
	}
}

func TestRunWritesPages(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if !strings.Contains(stdout.String(), "4 files to "+filepath.Join(dir, "docs", "api")) {
		t.Errorf("summary: %q", stdout.String())
	}

	page, err := os.ReadFile(filepath.Join(dir, "docs", "api", "main.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(page), "[`User.greet()`](models.md#User.greet)") {
		t.Errorf("main.md missing cross-page link:\n%s", page)
	}
	for _, name := range []string{"models.md", "index.md", "index.toon"} {
		if _, err := os.Stat(filepath.Join(dir, "docs", "api", name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestRunMaxLibraries(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-n", "1", "-o", "-", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "libraries[1]{name,page,rank}:\n  models,") {
		t.Errorf("expected only models, got:\n%s", out)
	}
	if !strings.Contains(out, "dependencies[0]") {
		t.Errorf("dependencies should be dropped with one library:\n%s", out)
	}
}

func TestRunLibraryFilter(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--library", "MAIN", "-o", "-", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "libraries[1]{name,page,rank}:\n  main,") {
		t.Errorf("expected only main, got:\n%s", stdout.String())
	}

	err := run([]string{"--library", "nothing", "-o", "-", dir}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "no library matches") {
		t.Errorf("expected no-match error, got %v", err)
	}
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--version"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := stdout.String(); got != "refdoc dev\n" {
		t.Errorf("version output: %q", got)
	}
}

func TestRunNoFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "readme.txt", "nothing here")

	var stdout, stderr bytes.Buffer
	err := run([]string{dir}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for no parseable files")
	}
	if !strings.Contains(err.Error(), "no parseable files") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunUnsupportedLanguage(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"-l", "rust", t.TempDir()}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for unsupported language")
	}
	if !strings.Contains(err.Error(), "unsupported language") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunNotADirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "file.py", "pass")

	var stdout, stderr bytes.Buffer
	err := run([]string{filepath.Join(dir, "file.py")}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("expected not-a-directory error, got %v", err)
	}
}

func TestRunInvalidFormat(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"--format", "html", createSampleRepo(t)}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "format") {
		t.Errorf("expected format error, got %v", err)
	}
}

func TestRunConfigFile(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	writeTestFile(t, dir, "refdoc.toml", `[project]
name = "people"

[output]
dir = "out"
format = "toon"
`)

	var stdout, stderr bytes.Buffer
	if err := run([]string{dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	data, err := os.ReadFile(filepath.Join(dir, "out", "index.toon"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "project: people\n") {
		t.Errorf("index.toon = %q", data)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "index.md")); err == nil {
		t.Error("markdown written with format = toon")
	}

	// Flags override the file.
	stdout.Reset()
	if err := run([]string{"--format", "markdown", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "index.md")); err != nil {
		t.Errorf("--format markdown did not write index.md: %v", err)
	}
}

func TestRunBadConfig(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	writeTestFile(t, dir, "refdoc.toml", "[output]\ncolour = \"red\"\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{dir}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "output.colour") {
		t.Errorf("expected unknown key error, got %v", err)
	}
}

func TestRunFailOnUnresolved(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	writeTestFile(t, dir, "refdoc.toml", "[references]\nfail_on_unresolved = true\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{"-o", "-", dir}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "1 unresolved references") {
		t.Errorf("expected unresolved error, got %v", err)
	}
	if !strings.Contains(stdout.String(), "project:") {
		t.Error("output should still be written before failing")
	}
}

func TestRunCache(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var first, second, stderr bytes.Buffer
	if err := run([]string{"-o", "-", dir}, &first, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(dir, ".refdoc-cache"))
	if err != nil || len(entries) == 0 {
		t.Fatalf("cache not populated: %v", err)
	}
	if err := run([]string{"-o", "-", dir}, &second, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if first.String() != second.String() {
		t.Errorf("cached run differs:\n%s\nvs\n%s", first.String(), second.String())
	}
}

func TestRunNoCache(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--no-cache", "-o", "-", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".refdoc-cache")); err == nil {
		t.Error("--no-cache created the cache directory")
	}
}

func TestRunQuiet(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-q", "-o", "-", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stderr.Len() != 0 {
		t.Errorf("--quiet still logged:\n%s", stderr.String())
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"check", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("check: %v", err)
	}
	out := stdout.String()
	for _, want := range []string{"LOCATION", "models.User.greet", "Usr", "User", "unresolved of 4 references"} {
		if !strings.Contains(out, want) {
			t.Errorf("check output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(stderr.String(), "unresolved reference") {
		t.Errorf("check should not log per-reference warnings:\n%s", stderr.String())
	}

	err := run([]string{"check", "--strict", dir}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "unresolved") {
		t.Errorf("--strict: expected error, got %v", err)
	}
}

func TestCheckClean(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "shapes.py", `def area(side):
    """Area of a square, see [perimeter]."""
    return side * side


def perimeter(side):
    return 4 * side
`)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"check", "--strict", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(stdout.String(), "all 1 references resolved") {
		t.Errorf("check output: %q", stdout.String())
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"resolve", "main.greet", "User.greet()", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.Contains(stdout.String(), "models.User.greet (models.py:") {
		t.Errorf("resolve output: %q", stdout.String())
	}

	stdout.Reset()
	err := run([]string{"resolve", "models.User.greet", "Usr", dir}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "unresolved reference") {
		t.Errorf("expected unresolved error, got %v", err)
	}
	if !strings.Contains(stdout.String(), "did you mean: User") {
		t.Errorf("suggestions: %q", stdout.String())
	}

	err = run([]string{"resolve", "models.Nobody", "User", dir}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "no entity named") {
		t.Errorf("expected missing entity error, got %v", err)
	}
}
