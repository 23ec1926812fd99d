package cache

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/phobologic/refdoc/internal/analysis"
)

func sampleUnit() analysis.Unit {
	return analysis.Unit{
		Path:     "pkg/util.py",
		Language: "python",
		Library:  "pkg.util",
		Doc:      "Utilities.",
		Decls: []analysis.Decl{{
			Kind: analysis.ElementClass,
			Name: "Box",
			Line: 3,
			Children: []analysis.Decl{
				{Kind: analysis.ElementGetter, Name: "size", Property: "size", Line: 5},
			},
		}},
		Imports: []analysis.Import{{Path: ".core", Name: "core", Line: 1}},
	}
}

func TestPutGet(t *testing.T) {
	t.Parallel()
	c, err := Open(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	key := Key("python", "pkg/util.py", "", []byte("class Box: pass"))

	if _, ok, err := c.Get(key); ok || err != nil {
		t.Fatalf("Get before Put = %v, %v", ok, err)
	}
	want := sampleUnit()
	if err := c.Put(key, want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if got.Library != want.Library || len(got.Decls) != 1 {
		t.Fatalf("unit = %+v", got)
	}
	box := got.Decls[0]
	if box.Kind != analysis.ElementClass || len(box.Children) != 1 || box.Children[0].Property != "size" {
		t.Errorf("decl = %+v", box)
	}
	if len(got.Imports) != 1 || got.Imports[0].Path != ".core" {
		t.Errorf("imports = %+v", got.Imports)
	}
}

func TestKeyVaries(t *testing.T) {
	t.Parallel()
	base := Key("go", "a.go", "ex", []byte("package a"))
	if base != Key("go", "a.go", "ex", []byte("package a")) {
		t.Error("Key is not deterministic")
	}
	others := []uint64{
		Key("go", "a.go", "ex", []byte("package b")),
		Key("go", "b.go", "ex", []byte("package a")),
		Key("go", "a.go", "other", []byte("package a")),
		Key("python", "a.go", "ex", []byte("package a")),
	}
	for i, k := range others {
		if k == base {
			t.Errorf("variant %d collides with base key", i)
		}
	}
}

func TestNilCache(t *testing.T) {
	t.Parallel()
	var c *Cache
	if err := c.Put(1, sampleUnit()); err != nil {
		t.Errorf("Put on nil cache: %v", err)
	}
	if _, ok, err := c.Get(1); ok || err != nil {
		t.Errorf("Get on nil cache = %v, %v", ok, err)
	}
	if err := c.Clear(); err != nil {
		t.Errorf("Clear on nil cache: %v", err)
	}
}

func TestClear(t *testing.T) {
	t.Parallel()
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put(42, sampleUnit()); err != nil {
		t.Fatal(err)
	}
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get(42); ok {
		t.Error("entry survived Clear")
	}
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Go(func() {
			key := uint64(i % 4)
			if err := c.Put(key, sampleUnit()); err != nil {
				t.Error(err)
			}
			if _, _, err := c.Get(key); err != nil {
				t.Error(err)
			}
		})
	}
	wg.Wait()
}
