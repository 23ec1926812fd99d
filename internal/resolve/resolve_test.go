package resolve

import (
	"slices"
	"sync"
	"testing"

	"github.com/phobologic/refdoc/internal/model"
)

type mapScope map[string]model.Referable

func (s mapScope) Lookup(name string) (model.Referable, bool) {
	r, ok := s[name]
	return r, ok
}

// fooGraph builds Lib -> class Foo { bar() } plus a sibling class Other.
func fooGraph() (pkg *model.Package, lib *model.Library, foo *model.Container, bar *model.Member, other *model.Container) {
	pkg = model.NewPackage("p")
	lib = pkg.NewLibrary(model.Info{Name: "Lib"})
	foo = lib.NewContainer(model.Class, model.Info{Name: "Foo"})
	bar = foo.NewMember(model.Method, model.Info{Name: "bar"})
	other = lib.NewContainer(model.Class, model.Info{Name: "Other"})
	return pkg, lib, foo, bar, other
}

func isKind(k model.Kind) func(model.Referable) bool {
	return func(r model.Referable) bool { return r.Kind() == k }
}

func TestScenario(t *testing.T) {
	t.Parallel()
	_, lib, foo, bar, _ := fooGraph()

	if got, ok := ReferenceBy(foo, []string{"bar"}, Lookup{}); !ok || got != bar {
		t.Errorf("Foo: bar = %v, %v", got, ok)
	}
	if got, ok := ReferenceBy(lib, []string{"Foo", "bar"}, Lookup{}); !ok || got != bar {
		t.Errorf("Lib: Foo.bar = %v, %v", got, ok)
	}
	if got, ok := ReferenceBy(foo, []string{"nonexistent"}, Lookup{}); ok {
		t.Errorf("Foo: nonexistent = %v, want unresolved", got)
	}
}

func TestEmptyReference(t *testing.T) {
	t.Parallel()
	_, _, foo, _, _ := fooGraph()

	if got, ok := ReferenceBy(foo, nil, Lookup{NoParents: true}); !ok || got != foo {
		t.Errorf("empty, no parents = %v, %v; want origin", got, ok)
	}
	if got, ok := ReferenceBy(foo, nil, Lookup{}); ok {
		t.Errorf("empty, with parents = %v; want unresolved", got)
	}
}

func TestDeterminism(t *testing.T) {
	t.Parallel()
	_, _, _, bar, _ := fooGraph()

	first, _ := ReferenceBy(bar, []string{"Other"}, Lookup{})
	for range 10 {
		if got, _ := ReferenceBy(bar, []string{"Other"}, Lookup{}); got != first {
			t.Fatalf("got %v, then %v", first, got)
		}
	}
}

func TestParentFallback(t *testing.T) {
	t.Parallel()
	_, _, foo, bar, other := fooGraph()

	got, ok := ReferenceBy(bar, []string{"Other"}, Lookup{})
	if !ok || got != other {
		t.Errorf("bar: Other = %v, %v", got, ok)
	}
	if _, ok := ReferenceBy(bar, []string{"Other"}, Lookup{NoParents: true}); ok {
		t.Error("NoParents must not climb")
	}
	if _, ok := ReferenceBy(foo, []string{"Other"}, Lookup{Parents: []model.Referable{}}); ok {
		t.Error("empty Parents must not climb")
	}
}

func TestAscendingPrefixPrecedence(t *testing.T) {
	t.Parallel()

	pkg := model.NewPackage("p")
	a := pkg.NewLibrary(model.Info{Name: "A"})
	b := a.NewContainer(model.Class, model.Info{Name: "B"})
	ab := pkg.NewLibrary(model.Info{Name: "A.B"})

	got, ok := ReferenceBy(pkg, []string{"A", "B"}, Lookup{})
	if !ok || got != b {
		t.Errorf("A.B = %v, %v; want class B via prefix A", got, ok)
	}

	got, ok = ReferenceBy(pkg, []string{"A", "B"}, Lookup{Filter: isKind(model.KindLibrary)})
	if !ok || got != ab {
		t.Errorf("A.B (libraries only) = %v, %v; want library A.B", got, ok)
	}
}

func TestScopeBeforeChildren(t *testing.T) {
	t.Parallel()
	_, lib, foo, _, other := fooGraph()

	// The library's children index Foo, but its scope binds Foo to Other.
	lib.SetScope(mapScope{"Foo": other})
	if got, _ := ReferenceBy(lib, []string{"Foo"}, Lookup{}); got != other {
		t.Errorf("Foo = %v, want scope binding", got)
	}
	// A scope miss falls through to the index.
	lib.SetScope(mapScope{})
	if got, _ := ReferenceBy(lib, []string{"Foo"}, Lookup{}); got != foo {
		t.Errorf("Foo = %v, want index entry", got)
	}
}

func TestAllowTree(t *testing.T) {
	t.Parallel()
	_, lib, _, _, _ := fooGraph()

	noContainers := func(r model.Referable) bool { return r.Kind() != model.KindContainer }
	if got, ok := ReferenceBy(lib, []string{"Foo", "bar"}, Lookup{AllowTree: noContainers}); ok {
		t.Errorf("descended through a container: %v", got)
	}
}

func TestFilterRedirect(t *testing.T) {
	t.Parallel()

	pkg := model.NewPackage("p")
	lib := pkg.NewLibrary(model.Info{Name: "shapes"})
	sq := lib.NewContainer(model.Class, model.Info{Name: "Square"})
	ctor := sq.NewMember(model.Constructor, model.Info{Name: "__init__", Unnamed: true})

	isCtor := func(r model.Referable) bool {
		m, ok := r.(*model.Member)
		return ok && m.MemberKind() == model.Constructor
	}
	got, ok := ReferenceBy(lib, []string{"Square"}, Lookup{Filter: isCtor})
	if !ok || got != ctor {
		t.Errorf("new Square = %v, %v; want constructor", got, ok)
	}

	got, ok = ReferenceBy(lib, []string{"Square"}, Lookup{Filter: isKind(model.KindParameter)})
	if ok {
		t.Errorf("Square (parameters only) = %v; want unresolved", got)
	}
}

func TestGrandparentOverride(t *testing.T) {
	t.Parallel()

	pkg := model.NewPackage("p")
	core := pkg.NewLibrary(model.Info{Name: "core"})
	str := core.NewContainer(model.Class, model.Info{Name: "String"})
	str.NewMember(model.Method, model.Info{Name: "upcase"})

	extLib := pkg.NewLibrary(model.Info{Name: "ext"})
	shadow := extLib.NewMember(model.Function, model.Info{Name: "upcase"})
	ext := extLib.NewExtension(model.Info{Name: "String"})
	shout := ext.NewMember(model.Method, model.Info{Name: "shout"})

	// Without a target the extension climbs to its library.
	if got, _ := ReferenceBy(shout, []string{"upcase"}, Lookup{}); got != shadow {
		t.Errorf("untargeted: upcase = %v, want library function", got)
	}

	pkg2 := model.NewPackage("p")
	core2 := pkg2.NewLibrary(model.Info{Name: "core"})
	str2 := core2.NewContainer(model.Class, model.Info{Name: "String"})
	upcase2 := str2.NewMember(model.Method, model.Info{Name: "upcase"})
	extLib2 := pkg2.NewLibrary(model.Info{Name: "ext"})
	extLib2.NewMember(model.Function, model.Info{Name: "upcase"})
	ext2 := extLib2.NewExtension(model.Info{Name: "String"})
	ext2.SetTarget(str2)
	shout2 := ext2.NewMember(model.Method, model.Info{Name: "shout"})

	if got, _ := ReferenceBy(shout2, []string{"upcase"}, Lookup{}); got != upcase2 {
		t.Errorf("targeted: upcase = %v, want String.upcase", got)
	}
}

func TestParentCycleTerminates(t *testing.T) {
	t.Parallel()
	_, _, foo, _, _ := fooGraph()

	self := []model.Referable{foo}
	if got, ok := ReferenceBy(foo, []string{"missing"}, Lookup{Parents: self}); ok {
		t.Errorf("got %v, want unresolved", got)
	}
}

func TestConcurrentResolution(t *testing.T) {
	t.Parallel()
	_, _, foo, bar, _ := fooGraph()

	var wg sync.WaitGroup
	results := make([]model.Referable, 16)
	for i := range results {
		wg.Go(func() {
			results[i], _ = ReferenceBy(foo, []string{"Foo", "bar"}, Lookup{})
		})
	}
	wg.Wait()
	for i, got := range results {
		if got != bar {
			t.Errorf("goroutine %d: %v", i, got)
		}
	}
}

func TestCandidates(t *testing.T) {
	t.Parallel()

	got := candidates([]string{"a", "b", "c"})
	want := []candidate{
		{lookup: "a", remaining: []string{"b", "c"}},
		{lookup: "a.b", remaining: []string{"c"}},
		{lookup: "a.b.c", remaining: []string{}},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d", len(got))
	}
	for i := range want {
		if got[i].lookup != want[i].lookup || !slices.Equal(got[i].remaining, want[i].remaining) {
			t.Errorf("candidate %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"Foo.bar", []string{"Foo", "bar"}},
		{"bar", []string{"bar"}},
		{"a..b.", []string{"a", "b"}},
		{"", nil},
		{" Foo . bar ", []string{"Foo", "bar"}},
	}
	for _, tt := range tests {
		if got := Split(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("Split(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
