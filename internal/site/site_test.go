package site

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/phobologic/refdoc/internal/analysis"
	"github.com/phobologic/refdoc/internal/graph"
	"github.com/phobologic/refdoc/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fixture(t *testing.T) *model.Package {
	t.Helper()
	prog := analysis.Link([]analysis.Unit{
		{Path: "shapes.py", Language: "python", Library: "shapes", Decls: []analysis.Decl{
			{Kind: analysis.ElementClass, Name: "Square", Doc: "See [area], [Circle], [side] and [Sqare].", Children: []analysis.Decl{
				{Kind: analysis.ElementConstructor, Name: "__init__", Unnamed: true},
				{Kind: analysis.ElementMethod, Name: "area", Doc: "Uses [side] and [scale].", Children: []analysis.Decl{
					{Kind: analysis.ElementParameter, Name: "scale"},
				}},
				{Kind: analysis.ElementGetter, Name: "side", Property: "side"},
				{Kind: analysis.ElementMethod, Name: "_hidden", Private: true},
			}},
			{Kind: analysis.ElementClass, Name: "Circle", Doc: "Unlike [Square.area()], see [Square._hidden]. Not [area.scale.x]."},
		}},
		{Path: "other.py", Language: "python", Library: "other", Decls: []analysis.Decl{
			{Kind: analysis.ElementFunction, Name: "helper", Doc: "Calls [shapes.Square], [shapes.Square._hidden] and [new Square]."},
		}, Imports: []analysis.Import{{Path: "shapes", Name: "shapes"}}},
	})
	pkg, _ := graph.Build("demo", prog)
	return pkg
}

func entry(t *testing.T, s *Site, qualified string) Entry {
	t.Helper()
	for _, p := range s.Pages {
		for _, e := range p.Entries {
			if e.Entity.QualifiedName() == qualified {
				return e
			}
		}
	}
	t.Fatalf("no entry %q", qualified)
	return Entry{}
}

func targetName(r Resolution) string {
	if !r.Resolved() {
		return ""
	}
	return r.Target.QualifiedName()
}

func TestBuildResolves(t *testing.T) {
	t.Parallel()
	s, err := Build(context.Background(), fixture(t), Options{Suggestions: 3})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		entity string
		want   []string // qualified targets, "" for unresolved
	}{
		{"shapes.Square", []string{"shapes.Square.area", "shapes.Circle", "shapes.Square.side", ""}},
		{"shapes.Square.area", []string{"shapes.Square.side", "shapes.Square.area.scale"}},
		{"shapes.Circle", []string{"shapes.Square.area", "shapes.Square._hidden", ""}},
		{"other.helper", []string{"shapes.Square", "", "shapes.Square.__init__"}},
	}
	for _, tt := range tests {
		e := entry(t, s, tt.entity)
		if len(e.Refs) != len(tt.want) {
			t.Errorf("%s: %d refs, want %d", tt.entity, len(e.Refs), len(tt.want))
			continue
		}
		for i, want := range tt.want {
			if got := targetName(e.Refs[i]); got != want {
				t.Errorf("%s [%s] = %q, want %q", tt.entity, e.Refs[i].Ref.Text, got, want)
			}
		}
	}

	sq := entry(t, s, "shapes.Square")
	if sug := sq.Refs[3].Suggestions; len(sug) == 0 || sug[0] != "Square" {
		t.Errorf("suggestions for Sqare = %v", sug)
	}
}

func TestBuildPrivateOption(t *testing.T) {
	t.Parallel()
	s, err := Build(context.Background(), fixture(t), Options{Private: true})
	if err != nil {
		t.Fatal(err)
	}
	e := entry(t, s, "other.helper")
	if got := targetName(e.Refs[1]); got != "shapes.Square._hidden" {
		t.Errorf("private ref = %q", got)
	}
	if len(e.Refs[1].Suggestions) != 0 {
		t.Error("suggestions computed with Suggestions = 0")
	}
}

func TestBuildDeterministic(t *testing.T) {
	t.Parallel()
	render := func(jobs int) string {
		s, err := Build(context.Background(), fixture(t), Options{Jobs: jobs})
		if err != nil {
			t.Fatal(err)
		}
		var b strings.Builder
		for _, l := range s.Links() {
			b.WriteString(l.From.QualifiedName() + " -> " + l.To.QualifiedName() + "\n")
		}
		for _, u := range s.Unresolved() {
			b.WriteString(u.From.QualifiedName() + " !! " + u.Ref.Text + "\n")
		}
		return b.String()
	}
	want := render(1)
	for _, jobs := range []int{2, 8} {
		if got := render(jobs); got != want {
			t.Errorf("jobs=%d:\n%s\nwant:\n%s", jobs, got, want)
		}
	}
}

func TestBuildLogsUnresolved(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	s, err := Build(context.Background(), fixture(t), Options{Logger: logger, Suggestions: 1})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(s.Unresolved()); n != 3 {
		t.Errorf("unresolved = %d, want 3", n)
	}
	out := buf.String()
	for _, want := range []string{"shapes.py:0: unresolved reference", "ref=Sqare", "suggest=Square", "level=WARN"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestBuildCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Build(ctx, fixture(t), Options{}); err == nil {
		t.Error("expected error from canceled context")
	}
}

func TestPages(t *testing.T) {
	t.Parallel()
	s, err := Build(context.Background(), fixture(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Pages) != 2 || s.Name != "demo" {
		t.Fatalf("site %q with %d pages", s.Name, len(s.Pages))
	}
	p := s.Pages[0]
	if p.File != "shapes.md" || p.Entries[0].Entity != model.Entity(p.Library) {
		t.Errorf("page = %s, first entry %s", p.File, p.Entries[0].Entity.Name())
	}
	if edges := s.Edges(); len(edges) != len(s.Links()) {
		t.Errorf("edges = %d, links = %d", len(edges), len(s.Links()))
	}
}

func TestHref(t *testing.T) {
	t.Parallel()
	pkg := fixture(t)
	s, err := Build(context.Background(), pkg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	shapes, _ := pkg.Library("shapes")
	other, _ := pkg.Library("other")
	square := shapes.Containers()[0]
	area := square.Members()[1]

	tests := []struct {
		from *model.Library
		to   model.Entity
		want string
	}{
		{shapes, square, "#Square"},
		{other, square, "shapes.md#Square"},
		{other, area, "shapes.md#Square.area"},
		{shapes, area.Params()[0], "#Square.area"},
		{other, shapes, "shapes.md"},
		{other, pkg, IndexFile},
	}
	for _, tt := range tests {
		got, ok := s.Href(tt.from, tt.to)
		if !ok || got != tt.want {
			t.Errorf("Href(%s, %s) = %q, %v; want %q", tt.from.Name(), tt.to.QualifiedName(), got, ok, tt.want)
		}
	}

	only := s.Select(func(l *model.Library) bool { return l == other })
	if len(only.Pages) != 1 {
		t.Fatalf("selected pages = %d", len(only.Pages))
	}
	if _, ok := only.Href(other, square); ok {
		t.Error("link into dropped page reported present")
	}
}

func TestAnchorAndPageFile(t *testing.T) {
	t.Parallel()
	pkg := model.NewPackage("p")
	lib := pkg.NewLibrary(model.Info{Name: "example.com/x/y"})
	c := lib.NewContainer(model.Class, model.Info{Name: "Foo"})
	m := c.NewMember(model.Method, model.Info{Name: "empty?"})
	if got := PageFile(lib); got != "example.com-x-y.md" {
		t.Errorf("PageFile = %q", got)
	}
	if got := Anchor(m); got != "Foo.empty-" {
		t.Errorf("Anchor = %q", got)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()
	pkg := fixture(t)
	from, ok := model.Find(pkg, "other.helper")
	if !ok {
		t.Fatal("other.helper not found")
	}

	r, err := Resolve(from, "shapes.Square.area()", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := targetName(r); got != "shapes.Square.area" {
		t.Errorf("target = %q", got)
	}

	r, err = Resolve(from, "shapes.Sqare", Options{Suggestions: 2})
	if err != nil {
		t.Fatal(err)
	}
	if r.Resolved() || len(r.Suggestions) == 0 || r.Suggestions[0] != "shapes.Square" {
		t.Errorf("resolution = %+v", r)
	}

	if _, err := Resolve(from, "not a ref!", Options{}); err == nil {
		t.Error("expected error for invalid reference")
	}
}

func TestBuildGoConstructors(t *testing.T) {
	t.Parallel()
	prog := analysis.Link([]analysis.Unit{
		{Path: "srv/server.go", Language: "go", Library: "srv", Decls: []analysis.Decl{
			{Kind: analysis.ElementStruct, Name: "Server"},
			{Kind: analysis.ElementFunction, Name: "NewServer", Receiver: "Server", Result: "*Server"},
			{Kind: analysis.ElementFunction, Name: "NewServerTLS", Receiver: "Server", Result: "*Server"},
			{Kind: analysis.ElementFunction, Name: "Serve", Doc: "Use [NewServer], [new Server], [NewServerTLS] or [Server]."},
		}},
		{Path: "cmd/main.go", Language: "go", Library: "main", Decls: []analysis.Decl{
			{Kind: analysis.ElementFunction, Name: "main", Private: true, Doc: "Calls [srv.NewServer]."},
		}, Imports: []analysis.Import{{Path: "srv", Name: "srv"}}},
	})
	pkg, _ := graph.Build("demo", prog)
	s, err := Build(context.Background(), pkg, Options{})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		entity string
		want   []string
	}{
		{"srv.Serve", []string{"srv.Server.NewServer", "srv.Server.NewServer", "srv.Server.NewServerTLS", "srv.Server"}},
		{"main.main", []string{"srv.Server.NewServer"}},
	}
	for _, tt := range tests {
		e := entry(t, s, tt.entity)
		if len(e.Refs) != len(tt.want) {
			t.Fatalf("%s: %d refs, want %d", tt.entity, len(e.Refs), len(tt.want))
		}
		for i, want := range tt.want {
			if got := targetName(e.Refs[i]); got != want {
				t.Errorf("%s ref %q = %q, want %q", tt.entity, e.Refs[i].Ref.Text, got, want)
			}
		}
	}
}
