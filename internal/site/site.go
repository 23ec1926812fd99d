// Package site resolves the doc comment references of an entity graph and
// assembles the pages of the reference site.
package site

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"

	"github.com/hbollon/go-edlib"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/refdoc/internal/comment"
	"github.com/phobologic/refdoc/internal/graph"
	"github.com/phobologic/refdoc/internal/model"
	"github.com/phobologic/refdoc/internal/resolve"
)

// Options configures Build.
type Options struct {
	// Private allows links to private declarations of other libraries.
	Private bool
	// Suggestions is the maximum number of "did you mean" names recorded
	// for an unresolved reference.
	Suggestions int
	// Jobs bounds concurrent resolution. Zero means GOMAXPROCS.
	Jobs   int
	Logger *slog.Logger
}

// minSimilarity is the Jaro-Winkler score a name needs to be suggested.
const minSimilarity = 0.8

// Resolution is the outcome of one reference in a doc comment.
type Resolution struct {
	Ref comment.Ref
	// Target is nil when the reference did not resolve.
	Target      model.Entity
	Suggestions []string
}

// Resolved reports whether the reference found a target.
func (r Resolution) Resolved() bool { return r.Target != nil }

// Entry is one documented entity and its references.
type Entry struct {
	Entity model.Entity
	Refs   []Resolution
}

// Page holds the entries of one library. The library itself is the first
// entry.
type Page struct {
	Library *model.Library
	File    string
	Entries []Entry
}

// Site is the resolved reference site of one package.
type Site struct {
	Name  string
	Pages []*Page
	files map[*model.Library]string
}

// Link is a resolved reference.
type Link struct {
	From model.Entity
	Ref  comment.Ref
	To   model.Entity
}

// Unresolved is a reference that matched nothing.
type Unresolved struct {
	From        model.Entity
	Ref         comment.Ref
	Suggestions []string
}

// Build resolves every reference in the doc comments of pkg. Unresolved
// references are recorded and logged; they never fail the build. Only
// context cancellation returns an error.
func Build(ctx context.Context, pkg *model.Package, opts Options) (*Site, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	s := &Site{Name: pkg.Name(), files: make(map[*model.Library]string)}
	byLib := make(map[*model.Library]*Page)
	for _, lib := range pkg.Libraries() {
		p := &Page{Library: lib, File: PageFile(lib)}
		s.Pages = append(s.Pages, p)
		s.files[lib] = p.File
		byLib[lib] = p
	}
	model.Walk(pkg, func(e model.Entity) {
		lib, ok := model.LibraryOf(e)
		if !ok {
			return
		}
		p := byLib[lib]
		p.Entries = append(p.Entries, Entry{Entity: e})
	})

	r := &resolver{opts: opts}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, p := range s.Pages {
		for i := range p.Entries {
			entry := &p.Entries[i]
			refs := comment.Extract(entry.Entity.Doc())
			if len(refs) == 0 {
				continue
			}
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				entry.Refs = make([]Resolution, len(refs))
				for j, ref := range refs {
					entry.Refs[j] = r.resolve(entry.Entity, ref)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, u := range s.Unresolved() {
		loc := u.From.Location()
		args := []any{"ref", u.Ref.Text, "from", u.From.QualifiedName()}
		if len(u.Suggestions) > 0 {
			args = append(args, "suggest", strings.Join(u.Suggestions, ", "))
		}
		logger.Warn(fmt.Sprintf("%s:%d: unresolved reference", loc.File, loc.Line), args...)
	}
	return s, nil
}

// Resolve resolves one reference, written as it would appear between
// brackets, from the doc comment of from.
func Resolve(from model.Entity, text string, opts Options) (Resolution, error) {
	refs := comment.Extract("[" + text + "]")
	if len(refs) != 1 {
		return Resolution{}, fmt.Errorf("%q is not a reference", text)
	}
	r := &resolver{opts: opts}
	return r.resolve(from, refs[0]), nil
}

type resolver struct {
	opts Options
}

func (r *resolver) resolve(from model.Entity, ref comment.Ref) Resolution {
	hint := ref.Filter()
	filter := func(c model.Referable) bool {
		e, ok := c.(model.Entity)
		if !ok {
			return false
		}
		if hint != nil && !hint(c) {
			return false
		}
		return r.visible(from, e)
	}
	res := Resolution{Ref: ref}
	target, ok := resolve.ReferenceBy(from, resolve.Split(ref.Name), resolve.Lookup{
		Filter:    filter,
		AllowTree: allowTree,
	})
	if ok {
		res.Target = target.(model.Entity)
		return res
	}
	if r.opts.Suggestions > 0 {
		res.Suggestions = suggest(from, ref.Name, r.opts.Suggestions)
	}
	return res
}

// visible applies the privacy policy: private entities are only linked from
// their own library unless Options.Private is set.
func (r *resolver) visible(from, target model.Entity) bool {
	if r.opts.Private || !target.Private() {
		return true
	}
	a, okA := model.LibraryOf(from)
	b, okB := model.LibraryOf(target)
	return okA && okB && a == b
}

// allowTree reports whether a dotted reference may continue below e.
// Parameters, enum values, accessors and data members end a path.
func allowTree(e model.Referable) bool {
	switch e.Kind() {
	case model.KindParameter, model.KindEnumValue, model.KindAccessor:
		return false
	case model.KindMember:
		m, ok := e.(*model.Member)
		return ok && m.MemberKind().Callable()
	default:
		return true
	}
}

// suggest returns up to n names visible from origin that are similar to name.
func suggest(origin model.Entity, name string, n int) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			names = append(names, s)
		}
	}
	for cur := model.Entity(origin); cur != nil; {
		idx := cur.ReferenceChildren()
		for _, k := range idx.Keys() {
			add(k)
			if strings.Contains(name, ".") {
				if c, ok := idx.Get(k); ok && (c.Kind() == model.KindContainer || c.Kind() == model.KindLibrary) {
					for _, ck := range c.ReferenceChildren().Keys() {
						add(k + "." + ck)
					}
				}
			}
		}
		owner, ok := cur.Owner()
		if !ok {
			break
		}
		cur = owner
	}

	type scored struct {
		name  string
		score float32
	}
	var matches []scored
	for _, cand := range names {
		score, err := edlib.StringsSimilarity(name, cand, edlib.JaroWinkler)
		if err != nil || score < minSimilarity || cand == name {
			continue
		}
		matches = append(matches, scored{cand, score})
	}
	slices.SortFunc(matches, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})
	out := make([]string, 0, min(n, len(matches)))
	for _, m := range matches[:min(n, len(matches))] {
		out = append(out, m.name)
	}
	return out
}

// Links returns the resolved references in page order.
func (s *Site) Links() []Link {
	var out []Link
	for _, p := range s.Pages {
		for _, e := range p.Entries {
			for _, r := range e.Refs {
				if r.Resolved() {
					out = append(out, Link{From: e.Entity, Ref: r.Ref, To: r.Target})
				}
			}
		}
	}
	return out
}

// Unresolved returns the references that matched nothing, in page order.
func (s *Site) Unresolved() []Unresolved {
	var out []Unresolved
	for _, p := range s.Pages {
		for _, e := range p.Entries {
			for _, r := range e.Refs {
				if !r.Resolved() {
					out = append(out, Unresolved{From: e.Entity, Ref: r.Ref, Suggestions: r.Suggestions})
				}
			}
		}
	}
	return out
}

// Edges returns the resolved references as graph edges.
func (s *Site) Edges() []graph.Edge {
	links := s.Links()
	out := make([]graph.Edge, len(links))
	for i, l := range links {
		out[i] = graph.Edge{From: l.From, To: l.To}
	}
	return out
}

// Select returns a site holding only the pages keep accepts. Links into
// dropped pages stay resolved but Href reports them as absent.
func (s *Site) Select(keep func(*model.Library) bool) *Site {
	out := &Site{Name: s.Name, files: make(map[*model.Library]string)}
	for _, p := range s.Pages {
		if keep(p.Library) {
			out.Pages = append(out.Pages, p)
			out.files[p.Library] = p.File
		}
	}
	return out
}

var fileReplacer = strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-")

// PageFile is the file name of a library's page.
func PageFile(lib *model.Library) string {
	return fileReplacer.Replace(lib.Name()) + ".md"
}

// IndexFile is the file name of the site index.
const IndexFile = "index.md"

// Anchor is the in-page fragment identifying e.
func Anchor(e model.Entity) string {
	var b strings.Builder
	for _, r := range model.DisplayName(e) {
		switch {
		case r == '.' || r == '_' || r == '-',
			'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// Href returns the link from a page of library from to e. It reports false
// when e lives on a page that is not part of the site.
func (s *Site) Href(from *model.Library, e model.Entity) (string, bool) {
	switch t := e.(type) {
	case *model.Package:
		return IndexFile, true
	case *model.Parameter:
		owner, ok := t.Owner()
		if !ok {
			return "", false
		}
		return s.Href(from, owner)
	}
	lib, ok := model.LibraryOf(e)
	if !ok {
		return "", false
	}
	file, ok := s.files[lib]
	if !ok {
		return "", false
	}
	if e == model.Entity(lib) {
		return file, true
	}
	if lib == from {
		return "#" + Anchor(e), true
	}
	return file + "#" + Anchor(e), true
}
