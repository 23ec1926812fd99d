// Package graph builds the documented entity graph from a linked program and
// ranks its libraries with PageRank.
package graph

import (
	"math"
	"sort"
	"strings"

	"github.com/phobologic/refdoc/internal/analysis"
	"github.com/phobologic/refdoc/internal/model"
	"github.com/phobologic/refdoc/internal/scope"
)

type scoped interface {
	SetScope(model.Scope)
}

type builder struct {
	prog       *analysis.Program
	reg        *model.Registry
	containers map[analysis.ElementID]*model.Container
	extensions map[analysis.ElementID]*model.Extension
	scopes     []scopeBinding
}

type scopeBinding struct {
	entity scoped
	el     *analysis.Element
}

// Build creates one entity per element of prog and returns the package root
// together with the registry mapping elements to entities. Supertypes and
// extension targets are linked by name, and every library, container and
// extension gets a scope adapter over its analysis scope.
func Build(name string, prog *analysis.Program) (*model.Package, *model.Registry) {
	b := &builder{
		prog:       prog,
		reg:        model.NewRegistry(),
		containers: make(map[analysis.ElementID]*model.Container),
		extensions: make(map[analysis.ElementID]*model.Extension),
	}
	pkg := model.NewPackage(name)
	for _, id := range prog.Libraries() {
		el, ok := prog.Element(id)
		if !ok {
			continue
		}
		lib := pkg.NewLibrary(info(el))
		b.reg.Register(el.ID, lib)
		b.scopes = append(b.scopes, scopeBinding{lib, el})
		for _, c := range b.children(el) {
			b.libraryChild(lib, c)
		}
	}
	b.linkSupers()
	b.linkExtensions()
	for _, s := range b.scopes {
		s.entity.SetScope(scope.New(s.el.Scope, prog, b.reg))
	}
	return pkg, b.reg
}

func (b *builder) children(el *analysis.Element) []*analysis.Element {
	out := make([]*analysis.Element, 0, len(el.Children))
	for _, id := range el.Children {
		if c, ok := b.prog.Element(id); ok {
			out = append(out, c)
		}
	}
	return out
}

func (b *builder) libraryChild(lib *model.Library, el *analysis.Element) {
	switch {
	case el.Kind.IsContainer():
		c := lib.NewContainer(containerKind(el.Kind), info(el))
		b.container(c, el)
	case el.Kind == analysis.ElementExtension:
		e := lib.NewExtension(info(el))
		b.reg.Register(el.ID, e)
		b.extensions[el.ID] = e
		b.scopes = append(b.scopes, scopeBinding{e, el})
		for _, c := range b.children(el) {
			b.member(e, c)
		}
	case el.Kind == analysis.ElementParameter:
	default:
		m := lib.NewMember(memberKind(el.Kind, false), info(el))
		b.reg.Register(el.ID, m)
		b.params(m, el)
	}
}

func (b *builder) container(c *model.Container, el *analysis.Element) {
	b.reg.Register(el.ID, c)
	b.containers[el.ID] = c
	b.scopes = append(b.scopes, scopeBinding{c, el})
	for _, child := range b.children(el) {
		switch {
		case child.Kind.IsContainer():
			b.container(c.NewContainer(containerKind(child.Kind), info(child)), child)
		case child.Kind == analysis.ElementEnumValue:
			b.reg.Register(child.ID, c.NewEnumValue(info(child)))
		default:
			b.member(c, child)
		}
	}
}

// memberOwner is a container or an extension.
type memberOwner interface {
	model.Entity
	NewMember(kind model.MemberKind, info model.Info) *model.Member
	NewAccessor(property string) *model.Accessor
}

func (b *builder) member(owner memberOwner, el *analysis.Element) {
	switch el.Kind {
	case analysis.ElementParameter:
		return
	case analysis.ElementGetter, analysis.ElementSetter:
		acc := owner.NewAccessor(el.Property)
		part := model.AccessorPart{
			Name:      el.Name,
			Doc:       el.Doc,
			Location:  model.Location{File: el.File, Line: el.Line},
			Signature: el.Signature,
			Private:   el.Private,
		}
		if el.Kind == analysis.ElementGetter {
			acc.SetGetter(part)
		} else {
			acc.SetSetter(part)
		}
		b.reg.Register(el.ID, acc)
		return
	}
	if el.Kind.IsContainer() {
		return // types nested in an extension are not documented
	}
	m := owner.NewMember(memberKind(el.Kind, true), info(el))
	b.reg.Register(el.ID, m)
	b.params(m, el)
}

func (b *builder) params(m *model.Member, el *analysis.Element) {
	for _, c := range b.children(el) {
		if c.Kind == analysis.ElementParameter {
			b.reg.Register(c.ID, m.NewParameter(info(c)))
		}
	}
}

func (b *builder) linkSupers() {
	for _, el := range b.prog.Elements() {
		c, ok := b.containers[el.ID]
		if !ok {
			continue
		}
		for _, name := range el.Supers {
			name, _, _ = strings.Cut(name, "[")
			t, ok := b.prog.ResolveType(el.Owner, strings.Split(name, "."))
			if !ok || t.ID == el.ID {
				continue
			}
			if super, ok := b.containers[t.ID]; ok {
				c.AddSuper(super)
			}
		}
	}
}

func (b *builder) linkExtensions() {
	for _, el := range b.prog.Elements() {
		e, ok := b.extensions[el.ID]
		if !ok || el.Target == "" {
			continue
		}
		t, ok := b.prog.ResolveType(el.Owner, strings.Split(el.Target, "::"))
		if !ok {
			continue
		}
		if target, ok := b.containers[t.ID]; ok {
			e.SetTarget(target)
		}
	}
}

func info(el *analysis.Element) model.Info {
	return model.Info{
		Name:      el.Name,
		Doc:       el.Doc,
		Location:  model.Location{File: el.File, Line: el.Line},
		Private:   el.Private,
		Signature: el.Signature,
		Unnamed:   el.Unnamed,
	}
}

func containerKind(k analysis.ElementKind) model.ContainerKind {
	switch k {
	case analysis.ElementStruct:
		return model.Struct
	case analysis.ElementInterface:
		return model.Interface
	case analysis.ElementType:
		return model.TypeDef
	case analysis.ElementMixin:
		return model.Mixin
	case analysis.ElementEnum:
		return model.Enum
	default:
		return model.Class
	}
}

// memberKind maps an element kind to a member kind. Outside a container,
// methods and fields degrade to functions and variables.
func memberKind(k analysis.ElementKind, inContainer bool) model.MemberKind {
	switch k {
	case analysis.ElementConstructor:
		if inContainer {
			return model.Constructor
		}
		return model.Function
	case analysis.ElementMethod, analysis.ElementGetter, analysis.ElementSetter:
		if inContainer {
			return model.Method
		}
		return model.Function
	case analysis.ElementField:
		if inContainer {
			return model.Field
		}
		return model.Variable
	case analysis.ElementVariable:
		return model.Variable
	case analysis.ElementConstant, analysis.ElementEnumValue:
		return model.Constant
	default:
		return model.Function
	}
}

// Edge is one resolved reference between two entities.
type Edge struct {
	From, To model.Entity
}

// Dependency aggregates the references from one library to another.
type Dependency struct {
	Source  string
	Target  string
	Symbols []string
}

// BuildDependencies groups edges by source and target library. References
// within one library and references to the package root are dropped.
func BuildDependencies(edges []Edge) []Dependency {
	type edgeKey struct{ src, tgt string }
	edgeSymbols := make(map[edgeKey][]string)

	for _, e := range edges {
		src, ok := model.LibraryOf(e.From)
		if !ok {
			continue
		}
		tgt, ok := model.LibraryOf(e.To)
		if !ok || src == tgt {
			continue
		}
		key := edgeKey{src.Name(), tgt.Name()}
		sym := model.DisplayName(e.To)
		if !contains(edgeSymbols[key], sym) {
			edgeSymbols[key] = append(edgeSymbols[key], sym)
		}
	}

	deps := make([]Dependency, 0, len(edgeSymbols))
	for key, syms := range edgeSymbols {
		deps = append(deps, Dependency{
			Source:  key.src,
			Target:  key.tgt,
			Symbols: syms,
		})
	}

	// Sort for deterministic output
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Source != deps[j].Source {
			return deps[i].Source < deps[j].Source
		}
		return deps[i].Target < deps[j].Target
	})

	return deps
}

// Rank applies PageRank to the libraries of pkg, reorders them by rank
// descending (name ascending on ties) and returns the rank of each library by
// name.
func Rank(pkg *model.Package, deps []Dependency) map[string]float64 {
	libs := pkg.Libraries()
	if len(libs) == 0 {
		return nil
	}

	nodes := make(map[string]struct{}, len(libs))
	for _, l := range libs {
		nodes[l.Name()] = struct{}{}
	}

	var ranks map[string]float64
	if len(deps) == 0 {
		uniform := 1.0 / float64(len(nodes))
		ranks = make(map[string]float64, len(nodes))
		for n := range nodes {
			ranks[n] = uniform
		}
	} else {
		// Edge from source to target means source references target.
		outEdges := make(map[string][]string) // node → list of targets (with repeats for multi-edges)
		outDegree := make(map[string]int)     // total out-edges per node
		for _, d := range deps {
			if _, ok := nodes[d.Source]; !ok {
				continue
			}
			if _, ok := nodes[d.Target]; !ok {
				continue
			}
			// Each symbol is an edge
			for range d.Symbols {
				outEdges[d.Source] = append(outEdges[d.Source], d.Target)
				outDegree[d.Source]++
			}
		}
		ranks = pageRank(nodes, outEdges, outDegree, 0.85, 100, 1e-6)
	}

	sorted := append([]*model.Library(nil), libs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := ranks[sorted[i].Name()], ranks[sorted[j].Name()]
		if ri != rj {
			return ri > rj
		}
		return sorted[i].Name() < sorted[j].Name()
	})
	pkg.SortLibraries(sorted)
	return ranks
}

func pageRank(
	nodes map[string]struct{},
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)
	if n == 0 {
		return nil
	}

	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for node := range nodes {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for range maxIter {
		newRank := make(map[string]float64, n)

		// Dangling node contribution (nodes with no outgoing edges)
		var danglingSum float64
		for node := range nodes {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for node := range nodes {
			newRank[node] = teleport + danglingContrib
		}

		// Distribute rank through edges
		for src, targets := range outEdges {
			deg := float64(outDegree[src])
			contrib := alpha * rank[src] / deg
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		// Check convergence
		var diff float64
		for node := range nodes {
			diff += math.Abs(newRank[node] - rank[node])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
