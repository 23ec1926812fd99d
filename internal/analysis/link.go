package analysis

import (
	"path"
	"strings"
)

// Program is the linked element set for one documentation run. It is built
// once by Link and read-only afterwards.
type Program struct {
	elements   []*Element
	libraries  []ElementID
	byName     map[string]ElementID
	childNames map[ElementID]map[string]ElementID
}

func newProgram() *Program {
	return &Program{
		byName:     make(map[string]ElementID),
		childNames: make(map[ElementID]map[string]ElementID),
	}
}

// Element returns the element with the given ID.
func (p *Program) Element(id ElementID) (*Element, bool) {
	if !id.IsValid() || int(id) > len(p.elements) {
		return nil, false
	}
	return p.elements[id-1], true
}

// Elements returns all elements in declaration order.
func (p *Program) Elements() []*Element {
	return p.elements
}

// Libraries returns library element IDs in the order they were first seen.
func (p *Program) Libraries() []ElementID {
	return p.libraries
}

// Library returns the library with the given name.
func (p *Program) Library(name string) (*Element, bool) {
	id, ok := p.byName[name]
	if !ok {
		return nil, false
	}
	return p.Element(id)
}

// Child returns the first non-parameter child of owner named name.
func (p *Program) Child(owner ElementID, name string) (*Element, bool) {
	id, ok := p.childNames[owner][name]
	if !ok {
		return nil, false
	}
	return p.Element(id)
}

// ResolveType finds the container a dotted type path denotes, as seen from
// the library or container from. Lexically enclosing scopes are searched
// first, then dotted library names, then top-level containers of any library.
func (p *Program) ResolveType(from ElementID, parts []string) (*Element, bool) {
	if len(parts) == 0 {
		return nil, false
	}
	for cur := from; cur.IsValid(); {
		e, ok := p.Element(cur)
		if !ok {
			break
		}
		if b, ok := e.Scope.Lookup(parts[0]); ok && b.Element.IsValid() {
			if t, ok := p.descendType(b.Element, parts[1:]); ok {
				return t, true
			}
		}
		if e.Kind == ElementLibrary {
			break
		}
		cur = e.Owner
	}
	for i := len(parts) - 1; i >= 1; i-- {
		if lib, ok := p.byName[strings.Join(parts[:i], ".")]; ok {
			if t, ok := p.descendType(lib, parts[i:]); ok {
				return t, true
			}
		}
	}
	for _, lib := range p.libraries {
		if c, ok := p.Child(lib, parts[0]); ok {
			if t, ok := p.descendType(c.ID, parts[1:]); ok {
				return t, true
			}
		}
	}
	return nil, false
}

func (p *Program) descendType(id ElementID, rest []string) (*Element, bool) {
	for _, name := range rest {
		c, ok := p.Child(id, name)
		if !ok {
			return nil, false
		}
		id = c.ID
	}
	e, ok := p.Element(id)
	if !ok || !e.Kind.IsContainer() {
		return nil, false
	}
	return e, true
}

type pendingDecl struct {
	lib  ElementID
	unit *Unit
	decl Decl
}

type libraryImports struct {
	lib     ElementID
	pkgInit bool
	imports []Import
}

type linker struct {
	p           *Program
	pending     []pendingDecl
	imports     []libraryImports
	rubyClasses map[string]ElementID
}

// Link merges parsed units into a Program. Units sharing a library name form
// one library. Go methods, typed constants and constructors are attached to
// their types after all units are read, so declaration order across files
// does not matter.
func Link(units []Unit) *Program {
	l := &linker{p: newProgram(), rubyClasses: make(map[string]ElementID)}
	for i := range units {
		l.addUnit(&units[i])
	}
	l.attachPending()
	l.pairGoAccessors()
	l.buildScopes()
	return l.p
}

func (l *linker) newElement(e Element) *Element {
	e.ID = ElementID(len(l.p.elements) + 1)
	el := &e
	l.p.elements = append(l.p.elements, el)
	if owner, ok := l.p.Element(e.Owner); ok {
		owner.Children = append(owner.Children, e.ID)
		if e.Kind != ElementParameter {
			names := l.p.childNames[owner.ID]
			if names == nil {
				names = make(map[string]ElementID)
				l.p.childNames[owner.ID] = names
			}
			if _, dup := names[e.Name]; !dup {
				names[e.Name] = e.ID
			}
		}
	}
	return el
}

func (l *linker) library(u *Unit) *Element {
	if id, ok := l.p.byName[u.Library]; ok {
		lib, _ := l.p.Element(id)
		if lib.Doc == "" {
			lib.Doc = u.Doc
		}
		return lib
	}
	lib := l.newElement(Element{
		Kind:     ElementLibrary,
		Name:     u.Library,
		Doc:      u.Doc,
		Language: u.Language,
		File:     u.Path,
		Line:     1,
	})
	lib.Library = lib.ID
	l.p.byName[u.Library] = lib.ID
	l.p.libraries = append(l.p.libraries, lib.ID)
	return lib
}

func (l *linker) addUnit(u *Unit) {
	lib := l.library(u)
	for _, d := range u.Decls {
		if d.Receiver != "" {
			l.pending = append(l.pending, pendingDecl{lib: lib.ID, unit: u, decl: d})
			continue
		}
		l.declare(lib.ID, lib.ID, u, d)
	}
	if len(u.Imports) > 0 {
		l.imports = append(l.imports, libraryImports{
			lib:     lib.ID,
			pkgInit: path.Base(u.Path) == "__init__.py",
			imports: u.Imports,
		})
	}
}

func (l *linker) declare(lib, owner ElementID, u *Unit, d Decl) {
	var rubyKey string
	if d.Kind.IsContainer() && u.Language == "ruby" {
		rubyKey = d.Name
		if d.Namespace != "" {
			rubyKey = d.Namespace + "::" + d.Name
		}
		if prev, ok := l.rubyClasses[rubyKey]; ok {
			l.reopen(lib, prev, rubyKey, u, d)
			return
		}
	}

	var target string
	if d.Kind == ElementExtension {
		target = d.Name
		if d.Namespace != "" {
			target = d.Namespace + "::" + d.Name
		}
	}

	e := l.newElement(Element{
		Kind:      d.Kind,
		Name:      d.Name,
		Doc:       d.Doc,
		Language:  u.Language,
		File:      u.Path,
		Line:      d.Line,
		Signature: d.Signature,
		Result:    d.Result,
		Private:   d.Private,
		Unnamed:   d.Unnamed,
		Property:  d.Property,
		Supers:    d.Supers,
		Target:    target,
		Owner:     owner,
		Library:   lib,
	})
	if rubyKey != "" {
		l.rubyClasses[rubyKey] = e.ID
	}
	for _, c := range d.Children {
		l.declare(lib, e.ID, u, c)
	}
}

// reopen handles a Ruby class or module declared again. Inside the library
// that first declared it the bodies merge; anywhere else the reopening becomes
// an extension of the original.
func (l *linker) reopen(lib, prev ElementID, key string, u *Unit, d Decl) {
	existing, _ := l.p.Element(prev)
	if existing.Library == lib {
		for _, c := range d.Children {
			l.declare(lib, existing.ID, u, c)
		}
		existing.Supers = append(existing.Supers, d.Supers...)
		if existing.Doc == "" {
			existing.Doc = d.Doc
		}
		return
	}
	ext := l.newElement(Element{
		Kind:     ElementExtension,
		Name:     d.Name,
		Doc:      d.Doc,
		Language: u.Language,
		File:     u.Path,
		Line:     d.Line,
		Target:   key,
		Owner:    lib,
		Library:  lib,
	})
	for _, c := range d.Children {
		l.declare(lib, ext.ID, u, c)
	}
}

// attachPending places Go declarations that name a receiver type.
func (l *linker) attachPending() {
	for _, pd := range l.pending {
		d := pd.decl
		target, ok := l.p.Child(pd.lib, d.Receiver)
		if ok && !target.Kind.IsContainer() {
			ok = false
		}
		switch d.Kind {
		case ElementMethod:
			if !ok {
				d.Kind = ElementFunction
				l.declare(pd.lib, pd.lib, pd.unit, d)
				continue
			}
			l.declare(pd.lib, target.ID, pd.unit, d)
		case ElementEnumValue:
			if !ok {
				d.Kind = ElementConstant
				l.declare(pd.lib, pd.lib, pd.unit, d)
				continue
			}
			if target.Kind == ElementType {
				target.Kind = ElementEnum
			}
			l.declare(pd.lib, target.ID, pd.unit, d)
		case ElementFunction:
			if ok && strings.HasPrefix(d.Name, "New") {
				d.Kind = ElementConstructor
				d.Unnamed = d.Name == "New"+target.Name
				l.declare(pd.lib, target.ID, pd.unit, d)
				continue
			}
			l.declare(pd.lib, pd.lib, pd.unit, d)
		default:
			l.declare(pd.lib, pd.lib, pd.unit, d)
		}
	}
	l.pending = nil
}

// pairGoAccessors turns a Go getter X() T and setter SetX(T) on the same type
// into one getter/setter pair. The setter keeps its own name as well.
func (l *linker) pairGoAccessors() {
	for _, e := range l.p.elements {
		if e.Language != "go" || !e.Kind.IsContainer() {
			continue
		}
		for _, id := range e.Children {
			getter, _ := l.p.Element(id)
			if getter.Kind != ElementMethod || getter.Result == "" || l.paramCount(getter) != 0 {
				continue
			}
			setter, ok := l.p.Child(e.ID, "Set"+getter.Name)
			if !ok || setter.Kind != ElementMethod || setter.Result != "" || l.paramCount(setter) != 1 {
				continue
			}
			getter.Kind = ElementGetter
			getter.Property = getter.Name
			setter.Kind = ElementSetter
			setter.Property = getter.Name
		}
	}
}

func (l *linker) paramCount(e *Element) int {
	n := 0
	for _, id := range e.Children {
		if c, ok := l.p.Element(id); ok && c.Kind == ElementParameter {
			n++
		}
	}
	return n
}

func (l *linker) buildScopes() {
	for _, e := range l.p.elements {
		if e.Kind != ElementLibrary && e.Kind != ElementExtension && !e.Kind.IsContainer() {
			continue
		}
		e.Scope = NewScope(e.ID)
		for _, id := range e.Children {
			c, _ := l.p.Element(id)
			bindChild(e.Scope, c)
		}
	}
	// Go constructors live under the type they return but keep their
	// package-level name.
	for _, e := range l.p.elements {
		if e.Language != "go" || e.Kind != ElementConstructor {
			continue
		}
		if lib, ok := l.p.Element(e.Library); ok {
			lib.Scope.Bind(e.Name, e.ID)
		}
	}
	for _, li := range l.imports {
		lib, _ := l.p.Element(li.lib)
		for _, imp := range li.imports {
			if id, ok := l.resolveImport(lib.Name, li.pkgInit, imp); ok {
				lib.Scope.Bind(imp.Name, id)
			}
		}
	}
}

func bindChild(s *Scope, c *Element) {
	switch c.Kind {
	case ElementParameter:
	case ElementGetter, ElementSetter:
		s.BindAccessor(c.Property, c.ID, c.Kind)
		if c.Name != c.Property {
			s.Bind(c.Name, c.ID)
		}
	default:
		s.Bind(c.Name, c.ID)
	}
}

func (l *linker) resolveImport(from string, pkgInit bool, imp Import) (ElementID, bool) {
	target := imp.Path
	if strings.HasPrefix(target, ".") {
		target = relativeModule(from, pkgInit, target)
	}
	lib, ok := l.p.byName[target]
	if imp.Symbol == "" {
		return lib, ok
	}
	if ok {
		if c, found := l.p.Child(lib, imp.Symbol); found {
			return c.ID, true
		}
	}
	sub, ok := l.p.byName[target+"."+imp.Symbol]
	return sub, ok
}

// relativeModule resolves a Python relative module reference such as "..x"
// against the importing module.
func relativeModule(from string, pkgInit bool, rel string) string {
	dots := len(rel) - len(strings.TrimLeft(rel, "."))
	rest := rel[dots:]
	parts := strings.Split(from, ".")
	if !pkgInit {
		parts = parts[:len(parts)-1]
	}
	up := dots - 1
	if up > len(parts) {
		up = len(parts)
	}
	parts = parts[:len(parts)-up]
	if rest != "" {
		parts = append(parts, rest)
	}
	return strings.Join(parts, ".")
}
