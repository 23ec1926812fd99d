package model

// Info carries the declaration data shared by every entity constructor.
type Info struct {
	Name      string
	Doc       string
	Location  Location
	Private   bool
	Signature string

	// Unnamed marks a constructor referenced by its container's name.
	Unnamed bool
}

type node struct {
	info     Info
	owner    Entity
	scope    Scope
	children lazyIndex
}

func (n *node) ReferenceName() string { return n.info.Name }
func (n *node) Name() string          { return n.info.Name }
func (n *node) Doc() string           { return n.info.Doc }
func (n *node) Location() Location    { return n.info.Location }
func (n *node) Private() bool         { return n.info.Private }
func (n *node) Signature() string     { return n.info.Signature }

func (n *node) Owner() (Entity, bool) {
	return n.owner, n.owner != nil
}

func (n *node) QualifiedName() string {
	if n.owner == nil {
		return n.info.Name
	}
	if _, ok := n.owner.(*Package); ok {
		return n.info.Name
	}
	return n.owner.QualifiedName() + "." + n.info.Name
}

func (n *node) Scope() (Scope, bool) {
	return n.scope, n.scope != nil
}

// SetScope attaches the analysis scope. It must be called before the entity
// is first used for resolution.
func (n *node) SetScope(s Scope) { n.scope = s }

func (n *node) ReferenceGrandparentOverrides() ([]Referable, bool) { return nil, false }

func (n *node) ownerParents() []Referable {
	if n.owner == nil {
		return nil
	}
	return []Referable{n.owner}
}

func refs[T Referable](xs []T) []Referable {
	out := make([]Referable, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

// Package is the root of the entity graph for one documentation run.
type Package struct {
	node
	libraries []*Library
}

// NewPackage returns an empty package.
func NewPackage(name string) *Package {
	return &Package{node: node{info: Info{Name: name}}}
}

func (p *Package) Kind() Kind                    { return KindPackage }
func (p *Package) ReferenceParents() []Referable { return nil }

// Libraries returns the package's libraries in declaration order.
func (p *Package) Libraries() []*Library { return p.libraries }

// SortLibraries reorders libraries, e.g. by rank. Only Libraries and what
// iterates it see the new order: a package index already built by
// ReferenceChildren keeps the order the libraries were added in.
func (p *Package) SortLibraries(order []*Library) { p.libraries = order }

// Library returns the library with the given name.
func (p *Package) Library(name string) (*Library, bool) {
	for _, l := range p.libraries {
		if l.info.Name == name {
			return l, true
		}
	}
	return nil, false
}

func (p *Package) ReferenceChildren() *Index {
	return p.children.get(func() *Index {
		idx := NewIndex()
		idx.MergeIfAbsent(refs(p.libraries)...)
		for _, lib := range p.libraries {
			lc := lib.ReferenceChildren()
			entries := make([]Referable, 0, lc.Len())
			for _, k := range lc.Keys() {
				r, _ := lc.Get(k)
				entries = append(entries, r)
			}
			idx.MergeExplicitOnCollision(lib, entries...)
		}
		return idx
	})
}

// NewLibrary adds a library to p.
func (p *Package) NewLibrary(info Info) *Library {
	l := &Library{node: node{info: info, owner: p}}
	p.libraries = append(p.libraries, l)
	return l
}

// Library is a unit of import: a Go package, a Python module, a Ruby file.
type Library struct {
	node
	containers []*Container
	extensions []*Extension
	members    []*Member
}

func (l *Library) Kind() Kind { return KindLibrary }

func (l *Library) ReferenceParents() []Referable { return l.ownerParents() }

func (l *Library) Containers() []*Container { return l.containers }
func (l *Library) Extensions() []*Extension { return l.extensions }
func (l *Library) Members() []*Member       { return l.members }

func (l *Library) ReferenceChildren() *Index {
	return l.children.get(func() *Index {
		idx := NewIndex()
		idx.MergeIfAbsent(refs(l.containers)...)
		idx.MergeIfAbsent(refs(l.members)...)
		idx.MergeIfAbsent(refs(l.extensions)...)
		return idx
	})
}

func (l *Library) NewContainer(kind ContainerKind, info Info) *Container {
	c := &Container{node: node{info: info, owner: l}, kind: kind, library: l}
	l.containers = append(l.containers, c)
	return c
}

func (l *Library) NewExtension(info Info) *Extension {
	e := &Extension{node: node{info: info, owner: l}, library: l}
	l.extensions = append(l.extensions, e)
	return e
}

func (l *Library) NewMember(kind MemberKind, info Info) *Member {
	m := &Member{node: node{info: info, owner: l}, kind: kind}
	l.members = append(l.members, m)
	return m
}

// memberSet holds the members and accessors shared by containers and
// extensions.
type memberSet struct {
	members   []*Member
	accessors []*Accessor
}

func (s *memberSet) Members() []*Member     { return s.members }
func (s *memberSet) Accessors() []*Accessor { return s.accessors }

// Accessor returns the accessor for the named property.
func (s *memberSet) Accessor(property string) (*Accessor, bool) {
	for _, a := range s.accessors {
		if a.info.Name == property {
			return a, true
		}
	}
	return nil, false
}

func (s *memberSet) newMember(owner Entity, kind MemberKind, info Info) *Member {
	m := &Member{node: node{info: info, owner: owner}, kind: kind}
	s.members = append(s.members, m)
	return m
}

func (s *memberSet) newAccessor(owner Entity, property string) *Accessor {
	if a, ok := s.Accessor(property); ok {
		return a
	}
	a := &Accessor{node: node{info: Info{Name: property}, owner: owner}}
	s.accessors = append(s.accessors, a)
	return a
}

func (s *memberSet) addTo(idx *Index, skipPrivate bool) {
	for _, m := range s.members {
		if skipPrivate && m.info.Private {
			continue
		}
		idx.Add(m.info.Name, m)
	}
	for _, a := range s.accessors {
		if skipPrivate && a.Private() {
			continue
		}
		idx.Add(a.info.Name, a)
		if a.setter != nil && a.setter.Name != a.info.Name {
			idx.Add(a.setter.Name, a)
		}
	}
}

// Container is a class, struct, interface, mixin, enum or named type.
type Container struct {
	node
	memberSet
	kind       ContainerKind
	library    *Library
	values     []*EnumValue
	nested     []*Container
	supers     []*Container
	extensions []*Extension
}

func (c *Container) Kind() Kind                    { return KindContainer }
func (c *Container) ContainerKind() ContainerKind  { return c.kind }
func (c *Container) Library() *Library             { return c.library }
func (c *Container) ReferenceParents() []Referable { return c.ownerParents() }
func (c *Container) Values() []*EnumValue          { return c.values }
func (c *Container) Nested() []*Container          { return c.nested }
func (c *Container) Supers() []*Container          { return c.supers }
func (c *Container) Extensions() []*Extension      { return c.extensions }

// ReferenceChildren contains the container's own members first, then members
// inherited from supertypes, then members contributed by extensions.
func (c *Container) ReferenceChildren() *Index {
	return c.children.get(func() *Index {
		idx := NewIndex()
		for _, m := range c.members {
			if m.kind == Constructor && m.info.Unnamed {
				idx.Add(c.info.Name, m)
			}
		}
		c.memberSet.addTo(idx, false)
		idx.MergeIfAbsent(refs(c.values)...)
		idx.MergeIfAbsent(refs(c.nested)...)

		// Walk supertypes directly rather than through their indexes so that
		// a cycle in the supertype graph cannot re-enter a sync.Once.
		seen := map[*Container]bool{c: true}
		queue := append([]*Container(nil), c.supers...)
		for len(queue) > 0 {
			s := queue[0]
			queue = queue[1:]
			if seen[s] {
				continue
			}
			seen[s] = true
			for _, m := range s.members {
				if m.kind == Constructor || m.info.Private {
					continue
				}
				idx.Add(m.info.Name, m)
			}
			for _, a := range s.accessors {
				if !a.Private() {
					idx.Add(a.info.Name, a)
				}
			}
			queue = append(queue, s.supers...)
		}

		for _, e := range c.extensions {
			e.memberSet.addTo(idx, false)
		}
		return idx
	})
}

func (c *Container) NewContainer(kind ContainerKind, info Info) *Container {
	n := &Container{node: node{info: info, owner: c}, kind: kind, library: c.library}
	c.nested = append(c.nested, n)
	return n
}

func (c *Container) NewMember(kind MemberKind, info Info) *Member {
	return c.memberSet.newMember(c, kind, info)
}

// NewAccessor returns the accessor for property, creating it on first use.
func (c *Container) NewAccessor(property string) *Accessor {
	return c.memberSet.newAccessor(c, property)
}

func (c *Container) NewEnumValue(info Info) *EnumValue {
	v := &EnumValue{node: node{info: info, owner: c}}
	c.values = append(c.values, v)
	return v
}

// AddSuper records a supertype.
func (c *Container) AddSuper(s *Container) {
	for _, have := range c.supers {
		if have == s {
			return
		}
	}
	c.supers = append(c.supers, s)
}

// Extension adds members to a container declared elsewhere.
type Extension struct {
	node
	memberSet
	library *Library
	target  *Container
}

func (e *Extension) Kind() Kind                    { return KindExtension }
func (e *Extension) Library() *Library             { return e.library }
func (e *Extension) ReferenceParents() []Referable { return e.ownerParents() }

// Target returns the extended container when it is part of the package.
func (e *Extension) Target() (*Container, bool) {
	return e.target, e.target != nil
}

// SetTarget links e to the container it extends.
func (e *Extension) SetTarget(c *Container) {
	e.target = c
	c.extensions = append(c.extensions, e)
}

// ReferenceGrandparentOverrides sends a search that climbs out of an extension
// to the extended container before the declaring library.
func (e *Extension) ReferenceGrandparentOverrides() ([]Referable, bool) {
	if e.target == nil {
		return nil, false
	}
	return []Referable{e.target, e.library}, true
}

func (e *Extension) ReferenceChildren() *Index {
	return e.children.get(func() *Index {
		idx := NewIndex()
		e.memberSet.addTo(idx, false)
		return idx
	})
}

func (e *Extension) NewMember(kind MemberKind, info Info) *Member {
	return e.memberSet.newMember(e, kind, info)
}

func (e *Extension) NewAccessor(property string) *Accessor {
	return e.memberSet.newAccessor(e, property)
}

// Member is a function, method, constructor, field, variable or constant.
type Member struct {
	node
	kind   MemberKind
	params []*Parameter
}

func (m *Member) Kind() Kind                    { return KindMember }
func (m *Member) MemberKind() MemberKind        { return m.kind }
func (m *Member) Unnamed() bool                 { return m.info.Unnamed }
func (m *Member) Params() []*Parameter          { return m.params }
func (m *Member) ReferenceParents() []Referable { return m.ownerParents() }

func (m *Member) ReferenceChildren() *Index {
	return m.children.get(func() *Index {
		idx := NewIndex()
		idx.MergeIfAbsent(refs(m.params)...)
		return idx
	})
}

func (m *Member) NewParameter(info Info) *Parameter {
	p := &Parameter{node: node{info: info, owner: m}}
	m.params = append(m.params, p)
	return p
}

// AccessorPart is the getter or setter half of an accessor.
type AccessorPart struct {
	Name      string
	Doc       string
	Location  Location
	Signature string
	Private   bool
}

// Accessor is a getter and/or setter presented as one property.
type Accessor struct {
	node
	getter *AccessorPart
	setter *AccessorPart
}

func (a *Accessor) Kind() Kind                    { return KindAccessor }
func (a *Accessor) ReferenceParents() []Referable { return a.ownerParents() }
func (a *Accessor) ReferenceChildren() *Index     { return a.children.get(NewIndex) }

// Getter returns the getter half, if present.
func (a *Accessor) Getter() (AccessorPart, bool) {
	if a.getter == nil {
		return AccessorPart{}, false
	}
	return *a.getter, true
}

// Setter returns the setter half, if present.
func (a *Accessor) Setter() (AccessorPart, bool) {
	if a.setter == nil {
		return AccessorPart{}, false
	}
	return *a.setter, true
}

func (a *Accessor) SetGetter(p AccessorPart) { a.getter = &p }
func (a *Accessor) SetSetter(p AccessorPart) { a.setter = &p }

func (a *Accessor) primary() *AccessorPart {
	if a.getter != nil {
		return a.getter
	}
	return a.setter
}

func (a *Accessor) Doc() string {
	if a.getter != nil && a.getter.Doc != "" {
		return a.getter.Doc
	}
	if a.setter != nil {
		return a.setter.Doc
	}
	return ""
}

func (a *Accessor) Location() Location {
	if p := a.primary(); p != nil {
		return p.Location
	}
	return Location{}
}

func (a *Accessor) Signature() string {
	if p := a.primary(); p != nil {
		return p.Signature
	}
	return ""
}

// Private reports whether every present half is private.
func (a *Accessor) Private() bool {
	if a.getter != nil && !a.getter.Private {
		return false
	}
	if a.setter != nil && !a.setter.Private {
		return false
	}
	return a.getter != nil || a.setter != nil
}

// EnumValue is one value of an enum container.
type EnumValue struct {
	node
}

func (v *EnumValue) Kind() Kind                    { return KindEnumValue }
func (v *EnumValue) ReferenceParents() []Referable { return v.ownerParents() }
func (v *EnumValue) ReferenceChildren() *Index     { return v.children.get(NewIndex) }

// Parameter is a parameter of a callable member.
type Parameter struct {
	node
}

func (p *Parameter) Kind() Kind                    { return KindParameter }
func (p *Parameter) ReferenceParents() []Referable { return p.ownerParents() }
func (p *Parameter) ReferenceChildren() *Index     { return p.children.get(NewIndex) }
