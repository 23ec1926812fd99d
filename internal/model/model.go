// Package model defines the documented entity graph for refdoc: the entities
// a doc comment can link to and the capability interface reference resolution
// walks.
package model

// Kind is the closed set of entity kinds.
type Kind uint8

const (
	KindPackage Kind = iota
	KindLibrary
	KindContainer
	KindExtension
	KindMember
	KindAccessor
	KindEnumValue
	KindParameter
)

func (k Kind) String() string {
	switch k {
	case KindPackage:
		return "package"
	case KindLibrary:
		return "library"
	case KindContainer:
		return "container"
	case KindExtension:
		return "extension"
	case KindMember:
		return "member"
	case KindAccessor:
		return "accessor"
	case KindEnumValue:
		return "enum value"
	case KindParameter:
		return "parameter"
	default:
		return "unknown"
	}
}

// ContainerKind refines KindContainer.
type ContainerKind string

const (
	Class     ContainerKind = "class"
	Struct    ContainerKind = "struct"
	Interface ContainerKind = "interface"
	TypeDef   ContainerKind = "type"
	Mixin     ContainerKind = "mixin"
	Enum      ContainerKind = "enum"
)

// MemberKind refines KindMember.
type MemberKind string

const (
	Function    MemberKind = "function"
	Method      MemberKind = "method"
	Constructor MemberKind = "constructor"
	Field       MemberKind = "field"
	Variable    MemberKind = "variable"
	Constant    MemberKind = "constant"
)

// Callable reports whether members of this kind can be invoked.
func (k MemberKind) Callable() bool {
	return k == Function || k == Method || k == Constructor
}

// Scope is a name lookup backed by the analysis front end.
type Scope interface {
	Lookup(name string) (Referable, bool)
}

// Referable is the capability reference resolution needs from an entity.
type Referable interface {
	// ReferenceName is the key the entity is found under in its parent's
	// reference children.
	ReferenceName() string
	Kind() Kind
	// ReferenceChildren are the entities reachable one segment below this
	// one. The index is computed once and shared.
	ReferenceChildren() *Index
	// ReferenceParents are searched, in order, when a lookup fails here.
	ReferenceParents() []Referable
	// ReferenceGrandparentOverrides replaces this entity's parents when it is
	// itself reached as a parent during fallback.
	ReferenceGrandparentOverrides() ([]Referable, bool)
	// Scope is the analysis scope, when the entity has one.
	Scope() (Scope, bool)
}

// Location is a source position.
type Location struct {
	File string
	Line int
}

// Entity is a documented, renderable Referable.
type Entity interface {
	Referable
	Name() string
	Doc() string
	Location() Location
	Owner() (Entity, bool)
	QualifiedName() string
	Private() bool
}

// LibraryOf returns the library e is declared in. A library is its own
// library.
func LibraryOf(e Entity) (*Library, bool) {
	for cur := e; cur != nil; {
		if lib, ok := cur.(*Library); ok {
			return lib, true
		}
		owner, ok := cur.Owner()
		if !ok {
			return nil, false
		}
		cur = owner
	}
	return nil, false
}

// DisplayName is the name a link to e shows: the library name for libraries,
// otherwise the path below the library.
func DisplayName(e Entity) string {
	lib, ok := LibraryOf(e)
	if !ok || Entity(lib) == e {
		return e.Name()
	}
	q := e.QualifiedName()
	if prefix := lib.QualifiedName() + "."; len(q) > len(prefix) && q[:len(prefix)] == prefix {
		return q[len(prefix):]
	}
	return q
}

// Label is the human-readable kind of e: the container or member sub-kind
// where there is one.
func Label(e Referable) string {
	switch t := e.(type) {
	case *Container:
		return string(t.ContainerKind())
	case *Member:
		return string(t.MemberKind())
	case *Accessor:
		_, g := t.Getter()
		_, s := t.Setter()
		switch {
		case g && s:
			return "property"
		case g:
			return "getter"
		default:
			return "setter"
		}
	}
	return e.Kind().String()
}
