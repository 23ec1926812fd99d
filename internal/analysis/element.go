// Package analysis holds the raw symbol model produced by the language front
// ends: per-file declaration units, linked program elements, and the name
// scopes libraries and containers expose to reference resolution.
package analysis

// ElementID identifies an element inside a Program. The zero value is invalid.
type ElementID int32

// NoElement is the invalid element ID.
const NoElement ElementID = 0

// IsValid reports whether id refers to an element.
func (id ElementID) IsValid() bool { return id > 0 }

// ElementKind classifies a declared element.
type ElementKind uint8

const (
	ElementInvalid ElementKind = iota
	ElementLibrary
	ElementClass
	ElementStruct
	ElementInterface
	ElementType
	ElementMixin
	ElementEnum
	ElementExtension
	ElementFunction
	ElementMethod
	ElementConstructor
	ElementField
	ElementVariable
	ElementConstant
	ElementGetter
	ElementSetter
	ElementEnumValue
	ElementParameter
)

var elementKindNames = [...]string{
	ElementInvalid:     "invalid",
	ElementLibrary:     "library",
	ElementClass:       "class",
	ElementStruct:      "struct",
	ElementInterface:   "interface",
	ElementType:        "type",
	ElementMixin:       "mixin",
	ElementEnum:        "enum",
	ElementExtension:   "extension",
	ElementFunction:    "function",
	ElementMethod:      "method",
	ElementConstructor: "constructor",
	ElementField:       "field",
	ElementVariable:    "variable",
	ElementConstant:    "constant",
	ElementGetter:      "getter",
	ElementSetter:      "setter",
	ElementEnumValue:   "enum value",
	ElementParameter:   "parameter",
}

func (k ElementKind) String() string {
	if int(k) < len(elementKindNames) {
		return elementKindNames[k]
	}
	return "invalid"
}

// IsContainer reports whether elements of this kind own a member scope.
func (k ElementKind) IsContainer() bool {
	switch k {
	case ElementClass, ElementStruct, ElementInterface, ElementType, ElementMixin, ElementEnum:
		return true
	}
	return false
}

// IsAccessor reports whether the kind is one half of a getter/setter pair.
func (k ElementKind) IsAccessor() bool {
	return k == ElementGetter || k == ElementSetter
}

// Element is a linked declaration.
type Element struct {
	ID        ElementID
	Kind      ElementKind
	Name      string
	Doc       string
	Language  string
	File      string
	Line      int
	Signature string
	Result    string
	Private   bool

	// Unnamed marks a constructor that is referenced by its container's name
	// (Python __init__, Ruby initialize).
	Unnamed bool

	// Property is the logical accessor name for getters and setters.
	Property string

	// Supers lists supertype names as written in source.
	Supers []string

	// Target is the extended type name for extensions.
	Target string

	Owner    ElementID
	Library  ElementID
	Children []ElementID

	// Scope is set for libraries and containers.
	Scope *Scope
}

// Binding is the result of a scope lookup. Either Element is set, or one or
// both of Getter and Setter are.
type Binding struct {
	Element ElementID
	Getter  ElementID
	Setter  ElementID
}

// IsAccessor reports whether the binding names a getter/setter pair.
func (b Binding) IsAccessor() bool {
	return b.Getter.IsValid() || b.Setter.IsValid()
}

// Scope maps names visible inside a library or container to bindings.
type Scope struct {
	Owner ElementID
	names map[string]Binding
	order []string
}

// NewScope returns an empty scope owned by owner.
func NewScope(owner ElementID) *Scope {
	return &Scope{Owner: owner, names: make(map[string]Binding)}
}

// Lookup returns the binding for name.
func (s *Scope) Lookup(name string) (Binding, bool) {
	if s == nil {
		return Binding{}, false
	}
	b, ok := s.names[name]
	return b, ok
}

// Names returns bound names in insertion order.
func (s *Scope) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Bind installs an element binding unless name is already bound.
func (s *Scope) Bind(name string, id ElementID) bool {
	if _, ok := s.names[name]; ok {
		return false
	}
	s.names[name] = Binding{Element: id}
	s.order = append(s.order, name)
	return true
}

// BindAccessor adds a getter or setter to the binding for name. A getter or
// setter never replaces a plain element binding.
func (s *Scope) BindAccessor(name string, id ElementID, kind ElementKind) {
	if !kind.IsAccessor() {
		return
	}
	b, ok := s.names[name]
	if ok && b.Element.IsValid() {
		return
	}
	if !ok {
		s.order = append(s.order, name)
	}
	if kind == ElementGetter {
		if !b.Getter.IsValid() {
			b.Getter = id
		}
	} else if !b.Setter.IsValid() {
		b.Setter = id
	}
	s.names[name] = b
}
