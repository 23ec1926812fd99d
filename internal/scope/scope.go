// Package scope adapts analysis scopes to the model.Scope interface used by
// reference resolution.
package scope

import (
	"errors"
	"fmt"

	"github.com/phobologic/refdoc/internal/analysis"
	"github.com/phobologic/refdoc/internal/model"
)

// ErrUnsupportedScope is wrapped by an InconsistencyError when an accessor is
// found in a scope whose owner cannot hold accessors.
var ErrUnsupportedScope = errors.New("unsupported accessor scope")

// InconsistencyError reports an entity graph that disagrees with the analysis
// model. It is raised with panic: it marks a defect in refdoc, not in the
// documented sources.
type InconsistencyError struct {
	Op   string
	Name string
	Err  error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Name, e.Err)
}

func (e *InconsistencyError) Unwrap() error { return e.Err }

// Adapter looks names up in one analysis scope and materialises the bound
// elements as entities.
type Adapter struct {
	scope    *analysis.Scope
	prog     *analysis.Program
	registry *model.Registry
}

// New returns an adapter over s.
func New(s *analysis.Scope, prog *analysis.Program, registry *model.Registry) *Adapter {
	return &Adapter{scope: s, prog: prog, registry: registry}
}

// Lookup returns the entity bound to name. Names bound to elements without an
// entity, such as locals, are absent.
func (a *Adapter) Lookup(name string) (model.Referable, bool) {
	b, ok := a.scope.Lookup(name)
	if !ok {
		return nil, false
	}
	if b.IsAccessor() {
		acc, ok := Fuse(a.prog, a.registry, name, b.Getter, b.Setter)
		if !ok {
			return nil, false
		}
		return acc, true
	}
	e, ok := a.registry.Entity(b.Element)
	if !ok {
		return nil, false
	}
	return e, true
}

// accessorOwner is implemented by entities that hold accessors.
type accessorOwner interface {
	Accessor(property string) (*model.Accessor, bool)
}

// Fuse returns the single accessor entity for a getter and/or setter pair. The
// getter decides the owner when both are present. Fuse panics with an
// *InconsistencyError when the owner is not a container or extension.
func Fuse(prog *analysis.Program, registry *model.Registry, name string, getter, setter analysis.ElementID) (*model.Accessor, bool) {
	id := getter
	if !id.IsValid() {
		id = setter
	}
	el, ok := prog.Element(id)
	if !ok {
		return nil, false
	}
	owner, ok := registry.Entity(el.Owner)
	if !ok {
		panic(&InconsistencyError{Op: "fuse accessor", Name: name, Err: fmt.Errorf("owner of %s is not registered: %w", el.Kind, ErrUnsupportedScope)})
	}
	holder, ok := owner.(accessorOwner)
	if !ok {
		panic(&InconsistencyError{Op: "fuse accessor", Name: name, Err: fmt.Errorf("owner %s is a %s: %w", owner.QualifiedName(), owner.Kind(), ErrUnsupportedScope)})
	}
	property := el.Property
	if property == "" {
		property = name
	}
	return holder.Accessor(property)
}
