package model

import "github.com/phobologic/refdoc/internal/analysis"

// Walk calls fn for every library, container, extension, member, accessor and
// enum value of p in document order. Parameters are not visited.
func Walk(p *Package, fn func(Entity)) {
	for _, lib := range p.libraries {
		fn(lib)
		for _, c := range lib.containers {
			walkContainer(c, fn)
		}
		for _, m := range lib.members {
			fn(m)
		}
		for _, e := range lib.extensions {
			fn(e)
			walkMembers(&e.memberSet, fn)
		}
	}
}

func walkContainer(c *Container, fn func(Entity)) {
	fn(c)
	walkMembers(&c.memberSet, fn)
	for _, v := range c.values {
		fn(v)
	}
	for _, n := range c.nested {
		walkContainer(n, fn)
	}
}

func walkMembers(s *memberSet, fn func(Entity)) {
	for _, m := range s.members {
		fn(m)
	}
	for _, a := range s.accessors {
		fn(a)
	}
}

// Find returns the entity of p with the given qualified name.
func Find(p *Package, qualified string) (Entity, bool) {
	if qualified == p.Name() {
		return p, true
	}
	var found Entity
	Walk(p, func(e Entity) {
		if found == nil && e.QualifiedName() == qualified {
			found = e
		}
	})
	return found, found != nil
}

// Registry maps analysis elements to the entities built for them. It is the
// per-run context the scope adapter materialises lookups through.
type Registry struct {
	entities map[analysis.ElementID]Entity
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[analysis.ElementID]Entity)}
}

// Register records e as the entity for id. The first registration wins.
func (r *Registry) Register(id analysis.ElementID, e Entity) {
	if _, ok := r.entities[id]; ok {
		return
	}
	r.entities[id] = e
}

// Entity returns the entity registered for id.
func (r *Registry) Entity(id analysis.ElementID) (Entity, bool) {
	if r == nil {
		return nil, false
	}
	e, ok := r.entities[id]
	return e, ok
}

// Len returns the number of registered elements.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entities)
}
