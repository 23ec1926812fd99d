// Package resolve finds the entity a doc-comment reference denotes.
//
// A reference such as "Foo.bar" is resolved against an origin entity: first
// its own scope and reference children, then its reference parents, then
// theirs. Because "." may separate names or be part of one name (a library
// "net.http"), every split point is tried, shortest first prefix first.
package resolve

import (
	"strings"

	"github.com/phobologic/refdoc/internal/model"
)

// Lookup configures ReferenceBy. The zero value searches parents and accepts
// every entity.
type Lookup struct {
	// NoParents restricts the search to the origin itself.
	NoParents bool

	// Filter rejects entities that cannot be the final target. Nil accepts
	// everything.
	Filter func(model.Referable) bool

	// AllowTree rejects entities that a multi-segment reference may not
	// descend through. Nil allows everything.
	AllowTree func(model.Referable) bool

	// Parents replaces the origin's reference parents. Nil means the origin's
	// own parents; an empty non-nil slice means none.
	Parents []model.Referable
}

func always(model.Referable) bool { return true }

// ReferenceBy resolves reference, already split into components, from
// origin. The boolean is false when nothing matches; an unresolved reference
// is not an error.
func ReferenceBy(origin model.Referable, reference []string, opts Lookup) (model.Referable, bool) {
	r := &resolver{
		filter:    opts.Filter,
		allowTree: opts.AllowTree,
		visited:   make(map[visitKey]bool),
	}
	if r.filter == nil {
		r.filter = always
	}
	if r.allowTree == nil {
		r.allowTree = always
	}
	return r.referenceBy(origin, reference, !opts.NoParents, opts.Parents, opts.Parents != nil)
}

// visitKey omits the parents a search was given. An origin searched with
// override parents and later reached as some entity's parent is not searched
// again; that only differs when the parent graph has a cycle.
type visitKey struct {
	entity     model.Referable
	reference  string
	tryParents bool
}

type resolver struct {
	filter    func(model.Referable) bool
	allowTree func(model.Referable) bool
	visited   map[visitKey]bool
}

func (r *resolver) referenceBy(origin model.Referable, reference []string, tryParents bool, parents []model.Referable, parentsSet bool) (model.Referable, bool) {
	if len(reference) == 0 {
		if !tryParents {
			return origin, true
		}
		return nil, false
	}

	// A search that returns here would only repeat a failure: any success
	// ends the whole call.
	key := visitKey{entity: origin, reference: strings.Join(reference, "\x00"), tryParents: tryParents}
	if r.visited[key] {
		return nil, false
	}
	r.visited[key] = true

	for _, c := range candidates(reference) {
		if s, ok := origin.Scope(); ok {
			if result, ok := s.Lookup(c.lookup); ok {
				if found, ok := r.descend(result, c); ok {
					return found, true
				}
			}
		}
		if result, ok := origin.ReferenceChildren().Get(c.lookup); ok {
			if found, ok := r.descend(result, c); ok {
				return found, true
			}
		}
	}

	if !tryParents {
		return nil, false
	}
	if !parentsSet {
		parents = origin.ReferenceParents()
	}
	for _, p := range parents {
		grandparents, ok := p.ReferenceGrandparentOverrides()
		if !ok {
			grandparents = p.ReferenceParents()
		}
		if found, ok := r.referenceBy(p, reference, true, grandparents, true); ok {
			return found, true
		}
	}
	return nil, false
}

// descend finishes a candidate whose first segment matched result.
func (r *resolver) descend(result model.Referable, c candidate) (model.Referable, bool) {
	var ok bool
	switch {
	case len(c.remaining) > 0:
		if !r.allowTree(result) {
			return nil, false
		}
		if result, ok = r.referenceBy(result, c.remaining, false, nil, false); !ok {
			return nil, false
		}
	case !r.filter(result):
		// The hit may still name something filtered-in below itself, such
		// as a constructor keyed by its class name.
		if result, ok = r.referenceBy(result, []string{c.lookup}, false, nil, false); !ok {
			return nil, false
		}
	}
	if !r.filter(result) {
		return nil, false
	}
	return result, true
}
