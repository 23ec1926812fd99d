package model

import "sync"

// Index is an insertion-ordered map from short names to entities.
type Index struct {
	keys    []string
	entries map[string]Referable
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[string]Referable)}
}

// Get returns the entity stored under name.
func (x *Index) Get(name string) (Referable, bool) {
	if x == nil {
		return nil, false
	}
	r, ok := x.entries[name]
	return r, ok
}

// Len returns the number of keys.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.keys)
}

// Keys returns the keys in insertion order.
func (x *Index) Keys() []string {
	if x == nil {
		return nil
	}
	out := make([]string, len(x.keys))
	copy(out, x.keys)
	return out
}

// Add stores r under name unless name is already present. It reports whether
// r was stored.
func (x *Index) Add(name string, r Referable) bool {
	if _, ok := x.entries[name]; ok {
		return false
	}
	x.entries[name] = r
	x.keys = append(x.keys, name)
	return true
}

// MergeIfAbsent adds each entry under its reference name. Keys already
// present keep their first writer.
func (x *Index) MergeIfAbsent(entries ...Referable) {
	for _, r := range entries {
		x.Add(r.ReferenceName(), r)
	}
}

// MergeIndexIfAbsent copies other's keys, which may be aliases, without
// replacing existing ones.
func (x *Index) MergeIndexIfAbsent(other *Index) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		x.Add(k, other.entries[k])
	}
}

// MergeExplicitOnCollision adds entries like MergeIfAbsent, except that an
// entry whose name collides with primary is stored as "<primary>.<name>" so
// that both stay reachable.
func (x *Index) MergeExplicitOnCollision(primary Referable, entries ...Referable) {
	for _, r := range entries {
		name := r.ReferenceName()
		if name == primary.ReferenceName() {
			name = primary.ReferenceName() + "." + name
		}
		x.Add(name, r)
	}
}

// lazyIndex computes an entity's reference children once. The build function
// must only read state that is frozen before the first call.
type lazyIndex struct {
	once sync.Once
	idx  *Index
}

func (l *lazyIndex) get(build func() *Index) *Index {
	l.once.Do(func() {
		l.idx = build()
	})
	return l.idx
}
