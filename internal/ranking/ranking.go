// Package ranking orders and trims the libraries of a site by PageRank.
package ranking

import (
	"sort"
	"strings"

	"github.com/phobologic/refdoc/internal/graph"
	"github.com/phobologic/refdoc/internal/model"
	"github.com/phobologic/refdoc/internal/site"
)

// Selection is a view of a site and the library dependencies between its
// pages.
type Selection struct {
	Site         *site.Site
	Dependencies []graph.Dependency
}

// SelectLibraries orders the pages of s by rank, highest first, and keeps the
// top maxLibraries. If maxLibraries is <= 0 every page is kept. Only
// dependencies between kept libraries survive.
func SelectLibraries(s *site.Site, ranks map[string]float64, deps []graph.Dependency, maxLibraries int) Selection {
	pages := append([]*site.Page(nil), s.Pages...)
	sort.SliceStable(pages, func(i, j int) bool {
		ri, rj := ranks[pages[i].Library.Name()], ranks[pages[j].Library.Name()]
		if ri != rj {
			return ri > rj
		}
		return pages[i].Library.Name() < pages[j].Library.Name()
	})
	if maxLibraries > 0 && maxLibraries < len(pages) {
		pages = pages[:maxLibraries]
	}

	selected := make(map[*model.Library]int, len(pages))
	names := make(map[string]struct{}, len(pages))
	for i, p := range pages {
		selected[p.Library] = i
		names[p.Library.Name()] = struct{}{}
	}
	out := s.Select(func(l *model.Library) bool {
		_, ok := selected[l]
		return ok
	})
	sort.Slice(out.Pages, func(i, j int) bool {
		return selected[out.Pages[i].Library] < selected[out.Pages[j].Library]
	})

	var kept []graph.Dependency
	for i := range deps {
		d := &deps[i]
		_, srcOK := names[d.Source]
		_, tgtOK := names[d.Target]
		if srcOK && tgtOK {
			kept = append(kept, *d)
		}
	}
	return Selection{Site: out, Dependencies: kept}
}

// FilterLibraries keeps the pages whose library name contains substr
// (case-insensitive) and the dependencies touching them.
func FilterLibraries(sel Selection, substr string) Selection {
	lower := strings.ToLower(substr)
	matched := make(map[string]struct{})
	out := sel.Site.Select(func(l *model.Library) bool {
		if strings.Contains(strings.ToLower(l.Name()), lower) {
			matched[l.Name()] = struct{}{}
			return true
		}
		return false
	})

	var deps []graph.Dependency
	for i := range sel.Dependencies {
		d := &sel.Dependencies[i]
		_, srcOK := matched[d.Source]
		_, tgtOK := matched[d.Target]
		if srcOK || tgtOK {
			deps = append(deps, *d)
		}
	}
	return Selection{Site: out, Dependencies: deps}
}
