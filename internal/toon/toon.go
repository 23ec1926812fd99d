// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/refdoc/internal/graph"
	"github.com/phobologic/refdoc/internal/model"
	"github.com/phobologic/refdoc/internal/site"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Index is the machine-readable summary of a generated site.
type Index struct {
	Site         *site.Site
	Ranks        map[string]float64
	Dependencies []graph.Dependency
}

// Encode converts an Index into TOON format.
func Encode(idx Index) string {
	s := idx.Site
	var parts []string

	parts = append(parts, fmt.Sprintf("project: %s", encodeValue(s.Name)))

	var libRows, entityRows [][]string
	for _, p := range s.Pages {
		libRows = append(libRows, []string{
			p.Library.Name(),
			p.File,
			fmt.Sprintf("%.4f", idx.Ranks[p.Library.Name()]),
		})
		for _, e := range p.Entries {
			if e.Entity == model.Entity(p.Library) {
				continue
			}
			loc := e.Entity.Location()
			entityRows = append(entityRows, []string{
				p.Library.Name(),
				model.DisplayName(e.Entity),
				model.Label(e.Entity),
				loc.File,
				strconv.Itoa(loc.Line),
				signature(e.Entity),
			})
		}
	}
	parts = append(parts, formatTabular("libraries", []string{"name", "page", "rank"}, libRows))
	parts = append(parts, formatTabular("entities", []string{"library", "name", "kind", "file", "line", "signature"}, entityRows))

	var linkRows [][]string
	for _, l := range s.Links() {
		linkRows = append(linkRows, []string{
			l.From.QualifiedName(),
			l.Ref.Text,
			l.To.QualifiedName(),
		})
	}
	parts = append(parts, formatTabular("links", []string{"from", "ref", "to"}, linkRows))

	var depRows [][]string
	for i := range idx.Dependencies {
		d := &idx.Dependencies[i]
		depRows = append(depRows, []string{
			d.Source,
			d.Target,
			strings.Join(d.Symbols, " "),
		})
	}
	parts = append(parts, formatTabular("dependencies", []string{"source", "target", "symbols"}, depRows))

	if unresolved := s.Unresolved(); len(unresolved) > 0 {
		var rows [][]string
		for _, u := range unresolved {
			loc := u.From.Location()
			rows = append(rows, []string{
				u.From.QualifiedName(),
				u.Ref.Text,
				loc.File,
				strconv.Itoa(loc.Line),
				strings.Join(u.Suggestions, " "),
			})
		}
		parts = append(parts, formatTabular("unresolved", []string{"from", "ref", "file", "line", "suggestions"}, rows))
	}

	return strings.Join(parts, "\n")
}

type signer interface {
	Signature() string
}

func signature(e model.Entity) string {
	if s, ok := e.(signer); ok {
		return s.Signature()
	}
	return ""
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
