// Package render writes a resolved site as Markdown pages and a TOON index.
package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/phobologic/refdoc/internal/model"
	"github.com/phobologic/refdoc/internal/site"
	"github.com/phobologic/refdoc/internal/toon"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatTOON     = "toon"
	FormatAll      = "all"
)

// TOONFile is the name of the machine-readable index.
const TOONFile = "index.toon"

const (
	sentinelStart = "<!-- refdoc:start -->"
	sentinelEnd   = "<!-- refdoc:end -->"
)

var funcs = template.FuncMap{
	// A Caser keeps state, so each call gets its own.
	"title": func(s string) string { return cases.Title(language.English).String(s) },
	"rank":  func(r float64) string { return fmt.Sprintf("%.4f", r) },
}

var pageTmpl = template.Must(template.New("page").Funcs(funcs).Parse(
	`# {{.Name}}

{{if .Doc}}{{.Doc}}

{{end}}{{range .Entries}}{{.Heading}} <a id="{{.Anchor}}"></a>{{.Name}}

*{{title .Label}}* defined in ` + "`{{.File}}:{{.Line}}`" + `
{{if .Signature}}
` + "```" + `
{{.Signature}}
` + "```" + `
{{end}}{{if .Doc}}
{{.Doc}}
{{end}}
{{end}}`))

var indexTmpl = template.Must(template.New("index").Funcs(funcs).Parse(
	`# {{.Name}}

| Library | Rank |
| --- | --- |
{{range .Libraries}}| [{{.Name}}]({{.File}}) | {{rank .Rank}} |
{{end}}{{if .Dependencies}}
## Dependencies

{{range .Dependencies}}- {{.Source}} uses {{.Target}}: {{.Symbols}}
{{end}}{{end}}`))

type pageData struct {
	Name    string
	Doc     string
	Entries []entryData
}

type entryData struct {
	Heading   string
	Anchor    string
	Name      string
	Label     string
	File      string
	Line      int
	Signature string
	Doc       string
}

type indexData struct {
	Name         string
	Libraries    []libraryData
	Dependencies []dependencyData
}

type libraryData struct {
	Name string
	File string
	Rank float64
}

type dependencyData struct {
	Source, Target, Symbols string
}

// Page renders the Markdown page of p.
func Page(s *site.Site, p *site.Page) (string, error) {
	data := pageData{Name: p.Library.Name()}
	for _, e := range p.Entries {
		doc := Doc(s, p.Library, e)
		if e.Entity == model.Entity(p.Library) {
			data.Doc = doc
			continue
		}
		loc := e.Entity.Location()
		data.Entries = append(data.Entries, entryData{
			Heading:   strings.Repeat("#", min(depth(e.Entity)+1, 6)),
			Anchor:    site.Anchor(e.Entity),
			Name:      model.DisplayName(e.Entity),
			Label:     model.Label(e.Entity),
			File:      loc.File,
			Line:      loc.Line,
			Signature: signature(e.Entity),
			Doc:       doc,
		})
	}
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", p.File, err)
	}
	return buf.String(), nil
}

// Index renders the site index: libraries in page order with their rank and
// the dependencies between them.
func Index(idx toon.Index) (string, error) {
	data := indexData{Name: idx.Site.Name}
	for _, p := range idx.Site.Pages {
		data.Libraries = append(data.Libraries, libraryData{
			Name: p.Library.Name(),
			File: p.File,
			Rank: idx.Ranks[p.Library.Name()],
		})
	}
	for _, d := range idx.Dependencies {
		data.Dependencies = append(data.Dependencies, dependencyData{
			Source:  d.Source,
			Target:  d.Target,
			Symbols: strings.Join(d.Symbols, ", "),
		})
	}
	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering index: %w", err)
	}
	return buf.String(), nil
}

// Doc returns the doc comment of e with each reference rewritten: resolved
// references to pages of s become links, the rest become code spans.
func Doc(s *site.Site, from *model.Library, e site.Entry) string {
	doc := e.Entity.Doc()
	if len(e.Refs) == 0 {
		return doc
	}
	var b strings.Builder
	last := 0
	for _, r := range e.Refs {
		end := r.Ref.Offset + len(r.Ref.Text) + 2
		if r.Ref.Offset < last || end > len(doc) {
			continue
		}
		b.WriteString(doc[last:r.Ref.Offset])
		text := "`" + r.Ref.Text + "`"
		if r.Resolved() {
			if href, ok := s.Href(from, r.Target); ok {
				text = "[" + text + "](" + href + ")"
			}
		}
		b.WriteString(text)
		last = end
	}
	b.WriteString(doc[last:])
	return b.String()
}

// depth is the nesting of e below its library.
func depth(e model.Entity) int {
	n := 0
	for cur := e; ; n++ {
		owner, ok := cur.Owner()
		if !ok {
			return n
		}
		if _, ok := owner.(*model.Library); ok {
			return n + 1
		}
		cur = owner
	}
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

// Splice puts generated between the refdoc sentinel comments of content,
// replacing an existing block or appending one. Text outside the sentinels is
// kept.
func Splice(content, generated string) string {
	block := sentinelStart + "\n" + generated + sentinelEnd
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)
	if start >= 0 && end > start {
		return content[:start] + block + content[end+len(sentinelEnd):]
	}
	if content == "" {
		return block + "\n"
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + block + "\n"
}

// Write renders idx into dir in the given format and returns the paths it
// wrote, relative to dir. Markdown files already in dir keep any text outside
// their refdoc block.
func Write(dir string, idx toon.Index, format string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	var written []string
	if format == FormatMarkdown || format == FormatAll {
		for _, p := range idx.Site.Pages {
			out, err := Page(idx.Site, p)
			if err != nil {
				return written, err
			}
			if err := spliceFile(filepath.Join(dir, p.File), out); err != nil {
				return written, err
			}
			written = append(written, p.File)
		}
		out, err := Index(idx)
		if err != nil {
			return written, err
		}
		if err := spliceFile(filepath.Join(dir, site.IndexFile), out); err != nil {
			return written, err
		}
		written = append(written, site.IndexFile)
	}
	if format == FormatTOON || format == FormatAll {
		data := toon.Encode(idx) + "\n"
		if err := os.WriteFile(filepath.Join(dir, TOONFile), []byte(data), 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", TOONFile, err)
		}
		written = append(written, TOONFile)
	}
	return written, nil
}

func spliceFile(path, generated string) error {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(Splice(string(existing), generated)), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
