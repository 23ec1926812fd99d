// Package lang provides a language registry mapping file extensions to
// tree-sitter languages and the declaration extractors built on them.
package lang

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"fortio.org/safecast"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/refdoc/internal/analysis"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// File is what a language front end extracts from one source file.
type File struct {
	// Package is the declared package name, for languages that have one.
	Package string
	Doc     string
	Decls   []analysis.Decl
	Imports []analysis.Import
}

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Name       string
	Extensions []string
	lang       *sitter.Language

	// Extract walks a parsed file and returns its declarations.
	Extract func(root *sitter.Node, source []byte) File

	// LibraryName names the library a file belongs to. rel is the
	// slash-separated path from the project root; module is the Go module
	// path, or "" outside a Go module.
	LibraryName func(rel, module string, f *File) string
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

// extensionMap is built lazily after all init() functions have run.
var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language name for a file extension, or "" if unsupported.
func ForExtension(ext string) string {
	return getExtensionMap()[ext]
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Line returns the 1-based line a node starts on.
func Line(node *sitter.Node) int {
	row, err := safecast.Conv[int](node.StartPoint().Row)
	if err != nil {
		return 0
	}
	return row + 1
}

func endRow(node *sitter.Node) uint32 {
	return node.EndPoint().Row
}

// lineComments returns the text of the run of comment siblings ending on the
// line directly above node. prefix is stripped from every line.
func lineComments(node *sitter.Node, source []byte, prefix string) string {
	var lines []string
	want := node.StartPoint().Row
	for prev := prevSibling(node); prev != nil && prev.Type() == "comment"; prev = prevSibling(prev) {
		if want == 0 || endRow(prev) != want-1 {
			break
		}
		text := NodeText(prev, source)
		if !strings.HasPrefix(text, prefix) {
			break
		}
		lines = append(lines, strings.TrimPrefix(strings.TrimPrefix(text, prefix), " "))
		want = prev.StartPoint().Row
	}
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// prevSibling is node's previous sibling. Comments above the first statement
// of a Ruby class or module body sit in the class node, before the
// body_statement, so the walk continues there.
func prevSibling(node *sitter.Node) *sitter.Node {
	if prev := node.PrevSibling(); prev != nil {
		return prev
	}
	if parent := node.Parent(); parent != nil && parent.Type() == "body_statement" {
		return parent.PrevSibling()
	}
	return nil
}

func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	n := int(node.NamedChildCount())
	out := make([]*sitter.Node, 0, n)
	for i := range n {
		out = append(out, node.NamedChild(i))
	}
	return out
}

func fieldText(node *sitter.Node, field string, source []byte) string {
	if c := node.ChildByFieldName(field); c != nil {
		return NodeText(c, source)
	}
	return ""
}

func startsUpper(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// lastSegment returns the part of a qualified name after the last sep.
func lastSegment(name, sep string) string {
	if i := strings.LastIndex(name, sep); i >= 0 {
		return name[i+len(sep):]
	}
	return name
}
