// Package comment finds bracketed cross references in doc comments.
package comment

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/phobologic/refdoc/internal/model"
)

// Hint is what the reference syntax says about its target.
type Hint uint8

const (
	HintNone Hint = iota
	// HintCallable is a trailing "()".
	HintCallable
	// HintConstructor is a leading "new ".
	HintConstructor
)

func (h Hint) String() string {
	switch h {
	case HintCallable:
		return "callable"
	case HintConstructor:
		return "constructor"
	default:
		return "none"
	}
}

// Ref is one reference found in a doc comment.
type Ref struct {
	// Text is the reference as written, without brackets.
	Text string
	// Name is the dotted name to resolve: "::" and "#" separators become
	// ".", and hint syntax and Go pointer stars are removed.
	Name string
	Hint Hint
	// Offset is the byte offset of the opening bracket in the doc text.
	Offset int
	// Line is the 1-based line within the doc text.
	Line int
}

// Filter returns the entity predicate implied by the hint, or nil when any
// entity is acceptable.
func (r Ref) Filter() func(model.Referable) bool {
	switch r.Hint {
	case HintCallable:
		return func(e model.Referable) bool {
			m, ok := e.(*model.Member)
			return ok && m.MemberKind().Callable()
		}
	case HintConstructor:
		return func(e model.Referable) bool {
			m, ok := e.(*model.Member)
			return ok && m.MemberKind() == model.Constructor
		}
	default:
		return nil
	}
}

// Extract returns the references in doc in order of appearance. Code spans,
// fenced and indented code blocks, doctest lines, Markdown inline links and
// link definitions are skipped.
func Extract(doc string) []Ref {
	var refs []Ref
	var fence string
	offset := 0
	for i, line := range strings.SplitAfter(doc, "\n") {
		lineOffset := offset
		offset += len(line)

		trimmed := strings.TrimSpace(line)
		if fence != "" {
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
			}
			continue
		}
		if m := fenceMarker(trimmed); m != "" {
			fence = m
			continue
		}
		if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "    ") || strings.HasPrefix(trimmed, ">>>") {
			continue
		}
		refs = append(refs, scanLine(line, lineOffset, i+1)...)
	}
	return refs
}

func fenceMarker(trimmed string) string {
	for _, m := range []string{"```", "~~~"} {
		if strings.HasPrefix(trimmed, m) {
			return m
		}
	}
	return ""
}

func scanLine(line string, base, lineNo int) []Ref {
	var refs []Ref
	for i := 0; i < len(line); {
		switch line[i] {
		case '`':
			i = skipCodeSpan(line, i)
		case '[':
			end := strings.IndexAny(line[i+1:], "[]")
			if end < 0 || line[i+1+end] != ']' {
				i++
				continue
			}
			end += i + 1
			text := line[i+1 : end]
			next := end + 1
			if isLinkSyntax(line, i, next) || followsIdentifier(line, i) {
				i = next
				continue
			}
			if r, ok := parse(text); ok {
				r.Offset = base + i
				r.Line = lineNo
				refs = append(refs, r)
			}
			i = next
		default:
			i++
		}
	}
	return refs
}

// skipCodeSpan returns the index just past the code span opened at i, or
// i+run when the span is never closed.
func skipCodeSpan(line string, i int) int {
	run := 0
	for i+run < len(line) && line[i+run] == '`' {
		run++
	}
	closer := strings.Repeat("`", run)
	if j := strings.Index(line[i+run:], closer); j >= 0 {
		return i + run + j + run
	}
	return i + run
}

// isLinkSyntax reports Markdown inline links "[x](url)", reference links
// "[x][y]" and link definitions "[x]: url".
func isLinkSyntax(line string, open, next int) bool {
	if next < len(line) && (line[next] == '(' || line[next] == '[') {
		return true
	}
	if next < len(line) && line[next] == ':' && strings.TrimSpace(line[:open]) == "" {
		return true
	}
	return false
}

// followsIdentifier catches indexing and Go type syntax such as a[i] or
// map[string]int.
func followsIdentifier(line string, open int) bool {
	if open == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(line[:open])
	return r == '_' || r == ']' || r == ')' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func parse(text string) (Ref, bool) {
	r := Ref{Text: text}
	name := strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(name, "new "); ok {
		r.Hint = HintConstructor
		name = strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutSuffix(name, "()"); ok {
		if r.Hint == HintNone {
			r.Hint = HintCallable
		}
		name = rest
	}
	name = strings.TrimPrefix(name, "*")
	name = strings.ReplaceAll(name, "::", ".")
	name = strings.ReplaceAll(name, "#", ".")
	if name == "" || !validName(name) {
		return Ref{}, false
	}
	r.Name = name
	return r, true
}

func validName(name string) bool {
	first, _ := utf8.DecodeRuneInString(name)
	if !(first == '_' || unicode.IsLetter(first)) {
		return false
	}
	for _, c := range name {
		switch {
		case c == '_' || c == '.' || c == '/' || c == '!' || c == '?' || c == '=' || c == '-':
		case unicode.IsLetter(c) || unicode.IsDigit(c):
		default:
			return false
		}
	}
	return true
}
