package lang

import (
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"

	"github.com/phobologic/refdoc/internal/analysis"
)

func init() {
	Languages["ruby"] = &Language{
		Name:        "ruby",
		Extensions:  []string{".rb"},
		lang:        ruby.GetLanguage(),
		Extract:     rubyExtract,
		LibraryName: rubyLibraryName,
	}
}

// rubyCoreClasses are reopened rather than declared when a file writes
// "class String".
var rubyCoreClasses = map[string]bool{
	"Object": true, "BasicObject": true, "Kernel": true, "Comparable": true, "Enumerable": true,
	"String": true, "Symbol": true, "Integer": true, "Float": true, "Numeric": true,
	"Array": true, "Hash": true, "Range": true, "Proc": true, "Time": true, "NilClass": true,
	"TrueClass": true, "FalseClass": true, "Module": true, "Class": true, "Struct": true,
	"Exception": true, "StandardError": true, "IO": true, "File": true, "Regexp": true,
}

// rubyLibraryName is the require path: lib/ and the extension are dropped.
func rubyLibraryName(rel, _ string, _ *File) string {
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	return strings.TrimPrefix(rel, "lib/")
}

func rubyExtract(root *sitter.Node, source []byte) File {
	var f File
	if first := root.NamedChild(0); first != nil && first.Type() == "comment" {
		f.Doc = rubyLeadingComment(first, source)
	}
	r := rubyBody{source: source}
	f.Decls = r.statements(root, nil, "")
	return f
}

// rubyLeadingComment returns the comment block starting at the top of the
// file, minus magic comments, when a blank line separates it from the code.
func rubyLeadingComment(first *sitter.Node, source []byte) string {
	var lines []string
	last := first
	for n := first; n != nil && n.Type() == "comment"; n = n.NextSibling() {
		text := strings.TrimSpace(strings.TrimPrefix(NodeText(n, source), "#"))
		if !strings.Contains(text, "frozen_string_literal") && !strings.HasPrefix(text, "encoding:") {
			lines = append(lines, text)
		}
		last = n
	}
	next := last.NextSibling()
	if next != nil && next.StartPoint().Row == endRow(last)+1 {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

type rubyBody struct {
	source []byte
}

// statements extracts the declarations in a program or class body. owner is
// the enclosing class or module, nil at the top level; namespace is its
// "A::B" path.
func (r rubyBody) statements(body *sitter.Node, owner *analysis.Decl, namespace string) []analysis.Decl {
	var out []analysis.Decl
	private := false
	for _, stmt := range namedChildren(body) {
		switch stmt.Type() {
		case "body_statement":
			out = append(out, r.statements(stmt, owner, namespace)...)
		case "class", "module":
			out = append(out, r.class(stmt, namespace))
		case "method":
			if d, ok := r.method(stmt, owner, false); ok {
				d.Private = d.Private || private
				out = append(out, d)
			}
		case "singleton_method":
			if d, ok := r.method(stmt, owner, true); ok {
				out = append(out, d)
			}
		case "identifier":
			switch NodeText(stmt, r.source) {
			case "private", "protected":
				private = true
			case "public":
				private = false
			}
		case "call":
			out = append(out, r.call(stmt, owner)...)
		case "assignment":
			left := stmt.ChildByFieldName("left")
			if left == nil || left.Type() != "constant" {
				continue
			}
			out = append(out, analysis.Decl{
				Kind:      analysis.ElementConstant,
				Name:      NodeText(left, r.source),
				Doc:       r.doc(stmt),
				Line:      Line(stmt),
				Signature: CollapseWhitespace(firstLine(NodeText(stmt, r.source))),
			})
		}
	}
	if owner != nil {
		rubyPairAccessors(out)
	}
	return out
}

func (r rubyBody) class(node *sitter.Node, namespace string) analysis.Decl {
	full := fieldText(node, "name", r.source)
	name := lastSegment(full, "::")
	if i := strings.LastIndex(full, "::"); i >= 0 {
		prefix := strings.TrimPrefix(full[:i], "::")
		if namespace == "" {
			namespace = prefix
		} else {
			namespace += "::" + prefix
		}
	}
	d := analysis.Decl{
		Kind:      analysis.ElementClass,
		Name:      name,
		Doc:       r.doc(node),
		Line:      Line(node),
		Namespace: namespace,
		Signature: rubyClassSignature(node, r.source),
	}
	if node.Type() == "module" {
		d.Kind = analysis.ElementMixin
		d.Signature = "module " + full
	}
	if sc := node.ChildByFieldName("superclass"); sc != nil {
		for _, c := range namedChildren(sc) {
			if c.Type() == "constant" || c.Type() == "scope_resolution" {
				d.Supers = append(d.Supers, strings.ReplaceAll(NodeText(c, r.source), "::", "."))
			}
		}
	}
	if namespace == "" && rubyCoreClasses[name] {
		d.Kind = analysis.ElementExtension
	}
	inner := full
	if namespace != "" {
		inner = namespace + "::" + name
	}
	body := node.ChildByFieldName("body")
	if body == nil {
		body = node
	}
	d.Children = r.statements(body, &d, inner)
	return d
}

func (r rubyBody) method(node *sitter.Node, owner *analysis.Decl, singleton bool) (analysis.Decl, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return analysis.Decl{}, false
	}
	name := NodeText(nameNode, r.source)
	d := analysis.Decl{
		Kind:      analysis.ElementFunction,
		Name:      name,
		Doc:       r.doc(node),
		Line:      Line(node),
		Signature: rubyMethodSignature(node, r.source),
		Children:  r.params(node.ChildByFieldName("parameters")),
	}
	if singleton {
		d.Signature = "self." + d.Signature
	}
	if owner == nil {
		return d, true
	}
	d.Kind = analysis.ElementMethod
	switch {
	case name == "initialize" && !singleton:
		d.Kind = analysis.ElementConstructor
		d.Unnamed = true
	case strings.HasSuffix(name, "=") && len(d.Children) == 1 && !singleton:
		d.Kind = analysis.ElementSetter
		d.Property = strings.TrimSuffix(name, "=")
	}
	return d, true
}

func (r rubyBody) params(list *sitter.Node) []analysis.Decl {
	var out []analysis.Decl
	for _, p := range namedChildren(list) {
		var name string
		switch p.Type() {
		case "identifier":
			name = NodeText(p, r.source)
		case "optional_parameter", "keyword_parameter", "splat_parameter", "hash_splat_parameter", "block_parameter":
			name = fieldText(p, "name", r.source)
		}
		if name == "" {
			continue
		}
		out = append(out, analysis.Decl{
			Kind:      analysis.ElementParameter,
			Name:      name,
			Line:      Line(p),
			Signature: CollapseWhitespace(NodeText(p, r.source)),
		})
	}
	return out
}

// call handles attr_* accessors and include/extend/prepend mixins.
func (r rubyBody) call(node *sitter.Node, owner *analysis.Decl) []analysis.Decl {
	if owner == nil || node.ChildByFieldName("receiver") != nil {
		return nil
	}
	method := fieldText(node, "method", r.source)
	args := namedChildren(node.ChildByFieldName("arguments"))
	switch method {
	case "include", "extend", "prepend":
		for _, a := range args {
			if a.Type() == "constant" || a.Type() == "scope_resolution" {
				owner.Supers = append(owner.Supers, strings.ReplaceAll(NodeText(a, r.source), "::", "."))
			}
		}
		return nil
	case "attr_reader", "attr_writer", "attr_accessor":
	default:
		return nil
	}
	doc := r.doc(node)
	var out []analysis.Decl
	for _, a := range args {
		if a.Type() != "simple_symbol" {
			continue
		}
		prop := strings.TrimPrefix(NodeText(a, r.source), ":")
		sig := method + " :" + prop
		if method != "attr_writer" {
			out = append(out, analysis.Decl{
				Kind: analysis.ElementGetter, Name: prop, Property: prop,
				Doc: doc, Line: Line(node), Signature: sig,
			})
		}
		if method != "attr_reader" {
			out = append(out, analysis.Decl{
				Kind: analysis.ElementSetter, Name: prop + "=", Property: prop,
				Doc: doc, Line: Line(node), Signature: sig,
			})
		}
	}
	return out
}

// rubyPairAccessors turns "def x" into a getter when the same body defines
// the setter "def x=".
func rubyPairAccessors(decls []analysis.Decl) {
	setters := make(map[string]bool)
	for _, d := range decls {
		if d.Kind == analysis.ElementSetter {
			setters[d.Property] = true
		}
	}
	for i := range decls {
		d := &decls[i]
		if d.Kind == analysis.ElementMethod && setters[d.Name] && len(d.Params()) == 0 {
			d.Kind = analysis.ElementGetter
			d.Property = d.Name
		}
	}
}

func (r rubyBody) doc(node *sitter.Node) string {
	return lineComments(node, r.source, "#")
}

func rubyClassSignature(node *sitter.Node, source []byte) string {
	var name, superclass string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "constant", "scope_resolution":
			if name == "" {
				name = NodeText(child, source)
			}
		case "superclass":
			// superclass node contains "< ClassName"
			for j := 0; j < int(child.ChildCount()); j++ {
				sc := child.Child(j)
				if sc.Type() == "constant" || sc.Type() == "scope_resolution" {
					superclass = NodeText(sc, source)
				}
			}
		}
	}
	if superclass != "" {
		return "class " + name + " < " + superclass
	}
	return "class " + name
}

func rubyMethodSignature(node *sitter.Node, source []byte) string {
	name := fieldText(node, "name", source)
	if params := node.ChildByFieldName("parameters"); params != nil {
		return "def " + name + CollapseWhitespace(NodeText(params, source))
	}
	return "def " + name
}
