package lang

import (
	"path"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/phobologic/refdoc/internal/analysis"
)

func init() {
	Languages["go"] = &Language{
		Name:        "go",
		Extensions:  []string{".go"},
		lang:        golang.GetLanguage(),
		Extract:     goExtract,
		LibraryName: goLibraryName,
	}
}

// goLibraryName is the import path of the file's directory.
func goLibraryName(rel, module string, f *File) string {
	dir := path.Dir(rel)
	switch {
	case module == "" && dir == ".":
		return f.Package
	case module == "":
		return dir
	case dir == ".":
		return module
	default:
		return module + "/" + dir
	}
}

func goExtract(root *sitter.Node, source []byte) File {
	var f File
	for _, child := range namedChildren(root) {
		switch child.Type() {
		case "package_clause":
			if id := firstOfType(child, "package_identifier"); id != nil {
				f.Package = NodeText(id, source)
			}
			f.Doc = goDoc(child, source)
		case "import_declaration":
			f.Imports = append(f.Imports, goImports(child, source)...)
		case "function_declaration":
			f.Decls = append(f.Decls, goFunc(child, source))
		case "method_declaration":
			if d, ok := goMethod(child, source); ok {
				f.Decls = append(f.Decls, d)
			}
		case "type_declaration":
			for _, spec := range namedChildren(child) {
				if spec.Type() != "type_spec" && spec.Type() != "type_alias" {
					continue
				}
				doc := goDoc(spec, source)
				if doc == "" {
					doc = goDoc(child, source)
				}
				f.Decls = append(f.Decls, goType(spec, doc, source))
			}
		case "const_declaration":
			f.Decls = append(f.Decls, goValues(child, analysis.ElementConstant, source)...)
		case "var_declaration":
			f.Decls = append(f.Decls, goValues(child, analysis.ElementVariable, source)...)
		}
	}
	return f
}

func goDoc(node *sitter.Node, source []byte) string {
	return lineComments(node, source, "//")
}

func firstOfType(node *sitter.Node, types ...string) *sitter.Node {
	for _, c := range namedChildren(node) {
		for _, t := range types {
			if c.Type() == t {
				return c
			}
		}
	}
	return nil
}

func goImports(node *sitter.Node, source []byte) []analysis.Import {
	var out []analysis.Import
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		for _, c := range namedChildren(n) {
			switch c.Type() {
			case "import_spec_list":
				visit(c)
			case "import_spec":
				p, err := strconv.Unquote(fieldText(c, "path", source))
				if err != nil {
					continue
				}
				name := fieldText(c, "name", source)
				if name == "_" || name == "." {
					continue
				}
				if name == "" {
					name = goPackageName(p)
				}
				out = append(out, analysis.Import{Path: p, Name: name, Line: Line(c)})
			}
		}
	}
	visit(node)
	return out
}

// goPackageName guesses the package name of an import path: the last
// element, skipping a major version suffix.
func goPackageName(importPath string) string {
	base := path.Base(importPath)
	if len(base) > 1 && base[0] == 'v' {
		if _, err := strconv.Atoi(base[1:]); err == nil {
			if parent := path.Dir(importPath); parent != "." {
				return path.Base(parent)
			}
		}
	}
	return strings.TrimPrefix(base, "go-")
}

func goFunc(node *sitter.Node, source []byte) analysis.Decl {
	name := fieldText(node, "name", source)
	d := analysis.Decl{
		Kind:      analysis.ElementFunction,
		Name:      name,
		Doc:       goDoc(node, source),
		Line:      Line(node),
		Private:   !startsUpper(name),
		Signature: goSignature(node, source),
		Result:    goResult(node, source),
		Children:  goParams(node.ChildByFieldName("parameters"), source),
	}
	if strings.HasPrefix(name, "New") {
		d.Receiver = goResultType(node.ChildByFieldName("result"), source)
	}
	return d
}

func goMethod(node *sitter.Node, source []byte) (analysis.Decl, bool) {
	recv := goReceiverType(node.ChildByFieldName("receiver"), source)
	if recv == "" {
		return analysis.Decl{}, false
	}
	name := fieldText(node, "name", source)
	return analysis.Decl{
		Kind:      analysis.ElementMethod,
		Name:      name,
		Doc:       goDoc(node, source),
		Line:      Line(node),
		Private:   !startsUpper(name),
		Signature: goSignature(node, source),
		Result:    goResult(node, source),
		Receiver:  recv,
		Children:  goParams(node.ChildByFieldName("parameters"), source),
	}, true
}

// goReceiverType extracts the receiver type name, unwrapping pointers and
// type parameters.
func goReceiverType(list *sitter.Node, source []byte) string {
	if list == nil {
		return ""
	}
	for _, param := range namedChildren(list) {
		if param.Type() == "parameter_declaration" {
			return goBaseType(param.ChildByFieldName("type"), source)
		}
	}
	return ""
}

// goBaseType returns the named type inside t: T for T, *T, T[K] and pkg.T.
func goBaseType(t *sitter.Node, source []byte) string {
	for t != nil {
		switch t.Type() {
		case "type_identifier", "qualified_type":
			return NodeText(t, source)
		case "pointer_type":
			t = firstOfType(t, "type_identifier", "generic_type", "qualified_type")
		case "generic_type":
			t = t.ChildByFieldName("type")
		default:
			return ""
		}
	}
	return ""
}

// goResultType returns the type a constructor candidate builds: its only
// result, or its first result when the second is an error.
func goResultType(result *sitter.Node, source []byte) string {
	if result == nil {
		return ""
	}
	if result.Type() != "parameter_list" {
		return goBaseType(result, source)
	}
	params := namedChildren(result)
	if len(params) == 0 || len(params) > 2 {
		return ""
	}
	if len(params) == 2 && fieldText(params[1], "type", source) != "error" {
		return ""
	}
	return goBaseType(params[0].ChildByFieldName("type"), source)
}

func goResult(node *sitter.Node, source []byte) string {
	if r := node.ChildByFieldName("result"); r != nil {
		return CollapseWhitespace(NodeText(r, source))
	}
	return ""
}

func goSignature(node *sitter.Node, source []byte) string {
	var sb strings.Builder
	sb.WriteString("func ")
	if recv := node.ChildByFieldName("receiver"); recv != nil {
		sb.WriteString(CollapseWhitespace(NodeText(recv, source)))
		sb.WriteString(" ")
	}
	sb.WriteString(fieldText(node, "name", source))
	if tp := node.ChildByFieldName("type_parameters"); tp != nil {
		sb.WriteString(CollapseWhitespace(NodeText(tp, source)))
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		sb.WriteString(CollapseWhitespace(NodeText(params, source)))
	}
	if r := goResult(node, source); r != "" {
		sb.WriteString(" ")
		sb.WriteString(r)
	}
	return sb.String()
}

func goParams(list *sitter.Node, source []byte) []analysis.Decl {
	var out []analysis.Decl
	for _, param := range namedChildren(list) {
		if param.Type() != "parameter_declaration" && param.Type() != "variadic_parameter_declaration" {
			continue
		}
		typ := CollapseWhitespace(fieldText(param, "type", source))
		for _, c := range namedChildren(param) {
			if c.Type() != "identifier" {
				continue
			}
			name := NodeText(c, source)
			if name == "_" {
				continue
			}
			out = append(out, analysis.Decl{
				Kind:      analysis.ElementParameter,
				Name:      name,
				Line:      Line(c),
				Signature: strings.TrimSpace(name + " " + typ),
			})
		}
	}
	return out
}

func goType(spec *sitter.Node, doc string, source []byte) analysis.Decl {
	name := fieldText(spec, "name", source)
	d := analysis.Decl{
		Kind:      analysis.ElementType,
		Name:      name,
		Doc:       doc,
		Line:      Line(spec),
		Private:   !startsUpper(name),
		Signature: "type " + CollapseWhitespace(firstLine(NodeText(spec, source))),
	}
	t := spec.ChildByFieldName("type")
	if t == nil {
		return d
	}
	switch t.Type() {
	case "struct_type":
		d.Kind = analysis.ElementStruct
		d.Signature = "type " + name + " struct"
		goStructFields(&d, t, source)
	case "interface_type":
		d.Kind = analysis.ElementInterface
		d.Signature = "type " + name + " interface"
		goInterfaceMembers(&d, t, source)
	}
	return d
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func goStructFields(d *analysis.Decl, st *sitter.Node, source []byte) {
	list := firstOfType(st, "field_declaration_list")
	for _, field := range namedChildren(list) {
		if field.Type() != "field_declaration" {
			continue
		}
		typ := field.ChildByFieldName("type")
		var names []string
		for _, c := range namedChildren(field) {
			if c.Type() == "field_identifier" {
				names = append(names, NodeText(c, source))
			}
		}
		if len(names) == 0 {
			if base := goBaseType(typ, source); base != "" {
				d.Supers = append(d.Supers, base)
			}
			continue
		}
		typeText := ""
		if typ != nil {
			typeText = CollapseWhitespace(NodeText(typ, source))
		}
		for _, n := range names {
			d.Children = append(d.Children, analysis.Decl{
				Kind:      analysis.ElementField,
				Name:      n,
				Doc:       goDoc(field, source),
				Line:      Line(field),
				Private:   !startsUpper(n),
				Signature: n + " " + typeText,
			})
		}
	}
}

func goInterfaceMembers(d *analysis.Decl, it *sitter.Node, source []byte) {
	for _, c := range namedChildren(it) {
		switch c.Type() {
		case "method_elem", "method_spec":
			name := fieldText(c, "name", source)
			d.Children = append(d.Children, analysis.Decl{
				Kind:      analysis.ElementMethod,
				Name:      name,
				Doc:       goDoc(c, source),
				Line:      Line(c),
				Private:   !startsUpper(name),
				Signature: CollapseWhitespace(NodeText(c, source)),
				Result:    goResult(c, source),
				Children:  goParams(c.ChildByFieldName("parameters"), source),
			})
		case "type_elem", "constraint_elem", "interface_type_name":
			for _, t := range namedChildren(c) {
				if base := goBaseType(t, source); base != "" {
					d.Supers = append(d.Supers, base)
				}
			}
		}
	}
}

// goValues extracts const and var specs. Constants of a named type, including
// those continuing an iota run, carry the type as their receiver so the linker
// can make them enum values.
func goValues(decl *sitter.Node, kind analysis.ElementKind, source []byte) []analysis.Decl {
	var out []analysis.Decl
	var specs []*sitter.Node
	for _, c := range namedChildren(decl) {
		switch c.Type() {
		case "const_spec", "var_spec":
			specs = append(specs, c)
		case "var_spec_list":
			specs = append(specs, namedChildren(c)...)
		}
	}
	grouped := len(specs) > 1
	var iotaType string
	for _, spec := range specs {
		if spec.Type() != "const_spec" && spec.Type() != "var_spec" {
			continue
		}
		typ := goBaseType(spec.ChildByFieldName("type"), source)
		hasValue := spec.ChildByFieldName("value") != nil
		if kind == analysis.ElementConstant {
			switch {
			case typ != "":
				iotaType = typ
			case hasValue:
				iotaType = ""
			default:
				typ = iotaType
			}
		}
		doc := goDoc(spec, source)
		if doc == "" && !grouped {
			doc = goDoc(decl, source)
		}
		for _, c := range namedChildren(spec) {
			// Names are the only direct identifier children; values sit in an
			// expression_list.
			if c.Type() != "identifier" {
				continue
			}
			name := NodeText(c, source)
			if name == "_" {
				continue
			}
			d := analysis.Decl{
				Kind:      kind,
				Name:      name,
				Doc:       doc,
				Line:      Line(c),
				Private:   !startsUpper(name),
				Signature: CollapseWhitespace(NodeText(spec, source)),
			}
			if kind == analysis.ElementConstant && typ != "" && !strings.Contains(typ, ".") {
				d.Kind = analysis.ElementEnumValue
				d.Receiver = typ
			}
			out = append(out, d)
		}
	}
	return out
}
