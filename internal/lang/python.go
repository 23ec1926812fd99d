package lang

import (
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/phobologic/refdoc/internal/analysis"
)

func init() {
	Languages["python"] = &Language{
		Name:        "python",
		Extensions:  []string{".py"},
		lang:        python.GetLanguage(),
		Extract:     pythonExtract,
		LibraryName: pythonLibraryName,
	}
}

var pythonEnumBases = map[string]bool{
	"Enum": true, "IntEnum": true, "StrEnum": true, "Flag": true, "IntFlag": true,
}

// pythonLibraryName is the dotted module path; a package's __init__.py names
// the package itself.
func pythonLibraryName(rel, _ string, _ *File) string {
	rel = strings.TrimSuffix(rel, ".py")
	rel = strings.TrimPrefix(rel, "src/")
	if path.Base(rel) == "__init__" {
		rel = path.Dir(rel)
	}
	return strings.ReplaceAll(rel, "/", ".")
}

func pythonExtract(root *sitter.Node, source []byte) File {
	f := File{Doc: pythonDocstring(root, source)}
	for _, stmt := range namedChildren(root) {
		switch stmt.Type() {
		case "import_statement":
			f.Imports = append(f.Imports, pythonImports(stmt, source)...)
		case "import_from_statement":
			f.Imports = append(f.Imports, pythonFromImports(stmt, source)...)
		default:
			f.Decls = append(f.Decls, pythonStatement(stmt, nil, source)...)
		}
	}
	return f
}

// pythonStatement extracts declarations from one statement of a module body
// (cls == nil) or class body.
func pythonStatement(stmt *sitter.Node, cls *analysis.Decl, source []byte) []analysis.Decl {
	switch stmt.Type() {
	case "class_definition":
		return []analysis.Decl{pythonClass(stmt, nil, source)}
	case "function_definition":
		return []analysis.Decl{pythonFunction(stmt, nil, cls, source)}
	case "decorated_definition":
		def := stmt.ChildByFieldName("definition")
		if def == nil {
			return nil
		}
		var decorators []string
		for _, c := range namedChildren(stmt) {
			if c.Type() == "decorator" {
				decorators = append(decorators, strings.TrimSpace(strings.TrimPrefix(NodeText(c, source), "@")))
			}
		}
		if def.Type() == "class_definition" {
			return []analysis.Decl{pythonClass(def, stmt, source)}
		}
		d := pythonFunction(def, decorators, cls, source)
		d.Line = Line(stmt)
		return []analysis.Decl{d}
	case "expression_statement":
		return pythonAssignment(stmt, cls, source)
	}
	return nil
}

func pythonClass(node, decorated *sitter.Node, source []byte) analysis.Decl {
	name := fieldText(node, "name", source)
	d := analysis.Decl{
		Kind:      analysis.ElementClass,
		Name:      name,
		Line:      Line(node),
		Private:   pythonPrivate(name),
		Signature: pythonClassSignature(node, source),
	}
	if decorated != nil {
		d.Line = Line(decorated)
	}
	if bases := node.ChildByFieldName("superclasses"); bases != nil {
		for _, b := range namedChildren(bases) {
			if b.Type() != "identifier" && b.Type() != "attribute" {
				continue
			}
			base := NodeText(b, source)
			d.Supers = append(d.Supers, base)
			if pythonEnumBases[lastSegment(base, ".")] {
				d.Kind = analysis.ElementEnum
			}
		}
	}
	body := node.ChildByFieldName("body")
	d.Doc = pythonDocstring(body, source)
	for _, stmt := range namedChildren(body) {
		d.Children = append(d.Children, pythonStatement(stmt, &d, source)...)
	}
	return d
}

func pythonFunction(node *sitter.Node, decorators []string, cls *analysis.Decl, source []byte) analysis.Decl {
	name := fieldText(node, "name", source)
	d := analysis.Decl{
		Kind:      analysis.ElementFunction,
		Name:      name,
		Line:      Line(node),
		Private:   pythonPrivate(name),
		Signature: pythonFunctionSignature(node, source),
		Result:    fieldText(node, "return_type", source),
		Doc:       pythonDocstring(node.ChildByFieldName("body"), source),
	}
	if cls == nil {
		d.Children = pythonParams(node, false, source)
		return d
	}

	d.Kind = analysis.ElementMethod
	static := false
	for _, dec := range decorators {
		switch {
		case dec == "property" || dec == "functools.cached_property" || dec == "cached_property":
			d.Kind = analysis.ElementGetter
			d.Property = name
		case strings.HasSuffix(dec, ".setter"):
			d.Kind = analysis.ElementSetter
			d.Property = strings.TrimSuffix(dec, ".setter")
		case dec == "staticmethod":
			static = true
		}
	}
	if name == "__init__" {
		d.Kind = analysis.ElementConstructor
		d.Unnamed = true
		d.Private = false
	}
	d.Children = pythonParams(node, !static, source)
	return d
}

// pythonParams returns the named parameters of a function, dropping the
// leading self or cls of a method.
func pythonParams(node *sitter.Node, method bool, source []byte) []analysis.Decl {
	var out []analysis.Decl
	for i, p := range namedChildren(node.ChildByFieldName("parameters")) {
		var name string
		switch p.Type() {
		case "identifier":
			name = NodeText(p, source)
		case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
			if id := firstOfType(p, "identifier"); id != nil {
				name = NodeText(id, source)
			}
		case "default_parameter", "typed_default_parameter":
			name = fieldText(p, "name", source)
		}
		if name == "" || (method && i == 0) {
			continue
		}
		out = append(out, analysis.Decl{
			Kind:      analysis.ElementParameter,
			Name:      name,
			Line:      Line(p),
			Signature: CollapseWhitespace(NodeText(p, source)),
		})
	}
	return out
}

// pythonAssignment turns a module or class level "name = value" or
// "name: T = value" into a variable, constant, field or enum value.
func pythonAssignment(stmt *sitter.Node, cls *analysis.Decl, source []byte) []analysis.Decl {
	assign := firstOfType(stmt, "assignment")
	if assign == nil {
		return nil
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return nil
	}
	name := NodeText(left, source)
	d := analysis.Decl{
		Name:      name,
		Line:      Line(stmt),
		Private:   pythonPrivate(name),
		Signature: pythonFieldSignature(assign, source),
		Doc:       pythonTrailingDocstring(stmt, source),
	}
	switch {
	case cls != nil && cls.Kind == analysis.ElementEnum && !strings.HasPrefix(name, "_"):
		d.Kind = analysis.ElementEnumValue
	case cls != nil:
		d.Kind = analysis.ElementField
	case name == strings.ToUpper(name):
		d.Kind = analysis.ElementConstant
	default:
		d.Kind = analysis.ElementVariable
	}
	return []analysis.Decl{d}
}

func pythonImports(stmt *sitter.Node, source []byte) []analysis.Import {
	var out []analysis.Import
	for _, c := range namedChildren(stmt) {
		switch c.Type() {
		case "dotted_name":
			mod := NodeText(c, source)
			out = append(out, analysis.Import{Path: mod, Name: mod, Line: Line(stmt)})
			if top, _, ok := strings.Cut(mod, "."); ok {
				out = append(out, analysis.Import{Path: top, Name: top, Line: Line(stmt)})
			}
		case "aliased_import":
			out = append(out, analysis.Import{
				Path: fieldText(c, "name", source),
				Name: fieldText(c, "alias", source),
				Line: Line(stmt),
			})
		}
	}
	return out
}

func pythonFromImports(stmt *sitter.Node, source []byte) []analysis.Import {
	module := stmt.ChildByFieldName("module_name")
	if module == nil {
		return nil
	}
	mod := NodeText(module, source)
	var out []analysis.Import
	for _, c := range namedChildren(stmt) {
		if c.StartByte() == module.StartByte() {
			continue
		}
		var symbol, name string
		switch c.Type() {
		case "dotted_name":
			symbol = NodeText(c, source)
			name = symbol
		case "aliased_import":
			symbol = fieldText(c, "name", source)
			name = fieldText(c, "alias", source)
		default:
			continue
		}
		out = append(out, analysis.Import{Path: mod, Symbol: symbol, Name: name, Line: Line(stmt)})
	}
	return out
}

// pythonPrivate follows the leading-underscore convention; dunder names are
// public.
func pythonPrivate(name string) bool {
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
		return false
	}
	return strings.HasPrefix(name, "_")
}

// pythonDocstring returns the docstring of a module, class or function body.
func pythonDocstring(body *sitter.Node, source []byte) string {
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	if s := first.NamedChild(0); s.Type() == "string" {
		return cleanDocstring(NodeText(s, source))
	}
	return ""
}

// pythonTrailingDocstring returns an attribute docstring: a string statement
// directly after an assignment.
func pythonTrailingDocstring(stmt *sitter.Node, source []byte) string {
	next := stmt.NextNamedSibling()
	if next == nil || next.Type() != "expression_statement" || next.NamedChildCount() == 0 {
		return ""
	}
	if s := next.NamedChild(0); s.Type() == "string" {
		return cleanDocstring(NodeText(s, source))
	}
	return ""
}

// cleanDocstring strips string prefixes and quotes and removes the common
// indentation of continuation lines.
func cleanDocstring(lit string) string {
	lit = strings.TrimLeft(lit, "rRuUbBfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(lit, q) && strings.HasSuffix(lit, q) && len(lit) >= 2*len(q) {
			lit = lit[len(q) : len(lit)-len(q)]
			break
		}
	}
	lines := strings.Split(strings.ReplaceAll(lit, "\t", "    "), "\n")
	indent := -1
	for _, l := range lines[1:] {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " "))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	lines[0] = strings.TrimSpace(lines[0])
	if indent > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= indent {
				lines[i] = lines[i][indent:]
			} else {
				lines[i] = strings.TrimLeft(lines[i], " ")
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func pythonClassSignature(node *sitter.Node, source []byte) string {
	var name, args string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			name = NodeText(child, source)
		case "argument_list":
			args = NodeText(child, source)
		}
	}
	if args != "" {
		return "class " + name + CollapseWhitespace(args)
	}
	return "class " + name
}

// pythonFieldSignature returns "name: type" when a type annotation is present,
// otherwise just "name".
func pythonFieldSignature(node *sitter.Node, source []byte) string {
	name := fieldText(node, "left", source)
	if annotation := fieldText(node, "type", source); annotation != "" {
		return name + ": " + annotation
	}
	return name
}

func pythonFunctionSignature(node *sitter.Node, source []byte) string {
	var name, params, returnType string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			name = NodeText(child, source)
		case "parameters":
			params = CollapseWhitespace(NodeText(child, source))
		case "type":
			returnType = NodeText(child, source)
		}
	}
	sig := "def " + name + params
	if returnType != "" {
		sig += " -> " + returnType
	}
	return sig
}
