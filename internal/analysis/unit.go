package analysis

// Unit is the parse result for one source file. Units are plain data so they
// can be cached between runs.
type Unit struct {
	Path     string
	Language string
	Library  string
	Doc      string
	Decls    []Decl
	Imports  []Import
}

// Decl is a declaration as extracted from one file, before linking.
type Decl struct {
	Kind      ElementKind
	Name      string
	Doc       string
	Line      int
	Signature string
	Private   bool
	Unnamed   bool
	Property  string
	Supers    []string

	// Receiver names the type a top-level declaration attaches to: the
	// receiver of a Go method, the result type of a Go constructor candidate,
	// or the declared type of a typed constant.
	Receiver string

	// Result is the declared result type, if any.
	Result string

	// Namespace is the lexical nesting path (Ruby "A::B") used to detect
	// reopened classes.
	Namespace string

	Children []Decl
}

// Params returns the parameter declarations of d.
func (d *Decl) Params() []Decl {
	var out []Decl
	for _, c := range d.Children {
		if c.Kind == ElementParameter {
			out = append(out, c)
		}
	}
	return out
}

// Import is a name bound in a file by an import statement.
type Import struct {
	// Path is the imported library name (Go import path, dotted Python module).
	// Python relative imports keep their leading dots.
	Path string
	// Name is the bound name.
	Name string
	// Symbol is the imported member for from-imports; empty for whole-library
	// imports.
	Symbol string
	Line   int
}
