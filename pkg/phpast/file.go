// Package phpast recovers class declarations from PHP source files by static
// analysis of their tree-sitter syntax tree. No PHP code is loaded or executed.
package phpast

// File is the declaration summary of a single PHP source file.
type File struct {
	// Path is the path the file was read from.
	Path string

	// Primary is the fully-qualified name of the first class declared in the
	// first namespace block of the file, or empty when there is none.
	Primary string

	// Classes lists every top-level class of every namespace region in
	// source order, including classes declared in the global namespace.
	Classes []ClassDecl
}

// Class returns the declaration of the named class, if the file declares it.
func (f *File) Class(name string) (ClassDecl, bool) {
	for _, decl := range f.Classes {
		if decl.Name == name {
			return decl, true
		}
	}

	return ClassDecl{}, false
}

// ClassDecl describes a class declaration with all names already resolved to
// their fully-qualified form (no leading backslash).
type ClassDecl struct {
	Name       string
	Namespace  string
	Parent     string
	Interfaces []string
	Methods    []MethodDecl
	Path       string
	Line       int
	Abstract   bool
	Final      bool
}

// ShortName returns the class name without its namespace.
func (c ClassDecl) ShortName() string {
	if c.Namespace == "" {
		return c.Name
	}

	return c.Name[len(c.Namespace)+1:]
}

// MethodDecl describes a method declared in a class body.
type MethodDecl struct {
	Name       string
	Visibility string
	Calls      []ThisCall
	Line       int
	Static     bool
	Abstract   bool
}

// ThisCall is a method call on $this found inside a method body,
// e.g. $this->hasMany(Post::class, 'user_id').
type ThisCall struct {
	Method string
	Args   []Argument
	Line   int
}

// ArgKind classifies a call argument.
type ArgKind int

// Argument kinds.
const (
	// ArgOther is any expression that is not statically interpreted.
	ArgOther ArgKind = iota
	// ArgClass is a class constant reference such as Post::class.
	ArgClass
	// ArgString is a string literal without interpolation.
	ArgString
)

// String returns the kind name.
func (k ArgKind) String() string {
	switch k {
	case ArgClass:
		return "class"
	case ArgString:
		return "string"
	default:
		return "other"
	}
}

// Argument is a single call argument. For ArgClass the value is the resolved
// fully-qualified class name, for ArgString it is the unquoted literal.
type Argument struct {
	// Name is the label of a named argument (PHP 8), empty for positional ones.
	Name  string
	Value string
	Kind  ArgKind
}
