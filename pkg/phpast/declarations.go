package phpast

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// tree-sitter-php node types.
const (
	nodeError                   = "ERROR"
	nodeNamespaceDefinition     = "namespace_definition"
	nodeNamespaceName           = "namespace_name"
	nodeNamespaceUseDeclaration = "namespace_use_declaration"
	nodeNamespaceUseClause      = "namespace_use_clause"
	nodeNamespaceUseGroup       = "namespace_use_group"
	nodeNamespaceUseGroupClause = "namespace_use_group_clause"
	nodeNamespaceAliasingClause = "namespace_aliasing_clause"
	nodeClassDeclaration        = "class_declaration"
	nodeBaseClause              = "base_clause"
	nodeInterfaceClause         = "class_interface_clause"
	nodeMethodDeclaration       = "method_declaration"
	nodeMemberCall              = "member_call_expression"
	nodeNullsafeMemberCall      = "nullsafe_member_call_expression"
	nodeArgument                = "argument"
	nodeClassConstantAccess     = "class_constant_access_expression"
	nodeString                  = "string"
	nodeEncapsedString          = "encapsed_string"
	nodeName                    = "name"
	nodeQualifiedName           = "qualified_name"
	nodeVisibilityModifier      = "visibility_modifier"
	nodeStaticModifier          = "static_modifier"
	nodeAbstractModifier        = "abstract_modifier"
	nodeFinalModifier           = "final_modifier"

	keywordAbstract = "abstract"
	keywordFinal    = "final"
	keywordFunction = "function"
	keywordConst    = "const"

	thisVariable      = "$this"
	defaultVisibility = "public"
)

// region is a run of top-level statements sharing one namespace.
type region struct {
	namespace  string
	stmts      []sitter.Node
	namespaced bool
}

// extractor walks one syntax tree. Nodes are only valid while the tree is open,
// so everything is copied into plain declarations before returning.
type extractor struct {
	path string
	src  []byte
}

func (ex *extractor) text(tsNode sitter.Node) string {
	return string(ex.src[tsNode.StartByte():tsNode.EndByte()])
}

func (ex *extractor) file(root sitter.Node) *File {
	file := &File{Path: ex.path}
	seenNamespace := false

	for _, reg := range ex.regions(root) {
		primaryRegion := reg.namespaced && !seenNamespace
		if reg.namespaced {
			seenNamespace = true
		}

		scope := newNameScope(reg.namespace)

		for _, stmt := range reg.stmts {
			switch stmt.Type() {
			case nodeNamespaceUseDeclaration:
				ex.collectImports(stmt, scope)
			case nodeClassDeclaration:
				decl := ex.classDecl(stmt, scope)
				if decl.Name == "" {
					continue
				}

				if primaryRegion && file.Primary == "" {
					file.Primary = decl.Name
				}

				file.Classes = append(file.Classes, decl)
			}
		}
	}

	return file
}

// regions splits the program into namespace regions. A braced namespace owns
// its body; the "namespace X;" form owns every following top-level statement
// up to the next namespace definition. Statements outside any namespace form
// the leading global region.
func (ex *extractor) regions(root sitter.Node) []region {
	global := region{}

	var namespaced []region

	current := -1

	for idx := range root.NamedChildCount() {
		child := root.NamedChild(idx)

		if child.Type() != nodeNamespaceDefinition {
			if current >= 0 {
				namespaced[current].stmts = append(namespaced[current].stmts, child)
			} else {
				global.stmts = append(global.stmts, child)
			}

			continue
		}

		reg := region{namespaced: true}

		nameNode := child.ChildByFieldName("name")
		if !nameNode.IsNull() {
			reg.namespace = normalizeName(ex.text(nameNode))
		}

		body := child.ChildByFieldName("body")
		if body.IsNull() {
			namespaced = append(namespaced, reg)
			current = len(namespaced) - 1

			continue
		}

		reg.stmts = namedChildren(body)
		namespaced = append(namespaced, reg)
		current = -1
	}

	if len(global.stmts) == 0 {
		return namespaced
	}

	return append([]region{global}, namespaced...)
}

// collectImports registers the class imports of a use declaration. Function
// and constant imports are ignored since they never name a class.
func (ex *extractor) collectImports(decl sitter.Node, scope *nameScope) {
	if hasKeywordChild(decl, keywordFunction, keywordConst) {
		return
	}

	prefix := ""

	for idx := range decl.NamedChildCount() {
		child := decl.NamedChild(idx)

		switch child.Type() {
		case nodeNamespaceName, nodeQualifiedName, nodeName:
			prefix = normalizeName(ex.text(child))
		case nodeNamespaceUseClause, nodeNamespaceUseGroupClause:
			ex.importClause(child, "", scope)
		case nodeNamespaceUseGroup:
			for groupIdx := range child.NamedChildCount() {
				clause := child.NamedChild(groupIdx)
				ex.importClause(clause, prefix, scope)
			}
		}
	}
}

func (ex *extractor) importClause(clause sitter.Node, prefix string, scope *nameScope) {
	if hasKeywordChild(clause, keywordFunction, keywordConst) {
		return
	}

	var names []string

	alias := ""

	for idx := range clause.NamedChildCount() {
		child := clause.NamedChild(idx)

		switch child.Type() {
		case nodeName, nodeQualifiedName, nodeNamespaceName:
			names = append(names, ex.text(child))
		case nodeNamespaceAliasingClause:
			alias = ex.lastNamedText(child)
		}
	}

	if len(names) == 0 {
		return
	}

	if alias == "" && len(names) > 1 {
		alias = normalizeName(names[len(names)-1])
	}

	target := normalizeName(names[0])
	if prefix != "" {
		target = strings.TrimSuffix(prefix, nsSeparator) + nsSeparator + strings.TrimPrefix(target, nsSeparator)
	}

	scope.addImport(target, alias)
}

func (ex *extractor) classDecl(tsNode sitter.Node, scope *nameScope) ClassDecl {
	nameNode := tsNode.ChildByFieldName("name")
	if nameNode.IsNull() {
		return ClassDecl{}
	}

	decl := ClassDecl{
		Name:      scope.qualify(ex.text(nameNode)),
		Namespace: scope.namespace,
		Path:      ex.path,
		Line:      int(tsNode.StartPoint().Row) + 1,
	}

	for idx := range tsNode.ChildCount() {
		child := tsNode.Child(idx)

		switch child.Type() {
		case nodeAbstractModifier, keywordAbstract:
			decl.Abstract = true
		case nodeFinalModifier, keywordFinal:
			decl.Final = true
		case nodeBaseClause:
			if child.NamedChildCount() > 0 {
				decl.Parent = scope.resolve(ex.text(child.NamedChild(0)))
			}
		case nodeInterfaceClause:
			for ifaceIdx := range child.NamedChildCount() {
				decl.Interfaces = append(decl.Interfaces, scope.resolve(ex.text(child.NamedChild(ifaceIdx))))
			}
		}
	}

	body := tsNode.ChildByFieldName("body")
	if !body.IsNull() {
		decl.Methods = ex.methods(body, scope, decl)
	}

	return decl
}

func (ex *extractor) methods(body sitter.Node, scope *nameScope, owner ClassDecl) []MethodDecl {
	var methods []MethodDecl

	for idx := range body.NamedChildCount() {
		member := body.NamedChild(idx)
		if member.Type() != nodeMethodDeclaration {
			continue
		}

		nameNode := member.ChildByFieldName("name")
		if nameNode.IsNull() {
			continue
		}

		method := MethodDecl{
			Name: ex.text(nameNode),
			Line: int(member.StartPoint().Row) + 1,
		}

		for childIdx := range member.ChildCount() {
			child := member.Child(childIdx)

			switch child.Type() {
			case nodeVisibilityModifier:
				method.Visibility = strings.ToLower(strings.TrimSpace(ex.text(child)))
			case nodeStaticModifier:
				method.Static = true
			case nodeAbstractModifier:
				method.Abstract = true
			}
		}

		if method.Visibility == "" {
			method.Visibility = defaultVisibility
		}

		methodBody := member.ChildByFieldName("body")
		if !methodBody.IsNull() {
			ex.collectThisCalls(methodBody, scope, owner, &method.Calls)
		}

		methods = append(methods, method)
	}

	return methods
}

// collectThisCalls appends, in pre-order, every method call made on $this.
// For a chain such as $this->hasMany(X::class)->latest() only the inner call
// has $this as its object.
func (ex *extractor) collectThisCalls(tsNode sitter.Node, scope *nameScope, owner ClassDecl, out *[]ThisCall) {
	nodeType := tsNode.Type()
	if nodeType == nodeMemberCall || nodeType == nodeNullsafeMemberCall {
		if call, ok := ex.thisCall(tsNode, scope, owner); ok {
			*out = append(*out, call)
		}
	}

	for idx := range tsNode.NamedChildCount() {
		ex.collectThisCalls(tsNode.NamedChild(idx), scope, owner, out)
	}
}

func (ex *extractor) thisCall(tsNode sitter.Node, scope *nameScope, owner ClassDecl) (ThisCall, bool) {
	object := tsNode.ChildByFieldName("object")
	if object.IsNull() || strings.TrimSpace(ex.text(object)) != thisVariable {
		return ThisCall{}, false
	}

	nameNode := tsNode.ChildByFieldName("name")
	if nameNode.IsNull() || nameNode.Type() != nodeName {
		return ThisCall{}, false
	}

	call := ThisCall{
		Method: ex.text(nameNode),
		Line:   int(tsNode.StartPoint().Row) + 1,
	}

	args := tsNode.ChildByFieldName("arguments")
	if !args.IsNull() {
		call.Args = ex.arguments(args, scope, owner)
	}

	return call, true
}

func (ex *extractor) arguments(args sitter.Node, scope *nameScope, owner ClassDecl) []Argument {
	var out []Argument

	for idx := range args.NamedChildCount() {
		argNode := args.NamedChild(idx)
		if argNode.Type() != nodeArgument {
			continue
		}

		count := argNode.NamedChildCount()
		if count == 0 {
			continue
		}

		arg := Argument{}

		label := argNode.ChildByFieldName("name")
		if !label.IsNull() {
			arg.Name = ex.text(label)
		}

		expr := argNode.NamedChild(count - 1)
		if label.IsNull() || expr.StartByte() != label.StartByte() {
			arg.Kind, arg.Value = ex.classify(expr, scope, owner)
		}

		out = append(out, arg)
	}

	return out
}

func (ex *extractor) classify(expr sitter.Node, scope *nameScope, owner ClassDecl) (ArgKind, string) {
	switch expr.Type() {
	case nodeClassConstantAccess:
		text := normalizeName(ex.text(expr))
		if len(text) > len(classConstSuffix) && strings.EqualFold(text[len(text)-len(classConstSuffix):], classConstSuffix) {
			return ArgClass, resolveClassRef(text[:len(text)-len(classConstSuffix)], scope, owner)
		}
	case nodeString, nodeEncapsedString:
		if literal, ok := stringLiteral(ex.text(expr)); ok {
			return ArgString, literal
		}
	}

	return ArgOther, ""
}

func resolveClassRef(name string, scope *nameScope, owner ClassDecl) string {
	if !isSpecialClassName(name) {
		return scope.resolve(name)
	}

	if strings.EqualFold(name, keywordParent) {
		return owner.Parent
	}

	return owner.Name
}

// stringLiteral unquotes a single- or double-quoted literal. Double-quoted
// strings with interpolation are not literals.
func stringLiteral(raw string) (string, bool) {
	const minQuoted = 2

	raw = strings.TrimSpace(raw)
	if len(raw) < minQuoted {
		return "", false
	}

	quote := raw[0]
	if (quote != '\'' && quote != '"') || raw[len(raw)-1] != quote {
		return "", false
	}

	inner := raw[1 : len(raw)-1]
	if quote == '"' && strings.Contains(inner, "$") {
		return "", false
	}

	replacer := strings.NewReplacer(`\\`, `\`, `\'`, `'`, `\"`, `"`)

	return replacer.Replace(inner), true
}

func namedChildren(tsNode sitter.Node) []sitter.Node {
	children := make([]sitter.Node, 0, tsNode.NamedChildCount())

	for idx := range tsNode.NamedChildCount() {
		children = append(children, tsNode.NamedChild(idx))
	}

	return children
}

// hasKeywordChild reports whether one of the anonymous children of tsNode is
// one of the given keywords.
func hasKeywordChild(tsNode sitter.Node, keywords ...string) bool {
	for idx := range tsNode.ChildCount() {
		child := tsNode.Child(idx)
		if child.IsNamed() {
			continue
		}

		for _, keyword := range keywords {
			if strings.EqualFold(child.Type(), keyword) {
				return true
			}
		}
	}

	return false
}

func (ex *extractor) lastNamedText(tsNode sitter.Node) string {
	count := tsNode.NamedChildCount()
	if count == 0 {
		return ""
	}

	return normalizeName(ex.text(tsNode.NamedChild(count - 1)))
}
