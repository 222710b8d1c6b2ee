package parse

import (
	"context"
	"sort"

	"github.com/charmbracelet/log"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/hdrcheck/internal/location"
	"github.com/phobologic/hdrcheck/internal/model"
)

// source is the text a subtree was parsed from and the mapping from its
// byte offsets to user-facing locations.
type source struct {
	text   []byte
	locate func(off int) location.Location
}

func fileSource(path string, text []byte) *source {
	starts := []int{0}
	for i, c := range text {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &source{
		text: text,
		locate: func(off int) location.Location {
			line := sort.Search(len(starts), func(i int) bool { return starts[i] > off }) - 1
			if line < 0 {
				line = 0
			}
			return location.At(path, line+1, off-starts[line]+1)
		},
	}
}

// builder lowers a tree-sitter tree into the resolved AST the engine
// consumes. It resolves names against syms with C++ lookup order
// approximated by enclosing namespaces and using directives.
type builder struct {
	ctx      context.Context
	parser   *sitter.Parser
	syms     *symbols
	logger   *log.Logger
	maxDepth int

	src     *source
	scopes  []string
	usings  []string
	tparams []map[string]bool
	locals  []map[string]bool
	active  map[string]bool
	depth   int
}

func (b *builder) buildUnit(path string, root *sitter.Node) *model.Node {
	unit := &model.Node{Kind: model.NodeUnit, Loc: location.At(path, 1, 1)}
	return unit.Append(b.buildChildren(root)...)
}

func (b *builder) text(n *sitter.Node) string {
	return string(b.src.text[n.StartByte():n.EndByte()])
}

func (b *builder) loc(n *sitter.Node) location.Location {
	return b.src.locate(int(n.StartByte()))
}

func (b *builder) scope() string {
	if len(b.scopes) == 0 {
		return ""
	}
	return b.scopes[len(b.scopes)-1]
}

func (b *builder) pushScope(name string) {
	b.scopes = append(b.scopes, qualify(b.scope(), name))
}

func (b *builder) popScope() {
	b.scopes = b.scopes[:len(b.scopes)-1]
}

func (b *builder) lookupType(name string) model.EntityID {
	return lookup(b.syms.types, name, b.scopes, b.usings)
}

func (b *builder) lookupFunc(name string) model.EntityID {
	return lookup(b.syms.funcs, name, b.scopes, b.usings)
}

func (b *builder) lookupValue(name string) model.EntityID {
	return lookup(b.syms.values, name, b.scopes, b.usings)
}

func (b *builder) pushLocals() {
	b.locals = append(b.locals, make(map[string]bool))
}

func (b *builder) popLocals() {
	b.locals = b.locals[:len(b.locals)-1]
}

// declareLocals records the names d introduces when it sits in a function.
func (b *builder) declareLocals(d *sitter.Node) {
	if len(b.locals) == 0 {
		return
	}
	for _, name := range b.declaredNames(d) {
		b.locals[len(b.locals)-1][name] = true
	}
}

// isLocal reports whether name is a parameter or local variable of an
// enclosing function, which hides namespace-scope entities.
func (b *builder) isLocal(name string) bool {
	for i := len(b.locals) - 1; i >= 0; i-- {
		if b.locals[i][name] {
			return true
		}
	}
	return false
}

// declaredNames returns the variable names a declarator introduces.
// Function declarators introduce none.
func (b *builder) declaredNames(d *sitter.Node) []string {
	for d != nil {
		switch d.Type() {
		case "identifier":
			return []string{b.text(d)}
		case "structured_binding_declarator":
			var out []string
			for i := 0; i < int(d.NamedChildCount()); i++ {
				if c := d.NamedChild(i); c.Type() == "identifier" {
					out = append(out, b.text(c))
				}
			}
			return out
		case "init_declarator", "pointer_declarator", "reference_declarator", "array_declarator",
			"parenthesized_declarator", "attributed_declarator":
			d = innerDeclarator(d)
		default:
			return nil
		}
	}
	return nil
}

// macro returns the macro name expands to, unless it is already being
// expanded.
func (b *builder) macro(name string) *macroDef {
	if b.active[name] {
		return nil
	}
	return b.syms.macros[name]
}

func (b *builder) isTemplateParam(name string) bool {
	for i := len(b.tparams) - 1; i >= 0; i-- {
		if b.tparams[i][name] {
			return true
		}
	}
	return false
}

func (b *builder) ref(kind model.NodeKind, id model.EntityID, name string, at *sitter.Node) *model.Node {
	return &model.Node{Kind: kind, Entity: id, Name: name, Loc: b.loc(at)}
}

func wrap(kind model.NodeKind, children []*model.Node) []*model.Node {
	if len(children) == 0 {
		return nil
	}
	n := &model.Node{Kind: kind}
	return []*model.Node{n.Append(children...)}
}

func (b *builder) buildChildren(n *sitter.Node) []*model.Node {
	if n == nil {
		return nil
	}
	var out []*model.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, b.build(n.NamedChild(i))...)
	}
	return out
}

// buildExcept builds the named children of n that are not one of skip.
func (b *builder) buildExcept(n *sitter.Node, skip ...*sitter.Node) []*model.Node {
	var out []*model.Node
next:
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		for _, s := range skip {
			if sameNode(c, s) {
				continue next
			}
		}
		out = append(out, b.build(c)...)
	}
	return out
}

func (b *builder) build(n *sitter.Node) []*model.Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "comment", "string_literal", "raw_string_literal", "char_literal", "concatenated_string",
		"number_literal", "true", "false", "null", "nullptr", "this", "primitive_type",
		"sized_type_specifier", "auto", "field_identifier", "namespace_identifier",
		"statement_identifier", "access_specifier", "system_lib_string", "preproc_include",
		"preproc_def", "preproc_function_def", "preproc_call", "friend_declaration",
		"attribute_declaration", "attribute_specifier", "namespace_alias_definition":
		return nil

	case "preproc_if", "preproc_elif":
		return b.buildExcept(n, n.ChildByFieldName("condition"))
	case "preproc_ifdef", "preproc_elifdef":
		return b.buildExcept(n, n.ChildByFieldName("name"))

	case "namespace_definition":
		return b.buildNamespace(n)
	case "using_declaration":
		return b.buildUsing(n)
	case "template_declaration":
		return b.buildTemplateDecl(n)
	case "function_definition":
		return b.buildFunction(n)
	case "declaration", "field_declaration":
		return b.buildDeclaration(n)
	case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
		return b.buildParam(n, false)
	case "class_specifier", "struct_specifier", "union_specifier":
		return b.buildClass(n)
	case "enum_specifier":
		return b.buildEnum(n)
	case "alias_declaration":
		return wrap(model.NodeIndirect, b.build(n.ChildByFieldName("type")))
	case "type_definition":
		return b.buildTypedef(n)

	case "type_identifier":
		return b.buildTypeName(n)
	case "identifier":
		return b.buildIdentifier(n)
	case "qualified_identifier", "qualified_type_identifier":
		return b.buildQualified(n)
	case "template_type", "template_function", "template_method":
		return b.buildTemplate(n, "")
	case "type_descriptor":
		inner := b.buildType(n.ChildByFieldName("type"))
		if isIndirect(n.ChildByFieldName("declarator")) {
			return wrap(model.NodeIndirect, inner)
		}
		return inner

	case "call_expression":
		return b.buildCall(n)
	case "new_expression", "sizeof_expression", "alignof_expression",
		"compound_literal_expression", "cast_expression":
		typ := n.ChildByFieldName("type")
		out := wrap(model.NodeVarDecl, b.buildType(typ))
		return append(out, b.buildExcept(n, typ)...)
	case "field_initializer_list":
		return b.buildMemberInits(n)
	case "base_class_clause":
		return wrap(model.NodeBases, b.buildChildren(n))
	case "for_range_loop":
		typ := n.ChildByFieldName("type")
		decl := n.ChildByFieldName("declarator")
		kind := model.NodeVarDecl
		if isIndirect(decl) {
			kind = model.NodeIndirect
		}
		b.pushLocals()
		defer b.popLocals()
		b.declareLocals(decl)
		out := wrap(kind, b.buildType(typ))
		return append(out, b.buildExcept(n, typ, decl)...)
	case "compound_statement":
		b.pushLocals()
		defer b.popLocals()
		return wrap(model.NodeScope, b.buildChildren(n))
	}
	return b.buildChildren(n)
}

func (b *builder) buildNamespace(n *sitter.Node) []*model.Node {
	if name := n.ChildByFieldName("name"); name != nil {
		b.pushScope(normalizeName(b.text(name)))
		defer b.popScope()
	}
	return wrap(model.NodeScope, b.buildChildren(n.ChildByFieldName("body")))
}

// buildUsing records "using namespace" directives for lookup and treats a
// using declaration as naming its target.
func (b *builder) buildUsing(n *sitter.Node) []*model.Node {
	directive := false
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "namespace" {
			directive = true
		}
	}
	count := int(n.NamedChildCount())
	if count == 0 {
		return nil
	}
	target := n.NamedChild(count - 1)
	if directive {
		name := normalizeName(b.text(target))
		if s := b.scope(); s != "" {
			b.usings = append(b.usings, qualify(s, name))
		}
		b.usings = append(b.usings, name)
		return nil
	}
	return wrap(model.NodeIndirect, b.build(target))
}

func (b *builder) buildTemplateDecl(n *sitter.Node) []*model.Node {
	params := n.ChildByFieldName("parameters")
	names, _ := templateParams(params, b.src.text)
	shadowed := make(map[string]bool, len(names))
	for _, name := range names {
		if name != "" {
			shadowed[name] = true
		}
	}
	b.tparams = append(b.tparams, shadowed)
	defer func() { b.tparams = b.tparams[:len(b.tparams)-1] }()

	var bounds []*model.Node
	if params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			switch p.Type() {
			case "optional_type_parameter_declaration":
				bounds = append(bounds, b.build(p.ChildByFieldName("default_type"))...)
			case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
				bounds = append(bounds, b.build(p.ChildByFieldName("type"))...)
				bounds = append(bounds, b.build(p.ChildByFieldName("default_value"))...)
			}
		}
	}

	var rest []*model.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch {
		case sameNode(c, params):
		case c.Type() == "requires_clause":
			bounds = append(bounds, b.buildChildren(c)...)
		default:
			rest = append(rest, b.build(c)...)
		}
	}
	return append(wrap(model.NodeTemplateParams, bounds), rest...)
}

func (b *builder) buildFunction(n *sitter.Node) []*model.Node {
	b.pushLocals()
	defer b.popLocals()

	var out []*model.Node
	typ := n.ChildByFieldName("type")
	decl := n.ChildByFieldName("declarator")
	body := n.ChildByFieldName("body")
	if typ != nil {
		kind := model.NodeVarDecl
		if isIndirect(decl) {
			kind = model.NodeIndirect
		}
		out = append(out, wrap(kind, b.buildType(typ))...)
	}

	if fd := functionDeclarator(decl); fd != nil {
		if name := fd.ChildByFieldName("declarator"); name != nil && name.Type() == "qualified_identifier" {
			// Out-of-line member definitions need the class definition.
			if scope, _ := splitQualified(normalizeName(b.text(name))); scope != "" {
				if id := b.lookupType(scope); id != "" {
					out = append(out, b.ref(model.NodeTypeRef, id, scope, name))
				}
				b.pushScope(scope)
				defer b.popScope()
			}
		}
		out = append(out, b.buildParams(fd.ChildByFieldName("parameters"), false)...)
		out = append(out, b.buildExcept(fd, fd.ChildByFieldName("declarator"), fd.ChildByFieldName("parameters"))...)
	}

	out = append(out, b.buildExcept(n, typ, decl, body)...)
	out = append(out, b.build(body)...)
	return wrap(model.NodeScope, out)
}

func (b *builder) buildParams(list *sitter.Node, proto bool) []*model.Node {
	if list == nil {
		return nil
	}
	var out []*model.Node
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p := list.NamedChild(i)
		switch p.Type() {
		case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
			out = append(out, b.buildParam(p, proto)...)
		default:
			out = append(out, b.build(p)...)
		}
	}
	return out
}

// buildParam lowers one parameter. Parameters of a prototype never need
// their type's definition.
func (b *builder) buildParam(p *sitter.Node, proto bool) []*model.Node {
	kind := model.NodeVarDecl
	if proto || isIndirect(p.ChildByFieldName("declarator")) {
		kind = model.NodeIndirect
	}
	out := wrap(kind, b.buildType(p.ChildByFieldName("type")))
	out = append(out, b.build(p.ChildByFieldName("default_value"))...)
	if !proto {
		b.declareLocals(p.ChildByFieldName("declarator"))
	}
	return out
}

// buildType lowers the type of a declaration. Class and enum definitions
// contribute their bodies rather than a use of themselves.
func (b *builder) buildType(typ *sitter.Node) []*model.Node {
	if typ == nil {
		return nil
	}
	switch typ.Type() {
	case "class_specifier", "struct_specifier", "union_specifier":
		return b.buildClass(typ)
	case "enum_specifier":
		return b.buildEnum(typ)
	}
	return b.build(typ)
}

func definesBody(typ *sitter.Node) bool {
	if typ == nil {
		return false
	}
	switch typ.Type() {
	case "class_specifier", "struct_specifier", "union_specifier", "enum_specifier":
		return typ.ChildByFieldName("body") != nil
	}
	return false
}

func (b *builder) buildDeclaration(n *sitter.Node) []*model.Node {
	typ := n.ChildByFieldName("type")
	decls := declarators(n)

	byValue := len(decls) == 0
	for _, d := range decls {
		if declaratorShape(d) == shapeValue {
			byValue = true
		}
	}

	var out []*model.Node
	switch {
	case definesBody(typ):
		out = b.buildType(typ)
	case byValue:
		out = wrap(model.NodeVarDecl, b.buildType(typ))
	default:
		out = wrap(model.NodeIndirect, b.buildType(typ))
	}
	for _, d := range decls {
		out = append(out, b.buildDeclarator(d)...)
	}
	out = append(out, b.build(n.ChildByFieldName("default_value"))...)
	if n.Type() == "declaration" {
		for _, d := range decls {
			b.declareLocals(d)
		}
	}
	return out
}

// buildDeclarator lowers what a declarator contributes beyond its name:
// initializers, array bounds and prototype parameters.
func (b *builder) buildDeclarator(d *sitter.Node) []*model.Node {
	if d == nil {
		return nil
	}
	switch d.Type() {
	case "init_declarator":
		out := b.buildDeclarator(d.ChildByFieldName("declarator"))
		return append(out, b.build(d.ChildByFieldName("value"))...)
	case "function_declarator":
		out := b.buildDeclarator(d.ChildByFieldName("declarator"))
		out = append(out, b.buildParams(d.ChildByFieldName("parameters"), true)...)
		for i := 0; i < int(d.NamedChildCount()); i++ {
			if c := d.NamedChild(i); c.Type() == "trailing_return_type" {
				out = append(out, wrap(model.NodeIndirect, b.buildChildren(c))...)
			}
		}
		return out
	case "array_declarator":
		out := b.buildDeclarator(d.ChildByFieldName("declarator"))
		return append(out, b.build(d.ChildByFieldName("size"))...)
	case "pointer_declarator", "reference_declarator", "parenthesized_declarator", "attributed_declarator":
		return b.buildDeclarator(innerDeclarator(d))
	case "qualified_identifier":
		// "int Foo::count = 0;" defines a member of Foo.
		if scope, _ := splitQualified(normalizeName(b.text(d))); scope != "" {
			if id := b.lookupType(scope); id != "" {
				return []*model.Node{b.ref(model.NodeTypeRef, id, scope, d)}
			}
		}
	}
	return nil
}

func (b *builder) buildClass(n *sitter.Node) []*model.Node {
	name := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	if body == nil {
		return b.build(name)
	}

	var out []*model.Node
	if name != nil && name.Type() == "template_type" {
		// A specialization names its primary template.
		out = append(out, wrap(model.NodeIndirect, b.build(name))...)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "base_class_clause" {
			out = append(out, b.build(c)...)
		}
	}
	if name != nil {
		b.pushScope(normalizeName(b.text(name)))
		defer b.popScope()
	}
	return append(out, wrap(model.NodeScope, b.buildChildren(body))...)
}

func (b *builder) buildEnum(n *sitter.Node) []*model.Node {
	name := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	if body == nil {
		return b.build(name)
	}
	out := wrap(model.NodeVarDecl, b.build(n.ChildByFieldName("base")))
	return append(out, b.buildChildren(body)...)
}

func (b *builder) buildTypedef(n *sitter.Node) []*model.Node {
	typ := n.ChildByFieldName("type")
	var out []*model.Node
	if definesBody(typ) {
		out = b.buildType(typ)
	} else {
		out = wrap(model.NodeIndirect, b.buildType(typ))
	}
	for _, d := range declarators(n) {
		if d.Type() == "function_declarator" || d.Type() == "pointer_declarator" {
			out = append(out, b.buildDeclarator(d)...)
		}
	}
	return out
}

func (b *builder) buildTypeName(n *sitter.Node) []*model.Node {
	name := b.text(n)
	if b.isTemplateParam(name) {
		return nil
	}
	if m := b.macro(name); m != nil && !m.FunctionLike {
		return b.expand(n, m, nil, true)
	}
	if id := b.lookupType(name); id != "" {
		return []*model.Node{b.ref(model.NodeTypeRef, id, name, n)}
	}
	return nil
}

func (b *builder) buildIdentifier(n *sitter.Node) []*model.Node {
	name := b.text(n)
	if b.isTemplateParam(name) {
		return nil
	}
	if m := b.macro(name); m != nil && !m.FunctionLike {
		return b.expand(n, m, nil, false)
	}
	if b.isLocal(name) {
		return nil
	}
	if id := b.lookupFunc(name); id != "" {
		return []*model.Node{b.ref(model.NodeDeclRef, id, name, n)}
	}
	if id := b.lookupValue(name); id != "" {
		return []*model.Node{b.ref(model.NodeDeclRef, id, name, n)}
	}
	if id := b.lookupType(name); id != "" {
		return []*model.Node{b.ref(model.NodeTypeRef, id, name, n)}
	}
	return nil
}

// buildQualified resolves a qualified name as a function, a variable or
// enumerator, then a type, and otherwise falls back to the innermost enclosing class it names.
func (b *builder) buildQualified(n *sitter.Node) []*model.Node {
	full := normalizeName(b.text(n))
	name := n.ChildByFieldName("name")
	for name != nil && (name.Type() == "qualified_identifier" || name.Type() == "qualified_type_identifier") {
		name = name.ChildByFieldName("name")
	}
	if name != nil {
		switch name.Type() {
		case "template_type", "template_function", "template_method":
			return b.buildTemplate(name, full)
		}
	}
	if id := b.lookupFunc(full); id != "" {
		return []*model.Node{b.ref(model.NodeDeclRef, id, full, n)}
	}
	if id := b.lookupValue(full); id != "" {
		return []*model.Node{b.ref(model.NodeDeclRef, id, full, n)}
	}
	if id := b.lookupType(full); id != "" {
		return []*model.Node{b.ref(model.NodeTypeRef, id, full, n)}
	}

	if scope := n.ChildByFieldName("scope"); scope != nil && scope.Type() == "template_type" {
		return b.build(scope)
	}
	for scope, _ := splitQualified(full); scope != ""; scope, _ = splitQualified(scope) {
		if id := b.lookupType(scope); id != "" {
			return []*model.Node{b.ref(model.NodeTypeRef, id, scope, n)}
		}
	}
	return nil
}

// buildTemplate lowers a template name with its argument list. qualified
// overrides the spelled name when the template was reached through a
// qualified identifier.
func (b *builder) buildTemplate(n *sitter.Node, qualified string) []*model.Node {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return b.buildChildren(n)
	}
	name := qualified
	if name == "" {
		name = normalizeName(b.text(nameNode))
	}

	var id model.EntityID
	switch n.Type() {
	case "template_type":
		id = b.lookupType(name)
	case "template_function":
		if id = b.lookupFunc(name); id == "" {
			id = b.lookupType(name)
		}
	}
	ref := b.ref(model.NodeTemplateRef, id, name, nameNode)
	if b.isTemplateParam(name) {
		ref.Entity = ""
	}
	ref.Append(b.templateArgs(n.ChildByFieldName("arguments")))
	return []*model.Node{ref}
}

// templateArgs lowers an argument list to exactly one node per argument so
// positions survive; arguments naming nothing become empty scopes.
func (b *builder) templateArgs(list *sitter.Node) *model.Node {
	args := &model.Node{Kind: model.NodeTemplateArgs}
	if list == nil {
		return args
	}
	for i := 0; i < int(list.NamedChildCount()); i++ {
		c := list.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		nodes := b.build(c)
		switch len(nodes) {
		case 0:
			args.Append(&model.Node{Kind: model.NodeScope, Loc: b.loc(c)})
		case 1:
			args.Append(nodes[0])
		default:
			args.Append((&model.Node{Kind: model.NodeScope, Loc: b.loc(c)}).Append(nodes...))
		}
	}
	return args
}

func (b *builder) buildCall(n *sitter.Node) []*model.Node {
	fn := n.ChildByFieldName("function")
	args := n.ChildByFieldName("arguments")
	if fn == nil {
		return b.buildChildren(n)
	}

	var callee *model.Node
	switch fn.Type() {
	case "identifier":
		name := b.text(fn)
		if m := b.macro(name); m != nil {
			if m.FunctionLike {
				return b.expandCall(fn, args, m)
			}
			return append(b.expand(fn, m, nil, false), b.build(args)...)
		}
		if b.isTemplateParam(name) || b.isLocal(name) {
			return b.build(args)
		}
		if id := b.lookupFunc(name); id != "" {
			callee = b.ref(model.NodeDeclRef, id, name, fn)
		} else if id := b.lookupValue(name); id != "" {
			callee = b.ref(model.NodeDeclRef, id, name, fn)
		} else if id := b.lookupType(name); id != "" {
			callee = b.ref(model.NodeTypeRef, id, name, fn)
		}
	case "qualified_identifier", "template_function":
		nodes := b.build(fn)
		if len(nodes) == 1 && nodes[0].IsNameUse() {
			callee = nodes[0]
		} else {
			return append(nodes, b.build(args)...)
		}
	default:
		return append(b.build(fn), b.build(args)...)
	}

	if callee == nil {
		return b.build(args)
	}
	call := &model.Node{Kind: model.NodeCall, Loc: b.loc(n)}
	call.Append(callee)
	call.Append(b.build(args)...)
	return []*model.Node{call}
}

// buildMemberInits lowers a constructor's initializer list. Initializers
// naming a class are base initializers.
func (b *builder) buildMemberInits(n *sitter.Node) []*model.Node {
	var out []*model.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		fi := n.NamedChild(i)
		if fi.NamedChildCount() == 0 {
			continue
		}
		target := fi.NamedChild(0)
		var base []*model.Node
		switch target.Type() {
		case "field_identifier", "qualified_field_identifier", "qualified_identifier":
			name := normalizeName(b.text(target))
			if id := b.lookupType(name); id != "" {
				base = []*model.Node{b.ref(model.NodeTypeRef, id, name, target)}
			}
		case "template_method":
			base = b.buildTemplate(target, "")
			if len(base) == 1 && base[0].Entity == "" {
				if nameNode := target.ChildByFieldName("name"); nameNode != nil {
					base[0].Entity = b.lookupType(normalizeName(b.text(nameNode)))
				}
			}
		}
		out = append(out, wrap(model.NodeMemberInit, base)...)
		out = append(out, b.buildExcept(fi, target)...)
	}
	return out
}
