package parse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/hdrcheck/internal/lang"
	"github.com/phobologic/hdrcheck/internal/model"
)

// templateParams returns the parameter names of a template_parameter_list in
// order. Parameters the body cannot use as a type get an empty name.
func templateParams(list *sitter.Node, src []byte) (names []string, variadic bool) {
	if list == nil {
		return nil, false
	}
	n := int(list.NamedChildCount())
	for i := 0; i < n; i++ {
		p := list.NamedChild(i)
		name := ""
		switch p.Type() {
		case "type_parameter_declaration", "variadic_type_parameter_declaration":
			if id := firstNamed(p, "type_identifier"); id != nil {
				name = lang.NodeText(id, src)
			}
		case "optional_type_parameter_declaration":
			if id := p.ChildByFieldName("name"); id != nil {
				name = lang.NodeText(id, src)
			}
		case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
			// Constrained type parameters ("Concept T") parse as parameter
			// declarations; non-type parameters never occur as type names.
			if d := p.ChildByFieldName("declarator"); d != nil && d.Type() == "identifier" {
				name = lang.NodeText(d, src)
			}
		case "comment":
			continue
		}
		names = append(names, name)
		variadic = i == n-1 && isVariadicParam(p)
	}
	return names, variadic
}

func isVariadicParam(p *sitter.Node) bool {
	switch p.Type() {
	case "variadic_type_parameter_declaration", "variadic_parameter_declaration":
		return true
	}
	return false
}

// completeProfile marks every parameter of a class template Complete: a
// class body may hold any of them by value.
func completeProfile(list *sitter.Node, src []byte) ([]model.ParamUse, bool) {
	names, variadic := templateParams(list, src)
	if len(names) == 0 {
		return nil, false
	}
	uses := make([]model.ParamUse, len(names))
	for i := range uses {
		uses[i] = model.Complete
	}
	return uses, variadic
}

// profileFunction records, for each template parameter of a function
// template, whether the template's signature or body needs the argument's
// full definition.
func profileFunction(params []string, fn *sitter.Node, src []byte) []model.ParamUse {
	if len(params) == 0 {
		return nil
	}
	uses := make([]model.ParamUse, len(params))
	pos := make(map[string]int, len(params))
	for i, name := range params {
		uses[i] = model.Opaque
		if name != "" {
			pos[name] = i
		}
	}

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "type_identifier", "namespace_identifier", "identifier":
			if i, ok := pos[lang.NodeText(n, src)]; ok && uses[i] != model.Complete && completeUse(n) {
				uses[i] = model.Complete
			}
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(fn)
	return uses
}

// completeUse reports whether the type name n appears in a position that
// requires its definition.
func completeUse(n *sitter.Node) bool {
	child := n
	for p := n.Parent(); p != nil; child, p = p, p.Parent() {
		switch p.Type() {
		case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration",
			"declaration", "field_declaration", "for_range_loop", "type_descriptor":
			if !sameNode(child, p.ChildByFieldName("type")) {
				continue
			}
			return !allIndirect(p)
		case "function_definition":
			if sameNode(child, p.ChildByFieldName("type")) {
				return !isIndirect(p.ChildByFieldName("declarator"))
			}
			return false
		case "qualified_identifier":
			// T::member needs T's definition.
			return sameNode(child, p.ChildByFieldName("scope"))
		case "call_expression":
			return sameNode(child, p.ChildByFieldName("function"))
		case "template_argument_list", "base_class_clause", "new_expression",
			"sizeof_expression", "alignof_expression", "compound_literal_expression":
			return true
		case "compound_statement", "template_declaration":
			return false
		}
	}
	return false
}

// allIndirect reports whether every declarator of a declaration-like node
// is a pointer or reference. A node without declarators declares by value.
func allIndirect(n *sitter.Node) bool {
	decls := declarators(n)
	if len(decls) == 0 {
		return false
	}
	for _, d := range decls {
		if declaratorShape(d) != shapeIndirect {
			return false
		}
	}
	return true
}
