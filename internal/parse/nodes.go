package parse

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// shape is what a declarator makes of the type it is attached to.
type shape int

const (
	shapeValue shape = iota
	shapeIndirect
	shapeFunction
)

var declaratorTypes = map[string]bool{
	"identifier":                        true,
	"field_identifier":                  true,
	"type_identifier":                   true,
	"qualified_identifier":              true,
	"destructor_name":                   true,
	"operator_name":                     true,
	"init_declarator":                   true,
	"pointer_declarator":                true,
	"reference_declarator":              true,
	"function_declarator":               true,
	"array_declarator":                  true,
	"parenthesized_declarator":          true,
	"attributed_declarator":             true,
	"structured_binding_declarator":     true,
	"abstract_pointer_declarator":       true,
	"abstract_reference_declarator":     true,
	"abstract_array_declarator":         true,
	"abstract_function_declarator":      true,
	"abstract_parenthesized_declarator": true,
}

// declarators returns the declarators of a declaration-like node, skipping
// its type and anything after a default member initializer.
func declarators(n *sitter.Node) []*sitter.Node {
	switch n.Type() {
	case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration",
		"type_descriptor", "for_range_loop", "function_definition":
		if d := n.ChildByFieldName("declarator"); d != nil {
			return []*sitter.Node{d}
		}
		return nil
	}
	typ := n.ChildByFieldName("type")
	var out []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() == "=" {
			break
		}
		if !c.IsNamed() || sameNode(c, typ) || !declaratorTypes[c.Type()] {
			continue
		}
		out = append(out, c)
	}
	return out
}

// declaratorShape classifies a declarator. A pointer to a function
// declarator is still a function declaration ("Foo* make();").
func declaratorShape(d *sitter.Node) shape {
	for d != nil {
		switch d.Type() {
		case "init_declarator", "attributed_declarator", "parenthesized_declarator", "abstract_parenthesized_declarator":
			d = innerDeclarator(d)
		case "function_declarator", "abstract_function_declarator":
			return shapeFunction
		case "pointer_declarator", "reference_declarator", "abstract_pointer_declarator", "abstract_reference_declarator":
			if hasFunctionDeclarator(innerDeclarator(d)) {
				return shapeFunction
			}
			return shapeIndirect
		default:
			return shapeValue
		}
	}
	return shapeValue
}

func hasFunctionDeclarator(d *sitter.Node) bool {
	for d != nil {
		switch d.Type() {
		case "function_declarator":
			return true
		case "pointer_declarator", "reference_declarator", "parenthesized_declarator", "attributed_declarator":
			d = innerDeclarator(d)
		default:
			return false
		}
	}
	return false
}

// isIndirect reports whether d's outermost type operator is a pointer or
// reference.
func isIndirect(d *sitter.Node) bool {
	for d != nil {
		switch d.Type() {
		case "parenthesized_declarator", "attributed_declarator", "abstract_parenthesized_declarator":
			d = innerDeclarator(d)
		case "pointer_declarator", "reference_declarator", "abstract_pointer_declarator", "abstract_reference_declarator":
			return true
		default:
			return false
		}
	}
	return false
}

// functionDeclarator finds the function_declarator below d, if any.
func functionDeclarator(d *sitter.Node) *sitter.Node {
	for d != nil {
		if d.Type() == "function_declarator" {
			return d
		}
		switch d.Type() {
		case "pointer_declarator", "reference_declarator", "parenthesized_declarator", "attributed_declarator", "init_declarator":
			d = innerDeclarator(d)
		default:
			return nil
		}
	}
	return nil
}

func innerDeclarator(d *sitter.Node) *sitter.Node {
	if inner := d.ChildByFieldName("declarator"); inner != nil {
		return inner
	}
	for i := int(d.NamedChildCount()) - 1; i >= 0; i-- {
		if c := d.NamedChild(i); declaratorTypes[c.Type()] {
			return c
		}
	}
	return nil
}

func firstNamed(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == typ {
			return c
		}
	}
	return nil
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}
