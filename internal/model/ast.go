package model

import "github.com/phobologic/hdrcheck/internal/location"

// NodeKind is the syntactic role of an AST node.
type NodeKind string

const (
	NodeUnit           NodeKind = "unit"
	NodeScope          NodeKind = "scope"
	NodeCall           NodeKind = "call" // Children[0] is the callee
	NodeDeclRef        NodeKind = "decl-ref"
	NodeTypeRef        NodeKind = "type-ref"
	NodeTemplateRef    NodeKind = "template-ref"
	NodeTemplateArgs   NodeKind = "template-args"
	NodeTemplateParams NodeKind = "template-params"
	NodeVarDecl        NodeKind = "var-decl"
	NodeIndirect       NodeKind = "indirect"
	NodeBases          NodeKind = "bases"
	NodeMemberInit     NodeKind = "member-init"
	NodeMacroExpansion NodeKind = "macro-expansion"
)

// Node is a node of the resolved AST a front-end hands to the engine.
// Only name-use nodes carry an Entity.
type Node struct {
	Kind     NodeKind
	Entity   EntityID
	Name     string
	Loc      location.Location
	Children []*Node
}

// IsNameUse reports whether n refers to a declared entity.
func (n *Node) IsNameUse() bool {
	switch n.Kind {
	case NodeDeclRef, NodeTypeRef, NodeTemplateRef, NodeMacroExpansion:
		return n.Entity != ""
	}
	return false
}

// Append adds non-nil children and returns n.
func (n *Node) Append(children ...*Node) *Node {
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the children of that node.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}
