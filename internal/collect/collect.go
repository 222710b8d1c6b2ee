// Package collect walks a resolved AST and emits one Reference per name use.
package collect

import "github.com/phobologic/hdrcheck/internal/model"

// role is the syntactic context a name use appears in.
type role int

const (
	roleNone role = iota
	roleCallee
	roleValue
	roleIndirect
	roleTemplateArg
	roleTemplateBound
)

type useContext struct {
	role     role
	template model.EntityID
	argIndex int
}

type collector struct {
	refs []model.Reference
}

// Collect returns the references of root in document order. Order carries
// no meaning for verdicts but keeps diagnostics reproducible.
func Collect(root *model.Node) []model.Reference {
	c := &collector{}
	c.visit(root, useContext{})
	return c.refs
}

func (c *collector) visit(n *model.Node, ctx useContext) {
	if n == nil {
		return
	}

	switch n.Kind {
	case model.NodeCall:
		if len(n.Children) == 0 {
			return
		}
		c.visit(n.Children[0], useContext{role: roleCallee})
		for _, arg := range n.Children[1:] {
			c.visit(arg, useContext{})
		}

	case model.NodeDeclRef:
		c.emit(n, ctx, declRefMode(ctx))

	case model.NodeTypeRef:
		c.emit(n, ctx, typeRefMode(ctx))

	case model.NodeTemplateRef:
		c.emit(n, ctx, templateRefMode(ctx))
		for _, child := range n.Children {
			if child.Kind != model.NodeTemplateArgs {
				c.visit(child, useContext{})
				continue
			}
			for i, arg := range child.Children {
				c.visit(arg, useContext{role: roleTemplateArg, template: n.Entity, argIndex: i})
			}
		}

	case model.NodeTemplateArgs:
		// Argument lists without a resolved template still name types.
		for i, arg := range n.Children {
			c.visit(arg, useContext{role: roleTemplateArg, argIndex: i})
		}

	case model.NodeMacroExpansion:
		if n.Entity != "" {
			c.emit(n, ctx, model.Call)
		}
		for _, child := range n.Children {
			c.visit(child, ctx)
		}

	case model.NodeVarDecl, model.NodeBases, model.NodeMemberInit:
		c.visitChildren(n, useContext{role: roleValue})

	case model.NodeIndirect:
		c.visitChildren(n, useContext{role: roleIndirect})

	case model.NodeTemplateParams:
		c.visitChildren(n, useContext{role: roleTemplateBound})

	default:
		c.visitChildren(n, useContext{})
	}
}

func (c *collector) visitChildren(n *model.Node, ctx useContext) {
	for _, child := range n.Children {
		c.visit(child, ctx)
	}
}

func (c *collector) emit(n *model.Node, ctx useContext, mode model.UsageMode) {
	if n.Entity == "" {
		return
	}
	ref := model.Reference{
		Entity: n.Entity,
		Name:   n.Name,
		Mode:   mode,
		Loc:    n.Loc,
		Site:   n.Loc.EffectiveSite(),
	}
	switch ctx.role {
	case roleTemplateArg:
		ref.Template = ctx.template
		ref.ArgIndex = ctx.argIndex
	case roleTemplateBound:
		ref.Bound = true
	}
	if n.Loc.InArgument && n.Loc.InMacro() && n.Kind != model.NodeMacroExpansion {
		ref.Inner = mode
		ref.Mode = model.MacroArgument
	}
	c.refs = append(c.refs, ref)
}

func declRefMode(ctx useContext) model.UsageMode {
	switch ctx.role {
	case roleCallee:
		return model.Call
	case roleTemplateArg, roleTemplateBound:
		return model.TemplateArgument
	default:
		// A function named without being called only needs its prototype.
		return model.ByPointer
	}
}

func typeRefMode(ctx useContext) model.UsageMode {
	switch ctx.role {
	case roleIndirect:
		return model.ByPointer
	case roleTemplateArg, roleTemplateBound:
		return model.TemplateArgument
	default:
		return model.ByValue
	}
}

func templateRefMode(ctx useContext) model.UsageMode {
	switch ctx.role {
	case roleIndirect:
		return model.ByPointer
	case roleTemplateArg, roleTemplateBound:
		return model.TemplateArgument
	default:
		return model.Instantiate
	}
}
