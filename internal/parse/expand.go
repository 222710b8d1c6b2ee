package parse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/hdrcheck/internal/location"
	"github.com/phobologic/hdrcheck/internal/model"
)

// Replacement text is parsed inside a synthetic function so statements and
// expressions both form a valid tree. Type-position expansions become the
// type of a dummy declaration.
const (
	expansionPrefix = "void __hdrcheck_expansion__() {\n"
	exprSuffix      = ";\n}\n"
	typeSuffix      = " __hdrcheck_v;\n}\n"
)

// DefaultMaxExpansionDepth bounds nested macro expansion.
const DefaultMaxExpansionDepth = 16

func (b *builder) expandCall(callee, args *sitter.Node, m *macroDef) []*model.Node {
	var list []macroArg
	if args != nil {
		lo, hi := int(args.StartByte())+1, int(args.EndByte())-1
		if hi < lo {
			hi = lo
		}
		list = splitArgs(b.src.text, lo, hi)
	}
	return b.expand(callee, m, list, false)
}

// expand lowers one macro invocation at the name node at. The result is a
// single MacroExpansion node carrying the macro's own use and the uses its
// replacement text makes. Tokens that came from an argument keep their
// call-site position and are flagged InArgument.
func (b *builder) expand(at *sitter.Node, m *macroDef, args []macroArg, typePos bool) []*model.Node {
	callLoc := b.loc(at)
	node := &model.Node{Kind: model.NodeMacroExpansion, Entity: m.ID, Name: m.Name, Loc: callLoc}
	if b.depth >= b.maxDepth {
		b.logger.Warn("macro expansion too deep", "macro", m.Name, "at", callLoc.String(), "limit", b.maxDepth)
		return []*model.Node{node}
	}

	exp := m.expand(args, b.src.text)
	suffix := exprSuffix
	if typePos {
		suffix = typeSuffix
	}
	text := []byte(expansionPrefix + exp.text + suffix)
	tree, err := b.parser.ParseCtx(b.ctx, nil, text)
	if err != nil {
		b.logger.Warn("parsing macro expansion", "macro", m.Name, "at", callLoc.String(), "err", err)
		return []*model.Node{node}
	}
	defer tree.Close()

	frame := location.Frame{Macro: m.Name, Definition: m.DefSite, Call: callLoc.FileSite}
	chain := append([]location.Frame{frame}, callLoc.Expansion...)
	outer := b.src
	src := &source{
		text: text,
		locate: func(off int) location.Location {
			seg, origin := exp.locate(off - len(expansionPrefix))
			if seg.arg {
				l := outer.locate(origin)
				l.Expansion = append([]location.Frame{frame}, l.Expansion...)
				l.InArgument = true
				return l
			}
			return location.Location{FileSite: m.bodyLocation(origin), Expansion: chain}
		},
	}

	b.src = src
	b.active[m.Name] = true
	b.depth++
	defer func() {
		b.depth--
		delete(b.active, m.Name)
		b.src = outer
	}()

	body := expansionBody(tree.RootNode())
	switch {
	case body == nil:
		node.Append(b.buildChildren(tree.RootNode())...)
	case typePos && firstNamed(body, "declaration") != nil:
		node.Append(b.buildType(firstNamed(body, "declaration").ChildByFieldName("type"))...)
	default:
		node.Append(b.buildChildren(body)...)
	}
	return []*model.Node{node}
}

func expansionBody(root *sitter.Node) *sitter.Node {
	fn := firstNamed(root, "function_definition")
	if fn == nil {
		return nil
	}
	return fn.ChildByFieldName("body")
}
