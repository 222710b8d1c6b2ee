package parse

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/hdrcheck/internal/lang"
	"github.com/phobologic/hdrcheck/internal/location"
	"github.com/phobologic/hdrcheck/internal/model"
)

// fileDecls holds what one parsed file contributes to a unit.
type fileDecls struct {
	decls  []model.Declaration
	macros []*macroDef
}

// extractDeclarations runs the language's declaration query over root and
// turns each match into a Declaration provided by file.
func extractDeclarations(l *lang.Language, root *sitter.Node, src []byte, file string) (fileDecls, error) {
	var out fileDecls
	q, err := l.GetDeclQuery()
	if err != nil {
		return out, fmt.Errorf("query for %s: %w", l.Name, err)
	}

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	header := lang.IsHeader(file)
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		m = qc.FilterPredicates(m, src)

		var nameNode, defNode *sitter.Node
		var kind string
		for _, c := range m.Captures {
			if name := q.CaptureNameForId(c.Index); name == "name" {
				nameNode = c.Node
			} else {
				kind = name
				defNode = c.Node
			}
		}
		if nameNode == nil || defNode == nil {
			continue
		}

		site := nodeSite(file, nameNode)
		switch kind {
		case "function":
			if d, ok := functionDecl(defNode, nameNode, src, file, header); ok {
				d.Site = site
				out.decls = append(out.decls, d)
			}
		case "class":
			if d, ok := classDecl(defNode, nameNode, src, file); ok {
				d.Site = site
				out.decls = append(out.decls, d)
			}
		case "alias":
			if d, ok := aliasDecl(defNode, nameNode, src, file); ok {
				d.Site = site
				out.decls = append(out.decls, d)
			}
		case "variable":
			if d, ok := variableDecl(defNode, nameNode, src, file); ok {
				d.Site = site
				out.decls = append(out.decls, d)
			}
		case "enumerator":
			for _, d := range enumeratorDecls(defNode, nameNode, src, file) {
				d.Site = site
				out.decls = append(out.decls, d)
			}
		case "macro":
			md := newMacroDef(defNode, nameNode, src, file)
			out.macros = append(out.macros, md)
			out.decls = append(out.decls, model.Declaration{
				ID:        md.ID,
				Name:      md.Name,
				Kind:      model.Macro,
				DefHeader: file,
				Site:      site,
			})
		}
	}

	out.decls = append(out.decls, conceptDecls(root, src, file)...)
	for i := range out.decls {
		d := &out.decls[i]
		if d.DefHeader != "" && d.DeclHeader == "" && d.Kind != model.Macro {
			d.DeclHeader = file
		}
	}
	return out, nil
}

func nodeSite(file string, n *sitter.Node) location.FileSite {
	p := n.StartPoint()
	return location.FileSite{File: file, Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

// declaratorWrappers are the declarator nodes that may sit between a
// function_declarator and the declaration that owns it.
var declaratorWrappers = map[string]bool{
	"pointer_declarator":       true,
	"reference_declarator":     true,
	"parenthesized_declarator": true,
	"attributed_declarator":    true,
	"init_declarator":          true,
}

func functionDecl(fd, nameNode *sitter.Node, src []byte, file string, header bool) (model.Declaration, bool) {
	var d model.Declaration
	name, ok := declaredName(nameNode, src)
	if !ok {
		return d, false
	}

	owner := fd.Parent()
	for owner != nil && declaratorWrappers[owner.Type()] {
		owner = owner.Parent()
	}
	if owner == nil {
		return d, false
	}

	prefix, member, local := scopePrefix(owner, src)
	if member || local {
		return d, false
	}

	tmpl := owner.Parent()
	templated := tmpl != nil && tmpl.Type() == "template_declaration"

	d.Name = qualify(prefix, name)
	d.Kind = model.Function
	if templated {
		d.Kind = model.TemplateFunction
	}
	d.ID = entityID(d.Kind, d.Name)

	switch owner.Type() {
	case "function_definition":
		d.DefHeader = file
		d.Inline = header || templated || hasSpecifier(owner, src, "inline")
	case "declaration":
		d.DeclHeader = file
	default:
		return d, false
	}

	if templated {
		params, variadic := templateParams(tmpl.ChildByFieldName("parameters"), src)
		d.Params = profileFunction(params, owner, src)
		d.Variadic = variadic
	}
	return d, true
}

func classDecl(spec, nameNode *sitter.Node, src []byte, file string) (model.Declaration, bool) {
	var d model.Declaration
	name, ok := declaredName(nameNode, src)
	if !ok {
		return d, false
	}
	prefix, _, local := scopePrefix(spec, src)
	if local {
		return d, false
	}

	parent := spec.Parent()
	defined := spec.ChildByFieldName("body") != nil
	if !defined && !forwardDeclaration(spec) {
		// An elaborated type specifier names a type without declaring it.
		return d, false
	}

	d.Name = qualify(prefix, name)
	d.Kind = model.Class
	if defined {
		d.DefHeader = file
	} else {
		d.DeclHeader = file
	}
	if parent != nil && parent.Type() == "template_declaration" {
		d.Kind = model.TemplateClass
		d.Params, d.Variadic = completeProfile(parent.ChildByFieldName("parameters"), src)
	}
	d.ID = entityID(d.Kind, d.Name)
	return d, true
}

func aliasDecl(n, nameNode *sitter.Node, src []byte, file string) (model.Declaration, bool) {
	var d model.Declaration
	prefix, _, local := scopePrefix(n, src)
	if local {
		return d, false
	}
	d.Name = qualify(prefix, normalizeName(lang.NodeText(nameNode, src)))
	d.Kind = model.Class
	d.DefHeader = file
	if p := n.Parent(); p != nil && p.Type() == "template_declaration" {
		d.Kind = model.TemplateClass
		d.Params, d.Variadic = completeProfile(p.ChildByFieldName("parameters"), src)
	}
	d.ID = entityID(d.Kind, d.Name)
	return d, true
}

// variableDecl indexes a namespace-scope variable. An extern declaration
// without initializer only declares it; anything else defines it.
func variableDecl(n, nameNode *sitter.Node, src []byte, file string) (model.Declaration, bool) {
	var d model.Declaration
	prefix, member, local := scopePrefix(n, src)
	if member || local {
		return d, false
	}
	initialized := false
	for p := nameNode.Parent(); p != nil && !sameNode(p, n); p = p.Parent() {
		if p.Type() == "init_declarator" {
			initialized = true
		}
	}

	d.Name = qualify(prefix, lang.NodeText(nameNode, src))
	d.Kind = model.Variable
	d.ID = entityID(d.Kind, d.Name)
	if hasSpecifier(n, src, "extern") && !initialized {
		d.DeclHeader = file
		return d, true
	}
	d.DefHeader = file
	d.Inline = initialized && (hasQualifier(n, src, "constexpr") || hasQualifier(n, src, "const"))
	return d, true
}

// enumeratorDecls indexes an enumerator under its enum's name and, for
// unscoped enums, under the enclosing scope as well.
func enumeratorDecls(n, nameNode *sitter.Node, src []byte, file string) []model.Declaration {
	list := n.Parent()
	if list == nil || list.Parent() == nil || list.Parent().Type() != "enum_specifier" {
		return nil
	}
	spec := list.Parent()
	prefix, _, local := scopePrefix(spec, src)
	if local {
		return nil
	}

	name := lang.NodeText(nameNode, src)
	scoped := false
	for i := 0; i < int(spec.ChildCount()); i++ {
		if t := spec.Child(i).Type(); t == "class" || t == "struct" {
			scoped = true
		}
	}

	var names []string
	if enum := spec.ChildByFieldName("name"); enum != nil {
		names = append(names, qualify(qualify(prefix, normalizeName(lang.NodeText(enum, src))), name))
	}
	if !scoped {
		names = append(names, qualify(prefix, name))
	}
	out := make([]model.Declaration, 0, len(names))
	for _, qualified := range names {
		out = append(out, model.Declaration{
			ID:        entityID(model.Enumerator, qualified),
			Name:      qualified,
			Kind:      model.Enumerator,
			DefHeader: file,
		})
	}
	return out
}

// conceptDecls finds concept definitions, which the query grammar does not
// capture uniformly across grammar versions.
func conceptDecls(root *sitter.Node, src []byte, file string) []model.Declaration {
	var out []model.Declaration
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "concept_definition":
				nameNode := c.ChildByFieldName("name")
				if nameNode == nil {
					continue
				}
				prefix, _, _ := scopePrefix(c, src)
				name := qualify(prefix, lang.NodeText(nameNode, src))
				out = append(out, model.Declaration{
					ID:        entityID(model.TemplateParamBound, name),
					Name:      name,
					Kind:      model.TemplateParamBound,
					DefHeader: file,
					Site:      nodeSite(file, nameNode),
				})
			case "template_declaration", "namespace_definition", "declaration_list",
				"linkage_specification", "preproc_if", "preproc_ifdef", "preproc_else", "preproc_elif":
				walk(c)
			}
		}
	}
	walk(root)
	return out
}

// declaredName returns the unqualified-or-qualified name a declarator
// introduces. Destructors, operators and members are not indexed.
func declaredName(n *sitter.Node, src []byte) (string, bool) {
	switch n.Type() {
	case "identifier", "type_identifier":
		return lang.NodeText(n, src), true
	case "qualified_identifier", "nested_namespace_specifier":
		name := normalizeName(lang.NodeText(n, src))
		_, last := splitQualified(name)
		if strings.HasPrefix(last, "~") || strings.HasPrefix(last, "operator") {
			return "", false
		}
		return name, true
	case "template_type", "template_function":
		if name := n.ChildByFieldName("name"); name != nil {
			return normalizeName(lang.NodeText(name, src)), true
		}
	}
	return "", false
}

// scopePrefix returns the qualified namespace and class prefix enclosing n.
// member is set when n sits directly in a class body, local when it sits
// inside a function body.
func scopePrefix(n *sitter.Node, src []byte) (prefix string, member, local bool) {
	var parts []string
	first := true
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "namespace_definition":
			if name := p.ChildByFieldName("name"); name != nil {
				parts = append(parts, normalizeName(lang.NodeText(name, src)))
			}
		case "field_declaration_list":
			if first {
				member = true
			}
			first = false
			if cls := p.Parent(); cls != nil {
				if name := cls.ChildByFieldName("name"); name != nil {
					parts = append(parts, normalizeName(lang.NodeText(name, src)))
				}
			}
		case "compound_statement":
			local = true
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "::"), member, local
}

// forwardDeclaration reports whether a bodiless class specifier is a
// declaration on its own, as in "class Foo;".
func forwardDeclaration(spec *sitter.Node) bool {
	p := spec.Parent()
	if p == nil {
		return false
	}
	switch p.Type() {
	case "translation_unit", "declaration_list", "template_declaration", "field_declaration_list",
		"preproc_if", "preproc_ifdef", "preproc_else", "preproc_elif", "linkage_specification":
		return true
	case "declaration", "field_declaration":
		return p.ChildByFieldName("declarator") == nil
	}
	return false
}

// hasQualifier reports whether n carries word as a type qualifier or
// declaration keyword, as in "constexpr int" or "const int".
func hasQualifier(n *sitter.Node, src []byte, word string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case word:
			return true
		case "type_qualifier", "storage_class_specifier":
			if lang.NodeText(c, src) == word {
				return true
			}
		}
	}
	return false
}

func hasSpecifier(n *sitter.Node, src []byte, word string) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "storage_class_specifier" && lang.NodeText(c, src) == word {
			return true
		}
	}
	return false
}
