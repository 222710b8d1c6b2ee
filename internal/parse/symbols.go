package parse

import (
	"strings"

	"github.com/phobologic/hdrcheck/internal/model"
)

// symbols is the name table the AST builder resolves spelled names against.
// Keys are qualified names without a leading "::".
type symbols struct {
	types  map[string]model.EntityID
	funcs  map[string]model.EntityID
	values map[string]model.EntityID
	macros map[string]*macroDef
}

func newSymbols() *symbols {
	return &symbols{
		types:  make(map[string]model.EntityID),
		funcs:  make(map[string]model.EntityID),
		values: make(map[string]model.EntityID),
		macros: make(map[string]*macroDef),
	}
}

func (s *symbols) add(d model.Declaration) {
	var table map[string]model.EntityID
	switch d.Kind {
	case model.Function, model.TemplateFunction:
		table = s.funcs
	case model.Class, model.TemplateClass, model.TemplateParamBound:
		table = s.types
	case model.Variable, model.Enumerator:
		table = s.values
	default:
		return
	}
	if _, ok := table[d.Name]; !ok {
		table[d.Name] = d.ID
	}
}

func (s *symbols) addMacro(m *macroDef) {
	if _, ok := s.macros[m.Name]; !ok {
		s.macros[m.Name] = m
	}
}

// entityID is the identifier the front-end assigns to a declaration. All
// redeclarations and overloads of a qualified name share it.
func entityID(kind model.Kind, qualified string) model.EntityID {
	switch kind {
	case model.Function, model.TemplateFunction:
		return model.EntityID("fn:" + qualified)
	case model.Macro:
		return model.EntityID("macro:" + qualified)
	case model.Variable:
		return model.EntityID("var:" + qualified)
	case model.Enumerator:
		return model.EntityID("enumerator:" + qualified)
	default:
		return model.EntityID("type:" + qualified)
	}
}

// lookup resolves raw in table, trying the enclosing scopes innermost
// first, then the global scope, then namespaces brought in by using
// directives.
func lookup(table map[string]model.EntityID, raw string, scopes, usings []string) model.EntityID {
	global := strings.HasPrefix(strings.TrimSpace(raw), "::")
	name := normalizeName(raw)
	if name == "" {
		return ""
	}
	if !global {
		for i := len(scopes) - 1; i >= 0; i-- {
			if id, ok := table[scopes[i]+"::"+name]; ok {
				return id
			}
		}
	}
	if id, ok := table[name]; ok {
		return id
	}
	if !global {
		for _, u := range usings {
			if id, ok := table[u+"::"+name]; ok {
				return id
			}
		}
	}
	return ""
}

// normalizeName strips whitespace, a leading "::" and template argument
// lists from a spelled name: " ::a::B<int>::c " becomes "a::B::c".
func normalizeName(raw string) string {
	var b strings.Builder
	depth := 0
	for _, r := range raw {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			}
		case depth > 0:
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimPrefix(b.String(), "::")
}

// splitQualified splits "a::b::c" into ("a::b", "c").
func splitQualified(name string) (scope, last string) {
	i := strings.LastIndex(name, "::")
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+2:]
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "::" + name
}
