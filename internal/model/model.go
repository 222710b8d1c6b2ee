// Package model defines core data structures for hdrcheck.
package model

import "github.com/phobologic/hdrcheck/internal/location"

// EntityID is the front-end's resolved-entity identifier. The engine treats
// it as an opaque key.
type EntityID string

// Kind indicates the kind of a declared entity.
type Kind string

const (
	Function           Kind = "function"
	Class              Kind = "class"
	TemplateClass      Kind = "template-class"
	TemplateFunction   Kind = "template-function"
	TemplateParamBound Kind = "template-param-bound"
	Macro              Kind = "macro"

	// Variables include named constants. Enumerator values need their
	// enum's definition.
	Variable   Kind = "variable"
	Enumerator Kind = "enumerator"
)

// ParamUse describes how a template body uses one of its type parameters.
type ParamUse string

const (
	// Opaque parameters are only named, pointed to or referenced.
	Opaque ParamUse = "opaque"
	// Complete parameters are stored, copied, constructed or inherited from.
	Complete ParamUse = "complete"
)

// Declaration is an entity visible to a translation unit together with the
// headers that provide it.
type Declaration struct {
	ID   EntityID
	Name string
	Kind Kind

	// DeclHeader provides at least a forward declaration.
	DeclHeader string
	// DefHeader provides the full definition.
	DefHeader string
	// Redeclared lists further headers that also declare the entity.
	Redeclared []string

	// Inline is set for functions whose body is generated at the call site
	// and for constants whose initializer is needed where they are used.
	Inline bool

	// Params is the usage profile of a template's parameters, in order.
	// Variadic applies the last entry to every trailing argument.
	Params   []ParamUse
	Variadic bool

	Site location.FileSite
}

// IsTemplate reports whether d is a class or function template.
func (d *Declaration) IsTemplate() bool {
	return d.Kind == TemplateClass || d.Kind == TemplateFunction
}

// ParamAt returns the usage profile for the template argument at index i.
// ok is false when no profile is known for that position.
func (d *Declaration) ParamAt(i int) (use ParamUse, ok bool) {
	if i < 0 || len(d.Params) == 0 {
		return "", false
	}
	if i < len(d.Params) {
		return d.Params[i], true
	}
	if d.Variadic {
		return d.Params[len(d.Params)-1], true
	}
	return "", false
}

// Headers returns every header that provides d, without duplicates,
// definition header first.
func (d *Declaration) Headers() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, h := range append([]string{d.DefHeader, d.DeclHeader}, d.Redeclared...) {
		if h == "" {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// UsageMode is the syntactic role of a name use.
type UsageMode string

const (
	Call             UsageMode = "call"
	Instantiate      UsageMode = "instantiate"
	ByValue          UsageMode = "by-value"
	ByPointer        UsageMode = "by-pointer"
	TemplateArgument UsageMode = "template-argument"
	MacroArgument    UsageMode = "macro-argument"
)

// Reference is one use of a Declaration.
type Reference struct {
	Entity EntityID
	Name   string
	Mode   UsageMode

	// Inner is the mode a macro-argument use has inside the expansion.
	Inner UsageMode

	// Template and ArgIndex identify the template a template-argument use is
	// passed to. Bound marks uses in template parameter constraints or
	// defaults, which name a type without instantiating anything.
	Template EntityID
	ArgIndex int
	Bound    bool

	Loc  location.Location
	Site location.FileSite
}

// Strength is how much of a declaration a reference needs.
type Strength int

const (
	NoRequirement Strength = iota
	DeclarationSufficient
	DefinitionRequired
)

func (s Strength) String() string {
	switch s {
	case DeclarationSufficient:
		return "declaration-sufficient"
	case DefinitionRequired:
		return "definition-required"
	default:
		return "none"
	}
}

// Requirement is the resolved outcome of one Reference.
type Requirement struct {
	Header   string
	Strength Strength

	// Alternatives are other headers that satisfy the requirement equally.
	Alternatives []string

	Ref Reference
}

// Verdict is the final classification of one header.
type Verdict string

const (
	UsedDirectly         Verdict = "used-directly"
	UsedTransitivelyOnly Verdict = "used-transitively-only"
	Unused               Verdict = "unused"
	Suppressed           Verdict = "suppressed"
)

// Include is one #include directive of a translation unit.
type Include struct {
	Path     string // resolved header path, empty when unresolved
	Spelling string // as written between the delimiters
	Angled   bool
	Line     int
	// Trailing is the rest of the directive's line, e.g. a "// keep" comment.
	Trailing string
}

// IncludeEdge records that From includes To.
type IncludeEdge struct {
	From string
	To   string
}

// Suppression forces a header's verdict to Suppressed.
type Suppression struct {
	Header string
	Reason string
	Site   location.FileSite
}

// TranslationUnit is the complete input of one analysis run.
type TranslationUnit struct {
	Path         string
	Root         *Node
	Includes     []Include
	Edges        []IncludeEdge
	Declarations []Declaration
	Suppressions []Suppression
	// Unresolved lists directives of the unit whose header was not found.
	// They take no part in the analysis.
	Unresolved []Include
}
