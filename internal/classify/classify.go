// Package classify decides how much of a declaration each reference needs
// and which header has to supply it.
package classify

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/phobologic/hdrcheck/internal/diag"
	"github.com/phobologic/hdrcheck/internal/index"
	"github.com/phobologic/hdrcheck/internal/model"
)

// Classifier resolves References against a frozen index.
type Classifier struct {
	idx    *index.Index
	logger *log.Logger
}

// New returns a Classifier. A nil logger discards warnings.
func New(idx *index.Index, logger *log.Logger) *Classifier {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Classifier{idx: idx, logger: logger}
}

// Classify returns the Requirement of ref.
//
// A *diag.DanglingReferenceError is returned with a zero Requirement. A
// *diag.ClassificationError is returned together with a usable,
// conservative Requirement.
func (c *Classifier) Classify(ref model.Reference) (model.Requirement, error) {
	decl, err := c.idx.Resolve(ref.Entity, ref.Name, ref.Loc)
	if err != nil {
		return model.Requirement{}, err
	}

	strength, reason, err := c.strength(ref, ref.Mode, &decl)
	if err != nil {
		return model.Requirement{}, err
	}

	req, herr := choose(ref, &decl, strength)
	if reason == "" && herr != "" {
		reason = herr
	}
	if reason != "" {
		cerr := &diag.ClassificationError{Ref: ref, Kind: decl.Kind, Reason: reason}
		c.logger.Warn("classification fallback", "ref", ref.Name, "at", ref.Loc.String(), "reason", reason)
		return req, cerr
	}
	return req, nil
}

// ClassifyAll classifies refs in order. Classification errors are turned
// into diagnostics; the first dangling reference stops the run and is
// returned as err.
func (c *Classifier) ClassifyAll(refs []model.Reference) ([]model.Requirement, []diag.Diagnostic, error) {
	reqs := make([]model.Requirement, 0, len(refs))
	var diags []diag.Diagnostic
	for _, ref := range refs {
		req, err := c.Classify(ref)
		if err != nil {
			if diag.IsFatal(err) {
				return nil, diags, err
			}
			d, ok := diag.FromError(err)
			if !ok {
				return nil, diags, err
			}
			diags = append(diags, d)
		}
		reqs = append(reqs, req)
	}
	return reqs, diags, nil
}

// strength applies the decision table. A non-empty reason means the
// combination was not classifiable and DefinitionRequired is assumed.
func (c *Classifier) strength(ref model.Reference, mode model.UsageMode, decl *model.Declaration) (model.Strength, string, error) {
	switch mode {
	case model.Call:
		switch decl.Kind {
		case model.TemplateFunction, model.Macro:
			return model.DefinitionRequired, "", nil
		case model.Function:
			if decl.Inline {
				return model.DefinitionRequired, "", nil
			}
			return model.DeclarationSufficient, "", nil
		case model.Variable:
			// Function pointers and callable objects.
			return valueStrength(decl), "", nil
		}
		return model.DefinitionRequired, "not callable", nil

	case model.Instantiate:
		if decl.IsTemplate() {
			return model.DefinitionRequired, "", nil
		}
		return model.DefinitionRequired, "not a template", nil

	case model.ByValue:
		switch decl.Kind {
		case model.Class, model.TemplateClass:
			return model.DefinitionRequired, "", nil
		}
		return model.DefinitionRequired, "not a type", nil

	case model.ByPointer:
		switch decl.Kind {
		case model.Macro:
			return model.DefinitionRequired, "macro used as a declaration", nil
		case model.Variable, model.Enumerator:
			return valueStrength(decl), "", nil
		}
		return model.DeclarationSufficient, "", nil

	case model.TemplateArgument:
		return c.templateArgument(ref, decl)

	case model.MacroArgument:
		if ref.Inner == "" || ref.Inner == model.MacroArgument {
			return model.DefinitionRequired, "macro argument without inner mode", nil
		}
		return c.strength(ref, ref.Inner, decl)
	}
	return model.DefinitionRequired, "unknown usage mode", nil
}

func (c *Classifier) templateArgument(ref model.Reference, decl *model.Declaration) (model.Strength, string, error) {
	if ref.Bound || decl.Kind == model.TemplateParamBound {
		return model.DeclarationSufficient, "", nil
	}
	switch decl.Kind {
	case model.Macro:
		return model.DefinitionRequired, "macro used as a template argument", nil
	case model.Variable, model.Enumerator:
		return valueStrength(decl), "", nil
	}
	if ref.Template == "" {
		// Argument list of an unresolved template.
		return model.DefinitionRequired, "", nil
	}
	tmpl, err := c.idx.Resolve(ref.Template, "", ref.Loc)
	if err != nil {
		return 0, "", err
	}
	use, ok := tmpl.ParamAt(ref.ArgIndex)
	switch {
	case !ok:
		return model.DefinitionRequired, "", nil
	case use == model.Opaque:
		return model.DeclarationSufficient, "", nil
	default:
		return model.DefinitionRequired, "", nil
	}
}

// valueStrength is the strength of naming a variable or enumerator. An extern
// declaration is enough for a variable; constants and enumerators need the
// declaration that carries their value.
func valueStrength(decl *model.Declaration) model.Strength {
	if decl.Kind == model.Enumerator || decl.Inline {
		return model.DefinitionRequired
	}
	return model.DeclarationSufficient
}

// choose picks the header for strength. The returned string is a fallback
// reason when the declaration cannot supply what the strength asks for.
func choose(ref model.Reference, decl *model.Declaration, strength model.Strength) (model.Requirement, string) {
	req := model.Requirement{Strength: strength, Ref: ref}
	var reason string
	switch strength {
	case model.DefinitionRequired:
		req.Header = decl.DefHeader
		if req.Header == "" {
			req.Header = decl.DeclHeader
			reason = "definition header unknown"
		}
	default:
		req.Header = decl.DeclHeader
		if req.Header == "" {
			req.Header = decl.DefHeader
		}
		for _, h := range decl.Headers() {
			if h != req.Header {
				req.Alternatives = append(req.Alternatives, h)
			}
		}
		slices.Sort(req.Alternatives)
	}
	return req, reason
}
