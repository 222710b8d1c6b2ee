// Package diag defines the analysis error taxonomy and the diagnostics
// reported alongside verdicts.
package diag

import (
	"errors"
	"fmt"

	"github.com/phobologic/hdrcheck/internal/location"
	"github.com/phobologic/hdrcheck/internal/model"
)

// Severity of a diagnostic.
type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
)

// Code identifies the kind of a diagnostic.
type Code string

const (
	CodeDanglingReference    Code = "dangling-reference"
	CodeClassification       Code = "classification-error"
	CodeAmbiguousSuppression Code = "ambiguous-suppression"
	CodeUnresolvedInclude    Code = "unresolved-include"
)

// Diagnostic is a located message surfaced next to the verdicts.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Loc      location.Location
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s [%s]", d.Loc, d.Severity, d.Message, d.Code)
}

// DanglingReferenceError reports a resolved entity identifier that has no
// declaration. It is fatal for the translation unit.
type DanglingReferenceError struct {
	Entity model.EntityID
	Name   string
	Loc    location.Location
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc, e.message())
}

func (e *DanglingReferenceError) message() string {
	return fmt.Sprintf("dangling reference to %s (%s)", e.Name, e.Entity)
}

// ClassificationError reports a reference whose usage mode and entity kind
// cannot be classified. The classifier falls back to definition-required.
type ClassificationError struct {
	Ref    model.Reference
	Kind   model.Kind
	Reason string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Ref.Loc, e.message())
}

func (e *ClassificationError) message() string {
	return fmt.Sprintf("cannot classify %s use of %s %s: %s", e.Ref.Mode, e.Kind, e.Ref.Name, e.Reason)
}

// AmbiguousSuppressionError reports a suppression naming a header that the
// unit does not include.
type AmbiguousSuppressionError struct {
	Header string
	Site   location.FileSite
}

func (e *AmbiguousSuppressionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Site, e.message())
}

func (e *AmbiguousSuppressionError) message() string {
	return fmt.Sprintf("suppression names %s, which is not included", e.Header)
}

// UnresolvedInclude returns the warning for an #include whose header could
// not be found.
func UnresolvedInclude(unit string, inc model.Include) Diagnostic {
	delim := `"%s"`
	if inc.Angled {
		delim = "<%s>"
	}
	return Diagnostic{
		Severity: Warning,
		Code:     CodeUnresolvedInclude,
		Message:  "cannot find " + fmt.Sprintf(delim, inc.Spelling) + "; excluded from analysis",
		Loc:      location.At(unit, inc.Line, 0),
	}
}

// IsFatal reports whether err aborts a translation unit's pipeline.
func IsFatal(err error) bool {
	var dangling *DanglingReferenceError
	return errors.As(err, &dangling)
}

// FromError converts a taxonomy error into a Diagnostic. ok is false for
// errors outside the taxonomy.
func FromError(err error) (d Diagnostic, ok bool) {
	var (
		dangling   *DanglingReferenceError
		classify   *ClassificationError
		suppressed *AmbiguousSuppressionError
	)
	switch {
	case errors.As(err, &dangling):
		return Diagnostic{Severity: Error, Code: CodeDanglingReference, Message: dangling.message(), Loc: dangling.Loc}, true
	case errors.As(err, &classify):
		return Diagnostic{Severity: Warning, Code: CodeClassification, Message: classify.message(), Loc: classify.Ref.Loc}, true
	case errors.As(err, &suppressed):
		return Diagnostic{
			Severity: Warning,
			Code:     CodeAmbiguousSuppression,
			Message:  suppressed.message(),
			Loc:      location.Location{FileSite: suppressed.Site},
		}, true
	}
	return Diagnostic{}, false
}
