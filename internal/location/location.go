// Package location models source positions with macro-expansion provenance.
package location

import (
	"fmt"
	"strings"
)

// FileSite is a position inside a single file. Line and Column are 1-based.
type FileSite struct {
	File   string
	Line   int
	Column int
}

// IsZero reports whether s carries no position.
func (s FileSite) IsZero() bool {
	return s.File == "" && s.Line == 0 && s.Column == 0
}

func (s FileSite) String() string {
	if s.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
	}
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// Frame is one macro expansion step.
type Frame struct {
	Macro      string
	Definition FileSite // where the macro is #defined
	Call       FileSite // where the macro is invoked
}

// Location is a source position plus the chain of macro expansions that
// produced it. Expansion is ordered innermost first: the last frame is the
// invocation the programmer wrote.
type Location struct {
	FileSite
	Expansion []Frame

	// InArgument is set when the token was spelled inside a macro argument
	// at the call site rather than in the macro body.
	InArgument bool
}

// At returns a location without expansion provenance.
func At(file string, line, column int) Location {
	return Location{FileSite: FileSite{File: file, Line: line, Column: column}}
}

// InMacro reports whether the location was produced by a macro expansion.
func (l Location) InMacro() bool {
	return len(l.Expansion) > 0
}

// EffectiveSite returns the site that owns the include obligation for l:
// its own site when it is not expanded, otherwise the call site of the
// outermost expansion.
func (l Location) EffectiveSite() FileSite {
	if len(l.Expansion) == 0 {
		return l.FileSite
	}
	return l.Expansion[len(l.Expansion)-1].Call
}

// Expanded returns a copy of l wrapped in one more (outer) expansion frame.
func (l Location) Expanded(f Frame) Location {
	chain := make([]Frame, 0, len(l.Expansion)+1)
	chain = append(chain, l.Expansion...)
	chain = append(chain, f)
	l.Expansion = chain
	return l
}

func (l Location) String() string {
	if len(l.Expansion) == 0 {
		return l.FileSite.String()
	}
	var b strings.Builder
	b.WriteString(l.FileSite.String())
	for _, f := range l.Expansion {
		fmt.Fprintf(&b, " (expanded from %s at %s)", f.Macro, f.Call)
	}
	return b.String()
}
