package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/phobologic/hdrcheck/internal/diag"
	"github.com/phobologic/hdrcheck/internal/model"
)

type styles struct {
	unit, used, transitive, unused, suppressed, missing, warning, failed, dim lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		unit:       r.NewStyle().Bold(true),
		used:       r.NewStyle().Foreground(lipgloss.Color("green")),
		transitive: r.NewStyle().Foreground(lipgloss.Color("240")),
		unused:     r.NewStyle().Foreground(lipgloss.Color("red")).Bold(true),
		suppressed: r.NewStyle().Foreground(lipgloss.Color("cyan")),
		missing:    r.NewStyle().Foreground(lipgloss.Color("yellow")).Bold(true),
		warning:    r.NewStyle().Foreground(lipgloss.Color("yellow")),
		failed:     r.NewStyle().Foreground(lipgloss.Color("red")).Bold(true),
		dim:        r.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

func (st styles) verdict(v model.Verdict) lipgloss.Style {
	switch v {
	case model.UsedDirectly:
		return st.used
	case model.Unused:
		return st.unused
	case model.Suppressed:
		return st.suppressed
	default:
		return st.transitive
	}
}

// label pads before styling so escape codes do not skew the columns.
func label(st lipgloss.Style, s string) string {
	return st.Render(fmt.Sprintf("%-11s", s))
}

// WriteText renders s unit by unit. Colors are only emitted when w is a
// terminal.
func WriteText(w io.Writer, s *Summary) error {
	st := newStyles(w)
	verdicts := byUnit(s.Verdicts, func(r Row) string { return r.Unit })
	missing := byUnit(s.Missing, func(r MissingRow) string { return r.Unit })
	diags := byUnit(s.Diagnostics, func(r DiagRow) string { return r.Unit })

	var b strings.Builder
	for _, u := range s.Units {
		b.WriteString(st.unit.Render(u.Unit))
		b.WriteByte('\n')
		if u.Err != "" {
			fmt.Fprintf(&b, "  %s %s\n", label(st.failed, "failed"), u.Err)
			continue
		}
		for _, r := range verdicts[u.Unit] {
			fmt.Fprintf(&b, "  %s %s%s\n", label(st.verdict(r.Verdict), verdictKind[r.Verdict]), r.Header, st.dim.Render(rowDetail(r)))
		}
		for _, m := range missing[u.Unit] {
			fmt.Fprintf(&b, "  %s %s%s\n", label(st.missing, KindMissing), m.Header, st.dim.Render(missingDetail(m)))
		}
		for _, d := range diags[u.Unit] {
			sev := st.warning
			if d.Severity == diag.Error {
				sev = st.failed
			}
			fmt.Fprintf(&b, "  %s %s: %s\n", label(sev, string(d.Severity)), d.Loc, d.Message)
		}
	}

	c := Counts(s)
	parts := make([]string, 0, len(Kinds))
	for _, k := range Kinds {
		if c[k] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c[k], k))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "no findings")
	}
	fmt.Fprintf(&b, "\n%d units: %s\n", len(s.Units), strings.Join(parts, ", "))

	_, err := io.WriteString(w, b.String())
	return err
}

func rowDetail(r Row) string {
	var parts []string
	if r.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d", r.Line))
	}
	if r.Strength > model.NoRequirement {
		parts = append(parts, r.Strength.String())
	}
	if r.Refs > 0 {
		parts = append(parts, plural(r.Refs, "ref"))
	}
	if r.Reason != "" {
		parts = append(parts, r.Reason)
	}
	if len(parts) == 0 {
		return ""
	}
	return "  (" + strings.Join(parts, ", ") + ")"
}

func missingDetail(m MissingRow) string {
	parts := []string{m.Strength.String()}
	if m.Via != "" {
		parts = append(parts, "via "+m.Via)
	}
	if m.First.Name != "" {
		parts = append(parts, fmt.Sprintf("%s at %s", m.First.Name, m.First.Loc))
	}
	return "  (" + strings.Join(parts, ", ") + ")"
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
