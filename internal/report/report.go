// Package report flattens per-unit analysis outcomes into the rows shown to
// the user and renders them as styled text.
package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/phobologic/hdrcheck/internal/diag"
	"github.com/phobologic/hdrcheck/internal/engine"
	"github.com/phobologic/hdrcheck/internal/model"
)

// Output kinds accepted by SelectKinds.
const (
	KindUsed        = "used"
	KindTransitive  = "transitive"
	KindUnused      = "unused"
	KindSuppressed  = "suppressed"
	KindMissing     = "missing"
	KindDiagnostics = "diagnostics"
)

// Kinds lists every output kind in display order.
var Kinds = []string{KindUsed, KindTransitive, KindUnused, KindSuppressed, KindMissing, KindDiagnostics}

var verdictKind = map[model.Verdict]string{
	model.UsedDirectly:         KindUsed,
	model.UsedTransitivelyOnly: KindTransitive,
	model.Unused:               KindUnused,
	model.Suppressed:           KindSuppressed,
}

// UnitRow summarizes one translation unit. Err is set when the unit failed.
type UnitRow struct {
	Unit       string
	Includes   int
	Headers    int
	References int
	Err        string
}

// Row is the verdict for one header of one unit. Line is the include line,
// zero for headers the unit does not include itself.
type Row struct {
	Unit     string
	Header   string
	Line     int
	Verdict  model.Verdict
	Strength model.Strength
	Refs     int
	Cost     int
	Reason   string
}

// MissingRow is a header a unit should include directly. First is the
// earliest reference that needs it.
type MissingRow struct {
	Unit     string
	Header   string
	Strength model.Strength
	Via      string
	First    model.Reference
}

// DiagRow is a diagnostic tagged with its unit.
type DiagRow struct {
	Unit string
	diag.Diagnostic
}

// RefRow is one resolved reference.
type RefRow struct {
	Unit     string
	Header   string
	Name     string
	Mode     model.UsageMode
	Strength model.Strength
	Loc      string
}

// Summary holds the rows of a whole run, in unit order.
type Summary struct {
	Units       []UnitRow
	Verdicts    []Row
	Missing     []MissingRow
	Diagnostics []DiagRow
	References  []RefRow
}

// Build flattens outcomes. References are only collected when withRefs is
// set.
func Build(outcomes []engine.Outcome, withRefs bool) *Summary {
	s := &Summary{}
	for _, o := range outcomes {
		if o.Report == nil {
			msg := "not analyzed"
			if o.Err != nil {
				msg = o.Err.Error()
			}
			s.Units = append(s.Units, UnitRow{Unit: o.Path, Err: msg})
			continue
		}
		rep := o.Report
		res := rep.Result
		s.Units = append(s.Units, UnitRow{
			Unit:       rep.Unit,
			Includes:   len(rep.Includes),
			Headers:    len(res.Headers),
			References: len(rep.References),
		})

		lines := make(map[string]int, len(rep.Includes))
		for _, inc := range rep.Includes {
			if _, ok := lines[inc.Path]; !ok && inc.Path != "" {
				lines[inc.Path] = inc.Line
			}
		}
		for _, h := range res.Headers {
			s.Verdicts = append(s.Verdicts, Row{
				Unit:     rep.Unit,
				Header:   h,
				Line:     lines[h],
				Verdict:  res.Verdicts[h],
				Strength: res.Strength[h],
				Refs:     len(res.Refs[h]),
				Cost:     res.Cost[h],
				Reason:   res.Reasons[h],
			})
		}

		for _, m := range res.Missing {
			row := MissingRow{Unit: rep.Unit, Header: m.Header, Strength: m.Strength, Via: m.Via}
			if len(m.Refs) > 0 {
				row.First = m.Refs[0]
			}
			s.Missing = append(s.Missing, row)
		}

		for _, d := range rep.Diagnostics {
			s.Diagnostics = append(s.Diagnostics, DiagRow{Unit: rep.Unit, Diagnostic: d})
		}

		if withRefs {
			for _, req := range rep.Requirements {
				s.References = append(s.References, RefRow{
					Unit:     rep.Unit,
					Header:   req.Header,
					Name:     req.Ref.Name,
					Mode:     req.Ref.Mode,
					Strength: req.Strength,
					Loc:      req.Ref.Loc.String(),
				})
			}
		}
	}
	return s
}

// ParseKinds splits a comma-separated kind list and rejects unknown kinds.
func ParseKinds(list string) ([]string, error) {
	var kinds []string
	for _, k := range strings.Split(list, ",") {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if !slices.Contains(Kinds, k) {
			return nil, fmt.Errorf("unknown output kind %q (want one of %s)", k, strings.Join(Kinds, ", "))
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// SelectKinds returns a new Summary with only the rows of the given kinds.
// Unit rows and references are always kept. An empty kind list returns s.
func SelectKinds(s *Summary, kinds []string) *Summary {
	if len(kinds) == 0 {
		return s
	}
	want := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		want[k] = struct{}{}
	}

	out := &Summary{Units: s.Units, References: s.References}
	for _, r := range s.Verdicts {
		if _, ok := want[verdictKind[r.Verdict]]; ok {
			out.Verdicts = append(out.Verdicts, r)
		}
	}
	if _, ok := want[KindMissing]; ok {
		out.Missing = s.Missing
	}
	if _, ok := want[KindDiagnostics]; ok {
		out.Diagnostics = s.Diagnostics
	}
	return out
}

// FilterByHeader returns a new Summary containing only the rows whose header
// path contains substr (case-insensitive). Diagnostics are kept when their
// message mentions a matching header.
func FilterByHeader(s *Summary, substr string) *Summary {
	if substr == "" {
		return s
	}
	lower := strings.ToLower(substr)
	match := func(h string) bool {
		return strings.Contains(strings.ToLower(h), lower)
	}

	out := &Summary{Units: s.Units}
	for _, r := range s.Verdicts {
		if match(r.Header) {
			out.Verdicts = append(out.Verdicts, r)
		}
	}
	for _, m := range s.Missing {
		if match(m.Header) {
			out.Missing = append(out.Missing, m)
		}
	}
	for _, d := range s.Diagnostics {
		if match(d.Message) {
			out.Diagnostics = append(out.Diagnostics, d)
		}
	}
	for _, r := range s.References {
		if match(r.Header) {
			out.References = append(out.References, r)
		}
	}
	return out
}

// HasFindings reports whether any unit has an unused or missing include, or
// failed outright.
func HasFindings(s *Summary) bool {
	if len(s.Missing) > 0 {
		return true
	}
	for _, r := range s.Verdicts {
		if r.Verdict == model.Unused {
			return true
		}
	}
	for _, u := range s.Units {
		if u.Err != "" {
			return true
		}
	}
	return false
}

// Counts tallies verdict rows by output kind, plus missing and diagnostic
// rows.
func Counts(s *Summary) map[string]int {
	c := make(map[string]int, len(Kinds))
	for _, r := range s.Verdicts {
		c[verdictKind[r.Verdict]]++
	}
	c[KindMissing] = len(s.Missing)
	c[KindDiagnostics] = len(s.Diagnostics)
	return c
}

// byUnit groups rows by unit, preserving order inside each group.
func byUnit[T any](rows []T, unit func(T) string) map[string][]T {
	m := make(map[string][]T)
	for _, r := range rows {
		u := unit(r)
		m[u] = append(m[u], r)
	}
	return m
}
