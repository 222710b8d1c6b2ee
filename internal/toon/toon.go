// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/hdrcheck/internal/report"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a report Summary into TOON format. The references table
// is only written when the summary carries references.
func Encode(s *report.Summary) string {
	var parts []string

	var unitRows [][]string
	for i := range s.Units {
		u := &s.Units[i]
		unitRows = append(unitRows, []string{
			u.Unit,
			strconv.Itoa(u.Includes),
			strconv.Itoa(u.Headers),
			strconv.Itoa(u.References),
			u.Err,
		})
	}
	parts = append(parts, formatTabular("units", []string{"unit", "includes", "headers", "references", "error"}, unitRows))

	var verdictRows [][]string
	for i := range s.Verdicts {
		r := &s.Verdicts[i]
		verdictRows = append(verdictRows, []string{
			r.Unit,
			r.Header,
			strconv.Itoa(r.Line),
			string(r.Verdict),
			r.Strength.String(),
			strconv.Itoa(r.Refs),
			strconv.Itoa(r.Cost),
			r.Reason,
		})
	}
	parts = append(parts, formatTabular("verdicts", []string{"unit", "header", "line", "verdict", "strength", "refs", "cost", "reason"}, verdictRows))

	var missingRows [][]string
	for i := range s.Missing {
		m := &s.Missing[i]
		var first string
		if m.First.Name != "" {
			first = m.First.Name + " " + m.First.Loc.String()
		}
		missingRows = append(missingRows, []string{
			m.Unit,
			m.Header,
			m.Strength.String(),
			m.Via,
			first,
		})
	}
	parts = append(parts, formatTabular("missing", []string{"unit", "header", "strength", "via", "first"}, missingRows))

	var diagRows [][]string
	for i := range s.Diagnostics {
		d := &s.Diagnostics[i]
		diagRows = append(diagRows, []string{
			d.Unit,
			string(d.Severity),
			string(d.Code),
			d.Loc.String(),
			d.Message,
		})
	}
	parts = append(parts, formatTabular("diagnostics", []string{"unit", "severity", "code", "location", "message"}, diagRows))

	if len(s.References) > 0 {
		var refRows [][]string
		for i := range s.References {
			r := &s.References[i]
			refRows = append(refRows, []string{
				r.Unit,
				r.Header,
				r.Name,
				string(r.Mode),
				r.Strength.String(),
				r.Loc,
			})
		}
		parts = append(parts, formatTabular("references", []string{"unit", "header", "name", "mode", "strength", "location"}, refRows))
	}

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
