// Package suppress derives suppression annotations for a translation unit
// from trailing include comments, configured keep lists, an ignore pattern
// and the unit's own header.
package suppress

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/phobologic/hdrcheck/internal/location"
	"github.com/phobologic/hdrcheck/internal/model"
)

// DefaultIgnore matches private and implementation headers.
const DefaultIgnore = `(/private/|[_/]impl[_./])`

// DefaultMarkers are the trailing comment markers honoured by default.
var DefaultMarkers = []string{"keep"}

// Suppression reasons.
const (
	ReasonMarker        = "keep"
	ReasonConfigured    = "kept by config"
	ReasonIgnored       = "ignored"
	ReasonCorresponding = "corresponding header"
)

// Rules configures suppression. The zero value suppresses nothing.
type Rules struct {
	markers       []*regexp.Regexp
	markerNames   []string
	ignore        *regexp.Regexp
	corresponding bool
	// keep maps an absolute unit path to the absolute headers kept for it.
	keep map[string][]string
}

// New compiles rules. Each marker matches a trailing "// marker" or
// "/* marker" comment, case-insensitively. An empty ignore pattern disables
// ignoring.
func New(markers []string, ignore string, corresponding bool) (*Rules, error) {
	r := &Rules{corresponding: corresponding}
	for _, m := range markers {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)^\s*(//|/\*)\s*` + regexp.QuoteMeta(m) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("keep marker %q: %w", m, err)
		}
		r.markers = append(r.markers, re)
		r.markerNames = append(r.markerNames, m)
	}
	if ignore != "" {
		re, err := regexp.Compile(ignore)
		if err != nil {
			return nil, fmt.Errorf("ignore pattern: %w", err)
		}
		r.ignore = re
	}
	return r, nil
}

// Keep suppresses headers for unit regardless of how they are included.
// A kept header the unit does not include still yields a suppression, which
// the aggregator reports as ambiguous.
func (r *Rules) Keep(unit string, headers ...string) {
	if r.keep == nil {
		r.keep = make(map[string][]string)
	}
	u := absPath(unit)
	for _, h := range headers {
		r.keep[u] = append(r.keep[u], absPath(h))
	}
}

// Marked reports whether a trailing comment carries a keep marker.
func (r *Rules) Marked(trailing string) bool {
	for _, re := range r.markers {
		if re.MatchString(trailing) {
			return true
		}
	}
	return false
}

// Ignored reports whether header matches the ignore pattern. Matching is done
// on slash-separated paths.
func (r *Rules) Ignored(header string) bool {
	return r.ignore != nil && r.ignore.MatchString(filepath.ToSlash(header))
}

// Apply returns the suppressions for the direct includes of unit, in include
// order. At most one suppression is produced per include.
func (r *Rules) Apply(unit string, includes []model.Include) []model.Suppression {
	if r == nil {
		return nil
	}
	kept := make(map[string]bool)
	for _, h := range r.keep[absPath(unit)] {
		kept[h] = false
	}

	var out []model.Suppression
	for _, inc := range includes {
		if inc.Path == "" {
			continue
		}
		abs := absPath(inc.Path)
		_, configured := kept[abs]
		if configured {
			kept[abs] = true
		}
		reason := r.reason(unit, inc, configured)
		if reason == "" {
			continue
		}
		out = append(out, model.Suppression{
			Header: inc.Path,
			Reason: reason,
			Site:   location.FileSite{File: unit, Line: inc.Line},
		})
	}

	var unmatched []string
	for h, found := range kept {
		if !found {
			unmatched = append(unmatched, h)
		}
	}
	sort.Strings(unmatched)
	for _, h := range unmatched {
		out = append(out, model.Suppression{
			Header: h,
			Reason: ReasonConfigured,
			Site:   location.FileSite{File: unit, Line: 1},
		})
	}
	return out
}

func (r *Rules) reason(unit string, inc model.Include, configured bool) string {
	switch {
	case r.Marked(inc.Trailing):
		return ReasonMarker
	case configured:
		return ReasonConfigured
	case r.Ignored(inc.Path):
		return ReasonIgnored
	case r.corresponding && Corresponding(unit, inc.Path):
		return ReasonCorresponding
	}
	return ""
}

// Corresponding reports whether header is the unit's own header: same file
// stem, different extension.
func Corresponding(unit, header string) bool {
	return stem(unit) == stem(header) && filepath.Ext(unit) != filepath.Ext(header)
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
