// Package aggregate folds the Requirements of a translation unit into one
// Verdict per header.
package aggregate

import (
	"slices"
	"sort"

	"github.com/phobologic/hdrcheck/internal/diag"
	"github.com/phobologic/hdrcheck/internal/graph"
	"github.com/phobologic/hdrcheck/internal/model"
)

// Input is everything the aggregator needs for one unit.
type Input struct {
	Unit         string
	Requirements []model.Requirement
	Includes     []model.Include
	Graph        *graph.Graph
	Suppressions []model.Suppression
}

// Missing is a header the unit needs but does not include directly.
type Missing struct {
	Header   string
	Strength model.Strength
	Refs     []model.Reference
	// Via is the direct include that currently pulls Header in, if any.
	Via string
}

// Unused is a removable include with the references it could also have
// satisfied had the unit not relied on another header for them.
type Unused struct {
	Include  model.Include
	Shadowed []model.Reference
}

// Result is the aggregated outcome. Headers lists every key of Verdicts:
// direct includes as written, then transitive headers sorted.
type Result struct {
	Headers     []string
	Verdicts    map[string]model.Verdict
	Strength    map[string]model.Strength
	Refs        map[string][]model.Reference
	Reasons     map[string]string
	Cost        map[string]int
	Unused      []Unused
	Missing     []Missing
	Diagnostics []diag.Diagnostic
}

// Aggregate computes verdicts. It is a pure function of in.
func Aggregate(in Input) Result {
	g := in.Graph
	if g == nil {
		g = graph.BuildGraph(nil)
	}

	res := Result{
		Verdicts: make(map[string]model.Verdict),
		Strength: make(map[string]model.Strength),
		Refs:     make(map[string][]model.Reference),
		Reasons:  make(map[string]string),
		Cost:     make(map[string]int),
	}

	var direct []string
	includeOf := make(map[string]model.Include)
	for _, inc := range in.Includes {
		if inc.Path == "" || inc.Path == in.Unit {
			continue
		}
		if _, dup := includeOf[inc.Path]; dup {
			continue
		}
		includeOf[inc.Path] = inc
		direct = append(direct, inc.Path)
	}
	isDirect := func(h string) bool {
		_, ok := includeOf[h]
		return ok
	}

	suppressed := make(map[string]struct{})
	for _, s := range in.Suppressions {
		if !isDirect(s.Header) {
			d, _ := diag.FromError(&diag.AmbiguousSuppressionError{Header: s.Header, Site: s.Site})
			res.Diagnostics = append(res.Diagnostics, d)
			continue
		}
		if _, ok := suppressed[s.Header]; !ok {
			suppressed[s.Header] = struct{}{}
			res.Reasons[s.Header] = s.Reason
		}
	}

	shadowed := make(map[string][]model.Reference)
	for _, req := range in.Requirements {
		if req.Header == "" || req.Header == in.Unit {
			continue
		}
		if site := req.Ref.Site.File; site != "" && site != in.Unit {
			// Expanded inside another file: that file's obligation.
			continue
		}
		h := attribute(req, direct, isDirect)
		if h == in.Unit {
			continue
		}
		if req.Strength > res.Strength[h] {
			res.Strength[h] = req.Strength
		}
		res.Refs[h] = append(res.Refs[h], req.Ref)
		for _, alt := range req.Alternatives {
			if alt != h && isDirect(alt) {
				shadowed[alt] = append(shadowed[alt], req.Ref)
			}
		}
	}

	// Required headers the unit does not include itself.
	var indirect []string
	for h := range res.Strength {
		if !isDirect(h) {
			indirect = append(indirect, h)
		}
	}
	sort.Strings(indirect)

	for _, h := range direct {
		res.Headers = append(res.Headers, h)
		_, keep := suppressed[h]
		switch {
		case keep:
			res.Verdicts[h] = model.Suppressed
		case res.Strength[h] > model.NoRequirement:
			res.Verdicts[h] = model.UsedDirectly
		case routes(g, h, indirect):
			res.Verdicts[h] = model.UsedTransitivelyOnly
		default:
			res.Verdicts[h] = model.Unused
			res.Unused = append(res.Unused, Unused{Include: includeOf[h], Shadowed: shadowed[h]})
		}
	}

	for _, h := range g.Closure(direct...) {
		if isDirect(h) || h == in.Unit {
			continue
		}
		res.Headers = append(res.Headers, h)
		res.Verdicts[h] = model.UsedTransitivelyOnly
	}

	for _, h := range indirect {
		m := Missing{Header: h, Strength: res.Strength[h], Refs: res.Refs[h]}
		for _, d := range direct {
			if g.Reaches(d, h) {
				m.Via = d
				break
			}
		}
		res.Missing = append(res.Missing, m)
	}

	for _, h := range res.Headers {
		res.Cost[h] = g.Cost(h)
	}
	return res
}

// attribute picks the header a requirement is charged to. A header the unit
// does not include gives way to a directly included alternative.
func attribute(req model.Requirement, direct []string, isDirect func(string) bool) string {
	if isDirect(req.Header) || len(req.Alternatives) == 0 {
		return req.Header
	}
	for _, h := range direct {
		if slices.Contains(req.Alternatives, h) {
			return h
		}
	}
	return req.Header
}

func routes(g *graph.Graph, h string, required []string) bool {
	if len(required) == 0 {
		return false
	}
	reach := g.Reachable(h)
	for _, r := range required {
		if _, ok := reach[r]; ok {
			return true
		}
	}
	return false
}
