// Package engine runs the header-usage pipeline for one translation unit and
// fans batches of units out across workers.
package engine

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/hdrcheck/internal/aggregate"
	"github.com/phobologic/hdrcheck/internal/classify"
	"github.com/phobologic/hdrcheck/internal/collect"
	"github.com/phobologic/hdrcheck/internal/diag"
	"github.com/phobologic/hdrcheck/internal/graph"
	"github.com/phobologic/hdrcheck/internal/index"
	"github.com/phobologic/hdrcheck/internal/model"
)

// Frontend turns a source file into a TranslationUnit. Implementations need
// not be safe for concurrent use; Run gives each worker its own.
type Frontend interface {
	Load(ctx context.Context, path string) (*model.TranslationUnit, error)
}

// Report is the outcome of one unit's pipeline.
type Report struct {
	Unit         string
	Includes     []model.Include
	References   []model.Reference
	Requirements []model.Requirement
	Result       aggregate.Result
	// Diagnostics holds front-end, classifier and aggregator diagnostics in
	// pipeline order.
	Diagnostics []diag.Diagnostic
}

// BuildIndex freezes the declarations visible to tu.
func BuildIndex(tu *model.TranslationUnit) (*index.Index, error) {
	idx, err := index.Build(tu.Declarations)
	if err != nil {
		return nil, fmt.Errorf("indexing %s: %w", tu.Path, err)
	}
	return idx, nil
}

// Analyze runs Collect, Classify and Aggregate over tu. When idx is nil an
// index is built from tu's declarations. The only error returned is fatal
// for the unit.
func Analyze(tu *model.TranslationUnit, idx *index.Index, logger *log.Logger) (*Report, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if idx == nil {
		var err error
		if idx, err = BuildIndex(tu); err != nil {
			return nil, err
		}
	}

	var diags []diag.Diagnostic
	for _, inc := range tu.Unresolved {
		diags = append(diags, diag.UnresolvedInclude(tu.Path, inc))
	}

	refs := collect.Collect(tu.Root)
	reqs, cdiags, err := classify.New(idx, logger).ClassifyAll(refs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tu.Path, err)
	}
	diags = append(diags, cdiags...)

	g := graph.BuildGraph(tu.Edges)
	res := aggregate.Aggregate(aggregate.Input{
		Unit:         tu.Path,
		Requirements: reqs,
		Includes:     tu.Includes,
		Graph:        g,
		Suppressions: tu.Suppressions,
	})
	for _, d := range res.Diagnostics {
		logger.Warn(d.Message, "at", d.Loc.String())
	}
	diags = append(diags, res.Diagnostics...)

	logger.Debug("analyzed", "unit", tu.Path, "declarations", idx.Len(), "refs", len(refs),
		"files", len(g.Nodes()), "headers", len(res.Headers))
	return &Report{
		Unit:         tu.Path,
		Includes:     tu.Includes,
		References:   refs,
		Requirements: reqs,
		Result:       res,
		Diagnostics:  diags,
	}, nil
}

// Options configure Run.
type Options struct {
	// Jobs bounds the number of units in flight. Zero means GOMAXPROCS.
	Jobs int
	// NewFrontend is called at most Jobs times.
	NewFrontend func() Frontend
	// Index is shared by every unit when set. It must already be frozen.
	// Leave it nil when units see different headers: each unit then indexes
	// only what its own front-end declared, so requirements never name a
	// header outside the unit's include graph.
	Index  *index.Index
	Logger *log.Logger
}

// Outcome is the per-unit result of Run. Exactly one of Report and Err is
// set.
type Outcome struct {
	Path   string
	Report *Report
	Err    error
}

// Run analyzes paths concurrently and returns one Outcome per path, in
// input order. A failing unit never affects its siblings. Units that have
// not started when ctx is cancelled report ctx.Err(); started units run to
// completion.
func Run(ctx context.Context, paths []string, opts Options) []Outcome {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	if jobs > len(paths) {
		jobs = len(paths)
	}

	out := make([]Outcome, len(paths))
	if len(paths) == 0 {
		return out
	}

	// Each worker borrows a front-end for the duration of one unit.
	pool := make(chan Frontend, jobs)
	for range jobs {
		pool <- nil
	}

	var g errgroup.Group
	g.SetLimit(jobs)
	for i, path := range paths {
		out[i].Path = path
		if err := ctx.Err(); err != nil {
			out[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				return nil
			}
			fe := <-pool
			if fe == nil {
				fe = opts.NewFrontend()
			}
			defer func() { pool <- fe }()

			rep, err := analyzePath(ctx, fe, path, opts.Index, logger)
			if err != nil {
				logger.Error("unit failed", "unit", path, "err", err)
				out[i].Err = err
				return nil
			}
			out[i].Report = rep
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func analyzePath(ctx context.Context, fe Frontend, path string, idx *index.Index, logger *log.Logger) (*Report, error) {
	tu, err := fe.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return Analyze(tu, idx, logger.With("unit", path))
}
