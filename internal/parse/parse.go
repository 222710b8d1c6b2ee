// Package parse is the tree-sitter front-end: it reads a C or C++
// translation unit, resolves its includes, indexes the declarations the
// included headers provide and lowers the unit to the resolved AST the
// engine analyzes.
package parse

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/hdrcheck/internal/lang"
	"github.com/phobologic/hdrcheck/internal/model"
	"github.com/phobologic/hdrcheck/internal/suppress"
)

// Options configure a Frontend.
type Options struct {
	// IncludePaths are searched in order for angled includes, and for
	// quoted includes not found next to the including file.
	IncludePaths []string
	// Rules derive suppressions. Nil suppresses nothing.
	Rules *suppress.Rules
	// MaxExpansionDepth bounds nested macro expansion. Zero means
	// DefaultMaxExpansionDepth.
	MaxExpansionDepth int
	Logger            *log.Logger
}

// scanned is what a file contributes to every unit that includes it.
type scanned struct {
	includes []model.Include
	fileDecls
}

// Frontend loads translation units. It caches scanned headers across
// units and is not safe for concurrent use.
type Frontend struct {
	opts    Options
	logger  *log.Logger
	parsers map[string]*sitter.Parser
	cache   map[string]*scanned
}

// New returns a Frontend.
func New(opts Options) *Frontend {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if opts.MaxExpansionDepth <= 0 {
		opts.MaxExpansionDepth = DefaultMaxExpansionDepth
	}
	return &Frontend{
		opts:    opts,
		logger:  logger,
		parsers: make(map[string]*sitter.Parser),
		cache:   make(map[string]*scanned),
	}
}

func (f *Frontend) parser(l *lang.Language) *sitter.Parser {
	p, ok := f.parsers[l.Name]
	if !ok {
		p = l.NewParser()
		f.parsers[l.Name] = p
	}
	return p
}

// Load reads and lowers the unit at path. Headers that cannot be found are
// reported in the unit's Unresolved list and otherwise ignored.
func (f *Frontend) Load(ctx context.Context, path string) (*model.TranslationUnit, error) {
	l := lang.Languages[lang.ForPath(path)]
	if l == nil {
		return nil, fmt.Errorf("%s: unsupported file type", path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	tree, err := f.parser(l).ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	unit, err := f.scan(l, path, src, root)
	if err != nil {
		return nil, err
	}

	tu := &model.TranslationUnit{Path: path}
	for _, d := range unit.includes {
		if d.Path == "" {
			f.logger.Warn("unresolved include", "unit", path, "include", d.Spelling, "line", d.Line)
			tu.Unresolved = append(tu.Unresolved, d)
			continue
		}
		tu.Includes = append(tu.Includes, d)
	}

	syms := newSymbols()
	kinds := make(map[model.EntityID]model.Kind)
	add := func(fd fileDecls) {
		for _, d := range fd.decls {
			if k, ok := kinds[d.ID]; ok && k != d.Kind {
				f.logger.Debug("conflicting declaration", "entity", d.ID, "kind", d.Kind, "earlier", k)
				continue
			}
			kinds[d.ID] = d.Kind
			tu.Declarations = append(tu.Declarations, d)
			syms.add(d)
		}
		for _, m := range fd.macros {
			syms.addMacro(m)
		}
	}
	add(unit.fileDecls)

	// Headers are visited breadth-first so nearer headers win name lookup.
	visited := map[string]bool{path: true}
	queue := []string{}
	enqueue := func(from string, ds []model.Include) {
		for _, d := range ds {
			if d.Path == "" {
				continue
			}
			tu.Edges = append(tu.Edges, model.IncludeEdge{From: from, To: d.Path})
			if !visited[d.Path] {
				visited[d.Path] = true
				queue = append(queue, d.Path)
			}
		}
	}
	enqueue(path, unit.includes)
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := queue[0]
		queue = queue[1:]
		s, err := f.header(ctx, l, h)
		if err != nil {
			f.logger.Warn("skipping header", "header", h, "err", err)
			continue
		}
		add(s.fileDecls)
		enqueue(h, s.includes)
	}

	b := &builder{
		ctx:      ctx,
		parser:   f.parser(l),
		syms:     syms,
		logger:   f.logger.With("unit", path),
		maxDepth: f.opts.MaxExpansionDepth,
		src:      fileSource(path, src),
		active:   make(map[string]bool),
	}
	tu.Root = b.buildUnit(path, root)
	tu.Suppressions = f.opts.Rules.Apply(path, tu.Includes)

	f.logger.Debug("loaded unit", "unit", path, "includes", len(tu.Includes),
		"headers", len(visited)-1, "declarations", len(tu.Declarations))
	return tu, nil
}

// header returns the scan of a header, parsed with the including unit's
// language.
func (f *Frontend) header(ctx context.Context, l *lang.Language, path string) (*scanned, error) {
	key := l.Name + "\x00" + path
	if s, ok := f.cache[key]; ok {
		return s, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tree, err := f.parser(l).ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	s, err := f.scan(l, path, src, tree.RootNode())
	if err != nil {
		return nil, err
	}
	f.cache[key] = s
	return s, nil
}

func (f *Frontend) scan(l *lang.Language, path string, src []byte, root *sitter.Node) (*scanned, error) {
	fd, err := extractDeclarations(l, root, src, path)
	if err != nil {
		return nil, err
	}
	s := &scanned{fileDecls: fd}
	for _, inc := range includeDirectives(root, src) {
		inc.Path = f.resolve(path, inc.Spelling, inc.Angled)
		s.includes = append(s.includes, inc)
	}
	return s, nil
}

// resolve finds an included header. Quoted includes are searched next to
// the including file first.
func (f *Frontend) resolve(from, spelling string, angled bool) string {
	if !angled {
		if p := filepath.Join(filepath.Dir(from), spelling); isFile(p) {
			return p
		}
	}
	for _, dir := range f.opts.IncludePaths {
		if p := filepath.Join(dir, spelling); isFile(p) {
			return p
		}
	}
	return ""
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

// includeDirectives returns the #include directives of a file in source
// order, including those inside conditional blocks.
func includeDirectives(root *sitter.Node, src []byte) []model.Include {
	var out []model.Include
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch t := c.Type(); {
			case t == "preproc_include":
				if inc, ok := includeDirective(c, src); ok {
					out = append(out, inc)
				}
			case strings.HasPrefix(t, "preproc_"), t == "linkage_specification",
				t == "declaration_list", t == "namespace_definition":
				walk(c)
			}
		}
	}
	walk(root)
	return out
}

func includeDirective(n *sitter.Node, src []byte) (model.Include, bool) {
	var inc model.Include
	p := n.ChildByFieldName("path")
	if p == nil {
		return inc, false
	}
	spelled := lang.NodeText(p, src)
	switch p.Type() {
	case "string_literal":
		inc.Spelling = strings.Trim(spelled, `"`)
	case "system_lib_string":
		inc.Spelling = strings.TrimSuffix(strings.TrimPrefix(spelled, "<"), ">")
		inc.Angled = true
	default:
		// Computed includes ("#include HEADER") are not followed.
		return inc, false
	}
	inc.Line = int(n.StartPoint().Row) + 1

	rest := src[p.EndByte():]
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	inc.Trailing = strings.TrimRight(string(rest), " \t\r")
	return inc, inc.Spelling != ""
}
