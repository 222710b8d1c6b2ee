package parse

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/hdrcheck/internal/lang"
	"github.com/phobologic/hdrcheck/internal/location"
	"github.com/phobologic/hdrcheck/internal/model"
)

// macroDef is a #define as the expander needs it.
type macroDef struct {
	Name         string
	ID           model.EntityID
	FunctionLike bool
	Params       []string
	Variadic     bool
	// Body is the replacement list with line continuations blanked, so
	// offsets into it still map to the definition's lines.
	Body string
	// BodySite is where Body starts; DefSite is the macro name.
	BodySite location.FileSite
	DefSite  location.FileSite
}

func newMacroDef(def, nameNode *sitter.Node, src []byte, file string) *macroDef {
	m := &macroDef{
		Name:    lang.NodeText(nameNode, src),
		DefSite: nodeSite(file, nameNode),
	}
	m.ID = entityID(model.Macro, m.Name)
	if params := def.ChildByFieldName("parameters"); params != nil {
		m.FunctionLike = true
		for i := 0; i < int(params.ChildCount()); i++ {
			c := params.Child(i)
			switch {
			case c.Type() == "identifier":
				m.Params = append(m.Params, lang.NodeText(c, src))
			case c.Type() == "...":
				m.Variadic = true
			}
		}
	}
	if value := def.ChildByFieldName("value"); value != nil {
		body := lang.NodeText(value, src)
		body = strings.ReplaceAll(body, "\\\r\n", "  \n")
		m.Body = strings.ReplaceAll(body, "\\\n", " \n")
		m.BodySite = nodeSite(file, value)
	}
	return m
}

// bodyLocation maps an offset into Body to its definition position.
func (m *macroDef) bodyLocation(off int) location.FileSite {
	if off > len(m.Body) {
		off = len(m.Body)
	}
	site := m.BodySite
	before := m.Body[:off]
	lines := strings.Count(before, "\n")
	if lines == 0 {
		site.Column += off
		return site
	}
	site.Line += lines
	site.Column = off - strings.LastIndexByte(before, '\n')
	return site
}

// macroArg is one argument of a macro invocation, trimmed, with its offset
// in the invoking source.
type macroArg struct {
	text   string
	offset int
}

// splitArgs splits the text between the parentheses of an invocation at
// top-level commas.
func splitArgs(text []byte, lo, hi int) []macroArg {
	var args []macroArg
	add := func(s, e int) {
		for s < e && isSpace(text[s]) {
			s++
		}
		for e > s && isSpace(text[e-1]) {
			e--
		}
		args = append(args, macroArg{text: string(text[s:e]), offset: s})
	}

	depth := 0
	start := lo
	for i := lo; i < hi; i++ {
		switch c := text[i]; c {
		case '"', '\'':
			i = skipLiteral(text, i, hi)
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				add(start, i)
				start = i + 1
			}
		}
	}
	add(start, hi)
	if len(args) == 1 && args[0].text == "" {
		return nil
	}
	return args
}

// skipLiteral returns the index of the closing quote of the literal that
// starts at i.
func skipLiteral(text []byte, i, end int) int {
	quote := text[i]
	for j := i + 1; j < end; j++ {
		switch text[j] {
		case '\\':
			j++
		case quote:
			return j
		}
	}
	return end - 1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

// segment maps a run of expanded text back to where it was spelled: into
// the macro body, or into the invoking source for argument tokens.
type segment struct {
	start, end int
	arg        bool
	origin     int
}

// expansion is the replacement text of one invocation.
type expansion struct {
	text     string
	segments []segment
}

// locate maps an offset of the expanded text to its segment and the
// matching origin offset.
func (e *expansion) locate(off int) (segment, int) {
	i := sort.Search(len(e.segments), func(i int) bool { return e.segments[i].end > off })
	if i == len(e.segments) {
		if i == 0 {
			return segment{}, 0
		}
		i--
	}
	s := e.segments[i]
	rel := off - s.start
	if rel < 0 {
		rel = 0
	}
	return s, s.origin + rel
}

type expander struct {
	args map[string]macroArg
	out  strings.Builder
	segs []segment
}

// expand substitutes args into m's body. outer is the invoking source the
// argument offsets refer to.
func (m *macroDef) expand(args []macroArg, outer []byte) *expansion {
	x := &expander{args: make(map[string]macroArg)}
	for i, p := range m.Params {
		if i < len(args) {
			x.args[p] = args[i]
		} else {
			x.args[p] = macroArg{}
		}
	}
	if m.Variadic {
		x.args["__VA_ARGS__"] = variadicArg(args, len(m.Params), outer)
	}

	body := m.Body
	for i := 0; i < len(body); {
		c := body[i]
		switch {
		case c == '#' && i+1 < len(body) && body[i+1] == '#':
			x.trimTrailingSpace()
			i += 2
			for i < len(body) && isSpace(body[i]) {
				i++
			}
			// The pasted token is a new token spelled in the body.
			j := scanToken(body, i)
			tok := body[i:j]
			if a, ok := x.args[tok]; ok && m.FunctionLike {
				x.emitBody(a.text, i)
			} else {
				x.emitBody(tok, i)
			}
			i = j
		case c == '#' && m.FunctionLike:
			j := i + 1
			for j < len(body) && isSpace(body[j]) {
				j++
			}
			k := scanToken(body, j)
			if a, ok := x.args[body[j:k]]; ok {
				x.emitBody(stringify(a.text), i)
				i = k
				continue
			}
			x.emitBody("#", i)
			i++
		case c == '"' || c == '\'':
			j := skipLiteral([]byte(body), i, len(body)) + 1
			x.emitBody(body[i:j], i)
			i = j
		case isIdentStart(c):
			j := scanToken(body, i)
			tok := body[i:j]
			if a, ok := x.args[tok]; ok && m.FunctionLike {
				x.emitArg(a)
			} else {
				x.emitBody(tok, i)
			}
			i = j
		default:
			x.emitBody(body[i:i+1], i)
			i++
		}
	}
	return &expansion{text: x.out.String(), segments: x.segs}
}

func variadicArg(args []macroArg, fixed int, outer []byte) macroArg {
	if fixed >= len(args) {
		return macroArg{}
	}
	first, last := args[fixed], args[len(args)-1]
	end := last.offset + len(last.text)
	if first.offset < end && end <= len(outer) {
		return macroArg{text: string(outer[first.offset:end]), offset: first.offset}
	}
	return first
}

func (x *expander) emitBody(text string, origin int) {
	if text == "" {
		return
	}
	start := x.out.Len()
	x.out.WriteString(text)
	if n := len(x.segs); n > 0 {
		last := &x.segs[n-1]
		if !last.arg && last.end == start && last.origin+(last.end-last.start) == origin {
			last.end = x.out.Len()
			return
		}
	}
	x.segs = append(x.segs, segment{start: start, end: x.out.Len(), origin: origin})
}

func (x *expander) emitArg(a macroArg) {
	if a.text == "" {
		return
	}
	start := x.out.Len()
	x.out.WriteString(a.text)
	x.segs = append(x.segs, segment{start: start, end: x.out.Len(), arg: true, origin: a.offset})
}

func (x *expander) trimTrailingSpace() {
	s := x.out.String()
	trimmed := strings.TrimRight(s, " \t\n\r")
	if len(trimmed) == len(s) {
		return
	}
	x.out.Reset()
	x.out.WriteString(trimmed)
	for len(x.segs) > 0 {
		last := &x.segs[len(x.segs)-1]
		if last.start >= len(trimmed) {
			x.segs = x.segs[:len(x.segs)-1]
			continue
		}
		if last.end > len(trimmed) {
			last.end = len(trimmed)
		}
		break
	}
}

// scanToken returns the end of the identifier or single character at i.
func scanToken(s string, i int) int {
	if i >= len(s) {
		return i
	}
	if !isIdentChar(s[i]) {
		return i + 1
	}
	j := i
	for j < len(s) && isIdentChar(s[j]) {
		j++
	}
	return j
}

func stringify(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}
