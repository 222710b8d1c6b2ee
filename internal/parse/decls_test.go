package parse

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/phobologic/hdrcheck/internal/lang"
	"github.com/phobologic/hdrcheck/internal/model"
)

func extract(t *testing.T, file, source string) map[model.EntityID]model.Declaration {
	t.Helper()
	l := lang.Languages["cpp"]
	if l == nil {
		t.Fatal("cpp not registered")
	}
	tree, err := l.NewParser().ParseCtx(context.Background(), nil, []byte(source))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer tree.Close()

	fd, err := extractDeclarations(l, tree.RootNode(), []byte(source), file)
	if err != nil {
		t.Fatalf("extractDeclarations: %v", err)
	}
	out := make(map[model.EntityID]model.Declaration)
	for _, d := range fd.decls {
		if _, dup := out[d.ID]; !dup {
			out[d.ID] = d
		}
	}
	return out
}

const geoHeader = `#pragma once
#define SQUARE(x) ((x) * (x))

namespace geo {
class Point;
struct Size { int w; int h; };
template <class T, class U> class Pair { T first; U second; };
template <class... Ts> struct Tuple {};
template <class T> void release(T* p) { delete p; }
template <class T> T copy(const T& v) { return v; }
void draw(const Size& s);
inline int area(Size s) { return s.w * s.h; }
using Dim = int;
}
`

func TestExtractDeclarations(t *testing.T) {
	t.Parallel()

	got := extract(t, "geo.hpp", geoHeader)
	want := []struct {
		id       model.EntityID
		kind     model.Kind
		decl     string
		def      string
		inline   bool
		params   []model.ParamUse
		variadic bool
	}{
		{id: "macro:SQUARE", kind: model.Macro, def: "geo.hpp"},
		{id: "type:geo::Point", kind: model.Class, decl: "geo.hpp"},
		{id: "type:geo::Size", kind: model.Class, decl: "geo.hpp", def: "geo.hpp"},
		{id: "type:geo::Pair", kind: model.TemplateClass, decl: "geo.hpp", def: "geo.hpp",
			params: []model.ParamUse{model.Complete, model.Complete}},
		{id: "type:geo::Tuple", kind: model.TemplateClass, decl: "geo.hpp", def: "geo.hpp",
			params: []model.ParamUse{model.Complete}, variadic: true},
		{id: "fn:geo::release", kind: model.TemplateFunction, decl: "geo.hpp", def: "geo.hpp", inline: true,
			params: []model.ParamUse{model.Opaque}},
		{id: "fn:geo::copy", kind: model.TemplateFunction, decl: "geo.hpp", def: "geo.hpp", inline: true,
			params: []model.ParamUse{model.Complete}},
		{id: "fn:geo::draw", kind: model.Function, decl: "geo.hpp"},
		{id: "fn:geo::area", kind: model.Function, decl: "geo.hpp", def: "geo.hpp", inline: true},
		{id: "type:geo::Dim", kind: model.Class, decl: "geo.hpp", def: "geo.hpp"},
	}
	for _, w := range want {
		d, ok := got[w.id]
		if !ok {
			t.Errorf("missing declaration %s", w.id)
			continue
		}
		if d.Kind != w.kind {
			t.Errorf("%s: kind = %s, want %s", w.id, d.Kind, w.kind)
		}
		if d.DeclHeader != w.decl || d.DefHeader != w.def {
			t.Errorf("%s: headers = (%q, %q), want (%q, %q)", w.id, d.DeclHeader, d.DefHeader, w.decl, w.def)
		}
		if d.Inline != w.inline {
			t.Errorf("%s: inline = %v, want %v", w.id, d.Inline, w.inline)
		}
		if diff := cmp.Diff(w.params, d.Params); diff != "" {
			t.Errorf("%s: params mismatch (-want +got):\n%s", w.id, diff)
		}
		if d.Variadic != w.variadic {
			t.Errorf("%s: variadic = %v, want %v", w.id, d.Variadic, w.variadic)
		}
	}
}

func TestExtractSkipsMembersAndLocals(t *testing.T) {
	t.Parallel()

	got := extract(t, "a.hpp", `struct Widget {
  void resize(int n);
  struct Part {};
};
void run() {
  struct Local {};
  void helper();
}
`)
	for _, id := range []model.EntityID{"fn:Widget::resize", "fn:resize", "type:Local", "fn:helper"} {
		if _, ok := got[id]; ok {
			t.Errorf("unexpected declaration %s", id)
		}
	}
	for _, id := range []model.EntityID{"type:Widget", "type:Widget::Part", "fn:run"} {
		if _, ok := got[id]; !ok {
			t.Errorf("missing declaration %s", id)
		}
	}
}

func TestExtractVariablesAndEnumerators(t *testing.T) {
	t.Parallel()

	got := extract(t, "vals.hpp", `#pragma once
extern int gvar;
extern const char* kName;
constexpr int kLimit = 4;
int counters[8];
namespace cfg {
enum Color { Red, Green };
enum class Mode { Fast };
}
struct Holder { static int count; enum { kSize = 2 }; };
void tick() { int local = 0; }
`)
	want := []struct {
		id     model.EntityID
		kind   model.Kind
		decl   string
		def    string
		inline bool
	}{
		{id: "var:gvar", kind: model.Variable, decl: "vals.hpp"},
		{id: "var:kName", kind: model.Variable, decl: "vals.hpp"},
		{id: "var:kLimit", kind: model.Variable, decl: "vals.hpp", def: "vals.hpp", inline: true},
		{id: "var:counters", kind: model.Variable, decl: "vals.hpp", def: "vals.hpp"},
		{id: "enumerator:cfg::Color::Red", kind: model.Enumerator, decl: "vals.hpp", def: "vals.hpp"},
		{id: "enumerator:cfg::Red", kind: model.Enumerator, decl: "vals.hpp", def: "vals.hpp"},
		{id: "enumerator:cfg::Green", kind: model.Enumerator, decl: "vals.hpp", def: "vals.hpp"},
		{id: "enumerator:cfg::Mode::Fast", kind: model.Enumerator, decl: "vals.hpp", def: "vals.hpp"},
		{id: "enumerator:Holder::kSize", kind: model.Enumerator, decl: "vals.hpp", def: "vals.hpp"},
	}
	for _, w := range want {
		d, ok := got[w.id]
		if !ok {
			t.Errorf("missing declaration %s", w.id)
			continue
		}
		if d.Kind != w.kind {
			t.Errorf("%s: kind = %s, want %s", w.id, d.Kind, w.kind)
		}
		if d.DeclHeader != w.decl || d.DefHeader != w.def {
			t.Errorf("%s: headers = (%q, %q), want (%q, %q)", w.id, d.DeclHeader, d.DefHeader, w.decl, w.def)
		}
		if d.Inline != w.inline {
			t.Errorf("%s: inline = %v, want %v", w.id, d.Inline, w.inline)
		}
	}

	// Scoped enumerators, static members and locals are not visible by
	// their bare name.
	for _, id := range []model.EntityID{"enumerator:cfg::Fast", "var:Holder::count", "var:count", "var:local"} {
		if _, ok := got[id]; ok {
			t.Errorf("unexpected declaration %s", id)
		}
	}
}

func TestExtractMacroDefinition(t *testing.T) {
	t.Parallel()

	l := lang.Languages["cpp"]
	source := "#define WRAP(x, ...) Holder<x>{__VA_ARGS__}\n#define LIMIT 10\n"
	tree, err := l.NewParser().ParseCtx(context.Background(), nil, []byte(source))
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()
	fd, err := extractDeclarations(l, tree.RootNode(), []byte(source), "m.hpp")
	if err != nil {
		t.Fatal(err)
	}
	if len(fd.macros) != 2 {
		t.Fatalf("got %d macros, want 2", len(fd.macros))
	}
	wrap := fd.macros[0]
	if wrap.Name != "WRAP" || !wrap.FunctionLike || !wrap.Variadic {
		t.Errorf("WRAP = %+v", wrap)
	}
	if diff := cmp.Diff([]string{"x"}, wrap.Params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
	if wrap.DefSite.Line != 1 || wrap.BodySite.Line != 1 {
		t.Errorf("sites = %v, %v", wrap.DefSite, wrap.BodySite)
	}
	if limit := fd.macros[1]; limit.FunctionLike || limit.Body != "10" {
		t.Errorf("LIMIT = %+v", limit)
	}
}
