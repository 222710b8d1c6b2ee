package parse

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/phobologic/hdrcheck/internal/diag"
	"github.com/phobologic/hdrcheck/internal/engine"
	"github.com/phobologic/hdrcheck/internal/model"
	"github.com/phobologic/hdrcheck/internal/suppress"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

var projectFiles = map[string]string{
	"src/Main.cpp": `#include "refs/Classes.hpp"
#include "refs/Functions.hpp"
#include "refs/Unused.hpp"
#include "refs/Pointee.hpp"
#include "refs/Keep.hpp" // keep
#include "refs/Macros.hpp"
#include "refs/Bundle.hpp"
#include <vector>

int main() {
    Classes classes;
    functions();
    const Pointee* p = nullptr;
    Inner inner;
    return twice(0);
}
`,
	"src/refs/Classes.hpp":   "#pragma once\nclass Classes { public: int x; };\n",
	"src/refs/Functions.hpp": "#pragma once\nvoid functions();\n",
	"src/refs/Unused.hpp":    "#pragma once\nclass Unused {};\n",
	"src/refs/Pointee.hpp":   "#pragma once\nclass Pointee;\n",
	"src/refs/Keep.hpp":      "#pragma once\nclass Kept {};\n",
	"src/refs/Macros.hpp":    "#pragma once\n#define twice(x) ((x) + (x))\n",
	"src/refs/Bundle.hpp":    "#pragma once\n#include \"Inner.hpp\"\n",
	"src/refs/Inner.hpp":     "#pragma once\nstruct Inner {};\n",
}

func defaultRules(t *testing.T) *suppress.Rules {
	t.Helper()
	r, err := suppress.New(suppress.DefaultMarkers, suppress.DefaultIgnore, true)
	if err != nil {
		t.Fatalf("suppress.New: %v", err)
	}
	return r
}

func load(t *testing.T, dir, unit string, opts Options) *model.TranslationUnit {
	t.Helper()
	tu, err := New(opts).Load(context.Background(), filepath.Join(dir, filepath.FromSlash(unit)))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return tu
}

func TestLoadIncludes(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, projectFiles)
	tu := load(t, dir, "src/Main.cpp", Options{Rules: defaultRules(t)})
	refs := filepath.Join(dir, "src", "refs")

	var got []string
	for _, inc := range tu.Includes {
		got = append(got, inc.Spelling)
	}
	want := []string{
		"refs/Classes.hpp", "refs/Functions.hpp", "refs/Unused.hpp", "refs/Pointee.hpp",
		"refs/Keep.hpp", "refs/Macros.hpp", "refs/Bundle.hpp",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("includes mismatch (-want +got):\n%s", diff)
	}
	if tu.Includes[4].Trailing != " // keep" {
		t.Errorf("trailing = %q", tu.Includes[4].Trailing)
	}
	if tu.Includes[0].Path != filepath.Join(refs, "Classes.hpp") {
		t.Errorf("path = %q", tu.Includes[0].Path)
	}

	if len(tu.Unresolved) != 1 || tu.Unresolved[0].Spelling != "vector" || !tu.Unresolved[0].Angled || tu.Unresolved[0].Line != 8 {
		t.Errorf("unresolved = %+v", tu.Unresolved)
	}

	edge := model.IncludeEdge{From: filepath.Join(refs, "Bundle.hpp"), To: filepath.Join(refs, "Inner.hpp")}
	found := false
	for _, e := range tu.Edges {
		found = found || e == edge
	}
	if !found {
		t.Errorf("missing edge %v in %v", edge, tu.Edges)
	}

	if len(tu.Suppressions) != 1 || tu.Suppressions[0].Reason != suppress.ReasonMarker {
		t.Errorf("suppressions = %+v", tu.Suppressions)
	}
}

func TestLoadAnalyze(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, projectFiles)
	tu := load(t, dir, "src/Main.cpp", Options{Rules: defaultRules(t)})
	rep, err := engine.Analyze(tu, nil, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	refs := filepath.Join(dir, "src", "refs")
	h := func(name string) string { return filepath.Join(refs, name) }
	want := map[string]model.Verdict{
		h("Classes.hpp"):   model.UsedDirectly,
		h("Functions.hpp"): model.UsedDirectly,
		h("Unused.hpp"):    model.Unused,
		h("Pointee.hpp"):   model.UsedDirectly,
		h("Keep.hpp"):      model.Suppressed,
		h("Macros.hpp"):    model.UsedDirectly,
		h("Bundle.hpp"):    model.UsedTransitivelyOnly,
		h("Inner.hpp"):     model.UsedTransitivelyOnly,
	}
	if diff := cmp.Diff(want, rep.Result.Verdicts); diff != "" {
		t.Errorf("verdicts mismatch (-want +got):\n%s", diff)
	}

	if got := rep.Result.Strength[h("Classes.hpp")]; got != model.DefinitionRequired {
		t.Errorf("Classes.hpp strength = %v", got)
	}
	if got := rep.Result.Strength[h("Pointee.hpp")]; got != model.DeclarationSufficient {
		t.Errorf("Pointee.hpp strength = %v", got)
	}
	if len(rep.Result.Missing) != 1 || rep.Result.Missing[0].Header != h("Inner.hpp") || rep.Result.Missing[0].Via != h("Bundle.hpp") {
		t.Errorf("missing = %+v", rep.Result.Missing)
	}

	var codes []diag.Code
	for _, d := range rep.Diagnostics {
		codes = append(codes, d.Code)
	}
	if diff := cmp.Diff([]diag.Code{diag.CodeUnresolvedInclude}, codes); diff != "" {
		t.Errorf("diagnostic codes mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMacroArgument(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"main.cpp": `#include "wrap.hpp"
#include "value.hpp"

int main() {
    int n = SIZE_OF(Value);
    return n;
}
`,
		"wrap.hpp":  "#define SIZE_OF(T) sizeof(T)\n",
		"value.hpp": "struct Value { int v; };\n",
	})
	tu := load(t, dir, "main.cpp", Options{})
	rep, err := engine.Analyze(tu, nil, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	var value *model.Reference
	for i, r := range rep.References {
		if r.Name == "Value" {
			value = &rep.References[i]
		}
	}
	if value == nil {
		t.Fatalf("no reference to Value in %+v", rep.References)
	}
	if value.Mode != model.MacroArgument || value.Inner != model.ByValue {
		t.Errorf("Value mode = %s/%s, want macro-argument/by-value", value.Mode, value.Inner)
	}
	if value.Loc.Line != 5 || !value.Loc.InArgument || len(value.Loc.Expansion) != 1 || value.Loc.Expansion[0].Macro != "SIZE_OF" {
		t.Errorf("Value location = %+v", value.Loc)
	}
	if got := rep.Result.Verdicts[filepath.Join(dir, "value.hpp")]; got != model.UsedDirectly {
		t.Errorf("value.hpp verdict = %s", got)
	}
	if got := rep.Result.Verdicts[filepath.Join(dir, "wrap.hpp")]; got != model.UsedDirectly {
		t.Errorf("wrap.hpp verdict = %s", got)
	}
}

func TestLoadValues(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"main.cpp": `#include "vals.hpp"

int use(int gvar) { return gvar; }

int main() {
    return cfg::Mode::Fast == cfg::Mode::Fast ? cfg::Red : limit;
}
`,
		"vals.hpp": "namespace cfg { enum Color { Red }; enum class Mode { Fast }; }\nextern int gvar;\nconst int limit = 3;\n",
	})
	tu := load(t, dir, "main.cpp", Options{})
	rep, err := engine.Analyze(tu, nil, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	seen := make(map[model.EntityID]int)
	for _, r := range rep.References {
		seen[r.Entity]++
	}
	want := map[model.EntityID]int{
		"enumerator:cfg::Mode::Fast": 2,
		"enumerator:cfg::Red":        1,
		"var:limit":                  1,
	}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("references mismatch (-want +got):\n%s", diff)
	}

	vals := filepath.Join(dir, "vals.hpp")
	if got := rep.Result.Verdicts[vals]; got != model.UsedDirectly {
		t.Errorf("vals.hpp verdict = %s", got)
	}
	if got := rep.Result.Strength[vals]; got != model.DefinitionRequired {
		t.Errorf("vals.hpp strength = %s", got)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{"notes.txt": "hello\n"})
	fe := New(Options{})
	if _, err := fe.Load(context.Background(), filepath.Join(dir, "notes.txt")); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("Load(notes.txt) error = %v", err)
	}
	if _, err := fe.Load(context.Background(), filepath.Join(dir, "missing.cpp")); err == nil {
		t.Error("Load(missing.cpp) succeeded")
	}
}

func TestLoadIncludePaths(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"src/main.cpp":        "#include <lib/api.hpp>\n\nvoid run() { api(); }\n",
		"include/lib/api.hpp":  "void api();\n",
	})
	tu := load(t, dir, "src/main.cpp", Options{IncludePaths: []string{filepath.Join(dir, "include")}})
	if len(tu.Includes) != 1 || tu.Includes[0].Path != filepath.Join(dir, "include", "lib", "api.hpp") {
		t.Fatalf("includes = %+v", tu.Includes)
	}
	rep, err := engine.Analyze(tu, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := rep.Result.Verdicts[tu.Includes[0].Path]; got != model.UsedDirectly {
		t.Errorf("verdict = %s", got)
	}
}
