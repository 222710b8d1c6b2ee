package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/phobologic/hdrcheck/internal/aggregate"
	"github.com/phobologic/hdrcheck/internal/diag"
	"github.com/phobologic/hdrcheck/internal/engine"
	"github.com/phobologic/hdrcheck/internal/location"
	"github.com/phobologic/hdrcheck/internal/model"
)

func makeOutcomes() []engine.Outcome {
	inner := model.Reference{Entity: "type:Inner", Name: "Inner", Mode: model.ByValue, Loc: location.At("Main.cpp", 7, 3)}
	simple := model.Reference{Entity: "type:Simple", Name: "Simple", Mode: model.ByPointer, Loc: location.At("Main.cpp", 6, 1)}
	return []engine.Outcome{
		{
			Path: "Main.cpp",
			Report: &engine.Report{
				Unit: "Main.cpp",
				Includes: []model.Include{
					{Path: "Simple.hpp", Spelling: "Simple.hpp", Line: 1},
					{Path: "Unused.hpp", Spelling: "Unused.hpp", Line: 2},
					{Path: "Main.hpp", Spelling: "Main.hpp", Line: 3},
					{Path: "Bundle.hpp", Spelling: "Bundle.hpp", Line: 4},
				},
				References: []model.Reference{simple, inner},
				Requirements: []model.Requirement{
					{Header: "Simple.hpp", Strength: model.DeclarationSufficient, Ref: simple},
					{Header: "Inner.hpp", Strength: model.DefinitionRequired, Ref: inner},
				},
				Result: aggregate.Result{
					Headers: []string{"Simple.hpp", "Unused.hpp", "Main.hpp", "Bundle.hpp", "Inner.hpp"},
					Verdicts: map[string]model.Verdict{
						"Simple.hpp": model.UsedDirectly,
						"Unused.hpp": model.Unused,
						"Main.hpp":   model.Suppressed,
						"Bundle.hpp": model.UsedTransitivelyOnly,
						"Inner.hpp":  model.UsedTransitivelyOnly,
					},
					Strength: map[string]model.Strength{
						"Simple.hpp": model.DeclarationSufficient,
						"Inner.hpp":  model.DefinitionRequired,
					},
					Refs: map[string][]model.Reference{
						"Simple.hpp": {simple},
						"Inner.hpp":  {inner},
					},
					Reasons: map[string]string{"Main.hpp": "corresponding header"},
					Cost:    map[string]int{"Simple.hpp": 1, "Unused.hpp": 1, "Main.hpp": 1, "Bundle.hpp": 2, "Inner.hpp": 1},
					Missing: []aggregate.Missing{
						{Header: "Inner.hpp", Strength: model.DefinitionRequired, Refs: []model.Reference{inner}, Via: "Bundle.hpp"},
					},
				},
				Diagnostics: []diag.Diagnostic{
					{Severity: diag.Warning, Code: diag.CodeUnresolvedInclude, Message: "cannot resolve include <vector>", Loc: location.At("Main.cpp", 5, 1)},
				},
			},
		},
		{Path: "Broken.cpp", Err: errors.New("loading Broken.cpp: no such file")},
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	s := Build(makeOutcomes(), false)

	wantUnits := []UnitRow{
		{Unit: "Main.cpp", Includes: 4, Headers: 5, References: 2},
		{Unit: "Broken.cpp", Err: "loading Broken.cpp: no such file"},
	}
	if diff := cmp.Diff(wantUnits, s.Units); diff != "" {
		t.Errorf("units mismatch (-want +got):\n%s", diff)
	}

	wantVerdicts := []Row{
		{Unit: "Main.cpp", Header: "Simple.hpp", Line: 1, Verdict: model.UsedDirectly, Strength: model.DeclarationSufficient, Refs: 1, Cost: 1},
		{Unit: "Main.cpp", Header: "Unused.hpp", Line: 2, Verdict: model.Unused, Cost: 1},
		{Unit: "Main.cpp", Header: "Main.hpp", Line: 3, Verdict: model.Suppressed, Cost: 1, Reason: "corresponding header"},
		{Unit: "Main.cpp", Header: "Bundle.hpp", Line: 4, Verdict: model.UsedTransitivelyOnly, Cost: 2},
		{Unit: "Main.cpp", Header: "Inner.hpp", Verdict: model.UsedTransitivelyOnly, Strength: model.DefinitionRequired, Refs: 1, Cost: 1},
	}
	if diff := cmp.Diff(wantVerdicts, s.Verdicts); diff != "" {
		t.Errorf("verdicts mismatch (-want +got):\n%s", diff)
	}

	if len(s.Missing) != 1 || s.Missing[0].Header != "Inner.hpp" || s.Missing[0].Via != "Bundle.hpp" || s.Missing[0].First.Name != "Inner" {
		t.Errorf("missing = %+v", s.Missing)
	}
	if len(s.Diagnostics) != 1 || s.Diagnostics[0].Unit != "Main.cpp" {
		t.Errorf("diagnostics = %+v", s.Diagnostics)
	}
	if s.References != nil {
		t.Errorf("references collected without withRefs: %+v", s.References)
	}

	s = Build(makeOutcomes(), true)
	wantRefs := []RefRow{
		{Unit: "Main.cpp", Header: "Simple.hpp", Name: "Simple", Mode: model.ByPointer, Strength: model.DeclarationSufficient, Loc: "Main.cpp:6:1"},
		{Unit: "Main.cpp", Header: "Inner.hpp", Name: "Inner", Mode: model.ByValue, Strength: model.DefinitionRequired, Loc: "Main.cpp:7:3"},
	}
	if diff := cmp.Diff(wantRefs, s.References); diff != "" {
		t.Errorf("references mismatch (-want +got):\n%s", diff)
	}
}

func TestParseKinds(t *testing.T) {
	t.Parallel()

	got, err := ParseKinds(" Unused, missing,,")
	if err != nil {
		t.Fatalf("ParseKinds: %v", err)
	}
	if diff := cmp.Diff([]string{"unused", "missing"}, got); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}

	if _, err := ParseKinds("unused,bogus"); err == nil {
		t.Error("unknown kind accepted")
	}
}

func TestSelectKinds(t *testing.T) {
	t.Parallel()

	s := Build(makeOutcomes(), false)
	if got := SelectKinds(s, nil); got != s {
		t.Error("empty kinds should return original")
	}

	got := SelectKinds(s, []string{KindUnused, KindMissing})
	if len(got.Units) != 2 {
		t.Errorf("units dropped: %+v", got.Units)
	}
	if len(got.Verdicts) != 1 || got.Verdicts[0].Header != "Unused.hpp" {
		t.Errorf("verdicts = %+v", got.Verdicts)
	}
	if len(got.Missing) != 1 {
		t.Errorf("missing = %+v", got.Missing)
	}
	if len(got.Diagnostics) != 0 {
		t.Errorf("diagnostics kept: %+v", got.Diagnostics)
	}

	got = SelectKinds(s, []string{KindTransitive, KindDiagnostics})
	if len(got.Verdicts) != 2 || len(got.Missing) != 0 || len(got.Diagnostics) != 1 {
		t.Errorf("transitive,diagnostics = %+v", got)
	}
}

func TestFilterByHeader(t *testing.T) {
	t.Parallel()

	s := Build(makeOutcomes(), true)
	if got := FilterByHeader(s, ""); got != s {
		t.Error("empty filter should return original")
	}

	got := FilterByHeader(s, "INNER")
	if len(got.Verdicts) != 1 || got.Verdicts[0].Header != "Inner.hpp" {
		t.Errorf("verdicts = %+v", got.Verdicts)
	}
	if len(got.Missing) != 1 {
		t.Errorf("missing = %+v", got.Missing)
	}
	if len(got.References) != 1 || got.References[0].Name != "Inner" {
		t.Errorf("references = %+v", got.References)
	}
	if len(got.Diagnostics) != 0 {
		t.Errorf("diagnostics = %+v", got.Diagnostics)
	}

	got = FilterByHeader(s, "vector")
	if len(got.Diagnostics) != 1 || len(got.Verdicts) != 0 {
		t.Errorf("vector filter = %+v", got)
	}
}

func TestHasFindings(t *testing.T) {
	t.Parallel()

	s := Build(makeOutcomes(), false)
	if !HasFindings(s) {
		t.Error("unused and missing includes not reported as findings")
	}

	clean := &Summary{
		Units:    []UnitRow{{Unit: "a.cpp"}},
		Verdicts: []Row{{Unit: "a.cpp", Header: "a.hpp", Verdict: model.UsedDirectly}},
	}
	if HasFindings(clean) {
		t.Error("clean summary reported findings")
	}

	clean.Units = append(clean.Units, UnitRow{Unit: "b.cpp", Err: "boom"})
	if !HasFindings(clean) {
		t.Error("failed unit not reported as a finding")
	}
}

func TestCounts(t *testing.T) {
	t.Parallel()

	want := map[string]int{
		KindUsed:        1,
		KindUnused:      1,
		KindSuppressed:  1,
		KindTransitive:  2,
		KindMissing:     1,
		KindDiagnostics: 1,
	}
	if diff := cmp.Diff(want, Counts(Build(makeOutcomes(), false))); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteText(&buf, Build(makeOutcomes(), false)); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Main.cpp\n",
		"used        Simple.hpp  (line 1, declaration-sufficient, 1 ref)",
		"unused      Unused.hpp  (line 2)",
		"suppressed  Main.hpp  (line 3, corresponding header)",
		"transitive  Bundle.hpp  (line 4)",
		"missing     Inner.hpp  (definition-required, via Bundle.hpp, Inner at Main.cpp:7:3)",
		"warning     Main.cpp:5:1: cannot resolve include <vector>",
		"Broken.cpp\n  failed      loading Broken.cpp: no such file",
		"2 units: 1 used, 2 transitive, 1 unused, 1 suppressed, 1 missing, 1 diagnostics",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("escape codes written to a non-terminal:\n%q", out)
	}
}

func TestWriteTextEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteText(&buf, &Summary{}); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if got := buf.String(); got != "\n0 units: no findings\n" {
		t.Errorf("output = %q", got)
	}
}
