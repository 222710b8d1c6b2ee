package graph

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/phobologic/hdrcheck/internal/model"
)

func edges(pairs ...string) []model.IncludeEdge {
	var out []model.IncludeEdge
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.IncludeEdge{From: pairs[i], To: pairs[i+1]})
	}
	return out
}

func TestBuildGraphIncludes(t *testing.T) {
	t.Parallel()

	g := BuildGraph(edges(
		"main.cpp", "b.hpp",
		"main.cpp", "a.hpp",
		"main.cpp", "a.hpp",
		"a.hpp", "a.hpp",
	))

	if diff := cmp.Diff([]string{"a.hpp", "b.hpp"}, g.Includes("main.cpp")); diff != "" {
		t.Errorf("Includes mismatch (-want +got):\n%s", diff)
	}
	if got := g.Includes("a.hpp"); len(got) != 0 {
		t.Errorf("expected no self-edge, got %v", got)
	}
	if diff := cmp.Diff([]string{"a.hpp", "b.hpp", "main.cpp"}, g.Nodes()); diff != "" {
		t.Errorf("Nodes mismatch (-want +got):\n%s", diff)
	}
}

func TestReachable(t *testing.T) {
	t.Parallel()

	g := BuildGraph(edges(
		"main.cpp", "a.hpp",
		"a.hpp", "b.hpp",
		"b.hpp", "c.hpp",
		"main.cpp", "d.hpp",
	))

	tests := []struct {
		name  string
		roots []string
		want  []string
	}{
		{"chain", []string{"a.hpp"}, []string{"b.hpp", "c.hpp"}},
		{"leaf", []string{"c.hpp"}, []string{}},
		{"unit", []string{"main.cpp"}, []string{"a.hpp", "b.hpp", "c.hpp", "d.hpp"}},
		{"several roots", []string{"b.hpp", "d.hpp"}, []string{"c.hpp"}},
		{"unknown", []string{"x.hpp"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, g.Closure(tt.roots...)); diff != "" {
				t.Errorf("Closure mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if !g.Reaches("a.hpp", "c.hpp") {
		t.Error("a.hpp should reach c.hpp")
	}
	if g.Reaches("c.hpp", "a.hpp") {
		t.Error("c.hpp should not reach a.hpp")
	}
}

func TestReachableCycle(t *testing.T) {
	t.Parallel()

	g := BuildGraph(edges(
		"a.hpp", "b.hpp",
		"b.hpp", "c.hpp",
		"c.hpp", "a.hpp",
	))

	if diff := cmp.Diff([]string{"a.hpp", "b.hpp", "c.hpp"}, g.Closure("a.hpp")); diff != "" {
		t.Errorf("Closure mismatch (-want +got):\n%s", diff)
	}
	if got := g.Cost("a.hpp"); got != 2 {
		t.Errorf("Cost(a.hpp) = %d, want 2", got)
	}
}

func TestCost(t *testing.T) {
	t.Parallel()

	g := BuildGraph(edges(
		"a.hpp", "b.hpp",
		"a.hpp", "c.hpp",
		"b.hpp", "c.hpp",
	))

	for h, want := range map[string]int{"a.hpp": 2, "b.hpp": 1, "c.hpp": 0} {
		if got := g.Cost(h); got != want {
			t.Errorf("Cost(%s) = %d, want %d", h, got, want)
		}
	}
}

func TestEmptyGraph(t *testing.T) {
	t.Parallel()

	g := BuildGraph(nil)
	if len(g.Nodes()) != 0 {
		t.Errorf("Nodes() = %v", g.Nodes())
	}
	if g.Cost("a.hpp") != 0 {
		t.Error("Cost of unknown file should be 0")
	}
}
