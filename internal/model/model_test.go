package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParamAt(t *testing.T) {
	t.Parallel()

	d := Declaration{Kind: TemplateFunction, Params: []ParamUse{Complete, Opaque}}
	tests := []struct {
		index  int
		want   ParamUse
		wantOK bool
	}{
		{0, Complete, true},
		{1, Opaque, true},
		{2, "", false},
		{-1, "", false},
	}
	for _, tt := range tests {
		got, ok := d.ParamAt(tt.index)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParamAt(%d) = %q, %v; want %q, %v", tt.index, got, ok, tt.want, tt.wantOK)
		}
	}

	d.Variadic = true
	if got, ok := d.ParamAt(5); !ok || got != Opaque {
		t.Errorf("variadic ParamAt(5) = %q, %v", got, ok)
	}
}

func TestHeadersDedup(t *testing.T) {
	t.Parallel()

	d := Declaration{
		DeclHeader: "fwd.hpp",
		DefHeader:  "Foo.hpp",
		Redeclared: []string{"fwd.hpp", "other.hpp", ""},
	}
	want := []string{"Foo.hpp", "fwd.hpp", "other.hpp"}
	if diff := cmp.Diff(want, d.Headers()); diff != "" {
		t.Errorf("Headers() mismatch (-want +got):\n%s", diff)
	}
}

func TestStrengthOrder(t *testing.T) {
	t.Parallel()

	if !(NoRequirement < DeclarationSufficient && DeclarationSufficient < DefinitionRequired) {
		t.Fatal("strength constants must be ordered")
	}
	if DefinitionRequired.String() != "definition-required" {
		t.Errorf("String() = %q", DefinitionRequired.String())
	}
}

func TestWalkDocumentOrder(t *testing.T) {
	t.Parallel()

	root := (&Node{Kind: NodeUnit}).Append(
		(&Node{Kind: NodeCall}).Append(&Node{Kind: NodeDeclRef, Name: "a", Entity: "fn:a"}),
		nil,
		&Node{Kind: NodeTypeRef, Name: "B", Entity: "type:B"},
	)

	var names []string
	Walk(root, func(n *Node) bool {
		if n.IsNameUse() {
			names = append(names, n.Name)
		}
		return true
	})
	if diff := cmp.Diff([]string{"a", "B"}, names); diff != "" {
		t.Errorf("Walk order mismatch (-want +got):\n%s", diff)
	}
	if len(root.Children) != 2 {
		t.Errorf("Append kept nil child: %d children", len(root.Children))
	}
}
