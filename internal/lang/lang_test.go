package lang

import (
	"context"
	"testing"
)

func TestForExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want string
	}{
		{".cpp", "cpp"},
		{".CC", "cpp"},
		{".c", "c"},
		{".hpp", ""},
		{".h", ""},
		{".go", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			got := ForExtension(tt.ext)
			if got != tt.want {
				t.Errorf("ForExtension(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestIsHeader(t *testing.T) {
	t.Parallel()

	for path, want := range map[string]bool{
		"src/Classes.hpp": true,
		"a/b.h":           true,
		"x.inl":           true,
		"main.cpp":        false,
		"README":          false,
	} {
		if got := IsHeader(path); got != want {
			t.Errorf("IsHeader(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestLanguagesRegistered(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"cpp", "c"} {
		l, ok := Languages[name]
		if !ok {
			t.Fatalf("%s language not registered", name)
		}
		if l.GetLanguage() == nil {
			t.Errorf("%s language is nil", name)
		}
		if p := l.NewParser(); p == nil {
			t.Errorf("%s: NewParser returned nil", name)
		}
	}
}

func TestGetDeclQuery(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"cpp", "c"} {
		l := Languages[name]
		q, err := l.GetDeclQuery()
		if err != nil {
			t.Fatalf("%s: GetDeclQuery: %v", name, err)
		}
		if q == nil {
			t.Fatalf("%s: query is nil", name)
		}

		// Second call returns cached result.
		q2, err2 := l.GetDeclQuery()
		if err2 != nil || q2 != q {
			t.Errorf("%s: second call returned different result", name)
		}
	}
}

func TestParseCpp(t *testing.T) {
	t.Parallel()

	src := []byte("#include \"Classes.hpp\"\nint main() { Classes c; }\n")
	tree, err := Languages["cpp"].NewParser().ParseCtx(context.Background(), nil, src)
	if err != nil {
		t.Fatalf("ParseCtx: %v", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.Type() != "translation_unit" {
		t.Fatalf("root = %s", root.Type())
	}
	inc := root.NamedChild(0)
	if inc.Type() != "preproc_include" {
		t.Errorf("first child = %s", inc.Type())
	}
	if got := NodeText(inc.ChildByFieldName("path"), src); got != `"Classes.hpp"` {
		t.Errorf("include path = %q", got)
	}
}
