package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/phobologic/hdrcheck/internal/model"
	"github.com/phobologic/hdrcheck/internal/suppress"
)

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("missing file should give defaults (-want +got):\n%s", diff)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	data := `include_paths: [include, /opt/sdk/include]
compdb: build
keep_markers: ["keep", "IWYU pragma: keep"]
jobs: 4
format: text
keep:
  src/Main.cpp: [src/Compat.hpp, /opt/sdk/include/abi.h]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := DefaultConfig()
	want.IncludePaths = []string{filepath.Join(dir, "include"), "/opt/sdk/include"}
	want.Compdb = filepath.Join(dir, "build")
	want.KeepMarkers = []string{"keep", "IWYU pragma: keep"}
	want.Jobs = 4
	want.Format = FormatText
	want.Keep = map[string][]string{
		filepath.Join(dir, "src", "Main.cpp"): {filepath.Join(dir, "src", "Compat.hpp"), "/opt/sdk/include/abi.h"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("LoadConfig mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad yaml", "jobs: [", "parsing config file"},
		{"bad format", "format: xml", "format"},
		{"negative jobs", "jobs: -1", "jobs"},
		{"bad ignore", "ignore: '('", "ignore pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), FileName)
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadConfig error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := SaveConfig(path, DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := DefaultConfig()
	want.IncludePaths = []string{filepath.Join(dir, "include")}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRules(t *testing.T) {
	t.Parallel()

	r, err := DefaultConfig().Rules()
	if err != nil {
		t.Fatalf("Rules: %v", err)
	}
	if !r.Marked(" // keep") || !r.Ignored("src/detail_impl.hpp") {
		t.Error("default rules not applied")
	}
}

func TestRulesKeep(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Keep = map[string][]string{"/src/Main.cpp": {"/src/Compat.hpp"}}
	r, err := cfg.Rules()
	if err != nil {
		t.Fatalf("Rules: %v", err)
	}
	got := r.Apply("/src/Main.cpp", []model.Include{{Path: "/src/Compat.hpp", Line: 2}})
	if len(got) != 1 || got[0].Reason != suppress.ReasonConfigured {
		t.Errorf("Apply = %+v, want one configured suppression", got)
	}
}
