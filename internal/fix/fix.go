// Package fix rewrites a translation unit's include block: unused includes
// are removed and missing ones are added after the last include.
package fix

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/phobologic/hdrcheck/internal/engine"
	"github.com/phobologic/hdrcheck/internal/model"
)

var includeLine = regexp.MustCompile(`^[ \t]*#[ \t]*include[ \t]*([<"])([^>"]+)[>"]`)

// Addition is an include directive to insert.
type Addition struct {
	Header   string
	Spelling string
	Angled   bool
}

// Directive renders a as an #include line.
func (a Addition) Directive() string {
	if a.Angled {
		return "#include <" + a.Spelling + ">"
	}
	return `#include "` + a.Spelling + `"`
}

// Edit is the change planned for one unit.
type Edit struct {
	Unit   string
	Remove []model.Include
	Add    []Addition
}

// Empty reports whether the edit changes nothing.
func (e Edit) Empty() bool {
	return len(e.Remove) == 0 && len(e.Add) == 0
}

// Plan derives the edit for one analyzed unit. Only includes with an unused
// verdict are removed, so suppressed includes always stay.
func Plan(rep *engine.Report, includePaths []string) Edit {
	e := Edit{Unit: rep.Unit}
	for _, u := range rep.Result.Unused {
		if rep.Result.Verdicts[u.Include.Path] != model.Unused {
			continue
		}
		e.Remove = append(e.Remove, u.Include)
	}
	for _, m := range rep.Result.Missing {
		spelling, local := Spelling(m.Header, rep.Unit, includePaths)
		e.Add = append(e.Add, Addition{Header: m.Header, Spelling: spelling, Angled: !local})
	}
	return e
}

// Spelling returns how unit should name header. A header below a src or
// include root is spelled relative to the matching directory under an
// include path; otherwise relative to the unit's directory or to an include
// path. local is false when none applies and the bare file name is returned
// for an angled include.
func Spelling(header, unit string, includePaths []string) (spelling string, local bool) {
	header = abs(header)
	dir := filepath.Dir(abs(unit))

	for anc := dir; ; {
		if sourceRoot(anc) {
			if rel, err := filepath.Rel(anc, dir); err == nil {
				for _, ip := range includePaths {
					if s, ok := under(header, filepath.Join(abs(ip), rel)); ok {
						return s, true
					}
				}
			}
		}
		parent := filepath.Dir(anc)
		if parent == anc {
			break
		}
		anc = parent
	}

	if s, ok := under(header, dir); ok {
		return s, true
	}
	for _, ip := range includePaths {
		if s, ok := under(header, abs(ip)); ok {
			return s, true
		}
	}
	return filepath.Base(header), false
}

func sourceRoot(dir string) bool {
	switch filepath.Base(dir) {
	case "src", "include":
		return true
	case "main":
		parent := filepath.Base(filepath.Dir(dir))
		return parent == "src" || parent == "include"
	}
	return false
}

func under(path, dir string) (string, bool) {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func abs(path string) string {
	if a, err := filepath.Abs(path); err == nil {
		return a
	}
	return filepath.Clean(path)
}

// Apply writes e to disk. Lines to remove must still hold the include they
// were planned for. Additions already spelled in the file are skipped. The
// file is rewritten through a temporary file and a rename.
func Apply(e Edit) (changed bool, err error) {
	if e.Empty() {
		return false, nil
	}
	info, err := os.Stat(e.Unit)
	if err != nil {
		return false, fmt.Errorf("fixing %s: %w", e.Unit, err)
	}
	src, err := os.ReadFile(e.Unit)
	if err != nil {
		return false, fmt.Errorf("fixing %s: %w", e.Unit, err)
	}
	out, changed, err := Rewrite(src, e)
	if err != nil {
		return false, fmt.Errorf("fixing %s: %w", e.Unit, err)
	}
	if !changed {
		return false, nil
	}

	tmp := e.Unit + ".tmp"
	if err := os.WriteFile(tmp, out, info.Mode().Perm()); err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("fixing %s: %w", e.Unit, err)
	}
	if err := os.Rename(tmp, e.Unit); err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("fixing %s: %w", e.Unit, err)
	}
	return true, nil
}

// Rewrite applies e to the source text src.
func Rewrite(src []byte, e Edit) (out []byte, changed bool, err error) {
	lines := bytes.Split(src, []byte("\n"))

	drop := make(map[int]bool, len(e.Remove))
	for _, inc := range e.Remove {
		i := inc.Line - 1
		if i < 0 || i >= len(lines) {
			return nil, false, fmt.Errorf("line %d out of range", inc.Line)
		}
		m := includeLine.FindSubmatch(lines[i])
		if m == nil || string(m[2]) != inc.Spelling {
			return nil, false, fmt.Errorf("line %d no longer includes %q", inc.Line, inc.Spelling)
		}
		drop[i] = true
	}

	existing := make(map[string]bool)
	last := -1
	for i, line := range lines {
		if m := includeLine.FindSubmatch(line); m != nil {
			last = i
			if !drop[i] {
				existing[string(m[2])] = true
			}
		}
	}

	var add [][]byte
	for _, a := range e.Add {
		if existing[a.Spelling] {
			continue
		}
		existing[a.Spelling] = true
		add = append(add, []byte(a.Directive()))
	}
	if len(drop) == 0 && len(add) == 0 {
		return src, false, nil
	}

	kept := make([][]byte, 0, len(lines)+len(add))
	if last < 0 {
		kept = append(kept, add...)
	}
	for i, line := range lines {
		if !drop[i] {
			kept = append(kept, line)
		}
		if i == last {
			kept = append(kept, add...)
		}
	}
	return bytes.Join(kept, []byte("\n")), true, nil
}
