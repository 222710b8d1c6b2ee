// Package compdb reads a JSON compilation database (compile_commands.json)
// for the translation units it lists and the include directories their
// command lines pass to the compiler.
package compdb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
)

// FileName is the conventional name of a compilation database.
const FileName = "compile_commands.json"

// Command is one entry of the database.
type Command struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Command   string   `json:"command,omitempty"`
	Arguments []string `json:"arguments,omitempty"`
	Output    string   `json:"output,omitempty"`
}

// includeFlags are the compiler options whose value is an include directory.
var includeFlags = []string{"-isystem", "-iquote", "-idirafter", "-I"}

// Load reads the database at path. A directory is searched for FileName.
func Load(path string) ([]Command, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, FileName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading compilation database: %w", err)
	}
	cmds, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cmds, nil
}

// Parse decodes a compilation database.
func Parse(data []byte) ([]Command, error) {
	var cmds []Command
	if err := json.Unmarshal(data, &cmds); err != nil {
		return nil, fmt.Errorf("parsing compilation database: %w", err)
	}
	for i, c := range cmds {
		if c.File == "" {
			return nil, fmt.Errorf("entry %d: missing file", i)
		}
		if c.Command == "" && len(c.Arguments) == 0 {
			return nil, fmt.Errorf("entry %d (%s): missing command and arguments", i, c.File)
		}
	}
	return cmds, nil
}

// Args returns the entry's command line as separate arguments. The
// "command" form is split with shell quoting rules.
func (c Command) Args() ([]string, error) {
	if len(c.Arguments) > 0 {
		return c.Arguments, nil
	}
	args, err := shlex.Split(c.Command)
	if err != nil {
		return nil, fmt.Errorf("splitting command for %s: %w", c.File, err)
	}
	return args, nil
}

// Path returns the entry's source file, resolved against its directory.
func (c Command) Path() string {
	return c.abs(c.File)
}

func (c Command) abs(p string) string {
	if filepath.IsAbs(p) || c.Directory == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Directory, p)
}

// IncludePaths returns the include directories of the entry in command-line
// order, resolved against its directory. Both "-I dir" and "-Idir" forms
// are recognized.
func (c Command) IncludePaths() ([]string, error) {
	args, err := c.Args()
	if err != nil {
		return nil, err
	}
	var out []string
	for i := 0; i < len(args); i++ {
		for _, flag := range includeFlags {
			if !strings.HasPrefix(args[i], flag) {
				continue
			}
			dir := strings.TrimPrefix(args[i], flag)
			if dir == "" {
				if i+1 >= len(args) {
					break
				}
				i++
				dir = args[i]
			}
			out = append(out, c.abs(dir))
			break
		}
	}
	return out, nil
}

// Sources returns the distinct source files of cmds in database order.
func Sources(cmds []Command) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, c := range cmds {
		p := c.Path()
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// IncludePaths returns the distinct include directories of every entry, in
// first-seen order.
func IncludePaths(cmds []Command) ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	for _, c := range cmds {
		dirs, err := c.IncludePaths()
		if err != nil {
			return nil, err
		}
		for _, d := range dirs {
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out, nil
}
