// Package lang provides a language registry mapping file extensions to
// tree-sitter languages and their embedded declaration queries.
package lang

import (
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

//go:embed queries/*.scm
var queryFS embed.FS

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Name string
	// Extensions are translation-unit extensions.
	Extensions []string
	// HeaderExtensions are extensions of files only reached through #include.
	HeaderExtensions []string
	lang             *sitter.Language
	queryOnce        sync.Once
	query            *sitter.Query
	queryErr         error
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// GetDeclQuery returns the compiled declaration query (safe to share across
// goroutines).
func (l *Language) GetDeclQuery() (*sitter.Query, error) {
	l.queryOnce.Do(func() {
		data, err := queryFS.ReadFile(fmt.Sprintf("queries/%s.scm", l.Name))
		if err != nil {
			l.queryErr = fmt.Errorf("reading query file: %w", err)
			return
		}
		q, err := sitter.NewQuery(data, l.lang)
		if err != nil {
			l.queryErr = fmt.Errorf("compiling query: %w", err)
			return
		}
		l.query = q
	})
	return l.query, l.queryErr
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

// extensionMap is built lazily after all init() functions have run.
var extensionMap map[string]string
var headerMap map[string]bool
var extensionOnce sync.Once

func buildExtensionMaps() {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		headerMap = make(map[string]bool)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Name
			}
			for _, ext := range l.HeaderExtensions {
				headerMap[ext] = true
			}
		}
	})
}

// ForExtension returns the language name for a translation-unit extension,
// or "" if unsupported. Header extensions return "": a header is parsed
// with the language of the unit that includes it.
func ForExtension(ext string) string {
	buildExtensionMaps()
	return extensionMap[strings.ToLower(ext)]
}

// ForPath is ForExtension applied to path's extension.
func ForPath(path string) string {
	return ForExtension(filepath.Ext(path))
}

// IsHeader reports whether path has a header extension.
func IsHeader(path string) bool {
	buildExtensionMaps()
	return headerMap[strings.ToLower(filepath.Ext(path))]
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
