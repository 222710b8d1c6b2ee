package lang

import "github.com/smacker/go-tree-sitter/cpp"

func init() {
	Languages["cpp"] = &Language{
		Name:             "cpp",
		Extensions:       []string{".cpp", ".cc", ".cxx", ".c++", ".cp", ".mm"},
		HeaderExtensions: []string{".hpp", ".hh", ".hxx", ".h++", ".h", ".inl", ".ipp", ".tpp"},
		lang:             cpp.GetLanguage(),
	}
}
