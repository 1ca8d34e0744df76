package extract

import (
	"errors"
	"fmt"

	tree_sitter_kotlin "github.com/tree-sitter-grammars/tree-sitter-kotlin/bindings/go"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// ErrUnsupportedLanguage reports a language with no grammar configuration.
// Callers are expected to fall back to the text-based extractor.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// languageConfig drives the language-agnostic tree walk: which node kinds
// count as enclosing blocks, which carry imports, which kind is the file
// root, and which kind wraps a decorated declaration.
type languageConfig struct {
	blocks   map[string]bool
	deps     map[string]bool
	wrappers map[string]bool
	root     string
}

var languageConfigs = map[string]languageConfig{
	"python": {
		blocks: map[string]bool{
			"function_definition":       true,
			"async_function_definition": true,
			"class_definition":          true,
			"module":                    true,
			"decorated_definition":      true,
		},
		deps: map[string]bool{
			"import_statement":        true,
			"import_from_statement":   true,
			"future_import_statement": true,
		},
		wrappers: map[string]bool{"decorated_definition": true},
		root:     "module",
	},
	"javascript": {
		blocks: map[string]bool{
			"class":                          true,
			"class_declaration":              true,
			"function_expression":            true,
			"function_declaration":           true,
			"generator_function":             true,
			"generator_function_declaration": true,
			"method_definition":              true,
			"arrow_function":                 true,
			"program":                        true,
		},
		deps: map[string]bool{
			"import_statement":     true,
			"import_declaration":   true,
			"lexical_declaration":  true,
			"variable_declaration": true,
		},
		root: "program",
	},
	"typescript": {
		blocks: map[string]bool{
			"class_declaration":      true,
			"function_declaration":   true,
			"function_expression":    true,
			"method_definition":      true,
			"interface_declaration":  true,
			"type_alias_declaration": true,
			"namespace_declaration":  true,
			"enum_declaration":       true,
			"arrow_function":         true,
			"program":                true,
		},
		deps: map[string]bool{
			"import_statement":      true,
			"import_declaration":    true,
			"import_require_clause": true,
			"lexical_declaration":   true,
			"variable_declaration":  true,
		},
		root: "program",
	},
	"java": {
		blocks: map[string]bool{
			"class_declaration":           true,
			"method_declaration":          true,
			"interface_declaration":       true,
			"enum_declaration":            true,
			"constructor_declaration":     true,
			"record_declaration":          true,
			"annotation_type_declaration": true,
		},
		deps: map[string]bool{
			"import_declaration":        true,
			"package_declaration":       true,
			"static_import_declaration": true,
		},
		root: "program",
	},
	"kotlin": {
		blocks: map[string]bool{
			"class_declaration":      true,
			"function_declaration":   true,
			"object_declaration":     true,
			"interface_declaration":  true,
			"type_alias":             true,
			"companion_object":       true,
			"secondary_constructor":  true,
			"enum_entry":             true,
			"annotation_declaration": true,
			"init_block":             true,
			"lambda_expression":      true,
			"property_declaration":   true,
		},
		deps: map[string]bool{
			"import_header":  true,
			"package_header": true,
		},
		root: "source_file",
	},
}

// requireGatedKinds are declaration kinds that double as ordinary variable
// bindings; they only count as dependencies when their text contains a
// require(...) call.
var requireGatedKinds = map[string]bool{
	"lexical_declaration":  true,
	"variable_declaration": true,
}

// Supported reports whether lang has a syntax-aware extractor.
func Supported(lang string) bool {
	_, ok := languageConfigs[lang]
	return ok
}

// SupportedLanguages returns the languages with grammar configurations.
func SupportedLanguages() []string {
	langs := make([]string, 0, len(languageConfigs))
	for lang := range languageConfigs {
		langs = append(langs, lang)
	}
	return langs
}

func loadLanguage(lang string) (*tree_sitter.Language, error) {
	switch lang {
	case "python":
		return tree_sitter.NewLanguage(tree_sitter_python.Language()), nil
	case "javascript":
		return tree_sitter.NewLanguage(tree_sitter_javascript.Language()), nil
	case "typescript":
		return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()), nil
	case "java":
		return tree_sitter.NewLanguage(tree_sitter_java.Language()), nil
	case "kotlin":
		return tree_sitter.NewLanguage(tree_sitter_kotlin.Language()), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
}
