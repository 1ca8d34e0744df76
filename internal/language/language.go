// Package language maps filenames to language identifiers used for prompt
// fencing and extractor selection.
package language

import (
	"path/filepath"
	"strings"
)

// Unknown is returned for filenames whose extension is not recognized.
const Unknown = "text"

var extensions = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".java": "java",
	".kt":   "kotlin",
	".kts":  "kotlin",
	".go":   "go",
	".rb":   "ruby",
	".php":  "php",
	".cs":   "csharp",
	".cpp":  "cpp",
	".c":    "c",
	".h":    "c",
	".hpp":  "cpp",
	".html": "html",
	".css":  "css",
	".scss": "scss",
	".md":   "markdown",
	".json": "json",
	".xml":  "xml",
	".yaml": "yaml",
	".yml":  "yaml",
	".sh":   "shell",
	".bash": "shell",
	".sql":  "sql",
}

// FromFilename returns the language identifier for a filename based on its
// extension, or Unknown when the extension is not recognized.
func FromFilename(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if lang, ok := extensions[ext]; ok {
		return lang
	}
	return Unknown
}
