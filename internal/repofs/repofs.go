// Package repofs reads post-change file content from a repository checkout.
//
// All reads are confined to the repository root: relative paths are resolved
// and rejected if they escape the root, so hostile filenames inside a diff
// (../../etc/passwd) cannot reach files outside the checkout. Binary and
// configuration files that carry no reviewable content are answered with a
// bracketed placeholder instead of their bytes.
package repofs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrOutsideRepo reports a filename that resolves outside the repository root.
var ErrOutsideRepo = errors.New("path escapes repository root")

var binaryExtensions = map[string]bool{
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".bin": true,
	".o": true, ".obj": true, ".a": true, ".lib": true,
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".xz": true,
	".jar": true, ".war": true, ".ear": true, ".aar": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".tiff": true, ".ico": true, ".webp": true,
	".mp3": true, ".mp4": true, ".wav": true, ".avi": true, ".mov": true,
	".mkv": true, ".flac": true, ".ogg": true,
	".pdf": true, ".doc": true, ".docx": true, ".ppt": true, ".pptx": true,
	".xls": true, ".xlsx": true,
	".class": true, ".pyc": true, ".pyo": true, ".db": true, ".sqlite": true,
	".dat": true,
}

var binaryFilenames = map[string]bool{
	"gradlew":                  true,
	"gradle-wrapper.jar":       true,
	"gradle-wrapper.properties": true,
	"gradlew.bat":              true,
	"mvnw":                     true,
	"mvnw.cmd":                 true,
	".DS_Store":                true,
}

var ignoredFilenames = map[string]bool{
	".gitignore":             true,
	".gitmodules":            true,
	".gitconfig":             true,
	".git":                   true,
	".env":                   true,
	".env.local":             true,
	".env.development":       true,
	".env.production":        true,
	".env.test":              true,
	".env.development.local": true,
	".env.production.local":  true,
}

// IsIgnored reports whether a filename should be excluded from review
// content, either because it is binary or because it is configuration that
// must never reach a provider.
func IsIgnored(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	base := filepath.Base(filename)
	return binaryExtensions[ext] || binaryFilenames[base] || ignoredFilenames[base]
}

// SafePath resolves filename relative to repoRoot and verifies the result
// stays inside the root.
func SafePath(filename, repoRoot string) (string, error) {
	absRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		return "", fmt.Errorf("resolving repository root: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(absRoot, filename))
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", filename, err)
	}
	if absPath != absRoot && !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRepo, filename)
	}
	return absPath, nil
}

// ReadFile returns the content of filename under repoRoot. Ignored files
// return a placeholder without being read; files that are not valid UTF-8
// return a placeholder instead of raw bytes. Missing files surface an error
// satisfying errors.Is(err, fs.ErrNotExist).
func ReadFile(filename, repoRoot string) (string, error) {
	path, err := SafePath(filename, repoRoot)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("stat %s: %w", filename, err)
	}
	if IsIgnored(filename) {
		return fmt.Sprintf("[excluded file: %s]", filename), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", filename, err)
	}
	if !utf8.Valid(data) {
		return fmt.Sprintf("[binary or non-utf8 file: %s]", filename), nil
	}
	return string(data), nil
}
