package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the facet configuration.
type Config struct {
	Provider     string        `json:"provider" yaml:"provider"`
	Model        string        `json:"model" yaml:"model"`
	Compare      []string      `json:"compare,omitempty" yaml:"compare,omitempty"`
	Format       string        `json:"format" yaml:"format"`
	FailOn       string        `json:"failOn" yaml:"failOn"`
	MaxFindings  int           `json:"maxFindings" yaml:"maxFindings"`
	ContextLines int           `json:"contextLines" yaml:"contextLines"`
	Include      []string      `json:"include" yaml:"include"`
	Exclude      []string      `json:"exclude" yaml:"exclude"`
	MaxDiffBytes int           `json:"maxDiffBytes" yaml:"maxDiffBytes"`
	RulesFile    string        `json:"rulesFile,omitempty" yaml:"rulesFile,omitempty"`
	Cache        CacheConfig   `json:"cache" yaml:"cache"`
	Privacy      PrivacyConfig `json:"privacy" yaml:"privacy"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Dir        string `json:"dir,omitempty" yaml:"dir,omitempty"`
	TTLSeconds int    `json:"ttlSeconds" yaml:"ttlSeconds"`
}

// PrivacyConfig controls privacy/redaction behavior.
type PrivacyConfig struct {
	RedactSecrets bool     `json:"redactSecrets" yaml:"redactSecrets"`
	RedactPaths   []string `json:"redactPaths,omitempty" yaml:"redactPaths,omitempty"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Provider:     "anthropic",
		Model:        "claude-sonnet-4-20250514",
		Format:       "text",
		FailOn:       "none",
		MaxFindings:  50,
		ContextLines: 5,
		Include:      []string{"**/*"},
		Exclude:      []string{"vendor/**", "**/*.gen.go", "**/dist/**"},
		MaxDiffBytes: 500000,
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 86400,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
	}
}

// ProjectConfigName is the per-repo overlay file looked up at the repo root.
const ProjectConfigName = ".facet.yaml"

// ConfigDir returns the platform-appropriate config directory for facet.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "facet"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "facet"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "facet"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "facet"), nil
	default:
		return filepath.Join(home, ".config", "facet"), nil
	}
}

var configFileOverride string

// SetConfigFile overrides the config file location for the current process.
// An empty path restores the default lookup.
func SetConfigFile(path string) {
	configFileOverride = path
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	if configFileOverride != "" {
		return configFileOverride, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadFile loads config from the config file. Returns zero Config and nil error if file doesn't exist.
func LoadFile() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// LoadProjectFile loads the per-repo YAML overlay from root. Returns zero
// Config and nil error when root is empty or the file doesn't exist.
func LoadProjectFile(root string) (Config, error) {
	if root == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(filepath.Join(root, ProjectConfigName))
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading project config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing project config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging:
// defaults <- user file <- project overlay <- env <- overrides.
// projectRoot locates the .facet.yaml overlay; empty skips it. The overrides
// map comes from CLI flags (only non-zero values should be set).
func Load(projectRoot string, overrides map[string]string) (Config, error) {
	cfg := Default()

	fileCfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg)

	projectCfg, err := LoadProjectFile(projectRoot)
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, projectCfg)

	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	mergeOverrides(&cfg, overrides)

	return cfg, nil
}

func mergeFile(dst *Config, src Config) {
	if src.Provider != "" {
		dst.Provider = src.Provider
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if len(src.Compare) > 0 {
		dst.Compare = src.Compare
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
	if src.FailOn != "" {
		dst.FailOn = src.FailOn
	}
	if src.MaxFindings > 0 {
		dst.MaxFindings = src.MaxFindings
	}
	if src.ContextLines > 0 {
		dst.ContextLines = src.ContextLines
	}
	if len(src.Include) > 0 {
		dst.Include = src.Include
	}
	if len(src.Exclude) > 0 {
		dst.Exclude = src.Exclude
	}
	if src.MaxDiffBytes > 0 {
		dst.MaxDiffBytes = src.MaxDiffBytes
	}
	if src.RulesFile != "" {
		dst.RulesFile = src.RulesFile
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}
	if src.Cache.TTLSeconds > 0 {
		dst.Cache.TTLSeconds = src.Cache.TTLSeconds
	}
	if len(src.Privacy.RedactPaths) > 0 {
		dst.Privacy.RedactPaths = src.Privacy.RedactPaths
	}
	// A file that set any field is trusted for its booleans too; the formats
	// cannot distinguish an explicit false from unset, so an entirely empty
	// file keeps the defaults.
	if !reflect.DeepEqual(src, (Config{})) {
		dst.Cache.Enabled = src.Cache.Enabled
		dst.Privacy.RedactSecrets = src.Privacy.RedactSecrets
	}
}

func mergeEnv(cfg *Config) error {
	if v := os.Getenv("FACET_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("FACET_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("FACET_FAIL_ON"); v != "" {
		cfg.FailOn = v
	}
	if v := os.Getenv("FACET_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("FACET_MAX_FINDINGS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FACET_MAX_FINDINGS must be an integer: %w", err)
		}
		cfg.MaxFindings = n
	}
	if v := os.Getenv("FACET_CONTEXT_LINES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FACET_CONTEXT_LINES must be an integer: %w", err)
		}
		cfg.ContextLines = n
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) {
	if overrides == nil {
		return
	}
	if v, ok := overrides["provider"]; ok && v != "" {
		cfg.Provider = v
	}
	if v, ok := overrides["model"]; ok && v != "" {
		cfg.Model = v
	}
	if v, ok := overrides["compare"]; ok && v != "" {
		cfg.Compare = strings.Split(v, ",")
	}
	if v, ok := overrides["format"]; ok && v != "" {
		cfg.Format = v
	}
	if v, ok := overrides["failOn"]; ok && v != "" {
		cfg.FailOn = v
	}
	if v, ok := overrides["maxFindings"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxFindings = n
		}
	}
	if v, ok := overrides["contextLines"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ContextLines = n
		}
	}
	if v, ok := overrides["maxDiffBytes"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxDiffBytes = n
		}
	}
	if v, ok := overrides["rulesFile"]; ok && v != "" {
		cfg.RulesFile = v
	}
}

// GetField reads a single config field by key name. Returns error if key is unknown.
func GetField(cfg Config, key string) (string, error) {
	switch key {
	case "provider":
		return cfg.Provider, nil
	case "model":
		return cfg.Model, nil
	case "format":
		return cfg.Format, nil
	case "failOn":
		return cfg.FailOn, nil
	case "maxFindings":
		return strconv.Itoa(cfg.MaxFindings), nil
	case "contextLines":
		return strconv.Itoa(cfg.ContextLines), nil
	case "maxDiffBytes":
		return strconv.Itoa(cfg.MaxDiffBytes), nil
	case "rulesFile":
		return cfg.RulesFile, nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "provider":
		cfg.Provider = value
	case "model":
		cfg.Model = value
	case "format":
		cfg.Format = value
	case "failOn":
		cfg.FailOn = value
	case "maxFindings":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("maxFindings must be an integer: %w", err)
		}
		cfg.MaxFindings = n
	case "contextLines":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("contextLines must be an integer: %w", err)
		}
		cfg.ContextLines = n
	case "maxDiffBytes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("maxDiffBytes must be an integer: %w", err)
		}
		cfg.MaxDiffBytes = n
	case "rulesFile":
		cfg.RulesFile = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
