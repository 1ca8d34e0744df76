// Package config loads and merges facet configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (FACET_PROVIDER, FACET_MODEL, FACET_FAIL_ON, etc.)
//  3. Project overlay (.facet.yaml at the repository root)
//  4. User config file ($XDG_CONFIG_HOME/facet/config.json)
//  5. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Save] to write the config file,
// and [SetField] to update a single key by name.
package config
