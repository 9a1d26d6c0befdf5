package config

import "maps"

// SourceConfig holds source-specific configuration for a single evidence
// source. This allows tuning or disabling individual sources without
// touching CLI flags on every run.
type SourceConfig struct {
	// Disabled excludes this source from scans.
	Disabled bool `yaml:"disabled,omitempty"`

	// MaxResults overrides the global result cap for this source.
	// If zero, the global value is used.
	MaxResults int `yaml:"maxResults,omitempty"`

	// Headers are custom HTTP headers to include in requests to this source.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Vocabulary holds extra classification terms appended to the built-in
// lists. Terms are matched case-insensitively against context windows.
type Vocabulary struct {
	// Historical is appended to the discontinued-product vocabulary.
	Historical []string `yaml:"historical,omitempty"`

	// Current is appended to the in-market vocabulary.
	Current []string `yaml:"current,omitempty"`
}

// File represents the structure of the .eanscan configuration file.
type File struct {
	// UserAgents replaces the built-in User-Agent rotation pool.
	UserAgents []string `yaml:"userAgents,omitempty"`

	// Proxies is the proxy rotation pool (http, https, socks5 URLs).
	Proxies []string `yaml:"proxies,omitempty"`

	// Sources maps source names to their source-specific configurations.
	// Keys are the source names used in reports (e.g. "google", "wayback").
	Sources map[string]SourceConfig `yaml:"sources,omitempty"`

	// Defaults contains default source configuration applied to all
	// sources unless overridden in the source-specific configuration.
	Defaults SourceConfig `yaml:"defaults,omitempty"`

	// Vocabulary holds extra classification terms.
	Vocabulary Vocabulary `yaml:"vocabulary,omitempty"`
}

// GetSourceConfig returns the configuration for a named source,
// merging the source-specific configuration with defaults.
func (cf *File) GetSourceConfig(name string) SourceConfig {
	result := cf.Defaults
	// The struct copy above aliases the defaults' header map; clone it so
	// merging one source's headers cannot leak into later lookups.
	result.Headers = maps.Clone(cf.Defaults.Headers)

	if sc, ok := cf.Sources[name]; ok {
		if sc.Disabled {
			result.Disabled = true
		}
		if sc.MaxResults != 0 {
			result.MaxResults = sc.MaxResults
		}
		if len(sc.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range sc.Headers {
				result.Headers[k] = v
			}
		}
	}

	return result
}
