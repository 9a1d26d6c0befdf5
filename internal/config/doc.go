// Package config holds the scan configuration, its defaults, and the
// optional .eanscan YAML file loader. The Config struct is populated
// from CLI flags and passed through the application by dependency
// injection rather than global state.
package config
