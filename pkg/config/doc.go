/*
Package config loads Flotilla configuration from YAML files,
environment variables, and built-in defaults, in that order of
precedence (highest first: flags set by the CLI, then FLOTILLA_*
environment variables, then the file, then defaults).

	cfg, err := config.Load("/etc/flotilla/config.yaml")

An empty path searches ., ./configs, and /etc/flotilla for
config.yaml and falls back to pure defaults when none exists.
*/
package config
