/*
Package log provides structured logging for Flotilla using zerolog.

The log package wraps the zerolog library to provide JSON-structured
logging with component-specific child loggers, configurable log levels,
and helper functions for common logging patterns.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithComponent("reconciler")
	logger.Info().Str("node_id", node.ID).Msg("node matched")

Component names are stable across the codebase: fleet, reconciler,
alerts, sshexec, swarm, storage, activity, notify, api.

Console (human-readable) output is used by CLI commands; daemons log
JSON. Secrets such as SSH private keys and swarm join tokens are never
written to the log at any level.
*/
package log
