/*
Package log provides structured logging for the portal layout service using zerolog.

A single global Logger is configured once by Init from the process
configuration. Packages derive child loggers that carry the fields they
care about:

	log.WithComponent("cache")                       // component=cache
	log.WithScope("writer", "group:42")              // + scope
	log.WithPage("writer", "group:42", "portal.home") // + page_id

Console output is the default; JSON output is selected with
Config.JSONOutput and is what production deployments should use.

	log.Init(log.Config{Level: log.ParseLevel("debug"), JSONOutput: true})

	logger := log.WithPage("writer", scope, pageID)
	logger.Warn().Err(err).Msg("Concurrent page creation, using the winner's row")

Until Init runs, Logger writes JSON to stderr at the default level.
*/
package log
