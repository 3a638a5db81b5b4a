// Package logging provides structured logging on top of log/slog.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	logger.SetDefault()
//
//	ctx = logging.WithBuildID(ctx, id)
//	logger.InfoContext(ctx, "build finished", "calls", 7) // includes build_id
//
// Formats are json (default), text, and console. Console is text without
// timestamps and is what the CLI uses on a terminal.
package logging
