// Package logs reads daemon log output for the CLI.
//
// Stream prefers the running daemon's /api/logs endpoint, which supports job
// and component filters and long-poll follow mode. When the API cannot be
// reached it falls back to tailing the log file directly, which supports
// neither filter. Tail reads the last N lines of a file with bounded memory
// and can wait for new lines from a byte offset.
package logs
