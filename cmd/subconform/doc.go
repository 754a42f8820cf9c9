// Package main hosts the subconform CLI entrypoint and command graph.
//
// The Cobra command tree covers two modes. The serve command runs the job
// daemon and its HTTP API. The check, suggest, fix and translate commands
// process a single subtitle file in-process and exit, using the same
// pipeline and repair engine the daemon uses.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it here through a command or flag.
package main
