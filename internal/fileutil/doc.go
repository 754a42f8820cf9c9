// Package fileutil holds small filesystem helpers shared by the CLI.
package fileutil
