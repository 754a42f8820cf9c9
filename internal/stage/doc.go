// Package stage defines the contract between the workflow manager and the
// pipeline stages that turn an uploaded subtitle file into a QC-checked
// document.
package stage
