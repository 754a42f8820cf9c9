// Package daemonctl starts and stops a background subconform daemon from the
// CLI. The daemon is located through its HTTP health endpoint, which also
// reports the process id used for signalling.
package daemonctl
