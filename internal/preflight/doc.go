// Package preflight provides readiness checks for the filesystem paths,
// external binaries and host resources videocompress depends on.
//
// `videocompress doctor` runs RunAll and renders the results as a table.
// Host checks are informational and only fail when the host cannot be read.
package preflight
