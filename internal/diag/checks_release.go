//go:build release

package diag

// Checks reports whether debug-only usage checks are compiled in.
const Checks = false
