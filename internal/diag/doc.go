// Package diag holds the usage-error taxonomy shared by the command queue,
// the core thread and the core object model.
//
// Threading violations are programming errors, not runtime conditions. They
// are reported by panicking with a *UsageError at the offending call site so
// the stack trace points at the caller, not at the core goroutine that would
// otherwise crash much later.
//
// The checks are compiled in by default. Building with the "release" tag
// turns Checks into a false constant and the compiler drops every guarded
// branch.
package diag
