// Package corethread runs the single goroutine that owns the render system
// and exposes the accessors producers use to hand it work.
//
// # Roles
//
// A CoreThread is the explicit context for the core role. Its Run loop is
// the only goroutine allowed to touch render.API. Run pins itself to an OS
// thread because real GPU contexts are bound to one.
//
// Producers never call render.API directly. Each producer goroutine owns an
// Accessor, records commands into its private queue and periodically calls
// SubmitToCoreThread, which hands the flushed buffer to the core as a single
// command. Accessors created with cmdqueue.Sync may be shared between
// goroutines.
//
// # Ordering
//
// Commands from one accessor run in the order they were queued. Buffers
// submitted by different accessors run in the order they reached the core
// queue. Commands queued directly with CoreThread.QueueCommand share that
// same FIFO, so a command queued after a submit runs after the submitted
// work.
//
// # Shutdown
//
// Stop or context cancellation makes Run drain everything already queued and
// return. Afterwards QueueCommand and SubmitToCoreThread fail with
// ErrStopped.
package corethread
