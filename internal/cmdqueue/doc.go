// Package cmdqueue implements the deferred command queue that carries work
// from producer goroutines to the core thread.
//
// ARCHITECTURE:
//
// Producers append commands to a Queue. Flush swaps out the active Buffer
// and installs a recycled (or fresh) one, handing the flushed buffer to the
// caller. The consumer plays the buffer back with an Executor, which runs
// every command in insertion order and returns the emptied buffer to the
// queue it came from.
//
// Synchronization Policy:
// The policy is fixed at construction.
//   - NoSync: single producer. No locking at all; debug builds assert every
//     call comes from the goroutine that created the queue.
//   - Sync: every operation is guarded by a mutex, any goroutine may queue
//     or flush.
//
// Ordering:
// Commands within one buffer execute strictly FIFO. Ordering across buffers
// is decided by whoever hands buffers to the executor (see corethread).
//
// Debugging:
// When diag.Checks is on, every command carries a (queue, index) CommandID.
// A breakpoint registered for that pair stops the executor right before the
// command runs, which recovers the call site information the playback stack
// trace cannot show.
package cmdqueue
