// Package trace records every command the core thread executes into a
// SQLite database so a run can be inspected afterwards.
//
// A Recorder is installed as the executor's observer. It buffers one Record
// per executed command on the core goroutine; Flush writes the buffer for
// the recorder's session. The queue and index columns are the coordinates
// cmdqueue.AddBreakpoint takes, so a trace answers "which command ran at
// step N" when setting up a breakpoint for the next run.
//
// Sessions are identified by UUIDv7 strings, which sort by creation time.
package trace
