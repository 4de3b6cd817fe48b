package diag

import "runtime"

// GoroutineID returns the id of the calling goroutine.
//
// Go deliberately hides goroutine identity; the id is parsed from the header
// line of runtime.Stack ("goroutine NNN [running]:"). Only used for thread
// affinity assertions and IsCoreThread, never on a per-command hot path when
// Checks is false.
func GoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
