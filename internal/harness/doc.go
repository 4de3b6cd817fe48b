// Package harness runs command-queue scenarios against a live core thread.
//
// A scenario is a YAML file that queues commands from a producer accessor,
// submits them, creates and syncs resources, and states what the core side
// must have observed:
//
//	name: notify_order
//	description: "Notifications follow execution order"
//	policy: nosync
//	steps:
//	  - queue: a
//	    notify: 1
//	  - queue_return: r
//	    value: 42
//	  - submit: {block: true}
//	expect:
//	  executed: [a, r]
//	  notified: [1]
//	  resolved: [r]
//
// # Steps
//
// Each step names exactly one action:
//
//   - queue: queue a command that logs its label
//   - queue_return: queue a return command; value resolves it explicitly
//   - cancel: drop everything queued since the last submit
//   - submit: flush to the core thread, optionally blocking
//   - wait: wait for the core thread to drain
//   - create: create a texture, mesh or camera
//   - mark_dirty: mark an object's core state dirty
//   - sync: run the dirty sync pass
//   - render: draw a mesh or render a camera
//   - destroy: destroy an object
//
// # Determinism
//
// Execution order on the core thread is the FIFO order of submission, so
// a scenario always yields the same log. The log is serialized as
// canonical JSON for golden comparison.
package harness
