// Package coreobject implements the split between a sim-side Object and
// its core-side Core counterpart.
//
// The sim side owns the authoritative state and marks itself dirty when it
// changes. Once per frame the Manager asks every dirty, initialized object
// to serialize its state into frame-allocated memory and queues a command
// that applies it to the core counterpart on the core goroutine. Objects
// whose dependencies are dirty sync after those dependencies.
//
// Lifecycle:
//
//	obj := coreobject.New(mgr, impl, coreobject.RequiresInitOnCoreThread)
//	obj.Initialize(acc)       // creates the core, records core init on acc
//	mgr.SyncToCore(alloc, acc)
//	...
//	obj.Destroy()             // unregisters, records core teardown on acc
//	obj.Release()             // panics with NOT_DESTROYED if Destroy was skipped
//	acc.SubmitToCoreThread(ctx, true)
//
// Destroy must happen before Release: the core counterpart may still be
// referenced by commands in flight. Init, sync, draws and teardown of one
// object go through the same accessor, so teardown runs after every command
// recorded before it.
package coreobject
