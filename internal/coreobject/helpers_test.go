package coreobject

import (
	"sync"

	"github.com/roach88/splitcore/internal/cmdqueue"
	"github.com/roach88/splitcore/internal/corethread"
	"github.com/roach88/splitcore/internal/framealloc"
)

// fakeQueue collects commands and runs them on demand.
type fakeQueue struct {
	mu     sync.Mutex
	cmds   []func()
	onCore bool
}

func (q *fakeQueue) QueueCommand(fn func(), _ ...cmdqueue.CommandOption) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cmds = append(q.cmds, fn)
}

func (q *fakeQueue) IsCoreThread() bool { return q.onCore }

func (q *fakeQueue) run() {
	q.mu.Lock()
	cmds := q.cmds
	q.cmds = nil
	q.mu.Unlock()
	for _, fn := range cmds {
		fn()
	}
}

func (q *fakeQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cmds)
}

// fakeSyncQueue is a SyncQueue for Manager tests.
type fakeSyncQueue struct {
	cmds []func()
}

func (q *fakeSyncQueue) QueueCommand(fn func(), _ ...cmdqueue.CommandOption) {
	q.cmds = append(q.cmds, fn)
}

func (q *fakeSyncQueue) run() {
	for _, fn := range q.cmds {
		fn()
	}
	q.cmds = nil
}

// eventLog is shared by cores to record cross-object ordering.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type testCore struct {
	CoreBase
	name string
	log  *eventLog
}

func (c *testCore) Initialize() {
	c.log.add(c.name + ".init")
	c.CoreBase.Initialize()
}

func (c *testCore) SyncToCore(data SyncData) {
	c.log.add(c.name + ".sync:" + string(data.Bytes))
}

func (c *testCore) Destroy() {
	c.log.add(c.name + ".destroy")
}

type testImpl struct {
	name   string
	log    *eventLog
	deps   []*Object
	noCore bool
	seen   []DirtyFlags
}

func (i *testImpl) CreateCore() Core {
	if i.noCore {
		return nil
	}
	return &testCore{name: i.name, log: i.log}
}

func (i *testImpl) SyncToCore(alloc *framealloc.Allocator, dirty DirtyFlags) []byte {
	i.seen = append(i.seen, dirty)
	buf := alloc.Alloc(len(i.name))
	copy(buf, i.name)
	return buf
}

func (i *testImpl) CoreDependencies() []*Object { return i.deps }

// countingRegistry counts registry notifications.
type countingRegistry struct {
	registered   int
	unregistered int
	dirty        int
	deps         int
}

func (r *countingRegistry) Register(*Object)                { r.registered++ }
func (r *countingRegistry) Unregister(*Object)              { r.unregistered++ }
func (r *countingRegistry) NotifyDirty(*Object)             { r.dirty++ }
func (r *countingRegistry) NotifyDependenciesDirty(*Object) { r.deps++ }

var (
	_ CoreQueue = (*corethread.Accessor)(nil)
	_ SyncQueue = (*corethread.Accessor)(nil)
)
