package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/splitcore/internal/async"
	"github.com/roach88/splitcore/internal/cmdqueue"
	"github.com/roach88/splitcore/internal/coreobject"
	"github.com/roach88/splitcore/internal/corethread"
	"github.com/roach88/splitcore/internal/framealloc"
	"github.com/roach88/splitcore/internal/render"
	"github.com/roach88/splitcore/internal/resource"
)

// Harness holds the live state of one scenario run.
type Harness struct {
	ct     *corethread.CoreThread
	acc    *corethread.Accessor
	rec    *render.Recorder
	mgr    *coreobject.Manager
	alloc  *framealloc.Allocator
	logger *slog.Logger

	mu       sync.Mutex
	executed []string
	notified []uint32

	labels  []string
	ops     map[string]async.Op
	objects map[string]*entry
	synced  int
}

// entry is a created resource.
type entry struct {
	kind    string
	texture *resource.Texture
	mesh    *resource.Mesh
	camera  *resource.Camera
}

func (e *entry) object() *coreobject.Object {
	switch e.kind {
	case KindTexture:
		return e.texture.Object()
	case KindMesh:
		return e.mesh.Object()
	default:
		return e.camera.Object()
	}
}

// Run executes a scenario on a fresh core thread and checks its
// expectations. The returned error covers execution failures only; failed
// expectations are reported in Result.Errors.
//
// The calling goroutine owns the producer queue.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := &Harness{
		rec:     render.NewRecorder(),
		mgr:     coreobject.NewManager(),
		alloc:   framealloc.New(),
		logger:  logger,
		ops:     make(map[string]async.Op),
		objects: make(map[string]*entry),
	}
	h.ct = corethread.New(h.rec,
		corethread.WithNotify(h.notify),
		corethread.WithLogger(logger),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	h.ct.Start(runCtx)
	defer func() {
		h.ct.Stop()
		<-h.ct.Done()
	}()

	h.acc = h.ct.NewAccessor(scenario.QueuePolicy())

	for i, step := range scenario.Steps {
		if err := h.execute(ctx, step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	// Commands left unsubmitted never run; drain whatever was submitted.
	if err := h.ct.Wait(ctx); err != nil {
		return nil, fmt.Errorf("drain core thread: %w", err)
	}

	result := h.result()
	for _, msg := range CheckExpect(result, scenario.Expect) {
		result.AddError(msg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"executed", len(result.Executed),
		"pass", result.Pass,
	)
	return result, nil
}

func (h *Harness) execute(ctx context.Context, step Step) error {
	var opts []cmdqueue.CommandOption
	if step.Notify != 0 {
		opts = append(opts, cmdqueue.Notify(step.Notify))
	}

	switch {
	case step.Queue != "":
		label := step.Queue
		h.acc.QueueCommand(func() { h.log(label) }, opts...)

	case step.QueueReturn != "":
		label, value := step.QueueReturn, step.Value
		op := h.acc.QueueReturnCommand(func(op *async.Op) {
			h.log(label)
			if value != nil {
				op.MarkResolved(value)
			}
		}, opts...)
		h.labels = append(h.labels, label)
		h.ops[label] = op

	case step.Cancel:
		h.acc.CancelAll()

	case step.Submit != nil:
		return h.acc.SubmitToCoreThread(ctx, step.Submit.Block)

	case step.Wait:
		return h.ct.Wait(ctx)

	case step.Create != nil:
		return h.create(step.Create)

	case step.MarkDirty != nil:
		e, err := h.lookup(step.MarkDirty.Object)
		if err != nil {
			return err
		}
		flags := coreobject.DirtyFlags(step.MarkDirty.Flags)
		if flags == 0 {
			flags = coreobject.AllDirty
		}
		e.object().MarkCoreDirty(flags)

	case step.Sync:
		h.synced += h.mgr.SyncToCore(h.alloc, h.acc)

	case step.Render != "":
		e, err := h.lookup(step.Render)
		if err != nil {
			return err
		}
		switch e.kind {
		case KindMesh:
			return e.mesh.Draw(h.acc)
		case KindCamera:
			return e.camera.Render(h.acc)
		default:
			return fmt.Errorf("object %q (%s) cannot render", step.Render, e.kind)
		}

	case step.Destroy != "":
		e, err := h.lookup(step.Destroy)
		if err != nil {
			return err
		}
		e.object().Destroy()
		e.object().Release()
	}
	return nil
}

func (h *Harness) create(c *CreateStep) error {
	e := &entry{kind: c.Kind}
	var err error
	switch c.Kind {
	case KindTexture:
		e.texture, err = resource.NewTexture(h.mgr, h.acc, resource.TextureDesc{
			Name:   c.Name,
			Width:  c.Width,
			Height: c.Height,
		}, nil)
	case KindMesh:
		e.mesh, err = resource.NewMesh(h.mgr, h.acc, c.Vertices, c.Indices)
	case KindCamera:
		var target *resource.Texture
		if c.Target != "" {
			t, lerr := h.lookup(c.Target)
			if lerr != nil {
				return lerr
			}
			target = t.texture
		}
		e.camera, err = resource.NewCamera(h.mgr, target, render.Rect{Width: c.Width, Height: c.Height})
	default:
		return fmt.Errorf("unknown kind %q", c.Kind)
	}
	if err != nil {
		return fmt.Errorf("create %s %q: %w", c.Kind, c.Name, err)
	}
	h.objects[c.Name] = e
	return nil
}

func (h *Harness) lookup(name string) (*entry, error) {
	e, ok := h.objects[name]
	if !ok {
		return nil, fmt.Errorf("unknown object %q", name)
	}
	return e, nil
}

// log runs on the core goroutine.
func (h *Harness) log(label string) {
	h.mu.Lock()
	h.executed = append(h.executed, label)
	h.mu.Unlock()
}

func (h *Harness) notify(callbackID uint32) {
	h.mu.Lock()
	h.notified = append(h.notified, callbackID)
	h.mu.Unlock()
}

func (h *Harness) result() *Result {
	result := NewResult()

	h.mu.Lock()
	result.Executed = append(result.Executed, h.executed...)
	result.Notified = append(result.Notified, h.notified...)
	h.mu.Unlock()

	for _, label := range h.labels {
		op := h.ops[label]
		if !op.IsResolved() {
			result.Pending = append(result.Pending, label)
			continue
		}
		v, _ := op.ReturnValue()
		result.Resolved = append(result.Resolved, Resolution{Label: label, Value: v})
	}

	result.Calls = append(result.Calls, h.rec.Methods()...)
	result.Synced = h.synced
	result.Live = h.mgr.Len()
	return result
}
