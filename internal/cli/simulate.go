package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/splitcore/internal/cmdqueue"
	"github.com/roach88/splitcore/internal/config"
	"github.com/roach88/splitcore/internal/coreobject"
	"github.com/roach88/splitcore/internal/corethread"
	"github.com/roach88/splitcore/internal/framealloc"
	"github.com/roach88/splitcore/internal/metrics"
	"github.com/roach88/splitcore/internal/render"
	"github.com/roach88/splitcore/internal/resource"
	"github.com/roach88/splitcore/internal/trace"
)

// simulation drives one run: a core thread, producer goroutines and the
// sim-side resources synced from the main goroutine.
type simulation struct {
	cfg     config.Config
	metrics *metrics.Metrics
	trace   *trace.Recorder
	trap    bool

	backend *render.Recorder
	ct      *corethread.CoreThread
	acc     *corethread.Accessor // main goroutine: resource init, sync, teardown
	mgr     *coreobject.Manager
	alloc   *framealloc.Allocator

	textures []*resource.Texture
	meshes   []*resource.Mesh
	cameras  []*resource.Camera

	commands atomic.Int64
	notified atomic.Int64
	hits     atomic.Int64
}

func newSimulation(cfg config.Config, m *metrics.Metrics, rec *trace.Recorder, trap bool) *simulation {
	return &simulation{
		cfg:     cfg,
		metrics: m,
		trace:   rec,
		trap:    trap,
		backend: render.NewRecorder(),
		mgr:     coreobject.NewManager(coreobject.WithMetrics(m)),
		alloc:   framealloc.New(framealloc.WithChunkSize(cfg.FrameChunkSize)),
	}
}

// run executes every frame and tears everything down. The stats are valid
// even when an error is returned.
func (s *simulation) run(ctx context.Context) (RunStats, error) {
	start := time.Now()
	stats := RunStats{
		Producers: s.cfg.Producers,
		Policy:    s.cfg.QueuePolicy().String(),
	}

	for _, bp := range s.cfg.Breakpoints {
		cmdqueue.AddBreakpoint(bp.Queue, bp.Index)
	}
	defer cmdqueue.ClearBreakpoints()

	s.ct = corethread.New(s.backend,
		corethread.WithObserver(s.observer()),
		corethread.WithNotify(func(uint32) { s.notified.Add(1) }),
		corethread.WithMetrics(s.metrics),
		corethread.WithLogger(slog.Default()),
	)
	s.ct.Start(ctx)
	s.acc = s.ct.NewAccessor(cmdqueue.NoSync, cmdqueue.WithMaxPooledBuffers(s.cfg.MaxPooledBuffers))

	err := s.frames(ctx, &stats)

	s.teardown()
	if werr := s.ct.Wait(context.Background()); werr != nil {
		slog.Warn("core thread drain failed", "error", werr)
	}
	s.ct.Stop()
	<-s.ct.Done()
	if cerr := s.ct.Err(); cerr != nil && err == nil {
		err = cerr
	}

	if s.trace != nil {
		if ferr := s.trace.Flush(context.Background()); ferr != nil && err == nil {
			err = ferr
		}
		stats.Session = s.trace.SessionID()
		stats.Records = s.trace.Written()
	}

	stats.Commands = s.commands.Load()
	stats.Notifications = s.notified.Load()
	stats.RenderCalls = len(s.backend.Calls())
	stats.BreakpointHits = s.hits.Load()
	stats.ElapsedMS = time.Since(start).Milliseconds()
	return stats, err
}

func (s *simulation) observer() cmdqueue.Observer {
	bp := cmdqueue.BreakpointObserver{}
	if !s.trap {
		bp.OnHit = func(info cmdqueue.CommandInfo) {
			s.hits.Add(1)
			slog.Warn("command breakpoint hit",
				"command", info.ID.String(),
				"debug_id", info.DebugID,
				"position", info.Position,
			)
		}
	}
	if s.trace == nil {
		return bp
	}
	return cmdqueue.Observers(s.trace, bp)
}

// frames creates the resources, starts the producers and runs the main
// frame loop until every frame is done or a goroutine fails.
func (s *simulation) frames(ctx context.Context, stats *RunStats) error {
	if err := s.createResources(); err != nil {
		return err
	}
	stats.Resources = len(s.textures) + len(s.meshes) + len(s.cameras)
	// Producers draw meshes from their own accessors; the cores must exist
	// before the first of those buffers reaches the core.
	if err := s.acc.SubmitToCoreThread(ctx, true); err != nil {
		return fmt.Errorf("create resources: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for p := range s.cfg.Producers {
		g.Go(func() error { return s.produce(gctx, p) })
	}

	loopErr := func() error {
		for frame := range s.cfg.Frames {
			if err := gctx.Err(); err != nil {
				return err
			}
			s.animate(frame)
			stats.Synced += s.mgr.SyncToCore(s.alloc, s.acc)
			for _, c := range s.cameras {
				if err := c.Render(s.acc); err != nil {
					return err
				}
			}
			// Sync payloads live in the frame allocator until the core
			// consumed them.
			if err := s.acc.SubmitToCoreThread(gctx, true); err != nil {
				return fmt.Errorf("frame %d: %w", frame, err)
			}
			s.alloc.Clear()
			stats.Frames = frame + 1

			if s.trace != nil {
				if err := s.trace.Flush(gctx); err != nil {
					slog.Warn("trace flush failed", "frame", frame, "error", err)
				}
			}
			slog.Debug("frame done", "frame", frame, "dirty", s.mgr.DirtyCount())
		}
		return nil
	}()

	if err := g.Wait(); err != nil {
		return err
	}
	if loopErr != nil {
		return loopErr
	}
	return s.readBack(ctx, stats)
}

// produce runs one producer goroutine. Its accessor is created here so a
// NoSync queue is owned by the goroutine that uses it.
func (s *simulation) produce(ctx context.Context, producer int) error {
	acc := s.ct.NewAccessor(s.cfg.QueuePolicy(), cmdqueue.WithMaxPooledBuffers(s.cfg.MaxPooledBuffers))

	for frame := range s.cfg.Frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range s.cfg.CommandsPerFrame {
			var opts []cmdqueue.CommandOption
			if i == s.cfg.CommandsPerFrame-1 {
				opts = append(opts, cmdqueue.Notify(uint32(frame+1)))
			}
			acc.QueueCommand(func() { s.commands.Add(1) }, opts...)

			if len(s.meshes) > 0 && i%4 == 0 {
				if err := s.meshes[(producer+i)%len(s.meshes)].Draw(acc); err != nil {
					return fmt.Errorf("producer %d: %w", producer, err)
				}
			}
		}
		if err := acc.SubmitToCoreThread(ctx, s.cfg.BlockingSubmit); err != nil {
			return fmt.Errorf("producer %d frame %d: %w", producer, frame, err)
		}
	}
	return nil
}

func (s *simulation) createResources() error {
	rc := s.cfg.Resources
	for i := range rc.Textures {
		var init []byte
		if i == 0 {
			init = []byte("splitcore")
		}
		t, err := resource.NewTexture(s.mgr, s.acc, resource.TextureDesc{
			Name:   fmt.Sprintf("texture-%d", i),
			Width:  256,
			Height: 256,
		}, init)
		if err != nil {
			return fmt.Errorf("create texture %d: %w", i, err)
		}
		s.textures = append(s.textures, t)
	}
	for i := range rc.Meshes {
		m, err := resource.NewMesh(s.mgr, s.acc, 3*(i+1), 0)
		if err != nil {
			return fmt.Errorf("create mesh %d: %w", i, err)
		}
		s.meshes = append(s.meshes, m)
	}
	for i := range rc.Cameras {
		var target *resource.Texture
		if len(s.textures) > 0 {
			target = s.textures[i%len(s.textures)]
		}
		c, err := resource.NewCamera(s.mgr, target, render.Rect{Width: 256, Height: 256})
		if err != nil {
			return fmt.Errorf("create camera %d: %w", i, err)
		}
		s.cameras = append(s.cameras, c)
	}
	slog.Info("resources created",
		"textures", len(s.textures),
		"meshes", len(s.meshes),
		"cameras", len(s.cameras),
	)
	return nil
}

// animate mutates sim-side state so the sync pass has work.
func (s *simulation) animate(frame int) {
	for _, c := range s.cameras {
		c.SetPosition(float32(frame), 0, 0)
	}
	if frame > 0 && frame%10 == 0 {
		for _, t := range s.textures {
			t.Resize(256+frame, 256)
		}
	}
	if frame > 0 && frame%15 == 0 {
		for i, m := range s.meshes {
			m.SetCounts(3*(i+1), 6*(i+1))
		}
	}
}

// readBack downloads the first texture's initial data.
func (s *simulation) readBack(ctx context.Context, stats *RunStats) error {
	if len(s.textures) == 0 {
		return nil
	}
	op, err := s.textures[0].ReadData(0)
	if err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	if err := s.acc.SubmitToCoreThread(ctx, true); err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	res, err := op.Value()
	if err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	if res.Err != nil {
		return fmt.Errorf("read back: %w", res.Err)
	}
	stats.ReadBack = len(res.Data)
	return nil
}

// teardown destroys every resource, cameras first. Core sides go away on
// the core goroutine behind everything the main accessor recorded.
func (s *simulation) teardown() {
	for _, c := range s.cameras {
		c.Destroy()
		c.Release()
	}
	for _, m := range s.meshes {
		m.Destroy()
		m.Release()
	}
	for _, t := range s.textures {
		t.Destroy()
		t.Release()
	}
	if err := s.acc.SubmitToCoreThread(context.Background(), true); err != nil {
		slog.Warn("core teardown not submitted", "error", err)
	}
	if err := s.mgr.Shutdown(); err != nil {
		slog.Warn("objects leaked", "error", err)
	}
}
