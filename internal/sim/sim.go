// Package sim runs a single-threaded frame loop over the atlas, timeout queue and
// particle queue, the way a particle manager would drive them.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/garethgeorge/atlaspack/internal/atlas"
	"github.com/garethgeorge/atlaspack/internal/particleq"
	"github.com/garethgeorge/atlaspack/internal/softgpu"
	"github.com/garethgeorge/atlaspack/internal/timeq"
)

type Report struct {
	Seed   int64 `json:"seed"`
	Frames int   `json:"frames"`

	Spawned    int `json:"spawned"`
	Expired    int `json:"expired"`
	Rejected   int `json:"rejected"`
	Live       int `json:"live"`
	PeakLive   int `json:"peak_live"`
	Contexts   int `json:"contexts"`
	Resizes    int `json:"resizes"`
	Migrations int `json:"migrations"`

	Particles int `json:"particles"`
	Forced    int `json:"forced"`
	Starved   int `json:"starved"`
	Removed   int `json:"removed"`
	Extended  int `json:"extended"`
	// IdleFrames counts emitter frames with no particle alive.
	IdleFrames int `json:"idle_frames"`

	// TargetsLive is the number of device targets alive at the end of the run,
	// before the render context is closed.
	TargetsLive int `json:"targets_live"`
}

// Add accumulates counters from another report. Seed is left alone.
func (r *Report) Add(o Report) {
	r.Frames += o.Frames
	r.Spawned += o.Spawned
	r.Expired += o.Expired
	r.Rejected += o.Rejected
	r.Live += o.Live
	r.PeakLive = max(r.PeakLive, o.PeakLive)
	r.Contexts += o.Contexts
	r.Resizes += o.Resizes
	r.Migrations += o.Migrations
	r.Particles += o.Particles
	r.Forced += o.Forced
	r.Starved += o.Starved
	r.Removed += o.Removed
	r.Extended += o.Extended
	r.IdleFrames += o.IdleFrames
	r.TargetsLive += o.TargetsLive
}

type emitter struct {
	id        int
	handle    *atlas.AllocatedContext
	particles *particleq.Queue
	// uv is kept current by the allocation's Set callback
	uv   atlas.UVRect
	last int // most recently created particle
	has  bool
}

type runner struct {
	cfg    Config
	rng    *rand.Rand
	dev    *softgpu.Device
	rc     *atlas.SharedRenderContext
	expiry *timeq.TimeoutQueue[*emitter]
	bursts *timeq.TimeoutQueue[*emitter]
	live   map[int]*emitter
	nextID int
	report Report
}

// Run simulates cfg.Frames frames and reports what happened. The result depends
// only on cfg, so runs with different seeds can go on separate goroutines.
func Run(ctx context.Context, cfg Config) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}

	dev := softgpu.New(cfg.MaxSize)
	rc, err := atlas.New(dev, atlas.Config{
		InitialWidth:  cfg.InitialSize,
		InitialHeight: cfg.InitialSize,
		MaxWidth:      cfg.MaxSize,
		MaxHeight:     cfg.MaxSize,
		Logger:        cfg.Logger,
	})
	if err != nil {
		return Report{}, err
	}
	defer rc.Close()

	// both queues hold the same entry type and share node records
	pool := timeq.NewNodePool[float64, *emitter](0)
	r := &runner{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		dev:    dev,
		rc:     rc,
		expiry: timeq.NewTimeoutQueue(timeq.WithPool(pool)),
		bursts: timeq.NewTimeoutQueue(timeq.WithPool(pool)),
		live:   make(map[int]*emitter),
		report: Report{Seed: cfg.Seed},
	}

	prog := cfg.Progress
	prog.SetMessage(fmt.Sprintf("seed %d", cfg.Seed))
	prog.SetTotal(cfg.Frames)
	for frame := 0; frame < cfg.Frames; frame++ {
		if err := ctx.Err(); err != nil {
			prog.SetError(err)
			return r.report, err
		}
		if err := r.step(); err != nil {
			err = fmt.Errorf("frame %d: %w", frame, err)
			prog.SetError(err)
			return r.report, err
		}
		r.report.Frames++
		prog.SetDone(frame + 1)
	}
	prog.MarkFinished()

	stats := rc.Stats()
	r.report.Live = rc.Live()
	r.report.Contexts = rc.Contexts()
	r.report.Resizes = stats.Resizes
	r.report.Migrations = stats.Migrations
	r.report.TargetsLive = dev.Live()

	cfg.Logger.Info().
		Int64("seed", cfg.Seed).
		Int("spawned", r.report.Spawned).
		Int("resizes", r.report.Resizes).
		Int("particles", r.report.Particles).
		Log("simulation finished")
	return r.report, nil
}

func (r *runner) step() error {
	dt := r.cfg.FrameTime
	r.expiry.Update(dt)
	r.bursts.Update(dt)

	for e := range r.expiry.Ready() {
		if err := r.rc.Release(e.handle); err != nil {
			return fmt.Errorf("release emitter %d: %w", e.id, err)
		}
		r.bursts.Remove(e)
		delete(r.live, e.id)
		r.report.Expired++
	}

	spawn := int(r.cfg.SpawnRate)
	if r.rng.Float64() < r.cfg.SpawnRate-float64(spawn) {
		spawn++
	}
	for i := 0; i < spawn; i++ {
		if err := r.spawn(); err != nil {
			return err
		}
	}

	for _, e := range r.live {
		if !e.particles.Update(dt) {
			r.report.IdleFrames++
		}
		if e.uv != e.handle.UV() {
			return fmt.Errorf("emitter %d missed a migration: have %v, want %v", e.id, e.uv, e.handle.UV())
		}
	}

	for e := range r.bursts.Ready() {
		r.burst(e)
		r.bursts.Insert(e, r.cfg.BurstInterval)
	}
	return nil
}

func (r *runner) spawn() error {
	w := r.cfg.MinEmitter + r.rng.Intn(r.cfg.MaxEmitter-r.cfg.MinEmitter+1)
	h := r.cfg.MinEmitter + r.rng.Intn(r.cfg.MaxEmitter-r.cfg.MinEmitter+1)
	life := r.cfg.MinLife + r.rng.Float64()*(r.cfg.MaxLife-r.cfg.MinLife)

	r.nextID++
	e := &emitter{id: r.nextID, particles: particleq.New(r.cfg.Capacity)}
	handle, err := r.rc.Allocate(atlas.AllocateRequest{
		Width:  w,
		Height: h,
		Set:    func(ctx *atlas.AllocatedContext) { e.uv = ctx.UV() },
	})
	if errors.Is(err, atlas.ErrTooLarge) {
		r.report.Rejected++
		r.cfg.Logger.Debug().
			Int("width", w).
			Int("height", h).
			Log("emitter rejected")
		return nil
	}
	if err != nil {
		return fmt.Errorf("spawn %dx%d emitter: %w", w, h, err)
	}

	e.handle = handle
	r.live[e.id] = e
	r.expiry.Insert(e, life)
	r.bursts.Insert(e, 0)
	r.report.Spawned++
	r.report.PeakLive = max(r.report.PeakLive, len(r.live))
	return nil
}

func (r *runner) burst(e *emitter) {
	for i := 0; i < r.cfg.BurstSize; i++ {
		life := r.cfg.ParticleLife * (0.5 + r.rng.Float64()/2)
		id, ok := e.particles.Create(life, r.cfg.ForceCreate)
		if !ok {
			r.report.Starved++
			continue
		}
		r.report.Particles++
		if e.particles.WasForced() {
			r.report.Forced++
		}
		e.last, e.has = id, true
	}
	if !e.has {
		return
	}
	// occasionally kill the newest particle early, as a collision would, or let it
	// live a little longer
	switch r.rng.Intn(16) {
	case 0:
		if e.particles.RemoveParticle(e.last) {
			e.has = false
			r.report.Removed++
		}
	case 1:
		if e.particles.UpdateParticle(e.last, r.cfg.ParticleLife/4) {
			r.report.Extended++
		}
	}
}
