package sim

import (
	"errors"
	"fmt"

	"github.com/garethgeorge/atlaspack/internal/progress"
	"github.com/joeycumines/logiface"
)

var ErrBadConfig = errors.New("invalid simulation config")

// Config drives one simulated run. Emitters are spawned at random, each owning an
// atlas allocation and a particle queue, and expire after a random lifetime.
type Config struct {
	Seed   int64
	Frames int
	// FrameTime is the clock delta per frame, in seconds.
	FrameTime float64

	InitialSize int
	MaxSize     int

	// SpawnRate is the expected number of emitters spawned per frame.
	SpawnRate  float64
	MinEmitter int
	MaxEmitter int
	MinLife    float64
	MaxLife    float64

	// Capacity is the particle slot count of every emitter.
	Capacity      int
	BurstSize     int
	BurstInterval float64
	ParticleLife  float64
	ForceCreate   bool

	Logger   *logiface.Logger[logiface.Event]
	Progress progress.FrameTracker
}

// DefaultConfig is a small run that resizes its atlas a few times.
func DefaultConfig() Config {
	return Config{
		Seed:          1,
		Frames:        600,
		FrameTime:     1.0 / 60,
		InitialSize:   64,
		MaxSize:       1024,
		SpawnRate:     0.25,
		MinEmitter:    8,
		MaxEmitter:    96,
		MinLife:       1,
		MaxLife:       6,
		Capacity:      64,
		BurstSize:     8,
		BurstInterval: 0.1,
		ParticleLife:  1.5,
	}
}

func (c *Config) Validate() error {
	switch {
	case c.Frames < 0:
		return fmt.Errorf("%w: frames %d", ErrBadConfig, c.Frames)
	case !(c.FrameTime > 0):
		return fmt.Errorf("%w: frame time %v", ErrBadConfig, c.FrameTime)
	case c.InitialSize <= 0 || c.InitialSize > c.MaxSize:
		return fmt.Errorf("%w: initial size %d with max size %d", ErrBadConfig, c.InitialSize, c.MaxSize)
	case c.SpawnRate < 0:
		return fmt.Errorf("%w: spawn rate %v", ErrBadConfig, c.SpawnRate)
	case c.MinEmitter <= 0 || c.MinEmitter > c.MaxEmitter:
		return fmt.Errorf("%w: emitter size range [%d, %d]", ErrBadConfig, c.MinEmitter, c.MaxEmitter)
	case c.MinLife < 0 || c.MinLife > c.MaxLife:
		return fmt.Errorf("%w: emitter life range [%v, %v]", ErrBadConfig, c.MinLife, c.MaxLife)
	case c.Capacity < 0 || c.BurstSize < 0:
		return fmt.Errorf("%w: capacity %d, burst size %d", ErrBadConfig, c.Capacity, c.BurstSize)
	case !(c.BurstInterval > 0) || c.ParticleLife < 0:
		return fmt.Errorf("%w: burst interval %v, particle life %v", ErrBadConfig, c.BurstInterval, c.ParticleLife)
	}
	if c.Progress == nil {
		c.Progress = progress.NoopFrameTracker{}
	}
	return nil
}
