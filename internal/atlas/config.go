package atlas

import (
	"fmt"

	"github.com/garethgeorge/atlaspack/internal/packer"
	"github.com/joeycumines/logiface"
)

const DefaultGrowthFactor = 1.25

type Config struct {
	// InitialWidth and InitialHeight size a context when its bin is first used.
	InitialWidth  int
	InitialHeight int
	// MaxWidth and MaxHeight bound every context and every allocation.
	MaxWidth  int
	MaxHeight int
	// GrowthFactor scales a context per axis on resize. Zero means DefaultGrowthFactor.
	GrowthFactor float64
	// SplitPolicy overrides the packer's leftover split rule when set.
	SplitPolicy packer.SplitPolicy
	Logger      *logiface.Logger[logiface.Event]
}

// Validate fills in defaults and checks the sizes are consistent.
func (c *Config) Validate() error {
	if c.MaxWidth <= 0 || c.MaxHeight <= 0 {
		return fmt.Errorf("%w: max size %dx%d must be positive", ErrBadConfig, c.MaxWidth, c.MaxHeight)
	}
	if c.InitialWidth <= 0 || c.InitialHeight <= 0 {
		return fmt.Errorf("%w: initial size %dx%d must be positive", ErrBadConfig, c.InitialWidth, c.InitialHeight)
	}
	if c.InitialWidth > c.MaxWidth || c.InitialHeight > c.MaxHeight {
		return fmt.Errorf("%w: initial size %dx%d exceeds max size %dx%d",
			ErrBadConfig, c.InitialWidth, c.InitialHeight, c.MaxWidth, c.MaxHeight)
	}
	if c.GrowthFactor == 0 {
		c.GrowthFactor = DefaultGrowthFactor
	}
	if !(c.GrowthFactor > 1) {
		return fmt.Errorf("%w: growth factor %v must be greater than 1", ErrBadConfig, c.GrowthFactor)
	}
	return nil
}
