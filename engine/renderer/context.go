package renderer

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

// Context carries the GPU capability and the renderer settings to every
// component. It is built once at startup and outlives all of them.
type Context struct {
	GPU    metadata.GPU
	Config *core.RendererConfig
	// Identifies this renderer instance in the logs.
	ID uuid.UUID

	log *log.Logger
}

func NewContext(gpu metadata.GPU, config *core.RendererConfig) *Context {
	id := uuid.New()
	return &Context{
		GPU:    gpu,
		Config: config,
		ID:     id,
		log:    core.LogWith("renderer", id.String()[:8]),
	}
}

// FenceTimeout converts the configured bound, 0 meaning no bound.
func (c *Context) FenceTimeout() time.Duration {
	if c.Config == nil || c.Config.FenceTimeout == 0 {
		return metadata.InfiniteTimeout
	}
	return time.Duration(c.Config.FenceTimeout)
}

// resultError classifies a failed GPU call into one of the fatal error kinds
// and logs it.
func resultError(op string, res metadata.Result) error {
	var kind error
	switch res {
	case metadata.Timeout:
		kind = core.ErrDeviceHang
	case metadata.ErrorOutOfDate, metadata.Suboptimal, metadata.ErrorSurfaceLost:
		kind = core.ErrSurfaceInvalidated
	default:
		kind = core.ErrDeviceLost
	}
	err := fmt.Errorf("%w: %s failed with %s", kind, op, res.Describe())
	core.LogError("%s", err)
	return err
}

// creationError reports a failed object creation. Creation failures are
// device failures whatever the result code.
func creationError(op string, res metadata.Result) error {
	err := fmt.Errorf("%w: %s failed with %s", core.ErrDeviceLost, op, res.Describe())
	core.LogError("%s", err)
	return err
}
