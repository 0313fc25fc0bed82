package renderer

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

type FrameState uint8

const (
	FrameStateIdle FrameState = iota
	FrameStateAcquiring
	FrameStateRecording
	FrameStateSubmitting
	FrameStatePresenting
)

func (s FrameState) String() string {
	switch s {
	case FrameStateIdle:
		return "idle"
	case FrameStateAcquiring:
		return "acquiring"
	case FrameStateRecording:
		return "recording"
	case FrameStateSubmitting:
		return "submitting"
	case FrameStatePresenting:
		return "presenting"
	}
	return fmt.Sprintf("FrameState(%d)", uint8(s))
}

// FrameStats is what the loop reports to the payload source every frame.
type FrameStats struct {
	// Frames presented so far, dropped ones included.
	Frames uint64
	// Frames whose payload failed to encode and were presented cleared.
	Dropped     uint64
	FPS         float64
	FrameTimeMS float64
}

// PayloadSource produces the content of each frame. NewFrame is called at the
// start of every frame, before the loop blocks on the GPU.
type PayloadSource interface {
	NewFrame(deltaTime float64, extent metadata.Extent2D, stats FrameStats) PayloadEncoder
}

// EventPump drains window events. It returns false once the window should close.
type EventPump interface {
	PumpMessages() bool
}

// FrameLoop drives acquire, record, submit and present, one frame at a time.
type FrameLoop struct {
	ctx      *Context
	surface  *SurfaceBinding
	targets  *RenderTargetSet
	sync     *FrameSync
	recorder *CommandRecorder
	source   PayloadSource

	clock   *core.Clock
	metrics *core.Metrics

	clearColor atomic.Pointer[metadata.ClearColor]

	state       FrameState
	frameNumber uint64
	stats       FrameStats
	// Fence of the last submission that rendered into each swapchain image.
	imagesInFlight   []*Fence
	suboptimalLogged bool
}

func NewFrameLoop(
	ctx *Context,
	surface *SurfaceBinding,
	targets *RenderTargetSet,
	sync *FrameSync,
	recorder *CommandRecorder,
	source PayloadSource,
	clock *core.Clock,
) *FrameLoop {
	fl := &FrameLoop{
		ctx:            ctx,
		surface:        surface,
		targets:        targets,
		sync:           sync,
		recorder:       recorder,
		source:         source,
		clock:          clock,
		metrics:        core.NewMetrics(),
		imagesInFlight: make([]*Fence, surface.ImageCount()),
	}
	var color metadata.ClearColor
	if ctx.Config != nil {
		color = ctx.Config.ClearColor
	}
	fl.SetClearColor(color)
	return fl
}

// SetClearColor changes the clear color from the next recorded frame on. Safe
// to call from any goroutine.
func (fl *FrameLoop) SetClearColor(color metadata.ClearColor) {
	fl.clearColor.Store(&color)
}

func (fl *FrameLoop) ClearColor() metadata.ClearColor {
	return *fl.clearColor.Load()
}

func (fl *FrameLoop) State() FrameState {
	return fl.state
}

func (fl *FrameLoop) Stats() FrameStats {
	return fl.stats
}

// Frame runs one full iteration and returns to Idle. Any error it returns is
// fatal; a payload that fails to encode only drops that frame's content.
func (fl *FrameLoop) Frame() error {
	set := fl.sync.Select(fl.frameNumber)
	cb := fl.recorder.Buffer(set.Index())
	extent := fl.targets.Extent()

	var encoder PayloadEncoder
	if fl.source != nil {
		encoder = fl.source.NewFrame(fl.clock.Delta(), extent, fl.stats)
	}

	// Wait for the GPU to finish the last frame that used this set. The fence
	// being free also means its command buffer may be recorded again.
	fl.state = FrameStateAcquiring
	if err := set.WaitFence(); err != nil {
		return err
	}
	cb.Reset()

	// Acquire the next image from the swap chain. The acquire semaphore is
	// signaled once it can be written; the submission below waits on it.
	index, err := fl.surface.AcquireNextImage(fl.ctx.FenceTimeout(), set.AcquireSemaphore())
	if err != nil {
		return err
	}

	// Make sure a previous frame is not still using this image.
	if f := fl.imagesInFlight[index]; f != nil && f != set.Fence() {
		if err := f.Wait(fl.ctx, fl.ctx.FenceTimeout()); err != nil {
			return err
		}
	}
	// Mark the image fence as in-use by this frame.
	fl.imagesInFlight[index] = set.Fence()

	// Reset the fence only now that a submission is certain to signal it.
	if err := set.ResetFence(); err != nil {
		return err
	}

	fl.state = FrameStateRecording
	framebuffer := fl.targets.Framebuffer(index)
	color := fl.ClearColor()
	err = fl.recorder.Record(cb, framebuffer, extent, color, encoder)
	if !core.IsRecoverable(err) {
		return err
	}
	if err != nil {
		// Present a cleared image instead, so the acquire semaphore is still
		// consumed and the image goes back to the swapchain.
		fl.stats.Dropped++
		fl.ctx.log.Warn("frame dropped", "frame", fl.frameNumber, "err", err)
		if err := fl.recorder.Record(cb, framebuffer, extent, color, nil); err != nil {
			return err
		}
	}

	fl.state = FrameStateSubmitting
	res := fl.ctx.GPU.QueueSubmit(&metadata.SubmitDesc{
		// Each semaphore waits on the corresponding pipeline stage to complete. 1:1 ratio.
		WaitSemaphores: []metadata.Semaphore{set.AcquireSemaphore()},
		// Writing color attachments must wait for the image to be available.
		WaitStages:       []metadata.PipelineStageFlags{metadata.PipelineStageColorAttachmentOutput},
		CommandBuffers:   []metadata.CommandBuffer{cb.Handle},
		SignalSemaphores: []metadata.Semaphore{set.FinishSemaphore()},
		Fence:            set.Fence().Handle,
	})
	if res != metadata.Success {
		return resultError("vkQueueSubmit", res)
	}
	cb.UpdateSubmitted()

	fl.state = FrameStatePresenting
	suboptimal, err := fl.surface.Present(index, set.FinishSemaphore())
	if err != nil {
		return err
	}
	if suboptimal && !fl.suboptimalLogged {
		fl.ctx.log.Warn("swapchain is suboptimal for the surface, presenting anyway")
		fl.suboptimalLogged = true
	}

	fl.state = FrameStateIdle
	fl.metrics.Update(fl.clock.Tick())
	fl.frameNumber++
	fl.stats.Frames++
	fl.stats.FPS = fl.metrics.FPS()
	fl.stats.FrameTimeMS = fl.metrics.FrameTime()
	return nil
}

// Run drives frames until the pump reports the window closed or ctx is
// cancelled, both of which return nil.
func (fl *FrameLoop) Run(ctx context.Context, pump EventPump) error {
	fl.clock.Start()
	fl.ctx.log.Info("frame loop started", "sync_sets", fl.sync.Len(), "images", fl.surface.ImageCount())
	for {
		select {
		case <-ctx.Done():
			fl.ctx.log.Info("frame loop cancelled", "frames", fl.stats.Frames, "dropped", fl.stats.Dropped)
			return nil
		default:
		}
		if !pump.PumpMessages() {
			fl.ctx.log.Info("window closed", "frames", fl.stats.Frames, "dropped", fl.stats.Dropped)
			return nil
		}
		if err := fl.Frame(); err != nil {
			fl.ctx.log.Error("frame loop stopped", "state", fl.state, "frame", fl.frameNumber, "err", err)
			fl.clock.Stop()
			return err
		}
	}
}
