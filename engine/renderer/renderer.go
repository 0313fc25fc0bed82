package renderer

import (
	"context"
	"fmt"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

// Renderer owns every GPU object of the overlay, from the backend up to the
// frame loop.
type Renderer struct {
	backend  Backend
	ctx      *Context
	surface  *SurfaceBinding
	targets  *RenderTargetSet
	sync     *FrameSync
	recorder *CommandRecorder
	loop     *FrameLoop
}

// SurfaceRequestFromConfig turns the renderer settings into swapchain preferences.
func SurfaceRequestFromConfig(cfg *core.RendererConfig, window metadata.Extent2D) (SurfaceRequest, error) {
	req := SurfaceRequest{
		WindowExtent: window,
		ImageCount:   cfg.ImageCount,
	}
	var err error
	if req.PreferredFormat, err = metadata.ParseFormat(cfg.SurfaceFormat); err != nil {
		return req, err
	}
	if req.PresentMode, err = metadata.ParsePresentMode(cfg.PresentMode); err != nil {
		return req, err
	}
	if req.ExtentPolicy, err = ParseExtentPolicy(cfg.ExtentPolicy); err != nil {
		return req, err
	}
	if req.ExtentPolicy == ExtentPolicyMaximum {
		core.LogWarn("extent_policy maximum ignores the window size, images may be larger than the window")
	}
	return req, nil
}

// New builds the renderer on top of backend, which it takes ownership of. On
// failure everything created so far is destroyed, backend included.
func New(backend Backend, cfg *core.RendererConfig, window metadata.Extent2D, source PayloadSource, now core.TimeSource) (*Renderer, error) {
	r := &Renderer{
		backend: backend,
		ctx:     NewContext(backend.GPU(), cfg),
	}
	if err := r.initialize(window, source, now); err != nil {
		r.destroy()
		return nil, err
	}
	r.ctx.log.Info("renderer initialized",
		"present_mode", r.surface.PresentMode(),
		"frames_in_flight", r.sync.Len())
	return r, nil
}

func (r *Renderer) initialize(window metadata.Extent2D, source PayloadSource, now core.TimeSource) error {
	req, err := SurfaceRequestFromConfig(r.ctx.Config, window)
	if err != nil {
		return fmt.Errorf("renderer config: %w", err)
	}
	if r.surface, err = NewSurfaceBinding(r.ctx, req); err != nil {
		return err
	}
	if r.targets, err = NewRenderTargetSet(r.ctx, r.surface); err != nil {
		return err
	}
	frames := int(r.ctx.Config.FramesInFlight)
	if frames < 1 {
		frames = 1
	}
	if r.recorder, err = NewCommandRecorder(r.ctx, r.targets, frames); err != nil {
		return err
	}
	if r.sync, err = NewFrameSync(r.ctx, frames); err != nil {
		return err
	}
	r.loop = NewFrameLoop(r.ctx, r.surface, r.targets, r.sync, r.recorder, source, core.NewClock(now))
	return nil
}

func (r *Renderer) Context() *Context {
	return r.ctx
}

func (r *Renderer) Surface() *SurfaceBinding {
	return r.surface
}

// Run drives the frame loop, see FrameLoop.Run.
func (r *Renderer) Run(ctx context.Context, pump EventPump) error {
	return r.loop.Run(ctx, pump)
}

// Frame renders a single frame.
func (r *Renderer) Frame() error {
	return r.loop.Frame()
}

func (r *Renderer) SetClearColor(color metadata.ClearColor) {
	r.loop.SetClearColor(color)
}

func (r *Renderer) Stats() FrameStats {
	return r.loop.Stats()
}

// Shutdown waits for the GPU to go idle and destroys everything in reverse
// creation order. The wait error, if any, is returned after the teardown.
func (r *Renderer) Shutdown() error {
	var err error
	if res := r.ctx.GPU.WaitIdle(); res != metadata.Success {
		err = resultError("vkDeviceWaitIdle", res)
	}
	r.destroy()
	r.ctx.log.Info("renderer shut down")
	return err
}

func (r *Renderer) destroy() {
	if r.sync != nil {
		r.sync.Destroy()
		r.sync = nil
	}
	if r.recorder != nil {
		r.recorder.Destroy()
		r.recorder = nil
	}
	if r.targets != nil {
		r.targets.Destroy()
		r.targets = nil
	}
	if r.surface != nil {
		r.surface.Destroy()
		r.surface = nil
	}
	if r.backend != nil {
		r.backend.Shutdown()
		r.backend = nil
	}
}
