package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/platform"
	"github.com/spaghettifunk/anima-overlay/engine/renderer"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/vulkan"
	"github.com/spaghettifunk/anima-overlay/engine/ui"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

func (s Stage) String() string {
	switch s {
	case EngineStageUninitialized:
		return "uninitialized"
	case EngineStageInitializing:
		return "initializing"
	case EngineStageInitialized:
		return "initialized"
	case EngineStageRunning:
		return "running"
	case EngineStageShuttingDown:
		return "shutting down"
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// Window is the part of the platform layer the engine drives.
type Window interface {
	Startup(applicationName string, x, y, width, height uint32) error
	PumpMessages() bool
	WaitMessages(timeout float64)
	FramebufferSize() (uint32, uint32)
	Shutdown() error
}

// FnNewBackend brings up the GPU for the started window.
type FnNewBackend func(cfg *core.Config) (renderer.Backend, error)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *core.Config

	bus      *core.EventBus
	input    *core.InputState
	window   Window
	now      core.TimeSource
	newGPU   FnNewBackend
	renderer *renderer.Renderer
	overlay  *ui.Source
	watcher  *core.ConfigWatcher

	runCtx      context.Context
	quit        atomic.Bool
	isSuspended atomic.Bool
	width       uint32
	height      uint32
}

// New creates an engine running g in a GLFW window on Vulkan.
func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.New("game and application config are required")
	}
	bus := core.NewEventBus()
	input := core.NewInputState(bus)
	p := platform.New(bus, input)

	newGPU := func(cfg *core.Config) (renderer.Backend, error) {
		return vulkan.New(p, cfg.Window.Name, cfg.Renderer.Validation)
	}
	return newEngine(g, bus, input, p, platform.GetAbsoluteTime, newGPU), nil
}

func newEngine(g *Game, bus *core.EventBus, input *core.InputState, window Window, now core.TimeSource, newGPU FnNewBackend) *Engine {
	cfg := g.ApplicationConfig.Config
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       cfg,
		bus:          bus,
		input:        input,
		window:       window,
		now:          now,
		newGPU:       newGPU,
		width:        cfg.Window.Width,
		height:       cfg.Window.Height,
	}
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Input() *core.InputState {
	return e.input
}

func (e *Engine) Renderer() *renderer.Renderer {
	return e.renderer
}

// Initialize opens the window, brings up the GPU and builds the renderer. On
// failure whatever was created is torn down again.
func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("engine cannot initialize while %s", e.currentStage)
	}
	e.currentStage = EngineStageInitializing

	if err := e.initialize(); err != nil {
		core.LogError("engine initialization failed: %s", err)
		if shutdownErr := e.Shutdown(); shutdownErr != nil {
			core.LogError("%s", shutdownErr)
		}
		return err
	}
	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) initialize() error {
	cfg := e.config
	level, err := core.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	core.LogSetLevel(level)

	// register some events
	e.bus.Register(core.EventCodeApplicationQuit, e, e.onEvent)
	e.bus.Register(core.EventCodeKeyPressed, e, e.onKey)
	e.bus.Register(core.EventCodeKeyReleased, e, e.onKey)
	e.bus.Register(core.EventCodeResized, e, e.onResized)
	e.bus.Register(core.EventCodeConfigReloaded, e, e.onConfigReloaded)

	if err := e.window.Startup(cfg.Window.Name, cfg.Window.X, cfg.Window.Y, cfg.Window.Width, cfg.Window.Height); err != nil {
		return err
	}
	e.width, e.height = e.window.FramebufferSize()

	backend, err := e.newGPU(cfg)
	if err != nil {
		return err
	}

	e.overlay = ui.NewSource(ui.NewEncoder(int(cfg.Renderer.MaxDrawCommands)), e.gameInstance.FnBuild)
	if cfg.UI.Font != "" {
		face, err := ui.LoadBitmapFace(cfg.UI.Font)
		if err != nil {
			core.LogWarn("keeping the built-in font: %s", err)
		} else {
			e.overlay.Context.SetFace(face)
			core.LogDebug("overlay font %s loaded", face.Name)
		}
	}
	extent := metadata.Extent2D{Width: e.width, Height: e.height}
	r, err := renderer.New(backend, &cfg.Renderer, extent, e.overlay, e.now)
	if err != nil {
		// The renderer already shut the backend down.
		return err
	}
	e.renderer = r

	if path := e.gameInstance.ApplicationConfig.ConfigPath; path != "" {
		e.watcher, err = core.NewConfigWatcher(path, cfg, func(next *core.Config) {
			e.bus.Fire(core.EventContext{Type: core.EventCodeConfigReloaded, Data: next})
		})
		if err != nil {
			core.LogWarn("config hot reload disabled: %s", err)
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}
	return nil
}

// Run drives the frame loop until the window closes, ESC is pressed or ctx is
// cancelled, then shuts the engine down. Only a fatal frame error is returned.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine cannot run while %s", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.runCtx = ctx

	runErr := e.renderer.Run(ctx, e)
	if runErr != nil {
		core.LogError("render loop failed: %s", runErr)
	}
	stats := e.renderer.Stats()
	core.LogInfo("rendered %d frames, %d dropped", stats.Frames, stats.Dropped)

	if err := e.Shutdown(); err != nil {
		core.LogError("%s", err)
		if runErr == nil {
			return err
		}
	}
	return runErr
}

// PumpMessages feeds the frame loop. While the window is minimized it blocks
// here instead of rendering to a zero-sized surface.
func (e *Engine) PumpMessages() bool {
	e.input.Update()
	if !e.window.PumpMessages() || e.quit.Load() {
		return false
	}
	for e.isSuspended.Load() {
		if e.runCtx != nil && e.runCtx.Err() != nil {
			return false
		}
		e.window.WaitMessages(0.1)
		if !e.window.PumpMessages() || e.quit.Load() {
			return false
		}
	}
	return true
}

// Shutdown releases everything Initialize created, renderer first and window
// last. Calling it again is a no-op.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown || e.currentStage == EngineStageUninitialized {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	var errs []error
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			errs = append(errs, err)
		}
		e.watcher = nil
	}
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.renderer != nil {
		if err := e.renderer.Shutdown(); err != nil {
			errs = append(errs, err)
		}
		e.renderer = nil
	}
	if err := e.window.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	e.bus.Shutdown()
	return errors.Join(errs...)
}

func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext) bool {
	switch context.Type {
	case core.EventCodeApplicationQuit:
		core.LogInfo("EventCodeApplicationQuit received, shutting down.")
		e.quit.Store(true)
		return true
	}
	return false
}

func (e *Engine) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}

	if context.Type == core.EventCodeKeyPressed && ke.KeyCode == core.KEY_ESCAPE {
		e.bus.Fire(core.EventContext{
			Type: core.EventCodeApplicationQuit,
		})
		return true
	}
	return false
}

func (e *Engine) onResized(context core.EventContext) bool {
	re, ok := context.Data.(*core.ResizeEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if re.Width == e.width && re.Height == e.height {
		return false
	}
	e.width, e.height = re.Width, re.Height
	core.LogDebug("Window resize: %d, %d", re.Width, re.Height)

	if re.Width == 0 || re.Height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended.Store(true)
		return true
	}
	if e.isSuspended.Swap(false) {
		core.LogInfo("Window restored, resuming application.")
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(re.Width, re.Height); err != nil {
			core.LogError("%s", err)
		}
	}
	return true
}

// onConfigReloaded applies the live-tunable settings. It runs on the
// watcher's goroutine.
func (e *Engine) onConfigReloaded(context core.EventContext) bool {
	cfg, ok := context.Data.(*core.Config)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if level, err := core.ParseLogLevel(cfg.Log.Level); err == nil {
		core.LogSetLevel(level)
	}
	if r := e.renderer; r != nil {
		r.SetClearColor(cfg.Renderer.ClearColor)
	}
	return true
}
