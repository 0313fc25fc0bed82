package engine

import (
	"context"
	"errors"
	"image"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/renderer"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/gputest"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-overlay/engine/ui"
)

func TestMain(m *testing.M) {
	core.LogSetOutput(io.Discard)
	os.Exit(m.Run())
}

// fakeWindow stays open for a fixed number of pumps. onPump runs before each
// one and may fire events the way GLFW callbacks would.
type fakeWindow struct {
	frames    int
	pumps     int
	waits     int
	onPump    func(pump int)
	startErr  error
	started   bool
	shutdowns int
	fbW, fbH  uint32
}

func (w *fakeWindow) Startup(name string, x, y, width, height uint32) error {
	if w.startErr != nil {
		return w.startErr
	}
	w.started = true
	if w.fbW == 0 {
		w.fbW, w.fbH = width, height
	}
	return nil
}

func (w *fakeWindow) PumpMessages() bool {
	if w.onPump != nil {
		w.onPump(w.pumps)
	}
	w.pumps++
	return w.pumps <= w.frames
}

func (w *fakeWindow) WaitMessages(timeout float64) { w.waits++ }

func (w *fakeWindow) FramebufferSize() (uint32, uint32) { return w.fbW, w.fbH }

func (w *fakeWindow) Shutdown() error {
	w.shutdowns++
	return nil
}

func fakeClock() core.TimeSource {
	t := 0.0
	return func() float64 {
		t += 1.0 / 60.0
		return t
	}
}

type harness struct {
	engine *Engine
	window *fakeWindow
	gpu    *gputest.GPU
	built  int
}

func newHarness(frames int) *harness {
	h := &harness{
		window: &fakeWindow{frames: frames},
		gpu:    gputest.New(),
	}
	cfg := core.DefaultConfig()
	cfg.Window.Width, cfg.Window.Height = 800, 600
	game := &Game{
		ApplicationConfig: &ApplicationConfig{Config: cfg},
		FnBuild: func(c *ui.Context, stats renderer.FrameStats) {
			h.built++
			c.Panel("stats", image.Pt(10, 10), 200, func() {
				c.Text("frames %d", stats.Frames)
			})
		},
	}
	bus := core.NewEventBus()
	h.engine = newEngine(game, bus, core.NewInputState(bus), h.window, fakeClock(),
		func(*core.Config) (renderer.Backend, error) { return h.gpu, nil })
	return h
}

func TestEngineLifecycle(t *testing.T) {
	h := newHarness(5)
	assert.Equal(t, EngineStageUninitialized, h.engine.Stage())

	require.NoError(t, h.engine.Initialize())
	assert.Equal(t, EngineStageInitialized, h.engine.Stage())
	assert.True(t, h.window.started)

	require.NoError(t, h.engine.Run(context.Background()))
	assert.Equal(t, EngineStageShuttingDown, h.engine.Stage())
	assert.Equal(t, 5, h.built)
	assert.Equal(t, 5, h.gpu.Count(gputest.OpQueuePresent))
	assert.Equal(t, 1, h.window.shutdowns)
	assert.Zero(t, h.gpu.LiveObjects())
	assert.Empty(t, h.gpu.Violations())

	// Shutdown after Run is a no-op.
	require.NoError(t, h.engine.Shutdown())
	assert.Equal(t, 1, h.window.shutdowns)
}

func TestEngineEscapeQuits(t *testing.T) {
	h := newHarness(100)
	h.window.onPump = func(pump int) {
		if pump == 3 {
			h.engine.Input().ProcessKey(core.KEY_ESCAPE, true)
		}
	}
	require.NoError(t, h.engine.Initialize())
	require.NoError(t, h.engine.Run(context.Background()))
	assert.Equal(t, 3, h.gpu.Count(gputest.OpQueuePresent))
}

func TestEngineCancel(t *testing.T) {
	h := newHarness(100)
	ctx, cancel := context.WithCancel(context.Background())
	h.window.onPump = func(pump int) {
		if pump == 2 {
			cancel()
		}
	}
	require.NoError(t, h.engine.Initialize())
	require.NoError(t, h.engine.Run(ctx))
	assert.LessOrEqual(t, h.gpu.Count(gputest.OpQueuePresent), 3)
	assert.Zero(t, h.gpu.LiveObjects())
}

func TestEngineSuspendsWhileMinimized(t *testing.T) {
	h := newHarness(20)
	h.window.onPump = func(pump int) {
		switch pump {
		case 2:
			h.engine.bus.Fire(core.EventContext{Type: core.EventCodeResized, Data: &core.ResizeEvent{}})
		case 6:
			h.engine.bus.Fire(core.EventContext{Type: core.EventCodeResized, Data: &core.ResizeEvent{Width: 800, Height: 600}})
		}
	}
	require.NoError(t, h.engine.Initialize())
	require.NoError(t, h.engine.Run(context.Background()))
	assert.Greater(t, h.window.waits, 0)
	// Pumps spent minimized do not render.
	assert.Equal(t, 20-h.window.waits, h.gpu.Count(gputest.OpQueuePresent))
}

func TestEngineConfigReload(t *testing.T) {
	defer core.LogSetLevel(core.LogGetLevel())

	h := newHarness(5)
	var colors []metadata.ClearColor
	require.NoError(t, h.engine.Initialize())

	next := core.DefaultConfig()
	next.Renderer.ClearColor = [4]float32{1, 0, 0, 1}
	next.Log.Level = "debug"
	h.window.onPump = func(pump int) {
		if pump == 2 {
			h.engine.bus.Fire(core.EventContext{Type: core.EventCodeConfigReloaded, Data: next})
		}
		if pump > 0 {
			// Clear color of the frame recorded last.
			var cmd uint64
			for _, c := range h.gpu.Calls() {
				if c.Op == gputest.OpBeginCommandBuffer {
					cmd = c.Handle
				}
			}
			for _, c := range h.gpu.Commands(metadata.CommandBuffer(cmd)) {
				if c.Op == gputest.OpBeginRenderPass {
					colors = append(colors, c.Color)
				}
			}
		}
	}
	require.NoError(t, h.engine.Run(context.Background()))

	blue := metadata.ClearColor{0, 0, 1, 1}
	red := metadata.ClearColor{1, 0, 0, 1}
	assert.Equal(t, []metadata.ClearColor{blue, blue, red, red, red}, colors)
	assert.Equal(t, core.DebugLevel, core.LogGetLevel())
}

func TestEngineInitializeFailure(t *testing.T) {
	h := newHarness(1)
	h.window.startErr = errors.New("no display")

	err := h.engine.Initialize()
	require.Error(t, err)
	assert.Equal(t, EngineStageShuttingDown, h.engine.Stage())
	assert.Equal(t, 1, h.window.shutdowns)

	assert.Error(t, h.engine.Run(context.Background()))
}

func TestEngineFatalFrame(t *testing.T) {
	h := newHarness(10)
	h.gpu.AcquireResults[2] = metadata.ErrorOutOfDate
	require.NoError(t, h.engine.Initialize())

	err := h.engine.Run(context.Background())
	require.ErrorIs(t, err, core.ErrSurfaceInvalidated)
	assert.Zero(t, h.gpu.LiveObjects())
	assert.Equal(t, 1, h.window.shutdowns)
}

func TestEngineMissingFontKeepsDefault(t *testing.T) {
	h := newHarness(2)
	h.engine.gameInstance.ApplicationConfig.Config.UI.Font = "does/not/exist.fnt"
	require.NoError(t, h.engine.Initialize())
	require.NoError(t, h.engine.Run(context.Background()))
	assert.Equal(t, 2, h.gpu.Count(gputest.OpQueuePresent))
}
