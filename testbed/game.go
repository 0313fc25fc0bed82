package testbed

import (
	"image"
	gomath "math"

	"github.com/spaghettifunk/anima-overlay/engine"
	"github.com/spaghettifunk/anima-overlay/engine/containers"
	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/renderer"
	"github.com/spaghettifunk/anima-overlay/engine/ui"
)

// Frames kept for the frame time peak.
const historySize = 120

type TestGame struct {
	*engine.Game

	// Input is read to toggle the help line, nil disables it.
	Input *core.InputState
}

type gameState struct {
	width  uint32
	height uint32

	showHelp  bool
	frameTime *containers.RingQueue[float64]
}

func NewTestGame(cfg *core.Config, configPath string) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				ConfigPath: configPath,
				Config:     cfg,
			},
			State: &gameState{
				showHelp:  true,
				frameTime: containers.NewRingQueue[float64](historySize),
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnBuild = tg.Build
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")
	return nil
}

// Build lays out the stats panel for the current frame.
func (g *TestGame) Build(c *ui.Context, stats renderer.FrameStats) {
	state := g.State.(*gameState)

	if g.Input != nil && g.Input.IsKeyDown(core.KEY_H) && !g.Input.WasKeyDown(core.KEY_H) {
		state.showHelp = !state.showHelp
	}

	state.frameTime.Push(stats.FrameTimeMS)
	peak := 0.0
	state.frameTime.Each(func(ms float64) {
		peak = gomath.Max(peak, ms)
	})

	c.Panel("anima overlay", image.Pt(16, 16), 300, func() {
		c.Text("fps      %6.1f", stats.FPS)
		c.Text("frame    %6.2f ms", stats.FrameTimeMS)
		c.Text("peak     %6.2f ms", peak)
		c.Separator()
		c.Text("frames   %d", stats.Frames)
		c.Text("dropped  %d", stats.Dropped)
		c.Separator()
		// One full sweep every four seconds.
		phase := float32(0.5 + 0.5*gomath.Sin(c.Time()*gomath.Pi/2))
		c.Bar(phase, "")
		if state.showHelp {
			c.Text("esc quit, h help")
		}
	})
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogDebug("TestGame Shutdown fn....")
	return nil
}
