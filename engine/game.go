package engine

import (
	"github.com/spaghettifunk/anima-overlay/engine/ui"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	// Builds the overlay, once per frame.
	FnBuild    ui.FnBuild
	FnOnResize OnResize
	FnShutdown Shutdown
}

type Initialize func() error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
