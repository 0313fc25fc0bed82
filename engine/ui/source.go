package ui

import (
	"github.com/spaghettifunk/anima-overlay/engine/renderer"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

// FnBuild lays out one frame of widgets.
type FnBuild func(c *Context, stats renderer.FrameStats)

// Source drives a Context from the frame loop.
type Source struct {
	Context *Context
	encoder *Encoder
	build   FnBuild
}

var _ renderer.PayloadSource = (*Source)(nil)

func NewSource(encoder *Encoder, build FnBuild) *Source {
	return &Source{
		Context: NewContext(),
		encoder: encoder,
		build:   build,
	}
}

func (s *Source) NewFrame(deltaTime float64, extent metadata.Extent2D, stats renderer.FrameStats) renderer.PayloadEncoder {
	s.Context.NewFrame(deltaTime, extent.Width, extent.Height)
	if s.build != nil {
		s.build(s.Context, stats)
	}
	s.encoder.SetDrawData(s.Context.Render())
	return s.encoder
}
