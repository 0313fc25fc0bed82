package ui

import (
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type glyphRuns struct {
	runs    []image.Rectangle
	advance int
}

// glyphCache turns bitmap glyphs into horizontal pixel runs, one rectangle per
// run, relative to the top-left corner of the line box.
type glyphCache struct {
	face   font.Face
	glyphs map[rune]glyphRuns
	height int
	ascent int
}

func newGlyphCache(face font.Face) *glyphCache {
	m := face.Metrics()
	return &glyphCache{
		face:   face,
		glyphs: make(map[rune]glyphRuns),
		height: m.Height.Ceil(),
		ascent: m.Ascent.Ceil(),
	}
}

var _ font.Face = basicfont.Face7x13

func (gc *glyphCache) lookup(r rune) glyphRuns {
	if g, ok := gc.glyphs[r]; ok {
		return g
	}
	// Draw with the baseline at the ascent so the line box starts at y=0.
	dr, mask, maskp, advance, ok := gc.face.Glyph(fixed.P(0, gc.ascent), r)
	if !ok {
		// Missing glyphs take the space of a blank one.
		adv, _ := gc.face.GlyphAdvance(' ')
		g := glyphRuns{advance: adv.Round()}
		gc.glyphs[r] = g
		return g
	}

	g := glyphRuns{advance: advance.Round()}
	for y := dr.Min.Y; y < dr.Max.Y; y++ {
		start := -1
		for x := dr.Min.X; x <= dr.Max.X; x++ {
			on := false
			if x < dr.Max.X {
				_, _, _, a := mask.At(maskp.X+x-dr.Min.X, maskp.Y+y-dr.Min.Y).RGBA()
				on = a >= 0x8000
			}
			switch {
			case on && start < 0:
				start = x
			case !on && start >= 0:
				g.runs = append(g.runs, image.Rect(start, y, x, y+1))
				start = -1
			}
		}
	}
	gc.glyphs[r] = g
	return g
}

func (gc *glyphCache) glyph(r rune) []image.Rectangle {
	return gc.lookup(r).runs
}

// kern is the unscaled adjustment between prev and r.
func (gc *glyphCache) kern(prev, r rune) int {
	if prev < 0 {
		return 0
	}
	return gc.face.Kern(prev, r).Round()
}

// measure returns the unscaled pixel width of s.
func (gc *glyphCache) measure(s string) int {
	w := 0
	prev := rune(-1)
	for _, r := range s {
		w += gc.kern(prev, r) + gc.lookup(r).advance
		prev = r
	}
	return w
}
