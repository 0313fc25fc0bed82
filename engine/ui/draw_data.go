package ui

import "image"

// Color is a linear RGBA color in [0,1].
type Color [4]float32

// Quad is a solid rectangle, the only primitive the overlay emits.
type Quad struct {
	Rect  image.Rectangle
	Color Color
}

// DrawCmd draws Count quads of its list starting at Offset, clipped to ClipRect.
type DrawCmd struct {
	ClipRect image.Rectangle
	// 0 is the solid fill. Nothing else is supported by the encoder.
	TextureID uint32
	Offset    int
	Count     int
}

// DrawList holds the geometry of one window.
type DrawList struct {
	Quads []Quad
	Cmds  []DrawCmd
}

func (dl *DrawList) addQuad(r image.Rectangle, c Color) int {
	dl.Quads = append(dl.Quads, Quad{Rect: r, Color: c})
	return len(dl.Quads) - 1
}

// DrawData is one frame of overlay output.
type DrawData struct {
	DisplaySize image.Point
	Lists       []*DrawList
}

// TotalQuads counts the quads referenced by every command.
func (dd *DrawData) TotalQuads() int {
	n := 0
	for _, l := range dd.Lists {
		for _, cmd := range l.Cmds {
			n += cmd.Count
		}
	}
	return n
}
