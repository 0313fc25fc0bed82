package ui

import (
	"image"
	"io"
	"os"
	"testing"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	core.LogSetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestPanelLayout(t *testing.T) {
	c := NewContext()
	c.NewFrame(0.016, 800, 600)
	c.Panel("stats", image.Pt(10, 20), 200, func() {
		c.Text("fps %d", 60)
		c.Bar(0.5, "")
	})

	dd := c.Render()
	assert.Equal(t, image.Pt(800, 600), dd.DisplaySize)
	require.Len(t, dd.Lists, 1)
	list := dd.Lists[0]
	require.Len(t, list.Cmds, 1)

	cmd := list.Cmds[0]
	assert.Equal(t, 0, cmd.Offset)
	assert.Equal(t, len(list.Quads), cmd.Count)
	assert.Equal(t, uint32(0), cmd.TextureID)

	// The background comes first so everything else is drawn over it.
	bg := list.Quads[0]
	assert.Equal(t, c.Style.PanelBg, bg.Color)
	assert.Equal(t, image.Pt(10, 20), bg.Rect.Min)
	assert.Equal(t, 210, bg.Rect.Max.X)
	assert.Equal(t, bg.Rect, cmd.ClipRect)

	assert.Equal(t, c.Style.TitleBg, list.Quads[1].Color)
	for _, q := range list.Quads {
		assert.True(t, q.Rect.In(bg.Rect), "quad %v escapes panel %v", q.Rect, bg.Rect)
	}
	assert.Equal(t, dd.TotalQuads(), len(list.Quads))
}

func TestPanelClipsToDisplay(t *testing.T) {
	c := NewContext()
	c.NewFrame(0, 100, 100)
	c.Panel("wide", image.Pt(50, 50), 200, func() { c.Text("x") })

	dd := c.Render()
	require.Len(t, dd.Lists, 1)
	assert.Equal(t, image.Rect(50, 50, 100, 100), dd.Lists[0].Cmds[0].ClipRect)
}

func lastQuads(c *Context, n int) []Quad {
	l := c.Render().Lists[0]
	return l.Quads[len(l.Quads)-n:]
}

func TestBarFill(t *testing.T) {
	c := NewContext()
	track := 100 - 2*c.Style.Padding

	c.NewFrame(0, 800, 600)
	c.Panel("p", image.Pt(0, 0), 100, func() { c.Bar(0.5, "") })
	q := lastQuads(c, 2)
	assert.Equal(t, c.Style.BarBg, q[0].Color)
	assert.Equal(t, track, q[0].Rect.Dx())
	assert.Equal(t, c.Style.BarFill, q[1].Color)
	assert.Equal(t, track/2, q[1].Rect.Dx())

	// Out of range fractions are clamped.
	c.NewFrame(0, 800, 600)
	c.Panel("p", image.Pt(0, 0), 100, func() { c.Bar(1.5, "") })
	q = lastQuads(c, 2)
	assert.Equal(t, q[0].Rect, q[1].Rect)

	c.NewFrame(0, 800, 600)
	c.Panel("p", image.Pt(0, 0), 100, func() { c.Bar(-1, "") })
	q = lastQuads(c, 1)
	assert.Equal(t, c.Style.BarBg, q[0].Color)
}

func TestWidgetsOutsidePanel(t *testing.T) {
	c := NewContext()
	c.NewFrame(0, 800, 600)
	c.Text("orphan")
	c.Bar(1, "orphan")
	c.Separator()
	assert.Empty(t, c.Render().Lists)

	// Nested panels are refused, the outer one still renders.
	c.Panel("outer", image.Pt(0, 0), 100, func() {
		c.Panel("inner", image.Pt(0, 0), 100, func() { c.Text("hidden") })
	})
	assert.Len(t, c.Render().Lists, 1)
}

func TestNewFrameResets(t *testing.T) {
	c := NewContext()
	c.NewFrame(0.25, 800, 600)
	c.Panel("a", image.Pt(0, 0), 100, nil)
	require.Len(t, c.Render().Lists, 1)

	c.NewFrame(0.5, 640, 480)
	dd := c.Render()
	assert.Empty(t, dd.Lists)
	assert.Equal(t, image.Pt(640, 480), dd.DisplaySize)
	assert.Equal(t, 0.5, c.DeltaTime())
	assert.Equal(t, 0.75, c.Time())
	assert.Equal(t, uint64(2), c.FrameCount())
}

func TestGlyphRuns(t *testing.T) {
	c := NewContext()
	gc := c.glyphs

	assert.Empty(t, gc.glyph(' '))

	runs := gc.glyph('A')
	require.NotEmpty(t, runs)
	advance := gc.lookup('A').advance
	box := image.Rect(0, 0, advance, gc.height)
	for _, r := range runs {
		assert.Equal(t, 1, r.Dy())
		assert.True(t, r.In(box), "run %v outside glyph box", r)
	}
	// Cached.
	assert.Equal(t, runs, gc.glyph('A'))

	assert.Equal(t, 3*advance, gc.measure("abc"))
	assert.Equal(t, advance, gc.measure("\u4e16"))
}
