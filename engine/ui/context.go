package ui

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/math"
)

type Style struct {
	Padding int
	Spacing int
	// Integer pixel scale applied to the bitmap font.
	TextScale int
	BarHeight int

	PanelBg Color
	TitleBg Color
	Text    Color
	BarBg   Color
	BarFill Color
}

func DefaultStyle() Style {
	return Style{
		Padding:   6,
		Spacing:   4,
		TextScale: 2,
		BarHeight: 14,
		PanelBg:   Color{0.06, 0.06, 0.08, 1.0},
		TitleBg:   Color{0.16, 0.29, 0.48, 1.0},
		Text:      Color{0.92, 0.92, 0.92, 1.0},
		BarBg:     Color{0.20, 0.22, 0.27, 1.0},
		BarFill:   Color{0.26, 0.59, 0.98, 1.0},
	}
}

type panel struct {
	list    *DrawList
	bgIndex int
	rect    image.Rectangle
	cursorY int
}

// Context builds the overlay one frame at a time: NewFrame, widgets, Render.
type Context struct {
	Style Style

	glyphs    *glyphCache
	display   image.Rectangle
	deltaTime float64
	time      float64
	frame     uint64
	lists     []*DrawList
	current   *panel
}

func NewContext() *Context {
	return &Context{
		Style:  DefaultStyle(),
		glyphs: newGlyphCache(basicfont.Face7x13),
	}
}

// SetFace switches the text font. Glyphs are drawn from the face's coverage
// mask, so bitmap faces give the cleanest result.
func (c *Context) SetFace(face font.Face) {
	c.glyphs = newGlyphCache(face)
}

// NewFrame starts a frame covering a width x height display.
func (c *Context) NewFrame(deltaTime float64, width, height uint32) {
	c.deltaTime = deltaTime
	c.time += deltaTime
	c.frame++
	c.display = image.Rect(0, 0, int(width), int(height))
	c.lists = c.lists[:0]
	c.current = nil
}

func (c *Context) DeltaTime() float64 { return c.deltaTime }

// Time is the sum of all frame deltas.
func (c *Context) Time() float64 { return c.time }

func (c *Context) FrameCount() uint64 { return c.frame }

// Panel draws a titled window at origin. Widgets called from body are laid
// out top to bottom inside it; the panel grows to fit them.
func (c *Context) Panel(title string, origin image.Point, width int, body func()) {
	if c.current != nil {
		core.LogWarn("ui panel %q opened inside another panel", title)
		return
	}
	st := c.Style
	p := &panel{
		list: &DrawList{},
		rect: image.Rectangle{Min: origin, Max: origin.Add(image.Pt(width, 0))},
	}
	p.bgIndex = p.list.addQuad(image.Rectangle{}, st.PanelBg)

	titleH := c.lineHeight() + 2*st.Padding
	p.list.addQuad(image.Rect(origin.X, origin.Y, origin.X+width, origin.Y+titleH), st.TitleBg)
	c.current = p
	c.drawText(title, image.Pt(origin.X+st.Padding, origin.Y+st.Padding), st.Text)
	p.cursorY = origin.Y + titleH + st.Padding

	if body != nil {
		body()
	}

	p.rect.Max.Y = p.cursorY - st.Spacing + st.Padding
	if p.rect.Max.Y < origin.Y+titleH {
		p.rect.Max.Y = origin.Y + titleH
	}
	p.list.Quads[p.bgIndex].Rect = p.rect
	p.list.Cmds = append(p.list.Cmds, DrawCmd{
		ClipRect: p.rect.Intersect(c.display),
		Offset:   0,
		Count:    len(p.list.Quads),
	})
	c.lists = append(c.lists, p.list)
	c.current = nil
}

// Text adds a line of formatted text to the open panel.
func (c *Context) Text(format string, args ...interface{}) {
	p := c.current
	if p == nil {
		return
	}
	s := fmt.Sprintf(format, args...)
	c.drawText(s, image.Pt(p.rect.Min.X+c.Style.Padding, p.cursorY), c.Style.Text)
	p.cursorY += c.lineHeight() + c.Style.Spacing
}

// Bar adds a progress bar filled to fraction, clamped to [0,1], with an
// optional label drawn over it.
func (c *Context) Bar(fraction float32, label string) {
	p := c.current
	if p == nil {
		return
	}
	st := c.Style
	h := st.BarHeight
	if lh := c.lineHeight(); label != "" && lh > h {
		h = lh
	}
	x0 := p.rect.Min.X + st.Padding
	x1 := p.rect.Max.X - st.Padding
	y0 := p.cursorY
	track := image.Rect(x0, y0, x1, y0+h)
	p.list.addQuad(track, st.BarBg)

	fill := int(float32(track.Dx()) * math.Clamp(fraction, 0, 1))
	if fill > 0 {
		p.list.addQuad(image.Rect(x0, y0, x0+fill, y0+h), st.BarFill)
	}
	if label != "" {
		w := c.glyphs.measure(label) * c.scale()
		c.drawText(label, image.Pt(x0+(track.Dx()-w)/2, y0+(h-c.lineHeight())/2), st.Text)
	}
	p.cursorY += h + st.Spacing
}

// Separator adds a thin horizontal rule.
func (c *Context) Separator() {
	p := c.current
	if p == nil {
		return
	}
	y := p.cursorY
	p.list.addQuad(image.Rect(p.rect.Min.X+c.Style.Padding, y, p.rect.Max.X-c.Style.Padding, y+c.scale()), c.Style.BarBg)
	p.cursorY += c.scale() + c.Style.Spacing
}

// Render closes the frame and returns its draw data. The data is valid until
// the next NewFrame.
func (c *Context) Render() *DrawData {
	return &DrawData{
		DisplaySize: c.display.Size(),
		Lists:       c.lists,
	}
}

func (c *Context) scale() int {
	if c.Style.TextScale < 1 {
		return 1
	}
	return c.Style.TextScale
}

func (c *Context) lineHeight() int {
	return c.glyphs.height * c.scale()
}

func (c *Context) drawText(s string, at image.Point, color Color) {
	p := c.current
	k := c.scale()
	x := at.X
	prev := rune(-1)
	for _, r := range s {
		x += c.glyphs.kern(prev, r) * k
		g := c.glyphs.lookup(r)
		for _, run := range g.runs {
			p.list.addQuad(image.Rect(
				x+run.Min.X*k, at.Y+run.Min.Y*k,
				x+run.Max.X*k, at.Y+run.Max.Y*k,
			), color)
		}
		x += g.advance * k
		prev = r
	}
}
