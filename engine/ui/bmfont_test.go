package ui

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/math/fixed"
)

const testDescriptor = `info face="Tiny" size=8 bold=0 italic=0 charset="" unicode=1 stretchH=100 smooth=0 aa=1 padding=0,0,0,0 spacing=1,1 outline=0
common lineHeight=10 base=8 scaleW=16 scaleH=16 pages=1 packed=0 alphaChnl=0 redChnl=0 greenChnl=0 blueChnl=0
page id=0 file="tiny_0.png"
chars count=2
char id=65   x=0     y=0     width=3     height=2     xoffset=0     yoffset=6     xadvance=4     page=0  chnl=15
char id=66   x=4     y=0     width=2     height=2     xoffset=1     yoffset=0     xadvance=3     page=0  chnl=15
kernings count=1
kerning first=65  second=66  amount=-1
`

// writeTestFont writes a 16x16 page where 'A' is a solid 3x2 block with its
// middle column cut out and 'B' a solid 2x2 block, white on black.
func writeTestFont(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	page := image.NewRGBA(image.Rect(0, 0, 16, 16))
	white := color.RGBA{255, 255, 255, 255}
	black := color.RGBA{0, 0, 0, 255}
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			page.Set(x, y, black)
		}
	}
	for y := 0; y < 2; y++ {
		page.Set(0, y, white)
		page.Set(2, y, white)
		page.Set(4, y, white)
		page.Set(5, y, white)
	}

	f, err := os.Create(filepath.Join(dir, "tiny_0.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, page))
	require.NoError(t, f.Close())

	path := filepath.Join(dir, "tiny.fnt")
	require.NoError(t, os.WriteFile(path, []byte(testDescriptor), 0o644))
	return path
}

func TestLoadBitmapFace(t *testing.T) {
	face, err := LoadBitmapFace(writeTestFont(t))
	require.NoError(t, err)

	assert.Equal(t, "Tiny", face.Name)
	m := face.Metrics()
	assert.Equal(t, fixed.I(10), m.Height)
	assert.Equal(t, fixed.I(8), m.Ascent)

	adv, ok := face.GlyphAdvance('A')
	assert.True(t, ok)
	assert.Equal(t, fixed.I(4), adv)
	assert.Equal(t, fixed.I(-1), face.Kern('A', 'B'))
	assert.Equal(t, fixed.I(0), face.Kern('B', 'A'))

	_, _, _, _, ok = face.Glyph(fixed.P(0, 8), 'Z')
	assert.False(t, ok)

	bounds, _, ok := face.GlyphBounds('A')
	require.True(t, ok)
	assert.Equal(t, fixed.R(0, -2, 3, 0), bounds)
}

func TestBitmapFaceRuns(t *testing.T) {
	face, err := LoadBitmapFace(writeTestFont(t))
	require.NoError(t, err)
	gc := newGlyphCache(face)

	// 'A' sits on the baseline at y=8 and is split in two by its gap.
	assert.Equal(t, []image.Rectangle{
		image.Rect(0, 6, 1, 7), image.Rect(2, 6, 3, 7),
		image.Rect(0, 7, 1, 8), image.Rect(2, 7, 3, 8),
	}, gc.glyph('A'))
	assert.Equal(t, []image.Rectangle{
		image.Rect(1, 0, 3, 1), image.Rect(1, 1, 3, 2),
	}, gc.glyph('B'))

	// 4 + 3 - 1 kerning, the missing 'Z' takes no space without a blank glyph.
	assert.Equal(t, 6, gc.measure("AB"))
	assert.Equal(t, 6, gc.measure("ABZ"))
}

func TestContextWithBitmapFace(t *testing.T) {
	face, err := LoadBitmapFace(writeTestFont(t))
	require.NoError(t, err)

	c := NewContext()
	c.Style.TextScale = 1
	c.SetFace(face)
	c.NewFrame(0, 200, 200)
	c.Panel("", image.Pt(0, 0), 100, func() {
		c.Text("AB")
	})
	dd := c.Render()
	require.Len(t, dd.Lists, 1)

	var text []Quad
	for _, q := range dd.Lists[0].Quads {
		if q.Color == c.Style.Text {
			text = append(text, q)
		}
	}
	// Four runs for 'A', two for 'B'.
	assert.Len(t, text, 6)
}

func TestLoadBitmapFaceMissing(t *testing.T) {
	_, err := LoadBitmapFace(filepath.Join(t.TempDir(), "none.fnt"))
	assert.Error(t, err)
}
