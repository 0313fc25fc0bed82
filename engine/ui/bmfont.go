package ui

import (
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/fzipp/bmfont"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

type bitmapChar struct {
	// Source rectangle on the page.
	rect    image.Rectangle
	offset  image.Point
	advance int
	page    int
}

type kernPair struct {
	first, second rune
}

// BitmapFace serves the glyphs of an AngelCode BMFont as a font.Face. Page
// sheets are kept as coverage masks: luminance times alpha, which fits both
// white-on-transparent and white-on-black exports.
type BitmapFace struct {
	Name       string
	lineHeight int
	base       int
	chars      map[rune]bitmapChar
	kerning    map[kernPair]int
	pages      map[int]*image.Alpha
}

var _ font.Face = (*BitmapFace)(nil)

// LoadBitmapFace reads a text .fnt descriptor and its page sheets.
func LoadBitmapFace(path string) (*BitmapFace, error) {
	f, err := bmfont.Load(path)
	if err != nil {
		return nil, fmt.Errorf("bitmap font %s: %w", path, err)
	}
	desc := f.Descriptor

	bf := &BitmapFace{
		Name:       desc.Info.Face,
		lineHeight: int(desc.Common.LineHeight),
		base:       int(desc.Common.Base),
		chars:      make(map[rune]bitmapChar, len(desc.Chars)),
		kerning:    make(map[kernPair]int, len(desc.Kerning)),
		pages:      make(map[int]*image.Alpha, len(desc.Pages)),
	}
	for _, g := range desc.Chars {
		x, y := int(g.X), int(g.Y)
		bf.chars[rune(g.ID)] = bitmapChar{
			rect:    image.Rect(x, y, x+int(g.Width), y+int(g.Height)),
			offset:  image.Pt(int(g.XOffset), int(g.YOffset)),
			advance: int(g.XAdvance),
			page:    int(g.Page),
		}
	}
	for pair, k := range desc.Kerning {
		bf.kerning[kernPair{rune(pair.First), rune(pair.Second)}] = int(k.Amount)
	}

	dir := filepath.Dir(path)
	for _, p := range desc.Pages {
		sheet, err := loadPage(filepath.Join(dir, p.File))
		if err != nil {
			return nil, fmt.Errorf("bitmap font %s: %w", path, err)
		}
		bf.pages[int(p.ID)] = sheet
	}
	return bf, nil
}

func loadPage(path string) (*image.Alpha, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", path, err)
	}
	return coverage(img), nil
}

func coverage(img image.Image) *image.Alpha {
	b := img.Bounds()
	out := image.NewAlpha(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			lum := (299*r + 587*g + 114*bl) / 1000
			out.Pix[out.PixOffset(x-b.Min.X, y-b.Min.Y)] = uint8(lum * a / 0xffff >> 8)
		}
	}
	return out
}

func (bf *BitmapFace) Close() error { return nil }

func (bf *BitmapFace) Glyph(dot fixed.Point26_6, r rune) (dr image.Rectangle, mask image.Image, maskp image.Point, advance fixed.Int26_6, ok bool) {
	c, found := bf.chars[r]
	if !found {
		return image.Rectangle{}, nil, image.Point{}, 0, false
	}
	page, found := bf.pages[c.page]
	if !found {
		return image.Rectangle{}, nil, image.Point{}, 0, false
	}
	x := dot.X.Round() + c.offset.X
	y := dot.Y.Round() - bf.base + c.offset.Y
	dr = image.Rect(x, y, x+c.rect.Dx(), y+c.rect.Dy())
	return dr, page, c.rect.Min, fixed.I(c.advance), true
}

func (bf *BitmapFace) GlyphBounds(r rune) (bounds fixed.Rectangle26_6, advance fixed.Int26_6, ok bool) {
	c, found := bf.chars[r]
	if !found {
		return fixed.Rectangle26_6{}, 0, false
	}
	minX, minY := c.offset.X, c.offset.Y-bf.base
	bounds = fixed.R(minX, minY, minX+c.rect.Dx(), minY+c.rect.Dy())
	return bounds, fixed.I(c.advance), true
}

func (bf *BitmapFace) GlyphAdvance(r rune) (advance fixed.Int26_6, ok bool) {
	c, found := bf.chars[r]
	if !found {
		return 0, false
	}
	return fixed.I(c.advance), true
}

func (bf *BitmapFace) Kern(r0, r1 rune) fixed.Int26_6 {
	return fixed.I(bf.kerning[kernPair{r0, r1}])
}

func (bf *BitmapFace) Metrics() font.Metrics {
	return font.Metrics{
		Height:  fixed.I(bf.lineHeight),
		Ascent:  fixed.I(bf.base),
		Descent: fixed.I(bf.lineHeight - bf.base),
	}
}
