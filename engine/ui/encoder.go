package ui

import (
	"fmt"
	"image"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/renderer"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

const DefaultMaxDrawCommands = 4096

// Encoder turns overlay draw data into cleared rectangles inside the bound
// render pass. Consecutive quads of the same color go out in one clear.
type Encoder struct {
	maxDrawCommands int
	scratch         []metadata.Rect2D
	data            *DrawData
}

var _ renderer.PayloadEncoder = (*Encoder)(nil)

func NewEncoder(maxDrawCommands int) *Encoder {
	if maxDrawCommands <= 0 {
		maxDrawCommands = DefaultMaxDrawCommands
	}
	return &Encoder{
		maxDrawCommands: maxDrawCommands,
		scratch:         make([]metadata.Rect2D, 0, maxDrawCommands),
	}
}

func (e *Encoder) MaxDrawCommands() int { return e.maxDrawCommands }

// SetDrawData selects what the next EncodePayload emits.
func (e *Encoder) SetDrawData(data *DrawData) {
	e.data = data
}

func (e *Encoder) EncodePayload(pass *renderer.PassEncoder) error {
	if e.data == nil {
		return nil
	}
	area := image.Rect(0, 0, int(pass.Extent.Width), int(pass.Extent.Height))
	used := 0

	for li, list := range e.data.Lists {
		for ci, cmd := range list.Cmds {
			if cmd.TextureID != 0 {
				return fmt.Errorf("list %d cmd %d: texture %d not supported: %w", li, ci, cmd.TextureID, core.ErrEncoding)
			}
			if cmd.Offset < 0 || cmd.Offset+cmd.Count > len(list.Quads) {
				return fmt.Errorf("list %d cmd %d: quads [%d,%d) out of range: %w", li, ci, cmd.Offset, cmd.Offset+cmd.Count, core.ErrEncoding)
			}
			clip := cmd.ClipRect.Intersect(area)
			if clip.Empty() {
				continue
			}

			e.scratch = e.scratch[:0]
			var color Color
			for _, q := range list.Quads[cmd.Offset : cmd.Offset+cmd.Count] {
				r := q.Rect.Intersect(clip)
				if r.Empty() {
					continue
				}
				if len(e.scratch) > 0 && q.Color != color {
					pass.ClearRects(metadata.ClearColor(color), e.scratch)
					e.scratch = e.scratch[:0]
				}
				if used == e.maxDrawCommands {
					pass.ClearRects(metadata.ClearColor(color), e.scratch)
					return fmt.Errorf("more than %d draw commands: %w", e.maxDrawCommands, core.ErrEncoding)
				}
				color = q.Color
				e.scratch = append(e.scratch, toRect2D(r))
				used++
			}
			pass.ClearRects(metadata.ClearColor(color), e.scratch)
		}
	}
	return nil
}

func toRect2D(r image.Rectangle) metadata.Rect2D {
	return metadata.Rect2D{
		Offset: metadata.Offset2D{X: int32(r.Min.X), Y: int32(r.Min.Y)},
		Extent: metadata.Extent2D{Width: uint32(r.Dx()), Height: uint32(r.Dy())},
	}
}
