package renderer

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

// PassEncoder is handed to a PayloadEncoder while the main render pass is
// bound. Everything it emits lands inside that pass.
type PassEncoder struct {
	gpu    metadata.GPU
	cmd    *CommandBuffer
	Format metadata.Format
	Extent metadata.Extent2D
}

func (pe *PassEncoder) CommandBuffer() metadata.CommandBuffer {
	return pe.cmd.Handle
}

// ClearRects fills rects of the color attachment with color.
func (pe *PassEncoder) ClearRects(color metadata.ClearColor, rects []metadata.Rect2D) {
	if len(rects) == 0 {
		return
	}
	pe.gpu.CmdClearRects(pe.cmd.Handle, color, rects)
}

// PayloadEncoder emits one frame of drawable content into the bound render
// pass. An error drops the frame's content.
type PayloadEncoder interface {
	EncodePayload(pass *PassEncoder) error
}

type PayloadEncoderFunc func(pass *PassEncoder) error

func (f PayloadEncoderFunc) EncodePayload(pass *PassEncoder) error {
	return f(pass)
}

// CommandRecorder owns the command pool and one reusable command buffer per
// sync set.
type CommandRecorder struct {
	ctx     *Context
	pass    *Renderpass
	pool    metadata.CommandPool
	buffers []*CommandBuffer
}

func NewCommandRecorder(ctx *Context, targets *RenderTargetSet, count int) (*CommandRecorder, error) {
	pool, res := ctx.GPU.CreateCommandPool()
	if res != metadata.Success {
		return nil, creationError("vkCreateCommandPool", res)
	}
	cr := &CommandRecorder{
		ctx:     ctx,
		pass:    targets.Pass,
		pool:    pool,
		buffers: make([]*CommandBuffer, 0, count),
	}
	for i := 0; i < count; i++ {
		cb, err := newCommandBuffer(ctx, pool)
		if err != nil {
			cr.Destroy()
			return nil, err
		}
		cr.buffers = append(cr.buffers, cb)
	}
	return cr, nil
}

func (cr *CommandRecorder) Buffer(index int) *CommandBuffer {
	return cr.buffers[index]
}

// Record re-records cb to clear framebuffer to color and run encoder inside
// the render pass. The GPU must be done with cb's previous submission.
//
// An encoder failure is returned as ErrEncoding once the pass and the buffer
// have been ended; the buffer is then complete but carries a partial payload.
func (cr *CommandRecorder) Record(
	cb *CommandBuffer,
	framebuffer metadata.Framebuffer,
	extent metadata.Extent2D,
	color metadata.ClearColor,
	encoder PayloadEncoder,
) error {
	if cb.State == COMMAND_BUFFER_STATE_SUBMITTED {
		err := fmt.Errorf("%w: command buffer re-recorded while in flight", core.ErrDeviceLost)
		core.LogError("%s", err)
		return err
	}

	gpu := cr.ctx.GPU
	if res := gpu.ResetCommandBuffer(cb.Handle); res != metadata.Success {
		return resultError("vkResetCommandBuffer", res)
	}
	cb.Reset()

	// The same buffer is submitted again every frame once its last execution is known complete.
	if err := cb.Begin(cr.ctx, metadata.CommandBufferUsageSimultaneousUse); err != nil {
		return err
	}

	cr.pass.Begin(cb, framebuffer, extent, color)
	var encodeErr error
	if encoder != nil {
		encodeErr = encoder.EncodePayload(&PassEncoder{
			gpu:    gpu,
			cmd:    cb,
			Format: cr.pass.Format,
			Extent: extent,
		})
	}
	cr.pass.End(cb)

	if err := cb.End(cr.ctx); err != nil {
		return err
	}

	if encodeErr != nil {
		if errors.Is(encodeErr, core.ErrEncoding) {
			return encodeErr
		}
		return fmt.Errorf("%w: %v", core.ErrEncoding, encodeErr)
	}
	return nil
}

// Destroy frees the pool, which frees every buffer allocated from it.
func (cr *CommandRecorder) Destroy() {
	for _, cb := range cr.buffers {
		cb.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
	}
	cr.buffers = nil
	if cr.pool != 0 {
		cr.ctx.GPU.DestroyCommandPool(cr.pool)
		cr.pool = 0
	}
}
