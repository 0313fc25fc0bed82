package renderer

import (
	"fmt"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

type Renderpass struct {
	ctx    *Context
	Handle metadata.RenderPass
	Format metadata.Format
}

// MainRenderPassDesc describes the only pass the overlay uses: one color
// attachment cleared on load, stored, and left in the presentation layout.
func MainRenderPassDesc(format metadata.Format) *metadata.RenderPassDesc {
	return &metadata.RenderPassDesc{
		Attachments: []metadata.AttachmentDesc{
			{
				Format:        format,
				LoadOp:        metadata.AttachmentLoadOpClear,
				StoreOp:       metadata.AttachmentStoreOpStore,
				InitialLayout: metadata.ImageLayoutUndefined,  // Do not expect any particular layout before render pass starts.
				FinalLayout:   metadata.ImageLayoutPresentSrc, // Transitioned to after the render pass
			},
		},
		ColorLayout: metadata.ImageLayoutColorAttachmentOptimal,
		// The presentation engine may still be reading the image when it is
		// acquired. Hold color output until that access is done.
		Dependencies: []metadata.SubpassDependency{
			{
				SrcSubpass:    metadata.SubpassExternal,
				DstSubpass:    0,
				SrcStageMask:  metadata.PipelineStageColorAttachmentOutput,
				SrcAccessMask: 0,
				DstStageMask:  metadata.PipelineStageColorAttachmentOutput,
				DstAccessMask: metadata.AccessColorAttachmentRead | metadata.AccessColorAttachmentWrite,
			},
		},
	}
}

func NewRenderpass(ctx *Context, format metadata.Format) (*Renderpass, error) {
	if !ctx.GPU.FormatSupportsColorAttachment(format) {
		err := fmt.Errorf("%w: %s", core.ErrAttachmentFormatUnsupported, format)
		core.LogError("%s", err)
		return nil, err
	}
	handle, res := ctx.GPU.CreateRenderPass(MainRenderPassDesc(format))
	if res != metadata.Success {
		return nil, creationError("vkCreateRenderPass", res)
	}
	return &Renderpass{ctx: ctx, Handle: handle, Format: format}, nil
}

// Begin starts the pass over the whole framebuffer, clearing it to color.
func (rp *Renderpass) Begin(cb *CommandBuffer, framebuffer metadata.Framebuffer, extent metadata.Extent2D, color metadata.ClearColor) {
	rp.ctx.GPU.CmdBeginRenderPass(cb.Handle, &metadata.RenderPassBegin{
		RenderPass:  rp.Handle,
		Framebuffer: framebuffer,
		RenderArea: metadata.Rect2D{
			Offset: metadata.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearColor: color,
	})
	cb.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (rp *Renderpass) End(cb *CommandBuffer) {
	rp.ctx.GPU.CmdEndRenderPass(cb.Handle)
	cb.State = COMMAND_BUFFER_STATE_RECORDING
}

func (rp *Renderpass) Destroy() {
	if rp.Handle != 0 {
		rp.ctx.GPU.DestroyRenderPass(rp.Handle)
		rp.Handle = 0
	}
}

type Framebuffer struct {
	Handle      metadata.Framebuffer
	Attachments []metadata.ImageView
	Extent      metadata.Extent2D
}

// RenderTargetSet binds the main render pass to every swapchain image.
// Framebuffer i renders into swapchain image i.
type RenderTargetSet struct {
	ctx          *Context
	Pass         *Renderpass
	framebuffers []*Framebuffer
	extent       metadata.Extent2D
}

func NewRenderTargetSet(ctx *Context, surface *SurfaceBinding) (*RenderTargetSet, error) {
	pass, err := NewRenderpass(ctx, surface.Format().Format)
	if err != nil {
		return nil, err
	}
	rts := &RenderTargetSet{
		ctx:          ctx,
		Pass:         pass,
		framebuffers: make([]*Framebuffer, 0, surface.ImageCount()),
		extent:       surface.Extent(),
	}

	for i := 0; i < surface.ImageCount(); i++ {
		attachments := []metadata.ImageView{surface.View(uint32(i))}
		handle, res := ctx.GPU.CreateFramebuffer(&metadata.FramebufferDesc{
			RenderPass:  pass.Handle,
			Attachments: attachments,
			Extent:      rts.extent,
			Layers:      1,
		})
		if res != metadata.Success {
			rts.Destroy()
			return nil, creationError("vkCreateFramebuffer", res)
		}
		rts.framebuffers = append(rts.framebuffers, &Framebuffer{
			Handle:      handle,
			Attachments: attachments,
			Extent:      rts.extent,
		})
	}
	core.LogDebug("created %d framebuffers for format %s", len(rts.framebuffers), pass.Format)
	return rts, nil
}

func (rts *RenderTargetSet) Count() int {
	return len(rts.framebuffers)
}

func (rts *RenderTargetSet) Framebuffer(index uint32) metadata.Framebuffer {
	return rts.framebuffers[index].Handle
}

func (rts *RenderTargetSet) Extent() metadata.Extent2D {
	return rts.extent
}

func (rts *RenderTargetSet) Format() metadata.Format {
	return rts.Pass.Format
}

func (rts *RenderTargetSet) Destroy() {
	for i := len(rts.framebuffers) - 1; i >= 0; i-- {
		rts.ctx.GPU.DestroyFramebuffer(rts.framebuffers[i].Handle)
	}
	rts.framebuffers = nil
	if rts.Pass != nil {
		rts.Pass.Destroy()
	}
}
