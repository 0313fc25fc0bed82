package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

func (vd *VulkanDevice) CreateRenderPass(desc *metadata.RenderPassDesc) (metadata.RenderPass, metadata.Result) {
	attachments := make([]vk.AttachmentDescription, len(desc.Attachments))
	colorRefs := make([]vk.AttachmentReference, len(desc.Attachments))
	for i, a := range desc.Attachments {
		attachments[i] = vk.AttachmentDescription{
			Format:         vk.Format(a.Format),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOp(a.LoadOp),
			StoreOp:        vk.AttachmentStoreOp(a.StoreOp),
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayout(a.InitialLayout),
			FinalLayout:    vk.ImageLayout(a.FinalLayout),
		}
		colorRefs[i] = vk.AttachmentReference{
			Attachment: uint32(i),
			Layout:     vk.ImageLayout(desc.ColorLayout),
		}
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
	}

	dependencies := make([]vk.SubpassDependency, len(desc.Dependencies))
	for i, d := range desc.Dependencies {
		dependencies[i] = vk.SubpassDependency{
			SrcSubpass:    d.SrcSubpass,
			DstSubpass:    d.DstSubpass,
			SrcStageMask:  vk.PipelineStageFlags(d.SrcStageMask),
			DstStageMask:  vk.PipelineStageFlags(d.DstStageMask),
			SrcAccessMask: vk.AccessFlags(d.SrcAccessMask),
			DstAccessMask: vk.AccessFlags(d.DstAccessMask),
		}
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	var pass vk.RenderPass
	if res := vk.CreateRenderPass(vd.LogicalDevice, &createInfo, vd.allocator, &pass); res != vk.Success {
		return 0, toResult(res)
	}
	var id uint64
	vd.locks.SafeCall(RenderpassManagement, func() {
		id = vd.renderPasses.put(pass)
	})
	return metadata.RenderPass(id), metadata.Success
}

func (vd *VulkanDevice) DestroyRenderPass(pass metadata.RenderPass) {
	var rp vk.RenderPass
	var ok bool
	vd.locks.SafeCall(RenderpassManagement, func() {
		rp, ok = vd.renderPasses.remove(uint64(pass))
	})
	if !ok {
		core.LogWarn("DestroyRenderPass: unknown render pass %d", pass)
		return
	}
	vk.DestroyRenderPass(vd.LogicalDevice, rp, vd.allocator)
}

func (vd *VulkanDevice) CreateFramebuffer(desc *metadata.FramebufferDesc) (metadata.Framebuffer, metadata.Result) {
	var pass vk.RenderPass
	views := make([]vk.ImageView, len(desc.Attachments))
	ok := true
	vd.locks.SafeCall(RenderpassManagement, func() {
		pass, ok = vd.renderPasses.get(uint64(desc.RenderPass))
	})
	vd.locks.SafeCall(SwapchainManagement, func() {
		for i, v := range desc.Attachments {
			view, found := vd.views.get(uint64(v))
			ok = ok && found
			views[i] = view
		}
	})
	if !ok {
		return 0, metadata.ErrorValidationFailed
	}

	layers := desc.Layers
	if layers == 0 {
		layers = 1
	}
	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           desc.Extent.Width,
		Height:          desc.Extent.Height,
		Layers:          layers,
	}

	var fb vk.Framebuffer
	if res := vk.CreateFramebuffer(vd.LogicalDevice, &createInfo, vd.allocator, &fb); res != vk.Success {
		return 0, toResult(res)
	}
	var id uint64
	vd.locks.SafeCall(RenderpassManagement, func() {
		id = vd.framebuffers.put(fb)
	})
	return metadata.Framebuffer(id), metadata.Success
}

func (vd *VulkanDevice) DestroyFramebuffer(framebuffer metadata.Framebuffer) {
	var fb vk.Framebuffer
	var ok bool
	vd.locks.SafeCall(RenderpassManagement, func() {
		fb, ok = vd.framebuffers.remove(uint64(framebuffer))
	})
	if !ok {
		core.LogWarn("DestroyFramebuffer: unknown framebuffer %d", framebuffer)
		return
	}
	vk.DestroyFramebuffer(vd.LogicalDevice, fb, vd.allocator)
}

func (vd *VulkanDevice) CmdBeginRenderPass(cmd metadata.CommandBuffer, begin *metadata.RenderPassBegin) {
	cb, ok := vd.commandBuffer(cmd)
	if !ok {
		return
	}
	var pass vk.RenderPass
	var fb vk.Framebuffer
	vd.locks.SafeCall(RenderpassManagement, func() {
		pass, ok = vd.renderPasses.get(uint64(begin.RenderPass))
		if ok {
			fb, ok = vd.framebuffers.get(uint64(begin.Framebuffer))
		}
	})
	if !ok {
		core.LogError("CmdBeginRenderPass: unknown render pass %d or framebuffer %d", begin.RenderPass, begin.Framebuffer)
		return
	}

	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor(begin.ClearColor[:])

	beginInfo := vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      pass,
		Framebuffer:     fb,
		RenderArea:      fromRect(begin.RenderArea),
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cb.handle, &beginInfo, vk.SubpassContentsInline)
}

func (vd *VulkanDevice) CmdEndRenderPass(cmd metadata.CommandBuffer) {
	if cb, ok := vd.commandBuffer(cmd); ok {
		vk.CmdEndRenderPass(cb.handle)
	}
}

func (vd *VulkanDevice) CmdClearRects(cmd metadata.CommandBuffer, color metadata.ClearColor, rects []metadata.Rect2D) {
	cb, ok := vd.commandBuffer(cmd)
	if !ok || len(rects) == 0 {
		return
	}
	var value vk.ClearValue
	value.SetColor(color[:])
	attachment := vk.ClearAttachment{
		AspectMask:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
		ColorAttachment: 0,
		ClearValue:      value,
	}
	clearRects := make([]vk.ClearRect, len(rects))
	for i, r := range rects {
		clearRects[i] = vk.ClearRect{
			Rect:           fromRect(r),
			BaseArrayLayer: 0,
			LayerCount:     1,
		}
	}
	vk.CmdClearAttachments(cb.handle, 1, []vk.ClearAttachment{attachment}, uint32(len(clearRects)), clearRects)
}
