package metadata

import "time"

// GPU is the capability surface the frame protocol runs on: one method per GPU
// operation it issues. The instance, device, queue and window surface behind
// it are created elsewhere; an implementation only needs to expose them
// through these calls. Methods returning a Result mirror the Vulkan call of the
// same name and must not panic on failure.
type GPU interface {
	SurfaceCapabilities() (SurfaceCapabilities, Result)
	SurfaceFormats() ([]SurfaceFormat, Result)
	SurfacePresentModes() ([]PresentMode, Result)
	// FormatSupportsColorAttachment reports whether images of format can be
	// rendered to as color attachments with optimal tiling.
	FormatSupportsColorAttachment(format Format) bool

	CreateSwapchain(desc *SwapchainDesc) (Swapchain, Result)
	DestroySwapchain(swapchain Swapchain)
	SwapchainImages(swapchain Swapchain) ([]Image, Result)
	CreateImageView(image Image, format Format) (ImageView, Result)
	DestroyImageView(view ImageView)

	CreateRenderPass(desc *RenderPassDesc) (RenderPass, Result)
	DestroyRenderPass(pass RenderPass)
	CreateFramebuffer(desc *FramebufferDesc) (Framebuffer, Result)
	DestroyFramebuffer(framebuffer Framebuffer)

	// CreateCommandPool creates a pool on the graphics queue family whose
	// buffers can be reset individually.
	CreateCommandPool() (CommandPool, Result)
	DestroyCommandPool(pool CommandPool)
	AllocateCommandBuffer(pool CommandPool) (CommandBuffer, Result)
	ResetCommandBuffer(cmd CommandBuffer) Result
	BeginCommandBuffer(cmd CommandBuffer, usage CommandBufferUsage) Result
	EndCommandBuffer(cmd CommandBuffer) Result
	CmdBeginRenderPass(cmd CommandBuffer, begin *RenderPassBegin)
	CmdEndRenderPass(cmd CommandBuffer)
	// CmdClearRects clears rects of color attachment 0 of the bound pass.
	CmdClearRects(cmd CommandBuffer, color ClearColor, rects []Rect2D)

	CreateFence(signaled bool) (Fence, Result)
	DestroyFence(fence Fence)
	WaitForFence(fence Fence, timeout time.Duration) Result
	ResetFence(fence Fence) Result
	CreateSemaphore() (Semaphore, Result)
	DestroySemaphore(semaphore Semaphore)

	AcquireNextImage(swapchain Swapchain, timeout time.Duration, signal Semaphore) (uint32, Result)
	QueueSubmit(submit *SubmitDesc) Result
	QueuePresent(present *PresentDesc) Result
	WaitIdle() Result
}
