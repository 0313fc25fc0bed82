package renderer

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/math"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

type ExtentPolicy uint8

const (
	// Use the surface's current extent, or the window size when the surface
	// leaves it to the swapchain.
	ExtentPolicyCurrent ExtentPolicy = iota
	// Always use the largest extent the surface allows.
	ExtentPolicyMaximum
)

func ParseExtentPolicy(name string) (ExtentPolicy, error) {
	switch name {
	case "", "current":
		return ExtentPolicyCurrent, nil
	case "maximum":
		return ExtentPolicyMaximum, nil
	}
	return ExtentPolicyCurrent, fmt.Errorf("unknown extent policy %q", name)
}

// SurfaceRequest holds what the caller would like the swapchain to be. Every
// field is a preference; the surface has the final word.
type SurfaceRequest struct {
	WindowExtent    metadata.Extent2D
	PreferredFormat metadata.Format
	PresentMode     metadata.PresentMode
	// 0 picks the surface minimum.
	ImageCount   uint32
	ExtentPolicy ExtentPolicy
}

// SurfaceBinding owns the swapchain and one view per swapchain image.
type SurfaceBinding struct {
	ctx *Context

	swapchain   metadata.Swapchain
	images      []metadata.Image
	views       []metadata.ImageView
	format      metadata.SurfaceFormat
	extent      metadata.Extent2D
	transform   metadata.SurfaceTransform
	presentMode metadata.PresentMode
}

// NegotiateSwapchain picks the swapchain parameters for a surface.
func NegotiateSwapchain(
	caps metadata.SurfaceCapabilities,
	formats []metadata.SurfaceFormat,
	modes []metadata.PresentMode,
	req SurfaceRequest,
) (*metadata.SwapchainDesc, error) {
	if caps.SupportedUsage&metadata.ImageUsageColorAttachment == 0 {
		return nil, fmt.Errorf("%w: images cannot be used as color attachments", core.ErrSurfaceIncompatible)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("%w: surface reports no formats", core.ErrSurfaceIncompatible)
	}

	extent := chooseExtent(caps, req.WindowExtent, req.ExtentPolicy)
	if extent.Width == 0 || extent.Height == 0 {
		return nil, fmt.Errorf("%w: surface extent is %dx%d", core.ErrSurfaceIncompatible, extent.Width, extent.Height)
	}

	// A zero maximum means no limit.
	maxImages := caps.MaxImageCount
	if maxImages == 0 {
		maxImages = ^uint32(0)
	}
	imageCount := math.Clamp(req.ImageCount, caps.MinImageCount, maxImages)

	transform := caps.CurrentTransform
	if transform == 0 {
		transform = metadata.SurfaceTransformIdentity
	}

	format := chooseFormat(formats, req.PreferredFormat)
	return &metadata.SwapchainDesc{
		MinImageCount: imageCount,
		Format:        format.Format,
		ColorSpace:    format.ColorSpace,
		Extent:        extent,
		Usage:         metadata.ImageUsageColorAttachment,
		PreTransform:  transform,
		PresentMode:   choosePresentMode(modes, req.PresentMode),
	}, nil
}

func chooseFormat(formats []metadata.SurfaceFormat, preferred metadata.Format) metadata.SurfaceFormat {
	if preferred == metadata.FormatUndefined {
		preferred = metadata.FormatB8G8R8A8Unorm
	}
	// A single undefined entry means the surface takes any format.
	if len(formats) == 1 && formats[0].Format == metadata.FormatUndefined {
		return metadata.SurfaceFormat{Format: preferred, ColorSpace: metadata.ColorSpaceSrgbNonlinear}
	}
	for _, f := range formats {
		if f.Format == preferred && f.ColorSpace == metadata.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

func choosePresentMode(modes []metadata.PresentMode, requested metadata.PresentMode) metadata.PresentMode {
	for _, m := range modes {
		if m == requested {
			return m
		}
	}
	if requested != metadata.PresentModeFifo {
		core.LogWarn("present mode %s not supported, falling back to fifo", requested)
	}
	// FIFO support is guaranteed.
	return metadata.PresentModeFifo
}

func chooseExtent(caps metadata.SurfaceCapabilities, window metadata.Extent2D, policy ExtentPolicy) metadata.Extent2D {
	var extent metadata.Extent2D
	switch {
	case policy == ExtentPolicyMaximum:
		extent = caps.MaxImageExtent
	case caps.CurrentExtent.Width != metadata.UndefinedExtent:
		extent = caps.CurrentExtent
	default:
		extent = window
	}

	// Clamp to the value allowed by the GPU.
	lo, hi := caps.MinImageExtent, caps.MaxImageExtent
	extent.Width, extent.Height = math.ClampExtent(extent.Width, extent.Height, lo.Width, lo.Height, hi.Width, hi.Height)
	return extent
}

// NewSurfaceBinding negotiates and creates the swapchain and its image views.
// Nothing is left behind on failure.
func NewSurfaceBinding(ctx *Context, req SurfaceRequest) (*SurfaceBinding, error) {
	gpu := ctx.GPU

	caps, res := gpu.SurfaceCapabilities()
	if !res.IsSuccess() {
		return nil, creationError("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", res)
	}
	formats, res := gpu.SurfaceFormats()
	if !res.IsSuccess() {
		return nil, creationError("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
	}
	modes, res := gpu.SurfacePresentModes()
	if !res.IsSuccess() {
		return nil, creationError("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
	}

	desc, err := NegotiateSwapchain(caps, formats, modes, req)
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	sb := &SurfaceBinding{
		ctx:         ctx,
		format:      metadata.SurfaceFormat{Format: desc.Format, ColorSpace: desc.ColorSpace},
		extent:      desc.Extent,
		transform:   desc.PreTransform,
		presentMode: desc.PresentMode,
	}

	swapchain, res := gpu.CreateSwapchain(desc)
	if res != metadata.Success {
		return nil, creationError("vkCreateSwapchainKHR", res)
	}
	sb.swapchain = swapchain

	images, res := gpu.SwapchainImages(swapchain)
	if res != metadata.Success {
		sb.Destroy()
		return nil, creationError("vkGetSwapchainImagesKHR", res)
	}
	if len(images) == 0 {
		sb.Destroy()
		return nil, fmt.Errorf("%w: swapchain has no images", core.ErrDeviceLost)
	}
	sb.images = images

	sb.views = make([]metadata.ImageView, 0, len(images))
	for _, image := range images {
		view, res := gpu.CreateImageView(image, desc.Format)
		if res != metadata.Success {
			sb.Destroy()
			return nil, creationError("vkCreateImageView", res)
		}
		sb.views = append(sb.views, view)
	}

	ctx.log.Info("swapchain created",
		"images", len(images),
		"format", desc.Format,
		"extent", fmt.Sprintf("%dx%d", desc.Extent.Width, desc.Extent.Height),
		"present_mode", desc.PresentMode)
	return sb, nil
}

func (sb *SurfaceBinding) ImageCount() int {
	return len(sb.images)
}

func (sb *SurfaceBinding) Format() metadata.SurfaceFormat {
	return sb.format
}

func (sb *SurfaceBinding) Extent() metadata.Extent2D {
	return sb.extent
}

func (sb *SurfaceBinding) Transform() metadata.SurfaceTransform {
	return sb.transform
}

func (sb *SurfaceBinding) PresentMode() metadata.PresentMode {
	return sb.presentMode
}

func (sb *SurfaceBinding) View(index uint32) metadata.ImageView {
	return sb.views[index]
}

// ValidIndex reports whether index names one of the swapchain images.
func (sb *SurfaceBinding) ValidIndex(index uint32) bool {
	return int(index) < len(sb.images)
}

// AcquireNextImage asks the swapchain for the next image, which becomes
// usable once signal is signaled. Suboptimal and out-of-date surfaces are
// reported as ErrSurfaceInvalidated since the swapchain is never recreated.
func (sb *SurfaceBinding) AcquireNextImage(timeout time.Duration, signal metadata.Semaphore) (uint32, error) {
	index, res := sb.ctx.GPU.AcquireNextImage(sb.swapchain, timeout, signal)
	if res != metadata.Success {
		return 0, resultError("vkAcquireNextImageKHR", res)
	}
	if !sb.ValidIndex(index) {
		err := fmt.Errorf("%w: acquired image %d of %d", core.ErrDeviceLost, index, len(sb.images))
		core.LogError("%s", err)
		return 0, err
	}
	return index, nil
}

// Present queues image index for presentation once wait is signaled.
// A suboptimal presentation still shows the image and only reports
// suboptimal=true.
func (sb *SurfaceBinding) Present(index uint32, wait metadata.Semaphore) (suboptimal bool, err error) {
	res := sb.ctx.GPU.QueuePresent(&metadata.PresentDesc{
		WaitSemaphores: []metadata.Semaphore{wait},
		Swapchain:      sb.swapchain,
		ImageIndex:     index,
	})
	switch res {
	case metadata.Success:
		return false, nil
	case metadata.Suboptimal:
		return true, nil
	}
	return false, resultError("vkQueuePresentKHR", res)
}

// Destroy releases the views, then the swapchain. The images belong to the
// swapchain and go with it.
func (sb *SurfaceBinding) Destroy() {
	gpu := sb.ctx.GPU
	for i := len(sb.views) - 1; i >= 0; i-- {
		gpu.DestroyImageView(sb.views[i])
	}
	sb.views = nil
	sb.images = nil
	if sb.swapchain != 0 {
		gpu.DestroySwapchain(sb.swapchain)
		sb.swapchain = 0
	}
}
