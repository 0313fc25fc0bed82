package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

type swapchainEntry struct {
	handle vk.Swapchain
	// Image ids, registered on the first SwapchainImages call.
	images []uint64
}

func (vd *VulkanDevice) surfaceCapabilities() (vk.SurfaceCapabilities, vk.Result) {
	var caps vk.SurfaceCapabilities
	res := vk.GetPhysicalDeviceSurfaceCapabilities(vd.PhysicalDevice, vd.Surface, &caps)
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, res
}

func (vd *VulkanDevice) SurfaceCapabilities() (metadata.SurfaceCapabilities, metadata.Result) {
	caps, res := vd.surfaceCapabilities()
	if res != vk.Success {
		return metadata.SurfaceCapabilities{}, toResult(res)
	}
	return metadata.SurfaceCapabilities{
		MinImageCount:    caps.MinImageCount,
		MaxImageCount:    caps.MaxImageCount,
		CurrentExtent:    toExtent(caps.CurrentExtent),
		MinImageExtent:   toExtent(caps.MinImageExtent),
		MaxImageExtent:   toExtent(caps.MaxImageExtent),
		CurrentTransform: metadata.SurfaceTransform(caps.CurrentTransform),
		SupportedUsage:   metadata.ImageUsageFlags(caps.SupportedUsageFlags),
	}, metadata.Success
}

func (vd *VulkanDevice) SurfaceFormats() ([]metadata.SurfaceFormat, metadata.Result) {
	var count uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(vd.PhysicalDevice, vd.Surface, &count, nil); res != vk.Success {
		return nil, toResult(res)
	}
	formats := make([]vk.SurfaceFormat, count)
	if count > 0 {
		if res := vk.GetPhysicalDeviceSurfaceFormats(vd.PhysicalDevice, vd.Surface, &count, formats); res != vk.Success {
			return nil, toResult(res)
		}
	}
	out := make([]metadata.SurfaceFormat, len(formats))
	for i := range formats {
		formats[i].Deref()
		out[i] = metadata.SurfaceFormat{
			Format:     metadata.Format(formats[i].Format),
			ColorSpace: metadata.ColorSpace(formats[i].ColorSpace),
		}
	}
	return out, metadata.Success
}

func (vd *VulkanDevice) SurfacePresentModes() ([]metadata.PresentMode, metadata.Result) {
	var count uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(vd.PhysicalDevice, vd.Surface, &count, nil); res != vk.Success {
		return nil, toResult(res)
	}
	modes := make([]vk.PresentMode, count)
	if count > 0 {
		if res := vk.GetPhysicalDeviceSurfacePresentModes(vd.PhysicalDevice, vd.Surface, &count, modes); res != vk.Success {
			return nil, toResult(res)
		}
	}
	out := make([]metadata.PresentMode, len(modes))
	for i, m := range modes {
		out[i] = metadata.PresentMode(m)
	}
	return out, metadata.Success
}

func (vd *VulkanDevice) FormatSupportsColorAttachment(format metadata.Format) bool {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(vd.PhysicalDevice, vk.Format(format), &props)
	props.Deref()
	flags := vk.FormatFeatureFlags(vk.FormatFeatureColorAttachmentBit)
	return props.OptimalTilingFeatures&flags == flags
}

// compositeAlpha returns the first supported mode, opaque preferred.
func compositeAlpha(supported vk.CompositeAlphaFlags) vk.CompositeAlphaFlagBits {
	for _, bit := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if supported&vk.CompositeAlphaFlags(bit) != 0 {
			return bit
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

func (vd *VulkanDevice) CreateSwapchain(desc *metadata.SwapchainDesc) (metadata.Swapchain, metadata.Result) {
	caps, res := vd.surfaceCapabilities()
	if res != vk.Success {
		return 0, toResult(res)
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          vd.Surface,
		MinImageCount:    desc.MinImageCount,
		ImageFormat:      vk.Format(desc.Format),
		ImageColorSpace:  vk.ColorSpace(desc.ColorSpace),
		ImageExtent:      fromExtent(desc.Extent),
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(desc.Usage),
		PreTransform:     vk.SurfaceTransformFlagBits(desc.PreTransform),
		CompositeAlpha:   compositeAlpha(caps.SupportedCompositeAlpha),
		PresentMode:      vk.PresentMode(desc.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}
	if vd.GraphicsQueueIndex != vd.PresentQueueIndex {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{vd.GraphicsQueueIndex, vd.PresentQueueIndex}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(vd.LogicalDevice, &createInfo, vd.allocator, &handle); res != vk.Success {
		return 0, toResult(res)
	}
	var id uint64
	vd.locks.SafeCall(SwapchainManagement, func() {
		id = vd.swapchains.put(&swapchainEntry{handle: handle})
	})
	return metadata.Swapchain(id), metadata.Success
}

func (vd *VulkanDevice) DestroySwapchain(swapchain metadata.Swapchain) {
	var entry *swapchainEntry
	var ok bool
	vd.locks.SafeCall(SwapchainManagement, func() {
		entry, ok = vd.swapchains.remove(uint64(swapchain))
		if ok {
			for _, img := range entry.images {
				vd.images.remove(img)
			}
		}
	})
	if !ok {
		core.LogWarn("DestroySwapchain: unknown swapchain %d", swapchain)
		return
	}
	vk.DestroySwapchain(vd.LogicalDevice, entry.handle, vd.allocator)
}

func (vd *VulkanDevice) SwapchainImages(swapchain metadata.Swapchain) ([]metadata.Image, metadata.Result) {
	var entry *swapchainEntry
	var ok bool
	vd.locks.SafeCall(SwapchainManagement, func() {
		entry, ok = vd.swapchains.get(uint64(swapchain))
	})
	if !ok {
		return nil, metadata.ErrorValidationFailed
	}

	if entry.images == nil {
		var count uint32
		if res := vk.GetSwapchainImages(vd.LogicalDevice, entry.handle, &count, nil); res != vk.Success {
			return nil, toResult(res)
		}
		images := make([]vk.Image, count)
		if res := vk.GetSwapchainImages(vd.LogicalDevice, entry.handle, &count, images); res != vk.Success {
			return nil, toResult(res)
		}
		vd.locks.SafeCall(SwapchainManagement, func() {
			entry.images = make([]uint64, len(images))
			for i, img := range images {
				entry.images[i] = vd.images.put(img)
			}
		})
	}

	out := make([]metadata.Image, len(entry.images))
	for i, id := range entry.images {
		out[i] = metadata.Image(id)
	}
	return out, metadata.Success
}

func (vd *VulkanDevice) CreateImageView(image metadata.Image, format metadata.Format) (metadata.ImageView, metadata.Result) {
	var img vk.Image
	var ok bool
	vd.locks.SafeCall(SwapchainManagement, func() {
		img, ok = vd.images.get(uint64(image))
	})
	if !ok {
		return 0, metadata.ErrorValidationFailed
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType2d,
		Format:   vk.Format(format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if res := vk.CreateImageView(vd.LogicalDevice, &viewInfo, vd.allocator, &view); res != vk.Success {
		return 0, toResult(res)
	}
	var id uint64
	vd.locks.SafeCall(SwapchainManagement, func() {
		id = vd.views.put(view)
	})
	return metadata.ImageView(id), metadata.Success
}

func (vd *VulkanDevice) DestroyImageView(view metadata.ImageView) {
	var v vk.ImageView
	var ok bool
	vd.locks.SafeCall(SwapchainManagement, func() {
		v, ok = vd.views.remove(uint64(view))
	})
	if !ok {
		core.LogWarn("DestroyImageView: unknown view %d", view)
		return
	}
	vk.DestroyImageView(vd.LogicalDevice, v, vd.allocator)
}
