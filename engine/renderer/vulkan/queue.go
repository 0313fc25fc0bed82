package vulkan

import (
	"time"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

func (vd *VulkanDevice) AcquireNextImage(swapchain metadata.Swapchain, timeout time.Duration, signal metadata.Semaphore) (uint32, metadata.Result) {
	var entry *swapchainEntry
	var ok bool
	vd.locks.SafeCall(SwapchainManagement, func() {
		entry, ok = vd.swapchains.get(uint64(swapchain))
	})
	sem, semOK := vd.semaphore(signal)
	if !ok || !semOK {
		return 0, metadata.ErrorValidationFailed
	}

	var index uint32
	res := vk.AcquireNextImage(vd.LogicalDevice, entry.handle, timeoutNanos(timeout), sem, vk.NullFence, &index)
	return index, toResult(res)
}

func (vd *VulkanDevice) QueueSubmit(submit *metadata.SubmitDesc) metadata.Result {
	waits, ok := vd.semaphoreList(submit.WaitSemaphores)
	if !ok {
		return metadata.ErrorValidationFailed
	}
	signals, ok := vd.semaphoreList(submit.SignalSemaphores)
	if !ok {
		return metadata.ErrorValidationFailed
	}
	cmds := make([]vk.CommandBuffer, len(submit.CommandBuffers))
	for i, id := range submit.CommandBuffers {
		cb, found := vd.commandBuffer(id)
		if !found {
			return metadata.ErrorValidationFailed
		}
		cmds[i] = cb.handle
	}
	stages := make([]vk.PipelineStageFlags, len(submit.WaitStages))
	for i, s := range submit.WaitStages {
		stages[i] = vk.PipelineStageFlags(s)
	}
	fence := vk.NullFence
	if submit.Fence != 0 {
		f, found := vd.fence(submit.Fence)
		if !found {
			return metadata.ErrorValidationFailed
		}
		fence = f
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waits)),
		PWaitSemaphores:      waits,
		PWaitDstStageMask:    stages,
		CommandBufferCount:   uint32(len(cmds)),
		PCommandBuffers:      cmds,
		SignalSemaphoreCount: uint32(len(signals)),
		PSignalSemaphores:    signals,
	}
	return toResult(vd.locks.SafeQueueCall(vd.GraphicsQueueIndex, func() vk.Result {
		return vk.QueueSubmit(vd.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence)
	}))
}

func (vd *VulkanDevice) QueuePresent(present *metadata.PresentDesc) metadata.Result {
	waits, ok := vd.semaphoreList(present.WaitSemaphores)
	if !ok {
		return metadata.ErrorValidationFailed
	}
	var entry *swapchainEntry
	vd.locks.SafeCall(SwapchainManagement, func() {
		entry, ok = vd.swapchains.get(uint64(present.Swapchain))
	})
	if !ok {
		return metadata.ErrorValidationFailed
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(waits)),
		PWaitSemaphores:    waits,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{entry.handle},
		PImageIndices:      []uint32{present.ImageIndex},
	}
	return toResult(vd.locks.SafeQueueCall(vd.PresentQueueIndex, func() vk.Result {
		return vk.QueuePresent(vd.PresentQueue, &presentInfo)
	}))
}

func (vd *VulkanDevice) WaitIdle() metadata.Result {
	return toResult(vk.DeviceWaitIdle(vd.LogicalDevice))
}
