package vulkan

import (
	"time"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

func (vd *VulkanDevice) fence(f metadata.Fence) (vk.Fence, bool) {
	var handle vk.Fence
	var ok bool
	vd.locks.SafeCall(SynchronizationManagement, func() {
		handle, ok = vd.fences.get(uint64(f))
	})
	return handle, ok
}

func (vd *VulkanDevice) semaphore(s metadata.Semaphore) (vk.Semaphore, bool) {
	if s == 0 {
		return vk.NullSemaphore, true
	}
	var handle vk.Semaphore
	var ok bool
	vd.locks.SafeCall(SynchronizationManagement, func() {
		handle, ok = vd.semaphores.get(uint64(s))
	})
	return handle, ok
}

func (vd *VulkanDevice) semaphoreList(ids []metadata.Semaphore) ([]vk.Semaphore, bool) {
	out := make([]vk.Semaphore, len(ids))
	for i, id := range ids {
		s, ok := vd.semaphore(id)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

func (vd *VulkanDevice) CreateFence(signaled bool) (metadata.Fence, metadata.Result) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	// A signaled fence lets the first wait return immediately.
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var handle vk.Fence
	if res := vk.CreateFence(vd.LogicalDevice, &fenceCreateInfo, vd.allocator, &handle); res != vk.Success {
		return 0, toResult(res)
	}
	var id uint64
	vd.locks.SafeCall(SynchronizationManagement, func() {
		id = vd.fences.put(handle)
	})
	return metadata.Fence(id), metadata.Success
}

func (vd *VulkanDevice) DestroyFence(fence metadata.Fence) {
	var handle vk.Fence
	var ok bool
	vd.locks.SafeCall(SynchronizationManagement, func() {
		handle, ok = vd.fences.remove(uint64(fence))
	})
	if !ok {
		core.LogWarn("DestroyFence: unknown fence %d", fence)
		return
	}
	vk.DestroyFence(vd.LogicalDevice, handle, vd.allocator)
}

func (vd *VulkanDevice) WaitForFence(fence metadata.Fence, timeout time.Duration) metadata.Result {
	handle, ok := vd.fence(fence)
	if !ok {
		return metadata.ErrorValidationFailed
	}
	return toResult(vk.WaitForFences(vd.LogicalDevice, 1, []vk.Fence{handle}, vk.True, timeoutNanos(timeout)))
}

func (vd *VulkanDevice) ResetFence(fence metadata.Fence) metadata.Result {
	handle, ok := vd.fence(fence)
	if !ok {
		return metadata.ErrorValidationFailed
	}
	return toResult(vk.ResetFences(vd.LogicalDevice, 1, []vk.Fence{handle}))
}

func (vd *VulkanDevice) CreateSemaphore() (metadata.Semaphore, metadata.Result) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var handle vk.Semaphore
	if res := vk.CreateSemaphore(vd.LogicalDevice, &semaphoreCreateInfo, vd.allocator, &handle); res != vk.Success {
		return 0, toResult(res)
	}
	var id uint64
	vd.locks.SafeCall(SynchronizationManagement, func() {
		id = vd.semaphores.put(handle)
	})
	return metadata.Semaphore(id), metadata.Success
}

func (vd *VulkanDevice) DestroySemaphore(semaphore metadata.Semaphore) {
	var handle vk.Semaphore
	var ok bool
	vd.locks.SafeCall(SynchronizationManagement, func() {
		handle, ok = vd.semaphores.remove(uint64(semaphore))
	})
	if !ok {
		core.LogWarn("DestroySemaphore: unknown semaphore %d", semaphore)
		return
	}
	vk.DestroySemaphore(vd.LogicalDevice, handle, vd.allocator)
}
