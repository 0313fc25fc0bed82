package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

type commandBufferEntry struct {
	handle vk.CommandBuffer
	pool   uint64
}

func (vd *VulkanDevice) commandBuffer(cmd metadata.CommandBuffer) (commandBufferEntry, bool) {
	var cb commandBufferEntry
	var ok bool
	vd.locks.SafeCall(CommandBufferManagement, func() {
		cb, ok = vd.commandBuffers.get(uint64(cmd))
	})
	if !ok {
		core.LogError("unknown command buffer %d", cmd)
	}
	return cb, ok
}

func (vd *VulkanDevice) CreateCommandPool() (metadata.CommandPool, metadata.Result) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: vd.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(vd.LogicalDevice, &poolCreateInfo, vd.allocator, &pool); res != vk.Success {
		return 0, toResult(res)
	}
	var id uint64
	vd.locks.SafeCall(CommandBufferManagement, func() {
		id = vd.commandPools.put(pool)
	})
	core.LogDebug("Graphics command pool created.")
	return metadata.CommandPool(id), metadata.Success
}

// DestroyCommandPool frees the pool and every buffer allocated from it.
func (vd *VulkanDevice) DestroyCommandPool(pool metadata.CommandPool) {
	var p vk.CommandPool
	var ok bool
	vd.locks.SafeCall(CommandBufferManagement, func() {
		p, ok = vd.commandPools.remove(uint64(pool))
		if !ok {
			return
		}
		for id, cb := range vd.commandBuffers.entries {
			if cb.pool == uint64(pool) {
				delete(vd.commandBuffers.entries, id)
			}
		}
	})
	if !ok {
		core.LogWarn("DestroyCommandPool: unknown pool %d", pool)
		return
	}
	vk.DestroyCommandPool(vd.LogicalDevice, p, vd.allocator)
}

func (vd *VulkanDevice) AllocateCommandBuffer(pool metadata.CommandPool) (metadata.CommandBuffer, metadata.Result) {
	var p vk.CommandPool
	var ok bool
	vd.locks.SafeCall(CommandBufferManagement, func() {
		p, ok = vd.commandPools.get(uint64(pool))
	})
	if !ok {
		return 0, metadata.ErrorValidationFailed
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	buffers := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(vd.LogicalDevice, &allocateInfo, buffers); res != vk.Success {
		return 0, toResult(res)
	}
	var id uint64
	vd.locks.SafeCall(CommandBufferManagement, func() {
		id = vd.commandBuffers.put(commandBufferEntry{handle: buffers[0], pool: uint64(pool)})
	})
	return metadata.CommandBuffer(id), metadata.Success
}

func (vd *VulkanDevice) ResetCommandBuffer(cmd metadata.CommandBuffer) metadata.Result {
	cb, ok := vd.commandBuffer(cmd)
	if !ok {
		return metadata.ErrorValidationFailed
	}
	return toResult(vk.ResetCommandBuffer(cb.handle, 0))
}

func (vd *VulkanDevice) BeginCommandBuffer(cmd metadata.CommandBuffer, usage metadata.CommandBufferUsage) metadata.Result {
	cb, ok := vd.commandBuffer(cmd)
	if !ok {
		return metadata.ErrorValidationFailed
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(usage),
	}
	return toResult(vk.BeginCommandBuffer(cb.handle, &beginInfo))
}

func (vd *VulkanDevice) EndCommandBuffer(cmd metadata.CommandBuffer) metadata.Result {
	cb, ok := vd.commandBuffer(cmd)
	if !ok {
		return metadata.ErrorValidationFailed
	}
	return toResult(vk.EndCommandBuffer(cb.handle))
}
