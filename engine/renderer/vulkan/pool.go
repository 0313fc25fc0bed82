package vulkan

import (
	"sync"
	"sync/atomic"

	vk "github.com/goki/vulkan"
)

type LockGroup string

const (
	SwapchainManagement       LockGroup = "swapchain_management"
	RenderpassManagement      LockGroup = "renderpass_management"
	CommandBufferManagement   LockGroup = "command_buffer_management"
	SynchronizationManagement LockGroup = "synchronization_management"
)

// VulkanLockPool hands out one mutex per object group and one per queue
// family. VkQueue access must be externally synchronized.
type VulkanLockPool struct {
	mu           sync.Mutex
	locks        map[LockGroup]*sync.Mutex
	queueMutexes map[uint32]*sync.Mutex
}

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		locks:        make(map[LockGroup]*sync.Mutex),
		queueMutexes: make(map[uint32]*sync.Mutex),
	}
}

func (vs *VulkanLockPool) lock(group LockGroup) *sync.Mutex {
	vs.mu.Lock()
	l, ok := vs.locks[group]
	if !ok {
		l = &sync.Mutex{}
		vs.locks[group] = l
	}
	vs.mu.Unlock()
	l.Lock()
	return l
}

func (vs *VulkanLockPool) SafeCall(group LockGroup, fn func()) {
	l := vs.lock(group)
	defer l.Unlock()
	fn()
}

func (vs *VulkanLockPool) SetQueueFamily(index uint32) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	if _, ok := vs.queueMutexes[index]; !ok {
		vs.queueMutexes[index] = &sync.Mutex{}
	}
}

func (vs *VulkanLockPool) SafeQueueCall(queueFamilyIndex uint32, fn func() vk.Result) vk.Result {
	vs.mu.Lock()
	l, ok := vs.queueMutexes[queueFamilyIndex]
	if !ok {
		l = &sync.Mutex{}
		vs.queueMutexes[queueFamilyIndex] = l
	}
	vs.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn()
}

// handleTable maps the opaque ids handed to the renderer onto Vulkan handles.
// Ids are never reused, so a stale id fails the lookup instead of aliasing a
// newer object.
type handleTable[T any] struct {
	next    *uint64
	entries map[uint64]T
}

func newHandleTable[T any](next *uint64) handleTable[T] {
	return handleTable[T]{next: next, entries: make(map[uint64]T)}
}

// put stores v under a fresh id. The counter is shared by every table of a
// device while the maps sit under their own lock groups, hence the atomic.
func (ht handleTable[T]) put(v T) uint64 {
	id := atomic.AddUint64(ht.next, 1)
	ht.entries[id] = v
	return id
}

func (ht handleTable[T]) get(id uint64) (T, bool) {
	v, ok := ht.entries[id]
	return v, ok
}

func (ht handleTable[T]) remove(id uint64) (T, bool) {
	v, ok := ht.entries[id]
	if ok {
		delete(ht.entries, id)
	}
	return v, ok
}

func (ht handleTable[T]) len() int {
	return len(ht.entries)
}
