package renderer

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

// Fence tracks a GPU fence together with the last state the CPU observed.
type Fence struct {
	Handle     metadata.Fence
	IsSignaled bool
}

func newFence(ctx *Context, createSignaled bool) (*Fence, error) {
	handle, res := ctx.GPU.CreateFence(createSignaled)
	if res != metadata.Success {
		return nil, creationError("vkCreateFence", res)
	}
	// Make sure to signal the fence if required.
	return &Fence{Handle: handle, IsSignaled: createSignaled}, nil
}

// Wait blocks until the fence is signaled. It always asks the GPU, the
// mirrored state only spares redundant resets.
func (f *Fence) Wait(ctx *Context, timeout time.Duration) error {
	res := ctx.GPU.WaitForFence(f.Handle, timeout)
	switch res {
	case metadata.Success:
		f.IsSignaled = true
		return nil
	case metadata.Timeout:
		err := fmt.Errorf("%w: fence not signaled after %s", core.ErrDeviceHang, timeout)
		core.LogError("vk_fence_wait - %s", err)
		return err
	}
	return resultError("vkWaitForFences", res)
}

func (f *Fence) Reset(ctx *Context) error {
	if !f.IsSignaled {
		return nil
	}
	if res := ctx.GPU.ResetFence(f.Handle); res != metadata.Success {
		return resultError("vkResetFences", res)
	}
	f.IsSignaled = false
	return nil
}

func (f *Fence) Destroy(ctx *Context) {
	if f.Handle != 0 {
		ctx.GPU.DestroyFence(f.Handle)
		f.Handle = 0
	}
	f.IsSignaled = false
}

// SyncSet is the fence and semaphore pair guarding one frame in flight.
type SyncSet struct {
	ctx            *Context
	index          int
	fence          *Fence
	imageAcquired  metadata.Semaphore
	renderFinished metadata.Semaphore
}

func (s *SyncSet) Index() int {
	return s.index
}

func (s *SyncSet) Fence() *Fence {
	return s.fence
}

// WaitFence blocks until the GPU finished the last submission that used this set.
func (s *SyncSet) WaitFence() error {
	return s.fence.Wait(s.ctx, s.ctx.FenceTimeout())
}

// ResetFence arms the fence for the next submission.
func (s *SyncSet) ResetFence() error {
	return s.fence.Reset(s.ctx)
}

// WaitAndResetFence blocks until the previous submission of this set has
// completed and rearms the fence. The frame loop calls WaitFence and
// ResetFence separately so the reset only happens once an image was
// acquired; a failed acquire then leaves the fence signaled for shutdown.
func (s *SyncSet) WaitAndResetFence() error {
	if err := s.WaitFence(); err != nil {
		return err
	}
	return s.ResetFence()
}

// AcquireSemaphore is signaled when the acquired swapchain image may be written.
func (s *SyncSet) AcquireSemaphore() metadata.Semaphore {
	return s.imageAcquired
}

// FinishSemaphore is signaled when rendering into the image is complete.
func (s *SyncSet) FinishSemaphore() metadata.Semaphore {
	return s.renderFinished
}

func (s *SyncSet) destroy() {
	gpu := s.ctx.GPU
	if s.renderFinished != 0 {
		gpu.DestroySemaphore(s.renderFinished)
		s.renderFinished = 0
	}
	if s.imageAcquired != 0 {
		gpu.DestroySemaphore(s.imageAcquired)
		s.imageAcquired = 0
	}
	if s.fence != nil {
		s.fence.Destroy(s.ctx)
		s.fence = nil
	}
}

// FrameSync holds the sync sets cycled by the frame loop. Frame n uses set
// n % len(sets).
type FrameSync struct {
	ctx  *Context
	sets []*SyncSet
}

func NewFrameSync(ctx *Context, count int) (*FrameSync, error) {
	if count < 1 {
		count = 1
	}
	fs := &FrameSync{ctx: ctx, sets: make([]*SyncSet, 0, count)}
	for i := 0; i < count; i++ {
		set, err := newSyncSet(ctx, i)
		if err != nil {
			fs.Destroy()
			return nil, err
		}
		fs.sets = append(fs.sets, set)
	}
	core.LogDebug("created %d frame sync set(s)", count)
	return fs, nil
}

func newSyncSet(ctx *Context, index int) (*SyncSet, error) {
	set := &SyncSet{ctx: ctx, index: index}

	// Created signaled so the first frame does not block.
	fence, err := newFence(ctx, true)
	if err != nil {
		return nil, err
	}
	set.fence = fence

	var res metadata.Result
	if set.imageAcquired, res = ctx.GPU.CreateSemaphore(); res != metadata.Success {
		set.destroy()
		return nil, creationError("vkCreateSemaphore", res)
	}
	if set.renderFinished, res = ctx.GPU.CreateSemaphore(); res != metadata.Success {
		set.destroy()
		return nil, creationError("vkCreateSemaphore", res)
	}
	return set, nil
}

func (fs *FrameSync) Len() int {
	return len(fs.sets)
}

func (fs *FrameSync) Select(frameNumber uint64) *SyncSet {
	return fs.sets[frameNumber%uint64(len(fs.sets))]
}

func (fs *FrameSync) Destroy() {
	for i := len(fs.sets) - 1; i >= 0; i-- {
		fs.sets[i].destroy()
	}
	fs.sets = nil
}
