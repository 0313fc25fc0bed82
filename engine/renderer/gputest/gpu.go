// Package gputest provides an in-memory GPU that records every call the
// renderer makes and checks the Vulkan usage rules the frame protocol relies
// on: semaphores are signaled and waited in pairs, fences are only reset once
// signaled, command buffers are never reset or recorded while in flight and
// render passes are properly nested.
//
// Submitted work completes when its fence is waited on or the device is
// waited idle, which is the latest point a real GPU could finish it.
package gputest

import (
	"fmt"
	"sync"
	"time"

	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

type Op string

const (
	OpCreateSwapchain       Op = "CreateSwapchain"
	OpDestroySwapchain      Op = "DestroySwapchain"
	OpCreateImageView       Op = "CreateImageView"
	OpDestroyImageView      Op = "DestroyImageView"
	OpCreateRenderPass      Op = "CreateRenderPass"
	OpDestroyRenderPass     Op = "DestroyRenderPass"
	OpCreateFramebuffer     Op = "CreateFramebuffer"
	OpDestroyFramebuffer    Op = "DestroyFramebuffer"
	OpCreateCommandPool     Op = "CreateCommandPool"
	OpDestroyCommandPool    Op = "DestroyCommandPool"
	OpAllocateCommandBuffer Op = "AllocateCommandBuffer"
	OpResetCommandBuffer    Op = "ResetCommandBuffer"
	OpBeginCommandBuffer    Op = "BeginCommandBuffer"
	OpEndCommandBuffer      Op = "EndCommandBuffer"
	OpBeginRenderPass       Op = "CmdBeginRenderPass"
	OpEndRenderPass         Op = "CmdEndRenderPass"
	OpClearRects            Op = "CmdClearRects"
	OpCreateFence           Op = "CreateFence"
	OpDestroyFence          Op = "DestroyFence"
	OpWaitForFence          Op = "WaitForFence"
	OpResetFence            Op = "ResetFence"
	OpCreateSemaphore       Op = "CreateSemaphore"
	OpDestroySemaphore      Op = "DestroySemaphore"
	OpAcquireNextImage      Op = "AcquireNextImage"
	OpQueueSubmit           Op = "QueueSubmit"
	OpQueuePresent          Op = "QueuePresent"
	OpWaitIdle              Op = "WaitIdle"
	OpShutdown              Op = "Shutdown"
)

// Call is one entry of the call log. Handle is the main object the call acted
// on, Index the image index for acquire and present.
type Call struct {
	Op     Op
	Handle uint64
	Index  uint32
	Result metadata.Result
}

// Command is one recorded command of a command buffer.
type Command struct {
	Op          Op
	RenderPass  metadata.RenderPass
	Framebuffer metadata.Framebuffer
	Area        metadata.Rect2D
	Color       metadata.ClearColor
	Rects       []metadata.Rect2D
}

type cmdState int

const (
	cmdInitial cmdState = iota
	cmdRecording
	cmdExecutable
	cmdPending
)

type commandBuffer struct {
	pool     metadata.CommandPool
	state    cmdState
	inPass   bool
	commands []Command
	// Fence of the submission currently executing this buffer.
	fence metadata.Fence
}

type fence struct {
	signaled bool
	// Command buffers of the submission that will signal the fence.
	pending []metadata.CommandBuffer
}

type swapchain struct {
	desc     metadata.SwapchainDesc
	images   []metadata.Image
	acquired []bool
	next     uint32
}

// GPU is a fake metadata.GPU. The exported fields configure what the surface
// reports and which failures are injected; set them before handing the GPU to
// the renderer.
type GPU struct {
	Caps         metadata.SurfaceCapabilities
	Formats      []metadata.SurfaceFormat
	PresentModes []metadata.PresentMode

	// Formats reported as unusable for color attachments.
	UnsupportedAttachmentFormats map[metadata.Format]bool

	// Injected results, keyed by the 0-based number of the call of that kind.
	AcquireResults   map[int]metadata.Result
	SubmitResults    map[int]metadata.Result
	PresentResults   map[int]metadata.Result
	WaitFenceResults map[int]metadata.Result

	// Injected results for creation calls, keyed by Op.
	CreateResults map[Op]metadata.Result

	mu           sync.Mutex
	nextHandle   uint64
	calls        []Call
	counts       map[Op]int
	violations   []string
	live         map[uint64]Op
	swapchains   map[metadata.Swapchain]*swapchain
	renderPasses map[metadata.RenderPass]metadata.RenderPassDesc
	framebuffers map[metadata.Framebuffer]metadata.FramebufferDesc
	pools        map[metadata.CommandPool]bool
	buffers      map[metadata.CommandBuffer]*commandBuffer
	fences       map[metadata.Fence]*fence
	semaphores   map[metadata.Semaphore]bool
	acquired     []uint32
	presented    []uint32
}

// New returns a GPU backing a two image FIFO swapchain of 800x600 in
// B8G8R8A8_UNORM.
func New() *GPU {
	return &GPU{
		Caps: metadata.SurfaceCapabilities{
			MinImageCount:    2,
			MaxImageCount:    8,
			CurrentExtent:    metadata.Extent2D{Width: 800, Height: 600},
			MinImageExtent:   metadata.Extent2D{Width: 1, Height: 1},
			MaxImageExtent:   metadata.Extent2D{Width: 4096, Height: 4096},
			CurrentTransform: metadata.SurfaceTransformIdentity,
			SupportedUsage:   metadata.ImageUsageColorAttachment | metadata.ImageUsageTransferDst,
		},
		Formats: []metadata.SurfaceFormat{
			{Format: metadata.FormatB8G8R8A8Unorm, ColorSpace: metadata.ColorSpaceSrgbNonlinear},
			{Format: metadata.FormatB8G8R8A8Srgb, ColorSpace: metadata.ColorSpaceSrgbNonlinear},
		},
		PresentModes:                 []metadata.PresentMode{metadata.PresentModeFifo, metadata.PresentModeMailbox},
		UnsupportedAttachmentFormats: map[metadata.Format]bool{},
		AcquireResults:               map[int]metadata.Result{},
		SubmitResults:                map[int]metadata.Result{},
		PresentResults:               map[int]metadata.Result{},
		WaitFenceResults:             map[int]metadata.Result{},
		CreateResults:                map[Op]metadata.Result{},

		counts:       map[Op]int{},
		live:         map[uint64]Op{},
		swapchains:   map[metadata.Swapchain]*swapchain{},
		renderPasses: map[metadata.RenderPass]metadata.RenderPassDesc{},
		framebuffers: map[metadata.Framebuffer]metadata.FramebufferDesc{},
		pools:        map[metadata.CommandPool]bool{},
		buffers:      map[metadata.CommandBuffer]*commandBuffer{},
		fences:       map[metadata.Fence]*fence{},
		semaphores:   map[metadata.Semaphore]bool{},
	}
}

// record logs a call and returns how many calls of the same kind came before it.
func (g *GPU) record(op Op, handle uint64, index uint32, res metadata.Result) int {
	n := g.counts[op]
	g.counts[op] = n + 1
	g.calls = append(g.calls, Call{Op: op, Handle: handle, Index: index, Result: res})
	return n
}

func (g *GPU) violate(format string, args ...interface{}) {
	g.violations = append(g.violations, fmt.Sprintf(format, args...))
}

func (g *GPU) create(op Op) (uint64, metadata.Result) {
	if res, ok := g.CreateResults[op]; ok && res != metadata.Success {
		g.record(op, 0, 0, res)
		return 0, res
	}
	g.nextHandle++
	h := g.nextHandle
	g.live[h] = op
	g.record(op, h, 0, metadata.Success)
	return h, metadata.Success
}

func (g *GPU) destroy(op Op, h uint64) {
	g.record(op, h, 0, metadata.Success)
	if h == 0 {
		return
	}
	if _, ok := g.live[h]; !ok {
		g.violate("%s on unknown or destroyed handle %d", op, h)
		return
	}
	delete(g.live, h)
}

// Calls returns a copy of the call log.
func (g *GPU) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}

// Ops returns the call log restricted to the given operations, in order.
func (g *GPU) Ops(ops ...Op) []Op {
	g.mu.Lock()
	defer g.mu.Unlock()
	want := map[Op]bool{}
	for _, op := range ops {
		want[op] = true
	}
	var out []Op
	for _, c := range g.calls {
		if want[c.Op] {
			out = append(out, c.Op)
		}
	}
	return out
}

func (g *GPU) Count(op Op) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts[op]
}

// Violations lists every usage rule the caller broke.
func (g *GPU) Violations() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.violations...)
}

// LiveObjects counts objects created and not destroyed yet. Command buffers are
// freed with their pool and not counted.
func (g *GPU) LiveObjects() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, op := range g.live {
		if op != OpAllocateCommandBuffer {
			n++
		}
	}
	return n
}

// AcquiredIndices lists the image index returned by every successful acquire.
func (g *GPU) AcquiredIndices() []uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]uint32(nil), g.acquired...)
}

func (g *GPU) PresentedIndices() []uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]uint32(nil), g.presented...)
}

// Commands returns what is currently recorded in cmd.
func (g *GPU) Commands(cmd metadata.CommandBuffer) []Command {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cb, ok := g.buffers[cmd]; ok {
		return append([]Command(nil), cb.commands...)
	}
	return nil
}

// SemaphoreSignaled reports the current state of s.
func (g *GPU) SemaphoreSignaled(s metadata.Semaphore) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.semaphores[s]
}

func (g *GPU) FenceSignaled(f metadata.Fence) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if fs, ok := g.fences[f]; ok {
		return fs.signaled
	}
	return false
}

// RenderPassDesc returns the description pass was created with.
func (g *GPU) RenderPassDesc(pass metadata.RenderPass) (metadata.RenderPassDesc, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	desc, ok := g.renderPasses[pass]
	return desc, ok
}

func (g *GPU) FramebufferDesc(fb metadata.Framebuffer) (metadata.FramebufferDesc, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	desc, ok := g.framebuffers[fb]
	return desc, ok
}

func (g *GPU) SwapchainDesc(sc metadata.Swapchain) (metadata.SwapchainDesc, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.swapchains[sc]; ok {
		return s.desc, true
	}
	return metadata.SwapchainDesc{}, false
}

// GPU and Shutdown make the fake usable as a renderer backend.
func (g *GPU) GPU() metadata.GPU {
	return g
}

func (g *GPU) Shutdown() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(OpShutdown, 0, 0, metadata.Success)
}

func (g *GPU) SurfaceCapabilities() (metadata.SurfaceCapabilities, metadata.Result) {
	return g.Caps, metadata.Success
}

func (g *GPU) SurfaceFormats() ([]metadata.SurfaceFormat, metadata.Result) {
	return g.Formats, metadata.Success
}

func (g *GPU) SurfacePresentModes() ([]metadata.PresentMode, metadata.Result) {
	return g.PresentModes, metadata.Success
}

func (g *GPU) FormatSupportsColorAttachment(format metadata.Format) bool {
	return !g.UnsupportedAttachmentFormats[format]
}

func (g *GPU) CreateSwapchain(desc *metadata.SwapchainDesc) (metadata.Swapchain, metadata.Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if desc.MinImageCount < g.Caps.MinImageCount {
		g.violate("swapchain with %d images, surface minimum is %d", desc.MinImageCount, g.Caps.MinImageCount)
	}
	if desc.Usage&g.Caps.SupportedUsage != desc.Usage {
		g.violate("swapchain usage %#x not supported", desc.Usage)
	}
	h, res := g.create(OpCreateSwapchain)
	if res != metadata.Success {
		return 0, res
	}
	sc := &swapchain{desc: *desc}
	for i := uint32(0); i < desc.MinImageCount; i++ {
		g.nextHandle++
		sc.images = append(sc.images, metadata.Image(g.nextHandle))
	}
	sc.acquired = make([]bool, len(sc.images))
	g.swapchains[metadata.Swapchain(h)] = sc
	return metadata.Swapchain(h), metadata.Success
}

func (g *GPU) DestroySwapchain(s metadata.Swapchain) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.destroy(OpDestroySwapchain, uint64(s))
	delete(g.swapchains, s)
}

func (g *GPU) SwapchainImages(s metadata.Swapchain) ([]metadata.Image, metadata.Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	sc, ok := g.swapchains[s]
	if !ok {
		g.violate("images of unknown swapchain %d", s)
		return nil, metadata.ErrorUnknown
	}
	return append([]metadata.Image(nil), sc.images...), metadata.Success
}

func (g *GPU) CreateImageView(image metadata.Image, format metadata.Format) (metadata.ImageView, metadata.Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, res := g.create(OpCreateImageView)
	return metadata.ImageView(h), res
}

func (g *GPU) DestroyImageView(v metadata.ImageView) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.destroy(OpDestroyImageView, uint64(v))
}

func (g *GPU) CreateRenderPass(desc *metadata.RenderPassDesc) (metadata.RenderPass, metadata.Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, res := g.create(OpCreateRenderPass)
	if res != metadata.Success {
		return 0, res
	}
	cp := *desc
	cp.Attachments = append([]metadata.AttachmentDesc(nil), desc.Attachments...)
	cp.Dependencies = append([]metadata.SubpassDependency(nil), desc.Dependencies...)
	g.renderPasses[metadata.RenderPass(h)] = cp
	return metadata.RenderPass(h), metadata.Success
}

func (g *GPU) DestroyRenderPass(p metadata.RenderPass) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.destroy(OpDestroyRenderPass, uint64(p))
}

func (g *GPU) CreateFramebuffer(desc *metadata.FramebufferDesc) (metadata.Framebuffer, metadata.Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.renderPasses[desc.RenderPass]; !ok {
		g.violate("framebuffer for unknown render pass %d", desc.RenderPass)
	}
	h, res := g.create(OpCreateFramebuffer)
	if res != metadata.Success {
		return 0, res
	}
	cp := *desc
	cp.Attachments = append([]metadata.ImageView(nil), desc.Attachments...)
	g.framebuffers[metadata.Framebuffer(h)] = cp
	return metadata.Framebuffer(h), metadata.Success
}

func (g *GPU) DestroyFramebuffer(f metadata.Framebuffer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.destroy(OpDestroyFramebuffer, uint64(f))
}

func (g *GPU) CreateCommandPool() (metadata.CommandPool, metadata.Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, res := g.create(OpCreateCommandPool)
	if res == metadata.Success {
		g.pools[metadata.CommandPool(h)] = true
	}
	return metadata.CommandPool(h), res
}

func (g *GPU) DestroyCommandPool(p metadata.CommandPool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for h, cb := range g.buffers {
		if cb.pool != p {
			continue
		}
		if cb.state == cmdPending {
			g.violate("command pool destroyed while buffer %d is in flight", h)
		}
		delete(g.live, uint64(h))
		delete(g.buffers, h)
	}
	delete(g.pools, p)
	g.destroy(OpDestroyCommandPool, uint64(p))
}

func (g *GPU) AllocateCommandBuffer(pool metadata.CommandPool) (metadata.CommandBuffer, metadata.Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.pools[pool] {
		g.violate("allocation from unknown command pool %d", pool)
	}
	h, res := g.create(OpAllocateCommandBuffer)
	if res == metadata.Success {
		g.buffers[metadata.CommandBuffer(h)] = &commandBuffer{pool: pool}
	}
	return metadata.CommandBuffer(h), res
}

// buffer looks cmd up and flags buffers that are in flight, which must not be
// touched by op.
func (g *GPU) buffer(op Op, cmd metadata.CommandBuffer) (*commandBuffer, bool) {
	cb, ok := g.buffers[cmd]
	if !ok {
		g.violate("%s on unknown command buffer %d", op, cmd)
		return nil, false
	}
	if cb.state == cmdPending {
		g.violate("%s on command buffer %d while it is in flight", op, cmd)
		return cb, false
	}
	return cb, true
}

func (g *GPU) ResetCommandBuffer(cmd metadata.CommandBuffer) metadata.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	cb, ok := g.buffer(OpResetCommandBuffer, cmd)
	if !ok {
		g.record(OpResetCommandBuffer, uint64(cmd), 0, metadata.ErrorValidationFailed)
		return metadata.ErrorValidationFailed
	}
	g.record(OpResetCommandBuffer, uint64(cmd), 0, metadata.Success)
	cb.state = cmdInitial
	cb.inPass = false
	cb.commands = nil
	return metadata.Success
}

func (g *GPU) BeginCommandBuffer(cmd metadata.CommandBuffer, usage metadata.CommandBufferUsage) metadata.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	cb, ok := g.buffer(OpBeginCommandBuffer, cmd)
	if !ok {
		g.record(OpBeginCommandBuffer, uint64(cmd), 0, metadata.ErrorValidationFailed)
		return metadata.ErrorValidationFailed
	}
	if cb.state == cmdRecording {
		g.violate("begin on command buffer %d that is already recording", cmd)
	}
	g.record(OpBeginCommandBuffer, uint64(cmd), 0, metadata.Success)
	// Beginning implicitly resets the buffer.
	cb.state = cmdRecording
	cb.inPass = false
	cb.commands = nil
	return metadata.Success
}

func (g *GPU) EndCommandBuffer(cmd metadata.CommandBuffer) metadata.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	cb, ok := g.buffer(OpEndCommandBuffer, cmd)
	if !ok {
		g.record(OpEndCommandBuffer, uint64(cmd), 0, metadata.ErrorValidationFailed)
		return metadata.ErrorValidationFailed
	}
	g.record(OpEndCommandBuffer, uint64(cmd), 0, metadata.Success)
	if cb.state != cmdRecording {
		g.violate("end on command buffer %d that is not recording", cmd)
	}
	if cb.inPass {
		g.violate("end on command buffer %d inside a render pass", cmd)
	}
	cb.state = cmdExecutable
	return metadata.Success
}

// recording returns cb when commands may be recorded into it.
func (g *GPU) recording(op Op, cmd metadata.CommandBuffer) *commandBuffer {
	g.record(op, uint64(cmd), 0, metadata.Success)
	cb, ok := g.buffer(op, cmd)
	if !ok {
		return nil
	}
	if cb.state != cmdRecording {
		g.violate("%s on command buffer %d that is not recording", op, cmd)
		return nil
	}
	return cb
}

func (g *GPU) CmdBeginRenderPass(cmd metadata.CommandBuffer, begin *metadata.RenderPassBegin) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cb := g.recording(OpBeginRenderPass, cmd)
	if cb == nil {
		return
	}
	if cb.inPass {
		g.violate("render pass begun twice in command buffer %d", cmd)
	}
	if _, ok := g.renderPasses[begin.RenderPass]; !ok {
		g.violate("begin of unknown render pass %d", begin.RenderPass)
	}
	if fb, ok := g.framebuffers[begin.Framebuffer]; !ok {
		g.violate("begin with unknown framebuffer %d", begin.Framebuffer)
	} else if fb.RenderPass != begin.RenderPass {
		g.violate("framebuffer %d was not created for render pass %d", begin.Framebuffer, begin.RenderPass)
	}
	cb.inPass = true
	cb.commands = append(cb.commands, Command{
		Op:          OpBeginRenderPass,
		RenderPass:  begin.RenderPass,
		Framebuffer: begin.Framebuffer,
		Area:        begin.RenderArea,
		Color:       begin.ClearColor,
	})
}

func (g *GPU) CmdEndRenderPass(cmd metadata.CommandBuffer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cb := g.recording(OpEndRenderPass, cmd)
	if cb == nil {
		return
	}
	if !cb.inPass {
		g.violate("render pass ended outside a render pass in command buffer %d", cmd)
	}
	cb.inPass = false
	cb.commands = append(cb.commands, Command{Op: OpEndRenderPass})
}

func (g *GPU) CmdClearRects(cmd metadata.CommandBuffer, color metadata.ClearColor, rects []metadata.Rect2D) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cb := g.recording(OpClearRects, cmd)
	if cb == nil {
		return
	}
	if !cb.inPass {
		g.violate("clear attachments outside a render pass in command buffer %d", cmd)
	}
	cb.commands = append(cb.commands, Command{
		Op:    OpClearRects,
		Color: color,
		Rects: append([]metadata.Rect2D(nil), rects...),
	})
}

func (g *GPU) CreateFence(signaled bool) (metadata.Fence, metadata.Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, res := g.create(OpCreateFence)
	if res == metadata.Success {
		g.fences[metadata.Fence(h)] = &fence{signaled: signaled}
	}
	return metadata.Fence(h), res
}

func (g *GPU) DestroyFence(f metadata.Fence) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if fs, ok := g.fences[f]; ok && len(fs.pending) > 0 {
		g.violate("fence %d destroyed while its submission is in flight", f)
	}
	delete(g.fences, f)
	g.destroy(OpDestroyFence, uint64(f))
}

// complete finishes the submission guarded by f.
func (g *GPU) complete(f *fence) {
	for _, h := range f.pending {
		if cb, ok := g.buffers[h]; ok {
			cb.state = cmdExecutable
			cb.fence = 0
		}
	}
	f.pending = nil
	f.signaled = true
}

func (g *GPU) WaitForFence(f metadata.Fence, timeout time.Duration) metadata.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.counts[OpWaitForFence]
	if res, ok := g.WaitFenceResults[n]; ok {
		g.record(OpWaitForFence, uint64(f), 0, res)
		return res
	}
	fs, ok := g.fences[f]
	if !ok {
		g.violate("wait on unknown fence %d", f)
		g.record(OpWaitForFence, uint64(f), 0, metadata.ErrorUnknown)
		return metadata.ErrorUnknown
	}
	switch {
	case fs.signaled:
	case len(fs.pending) > 0:
		g.complete(fs)
	default:
		// Nothing will ever signal it: a real wait would hang.
		g.violate("wait on fence %d that no submission will signal", f)
		g.record(OpWaitForFence, uint64(f), 0, metadata.Timeout)
		return metadata.Timeout
	}
	g.record(OpWaitForFence, uint64(f), 0, metadata.Success)
	return metadata.Success
}

func (g *GPU) ResetFence(f metadata.Fence) metadata.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(OpResetFence, uint64(f), 0, metadata.Success)
	fs, ok := g.fences[f]
	if !ok {
		g.violate("reset of unknown fence %d", f)
		return metadata.ErrorUnknown
	}
	if len(fs.pending) > 0 {
		g.violate("reset of fence %d while its submission is in flight", f)
	}
	fs.signaled = false
	return metadata.Success
}

func (g *GPU) CreateSemaphore() (metadata.Semaphore, metadata.Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, res := g.create(OpCreateSemaphore)
	if res == metadata.Success {
		g.semaphores[metadata.Semaphore(h)] = false
	}
	return metadata.Semaphore(h), res
}

func (g *GPU) DestroySemaphore(s metadata.Semaphore) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.semaphores, s)
	g.destroy(OpDestroySemaphore, uint64(s))
}

func (g *GPU) signal(op Op, s metadata.Semaphore) {
	signaled, ok := g.semaphores[s]
	if !ok {
		g.violate("%s signals unknown semaphore %d", op, s)
		return
	}
	if signaled {
		g.violate("%s signals semaphore %d that is already signaled", op, s)
	}
	g.semaphores[s] = true
}

func (g *GPU) consume(op Op, s metadata.Semaphore) {
	signaled, ok := g.semaphores[s]
	if !ok {
		g.violate("%s waits on unknown semaphore %d", op, s)
		return
	}
	if !signaled {
		g.violate("%s waits on semaphore %d that nothing signaled", op, s)
	}
	g.semaphores[s] = false
}

func (g *GPU) AcquireNextImage(s metadata.Swapchain, timeout time.Duration, signal metadata.Semaphore) (uint32, metadata.Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.counts[OpAcquireNextImage]
	sc, ok := g.swapchains[s]
	if !ok {
		g.violate("acquire from unknown swapchain %d", s)
		g.record(OpAcquireNextImage, uint64(s), 0, metadata.ErrorUnknown)
		return 0, metadata.ErrorUnknown
	}
	if res, ok := g.AcquireResults[n]; ok && res != metadata.Success {
		g.record(OpAcquireNextImage, uint64(s), 0, res)
		// Suboptimal still hands out an image and signals.
		if res != metadata.Suboptimal {
			return 0, res
		}
	}

	// Images are handed out round robin, skipping those not presented yet.
	count := uint32(len(sc.images))
	for i := uint32(0); i < count; i++ {
		index := (sc.next + i) % count
		if sc.acquired[index] {
			continue
		}
		sc.acquired[index] = true
		sc.next = (index + 1) % count
		g.signal(OpAcquireNextImage, signal)
		g.acquired = append(g.acquired, index)
		if res, ok := g.AcquireResults[n]; ok && res == metadata.Suboptimal {
			return index, metadata.Suboptimal
		}
		g.record(OpAcquireNextImage, uint64(s), index, metadata.Success)
		return index, metadata.Success
	}
	g.violate("acquire with every image of swapchain %d already acquired", s)
	g.record(OpAcquireNextImage, uint64(s), 0, metadata.Timeout)
	return 0, metadata.Timeout
}

func (g *GPU) QueueSubmit(submit *metadata.SubmitDesc) metadata.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.counts[OpQueueSubmit]
	if res, ok := g.SubmitResults[n]; ok && res != metadata.Success {
		g.record(OpQueueSubmit, uint64(submit.Fence), 0, res)
		return res
	}
	g.record(OpQueueSubmit, uint64(submit.Fence), 0, metadata.Success)

	if len(submit.WaitSemaphores) != len(submit.WaitStages) {
		g.violate("submit with %d wait semaphores and %d wait stages", len(submit.WaitSemaphores), len(submit.WaitStages))
	}
	for _, s := range submit.WaitSemaphores {
		g.consume(OpQueueSubmit, s)
	}
	for _, h := range submit.CommandBuffers {
		cb, ok := g.buffer(OpQueueSubmit, h)
		if !ok {
			continue
		}
		if cb.state != cmdExecutable {
			g.violate("submit of command buffer %d that is not executable", h)
		}
		cb.state = cmdPending
		cb.fence = submit.Fence
	}
	for _, s := range submit.SignalSemaphores {
		g.signal(OpQueueSubmit, s)
	}
	if submit.Fence != 0 {
		fs, ok := g.fences[submit.Fence]
		switch {
		case !ok:
			g.violate("submit signals unknown fence %d", submit.Fence)
		case fs.signaled || len(fs.pending) > 0:
			g.violate("submit signals fence %d that was not reset", submit.Fence)
		default:
			fs.pending = append([]metadata.CommandBuffer(nil), submit.CommandBuffers...)
		}
	}
	return metadata.Success
}

func (g *GPU) QueuePresent(present *metadata.PresentDesc) metadata.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.counts[OpQueuePresent]
	res := metadata.Success
	if r, ok := g.PresentResults[n]; ok {
		res = r
	}
	g.record(OpQueuePresent, uint64(present.Swapchain), present.ImageIndex, res)

	sc, ok := g.swapchains[present.Swapchain]
	if !ok {
		g.violate("present to unknown swapchain %d", present.Swapchain)
		return metadata.ErrorUnknown
	}
	if int(present.ImageIndex) >= len(sc.images) || !sc.acquired[present.ImageIndex] {
		g.violate("present of image %d that was not acquired", present.ImageIndex)
	} else {
		sc.acquired[present.ImageIndex] = false
	}
	// The present operation consumes its semaphores whatever the outcome.
	for _, s := range present.WaitSemaphores {
		g.consume(OpQueuePresent, s)
	}
	if res.IsSuccess() {
		g.presented = append(g.presented, present.ImageIndex)
	}
	return res
}

func (g *GPU) WaitIdle() metadata.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(OpWaitIdle, 0, 0, metadata.Success)
	for _, fs := range g.fences {
		if len(fs.pending) > 0 {
			g.complete(fs)
		}
	}
	return metadata.Success
}
