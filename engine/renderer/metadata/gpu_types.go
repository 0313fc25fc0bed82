package metadata

import (
	"fmt"
	"math"
	"time"
)

// Opaque handles handed out by a GPU implementation. The zero value is the null handle.
type (
	Swapchain     uint64
	Image         uint64
	ImageView     uint64
	RenderPass    uint64
	Framebuffer   uint64
	CommandPool   uint64
	CommandBuffer uint64
	Fence         uint64
	Semaphore     uint64
)

// InfiniteTimeout waits without bound.
const InfiniteTimeout time.Duration = math.MaxInt64

// Format values match VkFormat.
type Format uint32

const (
	FormatUndefined     Format = 0
	FormatR8G8B8A8Unorm Format = 37
	FormatR8G8B8A8Srgb  Format = 43
	FormatB8G8R8A8Unorm Format = 44
	FormatB8G8R8A8Srgb  Format = 50
)

var formatNames = map[Format]string{
	FormatUndefined:     "undefined",
	FormatR8G8B8A8Unorm: "r8g8b8a8_unorm",
	FormatR8G8B8A8Srgb:  "r8g8b8a8_srgb",
	FormatB8G8R8A8Unorm: "b8g8r8a8_unorm",
	FormatB8G8R8A8Srgb:  "b8g8r8a8_srgb",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", uint32(f))
}

func ParseFormat(name string) (Format, error) {
	for f, n := range formatNames {
		if n == name && f != FormatUndefined {
			return f, nil
		}
	}
	return FormatUndefined, fmt.Errorf("unknown surface format %q", name)
}

// ColorSpace values match VkColorSpaceKHR.
type ColorSpace uint32

const ColorSpaceSrgbNonlinear ColorSpace = 0

type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// PresentMode values match VkPresentModeKHR.
type PresentMode uint32

const (
	PresentModeImmediate   PresentMode = 0
	PresentModeMailbox     PresentMode = 1
	PresentModeFifo        PresentMode = 2
	PresentModeFifoRelaxed PresentMode = 3
)

var presentModeNames = map[PresentMode]string{
	PresentModeImmediate:   "immediate",
	PresentModeMailbox:     "mailbox",
	PresentModeFifo:        "fifo",
	PresentModeFifoRelaxed: "fifo_relaxed",
}

func (p PresentMode) String() string {
	if name, ok := presentModeNames[p]; ok {
		return name
	}
	return fmt.Sprintf("present_mode(%d)", uint32(p))
}

func ParsePresentMode(name string) (PresentMode, error) {
	for p, n := range presentModeNames {
		if n == name {
			return p, nil
		}
	}
	return PresentModeFifo, fmt.Errorf("unknown present mode %q", name)
}

// ImageUsageFlags values match VkImageUsageFlagBits.
type ImageUsageFlags uint32

const (
	ImageUsageTransferDst     ImageUsageFlags = 0x02
	ImageUsageColorAttachment ImageUsageFlags = 0x10
)

// SurfaceTransform values match VkSurfaceTransformFlagBitsKHR.
type SurfaceTransform uint32

const SurfaceTransformIdentity SurfaceTransform = 0x01

// UndefinedExtent marks a surface whose size is decided by the swapchain.
const UndefinedExtent = math.MaxUint32

type Extent2D struct {
	Width  uint32
	Height uint32
}

type Offset2D struct {
	X int32
	Y int32
}

type Rect2D struct {
	Offset Offset2D
	Extent Extent2D
}

type SurfaceCapabilities struct {
	MinImageCount    uint32
	MaxImageCount    uint32 // 0 means no limit
	CurrentExtent    Extent2D
	MinImageExtent   Extent2D
	MaxImageExtent   Extent2D
	CurrentTransform SurfaceTransform
	SupportedUsage   ImageUsageFlags
}

type SwapchainDesc struct {
	MinImageCount uint32
	Format        Format
	ColorSpace    ColorSpace
	Extent        Extent2D
	Usage         ImageUsageFlags
	PreTransform  SurfaceTransform
	PresentMode   PresentMode
}

// AttachmentLoadOp values match VkAttachmentLoadOp.
type AttachmentLoadOp uint32

const (
	AttachmentLoadOpLoad     AttachmentLoadOp = 0
	AttachmentLoadOpClear    AttachmentLoadOp = 1
	AttachmentLoadOpDontCare AttachmentLoadOp = 2
)

// AttachmentStoreOp values match VkAttachmentStoreOp.
type AttachmentStoreOp uint32

const (
	AttachmentStoreOpStore    AttachmentStoreOp = 0
	AttachmentStoreOpDontCare AttachmentStoreOp = 1
)

// ImageLayout values match VkImageLayout.
type ImageLayout uint32

const (
	ImageLayoutUndefined              ImageLayout = 0
	ImageLayoutColorAttachmentOptimal ImageLayout = 2
	ImageLayoutPresentSrc             ImageLayout = 1000001002
)

// PipelineStageFlags values match VkPipelineStageFlagBits.
type PipelineStageFlags uint32

const PipelineStageColorAttachmentOutput PipelineStageFlags = 0x400

// AccessFlags values match VkAccessFlagBits.
type AccessFlags uint32

const (
	AccessColorAttachmentRead  AccessFlags = 0x80
	AccessColorAttachmentWrite AccessFlags = 0x100
)

// SubpassExternal matches VK_SUBPASS_EXTERNAL.
const SubpassExternal = ^uint32(0)

type AttachmentDesc struct {
	Format        Format
	LoadOp        AttachmentLoadOp
	StoreOp       AttachmentStoreOp
	InitialLayout ImageLayout
	FinalLayout   ImageLayout
}

type SubpassDependency struct {
	SrcSubpass    uint32
	DstSubpass    uint32
	SrcStageMask  PipelineStageFlags
	DstStageMask  PipelineStageFlags
	SrcAccessMask AccessFlags
	DstAccessMask AccessFlags
}

// RenderPassDesc describes a pass with a single graphics subpass that uses
// every attachment as a color attachment in ColorLayout.
type RenderPassDesc struct {
	Attachments  []AttachmentDesc
	ColorLayout  ImageLayout
	Dependencies []SubpassDependency
}

type FramebufferDesc struct {
	RenderPass  RenderPass
	Attachments []ImageView
	Extent      Extent2D
	Layers      uint32
}

// CommandBufferUsage values match VkCommandBufferUsageFlagBits.
type CommandBufferUsage uint32

const (
	CommandBufferUsageOneTimeSubmit   CommandBufferUsage = 0x01
	CommandBufferUsageSimultaneousUse CommandBufferUsage = 0x04
)

type ClearColor [4]float32

type RenderPassBegin struct {
	RenderPass  RenderPass
	Framebuffer Framebuffer
	RenderArea  Rect2D
	ClearColor  ClearColor
}

type SubmitDesc struct {
	WaitSemaphores   []Semaphore
	WaitStages       []PipelineStageFlags
	CommandBuffers   []CommandBuffer
	SignalSemaphores []Semaphore
	// Signaled once every command buffer completed. May be the null handle.
	Fence Fence
}

type PresentDesc struct {
	WaitSemaphores []Semaphore
	Swapchain      Swapchain
	ImageIndex     uint32
}
