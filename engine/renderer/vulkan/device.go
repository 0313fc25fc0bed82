package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

const portabilitySubsetExtension = "VK_KHR_portability_subset"

// VulkanDevice is the logical device bound to one window surface. It is the
// metadata.GPU the renderer runs on; every object it creates is tracked in a
// handle table keyed by the id the renderer sees.
type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device
	Surface        vk.Surface

	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32
	GraphicsQueue      vk.Queue
	PresentQueue       vk.Queue

	Properties vk.PhysicalDeviceProperties
	Name       string

	allocator *vk.AllocationCallbacks
	locks     *VulkanLockPool

	nextID         uint64
	swapchains     handleTable[*swapchainEntry]
	images         handleTable[vk.Image]
	views          handleTable[vk.ImageView]
	renderPasses   handleTable[vk.RenderPass]
	framebuffers   handleTable[vk.Framebuffer]
	commandPools   handleTable[vk.CommandPool]
	commandBuffers handleTable[commandBufferEntry]
	fences         handleTable[vk.Fence]
	semaphores     handleTable[vk.Semaphore]
}

var _ metadata.GPU = (*VulkanDevice)(nil)

type VulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	DeviceExtensionNames []string
	DiscreteGPU          bool
}

// VulkanPhysicalDeviceQueueFamilyInfo holds the chosen family indices, -1
// when none qualifies.
type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
}

type queueFamily struct {
	Graphics bool
	Present  bool
}

// pickQueueFamilies prefers a single family that can both draw and present.
func pickQueueFamilies(families []queueFamily) VulkanPhysicalDeviceQueueFamilyInfo {
	info := VulkanPhysicalDeviceQueueFamilyInfo{GraphicsFamilyIndex: -1, PresentFamilyIndex: -1}
	for i, f := range families {
		if f.Graphics && f.Present {
			return VulkanPhysicalDeviceQueueFamilyInfo{GraphicsFamilyIndex: int32(i), PresentFamilyIndex: int32(i)}
		}
		if f.Graphics && info.GraphicsFamilyIndex < 0 {
			info.GraphicsFamilyIndex = int32(i)
		}
		if f.Present && info.PresentFamilyIndex < 0 {
			info.PresentFamilyIndex = int32(i)
		}
	}
	return info
}

func (q VulkanPhysicalDeviceQueueFamilyInfo) meets(req *VulkanPhysicalDeviceRequirements) bool {
	return (!req.Graphics || q.GraphicsFamilyIndex >= 0) && (!req.Present || q.PresentFamilyIndex >= 0)
}

// deviceTypeScore ranks candidates; a negative score rejects the device.
func deviceTypeScore(t vk.PhysicalDeviceType, req *VulkanPhysicalDeviceRequirements) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 3
	case vk.PhysicalDeviceTypeIntegratedGpu:
		if req.DiscreteGPU {
			return -1
		}
		return 2
	case vk.PhysicalDeviceTypeVirtualGpu:
		if req.DiscreteGPU {
			return -1
		}
		return 1
	default:
		if req.DiscreteGPU {
			return -1
		}
		return 0
	}
}

func deviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "Integrated"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "Discrete"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "Virtual"
	case vk.PhysicalDeviceTypeCpu:
		return "CPU"
	default:
		return "Unknown"
	}
}

func deviceExtensions(device vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success {
		return nil, resultError("vkEnumerateDeviceExtensionProperties", res)
	}
	props := make([]vk.ExtensionProperties, count)
	if count > 0 {
		if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, props); res != vk.Success {
			return nil, resultError("vkEnumerateDeviceExtensionProperties", res)
		}
	}
	names := make([]string, 0, count)
	for i := range props {
		props[i].Deref()
		names = append(names, cName(props[i].ExtensionName[:]))
	}
	return names, nil
}

func queueFamilies(device vk.PhysicalDevice, surface vk.Surface) ([]queueFamily, error) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &count, props)

	families := make([]queueFamily, count)
	for i := range props {
		props[i].Deref()
		families[i].Graphics = vk.QueueFlagBits(props[i].QueueFlags)&vk.QueueGraphicsBit != 0

		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			return nil, resultError("vkGetPhysicalDeviceSurfaceSupport", res)
		}
		families[i].Present = supportsPresent == vk.True
	}
	return families, nil
}

type deviceCandidate struct {
	device     vk.PhysicalDevice
	properties vk.PhysicalDeviceProperties
	queues     VulkanPhysicalDeviceQueueFamilyInfo
	portable   bool
	score      int
}

// selectPhysicalDevice picks the best device that can draw to and present on
// surface.
func selectPhysicalDevice(instance vk.Instance, surface vk.Surface, req *VulkanPhysicalDeviceRequirements) (*deviceCandidate, error) {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(instance, &count, nil); res != vk.Success {
		return nil, resultError("vkEnumeratePhysicalDevices", res)
	}
	if count == 0 {
		return nil, errors.New("no devices which support Vulkan were found")
	}
	devices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(instance, &count, devices); res != vk.Success {
		return nil, resultError("vkEnumeratePhysicalDevices", res)
	}

	var best *deviceCandidate
	for _, device := range devices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(device, &properties)
		properties.Deref()
		name := cName(properties.DeviceName[:])

		score := deviceTypeScore(properties.DeviceType, req)
		if score < 0 {
			core.LogInfo("Device '%s' is not a discrete GPU, and one is required. Skipping.", name)
			continue
		}

		families, err := queueFamilies(device, surface)
		if err != nil {
			return nil, err
		}
		queues := pickQueueFamilies(families)
		if !queues.meets(req) {
			core.LogInfo("Device '%s' lacks graphics or present queues. Skipping.", name)
			continue
		}

		extensions, err := deviceExtensions(device)
		if err != nil {
			return nil, err
		}
		if missing, ok := containsAll(extensions, req.DeviceExtensionNames); !ok {
			core.LogInfo("Required extension not found: '%s', skipping device '%s'.", missing, name)
			continue
		}
		_, portable := containsAll(extensions, []string{portabilitySubsetExtension})

		if best == nil || score > best.score {
			best = &deviceCandidate{
				device:     device,
				properties: properties,
				queues:     queues,
				portable:   portable,
				score:      score,
			}
		}
	}
	if best == nil {
		return nil, errors.New("no physical devices were found which meet the requirements")
	}
	return best, nil
}

// NewVulkanDevice selects a physical device for surface and creates the
// logical device with its graphics and present queues.
func NewVulkanDevice(instance vk.Instance, surface vk.Surface, allocator *vk.AllocationCallbacks) (*VulkanDevice, error) {
	req := &VulkanPhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		DiscreteGPU:          false,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}
	candidate, err := selectPhysicalDevice(instance, surface, req)
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	props := candidate.properties
	vd := &VulkanDevice{
		PhysicalDevice:     candidate.device,
		Surface:            surface,
		GraphicsQueueIndex: uint32(candidate.queues.GraphicsFamilyIndex),
		PresentQueueIndex:  uint32(candidate.queues.PresentFamilyIndex),
		Properties:         props,
		Name:               cName(props.DeviceName[:]),
		allocator:          allocator,
		locks:              NewVulkanLockPool(),
	}
	vd.swapchains = newHandleTable[*swapchainEntry](&vd.nextID)
	vd.images = newHandleTable[vk.Image](&vd.nextID)
	vd.views = newHandleTable[vk.ImageView](&vd.nextID)
	vd.renderPasses = newHandleTable[vk.RenderPass](&vd.nextID)
	vd.framebuffers = newHandleTable[vk.Framebuffer](&vd.nextID)
	vd.commandPools = newHandleTable[vk.CommandPool](&vd.nextID)
	vd.commandBuffers = newHandleTable[commandBufferEntry](&vd.nextID)
	vd.fences = newHandleTable[vk.Fence](&vd.nextID)
	vd.semaphores = newHandleTable[vk.Semaphore](&vd.nextID)

	core.LogInfo("Selected device: '%s'.", vd.Name)
	core.LogInfo("GPU type is %s.", deviceTypeName(props.DeviceType))
	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version(props.DriverVersion).Major(),
		vk.Version(props.DriverVersion).Minor(),
		vk.Version(props.DriverVersion).Patch(),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(props.ApiVersion).Major(),
		vk.Version(props.ApiVersion).Minor(),
		vk.Version(props.ApiVersion).Patch(),
	)

	if err := vd.createLogicalDevice(candidate.portable); err != nil {
		return nil, err
	}
	return vd, nil
}

func (vd *VulkanDevice) createLogicalDevice(portable bool) error {
	core.LogInfo("Creating logical device...")

	// Shared indices get a single queue.
	indices := []uint32{vd.GraphicsQueueIndex}
	if vd.PresentQueueIndex != vd.GraphicsQueueIndex {
		indices = append(indices, vd.PresentQueueIndex)
	}
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if portable {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtension)
		extensionNames = append(extensionNames, portabilitySubsetExtension)
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var device vk.Device
	if res := vk.CreateDevice(vd.PhysicalDevice, &deviceCreateInfo, vd.allocator, &device); res != vk.Success {
		err := fmt.Errorf("%w: %v", core.ErrDeviceLost, resultError("vkCreateDevice", res))
		core.LogError("%s", err)
		return err
	}
	vd.LogicalDevice = device
	core.LogInfo("Logical device created.")

	var graphics, present vk.Queue
	vk.GetDeviceQueue(device, vd.GraphicsQueueIndex, 0, &graphics)
	vk.GetDeviceQueue(device, vd.PresentQueueIndex, 0, &present)
	vd.GraphicsQueue = graphics
	vd.PresentQueue = present
	vd.locks.SetQueueFamily(vd.GraphicsQueueIndex)
	vd.locks.SetQueueFamily(vd.PresentQueueIndex)
	core.LogInfo("Queues obtained.")
	return nil
}

// LiveObjects counts the objects created through this device and not yet
// destroyed. Swapchain images are owned by their swapchain and excluded.
func (vd *VulkanDevice) LiveObjects() int {
	n := 0
	vd.locks.SafeCall(SwapchainManagement, func() {
		n += vd.swapchains.len() + vd.views.len()
	})
	vd.locks.SafeCall(RenderpassManagement, func() {
		n += vd.renderPasses.len() + vd.framebuffers.len()
	})
	vd.locks.SafeCall(CommandBufferManagement, func() {
		n += vd.commandPools.len()
	})
	vd.locks.SafeCall(SynchronizationManagement, func() {
		n += vd.fences.len() + vd.semaphores.len()
	})
	return n
}

// Destroy releases the logical device. Objects still alive are reported,
// they die with the device.
func (vd *VulkanDevice) Destroy() {
	if vd.LogicalDevice == nil {
		return
	}
	if n := vd.LiveObjects(); n > 0 {
		core.LogWarn("Destroying device with %d live objects.", n)
	}
	vd.GraphicsQueue = nil
	vd.PresentQueue = nil

	core.LogInfo("Destroying logical device...")
	vk.DestroyDevice(vd.LogicalDevice, vd.allocator)
	vd.LogicalDevice = nil

	// Physical devices are not destroyed.
	vd.PhysicalDevice = nil
}
