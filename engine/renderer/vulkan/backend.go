package vulkan

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/renderer"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// SurfaceSource is the window the backend presents to.
type SurfaceSource interface {
	GetRequiredExtensionNames() []string
	CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error)
}

// VulkanBackend owns the instance, the window surface and the device. It
// hands the device to the renderer as its GPU.
type VulkanBackend struct {
	Instance vk.Instance
	Surface  vk.Surface
	Device   *VulkanDevice

	allocator      *vk.AllocationCallbacks
	debugMessenger vk.DebugReportCallback
	debug          bool
}

var _ renderer.Backend = (*VulkanBackend)(nil)

// New bootstraps Vulkan on window. Validation enables the Khronos layer and
// routes its reports to the logger; it is skipped with a warning when the
// layer is not installed.
func New(window SurfaceSource, appName string, validation bool) (*VulkanBackend, error) {
	vb := &VulkanBackend{debug: validation}
	if err := vb.initialize(window, appName); err != nil {
		vb.Shutdown()
		return nil, err
	}
	core.LogInfo("Vulkan renderer initialized successfully.")
	return vb, nil
}

func (vb *VulkanBackend) GPU() metadata.GPU {
	return vb.Device
}

func (vb *VulkanBackend) initialize(window SurfaceSource, appName string) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return errors.New("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return fmt.Errorf("failed to initialize vk: %w", err)
	}

	if err := vb.createInstance(window, appName); err != nil {
		return err
	}
	if vb.debug {
		if err := vb.createDebugger(); err != nil {
			return err
		}
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := window.CreateWindowSurface(vb.Instance, nil)
	if err != nil {
		return fmt.Errorf("%w: vulkan surface creation failed: %v", core.ErrSurfaceIncompatible, err)
	}
	vb.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	device, err := NewVulkanDevice(vb.Instance, vb.Surface, vb.allocator)
	if err != nil {
		return err
	}
	vb.Device = device
	return nil
}

func instanceLayers() ([]string, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, resultError("vkEnumerateInstanceLayerProperties", res)
	}
	layers := make([]vk.LayerProperties, count)
	if count > 0 {
		if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
			return nil, resultError("vkEnumerateInstanceLayerProperties", res)
		}
	}
	names := make([]string, 0, count)
	for i := range layers {
		layers[i].Deref()
		names = append(names, cName(layers[i].LayerName[:]))
	}
	return names, nil
}

// requiredInstanceExtensions lists what the window system, the platform and
// the debugger need.
func requiredInstanceExtensions(window []string, goos string, debug bool) []string {
	// Generic surface extension.
	extensions := []string{"VK_KHR_surface"}
	for _, name := range window {
		if name != "VK_KHR_surface" {
			extensions = append(extensions, name)
		}
	}
	if goos == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}
	if debug {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
	}
	return extensions
}

func (vb *VulkanBackend) createInstance(window SurfaceSource, appName string) error {
	if vb.debug {
		core.LogInfo("Validation layers enabled. Enumerating...")
		available, err := instanceLayers()
		if err != nil {
			return err
		}
		if missing, ok := containsAll(available, []string{validationLayerName}); !ok {
			core.LogWarn("Required validation layer is missing: %s. Continuing without validation.", missing)
			vb.debug = false
		}
	}

	extensions := requiredInstanceExtensions(window.GetRequiredExtensionNames(), runtime.GOOS, vb.debug)
	for _, name := range extensions {
		core.LogDebug("Required extension: %s", name)
	}
	var layers []string
	if vb.debug {
		layers = []string{validationLayerName}
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Anima Overlay"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     VulkanSafeStrings(layers),
	}
	// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	if runtime.GOOS == "darwin" {
		createInfo.Flags |= 1
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, vb.allocator, &instance); res != vk.Success {
		err := fmt.Errorf("%w: %v", core.ErrDeviceLost, resultError("vkCreateInstance", res))
		core.LogError("%s", err)
		return err
	}
	vb.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		return err
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func (vb *VulkanBackend) createDebugger() error {
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var dbg vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(vb.Instance, &debugCreateInfo, vb.allocator, &dbg)); err != nil {
		core.LogError("vk.CreateDebugReportCallback failed with %s", err)
		return err
	}
	vb.debugMessenger = dbg
	core.LogDebug("Vulkan debugger created.")
	return nil
}

// Shutdown destroys the device, the surface and the instance, in that order.
// It is safe on a partially initialized backend.
func (vb *VulkanBackend) Shutdown() {
	if vb.Device != nil {
		core.LogDebug("Destroying Vulkan device...")
		vb.Device.Destroy()
		vb.Device = nil
	}

	if vb.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(vb.Instance, vb.Surface, vb.allocator)
		vb.Surface = vk.NullSurface
	}

	if vb.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vb.Instance, vb.debugMessenger, vb.allocator)
		vb.debugMessenger = vk.NullDebugReportCallback
	}

	if vb.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vb.Instance, vb.allocator)
		vb.Instance = nil
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
