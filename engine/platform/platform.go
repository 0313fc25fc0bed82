package platform

import (
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/anima-overlay/engine/core"
)

var startTime float64 = 0

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the GLFW window and turns its callbacks into engine events.
type Platform struct {
	Window *glfw.Window

	bus   *core.EventBus
	input *core.InputState

	width  uint32
	height uint32
}

func New(bus *core.EventBus, input *core.InputState) *Platform {
	return &Platform{
		bus:   bus,
		input: input,
	}
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		core.LogError("glfw: no Vulkan loader found")
		return core.ErrSurfaceIncompatible
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		glfw.Terminate()
		core.LogError("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetCloseCallback(p.closeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	fbWidth, fbHeight := p.Window.GetFramebufferSize()
	p.width, p.height = uint32(fbWidth), uint32(fbHeight)

	startTime = glfw.GetTime()
	core.LogInfo("window '%s' created (%dx%d)", applicationName, p.width, p.height)
	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages drains pending window events. It returns false once the
// window was asked to close.
func (p *Platform) PumpMessages() bool {
	if p.Window == nil {
		return false
	}
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// WaitMessages blocks until an event arrives or timeout seconds pass. Used
// while the window is minimized.
func (p *Platform) WaitMessages(timeout float64) {
	glfw.WaitEventsTimeout(timeout)
}

// FramebufferSize is the drawable size in pixels, which differs from the
// window size on high-DPI displays.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	return p.width, p.height
}

// GetAbsoluteTime returns monotonic seconds since Startup.
func GetAbsoluteTime() float64 {
	return glfw.GetTime() - startTime
}

// GetRequiredExtensionNames lists the instance extensions the window system
// needs for surface creation.
func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error) {
	return p.Window.CreateWindowSurface(instance, allocCallbacks)
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	p.processKey(key, action)
}

func (p *Platform) processKey(key glfw.Key, action glfw.Action) {
	code := translateKey(key)
	if code == core.KEY_UNKNOWN || p.input == nil {
		return
	}
	p.input.ProcessKey(code, action != glfw.Release)
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.processResize(uint32(width), uint32(height))
}

func (p *Platform) processResize(width, height uint32) {
	if width == p.width && height == p.height {
		return
	}
	p.width, p.height = width, height
	if p.bus != nil {
		p.bus.Fire(core.EventContext{
			Type: core.EventCodeResized,
			Data: &core.ResizeEvent{Width: width, Height: height},
		})
	}
}

func (p *Platform) closeCallback(w *glfw.Window) {
	if p.bus != nil {
		p.bus.Fire(core.EventContext{Type: core.EventCodeApplicationQuit})
	}
}

var keyMap = map[glfw.Key]core.KeyCode{
	glfw.KeyBackspace: core.KEY_BACKSPACE,
	glfw.KeyTab:       core.KEY_TAB,
	glfw.KeyEnter:     core.KEY_ENTER,
	glfw.KeyEscape:    core.KEY_ESCAPE,
	glfw.KeySpace:     core.KEY_SPACE,
	glfw.KeyLeft:      core.KEY_LEFT,
	glfw.KeyUp:        core.KEY_UP,
	glfw.KeyRight:     core.KEY_RIGHT,
	glfw.KeyDown:      core.KEY_DOWN,
	glfw.KeyA:         core.KEY_A,
	glfw.KeyH:         core.KEY_H,
	glfw.KeyP:         core.KEY_P,
	glfw.KeyQ:         core.KEY_Q,
	glfw.KeyF1:        core.KEY_F1,
}

func translateKey(key glfw.Key) core.KeyCode {
	if code, ok := keyMap[key]; ok {
		return code
	}
	return core.KEY_UNKNOWN
}
