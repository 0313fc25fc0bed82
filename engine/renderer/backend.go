package renderer

import "github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"

// Backend is a bootstrapped graphics API: instance, device, queue and window
// surface, exposed through the GPU capability.
type Backend interface {
	GPU() metadata.GPU
	// Shutdown destroys the device, the surface and the instance, in that order.
	Shutdown()
}
