package core

import (
	"errors"
)

var (
	// The surface cannot back a swapchain with the requested usage.
	ErrSurfaceIncompatible = errors.New("surface incompatible")
	// The device cannot use the swapchain format as a color attachment.
	ErrAttachmentFormatUnsupported = errors.New("attachment format unsupported")
	ErrDeviceLost                  = errors.New("device lost")
	// The swapchain no longer matches the surface. Recreation is not supported.
	ErrSurfaceInvalidated = errors.New("surface invalidated")
	// The UI payload could not be encoded. The frame is dropped, the loop continues.
	ErrEncoding = errors.New("payload encoding failed")
	// A bounded fence wait expired.
	ErrDeviceHang = errors.New("device hang")
)

// IsRecoverable reports whether the render loop may continue after err.
func IsRecoverable(err error) bool {
	return err == nil || errors.Is(err, ErrEncoding)
}
