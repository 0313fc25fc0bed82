package metadata

import "fmt"

// Result values match VkResult.
type Result int32

const (
	Success                   Result = 0
	NotReady                  Result = 1
	Timeout                   Result = 2
	Incomplete                Result = 5
	ErrorOutOfHostMemory      Result = -1
	ErrorOutOfDeviceMemory    Result = -2
	ErrorInitializationFailed Result = -3
	ErrorDeviceLost           Result = -4
	ErrorFeatureNotPresent    Result = -8
	ErrorFormatNotSupported   Result = -11
	ErrorUnknown              Result = -13
	ErrorSurfaceLost          Result = -1000000000
	Suboptimal                Result = 1000001003
	ErrorOutOfDate            Result = -1000001004
	// Reported by validating implementations when a call breaks API usage rules.
	ErrorValidationFailed Result = -1000011001
)

// From: https://www.khronos.org/registry/vulkan/specs/1.3-extensions/man/html/VkResult.html
var resultStrings = map[Result][2]string{
	Success:                   {"VK_SUCCESS", "Command successfully completed"},
	NotReady:                  {"VK_NOT_READY", "A fence or query has not yet completed"},
	Timeout:                   {"VK_TIMEOUT", "A wait operation has not completed in the specified time"},
	Incomplete:                {"VK_INCOMPLETE", "A return array was too small for the result"},
	Suboptimal:                {"VK_SUBOPTIMAL_KHR", "A swapchain no longer matches the surface properties exactly, but can still be used to present to the surface successfully."},
	ErrorOutOfHostMemory:      {"VK_ERROR_OUT_OF_HOST_MEMORY", "A host memory allocation has failed."},
	ErrorOutOfDeviceMemory:    {"VK_ERROR_OUT_OF_DEVICE_MEMORY", "A device memory allocation has failed."},
	ErrorInitializationFailed: {"VK_ERROR_INITIALIZATION_FAILED", "Initialization of an object could not be completed for implementation-specific reasons."},
	ErrorDeviceLost:           {"VK_ERROR_DEVICE_LOST", "The logical or physical device has been lost."},
	ErrorFeatureNotPresent:    {"VK_ERROR_FEATURE_NOT_PRESENT", "A requested feature is not supported."},
	ErrorFormatNotSupported:   {"VK_ERROR_FORMAT_NOT_SUPPORTED", "A requested format is not supported on this device."},
	ErrorUnknown:              {"VK_ERROR_UNKNOWN", "An unknown error has occurred."},
	ErrorSurfaceLost:          {"VK_ERROR_SURFACE_LOST_KHR", "A surface is no longer available."},
	ErrorOutOfDate:            {"VK_ERROR_OUT_OF_DATE_KHR", "A surface has changed in such a way that it is no longer compatible with the swapchain."},
	ErrorValidationFailed:     {"VK_ERROR_VALIDATION_FAILED_EXT", "A command failed because invalid usage was detected."},
}

func (r Result) String() string {
	if s, ok := resultStrings[r]; ok {
		return s[0]
	}
	return fmt.Sprintf("VkResult(%d)", int32(r))
}

// Describe returns the result name followed by its meaning.
func (r Result) Describe() string {
	if s, ok := resultStrings[r]; ok {
		return s[0] + " " + s[1]
	}
	return r.String()
}

// IsSuccess reports whether r is one of the non-error codes.
func (r Result) IsSuccess() bool {
	return r >= 0
}
