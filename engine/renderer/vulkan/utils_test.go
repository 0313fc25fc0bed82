package vulkan

import (
	"testing"
	"time"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

func TestVulkanSafeString(t *testing.T) {
	assert.Equal(t, "\x00", VulkanSafeString(""))
	assert.Equal(t, "VK_KHR_surface\x00", VulkanSafeString("VK_KHR_surface"))
	assert.Equal(t, "done\x00", VulkanSafeString("done\x00"))

	in := []string{"a", "b\x00"}
	out := VulkanSafeStrings(in)
	assert.Equal(t, []string{"a\x00", "b\x00"}, out)
	assert.Equal(t, "a", in[0])
}

func TestCName(t *testing.T) {
	var field [16]byte
	copy(field[:], "VK_LAYER")
	assert.Equal(t, 8, FindFirstZeroInByteArray(field[:]))
	assert.Equal(t, "VK_LAYER", cName(field[:]))

	full := []byte("abcd")
	assert.Equal(t, 4, FindFirstZeroInByteArray(full))
	assert.Equal(t, "abcd", cName(full))
}

func TestContainsAll(t *testing.T) {
	available := []string{"VK_KHR_swapchain", "VK_KHR_portability_subset"}

	missing, ok := containsAll(available, []string{"VK_KHR_swapchain"})
	assert.True(t, ok)
	assert.Empty(t, missing)

	missing, ok = containsAll(available, []string{"VK_KHR_swapchain", "VK_EXT_debug_utils"})
	assert.False(t, ok)
	assert.Equal(t, "VK_EXT_debug_utils", missing)

	_, ok = containsAll(nil, nil)
	assert.True(t, ok)
}

func TestTimeoutNanos(t *testing.T) {
	assert.Equal(t, uint64(vk.MaxUint64), timeoutNanos(metadata.InfiniteTimeout))
	assert.Equal(t, uint64(vk.MaxUint64), timeoutNanos(-1))
	assert.Equal(t, uint64(0), timeoutNanos(0))
	assert.Equal(t, uint64(2_000_000), timeoutNanos(2*time.Millisecond))
}

func TestToResult(t *testing.T) {
	assert.Equal(t, metadata.Success, toResult(vk.Success))
	assert.Equal(t, metadata.Suboptimal, toResult(vk.Suboptimal))
	assert.Equal(t, metadata.ErrorOutOfDate, toResult(vk.ErrorOutOfDate))
	assert.Equal(t, metadata.ErrorDeviceLost, toResult(vk.ErrorDeviceLost))
	assert.Equal(t, metadata.Timeout, toResult(vk.Timeout))

	err := resultError("vkCreateDevice", vk.ErrorDeviceLost)
	assert.Contains(t, err.Error(), "vkCreateDevice failed")
	assert.Contains(t, err.Error(), "VK_ERROR_DEVICE_LOST")
}

func TestRectConversion(t *testing.T) {
	r := fromRect(metadata.Rect2D{
		Offset: metadata.Offset2D{X: 4, Y: 8},
		Extent: metadata.Extent2D{Width: 100, Height: 50},
	})
	assert.Equal(t, int32(4), r.Offset.X)
	assert.Equal(t, int32(8), r.Offset.Y)
	assert.Equal(t, metadata.Extent2D{Width: 100, Height: 50}, toExtent(r.Extent))
}

func TestRequiredInstanceExtensions(t *testing.T) {
	exts := requiredInstanceExtensions([]string{"VK_KHR_surface", "VK_KHR_xcb_surface"}, "linux", false)
	assert.Equal(t, []string{"VK_KHR_surface", "VK_KHR_xcb_surface"}, exts)

	exts = requiredInstanceExtensions([]string{"VK_EXT_metal_surface"}, "darwin", true)
	assert.Equal(t, "VK_KHR_surface", exts[0])
	assert.Contains(t, exts, "VK_EXT_metal_surface")
	assert.Contains(t, exts, "VK_KHR_portability_enumeration")
	assert.Contains(t, exts, "VK_KHR_get_physical_device_properties2")
	assert.Contains(t, exts, vk.ExtDebugReportExtensionName)
}
