package vulkan

import (
	"fmt"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

// VkResult values are shared with metadata.Result.
func toResult(res vk.Result) metadata.Result {
	return metadata.Result(res)
}

func resultError(op string, res vk.Result) error {
	return fmt.Errorf("%s failed: %s", op, toResult(res).Describe())
}

var end = "\x00"
var endChar byte = '\x00'

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

// VulkanSafeStrings returns a terminated copy of list.
func VulkanSafeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = VulkanSafeString(list[i])
	}
	return out
}

// FindFirstZeroInByteArray returns the length of the C string held in arr.
func FindFirstZeroInByteArray(arr []byte) int {
	for i, b := range arr {
		if b == 0 {
			return i
		}
	}
	return len(arr)
}

// cName reads a fixed-size name field such as LayerName or ExtensionName.
func cName(arr []byte) string {
	return string(arr[:FindFirstZeroInByteArray(arr)])
}

func containsAll(available []string, required []string) (missing string, ok bool) {
	have := make(map[string]struct{}, len(available))
	for _, name := range available {
		have[name] = struct{}{}
	}
	for _, name := range required {
		if _, found := have[name]; !found {
			return name, false
		}
	}
	return "", true
}

func toExtent(e vk.Extent2D) metadata.Extent2D {
	return metadata.Extent2D{Width: e.Width, Height: e.Height}
}

func fromExtent(e metadata.Extent2D) vk.Extent2D {
	return vk.Extent2D{Width: e.Width, Height: e.Height}
}

func fromRect(r metadata.Rect2D) vk.Rect2D {
	return vk.Rect2D{
		Offset: vk.Offset2D{X: r.Offset.X, Y: r.Offset.Y},
		Extent: fromExtent(r.Extent),
	}
}

func timeoutNanos(d time.Duration) uint64 {
	if d < 0 || d == metadata.InfiniteTimeout {
		return vk.MaxUint64
	}
	return uint64(d.Nanoseconds())
}
