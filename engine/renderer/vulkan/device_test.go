package vulkan

import (
	"sync"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickQueueFamilies(t *testing.T) {
	tests := []struct {
		name     string
		families []queueFamily
		graphics int32
		present  int32
	}{
		{"empty", nil, -1, -1},
		{"shared family", []queueFamily{{Graphics: true}, {Present: true}, {Graphics: true, Present: true}}, 2, 2},
		{"split families", []queueFamily{{Present: true}, {Graphics: true}}, 1, 0},
		{"no present", []queueFamily{{Graphics: true}}, 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := pickQueueFamilies(tt.families)
			assert.Equal(t, tt.graphics, info.GraphicsFamilyIndex)
			assert.Equal(t, tt.present, info.PresentFamilyIndex)
		})
	}
}

func TestQueueFamilyRequirements(t *testing.T) {
	req := &VulkanPhysicalDeviceRequirements{Graphics: true, Present: true}
	assert.True(t, VulkanPhysicalDeviceQueueFamilyInfo{0, 1}.meets(req))
	assert.False(t, VulkanPhysicalDeviceQueueFamilyInfo{0, -1}.meets(req))
	assert.False(t, VulkanPhysicalDeviceQueueFamilyInfo{-1, 0}.meets(req))
	assert.True(t, VulkanPhysicalDeviceQueueFamilyInfo{0, -1}.meets(&VulkanPhysicalDeviceRequirements{Graphics: true}))
}

func TestDeviceTypeScore(t *testing.T) {
	req := &VulkanPhysicalDeviceRequirements{}
	assert.Greater(t, deviceTypeScore(vk.PhysicalDeviceTypeDiscreteGpu, req), deviceTypeScore(vk.PhysicalDeviceTypeIntegratedGpu, req))
	assert.Greater(t, deviceTypeScore(vk.PhysicalDeviceTypeIntegratedGpu, req), deviceTypeScore(vk.PhysicalDeviceTypeVirtualGpu, req))
	assert.Equal(t, 0, deviceTypeScore(vk.PhysicalDeviceTypeCpu, req))

	discrete := &VulkanPhysicalDeviceRequirements{DiscreteGPU: true}
	assert.Equal(t, 3, deviceTypeScore(vk.PhysicalDeviceTypeDiscreteGpu, discrete))
	assert.Negative(t, deviceTypeScore(vk.PhysicalDeviceTypeIntegratedGpu, discrete))
	assert.Negative(t, deviceTypeScore(vk.PhysicalDeviceTypeCpu, discrete))

	assert.Equal(t, "Discrete", deviceTypeName(vk.PhysicalDeviceTypeDiscreteGpu))
	assert.Equal(t, "CPU", deviceTypeName(vk.PhysicalDeviceTypeCpu))
}

func TestCompositeAlpha(t *testing.T) {
	all := vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit | vk.CompositeAlphaInheritBit)
	assert.Equal(t, vk.CompositeAlphaOpaqueBit, compositeAlpha(all))
	assert.Equal(t, vk.CompositeAlphaInheritBit, compositeAlpha(vk.CompositeAlphaFlags(vk.CompositeAlphaInheritBit)))
	assert.Equal(t, vk.CompositeAlphaOpaqueBit, compositeAlpha(0))
}

func TestHandleTable(t *testing.T) {
	var next uint64
	fences := newHandleTable[string](&next)
	views := newHandleTable[int](&next)

	a := fences.put("a")
	b := views.put(7)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 1, fences.len())

	v, ok := fences.get(a)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	_, ok = fences.get(b)
	assert.False(t, ok)

	_, ok = fences.remove(a)
	assert.True(t, ok)
	_, ok = fences.remove(a)
	assert.False(t, ok)

	// Removed ids are not handed out again.
	c := fences.put("c")
	assert.NotEqual(t, a, c)
	assert.Equal(t, 1, fences.len())
}

func TestLockPoolSerializesGroup(t *testing.T) {
	pool := NewVulkanLockPool()
	pool.SetQueueFamily(0)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			pool.SafeCall(SynchronizationManagement, func() { counter++ })
		}()
		go func() {
			defer wg.Done()
			pool.SafeQueueCall(0, func() vk.Result { return vk.Success })
		}()
	}
	wg.Wait()
	assert.Equal(t, 32, counter)
	assert.Equal(t, vk.Success, pool.SafeQueueCall(3, func() vk.Result { return vk.Success }))
}

func TestHandleTablesAcrossLockGroups(t *testing.T) {
	pool := NewVulkanLockPool()
	var next uint64
	fences := newHandleTable[int](&next)
	passes := newHandleTable[int](&next)

	const perGroup = 200
	fenceIDs := make([]uint64, perGroup)
	passIDs := make([]uint64, perGroup)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range fenceIDs {
			pool.SafeCall(SynchronizationManagement, func() { fenceIDs[i] = fences.put(i) })
		}
	}()
	go func() {
		defer wg.Done()
		for i := range passIDs {
			pool.SafeCall(RenderpassManagement, func() { passIDs[i] = passes.put(i) })
		}
	}()
	wg.Wait()

	seen := make(map[uint64]bool, 2*perGroup)
	for _, id := range append(fenceIDs, passIDs...) {
		assert.False(t, seen[id], "id %d handed out twice", id)
		seen[id] = true
	}
	assert.Equal(t, uint64(2*perGroup), next)
}
