package gpu

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
)

func presentOn(indices ...int) func(int) (bool, error) {
	return func(index int) (bool, error) {
		for _, i := range indices {
			if i == index {
				return true, nil
			}
		}
		return false, nil
	}
}

func TestSelectQueueFamilies_SharedFamily(t *testing.T) {
	families := []*core1_0.QueueFamilyProperties{
		{QueueFlags: core1_0.QueueTransfer},
		{QueueFlags: core1_0.QueueGraphics | core1_0.QueueCompute},
		{QueueFlags: core1_0.QueueGraphics},
	}

	selected, ok, err := selectQueueFamilies(families, presentOn(0, 2))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, QueueFamilies{Graphics: 2, Present: 2}, selected)
}

func TestSelectQueueFamilies_SplitFamilies(t *testing.T) {
	families := []*core1_0.QueueFamilyProperties{
		{QueueFlags: core1_0.QueueGraphics},
		{QueueFlags: core1_0.QueueTransfer},
	}

	selected, ok, err := selectQueueFamilies(families, presentOn(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, QueueFamilies{Graphics: 0, Present: 1}, selected)
}

func TestSelectQueueFamilies_NoPresent(t *testing.T) {
	families := []*core1_0.QueueFamilyProperties{
		{QueueFlags: core1_0.QueueGraphics},
	}

	_, ok, err := selectQueueFamilies(families, presentOn())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSelectQueueFamilies_QueryError(t *testing.T) {
	families := []*core1_0.QueueFamilyProperties{
		{QueueFlags: core1_0.QueueGraphics},
	}

	_, _, err := selectQueueFamilies(families, func(int) (bool, error) {
		return false, errors.New("surface lost")
	})
	require.Error(t, err)
}

func TestDeviceTypeScore(t *testing.T) {
	require.Greater(t, deviceTypeScore(core1_0.PhysicalDeviceTypeDiscreteGPU), deviceTypeScore(core1_0.PhysicalDeviceTypeIntegratedGPU))
	require.Greater(t, deviceTypeScore(core1_0.PhysicalDeviceTypeIntegratedGPU), deviceTypeScore(core1_0.PhysicalDeviceTypeCPU))
}

func TestMissingExtensions(t *testing.T) {
	available := map[string]*core1_0.ExtensionProperties{
		"VK_KHR_other": {},
	}
	require.Equal(t, []string{khr_swapchain.ExtensionName}, missingExtensions(available, requiredDeviceExtensions))

	available[khr_swapchain.ExtensionName] = &core1_0.ExtensionProperties{}
	require.Empty(t, missingExtensions(available, requiredDeviceExtensions))
}
