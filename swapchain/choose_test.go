package swapchain

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_surface"
)

func TestChooseSurfaceFormat(t *testing.T) {
	preferred := khr_surface.SurfaceFormat{
		Format:     core1_0.FormatB8G8R8A8UnsignedNormalized,
		ColorSpace: khr_surface.ColorSpaceSRGBNonlinear,
	}
	other := khr_surface.SurfaceFormat{
		Format:     core1_0.FormatR8G8B8A8UnsignedNormalized,
		ColorSpace: khr_surface.ColorSpaceSRGBNonlinear,
	}

	require.Equal(t, preferred, ChooseSurfaceFormat([]khr_surface.SurfaceFormat{other, preferred}))
	require.Equal(t, other, ChooseSurfaceFormat([]khr_surface.SurfaceFormat{other}))
}

func TestChoosePresentMode(t *testing.T) {
	modes := []khr_surface.PresentMode{khr_surface.PresentModeFIFO, khr_surface.PresentModeMailbox}

	require.Equal(t, khr_surface.PresentModeMailbox, ChoosePresentMode(modes, khr_surface.PresentModeMailbox))
	require.Equal(t, khr_surface.PresentModeFIFO, ChoosePresentMode(modes, khr_surface.PresentModeImmediate))
}

func TestParsePresentMode(t *testing.T) {
	mode, err := ParsePresentMode("Mailbox")
	require.NoError(t, err)
	require.Equal(t, khr_surface.PresentModeMailbox, mode)

	_, err = ParsePresentMode("vsync")
	require.Error(t, err)
}

func TestChooseExtent_FixedBySurface(t *testing.T) {
	capabilities := &khr_surface.SurfaceCapabilities{
		CurrentExtent:  core1_0.Extent2D{Width: 1280, Height: 720},
		MinImageExtent: core1_0.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: core1_0.Extent2D{Width: 4096, Height: 4096},
	}

	require.Equal(t, core1_0.Extent2D{Width: 1280, Height: 720}, ChooseExtent(capabilities, 1700, 900))
}

func TestChooseExtent_Clamped(t *testing.T) {
	capabilities := &khr_surface.SurfaceCapabilities{
		CurrentExtent:  core1_0.Extent2D{Width: currentExtentUndefined, Height: currentExtentUndefined},
		MinImageExtent: core1_0.Extent2D{Width: 64, Height: 64},
		MaxImageExtent: core1_0.Extent2D{Width: 2048, Height: 2048},
	}

	require.Equal(t, core1_0.Extent2D{Width: 1700, Height: 900}, ChooseExtent(capabilities, 1700, 900))
	require.Equal(t, core1_0.Extent2D{Width: 2048, Height: 64}, ChooseExtent(capabilities, 5000, 10))
}

func TestChooseImageCount(t *testing.T) {
	require.Equal(t, 3, ChooseImageCount(&khr_surface.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 0}))
	require.Equal(t, 3, ChooseImageCount(&khr_surface.SurfaceCapabilities{MinImageCount: 3, MaxImageCount: 3}))
	require.Equal(t, 4, ChooseImageCount(&khr_surface.SurfaceCapabilities{MinImageCount: 3, MaxImageCount: 8}))
}
