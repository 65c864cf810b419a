package swapchain

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_surface"
)

// currentExtentUndefined is the width a surface reports when the swapchain decides its own size
const currentExtentUndefined = 0xFFFFFFFF

var presentModeNames = map[string]khr_surface.PresentMode{
	"fifo":      khr_surface.PresentModeFIFO,
	"mailbox":   khr_surface.PresentModeMailbox,
	"immediate": khr_surface.PresentModeImmediate,
}

// ParsePresentMode maps a configuration name (fifo, mailbox, immediate) to a present mode
func ParsePresentMode(name string) (khr_surface.PresentMode, error) {
	mode, ok := presentModeNames[strings.ToLower(name)]
	if !ok {
		return khr_surface.PresentModeFIFO, errors.Newf("unknown present mode %q", name)
	}
	return mode, nil
}

// ChooseSurfaceFormat prefers 8-bit BGRA UNORM in the sRGB nonlinear colour space and falls back to
// the first format the surface offers
func ChooseSurfaceFormat(formats []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	for _, format := range formats {
		if format.Format == core1_0.FormatB8G8R8A8UnsignedNormalized && format.ColorSpace == khr_surface.ColorSpaceSRGBNonlinear {
			return format
		}
	}

	return formats[0]
}

// ChoosePresentMode returns requested if the surface supports it. FIFO is always available and is
// the fallback.
func ChoosePresentMode(modes []khr_surface.PresentMode, requested khr_surface.PresentMode) khr_surface.PresentMode {
	for _, mode := range modes {
		if mode == requested {
			return mode
		}
	}

	return khr_surface.PresentModeFIFO
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ChooseExtent uses the surface's current extent when the surface dictates one, otherwise it clamps
// the requested size to the supported range
func ChooseExtent(capabilities *khr_surface.SurfaceCapabilities, width, height int) core1_0.Extent2D {
	if capabilities.CurrentExtent.Width != currentExtentUndefined && capabilities.CurrentExtent.Width != -1 {
		return capabilities.CurrentExtent
	}

	return core1_0.Extent2D{
		Width:  clamp(width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: clamp(height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

// ChooseImageCount asks for one image more than the minimum so the driver never blocks us, capped
// by the maximum when the surface has one
func ChooseImageCount(capabilities *khr_surface.SurfaceCapabilities) int {
	count := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && count > capabilities.MaxImageCount {
		count = capabilities.MaxImageCount
	}
	return count
}
