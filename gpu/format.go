package gpu

import (
	"math/bits"

	"github.com/vkngwrapper/core/v2/core1_0"
)

var formatAspects = map[core1_0.Format]core1_0.ImageAspectFlags{
	core1_0.FormatD16UnsignedNormalized:              core1_0.ImageAspectDepth,
	core1_0.FormatD24X8UnsignedNormalizedPacked:      core1_0.ImageAspectDepth,
	core1_0.FormatD32SignedFloat:                     core1_0.ImageAspectDepth,
	core1_0.FormatS8UnsignedInt:                      core1_0.ImageAspectStencil,
	core1_0.FormatD16UnsignedNormalizedS8UnsignedInt: core1_0.ImageAspectDepth | core1_0.ImageAspectStencil,
	core1_0.FormatD24UnsignedNormalizedS8UnsignedInt: core1_0.ImageAspectDepth | core1_0.ImageAspectStencil,
	core1_0.FormatD32SignedFloatS8UnsignedInt:        core1_0.ImageAspectDepth | core1_0.ImageAspectStencil,
}

// AspectForFormat returns the image aspects a view of the given format covers. Depth and
// stencil formats map to their depth and/or stencil aspects, every other format is colour.
func AspectForFormat(format core1_0.Format) core1_0.ImageAspectFlags {
	aspect, ok := formatAspects[format]
	if !ok {
		return core1_0.ImageAspectColor
	}
	return aspect
}

// IsDepthFormat reports whether the format carries a depth component
func IsDepthFormat(format core1_0.Format) bool {
	return AspectForFormat(format)&core1_0.ImageAspectDepth != 0
}

// MipLevels returns the length of the full mip chain for an image of the given size,
// floor(log2(max(width, height))) + 1
func MipLevels(width, height int) int {
	largest := width
	if height > largest {
		largest = height
	}
	if largest <= 0 {
		return 1
	}

	return bits.Len(uint(largest))
}
