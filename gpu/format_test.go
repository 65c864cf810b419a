package gpu

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
)

func TestMipLevels(t *testing.T) {
	require.Equal(t, 1, MipLevels(1, 1))
	require.Equal(t, 2, MipLevels(2, 1))
	require.Equal(t, 2, MipLevels(3, 3))
	require.Equal(t, 9, MipLevels(256, 100))
	require.Equal(t, 11, MipLevels(1280, 720))
	require.Equal(t, 11, MipLevels(720, 1280))
	require.Equal(t, 12, MipLevels(2048, 2048))
	require.Equal(t, 1, MipLevels(0, 0))
}

func TestAspectForFormat(t *testing.T) {
	require.Equal(t, core1_0.ImageAspectDepth, AspectForFormat(core1_0.FormatD32SignedFloat))
	require.Equal(t, core1_0.ImageAspectDepth, AspectForFormat(core1_0.FormatD16UnsignedNormalized))
	require.Equal(t, core1_0.ImageAspectStencil, AspectForFormat(core1_0.FormatS8UnsignedInt))
	require.Equal(t, core1_0.ImageAspectDepth|core1_0.ImageAspectStencil,
		AspectForFormat(core1_0.FormatD24UnsignedNormalizedS8UnsignedInt))
	require.Equal(t, core1_0.ImageAspectColor, AspectForFormat(core1_0.FormatR16G16B16A16SignedFloat))
	require.Equal(t, core1_0.ImageAspectColor, AspectForFormat(core1_0.FormatB8G8R8A8UnsignedNormalized))

	require.True(t, IsDepthFormat(core1_0.FormatD32SignedFloatS8UnsignedInt))
	require.False(t, IsDepthFormat(core1_0.FormatS8UnsignedInt))
}
