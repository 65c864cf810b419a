package scene

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// vulkanClip maps OpenGL clip space onto Vulkan's: Y points down and depth runs from 0 to 1
var vulkanClip = mgl32.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Perspective builds a right-handed projection for Vulkan clip space. fovY is in radians.
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	return vulkanClip.Mul4(mgl32.Perspective(fovY, aspect, near, far))
}

func structBytes[T any](value *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(value)), unsafe.Sizeof(*value))
}
