package scene

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/vkrender/mesh"
)

// Camera describes the viewer. FovY is in degrees.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	FovY     float32
	Near     float32
	Far      float32
}

// View returns the world-to-view matrix
func (c Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

// Projection returns the view-to-clip matrix for a target of the given aspect ratio
func (c Camera) Projection(aspect float32) mgl32.Mat4 {
	return Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far)
}

// SceneData is the per-frame uniform block shared by every draw. Field order and padding match
// the std140 layout the shaders declare.
type SceneData struct {
	View     mgl32.Mat4
	Proj     mgl32.Mat4
	ViewProj mgl32.Mat4
	// w is the intensity
	AmbientColor      [4]float32
	SunlightDirection [4]float32
	// w is the intensity
	SunlightColor [4]float32
}

// SceneDataSize is the size in bytes of the uniform block
const SceneDataSize = int(unsafe.Sizeof(SceneData{}))

// NewSceneData computes the camera matrices for a target of width x height and fills in the
// default lighting
func NewSceneData(camera Camera, width, height int) SceneData {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}

	view := camera.View()
	proj := camera.Projection(aspect)

	return SceneData{
		View:              view,
		Proj:              proj,
		ViewProj:          proj.Mul4(view),
		AmbientColor:      [4]float32{0.1, 0.1, 0.1, 1},
		SunlightDirection: [4]float32{0, 1, 0.5, 1},
		SunlightColor:     [4]float32{1, 1, 1, 1},
	}
}

// Bytes returns the uniform block as raw bytes
func (d *SceneData) Bytes() []byte {
	return structBytes(d)
}

// DrawPushConstants is pushed once per draw to the vertex stage. Shaders used with the renderer
// declare SceneData at set 0 binding 0 and this push constant block:
//
//	layout(push_constant) uniform constants {
//		mat4 world;
//		VertexBuffer vertices; // buffer_reference to mesh.Vertex[]
//	};
//
// There are no vertex input bindings. The vertex shader pulls vertex gl_VertexIndex from
// VertexAddress, 48 bytes per vertex laid out as mesh.Vertex.
type DrawPushConstants struct {
	World         mgl32.Mat4
	VertexAddress uint64
}

// DrawPushConstantsSize is the size in bytes of the push constant block
const DrawPushConstantsSize = int(unsafe.Sizeof(DrawPushConstants{}))

func (p *DrawPushConstants) Bytes() []byte {
	return structBytes(p)
}

// Scene is the flat render list. Meshes are drawn in the order they were added, and the renderer
// reads the list by reference every frame, so meshes must not change after they are added.
type Scene struct {
	meshes []*mesh.Mesh
}

// Add appends meshes to the render list
func (s *Scene) Add(meshes ...*mesh.Mesh) {
	s.meshes = append(s.meshes, meshes...)
}

// Meshes returns the render list in append order
func (s *Scene) Meshes() []*mesh.Mesh {
	return s.meshes
}

func (s *Scene) Len() int {
	return len(s.meshes)
}
