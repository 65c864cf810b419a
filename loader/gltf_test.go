package loader

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard))
}

// writeModel saves a GLB with a two-primitive quad and a bare triangle
func writeModel(t *testing.T) string {
	t.Helper()

	doc := gltf.NewDocument()

	lower := &gltf.Primitive{
		Indices: gltf.Index(modeler.WriteIndices(doc, []uint16{0, 1, 2})),
		Attributes: map[string]uint32{
			gltf.POSITION:   modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}}),
			gltf.NORMAL:     modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}),
			gltf.TEXCOORD_0: modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {1, 1}}),
			gltf.COLOR_0:    modeler.WriteColor(doc, [][4]uint8{{255, 0, 0, 255}, {0, 255, 0, 255}, {0, 0, 255, 255}}),
		},
	}
	upper := &gltf.Primitive{
		Indices: gltf.Index(modeler.WriteIndices(doc, []uint16{0, 1, 2})),
		Attributes: map[string]uint32{
			gltf.POSITION: modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 1, 0}, {0, 1, 0}}),
		},
	}
	bare := &gltf.Primitive{
		Attributes: map[string]uint32{
			gltf.POSITION: modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {0, 1, 0}, {0, 0, 1}}),
		},
	}

	doc.Meshes = []*gltf.Mesh{
		{Name: "Quad", Primitives: []*gltf.Primitive{lower, upper}},
		{Name: "Triangle", Primitives: []*gltf.Primitive{bare}},
	}

	path := filepath.Join(t.TempDir(), "model.glb")
	require.NoError(t, gltf.SaveBinary(doc, path))
	return path
}

func TestLoadGLTFMeshes(t *testing.T) {
	meshes, err := LoadGLTFMeshes(testLogger(), writeModel(t), Options{})
	require.NoError(t, err)
	require.Len(t, meshes, 2)

	quad := meshes[0]
	require.Equal(t, "Quad", quad.Name)
	require.Len(t, quad.Vertices, 6)
	// the second primitive's indices are offset past the first primitive's vertices
	require.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, quad.Indices)

	require.Equal(t, [3]float32{0, 0, 1}, quad.Vertices[1].Normal)
	require.Equal(t, float32(1), quad.Vertices[1].UVX)
	require.Equal(t, float32(0), quad.Vertices[1].UVY)
	require.Equal(t, [4]float32{0, 1, 0, 1}, quad.Vertices[1].Color)

	// attributes the upper primitive lacks take the defaults
	require.Equal(t, [3]float32{1, 0, 0}, quad.Vertices[4].Normal)
	require.Equal(t, [4]float32{1, 1, 1, 1}, quad.Vertices[4].Color)
	require.Equal(t, [3]float32{1, 1, 0}, quad.Vertices[4].Position)

	triangle := meshes[1]
	require.Equal(t, []uint32{0, 1, 2}, triangle.Indices)
	require.NotEqual(t, quad.ID, triangle.ID)
}

func TestLoadGLTFMeshes_NormalColors(t *testing.T) {
	meshes, err := New(testLogger(), Options{NormalColors: true}).Load(writeModel(t))
	require.NoError(t, err)

	require.Equal(t, [4]float32{0, 0, 1, 1}, meshes[0].Vertices[0].Color)
	require.Equal(t, [4]float32{1, 0, 0, 1}, meshes[1].Vertices[0].Color)
}

func TestLoadGLTFMeshes_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.glb")
	require.NoError(t, gltf.SaveBinary(gltf.NewDocument(), path))

	_, err := LoadGLTFMeshes(testLogger(), path, Options{})
	require.ErrorIs(t, err, ErrNoMeshes)
}

func TestLoadGLTFMeshes_Unreadable(t *testing.T) {
	_, err := LoadGLTFMeshes(testLogger(), filepath.Join(t.TempDir(), "missing.glb"), Options{})
	require.Error(t, err)

	garbage := filepath.Join(t.TempDir(), "garbage.gltf")
	require.NoError(t, os.WriteFile(garbage, []byte("not a model"), 0o600))
	_, err = LoadGLTFMeshes(testLogger(), garbage, Options{})
	require.Error(t, err)
}
