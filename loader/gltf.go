package loader

import (
	"github.com/cockroachdb/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/vkngwrapper/vkrender/mesh"
	"golang.org/x/exp/slog"
)

// ErrNoMeshes is returned for glTF files that parse but contain no meshes
var ErrNoMeshes = errors.New("file contains no meshes")

var (
	defaultNormal = [3]float32{1, 0, 0}
	defaultColor  = [4]float32{1, 1, 1, 1}
)

// Options control how glTF attributes map onto vertices
type Options struct {
	// NormalColors replaces every vertex colour with its normal, which is useful for checking
	// geometry without materials
	NormalColors bool
}

// Loader reads meshes from glTF and GLB files
type Loader struct {
	logger  *slog.Logger
	options Options
}

func New(logger *slog.Logger, options Options) *Loader {
	return &Loader{logger: logger, options: options}
}

// Load reads every mesh in the file at path
func (l *Loader) Load(path string) ([]*mesh.Mesh, error) {
	return LoadGLTFMeshes(l.logger, path, l.options)
}

// LoadGLTFMeshes reads every mesh in a glTF or GLB file. Each glTF mesh becomes one mesh with
// all of its primitives merged into a single vertex and index array. Attributes a primitive
// lacks take default values: normal (1, 0, 0), white, uv (0, 0).
func LoadGLTFMeshes(logger *slog.Logger, path string, options Options) ([]*mesh.Mesh, error) {
	logger.Debug("LoadGLTFMeshes", slog.String("path", path))

	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	if len(doc.Meshes) == 0 {
		return nil, errors.Wrapf(ErrNoMeshes, "load %s", path)
	}

	meshes := make([]*mesh.Mesh, 0, len(doc.Meshes))
	for meshIndex, source := range doc.Meshes {
		var vertices []mesh.Vertex
		var indices []uint32

		for primitiveIndex, primitive := range source.Primitives {
			vertices, indices, err = appendPrimitive(doc, primitive, vertices, indices)
			if err != nil {
				return nil, errors.Wrapf(err, "read mesh %d primitive %d of %s", meshIndex, primitiveIndex, path)
			}
		}

		if options.NormalColors {
			for i := range vertices {
				normal := vertices[i].Normal
				vertices[i].Color = [4]float32{normal[0], normal[1], normal[2], 1}
			}
		}

		loaded := mesh.New(source.Name, vertices, indices)
		logger.Debug("loaded mesh",
			slog.String("name", loaded.Name),
			slog.Int("vertices", len(vertices)),
			slog.Int("indices", len(indices)),
		)
		meshes = append(meshes, loaded)
	}

	return meshes, nil
}

// appendPrimitive appends a primitive's vertices and its indices, offset by the vertices
// already present, to the running arrays
func appendPrimitive(doc *gltf.Document, primitive *gltf.Primitive, vertices []mesh.Vertex, indices []uint32) ([]mesh.Vertex, []uint32, error) {
	positionAccessor, ok := primitive.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil, errors.New("primitive has no POSITION attribute")
	}

	positions, err := modeler.ReadPosition(doc, doc.Accessors[positionAccessor], nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read positions")
	}

	base := len(vertices)
	for _, position := range positions {
		vertices = append(vertices, mesh.Vertex{
			Position: position,
			Normal:   defaultNormal,
			Color:    defaultColor,
		})
	}
	primitiveVertices := vertices[base:]

	if primitive.Indices != nil {
		primitiveIndices, err := modeler.ReadIndices(doc, doc.Accessors[*primitive.Indices], nil)
		if err != nil {
			return nil, nil, errors.Wrap(err, "read indices")
		}
		for _, index := range primitiveIndices {
			if int(index) >= len(positions) {
				return nil, nil, errors.Newf("index %d out of range for %d vertices", index, len(positions))
			}
			indices = append(indices, uint32(base)+index)
		}
	} else {
		for i := range positions {
			indices = append(indices, uint32(base+i))
		}
	}

	if accessor, ok := primitive.Attributes[gltf.NORMAL]; ok {
		normals, err := modeler.ReadNormal(doc, doc.Accessors[accessor], nil)
		if err != nil {
			return nil, nil, errors.Wrap(err, "read normals")
		}
		for i := range primitiveVertices {
			if i < len(normals) {
				primitiveVertices[i].Normal = normals[i]
			}
		}
	}

	if accessor, ok := primitive.Attributes[gltf.TEXCOORD_0]; ok {
		uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[accessor], nil)
		if err != nil {
			return nil, nil, errors.Wrap(err, "read texture coordinates")
		}
		for i := range primitiveVertices {
			if i < len(uvs) {
				primitiveVertices[i].UVX = uvs[i][0]
				primitiveVertices[i].UVY = uvs[i][1]
			}
		}
	}

	if accessor, ok := primitive.Attributes[gltf.COLOR_0]; ok {
		colors, err := modeler.ReadColor(doc, doc.Accessors[accessor], nil)
		if err != nil {
			return nil, nil, errors.Wrap(err, "read colors")
		}
		for i := range primitiveVertices {
			if i < len(colors) {
				c := colors[i]
				primitiveVertices[i].Color = [4]float32{
					float32(c[0]) / 255,
					float32(c[1]) / 255,
					float32(c[2]) / 255,
					float32(c[3]) / 255,
				}
			}
		}
	}

	return vertices, indices, nil
}
