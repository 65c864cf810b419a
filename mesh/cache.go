package mesh

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/core1_2"
	"github.com/vkngwrapper/vkrender/gpu"
	"github.com/vkngwrapper/vkrender/teardown"
	"golang.org/x/exp/slog"
)

// Uploader is the part of gpu.Context the cache needs to place meshes in device memory
type Uploader interface {
	CreateBuffer(size int, usage core1_0.BufferUsageFlags, memory gpu.MemoryUsage) (*gpu.Buffer, error)
	DestroyBuffer(buffer *gpu.Buffer) error
	BufferAddress(buffer *gpu.Buffer) (uint64, error)
	ImmediateSubmit(work func(cmd core1_0.CommandBuffer) error) error
}

var _ Uploader = &gpu.Context{}

// GPUMesh is a mesh resident in device-local memory
type GPUMesh struct {
	VertexBuffer  *gpu.Buffer
	IndexBuffer   *gpu.Buffer
	VertexAddress uint64
	IndexCount    int
}

// CacheOptions configure a Cache
type CacheOptions struct {
	// Synchronized guards the cache with a read/write mutex, for callers that upload from more
	// than one goroutine. Without it every lock is a no-op.
	Synchronized bool
}

// Cache maps mesh identities to their device-resident buffers. Each distinct mesh is uploaded
// exactly once; uploading a mesh that is already resident does nothing.
type Cache struct {
	logger   *slog.Logger
	uploader Uploader

	// lock guards writers and readLock guards readers. Both are no-ops when the cache is not
	// synchronized.
	lock      sync.Locker
	readLock  sync.Locker
	meshes    map[string]*GPUMesh
	transfers int
}

func NewCache(logger *slog.Logger, uploader Uploader, options CacheOptions) *Cache {
	lock, readLock := cacheLocks(options.Synchronized)

	return &Cache{
		logger:   logger,
		uploader: uploader,
		lock:     lock,
		readLock: readLock,
		meshes:   make(map[string]*GPUMesh),
	}
}

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

func cacheLocks(synchronized bool) (write, read sync.Locker) {
	if !synchronized {
		return noLock{}, noLock{}
	}

	mutex := &sync.RWMutex{}
	return mutex, mutex.RLocker()
}

// Upload copies the mesh into device-local vertex and index buffers through a host-visible
// staging buffer. The copy runs synchronously; when Upload returns the staging buffer is gone and
// the mesh is ready to draw. A failed upload leaves nothing behind.
func (c *Cache) Upload(mesh *Mesh) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if _, resident := c.meshes[mesh.ID]; resident {
		return nil
	}

	c.logger.Debug("Cache::Upload",
		slog.String("id", mesh.ID),
		slog.String("name", mesh.Name),
		slog.Int("vertices", len(mesh.Vertices)),
		slog.Int("indices", len(mesh.Indices)),
	)

	if len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		return errors.Newf("mesh %s (%s) has no geometry", mesh.Name, mesh.ID)
	}

	gpuMesh, err := c.upload(mesh)
	if err != nil {
		return errors.Wrapf(err, "upload mesh %s (%s)", mesh.Name, mesh.ID)
	}

	c.meshes[mesh.ID] = gpuMesh
	return nil
}

func (c *Cache) upload(mesh *Mesh) (gpuMesh *GPUMesh, err error) {
	vertexBytes := mesh.VertexBytes()
	indexBytes := mesh.IndexBytes()

	// staging always goes, the destination buffers only go if something failed
	var staging, resident teardown.Queue
	defer func() {
		if err != nil {
			err = errors.CombineErrors(err, resident.Flush())
		}
		err = errors.CombineErrors(err, staging.Flush())
	}()

	vertexBuffer, err := c.uploader.CreateBuffer(vertexBytes,
		core1_0.BufferUsageStorageBuffer|core1_0.BufferUsageTransferDst|core1_2.BufferUsageShaderDeviceAddress,
		gpu.MemoryUsageGPUOnly)
	if err != nil {
		return nil, errors.Wrap(err, "create vertex buffer")
	}
	resident.Push("vertex buffer", func() error { return c.uploader.DestroyBuffer(vertexBuffer) })

	vertexAddress, err := c.uploader.BufferAddress(vertexBuffer)
	if err != nil {
		return nil, err
	}

	indexBuffer, err := c.uploader.CreateBuffer(indexBytes,
		core1_0.BufferUsageIndexBuffer|core1_0.BufferUsageTransferDst,
		gpu.MemoryUsageGPUOnly)
	if err != nil {
		return nil, errors.Wrap(err, "create index buffer")
	}
	resident.Push("index buffer", func() error { return c.uploader.DestroyBuffer(indexBuffer) })

	stagingBuffer, err := c.uploader.CreateBuffer(vertexBytes+indexBytes, core1_0.BufferUsageTransferSrc, gpu.MemoryUsageCPUOnly)
	if err != nil {
		return nil, errors.Wrap(err, "create staging buffer")
	}
	staging.Push("staging buffer", func() error { return c.uploader.DestroyBuffer(stagingBuffer) })

	err = stagingBuffer.Write(0, vertexData(mesh.Vertices))
	if err != nil {
		return nil, err
	}
	err = stagingBuffer.Write(vertexBytes, indexData(mesh.Indices))
	if err != nil {
		return nil, err
	}

	err = c.uploader.ImmediateSubmit(func(cmd core1_0.CommandBuffer) error {
		err := cmd.CmdCopyBuffer(stagingBuffer.Handle, vertexBuffer.Handle, []core1_0.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: vertexBytes},
		})
		if err != nil {
			return errors.Wrap(err, "record vertex copy")
		}

		err = cmd.CmdCopyBuffer(stagingBuffer.Handle, indexBuffer.Handle, []core1_0.BufferCopy{
			{SrcOffset: vertexBytes, DstOffset: 0, Size: indexBytes},
		})
		return errors.Wrap(err, "record index copy")
	})
	if err != nil {
		return nil, err
	}
	c.transfers++

	return &GPUMesh{
		VertexBuffer:  vertexBuffer,
		IndexBuffer:   indexBuffer,
		VertexAddress: vertexAddress,
		IndexCount:    len(mesh.Indices),
	}, nil
}

// Get returns the resident buffers for a mesh identity
func (c *Cache) Get(id string) (*GPUMesh, bool) {
	c.readLock.Lock()
	defer c.readLock.Unlock()

	gpuMesh, ok := c.meshes[id]
	return gpuMesh, ok
}

// Len returns the number of resident meshes
func (c *Cache) Len() int {
	c.readLock.Lock()
	defer c.readLock.Unlock()

	return len(c.meshes)
}

// Transfers returns how many staging transfers the cache has submitted
func (c *Cache) Transfers() int {
	c.readLock.Lock()
	defer c.readLock.Unlock()

	return c.transfers
}

// Destroy releases every resident buffer. No in-flight frame may still reference them, so the
// device must be idle.
func (c *Cache) Destroy() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.logger.Debug("Cache::Destroy", slog.Int("meshes", len(c.meshes)))

	var err error
	for id, gpuMesh := range c.meshes {
		err = errors.CombineErrors(err, c.uploader.DestroyBuffer(gpuMesh.VertexBuffer))
		err = errors.CombineErrors(err, c.uploader.DestroyBuffer(gpuMesh.IndexBuffer))
		delete(c.meshes, id)
	}

	return errors.Wrap(err, "destroy mesh buffers")
}
