package gpu

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/vam"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/core1_2"
	"golang.org/x/exp/slog"
)

// Buffer is a native buffer handle paired with the allocation that backs it. A Buffer has
// no finalizer: it must be released with exactly one call to Context.DestroyBuffer.
type Buffer struct {
	Handle     core1_0.Buffer
	Allocation *vam.Allocation
	Size       int
	Usage      core1_0.BufferUsageFlags
	Memory     MemoryUsage

	// Mapped is the persistently-mapped host view of the buffer's memory. It is nil for
	// MemoryUsageGPUOnly buffers.
	Mapped []byte
}

// Write copies data into the buffer's mapped memory at the given offset and flushes the
// written range
func (b *Buffer) Write(offset int, data []byte) error {
	if b.Mapped == nil {
		return errors.Newf("attempted to write to a buffer that is not host visible: %s", b.Memory)
	}
	if offset < 0 || offset+len(data) > len(b.Mapped) {
		return errors.Newf("attempted to write %d bytes at offset %d into a buffer of size %d", len(data), offset, len(b.Mapped))
	}

	copy(b.Mapped[offset:], data)

	if b.Allocation != nil {
		_, err := b.Allocation.Flush(offset, len(data))
		if err != nil {
			return errors.Wrap(err, "flush mapped buffer range")
		}
	}

	return nil
}

// Image is a device-local image with a matching view covering its full mip chain
type Image struct {
	Handle     core1_0.Image
	View       core1_0.ImageView
	Allocation *vam.Allocation
	Extent     core1_0.Extent3D
	Format     core1_0.Format
	Aspect     core1_0.ImageAspectFlags
	MipLevels  int
}

// CreateBuffer allocates a buffer with the requested residency. Host-visible buffers are
// always persistently mapped.
func (c *Context) CreateBuffer(size int, usage core1_0.BufferUsageFlags, memory MemoryUsage) (*Buffer, error) {
	c.logger.Debug("Context::CreateBuffer", slog.Int("size", size), slog.String("memory", memory.String()))

	if size <= 0 {
		return nil, errors.Newf("attempted to create a buffer of size %d", size)
	}

	handle, _, err := c.device.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create buffer")
	}

	buffer := &Buffer{
		Handle:     handle,
		Allocation: &vam.Allocation{},
		Size:       size,
		Usage:      usage,
		Memory:     memory,
	}

	_, err = c.allocator.AllocateMemoryForBuffer(handle, memory.allocationCreateInfo(), buffer.Allocation)
	if err != nil {
		handle.Destroy(nil)
		return nil, errors.Wrapf(err, "allocate %d bytes of %s memory", size, memory)
	}

	_, err = buffer.Allocation.BindBufferMemory(handle)
	if err != nil {
		return nil, errors.CombineErrors(errors.Wrap(err, "bind buffer memory"), buffer.Allocation.DestroyBuffer(handle))
	}

	if memory.HostVisible() {
		ptr, _, err := buffer.Allocation.Map()
		if err != nil {
			return nil, errors.CombineErrors(errors.Wrap(err, "map buffer memory"), buffer.Allocation.DestroyBuffer(handle))
		}
		buffer.Mapped = unsafe.Slice((*byte)(ptr), size)
	}

	c.liveBuffers++
	return buffer, nil
}

// DestroyBuffer releases the native buffer and its allocation. The buffer must not be
// used afterward.
func (c *Context) DestroyBuffer(buffer *Buffer) error {
	c.logger.Debug("Context::DestroyBuffer")

	if buffer == nil || buffer.Handle == nil {
		panic("attempted to destroy a nil or already destroyed buffer")
	}

	if buffer.Mapped != nil {
		if err := buffer.Allocation.Unmap(); err != nil {
			return errors.Wrap(err, "unmap buffer memory")
		}
		buffer.Mapped = nil
	}

	err := buffer.Allocation.DestroyBuffer(buffer.Handle)
	buffer.Handle = nil
	buffer.Allocation = nil
	c.liveBuffers--

	return errors.Wrap(err, "destroy buffer")
}

// BufferAddress returns the device address of a buffer created with the shader device
// address usage flag
func (c *Context) BufferAddress(buffer *Buffer) (uint64, error) {
	if c.addresses == nil {
		return 0, errors.New("buffer device addresses are not supported by the selected device")
	}

	address, err := c.addresses.GetBufferDeviceAddress(core1_2.BufferDeviceAddressInfo{
		Buffer: buffer.Handle,
	})
	if err != nil {
		return 0, errors.Wrap(err, "get buffer device address")
	}

	return address, nil
}

// CreateImage allocates a device-local image and a view over it. When mipmapped is set the
// image receives a full mip chain. The view aspect follows the format: depth and stencil
// formats get depth and/or stencil views, everything else a colour view.
func (c *Context) CreateImage(extent core1_0.Extent3D, format core1_0.Format, usage core1_0.ImageUsageFlags, mipmapped bool) (*Image, error) {
	c.logger.Debug("Context::CreateImage",
		slog.Int("width", extent.Width),
		slog.Int("height", extent.Height),
		slog.String("format", format.String()),
		slog.Bool("mipmapped", mipmapped),
	)

	mipLevels := 1
	if mipmapped {
		mipLevels = MipLevels(extent.Width, extent.Height)
	}

	handle, _, err := c.device.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType:     core1_0.ImageType2D,
		Format:        format,
		Extent:        extent,
		MipLevels:     mipLevels,
		ArrayLayers:   1,
		Samples:       core1_0.Samples1,
		Tiling:        core1_0.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   core1_0.SharingModeExclusive,
		InitialLayout: core1_0.ImageLayoutUndefined,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create image")
	}

	image := &Image{
		Handle:     handle,
		Allocation: &vam.Allocation{},
		Extent:     extent,
		Format:     format,
		Aspect:     AspectForFormat(format),
		MipLevels:  mipLevels,
	}

	_, err = c.allocator.AllocateMemoryForImage(handle, MemoryUsageGPUOnly.allocationCreateInfo(), image.Allocation)
	if err != nil {
		handle.Destroy(nil)
		return nil, errors.Wrap(err, "allocate image memory")
	}

	_, err = image.Allocation.BindImageMemory(handle)
	if err != nil {
		return nil, errors.CombineErrors(errors.Wrap(err, "bind image memory"), image.Allocation.DestroyImage(handle))
	}

	image.View, _, err = c.device.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    handle,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     image.Aspect,
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	if err != nil {
		return nil, errors.CombineErrors(errors.Wrap(err, "create image view"), image.Allocation.DestroyImage(handle))
	}

	c.liveImages++
	return image, nil
}

// DestroyImage releases the view, the native image and its allocation. The image must not
// be used afterward.
func (c *Context) DestroyImage(image *Image) error {
	c.logger.Debug("Context::DestroyImage")

	if image == nil || image.Handle == nil {
		panic("attempted to destroy a nil or already destroyed image")
	}

	image.View.Destroy(nil)
	err := image.Allocation.DestroyImage(image.Handle)

	image.View = nil
	image.Handle = nil
	image.Allocation = nil
	c.liveImages--

	return errors.Wrap(err, "destroy image")
}
