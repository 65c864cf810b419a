package gpu

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/vam"
	"github.com/vkngwrapper/core/v2"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_surface"
	"github.com/vkngwrapper/vkrender/teardown"
	"golang.org/x/exp/slog"
)

// SurfaceSource is the windowing collaborator the context binds to. It reports the instance
// extensions the window system needs and creates the presentation surface once the instance
// exists.
type SurfaceSource interface {
	RequiredInstanceExtensions() []string
	CreateSurface(instance core1_0.Instance, extension khr_surface.Extension) (khr_surface.Surface, error)
}

// Options control instance and device creation
type Options struct {
	ApplicationName string
	// EnableValidation requests the Khronos validation layer. It is silently skipped if the
	// layer is not installed.
	EnableValidation bool
	// PreferredDevice selects a physical device by name when more than one qualifies
	PreferredDevice string
}

// QueueFamilies holds the queue family indices the context selected
type QueueFamilies struct {
	Graphics int
	Present  int
}

// Context owns the instance, the selected physical device, the logical device, its queues
// and the memory allocator. Every other component holds a non-owning reference to it, so
// the context must be destroyed last.
type Context struct {
	logger *slog.Logger

	loader         *core.VulkanLoader
	instance       core1_0.Instance
	surface        khr_surface.Surface
	physicalDevice core1_0.PhysicalDevice
	deviceName     string
	device         core1_0.Device
	queueFamilies  QueueFamilies
	graphicsQueue  core1_0.Queue
	presentQueue   core1_0.Queue
	allocator      *vam.Allocator
	addresses      deviceAddressSource

	// minUniformBufferOffsetAlignment of the selected device
	uniformAlignment uint

	immediate immediateCommands
	teardown  teardown.Queue

	liveBuffers int
	liveImages  int
}

// New builds a context bound to the window's surface. Any native creation failure is fatal:
// whatever was built before the failure is released and the error is returned.
func New(logger *slog.Logger, window SurfaceSource, options Options) (*Context, error) {
	c := &Context{logger: logger}

	err := c.init(window, options)
	if err != nil {
		return nil, errors.CombineErrors(err, c.teardown.Flush())
	}

	logger.Info("GPU context ready",
		slog.String("device", c.deviceName),
		slog.Int("graphicsQueueFamily", c.queueFamilies.Graphics),
		slog.Int("presentQueueFamily", c.queueFamilies.Present),
	)

	return c, nil
}

func (c *Context) init(window SurfaceSource, options Options) error {
	var err error

	c.loader, err = core.CreateSystemLoader()
	if err != nil {
		return errors.Wrap(err, "create vulkan loader")
	}

	err = c.createInstance(window.RequiredInstanceExtensions(), options)
	if err != nil {
		return err
	}

	surfaceExtension := khr_surface.CreateExtensionFromInstance(c.instance)
	if surfaceExtension == nil {
		return errors.Newf("instance extension %s is not active", khr_surface.ExtensionName)
	}

	c.surface, err = window.CreateSurface(c.instance, surfaceExtension)
	if err != nil {
		return errors.Wrap(err, "create window surface")
	}
	c.teardown.PushFunc("surface", func() { c.surface.Destroy(nil) })

	err = c.selectPhysicalDevice(options.PreferredDevice)
	if err != nil {
		return err
	}

	err = c.createDevice()
	if err != nil {
		return err
	}

	c.allocator, err = vam.New(c.logger, c.instance, c.physicalDevice, c.device, vam.CreateOptions{
		// The render loop drives every allocation from a single goroutine
		Flags: vam.AllocatorCreateExternallySynchronized,
	})
	if err != nil {
		return errors.Wrap(err, "create memory allocator")
	}
	c.trackAllocator(c.allocator.Destroy)

	c.addresses = newDeviceAddressSource(c.device)

	return c.initImmediate()
}

// trackAllocator queues the allocator release ahead of the device. vam refuses to release
// while allocations are outstanding, so a leaked buffer or image surfaces as a teardown error.
func (c *Context) trackAllocator(destroy func() error) {
	c.teardown.Push("memory allocator", destroy)
}

func (c *Context) createInstance(windowExtensions []string, options Options) error {
	extensions := append([]string{}, windowExtensions...)
	var layers []string

	if options.EnableValidation {
		available, _, err := c.loader.AvailableLayers()
		if err != nil {
			return errors.Wrap(err, "enumerate instance layers")
		}

		if _, ok := available[validationLayer]; ok {
			layers = append(layers, validationLayer)
		} else {
			c.logger.Warn("validation requested but the validation layer is not installed")
		}
	}

	instance, _, err := c.loader.CreateInstance(nil, core1_0.InstanceCreateInfo{
		ApplicationName:       options.ApplicationName,
		ApplicationVersion:    common.CreateVersion(1, 0, 0),
		EngineName:            "vkrender",
		EngineVersion:         common.CreateVersion(1, 0, 0),
		APIVersion:            minimumAPIVersion,
		EnabledExtensionNames: extensions,
		EnabledLayerNames:     layers,
	})
	if err != nil {
		return errors.Wrap(err, "create instance")
	}

	c.instance = instance
	c.teardown.PushFunc("instance", func() { c.instance.Destroy(nil) })

	return nil
}

// Device returns the logical device
func (c *Context) Device() core1_0.Device { return c.device }

// PhysicalDevice returns the selected physical device
func (c *Context) PhysicalDevice() core1_0.PhysicalDevice { return c.physicalDevice }

// Instance returns the Vulkan instance
func (c *Context) Instance() core1_0.Instance { return c.instance }

// Surface returns the presentation surface of the bound window
func (c *Context) Surface() khr_surface.Surface { return c.surface }

// QueueFamilies returns the graphics and present queue family indices
func (c *Context) QueueFamilies() QueueFamilies { return c.queueFamilies }

// GraphicsQueue returns the queue all rendering and transfer work is submitted to
func (c *Context) GraphicsQueue() core1_0.Queue { return c.graphicsQueue }

// PresentQueue returns the queue presentation requests are submitted to
func (c *Context) PresentQueue() core1_0.Queue { return c.presentQueue }

// LiveResources returns the number of buffers and images created through the context that
// have not been destroyed yet
func (c *Context) LiveResources() (buffers int, images int) {
	return c.liveBuffers, c.liveImages
}

// UniformBufferAlignment returns the alignment uniform buffer offsets and sizes are rounded to
func (c *Context) UniformBufferAlignment() uint { return c.uniformAlignment }

// WaitIdle blocks until the device has finished all submitted work
func (c *Context) WaitIdle() error {
	_, err := c.device.WaitIdle()
	return errors.Wrap(err, "wait for device idle")
}

// Destroy waits for the device to go idle and releases everything the context owns in
// reverse creation order. Every buffer and image must have been destroyed beforehand.
func (c *Context) Destroy() error {
	c.logger.Debug("Context::Destroy")

	var err error
	if c.device != nil {
		err = c.WaitIdle()
	}

	if c.liveBuffers != 0 || c.liveImages != 0 {
		c.logger.Warn("GPU resources still alive at context teardown",
			slog.Int("buffers", c.liveBuffers),
			slog.Int("images", c.liveImages),
		)
	}

	return errors.CombineErrors(err, c.teardown.Flush())
}
