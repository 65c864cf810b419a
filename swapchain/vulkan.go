package swapchain

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_surface"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
	"github.com/vkngwrapper/vkrender/gpu"
	"golang.org/x/exp/slog"
)

// VulkanBackend builds swapchains through VK_KHR_swapchain against the context's surface
type VulkanBackend struct {
	logger *slog.Logger

	device         core1_0.Device
	physicalDevice core1_0.PhysicalDevice
	surface        khr_surface.Surface
	extension      khr_swapchain.Extension
	families       gpu.QueueFamilies
	presentMode    khr_surface.PresentMode

	handle khr_swapchain.Swapchain
}

var _ Backend = &VulkanBackend{}

// NewVulkanBackend prepares a backend for the context's device and surface. presentMode is
// honored when the surface supports it.
func NewVulkanBackend(logger *slog.Logger, context *gpu.Context, presentMode khr_surface.PresentMode) *VulkanBackend {
	return &VulkanBackend{
		logger:         logger,
		device:         context.Device(),
		physicalDevice: context.PhysicalDevice(),
		surface:        context.Surface(),
		extension:      khr_swapchain.CreateExtensionFromDevice(context.Device()),
		families:       context.QueueFamilies(),
		presentMode:    presentMode,
	}
}

func (b *VulkanBackend) Build(width, height int) (*Chain, error) {
	capabilities, _, err := b.surface.PhysicalDeviceSurfaceCapabilities(b.physicalDevice)
	if err != nil {
		return nil, errors.Wrap(err, "query surface capabilities")
	}

	formats, _, err := b.surface.PhysicalDeviceSurfaceFormats(b.physicalDevice)
	if err != nil {
		return nil, errors.Wrap(err, "query surface formats")
	}
	if len(formats) == 0 {
		return nil, errors.New("surface reports no formats")
	}

	modes, _, err := b.surface.PhysicalDeviceSurfacePresentModes(b.physicalDevice)
	if err != nil {
		return nil, errors.Wrap(err, "query surface present modes")
	}

	format := ChooseSurfaceFormat(formats)
	presentMode := ChoosePresentMode(modes, b.presentMode)
	extent := ChooseExtent(capabilities, width, height)

	sharingMode := core1_0.SharingModeExclusive
	var queueFamilyIndices []int
	if b.families.Graphics != b.families.Present {
		sharingMode = core1_0.SharingModeConcurrent
		queueFamilyIndices = []int{b.families.Graphics, b.families.Present}
	}

	handle, _, err := b.extension.CreateSwapchain(b.device, nil, khr_swapchain.SwapchainCreateInfo{
		Surface: b.surface,

		MinImageCount:    ChooseImageCount(capabilities),
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		// The frame renderer blits its offscreen draw image into the presentable image
		ImageUsage: core1_0.ImageUsageColorAttachment | core1_0.ImageUsageTransferDst,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    presentMode,
		Clipped:        true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create swapchain")
	}
	b.handle = handle

	images, _, err := handle.SwapchainImages()
	if err != nil {
		handle.Destroy(nil)
		b.handle = nil
		return nil, errors.Wrap(err, "read swapchain images")
	}

	chain := &Chain{
		Images: images,
		Format: format.Format,
		Extent: extent,
	}

	for index, image := range images {
		view, _, err := b.device.CreateImageView(nil, core1_0.ImageViewCreateInfo{
			Image:    image,
			ViewType: core1_0.ImageViewType2D,
			Format:   format.Format,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if err != nil {
			return nil, errors.CombineErrors(
				errors.Wrapf(err, "create view for swapchain image %d", index),
				b.Release(chain),
			)
		}
		chain.Views = append(chain.Views, view)
	}

	b.logger.Debug("VulkanBackend::Build",
		slog.Int("width", extent.Width),
		slog.Int("height", extent.Height),
		slog.Any("presentMode", presentMode),
	)

	return chain, nil
}

func (b *VulkanBackend) Release(chain *Chain) error {
	for _, view := range chain.Views {
		view.Destroy(nil)
	}
	chain.Views = nil
	chain.Images = nil

	if b.handle != nil {
		b.handle.Destroy(nil)
		b.handle = nil
	}
	return nil
}

func (b *VulkanBackend) WaitIdle() error {
	_, err := b.device.WaitIdle()
	return err
}

func classify(result common.VkResult) PresentResult {
	switch result {
	case khr_swapchain.VKErrorOutOfDate:
		return ResultOutOfDate
	case khr_swapchain.VKSuboptimal:
		return ResultSuboptimal
	default:
		return ResultSuccess
	}
}

func (b *VulkanBackend) AcquireNextImage(signal core1_0.Semaphore) (int, PresentResult, error) {
	index, result, err := b.handle.AcquireNextImage(common.NoTimeout, signal, nil)
	return index, classify(result), err
}

func (b *VulkanBackend) Present(queue core1_0.Queue, wait core1_0.Semaphore, imageIndex int) (PresentResult, error) {
	result, err := b.extension.QueuePresent(queue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{wait},
		Swapchains:     []khr_swapchain.Swapchain{b.handle},
		ImageIndices:   []int{imageIndex},
	})
	return classify(result), err
}
