package gpu

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/core1_2"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
	"github.com/vkngwrapper/vkrender/internal/align"
	"golang.org/x/exp/slog"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

var minimumAPIVersion = common.Vulkan1_2

var requiredDeviceExtensions = []string{khr_swapchain.ExtensionName}

type deviceCandidate struct {
	device           core1_0.PhysicalDevice
	name             string
	score            int
	families         QueueFamilies
	uniformAlignment uint
}

// deviceTypeScore ranks physical device types, discrete GPUs first
func deviceTypeScore(deviceType core1_0.PhysicalDeviceType) int {
	switch deviceType {
	case core1_0.PhysicalDeviceTypeDiscreteGPU:
		return 1000
	case core1_0.PhysicalDeviceTypeIntegratedGPU:
		return 500
	case core1_0.PhysicalDeviceTypeVirtualGPU:
		return 100
	case core1_0.PhysicalDeviceTypeCPU:
		return 10
	default:
		return 1
	}
}

// selectQueueFamilies picks a graphics family and a present family, preferring a single family
// that does both. supportsPresent is consulted for every family index.
func selectQueueFamilies(families []*core1_0.QueueFamilyProperties, supportsPresent func(index int) (bool, error)) (QueueFamilies, bool, error) {
	graphics := -1
	present := -1

	for index, family := range families {
		isGraphics := family.QueueFlags&core1_0.QueueGraphics != 0

		canPresent, err := supportsPresent(index)
		if err != nil {
			return QueueFamilies{}, false, err
		}

		if isGraphics && canPresent {
			return QueueFamilies{Graphics: index, Present: index}, true, nil
		}

		if isGraphics && graphics < 0 {
			graphics = index
		}
		if canPresent && present < 0 {
			present = index
		}
	}

	if graphics < 0 || present < 0 {
		return QueueFamilies{}, false, nil
	}

	return QueueFamilies{Graphics: graphics, Present: present}, true, nil
}

func missingExtensions(available map[string]*core1_0.ExtensionProperties, required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func (c *Context) selectPhysicalDevice(preferred string) error {
	physicalDevices, _, err := c.instance.EnumeratePhysicalDevices()
	if err != nil {
		return errors.Wrap(err, "enumerate physical devices")
	}

	var candidates []deviceCandidate
	for _, physicalDevice := range physicalDevices {
		candidate, ok, err := c.evaluatePhysicalDevice(physicalDevice)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		if preferred != "" && candidate.name == preferred {
			candidate.score += 10000
		}
		candidates = append(candidates, candidate)
	}

	if len(candidates) == 0 {
		return errors.Newf("no physical device supports Vulkan %s with graphics, presentation and %v", minimumAPIVersion, requiredDeviceExtensions)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	chosen := candidates[0]
	err = align.CheckPow2(chosen.uniformAlignment, "minUniformBufferOffsetAlignment")
	if err != nil {
		return errors.Wrapf(err, "device %s", chosen.name)
	}

	c.physicalDevice = chosen.device
	c.deviceName = chosen.name
	c.queueFamilies = chosen.families
	c.uniformAlignment = chosen.uniformAlignment

	return nil
}

func (c *Context) evaluatePhysicalDevice(physicalDevice core1_0.PhysicalDevice) (deviceCandidate, bool, error) {
	properties, err := physicalDevice.Properties()
	if err != nil {
		return deviceCandidate{}, false, errors.Wrap(err, "read physical device properties")
	}

	logger := c.logger.With(slog.String("device", properties.DriverName))

	if !physicalDevice.DeviceAPIVersion().IsAtLeast(minimumAPIVersion) {
		logger.Debug("skipping device below minimum API version")
		return deviceCandidate{}, false, nil
	}

	extensions, _, err := physicalDevice.EnumerateDeviceExtensionProperties()
	if err != nil {
		return deviceCandidate{}, false, errors.Wrapf(err, "enumerate extensions of %s", properties.DriverName)
	}
	if missing := missingExtensions(extensions, requiredDeviceExtensions); len(missing) > 0 {
		logger.Debug("skipping device missing extensions", slog.Any("missing", missing))
		return deviceCandidate{}, false, nil
	}

	families, ok, err := selectQueueFamilies(physicalDevice.QueueFamilyProperties(), func(index int) (bool, error) {
		supported, _, err := c.surface.PhysicalDeviceSurfaceSupport(physicalDevice, index)
		return supported, err
	})
	if err != nil {
		return deviceCandidate{}, false, errors.Wrapf(err, "query presentation support of %s", properties.DriverName)
	}
	if !ok {
		logger.Debug("skipping device without graphics and present queues")
		return deviceCandidate{}, false, nil
	}

	return deviceCandidate{
		device:           physicalDevice,
		name:             properties.DriverName,
		score:            deviceTypeScore(properties.DriverType),
		families:         families,
		uniformAlignment: uint(properties.Limits.MinUniformBufferOffsetAlignment),
	}, true, nil
}

func (c *Context) createDevice() error {
	queueInfos := []core1_0.DeviceQueueCreateInfo{
		{
			QueueFamilyIndex: c.queueFamilies.Graphics,
			QueuePriorities:  []float32{1.0},
		},
	}
	if c.queueFamilies.Present != c.queueFamilies.Graphics {
		queueInfos = append(queueInfos, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: c.queueFamilies.Present,
			QueuePriorities:  []float32{1.0},
		})
	}

	device, _, err := c.physicalDevice.CreateDevice(nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queueInfos,
		EnabledExtensionNames: requiredDeviceExtensions,
		NextOptions: common.NextOptions{
			Next: core1_2.PhysicalDeviceBufferDeviceAddressFeatures{
				BufferDeviceAddress: true,
			},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "create logical device on %s", c.deviceName)
	}

	c.device = device
	c.teardown.PushFunc("device", func() { c.device.Destroy(nil) })

	c.graphicsQueue = device.GetQueue(c.queueFamilies.Graphics, 0)
	c.presentQueue = device.GetQueue(c.queueFamilies.Present, 0)

	return nil
}
