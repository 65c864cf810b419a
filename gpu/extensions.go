package gpu

import (
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/core1_2"
	"github.com/vkngwrapper/extensions/v2/khr_buffer_device_address"
	khr_buffer_device_address_shim "github.com/vkngwrapper/extensions/v2/khr_buffer_device_address/shim"
)

type deviceAddressSource interface {
	GetBufferDeviceAddress(o core1_2.BufferDeviceAddressInfo) (uint64, error)
}

// newDeviceAddressSource finds the entry point for buffer device addresses: core 1.2 when the
// device was promoted, the khr_buffer_device_address extension otherwise. It returns nil when
// neither is available.
func newDeviceAddressSource(device core1_0.Device) deviceAddressSource {
	device12 := core1_2.PromoteDevice(device)
	if device12 != nil {
		return device12
	}

	if device.IsDeviceExtensionActive(khr_buffer_device_address.ExtensionName) {
		extension := khr_buffer_device_address.CreateExtensionFromDevice(device)
		return khr_buffer_device_address_shim.NewShim(extension, device)
	}

	return nil
}
