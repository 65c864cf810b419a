package gpu

import (
	"github.com/vkngwrapper/arsenal/memutils"
	"github.com/vkngwrapper/arsenal/vam"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// MemoryUsage selects the residency of a buffer created through Context.CreateBuffer
type MemoryUsage int32

const (
	// MemoryUsageGPUOnly places the buffer in device-local memory. The buffer is never mapped
	// and must be filled through a transfer command.
	MemoryUsageGPUOnly MemoryUsage = iota
	// MemoryUsageCPUToGPU places the buffer in host-visible memory that the device reads
	// efficiently, preferring device-local memory when it is also host-visible. The buffer
	// is persistently mapped.
	MemoryUsageCPUToGPU
	// MemoryUsageCPUOnly places the buffer in host-visible, host-coherent memory. This is
	// the residency used for staging buffers. The buffer is persistently mapped.
	MemoryUsageCPUOnly
)

var memoryUsageMapping = map[MemoryUsage]string{
	MemoryUsageGPUOnly:  "MemoryUsageGPUOnly",
	MemoryUsageCPUToGPU: "MemoryUsageCPUToGPU",
	MemoryUsageCPUOnly:  "MemoryUsageCPUOnly",
}

func (u MemoryUsage) String() string {
	str, ok := memoryUsageMapping[u]
	if !ok {
		return "unknown"
	}
	return str
}

// HostVisible reports whether buffers of this residency are mapped into host memory
func (u MemoryUsage) HostVisible() bool {
	return u == MemoryUsageCPUToGPU || u == MemoryUsageCPUOnly
}

func (u MemoryUsage) allocationCreateInfo() vam.AllocationCreateInfo {
	switch u {
	case MemoryUsageCPUToGPU:
		return vam.AllocationCreateInfo{
			Flags:          memutils.AllocationCreateMapped | memutils.AllocationCreateHostAccessSequentialWrite,
			Usage:          vam.MemoryUsageAuto,
			RequiredFlags:  core1_0.MemoryPropertyHostVisible,
			PreferredFlags: core1_0.MemoryPropertyDeviceLocal,
		}
	case MemoryUsageCPUOnly:
		return vam.AllocationCreateInfo{
			Flags:         memutils.AllocationCreateMapped | memutils.AllocationCreateHostAccessSequentialWrite,
			Usage:         vam.MemoryUsageAutoPreferHost,
			RequiredFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent,
		}
	default:
		return vam.AllocationCreateInfo{
			Usage:         vam.MemoryUsageAutoPreferDevice,
			RequiredFlags: core1_0.MemoryPropertyDeviceLocal,
		}
	}
}
