package frame

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/vkrender/descriptors"
	"github.com/vkngwrapper/vkrender/teardown"
	"golang.org/x/exp/slog"
)

// Slot is one of the rotating sets of per-frame resources. A slot is only touched by the CPU
// after RenderFence reports that the GPU finished the work last submitted from it.
type Slot struct {
	Index int

	CommandPool core1_0.CommandPool
	Commands    core1_0.CommandBuffer

	// RenderFence is created signaled so the first wait on a fresh slot returns immediately
	RenderFence      core1_0.Fence
	AcquireSemaphore core1_0.Semaphore
	RenderSemaphore  core1_0.Semaphore

	// Teardown holds releases for resources created while recording this slot's frame. It is
	// flushed the next time the slot comes around, once its fence has signaled.
	Teardown teardown.Queue
	// Descriptors allocates this frame's descriptor sets. Its pools are reset along with Teardown.
	Descriptors *descriptors.Allocator

	resources teardown.Queue
}

// SlotOptions configure the per-slot descriptor allocator
type SlotOptions struct {
	QueueFamily    int
	DescriptorSets int
	PoolRatios     []descriptors.PoolSizeRatio
	PoolFlags      core1_0.DescriptorPoolCreateFlags
}

// NewSlots creates count frame slots. If any creation fails, every slot built so far is
// released and the error is returned.
func NewSlots(logger *slog.Logger, device core1_0.Device, count int, options SlotOptions) ([]*Slot, error) {
	if count < 2 || count > 3 {
		return nil, errors.Newf("frame slot count must be 2 or 3, got %d", count)
	}

	slots := make([]*Slot, 0, count)
	for i := 0; i < count; i++ {
		slot, err := newSlot(logger, device, i, options)
		if err != nil {
			for _, built := range slots {
				err = errors.CombineErrors(err, built.Destroy())
			}
			return nil, err
		}
		slots = append(slots, slot)
	}

	return slots, nil
}

func newSlot(logger *slog.Logger, device core1_0.Device, index int, options SlotOptions) (*Slot, error) {
	slot := &Slot{Index: index}
	name := "slot " + strconv.Itoa(index)

	err := slot.init(logger, device, options)
	if err != nil {
		return nil, errors.CombineErrors(errors.Wrapf(err, "create %s", name), slot.resources.Flush())
	}

	return slot, nil
}

func (s *Slot) init(logger *slog.Logger, device core1_0.Device, options SlotOptions) error {
	pool, _, err := device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateResetBuffer,
		QueueFamilyIndex: options.QueueFamily,
	})
	if err != nil {
		return errors.Wrap(err, "create command pool")
	}
	s.CommandPool = pool
	s.resources.PushFunc("command pool", func() { pool.Destroy(nil) })

	buffers, _, err := device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return errors.Wrap(err, "allocate command buffer")
	}
	s.Commands = buffers[0]

	fence, _, err := device.CreateFence(nil, core1_0.FenceCreateInfo{
		Flags: core1_0.FenceCreateSignaled,
	})
	if err != nil {
		return errors.Wrap(err, "create render fence")
	}
	s.RenderFence = fence
	s.resources.PushFunc("render fence", func() { fence.Destroy(nil) })

	s.AcquireSemaphore, _, err = device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return errors.Wrap(err, "create acquire semaphore")
	}
	acquire := s.AcquireSemaphore
	s.resources.PushFunc("acquire semaphore", func() { acquire.Destroy(nil) })

	s.RenderSemaphore, _, err = device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return errors.Wrap(err, "create render semaphore")
	}
	render := s.RenderSemaphore
	s.resources.PushFunc("render semaphore", func() { render.Destroy(nil) })

	if options.DescriptorSets > 0 {
		s.Descriptors, err = descriptors.NewAllocator(logger, device, options.DescriptorSets, options.PoolRatios, options.PoolFlags)
		if err != nil {
			return err
		}
		allocator := s.Descriptors
		s.resources.PushFunc("descriptor pools", allocator.DestroyPools)
	}

	return nil
}

// Recycle releases everything the slot's previous frame deferred and resets its descriptor pools.
// It must only be called once the slot's fence has signaled.
func (s *Slot) Recycle() error {
	err := s.Teardown.Flush()
	if s.Descriptors != nil {
		err = errors.CombineErrors(err, s.Descriptors.ClearPools())
	}
	return err
}

// Destroy releases the slot's pending frame resources and then its own primitives. The device
// must be idle.
func (s *Slot) Destroy() error {
	return errors.CombineErrors(s.Teardown.Flush(), s.resources.Flush())
}
