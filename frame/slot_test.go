package frame

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/mocks"
)

type slotMocks struct {
	pool       *mocks.MockCommandPool
	commands   *mocks.MockCommandBuffer
	fence      *mocks.MockFence
	semaphores []*mocks.MockSemaphore
}

func expectSlot(ctrl *gomock.Controller, device *mocks.MockDevice, semaphoreErr error) slotMocks {
	m := slotMocks{
		pool:     mocks.NewMockCommandPool(ctrl),
		commands: mocks.NewMockCommandBuffer(ctrl),
		fence:    mocks.NewMockFence(ctrl),
	}

	device.EXPECT().CreateCommandPool(gomock.Any(), core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateResetBuffer,
		QueueFamilyIndex: 2,
	}).Return(m.pool, core1_0.VKSuccess, nil)
	device.EXPECT().AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        m.pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}).Return([]core1_0.CommandBuffer{m.commands}, core1_0.VKSuccess, nil)
	device.EXPECT().CreateFence(gomock.Any(), core1_0.FenceCreateInfo{
		Flags: core1_0.FenceCreateSignaled,
	}).Return(m.fence, core1_0.VKSuccess, nil)

	acquire := mocks.NewMockSemaphore(ctrl)
	m.semaphores = append(m.semaphores, acquire)
	device.EXPECT().CreateSemaphore(gomock.Any(), core1_0.SemaphoreCreateInfo{}).Return(acquire, core1_0.VKSuccess, nil)

	if semaphoreErr != nil {
		device.EXPECT().CreateSemaphore(gomock.Any(), core1_0.SemaphoreCreateInfo{}).Return(nil, core1_0.VKErrorOutOfHostMemory, semaphoreErr)
		return m
	}

	render := mocks.NewMockSemaphore(ctrl)
	m.semaphores = append(m.semaphores, render)
	device.EXPECT().CreateSemaphore(gomock.Any(), core1_0.SemaphoreCreateInfo{}).Return(render, core1_0.VKSuccess, nil)

	return m
}

func (m slotMocks) expectDestroy() {
	m.pool.EXPECT().Destroy(nil)
	m.fence.EXPECT().Destroy(nil)
	for _, semaphore := range m.semaphores {
		semaphore.EXPECT().Destroy(nil)
	}
}

func TestNewSlots(t *testing.T) {
	ctrl := gomock.NewController(t)
	device := mocks.NewMockDevice(ctrl)

	first := expectSlot(ctrl, device, nil)
	second := expectSlot(ctrl, device, nil)

	slots, err := NewSlots(testLogger(), device, 2, SlotOptions{QueueFamily: 2})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.Equal(t, 1, slots[1].Index)
	require.Equal(t, first.commands, slots[0].Commands)
	require.Equal(t, second.fence, slots[1].RenderFence)
	require.Nil(t, slots[0].Descriptors)

	first.expectDestroy()
	second.expectDestroy()
	for _, slot := range slots {
		require.NoError(t, slot.Destroy())
	}
}

func TestNewSlots_FailureReleasesEarlierSlots(t *testing.T) {
	ctrl := gomock.NewController(t)
	device := mocks.NewMockDevice(ctrl)

	first := expectSlot(ctrl, device, nil)
	second := expectSlot(ctrl, device, errors.New("out of host memory"))
	first.expectDestroy()
	second.expectDestroy()

	_, err := NewSlots(testLogger(), device, 2, SlotOptions{QueueFamily: 2})
	require.ErrorContains(t, err, "create slot 1")
	require.ErrorContains(t, err, "out of host memory")
}

func TestNewSlots_RejectsCount(t *testing.T) {
	ctrl := gomock.NewController(t)
	device := mocks.NewMockDevice(ctrl)

	_, err := NewSlots(testLogger(), device, 4, SlotOptions{})
	require.Error(t, err)

	_, err = NewSlots(testLogger(), device, 1, SlotOptions{})
	require.Error(t, err)
}

func TestSlot_DestroyFlushesPendingReleases(t *testing.T) {
	var order []string
	slot := &Slot{}
	slot.resources.PushFunc("fence", func() { order = append(order, "fence") })
	slot.Teardown.PushFunc("uniforms", func() { order = append(order, "uniforms") })

	require.NoError(t, slot.Destroy())
	require.Equal(t, []string{"uniforms", "fence"}, order)
}
