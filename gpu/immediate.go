package gpu

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
)

type immediateCommands struct {
	pool     core1_0.CommandPool
	commands core1_0.CommandBuffer
	fence    core1_0.Fence
}

func (c *Context) initImmediate() error {
	pool, _, err := c.device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateResetBuffer,
		QueueFamilyIndex: c.queueFamilies.Graphics,
	})
	if err != nil {
		return errors.Wrap(err, "create immediate command pool")
	}
	c.immediate.pool = pool
	c.teardown.PushFunc("immediate command pool", func() { pool.Destroy(nil) })

	buffers, _, err := c.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return errors.Wrap(err, "allocate immediate command buffer")
	}
	c.immediate.commands = buffers[0]

	fence, _, err := c.device.CreateFence(nil, core1_0.FenceCreateInfo{})
	if err != nil {
		return errors.Wrap(err, "create immediate fence")
	}
	c.immediate.fence = fence
	c.teardown.PushFunc("immediate fence", func() { fence.Destroy(nil) })

	return nil
}

// ImmediateSubmit records work into a dedicated command buffer, submits it to the graphics
// queue and blocks until the GPU has executed it. It is meant for setup and transfer work;
// calling it from the frame loop stalls the pipeline.
func (c *Context) ImmediateSubmit(work func(cmd core1_0.CommandBuffer) error) error {
	c.logger.Debug("Context::ImmediateSubmit")

	fences := []core1_0.Fence{c.immediate.fence}
	cmd := c.immediate.commands

	_, err := c.device.ResetFences(fences)
	if err != nil {
		return errors.Wrap(err, "reset immediate fence")
	}

	_, err = cmd.Reset(0)
	if err != nil {
		return errors.Wrap(err, "reset immediate command buffer")
	}

	_, err = cmd.Begin(core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return errors.Wrap(err, "begin immediate command buffer")
	}

	workErr := work(cmd)

	_, err = cmd.End()
	if workErr != nil {
		return errors.Wrap(workErr, "record immediate commands")
	}
	if err != nil {
		return errors.Wrap(err, "end immediate command buffer")
	}

	_, err = c.graphicsQueue.Submit(c.immediate.fence, []core1_0.SubmitInfo{
		{
			CommandBuffers: []core1_0.CommandBuffer{cmd},
		},
	})
	if err != nil {
		return errors.Wrap(err, "submit immediate commands")
	}

	_, err = c.device.WaitForFences(true, common.NoTimeout, fences)
	return errors.Wrap(err, "wait for immediate commands")
}
