package pipeline

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// RenderPassInfo describes a single-subpass render pass that clears a colour target and an
// optional depth target. The colour target ends in TRANSFER_SRC_OPTIMAL so it can be blitted to
// the presentable image straight away; the outgoing dependency makes colour writes visible to
// that blit.
func RenderPassInfo(colorFormat, depthFormat core1_0.Format) core1_0.RenderPassCreateInfo {
	attachments := []core1_0.AttachmentDescription{
		{
			Format:         colorFormat,
			Samples:        core1_0.Samples1,
			LoadOp:         core1_0.AttachmentLoadOpClear,
			StoreOp:        core1_0.AttachmentStoreOpStore,
			StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
			StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
			InitialLayout:  core1_0.ImageLayoutUndefined,
			FinalLayout:    core1_0.ImageLayoutTransferSrcOptimal,
		},
	}

	subpass := core1_0.SubpassDescription{
		PipelineBindPoint: core1_0.PipelineBindPointGraphics,
		ColorAttachments: []core1_0.AttachmentReference{
			{
				Attachment: 0,
				Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
			},
		},
	}

	stages := core1_0.PipelineStageColorAttachmentOutput
	access := core1_0.AccessColorAttachmentWrite

	if depthFormat != core1_0.FormatUndefined {
		attachments = append(attachments, core1_0.AttachmentDescription{
			Format:         depthFormat,
			Samples:        core1_0.Samples1,
			LoadOp:         core1_0.AttachmentLoadOpClear,
			StoreOp:        core1_0.AttachmentStoreOpDontCare,
			StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
			StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
			InitialLayout:  core1_0.ImageLayoutUndefined,
			FinalLayout:    core1_0.ImageLayoutDepthStencilAttachmentOptimal,
		})
		subpass.DepthStencilAttachment = &core1_0.AttachmentReference{
			Attachment: 1,
			Layout:     core1_0.ImageLayoutDepthStencilAttachmentOptimal,
		}

		stages |= core1_0.PipelineStageEarlyFragmentTests
		access |= core1_0.AccessDepthStencilAttachmentWrite
	}

	return core1_0.RenderPassCreateInfo{
		Attachments: attachments,
		Subpasses:   []core1_0.SubpassDescription{subpass},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass:    core1_0.SubpassExternal,
				DstSubpass:    0,
				SrcStageMask:  stages,
				SrcAccessMask: 0,
				DstStageMask:  stages,
				DstAccessMask: access,
			},
			{
				SrcSubpass:    0,
				DstSubpass:    core1_0.SubpassExternal,
				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				SrcAccessMask: core1_0.AccessColorAttachmentWrite,
				DstStageMask:  core1_0.PipelineStageTransfer,
				DstAccessMask: core1_0.AccessTransferRead,
			},
		},
	}
}

// NewRenderPass creates the render pass described by RenderPassInfo. Pass FormatUndefined as
// depthFormat for a colour-only pass.
func NewRenderPass(device core1_0.Device, colorFormat, depthFormat core1_0.Format) (core1_0.RenderPass, error) {
	renderPass, _, err := device.CreateRenderPass(nil, RenderPassInfo(colorFormat, depthFormat))
	if err != nil {
		return nil, errors.Wrap(err, "create render pass")
	}
	return renderPass, nil
}

// NewFramebuffer binds the attachment views to a render pass at the given size
func NewFramebuffer(device core1_0.Device, renderPass core1_0.RenderPass, extent core1_0.Extent2D, attachments ...core1_0.ImageView) (core1_0.Framebuffer, error) {
	framebuffer, _, err := device.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
		RenderPass:  renderPass,
		Attachments: attachments,
		Width:       extent.Width,
		Height:      extent.Height,
		Layers:      1,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create %dx%d framebuffer", extent.Width, extent.Height)
	}
	return framebuffer, nil
}
