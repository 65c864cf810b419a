package pipeline

import (
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/mocks"
)

func TestBuilder_ClearedDefaults(t *testing.T) {
	info := NewBuilder().CreateInfo()

	require.Empty(t, info.Stages)
	require.Equal(t, float32(1.0), info.RasterizationState.LineWidth)
	require.Equal(t, core1_0.Samples1, info.MultisampleState.RasterizationSamples)
	require.Equal(t, -1, info.BasePipelineIndex)
	require.Equal(t, []core1_0.DynamicState{core1_0.DynamicStateViewport, core1_0.DynamicStateScissor}, info.DynamicState.DynamicStates)
	require.Len(t, info.ViewportState.Viewports, 1)
	require.Len(t, info.ViewportState.Scissors, 1)
}

func TestBuilder_CreateInfo(t *testing.T) {
	ctrl := gomock.NewController(t)
	vertex := mocks.NewMockShaderModule(ctrl)
	fragment := mocks.NewMockShaderModule(ctrl)
	layout := mocks.NewMockPipelineLayout(ctrl)
	renderPass := mocks.NewMockRenderPass(ctrl)

	builder := NewBuilder().
		SetShaders(vertex, fragment).
		SetInputTopology(core1_0.PrimitiveTopologyTriangleList).
		SetPolygonMode(core1_0.PolygonModeFill).
		SetCullMode(core1_0.CullModeBack, core1_0.FrontFaceCounterClockwise).
		DisableMultisampling().
		EnableBlendingAlphaBlend().
		SetColorAttachmentFormat(core1_0.FormatR16G16B16A16SignedFloat).
		SetDepthFormat(core1_0.FormatD32SignedFloat).
		EnableDepthTest(true, core1_0.CompareOpGreaterOrEqual).
		SetLayout(layout).
		SetRenderPass(renderPass, 0)

	info := builder.CreateInfo()

	require.Len(t, info.Stages, 2)
	require.Equal(t, core1_0.StageVertex, info.Stages[0].Stage)
	require.Equal(t, vertex, info.Stages[0].Module)
	require.Equal(t, core1_0.StageFragment, info.Stages[1].Stage)
	require.Equal(t, "main", info.Stages[1].Name)

	require.Equal(t, core1_0.PrimitiveTopologyTriangleList, info.InputAssemblyState.Topology)
	require.Equal(t, core1_0.CullModeBack, info.RasterizationState.CullMode)
	require.Equal(t, core1_0.FrontFaceCounterClockwise, info.RasterizationState.FrontFace)

	require.True(t, info.DepthStencilState.DepthTestEnable)
	require.True(t, info.DepthStencilState.DepthWriteEnable)
	require.Equal(t, core1_0.CompareOpGreaterOrEqual, info.DepthStencilState.DepthCompareOp)

	require.Len(t, info.ColorBlendState.Attachments, 1)
	blend := info.ColorBlendState.Attachments[0]
	require.True(t, blend.BlendEnabled)
	require.Equal(t, core1_0.BlendFactorOneMinusSrcAlpha, blend.DstColorBlendFactor)

	require.Equal(t, layout, info.Layout)
	require.Equal(t, renderPass, info.RenderPass)

	// CreateInfo hands out copies, so later edits leave it untouched
	builder.DisableDepthTest()
	require.True(t, info.DepthStencilState.DepthTestEnable)
}

func TestBuilder_BlendingModes(t *testing.T) {
	builder := NewBuilder()

	blend := builder.EnableBlendingAdditive().CreateInfo().ColorBlendState.Attachments[0]
	require.True(t, blend.BlendEnabled)
	require.Equal(t, core1_0.BlendFactorOne, blend.DstColorBlendFactor)

	blend = builder.DisableBlending().CreateInfo().ColorBlendState.Attachments[0]
	require.False(t, blend.BlendEnabled)
	require.Equal(t, allColorComponents, blend.ColorWriteMask)
}

func TestBuilder_BuildRequiresState(t *testing.T) {
	ctrl := gomock.NewController(t)
	device := mocks.NewMockDevice(ctrl)

	_, err := NewBuilder().Build(device)
	require.ErrorContains(t, err, "no shader stages")

	_, err = NewBuilder().
		SetShaders(mocks.NewMockShaderModule(ctrl), mocks.NewMockShaderModule(ctrl)).
		SetLayout(mocks.NewMockPipelineLayout(ctrl)).
		SetRenderPass(mocks.NewMockRenderPass(ctrl), 0).
		Build(device)
	require.ErrorContains(t, err, "colour attachment format")
}

func TestBuilder_Build(t *testing.T) {
	ctrl := gomock.NewController(t)
	device := mocks.NewMockDevice(ctrl)
	pipeline := mocks.NewMockPipeline(ctrl)

	builder := NewBuilder().
		SetShaders(mocks.NewMockShaderModule(ctrl), mocks.NewMockShaderModule(ctrl)).
		SetLayout(mocks.NewMockPipelineLayout(ctrl)).
		SetRenderPass(mocks.NewMockRenderPass(ctrl), 0).
		SetColorAttachmentFormat(core1_0.FormatR16G16B16A16SignedFloat)

	device.EXPECT().CreateGraphicsPipelines(gomock.Nil(), gomock.Nil(), []core1_0.GraphicsPipelineCreateInfo{builder.CreateInfo()}).
		Return([]core1_0.Pipeline{pipeline}, core1_0.VKSuccess, nil)

	built, err := builder.Build(device)
	require.NoError(t, err)
	require.Equal(t, pipeline, built)
}

func TestRenderPassInfo(t *testing.T) {
	colorOnly := RenderPassInfo(core1_0.FormatR16G16B16A16SignedFloat, core1_0.FormatUndefined)
	require.Len(t, colorOnly.Attachments, 1)
	require.Nil(t, colorOnly.Subpasses[0].DepthStencilAttachment)
	require.Equal(t, core1_0.ImageLayoutTransferSrcOptimal, colorOnly.Attachments[0].FinalLayout)

	withDepth := RenderPassInfo(core1_0.FormatR16G16B16A16SignedFloat, core1_0.FormatD32SignedFloat)
	require.Len(t, withDepth.Attachments, 2)
	require.Equal(t, core1_0.FormatD32SignedFloat, withDepth.Attachments[1].Format)
	require.NotNil(t, withDepth.Subpasses[0].DepthStencilAttachment)
	require.Equal(t, 1, withDepth.Subpasses[0].DepthStencilAttachment.Attachment)
	require.NotZero(t, withDepth.SubpassDependencies[0].DstAccessMask&core1_0.AccessDepthStencilAttachmentWrite)
}

func TestRenderPassInfo_ColorWritesReachTransfer(t *testing.T) {
	for _, depthFormat := range []core1_0.Format{core1_0.FormatUndefined, core1_0.FormatD32SignedFloat} {
		info := RenderPassInfo(core1_0.FormatR16G16B16A16SignedFloat, depthFormat)
		require.Len(t, info.SubpassDependencies, 2)

		incoming := info.SubpassDependencies[0]
		require.Equal(t, core1_0.SubpassExternal, incoming.SrcSubpass)
		require.Equal(t, 0, incoming.DstSubpass)

		outgoing := info.SubpassDependencies[1]
		require.Equal(t, core1_0.SubpassDependency{
			SrcSubpass:    0,
			DstSubpass:    core1_0.SubpassExternal,
			SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput,
			SrcAccessMask: core1_0.AccessColorAttachmentWrite,
			DstStageMask:  core1_0.PipelineStageTransfer,
			DstAccessMask: core1_0.AccessTransferRead,
		}, outgoing)
	}
}
