package pipeline

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
)

const entryPoint = "main"

var allColorComponents = core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha

// Builder accumulates fixed-function and shader state for a graphics pipeline. Viewport and
// scissor are always dynamic, so pipelines survive swapchain rebuilds. Vertices are pulled
// through a device address, so the pipeline has no vertex input bindings.
type Builder struct {
	stages               []core1_0.PipelineShaderStageCreateInfo
	inputAssembly        core1_0.PipelineInputAssemblyStateCreateInfo
	rasterizer           core1_0.PipelineRasterizationStateCreateInfo
	colorBlendAttachment core1_0.PipelineColorBlendAttachmentState
	multisampling        core1_0.PipelineMultisampleStateCreateInfo
	depthStencil         core1_0.PipelineDepthStencilStateCreateInfo

	layout     core1_0.PipelineLayout
	renderPass core1_0.RenderPass
	subpass    int

	colorFormat core1_0.Format
	depthFormat core1_0.Format
}

// NewBuilder returns a builder with every setting at its cleared default
func NewBuilder() *Builder {
	b := &Builder{}
	b.Clear()
	return b
}

// Clear resets every setting. The line width is the only non-zero default.
func (b *Builder) Clear() {
	*b = Builder{
		rasterizer: core1_0.PipelineRasterizationStateCreateInfo{
			LineWidth: 1.0,
		},
		multisampling: core1_0.PipelineMultisampleStateCreateInfo{
			RasterizationSamples: core1_0.Samples1,
		},
	}
}

func (b *Builder) SetShaders(vertexShader, fragmentShader core1_0.ShaderModule) *Builder {
	b.stages = []core1_0.PipelineShaderStageCreateInfo{
		{
			Stage:  core1_0.StageVertex,
			Module: vertexShader,
			Name:   entryPoint,
		},
		{
			Stage:  core1_0.StageFragment,
			Module: fragmentShader,
			Name:   entryPoint,
		},
	}
	return b
}

func (b *Builder) SetInputTopology(topology core1_0.PrimitiveTopology) *Builder {
	b.inputAssembly.Topology = topology
	b.inputAssembly.PrimitiveRestartEnable = false
	return b
}

func (b *Builder) SetPolygonMode(mode core1_0.PolygonMode) *Builder {
	b.rasterizer.PolygonMode = mode
	b.rasterizer.LineWidth = 1.0
	return b
}

func (b *Builder) SetCullMode(cullMode core1_0.CullModeFlags, frontFace core1_0.FrontFace) *Builder {
	b.rasterizer.CullMode = cullMode
	b.rasterizer.FrontFace = frontFace
	return b
}

// DisableMultisampling renders with one sample per pixel and no sample shading
func (b *Builder) DisableMultisampling() *Builder {
	b.multisampling = core1_0.PipelineMultisampleStateCreateInfo{
		RasterizationSamples:  core1_0.Samples1,
		SampleShadingEnable:   false,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: false,
		AlphaToOneEnable:      false,
	}
	return b
}

func (b *Builder) DisableBlending() *Builder {
	b.colorBlendAttachment = core1_0.PipelineColorBlendAttachmentState{
		ColorWriteMask: allColorComponents,
		BlendEnabled:   false,
	}
	return b
}

// EnableBlendingAdditive blends as src*srcAlpha + dst
func (b *Builder) EnableBlendingAdditive() *Builder {
	b.colorBlendAttachment = core1_0.PipelineColorBlendAttachmentState{
		ColorWriteMask:      allColorComponents,
		BlendEnabled:        true,
		SrcColorBlendFactor: core1_0.BlendFactorSrcAlpha,
		DstColorBlendFactor: core1_0.BlendFactorOne,
		ColorBlendOp:        core1_0.BlendOpAdd,
		SrcAlphaBlendFactor: core1_0.BlendFactorOne,
		DstAlphaBlendFactor: core1_0.BlendFactorZero,
		AlphaBlendOp:        core1_0.BlendOpAdd,
	}
	return b
}

// EnableBlendingAlphaBlend blends as src*srcAlpha + dst*(1-srcAlpha)
func (b *Builder) EnableBlendingAlphaBlend() *Builder {
	b.colorBlendAttachment = core1_0.PipelineColorBlendAttachmentState{
		ColorWriteMask:      allColorComponents,
		BlendEnabled:        true,
		SrcColorBlendFactor: core1_0.BlendFactorSrcAlpha,
		DstColorBlendFactor: core1_0.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        core1_0.BlendOpAdd,
		SrcAlphaBlendFactor: core1_0.BlendFactorOne,
		DstAlphaBlendFactor: core1_0.BlendFactorZero,
		AlphaBlendOp:        core1_0.BlendOpAdd,
	}
	return b
}

// SetColorAttachmentFormat records the colour target format. It is checked against the render
// pass by Build.
func (b *Builder) SetColorAttachmentFormat(format core1_0.Format) *Builder {
	b.colorFormat = format
	return b
}

func (b *Builder) SetDepthFormat(format core1_0.Format) *Builder {
	b.depthFormat = format
	return b
}

func (b *Builder) DisableDepthTest() *Builder {
	b.depthStencil = core1_0.PipelineDepthStencilStateCreateInfo{
		DepthTestEnable:       false,
		DepthWriteEnable:      false,
		DepthCompareOp:        core1_0.CompareOpNever,
		DepthBoundsTestEnable: false,
		StencilTestEnable:     false,
		MinDepthBounds:        0,
		MaxDepthBounds:        1,
	}
	return b
}

func (b *Builder) EnableDepthTest(depthWrite bool, op core1_0.CompareOp) *Builder {
	b.depthStencil = core1_0.PipelineDepthStencilStateCreateInfo{
		DepthTestEnable:       true,
		DepthWriteEnable:      depthWrite,
		DepthCompareOp:        op,
		DepthBoundsTestEnable: false,
		StencilTestEnable:     false,
		MinDepthBounds:        0,
		MaxDepthBounds:        1,
	}
	return b
}

func (b *Builder) SetLayout(layout core1_0.PipelineLayout) *Builder {
	b.layout = layout
	return b
}

func (b *Builder) SetRenderPass(renderPass core1_0.RenderPass, subpass int) *Builder {
	b.renderPass = renderPass
	b.subpass = subpass
	return b
}

// CreateInfo assembles the create info for the current settings without touching the device
func (b *Builder) CreateInfo() core1_0.GraphicsPipelineCreateInfo {
	inputAssembly := b.inputAssembly
	rasterizer := b.rasterizer
	multisampling := b.multisampling
	depthStencil := b.depthStencil

	return core1_0.GraphicsPipelineCreateInfo{
		Stages:             append([]core1_0.PipelineShaderStageCreateInfo(nil), b.stages...),
		VertexInputState:   &core1_0.PipelineVertexInputStateCreateInfo{},
		InputAssemblyState: &inputAssembly,
		// counts only, both are set dynamically while recording
		ViewportState: &core1_0.PipelineViewportStateCreateInfo{
			Viewports: []core1_0.Viewport{{}},
			Scissors:  []core1_0.Rect2D{{}},
		},
		RasterizationState: &rasterizer,
		MultisampleState:   &multisampling,
		DepthStencilState:  &depthStencil,
		ColorBlendState: &core1_0.PipelineColorBlendStateCreateInfo{
			LogicOpEnabled: false,
			LogicOp:        core1_0.LogicOpCopy,
			Attachments:    []core1_0.PipelineColorBlendAttachmentState{b.colorBlendAttachment},
		},
		DynamicState: &core1_0.PipelineDynamicStateCreateInfo{
			DynamicStates: []core1_0.DynamicState{core1_0.DynamicStateViewport, core1_0.DynamicStateScissor},
		},
		Layout:            b.layout,
		RenderPass:        b.renderPass,
		Subpass:           b.subpass,
		BasePipelineIndex: -1,
	}
}

func (b *Builder) validate() error {
	if len(b.stages) == 0 {
		return errors.New("pipeline has no shader stages")
	}
	if b.layout == nil {
		return errors.New("pipeline has no layout")
	}
	if b.renderPass == nil {
		return errors.New("pipeline has no render pass")
	}
	if b.colorFormat == core1_0.FormatUndefined {
		return errors.New("pipeline has no colour attachment format")
	}
	return nil
}

// Build creates the pipeline on the device. Creation failure is fatal to the caller.
func (b *Builder) Build(device core1_0.Device) (core1_0.Pipeline, error) {
	err := b.validate()
	if err != nil {
		return nil, err
	}

	pipelines, _, err := device.CreateGraphicsPipelines(nil, nil, []core1_0.GraphicsPipelineCreateInfo{b.CreateInfo()})
	if err != nil {
		return nil, errors.Wrap(err, "create graphics pipeline")
	}

	return pipelines[0], nil
}
