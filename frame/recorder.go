package frame

import (
	"github.com/chewxy/math32"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
	"github.com/vkngwrapper/vkrender/descriptors"
	"github.com/vkngwrapper/vkrender/gpu"
	"github.com/vkngwrapper/vkrender/internal/align"
	"github.com/vkngwrapper/vkrender/pipeline"
	"github.com/vkngwrapper/vkrender/scene"
	"github.com/vkngwrapper/vkrender/teardown"
	"golang.org/x/exp/slog"
)

// RecorderGPU is the slice of the GPU context the scene recorder allocates from
type RecorderGPU interface {
	Device() core1_0.Device
	CreateBuffer(size int, usage core1_0.BufferUsageFlags, memory gpu.MemoryUsage) (*gpu.Buffer, error)
	DestroyBuffer(buffer *gpu.Buffer) error
	CreateImage(extent core1_0.Extent3D, format core1_0.Format, usage core1_0.ImageUsageFlags, mipmapped bool) (*gpu.Image, error)
	DestroyImage(image *gpu.Image) error
	UniformBufferAlignment() uint
}

var _ RecorderGPU = &gpu.Context{}

const (
	DefaultDrawFormat  = core1_0.FormatR16G16B16A16SignedFloat
	DefaultDepthFormat = core1_0.FormatD32SignedFloat
)

// RecorderOptions configure the scene recorder
type RecorderOptions struct {
	VertexShader   string
	FragmentShader string
	Camera         scene.Camera
	// Extent is the size of the offscreen draw target, normally the swapchain extent
	Extent      core1_0.Extent2D
	DrawFormat  core1_0.Format
	DepthFormat core1_0.Format
}

// SceneRecorder renders the render list into an offscreen HDR target with depth, then blits the
// result into the presentable image
type SceneRecorder struct {
	logger  *slog.Logger
	gpu     RecorderGPU
	options RecorderOptions

	sceneLayout    core1_0.DescriptorSetLayout
	pipelineLayout core1_0.PipelineLayout
	renderPass     core1_0.RenderPass
	pipeline       core1_0.Pipeline
	resources      teardown.Queue

	drawImage   *gpu.Image
	depthImage  *gpu.Image
	framebuffer core1_0.Framebuffer
	targets     teardown.Queue

	writer descriptors.Writer
}

var _ Recorder = &SceneRecorder{}

// NewSceneRecorder loads the shaders and builds the pipeline and render targets
func NewSceneRecorder(logger *slog.Logger, device RecorderGPU, options RecorderOptions) (*SceneRecorder, error) {
	if options.DrawFormat == core1_0.FormatUndefined {
		options.DrawFormat = DefaultDrawFormat
	}
	if options.DepthFormat == core1_0.FormatUndefined {
		options.DepthFormat = DefaultDepthFormat
	}

	r := &SceneRecorder{
		logger:  logger,
		gpu:     device,
		options: options,
	}

	err := r.init()
	if err != nil {
		return nil, errors.CombineErrors(err, r.Destroy())
	}

	err = r.createTargets(options.Extent)
	if err != nil {
		return nil, errors.CombineErrors(err, r.Destroy())
	}

	return r, nil
}

func (r *SceneRecorder) init() error {
	device := r.gpu.Device()

	var layoutBuilder descriptors.LayoutBuilder
	layout, err := layoutBuilder.
		AddBinding(0, core1_0.DescriptorTypeUniformBuffer).
		Build(device, core1_0.StageVertex|core1_0.StageFragment, 0)
	if err != nil {
		return errors.Wrap(err, "create scene descriptor layout")
	}
	r.sceneLayout = layout
	r.resources.PushFunc("scene descriptor layout", func() { layout.Destroy(nil) })

	pipelineLayout, err := pipeline.NewLayout(device, []core1_0.DescriptorSetLayout{layout}, []core1_0.PushConstantRange{
		{
			StageFlags: core1_0.StageVertex,
			Offset:     0,
			Size:       scene.DrawPushConstantsSize,
		},
	})
	if err != nil {
		return err
	}
	r.pipelineLayout = pipelineLayout
	r.resources.PushFunc("pipeline layout", func() { pipelineLayout.Destroy(nil) })

	renderPass, err := pipeline.NewRenderPass(device, r.options.DrawFormat, r.options.DepthFormat)
	if err != nil {
		return err
	}
	r.renderPass = renderPass
	r.resources.PushFunc("render pass", func() { renderPass.Destroy(nil) })

	vertexShader, err := pipeline.LoadShaderModule(device, r.options.VertexShader)
	if err != nil {
		return err
	}
	defer vertexShader.Destroy(nil)

	fragmentShader, err := pipeline.LoadShaderModule(device, r.options.FragmentShader)
	if err != nil {
		return err
	}
	defer fragmentShader.Destroy(nil)

	graphicsPipeline, err := pipeline.NewBuilder().
		SetShaders(vertexShader, fragmentShader).
		SetInputTopology(core1_0.PrimitiveTopologyTriangleList).
		SetPolygonMode(core1_0.PolygonModeFill).
		SetCullMode(0, core1_0.FrontFaceClockwise).
		DisableMultisampling().
		DisableBlending().
		EnableDepthTest(true, core1_0.CompareOpLessOrEqual).
		SetColorAttachmentFormat(r.options.DrawFormat).
		SetDepthFormat(r.options.DepthFormat).
		SetLayout(pipelineLayout).
		SetRenderPass(renderPass, 0).
		Build(device)
	if err != nil {
		return err
	}
	r.pipeline = graphicsPipeline
	r.resources.PushFunc("mesh pipeline", func() { graphicsPipeline.Destroy(nil) })

	return nil
}

func (r *SceneRecorder) createTargets(extent core1_0.Extent2D) error {
	r.logger.Debug("SceneRecorder::createTargets", slog.Int("width", extent.Width), slog.Int("height", extent.Height))

	imageExtent := core1_0.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1}

	drawImage, err := r.gpu.CreateImage(imageExtent, r.options.DrawFormat,
		core1_0.ImageUsageColorAttachment|core1_0.ImageUsageTransferSrc|core1_0.ImageUsageTransferDst,
		false)
	if err != nil {
		return errors.Wrap(err, "create draw image")
	}
	r.drawImage = drawImage
	r.targets.Push("draw image", func() error { return r.gpu.DestroyImage(drawImage) })

	depthImage, err := r.gpu.CreateImage(imageExtent, r.options.DepthFormat, core1_0.ImageUsageDepthStencilAttachment, false)
	if err != nil {
		return errors.Wrap(err, "create depth image")
	}
	r.depthImage = depthImage
	r.targets.Push("depth image", func() error { return r.gpu.DestroyImage(depthImage) })

	framebuffer, err := pipeline.NewFramebuffer(r.gpu.Device(), r.renderPass, extent, drawImage.View, depthImage.View)
	if err != nil {
		return err
	}
	r.framebuffer = framebuffer
	r.targets.PushFunc("framebuffer", func() { framebuffer.Destroy(nil) })

	return nil
}

// DrawExtent is the size of the offscreen draw target
func (r *SceneRecorder) DrawExtent() core1_0.Extent2D {
	return core1_0.Extent2D{Width: r.drawImage.Extent.Width, Height: r.drawImage.Extent.Height}
}

// ClearColor is the animated background for a frame number
func ClearColor(frameNumber uint64) [4]float32 {
	blue := 0.5 + 0.5*math32.Sin(float32(frameNumber)/120)
	return [4]float32{0, 0, blue, 1}
}

// Resize rebuilds the draw and depth targets at the new extent. The device must be idle.
func (r *SceneRecorder) Resize(extent core1_0.Extent2D) error {
	err := r.targets.Flush()
	if err != nil {
		return err
	}
	return r.createTargets(extent)
}

// Record renders every draw into the offscreen target and blits it into the frame's presentable
// image, leaving that image ready to present
func (r *SceneRecorder) Record(cmd core1_0.CommandBuffer, frame Frame) error {
	if frame.Slot.Descriptors == nil {
		return errors.New("scene recorder needs a frame slot with a descriptor allocator")
	}

	drawExtent := r.DrawExtent()
	data := scene.NewSceneData(r.options.Camera, drawExtent.Width, drawExtent.Height)

	uniforms, err := r.gpu.CreateBuffer(align.Up(scene.SceneDataSize, r.gpu.UniformBufferAlignment()), core1_0.BufferUsageUniformBuffer, gpu.MemoryUsageCPUToGPU)
	if err != nil {
		return errors.Wrap(err, "create scene uniform buffer")
	}
	frame.Slot.Teardown.Push("scene uniform buffer", func() error { return r.gpu.DestroyBuffer(uniforms) })

	err = uniforms.Write(0, data.Bytes())
	if err != nil {
		return err
	}

	sceneSet, err := frame.Slot.Descriptors.Allocate(r.sceneLayout)
	if err != nil {
		return errors.Wrap(err, "allocate scene descriptor set")
	}

	r.writer.Clear()
	r.writer.WriteBuffer(0, uniforms.Handle, scene.SceneDataSize, 0, core1_0.DescriptorTypeUniformBuffer)
	err = r.writer.Update(r.gpu.Device(), sceneSet)
	if err != nil {
		return err
	}

	background := ClearColor(frame.Number)
	err = cmd.CmdBeginRenderPass(core1_0.SubpassContentsInline, core1_0.RenderPassBeginInfo{
		RenderPass:  r.renderPass,
		Framebuffer: r.framebuffer,
		RenderArea:  core1_0.Rect2D{Extent: drawExtent},
		ClearValues: []core1_0.ClearValue{
			core1_0.ClearValueFloat(background),
			core1_0.ClearValueDepthStencil{Depth: 1.0},
		},
	})
	if err != nil {
		return errors.Wrap(err, "begin render pass")
	}

	cmd.CmdSetViewport([]core1_0.Viewport{
		{
			Width:    float32(drawExtent.Width),
			Height:   float32(drawExtent.Height),
			MinDepth: 0,
			MaxDepth: 1,
		},
	})
	cmd.CmdSetScissor([]core1_0.Rect2D{{Extent: drawExtent}})

	cmd.CmdBindPipeline(core1_0.PipelineBindPointGraphics, r.pipeline)
	cmd.CmdBindDescriptorSets(core1_0.PipelineBindPointGraphics, r.pipelineLayout, 0, []core1_0.DescriptorSet{sceneSet}, nil)

	for _, draw := range frame.Draws {
		push := scene.DrawPushConstants{
			World:         mgl32.Ident4(),
			VertexAddress: draw.Resident.VertexAddress,
		}
		cmd.CmdPushConstants(r.pipelineLayout, core1_0.StageVertex, 0, push.Bytes())
		cmd.CmdBindIndexBuffer(draw.Resident.IndexBuffer.Handle, 0, core1_0.IndexTypeUInt32)
		cmd.CmdDrawIndexed(draw.Resident.IndexCount, 1, 0, 0, 0)
	}

	// the render pass leaves the draw image in TRANSFER_SRC_OPTIMAL
	cmd.CmdEndRenderPass()

	err = transitionImage(cmd, frame.Image, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal)
	if err != nil {
		return errors.Wrap(err, "transition swapchain image for blit")
	}

	err = blitImage(cmd, r.drawImage.Handle, frame.Image, drawExtent, frame.Extent)
	if err != nil {
		return errors.Wrap(err, "blit draw image")
	}

	err = transitionImage(cmd, frame.Image, core1_0.ImageLayoutTransferDstOptimal, khr_swapchain.ImageLayoutPresentSrc)
	return errors.Wrap(err, "transition swapchain image for present")
}

// Destroy releases the render targets and pipeline objects. The device must be idle.
func (r *SceneRecorder) Destroy() error {
	return errors.CombineErrors(r.targets.Flush(), r.resources.Flush())
}

// queueFamilyIgnored is VK_QUEUE_FAMILY_IGNORED as the wrapper's int queue family fields spell it
const queueFamilyIgnored = -1

func transitionImage(cmd core1_0.CommandBuffer, image core1_0.Image, from, to core1_0.ImageLayout) error {
	return cmd.CmdPipelineBarrier(
		core1_0.PipelineStageAllCommands,
		core1_0.PipelineStageAllCommands,
		0,
		nil,
		nil,
		[]core1_0.ImageMemoryBarrier{
			{
				SrcAccessMask:       core1_0.AccessMemoryWrite,
				DstAccessMask:       core1_0.AccessMemoryWrite | core1_0.AccessMemoryRead,
				OldLayout:           from,
				NewLayout:           to,
				SrcQueueFamilyIndex: queueFamilyIgnored,
				DstQueueFamilyIndex: queueFamilyIgnored,
				Image:               image,
				SubresourceRange: core1_0.ImageSubresourceRange{
					AspectMask:     core1_0.ImageAspectColor,
					BaseMipLevel:   0,
					LevelCount:     1,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
			},
		},
	)
}

func blitImage(cmd core1_0.CommandBuffer, source, destination core1_0.Image, sourceSize, destinationSize core1_0.Extent2D) error {
	layers := core1_0.ImageSubresourceLayers{
		AspectMask:     core1_0.ImageAspectColor,
		MipLevel:       0,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}

	return cmd.CmdBlitImage(
		source, core1_0.ImageLayoutTransferSrcOptimal,
		destination, core1_0.ImageLayoutTransferDstOptimal,
		[]core1_0.ImageBlit{
			{
				SrcSubresource: layers,
				SrcOffsets: [2]core1_0.Offset3D{
					{},
					{X: sourceSize.Width, Y: sourceSize.Height, Z: 1},
				},
				DstSubresource: layers,
				DstOffsets: [2]core1_0.Offset3D{
					{},
					{X: destinationSize.Width, Y: destinationSize.Height, Z: 1},
				},
			},
		},
		core1_0.FilterLinear,
	)
}
