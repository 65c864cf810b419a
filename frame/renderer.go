package frame

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/vkrender/descriptors"
	"github.com/vkngwrapper/vkrender/gpu"
	"github.com/vkngwrapper/vkrender/mesh"
	"github.com/vkngwrapper/vkrender/scene"
	"github.com/vkngwrapper/vkrender/swapchain"
	"golang.org/x/exp/slog"
)

// GPU is the slice of the GPU context the renderer drives
type GPU interface {
	mesh.Uploader
	Device() core1_0.Device
	QueueFamilies() gpu.QueueFamilies
	GraphicsQueue() core1_0.Queue
	PresentQueue() core1_0.Queue
	WaitIdle() error
}

var _ GPU = &gpu.Context{}

// Presenter is the presentation surface the renderer acquires images from and presents to
type Presenter interface {
	State() swapchain.State
	Acquire(signal core1_0.Semaphore) (int, error)
	Present(queue core1_0.Queue, wait core1_0.Semaphore, imageIndex int) error
	Reconstruct(width, height int) error
	Extent() core1_0.Extent2D
	Image(index int) core1_0.Image
	Rebuilds() int
	Destroy() error
}

var _ Presenter = &swapchain.Swapchain{}

// Draw pairs a mesh from the render list with its resident buffers
type Draw struct {
	Mesh     *mesh.Mesh
	Resident *mesh.GPUMesh
}

// Frame is everything a Recorder needs to fill one frame's command buffer
type Frame struct {
	Number     uint64
	Slot       *Slot
	ImageIndex int
	Image      core1_0.Image
	Extent     core1_0.Extent2D
	Draws      []Draw
}

// Recorder fills a frame's command buffer between Begin and End. Resources it creates for a
// single frame belong on Frame.Slot.Teardown.
type Recorder interface {
	Record(cmd core1_0.CommandBuffer, frame Frame) error
	Resize(extent core1_0.Extent2D) error
	Destroy() error
}

// Options configure the renderer's frame slots
type Options struct {
	// FramesInFlight is the number of frame slots, 2 or 3
	FramesInFlight int
	// DescriptorSets sizes the first descriptor pool of each slot. Zero disables per-slot
	// descriptor allocation.
	DescriptorSets int
	PoolRatios     []descriptors.PoolSizeRatio
	PoolFlags      core1_0.DescriptorPoolCreateFlags
	Cache          mesh.CacheOptions
}

// Renderer drives the per-frame wait, acquire, record, submit and present sequence over a
// rotating set of frame slots. It is not safe for concurrent use: a single control thread
// calls Render and everything else.
type Renderer struct {
	logger    *slog.Logger
	gpu       GPU
	presenter Presenter
	recorder  Recorder

	slots  []*Slot
	meshes *mesh.Cache
	scene  scene.Scene

	submitted int
	skipped   int
	destroyed bool
}

// New creates the frame slots and mesh cache. The renderer takes ownership of the presenter and
// the recorder and destroys them in Destroy.
func New(logger *slog.Logger, device GPU, presenter Presenter, recorder Recorder, options Options) (*Renderer, error) {
	slots, err := NewSlots(logger, device.Device(), options.FramesInFlight, SlotOptions{
		QueueFamily:    device.QueueFamilies().Graphics,
		DescriptorSets: options.DescriptorSets,
		PoolRatios:     options.PoolRatios,
		PoolFlags:      options.PoolFlags,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("renderer ready", slog.Int("framesInFlight", len(slots)))

	return &Renderer{
		logger:    logger,
		gpu:       device,
		presenter: presenter,
		recorder:  recorder,
		slots:     slots,
		meshes:    mesh.NewCache(logger, device, options.Cache),
	}, nil
}

// Slot returns the frame slot used for the given frame number
func (r *Renderer) Slot(frameNumber uint64) *Slot {
	return r.slots[frameNumber%uint64(len(r.slots))]
}

// Scene returns the render list
func (r *Renderer) Scene() *scene.Scene {
	return &r.scene
}

// Meshes returns the mesh cache backing the render list
func (r *Renderer) Meshes() *mesh.Cache {
	return r.meshes
}

func (r *Renderer) Submitted() int { return r.submitted }
func (r *Renderer) Skipped() int   { return r.skipped }

// Render draws one frame. A stale presentation surface skips the frame without error: nothing
// is recorded, submitted or presented, and the caller is expected to resize the swapchain.
func (r *Renderer) Render(frameNumber uint64) error {
	if r.destroyed {
		panic("attempted to render with a destroyed renderer")
	}

	slot := r.Slot(frameNumber)
	r.logger.Debug("Renderer::Render", slog.Uint64("frame", frameNumber), slog.Int("slot", slot.Index))

	device := r.gpu.Device()
	fences := []core1_0.Fence{slot.RenderFence}

	_, err := device.WaitForFences(true, common.NoTimeout, fences)
	if err != nil {
		return errors.Wrap(err, "wait for frame slot")
	}

	err = slot.Recycle()
	if err != nil {
		return errors.Wrap(err, "recycle frame slot")
	}

	imageIndex, err := r.presenter.Acquire(slot.AcquireSemaphore)
	if errors.Is(err, swapchain.ErrStale) {
		r.skipped++
		return nil
	} else if err != nil {
		return err
	}

	// only reset once work is certain to be submitted, or the next wait on this slot never returns
	_, err = device.ResetFences(fences)
	if err != nil {
		return errors.Wrap(err, "reset frame fence")
	}

	cmd := slot.Commands
	_, err = cmd.Reset(0)
	if err != nil {
		return errors.Wrap(err, "reset frame command buffer")
	}

	_, err = cmd.Begin(core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return errors.Wrap(err, "begin frame command buffer")
	}

	recordErr := r.recorder.Record(cmd, Frame{
		Number:     frameNumber,
		Slot:       slot,
		ImageIndex: imageIndex,
		Image:      r.presenter.Image(imageIndex),
		Extent:     r.presenter.Extent(),
		Draws:      r.draws(),
	})

	_, err = cmd.End()
	if recordErr != nil {
		return errors.Wrap(recordErr, "record frame")
	}
	if err != nil {
		return errors.Wrap(err, "end frame command buffer")
	}

	_, err = r.gpu.GraphicsQueue().Submit(slot.RenderFence, []core1_0.SubmitInfo{
		{
			WaitSemaphores:   []core1_0.Semaphore{slot.AcquireSemaphore},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{cmd},
			SignalSemaphores: []core1_0.Semaphore{slot.RenderSemaphore},
		},
	})
	if err != nil {
		return errors.Wrap(err, "submit frame")
	}
	r.submitted++

	return r.presenter.Present(r.gpu.PresentQueue(), slot.RenderSemaphore, imageIndex)
}

func (r *Renderer) draws() []Draw {
	meshes := r.scene.Meshes()
	draws := make([]Draw, 0, len(meshes))
	for _, m := range meshes {
		resident, ok := r.meshes.Get(m.ID)
		if !ok {
			r.logger.Warn("skipping mesh without resident buffers", slog.String("mesh", m.Name))
			continue
		}
		draws = append(draws, Draw{Mesh: m, Resident: resident})
	}
	return draws
}

// ResizeSwapchain rebuilds the presentation surface at the new dimensions and lets the recorder
// resize its targets to match
func (r *Renderer) ResizeSwapchain(width, height int) error {
	r.logger.Debug("Renderer::ResizeSwapchain", slog.Int("width", width), slog.Int("height", height))

	err := r.presenter.Reconstruct(width, height)
	if err != nil {
		return err
	}

	return errors.Wrap(r.recorder.Resize(r.presenter.Extent()), "resize render targets")
}

// UploadMesh makes a mesh resident. Uploading a mesh that is already resident does nothing.
func (r *Renderer) UploadMesh(m *mesh.Mesh) error {
	return r.meshes.Upload(m)
}

// AddToScene uploads each mesh and appends them to the render list in order. Meshes must not be
// modified after they are added.
func (r *Renderer) AddToScene(meshes ...*mesh.Mesh) error {
	for _, m := range meshes {
		err := r.meshes.Upload(m)
		if err != nil {
			return errors.Wrapf(err, "add mesh %s to scene", m.Name)
		}
	}

	r.scene.Add(meshes...)
	return nil
}

// Destroy waits for the device to go idle and releases the recorder, the mesh cache, the frame
// slots and the presenter, in that order. Calling Destroy more than once does nothing.
func (r *Renderer) Destroy() error {
	if r.destroyed {
		return nil
	}
	r.destroyed = true

	r.logger.Info("renderer shutting down",
		slog.Int("framesSubmitted", r.submitted),
		slog.Int("framesSkipped", r.skipped),
	)

	err := r.gpu.WaitIdle()
	if err != nil {
		return err
	}

	err = errors.CombineErrors(err, r.recorder.Destroy())
	err = errors.CombineErrors(err, r.meshes.Destroy())
	for _, slot := range r.slots {
		err = errors.CombineErrors(err, slot.Destroy())
	}
	r.slots = nil

	return errors.CombineErrors(err, r.presenter.Destroy())
}
