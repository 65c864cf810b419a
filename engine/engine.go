package engine

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/vkrender/frame"
	"github.com/vkngwrapper/vkrender/mesh"
	"golang.org/x/exp/slog"
)

// Window is the windowing collaborator the engine polls
type Window interface {
	ShouldClose() bool
	PollEvents()
	SetResizeCallback(callback func(width, height int))
}

// Renderer draws frames and owns the render list
type Renderer interface {
	Render(frameNumber uint64) error
	ResizeSwapchain(width, height int) error
	AddToScene(meshes ...*mesh.Mesh) error
	Destroy() error
}

var _ Renderer = &frame.Renderer{}

// MeshLoader reads the meshes stored in a file
type MeshLoader interface {
	Load(path string) ([]*mesh.Mesh, error)
}

// Options control the run loop
type Options struct {
	// FrameLimit stops the loop after this many frames. Zero runs until the window closes.
	FrameLimit uint64
}

// Engine ties a window, a renderer and a mesh loader into a run loop. Every method must be
// called from the thread that owns the window.
type Engine struct {
	logger   *slog.Logger
	window   Window
	renderer Renderer
	loader   MeshLoader
	options  Options

	frame     uint64
	resizeErr error
	closed    bool
}

// New wires the collaborators together and registers the engine's resize handler with the window
func New(logger *slog.Logger, window Window, renderer Renderer, loader MeshLoader, options Options) *Engine {
	e := &Engine{
		logger:   logger,
		window:   window,
		renderer: renderer,
		loader:   loader,
		options:  options,
	}
	window.SetResizeCallback(e.resize)

	logger.Info("engine ready", slog.Uint64("frameLimit", options.FrameLimit))
	return e
}

// resize rebuilds the swapchain. A minimized window reports a zero dimension, which is ignored:
// the surface stays stale and frames are skipped until a real size arrives.
func (e *Engine) resize(width, height int) {
	if width <= 0 || height <= 0 || e.resizeErr != nil {
		return
	}

	err := e.renderer.ResizeSwapchain(width, height)
	if err != nil {
		e.resizeErr = errors.Wrapf(err, "resize to %dx%d", width, height)
	}
}

// Frame returns the number of frames the loop has run. It advances whether or not the frame
// was drawn.
func (e *Engine) Frame() uint64 {
	return e.frame
}

// LoadScene loads every mesh from each file and adds them to the render list in order
func (e *Engine) LoadScene(paths ...string) error {
	for _, path := range paths {
		e.logger.Debug("Engine::LoadScene", slog.String("path", path))

		meshes, err := e.loader.Load(path)
		if err != nil {
			return errors.Wrapf(err, "load %s", path)
		}
		if len(meshes) == 0 {
			return errors.Newf("load %s: no meshes", path)
		}

		err = e.renderer.AddToScene(meshes...)
		if err != nil {
			return err
		}

		e.logger.Info("loaded scene file", slog.String("path", path), slog.Int("meshes", len(meshes)))
	}

	return nil
}

// Run polls events and renders frames until the window asks to close, the context is cancelled
// or the frame limit is reached. A render or resize failure ends the loop and is returned.
func (e *Engine) Run(ctx context.Context) error {
	if e.closed {
		panic("attempted to run a closed engine")
	}

	e.logger.Info("engine running")

	for !e.window.ShouldClose() {
		if ctx.Err() != nil {
			e.logger.Info("engine stopped", slog.Uint64("frames", e.frame))
			return nil
		}
		if e.options.FrameLimit > 0 && e.frame >= e.options.FrameLimit {
			break
		}

		e.window.PollEvents()
		if e.resizeErr != nil {
			return e.resizeErr
		}

		err := e.renderer.Render(e.frame)
		e.frame++
		if err != nil {
			return errors.Wrapf(err, "render frame %d", e.frame-1)
		}
	}

	e.logger.Info("engine finished", slog.Uint64("frames", e.frame))
	return nil
}

// Close destroys the renderer. The window belongs to the caller and stays open.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	e.window.SetResizeCallback(nil)
	return e.renderer.Destroy()
}
