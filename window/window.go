package window

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_surface"
	khr_surface_driver "github.com/vkngwrapper/extensions/v2/khr_surface/driver"
	"golang.org/x/exp/slog"
)

// Options describe the window to open
type Options struct {
	Width     int
	Height    int
	Title     string
	Resizable bool
}

// Window is a glfw window with no client API, ready to present through a Vulkan surface.
// Every method must be called from the main OS thread.
type Window struct {
	logger   *slog.Logger
	window   *glfw.Window
	onResize func(width, height int)
}

// Open initializes glfw and opens a window
func Open(logger *slog.Logger, options Options) (*Window, error) {
	err := glfw.Init()
	if err != nil {
		return nil, errors.Wrap(err, "initialize glfw")
	}

	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, errors.New("glfw reports that vulkan is not supported")
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	resizable := glfw.False
	if options.Resizable {
		resizable = glfw.True
	}
	glfw.WindowHint(glfw.Resizable, resizable)

	handle, err := glfw.CreateWindow(options.Width, options.Height, options.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "create window")
	}

	w := &Window{logger: logger, window: handle}
	handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.framebufferResized(width, height)
	})

	logger.Info("window opened",
		slog.String("title", options.Title),
		slog.Int("width", options.Width),
		slog.Int("height", options.Height),
	)
	return w, nil
}

func (w *Window) framebufferResized(width, height int) {
	w.logger.Debug("Window::framebufferResized", slog.Int("width", width), slog.Int("height", height))
	if w.onResize != nil {
		w.onResize(width, height)
	}
}

// Size returns the framebuffer size in pixels
func (w *Window) Size() (width, height int) {
	return w.window.GetFramebufferSize()
}

func (w *Window) ShouldClose() bool {
	return w.window.ShouldClose()
}

// PollEvents processes pending window events, invoking the resize callback synchronously
func (w *Window) PollEvents() {
	glfw.PollEvents()
}

// SetResizeCallback registers the function called with the new framebuffer size whenever the
// window is resized. Minimizing reports a zero size.
func (w *Window) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

// RequiredInstanceExtensions lists the instance extensions needed to present to this window
func (w *Window) RequiredInstanceExtensions() []string {
	return w.window.GetRequiredInstanceExtensions()
}

// CreateSurface creates the presentation surface for this window. glfw wants the instance as a
// pointer-kinded value, so the handle is passed through as one.
func (w *Window) CreateSurface(instance core1_0.Instance, extension khr_surface.Extension) (khr_surface.Surface, error) {
	handle, err := w.window.CreateWindowSurface((*byte)(unsafe.Pointer(instance.Handle())), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create window surface")
	}

	surface, err := extension.CreateSurfaceFromHandle(khr_surface_driver.VkSurfaceKHR(handle))
	return surface, errors.Wrap(err, "wrap window surface")
}

// Destroy closes the window and shuts glfw down
func (w *Window) Destroy() {
	w.window.Destroy()
	glfw.Terminate()
}
