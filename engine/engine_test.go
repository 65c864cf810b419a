package engine

import (
	"context"
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/vkrender/mesh"
	"golang.org/x/exp/slog"
)

type fakeWindow struct {
	closeAfter int
	polls      int
	resizes    [][2]int
	onResize   func(width, height int)
}

func (w *fakeWindow) ShouldClose() bool {
	return w.closeAfter >= 0 && w.polls >= w.closeAfter
}

func (w *fakeWindow) PollEvents() {
	w.polls++
	for _, size := range w.resizes {
		w.onResize(size[0], size[1])
	}
	w.resizes = nil
}

func (w *fakeWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

type fakeRenderer struct {
	frames    []uint64
	resizes   [][2]int
	scene     []*mesh.Mesh
	failFrame int
	resizeErr error
	destroyed int
}

func (r *fakeRenderer) Render(frameNumber uint64) error {
	if r.failFrame >= 0 && int(frameNumber) == r.failFrame {
		return errors.New("device lost")
	}
	r.frames = append(r.frames, frameNumber)
	return nil
}

func (r *fakeRenderer) ResizeSwapchain(width, height int) error {
	r.resizes = append(r.resizes, [2]int{width, height})
	return r.resizeErr
}

func (r *fakeRenderer) AddToScene(meshes ...*mesh.Mesh) error {
	r.scene = append(r.scene, meshes...)
	return nil
}

func (r *fakeRenderer) Destroy() error {
	r.destroyed++
	return nil
}

type fakeLoader map[string][]*mesh.Mesh

func (l fakeLoader) Load(path string) ([]*mesh.Mesh, error) {
	meshes, ok := l[path]
	if !ok {
		return nil, errors.New("file not found")
	}
	return meshes, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard))
}

func readyEngine(closeAfter int, options Options) (*Engine, *fakeWindow, *fakeRenderer) {
	window := &fakeWindow{closeAfter: closeAfter}
	renderer := &fakeRenderer{failFrame: -1}
	return New(testLogger(), window, renderer, fakeLoader{}, options), window, renderer
}

func TestEngine_RunUntilClose(t *testing.T) {
	e, window, renderer := readyEngine(3, Options{})

	require.NoError(t, e.Run(context.Background()))
	require.Equal(t, []uint64{0, 1, 2}, renderer.frames)
	require.Equal(t, uint64(3), e.Frame())
	require.Equal(t, 3, window.polls)
}

func TestEngine_FrameLimit(t *testing.T) {
	e, _, renderer := readyEngine(-1, Options{FrameLimit: 5})

	require.NoError(t, e.Run(context.Background()))
	require.Len(t, renderer.frames, 5)
	require.Equal(t, uint64(5), e.Frame())
}

func TestEngine_CancelledContext(t *testing.T) {
	e, _, renderer := readyEngine(-1, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, e.Run(ctx))
	require.Empty(t, renderer.frames)
}

func TestEngine_RenderFailureEndsLoop(t *testing.T) {
	e, _, renderer := readyEngine(-1, Options{})
	renderer.failFrame = 2

	err := e.Run(context.Background())
	require.ErrorContains(t, err, "render frame 2")
	require.ErrorContains(t, err, "device lost")
	// the failed frame still advanced the counter
	require.Equal(t, uint64(3), e.Frame())
}

func TestEngine_ResizeForwardsPositiveSizes(t *testing.T) {
	e, window, renderer := readyEngine(1, Options{})
	window.resizes = [][2]int{{0, 0}, {800, 0}, {800, 600}}

	require.NoError(t, e.Run(context.Background()))
	require.Equal(t, [][2]int{{800, 600}}, renderer.resizes)
}

func TestEngine_ResizeFailureEndsLoop(t *testing.T) {
	e, window, renderer := readyEngine(-1, Options{})
	renderer.resizeErr = errors.New("surface lost")
	window.resizes = [][2]int{{1024, 768}}

	err := e.Run(context.Background())
	require.ErrorContains(t, err, "resize to 1024x768")
	require.Empty(t, renderer.frames)
}

func TestEngine_LoadScene(t *testing.T) {
	a := mesh.New("a", nil, nil)
	b := mesh.New("b", nil, nil)

	window := &fakeWindow{}
	renderer := &fakeRenderer{failFrame: -1}
	loader := fakeLoader{"a.glb": {a}, "b.glb": {b}, "empty.glb": nil}
	e := New(testLogger(), window, renderer, loader, Options{})

	require.NoError(t, e.LoadScene("a.glb", "b.glb"))
	require.Equal(t, []*mesh.Mesh{a, b}, renderer.scene)

	require.ErrorContains(t, e.LoadScene("missing.glb"), "file not found")
	require.ErrorContains(t, e.LoadScene("empty.glb"), "no meshes")
}

func TestEngine_Close(t *testing.T) {
	e, window, renderer := readyEngine(0, Options{})

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	require.Equal(t, 1, renderer.destroyed)
	require.Nil(t, window.onResize)

	require.Panics(t, func() { _ = e.Run(context.Background()) })
}
