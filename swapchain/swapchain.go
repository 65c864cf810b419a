package swapchain

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// ErrStale is returned by Acquire while the swapchain no longer matches its surface. It is never
// fatal: the caller skips the frame and waits for Reconstruct.
var ErrStale = errors.New("swapchain is stale")

// State is the presentation state of a Swapchain
type State int32

const (
	StateValid State = iota
	StateStale
)

var stateMapping = map[State]string{
	StateValid: "StateValid",
	StateStale: "StateStale",
}

func (s State) String() string {
	str, ok := stateMapping[s]
	if !ok {
		return "unknown"
	}
	return str
}

// PresentResult is the backend's classification of an acquire or present call
type PresentResult int32

const (
	ResultSuccess PresentResult = iota
	ResultSuboptimal
	ResultOutOfDate
)

var resultMapping = map[PresentResult]string{
	ResultSuccess:    "ResultSuccess",
	ResultSuboptimal: "ResultSuboptimal",
	ResultOutOfDate:  "ResultOutOfDate",
}

func (r PresentResult) String() string {
	str, ok := resultMapping[r]
	if !ok {
		return "unknown"
	}
	return str
}

// Chain is one generation of presentable images and their views
type Chain struct {
	Images []core1_0.Image
	Views  []core1_0.ImageView
	Format core1_0.Format
	Extent core1_0.Extent2D
}

// Backend performs the native work behind a Swapchain. Build receives the requested window
// size and returns a chain whose extent is whatever the surface actually honors.
type Backend interface {
	Build(width, height int) (*Chain, error)
	Release(chain *Chain) error
	WaitIdle() error
	AcquireNextImage(signal core1_0.Semaphore) (int, PresentResult, error)
	Present(queue core1_0.Queue, wait core1_0.Semaphore, imageIndex int) (PresentResult, error)
}

// Swapchain tracks the chain of presentable images for a window surface along with a staleness
// flag. Once stale, no image is acquired until Reconstruct rebuilds the chain wholesale.
type Swapchain struct {
	logger  *slog.Logger
	backend Backend

	chain *Chain
	state State

	// set when acquire reported suboptimal, so the chain goes stale after that image is presented
	staleAfterPresent bool
	rebuilds          int
}

// New builds the initial chain at the requested size. The result starts out Valid.
func New(logger *slog.Logger, backend Backend, width, height int) (*Swapchain, error) {
	chain, err := backend.Build(width, height)
	if err != nil {
		return nil, errors.Wrapf(err, "build swapchain at %dx%d", width, height)
	}

	logger.Info("swapchain created",
		slog.Int("width", chain.Extent.Width),
		slog.Int("height", chain.Extent.Height),
		slog.Int("images", len(chain.Images)),
	)

	return &Swapchain{
		logger:  logger,
		backend: backend,
		chain:   chain,
		state:   StateValid,
	}, nil
}

// State returns whether the swapchain can currently be acquired from
func (s *Swapchain) State() State { return s.state }

// Extent returns the size of the presentable images, or a zero extent while no chain is built
func (s *Swapchain) Extent() core1_0.Extent2D {
	if s.chain == nil {
		return core1_0.Extent2D{}
	}
	return s.chain.Extent
}

// Format returns the format of the presentable images
func (s *Swapchain) Format() core1_0.Format {
	if s.chain == nil {
		return core1_0.FormatUndefined
	}
	return s.chain.Format
}

// Images returns the presentable images of the current chain
func (s *Swapchain) Images() []core1_0.Image {
	if s.chain == nil {
		return nil
	}
	return s.chain.Images
}

// Image returns the presentable image at index
func (s *Swapchain) Image(index int) core1_0.Image { return s.chain.Images[index] }

// ImageView returns the view of the presentable image at index
func (s *Swapchain) ImageView(index int) core1_0.ImageView { return s.chain.Views[index] }

// Len returns the number of presentable images
func (s *Swapchain) Len() int { return len(s.Images()) }

// Rebuilds returns how many times the chain has been reconstructed
func (s *Swapchain) Rebuilds() int { return s.rebuilds }

// MarkStale flags the swapchain so no further image is acquired until Reconstruct
func (s *Swapchain) MarkStale() {
	if s.state != StateStale {
		s.logger.Debug("Swapchain::MarkStale")
	}
	s.state = StateStale
}

// Acquire requests the next presentable image, signaling the provided semaphore once it is ready.
// While stale it returns ErrStale without touching the backend. An out-of-date report marks the
// swapchain stale and also returns ErrStale.
func (s *Swapchain) Acquire(signal core1_0.Semaphore) (int, error) {
	if s.state == StateStale {
		return -1, ErrStale
	}
	if s.chain == nil {
		panic("attempted to acquire from a destroyed swapchain")
	}

	index, result, err := s.backend.AcquireNextImage(signal)
	switch {
	case result == ResultOutOfDate:
		s.MarkStale()
		return -1, ErrStale
	case err != nil:
		return -1, errors.Wrap(err, "acquire swapchain image")
	case result == ResultSuboptimal:
		s.staleAfterPresent = true
	}

	return index, nil
}

// Present queues the image at imageIndex for display once wait is signaled. Out-of-date and
// suboptimal reports mark the swapchain stale but are not errors; the current frame has
// already been submitted and is allowed to complete.
func (s *Swapchain) Present(queue core1_0.Queue, wait core1_0.Semaphore, imageIndex int) error {
	result, err := s.backend.Present(queue, wait, imageIndex)

	staleAfterPresent := s.staleAfterPresent
	s.staleAfterPresent = false

	if result == ResultOutOfDate || result == ResultSuboptimal {
		s.logger.Debug("presentation reported a stale swapchain", slog.String("result", result.String()))
		s.MarkStale()
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "present swapchain image %d", imageIndex)
	}

	if staleAfterPresent {
		s.MarkStale()
	}
	return nil
}

// Reconstruct waits for the device to go idle, releases every image view and the swapchain
// itself, and rebuilds at the new size. The swapchain is Valid again only when it returns
// without error; after a failure it stays Stale with no chain and Reconstruct may be retried.
func (s *Swapchain) Reconstruct(width, height int) error {
	s.logger.Debug("Swapchain::Reconstruct", slog.Int("width", width), slog.Int("height", height))

	s.MarkStale()

	err := s.backend.WaitIdle()
	if err != nil {
		return errors.Wrap(err, "wait for device idle before rebuilding swapchain")
	}

	if s.chain != nil {
		err = s.backend.Release(s.chain)
		s.chain = nil
		if err != nil {
			return errors.Wrap(err, "release swapchain")
		}
	}

	chain, err := s.backend.Build(width, height)
	if err != nil {
		return errors.Wrapf(err, "rebuild swapchain at %dx%d", width, height)
	}

	s.chain = chain
	s.state = StateValid
	s.staleAfterPresent = false
	s.rebuilds++

	s.logger.Info("swapchain rebuilt",
		slog.Int("width", chain.Extent.Width),
		slog.Int("height", chain.Extent.Height),
	)

	return nil
}

// Destroy releases the current chain. The caller must make sure no frame still uses it.
func (s *Swapchain) Destroy() error {
	s.logger.Debug("Swapchain::Destroy")

	if s.chain == nil {
		return nil
	}

	err := s.backend.Release(s.chain)
	s.chain = nil
	return errors.Wrap(err, "release swapchain")
}

// DebugString summarizes the swapchain for logging
func (s *Swapchain) DebugString() string {
	if s.chain == nil {
		return s.state.String() + " (released)"
	}
	return fmt.Sprintf("%s %dx%d %v x%d", s.state, s.chain.Extent.Width, s.chain.Extent.Height, s.chain.Format, len(s.chain.Images))
}
