package config

import (
	"bytes"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"
	"github.com/vkngwrapper/vkrender/descriptors"
	"github.com/vkngwrapper/vkrender/scene"
	"github.com/vkngwrapper/vkrender/swapchain"
	"golang.org/x/exp/slog"
)

type Window struct {
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	Title     string `toml:"title"`
	Resizable bool   `toml:"resizable"`
}

type Renderer struct {
	// FramesInFlight is 2 for double buffering or 3 for triple buffering
	FramesInFlight  int    `toml:"frames_in_flight"`
	PresentMode     string `toml:"present_mode"`
	Validation      bool   `toml:"validation"`
	PreferredDevice string `toml:"preferred_device"`
	// InitialDescriptorSets sizes the first descriptor pool of each frame slot
	InitialDescriptorSets int  `toml:"initial_descriptor_sets"`
	NormalColors          bool `toml:"normal_colors"`
	// SynchronizedUploads locks the mesh cache so meshes can be uploaded off the render thread
	SynchronizedUploads bool `toml:"synchronized_uploads"`
}

// Shaders are SPIR-V paths. The pair must follow the binding and vertex pulling layout
// documented on scene.DrawPushConstants.
type Shaders struct {
	Vertex   string `toml:"vertex"`
	Fragment string `toml:"fragment"`
}

type Camera struct {
	Position [3]float32 `toml:"position"`
	Target   [3]float32 `toml:"target"`
	Up       [3]float32 `toml:"up"`
	// FovY is the vertical field of view in degrees
	FovY float32 `toml:"fov_y"`
	Near float32 `toml:"near"`
	Far  float32 `toml:"far"`
}

type Scene struct {
	Meshes []string `toml:"meshes"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the viewer's TOML configuration
type Config struct {
	Window   Window   `toml:"window"`
	Renderer Renderer `toml:"renderer"`
	Shaders  Shaders  `toml:"shaders"`
	Camera   Camera   `toml:"camera"`
	Scene    Scene    `toml:"scene"`
	Log      Log      `toml:"log"`
}

// Default returns the configuration used for every value a file leaves out
func Default() *Config {
	return &Config{
		Window: Window{
			Width:     1700,
			Height:    900,
			Title:     "vkrender",
			Resizable: true,
		},
		Renderer: Renderer{
			FramesInFlight:        2,
			PresentMode:           "fifo",
			InitialDescriptorSets: 10,
		},
		Shaders: Shaders{
			Vertex:   "shaders/mesh.vert.spv",
			Fragment: "shaders/mesh.frag.spv",
		},
		Camera: Camera{
			Position: [3]float32{0, 0, 5},
			Up:       [3]float32{0, 1, 0},
			FovY:     70,
			Near:     0.1,
			Far:      10000,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Decode reads TOML over the defaults. Keys that match no field are an error.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()

	err := toml.NewDecoder(r).DisallowUnknownFields().Decode(cfg)
	if err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, errors.Newf("unknown configuration keys:\n%s", strict.String())
		}
		return nil, errors.Wrap(err, "decode configuration")
	}

	return cfg, cfg.Validate()
}

// Load reads the configuration file at path. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read configuration")
	}

	cfg, err := Decode(bytes.NewReader(data))
	return cfg, errors.Wrapf(err, "load %s", path)
}

// Validate reports the first setting that is out of range
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Newf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.FramesInFlight < 2 || c.Renderer.FramesInFlight > 3 {
		return errors.Newf("frames_in_flight must be 2 or 3, got %d", c.Renderer.FramesInFlight)
	}
	if _, err := swapchain.ParsePresentMode(c.Renderer.PresentMode); err != nil {
		return err
	}
	if c.Renderer.InitialDescriptorSets <= 0 || c.Renderer.InitialDescriptorSets > descriptors.MaxSetsPerPool {
		return errors.Newf("initial_descriptor_sets must be between 1 and %d, got %d", descriptors.MaxSetsPerPool, c.Renderer.InitialDescriptorSets)
	}
	if c.Shaders.Vertex == "" || c.Shaders.Fragment == "" {
		return errors.New("both vertex and fragment shader paths must be set")
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return errors.Newf("camera clip planes must satisfy 0 < near < far, got near %g far %g", c.Camera.Near, c.Camera.Far)
	}
	if c.Camera.FovY <= 0 || c.Camera.FovY >= 180 {
		return errors.Newf("camera fov_y must be between 0 and 180 degrees, got %g", c.Camera.FovY)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.Newf("log format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

// SceneCamera converts the camera section into the renderer's camera
func (c *Config) SceneCamera() scene.Camera {
	return scene.Camera{
		Position: mgl32.Vec3(c.Camera.Position),
		Target:   mgl32.Vec3(c.Camera.Target),
		Up:       mgl32.Vec3(c.Camera.Up),
		FovY:     c.Camera.FovY,
		Near:     c.Camera.Near,
		Far:      c.Camera.Far,
	}
}

func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.Log.Level))
	if err != nil {
		return 0, errors.Wrapf(err, "log level %q", c.Log.Level)
	}
	return level, nil
}

// NewLogger builds the root logger described by the log section
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := c.LogLevel()
	if err != nil {
		return nil, err
	}

	options := slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(options.NewJSONHandler(w)), nil
	}
	return slog.New(options.NewTextHandler(w)), nil
}
