package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestDefault_IsValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestDecode_OverridesDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
[window]
width = 1280
height = 720

[renderer]
frames_in_flight = 3
present_mode = "mailbox"
synchronized_uploads = true

[camera]
position = [1.0, 2.0, 3.0]

[scene]
meshes = ["assets/basicmesh.glb", "assets/structure.glb"]

[log]
level = "debug"
format = "json"
`))
	require.NoError(t, err)

	require.Equal(t, 1280, cfg.Window.Width)
	require.Equal(t, "vkrender", cfg.Window.Title)
	require.Equal(t, 3, cfg.Renderer.FramesInFlight)
	require.Equal(t, "mailbox", cfg.Renderer.PresentMode)
	require.Equal(t, 10, cfg.Renderer.InitialDescriptorSets)
	require.True(t, cfg.Renderer.SynchronizedUploads)
	require.False(t, Default().Renderer.SynchronizedUploads)
	require.Equal(t, []string{"assets/basicmesh.glb", "assets/structure.glb"}, cfg.Scene.Meshes)

	camera := cfg.SceneCamera()
	require.Equal(t, mgl32.Vec3{1, 2, 3}, camera.Position)
	require.Equal(t, mgl32.Vec3{0, 1, 0}, camera.Up)
	require.Equal(t, float32(70), camera.FovY)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)
}

func TestDecode_RejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader(`
[renderer]
frames_in_fligth = 3
`))
	require.ErrorContains(t, err, "unknown configuration keys")
}

func TestDecode_Validation(t *testing.T) {
	testCases := map[string]string{
		"frames_in_flight":        "[renderer]\nframes_in_flight = 4",
		"present mode":            "[renderer]\npresent_mode = \"vsync\"",
		"window size":             "[window]\nwidth = 0",
		"clip planes":             "[camera]\nnear = 10.0\nfar = 1.0",
		"fov_y":                   "[camera]\nfov_y = 180.0",
		"shader path":             "[shaders]\nvertex = \"\"",
		"initial_descriptor_sets": "[renderer]\ninitial_descriptor_sets = 0",
		"initial_descriptor_sets cap": "[renderer]\ninitial_descriptor_sets = 5000",
		"log level":               "[log]\nlevel = \"loud\"",
		"log format":              "[log]\nformat = \"xml\"",
	}

	for name, document := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(document))
			require.Error(t, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.toml")
	require.NoError(t, os.WriteFile(path, []byte("[window]\ntitle = \"test\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "test", cfg.Window.Title)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorContains(t, err, "read configuration")
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	var out bytes.Buffer
	logger, err := cfg.NewLogger(&out)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", slog.Int("frame", 3))
	require.NotContains(t, out.String(), "hidden")
	require.Contains(t, out.String(), `"frame":3`)
}
