package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/vkrender/config"
	"github.com/vkngwrapper/vkrender/descriptors"
	"github.com/vkngwrapper/vkrender/engine"
	"github.com/vkngwrapper/vkrender/frame"
	"github.com/vkngwrapper/vkrender/gpu"
	"github.com/vkngwrapper/vkrender/loader"
	"github.com/vkngwrapper/vkrender/mesh"
	"github.com/vkngwrapper/vkrender/swapchain"
	"github.com/vkngwrapper/vkrender/teardown"
	"github.com/vkngwrapper/vkrender/window"
	"golang.org/x/exp/slog"
)

// glfw and the Vulkan surface must stay on the main thread
func init() {
	runtime.LockOSThread()
}

var poolRatios = []descriptors.PoolSizeRatio{
	{Type: core1_0.DescriptorTypeUniformBuffer, Ratio: 1},
	{Type: core1_0.DescriptorTypeCombinedImageSampler, Ratio: 1},
	{Type: core1_0.DescriptorTypeStorageBuffer, Ratio: 1},
}

func main() {
	err := newRootCommand().Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	var frames uint64

	cmd := &cobra.Command{
		Use:          "viewer [model.glb ...]",
		Short:        "Render glTF models with Vulkan",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg.Scene.Meshes = append(cfg.Scene.Meshes, args...)

			logger, err := cfg.NewLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return run(ctx, logger, cfg, frames, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	cmd.Flags().Uint64Var(&frames, "frames", 0, "exit after rendering this many frames (0 runs until the window closes)")

	return cmd
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config, frames uint64, out io.Writer) (err error) {
	var cleanup teardown.Queue
	defer func() {
		err = errors.CombineErrors(err, cleanup.Flush())
	}()

	win, err := window.Open(logger, window.Options{
		Width:     cfg.Window.Width,
		Height:    cfg.Window.Height,
		Title:     cfg.Window.Title,
		Resizable: cfg.Window.Resizable,
	})
	if err != nil {
		return err
	}
	cleanup.PushFunc("window", win.Destroy)

	gpuContext, err := gpu.New(logger, win, gpu.Options{
		ApplicationName:  cfg.Window.Title,
		EnableValidation: cfg.Renderer.Validation,
		PreferredDevice:  cfg.Renderer.PreferredDevice,
	})
	if err != nil {
		return err
	}
	cleanup.Push("gpu context", gpuContext.Destroy)

	presentMode, err := swapchain.ParsePresentMode(cfg.Renderer.PresentMode)
	if err != nil {
		return err
	}

	width, height := win.Size()
	chain, err := swapchain.New(logger, swapchain.NewVulkanBackend(logger, gpuContext, presentMode), width, height)
	if err != nil {
		return err
	}

	recorder, err := frame.NewSceneRecorder(logger, gpuContext, frame.RecorderOptions{
		VertexShader:   cfg.Shaders.Vertex,
		FragmentShader: cfg.Shaders.Fragment,
		Camera:         cfg.SceneCamera(),
		Extent:         chain.Extent(),
	})
	if err != nil {
		return errors.CombineErrors(err, chain.Destroy())
	}

	renderer, err := frame.New(logger, gpuContext, chain, recorder, frame.Options{
		FramesInFlight: cfg.Renderer.FramesInFlight,
		DescriptorSets: cfg.Renderer.InitialDescriptorSets,
		PoolRatios:     poolRatios,
		Cache:          mesh.CacheOptions{Synchronized: cfg.Renderer.SynchronizedUploads},
	})
	if err != nil {
		return errors.CombineErrors(err, errors.CombineErrors(recorder.Destroy(), chain.Destroy()))
	}

	meshLoader := loader.New(logger, loader.Options{NormalColors: cfg.Renderer.NormalColors})
	eng := engine.New(logger, win, renderer, meshLoader, engine.Options{FrameLimit: frames})
	cleanup.Push("engine", eng.Close)

	err = eng.LoadScene(cfg.Scene.Meshes...)
	if err != nil {
		return err
	}

	err = eng.Run(ctx)
	fmt.Fprintln(out, renderer.BuildStatsString())
	return err
}
