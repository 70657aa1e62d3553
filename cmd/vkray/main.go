// Command vkray opens a window and renders a triangle or a ray marched scene
// with Vulkan.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"

	vkr "github.com/Gaubbe/vk-ray-marcher"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func init() {
	// glfw and the presentation calls must stay on the main thread
	runtime.LockOSThread()
}

type options struct {
	configFile  string
	scene       string
	width       int
	height      int
	validation  bool
	watch       bool
	presentMode string
	timeout     string
}

func newRootCommand() *cobra.Command {
	return newRootCommandFor(&options{})
}

func newRootCommandFor(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "vkray",
		Short:         "Render a scene with Vulkan",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, log.New(os.Stderr, "vkray: ", log.LstdFlags))
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&opts.configFile, "config", "c", "", "TOML or YAML config file")
	f.BoolVar(&opts.validation, "validation", false, "enable the validation layer")

	f = cmd.Flags()
	f.StringVar(&opts.scene, "scene", vkr.SceneRayMarch, "scene to draw, triangle or raymarch")
	f.IntVar(&opts.width, "width", 800, "window width")
	f.IntVar(&opts.height, "height", 600, "window height")
	f.BoolVar(&opts.watch, "watch", false, "rebuild the pipeline when shader files change")
	f.StringVar(&opts.presentMode, "present-mode", "fifo", "fifo, mailbox or immediate")
	f.StringVar(&opts.timeout, "timeout", "10s", "frame timeout, 0 waits forever")

	cmd.AddCommand(newInfoCommand(), newComputeCommand(opts))
	return cmd
}

// loadConfig reads the config file, if any, and applies the flags that were
// given on the command line.
func loadConfig(cmd *cobra.Command, opts *options) (*vkr.Config, error) {
	cfg := vkr.DefaultConfig()
	if opts.configFile != "" {
		var err error
		if cfg, err = vkr.LoadConfig(opts.configFile); err != nil {
			return nil, err
		}
	}

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("scene") {
		cfg.Scene = opts.scene
	}
	if changed("width") {
		cfg.Width = opts.width
	}
	if changed("height") {
		cfg.Height = opts.height
	}
	if changed("validation") {
		cfg.Validation = opts.validation
	}
	if changed("watch") {
		cfg.WatchShaders = opts.watch
	}
	if changed("present-mode") {
		cfg.PresentMode = opts.presentMode
	}
	if changed("timeout") {
		cfg.FrameTimeout = opts.timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(parent context.Context, cfg *vkr.Config, logger *log.Logger) error {
	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "init glfw")
	}
	defer glfw.Terminate()

	if !glfw.VulkanSupported() {
		return errors.New("glfw reports no Vulkan loader")
	}
	if err := vkr.InitializeWithLoader(glfw.GetVulkanGetInstanceProcAddress()); err != nil {
		return err
	}

	window, err := newWindow(cfg)
	if err != nil {
		return err
	}
	defer window.Destroy()

	rc, err := vkr.NewContext(window, cfg, logger)
	if err != nil {
		return err
	}
	defer rc.Destroy()

	engine, err := vkr.NewSwapchainEngine(rc)
	if err != nil {
		return err
	}
	defer engine.Destroy()

	timeout, err := cfg.Timeout()
	if err != nil {
		return err
	}
	loop := vkr.NewFrameLoop(engine, timeout, logger)
	window.OnResize(loop.Resize)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if files := shaderFiles(cfg); cfg.WatchShaders && len(files) > 0 {
		w, err := newShaderWatcher(files, loop.RequestRebuild, logger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	runErr := loop.Run(gctx, window.Poll)
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && runErr == nil {
		runErr = err
	}

	stats := loop.Stats()
	logger.Printf("presented %d frames, dropped %d, %d recreations",
		stats.Presented, stats.Dropped, stats.Recreations)
	return runErr
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "vkray:", err)
		os.Exit(1)
	}
}
