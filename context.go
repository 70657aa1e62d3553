package vkr

import (
	"log"

	"github.com/Gaubbe/vk-ray-marcher/shaders"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Window is the windowing system as seen by the renderer
type Window interface {
	// RequiredInstanceExtensions lists the instance extensions presentation needs
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	// FramebufferSize is the drawable size in pixels
	FramebufferSize() (int, int)
}

// Context owns every GPU object of one window. Objects tied to the swapchain are
// replaced on recreation, never modified in place.
type Context struct {
	Config *Config
	Window Window
	Logger *log.Logger

	Instance       *Instance
	Surface        vk.Surface
	PhysicalDevice *PhysicalDevice
	QueueFamily    *QueueFamily
	Device         *Device
	Queue          *Queue
	Allocator      *MemoryAllocator
	CommandPool    *CommandPool
	PipelineCache  *PipelineCache

	VertexShader   *ShaderModule
	FragmentShader *ShaderModule
	Vertices       VertexSlice
	VertexBuffer   *BufferResource

	Swapchain      *Swapchain
	RenderPass     *RenderPass
	Pipeline       *GraphicsPipeline
	CommandBuffers []*CommandBuffer

	// reloaded holds shaders loaded for a rebuild that has not happened yet
	reloaded shaderStages
}

// shaderStages is the vertex and fragment module of a pipeline. Both stages may
// come from one module.
type shaderStages struct {
	Vertex   *ShaderModule
	Fragment *ShaderModule
}

func (s shaderStages) empty() bool {
	return s.Vertex == nil && s.Fragment == nil
}

// modules lists every distinct module once
func (s shaderStages) modules() []*ShaderModule {
	var ret []*ShaderModule
	if s.Vertex != nil {
		ret = append(ret, s.Vertex)
	}
	if s.Fragment != nil && s.Fragment != s.Vertex {
		ret = append(ret, s.Fragment)
	}
	return ret
}

func (s shaderStages) destroy() {
	for _, m := range s.modules() {
		m.Destroy()
	}
}

// adoptShaders builds the pipeline from next when a reload is pending and falls
// back to cur when next is rejected. It returns the stages now in use and the
// ones that can be destroyed.
func adoptShaders(cur, next shaderStages, build func(shaderStages) error, logger *log.Logger) (inUse, unused shaderStages, err error) {
	if next.empty() {
		return cur, shaderStages{}, build(cur)
	}
	if err := build(next); err != nil {
		logger.Printf("reloaded shaders rejected, keeping the current ones: %v", err)
		return cur, next, build(cur)
	}
	return next, cur, nil
}

// NewContext runs the whole initialization chain. Any failure is returned after
// the objects created so far are destroyed.
func NewContext(window Window, cfg *Config, logger *log.Logger) (ctx *Context, err error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}

	c := &Context{Config: cfg, Window: window, Logger: logger}
	defer func() {
		if err != nil {
			c.Destroy()
		}
	}()

	app := &App{
		Name:              cfg.Title,
		EngineName:        "vkray",
		Version:           Version{Major: 1},
		APIVersion:        Version{Major: 1, Minor: 1},
		EnabledExtensions: window.RequiredInstanceExtensions(),
		Logger:            c.Logger,
	}
	if cfg.Validation {
		app.EnableDebugging()
	}
	if c.Instance, err = app.CreateInstance(); err != nil {
		return nil, err
	}

	if c.Surface, err = window.CreateSurface(c.Instance.VKInstance); err != nil {
		return nil, errors.Wrap(err, "create surface")
	}

	c.PhysicalDevice, c.QueueFamily, err = c.Instance.SelectPhysicalDevice(c.Surface, DeviceRequirements{
		Extensions: []string{SwapchainExtension},
		Graphics:   true,
		Present:    true,
	})
	if err != nil {
		return nil, err
	}
	logger.Printf("using %s, queue family %d", c.PhysicalDevice.DeviceName, c.QueueFamily.Index)

	c.Device, err = c.PhysicalDevice.CreateLogicalDevice(QueueFamilySlice{c.QueueFamily}, &CreateDeviceOptions{
		EnabledExtensions: []string{SwapchainExtension},
		EnabledLayers:     app.EnabledLayers,
	})
	if err != nil {
		return nil, err
	}
	c.Queue = c.Device.GetQueue(c.QueueFamily)

	blockSize, err := cfg.BlockSize()
	if err != nil {
		return nil, err
	}
	c.Allocator = c.Device.CreateMemoryAllocator(blockSize, logger)

	if c.CommandPool, err = c.Device.CreateCommandPool(c.QueueFamily); err != nil {
		return nil, err
	}
	if c.PipelineCache, err = c.Device.CreatePipelineCache(); err != nil {
		return nil, err
	}

	stages, err := c.loadShaders()
	if err != nil {
		return nil, err
	}
	c.VertexShader, c.FragmentShader = stages.Vertex, stages.Fragment

	c.Vertices = sceneVertices(cfg.Scene)
	if c.VertexBuffer, err = c.Allocator.CreateVertexBuffer(c.Vertices); err != nil {
		return nil, err
	}

	if c.Swapchain, err = c.Device.CreateSwapchain(c.Surface, c.swapchainOptions()); err != nil {
		return nil, err
	}
	if c.RenderPass, err = c.Device.CreateRenderPass(c.Swapchain.Config.Format.Format); err != nil {
		return nil, err
	}
	if err = c.Swapchain.CreateFramebuffers(c.RenderPass); err != nil {
		return nil, err
	}
	if err = c.buildPipeline(c.shaders()); err != nil {
		return nil, err
	}
	if err = c.recordCommandBuffers(); err != nil {
		return nil, err
	}

	c.Allocator.LogDetails()
	return c, nil
}

func sceneVertices(scene string) VertexSlice {
	if scene == SceneTriangle {
		return TriangleVertices()
	}
	return QuadVertices()
}

func (c *Context) swapchainOptions() SwapchainOptions {
	w, h := c.Window.FramebufferSize()
	mode, _ := c.Config.VKPresentMode()
	return SwapchainOptions{
		DesiredExtent: vk.Extent2D{Width: uint32(w), Height: uint32(h)},
		PresentMode:   mode,
	}
}

// loadShaders builds the vertex and fragment modules, from the override files
// when configured and from the scene's embedded source otherwise. Both stages
// share one module when they come from the same source.
func (c *Context) loadShaders() (shaderStages, error) {
	var scene *ShaderModule
	sceneModule := func() (*ShaderModule, error) {
		if scene != nil {
			return scene, nil
		}
		src, err := shaders.ForScene(c.Config.Scene)
		if err != nil {
			return nil, err
		}
		scene, err = c.Device.CreateShaderModuleWGSL(src, c.Config.Scene+".wgsl")
		return scene, err
	}
	load := func(file string) (*ShaderModule, error) {
		if file == "" {
			return sceneModule()
		}
		return c.Device.LoadShaderModuleFromFile(file)
	}

	vs, err := load(c.Config.VertexShader)
	if err != nil {
		return shaderStages{}, err
	}
	fs, err := load(c.Config.FragmentShader)
	if err != nil {
		vs.Destroy()
		return shaderStages{}, err
	}
	return shaderStages{Vertex: vs, Fragment: fs}, nil
}

func (c *Context) shaders() shaderStages {
	return shaderStages{Vertex: c.VertexShader, Fragment: c.FragmentShader}
}

func (c *Context) destroyShaders() {
	c.shaders().destroy()
	c.reloaded.destroy()
	c.VertexShader, c.FragmentShader = nil, nil
	c.reloaded = shaderStages{}
}

// buildPipeline replaces the pipeline with one built from stages. The current
// pipeline is kept when building fails.
func (c *Context) buildPipeline(stages shaderStages) error {
	config := NewGraphicsPipelineConfig(stages.Vertex, stages.Fragment, c.Vertices)
	config.VertexEntry = shaders.VertexEntry
	config.FragmentEntry = shaders.FragmentEntry

	pipeline, err := c.Device.CreateGraphicsPipeline(c.PipelineCache, config, c.RenderPass, c.Swapchain.Config.Extent)
	if err != nil {
		return err
	}
	if c.Pipeline != nil {
		c.Pipeline.Destroy()
	}
	c.Pipeline = pipeline
	return nil
}

// pushConstants is the payload recorded with every draw, nil when the shaders
// declare no push constants
func (c *Context) pushConstants() PushConstantSource {
	if c.Pipeline.Layout.PushConstantSize() == 0 {
		return nil
	}
	return NewRayMarchConstants(c.Swapchain.Config.Extent)
}

func (c *Context) recordCommandBuffers() error {
	c.freeCommandBuffers()
	buffers, err := RecordDraws(c.CommandPool, c.Swapchain, c.RenderPass, DrawCommand{
		Pipeline:     c.Pipeline,
		VertexBuffer: c.VertexBuffer,
		VertexCount:  c.Vertices.Len(),
		PushConstant: c.pushConstants(),
	})
	if err != nil {
		return err
	}
	c.CommandBuffers = buffers
	return nil
}

func (c *Context) freeCommandBuffers() {
	if len(c.CommandBuffers) > 0 {
		c.CommandPool.FreeBuffers(c.CommandBuffers)
	}
	c.CommandBuffers = nil
}

// recreatePlan says which swapchain dependents have to be rebuilt. Command
// buffers are always re-recorded since they reference the framebuffers.
type recreatePlan struct {
	RenderPass bool
	Pipeline   bool
}

func planRecreate(old, next SwapchainConfig, shadersChanged bool) recreatePlan {
	p := recreatePlan{
		RenderPass: old.Format.Format != next.Format.Format,
	}
	p.Pipeline = p.RenderPass || shadersChanged || !old.SameTargets(next)
	return p
}

// Recreate replaces the swapchain and everything derived from it. The caller
// must have waited for all submitted frames. ErrMinimized leaves the context
// untouched.
func (c *Context) Recreate(reason RecreateReason) error {
	if err := c.Device.WaitIdle(); err != nil {
		return err
	}
	if w, h := c.Window.FramebufferSize(); w == 0 || h == 0 {
		return ErrMinimized
	}

	if reason&RecreateShaders != 0 {
		next, err := c.loadShaders()
		if err != nil {
			c.Logger.Printf("shader reload failed, keeping the current shaders: %v", err)
		} else {
			c.reloaded.destroy()
			c.reloaded = next
		}
	}

	old := c.Swapchain.Config
	c.freeCommandBuffers()
	sc, err := c.Swapchain.Recreate(c.swapchainOptions())
	if err != nil {
		if errors.Is(err, ErrMinimized) {
			if rerr := c.recordCommandBuffers(); rerr != nil {
				return rerr
			}
		}
		return err
	}
	c.Swapchain = sc

	plan := planRecreate(old, sc.Config, !c.reloaded.empty())
	if plan.RenderPass {
		if c.Pipeline != nil {
			c.Pipeline.Destroy()
			c.Pipeline = nil
		}
		c.RenderPass.Destroy()
		if c.RenderPass, err = c.Device.CreateRenderPass(sc.Config.Format.Format); err != nil {
			return err
		}
	}
	if err := sc.CreateFramebuffers(c.RenderPass); err != nil {
		return err
	}
	if plan.Pipeline {
		inUse, unused, err := adoptShaders(c.shaders(), c.reloaded, c.buildPipeline, c.Logger)
		c.VertexShader, c.FragmentShader = inUse.Vertex, inUse.Fragment
		c.reloaded = shaderStages{}
		unused.destroy()
		if err != nil {
			return err
		}
	}
	if err := c.recordCommandBuffers(); err != nil {
		return err
	}

	c.Logger.Printf("recreated for %s: %dx%d, %d images, pipeline rebuilt: %v",
		reason, sc.Config.Extent.Width, sc.Config.Extent.Height, sc.ImageCount(), plan.Pipeline)
	return nil
}

// Destroy tears everything down in reverse creation order. It is safe on a
// partially initialized context.
func (c *Context) Destroy() {
	if c.Device != nil {
		c.Device.WaitIdle()
	}
	if c.CommandPool != nil {
		c.freeCommandBuffers()
	}
	if c.Pipeline != nil {
		c.Pipeline.Destroy()
		c.Pipeline = nil
	}
	if c.Swapchain != nil {
		c.Swapchain.Destroy()
		c.Swapchain = nil
	}
	if c.RenderPass != nil {
		c.RenderPass.Destroy()
		c.RenderPass = nil
	}
	c.destroyShaders()
	if c.VertexBuffer != nil {
		c.VertexBuffer.Free()
		c.VertexBuffer = nil
	}
	if c.Allocator != nil {
		c.Allocator.Destroy()
		c.Allocator = nil
	}
	if c.PipelineCache != nil {
		c.PipelineCache.Destroy()
		c.PipelineCache = nil
	}
	if c.CommandPool != nil {
		c.CommandPool.Destroy()
		c.CommandPool = nil
	}
	if c.Device != nil {
		if refs := c.Device.Refs(); refs != 1 {
			c.Logger.Printf("device still has %d holders at shutdown", refs)
		}
		c.Device.Release()
		c.Device = nil
	}
	if c.Instance != nil {
		c.Instance.DestroySurface(c.Surface)
		c.Instance.Destroy()
		c.Instance = nil
	}
}
