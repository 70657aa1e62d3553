package vkr

import (
	"log"
	"time"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Compute is a headless device used for one shot transfer and compute work
type Compute struct {
	Logger  *log.Logger
	Timeout time.Duration

	Instance       *Instance
	PhysicalDevice *PhysicalDevice
	QueueFamily    *QueueFamily
	Device         *Device
	Queue          *Queue
	Allocator      *MemoryAllocator
	CommandPool    *CommandPool
	PipelineCache  *PipelineCache
}

// NewCompute loads Vulkan without a window and opens the best compute capable
// device.
func NewCompute(cfg *Config, logger *log.Logger) (c *Compute, err error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = log.Default()
	}
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}
	blockSize, err := cfg.BlockSize()
	if err != nil {
		return nil, err
	}

	if err := InitializeForComputeOnly(); err != nil {
		return nil, err
	}

	c = &Compute{Logger: logger, Timeout: timeout}
	defer func() {
		if err != nil {
			c.Destroy()
		}
	}()

	app := &App{Name: cfg.Title + "-compute", EngineName: "vkray", Logger: logger}
	if cfg.Validation {
		app.EnableDebugging()
	}
	if c.Instance, err = app.CreateInstance(); err != nil {
		return nil, err
	}

	c.PhysicalDevice, c.QueueFamily, err = c.Instance.SelectPhysicalDevice(vk.NullSurface, DeviceRequirements{Compute: true})
	if err != nil {
		return nil, err
	}
	c.Device, err = c.PhysicalDevice.CreateLogicalDevice(QueueFamilySlice{c.QueueFamily}, &CreateDeviceOptions{
		EnabledLayers: app.EnabledLayers,
	})
	if err != nil {
		return nil, err
	}
	c.Queue = c.Device.GetQueue(c.QueueFamily)
	c.Allocator = c.Device.CreateMemoryAllocator(blockSize, logger)

	if c.CommandPool, err = c.Device.CreateCommandPool(c.QueueFamily); err != nil {
		return nil, err
	}
	if c.PipelineCache, err = c.Device.CreatePipelineCache(); err != nil {
		return nil, err
	}
	logger.Printf("compute on %s, queue family %d", c.PhysicalDevice.DeviceName, c.QueueFamily.Index)
	return c, nil
}

// run records a one time command buffer, submits it and waits for the fence
func (c *Compute) run(record func(cb *CommandBuffer)) error {
	cb, err := c.CommandPool.AllocateBuffer()
	if err != nil {
		return err
	}
	defer c.CommandPool.FreeBuffer(cb)

	if err := cb.BeginOneTime(); err != nil {
		return err
	}
	record(cb)
	if err := cb.End(); err != nil {
		return err
	}

	fence, err := c.Device.CreateFence()
	if err != nil {
		return err
	}
	defer fence.Destroy()

	if err := c.Queue.SubmitWithFence(fence, cb); err != nil {
		return err
	}
	if err := c.Device.WaitForFences(true, c.Timeout, fence); err != nil {
		if errors.Is(err, ErrTimeout) {
			return errors.Wrap(ErrDeviceLost, err.Error())
		}
		return err
	}
	return nil
}

func (c *Compute) hostBuffer(values []uint32, usage vk.BufferUsageFlagBits) (*BufferResource, error) {
	data := Uint32Bytes(values)
	r, err := c.Allocator.AllocateBuffer(uint64(len(data)), usage,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, err
	}
	if err := r.Upload(data); err != nil {
		r.Free()
		return nil, err
	}
	return r, nil
}

// CopyRoundTrip copies values from a host written buffer to a second buffer on
// the device and reads the destination back.
func (c *Compute) CopyRoundTrip(values []uint32) ([]uint32, error) {
	if len(values) == 0 {
		return nil, errors.New("nothing to copy")
	}
	src, err := c.hostBuffer(values, vk.BufferUsageTransferSrcBit)
	if err != nil {
		return nil, errors.Wrap(err, "source buffer")
	}
	defer src.Free()

	dst, err := c.hostBuffer(make([]uint32, len(values)), vk.BufferUsageTransferDstBit)
	if err != nil {
		return nil, errors.Wrap(err, "destination buffer")
	}
	defer dst.Free()

	if err := c.run(func(cb *CommandBuffer) {
		cb.CmdCopyBuffer(src, dst)
	}); err != nil {
		return nil, err
	}
	return BytesUint32(dst.Bytes()), nil
}

// storageBinding finds the single storage buffer a compute shader writes
func storageBinding(si *ShaderInterface) (DescriptorBinding, error) {
	var found []DescriptorBinding
	for _, b := range si.Bindings {
		if b.Type == vk.DescriptorTypeStorageBuffer {
			found = append(found, b)
		}
	}
	if len(found) != 1 {
		return DescriptorBinding{}, errors.Errorf("expected one storage buffer, shader declares %d", len(found))
	}
	if len(si.Bindings) != 1 {
		return DescriptorBinding{}, errors.Errorf("shader declares %d bindings, only a storage buffer is supported", len(si.Bindings))
	}
	return found[0], nil
}

// workgroups is the number of workgroups covering n invocations
func workgroups(n, size int) int {
	if size <= 0 {
		size = 1
	}
	return (n + size - 1) / size
}

// Dispatch runs the WGSL compute entry point over values, bound as the
// shader's storage buffer, and returns the buffer contents afterwards. The
// buffer is zero padded to a whole number of workgroups so the shader needs no
// bounds check.
func (c *Compute) Dispatch(wgsl, entry string, values []uint32, workgroupSize int) ([]uint32, error) {
	if len(values) == 0 {
		return nil, errors.New("nothing to dispatch")
	}
	module, err := c.Device.CreateShaderModuleWGSL(wgsl, entry)
	if err != nil {
		return nil, err
	}
	defer module.Destroy()

	binding, err := storageBinding(module.Interface)
	if err != nil {
		return nil, err
	}

	pipeline, err := c.Device.CreateComputePipeline(c.PipelineCache, module, entry)
	if err != nil {
		return nil, err
	}
	defer pipeline.Destroy()

	groups := workgroups(len(values), workgroupSize)
	padded := make([]uint32, groups*max(workgroupSize, 1))
	copy(padded, values)
	buffer, err := c.hostBuffer(padded, vk.BufferUsageStorageBufferBit)
	if err != nil {
		return nil, err
	}
	defer buffer.Free()

	layouts := pipeline.Layout.SetLayouts
	pool, err := c.Device.CreateDescriptorPoolFor(layouts...)
	if err != nil {
		return nil, err
	}
	defer pool.Destroy()

	set, err := pool.Allocate(layouts[binding.Set])
	if err != nil {
		return nil, err
	}
	set.Bind(binding, buffer)
	set.Write()

	if err := c.run(func(cb *CommandBuffer) {
		cb.CmdBindComputePipeline(pipeline)
		cb.CmdBindDescriptorSets(vk.PipelineBindPointCompute, pipeline.Layout, int(binding.Set), set)
		cb.CmdDispatch(groups, 1, 1)
	}); err != nil {
		return nil, err
	}
	return BytesUint32(buffer.Bytes())[:len(values)], nil
}

func (c *Compute) Destroy() {
	if c.Device != nil {
		c.Device.WaitIdle()
	}
	if c.PipelineCache != nil {
		c.PipelineCache.Destroy()
		c.PipelineCache = nil
	}
	if c.CommandPool != nil {
		c.CommandPool.Destroy()
		c.CommandPool = nil
	}
	if c.Allocator != nil {
		c.Allocator.Destroy()
		c.Allocator = nil
	}
	if c.Device != nil {
		c.Device.Release()
		c.Device = nil
	}
	if c.Instance != nil {
		c.Instance.Destroy()
		c.Instance = nil
	}
}
