package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type PipelineCache struct {
	Device          *Device
	VKPipelineCache vk.PipelineCache
}

func (d *Device) CreatePipelineCache() (*PipelineCache, error) {
	pipelineCacheCreate := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}

	var pipelineCache vk.PipelineCache
	if err := resultError("create pipeline cache", vk.CreatePipelineCache(d.VKDevice, &pipelineCacheCreate, nil, &pipelineCache)); err != nil {
		return nil, err
	}
	return &PipelineCache{Device: d, VKPipelineCache: pipelineCache}, nil
}

func (c *PipelineCache) handle() vk.PipelineCache {
	if c == nil {
		var none vk.PipelineCache
		return none
	}
	return c.VKPipelineCache
}

func (c *PipelineCache) Destroy() {
	vk.DestroyPipelineCache(c.Device.VKDevice, c.VKPipelineCache, nil)
}

// GraphicsPipeline is immutable once built. A change of extent, render pass or
// shaders means building a new one and destroying this one once no recorded
// work references it.
type GraphicsPipeline struct {
	Device     *Device
	Layout     *PipelineLayout
	Interface  *ShaderInterface
	RenderPass *RenderPass
	Extent     vk.Extent2D
	VKPipeline vk.Pipeline
}

// CreateGraphicsPipeline builds a pipeline drawing into subpass 0 of rp with a
// fixed viewport covering extent. The layout comes from the reflected shaders.
func (d *Device) CreateGraphicsPipeline(cache *PipelineCache, config *GraphicsPipelineConfig, rp *RenderPass, extent vk.Extent2D) (*GraphicsPipeline, error) {
	iface, err := config.Interface()
	if err != nil {
		return nil, err
	}
	layout, err := d.CreatePipelineLayoutFromInterface(iface)
	if err != nil {
		return nil, err
	}

	createInfo, err := config.VKGraphicsPipelineCreateInfo(extent, rp.VKRenderPass, layout.VKPipelineLayout)
	if err != nil {
		layout.Destroy()
		return nil, err
	}

	pipelines := make([]vk.Pipeline, 1)
	err = resultError("create graphics pipeline", vk.CreateGraphicsPipelines(d.VKDevice, cache.handle(), 1,
		[]vk.GraphicsPipelineCreateInfo{createInfo}, nil, pipelines))
	if err != nil {
		layout.Destroy()
		return nil, err
	}

	return &GraphicsPipeline{
		Device:     d.Retain(),
		Layout:     layout,
		Interface:  iface,
		RenderPass: rp,
		Extent:     extent,
		VKPipeline: pipelines[0],
	}, nil
}

// Matches reports whether the pipeline can still be used with the given render
// pass and extent.
func (p *GraphicsPipeline) Matches(rp *RenderPass, extent vk.Extent2D) bool {
	return p.RenderPass == rp && p.Extent.Width == extent.Width && p.Extent.Height == extent.Height
}

func (p *GraphicsPipeline) Destroy() {
	vk.DestroyPipeline(p.Device.VKDevice, p.VKPipeline, nil)
	p.Layout.Destroy()
	p.Device.Release()
}

type ComputePipeline struct {
	Device     *Device
	Layout     *PipelineLayout
	Interface  *ShaderInterface
	VKPipeline vk.Pipeline
}

// CreateComputePipeline builds a compute pipeline for the named entry point,
// deriving its layout from the module's reflected interface.
func (d *Device) CreateComputePipeline(cache *PipelineCache, module *ShaderModule, entryPoint string) (*ComputePipeline, error) {
	stage, err := module.VKPipelineShaderStageCreateInfo(entryPoint)
	if err != nil {
		return nil, err
	}
	if stage.Stage != vk.ShaderStageComputeBit {
		return nil, errors.Errorf("%s is not a compute entry point", entryPoint)
	}

	layout, err := d.CreatePipelineLayoutFromInterface(module.Interface)
	if err != nil {
		return nil, err
	}

	createInfo := vk.ComputePipelineCreateInfo{
		SType:  vk.StructureTypeComputePipelineCreateInfo,
		Stage:  stage,
		Layout: layout.VKPipelineLayout,
	}

	pipelines := make([]vk.Pipeline, 1)
	err = resultError("create compute pipeline", vk.CreateComputePipelines(d.VKDevice, cache.handle(), 1,
		[]vk.ComputePipelineCreateInfo{createInfo}, nil, pipelines))
	if err != nil {
		layout.Destroy()
		return nil, err
	}

	return &ComputePipeline{
		Device:     d.Retain(),
		Layout:     layout,
		Interface:  module.Interface,
		VKPipeline: pipelines[0],
	}, nil
}

func (p *ComputePipeline) Destroy() {
	vk.DestroyPipeline(p.Device.VKDevice, p.VKPipeline, nil)
	p.Layout.Destroy()
	p.Device.Release()
}
