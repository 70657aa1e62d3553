package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// GraphicsPipelineConfig is a utility object to ease construction of graphics pipelines
type GraphicsPipelineConfig struct {
	VertexShader   *ShaderModule
	FragmentShader *ShaderModule
	VertexEntry    string
	FragmentEntry  string
	VertexSource   VertexSource

	// PrimativeTopology see https://www.khronos.org/registry/vulkan/specs/1.1-extensions/man/html/VkPrimitiveTopology.html
	// defaults to VK_PRIMITIVE_TOPOLOGY_TRIANGLE_LIST
	PrimitiveTopology vk.PrimitiveTopology

	// PolygonMode see https://www.khronos.org/registry/vulkan/specs/1.1-extensions/man/html/VkPolygonMode.html
	// defaults to VK_POLYGON_MODE_FILL
	PolygonMode vk.PolygonMode

	// LineWidth of rasterized lines, defaults to 1.0
	LineWidth float32

	// CullMode specifies which triangles will be culled, defaults to none so
	// geometry of either winding is drawn
	CullMode vk.CullModeFlagBits

	// FrontFace defaults to vk.FrontFaceCounterClockwise
	FrontFace vk.FrontFace

	// BlendAttachments defaults to a single opaque attachment writing every channel
	BlendAttachments []vk.PipelineColorBlendAttachmentState
}

// NewGraphicsPipelineConfig creates a config with the default fixed function state
func NewGraphicsPipelineConfig(vs, fs *ShaderModule, vertices VertexSource) *GraphicsPipelineConfig {
	return &GraphicsPipelineConfig{
		VertexShader:      vs,
		FragmentShader:    fs,
		VertexEntry:       "vs_main",
		FragmentEntry:     "fs_main",
		VertexSource:      vertices,
		PrimitiveTopology: vk.PrimitiveTopologyTriangleList,
		PolygonMode:       vk.PolygonModeFill,
		LineWidth:         1.0,
		CullMode:          vk.CullModeNone,
		FrontFace:         vk.FrontFaceCounterClockwise,
	}
}

// Interface merges the reflected interfaces of both stages
func (g *GraphicsPipelineConfig) Interface() (*ShaderInterface, error) {
	if g.VertexShader == nil || g.FragmentShader == nil {
		return nil, errors.New("graphics pipeline needs a vertex and a fragment shader")
	}
	return MergeInterfaces(g.VertexShader.Interface, g.FragmentShader.Interface)
}

func (g *GraphicsPipelineConfig) shaderStages() ([]vk.PipelineShaderStageCreateInfo, error) {
	vs, err := g.VertexShader.VKPipelineShaderStageCreateInfo(g.VertexEntry)
	if err != nil {
		return nil, err
	}
	if vs.Stage != vk.ShaderStageVertexBit {
		return nil, errors.Errorf("%s is not a vertex entry point", g.VertexEntry)
	}
	fs, err := g.FragmentShader.VKPipelineShaderStageCreateInfo(g.FragmentEntry)
	if err != nil {
		return nil, err
	}
	if fs.Stage != vk.ShaderStageFragmentBit {
		return nil, errors.Errorf("%s is not a fragment entry point", g.FragmentEntry)
	}
	return []vk.PipelineShaderStageCreateInfo{vs, fs}, nil
}

// VKGraphicsPipelineCreateInfo uses the provided config information to create a vk.GraphicsPipelineCreateInfo
// with a fixed viewport covering extent
func (g *GraphicsPipelineConfig) VKGraphicsPipelineCreateInfo(extent vk.Extent2D, renderPass vk.RenderPass, layout vk.PipelineLayout) (vk.GraphicsPipelineCreateInfo, error) {
	iface, err := g.Interface()
	if err != nil {
		return vk.GraphicsPipelineCreateInfo{}, err
	}
	stages, err := g.shaderStages()
	if err != nil {
		return vk.GraphicsPipelineCreateInfo{}, err
	}

	var bindings []vk.VertexInputBindingDescription
	var attributes []vk.VertexInputAttributeDescription
	if g.VertexSource != nil {
		bindings = []vk.VertexInputBindingDescription{g.VertexSource.BindingDescription()}
		attributes = g.VertexSource.AttributeDescriptions()
	}
	if err := ValidateVertexInputs(iface.Inputs, attributes); err != nil {
		return vk.GraphicsPipelineCreateInfo{}, err
	}

	vertexInputState := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	inputAssemblyState := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               g.PrimitiveTopology,
		PrimitiveRestartEnable: vk.False,
	}

	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{viewport},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{scissor},
	}

	rasterState := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             g.PolygonMode,
		LineWidth:               g.LineWidth,
		CullMode:                vk.CullModeFlags(g.CullMode),
		FrontFace:               g.FrontFace,
		DepthBiasEnable:         vk.False,
	}

	multisampleState := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
	}

	blendAttachments := g.BlendAttachments
	if blendAttachments == nil {
		blendAttachments = []vk.PipelineColorBlendAttachmentState{{
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
			BlendEnable:    vk.False,
		}}
	}
	colorBlendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	return vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputState,
		PInputAssemblyState: &inputAssemblyState,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterState,
		PMultisampleState:   &multisampleState,
		PColorBlendState:    &colorBlendState,
		Layout:              layout,
		RenderPass:          renderPass,
		Subpass:             0,
	}, nil
}
