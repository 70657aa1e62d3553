package vkr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func testPipelineConfig(t *testing.T) *GraphicsPipelineConfig {
	vsi, err := Reflect(vertexModule())
	require.NoError(t, err)
	fsi, err := Reflect(fragmentModule(storageStorageBuffer))
	require.NoError(t, err)

	vs := &ShaderModule{Description: "vertex", Interface: vsi}
	fs := &ShaderModule{Description: "fragment", Interface: fsi}
	return NewGraphicsPipelineConfig(vs, fs, TriangleVertices())
}

func TestGraphicsPipelineCreateInfo(t *testing.T) {
	config := testPipelineConfig(t)
	extent := vk.Extent2D{Width: 640, Height: 480}

	info, err := config.VKGraphicsPipelineCreateInfo(extent, vk.NullRenderPass, vk.NullPipelineLayout)
	require.NoError(t, err)

	require.Len(t, info.PStages, 2)
	assert.Equal(t, vk.ShaderStageVertexBit, info.PStages[0].Stage)
	assert.Equal(t, "vs_main\x00", info.PStages[0].PName)
	assert.Equal(t, vk.ShaderStageFragmentBit, info.PStages[1].Stage)

	assert.Equal(t, vk.PrimitiveTopologyTriangleList, info.PInputAssemblyState.Topology)
	assert.Equal(t, uint32(1), info.PVertexInputState.VertexBindingDescriptionCount)
	assert.Equal(t, VertexStride, info.PVertexInputState.PVertexBindingDescriptions[0].Stride)

	vp := info.PViewportState.PViewports[0]
	assert.Equal(t, float32(640), vp.Width)
	assert.Equal(t, float32(480), vp.Height)
	assert.Equal(t, uint32(640), info.PViewportState.PScissors[0].Extent.Width)

	assert.Equal(t, vk.SampleCount1Bit, info.PMultisampleState.RasterizationSamples)
	require.Len(t, info.PColorBlendState.PAttachments, 1)
	assert.Equal(t, vk.Bool32(vk.False), info.PColorBlendState.PAttachments[0].BlendEnable)
	assert.Nil(t, info.PDepthStencilState)
	assert.Equal(t, uint32(0), info.Subpass)
}

func TestGraphicsPipelineRejectsMismatchedVertices(t *testing.T) {
	config := testPipelineConfig(t)
	config.VertexSource = nil
	_, err := config.VKGraphicsPipelineCreateInfo(vk.Extent2D{Width: 1, Height: 1}, vk.NullRenderPass, vk.NullPipelineLayout)
	assert.Error(t, err)
}

func TestGraphicsPipelineRejectsUnknownEntryPoint(t *testing.T) {
	config := testPipelineConfig(t)
	config.FragmentEntry = "main"
	_, err := config.VKGraphicsPipelineCreateInfo(vk.Extent2D{Width: 1, Height: 1}, vk.NullRenderPass, vk.NullPipelineLayout)
	assert.Error(t, err)

	config = testPipelineConfig(t)
	config.FragmentShader, config.FragmentEntry = config.VertexShader, "vs_main"
	_, err = config.VKGraphicsPipelineCreateInfo(vk.Extent2D{Width: 1, Height: 1}, vk.NullRenderPass, vk.NullPipelineLayout)
	assert.Error(t, err)
}

func TestGraphicsPipelineLayoutFromShaders(t *testing.T) {
	iface, err := testPipelineConfig(t).Interface()
	require.NoError(t, err)

	ranges := iface.PushConstantRanges()
	require.Len(t, ranges, 1)
	assert.Equal(t, uint32(16), ranges[0].Size)

	layout := &PipelineLayout{PushConstantRanges: ranges}
	assert.Equal(t, uint32(16), layout.PushConstantSize())
	assert.Equal(t, vk.ShaderStageFlags(vk.ShaderStageVertexBit|vk.ShaderStageFragmentBit), layout.PushConstantStages())

	sets := iface.SetLayoutBindings()
	require.Len(t, sets, 1)
	dsl := &DescriptorSetLayout{VKDescriptorSetLayoutBindings: sets[0]}
	assert.Equal(t, map[vk.DescriptorType]int{vk.DescriptorTypeStorageBuffer: 1}, dsl.PoolSizes())
}
