package vkr

import (
	vk "github.com/vulkan-go/vulkan"
)

// PipelineLayout owns the descriptor set layouts it was built from
type PipelineLayout struct {
	Device             *Device
	SetLayouts         []*DescriptorSetLayout
	PushConstantRanges []vk.PushConstantRange
	VKPipelineLayout   vk.PipelineLayout
}

func (p *PipelineLayout) Destroy() {
	vk.DestroyPipelineLayout(p.Device.VKDevice, p.VKPipelineLayout, nil)
	for _, l := range p.SetLayouts {
		l.Destroy()
	}
	p.SetLayouts = nil
}

// PushConstantStages is the stage mask push constants must be recorded with
func (p *PipelineLayout) PushConstantStages() vk.ShaderStageFlags {
	var flags vk.ShaderStageFlags
	for _, r := range p.PushConstantRanges {
		flags |= r.StageFlags
	}
	return flags
}

// PushConstantSize is the number of push constant bytes the layout declares
func (p *PipelineLayout) PushConstantSize() uint32 {
	var size uint32
	for _, r := range p.PushConstantRanges {
		if end := r.Offset + r.Size; end > size {
			size = end
		}
	}
	return size
}

// CreatePipelineLayoutFromInterface derives the set layouts and push constant
// range from a reflected shader interface. The layout takes ownership of the set
// layouts it creates.
func (d *Device) CreatePipelineLayoutFromInterface(si *ShaderInterface) (*PipelineLayout, error) {
	var setLayouts []*DescriptorSetLayout
	for _, bindings := range si.SetLayoutBindings() {
		layout := d.NewDescriptorSetLayout()
		for _, b := range bindings {
			layout.AddBinding(b)
		}
		created, err := d.CreateDescriptorSetLayout(layout)
		if err != nil {
			for _, l := range setLayouts {
				l.Destroy()
			}
			return nil, err
		}
		setLayouts = append(setLayouts, created)
	}

	layout, err := d.CreatePipelineLayoutWithPushConstants(setLayouts, si.PushConstantRanges())
	if err != nil {
		for _, l := range setLayouts {
			l.Destroy()
		}
		return nil, err
	}
	return layout, nil
}

func (d *Device) CreatePipelineLayoutWithPushConstants(descriptorSetLayouts []*DescriptorSetLayout, pushConstants []vk.PushConstantRange) (*PipelineLayout, error) {
	l := make([]vk.DescriptorSetLayout, len(descriptorSetLayouts))
	for i, dsl := range descriptorSetLayouts {
		l[i] = dsl.VKDescriptorSetLayout
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(l)),
		PSetLayouts:            l,
		PushConstantRangeCount: uint32(len(pushConstants)),
		PPushConstantRanges:    pushConstants,
	}

	var pipelineLayout vk.PipelineLayout
	if err := resultError("create pipeline layout", vk.CreatePipelineLayout(d.VKDevice, &pipelineLayoutCreateInfo, nil, &pipelineLayout)); err != nil {
		return nil, err
	}

	return &PipelineLayout{
		Device:             d,
		SetLayouts:         descriptorSetLayouts,
		PushConstantRanges: pushConstants,
		VKPipelineLayout:   pipelineLayout,
	}, nil
}
