package vkr

import (
	vk "github.com/vulkan-go/vulkan"
)

// DescriptorSet is allocated from a pool for one DescriptorSetLayout. Bindings
// are queued with Bind and applied together by Write.
type DescriptorSet struct {
	Device          *Device
	DescriptorPool  *DescriptorPool
	VKDescriptorSet vk.DescriptorSet

	writes []vk.WriteDescriptorSet
}

// Bind queues r at the reflected binding b
func (s *DescriptorSet) Bind(b DescriptorBinding, r *BufferResource) {
	s.writes = append(s.writes, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstBinding:      b.Binding,
		DescriptorCount: 1,
		DescriptorType:  b.Type,
		PBufferInfo:     []vk.DescriptorBufferInfo{r.DSInfo()},
	})
}

func (s *DescriptorSet) Write() {
	if len(s.writes) == 0 {
		return
	}
	for i := range s.writes {
		s.writes[i].DstSet = s.VKDescriptorSet
	}
	vk.UpdateDescriptorSets(s.Device.VKDevice, uint32(len(s.writes)), s.writes, 0, nil)
	s.writes = nil
}
