package vkr

import (
	vk "github.com/vulkan-go/vulkan"
)

type BufferObject interface {
	Bytes() []byte
}

// VertexSource is geometry the pipeline reads from binding 0
type VertexSource interface {
	BufferObject
	Len() int
	BindingDescription() vk.VertexInputBindingDescription
	AttributeDescriptions() []vk.VertexInputAttributeDescription
}

// PushConstantSource supplies the push constant payload recorded with a draw
type PushConstantSource interface {
	BufferObject
}

// IDestructable is anything owning GPU objects
type IDestructable interface {
	Destroy()
}
