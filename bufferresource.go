package vkr

import (
	"fmt"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// BufferResource is a buffer based resource, for example a vertex buffer or a
// storage buffer, bound to a range of a block owned by a MemoryAllocator.
type BufferResource struct {
	Buffer
	Usage      vk.BufferUsageFlagBits
	Allocator  *MemoryAllocator
	Allocation *Allocation

	block *memoryBlock
}

// HostVisible reports whether Bytes gives access to the contents
func (r *BufferResource) HostVisible() bool {
	return r.block != nil && r.block.HostVisible
}

func (r *BufferResource) String() string {
	return fmt.Sprintf("{Size: %d Allocation: %s HostVisible: %v}", r.Size, r.Allocation, r.HostVisible())
}

// Bytes returns a byte slice onto the mapped memory of the buffer, which can be
// read from or copied to. It is nil for device local buffers.
func (r *BufferResource) Bytes() []byte {
	if !r.HostVisible() || r.Allocation == nil {
		return nil
	}
	return r.block.Memory.Bytes(r.Allocation.Offset, r.Size)
}

// Upload copies data to the start of the buffer
func (r *BufferResource) Upload(data []byte) error {
	dst := r.Bytes()
	if dst == nil {
		return errors.New("buffer is not host visible")
	}
	if len(data) > len(dst) {
		return errors.Errorf("%d bytes do not fit a buffer of %d", len(data), len(dst))
	}
	copy(dst, data)
	return nil
}

// CmdCopyBuffer records a copy of the whole of src into dst
func (c *CommandBuffer) CmdCopyBuffer(src, dst *BufferResource) {
	size := src.Size
	if dst.Size < size {
		size = dst.Size
	}
	vk.CmdCopyBuffer(c.VK(), src.VKBuffer, dst.VKBuffer, 1, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(size),
	}})
}

func (r *BufferResource) Destroy() {
	r.Free()
}

// Free this resource and return its memory range
func (r *BufferResource) Free() {
	if r.Allocation != nil {
		r.Allocator.free(r.block, r.Allocation)
		r.Allocation = nil
	}
	if r.Buffer.VKBuffer != vk.NullBuffer {
		r.Buffer.Destroy()
		r.Buffer.VKBuffer = vk.NullBuffer
	}
}

// CreateVertexBuffer uploads static geometry into host visible, coherent memory
func (m *MemoryAllocator) CreateVertexBuffer(vertices VertexSource) (*BufferResource, error) {
	data := vertices.Bytes()
	if len(data) == 0 {
		return nil, errors.New("no vertex data")
	}
	r, err := m.AllocateBuffer(uint64(len(data)), vk.BufferUsageVertexBufferBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, errors.Wrap(err, "vertex buffer")
	}
	if err := r.Upload(data); err != nil {
		r.Free()
		return nil, err
	}
	return r, nil
}
