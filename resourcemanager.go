package vkr

import (
	"log"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// DefaultBlockSize is the size of each device memory block when none is configured
const DefaultBlockSize = 64 * uint64(datasize.MB)

type memoryBlock struct {
	TypeIndex   uint32
	Memory      *DeviceMemory
	Allocator   *LinearAllocator
	HostVisible bool
}

// MemoryAllocator sub-allocates buffers from a few large device memory blocks,
// one list of blocks per memory type. Vulkan limits the number of memory
// allocations an application may hold, so every buffer shares a block.
// Host visible blocks stay mapped for their whole life.
type MemoryAllocator struct {
	Device    *Device
	BlockSize uint64
	Logger    *log.Logger

	blocks   map[uint32][]*memoryBlock
	newBlock func(typeIndex uint32, size uint64) (*memoryBlock, error)
}

// CreateMemoryAllocator creates an allocator holding blocks of blockSize bytes,
// zero selects DefaultBlockSize.
func (d *Device) CreateMemoryAllocator(blockSize uint64, logger *log.Logger) *MemoryAllocator {
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	if logger == nil {
		logger = log.Default()
	}
	m := &MemoryAllocator{
		Device:    d.Retain(),
		BlockSize: blockSize,
		Logger:    logger,
		blocks:    make(map[uint32][]*memoryBlock),
	}
	m.newBlock = m.allocateBlock
	return m
}

func (m *MemoryAllocator) allocateBlock(typeIndex uint32, size uint64) (*memoryBlock, error) {
	mem, err := m.Device.AllocateType(size, typeIndex)
	if err != nil {
		return nil, err
	}

	types := m.Device.PhysicalDevice.MemoryTypes()
	hostVisible := int(typeIndex) < len(types) &&
		types[typeIndex].PropertyFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0
	if hostVisible {
		if _, err := mem.Map(); err != nil {
			mem.Destroy()
			return nil, err
		}
	}

	m.Logger.Printf("allocated %s memory block of type %d (host visible: %v)",
		datasize.ByteSize(size).HumanReadable(), typeIndex, hostVisible)

	return &memoryBlock{
		TypeIndex:   typeIndex,
		Memory:      mem,
		Allocator:   &LinearAllocator{Size: size},
		HostVisible: hostVisible,
	}, nil
}

// suballocate finds room in an existing block of the type, or adds a block large
// enough for the request.
func (m *MemoryAllocator) suballocate(typeIndex uint32, size, align uint64) (*memoryBlock, *Allocation, error) {
	for _, b := range m.blocks[typeIndex] {
		if a := b.Allocator.Allocate(size, align); a != nil {
			return b, a, nil
		}
	}

	blockSize := m.BlockSize
	if size > blockSize {
		blockSize = makeAlignUp(size, align)
	}
	b, err := m.newBlock(typeIndex, blockSize)
	if err != nil {
		return nil, nil, err
	}
	m.blocks[typeIndex] = append(m.blocks[typeIndex], b)

	a := b.Allocator.Allocate(size, align)
	if a == nil {
		return nil, nil, errors.Wrapf(ErrInsufficientSpace, "%d bytes in a fresh block of %d", size, blockSize)
	}
	return b, a, nil
}

// AllocateBuffer creates a buffer and binds it to memory with the requested properties
func (m *MemoryAllocator) AllocateBuffer(size uint64, usage vk.BufferUsageFlagBits, props vk.MemoryPropertyFlagBits) (*BufferResource, error) {
	buffer, err := m.Device.CreateBufferWithOptions(size, vk.BufferUsageFlags(usage), vk.SharingModeExclusive)
	if err != nil {
		return nil, err
	}

	reqs := buffer.AllocationRequirements()
	typeIndex, err := m.Device.PhysicalDevice.FindMemoryType(reqs.MemoryTypeBits, props)
	if err != nil {
		buffer.Destroy()
		return nil, err
	}

	block, allocation, err := m.suballocate(typeIndex, reqs.Size, reqs.Alignment)
	if err != nil {
		buffer.Destroy()
		return nil, err
	}

	if err := buffer.Bind(block.Memory, allocation.Offset); err != nil {
		block.Allocator.Free(allocation)
		buffer.Destroy()
		return nil, err
	}

	return &BufferResource{
		Buffer:     *buffer,
		Usage:      usage,
		Allocator:  m,
		Allocation: allocation,
		block:      block,
	}, nil
}

// Free returns the range to its block
func (m *MemoryAllocator) free(block *memoryBlock, a *Allocation) {
	block.Allocator.Free(a)
}

// LogDetails logs the usage of every block
func (m *MemoryAllocator) LogDetails() {
	for typeIndex, blocks := range m.blocks {
		for i, b := range blocks {
			m.Logger.Printf("memory type %d block %d: %s of %s used in %d allocations", typeIndex, i,
				datasize.ByteSize(b.Allocator.Used()).HumanReadable(),
				datasize.ByteSize(b.Allocator.Size).HumanReadable(),
				b.Allocator.Len())
		}
	}
}

// Destroy frees every block. Buffers still allocated from them become invalid.
func (m *MemoryAllocator) Destroy() {
	for _, blocks := range m.blocks {
		for _, b := range blocks {
			if b.Memory != nil {
				b.Memory.Destroy()
			}
		}
	}
	m.blocks = make(map[uint32][]*memoryBlock)
	m.Device.Release()
}
