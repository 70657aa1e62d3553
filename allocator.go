package vkr

import (
	"fmt"
)

// Allocation is a range of a memory block
type Allocation struct {
	Offset uint64
	Size   uint64
}

func (a *Allocation) String() string {
	return fmt.Sprintf("[%d %d]", a.Offset, a.Size)
}

type IAllocator interface {
	Free(a *Allocation)
	Allocate(size uint64, align uint64) *Allocation
}

// LinearAllocator hands out aligned ranges of a block of Size bytes, first fit.
// Allocations are kept sorted by offset.
type LinearAllocator struct {
	Size   uint64
	allocs []*Allocation
}

func makeAlignUp(a uint64, align uint64) uint64 {
	if align <= 1 {
		return a
	}
	m := a % align
	if m == 0 {
		return a
	}
	return (a - m) + align
}

func (p *LinearAllocator) Free(fa *Allocation) {
	for i, a := range p.allocs {
		if a == fa {
			p.allocs = append(p.allocs[:i], p.allocs[i+1:]...)
			return
		}
	}
}

// Allocate returns nil when no gap can hold size bytes at the requested alignment
func (p *LinearAllocator) Allocate(size uint64, align uint64) *Allocation {
	if size == 0 || size > p.Size {
		return nil
	}

	var start uint64
	for i, a := range p.allocs {
		offset := makeAlignUp(start, align)
		if offset+size <= a.Offset {
			na := &Allocation{Offset: offset, Size: size}
			p.allocs = append(p.allocs[:i], append([]*Allocation{na}, p.allocs[i:]...)...)
			return na
		}
		start = a.Offset + a.Size
	}

	offset := makeAlignUp(start, align)
	if offset+size > p.Size {
		return nil
	}
	na := &Allocation{Offset: offset, Size: size}
	p.allocs = append(p.allocs, na)
	return na
}

// Used is the number of bytes currently handed out
func (p *LinearAllocator) Used() uint64 {
	var used uint64
	for _, a := range p.allocs {
		used += a.Size
	}
	return used
}

// Len is the number of live allocations
func (p *LinearAllocator) Len() int {
	return len(p.allocs)
}

func (p *LinearAllocator) String() string {
	return fmt.Sprintf("%v", p.allocs)
}
