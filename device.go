package vkr

import (
	"fmt"
	"sync/atomic"

	vk "github.com/vulkan-go/vulkan"
)

// Device is a logical device. It is shared by every object created from it, each
// holder calls Retain and later Release; the native handle is destroyed when the
// last holder releases it.
type Device struct {
	PhysicalDevice *PhysicalDevice
	VKDevice       vk.Device

	refs    int32
	destroy func(vk.Device)
}

// Retain records another holder of the device
func (d *Device) Retain() *Device {
	atomic.AddInt32(&d.refs, 1)
	return d
}

// Release drops one holder, destroying the device when none are left. It reports
// whether the device was destroyed.
func (d *Device) Release() bool {
	n := atomic.AddInt32(&d.refs, -1)
	if n > 0 {
		return false
	}
	if n < 0 {
		panic("vkr: device released more times than retained")
	}
	if d.destroy != nil {
		d.destroy(d.VKDevice)
	} else {
		vk.DestroyDevice(d.VKDevice, nil)
	}
	return true
}

// Refs returns the number of live holders
func (d *Device) Refs() int {
	return int(atomic.LoadInt32(&d.refs))
}

// Destroy releases the creator's hold on the device
func (d *Device) Destroy() {
	d.Release()
}

func (d *Device) String() string {
	return fmt.Sprintf("{ PhysicalDevice: %s }", d.PhysicalDevice)
}

func (d *Device) WaitIdle() error {
	return resultError("device wait idle", vk.DeviceWaitIdle(d.VKDevice))
}

func (d *Device) GetQueue(qf *QueueFamily) *Queue {
	var vkq vk.Queue
	vk.GetDeviceQueue(d.VKDevice, uint32(qf.Index), 0, &vkq)
	return &Queue{Device: d, QueueFamily: qf, VKQueue: vkq}
}

// Allocate allocates a single block of device memory of the first matching type
func (d *Device) Allocate(sizeInBytes uint64, memoryTypeBits uint32, memoryProperties vk.MemoryPropertyFlagBits) (*DeviceMemory, error) {
	typeIndex, err := d.PhysicalDevice.FindMemoryType(memoryTypeBits, memoryProperties)
	if err != nil {
		return nil, err
	}
	return d.AllocateType(sizeInBytes, typeIndex)
}

// AllocateType allocates a block of device memory of a known memory type
func (d *Device) AllocateType(sizeInBytes uint64, typeIndex uint32) (*DeviceMemory, error) {
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(sizeInBytes),
		MemoryTypeIndex: typeIndex,
	}

	var deviceMemory vk.DeviceMemory
	if err := resultError("allocate memory", vk.AllocateMemory(d.VKDevice, &allocateInfo, nil, &deviceMemory)); err != nil {
		return nil, err
	}

	return &DeviceMemory{
		Size:           sizeInBytes,
		TypeIndex:      typeIndex,
		Device:         d,
		VKDeviceMemory: deviceMemory,
	}, nil
}
