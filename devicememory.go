package vkr

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// DeviceMemory maps to Vulkan DeviceMemory and can either be memory on the host or on the device
type DeviceMemory struct {
	Device         *Device
	VKDeviceMemory vk.DeviceMemory
	Size           uint64
	TypeIndex      uint32
	Ptr            unsafe.Pointer
}

// IsMapped returns true if the device memory is currently mapped
func (d *DeviceMemory) IsMapped() bool {
	return d.Ptr != nil
}

// Map maps the entirety of this memory. The mapping stays valid until Unmap.
func (d *DeviceMemory) Map() (unsafe.Pointer, error) {
	if d.Ptr != nil {
		return d.Ptr, nil
	}
	var res unsafe.Pointer
	if err := resultError("map memory", vk.MapMemory(d.Device.VKDevice, d.VKDeviceMemory, 0, vk.DeviceSize(d.Size), 0, &res)); err != nil {
		return nil, err
	}
	d.Ptr = res
	return res, nil
}

// Bytes returns a window onto mapped memory, nil when unmapped
func (d *DeviceMemory) Bytes(offset, size uint64) []byte {
	if d.Ptr == nil || offset+size > d.Size {
		return nil
	}
	return ToBytes(unsafe.Add(d.Ptr, offset), int(size))
}

// Unmap this memory
func (d *DeviceMemory) Unmap() {
	if d.Ptr == nil {
		return
	}
	vk.UnmapMemory(d.Device.VKDevice, d.VKDeviceMemory)
	d.Ptr = nil
}

// Destroy frees this memory
func (d *DeviceMemory) Destroy() {
	d.Unmap()
	vk.FreeMemory(d.Device.VKDevice, d.VKDeviceMemory, nil)
}
