package vkr

import (
	vk "github.com/vulkan-go/vulkan"
)

// VKCreateSemaphore creates a native vulkan semaphore object
func (d *Device) VKCreateSemaphore() (vk.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var sema vk.Semaphore
	err := resultError("create semaphore", vk.CreateSemaphore(d.VKDevice, &semaphoreCreateInfo, nil, &sema))
	return sema, err
}

// VKCreateSemaphores creates n semaphores, destroying any already made on failure
func (d *Device) VKCreateSemaphores(n int) ([]vk.Semaphore, error) {
	ret := make([]vk.Semaphore, 0, n)
	for i := 0; i < n; i++ {
		s, err := d.VKCreateSemaphore()
		if err != nil {
			d.VKDestroySemaphores(ret)
			return nil, err
		}
		ret = append(ret, s)
	}
	return ret, nil
}

func (d *Device) VKDestroySemaphore(s vk.Semaphore) {
	vk.DestroySemaphore(d.VKDevice, s, nil)
}

func (d *Device) VKDestroySemaphores(s []vk.Semaphore) {
	for _, sem := range s {
		d.VKDestroySemaphore(sem)
	}
}
