package vkr

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

type Queue struct {
	Device      *Device
	QueueFamily *QueueFamily
	VKQueue     vk.Queue
}

func (q *Queue) WaitIdle() error {
	return resultError("queue wait idle", vk.QueueWaitIdle(q.VKQueue))
}

func commandBufferHandles(buffers []*CommandBuffer) []vk.CommandBuffer {
	b := make([]vk.CommandBuffer, len(buffers))
	for i := range buffers {
		b[i] = buffers[i].VKCommandBuffer
	}
	return b
}

// SubmitWithFence submits the buffers, the fence signals once they have all executed
func (q *Queue) SubmitWithFence(fence *Fence, buffers ...*CommandBuffer) error {
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(buffers)),
		PCommandBuffers:    commandBufferHandles(buffers),
	}
	f := vk.NullFence
	if fence != nil {
		f = fence.VKFence
	}
	return resultError("queue submit", vk.QueueSubmit(q.VKQueue, 1, []vk.SubmitInfo{submitInfo}, f))
}

// SubmitAfter submits a buffer that waits on the semaphore at the given stage and
// signals another semaphore and a fence when done.
func (q *Queue) SubmitAfter(wait vk.Semaphore, stage vk.PipelineStageFlagBits, signal vk.Semaphore, fence vk.Fence, buffer *CommandBuffer) error {
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{wait},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(stage)},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signal},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{buffer.VKCommandBuffer},
	}
	return resultError("queue submit", vk.QueueSubmit(q.VKQueue, 1, []vk.SubmitInfo{submitInfo}, fence))
}

// Present queues the swapchain image for display once wait is signaled
func (q *Queue) Present(swapchain *Swapchain, imageIndex uint32, wait vk.Semaphore) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain.VKSwapchain},
		PImageIndices:      []uint32{imageIndex},
	}
	return resultError("queue present", vk.QueuePresent(q.VKQueue, &presentInfo))
}

func (q *Queue) String() string {
	return fmt.Sprintf("{Device: %s QueueFamily: %s}", q.Device.String(), q.QueueFamily.String())
}
