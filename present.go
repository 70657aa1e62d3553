package vkr

import (
	"time"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// fenceMarker tracks one submission through its fence. Releasing it recycles
// the fence and the acquire semaphore the submission waited on.
type fenceMarker struct {
	engine    *SwapchainEngine
	fence     vk.Fence
	semaphore vk.Semaphore
}

func (m *fenceMarker) Wait(timeout time.Duration) error {
	return m.engine.ctx.Device.VKWaitForFence(m.fence, timeout)
}

func (m *fenceMarker) Release() {
	m.engine.putFence(m.fence)
	m.engine.semaphores = append(m.engine.semaphores, m.semaphore)
}

// SwapchainEngine presents the pre-recorded command buffers of a Context. Every
// submission waits on the semaphore signaled by its acquire and signals a
// per-image semaphore the present waits on.
type SwapchainEngine struct {
	ctx *Context

	semaphores     []vk.Semaphore
	fences         []vk.Fence
	renderFinished []vk.Semaphore
	// orphans were signaled by an acquire nothing waited on, they can only be
	// destroyed once the device is idle
	orphans []vk.Semaphore
	pending *fenceMarker
}

func NewSwapchainEngine(ctx *Context) (*SwapchainEngine, error) {
	e := &SwapchainEngine{ctx: ctx}
	if err := e.createRenderFinished(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *SwapchainEngine) createRenderFinished() error {
	s, err := e.ctx.Device.VKCreateSemaphores(e.ctx.Swapchain.ImageCount())
	if err != nil {
		return err
	}
	e.renderFinished = s
	return nil
}

func (e *SwapchainEngine) getSemaphore() (vk.Semaphore, error) {
	if n := len(e.semaphores); n > 0 {
		s := e.semaphores[n-1]
		e.semaphores = e.semaphores[:n-1]
		return s, nil
	}
	return e.ctx.Device.VKCreateSemaphore()
}

func (e *SwapchainEngine) getFence() (vk.Fence, error) {
	if n := len(e.fences); n > 0 {
		f := e.fences[n-1]
		e.fences = e.fences[:n-1]
		return f, nil
	}
	return e.ctx.Device.VKCreateFence(false)
}

func (e *SwapchainEngine) putFence(f vk.Fence) {
	if err := resultError("reset fence", vk.ResetFences(e.ctx.Device.VKDevice, 1, []vk.Fence{f})); err != nil {
		e.ctx.Device.VKDestroyFence(f)
		return
	}
	e.fences = append(e.fences, f)
}

func (e *SwapchainEngine) ImageCount() int {
	return e.ctx.Swapchain.ImageCount()
}

// Recreate rebuilds the context's swapchain. The frame loop has drained every
// marker, so the per-image semaphores are idle and can be replaced.
func (e *SwapchainEngine) Recreate(reason RecreateReason) error {
	if err := e.ctx.Recreate(reason); err != nil {
		return err
	}
	e.ctx.Device.VKDestroySemaphores(e.renderFinished)
	e.ctx.Device.VKDestroySemaphores(e.orphans)
	e.orphans = nil
	return e.createRenderFinished()
}

func (e *SwapchainEngine) Acquire(timeout time.Duration) (Acquisition, error) {
	s, err := e.getSemaphore()
	if err != nil {
		return Acquisition{}, err
	}
	index, err := e.ctx.Swapchain.AcquireNextImage(timeoutNanos(timeout), s)
	suboptimal := errors.Is(err, ErrSuboptimal)
	if err != nil && !suboptimal {
		// a failed acquire leaves the semaphore unsignaled
		e.semaphores = append(e.semaphores, s)
		return Acquisition{}, err
	}
	return Acquisition{Index: index, Suboptimal: suboptimal, Signal: s}, nil
}

// Submit queues the command buffer of the acquired image. Submissions to one
// queue execute in order, so the previous frame only has to be checked for
// device loss.
// On failure the image is never presented; the frame loop rebuilds the
// swapchain before the next frame to get it back.
func (e *SwapchainEngine) Submit(a Acquisition, after Marker) error {
	if m, ok := after.(*fenceMarker); ok && m != nil {
		if _, err := e.ctx.Device.VKFenceSignaled(m.fence); err != nil {
			e.orphans = append(e.orphans, a.Signal)
			return err
		}
	}

	fence, err := e.getFence()
	if err != nil {
		e.orphans = append(e.orphans, a.Signal)
		return err
	}
	err = e.ctx.Queue.SubmitAfter(a.Signal, vk.PipelineStageColorAttachmentOutputBit,
		e.renderFinished[a.Index], fence, e.ctx.CommandBuffers[a.Index])
	if err != nil {
		e.fences = append(e.fences, fence)
		e.orphans = append(e.orphans, a.Signal)
		return err
	}
	e.pending = &fenceMarker{engine: e, fence: fence, semaphore: a.Signal}
	return nil
}

func (e *SwapchainEngine) Present(a Acquisition) (Marker, error) {
	m := e.pending
	e.pending = nil
	err := e.ctx.Queue.Present(e.ctx.Swapchain, a.Index, e.renderFinished[a.Index])
	if m == nil {
		return nil, err
	}
	return m, err
}

// Destroy frees the synchronization objects. The frame loop must be drained.
func (e *SwapchainEngine) Destroy() {
	e.ctx.Device.WaitIdle()
	e.ctx.Device.VKDestroySemaphores(e.semaphores)
	e.ctx.Device.VKDestroySemaphores(e.renderFinished)
	e.ctx.Device.VKDestroySemaphores(e.orphans)
	for _, f := range e.fences {
		e.ctx.Device.VKDestroyFence(f)
	}
	e.semaphores, e.renderFinished, e.orphans, e.fences = nil, nil, nil, nil
}
