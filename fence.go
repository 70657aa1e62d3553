package vkr

import (
	"math"
	"time"

	vk "github.com/vulkan-go/vulkan"
)

type Fence struct {
	Device  *Device
	VKFence vk.Fence
}

// timeoutNanos converts a wait timeout, zero or negative waits forever
func timeoutNanos(ts time.Duration) uint64 {
	if ts <= 0 {
		return math.MaxUint64
	}
	return uint64(ts.Nanoseconds())
}

func (d *Device) VKCreateFence(signaled bool) (vk.Fence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if err := resultError("create fence", vk.CreateFence(d.VKDevice, &fenceCreateInfo, nil, &fence)); err != nil {
		return vk.NullFence, err
	}
	return fence, nil
}

func (d *Device) CreateFence() (*Fence, error) {
	fence, err := d.VKCreateFence(false)
	if err != nil {
		return nil, err
	}
	return &Fence{Device: d, VKFence: fence}, nil
}

// VKWaitForFence waits on a native fence, a timeout of zero waits forever
func (d *Device) VKWaitForFence(f vk.Fence, ts time.Duration) error {
	return resultError("wait for fence", vk.WaitForFences(d.VKDevice, 1, []vk.Fence{f}, vk.True, timeoutNanos(ts)))
}

// VKFenceSignaled reports whether the fence is signaled, an error means the device is lost
func (d *Device) VKFenceSignaled(f vk.Fence) (bool, error) {
	switch res := vk.GetFenceStatus(d.VKDevice, f); res {
	case vk.Success:
		return true, nil
	case vk.NotReady:
		return false, nil
	default:
		return false, resultError("get fence status", res)
	}
}

func (d *Device) VKDestroyFence(f vk.Fence) {
	vk.DestroyFence(d.VKDevice, f, nil)
}

func (d *Device) WaitForFences(waitForAll bool, ts time.Duration, fences ...*Fence) error {
	f := make([]vk.Fence, len(fences))
	for i := range fences {
		f[i] = fences[i].VKFence
	}
	wait := vk.Bool32(vk.False)
	if waitForAll {
		wait = vk.True
	}
	return resultError("wait for fences", vk.WaitForFences(d.VKDevice, uint32(len(fences)), f, wait, timeoutNanos(ts)))
}

func (f *Fence) Destroy() {
	vk.DestroyFence(f.Device.VKDevice, f.VKFence, nil)
}
