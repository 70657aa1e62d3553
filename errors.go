package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

var (
	// ErrOutOfDate the surface no longer matches the swapchain, it must be recreated
	ErrOutOfDate = errors.New("swapchain out of date")
	// ErrSuboptimal the swapchain still works but should be recreated soon
	ErrSuboptimal = errors.New("swapchain suboptimal")
	// ErrDeviceLost the device can no longer be used
	ErrDeviceLost = errors.New("device lost")
	// ErrTimeout a wait on the device expired
	ErrTimeout = errors.New("timed out waiting on the device")
	// ErrNoSuitableDevice no physical device satisfies the requirements
	ErrNoSuitableDevice = errors.New("no suitable physical device")
	// ErrMinimized the window has no drawable area
	ErrMinimized = errors.New("window has a zero sized drawable area")
	// ErrNoMemoryType no memory type matches the requested properties
	ErrNoMemoryType = errors.New("no matching memory type found")
	// ErrInsufficientSpace a memory block has no room for the allocation
	ErrInsufficientSpace = errors.New("insufficient space in memory block")
)

// resultError converts a vulkan result into an error, nil for success
func resultError(op string, res vk.Result) error {
	switch res {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		return errors.Wrap(ErrSuboptimal, op)
	case vk.ErrorOutOfDate:
		return errors.Wrap(ErrOutOfDate, op)
	case vk.ErrorDeviceLost:
		return errors.Wrap(ErrDeviceLost, op)
	case vk.Timeout, vk.NotReady:
		return errors.Wrap(ErrTimeout, op)
	}
	if err := vk.Error(res); err != nil {
		return errors.Wrap(err, op)
	}
	return errors.Errorf("%s: unexpected result %d", op, res)
}

// IsOutOfDate reports whether err means the swapchain must be recreated
func IsOutOfDate(err error) bool {
	return errors.Is(err, ErrOutOfDate)
}

