package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// SwapchainExtension is the device extension every presenting device needs
const SwapchainExtension = "VK_KHR_swapchain"

// QueueCapabilities is what one queue family of a candidate can do
type QueueCapabilities struct {
	Graphics bool
	Compute  bool
	Present  bool
}

// DeviceCandidate is a physical device as seen by SelectDevice
type DeviceCandidate interface {
	Name() string
	Type() vk.PhysicalDeviceType
	Extensions() ([]string, error)
	QueueFamilies() ([]QueueCapabilities, error)
}

// DeviceRequirements lists what a device and one of its queue families must support
type DeviceRequirements struct {
	Extensions []string
	Graphics   bool
	Compute    bool
	Present    bool
}

func (r DeviceRequirements) satisfiedBy(q QueueCapabilities) bool {
	return (!r.Graphics || q.Graphics) && (!r.Compute || q.Compute) && (!r.Present || q.Present)
}

// Selection is the device chosen by SelectDevice and the queue family to use on it
type Selection struct {
	Candidate   DeviceCandidate
	QueueFamily int
}

// deviceTypeRank orders device types, lower is preferred
func deviceTypeRank(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 0
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 1
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 2
	case vk.PhysicalDeviceTypeCpu:
		return 3
	default:
		return 4
	}
}

// SelectDevice drops candidates missing a required extension or a queue family
// meeting every queue requirement, then returns the best ranked survivor. Ties go
// to the earliest candidate. Candidates that fail to answer a query are skipped.
func SelectDevice(candidates []DeviceCandidate, req DeviceRequirements) (Selection, error) {
	var best Selection
	bestRank := -1

	for _, c := range candidates {
		exts, err := c.Extensions()
		if err != nil || !hasAll(exts, req.Extensions) {
			continue
		}
		families, err := c.QueueFamilies()
		if err != nil {
			continue
		}
		family := -1
		for i, q := range families {
			if req.satisfiedBy(q) {
				family = i
				break
			}
		}
		if family < 0 {
			continue
		}
		rank := deviceTypeRank(c.Type())
		if bestRank < 0 || rank < bestRank {
			best = Selection{Candidate: c, QueueFamily: family}
			bestRank = rank
		}
	}

	if bestRank < 0 {
		return Selection{}, errors.Wrapf(ErrNoSuitableDevice, "%d candidates", len(candidates))
	}
	return best, nil
}

func hasAll(have, want []string) bool {
	for _, w := range want {
		if !containsString(have, w) {
			return false
		}
	}
	return true
}

// SelectPhysicalDevice runs SelectDevice over the devices of the instance
func (i *Instance) SelectPhysicalDevice(surface vk.Surface, req DeviceRequirements) (*PhysicalDevice, *QueueFamily, error) {
	devices, err := i.PhysicalDevices()
	if err != nil {
		return nil, nil, err
	}
	candidates := make([]DeviceCandidate, len(devices))
	for n, d := range devices {
		candidates[n] = d.Candidate(surface)
	}
	sel, err := SelectDevice(candidates, req)
	if err != nil {
		return nil, nil, err
	}
	pc := sel.Candidate.(*physicalCandidate)
	return pc.device, pc.families.ByIndex(sel.QueueFamily), nil
}
