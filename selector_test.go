package vkr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

type fakeCandidate struct {
	name       string
	kind       vk.PhysicalDeviceType
	extensions []string
	families   []QueueCapabilities
	extErr     error
}

func (f *fakeCandidate) Name() string                  { return f.name }
func (f *fakeCandidate) Type() vk.PhysicalDeviceType   { return f.kind }
func (f *fakeCandidate) Extensions() ([]string, error) { return f.extensions, f.extErr }
func (f *fakeCandidate) QueueFamilies() ([]QueueCapabilities, error) {
	return f.families, nil
}

var presentReq = DeviceRequirements{
	Extensions: []string{SwapchainExtension},
	Graphics:   true,
	Present:    true,
}

func graphicsPresent() QueueCapabilities {
	return QueueCapabilities{Graphics: true, Compute: true, Present: true}
}

func TestSelectDevicePrefersDiscrete(t *testing.T) {
	candidates := []DeviceCandidate{
		&fakeCandidate{name: "cpu", kind: vk.PhysicalDeviceTypeCpu, extensions: []string{SwapchainExtension}, families: []QueueCapabilities{graphicsPresent()}},
		&fakeCandidate{name: "igpu", kind: vk.PhysicalDeviceTypeIntegratedGpu, extensions: []string{SwapchainExtension}, families: []QueueCapabilities{graphicsPresent()}},
		&fakeCandidate{name: "dgpu", kind: vk.PhysicalDeviceTypeDiscreteGpu, extensions: []string{SwapchainExtension}, families: []QueueCapabilities{graphicsPresent()}},
	}

	for i := 0; i < 3; i++ {
		sel, err := SelectDevice(candidates, presentReq)
		require.NoError(t, err)
		assert.Equal(t, "dgpu", sel.Candidate.Name())
	}
}

func TestSelectDeviceRanking(t *testing.T) {
	order := []vk.PhysicalDeviceType{
		vk.PhysicalDeviceTypeDiscreteGpu,
		vk.PhysicalDeviceTypeIntegratedGpu,
		vk.PhysicalDeviceTypeVirtualGpu,
		vk.PhysicalDeviceTypeCpu,
		vk.PhysicalDeviceTypeOther,
	}
	for i := 0; i+1 < len(order); i++ {
		assert.Less(t, deviceTypeRank(order[i]), deviceTypeRank(order[i+1]))
	}
}

func TestSelectDeviceFiltersExtensionsAndQueues(t *testing.T) {
	noSwapchain := &fakeCandidate{name: "no-ext", kind: vk.PhysicalDeviceTypeDiscreteGpu,
		families: []QueueCapabilities{graphicsPresent()}}
	noPresent := &fakeCandidate{name: "no-present", kind: vk.PhysicalDeviceTypeDiscreteGpu, extensions: []string{SwapchainExtension},
		families: []QueueCapabilities{{Graphics: true}, {Present: true}}}
	broken := &fakeCandidate{name: "broken", kind: vk.PhysicalDeviceTypeDiscreteGpu, extErr: errors.New("boom")}
	ok := &fakeCandidate{name: "virtual", kind: vk.PhysicalDeviceTypeVirtualGpu, extensions: []string{"VK_KHR_other", SwapchainExtension},
		families: []QueueCapabilities{{Compute: true}, {Graphics: true}, graphicsPresent()}}

	sel, err := SelectDevice([]DeviceCandidate{noSwapchain, noPresent, broken, ok}, presentReq)
	require.NoError(t, err)
	assert.Equal(t, "virtual", sel.Candidate.Name())
	// the first family meeting graphics and present
	assert.Equal(t, 2, sel.QueueFamily)
}

func TestSelectDeviceNeverReturnsUnqualified(t *testing.T) {
	kinds := []vk.PhysicalDeviceType{
		vk.PhysicalDeviceTypeDiscreteGpu,
		vk.PhysicalDeviceTypeIntegratedGpu,
		vk.PhysicalDeviceTypeCpu,
	}
	extSets := [][]string{nil, {SwapchainExtension}, {"VK_KHR_maintenance1"}}
	familySets := [][]QueueCapabilities{
		{{Graphics: true}},
		{{Present: true}},
		{{Graphics: true}, {Graphics: true, Present: true}},
	}

	var candidates []DeviceCandidate
	for _, k := range kinds {
		for _, e := range extSets {
			for _, f := range familySets {
				candidates = append(candidates, &fakeCandidate{kind: k, extensions: e, families: f})
			}
		}
	}

	for n := range candidates {
		sel, err := SelectDevice(candidates[n:], presentReq)
		if err != nil {
			assert.True(t, errors.Is(err, ErrNoSuitableDevice))
			continue
		}
		fc := sel.Candidate.(*fakeCandidate)
		assert.Contains(t, fc.extensions, SwapchainExtension)
		q := fc.families[sel.QueueFamily]
		assert.True(t, q.Graphics && q.Present)
	}
}

func TestSelectDeviceNone(t *testing.T) {
	_, err := SelectDevice(nil, presentReq)
	assert.True(t, errors.Is(err, ErrNoSuitableDevice))

	_, err = SelectDevice([]DeviceCandidate{
		&fakeCandidate{kind: vk.PhysicalDeviceTypeDiscreteGpu, families: []QueueCapabilities{{Compute: true}}},
	}, DeviceRequirements{Graphics: true})
	assert.True(t, errors.Is(err, ErrNoSuitableDevice))
}

func TestSelectDeviceTieKeepsFirst(t *testing.T) {
	a := &fakeCandidate{name: "a", kind: vk.PhysicalDeviceTypeIntegratedGpu, families: []QueueCapabilities{{Compute: true}}}
	b := &fakeCandidate{name: "b", kind: vk.PhysicalDeviceTypeIntegratedGpu, families: []QueueCapabilities{{Compute: true}}}
	sel, err := SelectDevice([]DeviceCandidate{a, b}, DeviceRequirements{Compute: true})
	require.NoError(t, err)
	assert.Equal(t, "a", sel.Candidate.Name())
}
