package vkr

import (
	vk "github.com/vulkan-go/vulkan"
)

// PresentModes is a list of present modes reported for a surface
type PresentModes []vk.PresentMode

// Contains reports whether the mode was reported
func (v PresentModes) Contains(mode vk.PresentMode) bool {
	for _, s := range v {
		if s == mode {
			return true
		}
	}
	return false
}

type PhysicalDevice struct {
	DeviceName                 string
	VKPhysicalDevice           vk.PhysicalDevice
	VKPhysicalDeviceProperties vk.PhysicalDeviceProperties
}

func (p *PhysicalDevice) String() string {
	return p.DeviceName
}

// Type returns the kind of device, discrete, integrated, ...
func (p *PhysicalDevice) Type() vk.PhysicalDeviceType {
	return p.VKPhysicalDeviceProperties.DeviceType
}

func (p *PhysicalDevice) GetSurfacePresentModes(surface vk.Surface) (PresentModes, error) {
	var count uint32
	if err := resultError("get present modes", vk.GetPhysicalDeviceSurfacePresentModes(p.VKPhysicalDevice, surface, &count, nil)); err != nil {
		return nil, err
	}
	modes := make([]vk.PresentMode, count)
	if err := resultError("get present modes", vk.GetPhysicalDeviceSurfacePresentModes(p.VKPhysicalDevice, surface, &count, modes)); err != nil {
		return nil, err
	}
	return modes, nil
}

// GetSurfaceFormats returns the surface formats in the order the driver reports them
func (p *PhysicalDevice) GetSurfaceFormats(surface vk.Surface) ([]vk.SurfaceFormat, error) {
	var count uint32
	if err := resultError("get surface formats", vk.GetPhysicalDeviceSurfaceFormats(p.VKPhysicalDevice, surface, &count, nil)); err != nil {
		return nil, err
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := resultError("get surface formats", vk.GetPhysicalDeviceSurfaceFormats(p.VKPhysicalDevice, surface, &count, formats)); err != nil {
		return nil, err
	}
	for i := range formats {
		formats[i].Deref()
	}
	return formats, nil
}

// GetSurfaceCapabilities returns the dereferenced capabilities of the surface
func (p *PhysicalDevice) GetSurfaceCapabilities(surface vk.Surface) (SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := resultError("get surface capabilities", vk.GetPhysicalDeviceSurfaceCapabilities(p.VKPhysicalDevice, surface, &caps)); err != nil {
		return SurfaceCapabilities{}, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	return SurfaceCapabilities{
		MinImageCount:           caps.MinImageCount,
		MaxImageCount:           caps.MaxImageCount,
		CurrentExtent:           caps.CurrentExtent,
		MinImageExtent:          caps.MinImageExtent,
		MaxImageExtent:          caps.MaxImageExtent,
		SupportedCompositeAlpha: caps.SupportedCompositeAlpha,
		CurrentTransform:        caps.CurrentTransform,
	}, nil
}

func (p *PhysicalDevice) QueueFamilies() (QueueFamilySlice, error) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &count, nil)
	if count == 0 {
		return nil, nil
	}

	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &count, props)

	ret := make(QueueFamilySlice, count)
	for i, prop := range props {
		prop.Deref()
		ret[i] = &QueueFamily{Index: i, PhysicalDevice: p, VKQueueFamilyProperties: prop}
	}
	return ret, nil
}

type CreateDeviceOptions struct {
	EnabledExtensions []string
	EnabledLayers     []string
}

// CreateLogicalDevice creates a device with one queue from each of the given families
func (p *PhysicalDevice) CreateLogicalDevice(qfs QueueFamilySlice, options *CreateDeviceOptions) (*Device, error) {
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(qfs))
	for j, q := range qfs {
		queueCreateInfos[j] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(q.Index),
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: uint32(len(qfs)),
		PQueueCreateInfos:    queueCreateInfos,
	}

	if options != nil {
		if len(options.EnabledExtensions) > 0 {
			deviceCreateInfo.EnabledExtensionCount = uint32(len(options.EnabledExtensions))
			deviceCreateInfo.PpEnabledExtensionNames = safeStrings(options.EnabledExtensions)
		}
		if len(options.EnabledLayers) > 0 {
			deviceCreateInfo.EnabledLayerCount = uint32(len(options.EnabledLayers))
			deviceCreateInfo.PpEnabledLayerNames = safeStrings(options.EnabledLayers)
		}
	}

	var ldevice vk.Device
	if err := resultError("create device", vk.CreateDevice(p.VKPhysicalDevice, &deviceCreateInfo, nil, &ldevice)); err != nil {
		return nil, err
	}

	return &Device{PhysicalDevice: p, VKDevice: ldevice, refs: 1}, nil
}

// VKPhysicalDeviceFeatures returns the dereferenced optional features of the device
func (p *PhysicalDevice) VKPhysicalDeviceFeatures() vk.PhysicalDeviceFeatures {
	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(p.VKPhysicalDevice, &features)
	features.Deref()
	return features
}

func (p *PhysicalDevice) VKPhysicalDeviceMemoryProperties() vk.PhysicalDeviceMemoryProperties {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(p.VKPhysicalDevice, &memoryProperties)
	memoryProperties.Deref()
	return memoryProperties
}

// MemoryTypes returns the dereferenced memory types of the device
func (p *PhysicalDevice) MemoryTypes() []vk.MemoryType {
	mp := p.VKPhysicalDeviceMemoryProperties()
	ret := make([]vk.MemoryType, 0, mp.MemoryTypeCount)
	for i := uint32(0); i < mp.MemoryTypeCount; i++ {
		mt := mp.MemoryTypes[i]
		mt.Deref()
		ret = append(ret, mt)
	}
	return ret
}

// MemoryHeaps returns the dereferenced memory heaps of the device
func (p *PhysicalDevice) MemoryHeaps() []vk.MemoryHeap {
	mp := p.VKPhysicalDeviceMemoryProperties()
	ret := make([]vk.MemoryHeap, 0, mp.MemoryHeapCount)
	for i := uint32(0); i < mp.MemoryHeapCount; i++ {
		h := mp.MemoryHeaps[i]
		h.Deref()
		ret = append(ret, h)
	}
	return ret
}

// FindMemoryType returns the first memory type allowed by memoryTypeBits that has
// all the requested properties.
func (p *PhysicalDevice) FindMemoryType(memoryTypeBits uint32, properties vk.MemoryPropertyFlagBits) (uint32, error) {
	return findMemoryType(p.MemoryTypes(), memoryTypeBits, properties)
}

func findMemoryType(types []vk.MemoryType, memoryTypeBits uint32, properties vk.MemoryPropertyFlagBits) (uint32, error) {
	for i, mt := range types {
		if memoryTypeBits&(1<<uint(i)) != 0 &&
			vk.MemoryPropertyFlagBits(mt.PropertyFlags)&properties == properties {
			return uint32(i), nil
		}
	}
	return 0, ErrNoMemoryType
}

// SupportedExtensions returns the names of the device extensions
func (p *PhysicalDevice) SupportedExtensions() ([]string, error) {
	var count uint32
	if err := resultError("enumerate device extensions", vk.EnumerateDeviceExtensionProperties(p.VKPhysicalDevice, "", &count, nil)); err != nil {
		return nil, err
	}
	ext := make([]vk.ExtensionProperties, count)
	if err := resultError("enumerate device extensions", vk.EnumerateDeviceExtensionProperties(p.VKPhysicalDevice, "", &count, ext)); err != nil {
		return nil, err
	}
	names := make([]string, len(ext))
	for i := range ext {
		ext[i].Deref()
		names[i] = vk.ToString(ext[i].ExtensionName[:])
	}
	return names, nil
}

// Candidate adapts the device for SelectDevice. surface may be vk.NullSurface
// when presentation is not required.
func (p *PhysicalDevice) Candidate(surface vk.Surface) DeviceCandidate {
	return &physicalCandidate{device: p, surface: surface}
}

type physicalCandidate struct {
	device   *PhysicalDevice
	surface  vk.Surface
	families QueueFamilySlice
}

func (c *physicalCandidate) Name() string                  { return c.device.DeviceName }
func (c *physicalCandidate) Type() vk.PhysicalDeviceType   { return c.device.Type() }
func (c *physicalCandidate) Extensions() ([]string, error) { return c.device.SupportedExtensions() }

func (c *physicalCandidate) QueueFamilies() ([]QueueCapabilities, error) {
	families, err := c.device.QueueFamilies()
	if err != nil {
		return nil, err
	}
	c.families = families
	caps := make([]QueueCapabilities, len(families))
	for i, f := range families {
		caps[i] = QueueCapabilities{
			Graphics: f.IsGraphics(),
			Compute:  f.IsCompute(),
			Present:  c.surface != vk.NullSurface && f.SupportsPresent(c.surface),
		}
	}
	return caps, nil
}
