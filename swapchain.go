package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// SurfaceCapabilities is the dereferenced subset of vk.SurfaceCapabilities the
// swapchain needs.
type SurfaceCapabilities struct {
	MinImageCount           uint32
	MaxImageCount           uint32
	CurrentExtent           vk.Extent2D
	MinImageExtent          vk.Extent2D
	MaxImageExtent          vk.Extent2D
	SupportedCompositeAlpha vk.CompositeAlphaFlags
	CurrentTransform        vk.SurfaceTransformFlagBits
}

// SwapchainConfig holds every negotiated parameter of a swapchain
type SwapchainConfig struct {
	ImageCount     uint32
	Format         vk.SurfaceFormat
	Extent         vk.Extent2D
	CompositeAlpha vk.CompositeAlphaFlagBits
	Transform      vk.SurfaceTransformFlagBits
	PresentMode    vk.PresentMode
}

// undefinedExtent is reported as the current extent when the window lets the
// swapchain pick its size.
const undefinedExtent = 0xFFFFFFFF

func clampUint32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if hi != 0 && v > hi {
		return hi
	}
	return v
}

// ChooseSwapchainConfig picks the swapchain parameters from what the surface
// reports. It asks for one image more than the minimum and takes the first
// format and composite alpha reported. FIFO is used unless the preferred mode is
// available. A zero sized extent yields ErrMinimized.
func ChooseSwapchainConfig(caps SurfaceCapabilities, formats []vk.SurfaceFormat, modes PresentModes,
	desired vk.Extent2D, preferred vk.PresentMode) (SwapchainConfig, error) {

	if len(formats) == 0 {
		return SwapchainConfig{}, errors.New("surface reports no formats")
	}

	count := caps.MinImageCount + 1
	if caps.MaxImageCount != 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}

	extent := vk.Extent2D{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height}
	if extent.Width == undefinedExtent {
		extent = vk.Extent2D{
			Width:  clampUint32(desired.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
			Height: clampUint32(desired.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
		}
	}
	if extent.Width == 0 || extent.Height == 0 {
		return SwapchainConfig{}, ErrMinimized
	}

	alpha := vk.CompositeAlphaOpaqueBit
	for i := 0; i < 32; i++ {
		bit := uint32(1) << i
		if uint32(caps.SupportedCompositeAlpha)&bit != 0 {
			alpha = vk.CompositeAlphaFlagBits(bit)
			break
		}
	}

	mode := vk.PresentModeFifo
	if modes.Contains(preferred) {
		mode = preferred
	}

	return SwapchainConfig{
		ImageCount:     count,
		Format:         formats[0],
		Extent:         extent,
		CompositeAlpha: alpha,
		Transform:      caps.CurrentTransform,
		PresentMode:    mode,
	}, nil
}

// CreateInfo builds the create info for this configuration
func (c SwapchainConfig) CreateInfo(surface vk.Surface, old vk.Swapchain) vk.SwapchainCreateInfo {
	return vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    c.ImageCount,
		ImageFormat:      c.Format.Format,
		ImageColorSpace:  c.Format.ColorSpace,
		ImageExtent:      c.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     c.Transform,
		CompositeAlpha:   c.CompositeAlpha,
		PresentMode:      c.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}
}

// SameTargets reports whether recorded work against a swapchain of config c is
// still valid for other: image count, extent and format all match.
func (c SwapchainConfig) SameTargets(other SwapchainConfig) bool {
	return c.ImageCount == other.ImageCount &&
		c.Extent.Width == other.Extent.Width &&
		c.Extent.Height == other.Extent.Height &&
		c.Format.Format == other.Format.Format
}

// Swapchain owns the presentable images, a default view of each and, once a
// render pass is known, one framebuffer per image.
type Swapchain struct {
	Device       *Device
	Surface      vk.Surface
	VKSwapchain  vk.Swapchain
	Config       SwapchainConfig
	Images       []vk.Image
	Views        []*ImageView
	Framebuffers []*Framebuffer
}

// SwapchainOptions are the inputs negotiated against the surface on every (re)creation
type SwapchainOptions struct {
	DesiredExtent vk.Extent2D
	PresentMode   vk.PresentMode
}

func (d *Device) swapchainConfig(surface vk.Surface, options SwapchainOptions) (SwapchainConfig, error) {
	caps, err := d.PhysicalDevice.GetSurfaceCapabilities(surface)
	if err != nil {
		return SwapchainConfig{}, err
	}
	formats, err := d.PhysicalDevice.GetSurfaceFormats(surface)
	if err != nil {
		return SwapchainConfig{}, err
	}
	modes, err := d.PhysicalDevice.GetSurfacePresentModes(surface)
	if err != nil {
		return SwapchainConfig{}, err
	}
	return ChooseSwapchainConfig(caps, formats, modes, options.DesiredExtent, options.PresentMode)
}

// CreateSwapchain creates a swapchain for the surface along with a view per image
func (d *Device) CreateSwapchain(surface vk.Surface, options SwapchainOptions) (*Swapchain, error) {
	return d.createSwapchain(surface, options, vk.NullSwapchain)
}

func (d *Device) createSwapchain(surface vk.Surface, options SwapchainOptions, old vk.Swapchain) (*Swapchain, error) {
	config, err := d.swapchainConfig(surface, options)
	if err != nil {
		return nil, err
	}

	createInfo := config.CreateInfo(surface, old)
	var swapchain vk.Swapchain
	if err := resultError("create swapchain", vk.CreateSwapchain(d.VKDevice, &createInfo, nil, &swapchain)); err != nil {
		return nil, err
	}

	ret := &Swapchain{
		Device:      d.Retain(),
		Surface:     surface,
		VKSwapchain: swapchain,
		Config:      config,
	}

	if ret.Images, err = ret.getImages(); err != nil {
		ret.Destroy()
		return nil, err
	}
	ret.Config.ImageCount = uint32(len(ret.Images))

	for _, image := range ret.Images {
		view, err := d.CreateImageView(image, config.Format.Format)
		if err != nil {
			ret.Destroy()
			return nil, err
		}
		ret.Views = append(ret.Views, view)
	}
	return ret, nil
}

// Recreate builds a replacement swapchain from the current surface state, handing
// the old one to the driver so in-flight presents can complete. The receiver is
// destroyed on success; the caller must have drained all work referencing it.
func (s *Swapchain) Recreate(options SwapchainOptions) (*Swapchain, error) {
	ret, err := s.Device.createSwapchain(s.Surface, options, s.VKSwapchain)
	if err != nil {
		return nil, err
	}
	s.Destroy()
	return ret, nil
}

func (s *Swapchain) getImages() ([]vk.Image, error) {
	var imageCount uint32
	if err := resultError("get swapchain images", vk.GetSwapchainImages(s.Device.VKDevice, s.VKSwapchain, &imageCount, nil)); err != nil {
		return nil, err
	}
	images := make([]vk.Image, imageCount)
	if err := resultError("get swapchain images", vk.GetSwapchainImages(s.Device.VKDevice, s.VKSwapchain, &imageCount, images)); err != nil {
		return nil, err
	}
	return images[:imageCount], nil
}

// CreateFramebuffers derives one framebuffer per image, all bound to rp. Existing
// framebuffers are destroyed first.
func (s *Swapchain) CreateFramebuffers(rp *RenderPass) error {
	s.destroyFramebuffers()
	for _, view := range s.Views {
		fb, err := s.Device.CreateFramebuffer(rp, view, s.Config.Extent)
		if err != nil {
			s.destroyFramebuffers()
			return err
		}
		s.Framebuffers = append(s.Framebuffers, fb)
	}
	return checkFramebuffers(len(s.Images), s.Framebuffers, rp)
}

// checkFramebuffers verifies there is a framebuffer per image and they share one render pass
func checkFramebuffers(images int, framebuffers []*Framebuffer, rp *RenderPass) error {
	if images != len(framebuffers) {
		return errors.Errorf("swapchain has %d images but %d framebuffers", images, len(framebuffers))
	}
	for i, fb := range framebuffers {
		if fb.RenderPass != rp {
			return errors.Errorf("framebuffer %d bound to a different render pass", i)
		}
	}
	return nil
}

func (s *Swapchain) destroyFramebuffers() {
	for _, fb := range s.Framebuffers {
		fb.Destroy()
	}
	s.Framebuffers = nil
}

// ImageCount is the number of presentable images
func (s *Swapchain) ImageCount() int {
	return len(s.Images)
}

// AcquireNextImage requests the next presentable image. ErrSuboptimal is returned
// alongside a valid index.
func (s *Swapchain) AcquireNextImage(timeout uint64, signal vk.Semaphore) (uint32, error) {
	var index uint32
	err := resultError("acquire next image", vk.AcquireNextImage(s.Device.VKDevice, s.VKSwapchain, timeout, signal, vk.NullFence, &index))
	return index, err
}

// Destroy destroys framebuffers, views and the swapchain, releasing the device
func (s *Swapchain) Destroy() {
	s.destroyFramebuffers()
	for _, v := range s.Views {
		v.Destroy()
	}
	s.Views = nil
	if s.VKSwapchain != vk.NullSwapchain {
		vk.DestroySwapchain(s.Device.VKDevice, s.VKSwapchain, nil)
		s.VKSwapchain = vk.NullSwapchain
	}
	s.Device.Release()
}
