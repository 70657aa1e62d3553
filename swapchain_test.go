package vkr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func testCaps() SurfaceCapabilities {
	return SurfaceCapabilities{
		MinImageCount:           2,
		MaxImageCount:           8,
		CurrentExtent:           vk.Extent2D{Width: 800, Height: 600},
		MinImageExtent:          vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent:          vk.Extent2D{Width: 4096, Height: 4096},
		SupportedCompositeAlpha: vk.CompositeAlphaFlags(vk.CompositeAlphaInheritBit | vk.CompositeAlphaPreMultipliedBit),
		CurrentTransform:        vk.SurfaceTransformIdentityBit,
	}
}

var testFormats = []vk.SurfaceFormat{
	{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
}

func TestChooseSwapchainConfig(t *testing.T) {
	cfg, err := ChooseSwapchainConfig(testCaps(), testFormats, PresentModes{vk.PresentModeFifo}, vk.Extent2D{}, vk.PresentModeMailbox)
	require.NoError(t, err)

	assert.Equal(t, uint32(3), cfg.ImageCount)
	assert.Equal(t, vk.FormatB8g8r8a8Srgb, cfg.Format.Format)
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, cfg.Extent)
	assert.Equal(t, vk.CompositeAlphaPreMultipliedBit, cfg.CompositeAlpha)
	assert.Equal(t, vk.PresentModeFifo, cfg.PresentMode)
	assert.Equal(t, vk.SurfaceTransformIdentityBit, cfg.Transform)
}

func TestChooseSwapchainConfigImageCountClamped(t *testing.T) {
	caps := testCaps()
	caps.MinImageCount = 3
	caps.MaxImageCount = 3
	cfg, err := ChooseSwapchainConfig(caps, testFormats, nil, vk.Extent2D{}, vk.PresentModeFifo)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), cfg.ImageCount)

	caps.MaxImageCount = 0
	cfg, err = ChooseSwapchainConfig(caps, testFormats, nil, vk.Extent2D{}, vk.PresentModeFifo)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), cfg.ImageCount)
}

func TestChooseSwapchainConfigPreferredMode(t *testing.T) {
	cfg, err := ChooseSwapchainConfig(testCaps(), testFormats,
		PresentModes{vk.PresentModeFifo, vk.PresentModeMailbox}, vk.Extent2D{}, vk.PresentModeMailbox)
	require.NoError(t, err)
	assert.Equal(t, vk.PresentModeMailbox, cfg.PresentMode)
}

func TestChooseSwapchainConfigWindowDefinedExtent(t *testing.T) {
	caps := testCaps()
	caps.CurrentExtent = vk.Extent2D{Width: undefinedExtent, Height: undefinedExtent}

	cfg, err := ChooseSwapchainConfig(caps, testFormats, nil, vk.Extent2D{Width: 10000, Height: 300}, vk.PresentModeFifo)
	require.NoError(t, err)
	assert.Equal(t, vk.Extent2D{Width: 4096, Height: 300}, cfg.Extent)
}

func TestChooseSwapchainConfigMinimized(t *testing.T) {
	caps := testCaps()
	caps.CurrentExtent = vk.Extent2D{Width: 0, Height: 0}
	_, err := ChooseSwapchainConfig(caps, testFormats, nil, vk.Extent2D{}, vk.PresentModeFifo)
	assert.True(t, errors.Is(err, ErrMinimized))

	_, err = ChooseSwapchainConfig(testCaps(), nil, nil, vk.Extent2D{}, vk.PresentModeFifo)
	assert.Error(t, err)
}

func TestRecreateWithSameExtentKeepsFormat(t *testing.T) {
	first, err := ChooseSwapchainConfig(testCaps(), testFormats, nil, vk.Extent2D{}, vk.PresentModeFifo)
	require.NoError(t, err)
	second, err := ChooseSwapchainConfig(testCaps(), testFormats, nil, first.Extent, vk.PresentModeFifo)
	require.NoError(t, err)
	third, err := ChooseSwapchainConfig(testCaps(), testFormats, nil, second.Extent, vk.PresentModeFifo)
	require.NoError(t, err)

	assert.Equal(t, first.Format, second.Format)
	assert.Equal(t, second.Format, third.Format)
	assert.True(t, first.SameTargets(third))

	resized := testCaps()
	resized.CurrentExtent = vk.Extent2D{Width: 1024, Height: 768}
	fourth, err := ChooseSwapchainConfig(resized, testFormats, nil, vk.Extent2D{}, vk.PresentModeFifo)
	require.NoError(t, err)
	assert.False(t, third.SameTargets(fourth))
}

func TestSwapchainCreateInfo(t *testing.T) {
	cfg, err := ChooseSwapchainConfig(testCaps(), testFormats, nil, vk.Extent2D{}, vk.PresentModeFifo)
	require.NoError(t, err)

	info := cfg.CreateInfo(vk.NullSurface, vk.NullSwapchain)
	assert.Equal(t, uint32(3), info.MinImageCount)
	assert.Equal(t, vk.FormatB8g8r8a8Srgb, info.ImageFormat)
	assert.Equal(t, vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit), info.ImageUsage)
	assert.Equal(t, vk.SharingModeExclusive, info.ImageSharingMode)
	assert.Equal(t, uint32(1), info.ImageArrayLayers)
}

func TestCheckFramebuffers(t *testing.T) {
	rp := &RenderPass{}
	other := &RenderPass{}
	fbs := []*Framebuffer{{RenderPass: rp}, {RenderPass: rp}, {RenderPass: rp}}

	assert.NoError(t, checkFramebuffers(3, fbs, rp))
	assert.Error(t, checkFramebuffers(4, fbs, rp))
	assert.Error(t, checkFramebuffers(2, fbs, rp))

	fbs[1] = &Framebuffer{RenderPass: other}
	assert.Error(t, checkFramebuffers(3, fbs, rp))
}

func TestRenderPassCreateInfo(t *testing.T) {
	info := RenderPassCreateInfo(vk.FormatB8g8r8a8Unorm)

	require.Len(t, info.PAttachments, 1)
	a := info.PAttachments[0]
	assert.Equal(t, vk.FormatB8g8r8a8Unorm, a.Format)
	assert.Equal(t, vk.AttachmentLoadOpClear, a.LoadOp)
	assert.Equal(t, vk.AttachmentStoreOpStore, a.StoreOp)
	assert.Equal(t, vk.ImageLayoutUndefined, a.InitialLayout)
	assert.Equal(t, vk.ImageLayoutPresentSrc, a.FinalLayout)

	require.Len(t, info.PSubpasses, 1)
	assert.Equal(t, uint32(1), info.PSubpasses[0].ColorAttachmentCount)
	assert.Nil(t, info.PSubpasses[0].PDepthStencilAttachment)
	assert.Equal(t, uint32(vk.SubpassExternal), info.PDependencies[0].SrcSubpass)
}
