package vkr

import (
	vk "github.com/vulkan-go/vulkan"
)

// RenderPass is a single subpass pass writing one colour attachment in the
// swapchain format. The attachment is cleared on load, stored, and left ready
// for presentation.
type RenderPass struct {
	Device       *Device
	Format       vk.Format
	VKRenderPass vk.RenderPass
}

// RenderPassCreateInfo describes the colour only pass for the given format
func RenderPassCreateInfo(format vk.Format) vk.RenderPassCreateInfo {
	attachments := []vk.AttachmentDescription{{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}}

	colorAttachments := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	subpasses := []vk.SubpassDescription{{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorAttachments,
	}}

	// the acquire semaphore is waited on at colour output, the layout
	// transition must not start before it
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	return vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
}

func (d *Device) CreateRenderPass(format vk.Format) (*RenderPass, error) {
	createInfo := RenderPassCreateInfo(format)

	var renderPass vk.RenderPass
	if err := resultError("create render pass", vk.CreateRenderPass(d.VKDevice, &createInfo, nil, &renderPass)); err != nil {
		return nil, err
	}
	return &RenderPass{Device: d, Format: format, VKRenderPass: renderPass}, nil
}

func (r *RenderPass) Destroy() {
	vk.DestroyRenderPass(r.Device.VKDevice, r.VKRenderPass, nil)
	r.VKRenderPass = vk.NullRenderPass
}

// Framebuffer binds one swapchain image view to a render pass
type Framebuffer struct {
	Device        *Device
	RenderPass    *RenderPass
	Extent        vk.Extent2D
	VKFramebuffer vk.Framebuffer
}

func (d *Device) CreateFramebuffer(rp *RenderPass, view *ImageView, extent vk.Extent2D) (*Framebuffer, error) {
	attachments := []vk.ImageView{view.VKImageView}
	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp.VKRenderPass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	var fb vk.Framebuffer
	if err := resultError("create framebuffer", vk.CreateFramebuffer(d.VKDevice, &createInfo, nil, &fb)); err != nil {
		return nil, err
	}
	return &Framebuffer{Device: d, RenderPass: rp, Extent: extent, VKFramebuffer: fb}, nil
}

func (f *Framebuffer) Destroy() {
	vk.DestroyFramebuffer(f.Device.VKDevice, f.VKFramebuffer, nil)
}
