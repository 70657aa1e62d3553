package vkr

import (
	vk "github.com/vulkan-go/vulkan"
)

type ImageView struct {
	Device      *Device
	VKImageView vk.ImageView
}

// imageViewCreateInfo describes a default 2D colour view of a single mip and layer
func imageViewCreateInfo(image vk.Image, format vk.Format, mask vk.ImageAspectFlags) vk.ImageViewCreateInfo {
	return vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleR,
			G: vk.ComponentSwizzleG,
			B: vk.ComponentSwizzleB,
			A: vk.ComponentSwizzleA,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: mask,
			LevelCount: 1,
			LayerCount: 1,
		},
	}
}

// CreateImageView creates the default colour view of an image
func (d *Device) CreateImageView(image vk.Image, format vk.Format) (*ImageView, error) {
	createInfo := imageViewCreateInfo(image, format, vk.ImageAspectFlags(vk.ImageAspectColorBit))

	var view vk.ImageView
	if err := resultError("create image view", vk.CreateImageView(d.VKDevice, &createInfo, nil, &view)); err != nil {
		return nil, err
	}
	return &ImageView{Device: d, VKImageView: view}, nil
}

func (i *ImageView) Destroy() {
	vk.DestroyImageView(i.Device.VKDevice, i.VKImageView, nil)
}
