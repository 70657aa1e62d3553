/*
Package vkr is a small real-time renderer built directly on Vulkan. It opens a device for a single
window, keeps a swapchain alive across resizes and draws simple geometry every frame: a triangle,
or a full-screen quad whose fragment shader ray-marches a signed distance field.

Most of the package is a thin set of wrappers, one file per Vulkan object, in the same spirit as
the native API: the native handles are always exposed on fields prefixed with 'VK' so callers are
never boxed in by what the wrappers provide.

Lifecycle

The Context owns every live GPU handle for one window. Construction happens in dependency order:

	1. Instance, created with the platform extensions the window needs
	2. Surface, created by the window for the instance
	3. Device selection, the best ranked physical device with a graphics+present queue family
	4. Logical device and its queue
	5. Memory allocator, which hands out buffers from large device memory blocks
	6. Swapchain, min image count + 1 images, first reported format and composite alpha
	7. Render pass, one color attachment in the swapchain format (clear, store)
	8. Framebuffers, one per swapchain image
	9. Pipeline, built from shader modules whose layout is reflected from SPIR-V
	10. Vertex buffer, uploaded once
	11. Command buffers, one pre-recorded buffer per framebuffer

On resize (or an out of date swapchain) only steps 6 to 11 run again, and only the parts whose
inputs changed: the pipeline is rebuilt when the image count, extent or format changes, the command buffers
always, because the framebuffers they reference are new objects.

Frame loop

FrameLoop drives one frame per call to Frame and moves through the states Idle, Acquiring,
Submitting and Presenting, or NeedsRecreate when the surface no longer matches the swapchain.
It keeps a completion marker per swapchain image and waits on it before that image is used
again, so the CPU never races the GPU for a command buffer it is still reading. The presentation
engine behind it is an interface, the Vulkan one lives in present.go.

Compute

Compute sets up a device with no surface at all, for one-shot work such as copying a buffer or
dispatching a compute shader over a storage buffer.
*/
package vkr
