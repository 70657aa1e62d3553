package main

import (
	vkr "github.com/Gaubbe/vk-ray-marcher"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// window adapts a glfw window to vkr.Window
type window struct {
	*glfw.Window
}

var _ vkr.Window = (*window)(nil)

func newWindow(cfg *vkr.Config) (*window, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	w, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create window")
	}
	return &window{Window: w}, nil
}

func (w *window) RequiredInstanceExtensions() []string {
	return w.GetRequiredInstanceExtensions()
}

func (w *window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := w.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(ptr), nil
}

func (w *window) FramebufferSize() (int, int) {
	return w.GetFramebufferSize()
}

func (w *window) OnResize(resize func()) {
	w.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		resize()
	})
}

// Poll processes pending events and reports whether the window is still open.
// A minimized window blocks here until it gets a drawable size again.
func (w *window) Poll() bool {
	glfw.PollEvents()
	for !w.ShouldClose() {
		if width, height := w.GetFramebufferSize(); width > 0 && height > 0 {
			return true
		}
		glfw.WaitEvents()
	}
	return false
}
