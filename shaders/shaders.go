// Package shaders holds the WGSL sources the renderer and the compute checks use.
package shaders

import (
	_ "embed"

	"github.com/pkg/errors"
)

var (
	//go:embed triangle.wgsl
	Triangle string

	//go:embed raymarch.wgsl
	RayMarch string

	//go:embed multiply.wgsl
	Multiply string
)

// Entry points shared by the graphics shaders
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
	ComputeEntry  = "main"
)

// MultiplyWorkgroupSize matches the workgroup size declared in multiply.wgsl
const MultiplyWorkgroupSize = 64

// ForScene returns the source drawing the named scene
func ForScene(scene string) (string, error) {
	switch scene {
	case "triangle":
		return Triangle, nil
	case "raymarch":
		return RayMarch, nil
	}
	return "", errors.Errorf("unknown scene %q", scene)
}
