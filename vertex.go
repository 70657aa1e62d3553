package vkr

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Vertex is a single 2D position, bound at location 0 as R32G32_SFLOAT
type Vertex struct {
	Position mgl32.Vec2
}

// VertexStride is the size of one Vertex in the vertex buffer
const VertexStride = uint32(unsafe.Sizeof(Vertex{}))

// VertexSlice is static geometry uploaded once into a vertex buffer
type VertexSlice []Vertex

func (v VertexSlice) Len() int {
	return len(v)
}

func (v VertexSlice) Bytes() []byte {
	if len(v) == 0 {
		return nil
	}
	return ToBytes(unsafe.Pointer(&v[0]), len(v)*int(VertexStride))
}

func (v VertexSlice) BindingDescription() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    VertexStride,
		InputRate: vk.VertexInputRateVertex,
	}
}

func (v VertexSlice) AttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{{
		Location: 0,
		Binding:  0,
		Format:   vk.FormatR32g32Sfloat,
		Offset:   uint32(unsafe.Offsetof(Vertex{}.Position)),
	}}
}

// TriangleVertices is the single triangle drawn by the triangle scene
func TriangleVertices() VertexSlice {
	return VertexSlice{
		{Position: mgl32.Vec2{-0.5, -0.5}},
		{Position: mgl32.Vec2{0.0, 0.5}},
		{Position: mgl32.Vec2{0.5, -0.25}},
	}
}

// QuadVertices covers the whole viewport with two triangles
func QuadVertices() VertexSlice {
	return VertexSlice{
		{Position: mgl32.Vec2{-1, -1}},
		{Position: mgl32.Vec2{1, -1}},
		{Position: mgl32.Vec2{1, 1}},
		{Position: mgl32.Vec2{-1, -1}},
		{Position: mgl32.Vec2{1, 1}},
		{Position: mgl32.Vec2{-1, 1}},
	}
}

// RayMarchConstants is the push constant block of the ray marching shader
type RayMarchConstants struct {
	Resolution mgl32.Vec2
}

// NewRayMarchConstants builds the constants for a framebuffer extent
func NewRayMarchConstants(extent vk.Extent2D) *RayMarchConstants {
	return &RayMarchConstants{
		Resolution: mgl32.Vec2{float32(extent.Width), float32(extent.Height)},
	}
}

func (c *RayMarchConstants) Bytes() []byte {
	return ToBytes(unsafe.Pointer(c), int(unsafe.Sizeof(*c)))
}

// ValidateVertexInputs checks every input the vertex shader reads is supplied by
// an attribute of the same format.
func ValidateVertexInputs(inputs []VertexInput, attributes []vk.VertexInputAttributeDescription) error {
	for _, in := range inputs {
		found := false
		for _, a := range attributes {
			if a.Location != in.Location {
				continue
			}
			if a.Format != in.Format {
				return errors.Errorf("vertex input %q at location %d expects format %d, buffer supplies %d",
					in.Name, in.Location, in.Format, a.Format)
			}
			found = true
		}
		if !found {
			return errors.Errorf("vertex input %q at location %d has no attribute", in.Name, in.Location)
		}
	}
	return nil
}
