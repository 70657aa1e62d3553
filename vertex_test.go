package vkr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestVertexLayout(t *testing.T) {
	tri := TriangleVertices()
	assert.Equal(t, uint32(8), VertexStride)
	assert.Equal(t, 3, tri.Len())
	assert.Equal(t, 6, QuadVertices().Len())

	b := tri.Bytes()
	require.Len(t, b, 24)
	words := BytesUint32(b)
	assert.Equal(t, float32(-0.5), math.Float32frombits(words[0]))
	assert.Equal(t, float32(0.5), math.Float32frombits(words[3]))
	assert.Equal(t, float32(-0.25), math.Float32frombits(words[5]))

	bd := tri.BindingDescription()
	assert.Equal(t, uint32(0), bd.Binding)
	assert.Equal(t, VertexStride, bd.Stride)

	attrs := tri.AttributeDescriptions()
	require.Len(t, attrs, 1)
	assert.Equal(t, vk.FormatR32g32Sfloat, attrs[0].Format)
	assert.Equal(t, uint32(0), attrs[0].Offset)

	assert.Nil(t, VertexSlice{}.Bytes())
}

func TestRayMarchConstants(t *testing.T) {
	c := NewRayMarchConstants(vk.Extent2D{Width: 800, Height: 600})
	b := c.Bytes()
	require.Len(t, b, 8)
	words := BytesUint32(b)
	assert.Equal(t, float32(800), math.Float32frombits(words[0]))
	assert.Equal(t, float32(600), math.Float32frombits(words[1]))
}

func TestValidateVertexInputs(t *testing.T) {
	attrs := TriangleVertices().AttributeDescriptions()

	assert.NoError(t, ValidateVertexInputs(nil, attrs))
	assert.NoError(t, ValidateVertexInputs([]VertexInput{{Name: "position", Location: 0, Format: vk.FormatR32g32Sfloat}}, attrs))
	assert.Error(t, ValidateVertexInputs([]VertexInput{{Name: "position", Location: 0, Format: vk.FormatR32g32b32Sfloat}}, attrs))
	assert.Error(t, ValidateVertexInputs([]VertexInput{{Name: "uv", Location: 1, Format: vk.FormatR32g32Sfloat}}, attrs))
}
