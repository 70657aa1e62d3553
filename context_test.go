package vkr

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func testSwapchainConfig(w, h uint32, format vk.Format) SwapchainConfig {
	return SwapchainConfig{
		ImageCount: 3,
		Format:     vk.SurfaceFormat{Format: format, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		Extent:     vk.Extent2D{Width: w, Height: h},
	}
}

func TestPlanRecreate(t *testing.T) {
	base := testSwapchainConfig(800, 600, vk.FormatB8g8r8a8Srgb)

	same := planRecreate(base, testSwapchainConfig(800, 600, vk.FormatB8g8r8a8Srgb), false)
	assert.Equal(t, recreatePlan{}, same, "an out of date swapchain of the same size keeps its pipeline")

	moreImages := testSwapchainConfig(800, 600, vk.FormatB8g8r8a8Srgb)
	moreImages.ImageCount = 4
	assert.Equal(t, recreatePlan{Pipeline: true}, planRecreate(base, moreImages, false),
		"a different image count rebuilds the pipeline")

	resized := planRecreate(base, testSwapchainConfig(1024, 600, vk.FormatB8g8r8a8Srgb), false)
	assert.Equal(t, recreatePlan{Pipeline: true}, resized)

	reformatted := planRecreate(base, testSwapchainConfig(800, 600, vk.FormatR8g8b8a8Unorm), false)
	assert.Equal(t, recreatePlan{RenderPass: true, Pipeline: true}, reformatted)

	reloaded := planRecreate(base, base, true)
	assert.Equal(t, recreatePlan{Pipeline: true}, reloaded)
}

func TestSceneVertices(t *testing.T) {
	assert.Equal(t, 3, sceneVertices(SceneTriangle).Len())
	assert.Equal(t, 6, sceneVertices(SceneRayMarch).Len())
}

func TestShaderStagesModules(t *testing.T) {
	shared := &ShaderModule{Description: "scene.wgsl"}
	assert.Len(t, shaderStages{Vertex: shared, Fragment: shared}.modules(), 1)

	vs, fs := &ShaderModule{Description: "vs.spv"}, &ShaderModule{Description: "fs.spv"}
	assert.Equal(t, []*ShaderModule{vs, fs}, shaderStages{Vertex: vs, Fragment: fs}.modules())

	assert.True(t, shaderStages{}.empty())
	assert.Empty(t, shaderStages{}.modules())
}

// buildRecorder accepts every stage pair except the ones using reject
type buildRecorder struct {
	reject *ShaderModule
	fail   bool
	built  []shaderStages
}

func (b *buildRecorder) build(s shaderStages) error {
	b.built = append(b.built, s)
	if b.fail || (b.reject != nil && (s.Vertex == b.reject || s.Fragment == b.reject)) {
		return errors.New(`scene.wgsl has no entry point "vs_main"`)
	}
	return nil
}

func TestAdoptShaders(t *testing.T) {
	cur := shaderStages{Vertex: &ShaderModule{Description: "old"}}
	cur.Fragment = cur.Vertex
	next := shaderStages{Vertex: &ShaderModule{Description: "new"}}
	next.Fragment = next.Vertex

	t.Run("no reload", func(t *testing.T) {
		b := &buildRecorder{}
		inUse, unused, err := adoptShaders(cur, shaderStages{}, b.build, quietLogger())
		require.NoError(t, err)
		assert.Equal(t, cur, inUse)
		assert.True(t, unused.empty())
		assert.Equal(t, []shaderStages{cur}, b.built)
	})

	t.Run("reload accepted", func(t *testing.T) {
		b := &buildRecorder{}
		inUse, unused, err := adoptShaders(cur, next, b.build, quietLogger())
		require.NoError(t, err)
		assert.Equal(t, next, inUse)
		assert.Equal(t, cur, unused)
		assert.Equal(t, []shaderStages{next}, b.built)
	})

	t.Run("reload rejected keeps the current shaders", func(t *testing.T) {
		var out bytes.Buffer
		b := &buildRecorder{reject: next.Vertex}
		inUse, unused, err := adoptShaders(cur, next, b.build, log.New(&out, "", 0))
		require.NoError(t, err)
		assert.Equal(t, cur, inUse)
		assert.Equal(t, next, unused, "the rejected modules are handed back for destruction")
		assert.Equal(t, []shaderStages{next, cur}, b.built)
		assert.Contains(t, out.String(), "keeping the current ones")
	})

	t.Run("current shaders failing is an error", func(t *testing.T) {
		b := &buildRecorder{fail: true}
		inUse, _, err := adoptShaders(cur, next, b.build, quietLogger())
		assert.Error(t, err)
		assert.Equal(t, cur, inUse)
	})
}
