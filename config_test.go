package vkr

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	timeout, err := cfg.Timeout()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, timeout)

	size, err := cfg.BlockSize()
	require.NoError(t, err)
	assert.Equal(t, DefaultBlockSize, size)

	mode, err := cfg.VKPresentMode()
	require.NoError(t, err)
	assert.Equal(t, vk.PresentModeFifo, mode)
}

func TestLoadConfigTOML(t *testing.T) {
	file := writeConfig(t, "vkray.toml", `
title = "spheres"
width = 1280
height = 720
scene = "triangle"
present_mode = "mailbox"
frame_timeout = "250ms"
memory_block_size = "16MB"
watch_shaders = true
`)
	cfg, err := LoadConfig(file)
	require.NoError(t, err)

	assert.Equal(t, "spheres", cfg.Title)
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
	assert.Equal(t, SceneTriangle, cfg.Scene)
	assert.True(t, cfg.WatchShaders)
	assert.False(t, cfg.Validation)

	mode, err := cfg.VKPresentMode()
	require.NoError(t, err)
	assert.Equal(t, vk.PresentModeMailbox, mode)

	timeout, err := cfg.Timeout()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, timeout)

	size, err := cfg.BlockSize()
	require.NoError(t, err)
	assert.Equal(t, 16*uint64(datasize.MB), size)
}

func TestLoadConfigYAML(t *testing.T) {
	file := writeConfig(t, "vkray.yaml", `
scene: raymarch
validation: true
fragment_shader: shaders/custom.wgsl
frame_timeout: "0"
`)
	cfg, err := LoadConfig(file)
	require.NoError(t, err)

	assert.Equal(t, SceneRayMarch, cfg.Scene)
	assert.True(t, cfg.Validation)
	assert.Equal(t, "shaders/custom.wgsl", cfg.FragmentShader)
	assert.Equal(t, 800, cfg.Width, "unset fields keep their defaults")

	timeout, err := cfg.Timeout()
	require.NoError(t, err)
	assert.Zero(t, timeout)
}

func TestLoadConfigEmptyFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "empty.yml", ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "vkray.json", "{}"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "unknown.toml", "colour = \"red\"\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "unknown.yaml", "colour: red\n"))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"zero width":       func(c *Config) { c.Width = 0 },
		"negative height":  func(c *Config) { c.Height = -1 },
		"unknown scene":    func(c *Config) { c.Scene = "teapot" },
		"present mode":     func(c *Config) { c.PresentMode = "vsync" },
		"timeout":          func(c *Config) { c.FrameTimeout = "soon" },
		"negative timeout": func(c *Config) { c.FrameTimeout = "-1s" },
		"block size":       func(c *Config) { c.MemoryBlockSize = "lots" },
		"zero block size":  func(c *Config) { c.MemoryBlockSize = "0B" },
	}
	for name, mutate := range cases {
		t.Run(strings.ReplaceAll(name, " ", "_"), func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
