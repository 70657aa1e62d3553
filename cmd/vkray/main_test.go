package main

import (
	"os"
	"path/filepath"
	"testing"

	vkr "github.com/Gaubbe/vk-ray-marcher"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parsed runs the root command's flag parsing without executing it
func parsed(t *testing.T, args ...string) (*cobra.Command, *options) {
	t.Helper()
	opts := &options{}
	root := newRootCommandFor(opts)
	require.NoError(t, root.ParseFlags(args))
	return root, opts
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "vkray.toml")
	require.NoError(t, os.WriteFile(file, []byte("scene = \"triangle\"\nwidth = 1024\n"), 0o644))

	cmd, opts := parsed(t, "--config", file, "--width", "640")
	cfg, err := loadConfig(cmd, opts)
	require.NoError(t, err)
	assert.Equal(t, vkr.SceneTriangle, cfg.Scene, "file value kept")
	assert.Equal(t, 640, cfg.Width, "flag wins")
	assert.Equal(t, 600, cfg.Height, "default kept")
}

func TestLoadConfigDefaults(t *testing.T) {
	cmd, opts := parsed(t)
	cfg, err := loadConfig(cmd, opts)
	require.NoError(t, err)
	assert.Equal(t, vkr.DefaultConfig(), cfg)
}

func TestLoadConfigInvalidFlag(t *testing.T) {
	cmd, opts := parsed(t, "--scene", "teapot")
	_, err := loadConfig(cmd, opts)
	assert.Error(t, err)
}

func TestFirstMismatch(t *testing.T) {
	assert.Equal(t, -1, firstMismatch(sequence(8), func(i int) uint32 { return uint32(i) }))
	assert.Equal(t, 1, firstMismatch([]uint32{0, 13, 24}, func(i int) uint32 { return uint32(i) * 12 }))
}
