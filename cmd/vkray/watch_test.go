package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	vkr "github.com/Gaubbe/vk-ray-marcher"
	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShaderFiles(t *testing.T) {
	cfg := vkr.DefaultConfig()
	assert.Empty(t, shaderFiles(cfg))

	dir := t.TempDir()
	shader := filepath.Join(dir, "scene.wgsl")
	cfg.VertexShader = shader
	cfg.FragmentShader = shader
	assert.Equal(t, []string{shader}, shaderFiles(cfg))

	cfg.FragmentShader = filepath.Join(dir, "frag.spv")
	assert.Len(t, shaderFiles(cfg), 2)
}

func TestShaderWatcherRelevant(t *testing.T) {
	dir := t.TempDir()
	shader := filepath.Join(dir, "scene.wgsl")
	w, err := newShaderWatcher([]string{shader}, func() {}, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	defer w.watcher.Close()

	assert.True(t, w.relevant(fsnotify.Event{Name: shader, Op: fsnotify.Write}))
	assert.True(t, w.relevant(fsnotify.Event{Name: shader, Op: fsnotify.Create}))
	assert.False(t, w.relevant(fsnotify.Event{Name: shader, Op: fsnotify.Chmod}))
	assert.False(t, w.relevant(fsnotify.Event{Name: filepath.Join(dir, "other.wgsl"), Op: fsnotify.Write}))
}

func TestShaderWatcherRebuilds(t *testing.T) {
	dir := t.TempDir()
	shader := filepath.Join(dir, "scene.wgsl")
	require.NoError(t, os.WriteFile(shader, []byte("// v1\n"), 0o644))

	var rebuilds atomic.Int32
	w, err := newShaderWatcher([]string{shader}, func() { rebuilds.Add(1) }, log.New(io.Discard, "", 0))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(shader, []byte("// v2\n"), 0o644))

	assert.Eventually(t, func() bool { return rebuilds.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
