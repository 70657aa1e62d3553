package vkr

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	"gopkg.in/yaml.v3"
)

// Scenes the renderer knows how to draw
const (
	SceneTriangle = "triangle"
	SceneRayMarch = "raymarch"
)

// Config is the renderer configuration, read from a TOML or YAML file and
// overridden by command line flags.
type Config struct {
	Title  string `toml:"title" yaml:"title"`
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
	Scene  string `toml:"scene" yaml:"scene"`

	// VertexShader and FragmentShader replace the scene's embedded shaders,
	// .wgsl files are compiled and anything else is read as SPIR-V
	VertexShader   string `toml:"vertex_shader" yaml:"vertex_shader"`
	FragmentShader string `toml:"fragment_shader" yaml:"fragment_shader"`

	Validation   bool   `toml:"validation" yaml:"validation"`
	PresentMode  string `toml:"present_mode" yaml:"present_mode"`
	FrameTimeout string `toml:"frame_timeout" yaml:"frame_timeout"`

	MemoryBlockSize string `toml:"memory_block_size" yaml:"memory_block_size"`
	WatchShaders    bool   `toml:"watch_shaders" yaml:"watch_shaders"`
}

// DefaultConfig is used for anything a config file leaves out
func DefaultConfig() *Config {
	return &Config{
		Title:           "vkray",
		Width:           800,
		Height:          600,
		Scene:           SceneRayMarch,
		PresentMode:     "fifo",
		FrameTimeout:    "10s",
		MemoryBlockSize: "64MB",
	}
}

// decoder is implemented by the TOML and YAML decoders
type decoder interface {
	Decode(v any) error
}

type decoderFunc func(r io.Reader) decoder

func decoderFor(file string) (decoderFunc, error) {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".toml":
		return func(r io.Reader) decoder {
			return toml.NewDecoder(r).DisallowUnknownFields()
		}, nil
	case ".yaml", ".yml":
		return func(r io.Reader) decoder {
			d := yaml.NewDecoder(r)
			d.KnownFields(true)
			return d
		}, nil
	}
	return nil, errors.Errorf("unsupported config format %q", filepath.Ext(file))
}

// LoadConfig reads file over the defaults and validates the result
func LoadConfig(file string) (*Config, error) {
	f, err := decoderFor(file)
	if err != nil {
		return nil, err
	}
	fp, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	defer fp.Close()

	cfg, err := readConfig(bufio.NewReader(fp), f)
	if err != nil {
		return nil, errors.Wrap(err, file)
	}
	return cfg, nil
}

func readConfig(r io.Reader, f decoderFunc) (*Config, error) {
	cfg := DefaultConfig()
	if err := f(r).Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the renderer cannot run with
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Errorf("window size %dx%d must be positive", c.Width, c.Height)
	}
	if c.Scene != SceneTriangle && c.Scene != SceneRayMarch {
		return errors.Errorf("unknown scene %q", c.Scene)
	}
	if _, err := c.VKPresentMode(); err != nil {
		return err
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if _, err := c.BlockSize(); err != nil {
		return err
	}
	return nil
}

// VKPresentMode maps the configured present mode name
func (c *Config) VKPresentMode() (vk.PresentMode, error) {
	switch strings.ToLower(c.PresentMode) {
	case "", "fifo":
		return vk.PresentModeFifo, nil
	case "mailbox":
		return vk.PresentModeMailbox, nil
	case "immediate":
		return vk.PresentModeImmediate, nil
	}
	return vk.PresentModeFifo, errors.Errorf("unknown present mode %q", c.PresentMode)
}

// Timeout bounds acquire and fence waits, zero waits forever
func (c *Config) Timeout() (time.Duration, error) {
	if c.FrameTimeout == "" || c.FrameTimeout == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.FrameTimeout)
	if err != nil {
		return 0, errors.Wrap(err, "frame_timeout")
	}
	if d < 0 {
		return 0, errors.Errorf("frame_timeout %s is negative", d)
	}
	return d, nil
}

// BlockSize is the size of the allocator's device memory blocks
func (c *Config) BlockSize() (uint64, error) {
	if c.MemoryBlockSize == "" {
		return DefaultBlockSize, nil
	}
	var size datasize.ByteSize
	if err := size.UnmarshalText([]byte(c.MemoryBlockSize)); err != nil {
		return 0, errors.Wrapf(err, "memory_block_size %q", c.MemoryBlockSize)
	}
	if size == 0 {
		return 0, errors.New("memory_block_size must be positive")
	}
	return size.Bytes(), nil
}

