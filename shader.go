package vkr

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/naga"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ShaderModule is a loaded SPIR-V module together with its reflected interface
type ShaderModule struct {
	Device         *Device
	Description    string
	Interface      *ShaderInterface
	VKShaderModule vk.ShaderModule
}

// CompileWGSL compiles WGSL source to SPIR-V words
func CompileWGSL(src string) ([]uint32, error) {
	spirv, err := naga.Compile(src)
	if err != nil {
		return nil, errors.Wrap(err, "compile wgsl")
	}
	return wordsFromBytes(spirv)
}

// LoadShaderCode reads a shader file; .wgsl files are compiled, anything else is
// taken to be a SPIR-V binary.
func LoadShaderCode(file string) ([]uint32, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "read shader")
	}
	if strings.EqualFold(filepath.Ext(file), ".wgsl") {
		code, err := CompileWGSL(string(data))
		return code, errors.Wrap(err, file)
	}
	return wordsFromBytes(data)
}

// CreateShaderModule reflects code and loads it on the device
func (d *Device) CreateShaderModule(code []uint32, description string) (*ShaderModule, error) {
	iface, err := Reflect(code)
	if err != nil {
		return nil, errors.Wrapf(err, "reflect %s", description)
	}

	var module vk.ShaderModule
	err = resultError("create shader module", vk.CreateShaderModule(d.VKDevice, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code) * 4),
		PCode:    code,
	}, nil, &module))
	if err != nil {
		return nil, errors.Wrap(err, description)
	}

	return &ShaderModule{
		Device:         d,
		Description:    description,
		Interface:      iface,
		VKShaderModule: module,
	}, nil
}

// CreateShaderModuleWGSL compiles and loads WGSL source
func (d *Device) CreateShaderModuleWGSL(src, description string) (*ShaderModule, error) {
	code, err := CompileWGSL(src)
	if err != nil {
		return nil, errors.Wrap(err, description)
	}
	return d.CreateShaderModule(code, description)
}

func (d *Device) LoadShaderModuleFromFile(file string) (*ShaderModule, error) {
	code, err := LoadShaderCode(file)
	if err != nil {
		return nil, err
	}
	return d.CreateShaderModule(code, file)
}

// VKPipelineShaderStageCreateInfo describes the named entry point as a pipeline stage
func (s *ShaderModule) VKPipelineShaderStageCreateInfo(entryPoint string) (vk.PipelineShaderStageCreateInfo, error) {
	e, ok := s.Interface.EntryPoint(entryPoint)
	if !ok {
		return vk.PipelineShaderStageCreateInfo{}, errors.Errorf("%s has no entry point %q", s.Description, entryPoint)
	}
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  e.Stage,
		Module: s.VKShaderModule,
		PName:  safeString(entryPoint),
	}, nil
}

func (s *ShaderModule) Destroy() {
	vk.DestroyShaderModule(s.Device.VKDevice, s.VKShaderModule, nil)
}
