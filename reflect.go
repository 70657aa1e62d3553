package vkr

import (
	"sort"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

const spirvMagic = 0x07230203

// spir-v opcodes
const (
	opName           = 5
	opEntryPoint     = 15
	opTypeBool       = 20
	opTypeInt        = 21
	opTypeFloat      = 22
	opTypeVector     = 23
	opTypeMatrix     = 24
	opTypeImage      = 25
	opTypeSampler    = 26
	opTypeSampled    = 27
	opTypeArray      = 28
	opTypeRuntimeArr = 29
	opTypeStruct     = 30
	opTypePointer    = 32
	opConstant       = 43
	opVariable       = 59
	opDecorate       = 71
	opMemberDecorate = 72
)

// spir-v decorations
const (
	decBlock         = 2
	decBufferBlock   = 3
	decArrayStride   = 6
	decBuiltIn       = 11
	decLocation      = 30
	decBinding       = 33
	decDescriptorSet = 34
	decOffset        = 35
)

// spir-v storage classes
const (
	storageUniformConstant = 0
	storageInput           = 1
	storageUniform         = 2
	storagePushConstant    = 9
	storageStorageBuffer   = 12
)

// EntryPoint is a shader entry point and the stage it runs in
type EntryPoint struct {
	Name  string
	Stage vk.ShaderStageFlagBits
}

// VertexInput is a vertex stage input variable
type VertexInput struct {
	Name     string
	Location uint32
	Format   vk.Format
}

// DescriptorBinding is a resource bound through a descriptor set
type DescriptorBinding struct {
	Name    string
	Set     uint32
	Binding uint32
	Type    vk.DescriptorType
	Count   uint32
	Stages  vk.ShaderStageFlags
}

// ShaderInterface is what a compiled module exposes to the pipeline layout
type ShaderInterface struct {
	EntryPoints      []EntryPoint
	Inputs           []VertexInput
	PushConstantSize uint32
	PushStages       vk.ShaderStageFlags
	Bindings         []DescriptorBinding
}

// Stages is the union of the stages of every entry point
func (s *ShaderInterface) Stages() vk.ShaderStageFlags {
	var flags vk.ShaderStageFlags
	for _, e := range s.EntryPoints {
		flags |= vk.ShaderStageFlags(e.Stage)
	}
	return flags
}

// EntryPoint finds the entry point with the given name
func (s *ShaderInterface) EntryPoint(name string) (EntryPoint, bool) {
	for _, e := range s.EntryPoints {
		if e.Name == name {
			return e, true
		}
	}
	return EntryPoint{}, false
}

// PushConstantRanges returns the single range covering every push constant block
func (s *ShaderInterface) PushConstantRanges() []vk.PushConstantRange {
	if s.PushConstantSize == 0 {
		return nil
	}
	return []vk.PushConstantRange{{
		StageFlags: s.PushStages,
		Offset:     0,
		Size:       s.PushConstantSize,
	}}
}

// SetLayoutBindings groups the bindings by set. Sets without bindings between 0
// and the highest set used come back empty so set indices line up.
func (s *ShaderInterface) SetLayoutBindings() [][]vk.DescriptorSetLayoutBinding {
	if len(s.Bindings) == 0 {
		return nil
	}
	var maxSet uint32
	for _, b := range s.Bindings {
		if b.Set > maxSet {
			maxSet = b.Set
		}
	}
	sets := make([][]vk.DescriptorSetLayoutBinding, maxSet+1)
	for _, b := range s.Bindings {
		sets[b.Set] = append(sets[b.Set], vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  b.Type,
			DescriptorCount: b.Count,
			StageFlags:      b.Stages,
		})
	}
	return sets
}

type spirvType struct {
	op      uint32
	width   uint32
	signed  bool
	elem    uint32
	count   uint32
	lenID   uint32
	members []uint32
	storage uint32
	sampled uint32
}

type spirvVariable struct {
	id      uint32
	typeID  uint32
	storage uint32
}

type reflector struct {
	names       map[uint32]string
	decorations map[uint32]map[uint32]uint32
	offsets     map[uint32]map[uint32]uint32
	types       map[uint32]*spirvType
	constants   map[uint32]uint32
	variables   []spirvVariable
	entries     []EntryPoint
	vertexVars  map[uint32]bool
}

func decodeString(words []uint32) (string, int) {
	var b []byte
	for i, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return string(b), i + 1
			}
			b = append(b, c)
		}
	}
	return string(b), len(words)
}

func executionStage(model uint32) (vk.ShaderStageFlagBits, error) {
	switch model {
	case 0:
		return vk.ShaderStageVertexBit, nil
	case 4:
		return vk.ShaderStageFragmentBit, nil
	case 5:
		return vk.ShaderStageComputeBit, nil
	}
	return 0, errors.Errorf("unsupported execution model %d", model)
}

// Reflect extracts the interface of a SPIR-V module
func Reflect(code []uint32) (*ShaderInterface, error) {
	if len(code) < 5 {
		return nil, errors.New("spir-v module shorter than its header")
	}
	if code[0] != spirvMagic {
		return nil, errors.Errorf("bad spir-v magic %#x", code[0])
	}

	r := &reflector{
		names:       make(map[uint32]string),
		decorations: make(map[uint32]map[uint32]uint32),
		offsets:     make(map[uint32]map[uint32]uint32),
		types:       make(map[uint32]*spirvType),
		constants:   make(map[uint32]uint32),
		vertexVars:  make(map[uint32]bool),
	}

	for i := 5; i < len(code); {
		wc := int(code[i] >> 16)
		op := code[i] & 0xffff
		if wc == 0 || i+wc > len(code) {
			return nil, errors.Errorf("truncated spir-v instruction at word %d", i)
		}
		if err := r.instruction(op, code[i+1:i+wc]); err != nil {
			return nil, errors.Wrapf(err, "spir-v word %d", i)
		}
		i += wc
	}
	return r.build()
}

func (r *reflector) decorate(id, decoration, value uint32) {
	d, ok := r.decorations[id]
	if !ok {
		d = make(map[uint32]uint32)
		r.decorations[id] = d
	}
	d[decoration] = value
}

func (r *reflector) decoration(id, decoration uint32) (uint32, bool) {
	v, ok := r.decorations[id][decoration]
	return v, ok
}

func (r *reflector) instruction(op uint32, args []uint32) error {
	need := func(n int) error {
		if len(args) < n {
			return errors.Errorf("opcode %d needs %d operands, has %d", op, n, len(args))
		}
		return nil
	}

	switch op {
	case opName:
		if err := need(1); err != nil {
			return err
		}
		r.names[args[0]], _ = decodeString(args[1:])
	case opEntryPoint:
		if err := need(3); err != nil {
			return err
		}
		stage, err := executionStage(args[0])
		if err != nil {
			return err
		}
		name, n := decodeString(args[2:])
		r.entries = append(r.entries, EntryPoint{Name: name, Stage: stage})
		if stage == vk.ShaderStageVertexBit {
			for _, id := range args[2+n:] {
				r.vertexVars[id] = true
			}
		}
	case opTypeBool, opTypeSampler:
		if err := need(1); err != nil {
			return err
		}
		r.types[args[0]] = &spirvType{op: op, width: 32}
	case opTypeInt:
		if err := need(3); err != nil {
			return err
		}
		r.types[args[0]] = &spirvType{op: op, width: args[1], signed: args[2] == 1}
	case opTypeFloat:
		if err := need(2); err != nil {
			return err
		}
		r.types[args[0]] = &spirvType{op: op, width: args[1]}
	case opTypeVector, opTypeMatrix:
		if err := need(3); err != nil {
			return err
		}
		r.types[args[0]] = &spirvType{op: op, elem: args[1], count: args[2]}
	case opTypeImage:
		if err := need(8); err != nil {
			return err
		}
		r.types[args[0]] = &spirvType{op: op, sampled: args[6]}
	case opTypeSampled:
		if err := need(2); err != nil {
			return err
		}
		r.types[args[0]] = &spirvType{op: op, elem: args[1]}
	case opTypeArray:
		if err := need(3); err != nil {
			return err
		}
		r.types[args[0]] = &spirvType{op: op, elem: args[1], lenID: args[2]}
	case opTypeRuntimeArr:
		if err := need(2); err != nil {
			return err
		}
		r.types[args[0]] = &spirvType{op: op, elem: args[1]}
	case opTypeStruct:
		if err := need(1); err != nil {
			return err
		}
		r.types[args[0]] = &spirvType{op: op, members: append([]uint32(nil), args[1:]...)}
	case opTypePointer:
		if err := need(3); err != nil {
			return err
		}
		r.types[args[0]] = &spirvType{op: op, storage: args[1], elem: args[2]}
	case opConstant:
		if err := need(3); err != nil {
			return err
		}
		r.constants[args[1]] = args[2]
	case opVariable:
		if err := need(3); err != nil {
			return err
		}
		r.variables = append(r.variables, spirvVariable{typeID: args[0], id: args[1], storage: args[2]})
	case opDecorate:
		if err := need(2); err != nil {
			return err
		}
		var value uint32
		if len(args) > 2 {
			value = args[2]
		}
		r.decorate(args[0], args[1], value)
	case opMemberDecorate:
		if err := need(3); err != nil {
			return err
		}
		if args[2] == decOffset && len(args) > 3 {
			m, ok := r.offsets[args[0]]
			if !ok {
				m = make(map[uint32]uint32)
				r.offsets[args[0]] = m
			}
			m[args[1]] = args[3]
		}
	}
	return nil
}

func (r *reflector) typeOf(id uint32) (*spirvType, error) {
	t, ok := r.types[id]
	if !ok {
		return nil, errors.Errorf("unknown spir-v type %d", id)
	}
	return t, nil
}

// sizeOf returns the byte size of a type as laid out in a block
func (r *reflector) sizeOf(id uint32) (uint32, error) {
	t, err := r.typeOf(id)
	if err != nil {
		return 0, err
	}
	switch t.op {
	case opTypeBool, opTypeInt, opTypeFloat:
		return t.width / 8, nil
	case opTypeVector, opTypeMatrix:
		elem, err := r.sizeOf(t.elem)
		if err != nil {
			return 0, err
		}
		return elem * t.count, nil
	case opTypeArray:
		n, ok := r.constants[t.lenID]
		if !ok {
			return 0, errors.Errorf("array %d has no constant length", id)
		}
		if stride, ok := r.decoration(id, decArrayStride); ok {
			return stride * n, nil
		}
		elem, err := r.sizeOf(t.elem)
		if err != nil {
			return 0, err
		}
		return elem * n, nil
	case opTypeRuntimeArr:
		return 0, nil
	case opTypeStruct:
		var size uint32
		var next uint32
		for i, m := range t.members {
			msize, err := r.sizeOf(m)
			if err != nil {
				return 0, err
			}
			offset, ok := r.offsets[id][uint32(i)]
			if !ok {
				offset = next
			}
			next = offset + msize
			if next > size {
				size = next
			}
		}
		return size, nil
	}
	return 0, errors.Errorf("type %d has no block layout", id)
}

func (r *reflector) vertexFormat(id uint32) (vk.Format, error) {
	t, err := r.typeOf(id)
	if err != nil {
		return vk.FormatUndefined, err
	}
	count := uint32(1)
	if t.op == opTypeVector {
		count = t.count
		if t, err = r.typeOf(t.elem); err != nil {
			return vk.FormatUndefined, err
		}
	}
	if t.width != 32 || count < 1 || count > 4 {
		return vk.FormatUndefined, errors.Errorf("unsupported vertex input type %d", id)
	}

	var formats [4]vk.Format
	switch {
	case t.op == opTypeFloat:
		formats = [4]vk.Format{vk.FormatR32Sfloat, vk.FormatR32g32Sfloat, vk.FormatR32g32b32Sfloat, vk.FormatR32g32b32a32Sfloat}
	case t.op == opTypeInt && t.signed:
		formats = [4]vk.Format{vk.FormatR32Sint, vk.FormatR32g32Sint, vk.FormatR32g32b32Sint, vk.FormatR32g32b32a32Sint}
	case t.op == opTypeInt:
		formats = [4]vk.Format{vk.FormatR32Uint, vk.FormatR32g32Uint, vk.FormatR32g32b32Uint, vk.FormatR32g32b32a32Uint}
	default:
		return vk.FormatUndefined, errors.Errorf("unsupported vertex input type %d", id)
	}
	return formats[count-1], nil
}

func (r *reflector) descriptorType(v spirvVariable, pointee uint32) (vk.DescriptorType, uint32, error) {
	t, err := r.typeOf(pointee)
	if err != nil {
		return 0, 0, err
	}
	count := uint32(1)
	if t.op == opTypeArray {
		count = r.constants[t.lenID]
		pointee = t.elem
		if t, err = r.typeOf(pointee); err != nil {
			return 0, 0, err
		}
	}

	switch v.storage {
	case storageStorageBuffer:
		return vk.DescriptorTypeStorageBuffer, count, nil
	case storageUniform:
		if _, ok := r.decoration(pointee, decBufferBlock); ok {
			return vk.DescriptorTypeStorageBuffer, count, nil
		}
		return vk.DescriptorTypeUniformBuffer, count, nil
	case storageUniformConstant:
		switch t.op {
		case opTypeSampler:
			return vk.DescriptorTypeSampler, count, nil
		case opTypeSampled:
			return vk.DescriptorTypeCombinedImageSampler, count, nil
		case opTypeImage:
			if t.sampled == 2 {
				return vk.DescriptorTypeStorageImage, count, nil
			}
			return vk.DescriptorTypeSampledImage, count, nil
		}
	}
	return 0, 0, errors.Errorf("variable %d is not a descriptor resource", v.id)
}

func (r *reflector) build() (*ShaderInterface, error) {
	si := &ShaderInterface{EntryPoints: r.entries}
	stages := si.Stages()

	for _, v := range r.variables {
		ptr, err := r.typeOf(v.typeID)
		if err != nil {
			return nil, err
		}
		if ptr.op != opTypePointer {
			return nil, errors.Errorf("variable %d is not a pointer", v.id)
		}

		switch v.storage {
		case storageInput:
			if !r.vertexVars[v.id] {
				continue
			}
			if _, builtin := r.decoration(v.id, decBuiltIn); builtin {
				continue
			}
			location, ok := r.decoration(v.id, decLocation)
			if !ok {
				continue
			}
			format, err := r.vertexFormat(ptr.elem)
			if err != nil {
				return nil, err
			}
			si.Inputs = append(si.Inputs, VertexInput{Name: r.names[v.id], Location: location, Format: format})

		case storagePushConstant:
			size, err := r.sizeOf(ptr.elem)
			if err != nil {
				return nil, err
			}
			if size > si.PushConstantSize {
				si.PushConstantSize = size
			}
			si.PushStages = stages

		case storageUniform, storageUniformConstant, storageStorageBuffer:
			binding, ok := r.decoration(v.id, decBinding)
			if !ok {
				continue
			}
			set, _ := r.decoration(v.id, decDescriptorSet)
			dt, count, err := r.descriptorType(v, ptr.elem)
			if err != nil {
				return nil, err
			}
			si.Bindings = append(si.Bindings, DescriptorBinding{
				Name:    r.names[v.id],
				Set:     set,
				Binding: binding,
				Type:    dt,
				Count:   count,
				Stages:  stages,
			})
		}
	}

	sort.Slice(si.Inputs, func(i, j int) bool { return si.Inputs[i].Location < si.Inputs[j].Location })
	sortBindings(si.Bindings)
	return si, nil
}

func sortBindings(b []DescriptorBinding) {
	sort.Slice(b, func(i, j int) bool {
		if b[i].Set != b[j].Set {
			return b[i].Set < b[j].Set
		}
		return b[i].Binding < b[j].Binding
	})
}

// MergeInterfaces combines the interfaces of every stage of a pipeline. Bindings
// shared between stages must agree on their type, their stage flags are OR-ed.
// Push constants become one range from offset 0 sized to the largest block.
func MergeInterfaces(stages ...*ShaderInterface) (*ShaderInterface, error) {
	merged := &ShaderInterface{}
	type key struct{ set, binding uint32 }
	index := make(map[key]int)

	for _, s := range stages {
		if s == nil {
			continue
		}
		merged.EntryPoints = append(merged.EntryPoints, s.EntryPoints...)
		merged.Inputs = append(merged.Inputs, s.Inputs...)
		if s.PushConstantSize > 0 {
			merged.PushStages |= s.PushStages
			if s.PushConstantSize > merged.PushConstantSize {
				merged.PushConstantSize = s.PushConstantSize
			}
		}
		for _, b := range s.Bindings {
			k := key{b.Set, b.Binding}
			i, ok := index[k]
			if !ok {
				index[k] = len(merged.Bindings)
				merged.Bindings = append(merged.Bindings, b)
				continue
			}
			if merged.Bindings[i].Type != b.Type {
				return nil, errors.Errorf("set %d binding %d declared with conflicting types %d and %d",
					b.Set, b.Binding, merged.Bindings[i].Type, b.Type)
			}
			merged.Bindings[i].Stages |= b.Stages
			if b.Count > merged.Bindings[i].Count {
				merged.Bindings[i].Count = b.Count
			}
		}
	}
	sortBindings(merged.Bindings)
	return merged, nil
}
