// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/spvxform/spirv"
	"github.com/gogpu/spvxform/varinfo"
)

type ptrKey struct {
	storageClass spirv.StorageClass
	pointee      uint32
}

// shaderBuilder builds small shaders shaped like glslang output.
type shaderBuilder struct {
	*spirv.ModuleBuilder

	voidType  uint32
	floatType uint32
	intType   uint32
	vec4Type  uint32
	fnType    uint32

	ptrs  map[ptrKey]uint32
	iface []uint32
}

func newShaderBuilder() *shaderBuilder {
	b := spirv.NewModuleBuilder(spirv.Version1_0)
	b.AddCapability(spirv.CapabilityShader)
	b.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)

	sb := &shaderBuilder{ModuleBuilder: b, ptrs: make(map[ptrKey]uint32)}
	sb.voidType = b.AddTypeVoid()
	sb.floatType = b.AddTypeFloat(32)
	sb.intType = b.AddTypeInt(32, true)
	sb.vec4Type = b.AddTypeVector(sb.floatType, 4)
	sb.fnType = b.AddTypeFunction(sb.voidType)
	return sb
}

func (sb *shaderBuilder) pointer(storageClass spirv.StorageClass, pointee uint32) uint32 {
	key := ptrKey{storageClass, pointee}
	if id, ok := sb.ptrs[key]; ok {
		return id
	}
	id := sb.AddTypePointer(storageClass, pointee)
	sb.ptrs[key] = id
	return id
}

// varying declares a named vec4 Input or Output with a Location.
func (sb *shaderBuilder) varying(name string, storageClass spirv.StorageClass, location uint32) uint32 {
	v := sb.AddVariable(sb.pointer(storageClass, sb.vec4Type), storageClass)
	sb.AddName(v, name)
	sb.AddDecorate(v, spirv.DecorationLocation, location)
	sb.iface = append(sb.iface, v)
	return v
}

// uniformBlock declares a Uniform block variable decorated with set and binding.
func (sb *shaderBuilder) uniformBlock(blockName, varName string, set, binding uint32) (block, variable uint32) {
	block = sb.AddTypeStruct(sb.vec4Type)
	sb.AddName(block, blockName)
	sb.AddMemberName(block, 0, "color")
	sb.AddMemberDecorate(block, 0, spirv.DecorationOffset, 0)
	sb.AddDecorate(block, spirv.DecorationBlock)

	variable = sb.AddVariable(sb.pointer(spirv.StorageClassUniform, block), spirv.StorageClassUniform)
	sb.AddName(variable, varName)
	sb.AddDecorate(variable, spirv.DecorationDescriptorSet, set)
	sb.AddDecorate(variable, spirv.DecorationBinding, binding)
	return block, variable
}

// perVertex declares the nameless gl_PerVertex output block.
func (sb *shaderBuilder) perVertex() (block, variable uint32) {
	block = sb.AddTypeStruct(sb.vec4Type)
	sb.AddName(block, "gl_PerVertex")
	sb.AddMemberName(block, 0, "gl_Position")
	sb.AddMemberDecorate(block, 0, spirv.DecorationBuiltIn, uint32(spirv.BuiltInPosition))
	sb.AddDecorate(block, spirv.DecorationBlock)

	variable = sb.AddVariable(sb.pointer(spirv.StorageClassOutput, block), spirv.StorageClassOutput)
	sb.AddName(variable, "")
	sb.iface = append(sb.iface, variable)
	return block, variable
}

// builtin declares a gl_* variable decorated BuiltIn.
func (sb *shaderBuilder) builtin(name string, storageClass spirv.StorageClass, builtin spirv.BuiltIn) uint32 {
	v := sb.AddVariable(sb.pointer(storageClass, sb.vec4Type), storageClass)
	sb.AddName(v, name)
	sb.AddDecorate(v, spirv.DecorationBuiltIn, uint32(builtin))
	sb.iface = append(sb.iface, v)
	return v
}

func (sb *shaderBuilder) constVec4(value float32) uint32 {
	c := sb.AddConstantFloat32(sb.floatType, value)
	return sb.AddConstantComposite(sb.vec4Type, c, c, c, c)
}

// entryPoint defines main with body and declares it as the entry point
// with every interface variable declared so far.
func (sb *shaderBuilder) entryPoint(model spirv.ExecutionModel, body func()) uint32 {
	main := sb.AddFunction(sb.fnType, sb.voidType, spirv.FunctionControlNone)
	sb.AddName(main, "main")
	sb.AddLabel()
	if body != nil {
		body()
	}
	sb.AddReturn()
	sb.AddFunctionEnd()
	sb.AddEntryPoint(model, main, "main", sb.iface)
	return main
}

func varyingInfo(location uint32, output bool, stages ...varinfo.ShaderType) *varinfo.Info {
	info := varinfo.NewInfo()
	info.Location = location
	info.VaryingIsOutput = output
	for _, s := range stages {
		info.ActiveStages.Set(s)
	}
	return info
}

func resourceInfo(set, binding uint32, stages ...varinfo.ShaderType) *varinfo.Info {
	info := varinfo.NewInfo()
	info.DescriptorSet = set
	info.Binding = binding
	for _, s := range stages {
		info.ActiveStages.Set(s)
	}
	return info
}

// transformOK transforms in and checks the structural properties every
// output must have.
func transformOK(t *testing.T, in spirv.Blob, infoMap varinfo.Map, opts Options) spirv.Blob {
	t.Helper()

	out, err := NewTransformer(in, infoMap, opts).Transform()
	require.NoError(t, err)
	require.NoError(t, spirv.Validate(out))
	require.Equal(t, in[:spirv.HeaderIndexBound], out[:spirv.HeaderIndexBound], "header prefix changed")
	checkNewIDs(t, in, out)
	return out
}

// checkNewIDs verifies that every id allocated by the transformer is at or
// above the input bound, is defined exactly once, and that the output bound
// grew by exactly the number of such ids.
func checkNewIDs(t *testing.T, in, out spirv.Blob) {
	t.Helper()

	seen := make(map[uint32]bool)
	for _, inst := range decode(t, out) {
		var id uint32
		switch inst.Op {
		case spirv.OpTypePointer:
			id = inst.Words[1]
		case spirv.OpVariable, spirv.OpLoad:
			id = inst.Words[2]
		default:
			continue
		}
		if id < in.Bound() {
			continue
		}
		require.False(t, seen[id], "id %d defined twice", id)
		seen[id] = true
	}
	require.GreaterOrEqual(t, out.Bound(), in.Bound())
	require.Len(t, seen, int(out.Bound()-in.Bound()))
}

func decode(t *testing.T, blob spirv.Blob) []spirv.RawInstruction {
	t.Helper()
	insts, err := spirv.Instructions(blob)
	require.NoError(t, err)
	return insts
}

func filter(insts []spirv.RawInstruction, op spirv.OpCode) []spirv.RawInstruction {
	var out []spirv.RawInstruction
	for _, inst := range insts {
		if inst.Op == op {
			out = append(out, inst)
		}
	}
	return out
}

func indexOf(insts []spirv.RawInstruction, match func(spirv.RawInstruction) bool) int {
	for i, inst := range insts {
		if match(inst) {
			return i
		}
	}
	return -1
}

func lastIndexOf(insts []spirv.RawInstruction, match func(spirv.RawInstruction) bool) int {
	for i := len(insts) - 1; i >= 0; i-- {
		if match(insts[i]) {
			return i
		}
	}
	return -1
}

// decorations returns the OpDecorate instructions targeting id, as
// (decoration, value...) operand slices.
func decorations(insts []spirv.RawInstruction, id uint32) [][]uint32 {
	var out [][]uint32
	for _, inst := range filter(insts, spirv.OpDecorate) {
		if inst.Words[1] == id {
			out = append(out, inst.Words[2:])
		}
	}
	return out
}

func decorationValue(insts []spirv.RawInstruction, id uint32, decoration spirv.Decoration) (uint32, bool) {
	for _, d := range decorations(insts, id) {
		if spirv.Decoration(d[0]) == decoration && len(d) > 1 {
			return d[1], true
		}
	}
	return 0, false
}

func variable(insts []spirv.RawInstruction, id uint32) (spirv.RawInstruction, int) {
	i := indexOf(insts, func(inst spirv.RawInstruction) bool {
		return inst.Op == spirv.OpVariable && inst.Words[2] == id
	})
	if i < 0 {
		return spirv.RawInstruction{}, -1
	}
	return insts[i], i
}

func entryPointInterface(inst spirv.RawInstruction) []uint32 {
	start := 3 + spirv.StringWordCount(inst.Words[3:])
	return inst.Words[start:]
}

func privateTwin(insts []spirv.RawInstruction, pointee uint32) (uint32, bool) {
	for _, inst := range filter(insts, spirv.OpTypePointer) {
		if spirv.StorageClass(inst.Words[2]) == spirv.StorageClassPrivate && inst.Words[3] == pointee {
			return inst.Words[1], true
		}
	}
	return 0, false
}

func capabilities(insts []spirv.RawInstruction) []spirv.Capability {
	var out []spirv.Capability
	for _, inst := range filter(insts, spirv.OpCapability) {
		out = append(out, spirv.Capability(inst.Words[1]))
	}
	return out
}
