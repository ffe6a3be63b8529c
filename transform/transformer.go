// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"log/slog"

	"github.com/gogpu/spvxform/spirv"
	"github.com/gogpu/spvxform/varinfo"
)

// Options configures a Transformer.
type Options struct {
	// ShaderType is the stage of the module being transformed.
	ShaderType varinfo.ShaderType

	// RemoveEarlyFragmentTestsOptimization drops OpExecutionMode
	// EarlyFragmentTests.
	RemoveEarlyFragmentTestsOptimization bool

	// RemoveDebugInfo drops OpSource*, OpName, OpMemberName, OpString,
	// OpLine, OpNoLine and OpModuleProcessed.
	RemoveDebugInfo bool

	// Validate checks the output and logs a warning with its disassembly
	// when the check fails. The result is returned either way.
	Validate bool

	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

type section uint8

const (
	sectionDeclarations section = iota
	sectionFunctions
)

// transformedIDs records, for an OpTypePointer id, its Private twin (for
// Input and Output pointers) and its pointee type.
type transformedIDs struct {
	privateID uint32
	typeID    uint32
}

// Transformer rewrites one SPIR-V module. It is single use.
type Transformer struct {
	in      spirv.Blob
	infoMap varinfo.Map
	opts    Options

	out  spirv.Blob
	used bool

	// builtinInfo stands in for every gl_* variable. It is active in all
	// stages and carries no assignments.
	builtinInfo varinfo.Info

	hasTransformFeedbackOutput       bool
	transformFeedbackCapabilityAdded bool

	// Tables indexed by id, sized bound+1. namesByID holds the word offset
	// of the OpName literal in the input, 0 when unnamed.
	namesByID                []int
	variableInfoByID         []*varinfo.Info
	typePointerTransformedID []transformedIDs
	fixedVaryingID           []uint32
	fixedVaryingTypeID       []uint32

	section                 section
	insertFunctionVariables bool
	entryPointID            uint32
	functionID              uint32
}

// NewTransformer creates a transformer for in. infoMap holds the variable
// info of opts.ShaderType and is only read.
func NewTransformer(in spirv.Blob, infoMap varinfo.Map, opts Options) *Transformer {
	t := &Transformer{
		in:      in,
		infoMap: infoMap,
		opts:    opts,
	}
	t.builtinInfo = *varinfo.NewInfo()
	t.builtinInfo.ActiveStages = varinfo.AllStages()
	return t
}

// Transform runs the transformation and returns the new module.
func (t *Transformer) Transform() (out spirv.Blob, err error) {
	if t.used {
		return nil, ErrTransformerReused
	}
	t.used = true

	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(invariantError)
			if !ok {
				panic(r)
			}
			out, err = nil, &Error{Kind: ErrInvalidSpirv, Message: ie.msg}
		}
	}()

	if _, err := t.in.Header(); err != nil {
		return nil, &Error{Kind: ErrInvalidSpirv, Message: err.Error()}
	}

	// The header is needed by newID, which resolve already uses.
	t.out = make(spirv.Blob, spirv.HeaderIndexInstructions, len(t.in)+len(t.in)/8)
	copy(t.out, t.in[:spirv.HeaderIndexInstructions])

	t.resolve()

	r := spirv.NewReader(t.in)
	for r.Next() {
		t.transformInstruction(r.Instruction())
	}
	if err := r.Err(); err != nil {
		return nil, &Error{Kind: ErrInvalidSpirv, Message: err.Error()}
	}

	if t.opts.Validate {
		t.validate()
	}
	return t.out, nil
}

func (t *Transformer) transformInstruction(inst spirv.RawInstruction) {
	if inst.Op == spirv.OpFunction {
		requireWords(inst, 3)
		t.functionID = inst.Words[2]
		t.section = sectionFunctions

		// Compute shaders have no varyings to convert.
		t.insertFunctionVariables = t.functionID == t.entryPointID && t.opts.ShaderType != varinfo.Compute
	}

	transformed := false

	if t.section == sectionFunctions {
		// The preamble goes after the function's parameters, label and
		// variables, right before its first real instruction.
		if t.insertFunctionVariables && !isFunctionPrologue(inst.Op) {
			t.writeInputPreamble()
			t.insertFunctionVariables = false
		}

		switch inst.Op {
		case spirv.OpAccessChain, spirv.OpInBoundsAccessChain,
			spirv.OpPtrAccessChain, spirv.OpInBoundsPtrAccessChain:
			transformed = t.transformAccessChain(inst)
		case spirv.OpReturn:
			transformed = t.transformReturn()
		}
	} else {
		switch inst.Op {
		case spirv.OpSourceContinued, spirv.OpSource, spirv.OpSourceExtension,
			spirv.OpName, spirv.OpMemberName, spirv.OpString,
			spirv.OpLine, spirv.OpNoLine, spirv.OpModuleProcessed:
			transformed = t.opts.RemoveDebugInfo
		case spirv.OpCapability:
			transformed = t.transformCapability(inst)
		case spirv.OpEntryPoint:
			transformed = t.transformEntryPoint(inst)
		case spirv.OpDecorate:
			transformed = t.transformDecorate(inst)
		case spirv.OpTypePointer:
			transformed = t.transformTypePointer(inst)
		case spirv.OpVariable:
			transformed = t.transformVariable(inst)
		case spirv.OpExecutionMode:
			transformed = t.transformExecutionMode(inst)
		}
	}

	if !transformed {
		t.copyInstruction(inst.Words)
	}
}

func isFunctionPrologue(op spirv.OpCode) bool {
	switch op {
	case spirv.OpFunction, spirv.OpFunctionParameter, spirv.OpLabel, spirv.OpVariable:
		return true
	}
	return false
}

// The transform* handlers return true when they have written the
// instruction (or deliberately dropped it). Otherwise the caller copies it.

func (t *Transformer) transformCapability(inst spirv.RawInstruction) bool {
	if !t.hasTransformFeedbackOutput {
		return false
	}

	requireWords(inst, 2)
	capability := spirv.Capability(inst.Words[1])
	assertf(capability != spirv.CapabilityTransformFeedback, "TransformFeedback capability already declared")

	// Vulkan shaders declare one or more of these base capabilities. The
	// new capability follows the first of them.
	if t.transformFeedbackCapabilityAdded ||
		(capability != spirv.CapabilityShader && capability != spirv.CapabilityGeometry &&
			capability != spirv.CapabilityTessellation) {
		return false
	}

	t.copyInstruction(inst.Words)
	t.writeInstruction(spirv.OpCapability, uint32(spirv.CapabilityTransformFeedback))
	t.transformFeedbackCapabilityAdded = true
	return true
}

const (
	entryPointIDIndex   = 2
	entryPointNameIndex = 3
)

// transformEntryPoint removes inactive variables from the interface list
// and substitutes replacement ids for relaxed precision varyings.
func (t *Transformer) transformEntryPoint(inst spirv.RawInstruction) bool {
	requireWords(inst, entryPointNameIndex+1)
	assertf(t.entryPointID == 0, "more than one OpEntryPoint")

	words := inst.Words
	t.entryPointID = words[entryPointIDIndex]

	interfaceStart := entryPointNameIndex + spirv.StringWordCount(words[entryPointNameIndex:])
	offset := t.copyInstruction(words[:interfaceStart])

	for _, id := range words[interfaceStart:] {
		info := t.variableInfoByID[t.checkID(id)]
		assertf(info != nil, "entry point interface id %d is not an interface variable", id)

		if !t.isActive(info) {
			continue
		}
		if fixed := t.fixedVaryingID[id]; fixed != 0 {
			id = fixed
		}
		t.out = append(t.out, id)
	}
	spirv.SetInstructionLength(t.out[offset:], len(t.out)-offset)

	if t.hasTransformFeedbackOutput {
		t.writeInstruction(spirv.OpExecutionMode, t.entryPointID, uint32(spirv.ExecutionModeXfb))
	}
	return true
}

const (
	decorateIDIndex         = 1
	decorateDecorationIndex = 2
	decorateValueIndex      = 3
)

func (t *Transformer) transformDecorate(inst spirv.RawInstruction) bool {
	requireWords(inst, decorateDecorationIndex+1)
	words := inst.Words
	id := t.checkID(words[decorateIDIndex])
	decoration := spirv.Decoration(words[decorateDecorationIndex])

	info := t.variableInfoByID[id]
	if info == nil {
		return false
	}

	// Inactive variables lose all their decorations.
	if !t.isActive(info) {
		return true
	}

	newValue := varinfo.Invalid
	switch decoration {
	case spirv.DecorationLocation:
		newValue = info.Location
	case spirv.DecorationBinding:
		newValue = info.Binding
	case spirv.DecorationDescriptorSet:
		newValue = info.DescriptorSet
	case spirv.DecorationFlat:
		if info.UseRelaxedPrecision {
			// The interface variable is the replacement.
			offset := t.copyInstruction(words)
			t.out[offset+decorateIDIndex] = t.fixedVarying(id)
			return true
		}
	}

	if newValue == varinfo.Invalid {
		return false
	}

	requireWords(inst, decorateValueIndex+1)
	offset := t.copyInstruction(words)
	t.out[offset+decorateValueIndex] = newValue

	// Further decorations are added right after Location.
	if decoration != spirv.DecorationLocation {
		return true
	}

	target := id
	if info.UseRelaxedPrecision {
		target = t.fixedVarying(id)
		t.out[offset+decorateIDIndex] = target
		t.writeDecorate(target, spirv.DecorationRelaxedPrecision)
	}

	// Component goes to the interface variable, which is the replacement for
	// relaxed precision varyings. The replaced id becomes a Private global
	// and carries no Component, unlike Vulkan backends that decorate both.
	if info.HasComponent() {
		offset := t.copyInstruction(words)
		t.out[offset+decorateIDIndex] = target
		t.out[offset+decorateDecorationIndex] = uint32(spirv.DecorationComponent)
		t.out[offset+decorateValueIndex] = info.Component
	}

	if t.opts.ShaderType != varinfo.Fragment && info.HasXfb() {
		xfb := [...]struct {
			decoration spirv.Decoration
			value      uint32
		}{
			{spirv.DecorationXfbBuffer, info.XfbBuffer},
			{spirv.DecorationXfbStride, info.XfbStride},
			{spirv.DecorationOffset, info.XfbOffset},
		}
		for _, d := range xfb {
			offset := t.copyInstruction(words)
			t.out[offset+decorateIDIndex] = target
			t.out[offset+decorateDecorationIndex] = uint32(d.decoration)
			t.out[offset+decorateValueIndex] = d.value
		}
	}
	return true
}

// transformTypePointer emits a Private twin before every Input and Output
// pointer type. The original is kept as well.
func (t *Transformer) transformTypePointer(inst spirv.RawInstruction) bool {
	requireWords(inst, typePointerTypeIndex+1)
	words := inst.Words
	id := t.checkID(words[typePointerIDIndex])
	storageClass := spirv.StorageClass(words[typePointerStorageClassIndex])
	typeID := t.checkID(words[typePointerTypeIndex])

	t.typePointerTransformedID[id].typeID = typeID

	// Builtin blocks such as gl_PerVertex cannot be made Private.
	if t.nameHasPrefix(typeID, builtinPrefix) {
		return false
	}
	if storageClass != spirv.StorageClassOutput && storageClass != spirv.StorageClassInput {
		return false
	}

	offset := t.copyInstruction(words)
	privateID := t.newID()
	t.out[offset+typePointerIDIndex] = privateID
	t.out[offset+typePointerStorageClassIndex] = uint32(spirv.StorageClassPrivate)
	t.typePointerTransformedID[id].privateID = privateID

	return false
}

func (t *Transformer) transformVariable(inst spirv.RawInstruction) bool {
	requireWords(inst, variableStorageClassIndex+1)
	words := inst.Words
	typeID := t.checkID(words[variableTypeIndex])
	id := t.checkID(words[variableIDIndex])
	storageClass := spirv.StorageClass(words[variableStorageClassIndex])

	info := t.variableInfoByID[id]
	if info == nil {
		return false
	}

	if t.isActive(info) {
		if !info.UseRelaxedPrecision ||
			(storageClass != spirv.StorageClassOutput && storageClass != spirv.StorageClassInput) {
			return false
		}

		// The replacement takes the interface role...
		offset := t.copyInstruction(words)
		t.out[offset+variableIDIndex] = t.fixedVarying(id)

		// ...and the original id becomes a Private global.
		t.writeOpVariable(id, t.privateType(typeID), spirv.StorageClassPrivate)
		return true
	}

	// Inactive inputs are removed by the compiler.
	assertf(storageClass == spirv.StorageClassOutput, "inactive variable %d has storage class %s", id, storageClass)

	offset := t.copyInstruction(words)
	t.out[offset+variableTypeIndex] = t.privateType(typeID)
	t.out[offset+variableStorageClassIndex] = uint32(spirv.StorageClassPrivate)
	return true
}

func (t *Transformer) transformExecutionMode(inst spirv.RawInstruction) bool {
	requireWords(inst, 3)
	mode := spirv.ExecutionMode(inst.Words[2])
	return mode == spirv.ExecutionModeEarlyFragmentTests && t.opts.RemoveEarlyFragmentTestsOptimization
}

const (
	accessChainTypeIndex = 1
	accessChainBaseIndex = 3
)

// transformAccessChain gives chains into Private variables a Private result type.
func (t *Transformer) transformAccessChain(inst spirv.RawInstruction) bool {
	requireWords(inst, accessChainBaseIndex+1)
	words := inst.Words
	typeID := t.checkID(words[accessChainTypeIndex])
	baseID := t.checkID(words[accessChainBaseIndex])

	info := t.variableInfoByID[baseID]
	if info == nil {
		return false
	}
	if t.isActive(info) && !info.UseRelaxedPrecision {
		return false
	}

	offset := t.copyInstruction(words)
	t.out[offset+accessChainTypeIndex] = t.privateType(typeID)
	return true
}

// transformReturn copies relaxed precision outputs from the original
// variable to its replacement before the entry point returns. The OpReturn
// itself is copied by the caller.
func (t *Transformer) transformReturn() bool {
	if t.functionID != t.entryPointID {
		return false
	}

	for id, info := range t.variableInfoByID {
		if info == nil || !info.UseRelaxedPrecision || !t.isActive(info) || !info.VaryingIsOutput {
			continue
		}
		id := uint32(id)
		tempVar := t.newID()
		t.writeOpLoad(id, t.fixedVaryingTypeID[id], tempVar)
		t.writeOpStore(tempVar, t.fixedVarying(id))
	}
	return false
}

// writeInputPreamble copies relaxed precision inputs from their replacement
// into the original variable at the start of the entry point.
func (t *Transformer) writeInputPreamble() {
	for id, info := range t.variableInfoByID {
		if info == nil || !info.UseRelaxedPrecision || !t.isActive(info) || info.VaryingIsOutput {
			continue
		}
		id := uint32(id)
		tempVar := t.newID()
		t.writeOpLoad(t.fixedVarying(id), t.fixedVaryingTypeID[id], tempVar)
		t.writeOpStore(tempVar, id)
	}
}

func (t *Transformer) fixedVarying(id uint32) uint32 {
	fixed := t.fixedVaryingID[id]
	assertf(fixed != 0, "relaxed precision variable %d has no replacement", id)
	return fixed
}

func (t *Transformer) privateType(typeID uint32) uint32 {
	private := t.typePointerTransformedID[typeID].privateID
	assertf(private != 0, "pointer type %d has no Private twin", typeID)
	return private
}
