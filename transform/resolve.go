// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"github.com/gogpu/spvxform/spirv"
	"github.com/gogpu/spvxform/varinfo"
)

// Operand positions (SPIR-V 1.0 Section 3.32 Instructions).
const (
	nameIDIndex     = 1
	nameStringIndex = 2

	typeArrayIDIndex      = 1
	typeArrayElementIndex = 2

	typePointerIDIndex           = 1
	typePointerStorageClassIndex = 2
	typePointerTypeIndex         = 3

	variableTypeIndex         = 1
	variableIDIndex           = 2
	variableStorageClassIndex = 3
)

const builtinPrefix = "gl_"

// resolve scans the declarations before the first OpFunction and fills the
// id-indexed tables. Replacement ids for relaxed precision varyings are
// allocated here, so the output header must already be in place.
func (t *Transformer) resolve() {
	size := int(t.in[spirv.HeaderIndexBound]) + 1

	t.namesByID = make([]int, size)
	t.variableInfoByID = make([]*varinfo.Info, size)
	t.typePointerTransformedID = make([]transformedIDs, size)
	t.fixedVaryingID = make([]uint32, size)
	t.fixedVaryingTypeID = make([]uint32, size)

	r := spirv.NewReader(t.in)
	for r.Next() {
		inst := r.Instruction()
		switch inst.Op {
		case spirv.OpName:
			t.visitName(inst)
		case spirv.OpTypeArray:
			t.visitTypeHelper(inst, typeArrayIDIndex, typeArrayElementIndex)
		case spirv.OpTypePointer:
			t.visitTypeHelper(inst, typePointerIDIndex, typePointerTypeIndex)
		case spirv.OpVariable:
			t.visitVariable(inst)
		case spirv.OpFunction:
			// Names, types and global variables all precede the functions.
			return
		}
	}
	assertf(r.Err() == nil, "%v", r.Err())
}

func (t *Transformer) visitName(inst spirv.RawInstruction) {
	requireWords(inst, nameStringIndex+1)
	id := t.checkID(inst.Words[nameIDIndex])

	// Duplicate names are legal; the first one wins.
	if t.namesByID[id] == 0 {
		t.namesByID[id] = inst.Offset + nameStringIndex
	}
}

// visitTypeHelper carries the name of the referenced type over to the new
// type. Interface blocks are matched through the block name, and the
// variable only refers to the block through a pointer (possibly to an array).
func (t *Transformer) visitTypeHelper(inst spirv.RawInstruction, idIndex, typeIDIndex int) {
	requireWords(inst, max(idIndex, typeIDIndex)+1)
	id := t.checkID(inst.Words[idIndex])
	typeID := t.checkID(inst.Words[typeIDIndex])

	if t.namesByID[id] == 0 {
		t.namesByID[id] = t.namesByID[typeID]
	}
}

func (t *Transformer) visitVariable(inst spirv.RawInstruction) {
	requireWords(inst, variableStorageClassIndex+1)
	typeID := t.checkID(inst.Words[variableTypeIndex])
	id := t.checkID(inst.Words[variableIDIndex])
	storageClass := spirv.StorageClass(inst.Words[variableStorageClassIndex])

	isInterfaceBlock := storageClass == spirv.StorageClassUniform || storageClass == spirv.StorageClassStorageBuffer
	isOpaqueUniform := storageClass == spirv.StorageClassUniformConstant
	isInOut := storageClass == spirv.StorageClassInput || storageClass == spirv.StorageClassOutput

	if !isInterfaceBlock && !isOpaqueUniform && !isInOut {
		return
	}

	assertf(t.variableInfoByID[id] == nil, "variable %d declared twice", id)

	// Blocks are looked up by their type name, everything else by the variable name.
	nameID := id
	if isInterfaceBlock {
		nameID = typeID
	}
	assertf(t.namesByID[nameID] != 0, "interface variable %d has no name", id)

	// Builtins are recognized either by the variable name (gl_FragCoord) or
	// by the type name (gl_PerVertex).
	if isInOut && (t.nameHasPrefix(nameID, builtinPrefix) || t.nameHasPrefix(typeID, builtinPrefix)) {
		t.variableInfoByID[id] = &t.builtinInfo
		return
	}

	name := t.name(nameID)
	info, ok := t.infoMap[name]
	assertf(ok && info != nil, "no variable info for interface variable %q (id %d)", name, id)
	err := info.CheckConsistent()
	assertf(err == nil, "variable info for %q: %v", name, err)

	t.variableInfoByID[id] = info

	if info.UseRelaxedPrecision && t.isActive(info) && t.fixedVaryingID[id] == 0 {
		t.fixedVaryingID[id] = t.newID()
		t.fixedVaryingTypeID[id] = typeID
	}

	// Captured outputs require the TransformFeedback capability.
	if t.opts.ShaderType != varinfo.Fragment && info.HasXfb() && t.isActive(info) {
		t.hasTransformFeedbackOutput = true
	}
}

// checkID asserts that id is below the module's bound.
func (t *Transformer) checkID(id uint32) uint32 {
	if int(id) >= len(t.variableInfoByID) {
		assertf(false, "id %d out of bound %d", id, len(t.variableInfoByID)-1)
	}
	return id
}

func (t *Transformer) nameHasPrefix(id uint32, prefix string) bool {
	offset := t.namesByID[id]
	return offset != 0 && spirv.HasStringPrefix(t.in[offset:], prefix)
}

func (t *Transformer) name(id uint32) string {
	offset := t.namesByID[id]
	if offset == 0 {
		return ""
	}
	s, _ := spirv.DecodeString(t.in[offset:])
	return s
}

// Name returns the name resolved for id, following OpTypeArray and
// OpTypePointer back to a named type. It is valid after Transform.
func (t *Transformer) Name(id uint32) (string, bool) {
	if int(id) >= len(t.namesByID) || t.namesByID[id] == 0 {
		return "", false
	}
	return t.name(id), true
}

func (t *Transformer) isActive(info *varinfo.Info) bool {
	return info.ActiveStages.Test(t.opts.ShaderType)
}

func requireWords(inst spirv.RawInstruction, n int) {
	if len(inst.Words) < n {
		assertf(false, "%s at word %d has %d words, need %d", inst.Op, inst.Offset, len(inst.Words), n)
	}
}
