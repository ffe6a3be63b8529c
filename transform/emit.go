// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import "github.com/gogpu/spvxform/spirv"

// copyInstruction appends words to the output and returns the offset of the
// first appended word, so the copy can be patched afterwards.
func (t *Transformer) copyInstruction(words []uint32) int {
	offset := len(t.out)
	t.out = append(t.out, words...)
	return offset
}

// writeInstruction appends a new instruction built from op and operands.
func (t *Transformer) writeInstruction(op spirv.OpCode, operands ...uint32) int {
	builder := spirv.NewInstructionBuilder()
	for _, operand := range operands {
		builder.AddWord(operand)
	}
	return t.writeBuilt(builder.Build(op))
}

// writeBuilt appends an encoded instruction and returns its offset.
func (t *Transformer) writeBuilt(inst spirv.Instruction) int {
	return t.copyInstruction(inst.Encode())
}

// newID allocates an id by bumping the bound in the output header.
func (t *Transformer) newID() uint32 {
	id := t.out[spirv.HeaderIndexBound]
	assertf(id != ^uint32(0), "id bound overflow")
	t.out[spirv.HeaderIndexBound]++
	return id
}

// writeOpLoad loads pointer id into tempVarID. typeID is the pointer type of
// id; the load produces its pointee type.
func (t *Transformer) writeOpLoad(id, typeID, tempVarID uint32) {
	assertf(typeID != 0, "load of %d without a pointer type", id)
	resultType := t.typePointerTransformedID[typeID].typeID
	assertf(resultType != 0, "pointer type %d has no recorded pointee", typeID)

	t.writeInstruction(spirv.OpLoad, resultType, tempVarID, id)
}

// writeOpStore stores tempVarID into destID.
func (t *Transformer) writeOpStore(tempVarID, destID uint32) {
	t.writeInstruction(spirv.OpStore, destID, tempVarID)
}

// writeOpVariable declares id as a variable of pointer type typeID.
func (t *Transformer) writeOpVariable(id, typeID uint32, storageClass spirv.StorageClass) {
	t.writeInstruction(spirv.OpVariable, typeID, id, uint32(storageClass))
}

// writeDecorate appends OpDecorate id decoration values...
func (t *Transformer) writeDecorate(id uint32, decoration spirv.Decoration, values ...uint32) {
	builder := spirv.NewInstructionBuilder()
	builder.AddWord(id)
	builder.AddWord(uint32(decoration))
	for _, v := range values {
		builder.AddWord(v)
	}
	t.writeBuilt(builder.Build(spirv.OpDecorate))
}
