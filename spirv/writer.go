package spirv

import (
	"math"
)

// Instruction represents a SPIR-V instruction.
type Instruction struct {
	Opcode OpCode
	Words  []uint32 // result type ID, result ID, operands
}

// InstructionBuilder builds SPIR-V instructions.
type InstructionBuilder struct {
	words []uint32
}

// NewInstructionBuilder creates a new instruction builder.
func NewInstructionBuilder() *InstructionBuilder {
	return &InstructionBuilder{
		words: make([]uint32, 0, 8),
	}
}

// AddWord adds a word to the instruction.
func (b *InstructionBuilder) AddWord(word uint32) {
	b.words = append(b.words, word)
}

// AddString adds a null-terminated UTF-8 string.
func (b *InstructionBuilder) AddString(s string) {
	b.words = append(b.words, EncodeString(s)...)
}

// Build builds the instruction with the given opcode.
func (b *InstructionBuilder) Build(opcode OpCode) Instruction {
	return Instruction{
		Opcode: opcode,
		Words:  b.words,
	}
}

// Encode encodes the instruction to words.
func (i Instruction) Encode() []uint32 {
	wordCount := len(i.Words) + 1 // +1 for opcode word
	result := make([]uint32, 0, wordCount)
	result = append(result, MakeInstructionHeader(i.Opcode, wordCount))
	result = append(result, i.Words...)
	return result
}

// ModuleBuilder builds complete SPIR-V modules.
type ModuleBuilder struct {
	// Header
	version   Version
	generator uint32
	bound     uint32 // max ID + 1
	schema    uint32

	// Sections (ordered per SPIR-V spec)
	capabilities   []Instruction
	memoryModel    *Instruction
	entryPoints    []Instruction
	executionModes []Instruction
	debugSources   []Instruction // OpSource, OpString
	debugNames     []Instruction // OpName, OpMemberName
	debugModule    []Instruction // OpModuleProcessed
	annotations    []Instruction // OpDecorate, OpMemberDecorate
	types          []Instruction // OpType*, OpConstant*, global OpVariable
	functions      []Instruction // OpFunction...OpFunctionEnd

	// ID allocation
	nextID uint32
}

// NewModuleBuilder creates a new SPIR-V module builder.
func NewModuleBuilder(version Version) *ModuleBuilder {
	return &ModuleBuilder{
		version:   version,
		generator: GeneratorID,
		schema:    0,
		nextID:    1,
	}
}

// AllocID allocates a new SPIR-V ID.
func (b *ModuleBuilder) AllocID() uint32 {
	id := b.nextID
	b.nextID++
	return id
}

// AddCapability adds a capability.
func (b *ModuleBuilder) AddCapability(capability Capability) {
	builder := NewInstructionBuilder()
	builder.AddWord(uint32(capability))
	b.capabilities = append(b.capabilities, builder.Build(OpCapability))
}

// SetMemoryModel sets the memory model.
func (b *ModuleBuilder) SetMemoryModel(addressing AddressingModel, memory MemoryModel) {
	builder := NewInstructionBuilder()
	builder.AddWord(uint32(addressing))
	builder.AddWord(uint32(memory))
	inst := builder.Build(OpMemoryModel)
	b.memoryModel = &inst
}

// AddEntryPoint adds an entry point.
func (b *ModuleBuilder) AddEntryPoint(execModel ExecutionModel, funcID uint32, name string, interfaces []uint32) {
	builder := NewInstructionBuilder()
	builder.AddWord(uint32(execModel))
	builder.AddWord(funcID)
	builder.AddString(name)
	for _, iface := range interfaces {
		builder.AddWord(iface)
	}
	b.entryPoints = append(b.entryPoints, builder.Build(OpEntryPoint))
}

// AddExecutionMode adds an execution mode.
func (b *ModuleBuilder) AddExecutionMode(entryPoint uint32, mode ExecutionMode, params ...uint32) {
	builder := NewInstructionBuilder()
	builder.AddWord(entryPoint)
	builder.AddWord(uint32(mode))
	for _, param := range params {
		builder.AddWord(param)
	}
	b.executionModes = append(b.executionModes, builder.Build(OpExecutionMode))
}

// AddSource adds OpSource.
func (b *ModuleBuilder) AddSource(language SourceLanguage, version uint32) {
	builder := NewInstructionBuilder()
	builder.AddWord(uint32(language))
	builder.AddWord(version)
	b.debugSources = append(b.debugSources, builder.Build(OpSource))
}

// AddSourceExtension adds OpSourceExtension.
func (b *ModuleBuilder) AddSourceExtension(extension string) {
	builder := NewInstructionBuilder()
	builder.AddString(extension)
	b.debugSources = append(b.debugSources, builder.Build(OpSourceExtension))
}

// AddString adds a debug string.
func (b *ModuleBuilder) AddString(text string) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	builder.AddString(text)
	b.debugSources = append(b.debugSources, builder.Build(OpString))
	return id
}

// AddName adds a debug name.
func (b *ModuleBuilder) AddName(id uint32, name string) {
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	builder.AddString(name)
	b.debugNames = append(b.debugNames, builder.Build(OpName))
}

// AddMemberName adds a debug member name.
func (b *ModuleBuilder) AddMemberName(structID, member uint32, name string) {
	builder := NewInstructionBuilder()
	builder.AddWord(structID)
	builder.AddWord(member)
	builder.AddString(name)
	b.debugNames = append(b.debugNames, builder.Build(OpMemberName))
}

// AddModuleProcessed adds OpModuleProcessed.
func (b *ModuleBuilder) AddModuleProcessed(process string) {
	builder := NewInstructionBuilder()
	builder.AddString(process)
	b.debugModule = append(b.debugModule, builder.Build(OpModuleProcessed))
}

// AddDecorate adds a decoration.
func (b *ModuleBuilder) AddDecorate(id uint32, decoration Decoration, params ...uint32) {
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	builder.AddWord(uint32(decoration))
	for _, param := range params {
		builder.AddWord(param)
	}
	b.annotations = append(b.annotations, builder.Build(OpDecorate))
}

// AddMemberDecorate adds a member decoration.
func (b *ModuleBuilder) AddMemberDecorate(structID, member uint32, decoration Decoration, params ...uint32) {
	builder := NewInstructionBuilder()
	builder.AddWord(structID)
	builder.AddWord(member)
	builder.AddWord(uint32(decoration))
	for _, param := range params {
		builder.AddWord(param)
	}
	b.annotations = append(b.annotations, builder.Build(OpMemberDecorate))
}

// AddTypeVoid adds OpTypeVoid.
func (b *ModuleBuilder) AddTypeVoid() uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	b.types = append(b.types, builder.Build(OpTypeVoid))
	return id
}

// AddTypeBool adds OpTypeBool.
func (b *ModuleBuilder) AddTypeBool() uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	b.types = append(b.types, builder.Build(OpTypeBool))
	return id
}

// AddTypeFloat adds OpTypeFloat.
func (b *ModuleBuilder) AddTypeFloat(width uint32) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	builder.AddWord(width)
	b.types = append(b.types, builder.Build(OpTypeFloat))
	return id
}

// AddTypeInt adds OpTypeInt.
func (b *ModuleBuilder) AddTypeInt(width uint32, signed bool) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	builder.AddWord(width)
	if signed {
		builder.AddWord(1)
	} else {
		builder.AddWord(0)
	}
	b.types = append(b.types, builder.Build(OpTypeInt))
	return id
}

// AddTypeVector adds OpTypeVector.
func (b *ModuleBuilder) AddTypeVector(componentType uint32, count uint32) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	builder.AddWord(componentType)
	builder.AddWord(count)
	b.types = append(b.types, builder.Build(OpTypeVector))
	return id
}

// AddTypeArray adds OpTypeArray.
func (b *ModuleBuilder) AddTypeArray(elementType uint32, length uint32) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	builder.AddWord(elementType)
	builder.AddWord(length) // length is a constant ID
	b.types = append(b.types, builder.Build(OpTypeArray))
	return id
}

// AddTypePointer adds OpTypePointer.
func (b *ModuleBuilder) AddTypePointer(storageClass StorageClass, baseType uint32) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	builder.AddWord(uint32(storageClass))
	builder.AddWord(baseType)
	b.types = append(b.types, builder.Build(OpTypePointer))
	return id
}

// AddTypeFunction adds OpTypeFunction.
func (b *ModuleBuilder) AddTypeFunction(returnType uint32, paramTypes ...uint32) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	builder.AddWord(returnType)
	for _, paramType := range paramTypes {
		builder.AddWord(paramType)
	}
	b.types = append(b.types, builder.Build(OpTypeFunction))
	return id
}

// AddTypeStruct adds OpTypeStruct.
func (b *ModuleBuilder) AddTypeStruct(memberTypes ...uint32) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	for _, memberType := range memberTypes {
		builder.AddWord(memberType)
	}
	b.types = append(b.types, builder.Build(OpTypeStruct))
	return id
}

// AddConstant adds OpConstant.
func (b *ModuleBuilder) AddConstant(typeID uint32, values ...uint32) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(typeID)
	builder.AddWord(id)
	for _, value := range values {
		builder.AddWord(value)
	}
	b.types = append(b.types, builder.Build(OpConstant))
	return id
}

// AddConstantFloat32 adds a 32-bit float constant.
func (b *ModuleBuilder) AddConstantFloat32(typeID uint32, value float32) uint32 {
	bits := math.Float32bits(value)
	return b.AddConstant(typeID, bits)
}

// AddConstantBool adds OpConstantTrue or OpConstantFalse.
func (b *ModuleBuilder) AddConstantBool(typeID uint32, value bool) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(typeID)
	builder.AddWord(id)
	op := OpConstantFalse
	if value {
		op = OpConstantTrue
	}
	b.types = append(b.types, builder.Build(op))
	return id
}

// AddConstantComposite adds OpConstantComposite.
func (b *ModuleBuilder) AddConstantComposite(typeID uint32, constituents ...uint32) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(typeID)
	builder.AddWord(id)
	for _, constituent := range constituents {
		builder.AddWord(constituent)
	}
	b.types = append(b.types, builder.Build(OpConstantComposite))
	return id
}

// AddVariable adds a module-scope OpVariable.
func (b *ModuleBuilder) AddVariable(pointerType uint32, storageClass StorageClass) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(pointerType)
	builder.AddWord(id)
	builder.AddWord(uint32(storageClass))
	b.types = append(b.types, builder.Build(OpVariable))
	return id
}

// AddFunctionVariable adds an OpVariable with Function storage to the
// function currently being built. SPIR-V requires these to be the first
// instructions of a function's first block.
func (b *ModuleBuilder) AddFunctionVariable(pointerType uint32) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(pointerType)
	builder.AddWord(id)
	builder.AddWord(uint32(StorageClassFunction))
	b.functions = append(b.functions, builder.Build(OpVariable))
	return id
}

// AddFunction adds a function definition.
func (b *ModuleBuilder) AddFunction(funcType uint32, returnType uint32, control FunctionControl) uint32 {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(returnType)
	builder.AddWord(id)
	builder.AddWord(uint32(control))
	builder.AddWord(funcType)
	b.functions = append(b.functions, builder.Build(OpFunction))
	return id
}

// AddLabel adds a label.
func (b *ModuleBuilder) AddLabel() uint32 {
	id := b.AllocID()
	b.AddLabelID(id)
	return id
}

// AddLabelID adds a label with an id allocated earlier, for blocks that are
// branched to before they are defined.
func (b *ModuleBuilder) AddLabelID(id uint32) {
	builder := NewInstructionBuilder()
	builder.AddWord(id)
	b.functions = append(b.functions, builder.Build(OpLabel))
}

// AddBranchConditional adds OpBranchConditional.
func (b *ModuleBuilder) AddBranchConditional(condition uint32, trueLabel uint32, falseLabel uint32) {
	builder := NewInstructionBuilder()
	builder.AddWord(condition)
	builder.AddWord(trueLabel)
	builder.AddWord(falseLabel)
	b.functions = append(b.functions, builder.Build(OpBranchConditional))
}

// AddLine adds OpLine inside the current function.
func (b *ModuleBuilder) AddLine(file uint32, line uint32, column uint32) {
	builder := NewInstructionBuilder()
	builder.AddWord(file)
	builder.AddWord(line)
	builder.AddWord(column)
	b.functions = append(b.functions, builder.Build(OpLine))
}

// AddReturn adds OpReturn.
func (b *ModuleBuilder) AddReturn() {
	builder := NewInstructionBuilder()
	b.functions = append(b.functions, builder.Build(OpReturn))
}

// AddFunctionEnd adds OpFunctionEnd.
func (b *ModuleBuilder) AddFunctionEnd() {
	builder := NewInstructionBuilder()
	b.functions = append(b.functions, builder.Build(OpFunctionEnd))
}

// AddFunctionCall adds OpFunctionCall.
func (b *ModuleBuilder) AddFunctionCall(resultType uint32, function uint32, args ...uint32) uint32 {
	resultID := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(resultType)
	builder.AddWord(resultID)
	builder.AddWord(function)
	for _, arg := range args {
		builder.AddWord(arg)
	}
	b.functions = append(b.functions, builder.Build(OpFunctionCall))
	return resultID
}

// AddLoad adds OpLoad.
func (b *ModuleBuilder) AddLoad(resultType uint32, pointer uint32) uint32 {
	resultID := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(resultType)
	builder.AddWord(resultID)
	builder.AddWord(pointer)
	b.functions = append(b.functions, builder.Build(OpLoad))
	return resultID
}

// AddStore adds OpStore.
func (b *ModuleBuilder) AddStore(pointer uint32, value uint32) {
	builder := NewInstructionBuilder()
	builder.AddWord(pointer)
	builder.AddWord(value)
	b.functions = append(b.functions, builder.Build(OpStore))
}

// AddAccessChain adds OpAccessChain.
func (b *ModuleBuilder) AddAccessChain(resultType uint32, base uint32, indices ...uint32) uint32 {
	return b.addAccessChain(OpAccessChain, resultType, base, indices)
}

// AddInBoundsAccessChain adds OpInBoundsAccessChain.
func (b *ModuleBuilder) AddInBoundsAccessChain(resultType uint32, base uint32, indices ...uint32) uint32 {
	return b.addAccessChain(OpInBoundsAccessChain, resultType, base, indices)
}

func (b *ModuleBuilder) addAccessChain(op OpCode, resultType uint32, base uint32, indices []uint32) uint32 {
	resultID := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddWord(resultType)
	builder.AddWord(resultID)
	builder.AddWord(base)
	for _, index := range indices {
		builder.AddWord(index)
	}
	b.functions = append(b.functions, builder.Build(op))
	return resultID
}

// Build generates the final SPIR-V module.
func (b *ModuleBuilder) Build() Blob {
	// Update bound to max ID
	b.bound = b.nextID

	sections := [][]Instruction{
		b.capabilities,
		nil, // memory model
		b.entryPoints,
		b.executionModes,
		b.debugSources,
		b.debugNames,
		b.debugModule,
		b.annotations,
		b.types,
		b.functions,
	}
	if b.memoryModel != nil {
		sections[1] = []Instruction{*b.memoryModel}
	}

	// Calculate total size
	totalWords := HeaderIndexInstructions
	for _, section := range sections {
		totalWords += countWords(section)
	}

	blob := make(Blob, 0, totalWords)
	blob = append(blob, MagicNumber, b.version.Word(), b.generator, b.bound, b.schema)
	for _, section := range sections {
		for _, inst := range section {
			blob = append(blob, inst.Encode()...)
		}
	}
	return blob
}

// countWords counts total words in instructions.
func countWords(instructions []Instruction) int {
	count := 0
	for _, inst := range instructions {
		count += len(inst.Words) + 1
	}
	return count
}
