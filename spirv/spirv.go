package spirv

// Version represents a SPIR-V version.
type Version struct {
	Major uint8
	Minor uint8
}

// Common SPIR-V versions
var (
	Version1_0 = Version{1, 0}
	Version1_3 = Version{1, 3}
	Version1_4 = Version{1, 4}
	Version1_5 = Version{1, 5}
	Version1_6 = Version{1, 6}
)

// Word returns the version encoded as the second header word.
func (v Version) Word() uint32 {
	return (uint32(v.Major) << 16) | (uint32(v.Minor) << 8)
}

// VersionFromWord decodes the second header word.
func VersionFromWord(word uint32) Version {
	return Version{Major: uint8(word >> 16), Minor: uint8(word >> 8)}
}

// SPIR-V magic number and constants
const (
	MagicNumber = 0x07230203
	GeneratorID = 0x00000000 // Unregistered generator
)

// Header word indices (SPIR-V 1.0 Table 1: First Words of Physical Layout).
const (
	HeaderIndexMagic        = 0
	HeaderIndexVersion      = 1
	HeaderIndexGenerator    = 2
	HeaderIndexBound        = 3
	HeaderIndexSchema       = 4
	HeaderIndexInstructions = 5
)

// OpCode represents a SPIR-V opcode.
type OpCode uint16

// Opcodes
const (
	OpNop                    OpCode = 0
	OpUndef                  OpCode = 1
	OpSourceContinued        OpCode = 2
	OpSource                 OpCode = 3
	OpSourceExtension        OpCode = 4
	OpName                   OpCode = 5
	OpMemberName             OpCode = 6
	OpString                 OpCode = 7
	OpLine                   OpCode = 8
	OpExtension              OpCode = 10
	OpExtInstImport          OpCode = 11
	OpExtInst                OpCode = 12
	OpMemoryModel            OpCode = 14
	OpEntryPoint             OpCode = 15
	OpExecutionMode          OpCode = 16
	OpCapability             OpCode = 17
	OpTypeVoid               OpCode = 19
	OpTypeBool               OpCode = 20
	OpTypeInt                OpCode = 21
	OpTypeFloat              OpCode = 22
	OpTypeVector             OpCode = 23
	OpTypeMatrix             OpCode = 24
	OpTypeImage              OpCode = 25
	OpTypeSampler            OpCode = 26
	OpTypeSampledImage       OpCode = 27
	OpTypeArray              OpCode = 28
	OpTypeRuntimeArray       OpCode = 29
	OpTypeStruct             OpCode = 30
	OpTypeOpaque             OpCode = 31
	OpTypePointer            OpCode = 32
	OpTypeFunction           OpCode = 33
	OpConstantTrue           OpCode = 41
	OpConstantFalse          OpCode = 42
	OpConstant               OpCode = 43
	OpConstantComposite      OpCode = 44
	OpConstantSampler        OpCode = 45
	OpConstantNull           OpCode = 46
	OpSpecConstantTrue       OpCode = 48
	OpSpecConstantFalse      OpCode = 49
	OpSpecConstant           OpCode = 50
	OpSpecConstantComposite  OpCode = 51
	OpSpecConstantOp         OpCode = 52
	OpFunction               OpCode = 54
	OpFunctionParameter      OpCode = 55
	OpFunctionEnd            OpCode = 56
	OpFunctionCall           OpCode = 57
	OpVariable               OpCode = 59
	OpImageTexelPointer      OpCode = 60
	OpLoad                   OpCode = 61
	OpStore                  OpCode = 62
	OpCopyMemory             OpCode = 63
	OpAccessChain            OpCode = 65
	OpInBoundsAccessChain    OpCode = 66
	OpPtrAccessChain         OpCode = 67
	OpArrayLength            OpCode = 68
	OpInBoundsPtrAccessChain OpCode = 70
	OpDecorate               OpCode = 71
	OpMemberDecorate         OpCode = 72
	OpDecorationGroup        OpCode = 73
	OpGroupDecorate          OpCode = 74
	OpVectorShuffle          OpCode = 79
	OpCompositeConstruct     OpCode = 80
	OpCompositeExtract       OpCode = 81
	OpCompositeInsert        OpCode = 82
	OpCopyObject             OpCode = 83
	OpSampledImage           OpCode = 86
	OpImageSampleImplicitLod OpCode = 87
	OpConvertFToS            OpCode = 110
	OpConvertSToF            OpCode = 111
	OpFConvert               OpCode = 115
	OpBitcast                OpCode = 124
	OpFNegate                OpCode = 127
	OpIAdd                   OpCode = 128
	OpFAdd                   OpCode = 129
	OpISub                   OpCode = 130
	OpFSub                   OpCode = 131
	OpIMul                   OpCode = 132
	OpFMul                   OpCode = 133
	OpFDiv                   OpCode = 136
	OpVectorTimesScalar      OpCode = 142
	OpMatrixTimesVector      OpCode = 145
	OpDot                    OpCode = 148
	OpSelect                 OpCode = 169
	OpIEqual                 OpCode = 170
	OpFOrdLessThan           OpCode = 184
	OpPhi                    OpCode = 245
	OpLoopMerge              OpCode = 246
	OpSelectionMerge         OpCode = 247
	OpLabel                  OpCode = 248
	OpBranch                 OpCode = 249
	OpBranchConditional      OpCode = 250
	OpSwitch                 OpCode = 251
	OpKill                   OpCode = 252
	OpReturn                 OpCode = 253
	OpReturnValue            OpCode = 254
	OpUnreachable            OpCode = 255
	OpNoLine                 OpCode = 317
	OpModuleProcessed        OpCode = 330
)

// Decoration represents a SPIR-V decoration.
type Decoration uint32

// Decorations
const (
	DecorationRelaxedPrecision Decoration = 0
	DecorationSpecID           Decoration = 1
	DecorationBlock            Decoration = 2
	DecorationBufferBlock      Decoration = 3
	DecorationRowMajor         Decoration = 4
	DecorationColMajor         Decoration = 5
	DecorationArrayStride      Decoration = 6
	DecorationMatrixStride     Decoration = 7
	DecorationBuiltIn          Decoration = 11
	DecorationNoPerspective    Decoration = 13
	DecorationFlat             Decoration = 14
	DecorationPatch            Decoration = 15
	DecorationCentroid         Decoration = 16
	DecorationSample           Decoration = 17
	DecorationInvariant        Decoration = 18
	DecorationNonWritable      Decoration = 24
	DecorationNonReadable      Decoration = 25
	DecorationLocation         Decoration = 30
	DecorationComponent        Decoration = 31
	DecorationIndex            Decoration = 32
	DecorationBinding          Decoration = 33
	DecorationDescriptorSet    Decoration = 34
	DecorationOffset           Decoration = 35
	DecorationXfbBuffer        Decoration = 36
	DecorationXfbStride        Decoration = 37
)

// StorageClass represents a SPIR-V storage class.
type StorageClass uint32

// Storage classes
const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
	StorageClassWorkgroup       StorageClass = 4
	StorageClassCrossWorkgroup  StorageClass = 5
	StorageClassPrivate         StorageClass = 6
	StorageClassFunction        StorageClass = 7
	StorageClassGeneric         StorageClass = 8
	StorageClassPushConstant    StorageClass = 9
	StorageClassAtomicCounter   StorageClass = 10
	StorageClassImage           StorageClass = 11
	StorageClassStorageBuffer   StorageClass = 12
)

// Capability represents a SPIR-V capability.
type Capability uint32

// Capabilities
const (
	CapabilityMatrix            Capability = 0
	CapabilityShader            Capability = 1
	CapabilityGeometry          Capability = 2
	CapabilityTessellation      Capability = 3
	CapabilityFloat64           Capability = 10
	CapabilityInt64             Capability = 11
	CapabilityInt16             Capability = 22
	CapabilityClipDistance      Capability = 32
	CapabilityCullDistance      Capability = 33
	CapabilitySampleRateShading Capability = 35
	CapabilityInt8              Capability = 39
	CapabilityInputAttachment   Capability = 40
	CapabilityImageQuery        Capability = 50
	CapabilityTransformFeedback Capability = 53
	CapabilityGeometryStreams   Capability = 54
	CapabilityMultiViewport     Capability = 57
)

// ExecutionModel represents a shader stage as declared by OpEntryPoint.
type ExecutionModel uint32

// Execution models
const (
	ExecutionModelVertex                 ExecutionModel = 0
	ExecutionModelTessellationControl    ExecutionModel = 1
	ExecutionModelTessellationEvaluation ExecutionModel = 2
	ExecutionModelGeometry               ExecutionModel = 3
	ExecutionModelFragment               ExecutionModel = 4
	ExecutionModelGLCompute              ExecutionModel = 5
	ExecutionModelKernel                 ExecutionModel = 6
)

// ExecutionMode represents a SPIR-V execution mode.
type ExecutionMode uint32

// Execution modes
const (
	ExecutionModeInvocations        ExecutionMode = 0
	ExecutionModeOriginUpperLeft    ExecutionMode = 7
	ExecutionModeOriginLowerLeft    ExecutionMode = 8
	ExecutionModeEarlyFragmentTests ExecutionMode = 9
	ExecutionModePointMode          ExecutionMode = 10
	ExecutionModeXfb                ExecutionMode = 11
	ExecutionModeDepthReplacing     ExecutionMode = 12
	ExecutionModeLocalSize          ExecutionMode = 17
	ExecutionModeTriangles          ExecutionMode = 22
	ExecutionModeOutputVertices     ExecutionMode = 26
)

// AddressingModel represents a SPIR-V addressing model.
type AddressingModel uint32

// Addressing models
const (
	AddressingModelLogical    AddressingModel = 0
	AddressingModelPhysical32 AddressingModel = 1
	AddressingModelPhysical64 AddressingModel = 2
)

// MemoryModel represents a SPIR-V memory model.
type MemoryModel uint32

// Memory models
const (
	MemoryModelSimple  MemoryModel = 0
	MemoryModelGLSL450 MemoryModel = 1
	MemoryModelOpenCL  MemoryModel = 2
	MemoryModelVulkan  MemoryModel = 3
)

// FunctionControl is the function control mask of OpFunction.
type FunctionControl uint32

// Function control masks
const (
	FunctionControlNone       FunctionControl = 0
	FunctionControlInline     FunctionControl = 1
	FunctionControlDontInline FunctionControl = 2
)

// BuiltIn represents a SPIR-V builtin variable kind.
type BuiltIn uint32

// Builtins
const (
	BuiltInPosition    BuiltIn = 0
	BuiltInPointSize   BuiltIn = 1
	BuiltInFragCoord   BuiltIn = 15
	BuiltInFragDepth   BuiltIn = 22
	BuiltInVertexIndex BuiltIn = 42
)

// SourceLanguage represents the language named by OpSource.
type SourceLanguage uint32

// Source languages
const (
	SourceLanguageUnknown SourceLanguage = 0
	SourceLanguageESSL    SourceLanguage = 1
	SourceLanguageGLSL    SourceLanguage = 2
)
