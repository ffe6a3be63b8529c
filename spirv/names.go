package spirv

import "strconv"

var opcodeNames = map[OpCode]string{
	0: "OpNop", 1: "OpUndef", 2: "OpSourceContinued", 3: "OpSource",
	4: "OpSourceExtension", 5: "OpName", 6: "OpMemberName", 7: "OpString",
	8: "OpLine", 10: "OpExtension", 11: "OpExtInstImport", 12: "OpExtInst",
	14: "OpMemoryModel", 15: "OpEntryPoint", 16: "OpExecutionMode",
	17: "OpCapability", 19: "OpTypeVoid", 20: "OpTypeBool",
	21: "OpTypeInt", 22: "OpTypeFloat", 23: "OpTypeVector",
	24: "OpTypeMatrix", 25: "OpTypeImage", 26: "OpTypeSampler",
	27: "OpTypeSampledImage", 28: "OpTypeArray", 29: "OpTypeRuntimeArray",
	30: "OpTypeStruct", 31: "OpTypeOpaque", 32: "OpTypePointer",
	33: "OpTypeFunction", 41: "OpConstantTrue", 42: "OpConstantFalse",
	43: "OpConstant", 44: "OpConstantComposite", 45: "OpConstantSampler",
	46: "OpConstantNull", 48: "OpSpecConstantTrue", 49: "OpSpecConstantFalse",
	50: "OpSpecConstant", 51: "OpSpecConstantComposite", 52: "OpSpecConstantOp",
	54: "OpFunction", 55: "OpFunctionParameter", 56: "OpFunctionEnd",
	57: "OpFunctionCall", 59: "OpVariable", 60: "OpImageTexelPointer",
	61: "OpLoad", 62: "OpStore", 63: "OpCopyMemory", 64: "OpCopyMemorySized",
	65: "OpAccessChain", 66: "OpInBoundsAccessChain", 67: "OpPtrAccessChain",
	68: "OpArrayLength", 69: "OpGenericPtrMemSemantics",
	70: "OpInBoundsPtrAccessChain", 71: "OpDecorate", 72: "OpMemberDecorate",
	73: "OpDecorationGroup", 74: "OpGroupDecorate", 75: "OpGroupMemberDecorate",
	77: "OpVectorExtractDynamic", 78: "OpVectorInsertDynamic",
	79: "OpVectorShuffle", 80: "OpCompositeConstruct", 81: "OpCompositeExtract",
	82: "OpCompositeInsert", 83: "OpCopyObject", 84: "OpTranspose",
	86: "OpSampledImage", 87: "OpImageSampleImplicitLod",
	88: "OpImageSampleExplicitLod", 89: "OpImageSampleDrefImplicitLod",
	90: "OpImageSampleDrefExplicitLod", 95: "OpImageFetch",
	96: "OpImageGather", 97: "OpImageDrefGather", 98: "OpImageRead",
	99: "OpImageWrite", 100: "OpImage", 103: "OpImageQuerySizeLod",
	104: "OpImageQuerySize", 105: "OpImageQueryLod", 106: "OpImageQueryLevels",
	107: "OpImageQuerySamples",
	109: "OpConvertFToU", 110: "OpConvertFToS", 111: "OpConvertSToF",
	112: "OpConvertUToF", 113: "OpUConvert", 114: "OpSConvert",
	115: "OpFConvert", 116: "OpQuantizeToF16", 124: "OpBitcast",
	126: "OpSNegate", 127: "OpFNegate", 128: "OpIAdd", 129: "OpFAdd",
	130: "OpISub", 131: "OpFSub", 132: "OpIMul", 133: "OpFMul",
	134: "OpUDiv", 135: "OpSDiv", 136: "OpFDiv", 137: "OpUMod",
	138: "OpSRem", 139: "OpSMod", 140: "OpFRem", 141: "OpFMod",
	142: "OpVectorTimesScalar", 143: "OpMatrixTimesScalar",
	144: "OpVectorTimesMatrix", 145: "OpMatrixTimesVector",
	146: "OpMatrixTimesMatrix", 147: "OpOuterProduct", 148: "OpDot",
	149: "OpIAddCarry", 150: "OpISubBorrow", 151: "OpUMulExtended",
	152: "OpSMulExtended", 154: "OpAny", 155: "OpAll",
	156: "OpIsNan", 157: "OpIsInf", 158: "OpIsFinite", 159: "OpIsNormal",
	160: "OpSignBitSet", 161: "OpLessOrGreater", 162: "OpOrdered",
	163: "OpUnordered", 164: "OpLogicalEqual", 165: "OpLogicalNotEqual",
	166: "OpLogicalOr", 167: "OpLogicalAnd", 168: "OpLogicalNot",
	169: "OpSelect", 170: "OpIEqual", 171: "OpINotEqual",
	172: "OpUGreaterThan", 173: "OpSGreaterThan", 174: "OpUGreaterThanEqual",
	175: "OpSGreaterThanEqual", 176: "OpULessThan", 177: "OpSLessThan",
	178: "OpULessThanEqual", 179: "OpSLessThanEqual",
	180: "OpFOrdEqual", 181: "OpFUnordEqual", 182: "OpFOrdNotEqual",
	183: "OpFUnordNotEqual", 184: "OpFOrdLessThan", 185: "OpFUnordLessThan",
	186: "OpFOrdGreaterThan", 187: "OpFUnordGreaterThan",
	188: "OpFOrdLessThanEqual", 189: "OpFUnordLessThanEqual",
	190: "OpFOrdGreaterThanEqual", 191: "OpFUnordGreaterThanEqual",
	194: "OpShiftRightLogical", 195: "OpShiftRightArithmetic",
	196: "OpShiftLeftLogical", 197: "OpBitwiseOr", 198: "OpBitwiseXor",
	199: "OpBitwiseAnd", 200: "OpNot", 201: "OpBitFieldInsert",
	202: "OpBitFieldSExtract", 203: "OpBitFieldUExtract",
	204: "OpBitReverse", 205: "OpBitCount", 207: "OpDPdx", 208: "OpDPdy",
	209: "OpFwidth",
	245: "OpPhi", 246: "OpLoopMerge", 247: "OpSelectionMerge",
	248: "OpLabel", 249: "OpBranch", 250: "OpBranchConditional",
	251: "OpSwitch", 252: "OpKill", 253: "OpReturn", 254: "OpReturnValue",
	255: "OpUnreachable", 256: "OpLifetimeStart", 257: "OpLifetimeStop",
	317: "OpNoLine", 330: "OpModuleProcessed",
}

var capabilityNames = map[uint32]string{
	0: "Matrix", 1: "Shader", 2: "Geometry", 3: "Tessellation",
	4: "Addresses", 5: "Linkage", 6: "Kernel", 7: "Vector16",
	8: "Float16Buffer", 9: "Float16", 10: "Float64", 11: "Int64",
	12: "Int64Atomics", 13: "ImageBasic", 14: "ImageReadWrite", 15: "ImageMipmap",
	17: "Pipes", 18: "Groups", 19: "DeviceEnqueue", 20: "LiteralSampler",
	21: "AtomicStorage", 22: "Int16", 23: "TessellationPointSize",
	24: "GeometryPointSize", 25: "ImageGatherExtended", 27: "StorageImageMultisample",
	28: "UniformBufferArrayDynamicIndexing", 29: "SampledImageArrayDynamicIndexing",
	30: "StorageBufferArrayDynamicIndexing", 31: "StorageImageArrayDynamicIndexing",
	32: "ClipDistance", 33: "CullDistance", 34: "ImageCubeArray",
	35: "SampleRateShading", 36: "ImageRect", 37: "SampledRect",
	38: "GenericPointer", 39: "Int8", 40: "InputAttachment",
	41: "SparseResidency", 42: "MinLod", 43: "Sampled1D", 44: "Image1D",
	45: "SampledCubeArray", 46: "SampledBuffer", 47: "ImageBuffer",
	48: "ImageMSArray", 49: "StorageImageExtendedFormats",
	50: "ImageQuery", 51: "DerivativeControl", 52: "InterpolationFunction",
	53: "TransformFeedback", 54: "GeometryStreams", 55: "StorageImageReadWithoutFormat",
	56: "StorageImageWriteWithoutFormat", 57: "MultiViewport",
	61: "GroupNonUniform", 62: "GroupNonUniformVote", 63: "GroupNonUniformArithmetic",
	64: "GroupNonUniformBallot", 65: "GroupNonUniformShuffle",
	66: "GroupNonUniformShuffleRelative", 67: "GroupNonUniformClustered",
	68: "GroupNonUniformQuad", 4423: "SubgroupBallotKHR", 4427: "DrawParameters",
	4433: "StorageBuffer16BitAccess", 4434: "UniformAndStorageBuffer16BitAccess",
	4435: "StoragePushConstant16", 4436: "StorageInputOutput16",
	4437: "DeviceGroup", 4439: "MultiView", 4441: "VariablePointersStorageBuffer",
	4442: "VariablePointers",
}

var storageClassNames = map[uint32]string{
	0: "UniformConstant", 1: "Input", 2: "Uniform", 3: "Output",
	4: "Workgroup", 5: "CrossWorkgroup", 6: "Private", 7: "Function",
	8: "Generic", 9: "PushConstant", 10: "AtomicCounter", 11: "Image",
	12: "StorageBuffer",
}

var decorationNames = map[uint32]string{
	0: "RelaxedPrecision", 1: "SpecId", 2: "Block", 3: "BufferBlock",
	4: "RowMajor", 5: "ColMajor", 6: "ArrayStride", 7: "MatrixStride",
	8: "GLSLShared", 9: "GLSLPacked", 10: "CPacked", 11: "BuiltIn",
	13: "NoPerspective", 14: "Flat", 15: "Patch", 16: "Centroid",
	17: "Sample", 18: "Invariant", 19: "Restrict", 20: "Aliased",
	21: "Volatile", 22: "Constant", 23: "Coherent", 24: "NonWritable",
	25: "NonReadable", 26: "Uniform", 28: "SaturatedConversion",
	29: "Stream", 30: "Location", 31: "Component", 32: "Index",
	33: "Binding", 34: "DescriptorSet", 35: "Offset", 36: "XfbBuffer",
	37: "XfbStride", 38: "FuncParamAttr", 39: "FPRoundingMode",
	40: "FPFastMathMode", 41: "LinkageAttributes", 42: "NoContraction",
	43: "InputAttachmentIndex", 44: "Alignment",
}

var builtinNames = map[uint32]string{
	0: "Position", 1: "PointSize", 3: "ClipDistance", 4: "CullDistance",
	5: "VertexId", 6: "InstanceId", 7: "PrimitiveId", 8: "InvocationId",
	9: "Layer", 10: "ViewportIndex", 11: "TessLevelOuter", 12: "TessLevelInner",
	13: "TessCoord", 14: "PatchVertices", 15: "FragCoord", 16: "PointCoord",
	17: "FrontFacing", 18: "SampleId", 19: "SamplePosition", 20: "SampleMask",
	22: "FragDepth", 23: "HelperInvocation", 24: "NumWorkgroups",
	25: "WorkgroupSize", 26: "WorkgroupId", 27: "LocalInvocationId",
	28: "GlobalInvocationId", 29: "LocalInvocationIndex",
	42: "VertexIndex", 43: "InstanceIndex",
}

var executionModeNames = map[uint32]string{
	0: "Invocations", 1: "SpacingEqual", 2: "SpacingFractionalEven",
	3: "SpacingFractionalOdd", 4: "VertexOrderCw", 5: "VertexOrderCcw",
	6: "PixelCenterInteger", 7: "OriginUpperLeft", 8: "OriginLowerLeft",
	9: "EarlyFragmentTests", 10: "PointMode", 11: "Xfb", 12: "DepthReplacing",
	14: "DepthGreater", 15: "DepthLess", 16: "DepthUnchanged",
	17: "LocalSize", 18: "LocalSizeHint", 19: "InputPoints", 20: "InputLines",
	21: "InputLinesAdjacency", 22: "Triangles", 23: "InputTrianglesAdjacency",
	24: "Quads", 25: "Isolines", 26: "OutputVertices", 27: "OutputPoints",
	28: "OutputLineStrip", 29: "OutputTriangleStrip", 30: "VecTypeHint",
	31: "ContractionOff",
}

var executionModelNames = map[uint32]string{
	0: "Vertex", 1: "TessellationControl", 2: "TessellationEvaluation",
	3: "Geometry", 4: "Fragment", 5: "GLCompute", 6: "Kernel",
}

var sourceLanguageNames = map[uint32]string{
	0: "Unknown", 1: "ESSL", 2: "GLSL", 3: "OpenCL_C", 4: "OpenCL_CPP", 5: "HLSL",
}

func lookup(m map[uint32]string, v uint32) string {
	if s, ok := m[v]; ok {
		return s
	}
	return strconv.FormatUint(uint64(v), 10)
}

// String returns the opcode's name, for example "OpDecorate".
func (op OpCode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return "Op" + strconv.Itoa(int(op))
}

// String returns the decoration's name.
func (d Decoration) String() string { return lookup(decorationNames, uint32(d)) }

// String returns the storage class's name.
func (s StorageClass) String() string { return lookup(storageClassNames, uint32(s)) }

// String returns the capability's name.
func (c Capability) String() string { return lookup(capabilityNames, uint32(c)) }

// String returns the execution mode's name.
func (m ExecutionMode) String() string { return lookup(executionModeNames, uint32(m)) }

// String returns the execution model's name.
func (m ExecutionModel) String() string { return lookup(executionModelNames, uint32(m)) }
