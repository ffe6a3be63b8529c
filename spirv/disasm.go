package spirv

import (
	"fmt"
	"io"
	"strings"
)

// DisassembleOptions configures Disassemble.
type DisassembleOptions struct {
	// FriendlyNames prints ids named by OpName as %name instead of %_N.
	FriendlyNames bool
}

// Disassemble writes a .spvasm style listing of blob to w.
func Disassemble(w io.Writer, blob Blob) error {
	return DisassembleWithOptions(w, blob, DisassembleOptions{})
}

// DisassembleString returns the listing of blob. Framing errors are
// reported inline as a trailing comment.
func DisassembleString(blob Blob, opts DisassembleOptions) string {
	var sb strings.Builder
	if err := DisassembleWithOptions(&sb, blob, opts); err != nil {
		fmt.Fprintf(&sb, "; ERROR: %v\n", err)
	}
	return sb.String()
}

// DisassembleWithOptions writes a listing of blob to w.
func DisassembleWithOptions(w io.Writer, blob Blob, opts DisassembleOptions) error {
	header, err := blob.Header()
	if err != nil {
		return err
	}

	d := &disassembler{w: w}
	if opts.FriendlyNames {
		d.names = collectNames(blob)
	}

	d.printf("; SPIR-V\n")
	d.printf("; Version: %d.%d\n", header.Version.Major, header.Version.Minor)
	d.printf("; Generator: 0x%08X\n", header.Generator)
	d.printf("; Bound: %d\n", header.Bound)
	d.printf("; Schema: %d\n", header.Schema)
	d.printf("\n")

	r := NewReader(blob)
	for r.Next() {
		inst := r.Instruction()
		d.instruction(inst.Op, inst.Operands())
		if d.err != nil {
			return d.err
		}
	}
	return r.Err()
}

type disassembler struct {
	w     io.Writer
	names map[uint32]string
	err   error
}

func collectNames(blob Blob) map[uint32]string {
	names := make(map[uint32]string)
	r := NewReader(blob)
	for r.Next() {
		inst := r.Instruction()
		if inst.Op == OpFunction {
			break
		}
		if inst.Op != OpName || len(inst.Words) < 3 {
			continue
		}
		name, _ := DecodeString(inst.Words[2:])
		if name != "" {
			names[inst.Words[1]] = name
		}
	}
	return names
}

func (d *disassembler) printf(format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, format, args...)
}

func (d *disassembler) id(n uint32) string {
	if name, ok := d.names[n]; ok {
		return "%" + name
	}
	return fmt.Sprintf("%%_%d", n)
}

func (d *disassembler) ids(ops []uint32) string {
	var sb strings.Builder
	for _, op := range ops {
		sb.WriteByte(' ')
		sb.WriteString(d.id(op))
	}
	return sb.String()
}

func literals(ops []uint32) string {
	var sb strings.Builder
	for _, op := range ops {
		fmt.Fprintf(&sb, " %d", op)
	}
	return sb.String()
}

//nolint:gocyclo,cyclop,funlen // switch cases for SPIR-V opcodes
func (d *disassembler) instruction(op OpCode, ops []uint32) {
	name := op.String()

	// Short instructions fall back to the generic form.
	minOperands := map[OpCode]int{
		OpCapability: 1, OpExtInstImport: 1, OpMemoryModel: 2, OpEntryPoint: 3,
		OpExecutionMode: 2, OpName: 2, OpMemberName: 3, OpDecorate: 2,
		OpMemberDecorate: 3, OpTypeInt: 3, OpTypeFloat: 2, OpTypeVector: 3,
		OpTypeMatrix: 3, OpTypeArray: 3, OpTypePointer: 3, OpTypeFunction: 2,
		OpConstant: 3, OpFunction: 4, OpFunctionParameter: 2, OpVariable: 3,
		OpLoad: 3, OpStore: 2, OpAccessChain: 3, OpInBoundsAccessChain: 3,
		OpPtrAccessChain: 3, OpInBoundsPtrAccessChain: 3, OpSource: 2,
		OpString: 2, OpLine: 3,
	}
	if n, ok := minOperands[op]; ok && len(ops) < n {
		d.generic(name, op, ops)
		return
	}

	switch op {
	case OpCapability:
		d.printf("               %s %s\n", name, Capability(ops[0]))

	case OpExtInstImport:
		str, _ := DecodeString(ops[1:])
		d.printf("         %s = %s \"%s\"\n", d.id(ops[0]), name, str)

	case OpExtension, OpSourceExtension, OpModuleProcessed:
		str, _ := DecodeString(ops)
		d.printf("               %s \"%s\"\n", name, str)

	case OpMemoryModel:
		addrModels := map[uint32]string{0: "Logical", 1: "Physical32", 2: "Physical64", 5348: "PhysicalStorageBuffer64"}
		memModels := map[uint32]string{0: "Simple", 1: "GLSL450", 2: "OpenCL", 3: "Vulkan"}
		d.printf("               %s %s %s\n", name, lookup(addrModels, ops[0]), lookup(memModels, ops[1]))

	case OpEntryPoint:
		str, strWords := DecodeString(ops[2:])
		d.printf("               %s %s %s \"%s\"%s\n", name, ExecutionModel(ops[0]), d.id(ops[1]), str, d.ids(ops[2+strWords:]))

	case OpExecutionMode:
		d.printf("               %s %s %s%s\n", name, d.id(ops[0]), ExecutionMode(ops[1]), literals(ops[2:]))

	case OpSource:
		d.printf("               %s %s %d\n", name, lookup(sourceLanguageNames, ops[0]), ops[1])

	case OpString:
		str, _ := DecodeString(ops[1:])
		d.printf("         %s = %s \"%s\"\n", d.id(ops[0]), name, str)

	case OpLine:
		d.printf("               %s %s %d %d\n", name, d.id(ops[0]), ops[1], ops[2])

	case OpName:
		str, _ := DecodeString(ops[1:])
		d.printf("               %s %s \"%s\"\n", name, d.id(ops[0]), str)

	case OpMemberName:
		str, _ := DecodeString(ops[2:])
		d.printf("               %s %s %d \"%s\"\n", name, d.id(ops[0]), ops[1], str)

	case OpDecorate:
		dec := Decoration(ops[1])
		if dec == DecorationBuiltIn && len(ops) > 2 {
			d.printf("               %s %s %s %s\n", name, d.id(ops[0]), dec, lookup(builtinNames, ops[2]))
		} else {
			d.printf("               %s %s %s%s\n", name, d.id(ops[0]), dec, literals(ops[2:]))
		}

	case OpMemberDecorate:
		d.printf("               %s %s %d %s%s\n", name, d.id(ops[0]), ops[1], Decoration(ops[2]), literals(ops[3:]))

	case OpTypeVoid, OpTypeBool, OpTypeSampler, OpLabel:
		d.printf("         %s = %s\n", d.id(ops[0]), name)

	case OpTypeInt:
		d.printf("         %s = %s %d %d\n", d.id(ops[0]), name, ops[1], ops[2])

	case OpTypeFloat:
		d.printf("         %s = %s %d\n", d.id(ops[0]), name, ops[1])

	case OpTypeVector, OpTypeMatrix:
		d.printf("         %s = %s %s %d\n", d.id(ops[0]), name, d.id(ops[1]), ops[2])

	case OpTypeArray:
		d.printf("         %s = %s %s %s\n", d.id(ops[0]), name, d.id(ops[1]), d.id(ops[2]))

	case OpTypeStruct, OpTypeFunction, OpTypeSampledImage, OpTypeRuntimeArray:
		d.printf("         %s = %s%s\n", d.id(ops[0]), name, d.ids(ops[1:]))

	case OpTypePointer:
		d.printf("         %s = %s %s %s\n", d.id(ops[0]), name, StorageClass(ops[1]), d.id(ops[2]))

	case OpConstant:
		d.printf("         %s = %s %s%s\n", d.id(ops[1]), name, d.id(ops[0]), literals(ops[2:]))

	case OpFunction:
		d.printf("         %s = %s %s %d %s\n", d.id(ops[1]), name, d.id(ops[0]), ops[2], d.id(ops[3]))

	case OpFunctionParameter:
		d.printf("         %s = %s %s\n", d.id(ops[1]), name, d.id(ops[0]))

	case OpVariable:
		d.printf("         %s = %s %s %s%s\n", d.id(ops[1]), name, d.id(ops[0]), StorageClass(ops[2]), d.ids(ops[3:]))

	case OpStore:
		d.printf("               %s%s\n", name, d.ids(ops))

	case OpCompositeExtract:
		d.printf("         %s = %s %s %s%s\n", d.id(ops[1]), name, d.id(ops[0]), d.id(ops[2]), literals(ops[3:]))

	case OpVectorShuffle:
		d.printf("         %s = %s %s %s %s%s\n", d.id(ops[1]), name, d.id(ops[0]), d.id(ops[2]), d.id(ops[3]), literals(ops[4:]))

	case OpFunctionEnd, OpReturn, OpNoLine, OpKill, OpUnreachable:
		d.printf("               %s\n", name)

	case OpBranch, OpReturnValue:
		d.printf("               %s %s\n", name, d.id(ops[0]))

	default:
		d.generic(name, op, ops)
	}
}

// hasResult reports whether op is laid out as <result type> <result id> operands...
func hasResult(op OpCode) bool {
	switch op {
	case OpLoad, OpAccessChain, OpInBoundsAccessChain, OpPtrAccessChain, OpInBoundsPtrAccessChain,
		OpCompositeConstruct, OpCompositeInsert, OpCopyObject, OpSampledImage, OpImageSampleImplicitLod,
		OpFunctionCall, OpExtInst, OpConstantComposite, OpConstantTrue, OpConstantFalse, OpConstantNull,
		OpUndef, OpPhi, OpSelect:
		return true
	}
	// Conversions, arithmetic and comparisons.
	return op >= OpConvertFToS && op <= OpFOrdLessThan
}

func (d *disassembler) generic(name string, op OpCode, ops []uint32) {
	switch {
	case len(ops) >= 2 && hasResult(op):
		d.printf("         %s = %s %s%s\n", d.id(ops[1]), name, d.id(ops[0]), d.ids(ops[2:]))
	case len(ops) >= 1:
		d.printf("               %s%s\n", name, d.ids(ops))
	default:
		d.printf("               %s\n", name)
	}
}
