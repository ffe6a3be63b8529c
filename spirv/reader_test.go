package spirv

import (
	"strings"
	"testing"
)

// buildPassthroughVertex builds a vertex shader writing a named output.
func buildPassthroughVertex() (Blob, uint32) {
	b := NewModuleBuilder(Version1_0)
	b.AddCapability(CapabilityShader)
	b.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)

	voidType := b.AddTypeVoid()
	floatType := b.AddTypeFloat(32)
	vec4Type := b.AddTypeVector(floatType, 4)
	outPtr := b.AddTypePointer(StorageClassOutput, vec4Type)
	fnType := b.AddTypeFunction(voidType)
	out := b.AddVariable(outPtr, StorageClassOutput)
	one := b.AddConstantFloat32(floatType, 1)
	value := b.AddConstantComposite(vec4Type, one, one, one, one)

	b.AddName(out, "vOut")
	b.AddDecorate(out, DecorationLocation, 3)

	main := b.AddFunction(fnType, voidType, FunctionControlNone)
	b.AddName(main, "main")
	b.AddLabel()
	b.AddStore(out, value)
	b.AddReturn()
	b.AddFunctionEnd()

	b.AddEntryPoint(ExecutionModelVertex, main, "main", []uint32{out})
	return b.Build(), out
}

func TestReader(t *testing.T) {
	blob, _ := buildPassthroughVertex()

	r := NewReader(blob)
	offset := HeaderIndexInstructions
	count := 0
	for r.Next() {
		inst := r.Instruction()
		if inst.Offset != offset {
			t.Errorf("instruction %d: offset %d, want %d", count, inst.Offset, offset)
		}
		if int(InstructionLength(inst.Words[0])) != len(inst.Words) {
			t.Errorf("instruction %d: declared %d words, got %d", count, InstructionLength(inst.Words[0]), len(inst.Words))
		}
		if len(inst.Operands()) != len(inst.Words)-1 {
			t.Errorf("instruction %d: operands length mismatch", count)
		}
		offset += len(inst.Words)
		count++
	}
	if err := r.Err(); err != nil {
		t.Fatalf("Reader: %v", err)
	}
	if offset != len(blob) {
		t.Errorf("Reader stopped at word %d of %d", offset, len(blob))
	}
	if count == 0 {
		t.Fatal("Reader returned no instructions")
	}
}

func TestReader_Malformed(t *testing.T) {
	tests := []struct {
		name string
		tail []uint32
		want string
	}{
		{"zero word count", []uint32{MakeInstructionHeader(OpCapability, 2), 1, uint32(OpNop)}, "zero word count"},
		{"overrun", []uint32{MakeInstructionHeader(OpName, 6), 1, 0}, "runs past end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := append(Blob{MagicNumber, Version1_0.Word(), 0, 2, 0}, tt.tail...)
			_, err := Instructions(blob)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Instructions: got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestReader_EmptyModule(t *testing.T) {
	insts, err := Instructions(Blob{MagicNumber, Version1_0.Word(), 0, 1, 0})
	if err != nil || len(insts) != 0 {
		t.Fatalf("header-only module: got %d instructions, err %v", len(insts), err)
	}
}
