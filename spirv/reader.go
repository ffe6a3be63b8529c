package spirv

import "fmt"

// RawInstruction is a view of one instruction inside a Blob.
type RawInstruction struct {
	// Offset is the word index of the instruction's first word.
	Offset int

	// Op is the instruction's opcode.
	Op OpCode

	// Words holds the whole instruction, including the opcode word. It
	// aliases the underlying blob.
	Words []uint32
}

// Operands returns the words following the opcode word.
func (i RawInstruction) Operands() []uint32 {
	return i.Words[1:]
}

// Reader walks the instructions of a module after its header.
type Reader struct {
	blob   Blob
	offset int
	cur    RawInstruction
	err    error
}

// NewReader creates a reader positioned before the first instruction.
func NewReader(blob Blob) *Reader {
	return &Reader{blob: blob, offset: HeaderIndexInstructions}
}

// Next advances to the next instruction. It returns false at the end of the
// module or when the instruction framing is malformed; Err distinguishes the two.
func (r *Reader) Next() bool {
	if r.err != nil || r.offset >= len(r.blob) {
		return false
	}
	word := r.blob[r.offset]
	length := int(InstructionLength(word))
	if length == 0 {
		r.err = fmt.Errorf("spirv: zero word count at word %d", r.offset)
		return false
	}
	if r.offset+length > len(r.blob) {
		r.err = fmt.Errorf("spirv: instruction at word %d (word count %d) runs past end of module (%d words)",
			r.offset, length, len(r.blob))
		return false
	}
	r.cur = RawInstruction{
		Offset: r.offset,
		Op:     InstructionOp(word),
		Words:  r.blob[r.offset : r.offset+length],
	}
	r.offset += length
	return true
}

// Instruction returns the current instruction.
func (r *Reader) Instruction() RawInstruction {
	return r.cur
}

// Err returns the framing error that stopped iteration, if any.
func (r *Reader) Err() error {
	return r.err
}

// Instructions decodes every instruction of the module.
func Instructions(blob Blob) ([]RawInstruction, error) {
	var out []RawInstruction
	r := NewReader(blob)
	for r.Next() {
		out = append(out, r.Instruction())
	}
	return out, r.Err()
}
