package spirv

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Blob is a SPIR-V module as a sequence of 32-bit words.
type Blob []uint32

// Errors reported while decoding blobs.
var (
	ErrUnaligned   = errors.New("spirv: byte length is not a multiple of 4")
	ErrShortHeader = errors.New("spirv: module shorter than its 5-word header")
	ErrBadMagic    = errors.New("spirv: invalid magic number")
)

// BlobFromBytes decodes a little-endian SPIR-V binary.
func BlobFromBytes(data []byte) (Blob, error) {
	if len(data)%4 != 0 {
		return nil, ErrUnaligned
	}
	blob := make(Blob, len(data)/4)
	for i := range blob {
		blob[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return blob, nil
}

// Bytes encodes the blob as a little-endian SPIR-V binary.
func (b Blob) Bytes() []byte {
	data := make([]byte, len(b)*4)
	for i, word := range b {
		binary.LittleEndian.PutUint32(data[i*4:], word)
	}
	return data
}

// Header is the decoded physical header of a module.
type Header struct {
	Magic     uint32
	Version   Version
	Generator uint32
	Bound     uint32
	Schema    uint32
}

// Header decodes the first five words of the blob.
func (b Blob) Header() (Header, error) {
	if len(b) < HeaderIndexInstructions {
		return Header{}, ErrShortHeader
	}
	h := Header{
		Magic:     b[HeaderIndexMagic],
		Version:   VersionFromWord(b[HeaderIndexVersion]),
		Generator: b[HeaderIndexGenerator],
		Bound:     b[HeaderIndexBound],
		Schema:    b[HeaderIndexSchema],
	}
	if h.Magic != MagicNumber {
		return h, fmt.Errorf("%w: 0x%08X", ErrBadMagic, h.Magic)
	}
	return h, nil
}

// Bound returns the id bound stored in the header, or 0 for a truncated blob.
func (b Blob) Bound() uint32 {
	if len(b) <= HeaderIndexBound {
		return 0
	}
	return b[HeaderIndexBound]
}

// Instruction header layout (SPIR-V 1.0 Table 2: Instruction Physical Layout).
const (
	opMask     = 0x0000FFFF
	lengthMask = 0xFFFF0000

	// MaxInstructionLength is the largest word count an instruction can declare.
	MaxInstructionLength = 0xFFFF
)

// InstructionLength returns the word count packed in an instruction's first word.
func InstructionLength(word uint32) uint32 {
	return word >> 16
}

// InstructionOp returns the opcode packed in an instruction's first word.
func InstructionOp(word uint32) OpCode {
	return OpCode(word & opMask)
}

// MakeInstructionHeader packs an opcode and a word count.
func MakeInstructionHeader(op OpCode, length int) uint32 {
	if length > MaxInstructionLength {
		panic(fmt.Sprintf("spirv: instruction length %d overflows 16 bits", length))
	}
	return uint32(length)<<16 | uint32(op)
}

// SetInstructionLength rewrites the word count of the instruction starting at words[0].
func SetInstructionLength(words []uint32, length int) {
	if length > MaxInstructionLength {
		panic(fmt.Sprintf("spirv: instruction length %d overflows 16 bits", length))
	}
	words[0] = words[0]&^lengthMask | uint32(length)<<16
}

// SetInstructionOp rewrites the opcode of the instruction starting at words[0].
func SetInstructionOp(words []uint32, op OpCode) {
	words[0] = words[0]&^opMask | uint32(op)
}

// Literal strings are stored as UTF-8 octets packed 4 per word, the first
// octet in the lowest-order byte, terminated by a NUL and zero padded.
// Decoding shifts words rather than reinterpreting memory so it does not
// depend on host byte order.

// StringWordCount returns the number of words used by the literal string at
// the start of words, including the word holding the terminator. It returns
// len(words) when no terminator is found.
func StringWordCount(words []uint32) int {
	for i, word := range words {
		for shift := 0; shift < 32; shift += 8 {
			if byte(word>>shift) == 0 {
				return i + 1
			}
		}
	}
	return len(words)
}

// DecodeString decodes the literal string at the start of words and returns
// it along with the number of words it occupies.
func DecodeString(words []uint32) (string, int) {
	buf := make([]byte, 0, len(words)*4)
	for i, word := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(word >> shift)
			if c == 0 {
				return string(buf), i + 1
			}
			buf = append(buf, c)
		}
	}
	return string(buf), len(words)
}

// HasStringPrefix reports whether the literal string at the start of words
// begins with prefix. It does not allocate.
func HasStringPrefix(words []uint32, prefix string) bool {
	for i := 0; i < len(prefix); i++ {
		w := i / 4
		if w >= len(words) {
			return false
		}
		c := byte(words[w] >> (uint(i%4) * 8))
		if c != prefix[i] {
			return false
		}
	}
	return true
}

// EncodeString encodes s as a NUL-terminated, zero-padded literal string.
func EncodeString(s string) []uint32 {
	words := make([]uint32, len(s)/4+1)
	for i := 0; i < len(s); i++ {
		words[i/4] |= uint32(s[i]) << (uint(i%4) * 8)
	}
	return words
}
