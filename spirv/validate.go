package spirv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ValidationError describes the first structural problem found in a module.
type ValidationError struct {
	// Offset is the word index of the offending instruction, or -1 for
	// header problems.
	Offset int
	Op     OpCode
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Offset < 0 {
		return "spirv: invalid header: " + e.Reason
	}
	return fmt.Sprintf("spirv: word %d (%s): %s", e.Offset, e.Op, e.Reason)
}

// Validate performs a structural check of blob: header magic, instruction
// framing, and that every result id is non-zero and below the bound. It does
// not check semantic rules; use ExternalValidator for that.
func Validate(blob Blob) error {
	header, err := blob.Header()
	if err != nil {
		return &ValidationError{Offset: -1, Reason: err.Error()}
	}
	if header.Bound == 0 {
		return &ValidationError{Offset: -1, Reason: "id bound is zero"}
	}

	r := NewReader(blob)
	for r.Next() {
		inst := r.Instruction()
		idx := resultIDIndex(inst.Op)
		if idx < 0 {
			continue
		}
		if idx >= len(inst.Words) {
			return &ValidationError{Offset: inst.Offset, Op: inst.Op, Reason: "missing result id"}
		}
		id := inst.Words[idx]
		if id == 0 || id >= header.Bound {
			return &ValidationError{
				Offset: inst.Offset,
				Op:     inst.Op,
				Reason: fmt.Sprintf("result id %d outside bound %d", id, header.Bound),
			}
		}
	}
	if err := r.Err(); err != nil {
		return &ValidationError{Offset: r.offset, Reason: err.Error()}
	}
	return nil
}

// resultIDIndex returns the word index of op's result id, or -1.
func resultIDIndex(op OpCode) int {
	switch op {
	case OpExtInstImport, OpString, OpLabel, OpDecorationGroup,
		OpTypeVoid, OpTypeBool, OpTypeInt, OpTypeFloat, OpTypeVector, OpTypeMatrix,
		OpTypeImage, OpTypeSampler, OpTypeSampledImage, OpTypeArray, OpTypeRuntimeArray,
		OpTypeStruct, OpTypeOpaque, OpTypePointer, OpTypeFunction:
		return 1
	case OpConstant, OpConstantTrue, OpConstantFalse, OpConstantComposite, OpConstantSampler,
		OpConstantNull, OpSpecConstant, OpSpecConstantTrue, OpSpecConstantFalse,
		OpSpecConstantComposite, OpSpecConstantOp, OpFunction, OpFunctionParameter, OpVariable,
		OpImageTexelPointer, OpArrayLength:
		return 2
	}
	if hasResult(op) {
		return 2
	}
	return -1
}

// ErrValidatorNotFound is returned when the external validator binary is not
// installed.
var ErrValidatorNotFound = errors.New("spirv: validator not found")

// ExternalValidator runs spirv-val (or a compatible tool) on a module.
type ExternalValidator struct {
	// Bin is the validator executable. Defaults to "spirv-val".
	Bin string

	// Args are extra arguments passed before the stdin marker.
	Args []string
}

// Validate feeds blob to the validator on stdin and returns its diagnostics
// as an error when it rejects the module.
func (v ExternalValidator) Validate(ctx context.Context, blob Blob) error {
	bin := v.Bin
	if bin == "" {
		bin = "spirv-val"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrValidatorNotFound, bin)
	}

	args := append(append([]string{}, v.Args...), "-")
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = bytes.NewReader(blob.Bytes())
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %v\n%s", bin, err, strings.TrimSpace(string(out)))
	}
	return nil
}
