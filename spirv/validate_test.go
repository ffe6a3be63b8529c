package spirv

import (
	"context"
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	blob, _ := buildPassthroughVertex()
	if err := Validate(blob); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	valid, out := buildPassthroughVertex()

	tests := []struct {
		name   string
		mutate func(Blob) Blob
		header bool
	}{
		{
			name:   "bad magic",
			mutate: func(b Blob) Blob { b[HeaderIndexMagic] = 0; return b },
			header: true,
		},
		{
			name:   "zero bound",
			mutate: func(b Blob) Blob { b[HeaderIndexBound] = 0; return b },
			header: true,
		},
		{
			name: "result id at bound",
			mutate: func(b Blob) Blob {
				b[HeaderIndexBound] = out
				return b
			},
		},
		{
			name: "truncated",
			mutate: func(b Blob) Blob {
				b[len(b)-1] = MakeInstructionHeader(OpFunctionEnd, 2)
				return b
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := tt.mutate(append(Blob(nil), valid...))
			err := Validate(blob)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate: got %v, want *ValidationError", err)
			}
			if tt.header != (verr.Offset < 0) {
				t.Errorf("Offset: got %d (header=%v)", verr.Offset, tt.header)
			}
			if verr.Error() == "" {
				t.Error("empty error message")
			}
		})
	}
}

func TestExternalValidator_NotFound(t *testing.T) {
	blob, _ := buildPassthroughVertex()
	v := ExternalValidator{Bin: "spirv-val-does-not-exist"}
	if err := v.Validate(context.Background(), blob); !errors.Is(err, ErrValidatorNotFound) {
		t.Fatalf("Validate: got %v, want ErrValidatorNotFound", err)
	}
}
