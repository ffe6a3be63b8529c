// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes failures reported through an ErrorCallback.
type ErrorKind uint8

const (
	// ErrInvalidShader indicates the shader failed to compile or link before
	// any SPIR-V was produced.
	ErrInvalidShader ErrorKind = iota

	// ErrInvalidSpirv indicates the SPIR-V module could not be transformed.
	ErrInvalidSpirv
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidShader:
		return "InvalidShader"
	case ErrInvalidSpirv:
		return "InvalidSpirv"
	default:
		return "Unknown"
	}
}

// Error represents a transformation failure.
type Error struct {
	// Kind categorizes the error.
	Kind ErrorKind

	// Message provides details about the error.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return "spirv transform: " + e.Kind.String()
	}
	return fmt.Sprintf("spirv transform %s: %s", e.Kind, e.Message)
}

// NewError creates a new transformation error.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ErrTransformerReused is returned by Transform on a Transformer that
// already ran.
var ErrTransformerReused = errors.New("spirv transform: transformer must not be reused")

// ErrorCallback receives the kind of a failure and returns the error the
// failing call should report. It may return nil to suppress the failure.
// TransformProgram calls it from several goroutines.
type ErrorCallback func(kind ErrorKind) error

// DefaultErrorCallback returns an *Error of the given kind.
func DefaultErrorCallback(kind ErrorKind) error {
	return &Error{Kind: kind}
}

// invariantError is raised by assertf when the module or the variable info
// map break an assumption of the transformer. Transform recovers it.
type invariantError struct {
	msg string
}

func (e invariantError) Error() string {
	return e.msg
}

func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(invariantError{msg: fmt.Sprintf(format, args...)})
	}
}
