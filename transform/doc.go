// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package transform rewrites the shader interface of a compiled SPIR-V
// module to match the bindings, locations and stage activity assigned by
// the program linker.
//
// A Transformer makes two passes over the input. The first walks the
// declarations up to the first OpFunction and builds id-indexed tables:
// names from OpName (propagated through OpTypeArray and OpTypePointer),
// the variable info of every interface variable, and replacement ids for
// relaxed precision varyings. The second copies the module into a new blob
// one instruction at a time, and for a handful of opcodes rewrites, drops,
// or expands the instruction:
//
//   - OpDecorate: Location, Binding and DescriptorSet receive the assigned
//     values, Component and transform feedback decorations are added after
//     Location, and decorations of inactive variables are removed.
//   - OpEntryPoint: inactive variables are removed from the interface list.
//   - OpTypePointer: every Input and Output pointer gets a Private twin.
//   - OpVariable: inactive outputs become Private globals.
//   - Op*AccessChain: chains into demoted variables use the Private type.
//   - OpCapability, OpExecutionMode: transform feedback is declared when an
//     active output is captured, and EarlyFragmentTests can be removed.
//
// Relaxed precision varyings are split in two: the interface sees a new
// variable decorated RelaxedPrecision, while the shader body keeps using the
// original id as a Private global. Values are copied between the two at the
// start of the entry point (inputs) and before each OpReturn (outputs).
//
// The transformer assumes its input was produced by a conforming compiler
// and that the variable info map covers every interface variable. When
// either assumption fails, Transform returns an *Error of kind
// ErrInvalidSpirv.
package transform
