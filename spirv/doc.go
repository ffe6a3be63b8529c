// Package spirv provides the SPIR-V binary vocabulary shared by the
// transformer and the command line tools.
//
// SPIR-V is the standard intermediate language for GPU shaders,
// used by Vulkan, OpenCL, and other APIs.
//
// # Word Buffers
//
// A module is handled as a Blob, a slice of 32-bit words. The first five
// words form the header; every following instruction starts with a word
// packing its word count (high 16 bits) and opcode (low 16 bits):
//
//	blob, err := spirv.BlobFromBytes(data)
//	if err != nil {
//		log.Fatal(err)
//	}
//	r := spirv.NewReader(blob)
//	for r.Next() {
//		inst := r.Instruction()
//		fmt.Println(inst.Op, len(inst.Words))
//	}
//
// # Binary Writer
//
// The package also provides a low-level binary writer for constructing
// SPIR-V modules programmatically using ModuleBuilder:
//
//	builder := spirv.NewModuleBuilder(spirv.Version1_0)
//	builder.AddCapability(spirv.CapabilityShader)
//	builder.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)
//
//	floatType := builder.AddTypeFloat(32)
//	vec4Type := builder.AddTypeVector(floatType, 4)
//
//	blob := builder.Build()
//
// # Diagnostics
//
// Disassemble writes a readable listing of a module, and Validate performs
// a structural check (header, instruction framing, id bound). When the
// Khronos spirv-val tool is installed, ExternalValidator runs it as well.
//
// # SPIR-V Structure
//
// SPIR-V modules consist of:
//   - Header (magic, version, generator, bound, schema)
//   - Capabilities (required features)
//   - Extensions (optional extensions)
//   - Extended instruction imports (GLSL.std.450, etc.)
//   - Memory model (addressing and memory model)
//   - Entry points (shader entry functions)
//   - Execution modes (shader configuration)
//   - Debug information (names, source info)
//   - Annotations (decorations)
//   - Types, constants and global variables
//   - Functions (code)
//
// # References
//
// SPIR-V Specification: https://registry.khronos.org/SPIR-V/specs/unified1/SPIRV.html
package spirv
