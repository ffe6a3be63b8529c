// Package spvxform adapts Vulkan SPIR-V produced by a GLSL front end to the
// program it is linked into.
//
// The front end compiles each stage on its own and assigns placeholder
// locations, bindings and descriptor sets. Once the program is linked, the
// real assignments are known per variable name and are applied here:
//
//   - Location, Binding and DescriptorSet decorations are patched
//   - inputs and outputs inactive in the stage become Private globals
//   - relaxed precision varyings go through a RelaxedPrecision replacement
//   - transform feedback decorations, capability and execution mode are added
//   - debug info and EarlyFragmentTests can optionally be removed
//
// Example usage:
//
//	infoMap, err := varinfo.LoadProgramMapFile("program.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := spvxform.Transform(spv, infoMap.Stage(varinfo.Vertex), varinfo.Vertex)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The transform package exposes the underlying Transformer, and the varinfo
// package builds and loads variable info maps.
package spvxform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gogpu/spvxform/spirv"
	"github.com/gogpu/spvxform/transform"
	"github.com/gogpu/spvxform/varinfo"
)

// Options configures a transformation.
type Options struct {
	// Stage is the shader stage of the module.
	Stage varinfo.ShaderType

	// StripDebugInfo removes names, sources and line info declarations.
	StripDebugInfo bool

	// RemoveEarlyFragmentTests drops the EarlyFragmentTests execution mode.
	RemoveEarlyFragmentTests bool

	// Validate checks the output and logs a warning if it is malformed.
	Validate bool

	// Logger receives diagnostics (default: slog.Default())
	Logger *slog.Logger
}

// DefaultOptions returns options for a vertex shader that keep debug info.
func DefaultOptions() Options {
	return Options{
		Stage: varinfo.Vertex,
	}
}

func (o Options) transformOptions() transform.Options {
	return transform.Options{
		ShaderType:                           o.Stage,
		RemoveEarlyFragmentTestsOptimization: o.RemoveEarlyFragmentTests,
		RemoveDebugInfo:                      o.StripDebugInfo,
		Validate:                             o.Validate,
		Logger:                               o.Logger,
	}
}

// Transform rewrites a little-endian SPIR-V binary of the given stage using
// infoMap.
func Transform(spv []byte, infoMap varinfo.Map, stage varinfo.ShaderType) ([]byte, error) {
	opts := DefaultOptions()
	opts.Stage = stage
	return TransformWithOptions(spv, infoMap, opts)
}

// TransformWithOptions rewrites a little-endian SPIR-V binary with custom
// options. An empty input yields an empty output.
func TransformWithOptions(spv []byte, infoMap varinfo.Map, opts Options) ([]byte, error) {
	blob, err := spirv.BlobFromBytes(spv)
	if err != nil {
		return nil, fmt.Errorf("decode error: %w", err)
	}
	if len(blob) == 0 {
		return nil, nil
	}

	out, err := transform.NewTransformer(blob, infoMap, opts.transformOptions()).Transform()
	if err != nil {
		return nil, fmt.Errorf("transform error: %w", err)
	}
	return out.Bytes(), nil
}

// TransformProgram rewrites the binaries of every stage of a linked program
// concurrently. opts.Stage is ignored.
func TransformProgram(
	ctx context.Context,
	programMap varinfo.ProgramMap,
	spv map[varinfo.ShaderType][]byte,
	opts Options,
) (map[varinfo.ShaderType][]byte, error) {
	blobs := make(map[varinfo.ShaderType]spirv.Blob, len(spv))
	for stage, code := range spv {
		blob, err := spirv.BlobFromBytes(code)
		if err != nil {
			return nil, fmt.Errorf("decode error: %s: %w", stage, err)
		}
		blobs[stage] = blob
	}

	results, err := transform.TransformProgram(ctx, nil, opts.transformOptions(), programMap, blobs)
	if err != nil {
		return nil, fmt.Errorf("transform error: %w", err)
	}

	out := make(map[varinfo.ShaderType][]byte, len(results))
	for stage, blob := range results {
		out[stage] = blob.Bytes()
	}
	return out, nil
}
