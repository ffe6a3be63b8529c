// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/spvxform/spirv"
	"github.com/gogpu/spvxform/varinfo"
)

// TransformSpirvCode transforms in for opts.ShaderType.
//
// An empty input is not an error and yields an empty result. When the
// module cannot be transformed, callback is invoked with ErrInvalidSpirv and
// its result is returned. With a nil callback the transformer's *Error is
// returned as is, message included.
func TransformSpirvCode(callback ErrorCallback, opts Options, infoMap varinfo.Map, in spirv.Blob) (spirv.Blob, error) {
	if len(in) == 0 {
		return nil, nil
	}

	out, err := NewTransformer(in, infoMap, opts).Transform()
	if err != nil {
		opts.logger().Debug("SPIR-V transform failed", "stage", opts.ShaderType.String(), "error", err)
		if callback == nil {
			return nil, err
		}
		return nil, callback(ErrInvalidSpirv)
	}
	return out, nil
}

// TransformProgram transforms the module of every stage in blobs with that
// stage's map from programMap. Stages run concurrently, each with its own
// Transformer; opts.ShaderType is ignored.
func TransformProgram(
	ctx context.Context,
	callback ErrorCallback,
	opts Options,
	programMap varinfo.ProgramMap,
	blobs map[varinfo.ShaderType]spirv.Blob,
) (map[varinfo.ShaderType]spirv.Blob, error) {
	var results [len(shaderTypes)]spirv.Blob
	for stage := range blobs {
		if int(stage) >= len(results) {
			return nil, NewError(ErrInvalidShader, "unknown shader type %d", stage)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for stage, blob := range blobs {
		stage, blob := stage, blob
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stageOpts := opts
			stageOpts.ShaderType = stage
			out, err := TransformSpirvCode(callback, stageOpts, programMap[stage], blob)
			if err != nil {
				return fmt.Errorf("%s: %w", stage, err)
			}
			results[stage] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[varinfo.ShaderType]spirv.Blob, len(blobs))
	for stage := range blobs {
		out[stage] = results[stage]
	}
	return out, nil
}

var shaderTypes = [...]varinfo.ShaderType{
	varinfo.Vertex, varinfo.TessControl, varinfo.TessEvaluation,
	varinfo.Geometry, varinfo.Fragment, varinfo.Compute,
}
