// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/spvxform/spirv"
	"github.com/gogpu/spvxform/varinfo"
)

func vertexAndFragment() (vert, frag spirv.Blob) {
	vs := newShaderBuilder()
	vOut := vs.varying("vColor", spirv.StorageClassOutput, 0)
	value := vs.constVec4(1)
	vs.entryPoint(spirv.ExecutionModelVertex, func() { vs.AddStore(vOut, value) })

	fs := newShaderBuilder()
	fIn := fs.varying("vColor", spirv.StorageClassInput, 0)
	color := fs.varying("color", spirv.StorageClassOutput, 0)
	fs.entryPoint(spirv.ExecutionModelFragment, func() {
		x := fs.AddLoad(fs.vec4Type, fIn)
		fs.AddStore(color, x)
	})
	return vs.Build(), fs.Build()
}

func linkedProgramMap() varinfo.ProgramMap {
	vColorVS := varyingInfo(2, true, varinfo.Vertex, varinfo.Fragment)
	vColorFS := varyingInfo(2, false, varinfo.Vertex, varinfo.Fragment)
	vColorFS.UseRelaxedPrecision = true
	return varinfo.ProgramMap{
		varinfo.Vertex:   {"vColor": vColorVS},
		varinfo.Fragment: {"vColor": vColorFS, "color": varyingInfo(0, true, varinfo.Fragment)},
	}
}

func TestTransformSpirvCode(t *testing.T) {
	vert, _ := vertexAndFragment()

	t.Run("empty input", func(t *testing.T) {
		called := false
		out, err := TransformSpirvCode(func(ErrorKind) error { called = true; return nil }, Options{}, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.False(t, called)
	})

	t.Run("success", func(t *testing.T) {
		out, err := TransformSpirvCode(nil, Options{ShaderType: varinfo.Vertex}, linkedProgramMap().Stage(varinfo.Vertex), vert)
		require.NoError(t, err)
		require.NoError(t, spirv.Validate(out))
	})

	t.Run("nil callback keeps the message", func(t *testing.T) {
		_, err := TransformSpirvCode(nil, Options{ShaderType: varinfo.Vertex}, varinfo.Map{}, vert)
		var terr *Error
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, ErrInvalidSpirv, terr.Kind)
		assert.Contains(t, terr.Message, `"vColor"`)
	})

	t.Run("default callback", func(t *testing.T) {
		_, err := TransformSpirvCode(DefaultErrorCallback, Options{ShaderType: varinfo.Vertex}, varinfo.Map{}, vert)
		assert.EqualError(t, err, "spirv transform: InvalidSpirv")
	})

	t.Run("custom callback", func(t *testing.T) {
		sentinel := errors.New("rejected")
		var got ErrorKind = ErrInvalidShader
		_, err := TransformSpirvCode(func(kind ErrorKind) error {
			got = kind
			return sentinel
		}, Options{ShaderType: varinfo.Vertex}, varinfo.Map{}, vert)
		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, ErrInvalidSpirv, got)
	})

	t.Run("suppressed", func(t *testing.T) {
		out, err := TransformSpirvCode(func(ErrorKind) error { return nil }, Options{ShaderType: varinfo.Vertex}, varinfo.Map{}, vert)
		assert.NoError(t, err)
		assert.Nil(t, out)
	})
}

func TestTransformProgram(t *testing.T) {
	vert, frag := vertexAndFragment()
	blobs := map[varinfo.ShaderType]spirv.Blob{
		varinfo.Vertex:   vert,
		varinfo.Fragment: frag,
	}

	out, err := TransformProgram(context.Background(), nil, Options{}, linkedProgramMap(), blobs)
	require.NoError(t, err)
	require.Len(t, out, 2)

	for stage, blob := range out {
		require.NoError(t, spirv.Validate(blob), stage.String())
		checkNewIDs(t, blobs[stage], blob)
	}

	// Only the fragment input is relaxed, so only the fragment stage grows a
	// replacement and a preamble.
	assert.Equal(t, vert.Bound()+1, out[varinfo.Vertex].Bound())
	assert.Len(t, filter(decode(t, out[varinfo.Fragment]), spirv.OpLoad), 2)
}

func TestTransformProgram_StageError(t *testing.T) {
	vert, frag := vertexAndFragment()
	programMap := linkedProgramMap()
	delete(programMap[varinfo.Fragment], "color")

	var calls atomic.Int32
	_, err := TransformProgram(context.Background(), func(kind ErrorKind) error {
		calls.Add(1)
		return DefaultErrorCallback(kind)
	}, Options{}, programMap, map[varinfo.ShaderType]spirv.Blob{
		varinfo.Vertex:   vert,
		varinfo.Fragment: frag,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fragment: ")

	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, ErrInvalidSpirv, terr.Kind)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTransformProgram_UnknownStage(t *testing.T) {
	_, err := TransformProgram(context.Background(), nil, Options{}, nil, map[varinfo.ShaderType]spirv.Blob{
		varinfo.ShaderType(42): {spirv.MagicNumber},
	})
	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, ErrInvalidShader, terr.Kind)
}

func TestTransformProgram_Canceled(t *testing.T) {
	vert, _ := vertexAndFragment()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := TransformProgram(ctx, nil, Options{}, linkedProgramMap(), map[varinfo.ShaderType]spirv.Blob{
		varinfo.Vertex: vert,
	})
	assert.ErrorIs(t, err, context.Canceled)
}
