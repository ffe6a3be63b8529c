// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package blobio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/spvxform/spirv"
)

func testModule() spirv.Blob {
	b := spirv.NewModuleBuilder(spirv.Version1_0)
	b.AddCapability(spirv.CapabilityShader)
	b.SetMemoryModel(spirv.AddressingModelLogical, spirv.MemoryModelGLSL450)
	void := b.AddTypeVoid()
	fn := b.AddTypeFunction(void)
	main := b.AddFunction(fn, void, spirv.FunctionControlNone)
	b.AddLabel()
	b.AddReturn()
	b.AddFunctionEnd()
	b.AddEntryPoint(spirv.ExecutionModelGLCompute, main, "main", nil)
	b.AddExecutionMode(main, spirv.ExecutionModeLocalSize, 1, 1, 1)
	return b.Build()
}

func TestCompressionForPath(t *testing.T) {
	tests := []struct {
		path string
		want Compression
	}{
		{"shader.spv", None},
		{"shader", None},
		{"shader.spv.lz4", LZ4},
		{"SHADER.SPV.XZ", XZ},
		{"dir.xz/shader.spv", None},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompressionForPath(tt.path), tt.path)
	}
}

func TestRoundTrip(t *testing.T) {
	blob := testModule()
	for _, c := range []Compression{None, LZ4, XZ} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteBlob(&buf, blob, c))
			assert.Equal(t, c, Detect(buf.Bytes()))

			got, err := ReadBlob(&buf, c)
			require.NoError(t, err)
			assert.Equal(t, blob, got)
		})
	}
}

func TestFiles(t *testing.T) {
	blob := testModule()
	dir := t.TempDir()

	for _, name := range []string{"a.spv", "b.spv.lz4", "c.spv.xz"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, blob))

		got, err := ReadFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, blob, got, name)
	}

	// Detection ignores a misleading extension.
	data, err := os.ReadFile(filepath.Join(dir, "c.spv.xz"))
	require.NoError(t, err)
	renamed := filepath.Join(dir, "c.spv")
	require.NoError(t, os.WriteFile(renamed, data, 0o644))
	got, err := ReadFile(renamed)
	require.NoError(t, err)
	assert.Equal(t, blob, got)
}

func TestReadErrors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.spv"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = ReadBlob(bytes.NewReader([]byte{1, 2, 3}), None)
	assert.ErrorIs(t, err, spirv.ErrUnaligned)

	_, err = ReadBlob(bytes.NewReader([]byte("not xz at all")), XZ)
	assert.Error(t, err)

	_, err = ReadBlob(bytes.NewReader(nil), Compression(9))
	assert.Error(t, err)
}
