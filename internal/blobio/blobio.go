// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package blobio reads and writes SPIR-V modules on disk, optionally
// compressed with LZ4 or XZ.
package blobio

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"

	"github.com/gogpu/spvxform/spirv"
)

// Compression selects the container a module is stored in.
type Compression uint8

const (
	None Compression = iota
	LZ4
	XZ
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case XZ:
		return "xz"
	default:
		return "unknown"
	}
}

var (
	lz4Magic = []byte{0x04, 0x22, 0x4D, 0x18}
	xzMagic  = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}
)

// CompressionForPath picks the compression from the file extension.
func CompressionForPath(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lz4":
		return LZ4
	case ".xz":
		return XZ
	}
	return None
}

// Detect identifies the compression from the first bytes of a file.
func Detect(prefix []byte) Compression {
	switch {
	case bytes.HasPrefix(prefix, lz4Magic):
		return LZ4
	case bytes.HasPrefix(prefix, xzMagic):
		return XZ
	}
	return None
}

// ReadBlob reads a whole module from r.
func ReadBlob(r io.Reader, c Compression) (spirv.Blob, error) {
	var src io.Reader
	switch c {
	case None:
		src = r
	case LZ4:
		src = lz4.NewReader(r)
	case XZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "open xz stream")
		}
		src = xr
	default:
		return nil, errors.Errorf("unknown compression %d", c)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s module", c)
	}
	blob, err := spirv.BlobFromBytes(data)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return blob, nil
}

// WriteBlob writes blob to w.
func WriteBlob(w io.Writer, blob spirv.Blob, c Compression) error {
	data := blob.Bytes()
	switch c {
	case None:
		_, err := w.Write(data)
		return errors.WithStack(err)
	case LZ4:
		zw := lz4.NewWriter(w)
		if _, err := zw.Write(data); err != nil {
			return errors.Wrap(err, "write lz4 module")
		}
		return errors.Wrap(zw.Close(), "close lz4 stream")
	case XZ:
		zw, err := xz.NewWriter(w)
		if err != nil {
			return errors.Wrap(err, "open xz stream")
		}
		if _, err := zw.Write(data); err != nil {
			return errors.Wrap(err, "write xz module")
		}
		return errors.Wrap(zw.Close(), "close xz stream")
	default:
		return errors.Errorf("unknown compression %d", c)
	}
}

// ReadFile reads a module from path. The compression is detected from the
// content, so the extension does not matter.
func ReadFile(path string) (spirv.Blob, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	prefix, err := br.Peek(len(xzMagic))
	if err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	blob, err := ReadBlob(br, Detect(prefix))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return blob, nil
}

// WriteFile writes blob to path, compressed according to its extension.
func WriteFile(path string, blob spirv.Blob) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := WriteBlob(f, blob, CompressionForPath(path)); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.WithStack(f.Close())
}
