// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package transform

import (
	"context"
	"errors"

	"github.com/gogpu/spvxform/spirv"
)

// validate checks the output and logs a warning on failure. It never fails
// the transformation.
func (t *Transformer) validate() {
	log := t.opts.logger().With("stage", t.opts.ShaderType.String())

	err := spirv.Validate(t.out)
	if err == nil {
		err = spirv.ExternalValidator{}.Validate(context.Background(), t.out)
		if errors.Is(err, spirv.ErrValidatorNotFound) {
			log.Debug("skipping external SPIR-V validation", "error", err)
			err = nil
		}
	}
	if err == nil {
		return
	}

	log.Warn("transformed SPIR-V failed validation",
		"error", err,
		"disassembly", spirv.DisassembleString(t.out, spirv.DisassembleOptions{FriendlyNames: true}))
}
