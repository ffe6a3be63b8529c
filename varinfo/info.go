// Package varinfo describes the shader interface variables of a program:
// where each uniform, storage block, sampler and varying is bound, which
// stages use it, and how it takes part in transform feedback and relaxed
// precision. The maps are produced by the binding assignment step of a
// shader compiler and consumed read-only by the transform package.
package varinfo

import (
	"fmt"

	"github.com/pkg/errors"
)

// Invalid marks an unassigned numeric field.
const Invalid uint32 = 0xFFFFFFFF

// Errors returned by the map building helpers and CheckConsistent.
var (
	ErrDuplicateVariable = errors.New("variable already present in info map")
	ErrUnknownVariable   = errors.New("variable not present in info map")
	ErrAlreadyAssigned   = errors.New("field already assigned")
	ErrInconsistent      = errors.New("partially assigned field group")
)

// Info describes one shader interface variable.
type Info struct {
	DescriptorSet uint32
	Binding       uint32
	Location      uint32
	Component     uint32
	XfbBuffer     uint32
	XfbOffset     uint32
	XfbStride     uint32

	// ActiveStages is the set of stages that use the variable.
	ActiveStages ShaderBitSet

	// UseRelaxedPrecision is set for varyings declared at a lower precision
	// at the interface than inside the shader.
	UseRelaxedPrecision bool
	VaryingIsOutput     bool
}

// NewInfo returns an Info with every numeric field Invalid and no active stages.
func NewInfo() *Info {
	return &Info{
		DescriptorSet: Invalid,
		Binding:       Invalid,
		Location:      Invalid,
		Component:     Invalid,
		XfbBuffer:     Invalid,
		XfbOffset:     Invalid,
		XfbStride:     Invalid,
	}
}

// HasResource reports whether a descriptor set and binding are assigned.
func (i *Info) HasResource() bool {
	return i.DescriptorSet != Invalid
}

// HasLocation reports whether a location is assigned.
func (i *Info) HasLocation() bool {
	return i.Location != Invalid
}

// HasComponent reports whether a component is assigned.
func (i *Info) HasComponent() bool {
	return i.Component != Invalid
}

// HasXfb reports whether transform feedback fields are assigned.
func (i *Info) HasXfb() bool {
	return i.XfbBuffer != Invalid
}

// CheckConsistent verifies that {DescriptorSet, Binding} and {XfbBuffer,
// XfbOffset, XfbStride} are each either fully assigned or fully Invalid, and
// that Component is only assigned together with Location.
func (i *Info) CheckConsistent() error {
	if (i.DescriptorSet == Invalid) != (i.Binding == Invalid) {
		return errors.Wrapf(ErrInconsistent, "descriptorSet=%s binding=%s", field(i.DescriptorSet), field(i.Binding))
	}
	if i.Location == Invalid && i.Component != Invalid {
		return errors.Wrapf(ErrInconsistent, "component=%d without location", i.Component)
	}
	xfbSet := 0
	for _, v := range []uint32{i.XfbBuffer, i.XfbOffset, i.XfbStride} {
		if v != Invalid {
			xfbSet++
		}
	}
	if xfbSet != 0 && xfbSet != 3 {
		return errors.Wrapf(ErrInconsistent, "xfbBuffer=%s xfbOffset=%s xfbStride=%s",
			field(i.XfbBuffer), field(i.XfbOffset), field(i.XfbStride))
	}
	return nil
}

func field(v uint32) string {
	if v == Invalid {
		return "invalid"
	}
	return fmt.Sprint(v)
}

// Map maps variable and block names to their info for one stage.
type Map map[string]*Info

// ProgramMap holds the info map of every stage of a program.
type ProgramMap map[ShaderType]Map

// Stage returns the map of stage s, creating it if needed.
func (p ProgramMap) Stage(s ShaderType) Map {
	m, ok := p[s]
	if !ok {
		m = make(Map)
		p[s] = m
	}
	return m
}
