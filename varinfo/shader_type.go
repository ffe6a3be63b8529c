package varinfo

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/spvxform/spirv"
)

// ShaderType identifies a pipeline stage.
type ShaderType uint8

// Shader stages, in pipeline order.
const (
	Vertex ShaderType = iota
	TessControl
	TessEvaluation
	Geometry
	Fragment
	Compute

	shaderTypeCount
)

var shaderTypeNames = [shaderTypeCount]string{
	Vertex:         "vertex",
	TessControl:    "tess_control",
	TessEvaluation: "tess_evaluation",
	Geometry:       "geometry",
	Fragment:       "fragment",
	Compute:        "compute",
}

// String returns the lower-case stage name.
func (s ShaderType) String() string {
	if s < shaderTypeCount {
		return shaderTypeNames[s]
	}
	return fmt.Sprintf("ShaderType(%d)", uint8(s))
}

// ParseShaderType parses a stage name. Besides the names returned by String
// it accepts the usual file extensions (vert, tesc, tese, geom, frag, comp).
func ParseShaderType(name string) (ShaderType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "vertex", "vert", "vs":
		return Vertex, nil
	case "tess_control", "tesscontrol", "tesc", "hs":
		return TessControl, nil
	case "tess_evaluation", "tessevaluation", "tese", "ds":
		return TessEvaluation, nil
	case "geometry", "geom", "gs":
		return Geometry, nil
	case "fragment", "frag", "fs", "ps":
		return Fragment, nil
	case "compute", "comp", "cs":
		return Compute, nil
	}
	return 0, errors.Errorf("unknown shader type %q", name)
}

// AllShaderTypes returns every stage in pipeline order.
func AllShaderTypes() []ShaderType {
	return []ShaderType{Vertex, TessControl, TessEvaluation, Geometry, Fragment, Compute}
}

// ExecutionModel returns the SPIR-V execution model of the stage.
func (s ShaderType) ExecutionModel() spirv.ExecutionModel {
	switch s {
	case TessControl:
		return spirv.ExecutionModelTessellationControl
	case TessEvaluation:
		return spirv.ExecutionModelTessellationEvaluation
	case Geometry:
		return spirv.ExecutionModelGeometry
	case Fragment:
		return spirv.ExecutionModelFragment
	case Compute:
		return spirv.ExecutionModelGLCompute
	default:
		return spirv.ExecutionModelVertex
	}
}

// ShaderBitSet is a set of stages.
type ShaderBitSet uint8

// AllStages returns the set of every stage.
func AllStages() ShaderBitSet {
	return ShaderBitSet(1<<shaderTypeCount - 1)
}

// Set adds s to the set.
func (b *ShaderBitSet) Set(s ShaderType) {
	*b |= 1 << s
}

// Reset removes s from the set.
func (b *ShaderBitSet) Reset(s ShaderType) {
	*b &^= 1 << s
}

// Test reports whether s is in the set.
func (b ShaderBitSet) Test(s ShaderType) bool {
	return b&(1<<s) != 0
}

// Count returns the number of stages in the set.
func (b ShaderBitSet) Count() int {
	return bits.OnesCount8(uint8(b))
}

// Stages lists the members of the set in pipeline order.
func (b ShaderBitSet) Stages() []ShaderType {
	var out []ShaderType
	for _, s := range AllShaderTypes() {
		if b.Test(s) {
			out = append(out, s)
		}
	}
	return out
}

func (b ShaderBitSet) String() string {
	names := make([]string, 0, b.Count())
	for _, s := range b.Stages() {
		names = append(names, s.String())
	}
	return "{" + strings.Join(names, ",") + "}"
}

// MarshalYAML encodes the set as a list of stage names.
func (b ShaderBitSet) MarshalYAML() (any, error) {
	names := make([]string, 0, b.Count())
	for _, s := range b.Stages() {
		names = append(names, s.String())
	}
	return names, nil
}

// UnmarshalYAML decodes a list of stage names, or the scalar "all".
func (b *ShaderBitSet) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		if value.Value == "all" {
			*b = AllStages()
			return nil
		}
		s, err := ParseShaderType(value.Value)
		if err != nil {
			return errors.Wrapf(err, "line %d", value.Line)
		}
		*b = 0
		b.Set(s)
		return nil
	}

	var names []string
	if err := value.Decode(&names); err != nil {
		return err
	}
	var set ShaderBitSet
	for _, name := range names {
		s, err := ParseShaderType(name)
		if err != nil {
			return errors.Wrapf(err, "line %d", value.Line)
		}
		set.Set(s)
	}
	*b = set
	return nil
}
