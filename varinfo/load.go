package varinfo

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// infoDoc is the on-disk form of Info. Absent numeric fields decode as Invalid.
type infoDoc struct {
	DescriptorSet    *uint32       `yaml:"descriptorSet,omitempty"`
	Binding          *uint32       `yaml:"binding,omitempty"`
	Location         *uint32       `yaml:"location,omitempty"`
	Component        *uint32       `yaml:"component,omitempty"`
	XfbBuffer        *uint32       `yaml:"xfbBuffer,omitempty"`
	XfbOffset        *uint32       `yaml:"xfbOffset,omitempty"`
	XfbStride        *uint32       `yaml:"xfbStride,omitempty"`
	ActiveStages     *ShaderBitSet `yaml:"activeStages,omitempty"`
	RelaxedPrecision bool          `yaml:"relaxedPrecision,omitempty"`
	VaryingIsOutput  bool          `yaml:"varyingIsOutput,omitempty"`
}

func orInvalid(v *uint32) uint32 {
	if v == nil {
		return Invalid
	}
	return *v
}

func orNil(v uint32) *uint32 {
	if v == Invalid {
		return nil
	}
	return &v
}

// toInfo converts the document. A missing activeStages defaults to the stage
// owning the map.
func (d infoDoc) toInfo(stage ShaderType) *Info {
	info := &Info{
		DescriptorSet:       orInvalid(d.DescriptorSet),
		Binding:             orInvalid(d.Binding),
		Location:            orInvalid(d.Location),
		Component:           orInvalid(d.Component),
		XfbBuffer:           orInvalid(d.XfbBuffer),
		XfbOffset:           orInvalid(d.XfbOffset),
		XfbStride:           orInvalid(d.XfbStride),
		UseRelaxedPrecision: d.RelaxedPrecision,
		VaryingIsOutput:     d.VaryingIsOutput,
	}
	if d.ActiveStages != nil {
		info.ActiveStages = *d.ActiveStages
	} else {
		info.ActiveStages.Set(stage)
	}
	return info
}

func fromInfo(info *Info) infoDoc {
	stages := info.ActiveStages
	return infoDoc{
		DescriptorSet:    orNil(info.DescriptorSet),
		Binding:          orNil(info.Binding),
		Location:         orNil(info.Location),
		Component:        orNil(info.Component),
		XfbBuffer:        orNil(info.XfbBuffer),
		XfbOffset:        orNil(info.XfbOffset),
		XfbStride:        orNil(info.XfbStride),
		ActiveStages:     &stages,
		RelaxedPrecision: info.UseRelaxedPrecision,
		VaryingIsOutput:  info.VaryingIsOutput,
	}
}

// LoadProgramMap reads a YAML (or JSON) document of the form
//
//	vertex:
//	  vOut: {location: 3, component: 0, activeStages: [vertex, fragment]}
//	fragment:
//	  ubo: {descriptorSet: 0, binding: 1}
//
// Every entry is checked with CheckConsistent.
func LoadProgramMap(r io.Reader) (ProgramMap, error) {
	var doc map[string]map[string]infoDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return ProgramMap{}, nil
		}
		return nil, errors.Wrap(err, "decoding variable info")
	}

	pm := make(ProgramMap, len(doc))
	for stageName, vars := range doc {
		stage, err := ParseShaderType(stageName)
		if err != nil {
			return nil, err
		}
		m := pm.Stage(stage)
		for name, d := range vars {
			info := d.toInfo(stage)
			if err := info.CheckConsistent(); err != nil {
				return nil, errors.Wrapf(err, "%s.%s", stage, name)
			}
			m[name] = info
		}
	}
	return pm, nil
}

// LoadProgramMapFile reads a program map from path.
func LoadProgramMapFile(path string) (ProgramMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening variable info")
	}
	defer f.Close()

	pm, err := LoadProgramMap(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return pm, nil
}

// WriteProgramMap encodes pm in the format read by LoadProgramMap.
func WriteProgramMap(w io.Writer, pm ProgramMap) error {
	doc := make(map[string]map[string]infoDoc, len(pm))
	for stage, m := range pm {
		vars := make(map[string]infoDoc, len(m))
		for name, info := range m {
			vars[name] = fromInfo(info)
		}
		doc[stage.String()] = vars
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encoding variable info")
	}
	return errors.Wrap(enc.Close(), "encoding variable info")
}
