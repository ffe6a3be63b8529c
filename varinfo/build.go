package varinfo

import "github.com/pkg/errors"

func (m Map) add(name string) (*Info, error) {
	if _, ok := m[name]; ok {
		return nil, errors.Wrap(ErrDuplicateVariable, name)
	}
	info := NewInfo()
	m[name] = info
	return info, nil
}

// AddResourceInfoToAllStages adds a resource bound at set/binding and active
// in every stage. Used for resources shared by the whole pipeline, such as
// transform feedback buffers and the driver uniform block.
func (m Map) AddResourceInfoToAllStages(name string, set, binding uint32) (*Info, error) {
	info, err := m.add(name)
	if err != nil {
		return nil, err
	}
	info.DescriptorSet = set
	info.Binding = binding
	info.ActiveStages = AllStages()
	return info, nil
}

// AddResourceInfo adds a resource bound at set/binding and active in stage.
func (m Map) AddResourceInfo(name string, set, binding uint32, stage ShaderType) (*Info, error) {
	info, err := m.add(name)
	if err != nil {
		return nil, err
	}
	info.DescriptorSet = set
	info.Binding = binding
	info.ActiveStages.Set(stage)
	return info, nil
}

// AddLocationInfo assigns location and component to an input or output
// variable and marks it active in stage. The entry is created if missing;
// an existing entry is merged into as long as it carries no resource or
// location assignment yet.
func (m Map) AddLocationInfo(name string, location, component uint32, stage ShaderType) (*Info, error) {
	info, ok := m[name]
	if !ok {
		info = NewInfo()
		m[name] = info
	}
	if info.HasResource() || info.HasLocation() || info.HasComponent() {
		return nil, errors.Wrapf(ErrAlreadyAssigned, "%s: location", name)
	}
	info.Location = location
	info.Component = component
	info.ActiveStages.Set(stage)
	return info, nil
}

// SetXfbInfo adds transform feedback information to an existing output.
func (m Map) SetXfbInfo(name string, buffer, offset, stride uint32) (*Info, error) {
	info, ok := m[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownVariable, name)
	}
	if info.XfbBuffer != Invalid || info.XfbOffset != Invalid || info.XfbStride != Invalid {
		return nil, errors.Wrapf(ErrAlreadyAssigned, "%s: xfb", name)
	}
	info.XfbBuffer = buffer
	info.XfbOffset = offset
	info.XfbStride = stride
	return info, nil
}

// CheckConsistent runs Info.CheckConsistent on every entry.
func (m Map) CheckConsistent() error {
	for name, info := range m {
		if info == nil {
			return errors.Errorf("%s: nil info", name)
		}
		if err := info.CheckConsistent(); err != nil {
			return errors.Wrap(err, name)
		}
	}
	return nil
}
