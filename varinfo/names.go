package varinfo

import (
	"strconv"
	"strings"
)

// UserDefinedNamePrefix is prepended by the shader translator to names
// declared by the application.
const UserDefinedNamePrefix = "_u"

// XfbBufferName returns the name of the interface block backing transform
// feedback buffer index.
func XfbBufferName(index uint32) string {
	return "xfbBuffer" + strconv.FormatUint(uint64(index), 10)
}

// UniformNameIsIndexZero reports whether every array index in name is 0.
// Multi-dimensional arrays produce one uniform per outer index; only the
// first is given a binding. With excludeOwningStructArrays, indices that
// appear before the last '.' are not checked.
func UniformNameIsIndexZero(name string, excludeOwningStructArrays bool) bool {
	start := 0
	if excludeOwningStructArrays {
		if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
			start = dot
		}
	}

	for {
		open := strings.IndexByte(name[start:], '[')
		if open < 0 {
			return true
		}
		open += start
		closing := strings.IndexByte(name[open:], ']')
		if closing < 0 {
			return name[open+1:] == "0"
		}
		closing += open
		if name[open+1:closing] != "0" {
			return false
		}
		start = closing
	}
}

// ImageNameWithoutIndices strips the array indices from an image uniform
// name. ok is false when the name has a non-zero index, in which case the
// uniform needs no binding of its own.
func ImageNameWithoutIndices(name string) (stripped string, ok bool) {
	if !strings.HasSuffix(name, "]") {
		return name, true
	}
	if !UniformNameIsIndexZero(name, false) {
		return name, false
	}
	return name[:strings.IndexByte(name, '[')], true
}

// MappedSamplerName returns the name the translator gives a sampler
// extracted from a struct or array: '.' becomes '_', array subscripts are
// removed, and top-level names receive UserDefinedNamePrefix.
func MappedSamplerName(original string) string {
	var sb strings.Builder
	sb.Grow(len(original) + len(UserDefinedNamePrefix))
	if !strings.Contains(original, ".") {
		sb.WriteString(UserDefinedNamePrefix)
	}

	depth := 0
	for i := 0; i < len(original); i++ {
		c := original[i]
		switch {
		case c == '[':
			depth++
		case c == ']' && depth > 0:
			depth--
		case depth > 0:
		case c == '.':
			sb.WriteByte('_')
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
