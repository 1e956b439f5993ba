// =============================================================================
// NAACCR Flat/XML Converter - Fixed-Width Layout
// =============================================================================
//
// A flat record is the concatenation of every active field, each padded to
// its dictionary length, in dictionary order. There are no delimiters and no
// header row.
//
// EXAMPLE (registryId 10, patientIdNumber 8, primarySite 4):
//
//   offset  1          11       19
//           |registryId|patient |site|
//           0000012345 00000001C509
//
// Lengths and offsets are counted in characters (runes), not bytes, so
// accented names in UTF-8 input keep their columns.
//
// =============================================================================

package flatfile

import (
	"github.com/ginjaninja78/naaccr-flat-xml/internal/dictionary"
)

// Layout is the column map of the active field set.
type Layout struct {
	fields     []dictionary.FieldDescriptor
	offsets    []int
	lineLength int
	index      map[string]int
}

// NewLayout computes offsets for fields in the given (dictionary) order.
func NewLayout(fields []dictionary.FieldDescriptor) *Layout {
	l := &Layout{
		fields:  make([]dictionary.FieldDescriptor, len(fields)),
		offsets: make([]int, len(fields)),
		index:   make(map[string]int, len(fields)),
	}
	copy(l.fields, fields)
	for i, f := range l.fields {
		l.offsets[i] = l.lineLength
		l.lineLength += f.Length
		l.index[f.TruncatedID] = i
	}
	return l
}

// LineLength is the expected width of every line: the sum of field lengths.
func (l *Layout) LineLength() int { return l.lineLength }

// Len returns the number of active fields.
func (l *Layout) Len() int { return len(l.fields) }

// Fields returns the active fields in layout order.
func (l *Layout) Fields() []dictionary.FieldDescriptor {
	out := make([]dictionary.FieldDescriptor, len(l.fields))
	copy(out, l.fields)
	return out
}

// FieldsAt returns the active fields nested under level, in layout order.
func (l *Layout) FieldsAt(level dictionary.ParentLevel) []dictionary.FieldDescriptor {
	var out []dictionary.FieldDescriptor
	for _, f := range l.fields {
		if f.Parent == level {
			out = append(out, f)
		}
	}
	return out
}

// Field returns the active field with the given column key.
func (l *Layout) Field(key string) (dictionary.FieldDescriptor, bool) {
	i, ok := l.index[key]
	if !ok {
		return dictionary.FieldDescriptor{}, false
	}
	return l.fields[i], true
}

// Offset returns the 0-based start column of the field with the given
// column key.
func (l *Layout) Offset(key string) (int, bool) {
	i, ok := l.index[key]
	if !ok {
		return 0, false
	}
	return l.offsets[i], true
}
