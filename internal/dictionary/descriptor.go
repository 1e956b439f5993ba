// =============================================================================
// NAACCR Flat/XML Converter - Field Dictionary
// =============================================================================
//
// A dictionary is an ORDERED catalog of field descriptors. Declaration order
// is an externally observable contract: the flat layout slices fields in this
// order and the XML items are emitted in this order. Lookups by identifier go
// through side indexes; iteration always goes through the ordered slice.
//
// DICTIONARY STRUCTURE:
//
//   | naaccrId          | naaccrNum | length | parentXmlElement |
//   |-------------------|-----------|--------|------------------|
//   | registryId        | 40        | 10     | NaaccrData       |
//   | patientIdNumber   | 20        | 8      | Patient          |
//   | primarySite       | 400       | 4      | Tumor            |
//
// =============================================================================

package dictionary

import (
	"fmt"
	"strings"
)

// MaxTruncatedIDLength bounds the flat-file column key derived from an id.
const MaxTruncatedIDLength = 32

// =============================================================================
// PARENT LEVEL
// =============================================================================

// ParentLevel is the XML element a field's value is nested under.
type ParentLevel int

const (
	LevelRoot ParentLevel = iota
	LevelPatient
	LevelTumor
)

// Element names of the three levels.
const (
	ElementRoot    = "NaaccrData"
	ElementPatient = "Patient"
	ElementTumor   = "Tumor"
)

// String returns the XML element name of the level.
func (l ParentLevel) String() string {
	switch l {
	case LevelRoot:
		return ElementRoot
	case LevelPatient:
		return ElementPatient
	case LevelTumor:
		return ElementTumor
	default:
		return fmt.Sprintf("ParentLevel(%d)", int(l))
	}
}

// ParseParentLevel accepts the element names (case-insensitive) plus the
// short forms "root", "patient" and "tumor".
func ParseParentLevel(value string) (ParentLevel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "naaccrdata", "root":
		return LevelRoot, nil
	case "patient":
		return LevelPatient, nil
	case "tumor":
		return LevelTumor, nil
	default:
		return 0, fmt.Errorf("invalid parent element %q", value)
	}
}

// =============================================================================
// FIELD DESCRIPTOR
// =============================================================================

// FieldDescriptor describes one schema field.
type FieldDescriptor struct {
	// ID is the stable textual identifier (naaccrId).
	ID string

	// TruncatedID is the flat-file column key, a prefix of ID bounded by
	// MaxTruncatedIDLength.
	TruncatedID string

	// Number is the historical numeric code (naaccrNum); 0 when absent.
	Number int

	// Length is the fixed column width in the flat layout.
	Length int

	// Parent is the element the field's Item is written under.
	Parent ParentLevel
}

// TruncateID derives the flat column key for an identifier.
func TruncateID(id string) string {
	if len(id) <= MaxTruncatedIDLength {
		return id
	}
	return id[:MaxTruncatedIDLength]
}

// =============================================================================
// DICTIONARY
// =============================================================================

// Dictionary is an ordered, immutable-after-build set of field descriptors.
// It is safe to share between concurrent jobs as long as nobody mutates it;
// all exported accessors are read-only.
type Dictionary struct {
	// BaseURI is the URI of the base dictionary this catalog derives from.
	BaseURI string

	// UserURIs are the URIs of the user dictionaries merged on top, in the
	// order they were applied.
	UserURIs []string

	// Version is the standard version token, e.g. "230".
	Version string

	// RecordType is the record type token, e.g. "A".
	RecordType string

	fields      []FieldDescriptor
	byID        map[string]int
	byTruncated map[string]int
}

func newDictionary() *Dictionary {
	return &Dictionary{
		byID:        make(map[string]int),
		byTruncated: make(map[string]int),
	}
}

// Fields returns a copy of the descriptors in declaration order.
func (d *Dictionary) Fields() []FieldDescriptor {
	out := make([]FieldDescriptor, len(d.fields))
	copy(out, d.fields)
	return out
}

// Len returns the number of fields.
func (d *Dictionary) Len() int { return len(d.fields) }

// Field returns the descriptor with the given id.
func (d *Dictionary) Field(id string) (FieldDescriptor, bool) {
	i, ok := d.byID[id]
	if !ok {
		return FieldDescriptor{}, false
	}
	return d.fields[i], true
}

// FieldByTruncatedID returns the descriptor owning the given flat column key.
func (d *Dictionary) FieldByTruncatedID(key string) (FieldDescriptor, bool) {
	i, ok := d.byTruncated[key]
	if !ok {
		return FieldDescriptor{}, false
	}
	return d.fields[i], true
}

// add appends a new descriptor. The caller checks for collisions.
func (d *Dictionary) add(f FieldDescriptor) {
	d.byID[f.ID] = len(d.fields)
	d.byTruncated[f.TruncatedID] = len(d.fields)
	d.fields = append(d.fields, f)
}
