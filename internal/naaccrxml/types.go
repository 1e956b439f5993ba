package naaccrxml

import "time"

// =============================================================================
// DOCUMENT CONSTANTS
// =============================================================================

// Element names of a NAACCR XML document.
const (
	RootElement    = "NaaccrData"
	PatientElement = "Patient"
	TumorElement   = "Tumor"
	ItemElement    = "Item"
)

// Root element attribute names.
const (
	AttrBaseDictionary       = "baseDictionaryUri"
	AttrUserDictionary       = "userDictionaryUri"
	AttrRecordType           = "recordType"
	AttrTimeGenerated        = "timeGenerated"
	AttrSpecificationVersion = "specificationVersion"
	AttrNamespace            = "xmlns"
)

// Item element attribute names.
const (
	AttrItemID  = "naaccrId"
	AttrItemNum = "naaccrNum"
)

const (
	// Namespace is the fixed default namespace of every document.
	Namespace = "http://naaccr.org/naaccrxml"

	// SpecificationVersion is written on every document regardless of the
	// version declared by the data being written.
	SpecificationVersion = "1.6"
)

// standardAttributes are never forwarded from RootData.ExtraAttributes.
var standardAttributes = map[string]bool{
	AttrBaseDictionary:       true,
	AttrUserDictionary:       true,
	AttrRecordType:           true,
	AttrTimeGenerated:        true,
	AttrSpecificationVersion: true,
	AttrNamespace:            true,
}

// IsStandardAttribute reports whether name is one of the root attributes
// the writer computes itself.
func IsStandardAttribute(name string) bool { return standardAttributes[name] }

// =============================================================================
// DATA MODEL
// =============================================================================

// Item is one field value.
type Item struct {
	// ID is the field identifier written as naaccrId.
	ID string

	// Num is the legacy item number; 0 when unknown.
	Num int

	// Value is the raw (unescaped) text.
	Value string
}

// Tumor is one tumor record.
type Tumor struct {
	Items []Item
}

// Patient groups the tumors of one patient.
type Patient struct {
	Items  []Item
	Tumors []Tumor
}

// Attribute is a root attribute forwarded verbatim.
type Attribute struct {
	Name  string
	Value string
}

// RootData is the document-level metadata plus the root items.
type RootData struct {
	// BaseDictionaryURI is required.
	BaseDictionaryURI string

	// UserDictionaryURIs are the user dictionaries the data was declared
	// with, if any.
	UserDictionaryURIs []string

	// RecordType is required.
	RecordType string

	// TimeGenerated defaults to the current time when zero.
	TimeGenerated time.Time

	// SpecificationVersion is informational; the writer always writes its
	// own constant.
	SpecificationVersion string

	// Items are the root-level items.
	Items []Item

	// ExtraAttributes are non-standard root attributes in document order.
	ExtraAttributes []Attribute
}

// ItemValue returns the value of the first item with the given id.
func ItemValue(items []Item, id string) (string, bool) {
	for _, it := range items {
		if it.ID == id {
			return it.Value, true
		}
	}
	return "", false
}
