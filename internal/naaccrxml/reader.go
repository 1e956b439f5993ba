package naaccrxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/charset"
)

// =============================================================================
// STREAMING PATIENT READER
// =============================================================================

// PatientReader streams a NAACCR XML document one Patient at a time. The root
// attributes and root items are available as soon as the reader is created.
//
// USAGE:
//
//	reader, err := naaccrxml.NewPatientReader(f)
//	if err != nil { return err }
//	for {
//	    patient, err := reader.ReadPatient()
//	    if err == io.EOF { break }
//	    if err != nil { return err }
//	    // process patient
//	}
type PatientReader struct {
	dec      *xml.Decoder
	root     RootData
	pending  *xml.StartElement
	patients int
	done     bool
}

// NewPatientReader reads the root element and the root items from r.
func NewPatientReader(r io.Reader) (*PatientReader, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		return charset.NewReader(input, label)
	}

	pr := &PatientReader{dec: dec}
	start, err := pr.nextStart()
	if err == io.EOF {
		return nil, pr.malformed(nil, "", "document has no root element")
	}
	if err != nil {
		return nil, err
	}
	if start.Name.Local != RootElement {
		return nil, pr.malformed(nil, start.Name.Local, "expected root element %s, got %s", RootElement, start.Name.Local)
	}
	if err := pr.readRootAttributes(start); err != nil {
		return nil, err
	}

	// Root items come before the first Patient.
	for {
		tok, err := pr.token(RootElement)
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case ItemElement:
				item, err := pr.readItem(t, RootElement)
				if err != nil {
					return nil, err
				}
				pr.root.Items = append(pr.root.Items, item)
			case PatientElement:
				pending := t.Copy()
				pr.pending = &pending
				return pr, nil
			default:
				if err := pr.skip(RootElement); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			pr.done = true
			return pr, nil
		}
	}
}

// RootData returns the document metadata and root items.
func (pr *PatientReader) RootData() *RootData { return &pr.root }

// ReadPatient returns the next patient, or io.EOF after the last one.
func (pr *PatientReader) ReadPatient() (*Patient, error) {
	if pr.done {
		return nil, io.EOF
	}

	if pr.pending == nil {
		for {
			tok, err := pr.token(RootElement)
			if err != nil {
				return nil, err
			}
			if t, ok := tok.(xml.StartElement); ok {
				if t.Name.Local == PatientElement {
					pending := t.Copy()
					pr.pending = &pending
					break
				}
				if err := pr.skip(RootElement); err != nil {
					return nil, err
				}
				continue
			}
			if _, ok := tok.(xml.EndElement); ok {
				pr.done = true
				return nil, io.EOF
			}
		}
	}
	pr.pending = nil
	pr.patients++

	patient := &Patient{}
	path := fmt.Sprintf("%s/%s[%d]", RootElement, PatientElement, pr.patients)
	for {
		tok, err := pr.token(path)
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case ItemElement:
				item, err := pr.readItem(t, path)
				if err != nil {
					return nil, err
				}
				patient.Items = append(patient.Items, item)
			case TumorElement:
				tumorPath := fmt.Sprintf("%s/%s[%d]", path, TumorElement, len(patient.Tumors)+1)
				tumor, err := pr.readTumor(tumorPath)
				if err != nil {
					return nil, err
				}
				patient.Tumors = append(patient.Tumors, tumor)
			default:
				if err := pr.skip(path); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			return patient, nil
		}
	}
}

func (pr *PatientReader) readTumor(path string) (Tumor, error) {
	var tumor Tumor
	for {
		tok, err := pr.token(path)
		if err != nil {
			return tumor, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != ItemElement {
				if err := pr.skip(path); err != nil {
					return tumor, err
				}
				continue
			}
			item, err := pr.readItem(t, path)
			if err != nil {
				return tumor, err
			}
			tumor.Items = append(tumor.Items, item)
		case xml.EndElement:
			return tumor, nil
		}
	}
}

func (pr *PatientReader) readItem(start xml.StartElement, path string) (Item, error) {
	var item Item
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case AttrItemID:
			item.ID = attr.Value
		case AttrItemNum:
			if attr.Value == "" {
				continue
			}
			n, err := strconv.Atoi(attr.Value)
			if err != nil {
				return item, pr.malformed(err, path, "invalid %s %q", AttrItemNum, attr.Value)
			}
			item.Num = n
		}
	}
	if item.ID == "" {
		return item, pr.malformed(nil, path, "item without %s", AttrItemID)
	}

	var text strings.Builder
	for {
		tok, err := pr.token(path)
		if err != nil {
			return item, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			return item, pr.malformed(nil, path, "item %s cannot contain element %s", item.ID, t.Name.Local)
		case xml.EndElement:
			item.Value = text.String()
			return item, nil
		}
	}
}

func (pr *PatientReader) readRootAttributes(start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Space == "xmlns" || (attr.Name.Space == "" && attr.Name.Local == AttrNamespace) {
			continue
		}
		switch attr.Name.Local {
		case AttrBaseDictionary:
			pr.root.BaseDictionaryURI = attr.Value
		case AttrUserDictionary:
			pr.root.UserDictionaryURIs = strings.Fields(attr.Value)
		case AttrRecordType:
			pr.root.RecordType = attr.Value
		case AttrSpecificationVersion:
			pr.root.SpecificationVersion = attr.Value
		case AttrTimeGenerated:
			if ts, err := time.Parse(time.RFC3339, attr.Value); err == nil {
				pr.root.TimeGenerated = ts
			}
		default:
			pr.root.ExtraAttributes = append(pr.root.ExtraAttributes, Attribute{Name: attr.Name.Local, Value: attr.Value})
		}
	}
	if pr.root.BaseDictionaryURI == "" {
		return pr.malformedKind(KindMissingRequiredAttribute, nil, RootElement, "root element has no %s", AttrBaseDictionary)
	}
	if pr.root.RecordType == "" {
		return pr.malformedKind(KindMissingRequiredAttribute, nil, RootElement, "root element has no %s", AttrRecordType)
	}
	return nil
}

// =============================================================================
// TOKEN HELPERS
// =============================================================================

func (pr *PatientReader) nextStart() (xml.StartElement, error) {
	for {
		tok, err := pr.dec.Token()
		if err == io.EOF {
			return xml.StartElement{}, io.EOF
		}
		if err != nil {
			return xml.StartElement{}, pr.malformed(err, "", "failed to read document")
		}
		if t, ok := tok.(xml.StartElement); ok {
			return t, nil
		}
	}
}

// token returns the next token; end of input inside an element is an error.
func (pr *PatientReader) token(path string) (xml.Token, error) {
	tok, err := pr.dec.Token()
	if err == io.EOF {
		return nil, pr.malformed(io.ErrUnexpectedEOF, path, "unexpected end of document")
	}
	if err != nil {
		return nil, pr.malformed(err, path, "failed to read document")
	}
	return tok, nil
}

func (pr *PatientReader) skip(path string) error {
	if err := pr.dec.Skip(); err != nil {
		return pr.malformed(err, path, "failed to skip element")
	}
	return nil
}

func (pr *PatientReader) malformed(err error, path, format string, args ...interface{}) *Error {
	return pr.malformedKind(KindMalformedUnderlyingStream, err, path, format, args...)
}

// malformedKind wraps a decoder failure, keeping the decoder's line number.
func (pr *PatientReader) malformedKind(kind Kind, err error, path, format string, args ...interface{}) *Error {
	e := &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Path: path, Err: err}
	var syntax *xml.SyntaxError
	if errors.As(err, &syntax) {
		e.Line = syntax.Line
	} else {
		e.Line, _ = pr.dec.InputPos()
	}
	return e
}
