// =============================================================================
// NAACCR Flat/XML Converter - XML Writer Module
// =============================================================================
//
// This module streams NAACCR XML documents. One PatientWriter produces one
// document; patients are written one at a time, so only the patient being
// written is held in memory.
//
// XML STRUCTURE:
//
//   <?xml version="1.0" encoding="UTF-8"?>
//
//   <NaaccrData baseDictionaryUri="..." userDictionaryUri="..." recordType="A"
//               timeGenerated="..." specificationVersion="1.6"
//               xmlns="http://naaccr.org/naaccrxml">
//       <Item naaccrId="registryId">0000012345</Item>    <!-- root items -->
//       <Patient>
//           <Item naaccrId="patientIdNumber">00000001</Item>
//           <Tumor>
//               <Item naaccrId="primarySite">C509</Item>
//           </Tumor>
//       </Patient>
//   </NaaccrData>
//
// LIFECYCLE:
//   NewPatientWriter validates the root attributes, then writes the prolog,
//   the root start tag and the root items. WritePatient appends one patient.
//   CloseAndKeepAlive ends the document and leaves the sink open; Close ends
//   the document and closes the sink. Both are idempotent.
//
// =============================================================================

package xmlwriter

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/charset"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/naaccrxml"
)

// =============================================================================
// WRITER OPTIONS
// =============================================================================

// Options contains options for XML generation.
type Options struct {
	// WriteNumbers adds naaccrNum to items that have a legacy number.
	// Default: false
	WriteNumbers bool

	// Encoding is the output character set.
	// Default: "UTF-8"
	Encoding string

	// Indent is the string used for one level of indentation.
	// Default: four spaces
	Indent string

	// Now supplies the generation time when RootData.TimeGenerated is zero.
	// Default: time.Now
	Now func() time.Time
}

// DefaultOptions returns the default generation options.
func DefaultOptions() Options {
	return Options{
		Encoding: charset.UTF8,
		Indent:   "    ",
		Now:      time.Now,
	}
}

func (o *Options) applyDefaults() {
	defaults := DefaultOptions()
	if o.Encoding == "" {
		o.Encoding = defaults.Encoding
	}
	if o.Indent == "" {
		o.Indent = defaults.Indent
	}
	if o.Now == nil {
		o.Now = defaults.Now
	}
}

// =============================================================================
// PATIENT WRITER
// =============================================================================

// PatientWriter writes one NAACCR XML document to an underlying sink. It is
// not safe for concurrent use.
type PatientWriter struct {
	sink      io.Writer
	sinkErr   *errorTracker
	transform io.WriteCloser
	buf       *bufio.Writer
	enc       *xml.Encoder
	options   Options

	patients  int
	tumors    int
	path      []string
	finalized bool
	closed    bool
}

// NewPatientWriter validates root and starts a document on w.
//
// PARAMETERS:
//   - w: The output sink. Close closes it when it implements io.Closer.
//   - root: The document metadata and root items.
//   - options: Generation options; zero fields take their defaults.
//   - userDictionaryURIs: The URIs of the user dictionaries the items were
//     resolved with, if any.
//
// RETURNS:
//   - The writer, positioned after the root items.
//   - MissingRequiredAttribute if the base dictionary URI or the record type
//     is absent; DictionaryUriMismatch if root declares user dictionaries
//     different from userDictionaryURIs. Nothing is written in both cases.
//   - IOFailure if the sink fails.
func NewPatientWriter(w io.Writer, root *naaccrxml.RootData, options Options, userDictionaryURIs ...string) (*PatientWriter, error) {
	options.applyDefaults()

	start, err := rootElement(root, options, userDictionaryURIs)
	if err != nil {
		return nil, err
	}

	tracker := &errorTracker{w: w}
	encName, transformer, err := charset.NewWriter(tracker, options.Encoding)
	if err != nil {
		return nil, err
	}

	pw := &PatientWriter{
		sink:      w,
		sinkErr:   tracker,
		transform: transformer,
		buf:       bufio.NewWriter(transformer),
		options:   options,
		path:      []string{naaccrxml.RootElement},
	}
	pw.enc = xml.NewEncoder(pw.buf)
	pw.enc.Indent("", options.Indent)

	// The prolog goes straight to the buffer: the encoder does not break the
	// line after a ProcInst.
	if _, err := fmt.Fprintf(pw.buf, "<?xml version=\"1.0\" encoding=\"%s\"?>\n\n", encName); err != nil {
		return nil, pw.wrap(err, "failed to write prolog")
	}
	if err := pw.enc.EncodeToken(start); err != nil {
		return nil, pw.wrap(err, "failed to write root element")
	}
	if err := pw.writeItems(root.Items); err != nil {
		return nil, err
	}
	return pw, nil
}

// rootElement builds the root start tag, failing before anything is written.
func rootElement(root *naaccrxml.RootData, options Options, userDictionaryURIs []string) (xml.StartElement, error) {
	start := xml.StartElement{Name: xml.Name{Local: naaccrxml.RootElement}}
	if root == nil {
		return start, naaccrxml.NewError(naaccrxml.KindMissingRequiredAttribute, "root data is required")
	}

	if strings.TrimSpace(root.BaseDictionaryURI) == "" {
		return start, naaccrxml.NewError(naaccrxml.KindMissingRequiredAttribute, "base dictionary URI is required")
	}
	addAttr(&start, naaccrxml.AttrBaseDictionary, root.BaseDictionaryURI)

	if len(userDictionaryURIs) > 0 {
		provided := strings.Join(userDictionaryURIs, " ")
		if declared := strings.Join(root.UserDictionaryURIs, " "); declared != "" && declared != provided {
			return start, naaccrxml.NewError(naaccrxml.KindDictionaryURIMismatch,
				"provided user dictionary URI %q differs from the one declared on the data %q", provided, declared)
		}
		addAttr(&start, naaccrxml.AttrUserDictionary, provided)
	}

	if strings.TrimSpace(root.RecordType) == "" {
		return start, naaccrxml.NewError(naaccrxml.KindMissingRequiredAttribute, "record type is required")
	}
	addAttr(&start, naaccrxml.AttrRecordType, root.RecordType)

	generated := root.TimeGenerated
	if generated.IsZero() {
		generated = options.Now()
	}
	addAttr(&start, naaccrxml.AttrTimeGenerated, generated.Format(time.RFC3339))

	// The library's own version wins over root.SpecificationVersion.
	addAttr(&start, naaccrxml.AttrSpecificationVersion, naaccrxml.SpecificationVersion)
	addAttr(&start, naaccrxml.AttrNamespace, naaccrxml.Namespace)

	for _, attr := range root.ExtraAttributes {
		if attr.Name == "" || naaccrxml.IsStandardAttribute(attr.Name) {
			continue
		}
		addAttr(&start, attr.Name, attr.Value)
	}
	return start, nil
}

func addAttr(start *xml.StartElement, name, value string) {
	start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

// WritePatient appends one patient, its items and its tumors.
func (pw *PatientWriter) WritePatient(patient *naaccrxml.Patient) error {
	if pw.finalized {
		return &naaccrxml.Error{
			Kind:    naaccrxml.KindMalformedUnderlyingStream,
			Message: "cannot write a patient after the document was closed",
			Path:    pw.currentPath(),
		}
	}

	pw.patients++
	pw.push(fmt.Sprintf("%s[%d]", naaccrxml.PatientElement, pw.patients))
	defer pw.truncate(len(pw.path) - 1)

	if err := pw.start(naaccrxml.PatientElement); err != nil {
		return err
	}
	if err := pw.writeItems(patient.Items); err != nil {
		return err
	}
	for i := range patient.Tumors {
		pw.tumors++
		if err := pw.writeTumor(i+1, &patient.Tumors[i]); err != nil {
			return err
		}
	}
	return pw.end(naaccrxml.PatientElement)
}

func (pw *PatientWriter) writeTumor(n int, tumor *naaccrxml.Tumor) error {
	pw.push(fmt.Sprintf("%s[%d]", naaccrxml.TumorElement, n))
	defer pw.truncate(len(pw.path) - 1)

	if err := pw.start(naaccrxml.TumorElement); err != nil {
		return err
	}
	if err := pw.writeItems(tumor.Items); err != nil {
		return err
	}
	return pw.end(naaccrxml.TumorElement)
}

// writeItems writes the non-empty items in the order given.
func (pw *PatientWriter) writeItems(items []naaccrxml.Item) error {
	for _, item := range items {
		if strings.TrimSpace(item.Value) == "" {
			continue
		}
		start := xml.StartElement{Name: xml.Name{Local: naaccrxml.ItemElement}}
		addAttr(&start, naaccrxml.AttrItemID, item.ID)
		if pw.options.WriteNumbers && item.Num > 0 {
			addAttr(&start, naaccrxml.AttrItemNum, strconv.Itoa(item.Num))
		}
		if err := pw.enc.EncodeToken(start); err != nil {
			return pw.wrap(err, "failed to write item %s", item.ID)
		}
		// Text bypasses the encoder, which would also escape quotes and
		// whitespace. The encoder must be flushed first to keep the order.
		if err := pw.enc.Flush(); err != nil {
			return pw.wrap(err, "failed to write item %s", item.ID)
		}
		if _, err := textEscaper.WriteString(pw.buf, naaccrxml.CleanValue(item.Value)); err != nil {
			return pw.wrap(err, "failed to write item %s", item.ID)
		}
		if err := pw.enc.EncodeToken(start.End()); err != nil {
			return pw.wrap(err, "failed to write item %s", item.ID)
		}
	}
	return nil
}

// textEscaper escapes element text. Only the markup characters are replaced;
// quotes, tabs and line breaks are written as they are.
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func (pw *PatientWriter) start(name string) error {
	if err := pw.enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: name}}); err != nil {
		return pw.wrap(err, "failed to open %s", name)
	}
	return nil
}

func (pw *PatientWriter) end(name string) error {
	if err := pw.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}}); err != nil {
		return pw.wrap(err, "failed to close %s", name)
	}
	return nil
}

// Flush pushes everything written so far to the sink. Output in a
// single-byte encoding may keep a few bytes buffered until the document is
// closed.
func (pw *PatientWriter) Flush() error {
	if err := pw.enc.Flush(); err != nil {
		return pw.wrap(err, "failed to flush")
	}
	if err := pw.buf.Flush(); err != nil {
		return pw.wrap(err, "failed to flush")
	}
	return nil
}

// CloseAndKeepAlive ends the document without closing the sink. Calling it
// again is a no-op.
func (pw *PatientWriter) CloseAndKeepAlive() error {
	if pw.finalized {
		return nil
	}
	pw.finalized = true

	if err := pw.end(naaccrxml.RootElement); err != nil {
		return err
	}
	if err := pw.Flush(); err != nil {
		return err
	}
	if err := pw.transform.Close(); err != nil {
		return pw.wrap(err, "failed to flush")
	}
	return nil
}

// Close ends the document and closes the sink if it is an io.Closer.
// Calling it again is a no-op.
func (pw *PatientWriter) Close() error {
	if pw.closed {
		return nil
	}
	err := pw.CloseAndKeepAlive()
	pw.closed = true
	if c, ok := pw.sink.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = naaccrxml.WrapIO(cerr, "failed to close output")
		}
	}
	return err
}

// Patients returns the number of patients written so far.
func (pw *PatientWriter) Patients() int { return pw.patients }

// Tumors returns the number of tumors written so far.
func (pw *PatientWriter) Tumors() int { return pw.tumors }

// =============================================================================
// ERROR TRANSLATION
// =============================================================================

// errorTracker remembers the first failure of the sink so encoder errors can
// be told apart from I/O errors.
type errorTracker struct {
	w   io.Writer
	err error
}

func (t *errorTracker) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil && t.err == nil {
		t.err = err
	}
	return n, err
}

// wrap translates a failure into the converter's error type: IOFailure when
// the sink failed, MalformedUnderlyingStream otherwise.
func (pw *PatientWriter) wrap(err error, format string, args ...interface{}) error {
	kind := naaccrxml.KindMalformedUnderlyingStream
	if pw.sinkErr.err != nil {
		kind = naaccrxml.KindIOFailure
	}
	return &naaccrxml.Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Path:    pw.currentPath(),
		Err:     err,
	}
}

func (pw *PatientWriter) push(step string) { pw.path = append(pw.path, step) }

// truncate drops the path steps pushed after the first n.
func (pw *PatientWriter) truncate(n int) { pw.path = pw.path[:n] }

func (pw *PatientWriter) currentPath() string { return strings.Join(pw.path, "/") }
