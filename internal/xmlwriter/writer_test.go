package xmlwriter

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/naaccrxml"
)

var fixedTime = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func testOptions() Options {
	return Options{Now: func() time.Time { return fixedTime }}
}

func testRoot() *naaccrxml.RootData {
	return &naaccrxml.RootData{
		BaseDictionaryURI: "http://naaccr.org/naaccrxml/naaccr-dictionary-230.xml",
		RecordType:        "A",
		Items:             []naaccrxml.Item{{ID: "registryId", Num: 40, Value: "0000012345"}},
	}
}

func samplePatient() *naaccrxml.Patient {
	return &naaccrxml.Patient{
		Items: []naaccrxml.Item{
			{ID: "patientIdNumber", Num: 20, Value: "00000001"},
			{ID: "nameLast", Num: 2230, Value: "   "},
		},
		Tumors: []naaccrxml.Tumor{
			{Items: []naaccrxml.Item{{ID: "primarySite", Num: 400, Value: "C509"}}},
			{Items: []naaccrxml.Item{{ID: "textRemarks", Value: "a & b <c>"}}},
		},
	}
}

func TestWriteDocument(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewPatientWriter(&buf, testRoot(), testOptions())
	require.NoError(t, err)
	require.NoError(t, w.WritePatient(samplePatient()))
	require.NoError(t, w.Close())

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n\n<NaaccrData "))
	assert.Contains(t, out, `baseDictionaryUri="http://naaccr.org/naaccrxml/naaccr-dictionary-230.xml" recordType="A" timeGenerated="2024-05-06T07:08:09Z" specificationVersion="1.6" xmlns="http://naaccr.org/naaccrxml"`)
	assert.Contains(t, out, "\n    <Item naaccrId=\"registryId\">0000012345</Item>\n    <Patient>\n")
	assert.Contains(t, out, "\n        <Item naaccrId=\"patientIdNumber\">00000001</Item>\n")
	assert.Contains(t, out, "\n            <Item naaccrId=\"primarySite\">C509</Item>\n")
	assert.Contains(t, out, "a &amp; b &lt;c&gt;")
	assert.NotContains(t, out, "nameLast", "blank values are never written")
	assert.NotContains(t, out, "naaccrNum")
	assert.True(t, strings.HasSuffix(out, "\n    </Patient>\n</NaaccrData>"))
	assert.NotContains(t, out, "userDictionaryUri")

	assert.Equal(t, 1, w.Patients())
	assert.Equal(t, 2, w.Tumors())
}

func TestWriteNumbers(t *testing.T) {
	var buf bytes.Buffer
	opts := testOptions()
	opts.WriteNumbers = true
	w, err := NewPatientWriter(&buf, testRoot(), opts)
	require.NoError(t, err)
	require.NoError(t, w.WritePatient(samplePatient()))
	require.NoError(t, w.Close())

	out := buf.String()
	assert.Contains(t, out, `<Item naaccrId="primarySite" naaccrNum="400">C509</Item>`)
	assert.Contains(t, out, `<Item naaccrId="textRemarks">`, "items without a legacy number get no naaccrNum")
}

func TestRoundTripThroughReader(t *testing.T) {
	var buf bytes.Buffer
	root := testRoot()
	root.ExtraAttributes = []naaccrxml.Attribute{{Name: "registryName", Value: "R & D"}, {Name: "xmlns", Value: "http://other"}}
	w, err := NewPatientWriter(&buf, root, testOptions(), "http://example.com/user.xml")
	require.NoError(t, err)
	require.NoError(t, w.WritePatient(samplePatient()))
	require.NoError(t, w.Close())

	reader, err := naaccrxml.NewPatientReader(&buf)
	require.NoError(t, err)
	got := reader.RootData()
	assert.Equal(t, root.BaseDictionaryURI, got.BaseDictionaryURI)
	assert.Equal(t, []string{"http://example.com/user.xml"}, got.UserDictionaryURIs)
	assert.Equal(t, naaccrxml.SpecificationVersion, got.SpecificationVersion)
	assert.True(t, fixedTime.Equal(got.TimeGenerated))
	assert.Equal(t, []naaccrxml.Attribute{{Name: "registryName", Value: "R & D"}}, got.ExtraAttributes)

	patient, err := reader.ReadPatient()
	require.NoError(t, err)
	require.Len(t, patient.Tumors, 2)
	v, _ := naaccrxml.ItemValue(patient.Tumors[1].Items, "textRemarks")
	assert.Equal(t, "a & b <c>", v)
	_, err = reader.ReadPatient()
	assert.Equal(t, io.EOF, err)
}

func TestSpecificationVersionIsForced(t *testing.T) {
	var buf bytes.Buffer
	root := testRoot()
	root.SpecificationVersion = "1.0"
	w, err := NewPatientWriter(&buf, root, testOptions())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Contains(t, buf.String(), `specificationVersion="1.6"`)
	assert.NotContains(t, buf.String(), `specificationVersion="1.0"`)
}

func TestMissingRequiredAttributesWriteNothing(t *testing.T) {
	var buf bytes.Buffer

	root := testRoot()
	root.BaseDictionaryURI = ""
	_, err := NewPatientWriter(&buf, root, testOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, naaccrxml.ErrMissingRequiredAttribute))

	root = testRoot()
	root.RecordType = ""
	_, err = NewPatientWriter(&buf, root, testOptions())
	assert.True(t, errors.Is(err, naaccrxml.ErrMissingRequiredAttribute))

	assert.Zero(t, buf.Len())
}

func TestDictionaryURIMismatch(t *testing.T) {
	var buf bytes.Buffer
	root := testRoot()
	root.UserDictionaryURIs = []string{"http://example.com/declared.xml"}

	_, err := NewPatientWriter(&buf, root, testOptions(), "http://example.com/provided.xml")
	require.Error(t, err)
	assert.Equal(t, naaccrxml.KindDictionaryURIMismatch, naaccrxml.KindOf(err))
	assert.Contains(t, err.Error(), "declared.xml")
	assert.Contains(t, err.Error(), "provided.xml")
	assert.Zero(t, buf.Len())

	_, err = NewPatientWriter(&buf, root, testOptions(), "http://example.com/declared.xml")
	assert.NoError(t, err)
}

type closeRecorder struct {
	bytes.Buffer
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func TestCloseLifecycle(t *testing.T) {
	sink := &closeRecorder{}
	w, err := NewPatientWriter(sink, testRoot(), testOptions())
	require.NoError(t, err)

	require.NoError(t, w.CloseAndKeepAlive())
	require.NoError(t, w.CloseAndKeepAlive())
	assert.Equal(t, 0, sink.closed)
	assert.Equal(t, 1, strings.Count(sink.String(), "</NaaccrData>"))

	sink.WriteString("\n<!-- trailer -->")

	err = w.WritePatient(samplePatient())
	assert.Equal(t, naaccrxml.KindMalformedUnderlyingStream, naaccrxml.KindOf(err))

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Equal(t, 1, sink.closed)
	assert.Equal(t, 1, strings.Count(sink.String(), "</NaaccrData>"))
}

func TestEmptyDocumentIsWellFormed(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewPatientWriter(&buf, &naaccrxml.RootData{BaseDictionaryURI: "u", RecordType: "I"}, testOptions())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	reader, err := naaccrxml.NewPatientReader(&buf)
	require.NoError(t, err)
	_, err = reader.ReadPatient()
	assert.Equal(t, io.EOF, err)
}

func TestLatin1Output(t *testing.T) {
	var buf bytes.Buffer
	opts := testOptions()
	opts.Encoding = "ISO-8859-1"
	w, err := NewPatientWriter(&buf, testRoot(), opts)
	require.NoError(t, err)
	require.NoError(t, w.WritePatient(&naaccrxml.Patient{
		Items:  []naaccrxml.Item{{ID: "nameLast", Value: "Muñoz€"}},
		Tumors: []naaccrxml.Tumor{{}},
	}))
	require.NoError(t, w.Close())

	out := buf.Bytes()
	assert.True(t, bytes.HasPrefix(out, []byte(`<?xml version="1.0" encoding="ISO-8859-1"?>`)))
	assert.True(t, bytes.Contains(out, []byte{'M', 'u', 0xF1, 'o', 'z', '?'}))

	reader, err := naaccrxml.NewPatientReader(bytes.NewReader(out))
	require.NoError(t, err)
	patient, err := reader.ReadPatient()
	require.NoError(t, err)
	v, _ := naaccrxml.ItemValue(patient.Items, "nameLast")
	assert.Equal(t, "Muñoz?", v)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestSinkFailureIsIOFailure(t *testing.T) {
	w, err := NewPatientWriter(failingWriter{}, testRoot(), testOptions())
	require.NoError(t, err, "nothing reaches the sink before the first flush")

	err = w.CloseAndKeepAlive()
	require.Error(t, err)
	assert.True(t, errors.Is(err, naaccrxml.ErrIOFailure))
}

func TestItemTextEscapesMarkupOnly(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewPatientWriter(&buf, testRoot(), testOptions())
	require.NoError(t, err)
	require.NoError(t, w.WritePatient(&naaccrxml.Patient{
		Items: []naaccrxml.Item{{ID: "nameLast", Value: "O'Brien \"Jr\"\tA&B <x>\r\ny"}},
	}))
	require.NoError(t, w.Close())

	out := buf.String()
	assert.Contains(t, out, "\n        <Item naaccrId=\"nameLast\">O'Brien \"Jr\"\tA&amp;B &lt;x&gt;\ny</Item>\n    </Patient>")
	assert.NotContains(t, out, "&#")

	reader, err := naaccrxml.NewPatientReader(strings.NewReader(out))
	require.NoError(t, err)
	patient, err := reader.ReadPatient()
	require.NoError(t, err)
	v, _ := naaccrxml.ItemValue(patient.Items, "nameLast")
	assert.Equal(t, "O'Brien \"Jr\"\tA&B <x>\ny", v)
}

func TestFailedPatientDoesNotLeaveItsPath(t *testing.T) {
	w, err := NewPatientWriter(failingWriter{}, testRoot(), testOptions())
	require.NoError(t, err)

	err = w.WritePatient(&naaccrxml.Patient{
		Tumors: []naaccrxml.Tumor{
			{Items: []naaccrxml.Item{{ID: "textRemarks", Value: strings.Repeat("x", 3*4096)}}},
		},
	})
	var first *naaccrxml.Error
	require.True(t, errors.As(err, &first))
	assert.Equal(t, "NaaccrData/Patient[1]/Tumor[1]", first.Path)

	err = w.Flush()
	var second *naaccrxml.Error
	require.True(t, errors.As(err, &second))
	assert.Equal(t, "NaaccrData", second.Path)
	assert.True(t, errors.Is(err, naaccrxml.ErrIOFailure))
}
