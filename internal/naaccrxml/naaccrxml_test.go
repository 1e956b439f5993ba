package naaccrxml

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatchesByKind(t *testing.T) {
	err := NewError(KindColumnKeyCollision, "fields %q and %q", "a", "b")
	wrapped := fmt.Errorf("resolving dictionary: %w", err)

	assert.True(t, errors.Is(wrapped, ErrColumnKeyCollision))
	assert.False(t, errors.Is(wrapped, ErrUnsupportedVersion))
	assert.Equal(t, KindColumnKeyCollision, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(io.EOF))
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Kind: KindIOFailure, Message: "failed to read", Line: 7, Path: "NaaccrData/Patient[2]", Err: io.ErrUnexpectedEOF}
	assert.Equal(t, "IOFailure: failed to read (line 7) (path NaaccrData/Patient[2]): unexpected EOF", err.Error())
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	var target *Error
	require.True(t, errors.As(fmt.Errorf("job: %w", err), &target))
	assert.Equal(t, 7, target.Line)
}

func TestWrapIONil(t *testing.T) {
	assert.Nil(t, WrapIO(nil, "ignored"))
}

func TestCleanValue(t *testing.T) {
	assert.Equal(t, "plain & simple", CleanValue("plain & simple"))
	assert.Equal(t, "a\nb\nc", CleanValue("a\r\nb\rc"))
	assert.Equal(t, "ab\tc", CleanValue("a\x00b\tc\x1b"))
}

const sampleDocument = `<?xml version="1.0" encoding="UTF-8"?>

<NaaccrData baseDictionaryUri="http://naaccr.org/naaccrxml/naaccr-dictionary-230.xml"
            userDictionaryUri="http://example.com/a.xml http://example.com/b.xml"
            recordType="I"
            timeGenerated="2024-03-01T10:00:00Z"
            specificationVersion="1.4"
            registryName="Test Registry"
            xmlns="http://naaccr.org/naaccrxml">
    <Item naaccrId="registryId">0000012345</Item>
    <Patient>
        <Item naaccrId="patientIdNumber" naaccrNum="20">00000001</Item>
        <Tumor>
            <Item naaccrId="primarySite">C509</Item>
        </Tumor>
        <Tumor>
            <Item naaccrId="primarySite">C619</Item>
            <Item naaccrId="textRemarks">a &amp; b &lt; c</Item>
        </Tumor>
    </Patient>
    <Patient>
        <Item naaccrId="patientIdNumber">00000002</Item>
        <Tumor/>
    </Patient>
</NaaccrData>`

func TestPatientReader(t *testing.T) {
	reader, err := NewPatientReader(strings.NewReader(sampleDocument))
	require.NoError(t, err)

	root := reader.RootData()
	assert.Equal(t, "http://naaccr.org/naaccrxml/naaccr-dictionary-230.xml", root.BaseDictionaryURI)
	assert.Equal(t, []string{"http://example.com/a.xml", "http://example.com/b.xml"}, root.UserDictionaryURIs)
	assert.Equal(t, "I", root.RecordType)
	assert.Equal(t, "1.4", root.SpecificationVersion)
	assert.Equal(t, 2024, root.TimeGenerated.Year())
	assert.Equal(t, []Attribute{{Name: "registryName", Value: "Test Registry"}}, root.ExtraAttributes)
	assert.Equal(t, []Item{{ID: "registryId", Value: "0000012345"}}, root.Items)

	first, err := reader.ReadPatient()
	require.NoError(t, err)
	assert.Equal(t, []Item{{ID: "patientIdNumber", Num: 20, Value: "00000001"}}, first.Items)
	require.Len(t, first.Tumors, 2)
	v, ok := ItemValue(first.Tumors[1].Items, "textRemarks")
	assert.True(t, ok)
	assert.Equal(t, "a & b < c", v)

	second, err := reader.ReadPatient()
	require.NoError(t, err)
	require.Len(t, second.Tumors, 1)
	assert.Empty(t, second.Tumors[0].Items)

	_, err = reader.ReadPatient()
	assert.Equal(t, io.EOF, err)
	_, err = reader.ReadPatient()
	assert.Equal(t, io.EOF, err)
}

func TestPatientReaderEmptyDocument(t *testing.T) {
	reader, err := NewPatientReader(strings.NewReader(
		`<NaaccrData baseDictionaryUri="u" recordType="A"></NaaccrData>`))
	require.NoError(t, err)
	_, err = reader.ReadPatient()
	assert.Equal(t, io.EOF, err)
}

func TestPatientReaderMissingAttributes(t *testing.T) {
	_, err := NewPatientReader(strings.NewReader(`<NaaccrData recordType="A"></NaaccrData>`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingRequiredAttribute))
}

func TestPatientReaderWrongRoot(t *testing.T) {
	_, err := NewPatientReader(strings.NewReader(`<Other/>`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedUnderlyingStream))
}

func TestPatientReaderSyntaxErrorCarriesLineAndPath(t *testing.T) {
	doc := "<NaaccrData baseDictionaryUri=\"u\" recordType=\"A\">\n" +
		"    <Patient>\n" +
		"        <Tumor>\n" +
		"            <Item naaccrId=\"x\">1</Itm>\n" +
		"        </Tumor>\n" +
		"    </Patient>\n" +
		"</NaaccrData>"

	reader, err := NewPatientReader(strings.NewReader(doc))
	require.NoError(t, err)

	_, err = reader.ReadPatient()
	require.Error(t, err)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, KindMalformedUnderlyingStream, e.Kind)
	assert.Equal(t, 4, e.Line)
	assert.Equal(t, "NaaccrData/Patient[1]/Tumor[1]", e.Path)
}

func TestPatientReaderTruncatedDocument(t *testing.T) {
	reader, err := NewPatientReader(strings.NewReader(
		`<NaaccrData baseDictionaryUri="u" recordType="A"><Patient><Tumor>`))
	require.NoError(t, err)
	_, err = reader.ReadPatient()
	require.Error(t, err)
	assert.Equal(t, KindMalformedUnderlyingStream, KindOf(err))
}
