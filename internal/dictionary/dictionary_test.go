package dictionary

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/csvparser"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/naaccrxml"
)

func TestResolveAllSupportedPairs(t *testing.T) {
	for _, version := range SupportedVersions {
		for _, recordType := range RecordTypes {
			t.Run(version+recordType, func(t *testing.T) {
				dict, err := Resolve(version, recordType)
				require.NoError(t, err)
				require.NotZero(t, dict.Len())
				assert.Equal(t, BaseDictionaryURI(version), dict.BaseURI)
				assert.Empty(t, dict.UserURIs)

				seen := make(map[string]bool)
				for _, f := range dict.Fields() {
					assert.False(t, seen[f.TruncatedID], "duplicate column key %s", f.TruncatedID)
					seen[f.TruncatedID] = true
					assert.True(t, strings.HasPrefix(f.ID, f.TruncatedID))
					assert.LessOrEqual(t, len(f.TruncatedID), MaxTruncatedIDLength)
					assert.Positive(t, f.Length)
				}
			})
		}
	}
}

func TestResolveUnsupported(t *testing.T) {
	_, err := Resolve("999", "A")
	require.Error(t, err)
	assert.True(t, errors.Is(err, naaccrxml.ErrUnsupportedVersion))

	_, err = Resolve("230", "X")
	require.Error(t, err)
	assert.Equal(t, naaccrxml.KindUnsupportedRecordType, naaccrxml.KindOf(err))
}

func TestBaseVersionRanges(t *testing.T) {
	v160, err := LoadBase("160", "A")
	require.NoError(t, err)
	_, ok := v160.Field("grade")
	assert.True(t, ok)
	_, ok = v160.Field("gradeClinical")
	assert.False(t, ok)

	v230, err := LoadBase("230", "A")
	require.NoError(t, err)
	_, ok = v230.Field("tnmPathT")
	assert.False(t, ok)
	_, ok = v230.Field("rxSummSurgPrimSite2023")
	assert.True(t, ok)
}

func TestBaseRecordTypes(t *testing.T) {
	incidence, err := LoadBase("230", "I")
	require.NoError(t, err)
	_, ok := incidence.Field("nameLast")
	assert.False(t, ok, "confidential items are not part of incidence records")

	abstract, err := LoadBase("230", "A")
	require.NoError(t, err)
	f, ok := abstract.Field("nameLast")
	require.True(t, ok)
	assert.Equal(t, LevelPatient, f.Parent)
}

func TestVersionFromURI(t *testing.T) {
	v, ok := VersionFromURI(BaseDictionaryURI("210"))
	assert.True(t, ok)
	assert.Equal(t, "210", v)

	_, ok = VersionFromURI("http://example.com/other.xml")
	assert.False(t, ok)
}

func TestMergeOverridesLength(t *testing.T) {
	user, err := ReadUserDictionary(strings.NewReader("naaccrId,length\nprimarySite,6\n"), "http://example.com/user.xml")
	require.NoError(t, err)

	dict, err := Resolve("230", "A", user)
	require.NoError(t, err)

	f, ok := dict.Field("primarySite")
	require.True(t, ok)
	assert.Equal(t, 6, f.Length)
	assert.Equal(t, 400, f.Number)
	assert.Equal(t, LevelTumor, f.Parent)
	assert.Equal(t, []string{"http://example.com/user.xml"}, dict.UserURIs)

	base, err := LoadBase("230", "A")
	require.NoError(t, err)
	f, _ = base.Field("primarySite")
	assert.Equal(t, 4, f.Length, "base dictionary must not be mutated")
}

func TestMergeKeepsDeclarationOrder(t *testing.T) {
	user, err := ReadUserDictionary(strings.NewReader(
		"naaccrId,naaccrNum,length,parentXmlElement\n"+
			"myRegistryField,9500,5,Tumor\n"+
			"sex,,2,\n"), "u")
	require.NoError(t, err)

	dict, err := Resolve("230", "A", user)
	require.NoError(t, err)

	fields := dict.Fields()
	last := fields[len(fields)-1]
	assert.Equal(t, "myRegistryField", last.ID)
	assert.Equal(t, 9500, last.Number)

	base, _ := LoadBase("230", "A")
	baseFields := base.Fields()
	for i := range baseFields {
		assert.Equal(t, baseFields[i].ID, fields[i].ID)
	}
	sex, _ := dict.Field("sex")
	assert.Equal(t, 2, sex.Length)
}

func TestMergeLastUserDictionaryWins(t *testing.T) {
	first, err := ReadUserDictionary(strings.NewReader("naaccrId,length,parentXmlElement\nprimarySite,6,Patient\n"), "first")
	require.NoError(t, err)
	second, err := ReadUserDictionary(strings.NewReader("naaccrId,length\nprimarySite,7\n"), "second")
	require.NoError(t, err)

	dict, err := Resolve("230", "A", first, second)
	require.NoError(t, err)

	f, _ := dict.Field("primarySite")
	assert.Equal(t, 7, f.Length)
	assert.Equal(t, LevelPatient, f.Parent, "attributes the later dictionary leaves blank are kept")
	assert.Equal(t, []string{"first", "second"}, dict.UserURIs)

	dict, err = Resolve("230", "A", second, first)
	require.NoError(t, err)
	f, _ = dict.Field("primarySite")
	assert.Equal(t, 6, f.Length)
}

func TestMergeColumnKeyCollision(t *testing.T) {
	longID := "abcdefghijklmnopqrstuvwxyzABCDEF"
	user, err := ReadUserDictionary(strings.NewReader(
		"naaccrId,length,parentXmlElement\n"+
			longID+"1,2,Tumor\n"+
			longID+"2,2,Tumor\n"), "u")
	require.NoError(t, err)

	_, err = Resolve("230", "A", user)
	require.Error(t, err)
	assert.True(t, errors.Is(err, naaccrxml.ErrColumnKeyCollision))
	assert.Contains(t, err.Error(), longID+"1")
	assert.Contains(t, err.Error(), longID+"2")
}

func TestMergeNewFieldRequiresLengthAndParent(t *testing.T) {
	user, err := ReadUserDictionary(strings.NewReader("naaccrId,length\nbrandNew,3\n"), "u")
	require.NoError(t, err)
	_, err = Resolve("230", "A", user)
	assert.Error(t, err)

	user, err = ReadUserDictionary(strings.NewReader("naaccrId,parentXmlElement\nbrandNew,Tumor\n"), "u")
	require.NoError(t, err)
	_, err = Resolve("230", "A", user)
	assert.Error(t, err)
}

func TestReadUserDictionaryRejectsBadRows(t *testing.T) {
	_, err := ReadUserDictionary(strings.NewReader("length\n3\n"), "u")
	assert.Error(t, err)

	_, err = ReadUserDictionary(strings.NewReader("naaccrId,length\nx,abc\n"), "u")
	assert.Error(t, err)

	_, err = ReadUserDictionary(strings.NewReader("naaccrId,parent\nx,Registry\n"), "u")
	assert.Error(t, err)
}

func TestLoadUserDictionaryXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"NAACCR Item ID", "Length", "Parent XML Element"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"myXlsxField", 4, "Patient"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	user, err := LoadUserDictionary(path, "http://example.com/xlsx.xml", csvparser.Settings{})
	require.NoError(t, err)
	require.Len(t, user.Rows, 1)
	assert.Equal(t, Row{ID: "myXlsxField", Length: 4, Parent: "Patient", Line: 2}, user.Rows[0])
	assert.Equal(t, path, user.Source)

	dict, err := Resolve("230", "A", user)
	require.NoError(t, err)
	field, ok := dict.Field("myXlsxField")
	require.True(t, ok)
	assert.Equal(t, LevelPatient, field.Parent)
}

func TestLoadUserDictionaryWithDelimiter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.txt")
	// A colon is never detected, so it has to be named.
	content := "naaccrId:length:description\nmyField:3:a, b, c, d\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	user, err := LoadUserDictionary(path, "u", csvparser.Settings{Delimiter: ":"})
	require.NoError(t, err)
	require.Len(t, user.Rows, 1)
	assert.Equal(t, "myField", user.Rows[0].ID)
	assert.Equal(t, 3, user.Rows[0].Length)

	_, err = LoadUserDictionary(path, "u", csvparser.Settings{})
	assert.Error(t, err)
}

func TestParseParentLevel(t *testing.T) {
	for in, want := range map[string]ParentLevel{
		"NaaccrData": LevelRoot,
		"root":       LevelRoot,
		"PATIENT":    LevelPatient,
		" Tumor ":    LevelTumor,
	} {
		got, err := ParseParentLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseParentLevel("Item")
	assert.Error(t, err)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "short", TruncateID("short"))
	long := strings.Repeat("x", 40)
	assert.Len(t, TruncateID(long), MaxTruncatedIDLength)
}
