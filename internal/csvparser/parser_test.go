package csvparser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadAllDetectsDelimiter(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{"comma", "a,b\n1,2\n", [][]string{{"a", "b"}, {"1", "2"}}},
		{"tab", "a\tb\n1\t\n", [][]string{{"a", "b"}, {"1", ""}}},
		{"semicolon", "a;b\n1;2\n", [][]string{{"a", "b"}, {"1", "2"}}},
		{"pipe", "a|b\n1|2\n", [][]string{{"a", "b"}, {"1", "2"}}},
		{"single column", "a\n1\n", [][]string{{"a"}, {"1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadAll(strings.NewReader(tt.input), Settings{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadAllExplicitDelimiter(t *testing.T) {
	got, err := ReadAll(strings.NewReader("a,b|c\n1,2|3\n"), Settings{Delimiter: "pipe"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a,b", "c"}, {"1,2", "3"}}, got)
}

func TestReadAllStripsByteOrderMarkAndAllowsRaggedRows(t *testing.T) {
	got, err := ReadAll(strings.NewReader("\ufeffnaaccrId,length\nsex\nprimarySite, 4,extra\n"), Settings{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"naaccrId", "length"}, {"sex"}, {"primarySite", "4", "extra"}}, got)
}

func TestReadTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "items.txt")
	require.NoError(t, os.WriteFile(path, []byte("id\tnote\nsex\tx\n"), 0o644))

	got, err := ReadTable(path, Settings{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"id", "note"}, {"sex", "x"}}, got)

	_, err = ReadTable(filepath.Join(dir, "missing.csv"), Settings{})
	assert.Error(t, err)
}

func TestReadTableNamedSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "first"))
	_, err := f.NewSheet("Site")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Site", "A1", &[]interface{}{"naaccrId"}))
	require.NoError(t, f.SetSheetRow("Site", "A2", &[]interface{}{"primarySite"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	got, err := ReadTable(path, Settings{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"first"}}, got)

	got, err = ReadTable(path, Settings{Sheet: "Site"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"naaccrId"}, {"primarySite"}}, got)

	_, err = ReadTable(path, Settings{Sheet: "Missing"})
	assert.Error(t, err)
}

func TestIsRowEmpty(t *testing.T) {
	assert.True(t, IsRowEmpty(nil))
	assert.True(t, IsRowEmpty([]string{"", "  ", "\t"}))
	assert.False(t, IsRowEmpty([]string{"", "x"}))
}
