// =============================================================================
// NAACCR Flat/XML Converter - Dictionary Sources
// =============================================================================
//
// User dictionaries are plain tables with one row per field. Two physical
// formats are accepted:
//   - CSV (.csv or any other extension)
//   - Excel workbooks (.xlsx), first sheet
//
// TABLE STRUCTURE (header names are case-insensitive, any column order):
//
//   | naaccrId        | naaccrNum | length | parentXmlElement |
//   |-----------------|-----------|--------|------------------|
//   | myRegistryField | 9500      | 5      | Tumor            |
//   | primarySite     |           | 6      |                  |  <- override of a base field
//
// Blank cells in an override row leave the base attribute untouched.
//
// =============================================================================

package dictionary

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/csvparser"
)

// =============================================================================
// USER DICTIONARY
// =============================================================================

// Row is one field definition read from a user dictionary. Zero values mean
// "not provided".
type Row struct {
	// ID is the field identifier; always present.
	ID string

	// Number is the legacy item number.
	Number int

	// Length is the flat column width.
	Length int

	// Parent is the raw parent element name.
	Parent string

	// Line is the 1-based row number in the source table.
	Line int
}

// UserDictionary is a site-defined extension/override schema.
type UserDictionary struct {
	// URI identifies the dictionary in the XML root attributes.
	URI string

	// Source is the file the rows were read from, for diagnostics.
	Source string

	// Rows are the field definitions in table order.
	Rows []Row
}

// LoadUserDictionary reads a user dictionary from a CSV or XLSX file.
//
// PARAMETERS:
//   - path: The path to the dictionary table.
//   - uri: The dictionary URI written to the XML root element.
//   - settings: Delimiter and sheet selection for the table.
//
// RETURNS:
//   - The parsed user dictionary.
//   - An error if the file cannot be read or a row is invalid.
func LoadUserDictionary(path, uri string, settings csvparser.Settings) (*UserDictionary, error) {
	rows, err := csvparser.ReadTable(path, settings)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read dictionary %s", path)
	}
	t, err := newTable(rows)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read dictionary %s", path)
	}

	dict, err := t.userDictionary(uri)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid dictionary %s", path)
	}
	dict.Source = path
	return dict, nil
}

// ReadUserDictionary parses a CSV user dictionary from r.
func ReadUserDictionary(r io.Reader, uri string) (*UserDictionary, error) {
	t, err := readCSVTable(r)
	if err != nil {
		return nil, err
	}
	return t.userDictionary(uri)
}

// =============================================================================
// TABLE READING
// =============================================================================

// table is a header-indexed set of rows read from a CSV or XLSX source.
type table struct {
	columns map[string]int
	rows    [][]string
	lines   []int
}

// headerAliases maps normalized header spellings to canonical column keys.
var headerAliases = map[string]string{
	"naaccrid":         "naaccrid",
	"naaccrxmlitemid":  "naaccrid",
	"naaccritemid":     "naaccrid",
	"itemid":           "naaccrid",
	"id":               "naaccrid",
	"naaccrnum":        "naaccrnum",
	"naaccrnumber":     "naaccrnum",
	"itemnumber":       "naaccrnum",
	"number":           "naaccrnum",
	"length":           "length",
	"itemlength":       "length",
	"parentxmlelement": "parentxmlelement",
	"parent":           "parentxmlelement",
	"parentelement":    "parentxmlelement",
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	h = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
	if canonical, ok := headerAliases[h]; ok {
		return canonical
	}
	return h
}

func newTable(records [][]string) (*table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("table is empty")
	}
	t := &table{columns: make(map[string]int)}
	for i, h := range records[0] {
		key := normalizeHeader(h)
		if _, dup := t.columns[key]; !dup {
			t.columns[key] = i
		}
	}
	if _, ok := t.columns["naaccrid"]; !ok {
		return nil, fmt.Errorf("missing naaccrId column")
	}
	for i, row := range records[1:] {
		if csvparser.IsRowEmpty(row) {
			continue
		}
		t.rows = append(t.rows, row)
		t.lines = append(t.lines, i+2)
	}
	return t, nil
}

func readCSVTable(r io.Reader) (*table, error) {
	rows, err := csvparser.ReadAll(r, csvparser.Settings{})
	if err != nil {
		return nil, err
	}
	return newTable(rows)
}

// cell safely returns the trimmed value of a column, "" when absent.
func (t *table) cell(row []string, column string) string {
	i, ok := t.columns[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) intCell(row []string, column string) (int, error) {
	v := t.cell(row, column)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", column, v)
	}
	return n, nil
}

// descriptor builds a complete descriptor; every attribute but the number
// is mandatory.
func (t *table) descriptor(row []string) (FieldDescriptor, error) {
	id := t.cell(row, "naaccrid")
	if id == "" {
		return FieldDescriptor{}, fmt.Errorf("missing naaccrId")
	}
	num, err := t.intCell(row, "naaccrnum")
	if err != nil {
		return FieldDescriptor{}, err
	}
	length, err := t.intCell(row, "length")
	if err != nil {
		return FieldDescriptor{}, err
	}
	if length <= 0 {
		return FieldDescriptor{}, fmt.Errorf("field %s: length must be positive", id)
	}
	parent, err := ParseParentLevel(t.cell(row, "parentxmlelement"))
	if err != nil {
		return FieldDescriptor{}, fmt.Errorf("field %s: %w", id, err)
	}
	return FieldDescriptor{
		ID:          id,
		TruncatedID: TruncateID(id),
		Number:      num,
		Length:      length,
		Parent:      parent,
	}, nil
}

func (t *table) userDictionary(uri string) (*UserDictionary, error) {
	dict := &UserDictionary{URI: uri}
	for i, row := range t.rows {
		line := t.lines[i]
		id := t.cell(row, "naaccrid")
		if id == "" {
			return nil, fmt.Errorf("row %d: missing naaccrId", line)
		}
		num, err := t.intCell(row, "naaccrnum")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		length, err := t.intCell(row, "length")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		parent := t.cell(row, "parentxmlelement")
		if parent != "" {
			if _, err := ParseParentLevel(parent); err != nil {
				return nil, fmt.Errorf("row %d: %w", line, err)
			}
		}
		dict.Rows = append(dict.Rows, Row{ID: id, Number: num, Length: length, Parent: parent, Line: line})
	}
	return dict, nil
}
