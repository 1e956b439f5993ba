// =============================================================================
// NAACCR Flat/XML Converter - Field Selector
// =============================================================================
//
// The selector narrows a runtime dictionary to the fields a job asked for.
// The request comes either as a literal list ("patientIdNumber, primarySite")
// or as an item file: a CSV, tab-separated or XLSX table with an arbitrary
// header row whose FIRST column holds field identifiers.
//
// RULES:
//   - No request: every field is active.
//   - A request keeps only the listed fields, in DICTIONARY order.
//   - Unknown identifiers are ignored.
//
// =============================================================================

package selector

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/csvparser"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/dictionary"
)

// Select returns the active field set: the fields of dict whose id is in ids,
// in dictionary declaration order. An empty request selects every field.
func Select(dict *dictionary.Dictionary, ids []string) []dictionary.FieldDescriptor {
	fields := dict.Fields()
	if len(ids) == 0 {
		return fields
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[strings.TrimSpace(id)] = true
	}

	active := make([]dictionary.FieldDescriptor, 0, len(ids))
	for _, f := range fields {
		if wanted[f.ID] {
			active = append(active, f)
		}
	}
	return active
}

// Unknown returns the requested identifiers that dict does not define, in
// request order. Callers use it for diagnostics only.
func Unknown(dict *dictionary.Dictionary, ids []string) []string {
	var unknown []string
	for _, id := range ids {
		if _, ok := dict.Field(strings.TrimSpace(id)); !ok {
			unknown = append(unknown, id)
		}
	}
	return unknown
}

// =============================================================================
// REQUEST PARSING
// =============================================================================

// ParseList splits a literal item list on commas, semicolons and whitespace.
func ParseList(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
}

// ReadItemFile reads the identifiers listed in the first column of an item
// file, skipping the header row and blank cells.
//
// PARAMETERS:
//   - path: A .xlsx workbook or a delimited text file.
//   - settings: Delimiter and sheet selection for the table.
//
// RETURNS:
//   - The identifiers in file order.
//   - An error if the file cannot be read.
func ReadItemFile(path string, settings csvparser.Settings) ([]string, error) {
	rows, err := csvparser.ReadTable(path, settings)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read item file %s", path)
	}
	return firstColumn(rows), nil
}

func firstColumn(rows [][]string) []string {
	if len(rows) <= 1 {
		return nil
	}
	ids := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		if id := strings.TrimSpace(row[0]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
