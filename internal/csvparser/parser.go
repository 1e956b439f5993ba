// =============================================================================
// NAACCR Flat/XML Converter - CSV Parser Module
// =============================================================================
//
// This module reads the small delimited tables the converter is configured
// with: user dictionaries, item lists and the embedded base catalog. It
// handles:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - Delimiter detection from the header row
//   - A leading UTF-8 byte order mark
//   - Ragged rows and loosely quoted fields
//   - Excel workbooks, through the xlsxparser package (first or named sheet)
//
// Flat data files are NOT read here; they are fixed-width and streamed by the
// flatfile package.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/xlsxparser"
)

// =============================================================================
// SETTINGS
// =============================================================================

// Settings configure how a delimited table is read.
type Settings struct {
	// Delimiter is the field separator.
	// Accepted values: ",", "|", "\t" (or "tab"), ";"
	// Default: detected from the header row
	Delimiter string

	// Sheet is the workbook sheet to read. Ignored for delimited files.
	// Default: the first sheet not starting with "_"
	Sheet string
}

// sniffWindow is how much of the input is inspected to detect the delimiter.
const sniffWindow = 4096

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ReadTable reads every row of a table file.
//
// PARAMETERS:
//   - filePath: A .xlsx workbook or a delimited text file.
//   - settings: Parsing settings for delimited files.
//
// RETURNS:
//   - All rows, header row included.
//   - An error if the file cannot be read or parsed.
func ReadTable(filePath string, settings Settings) ([][]string, error) {
	if xlsxparser.IsWorkbook(filePath) {
		if settings.Sheet != "" {
			return xlsxparser.ReadSheet(filePath, settings.Sheet)
		}
		return xlsxparser.ReadFirstSheet(filePath)
	}
	return Parse(filePath, settings)
}

// Parse reads a delimited text file.
func Parse(filePath string, settings Settings) ([][]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", filePath)
	}
	defer f.Close()

	rows, err := ReadAll(f, settings)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", filePath)
	}
	return rows, nil
}

// ReadAll reads every row of a delimited table from r.
func ReadAll(r io.Reader, settings Settings) ([][]string, error) {
	br := bufio.NewReaderSize(r, sniffWindow)
	head, err := br.Peek(sniffWindow)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}

	reader := csv.NewReader(br)
	configureReader(reader, settings, string(head))

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// configureReader applies settings to the csv.Reader. head is the start of
// the input, used when the delimiter has to be detected.
func configureReader(reader *csv.Reader, settings Settings, head string) {
	switch settings.Delimiter {
	case "":
		reader.Comma = SniffDelimiter(head)
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		reader.Comma = rune(settings.Delimiter[0])
	}

	// Rows may be ragged; missing cells read as empty.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	// Trimming would swallow empty tab-separated cells.
	reader.TrimLeadingSpace = reader.Comma != '\t'
}

// SniffDelimiter picks the delimiter used most in the first line of text.
// Comma wins ties and lines without any candidate.
func SniffDelimiter(text string) rune {
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		text = text[:i]
	}
	best, bestCount := ',', 0
	for _, candidate := range []rune{',', '\t', ';', '|'} {
		if n := strings.Count(text, string(candidate)); n > bestCount {
			best, bestCount = candidate, n
		}
	}
	return best
}

// IsRowEmpty checks if a row contains only empty values.
func IsRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
