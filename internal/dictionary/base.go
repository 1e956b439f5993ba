package dictionary

import (
	"bytes"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/naaccrxml"
)

// =============================================================================
// SUPPORTED VERSIONS AND RECORD TYPES
// =============================================================================

// SupportedVersions lists the standard versions a base dictionary exists for.
var SupportedVersions = []string{"140", "150", "160", "180", "210", "220", "230"}

// RecordTypes lists the record type tokens:
// A (abstract), M (modified), C (confidential), I (incidence).
var RecordTypes = []string{"A", "M", "C", "I"}

// BaseDictionaryURIPrefix and suffix frame the version in a base dictionary URI.
const (
	BaseDictionaryURIPrefix = "http://naaccr.org/naaccrxml/naaccr-dictionary-"
	BaseDictionaryURISuffix = ".xml"
)

// BaseDictionaryURI returns the URI of the base dictionary for a version.
func BaseDictionaryURI(version string) string {
	return BaseDictionaryURIPrefix + version + BaseDictionaryURISuffix
}

// VersionFromURI extracts the version token from a base dictionary URI.
func VersionFromURI(uri string) (string, bool) {
	if !strings.HasPrefix(uri, BaseDictionaryURIPrefix) || !strings.HasSuffix(uri, BaseDictionaryURISuffix) {
		return "", false
	}
	v := strings.TrimSuffix(strings.TrimPrefix(uri, BaseDictionaryURIPrefix), BaseDictionaryURISuffix)
	return v, v != ""
}

// ValidateVersion fails with UnsupportedVersion unless version is supported.
func ValidateVersion(version string) error {
	for _, v := range SupportedVersions {
		if v == version {
			return nil
		}
	}
	return naaccrxml.NewError(naaccrxml.KindUnsupportedVersion,
		"NAACCR version must be one of %s; got %q", strings.Join(SupportedVersions, ", "), version)
}

// ValidateRecordType fails with UnsupportedRecordType unless recordType is known.
func ValidateRecordType(recordType string) error {
	for _, r := range RecordTypes {
		if r == recordType {
			return nil
		}
	}
	return naaccrxml.NewError(naaccrxml.KindUnsupportedRecordType,
		"record type must be one of %s; got %q", strings.Join(RecordTypes, ", "), recordType)
}

// =============================================================================
// EMBEDDED BASE CATALOG
// =============================================================================

//go:embed data/naaccr-items.csv
var baseCatalog []byte

// catalogRow is one item of the embedded catalog.
type catalogRow struct {
	field        FieldDescriptor
	recordTypes  string
	firstVersion int
	lastVersion  int // 0 = still current
}

var (
	catalogOnce sync.Once
	catalogRows []catalogRow
	catalogErr  error
)

func loadCatalog() ([]catalogRow, error) {
	catalogOnce.Do(func() {
		t, err := readCSVTable(bytes.NewReader(baseCatalog))
		if err != nil {
			catalogErr = fmt.Errorf("failed to read base catalog: %w", err)
			return
		}
		for i, row := range t.rows {
			field, err := t.descriptor(row)
			if err != nil {
				catalogErr = fmt.Errorf("base catalog row %d: %w", t.lines[i], err)
				return
			}
			cr := catalogRow{field: field, recordTypes: t.cell(row, "recordtypes")}
			if cr.firstVersion, err = strconv.Atoi(t.cell(row, "firstversion")); err != nil {
				catalogErr = fmt.Errorf("base catalog row %d: invalid firstVersion: %w", t.lines[i], err)
				return
			}
			if last := t.cell(row, "lastversion"); last != "" {
				if cr.lastVersion, err = strconv.Atoi(last); err != nil {
					catalogErr = fmt.Errorf("base catalog row %d: invalid lastVersion: %w", t.lines[i], err)
					return
				}
			}
			catalogRows = append(catalogRows, cr)
		}
	})
	return catalogRows, catalogErr
}

// LoadBase builds the base dictionary for (version, recordType): every
// catalog item whose version range covers version and whose record types
// include recordType, in catalog order.
func LoadBase(version, recordType string) (*Dictionary, error) {
	if err := ValidateVersion(version); err != nil {
		return nil, err
	}
	if err := ValidateRecordType(recordType); err != nil {
		return nil, err
	}

	rows, err := loadCatalog()
	if err != nil {
		return nil, err
	}

	v, _ := strconv.Atoi(version)
	dict := newDictionary()
	dict.BaseURI = BaseDictionaryURI(version)
	dict.Version = version
	dict.RecordType = recordType

	for _, row := range rows {
		if v < row.firstVersion || (row.lastVersion > 0 && v > row.lastVersion) {
			continue
		}
		if !strings.Contains(row.recordTypes, recordType) {
			continue
		}
		if other, exists := dict.FieldByTruncatedID(row.field.TruncatedID); exists {
			return nil, naaccrxml.NewError(naaccrxml.KindColumnKeyCollision,
				"base fields %q and %q share column key %q", other.ID, row.field.ID, row.field.TruncatedID)
		}
		dict.add(row.field)
	}

	return dict, nil
}
