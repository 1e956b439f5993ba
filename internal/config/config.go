// =============================================================================
// NAACCR Flat/XML Converter - Configuration Module
// =============================================================================
//
// This module loads the job settings file. A job file describes one
// conversion: which dictionary to resolve, which fields to keep, and where
// the flat file, the XML file and the layout descriptor live.
//
// EXAMPLE:
//
//	naaccr_version: "230"
//	record_type: A
//	flat_file: ./input/registry.txt
//	xml_file: ./output/registry.xml
//	items: [patientIdNumber, primarySite, dateOfDiagnosis]
//	dictionaries:
//	  - path: ./dictionaries/state.csv
//	    uri: http://example.org/state-dictionary.xml
//	group_tumors: true
//
// PRECEDENCE:
//   Built-in defaults < job file < command line flags. Flags are applied by
//   the cmd package after Load; Validate is run once everything is merged.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/charset"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/converter"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/csvparser"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/dictionary"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/grouping"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/selector"
)

// =============================================================================
// JOB CONFIGURATION STRUCTURE
// =============================================================================

// Job holds the settings of a conversion job.
type Job struct {
	// =========================================================================
	// DICTIONARY SETTINGS
	// =========================================================================

	// NaaccrVersion is the NAACCR version of the base dictionary.
	// Valid values: "140", "150", "160", "180", "210", "220", "230"
	NaaccrVersion string `yaml:"naaccr_version"`

	// RecordType is the flat record type.
	// Valid values: "A", "M", "C", "I"
	RecordType string `yaml:"record_type"`

	// Dictionaries are the user dictionaries merged over the base, in order.
	// The last one wins when two define the same item.
	Dictionaries []DictionarySource `yaml:"dictionaries"`

	// =========================================================================
	// FILE SETTINGS
	// =========================================================================

	// FlatFile is the fixed-width input (or output for to-flat).
	FlatFile string `yaml:"flat_file"`

	// FlatFileIsTemporary marks the flat file as owned by the job, so it is
	// removed with the other artifacts when cleanup is enabled.
	// Default: false
	FlatFileIsTemporary bool `yaml:"flat_file_is_temporary"`

	// XMLFile is the NAACCR XML output (or input for to-flat).
	// Default: the flat file name with a .xml extension
	XMLFile string `yaml:"xml_file"`

	// FormatFile is where the layout descriptor is written. Empty skips it.
	FormatFile string `yaml:"format_file"`

	// WarningsLog is the optional file listing every line-length warning.
	WarningsLog string `yaml:"warnings_log"`

	// =========================================================================
	// FIELD SELECTION
	// =========================================================================

	// Items lists the item identifiers to keep. Empty keeps every item.
	Items []string `yaml:"items"`

	// ItemsFile is a CSV or XLSX file whose first column lists more items.
	ItemsFile string `yaml:"items_file"`

	// ItemsSheet is the workbook sheet of ItemsFile.
	// Default: the first sheet
	ItemsSheet string `yaml:"items_sheet"`

	// ItemsDelimiter is the field separator of a delimited ItemsFile.
	// Default: detected from the header row
	ItemsDelimiter string `yaml:"items_delimiter"`

	// =========================================================================
	// CONVERSION SETTINGS
	// =========================================================================

	// WriteNumbers adds naaccrNum attributes to every Item.
	// Default: false
	WriteNumbers bool `yaml:"write_numbers"`

	// GroupTumors merges consecutive lines of one patient.
	// Default: true
	GroupTumors *bool `yaml:"group_tumors"`

	// PatientKeyField is the item linking the tumors of one patient.
	// Default: "patientIdNumber"
	PatientKeyField string `yaml:"patient_key_field"`

	// InputEncoding is the character set of flat files.
	// Valid values: "UTF-8", "ISO-8859-1", "windows-1252"
	// Default: "UTF-8"
	InputEncoding string `yaml:"input_encoding"`

	// OutputEncoding is the character set of the XML document.
	// Default: "UTF-8"
	OutputEncoding string `yaml:"output_encoding"`

	// Cleanup removes the job artifacts once the job is done.
	// Default: true
	Cleanup *bool `yaml:"cleanup"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of flat files converted at once.
	// Set to 1 for sequential processing.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFile is an optional file receiving the log in addition to stderr.
	LogFile string `yaml:"log_file"`
}

// DictionarySource names one user dictionary file and the URI it is known by.
type DictionarySource struct {
	Path string `yaml:"path"`
	URI  string `yaml:"uri"`

	// Sheet and Delimiter select the table inside the file, see
	// csvparser.Settings.
	Sheet     string `yaml:"sheet"`
	Delimiter string `yaml:"delimiter"`
}

// TableSettings returns how the dictionary table is read.
func (d DictionarySource) TableSettings() csvparser.Settings {
	return csvparser.Settings{Delimiter: d.Delimiter, Sheet: d.Sheet}
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a job with every default applied.
func Default() *Job {
	job := &Job{}
	applyDefaults(job)
	return job
}

// Load loads a job from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the job file.
//
// RETURNS:
//   - A pointer to the Job with defaults applied. It is not validated yet.
//   - An error if the file cannot be read or parsed.
func Load(configPath string) (*Job, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&job)
	return &job, nil
}

// applyDefaults sets default values for any unset option.
func applyDefaults(job *Job) {
	if job.GroupTumors == nil {
		enabled := true
		job.GroupTumors = &enabled
	}
	if job.Cleanup == nil {
		enabled := true
		job.Cleanup = &enabled
	}
	if job.PatientKeyField == "" {
		job.PatientKeyField = grouping.DefaultPatientKey
	}
	if job.InputEncoding == "" {
		job.InputEncoding = "UTF-8"
	}
	if job.OutputEncoding == "" {
		job.OutputEncoding = "UTF-8"
	}
	if job.MaxConcurrency == 0 {
		job.MaxConcurrency = 4
	}
	if job.LogLevel == "" {
		job.LogLevel = "info"
	}
}

// Validate checks the merged job. Dictionary errors keep their kind so
// callers can tell an unsupported version from a bad file.
func (j *Job) Validate() error {
	if err := dictionary.ValidateVersion(j.NaaccrVersion); err != nil {
		return err
	}
	if err := dictionary.ValidateRecordType(j.RecordType); err != nil {
		return err
	}
	for i, d := range j.Dictionaries {
		if strings.TrimSpace(d.Path) == "" {
			return fmt.Errorf("invalid configuration: dictionaries[%d] has no path", i)
		}
	}
	if _, _, err := charset.Lookup(j.InputEncoding); err != nil {
		return fmt.Errorf("invalid configuration: input_encoding: %w", err)
	}
	if _, _, err := charset.Lookup(j.OutputEncoding); err != nil {
		return fmt.Errorf("invalid configuration: output_encoding: %w", err)
	}
	if j.MaxConcurrency < 1 {
		return fmt.Errorf("invalid configuration: max_concurrency must be at least 1, got %d", j.MaxConcurrency)
	}
	switch strings.ToLower(j.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid configuration: unknown log_level %q", j.LogLevel)
	}
	return nil
}

// GroupTumorsEnabled reports the effective group_tumors setting.
func (j *Job) GroupTumorsEnabled() bool { return j.GroupTumors == nil || *j.GroupTumors }

// CleanupEnabled reports the effective cleanup setting.
func (j *Job) CleanupEnabled() bool { return j.Cleanup == nil || *j.Cleanup }

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// ParseDictionaries pairs semicolon-separated dictionary paths with their
// URIs, the way they are given on the command line:
//
//	--dictionary "a.csv;b.xlsx" --dictionary-uri "http://x/a.xml;http://x/b.xml"
//
// A path without a URI gets the path itself as URI.
func ParseDictionaries(paths, uris string) ([]DictionarySource, error) {
	pathList := splitList(paths)
	uriList := splitList(uris)
	if len(uriList) > len(pathList) {
		return nil, fmt.Errorf("got %d dictionary URIs for %d dictionary files", len(uriList), len(pathList))
	}

	sources := make([]DictionarySource, len(pathList))
	for i, p := range pathList {
		sources[i] = DictionarySource{Path: p, URI: p}
		if i < len(uriList) {
			sources[i].URI = uriList[i]
		}
	}
	return sources, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ResolveDictionary loads the user dictionaries and merges them over the
// base dictionary of the job.
func (j *Job) ResolveDictionary() (*dictionary.Dictionary, error) {
	users := make([]*dictionary.UserDictionary, 0, len(j.Dictionaries))
	for _, d := range j.Dictionaries {
		uri := d.URI
		if uri == "" {
			uri = d.Path
		}
		user, err := dictionary.LoadUserDictionary(d.Path, uri, d.TableSettings())
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return dictionary.Resolve(j.NaaccrVersion, j.RecordType, users...)
}

// ItemList returns the requested items: the literal list followed by the
// items file, if any. Each entry of the literal list may itself hold several
// comma or space separated identifiers.
func (j *Job) ItemList() ([]string, error) {
	var ids []string
	for _, entry := range j.Items {
		ids = append(ids, selector.ParseList(entry)...)
	}
	if j.ItemsFile != "" {
		more, err := selector.ReadItemFile(j.ItemsFile, csvparser.Settings{
			Delimiter: j.ItemsDelimiter,
			Sheet:     j.ItemsSheet,
		})
		if err != nil {
			return nil, err
		}
		ids = append(ids, more...)
	}
	return ids, nil
}

// ConverterOptions maps the job onto converter options.
func (j *Job) ConverterOptions(items []string) converter.Options {
	return converter.Options{
		Items:        items,
		WriteNumbers: j.WriteNumbers,
		GroupTumors:  j.GroupTumorsEnabled(),
		PatientKey:   j.PatientKeyField,
		FlatEncoding: j.InputEncoding,
		XMLEncoding:  j.OutputEncoding,
	}
}
