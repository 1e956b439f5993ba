package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/config"
)

// =============================================================================
// JOB FLAGS
// =============================================================================

// jobFlags are the job settings that can be given on the command line. A flag
// overrides the job file only when it was set explicitly.
type jobFlags struct {
	naaccrVersion  string
	recordType     string
	items          string
	itemsFile      string
	itemsSheet     string
	dictionaries   string
	dictionaryURIs string
	patientKey     string
	inputEncoding  string
	outputEncoding string
	formatFile     string
	warningsLog    string
	writeNumbers   bool
	groupTumors    bool
	keepArtifacts  bool
	maxConcurrency int
}

// register adds the job flags to cmd.
func (f *jobFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.naaccrVersion, "naaccr-version", "", "NAACCR version (140, 150, 160, 180, 210, 220, 230)")
	flags.StringVar(&f.recordType, "record-type", "", "Record type (A, M, C, I)")
	flags.StringVar(&f.items, "items", "", "Items to keep, comma or space separated (default: all)")
	flags.StringVar(&f.itemsFile, "items-file", "", "CSV or XLSX file listing the items to keep in its first column")
	flags.StringVar(&f.itemsSheet, "items-sheet", "", "Workbook sheet of the items file (default: first sheet)")
	flags.StringVar(&f.dictionaries, "dictionary", "", "User dictionary files, separated by ';'")
	flags.StringVar(&f.dictionaryURIs, "dictionary-uri", "", "URIs of the user dictionaries, separated by ';'")
	flags.StringVar(&f.patientKey, "patient-key", "", "Item linking the tumors of one patient (default: patientIdNumber)")
	flags.StringVar(&f.inputEncoding, "input-encoding", "", "Character set of flat files (UTF-8, ISO-8859-1, windows-1252)")
	flags.StringVar(&f.outputEncoding, "output-encoding", "", "Character set of the XML output")
	flags.StringVar(&f.formatFile, "format-file", "", "Where to write the layout descriptor")
	flags.StringVar(&f.warningsLog, "warnings-log", "", "File listing every line-length warning")
	flags.BoolVar(&f.writeNumbers, "write-numbers", false, "Add naaccrNum attributes to every item")
	flags.BoolVar(&f.groupTumors, "group-tumors", true, "Group consecutive tumors of one patient")
	flags.BoolVar(&f.keepArtifacts, "keep-artifacts", false, "Keep temporary job files")
	flags.IntVar(&f.maxConcurrency, "max-concurrency", 0, "Maximum number of files converted at once")
}

// loadJob reads the job file named by --config, if any, applies the flags
// that were set and validates the result.
func loadJob(cmd *cobra.Command, f *jobFlags) (*config.Job, error) {
	job := config.Default()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		job = loaded
	}

	if err := f.apply(cmd, job); err != nil {
		return nil, err
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

// apply copies every explicitly set flag onto job.
func (f *jobFlags) apply(cmd *cobra.Command, job *config.Job) error {
	changed := cmd.Flags().Changed

	if changed("naaccr-version") {
		job.NaaccrVersion = f.naaccrVersion
	}
	if changed("record-type") {
		job.RecordType = f.recordType
	}
	if changed("items") {
		job.Items = []string{f.items}
	}
	if changed("items-file") {
		job.ItemsFile = f.itemsFile
	}
	if changed("items-sheet") {
		job.ItemsSheet = f.itemsSheet
	}
	if changed("dictionary") || changed("dictionary-uri") {
		sources, err := config.ParseDictionaries(f.dictionaries, f.dictionaryURIs)
		if err != nil {
			return err
		}
		job.Dictionaries = sources
	}
	if changed("patient-key") {
		job.PatientKeyField = f.patientKey
	}
	if changed("input-encoding") {
		job.InputEncoding = f.inputEncoding
	}
	if changed("output-encoding") {
		job.OutputEncoding = f.outputEncoding
	}
	if changed("format-file") {
		job.FormatFile = f.formatFile
	}
	if changed("warnings-log") {
		job.WarningsLog = f.warningsLog
	}
	if changed("write-numbers") {
		job.WriteNumbers = f.writeNumbers
	}
	if changed("group-tumors") {
		groupTumors := f.groupTumors
		job.GroupTumors = &groupTumors
	}
	if changed("keep-artifacts") {
		cleanup := !f.keepArtifacts
		job.Cleanup = &cleanup
	}
	if changed("max-concurrency") {
		job.MaxConcurrency = f.maxConcurrency
	}
	return nil
}
