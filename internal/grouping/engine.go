// =============================================================================
// NAACCR Flat/XML Converter - Grouping Engine
// =============================================================================
//
// Flat files carry one tumor per line. The engine rebuilds the Patient level
// by looking at consecutive lines:
//
//   line 1  patientIdNumber=00000001  ->  new Patient #1, Tumor #1
//   line 2  patientIdNumber=00000001  ->               Tumor #2 (same key)
//   line 3  patientIdNumber=00000002  ->  new Patient #2, Tumor #1
//   line 4  patientIdNumber=(blank)   ->  new Patient #3, Tumor #1
//
// A new Patient starts when grouping is disabled, when the line has no key,
// when no Patient is open, or when the key differs from the open Patient's.
// Patient items are taken from the line that opened the Patient. Only the
// open Patient is kept in memory; it is handed to the sink when the next one
// opens or when input ends.
//
// =============================================================================

package grouping

import (
	"github.com/ginjaninja78/naaccr-flat-xml/internal/dictionary"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/flatfile"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/naaccrxml"
)

// DefaultPatientKey is the field whose value links tumors of one patient.
const DefaultPatientKey = "patientIdNumber"

// PatientSink receives completed patients in input order.
type PatientSink interface {
	WritePatient(patient *naaccrxml.Patient) error
}

// RootOpener starts the output document once the root items are known (they
// come from the first record). It is called exactly once, with nil items when
// the input is empty.
type RootOpener func(rootItems []naaccrxml.Item) (PatientSink, error)

// Options control the grouping rule.
type Options struct {
	// GroupTumors merges consecutive records with the same key into one
	// Patient. Default: true
	GroupTumors bool

	// PatientKey is the id of the key field. Default: DefaultPatientKey
	PatientKey string
}

// DefaultOptions returns the default grouping options.
func DefaultOptions() Options {
	return Options{GroupTumors: true, PatientKey: DefaultPatientKey}
}

// Engine is the grouping state machine. It is not safe for concurrent use.
type Engine struct {
	options Options
	keyCol  string
	open    RootOpener
	sink    PatientSink

	rootFields    []dictionary.FieldDescriptor
	patientFields []dictionary.FieldDescriptor
	tumorFields   []dictionary.FieldDescriptor

	current        *naaccrxml.Patient
	currentKey     string
	hasOpenPatient bool
	hasWrittenRoot bool

	patients int
	tumors   int
}

// New creates an engine over the given layout.
func New(layout *flatfile.Layout, options Options, open RootOpener) *Engine {
	if options.PatientKey == "" {
		options.PatientKey = DefaultPatientKey
	}
	return &Engine{
		options:       options,
		keyCol:        dictionary.TruncateID(options.PatientKey),
		open:          open,
		rootFields:    layout.FieldsAt(dictionary.LevelRoot),
		patientFields: layout.FieldsAt(dictionary.LevelPatient),
		tumorFields:   layout.FieldsAt(dictionary.LevelTumor),
	}
}

// Add consumes one decoded record.
func (e *Engine) Add(rec flatfile.Record) error {
	if !e.hasWrittenRoot {
		if err := e.openRoot(items(e.rootFields, rec)); err != nil {
			return err
		}
	}

	key, hasKey := rec.Value(e.keyCol)
	if !e.options.GroupTumors || !hasKey || !e.hasOpenPatient || key != e.currentKey {
		if err := e.flush(); err != nil {
			return err
		}
		e.current = &naaccrxml.Patient{Items: items(e.patientFields, rec)}
		e.currentKey = key
		e.hasOpenPatient = true
		e.patients++
	}

	e.current.Tumors = append(e.current.Tumors, naaccrxml.Tumor{Items: items(e.tumorFields, rec)})
	e.tumors++
	return nil
}

// Finish writes the last open Patient. On empty input it still opens the
// document so the caller can finalize an empty, well-formed file.
func (e *Engine) Finish() error {
	if !e.hasWrittenRoot {
		if err := e.openRoot(nil); err != nil {
			return err
		}
	}
	return e.flush()
}

// Patients returns the number of Patient groups opened so far.
func (e *Engine) Patients() int { return e.patients }

// Tumors returns the number of records consumed so far.
func (e *Engine) Tumors() int { return e.tumors }

func (e *Engine) openRoot(rootItems []naaccrxml.Item) error {
	sink, err := e.open(rootItems)
	if err != nil {
		return err
	}
	e.sink = sink
	e.hasWrittenRoot = true
	return nil
}

func (e *Engine) flush() error {
	if !e.hasOpenPatient {
		return nil
	}
	patient := e.current
	e.current = nil
	e.hasOpenPatient = false
	return e.sink.WritePatient(patient)
}

// items collects the record's non-empty values for fields, in field order.
func items(fields []dictionary.FieldDescriptor, rec flatfile.Record) []naaccrxml.Item {
	var out []naaccrxml.Item
	for _, f := range fields {
		if v, ok := rec.Value(f.TruncatedID); ok {
			out = append(out, naaccrxml.Item{ID: f.ID, Num: f.Number, Value: v})
		}
	}
	return out
}
