// =============================================================================
// NAACCR Flat/XML Converter - Converter Module
// =============================================================================
//
// This module contains the core conversion logic. It orchestrates one
// conversion job, from the flat file to the finished XML document.
//
// CONVERSION PIPELINE:
//   1. Narrow the runtime dictionary to the requested items
//   2. Compute the fixed-width layout of the active fields
//   3. Read the flat file one line at a time
//   4. Decode the line, correcting its length if needed
//   5. Feed the record to the grouping engine
//   6. Stream each completed Patient to the XML writer
//   7. Finalize the document and move it into place
//
// CONCURRENCY:
//   A Converter only reads its dictionary, so several jobs may share one
//   dictionary and run in their own goroutines. A single job is strictly
//   sequential.
//
// CANCELLATION:
//   The context is checked between records. A cancelled job never finalizes
//   its document; the partial output is removed and ctx.Err() is returned.
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/dictionary"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/flatfile"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/grouping"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/naaccrxml"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/selector"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/xmlwriter"
	"github.com/ginjaninja78/naaccr-flat-xml/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one conversion job.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// OutputFile is the path to the generated file.
	// This is empty if processing failed.
	OutputFile string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// Lines is the number of flat lines read or written.
	Lines int

	// Patients is the number of Patient elements.
	Patients int

	// Tumors is the number of Tumor elements.
	Tumors int

	// Warnings is the number of line-length warnings.
	Warnings int

	// ProcessingTime is the time taken to process the input.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Logger is the reporting capability injected into a job. *zap.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}

// Options configure a conversion job.
type Options struct {
	// Items restricts the active fields; empty means every field.
	Items []string

	// WriteNumbers adds naaccrNum attributes. Default: false
	WriteNumbers bool

	// GroupTumors merges consecutive tumors of one patient. Default: true
	GroupTumors bool

	// PatientKey is the field linking tumors of one patient.
	// Default: patientIdNumber
	PatientKey string

	// FlatEncoding is the character set of flat files. Default: UTF-8
	FlatEncoding string

	// XMLEncoding is the character set of XML output. Default: UTF-8
	XMLEncoding string

	// TimeGenerated overrides the document generation time.
	TimeGenerated time.Time

	// OnWarning, if set, receives every line-length warning.
	OnWarning func(flatfile.Warning)
}

// DefaultOptions returns the default job options.
func DefaultOptions() Options {
	return Options{GroupTumors: true, PatientKey: grouping.DefaultPatientKey}
}

// Converter converts between flat files and NAACCR XML for one runtime
// dictionary.
type Converter struct {
	dict    *dictionary.Dictionary
	layout  *flatfile.Layout
	options Options
	logger  Logger
}

// New creates a Converter.
//
// PARAMETERS:
//   - dict: The runtime dictionary; it is only read.
//   - options: Job options.
//   - logger: The reporter; nil discards everything.
func New(dict *dictionary.Dictionary, options Options, logger Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.PatientKey == "" {
		options.PatientKey = grouping.DefaultPatientKey
	}

	if unknown := selector.Unknown(dict, options.Items); len(unknown) > 0 {
		logger.Debug("Ignoring requested items not in the dictionary", zap.Strings("items", unknown))
	}
	layout := flatfile.NewLayout(selector.Select(dict, options.Items))

	return &Converter{dict: dict, layout: layout, options: options, logger: logger}
}

// Layout returns the fixed-width layout of the active fields.
func (c *Converter) Layout() *flatfile.Layout { return c.layout }

// =============================================================================
// FLAT TO XML
// =============================================================================

// Convert streams a flat file from r to an XML document on w.
//
// RETURNS:
//   - Statistics of the conversion.
//   - A *naaccrxml.Error for fatal conditions, or ctx.Err() when cancelled.
//     In both cases the document on w is incomplete and must be discarded.
func (c *Converter) Convert(ctx context.Context, r io.Reader, w io.Writer) (ProcessingStats, error) {
	start := time.Now()
	var stats ProcessingStats

	reader, err := flatfile.NewReader(r, c.options.FlatEncoding)
	if err != nil {
		return stats, err
	}

	c.logger.Info("Starting converting flat to XML",
		zap.Int("fields", c.layout.Len()),
		zap.Int("expected_line_length", c.layout.LineLength()),
		zap.Bool("group_tumors", c.options.GroupTumors))

	var writer *xmlwriter.PatientWriter
	engine := grouping.New(c.layout, grouping.Options{
		GroupTumors: c.options.GroupTumors,
		PatientKey:  c.options.PatientKey,
	}, func(rootItems []naaccrxml.Item) (grouping.PatientSink, error) {
		pw, err := xmlwriter.NewPatientWriter(w, c.rootData(rootItems), c.writerOptions(), c.dict.UserURIs...)
		if err != nil {
			return nil, err
		}
		writer = pw
		return pw, nil
	})

	for reader.Next() {
		if err := ctx.Err(); err != nil {
			c.logger.Warn("Conversion cancelled", zap.Int("line", reader.LineNumber()))
			return stats, err
		}

		stats.Lines++
		rec, warning := c.layout.Decode(reader.Text(), reader.LineNumber())
		if warning != nil {
			stats.Warnings++
			c.logger.Warn("Unexpected line length",
				zap.Int("line", warning.Line),
				zap.Int("length", warning.Length),
				zap.Int("expected", warning.Expected),
				zap.String("action", warning.Action))
			if c.options.OnWarning != nil {
				c.options.OnWarning(*warning)
			}
		}

		if err := engine.Add(rec); err != nil {
			return stats, c.atLine(err, reader.LineNumber())
		}
	}
	if err := reader.Err(); err != nil {
		return stats, err
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	if err := engine.Finish(); err != nil {
		return stats, err
	}
	if err := writer.CloseAndKeepAlive(); err != nil {
		return stats, err
	}

	stats.Patients = engine.Patients()
	stats.Tumors = engine.Tumors()
	stats.ProcessingTime = time.Since(start)
	c.logger.Info("Successfully created target XML",
		zap.Int("patients", stats.Patients),
		zap.Int("tumors", stats.Tumors),
		zap.Int("warnings", stats.Warnings),
		zap.Duration("elapsed", stats.ProcessingTime))
	return stats, nil
}

// ConvertFile converts flatPath into xmlPath. The document is written under a
// temporary name and renamed into place only when it is complete; on failure
// or cancellation nothing is left at xmlPath.
func (c *Converter) ConvertFile(ctx context.Context, flatPath, xmlPath string) Result {
	result := Result{FilePath: flatPath}

	in, err := os.Open(flatPath)
	if err != nil {
		result.Error = naaccrxml.WrapIO(err, "failed to open flat file %s", flatPath)
		return result
	}
	defer in.Close()

	stats, err := c.writeAtomically(xmlPath, func(out io.Writer) (ProcessingStats, error) {
		return c.Convert(ctx, in, out)
	})
	result.Stats = stats
	if err != nil {
		result.Error = err
		return result
	}

	result.OutputFile = xmlPath
	result.Success = true
	c.logger.Info("Wrote output", zap.String("file", xmlPath))
	return result
}

// WriteLayout writes the layout descriptor of the active fields to path.
func (c *Converter) WriteLayout(path string) error {
	c.logger.Info("Generating layout file", zap.String("file", path))
	if err := flatfile.WriteFormatFile(path, c.layout); err != nil {
		return err
	}
	c.logger.Info("Successfully created layout file",
		zap.Int("fields", c.layout.Len()),
		zap.Int("expected_line_length", c.layout.LineLength()))
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (c *Converter) rootData(rootItems []naaccrxml.Item) *naaccrxml.RootData {
	return &naaccrxml.RootData{
		BaseDictionaryURI: c.dict.BaseURI,
		RecordType:        c.dict.RecordType,
		TimeGenerated:     c.options.TimeGenerated,
		Items:             rootItems,
	}
}

func (c *Converter) writerOptions() xmlwriter.Options {
	opts := xmlwriter.DefaultOptions()
	opts.WriteNumbers = c.options.WriteNumbers
	if c.options.XMLEncoding != "" {
		opts.Encoding = c.options.XMLEncoding
	}
	return opts
}

// atLine adds the source line to an error that does not carry one.
func (c *Converter) atLine(err error, line int) error {
	if e, ok := err.(*naaccrxml.Error); ok && e.Line == 0 {
		copied := *e
		copied.Line = line
		return &copied
	}
	return err
}

// writeAtomically runs write against a temporary sibling of target and
// renames it into place on success. The temporary file is removed on any
// failure.
func (c *Converter) writeAtomically(target string, write func(io.Writer) (ProcessingStats, error)) (ProcessingStats, error) {
	tmp := utils.TempPath(target)
	artifacts := utils.NewArtifacts()
	artifacts.Track(tmp)

	out, err := os.Create(tmp)
	if err != nil {
		return ProcessingStats{}, naaccrxml.WrapIO(err, "failed to create output file %s", target)
	}

	stats, err := write(out)
	if cerr := out.Close(); cerr != nil && err == nil {
		err = naaccrxml.WrapIO(cerr, "failed to close output file %s", target)
	}
	if err == nil {
		if rerr := os.Rename(tmp, target); rerr != nil {
			err = naaccrxml.WrapIO(rerr, "failed to move output into place at %s", target)
		}
	}
	if err != nil {
		if _, cerr := artifacts.Cleanup(false); cerr != nil {
			c.logger.Error("Failed to remove partial output", zap.Error(cerr))
		}
		c.logger.Error("Conversion failed", zap.String("file", target), zap.Error(err))
		return stats, fmt.Errorf("%s: %w", target, err)
	}
	return stats, nil
}
