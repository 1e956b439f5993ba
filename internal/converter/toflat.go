package converter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/charset"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/dictionary"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/naaccrxml"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/validation"
)

// =============================================================================
// XML TO FLAT
// =============================================================================

// ToFlat streams a NAACCR XML document from r to a flat file on w: one line
// per Tumor, made of the root items, the Patient items and the Tumor items.
// A Patient without tumors still produces one line so its items are kept.
// Items the dictionary does not define are skipped. Values that do not fit
// their field are adjusted and counted as warnings.
func (c *Converter) ToFlat(ctx context.Context, r io.Reader, w io.Writer) (ProcessingStats, error) {
	start := time.Now()
	var stats ProcessingStats

	reader, err := naaccrxml.NewPatientReader(r)
	if err != nil {
		return stats, err
	}
	root := reader.RootData()
	c.checkRoot(root)

	_, encoded, err := charset.NewWriter(w, c.options.FlatEncoding)
	if err != nil {
		return stats, err
	}
	out := bufio.NewWriter(encoded)

	c.logger.Info("Starting converting XML to flat",
		zap.Int("fields", c.layout.Len()),
		zap.Int("line_length", c.layout.LineLength()))

	validator := validation.NewValidator(c.layout)
	c.report(&stats, validator.ValidateItems(naaccrxml.RootElement, root.Items))

	skipped := make(map[string]bool)
	values := make(map[string]string, c.layout.Len())
	for {
		if err := ctx.Err(); err != nil {
			c.logger.Warn("Conversion cancelled", zap.Int("patients", stats.Patients))
			return stats, err
		}

		patient, err := reader.ReadPatient()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, err
		}
		stats.Patients++
		patientPath := fmt.Sprintf("%s/%s[%d]", naaccrxml.RootElement, naaccrxml.PatientElement, stats.Patients)
		c.report(&stats, validator.ValidateItems(patientPath, patient.Items))

		tumors := patient.Tumors
		if len(tumors) == 0 {
			key, _ := naaccrxml.ItemValue(patient.Items, c.options.PatientKey)
			c.logger.Debug("Patient has no tumors; writing its items on one line",
				zap.String("path", patientPath),
				zap.String("patient", key))
			tumors = []naaccrxml.Tumor{{}}
		}
		for i, tumor := range tumors {
			tumorPath := fmt.Sprintf("%s/%s[%d]", patientPath, naaccrxml.TumorElement, i+1)
			c.report(&stats, validator.ValidateItems(tumorPath, tumor.Items))

			for k := range values {
				delete(values, k)
			}
			c.collect(values, root.Items, skipped)
			c.collect(values, patient.Items, skipped)
			c.collect(values, tumor.Items, skipped)

			if _, err := out.WriteString(c.layout.Encode(values) + "\n"); err != nil {
				return stats, naaccrxml.WrapIO(err, "failed to write flat line %d", stats.Lines+1)
			}
			stats.Lines++
			if len(patient.Tumors) > 0 {
				stats.Tumors++
			}
		}
	}

	if err := out.Flush(); err != nil {
		return stats, naaccrxml.WrapIO(err, "failed to flush flat file")
	}
	if err := encoded.Close(); err != nil {
		return stats, naaccrxml.WrapIO(err, "failed to flush flat file")
	}

	if len(skipped) > 0 {
		ids := make([]string, 0, len(skipped))
		for id := range skipped {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		c.logger.Warn("Skipped items not in the active dictionary", zap.Strings("items", ids))
	}

	stats.ProcessingTime = time.Since(start)
	c.logger.Info("Successfully created target flat file",
		zap.Int("patients", stats.Patients),
		zap.Int("tumors", stats.Tumors),
		zap.Int("lines", stats.Lines),
		zap.Int("warnings", stats.Warnings),
		zap.Duration("elapsed", stats.ProcessingTime))
	return stats, nil
}

// ToFlatFile converts xmlPath into flatPath, with the same all-or-nothing
// output guarantee as ConvertFile.
func (c *Converter) ToFlatFile(ctx context.Context, xmlPath, flatPath string) Result {
	result := Result{FilePath: xmlPath}

	in, err := os.Open(xmlPath)
	if err != nil {
		result.Error = naaccrxml.WrapIO(err, "failed to open XML file %s", xmlPath)
		return result
	}
	defer in.Close()

	stats, err := c.writeAtomically(flatPath, func(out io.Writer) (ProcessingStats, error) {
		return c.ToFlat(ctx, in, out)
	})
	result.Stats = stats
	if err != nil {
		result.Error = err
		return result
	}

	result.OutputFile = flatPath
	result.Success = true
	c.logger.Info("Wrote output", zap.String("file", flatPath))
	return result
}

// collect copies items into values keyed by column key. Later levels
// overwrite earlier ones.
func (c *Converter) collect(values map[string]string, items []naaccrxml.Item, skipped map[string]bool) {
	for _, item := range items {
		key := dictionary.TruncateID(item.ID)
		if _, ok := c.layout.Offset(key); !ok {
			skipped[item.ID] = true
			continue
		}
		values[key] = item.Value
	}
}

// report logs and counts validation findings.
func (c *Converter) report(stats *ProcessingStats, findings []*validation.ValidationError) {
	for _, f := range findings {
		stats.Warnings++
		c.logger.Warn("Item value does not fit the flat layout",
			zap.String("path", f.Path),
			zap.String("item", f.Field),
			zap.String("rule", f.Rule),
			zap.String("message", f.Message))
	}
}

// checkRoot warns when the document was written for another dictionary.
func (c *Converter) checkRoot(root *naaccrxml.RootData) {
	if root.BaseDictionaryURI != c.dict.BaseURI {
		version, ok := dictionary.VersionFromURI(root.BaseDictionaryURI)
		if !ok {
			version = "unknown"
		}
		c.logger.Warn("Document base dictionary differs from the job dictionary",
			zap.String("document", root.BaseDictionaryURI),
			zap.String("document_version", version),
			zap.String("job_version", c.dict.Version))
	}
	if root.RecordType != c.dict.RecordType {
		c.logger.Warn("Document record type differs from the job record type",
			zap.String("document", root.RecordType),
			zap.String("job", c.dict.RecordType))
	}
}
