// =============================================================================
// NAACCR Flat/XML Converter - Convert Command
// =============================================================================
//
// This file defines the 'convert' command, which converts flat files to
// NAACCR XML.
//
// COMMAND USAGE:
//   naaccr convert [flat-file...] [flags]
//
// PROCESSING PIPELINE:
//   1. Load the job settings and apply the flags
//   2. Resolve the runtime dictionary (base + user dictionaries)
//   3. Write the layout descriptor, if requested
//   4. Convert every flat file concurrently; all jobs share the dictionary
//   5. Remove the job artifacts unless asked to keep them
//   6. Print a summary report
//
// Each job writes its document under a temporary name and renames it into
// place when it is complete, so a failed or interrupted job leaves nothing
// behind at its output path.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/config"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/converter"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/flatfile"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/naaccrxml"
	"github.com/ginjaninja78/naaccr-flat-xml/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var convertFlags jobFlags

// convertOutput is the XML file for a single flat file.
var convertOutput string

// =============================================================================
// CONVERT COMMAND DEFINITION
// =============================================================================

var convertCmd = &cobra.Command{
	Use:   "convert [flat-file...]",
	Short: "Convert NAACCR flat files to NAACCR XML",
	Long: `The convert command reads fixed-width NAACCR flat files and writes one
NAACCR XML document per file, next to the input unless --output (or xml_file)
names the target.

Several files are converted concurrently, up to max_concurrency at a time.
Errors in one file do not affect the others.

Lines shorter or longer than the layout are padded or truncated and reported
as warnings; they never stop the conversion.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := loadJob(cmd, &convertFlags)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("output") {
			job.XMLFile = convertOutput
		}
		return runConvert(cmd.Context(), job, args)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertFlags.register(convertCmd)
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "XML file to write (single input only)")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runConvert converts every flat file of the job.
func runConvert(parent context.Context, job *config.Job, args []string) error {
	startTime := time.Now()

	logger, err := newLogger(job)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	targets, err := conversionTargets(job, args)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 1: RESOLVE THE DICTIONARY
	// =========================================================================

	dict, err := job.ResolveDictionary()
	if err != nil {
		return fmt.Errorf("failed to resolve dictionary: %w", err)
	}
	items, err := job.ItemList()
	if err != nil {
		return err
	}
	options := job.ConverterOptions(items)
	logger.Info("Resolved dictionary",
		zap.String("base", dict.BaseURI),
		zap.Strings("user", dict.UserURIs),
		zap.Int("fields", dict.Len()))

	// =========================================================================
	// STEP 2: JOB ARTIFACTS
	// =========================================================================

	artifacts := utils.NewArtifacts()
	defer func() {
		if !job.CleanupEnabled() {
			logger.Info("Kept job artifacts", zap.Strings("files", artifacts.Files()))
			return
		}
		removed, err := artifacts.Cleanup(false)
		if err != nil {
			logger.Warn("Cleanup incomplete", zap.Error(err))
		}
		for _, path := range removed {
			logger.Debug("Removed job artifact", zap.String("file", path))
		}
	}()

	if job.FormatFile != "" {
		artifacts.Track(job.FormatFile)
		if err := converter.New(dict, options, logger).WriteLayout(job.FormatFile); err != nil {
			return err
		}
	}

	var warnings *utils.WarningLog
	if job.WarningsLog != "" {
		warnings, err = utils.CreateWarningLog(job.WarningsLog, sourceList(targets))
		if err != nil {
			return err
		}
		defer func() {
			if err := warnings.Close(); err != nil {
				logger.Error("Failed to close warning log", zap.Error(err))
			}
		}()
	}

	// =========================================================================
	// STEP 3: CONVERT FILES CONCURRENTLY
	// =========================================================================

	var wg sync.WaitGroup
	results := make(chan converter.Result, len(targets))
	slots := make(chan struct{}, job.MaxConcurrency)

	for _, target := range targets {
		if job.FlatFileIsTemporary {
			artifacts.Track(target.flat)
		}

		wg.Add(1)
		go func(target conversionTarget) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()

			jobOptions := options
			name := filepath.Base(target.flat)
			if warnings != nil {
				jobOptions.OnWarning = func(w flatfile.Warning) {
					if err := warnings.Add(w.Line, name+": "+w.String()); err != nil {
						logger.Error("Failed to write warning log", zap.Error(err))
					}
				}
			}

			conv := converter.New(dict, jobOptions, logger.With(zap.String("file", name)))
			results <- conv.ConvertFile(ctx, target.flat, target.xml)
		}(target)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// =========================================================================
	// STEP 4: COLLECT RESULTS
	// =========================================================================

	var collected []converter.Result
	for result := range results {
		collected = append(collected, result)
	}

	failed := printSummary(collected, time.Since(startTime))
	if warnings != nil && warnings.Count() > 0 {
		fmt.Printf("Warnings have been logged to %s\n", warnings.Path())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d conversion(s) failed", failed, len(collected))
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

type conversionTarget struct {
	flat string
	xml  string
}

// conversionTargets pairs every flat file with its XML output. Without
// arguments the job's flat_file is used.
func conversionTargets(job *config.Job, args []string) ([]conversionTarget, error) {
	files := args
	if len(files) == 0 {
		if job.FlatFile == "" {
			return nil, fmt.Errorf("no flat file given; pass one as an argument or set flat_file")
		}
		files = []string{job.FlatFile}
	}
	if len(files) > 1 && job.XMLFile != "" {
		return nil, fmt.Errorf("xml_file can only be used with a single flat file; got %d", len(files))
	}

	targets := make([]conversionTarget, len(files))
	for i, f := range files {
		if !utils.FileExists(f) {
			return nil, fmt.Errorf("flat file %s does not exist", f)
		}
		targets[i] = conversionTarget{flat: f, xml: job.XMLFile}
		if targets[i].xml == "" {
			targets[i].xml = utils.ReplaceExt(f, ".xml")
		}
	}
	return targets, nil
}

func sourceList(targets []conversionTarget) string {
	if len(targets) == 1 {
		return targets[0].flat
	}
	return fmt.Sprintf("%d flat files", len(targets))
}

// printSummary prints one line per result and the totals, and returns the
// number of failures.
func printSummary(results []converter.Result, elapsed time.Duration) int {
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	var failed, patients, tumors, warnings int
	for _, r := range results {
		if r.Success {
			fmt.Printf("  %s %s -> %s (%d patients, %d tumors)\n",
				ok("✓"), filepath.Base(r.FilePath), r.OutputFile, r.Stats.Patients, r.Stats.Tumors)
		} else {
			failed++
			if kind := naaccrxml.KindOf(r.Error); kind != "" {
				fmt.Printf("  %s %s [%s]: %v\n", bad("✗"), filepath.Base(r.FilePath), kind, r.Error)
			} else {
				fmt.Printf("  %s %s: %v\n", bad("✗"), filepath.Base(r.FilePath), r.Error)
			}
		}
		patients += r.Stats.Patients
		tumors += r.Stats.Tumors
		warnings += r.Stats.Warnings
	}

	fmt.Println(bold("\n=== Processing Complete ==="))
	fmt.Printf("Total files:     %d\n", len(results))
	fmt.Printf("Successful:      %s\n", ok(len(results)-failed))
	if failed > 0 {
		fmt.Printf("Errors:          %s\n", bad(failed))
	} else {
		fmt.Printf("Errors:          %d\n", failed)
	}
	fmt.Printf("Patients:        %d\n", patients)
	fmt.Printf("Tumors:          %d\n", tumors)
	fmt.Printf("Warnings:        %d\n", warnings)
	fmt.Printf("Time elapsed:    %s\n", elapsed.Round(time.Millisecond))
	return failed
}
