// =============================================================================
// NAACCR Flat/XML Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (naaccr)
//   ├── convertCmd (naaccr convert)   flat files to NAACCR XML
//   ├── toFlatCmd  (naaccr to-flat)   NAACCR XML to a flat file
//   ├── layoutCmd  (naaccr layout)    write the layout descriptor
//   ├── fieldsCmd  (naaccr fields)    print the resolved dictionary
//   └── versionCmd (naaccr version)
//
// CONFIGURATION:
//   The root command owns the global flags (--config, --verbose) and builds
//   the process-wide logger once the job settings are known.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/config"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the job settings file. Empty means built-in
// defaults plus flags.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "naaccr",
	Short: "NAACCR Flat/XML Converter - Convert fixed-width NAACCR files to NAACCR XML",
	Long: `NAACCR Flat/XML Converter turns fixed-width NAACCR flat files into
NAACCR XML documents, and back.

Key Features:
  - Embedded base dictionaries for NAACCR 14 to 23, record types A, M, C and I
  - User dictionaries as CSV or XLSX tables
  - Field selection by item list or item file
  - Streaming conversion with constant memory per job
  - Concurrent conversion of several flat files

Example Usage:
  naaccr convert --naaccr-version 230 --record-type I data.txt
  naaccr convert --config job.yaml
  naaccr to-flat --config job.yaml registry.xml
  naaccr fields --naaccr-version 230 --record-type A --items primarySite,sex`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"Path to the job settings file (YAML)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// LOGGING
// =============================================================================

// newLogger builds the process-wide logger from the job settings. Logs go to
// stderr and, when log_file is set, to that file as well.
func newLogger(job *config.Job) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(job.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", job.LogLevel, err)
	}
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Development = false
	cfg.Level = level
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.OutputPaths = []string{"stderr"}
	if job.LogFile != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, job.LogFile)
	}
	return cfg.Build()
}
