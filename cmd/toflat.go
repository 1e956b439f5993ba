package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/config"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/converter"
	"github.com/ginjaninja78/naaccr-flat-xml/pkg/utils"
)

var toFlatFlags jobFlags

// toFlatOutput is the flat file to write.
var toFlatOutput string

// toFlatCmd converts a NAACCR XML document back to a fixed-width file.
var toFlatCmd = &cobra.Command{
	Use:   "to-flat [xml-file]",
	Short: "Convert a NAACCR XML document to a flat file",
	Long: `The to-flat command reads a NAACCR XML document and writes one fixed-width
line per tumor, laid out by the job dictionary and item selection. Items the
dictionary does not know are skipped and reported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := loadJob(cmd, &toFlatFlags)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			job.XMLFile = args[0]
		}
		if cmd.Flags().Changed("output") {
			job.FlatFile = toFlatOutput
		}
		return runToFlat(cmd.Context(), job)
	},
}

func init() {
	rootCmd.AddCommand(toFlatCmd)
	toFlatFlags.register(toFlatCmd)
	toFlatCmd.Flags().StringVarP(&toFlatOutput, "output", "o", "", "Flat file to write")
}

func runToFlat(parent context.Context, job *config.Job) error {
	startTime := time.Now()

	if job.XMLFile == "" {
		return fmt.Errorf("no XML file given; pass one as an argument or set xml_file")
	}
	if !utils.FileExists(job.XMLFile) {
		return fmt.Errorf("XML file %s does not exist", job.XMLFile)
	}
	if job.FlatFile == "" {
		job.FlatFile = utils.ReplaceExt(job.XMLFile, ".txt")
	}

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

	dict, err := job.ResolveDictionary()
	if err != nil {
		return fmt.Errorf("failed to resolve dictionary: %w", err)
	}
	items, err := job.ItemList()
	if err != nil {
		return err
	}

	conv := converter.New(dict, job.ConverterOptions(items), logger)
	result := conv.ToFlatFile(ctx, job.XMLFile, job.FlatFile)
	if failed := printSummary([]converter.Result{result}, time.Since(startTime)); failed > 0 {
		return result.Error
	}
	logger.Debug("Lines written", zap.Int("lines", result.Stats.Lines))
	return nil
}
