package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/config"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/converter"
)

var (
	layoutFlags jobFlags
	fieldsFlags jobFlags
)

// layoutCmd writes the layout descriptor of the active fields.
var layoutCmd = &cobra.Command{
	Use:   "layout [file]",
	Short: "Write the layout descriptor of the active fields",
	Long: `The layout command writes the fixed-width layout descriptor of the fields
selected by the job:

  put
  @1 recordType $1.
  @2 registryType $1.
  ...
  ;

The file is written to the argument, or to format_file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := loadJob(cmd, &layoutFlags)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			job.FormatFile = args[0]
		}
		if job.FormatFile == "" {
			return fmt.Errorf("no layout file given; pass one as an argument or set format_file")
		}
		return runLayout(job)
	},
}

// fieldsCmd prints the resolved dictionary.
var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Print the fields of the resolved dictionary",
	Long: `The fields command resolves the job dictionary, applies the item selection
and prints every active field with its position in the flat line.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := loadJob(cmd, &fieldsFlags)
		if err != nil {
			return err
		}
		return runFields(job)
	},
}

func init() {
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(fieldsCmd)
	layoutFlags.register(layoutCmd)
	fieldsFlags.register(fieldsCmd)
}

// newJobConverter resolves the dictionary and item selection of job.
func newJobConverter(job *config.Job) (*converter.Converter, error) {
	logger, err := newLogger(job)
	if err != nil {
		return nil, err
	}
	dict, err := job.ResolveDictionary()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dictionary: %w", err)
	}
	items, err := job.ItemList()
	if err != nil {
		return nil, err
	}
	return converter.New(dict, job.ConverterOptions(items), logger), nil
}

func runLayout(job *config.Job) error {
	conv, err := newJobConverter(job)
	if err != nil {
		return err
	}
	if err := conv.WriteLayout(job.FormatFile); err != nil {
		return err
	}
	fmt.Printf("%s %s (%d fields, line length %d)\n",
		color.GreenString("✓"), job.FormatFile, conv.Layout().Len(), conv.Layout().LineLength())
	return nil
}

func runFields(job *config.Job) error {
	conv, err := newJobConverter(job)
	if err != nil {
		return err
	}
	layout := conv.Layout()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, color.New(color.Bold).Sprint("START\tLENGTH\tNUM\tPARENT\tNAACCR ID\tCOLUMN KEY"))
	for _, f := range layout.Fields() {
		offset, _ := layout.Offset(f.TruncatedID)
		key := ""
		if f.TruncatedID != f.ID {
			key = f.TruncatedID
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\t%s\n", offset+1, f.Length, f.Number, f.Parent, f.ID, key)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d fields, line length %d\n", layout.Len(), layout.LineLength())
	return nil
}
