// =============================================================================
// NAACCR Flat/XML Converter - Version Command
// =============================================================================
//
// This file defines the 'version' command, which displays the application
// version and build information.
//
// COMMAND USAGE:
//   naaccr version
//
// OUTPUT:
//   NAACCR Flat/XML Converter
//   Version:           1.0.0
//   Build Date:        2024-01-01
//   Go Version:        go1.22.0
//   NAACCR Versions:   140, 150, 160, 180, 210, 220, 230
//   Record Types:      A, M, C, I
//   XML Specification: 1.6
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/dictionary"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/naaccrxml"
)

// =============================================================================
// VERSION INFORMATION
// =============================================================================
// These variables are set at build time using ldflags.
// Example build command:
//   go build -ldflags "-X 'github.com/ginjaninja78/naaccr-flat-xml/cmd.Version=1.0.0'"

// Version is the application version.
// Set at build time using ldflags.
var Version = "1.0.0"

// BuildDate is the date the application was built.
// Set at build time using ldflags.
var BuildDate = "unknown"

// =============================================================================
// VERSION COMMAND DEFINITION
// =============================================================================

// versionCmd represents the 'version' command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Long:  `Display the application version, build date, Go runtime version and the supported NAACCR versions.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("NAACCR Flat/XML Converter")
		fmt.Printf("Version:           %s\n", Version)
		fmt.Printf("Build Date:        %s\n", BuildDate)
		fmt.Printf("Go Version:        %s\n", runtime.Version())
		fmt.Printf("NAACCR Versions:   %s\n", strings.Join(dictionary.SupportedVersions, ", "))
		fmt.Printf("Record Types:      %s\n", strings.Join(dictionary.RecordTypes, ", "))
		fmt.Printf("XML Specification: %s\n", naaccrxml.SpecificationVersion)
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init registers the version command with the root command.
func init() {
	rootCmd.AddCommand(versionCmd)
}
