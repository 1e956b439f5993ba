// =============================================================================
// NAACCR Flat/XML Converter - Main Entry Point
// =============================================================================
//
// This is the main entry point for the NAACCR Flat/XML Converter CLI. It
// delegates command execution to the cmd package.
//
// USAGE:
//   naaccr convert       - Convert flat files to NAACCR XML
//   naaccr to-flat       - Convert a NAACCR XML document to a flat file
//   naaccr layout        - Write the layout descriptor of the active fields
//   naaccr fields        - Print the resolved dictionary
//   naaccr version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/                 : CLI command definitions (Cobra)
//   - internal/dictionary  : base and user dictionaries, merged at runtime
//   - internal/selector    : item selection
//   - internal/flatfile    : fixed-width layout, decoder, encoder, line reader
//   - internal/grouping    : flat records to Patient/Tumor hierarchy
//   - internal/xmlwriter   : streaming NAACCR XML emitter
//   - internal/naaccrxml   : NAACCR XML model, reader and error kinds
//   - internal/converter   : conversion jobs
//   - internal/config      : YAML job settings
//   - pkg/utils            : job artifacts and warning log
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/naaccr-flat-xml/cmd"
)

func main() {
	cmd.Execute()
}
