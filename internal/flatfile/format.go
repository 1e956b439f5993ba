package flatfile

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/naaccrxml"
)

// =============================================================================
// LAYOUT DESCRIPTOR
// =============================================================================
//
// The layout descriptor lets external statistical tooling read the flat file
// as typed columns. Format:
//
//   put
//   @1 registryId $10.
//   @11 patientIdNumber $8.
//   @19 primarySite $4.
//   ;
//
// Offsets are 1-based. Fields appear in the same order and with the same
// lengths the decoder uses.

// WriteFormat writes the layout descriptor of l to w.
func WriteFormat(w io.Writer, l *Layout) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("put\n"); err != nil {
		return err
	}
	for i, f := range l.fields {
		if _, err := fmt.Fprintf(bw, "@%d %s $%d.\n", l.offsets[i]+1, f.TruncatedID, f.Length); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString(";"); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteFormatFile writes the layout descriptor of l to path.
func WriteFormatFile(path string, l *Layout) error {
	f, err := os.Create(path)
	if err != nil {
		return naaccrxml.WrapIO(errors.WithStack(err), "failed to create layout file %s", path)
	}
	if err := WriteFormat(f, l); err != nil {
		f.Close()
		return naaccrxml.WrapIO(err, "failed to write layout file %s", path)
	}
	if err := f.Close(); err != nil {
		return naaccrxml.WrapIO(err, "failed to close layout file %s", path)
	}
	return nil
}
