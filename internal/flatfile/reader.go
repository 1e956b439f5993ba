package flatfile

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/ginjaninja78/naaccr-flat-xml/internal/charset"
	"github.com/ginjaninja78/naaccr-flat-xml/internal/naaccrxml"
)

// =============================================================================
// STREAMING LINE READER
// =============================================================================

// Reader streams the lines of a flat file one at a time.
//
// USAGE:
//
//	reader, err := flatfile.Open(path, "UTF-8")
//	if err != nil { return err }
//	defer reader.Close()
//
//	for reader.Next() {
//	    rec, warning := layout.Decode(reader.Text(), reader.LineNumber())
//	    // process rec
//	}
//	if err := reader.Err(); err != nil { return err }
type Reader struct {
	src    *bufio.Reader
	closer io.Closer
	text   string
	line   int
	err    error
	done   bool
}

// NewReader reads lines from r decoded from the named encoding.
func NewReader(r io.Reader, encoding string) (*Reader, error) {
	decoded, err := charset.NewReader(r, encoding)
	if err != nil {
		return nil, err
	}
	return &Reader{src: bufio.NewReaderSize(decoded, 64*1024)}, nil
}

// Open opens a flat file for streaming.
func Open(path, encoding string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, naaccrxml.WrapIO(errors.WithStack(err), "failed to open flat file %s", path)
	}
	r, err := NewReader(f, encoding)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Next advances to the next line. It returns false at end of input or on
// error; check Err afterwards.
func (r *Reader) Next() bool {
	if r.err != nil || r.done {
		return false
	}

	text, err := r.src.ReadString('\n')
	if err != nil && err != io.EOF {
		r.err = &naaccrxml.Error{
			Kind:    naaccrxml.KindIOFailure,
			Message: "failed to read flat file",
			Line:    r.line + 1,
			Err:     errors.WithStack(err),
		}
		return false
	}
	if err == io.EOF {
		r.done = true
		if text == "" {
			return false
		}
	}

	r.line++
	r.text = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
	return true
}

// Text returns the current line without its line terminator.
func (r *Reader) Text() string { return r.text }

// LineNumber returns the 1-based number of the current line.
func (r *Reader) LineNumber() int { return r.line }

// Err returns the first read failure, if any.
func (r *Reader) Err() error { return r.err }

// Close closes the underlying file when the reader was created by Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
