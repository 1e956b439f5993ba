// Package charset maps the encoding names accepted in job configuration to
// golang.org/x/text encoders and decoders.
package charset

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// UTF8 is the default encoding name.
const UTF8 = "UTF-8"

// Lookup returns the canonical name and the x/text charmap for name.
// A nil charmap means UTF-8 (no transformation needed).
func Lookup(name string) (string, *charmap.Charmap, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return UTF8, nil, nil
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return "ISO-8859-1", charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return "windows-1252", charmap.Windows1252, nil
	default:
		return "", nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// NewReader wraps r so it yields UTF-8 text decoded from the named encoding.
func NewReader(r io.Reader, name string) (io.Reader, error) {
	_, enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return r, nil
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// NewWriter wraps w so UTF-8 text written to it is encoded in the named
// encoding. Runes the target cannot represent are written as '?' rather
// than failing the write. The returned closer must be closed to flush the
// transformer; it does not close w.
func NewWriter(w io.Writer, name string) (string, io.WriteCloser, error) {
	canonical, enc, err := Lookup(name)
	if err != nil {
		return "", nil, err
	}
	if enc == nil {
		return canonical, nopCloser{w}, nil
	}
	substitute := runes.Map(func(r rune) rune {
		if _, ok := enc.EncodeRune(r); !ok {
			return '?'
		}
		return r
	})
	return canonical, transform.NewWriter(w, transform.Chain(substitute, enc.NewEncoder())), nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
