package flatfile

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Corrective actions reported in a Warning.
const (
	ActionTruncated = "truncated"
	ActionPadded    = "padded"
)

// Warning reports a line whose length did not match the layout. It is a
// data-quality signal: the line was corrected and decoded anyway.
type Warning struct {
	// Line is the 1-based line number.
	Line int

	// Length is the line's actual length in characters.
	Length int

	// Expected is the layout's line length.
	Expected int

	// Action is ActionTruncated or ActionPadded.
	Action string
}

// String formats the warning the way it is logged.
func (w Warning) String() string {
	return fmt.Sprintf("line %d: expected line length of %d but line is %d; %s it",
		w.Line, w.Expected, w.Length, w.Action)
}

// Record is one decoded flat line: the trimmed, non-empty values keyed by
// column key (truncated id).
type Record struct {
	// Line is the 1-based source line number.
	Line int

	values map[string]string
}

// Value returns the value of the field with the given column key.
func (r Record) Value(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Len returns the number of non-empty values.
func (r Record) Len() int { return len(r.values) }

// Decode slices one line into a Record.
//
// LENGTH DISCIPLINE:
//   - Longer than LineLength: truncated to LineLength, warning returned.
//   - Shorter than LineLength: right-padded with spaces, warning returned.
//
// Each field window is trimmed and only non-empty values are kept. Decode
// never fails.
func (l *Layout) Decode(text string, lineNo int) (Record, *Warning) {
	var warning *Warning

	line := []rune(text)
	if n := len(line); n != l.lineLength {
		warning = &Warning{Line: lineNo, Length: n, Expected: l.lineLength}
		if n > l.lineLength {
			warning.Action = ActionTruncated
			line = line[:l.lineLength]
		} else {
			warning.Action = ActionPadded
			line = append(line, []rune(strings.Repeat(" ", l.lineLength-n))...)
		}
	}

	rec := Record{Line: lineNo, values: make(map[string]string)}
	for i, f := range l.fields {
		start := l.offsets[i]
		if value := strings.TrimSpace(string(line[start : start+f.Length])); value != "" {
			rec.values[f.TruncatedID] = value
		}
	}
	return rec, warning
}

// lineBreaks would split a record over several lines.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// Encode builds a fixed-width line from column key/value pairs. Each value
// is left-aligned in its window, right-padded with spaces and cut to the
// field length; missing values become blanks.
func (l *Layout) Encode(values map[string]string) string {
	var b strings.Builder
	b.Grow(l.lineLength)
	for _, f := range l.fields {
		value := lineBreaks.Replace(values[f.TruncatedID])
		if utf8.RuneCountInString(value) > f.Length {
			value = string([]rune(value)[:f.Length])
		}
		b.WriteString(value)
		b.WriteString(strings.Repeat(" ", f.Length-utf8.RuneCountInString(value)))
	}
	return b.String()
}
