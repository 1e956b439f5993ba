package naaccrxml

import "strings"

// CleanValue normalizes a value before it is written as element text:
// Windows and old Mac line endings become '\n', and control characters
// XML 1.0 cannot carry are dropped. Markup characters are escaped later by
// the writer.
func CleanValue(value string) string {
	if !needsCleaning(value) {
		return value
	}

	value = strings.ReplaceAll(value, "\r\n", "\n")
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case r == '\r':
			b.WriteRune('\n')
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r < 0x20, r == 0xFFFE, r == 0xFFFF:
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func needsCleaning(value string) bool {
	for _, r := range value {
		if r < 0x20 && r != '\n' && r != '\t' {
			return true
		}
		if r == 0xFFFE || r == 0xFFFF {
			return true
		}
	}
	return false
}
