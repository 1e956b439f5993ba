package utils

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"time"
)

// =============================================================================
// WARNING LOG
// =============================================================================

// WarningLog streams data-quality warnings to a text file as they happen, so
// a badly skewed input does not accumulate warnings in memory.
//
// FILE FORMAT:
//
//	NAACCR Flat/XML Converter - Warning Log
//	Generated: 2024-01-15 14:30:22
//	Source:    /data/registry.txt
//	================================================================================
//
//	Warning #1
//	  Line:           12
//	  Message:        expected line length of 3339 but line is 3338; padded it
//
//	================================================================================
//	Total Warnings: 1
//	End of Warning Log
//
// A WarningLog may be shared by concurrent jobs.
type WarningLog struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *bufio.Writer
	count  int
}

const logRule = "================================================================================\n"

// CreateWarningLog creates the log file and writes its header.
//
// PARAMETERS:
//   - path: The log file to create (truncated if it exists).
//   - source: The input the warnings refer to.
//
// RETURNS:
//   - The open log.
//   - An error if the file cannot be created.
func CreateWarningLog(path, source string) (*WarningLog, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create warning log: %w", err)
	}

	l := &WarningLog{path: path, file: file, writer: bufio.NewWriter(file)}
	fmt.Fprintf(l.writer, "NAACCR Flat/XML Converter - Warning Log\n"+
		"Generated: %s\n"+
		"Source:    %s\n"+
		logRule+"\n",
		time.Now().Format("2006-01-02 15:04:05"),
		source)
	return l, nil
}

// Add appends one warning.
func (l *WarningLog) Add(line int, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	entry := fmt.Sprintf("Warning #%d\n", l.count)
	if line > 0 {
		entry += fmt.Sprintf("  Line:           %d\n", line)
	}
	entry += fmt.Sprintf("  Message:        %s\n\n", message)
	if _, err := l.writer.WriteString(entry); err != nil {
		return fmt.Errorf("failed to write warning log: %w", err)
	}
	return nil
}

// Count returns the number of warnings written.
func (l *WarningLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Path returns the log file path.
func (l *WarningLog) Path() string { return l.path }

// Close writes the footer and closes the file.
func (l *WarningLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.writer, logRule+"Total Warnings: %d\nEnd of Warning Log\n", l.count)
	if err := l.writer.Flush(); err != nil {
		l.file.Close()
		return fmt.Errorf("failed to flush warning log: %w", err)
	}
	return l.file.Close()
}
