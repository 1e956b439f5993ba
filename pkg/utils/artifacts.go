// =============================================================================
// NAACCR Flat/XML Converter - Job Artifacts
// =============================================================================
//
// A conversion job owns a few files besides its final output:
//   - the layout descriptor it generated
//   - the flat file, when the job was handed a temporary one
//   - the in-progress output, written under a temporary name and renamed
//     into place only once the document is complete
//
// ARTIFACT LIFECYCLE:
//   - Track registers a file as owned by the job
//   - Cleanup(keep=false) removes every tracked file
//   - Cleanup(keep=true) leaves them in place for diagnostics
//
// =============================================================================

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Artifacts tracks the temporary files owned by one job. It is not shared
// between jobs.
type Artifacts struct {
	files []string
}

// NewArtifacts creates an empty artifact set.
func NewArtifacts() *Artifacts {
	return &Artifacts{}
}

// Track registers path as owned by the job. Empty and duplicate paths are
// ignored.
func (a *Artifacts) Track(path string) {
	if path == "" {
		return
	}
	for _, f := range a.files {
		if f == path {
			return
		}
	}
	a.files = append(a.files, path)
}

// Files returns the tracked paths in registration order.
func (a *Artifacts) Files() []string {
	return append([]string(nil), a.files...)
}

// Cleanup removes the tracked files unless keep is set.
//
// RETURNS:
//   - The paths that were removed.
//   - An error naming every file that could not be removed. Files that are
//     already gone are not errors.
func (a *Artifacts) Cleanup(keep bool) ([]string, error) {
	if keep {
		return nil, nil
	}

	var removed, failed []string
	for _, path := range a.files {
		err := os.Remove(path)
		switch {
		case err == nil:
			removed = append(removed, path)
		case os.IsNotExist(err):
		default:
			failed = append(failed, path)
		}
	}
	a.files = nil

	if len(failed) > 0 {
		return removed, fmt.Errorf("unable to remove temporary files, they will have to be deleted manually: %s", strings.Join(failed, ", "))
	}
	return removed, nil
}

// =============================================================================
// FILE NAMING
// =============================================================================

// TempPath returns a unique sibling of target for in-progress output:
//
//	/out/data.xml -> /out/.data.xml.1b4e28ba-2fa1-11d2-883f-0016d3cca427.tmp
func TempPath(target string) string {
	dir, base := filepath.Split(target)
	return filepath.Join(dir, "."+base+"."+uuid.New().String()+".tmp")
}

// ReplaceExt swaps the extension of path; ext includes the dot.
//
//	ReplaceExt("/in/data.txt", ".xml") -> "/in/data.xml"
func ReplaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
