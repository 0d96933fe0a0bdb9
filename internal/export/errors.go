// Package export flattens validation issues into records and writes them to CSV and JSON files.
package export

import "fmt"

// FileWriteError represents a failure writing one of the export files.
type FileWriteError struct {
	Path  string
	Cause error
}

func (e *FileWriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Cause)
}

func (e *FileWriteError) Unwrap() error {
	return e.Cause
}
