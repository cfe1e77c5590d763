// Package util provides shared CLI helper functions: hex parsing, file
// reading, confirmation prompts, and the halt-state indicator file.
package util

import (
	"os"
)

const stopFileName = "flashmgr.halt"

// IsStopped returns true if the target is believed to already be halted.
// This is indicated by the presence of the stop indicator file, so a command
// that halted the target doesn't get resumed out from under a still-running
// session started by another command.
func IsStopped() bool {
	_, err := os.Stat(stopFileName)
	return err == nil // File exists = target is halted
}

// SetStopIndicator creates the stop indicator file, marking the target as
// halted.
func SetStopIndicator() error {
	f, err := os.Create(stopFileName)
	if err != nil {
		return err
	}
	return f.Close()
}

// ClearStopIndicator removes the stop indicator file, marking the target as
// no longer halted.
func ClearStopIndicator() error {
	if !IsStopped() {
		return nil // Already clear
	}
	return os.Remove(stopFileName)
}
