package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess     = 0 // Evaluation finished and met the threshold
	ExitBelowTarget = 1 // Evaluation finished below the success-rate threshold
	ExitError       = 2 // Configuration or runtime error
)

// ThresholdError indicates that the batch ran to completion but its success
// rate came in below the configured minimum.
type ThresholdError struct {
	Message string
}

func (e *ThresholdError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var thresholdErr *ThresholdError
		if errors.As(err, &thresholdErr) {
			os.Exit(ExitBelowTarget)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
