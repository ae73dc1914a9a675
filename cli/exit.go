// cli/exit.go
package cli

import (
	"errors"
	"fmt"

	"github.com/cyterat/deepstate-map-data/models"
	"github.com/cyterat/deepstate-map-data/services"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Archive updated, unchanged, or verified clean
	ExitFailure      = 1 // Run skipped (fetch, validation, stale date) or verification failed
	ExitFatal        = 2 // Archive corrupt or could not be written
	ExitCommandError = 3 // Bad flags, arguments or configuration
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that are not
// an ExitError come from cobra itself and count as command errors.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// runError wraps a pipeline error with the exit code matching its outcome.
func runError(message string, err error) *ExitError {
	code := ExitFatal
	if services.Classify(err) == models.OutcomeSkipped {
		code = ExitFailure
	}
	return WrapExitError(code, message, err)
}
