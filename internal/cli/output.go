package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/gpures/internal/reservation"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // command did what was asked
	ExitFailure      = 1 // engine refused the operation, or scenarios failed
	ExitCommandError = 2 // bad flags or config, database unavailable
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error // optional cause
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError around err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the code of the first ExitError in err's chain, or
// ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or as a JSON envelope.
type OutputFormatter struct {
	Format string
	Writer io.Writer

	// ErrWriter receives verbose diagnostics so they never mix with JSON on
	// Writer. Falls back to Writer when nil.
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command in --format json.
type CLIResponse struct {
	Status string      `json:"status"` // "ok" | "error"
	Data   interface{} `json:"data,omitempty"`
	Error  *CLIError   `json:"error,omitempty"`
}

// CLIError describes a failed command. Code is the engine error kind when
// there is one.
type CLIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (f *OutputFormatter) isJSON() bool {
	return f.Format == "json"
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	return json.NewEncoder(f.Writer).Encode(resp)
}

// Success writes data. Text mode prints it with fmt's default format; commands
// with structured results render their own text.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.isJSON() {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes an error response. Details are shown in text mode only with
// --verbose.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.isJSON() {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog prints a diagnostic line when --verbose is set.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if f.Verbose {
		fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
	}
}

// GetErrWriter returns ErrWriter, or Writer when ErrWriter is nil.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter == nil {
		return f.Writer
	}
	return f.ErrWriter
}

// Fail reports err for operation op and converts it to an ExitError.
//
// Engine rejections exit with ExitFailure; in JSON mode they are also written
// as an error response whose code is the error kind. Storage failures and
// errors from outside the engine exit with ExitCommandError.
func (f *OutputFormatter) Fail(op string, err error) error {
	var rerr *reservation.Error
	if !errors.As(err, &rerr) {
		return WrapExitError(ExitCommandError, op+" failed", err)
	}

	if f.isJSON() {
		var details interface{}
		if rerr.ReservationID != "" {
			details = map[string]string{"reservation_id": rerr.ReservationID}
		}
		if encErr := f.Error(string(rerr.Kind), rerr.Message, details); encErr != nil {
			return encErr
		}
	}

	code := ExitFailure
	if rerr.Kind == reservation.KindPersistence {
		code = ExitCommandError
	}
	return WrapExitError(code, op+" failed", err)
}
