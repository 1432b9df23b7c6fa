package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Process exit codes.
const (
	ExitSuccess      = 0 // command succeeded
	ExitFailure      = 1 // rejected engine command, invalid specs, failing scenario
	ExitCommandError = 2 // bad flags or paths, database unavailable
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError wrapping err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code. Errors that are not
// ExitErrors exit with ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or as a JSON CLIResponse.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; falls back to Writer
	Verbose   bool
}

// CLIResponse is the envelope of every JSON result.
type CLIResponse struct {
	Status   string    `json:"status"` // "ok" or "error"
	Data     any       `json:"data,omitempty"`
	Error    *CLIError `json:"error,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
	LoadID   string    `json:"load_id,omitempty"`
}

// CLIError describes a failed command. Code is either a loader code
// ("E001") or an engine error code ("STALE_RESPONSE").
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (f *OutputFormatter) json() bool { return f.Format == "json" }

func (f *OutputFormatter) emit(resp CLIResponse) error {
	return json.NewEncoder(f.Writer).Encode(resp)
}

// Success writes data. Text mode prints it with fmt.Println semantics.
func (f *OutputFormatter) Success(data any) error {
	return f.SuccessWithWarnings(data, nil)
}

// SuccessWithWarnings writes data followed by non-fatal warnings, one
// "warning: " line each in text mode.
func (f *OutputFormatter) SuccessWithWarnings(data any, warnings []string) error {
	if f.json() {
		return f.emit(CLIResponse{Status: "ok", Data: data, Warnings: warnings})
	}
	fmt.Fprintln(f.Writer, data)
	for _, w := range warnings {
		fmt.Fprintf(f.Writer, "warning: %s\n", w)
	}
	return nil
}

// Error writes a failure. Details appear in text mode only with --verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.json() {
		return f.emit(CLIResponse{
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

// VerboseLog writes a diagnostic line when --verbose is set. It goes to
// ErrWriter so JSON on Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
