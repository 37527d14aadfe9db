package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // assertions or golden traces failed, session failed
	ExitCommandError = 2 // unreadable scenario, bad configuration, listen failure
)

// Error codes reported in JSON failure responses.
const (
	CodeFailed           = "E_FAILED"
	CodeCommand          = "E_COMMAND"
	CodeAssertionsFailed = "E_ASSERTIONS_FAILED"
	CodeTestFailed       = "E_TEST_FAILED"
)

// printer formats counts in text output.
var printer = message.NewPrinter(language.English)

// ExitError is a command failure carrying the process exit code.
type ExitError struct {
	Code    int
	Kind    string // JSON error code; derived from Code when empty
	Message string
	Err     error

	// reported is set once the failure was written as a JSON response.
	reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func (e *ExitError) kind() string {
	switch {
	case e.Kind != "":
		return e.Kind
	case e.Code == ExitCommandError:
		return CodeCommand
	default:
		return CodeFailed
	}
}

func (e *ExitError) withKind(kind string) *ExitError {
	e.Kind = kind
	return e
}

// NewExitError creates an ExitError.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError creates an ExitError caused by err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code for err; errors from outside the CLI
// (flag parsing, cobra) exit with ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the envelope written for every command in JSON mode.
type Response struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError describes a failed command.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Diag    io.Writer // progress lines under --verbose; defaults to Writer
	Verbose bool
}

func (f *OutputFormatter) isJSON() bool { return f.Format == "json" }

func (f *OutputFormatter) encode(r Response) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Success writes data as an ok response, or prints it in text mode.
func (f *OutputFormatter) Success(data any) error {
	if f.isJSON() {
		return f.encode(Response{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Fail reports a command that produced a result but failed, such as a
// scenario run whose assertions did not hold. In JSON mode the result and the
// failure go out in one response. It returns err for the command to return.
func (f *OutputFormatter) Fail(data any, err *ExitError) error {
	if f.isJSON() {
		if encErr := f.encode(Response{
			Status: "error",
			Data:   data,
			Error:  &ResponseError{Code: err.kind(), Message: err.Error()},
		}); encErr != nil {
			return encErr
		}
		err.reported = true
	}
	return err
}

// Error writes a failure without a result.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.isJSON() {
		return f.encode(Response{
			Status: "error",
			Error:  &ResponseError{Code: code, Message: message, Details: details},
		})
	}
	if details != nil {
		fmt.Fprintf(f.Writer, "Error [%s]: %s: %v\n", code, message, details)
		return nil
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return nil
}

// Textf writes locale-formatted text. It writes nothing in JSON mode.
func (f *OutputFormatter) Textf(format string, args ...any) {
	if f.isJSON() {
		return
	}
	printer.Fprintf(f.Writer, format, args...)
}

// VerboseLog writes a progress line to Diag under --verbose.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.Diag
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// ReportError writes the error a command returned. In JSON mode it goes to
// stdout as a failure response, unless the command already wrote one; text
// goes to stderr.
func ReportError(cmd *cobra.Command, err error) {
	format, _ := cmd.PersistentFlags().GetString("format")
	f := &OutputFormatter{Format: format, Writer: cmd.ErrOrStderr()}
	if f.isJSON() {
		f.Writer = cmd.OutOrStdout()
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		_ = f.Error(CodeFailed, err.Error(), nil)
		return
	}
	if exitErr.reported {
		return
	}
	var details any
	if exitErr.Err != nil {
		details = exitErr.Err.Error()
	}
	_ = f.Error(exitErr.kind(), exitErr.Message, details)
}
