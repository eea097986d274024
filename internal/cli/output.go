package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/stratadb/strata/internal/entity"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failure (not found, validation, conflict)
	ExitCommandError = 2 // Command error (bad flags, missing files, broken schema)
)

// ExitError carries a specific exit code out of a command.
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

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure when the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// Response is the standard JSON envelope for CLI output.
type Response struct {
	Status string       `json:"status"`
	Data   any          `json:"data,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail is the error structure for CLI responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	switch v := data.(type) {
	case *entity.Entity:
		f.writeEntity(v)
	case []*entity.Entity:
		for _, e := range v {
			f.writeEntity(e)
		}
		if len(v) == 0 {
			fmt.Fprintln(f.Writer, "no results")
		}
	case *entity.State:
		f.writeState(v, "current")
	case []entity.State:
		for i := range v {
			f.writeState(&v[i], "history")
		}
		if len(v) == 0 {
			fmt.Fprintln(f.Writer, "no results")
		}
	default:
		fmt.Fprintln(f.Writer, data)
	}
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{
			Status: "error",
			Error:  &ErrorDetail{Code: code, Message: message},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return nil
}

// VerboseLog writes a diagnostic line when verbose mode is on. It goes to
// ErrWriter so JSON output on Writer stays parseable.
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

func (f *OutputFormatter) writeEntity(e *entity.Entity) {
	if e.IsEmpty() {
		fmt.Fprintln(f.Writer, "no results")
		return
	}
	if e.Current != nil {
		f.writeState(e.Current, "current")
	}
	for i := range e.History {
		f.writeState(&e.History[i], "history")
	}
}

func (f *OutputFormatter) writeState(s *entity.State, role string) {
	end := "open"
	if s.ActiveRangeEnd != nil {
		end = s.ActiveRangeEnd.Format(time.RFC3339)
	}
	flags := ""
	if s.DeleteFlag {
		flags = " deleted"
	}
	fmt.Fprintf(f.Writer, "%s #%d rid=%d tenant=%s ord=%g [%s .. %s]%s%s\n",
		role, s.ID, s.RID, s.TenantID, s.Order,
		s.ActiveRangeStart.Format(time.RFC3339), end, flags, renderAttrs(s.Attrs))
}

func renderAttrs(attrs map[string]any) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, attrs[k])
	}
	return " " + strings.Join(parts, " ")
}
