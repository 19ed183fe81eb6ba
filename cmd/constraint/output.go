package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gonewton/constraint/internal/platform"
	"github.com/gonewton/constraint/pkg/core"
)

// Exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // validation or verification failure
	ExitCommandError = 2 // bad invocation, missing workspace, I/O
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		if e.Message != "" {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Err.Error()
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

// GetExitCode maps an error to a process exit code. Record-level rejections
// count as failures; everything else is a command error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch {
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrInvalidID),
		errors.Is(err, core.ErrInvalidType):
		return ExitFailure
	}
	return ExitCommandError
}

const timeLayout = "2006-01-02 15:04:05 UTC"

// printer writes command results in the selected format.
type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) *printer {
	return &printer{w: w, format: format}
}

func (p *printer) text() bool {
	return p.format == platform.FormatText
}

// emit writes data as JSON or YAML, or calls text for the human format.
func (p *printer) emit(data any, text func(w io.Writer)) error {
	switch p.format {
	case platform.FormatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case platform.FormatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(p.w)
		return nil
	}
}

// writeSummaryLine renders a record the way list and search print it.
func writeSummaryLine(w io.Writer, c core.Constraint) {
	fmt.Fprintf(w, "%s: %s [%s] %s\n", c.ID, c.Type, c.Category, c.Text)
	fmt.Fprintf(w, "  Author: %s | Created: %s | Status: %s\n",
		c.Author, c.CreatedAt.UTC().Format(timeLayout), c.ValidationStatus.Label())
	if len(c.Tags) > 0 {
		fmt.Fprintf(w, "  Tags: %s\n", strings.Join(c.Tags, ", "))
	}
	if c.Priority != core.PriorityNone {
		fmt.Fprintf(w, "  Priority: %s\n", c.Priority)
	}
	if c.Verification != "" {
		fmt.Fprintf(w, "  Verification: %s\n", c.Verification)
	}
	if c.References != "" {
		fmt.Fprintf(w, "  References: %s\n", c.References)
	}
	fmt.Fprintln(w)
}

func writeDetail(w io.Writer, c core.Constraint) {
	row := func(label, value string) {
		fmt.Fprintf(w, "%-14s%s\n", label+":", value)
	}
	row("ID", c.ID)
	row("Type", c.Type.String())
	row("Category", c.Category)
	row("Text", c.Text)
	row("Author", c.Author)
	if len(c.Tags) > 0 {
		row("Tags", strings.Join(c.Tags, ", "))
	}
	if c.Priority != core.PriorityNone {
		row("Priority", string(c.Priority))
	}
	if c.References != "" {
		row("References", c.References)
	}
	if c.Verification != "" {
		row("Verification", c.Verification)
	}
	row("Status", c.ValidationStatus.Label())
	row("Version", fmt.Sprint(c.Version))
	row("Created", c.CreatedAt.UTC().Format(timeLayout))
	row("Updated", c.UpdatedAt.UTC().Format(timeLayout))
}

// nonNil keeps empty listings rendering as [] rather than null.
func nonNil(cs []core.Constraint) []core.Constraint {
	if cs == nil {
		return []core.Constraint{}
	}
	return cs
}
