package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"series-tracker/models"
	"series-tracker/syncer"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The store rejected or failed an operation
	ExitCommandError = 2 // Bad arguments, missing session, unreadable files
)

// Messages shown instead of the table
const (
	msgLoading = "Loading series..."
	msgError   = "Failed to load series"
	msgEmpty   = "No series yet"
)

// ExitError represents an error with a specific exit code.
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

func newFormatter(opts *RootOptions, w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: w}
}

// Message prints a one-line result. In JSON mode data is encoded instead.
func (f *OutputFormatter) Message(text string, data any) error {
	if f.Format == "json" {
		return f.JSON(data)
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

// JSON writes v as indented JSON.
func (f *OutputFormatter) JSON(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// stateView is the JSON form of a controller state
type stateView struct {
	Series  []models.Series  `json:"series"`
	Loading bool             `json:"loading"`
	Error   bool             `json:"error"`
	Failure syncer.ErrorKind `json:"failure,omitempty"`
}

// State renders the series screen: a status message while loading, after
// an error or for an empty list, and a table otherwise.
func (f *OutputFormatter) State(title string, state syncer.State) error {
	if f.Format == "json" {
		return f.JSON(stateView(state))
	}
	return renderState(f.Writer, title, state)
}

func renderState(w io.Writer, title string, state syncer.State) error {
	if title != "" {
		fmt.Fprintln(w, title)
	}
	switch {
	case state.Loading:
		_, err := fmt.Fprintln(w, msgLoading)
		return err
	case state.Error:
		if state.Failure != syncer.KindNone {
			_, err := fmt.Fprintf(w, "%s (%s)\n", msgError, state.Failure)
			return err
		}
		_, err := fmt.Fprintln(w, msgError)
		return err
	case len(state.Series) == 0:
		_, err := fmt.Fprintln(w, msgEmpty)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEPISODES\tIMAGE")
	for _, s := range state.Series {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, s.Name, s.EpisodeCount, s.ImageURL)
	}
	return tw.Flush()
}
