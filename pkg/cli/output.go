package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output, for results that render as rows.
	FormatCSV OutputFormat = "csv"
)

// ParseFormat validates a --format flag value. The empty string means text.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatText, FormatJSON, FormatCSV:
		return OutputFormat(s), nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (must be one of: text, json, csv)", s)
	}
}

// Tabular is implemented by results that can render as rows with a header,
// for CSV output.
type Tabular interface {
	Headers() []string
	Rows() [][]string
}

// Formatter renders command results to a writer.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// TextFormatter renders with the value's own string form. Commands with
// richer text output print that themselves and reserve the formatter for
// the machine formats.
type TextFormatter struct{}

// FormatTo writes data to the writer in text form.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

// JSONFormatter renders JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to the writer as JSON.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// CSVFormatter renders Tabular data as CSV with a header row.
type CSVFormatter struct{}

// FormatTo writes data to the writer as CSV. Data must implement Tabular.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	tab, ok := data.(Tabular)
	if !ok {
		return fmt.Errorf("%T does not support CSV output", data)
	}

	cw := csv.NewWriter(w)
	if headers := tab.Headers(); len(headers) > 0 {
		if err := cw.Write(headers); err != nil {
			return err
		}
	}
	for _, row := range tab.Rows() {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}
