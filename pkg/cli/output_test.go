package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"text", FormatText, false},
		{"json", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"", FormatText, false},
		{"yaml", "", true},
		{"JSON", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &TextFormatter{}

	if err := f.FormatTo(&buf, "hello"); err != nil {
		t.Fatalf("FormatTo() error: %v", err)
	}
	if buf.String() != "hello\n" {
		t.Errorf("FormatTo() wrote %q, want %q", buf.String(), "hello\n")
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &JSONFormatter{Indent: true}

	data := map[string]any{"name": "default", "version": 3}
	if err := f.FormatTo(&buf, data); err != nil {
		t.Fatalf("FormatTo() error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["name"] != "default" {
		t.Errorf("decoded name = %v, want %q", decoded["name"], "default")
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("indented output expected")
	}
}

type tableResult struct {
	headers []string
	rows    [][]string
}

func (t tableResult) Headers() []string { return t.headers }
func (t tableResult) Rows() [][]string  { return t.rows }

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &CSVFormatter{}

	data := tableResult{
		headers: []string{"version", "state"},
		rows: [][]string{
			{"1", "superseded"},
			{"2", "active"},
		},
	}
	if err := f.FormatTo(&buf, data); err != nil {
		t.Fatalf("FormatTo() error: %v", err)
	}

	want := "version,state\n1,superseded\n2,active\n"
	if buf.String() != want {
		t.Errorf("FormatTo() wrote %q, want %q", buf.String(), want)
	}
}

func TestCSVFormatterRejectsNonTabular(t *testing.T) {
	var buf bytes.Buffer
	f := &CSVFormatter{}

	if err := f.FormatTo(&buf, "just a string"); err == nil {
		t.Error("FormatTo() accepted non-tabular data")
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON).(*JSONFormatter); !ok {
		t.Error("NewFormatter(json) did not return a JSONFormatter")
	}
	if _, ok := NewFormatter(FormatCSV).(*CSVFormatter); !ok {
		t.Error("NewFormatter(csv) did not return a CSVFormatter")
	}
	if _, ok := NewFormatter(FormatText).(*TextFormatter); !ok {
		t.Error("NewFormatter(text) did not return a TextFormatter")
	}
}
