package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestProgressSequence(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf, "evaluating")

	p.Start(4)
	p.Update(2)
	p.Finish()

	out := buf.String()
	if !strings.Contains(out, "evaluating:") {
		t.Errorf("output %q missing label", out)
	}
	if !strings.Contains(out, "0.0%") {
		t.Errorf("output %q missing initial percentage", out)
	}
	if !strings.Contains(out, "50.0%") {
		t.Errorf("output %q missing midway percentage", out)
	}
	if !strings.Contains(out, "100.0% (4/4)") {
		t.Errorf("output %q missing completion", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Finish() did not end the line")
	}
}

func TestProgressNoRateBeforeWork(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf, "parsing")

	p.Start(10)

	if !strings.Contains(buf.String(), "0 ops/s") {
		t.Errorf("initial render %q should report a zero rate", buf.String())
	}
}

func TestProgressZeroTotalRendersNothing(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf, "idle")

	p.Start(0)
	p.Update(0)

	if got := buf.String(); strings.Contains(got, "%") {
		t.Errorf("zero-total progress rendered a bar: %q", got)
	}
}

func TestProgressDefaultWriter(t *testing.T) {
	p := NewProgressReporter(nil, "work")
	sp, ok := p.(*SimpleProgress)
	if !ok {
		t.Fatalf("NewProgressReporter returned %T", p)
	}
	if sp.writer == nil {
		t.Error("nil writer was not defaulted")
	}
}
