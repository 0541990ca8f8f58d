package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReporterNumbersStepsSequentially(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	r.Step("first")
	r.Step("second")
	out := buf.String()
	assert.True(t, strings.Contains(out, "[1] first"))
	assert.True(t, strings.Contains(out, "[2] second"))
}

func TestZeroValueReporterIsSilent(t *testing.T) {
	var r Reporter
	r.Step("noop")
	r.Note("noop")
	r.Done("noop")
}

func TestNilReporterIsSilent(t *testing.T) {
	var r *Reporter
	r.Step("noop")
	r.Note("noop")
	r.Done("noop")
}

func TestDoneWritesClosingLine(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)
	r.Done("finished %s", "run")
	assert.Contains(t, buf.String(), "finished run")
}
