// Package progress narrates long-running operations (simulation runs,
// ex-search sweeps, flex-search generations) with the teacher's
// bracketed-step style ("[1] Reading netlist file...", cmd/main.go's
// procWithPrint). Library code stays silent by default: a Reporter writes
// only to the io.Writer its caller supplies, never directly to stdout.
package progress

import (
	"fmt"
	"io"
)

// Reporter narrates a sequence of numbered steps to an io.Writer. The zero
// value is a no-op reporter (Out == nil), so callers that don't care about
// progress narration can pass a bare Reporter{} instead of special-casing nil.
type Reporter struct {
	Out  io.Writer
	step int
}

// New returns a Reporter writing to w. Passing a nil w yields a silent
// Reporter.
func New(w io.Writer) *Reporter {
	return &Reporter{Out: w}
}

// Step advances to the next bracketed step and writes its label.
func (r *Reporter) Step(format string, args ...any) {
	if r == nil || r.Out == nil {
		return
	}
	r.step++
	fmt.Fprintf(r.Out, "\n[%d] %s\n", r.step, fmt.Sprintf(format, args...))
}

// Note writes an unbracketed detail line under the current step.
func (r *Reporter) Note(format string, args ...any) {
	if r == nil || r.Out == nil {
		return
	}
	fmt.Fprintf(r.Out, "%s\n", fmt.Sprintf(format, args...))
}

// Done writes the single closing line for a completed operation.
func (r *Reporter) Done(format string, args ...any) {
	if r == nil || r.Out == nil {
		return
	}
	fmt.Fprintf(r.Out, "\n%s\n", fmt.Sprintf(format, args...))
}
