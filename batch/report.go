package batch

import (
	"fmt"
	"strings"
)

// Outcome records one input and the report URL it produced. ReportURL is
// empty iff any required step failed for the item.
type Outcome struct {
	Input     string
	ReportURL string
}

// Succeeded reports whether the item produced a report URL.
func (o Outcome) Succeeded() bool {
	return o.ReportURL != ""
}

// Report is the ordered result of one batch run. Outcomes align with the
// input sequence: outcome i belongs to input i.
type Report struct {
	RunID    string
	Outcomes []Outcome
}

// Rows renders the report as output table rows, one per input, in order.
func (r *Report) Rows() [][]string {
	rows := make([][]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		rows = append(rows, []string{o.Input, o.ReportURL})
	}
	return rows
}

// Summary holds the derived counts of a finished run.
type Summary struct {
	Succeeded    int
	Failed       int
	FailedInputs []string
}

// Summary derives the success/failure tally, with failed inputs in original
// order.
func (r *Report) Summary() Summary {
	s := Summary{}
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			s.Succeeded++
		} else {
			s.Failed++
			s.FailedInputs = append(s.FailedInputs, o.Input)
		}
	}
	return s
}

// String renders the human-readable end-of-run summary.
func (s Summary) String() string {
	var b strings.Builder
	b.WriteString("--- Processing Complete ---\n")
	fmt.Fprintf(&b, "Successfully processed: %d URLs\n", s.Succeeded)
	fmt.Fprintf(&b, "Failed to process: %d URLs\n", s.Failed)
	if len(s.FailedInputs) > 0 {
		b.WriteString("Failed URLs:\n")
		for _, u := range s.FailedInputs {
			fmt.Fprintf(&b, "- %s\n", u)
		}
	}
	return b.String()
}
