// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"io"

	"github.com/pdiddy/marcsplit/internal/route"
)

// Summary holds the outcome of a run.
type Summary struct {
	Read        int
	Malformed   int
	Filtered    int
	Unmatched   int
	Routed      int
	Rows        int
	Discarded   int
	ParseErrors int
	WriteErrors int

	Records []route.Stats
	Tables  []route.Stats
}

// Total returns the number of records taken from the source.
func (s Summary) Total() int {
	return s.Read + s.Malformed
}

// HasFailures reports whether any record, row or write was lost.
func (s Summary) HasFailures() bool {
	return s.Malformed > 0 || s.Discarded > 0 || s.WriteErrors > 0
}

// Print writes the run summary and per-destination counts to w.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "\nRun summary: %d routed, %d unmatched, %d filtered, %d malformed (total: %d)\n",
		s.Routed, s.Unmatched, s.Filtered, s.Malformed, s.Total())
	if s.Rows > 0 || s.Discarded > 0 {
		fmt.Fprintf(w, "Rows: %d extracted, %d discarded\n", s.Rows, s.Discarded)
	}
	if s.ParseErrors > 0 || s.WriteErrors > 0 {
		fmt.Fprintf(w, "Errors: %d identifier parse, %d write\n", s.ParseErrors, s.WriteErrors)
	}
	for _, st := range s.Records {
		fmt.Fprintf(w, "  records %-8s %6d written, %d failed\n", st.Label, st.Written, st.Failed)
	}
	for _, st := range s.Tables {
		fmt.Fprintf(w, "  rows    %-8s %6d written, %d failed\n", st.Label, st.Written, st.Failed)
	}
}
