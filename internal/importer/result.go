package importer

import (
	"fmt"
	"io"
	"time"
)

// Outcome tags what happened to one source record.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeFailed  Outcome = "failed"  // storage or data error, record skipped
	OutcomeInvalid Outcome = "invalid" // rejected by validation before any write
)

// Result is the outcome of processing one record. Err is set for failed and
// invalid outcomes.
type Result struct {
	Index   int
	Label   string
	CardID  string
	Outcome Outcome
	Err     error
}

// maxReportedFailures bounds the failure list kept in a Summary.
const maxReportedFailures = 50

// Summary aggregates a sequence of Results. Skipped counts failed records;
// Invalid counts records rejected by validation.
type Summary struct {
	Source   string
	Total    int
	Created  int
	Updated  int
	Skipped  int
	Invalid  int
	Elapsed  time.Duration
	Failures []Result
}

// Summarize derives counters from per-record results.
func Summarize(source string, results []Result, elapsed time.Duration) Summary {
	s := Summary{Source: source, Elapsed: elapsed}
	for _, r := range results {
		s.add(r)
	}
	return s
}

func (s *Summary) add(r Result) {
	s.Total++
	switch r.Outcome {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeInvalid:
		s.Invalid++
		s.keepFailure(r)
	default:
		s.Skipped++
		s.keepFailure(r)
	}
}

func (s *Summary) keepFailure(r Result) {
	if len(s.Failures) < maxReportedFailures {
		s.Failures = append(s.Failures, r)
	}
}

// Merge adds o's counters into s. Elapsed is summed.
func (s *Summary) Merge(o Summary) {
	s.Total += o.Total
	s.Created += o.Created
	s.Updated += o.Updated
	s.Skipped += o.Skipped
	s.Invalid += o.Invalid
	s.Elapsed += o.Elapsed
	for _, f := range o.Failures {
		s.keepFailure(f)
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("%d records: %d created, %d updated, %d skipped, %d invalid in %s",
		s.Total, s.Created, s.Updated, s.Skipped, s.Invalid, s.Elapsed.Round(time.Millisecond))
}

// FileReport is the outcome of one input file. Err is a file-level error
// (missing, unreadable, not a JSON array); the file's records were not run.
type FileReport struct {
	Path    string
	Summary Summary
	Err     error
}

type RunSummary struct {
	Files        []FileReport
	Total        Summary
	SkippedFiles int
	Elapsed      time.Duration
	Cancelled    bool
}

// PrintSummary writes the human-readable run report.
func PrintSummary(w io.Writer, run RunSummary) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "=== Import Summary ===")
	for _, f := range run.Files {
		if f.Err != nil {
			fmt.Fprintf(w, "  %-32s SKIPPED (%v)\n", f.Path, f.Err)
			continue
		}
		fmt.Fprintf(w, "  %-32s %s\n", f.Path, f.Summary)
	}
	fmt.Fprintf(w, "Created:        %d\n", run.Total.Created)
	fmt.Fprintf(w, "Updated:        %d\n", run.Total.Updated)
	fmt.Fprintf(w, "Skipped:        %d\n", run.Total.Skipped)
	fmt.Fprintf(w, "Invalid:        %d\n", run.Total.Invalid)
	fmt.Fprintf(w, "Files skipped:  %d\n", run.SkippedFiles)
	fmt.Fprintf(w, "Elapsed:        %s\n", run.Elapsed.Round(time.Millisecond))
	if run.Cancelled {
		fmt.Fprintln(w, "(run cancelled before all records were processed)")
	}

	failures := run.Total.Failures
	if len(failures) > 0 {
		fmt.Fprintln(w, "\n--- Records that were not imported ---")
		for _, f := range failures {
			fmt.Fprintf(w, "  [%d] %s (%s): %v\n", f.Index, f.Label, f.Outcome, f.Err)
		}
	}
}
