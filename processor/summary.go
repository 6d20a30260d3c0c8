package processor

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/refaktor/injgen/diag"
)

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Rounds   int
	Files    []string
	Notes    int
	Warnings int
	Errors   int
	Duration time.Duration
}

func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v file(s) generated in %v round(s) (%v)", len(s.Files), s.Rounds, s.Duration.Round(time.Millisecond))
	if s.Notes+s.Warnings+s.Errors > 0 {
		fmt.Fprintf(&b, "; %v note(s), %v warning(s), %v error(s)", s.Notes, s.Warnings, s.Errors)
	}
	for _, f := range s.Files {
		b.WriteString("\n  " + f)
	}
	return b.String()
}

type countingReporter struct {
	diag.Reporter

	mu     sync.Mutex
	counts map[diag.Severity]int
}

func (r *countingReporter) Report(severity diag.Severity, msg string) {
	r.mu.Lock()
	if r.counts == nil {
		r.counts = map[diag.Severity]int{}
	}
	r.counts[severity]++
	r.mu.Unlock()
	r.Reporter.Report(severity, msg)
}

func (r *countingReporter) count(severity diag.Severity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[severity]
}
