// Package diag carries advisory messages from injgen's core to the user.
package diag

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/refaktor/injgen/logging"
	"github.com/refaktor/injgen/textutils"
)

type Severity int

const (
	Note    Severity = 0
	Warning Severity = 1
	Error   Severity = 2
)

func (s Severity) String() string {
	switch s {
	case Note:
		return "NOTE"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	default:
		panic(fmt.Sprintf("invalid severity: %d", int(s)))
	}
}

// Reporter receives diagnostics. Reporting never fails.
type Reporter interface {
	Report(severity Severity, msg string)
}

// Diagnostic is a single reported message.
type Diagnostic struct {
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	return d.Severity.String() + ": " + d.Message
}

// LogReporter writes diagnostics to a zerolog logger and counts them.
type LogReporter struct {
	Logger zerolog.Logger

	mu     sync.Mutex
	counts [Error + 1]int
}

func NewLogReporter(l zerolog.Logger) *LogReporter {
	return &LogReporter{Logger: l}
}

func (r *LogReporter) Report(severity Severity, msg string) {
	r.mu.Lock()
	r.counts[severity]++
	r.mu.Unlock()

	var ev *zerolog.Event
	switch severity {
	case Note:
		ev = r.Logger.Info()
	case Warning:
		ev = r.Logger.Warn()
	case Error:
		ev = r.Logger.Error()
	default:
		panic(fmt.Sprintf("invalid severity: %d", int(severity)))
	}
	if strings.Contains(msg, "\n") {
		msg = "\n" + textutils.IndentString(strings.TrimSuffix(msg, "\n"), "  ", 1)
	}
	ev.Str(logging.FieldSeverity, severity.String()).Msg(msg)
}

// Count returns the number of diagnostics reported with the given
// severity.
func (r *LogReporter) Count(severity Severity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[severity]
}

// Recorder stores diagnostics in memory.
type Recorder struct {
	Diagnostics []Diagnostic
}

func (r *Recorder) Report(severity Severity, msg string) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Severity: severity, Message: msg})
}

// Messages returns the messages reported with the given severity.
func (r *Recorder) Messages(severity Severity) []string {
	var res []string
	for _, d := range r.Diagnostics {
		if d.Severity == severity {
			res = append(res, d.Message)
		}
	}
	return res
}

// Reset drops all recorded diagnostics.
func (r *Recorder) Reset() { r.Diagnostics = nil }

// Discard drops all diagnostics.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Report(Severity, string) {}
