// Package decision classifies how an execution ended and recovers the answer the
// customer was shown, whatever version of the engine wrote the trace.
package decision

import "strings"

// Decision is the final outcome of an execution. Values outside the canonical set may
// appear when the engine reports a decision this package does not know about yet.
type Decision string

const (
	SentAnswer             Decision = "SENT_ANSWER"
	RequestHumanAssistance Decision = "REQUEST_HUMAN_ASSISTANCE"
	NoAnswerGiven          Decision = "NO_ANSWER_GIVEN"
	DirectReply            Decision = "DIRECT_REPLY"
	FallbackReply          Decision = "FALLBACK_REPLY"
	Failed                 Decision = "FAILED"
	Running                Decision = "RUNNING"
	Unknown                Decision = "UNKNOWN"
)

// Canonical lists the decisions with a display entry.
var Canonical = []Decision{
	SentAnswer,
	RequestHumanAssistance,
	NoAnswerGiven,
	DirectReply,
	FallbackReply,
	Failed,
	Running,
	Unknown,
}

// stepDecisions are the outcomes workflow and callback steps can announce, in the order a
// single step is checked for them.
var stepDecisions = []Decision{SentAnswer, RequestHumanAssistance, NoAnswerGiven}

func (d Decision) Normalize() Decision {
	return Decision(strings.ToUpper(strings.TrimSpace(string(d))))
}

// IsCanonical reports whether d has its own display entry.
func (d Decision) IsCanonical() bool {
	_, ok := display[d]
	return ok && d != Unknown
}

type displayEntry struct {
	label string
	class string
}

var display = map[Decision]displayEntry{
	DirectReply:            {"Direct Reply", "decision-success"},
	FallbackReply:          {"Fallback Reply", "decision-info"},
	SentAnswer:             {"Answer Sent", "decision-success"},
	RequestHumanAssistance: {"Human Assistance", "decision-warning"},
	NoAnswerGiven:          {"No Answer", "decision-info"},
	Failed:                 {"Failed", "decision-error"},
	Running:                {"Running", "decision-pending"},
	Unknown:                {"Unknown", "decision-unknown"},
}

// Label is the human-readable name of d.
func Label(d Decision) string {
	if e, ok := display[d]; ok {
		return e.label
	}
	return display[Unknown].label
}

// StyleClass is the CSS class the admin UI uses for d.
func StyleClass(d Decision) string {
	if e, ok := display[d]; ok {
		return e.class
	}
	return display[Unknown].class
}
