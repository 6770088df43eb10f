// Package models contains domain types for the log inspector backend.
package models

import "time"

// RecordID is the stable handle of a record inside a RecordStore.
// IDs increase monotonically in insertion order and are never reused.
type RecordID uint64

// LogicalLine is one conceptual log entry before parsing: a primary
// physical line plus any continuation lines folded into it (stack traces,
// wrapped messages). Segments preserve the original line breaks.
type LogicalLine struct {
	Source   string   // source file identifier
	Index    int      // zero-based sequence index within the source
	Segments []string // primary segment first, continuations after
}

// Text joins all segments with newlines, reproducing the original text
// of the logical line modulo line-terminator normalization.
func (l LogicalLine) Text() string {
	switch len(l.Segments) {
	case 0:
		return ""
	case 1:
		return l.Segments[0]
	}
	n := len(l.Segments) - 1
	for _, s := range l.Segments {
		n += len(s)
	}
	b := make([]byte, 0, n)
	for i, s := range l.Segments {
		if i > 0 {
			b = append(b, '\n')
		}
		b = append(b, s...)
	}
	return string(b)
}

// LogRecord is the parsed unit stored in the record store. Every logical
// line produces exactly one record.
type LogRecord struct {
	ID         RecordID   `json:"id" msgpack:"id"`
	Source     string     `json:"source" msgpack:"source"`
	Index      int        `json:"index" msgpack:"index"`
	Timestamp  *time.Time `json:"timestamp,omitempty" msgpack:"timestamp,omitempty"`
	Severity   Severity   `json:"severity" msgpack:"severity"`
	Logger     string     `json:"logger,omitempty" msgpack:"logger,omitempty"`
	Message    string     `json:"message" msgpack:"message"`
	Structured bool       `json:"structured" msgpack:"structured"`
	Grammar    string     `json:"grammar,omitempty" msgpack:"grammar,omitempty"`
}

// LoadWarning records a non-fatal problem scoped to one archive entry or
// one line. Warnings never abort an ingestion batch.
type LoadWarning struct {
	Source string `json:"source,omitempty"`
	Reason string `json:"reason"`
}
