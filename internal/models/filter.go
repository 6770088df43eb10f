package models

import "time"

// SortOrder selects how query results are ordered.
type SortOrder string

const (
	// SortInsertion returns records in ascending insertion order
	// (file-load order, then within-file order). This is the default.
	SortInsertion SortOrder = "insertion"
	// SortTimestamp interleaves records from all sources by canonical
	// timestamp. Records without a timestamp sort last, in insertion order.
	SortTimestamp SortOrder = "timestamp"
)

// FilterCriteria is a read-only value object describing a record query.
// A zero FilterCriteria matches every record.
type FilterCriteria struct {
	// From/Until bound the canonical timestamp (inclusive). Records
	// without a timestamp are excluded only when a bound is set.
	From  *time.Time `json:"from,omitempty"`
	Until *time.Time `json:"until,omitempty"`

	// MinSeverity excludes records below the threshold. UNKNOWN-severity
	// records are only returned when the threshold is UNKNOWN.
	MinSeverity Severity `json:"minSeverity"`

	// Contains is a case-insensitive substring match on the message body.
	// It is a plain substring, not a pattern language.
	Contains string `json:"contains,omitempty"`

	// Sources restricts results to a subset of source files. Empty means
	// all sources.
	Sources []string `json:"sources,omitempty"`

	// Sort selects the result ordering; empty means SortInsertion.
	Sort SortOrder `json:"sort,omitempty"`
}

// IsZero reports whether the criteria matches everything.
func (c FilterCriteria) IsZero() bool {
	return c.From == nil && c.Until == nil && c.MinSeverity == SeverityUnknown &&
		c.Contains == "" && len(c.Sources) == 0
}
