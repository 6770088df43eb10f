// Package parser reconstructs logical lines from decoded log text and
// extracts structured records from them via an ordered list of format
// grammars.
package parser

import (
	"strings"
	"time"

	"github.com/log-inspector/backend/internal/models"
)

// MatchResult holds the fields a grammar extracted from the primary
// segment of a logical line.
type MatchResult struct {
	// TimestampRaw is the format-specific timestamp substring, empty if
	// the format carries none.
	TimestampRaw string
	// Patterns are the timestamp layouts this grammar may emit, tried in
	// order by the normalizer.
	Patterns []TimestampPattern
	// Timestamp is set instead of TimestampRaw when the grammar resolves
	// the instant itself (e.g. numeric epoch fields).
	Timestamp *time.Time
	// LevelToken is the severity token as spelled in the line.
	LevelToken string
	// Logger is the optional logger/component name.
	Logger string
	// Message is the primary-line remainder after consumed header fields.
	Message string
}

// Grammar is a deterministic matcher for one specific log format.
// Grammars are data: they hold no mutable state and may be shared.
type Grammar interface {
	// Name returns the unique name of the grammar.
	Name() string
	// StartsLine reports whether a physical line begins a new logical
	// line in this format. Used by the line reconstructor.
	StartsLine(line string) bool
	// Match extracts structured fields from the primary segment, or
	// reports no-match.
	Match(line string) (*MatchResult, bool)
}

// DefaultGrammars returns all built-in grammars in their default
// priority order, most specific first.
func DefaultGrammars() []Grammar {
	return []Grammar{
		NewSignalIOSGrammar(),
		NewJSONLineGrammar(),
		NewISOLevelGrammar(),
		NewBracketDatetimeGrammar(),
		NewPlainDatetimeGrammar(),
		NewSyslogGrammar(),
	}
}

// GrammarsByName filters the built-in grammars to the named subset,
// preserving the requested order. Unknown names are ignored. An empty
// request returns the full default list.
func GrammarsByName(names []string) []Grammar {
	all := DefaultGrammars()
	if len(names) == 0 {
		return all
	}
	byName := make(map[string]Grammar, len(all))
	for _, g := range all {
		byName[g.Name()] = g
	}
	out := make([]Grammar, 0, len(names))
	for _, name := range names {
		if g, ok := byName[strings.ToLower(strings.TrimSpace(name))]; ok {
			out = append(out, g)
		}
	}
	if len(out) == 0 {
		return all
	}
	return out
}

// Dispatcher evaluates a fixed ordered grammar list against logical
// lines. The relative grammar order never changes within a session, so
// dispatch is deterministic: first match wins.
type Dispatcher struct {
	grammars []Grammar
	norm     *Normalizer
	intern   *StringIntern
}

// NewDispatcher creates a dispatcher over the given grammar list.
func NewDispatcher(grammars []Grammar, norm *Normalizer) *Dispatcher {
	if norm == nil {
		norm = NewNormalizer(0, nil)
	}
	return &Dispatcher{
		grammars: grammars,
		norm:     norm,
		intern:   NewStringIntern(),
	}
}

// Grammars returns the active grammar list in evaluation order.
func (d *Dispatcher) Grammars() []Grammar {
	return d.grammars
}

// Parse converts a logical line into exactly one record. It is total:
// when no grammar matches it returns a raw-fallback record with UNKNOWN
// severity and the full text as message body.
func (d *Dispatcher) Parse(line models.LogicalLine) models.LogRecord {
	rec := models.LogRecord{
		Source:   d.intern.Intern(line.Source),
		Index:    line.Index,
		Severity: models.SeverityUnknown,
	}

	if len(line.Segments) == 0 {
		return rec
	}
	primary := line.Segments[0]

	for _, g := range d.grammars {
		res, ok := g.Match(primary)
		if !ok {
			continue
		}

		rec.Structured = true
		rec.Grammar = g.Name()
		rec.Severity = models.ParseSeverity(res.LevelToken)
		rec.Logger = d.intern.Intern(res.Logger)
		rec.Message = withContinuations(res.Message, line.Segments[1:])

		if res.Timestamp != nil {
			ts := *res.Timestamp
			rec.Timestamp = &ts
		} else if ts, ok := d.norm.Normalize(res.TimestampRaw, res.Patterns); ok {
			rec.Timestamp = &ts
		}
		return rec
	}

	rec.Message = line.Text()
	return rec
}

// withContinuations appends continuation segments verbatim to the parsed
// message, preserving original line breaks.
func withContinuations(message string, continuations []string) string {
	if len(continuations) == 0 {
		return message
	}
	var b strings.Builder
	b.WriteString(message)
	for _, seg := range continuations {
		b.WriteByte('\n')
		b.WriteString(seg)
	}
	return b.String()
}
