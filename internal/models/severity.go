package models

import "strings"

// Severity is the canonical log level of a record.
// The numeric order is used for threshold filtering: a filter with
// MinSeverity=WARN matches WARN, ERROR and FATAL records.
type Severity int

const (
	SeverityUnknown Severity = iota
	SeverityTrace
	SeverityDebug
	SeverityInfo
	SeverityWarn
	SeverityError
	SeverityFatal
)

var severityNames = map[Severity]string{
	SeverityUnknown: "UNKNOWN",
	SeverityTrace:   "TRACE",
	SeverityDebug:   "DEBUG",
	SeverityInfo:    "INFO",
	SeverityWarn:    "WARN",
	SeverityError:   "ERROR",
	SeverityFatal:   "FATAL",
}

// severityTokens maps known level spellings and abbreviations
// (case-insensitive) to the canonical severity.
var severityTokens = map[string]Severity{
	"TRACE":    SeverityTrace,
	"TRC":      SeverityTrace,
	"VERBOSE":  SeverityTrace,
	"FINEST":   SeverityTrace,
	"DEBUG":    SeverityDebug,
	"DBG":      SeverityDebug,
	"FINE":     SeverityDebug,
	"INFO":     SeverityInfo,
	"INF":      SeverityInfo,
	"NOTICE":   SeverityInfo,
	"WARN":     SeverityWarn,
	"WARNING":  SeverityWarn,
	"WRN":      SeverityWarn,
	"ERROR":    SeverityError,
	"ERR":      SeverityError,
	"SEVERE":   SeverityError,
	"FATAL":    SeverityFatal,
	"CRITICAL": SeverityFatal,
	"CRIT":     SeverityFatal,
	"PANIC":    SeverityFatal,
}

// String returns the canonical upper-case name of the severity.
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalJSON encodes the severity as its canonical name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes a severity from its name. Unrecognized names
// decode as UNKNOWN rather than failing.
func (s *Severity) UnmarshalJSON(b []byte) error {
	*s = ParseSeverity(strings.Trim(string(b), `"`))
	return nil
}

// ParseSeverity normalizes a level token to the canonical severity.
// Unrecognized tokens map to UNKNOWN; this never fails.
func ParseSeverity(token string) Severity {
	if sev, ok := severityTokens[strings.ToUpper(strings.TrimSpace(token))]; ok {
		return sev
	}
	return SeverityUnknown
}
