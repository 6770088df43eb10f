package parser

import "regexp"

// SyslogGrammar handles BSD syslog lines:
// "Jan  2 15:04:05 host proc[pid]: message". The format carries neither
// a year nor a level; the year comes from the normalizer's default and
// the severity stays UNKNOWN.
type SyslogGrammar struct {
	startRegex *regexp.Regexp
	lineRegex  *regexp.Regexp
}

var syslogPatterns = []TimestampPattern{
	{Layout: "Jan _2 15:04:05", HasYear: false, HasZone: false},
}

func NewSyslogGrammar() *SyslogGrammar {
	return &SyslogGrammar{
		startRegex: regexp.MustCompile(`^[A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2}\s`),
		lineRegex: regexp.MustCompile(
			`^([A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})\s+(\S+)\s+([^\s:\[\]]+)(?:\[\d+\])?:\s*(.*)$`),
	}
}

func (g *SyslogGrammar) Name() string { return "syslog" }

func (g *SyslogGrammar) StartsLine(line string) bool {
	return g.startRegex.MatchString(line)
}

func (g *SyslogGrammar) Match(line string) (*MatchResult, bool) {
	m := g.lineRegex.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	return &MatchResult{
		TimestampRaw: m[1],
		Patterns:     syslogPatterns,
		Logger:       m[3],
		Message:      m[4],
	}, true
}
