package parser

import (
	"regexp"
	"strings"

	"github.com/log-inspector/backend/internal/models"
)

// ISOLevelGrammar handles the common "ISO-timestamp LEVEL [logger] msg"
// shape, e.g. "2023-05-01T10:00:00Z ERROR [NetworkClient] connection refused".
// The bracketed logger is optional.
type ISOLevelGrammar struct {
	startRegex *regexp.Regexp
	lineRegex  *regexp.Regexp
}

var isoPatterns = []TimestampPattern{
	{Layout: "2006-01-02T15:04:05Z07:00", HasYear: true, HasZone: true},
	{Layout: "2006-01-02T15:04:05-0700", HasYear: true, HasZone: true},
	{Layout: "2006-01-02T15:04:05", HasYear: true, HasZone: false},
}

func NewISOLevelGrammar() *ISOLevelGrammar {
	return &ISOLevelGrammar{
		startRegex: regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`),
		lineRegex: regexp.MustCompile(
			`^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?)\s+([A-Za-z]+)\s+(?:\[([^\]]+)\]\s*)?(.*)$`),
	}
}

func (g *ISOLevelGrammar) Name() string { return "iso_level" }

func (g *ISOLevelGrammar) StartsLine(line string) bool {
	return g.startRegex.MatchString(line)
}

func (g *ISOLevelGrammar) Match(line string) (*MatchResult, bool) {
	m := g.lineRegex.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	return &MatchResult{
		TimestampRaw: m[1],
		Patterns:     isoPatterns,
		LevelToken:   m[2],
		Logger:       m[3],
		Message:      m[4],
	}, true
}

// BracketDatetimeGrammar handles lines starting with a bracketed
// datetime, e.g. "[2024-01-15 10:30:00] ERROR something happened".
type BracketDatetimeGrammar struct {
	startRegex *regexp.Regexp
	lineRegex  *regexp.Regexp
}

var bracketPatterns = []TimestampPattern{
	{Layout: "2006-01-02 15:04:05", HasYear: true, HasZone: false},
	{Layout: "2006-01-02 15:04:05,000", HasYear: true, HasZone: false},
	{Layout: "2006-01-02T15:04:05", HasYear: true, HasZone: false},
}

func NewBracketDatetimeGrammar() *BracketDatetimeGrammar {
	return &BracketDatetimeGrammar{
		startRegex: regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}`),
		lineRegex: regexp.MustCompile(
			`^\[(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(?:[.,]\d+)?)\]\s*(?:([A-Za-z]+)[:\s]\s*)?(.*)$`),
	}
}

func (g *BracketDatetimeGrammar) Name() string { return "bracket_datetime" }

func (g *BracketDatetimeGrammar) StartsLine(line string) bool {
	return g.startRegex.MatchString(line)
}

func (g *BracketDatetimeGrammar) Match(line string) (*MatchResult, bool) {
	m := g.lineRegex.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}

	res := &MatchResult{
		TimestampRaw: m[1],
		Patterns:     bracketPatterns,
		Message:      m[3],
	}

	// The token after the bracket is only a level if it spells one;
	// otherwise it belongs to the message.
	if m[2] != "" {
		if models.ParseSeverity(m[2]) != models.SeverityUnknown {
			res.LevelToken = m[2]
		} else {
			res.Message = strings.TrimLeft(line[strings.Index(line, "]")+1:], " ")
		}
	}

	logger, rest, ok := splitLeadingLogger(res.Message)
	if ok {
		res.Logger = logger
		res.Message = rest
	}
	return res, true
}

// PlainDatetimeGrammar handles unbracketed "YYYY-MM-DD HH:MM:SS LEVEL msg"
// lines (log4j, python logging). The level token must spell a known
// severity or the grammar does not match, which keeps it from swallowing
// arbitrary datetime-prefixed lines.
type PlainDatetimeGrammar struct {
	startRegex *regexp.Regexp
	lineRegex  *regexp.Regexp
}

var plainPatterns = []TimestampPattern{
	{Layout: "2006-01-02 15:04:05", HasYear: true, HasZone: false},
	{Layout: "2006-01-02 15:04:05,000", HasYear: true, HasZone: false},
}

func NewPlainDatetimeGrammar() *PlainDatetimeGrammar {
	return &PlainDatetimeGrammar{
		startRegex: regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`),
		lineRegex: regexp.MustCompile(
			`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(?:[.,]\d+)?)\s+\[?([A-Za-z]+)\]?\s+(.*)$`),
	}
}

func (g *PlainDatetimeGrammar) Name() string { return "plain_datetime" }

func (g *PlainDatetimeGrammar) StartsLine(line string) bool {
	return g.startRegex.MatchString(line)
}

func (g *PlainDatetimeGrammar) Match(line string) (*MatchResult, bool) {
	m := g.lineRegex.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	if models.ParseSeverity(m[2]) == models.SeverityUnknown {
		return nil, false
	}

	res := &MatchResult{
		TimestampRaw: m[1],
		Patterns:     plainPatterns,
		LevelToken:   m[2],
		Message:      m[3],
	}

	logger, rest, ok := splitLeadingLogger(res.Message)
	if ok {
		res.Logger = logger
		res.Message = rest
	}
	return res, true
}

var leadingLoggerRegex = regexp.MustCompile(`^([\w$]+(?:\.[\w$]+)+)\s*(?::|-)\s+(.*)$`)

// splitLeadingLogger peels a "[logger] msg" or dotted "com.example.Foo: msg"
// prefix off a message body. A bare word is never treated as a logger;
// that would swallow messages like "error - disk full".
func splitLeadingLogger(msg string) (logger, rest string, ok bool) {
	if strings.HasPrefix(msg, "[") {
		if end := strings.IndexByte(msg, ']'); end > 1 && !strings.ContainsAny(msg[1:end], " ") {
			rest = strings.TrimLeft(strings.TrimPrefix(msg[end+1:], ":"), " ")
			return msg[1:end], rest, true
		}
	}
	if m := leadingLoggerRegex.FindStringSubmatch(msg); m != nil {
		return m[1], m[2], true
	}
	return "", msg, false
}
