package parser

import (
	"regexp"
	"strings"
)

// SignalIOSGrammar handles iOS debug logs where the level is encoded as
// a colored heart emoji after the timestamp.
// Format: "YYYY/MM/DD HH:MM:SS:fff <emoji> [file:line symbol]: message"
// The level and the bracketed call-site block are both optional.
type SignalIOSGrammar struct {
	startRegex *regexp.Regexp
	lineRegex  *regexp.Regexp
}

// Heart emojis map to level tokens by color. The red heart appears both
// with and without the emoji variation selector.
var iosLevelTokens = []struct {
	emoji string
	token string
}{
	{"❤️", "ERROR"}, // ❤️
	{"❤", "ERROR"},       // ❤
	{"\U0001f9e1", "WARN"},    // 🧡
	{"\U0001f49b", "INFO"},    // 💛
	{"\U0001f49a", "DEBUG"},   // 💚
	{"\U0001f499", "TRACE"},   // 💙
}

func NewSignalIOSGrammar() *SignalIOSGrammar {
	return &SignalIOSGrammar{
		startRegex: regexp.MustCompile(`^\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}:\d{3}\b`),
		lineRegex:  regexp.MustCompile(`^(\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}:\d{3})\s*(.*)$`),
	}
}

func (g *SignalIOSGrammar) Name() string { return "signal_ios" }

func (g *SignalIOSGrammar) StartsLine(line string) bool {
	return g.startRegex.MatchString(line)
}

func (g *SignalIOSGrammar) Match(line string) (*MatchResult, bool) {
	m := g.lineRegex.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}

	res := &MatchResult{
		// The sub-second separator is a colon in this format; swap it
		// for a dot so a standard layout can parse it.
		TimestampRaw: m[1][:19] + "." + m[1][20:],
		Patterns: []TimestampPattern{
			{Layout: "2006/01/02 15:04:05.000", HasYear: true, HasZone: false},
		},
	}

	rest := m[2]
	for _, lvl := range iosLevelTokens {
		if strings.HasPrefix(rest, lvl.emoji) {
			res.LevelToken = lvl.token
			rest = strings.TrimLeft(rest[len(lvl.emoji):], " ")
			break
		}
	}

	if logger, remainder, ok := splitCallSite(rest); ok {
		res.Logger = logger
		rest = remainder
	}

	res.Message = rest
	return res, true
}

// splitCallSite consumes a leading "[file:line symbol]:" or "[file:line
// symbol] " block and returns the file:line part as the logger. The
// symbol itself may contain brackets, so the block ends at the first
// "]:" or "] " boundary.
func splitCallSite(s string) (logger, rest string, ok bool) {
	if !strings.HasPrefix(s, "[") {
		return "", s, false
	}

	end := strings.Index(s, "]:")
	sep := 2
	if end < 0 {
		end = strings.Index(s, "] ")
	}
	if end < 0 {
		// Block closes at end of line with no message after it.
		if strings.HasSuffix(s, "]") {
			end = len(s) - 1
			sep = 1
		} else {
			return "", s, false
		}
	}

	meta := s[1:end]
	if !strings.Contains(meta, ":") {
		return "", s, false
	}

	// "file:line symbol" -> keep file:line.
	if sp := strings.IndexByte(meta, ' '); sp >= 0 {
		meta = meta[:sp]
	}

	rest = strings.TrimLeft(s[min(end+sep, len(s)):], " ")
	return meta, rest, true
}
