package parser

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// JSONLineGrammar handles structured logs with one JSON object per line.
// Recognizes the common field names used by zap/logrus/zerolog style
// loggers: level/severity, msg/message, time/timestamp/ts, logger/component.
type JSONLineGrammar struct{}

func NewJSONLineGrammar() *JSONLineGrammar { return &JSONLineGrammar{} }

func (g *JSONLineGrammar) Name() string { return "jsonline" }

func (g *JSONLineGrammar) StartsLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")
}

func (g *JSONLineGrammar) Match(line string) (*MatchResult, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return nil, false
	}

	res := &MatchResult{}
	matched := false

	if v, ok := strField(fields, "level", "severity", "lvl"); ok {
		res.LevelToken = v
		matched = true
	}
	if v, ok := strField(fields, "message", "msg"); ok {
		res.Message = v
		matched = true
	} else {
		res.Message = trimmed
	}
	if v, ok := strField(fields, "logger", "component", "name"); ok {
		res.Logger = v
	}

	// A JSON object with none of the log fields is data, not a log line.
	if !matched {
		return nil, false
	}

	switch v := firstField(fields, "timestamp", "time", "ts", "@timestamp").(type) {
	case string:
		res.TimestampRaw = v
		res.Patterns = isoPatterns
	case float64:
		ts := epochToTime(v)
		res.Timestamp = &ts
	}

	return res, true
}

func strField(fields map[string]interface{}, names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := fields[name].(string); ok {
			return v, true
		}
	}
	return "", false
}

func firstField(fields map[string]interface{}, names ...string) interface{} {
	for _, name := range names {
		if v, ok := fields[name]; ok {
			return v
		}
	}
	return nil
}

// epochToTime interprets a numeric timestamp field as seconds or
// milliseconds since the epoch, whichever magnitude fits.
func epochToTime(v float64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(int64(v)).UTC()
	}
	sec := int64(v)
	nsec := int64((v - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
